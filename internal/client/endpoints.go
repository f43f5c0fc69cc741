package client

// API endpoint paths, relative to the configured base URL.
const (
	// endpointSessions serves POST (create) and GET (paginated history).
	endpointSessions = "/api/v1/sessions"

	// endpointSessionByID serves GET for one full session.
	endpointSessionByID = "/api/v1/sessions/"

	// endpointAnswer accepts one interview answer and returns the updated
	// session.
	endpointAnswer = "/api/v1/sessions/answer"

	// endpointChatStream is the SSE streaming turn endpoint.
	endpointChatStream = "/api/v1/chat/stream"
)
