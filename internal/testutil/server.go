package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/vibecheck-ai/vibecheck/internal/session"
)

// APIServer is an in-process fake of the persona API, just enough surface
// for client and cmd tests: session lifecycle, paginated history, answer
// submission, and a scripted SSE stream.
type APIServer struct {
	*httptest.Server

	mu       sync.Mutex
	sessions map[string]*session.ChatSession
	nextID   int

	// StreamBody is written verbatim on stream requests, frame by frame.
	StreamBody []string

	// StreamDelay spaces out stream frames, letting tests exercise
	// mid-stream cancellation.
	StreamDelay time.Duration

	// FailAnswers makes that many answer calls return 500 before
	// succeeding, for retry tests.
	FailAnswers int

	// AnswerCalls counts answer submissions (including failed ones).
	AnswerCalls int

	// LastTurn records the most recent stream request body.
	LastTurn map[string]any
}

// NewAPIServer starts the fake API. It is shut down with the test.
func NewAPIServer(t *testing.T) *APIServer {
	t.Helper()

	s := &APIServer{sessions: make(map[string]*session.ChatSession)}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/sessions", s.handleCreate)
	mux.HandleFunc("GET /api/v1/sessions", s.handleHistory)
	mux.HandleFunc("GET /api/v1/sessions/{id}", s.handleGet)
	mux.HandleFunc("POST /api/v1/sessions/answer", s.handleAnswer)
	mux.HandleFunc("POST /api/v1/chat/stream", s.handleStream)

	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

// Seed installs a session into the fake store and returns it.
func (s *APIServer) Seed(sess *session.ChatSession) *session.ChatSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
	return sess
}

// Session returns the stored session by id, or nil.
func (s *APIServer) Session(id string) *session.ChatSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[id]
}

func (s *APIServer) handleCreate(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	s.nextID++
	sess := &session.ChatSession{
		ID:        fmt.Sprintf("sess-%d", s.nextID),
		Mode:      session.ModeInitialPrompt,
		Messages:  []session.ChatMessage{},
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, sess)
}

func (s *APIServer) handleGet(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	sess, ok := s.sessions[r.PathValue("id")]
	s.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *APIServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	s.mu.Lock()
	summaries := make([]session.Summary, 0, len(s.sessions))
	for _, sess := range s.sessions {
		summaries = append(summaries, session.Summary{
			ID:             sess.ID,
			Name:           sess.Name,
			Mode:           sess.Mode,
			PersonaSummary: sess.PersonaSummary,
			CreatedAt:      sess.CreatedAt,
			UpdatedAt:      sess.UpdatedAt,
		})
	}
	s.mu.Unlock()

	start := (page - 1) * pageSize
	end := min(start+pageSize, len(summaries))
	if start > len(summaries) {
		start = len(summaries)
	}

	writeJSON(w, http.StatusOK, session.HistoryPage{
		Sessions: summaries[start:end],
		Page:     page,
		PageSize: pageSize,
		Total:    len(summaries),
	})
}

func (s *APIServer) handleAnswer(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.AnswerCalls++
	if s.FailAnswers > 0 {
		s.FailAnswers--
		s.mu.Unlock()
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "transient failure"})
		return
	}

	var req struct {
		SessionID string `json:"session_id"`
		Question  string `json:"question"`
		Answer    string `json:"answer"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.mu.Unlock()
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad request"})
		return
	}

	sess, ok := s.sessions[req.SessionID]
	if !ok {
		s.mu.Unlock()
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
		return
	}

	for i := range sess.GeneratedQuestions {
		if sess.GeneratedQuestions[i].QuestionText == req.Question {
			sess.GeneratedQuestions[i].HasAnswered = true
			sess.GeneratedQuestions[i].Answer = req.Answer
			break
		}
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, sess)
}

func (s *APIServer) handleStream(w http.ResponseWriter, r *http.Request) {
	var turn map[string]any
	_ = json.NewDecoder(r.Body).Decode(&turn)
	s.mu.Lock()
	s.LastTurn = turn
	frames := s.StreamBody
	delay := s.StreamDelay
	s.mu.Unlock()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	for _, frame := range frames {
		select {
		case <-r.Context().Done():
			return
		default:
		}
		_, _ = fmt.Fprint(w, frame)
		flusher.Flush()
		if delay > 0 {
			time.Sleep(delay)
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
