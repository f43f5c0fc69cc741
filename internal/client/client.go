// Package client implements the HTTP client for the VibeCheck persona API:
// session lifecycle and history over plain JSON, interview answers over a
// non-streaming POST, and streaming chat turns over Server-Sent Events.
//
// Non-streaming calls retry a small bounded number of times with
// exponential backoff; the stream never retries (a dropped stream surfaces
// to the user, who resends).
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/vibecheck-ai/vibecheck/internal/log"
	"github.com/vibecheck-ai/vibecheck/internal/session"
)

// maxErrorBodyBytes caps how much of an error response body is read for
// diagnostics.
const maxErrorBodyBytes = 4096

// ErrSessionNotFound indicates the server has no session with the given id.
var ErrSessionNotFound = errors.New("session not found")

// APIError is a non-2xx response from the persona API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error (HTTP %d)", e.StatusCode)
	}
	return fmt.Sprintf("api error (HTTP %d): %s", e.StatusCode, e.Message)
}

// Config holds the settings a Client needs.
type Config struct {
	// BaseURL is the API root, scheme://host[:port]. Required.
	BaseURL string

	// Token is the bearer token attached to every request. Optional.
	Token string

	// RequestTimeout bounds each non-streaming call. Required.
	RequestTimeout time.Duration

	// MaxRetries is the bounded retry count for non-streaming calls.
	MaxRetries int

	// Logger receives request diagnostics. Nil falls back to Nop.
	Logger log.Logger
}

// Client talks to the persona API. Safe for concurrent use.
type Client struct {
	httpClient *http.Client
	// streamClient carries no overall timeout: http.Client.Timeout covers
	// the whole body, which would kill long generations mid-stream.
	// Streaming deadlines come from the caller's context instead.
	streamClient *http.Client
	baseURL      string
	token        string
	maxRetries   int
	limiter      *rate.Limiter
	tracer       trace.Tracer
	logger       log.Logger
}

// New creates a Client. The base URL is normalized to scheme://host with no
// trailing slash.
func New(cfg Config) (*Client, error) {
	base, err := normalizeBaseURL(cfg.BaseURL)
	if err != nil {
		return nil, err
	}
	if cfg.RequestTimeout <= 0 {
		return nil, errors.New("client: request timeout must be positive")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	return &Client{
		httpClient:   &http.Client{Timeout: cfg.RequestTimeout},
		streamClient: &http.Client{},
		baseURL:      base,
		token:        cfg.Token,
		maxRetries:   cfg.MaxRetries,
		// Generous bounds; this only guards against pathological retry
		// storms, not normal interactive use.
		limiter: rate.NewLimiter(rate.Limit(10), 20),
		tracer:  otel.Tracer("vibecheck/client"),
		logger:  logger,
	}, nil
}

// normalizeBaseURL validates the base URL and strips any path and trailing
// slash.
func normalizeBaseURL(raw string) (string, error) {
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("client: invalid base URL %q", raw)
	}
	return u.Scheme + "://" + u.Host, nil
}

// CreateSession creates a fresh, empty session (mode=initial_prompt).
func (c *Client) CreateSession(ctx context.Context) (*session.ChatSession, error) {
	var s session.ChatSession
	if err := c.doJSON(ctx, http.MethodPost, endpointSessions, nil, nil, &s); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return &s, nil
}

// GetSession fetches one full session by id.
func (c *Client) GetSession(ctx context.Context, id string) (*session.ChatSession, error) {
	if id == "" {
		return nil, errors.New("client: session id is required")
	}
	var s session.ChatSession
	err := c.doJSON(ctx, http.MethodGet, endpointSessionByID+url.PathEscape(id), nil, nil, &s)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("get session %s: %w", id, ErrSessionNotFound)
		}
		return nil, fmt.Errorf("get session %s: %w", id, err)
	}
	return &s, nil
}

// History fetches one page of session summaries.
func (c *Client) History(ctx context.Context, page, pageSize int) (*session.HistoryPage, error) {
	query := url.Values{
		"page":      {strconv.Itoa(page)},
		"page_size": {strconv.Itoa(pageSize)},
	}
	var hp session.HistoryPage
	if err := c.doJSON(ctx, http.MethodGet, endpointSessions, query, nil, &hp); err != nil {
		return nil, fmt.Errorf("chat history: %w", err)
	}
	return &hp, nil
}

// answerRequest is the wire body of an interview answer submission.
type answerRequest struct {
	SessionID string `json:"session_id"`
	Question  string `json:"question"`
	Answer    string `json:"answer"`
}

// AnswerQuestion submits one interview answer and returns the updated
// session (at least its generated_questions).
func (c *Client) AnswerQuestion(ctx context.Context, sessionID, question, answer string) (*session.ChatSession, error) {
	if sessionID == "" {
		return nil, errors.New("client: session id is required")
	}
	body := answerRequest{SessionID: sessionID, Question: question, Answer: answer}
	var s session.ChatSession
	if err := c.doJSON(ctx, http.MethodPost, endpointAnswer, nil, body, &s); err != nil {
		return nil, fmt.Errorf("answer question: %w", err)
	}
	return &s, nil
}

// doJSON performs one JSON round trip with rate limiting, tracing, and
// bounded retries. 4xx responses are permanent; transport errors and 5xx
// retry up to maxRetries.
func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, body, out any) error {
	ctx, span := c.tracer.Start(ctx, method+" "+path)
	defer span.End()

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
	}

	attempt := func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}

		reqURL := c.baseURL + path
		if len(query) > 0 {
			reqURL += "?" + query.Encode()
		}

		var reqBody io.Reader
		if payload != nil {
			reqBody = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, reqURL, reqBody)
		if err != nil {
			return backoff.Permanent(err)
		}
		c.setHeaders(req, false)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err // transport failure: retryable
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			apiErr := newAPIError(resp)
			if resp.StatusCode >= 500 {
				return apiErr // server fault: retryable
			}
			return backoff.Permanent(apiErr)
		}

		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return backoff.Permanent(fmt.Errorf("unmarshal response: %w", err))
		}
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(c.maxRetries)),
		ctx,
	)
	return backoff.RetryNotify(attempt, policy, func(err error, wait time.Duration) {
		c.logger.Debug("retrying request", "method", method, "path", path, "wait", wait, "error", err)
	})
}

// setHeaders applies shared request headers.
func (c *Client) setHeaders(req *http.Request, stream bool) {
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if stream {
		req.Header.Set("Accept", "text/event-stream")
	} else {
		req.Header.Set("Accept", "application/json")
	}
}

// newAPIError builds an APIError from a non-2xx response, preferring the
// conventional {"error": "..."} body.
func newAPIError(resp *http.Response) *APIError {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))

	var wire struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &wire); err == nil && wire.Error != "" {
		return &APIError{StatusCode: resp.StatusCode, Message: wire.Error}
	}
	return &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
}
