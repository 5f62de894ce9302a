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
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/incidentdesk/internal/common"
	"github.com/dmitrijs2005/incidentdesk/internal/logging"
)

// DefaultMaxResponseBytes bounds how much of a response body is read.
const DefaultMaxResponseBytes = 32 << 20

// Request is a single API call. Path is relative to the base URL and must
// start with '/'. Body, when non-nil, is sent verbatim as JSON.
type Request struct {
	Method string
	Path   string
	Body   []byte
	// Token is the bearer access token; empty means an anonymous call.
	Token string
}

// Response is a fully read API response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Detail summarizes the body for error messages.
func (r *Response) Detail() string {
	return summarizeResponseBody(r.Header.Get("Content-Type"), r.Body)
}

// Doer executes a Request. Implementations return a *RequestError of
// KindNetwork when no response was received.
type Doer interface {
	Do(ctx context.Context, req Request) (*Response, error)
}

// HTTPClient is the net/http implementation of Doer.
type HTTPClient struct {
	baseURL string
	http    *http.Client
	log     logging.Logger
	maxBody int64
}

// NewHTTPClient validates baseURL and returns a client whose calls time out
// after timeout (zero means no timeout).
func NewHTTPClient(baseURL string, timeout time.Duration, log logging.Logger) (*HTTPClient, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, InvalidRequestError(fmt.Errorf("parse base url: %w", err))
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, InvalidRequestError(fmt.Errorf("base url %q must be absolute http(s)", baseURL))
	}

	return &HTTPClient{
		baseURL: strings.TrimRight(u.String(), "/"),
		http:    &http.Client{Timeout: timeout},
		log:     log,
		maxBody: DefaultMaxResponseBytes,
	}, nil
}

func (c *HTTPClient) BaseURL() string {
	return c.baseURL
}

func (c *HTTPClient) Do(ctx context.Context, req Request) (*Response, error) {
	if req.Method == "" || !strings.HasPrefix(req.Path, "/") {
		return nil, InvalidRequestError(fmt.Errorf("bad request line %q %q", req.Method, req.Path))
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, c.baseURL+req.Path, body)
	if err != nil {
		return nil, InvalidRequestError(err)
	}

	requestID := uuid.NewString()
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set(common.RequestIDHeaderName, requestID)
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.Token != "" {
		httpReq.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+req.Token)
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.log.Debug(ctx, "api call failed", "method", req.Method, "path", req.Path, "request_id", requestID, "error", err)
		return nil, NetworkError(err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return nil, NetworkError(fmt.Errorf("read response body: %w", err))
	}
	if int64(len(payload)) > c.maxBody {
		c.log.Warn(ctx, "response body too large", "method", req.Method, "path", req.Path, "request_id", requestID, "limit", c.maxBody)
		return nil, ServerError(resp.StatusCode, fmt.Sprintf("response exceeds %d bytes", c.maxBody))
	}

	c.log.Debug(ctx, "api call",
		"method", req.Method,
		"path", req.Path,
		"status", resp.StatusCode,
		"request_id", requestID,
		"elapsed", time.Since(start),
	)

	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: payload}, nil
}

// IsNetwork reports whether err is a transport failure, including a caller
// giving up via its context.
func IsNetwork(err error) bool {
	return errors.Is(err, ErrNetwork)
}

func summarizeResponseBody(contentType string, payload []byte) string {
	trimmed := strings.TrimSpace(string(payload))
	if trimmed == "" {
		return ""
	}
	if isLikelyHTMLResponse(contentType, trimmed) {
		return "html response body omitted"
	}
	if msg, ok := extractJSONErrorSummary(trimmed); ok {
		return msg
	}
	return truncateResponseText(trimmed, 200)
}

func extractJSONErrorSummary(body string) (string, bool) {
	if !strings.HasPrefix(body, "{") {
		return "", false
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(body), &obj); err != nil {
		return "", false
	}

	for _, key := range []string{"detail", "error", "message"} {
		if v, ok := obj[key].(string); ok && strings.TrimSpace(v) != "" {
			return truncateResponseText(v, 200), true
		}
	}
	if v, ok := obj["non_field_errors"].([]any); ok && len(v) > 0 {
		msgs := make([]string, 0, len(v))
		for _, m := range v {
			if s, ok := m.(string); ok {
				msgs = append(msgs, s)
			}
		}
		if len(msgs) > 0 {
			return truncateResponseText(strings.Join(msgs, ", "), 200), true
		}
	}
	return "", false
}

func isLikelyHTMLResponse(contentType, body string) bool {
	ct := strings.ToLower(contentType)
	if strings.Contains(ct, "text/html") || strings.Contains(ct, "application/xhtml+xml") {
		return true
	}
	lower := strings.ToLower(body)
	return strings.HasPrefix(lower, "<!doctype html") || strings.HasPrefix(lower, "<html")
}

func truncateResponseText(value string, max int) string {
	collapsed := strings.Join(strings.Fields(value), " ")
	if len(collapsed) <= max {
		return collapsed
	}
	cut := max - 3
	for cut > 0 && !utf8.RuneStart(collapsed[cut]) {
		cut--
	}
	return collapsed[:cut] + "..."
}
