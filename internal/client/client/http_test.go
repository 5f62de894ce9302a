package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/incidentdesk/internal/logging"
)

func TestNewHTTPClient_RejectsBadBaseURL(t *testing.T) {
	for _, raw := range []string{"", "localhost:8000", "ftp://host/api", "http://"} {
		_, err := NewHTTPClient(raw, time.Second, logging.NewNop())
		require.ErrorIs(t, err, ErrInvalidRequest, raw)
	}

	c, err := NewHTTPClient("http://localhost:8000/api/", time.Second, logging.NewNop())
	require.NoError(t, err)
	require.Equal(t, "http://localhost:8000/api", c.BaseURL())
}

func TestHTTPClient_Do_SendsHeadersAndBody(t *testing.T) {
	var (
		gotMethod, gotPath, gotAuth, gotCT, gotReqID string
		gotBody                                      []byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotCT = r.Header.Get("Content-Type")
		gotReqID = r.Header.Get("X-Request-ID")
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":1}`))
	}))
	defer srv.Close()

	c, err := NewHTTPClient(srv.URL+"/api", time.Second, logging.NewNop())
	require.NoError(t, err)

	resp, err := c.Do(context.Background(), Request{Method: http.MethodPost, Path: "/incidents/", Body: []byte(`{"title":"x"}`), Token: "A1"})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "/api/incidents/", gotPath)
	assert.Equal(t, "Bearer A1", gotAuth)
	assert.Equal(t, "application/json", gotCT)
	assert.NotEmpty(t, gotReqID)
	assert.JSONEq(t, `{"title":"x"}`, string(gotBody))

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.True(t, resp.OK())
	assert.JSONEq(t, `{"id":1}`, string(resp.Body))
}

func TestHTTPClient_Do_AnonymousHasNoAuthorization(t *testing.T) {
	var gotAuth string
	var sawAuth bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth, sawAuth = r.Header.Get("Authorization"), len(r.Header.Values("Authorization")) > 0
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c, err := NewHTTPClient(srv.URL, time.Second, logging.NewNop())
	require.NoError(t, err)

	resp, err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/incidents/"})
	require.NoError(t, err)
	require.False(t, sawAuth, gotAuth)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.False(t, resp.OK())
}

func TestHTTPClient_Do_TransportFailureIsNetwork(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c, err := NewHTTPClient(url, time.Second, logging.NewNop())
	require.NoError(t, err)

	_, err = c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/incidents/"})
	require.ErrorIs(t, err, ErrNetwork)
	require.True(t, IsNetwork(err))
	require.Equal(t, KindNetwork, KindOf(err))
	require.NotNil(t, errors.Unwrap(err))
}

func TestHTTPClient_Do_ContextCancelledIsNetwork(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	c, err := NewHTTPClient(srv.URL, 0, logging.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = c.Do(ctx, Request{Method: http.MethodGet, Path: "/incidents/"})
	require.ErrorIs(t, err, ErrNetwork)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestHTTPClient_Do_RejectsRelativePath(t *testing.T) {
	c, err := NewHTTPClient("http://localhost:1", time.Second, logging.NewNop())
	require.NoError(t, err)

	_, err = c.Do(context.Background(), Request{Method: http.MethodGet, Path: "incidents/"})
	require.ErrorIs(t, err, ErrInvalidRequest)
}

func TestResponseDetail(t *testing.T) {
	tests := []struct {
		name string
		ct   string
		body string
		want string
	}{
		{"empty", "", "", ""},
		{"detail", "application/json", `{"detail":"Given token not valid"}`, "Given token not valid"},
		{"non field", "application/json", `{"non_field_errors":["a","b"]}`, "a, b"},
		{"html", "text/html", "<html><body>oops</body></html>", "html response body omitted"},
		{"plain", "text/plain", "  bad\n gateway  ", "bad gateway"},
		{"long", "text/plain", strings.Repeat("x", 300), strings.Repeat("x", 197) + "..."},
		{"long multibyte", "text/plain", strings.Repeat("x", 196) + "ñ" + strings.Repeat("a", 200), strings.Repeat("x", 196) + "..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Response{Header: http.Header{"Content-Type": {tt.ct}}, Body: []byte(tt.body)}
			require.Equal(t, tt.want, r.Detail())
			require.True(t, utf8.ValidString(r.Detail()))
		})
	}
}

func TestHTTPClient_Do_BodyAtLimitIsReadWhole(t *testing.T) {
	body := `[` + strings.Repeat(`{"id":1},`, 200) + `{"id":2}]`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	c, err := NewHTTPClient(srv.URL, time.Second, logging.NewNop())
	require.NoError(t, err)
	c.maxBody = int64(len(body))

	resp, err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/incidents/"})
	require.NoError(t, err)
	require.Equal(t, body, string(resp.Body))
}

func TestHTTPClient_Do_OversizedBodyIsNotTruncated(t *testing.T) {
	body := `[` + strings.Repeat(`{"id":1},`, 200) + `{"id":2}]`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	c, err := NewHTTPClient(srv.URL, time.Second, logging.NewNop())
	require.NoError(t, err)
	c.maxBody = int64(len(body)) - 1

	_, err = c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/incidents/"})
	require.ErrorIs(t, err, ErrServer)
	require.NotErrorIs(t, err, ErrDecoding)
	require.Equal(t, http.StatusOK, StatusCode(err))
	require.Contains(t, err.Error(), "response exceeds")
}

func TestNewHTTPClient_DefaultBodyLimitFitsLargeLists(t *testing.T) {
	c, err := NewHTTPClient("http://localhost:8000/api", time.Second, logging.NewNop())
	require.NoError(t, err)
	require.Equal(t, int64(DefaultMaxResponseBytes), c.maxBody)
	require.Greater(t, c.maxBody, int64(2_112_001))
}
