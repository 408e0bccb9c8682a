package httpserver

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"wca-openai-proxy/internal/adapter"
	"wca-openai-proxy/internal/handlers"
	"wca-openai-proxy/internal/metrics"
)

type staticBackend struct {
	content string
	delay   time.Duration
}

func (b staticBackend) Submit(ctx context.Context, payload string, attachments []string) (string, error) {
	if b.delay > 0 {
		select {
		case <-time.After(b.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return b.content, nil
}

func newTestServer(t *testing.T, backend handlers.Backend, opts Options) *httptest.Server {
	t.Helper()
	metrics.Register()

	r := chi.NewRouter()
	chat := handlers.NewChatHandler(backend, adapter.New(adapter.Config{Model: "watson-ai"}))
	info := handlers.NewInfoHandler("watson-ai", "1.0.0", true)
	SetupRouter(r, zap.NewNop(), opts, chat, info)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestRoutes(t *testing.T) {
	srv := newTestServer(t, staticBackend{content: "Hello there"}, Options{RequestTimeout: time.Second, MaxBodyBytes: 1 << 20})

	tests := []struct {
		method, path, body string
		want               int
	}{
		{http.MethodGet, "/health", "", http.StatusOK},
		{http.MethodGet, "/v1/health", "", http.StatusOK},
		{http.MethodGet, "/v1/models", "", http.StatusOK},
		{http.MethodGet, "/metrics", "", http.StatusOK},
		{http.MethodPost, "/v1/chat/completions", `{"messages":[{"role":"user","content":"Hi"}]}`, http.StatusOK},
		{http.MethodPost, "/v1/completions", `{"prompt":"Hi"}`, http.StatusOK},
		{http.MethodGet, "/v1/chat/completions", "", http.StatusMethodNotAllowed},
		{http.MethodGet, "/nope", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, srv.URL+tt.path, strings.NewReader(tt.body))
			require.NoError(t, err)
			resp, err := srv.Client().Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestBodyLimit(t *testing.T) {
	srv := newTestServer(t, staticBackend{content: "ok"}, Options{RequestTimeout: time.Second, MaxBodyBytes: 64})

	body := `{"messages":[{"role":"user","content":"` + strings.Repeat("a", 256) + `"}]}`
	resp, err := srv.Client().Post(srv.URL+"/v1/chat/completions", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}

func TestRequestTimeout(t *testing.T) {
	srv := newTestServer(t, staticBackend{content: "late", delay: time.Second}, Options{RequestTimeout: 30 * time.Millisecond})

	resp, err := srv.Client().Post(srv.URL+"/v1/chat/completions", "application/json",
		strings.NewReader(`{"messages":[{"role":"user","content":"Hi"}]}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusGatewayTimeout, resp.StatusCode)
}

func TestStreamThroughMiddleware(t *testing.T) {
	srv := newTestServer(t, staticBackend{content: strings.Repeat("y", 30)}, Options{RequestTimeout: time.Second})

	resp, err := srv.Client().Post(srv.URL+"/v1/chat/completions", "application/json",
		strings.NewReader(`{"messages":[{"role":"user","content":"Hi"}],"stream":true}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	events := strings.Split(strings.TrimSpace(string(raw)), "\n\n")
	require.Len(t, events, 3)
	for _, e := range events[:2] {
		var chunk adapter.ChatCompletionChunk
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(e, "data: ")), &chunk))
		assert.Equal(t, "chat.completion.chunk", chunk.Object)
	}
	assert.Equal(t, "data: [DONE]", events[2])
}
