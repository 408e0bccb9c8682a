package middleware

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"wca-openai-proxy/pkg/logging"
)

const gatewayTimeoutBody = `{"error":{"message":"Request timed out","type":"api_error","code":504}}` + "\n"

// Timeout bounds the request context by d. The handler runs on the serving
// goroutine. If the deadline has passed before the handler starts its
// response, the response is replaced by a 504 and later writes are dropped.
// A response already under way (such as an event stream) is left alone and
// ends when the handler observes the cancelled context.
func Timeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()

			tw := &timeoutWriter{ResponseWriter: w, ctx: ctx, timeout: d}
			next.ServeHTTP(tw, r.WithContext(ctx))

			tw.finish()
		})
	}
}

type timeoutWriter struct {
	http.ResponseWriter
	ctx     context.Context
	timeout time.Duration

	mu          sync.Mutex
	wroteHeader bool
	timedOut    bool
}

func (tw *timeoutWriter) WriteHeader(code int) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	tw.writeHeaderLocked(code)
}

func (tw *timeoutWriter) writeHeaderLocked(code int) {
	if tw.wroteHeader {
		return
	}
	tw.wroteHeader = true
	if tw.expired() {
		tw.writeTimeoutLocked()
		return
	}
	tw.ResponseWriter.WriteHeader(code)
}

func (tw *timeoutWriter) Write(b []byte) (int, error) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	tw.writeHeaderLocked(http.StatusOK)
	if tw.timedOut {
		return 0, http.ErrHandlerTimeout
	}
	return tw.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the underlying Flusher.
func (tw *timeoutWriter) Unwrap() http.ResponseWriter {
	return tw.ResponseWriter
}

// finish answers 504 when the handler returned without writing anything
// after the deadline passed.
func (tw *timeoutWriter) finish() {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if !tw.wroteHeader && tw.expired() {
		tw.wroteHeader = true
		tw.writeTimeoutLocked()
	}
}

func (tw *timeoutWriter) expired() bool {
	return errors.Is(tw.ctx.Err(), context.DeadlineExceeded)
}

func (tw *timeoutWriter) writeTimeoutLocked() {
	tw.timedOut = true
	logging.L(tw.ctx).Warn("request timeout", zap.Duration("timeout", tw.timeout))

	h := tw.ResponseWriter.Header()
	h.Del("Content-Length")
	h.Set("Content-Type", "application/json")
	tw.ResponseWriter.WriteHeader(http.StatusGatewayTimeout)
	_, _ = tw.ResponseWriter.Write([]byte(gatewayTimeoutBody))
}
