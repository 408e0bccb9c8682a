package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestStatusRecorderKeepsFirstStatus(t *testing.T) {
	rr := httptest.NewRecorder()
	rec := &statusRecorder{ResponseWriter: rr, statusCode: http.StatusOK}

	rec.WriteHeader(http.StatusBadRequest)
	rec.WriteHeader(http.StatusInternalServerError)

	if rec.statusCode != http.StatusBadRequest {
		t.Fatalf("expected first status to stick, got %d", rec.statusCode)
	}
	if rec.Unwrap() != rr {
		t.Fatalf("Unwrap should return the wrapped writer")
	}
}

func TestMiddlewarePreservesFlusher(t *testing.T) {
	Register()

	var flushErr error
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		flushErr = http.NewResponseController(w).Flush()
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/models", nil))

	if rr.Code != http.StatusTeapot {
		t.Fatalf("unexpected status %d", rr.Code)
	}
	if flushErr != nil {
		t.Fatalf("flush through middleware failed: %v", flushErr)
	}
	if !rr.Flushed {
		t.Fatalf("expected recorder to be flushed")
	}
}
