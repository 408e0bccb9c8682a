package middleware

import (
	"net/http"
	"runtime/debug"

	"go.uber.org/zap"

	"wca-openai-proxy/pkg/logging"
)

const internalErrorBody = `{"error":{"message":"Internal server error","type":"api_error","code":500}}` + "\n"

// Recoverer logs a handler panic and answers 500 in the API error shape.
// http.ErrAbortHandler is re-raised so net/http can abort the connection.
func Recoverer() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				logging.L(r.Context()).Error("panic recovered",
					zap.Any("error", rec),
					zap.ByteString("stack", debug.Stack()),
				)

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(internalErrorBody))
			}()

			next.ServeHTTP(w, r)
		})
	}
}
