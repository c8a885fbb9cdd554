package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	apperrors "tutorbook/pkg/errors"
	httputil "tutorbook/pkg/http"
	"tutorbook/pkg/logger"
)

// Recovery turns a handler panic into a 500 with the standard error body. Aborted
// handlers keep panicking so net/http can drop the connection.
func Recovery(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				p := recover()
				if p == nil {
					return
				}
				if p == http.ErrAbortHandler {
					panic(p)
				}

				log.Error("Panic recovered",
					"request_id", RequestID(r.Context()),
					"panic", p,
					"method", r.Method,
					"path", r.URL.Path,
					"stack", string(debug.Stack()),
				)
				err := apperrors.Internal("Internal server error", fmt.Errorf("panic: %v", p))
				if writeErr := httputil.WriteError(w, err); writeErr != nil {
					log.Error("failed to write panic response", "error", writeErr)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
