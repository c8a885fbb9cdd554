package auth

import (
	"net/http"
	"strings"

	"tutorbook/pkg/config"
	apperrors "tutorbook/pkg/errors"
	httputil "tutorbook/pkg/http"
	"tutorbook/pkg/logger"

	"github.com/julienschmidt/httprouter"
)

// Authenticate rejects requests without a valid bearer token and stores the claims in
// the request context.
func Authenticate(a *Authenticator, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				writeError(w, log, "Authenticate", apperrors.Unauthorized("Authentication required"))
				return
			}

			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				writeError(w, log, "Authenticate", apperrors.Unauthorized("Invalid authorization header"))
				return
			}

			claims, err := a.Parse(strings.TrimSpace(parts[1]))
			if err != nil {
				log.Debug("Rejected bearer token", "path", r.URL.Path, "error", err)
				writeError(w, log, "Authenticate", err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// RequireRoles guards a single route. Roles compare case-insensitively since claims
// are normalised on parse.
func RequireRoles(log *logger.Logger, handle httprouter.Handle, roles ...config.Role) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		actor, err := ActorFrom(r.Context())
		if err != nil {
			writeError(w, log, "RequireRoles", err)
			return
		}
		if !actor.Is(roles...) {
			writeError(w, log, "RequireRoles", apperrors.Forbidden("Access denied"))
			return
		}
		handle(w, r, ps)
	}
}

func writeError(w http.ResponseWriter, log *logger.Logger, middleware string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		log.Error("failed to write error response", "middleware", middleware, "operation", "WriteError", "error", writeErr)
	}
}
