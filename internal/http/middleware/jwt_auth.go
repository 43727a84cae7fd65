package middleware

import (
	"net/http"
	"strings"

	"github.com/vendazap/platform/internal/auth"
	"github.com/vendazap/platform/pkg/logging"
)

// TokenVerifier validates a bearer token and returns its subject email.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// Authenticator rejects requests without a valid bearer token and attaches
// the resolved user to the request context.
func Authenticator(verifier TokenVerifier, users auth.Repository, logger *logging.Logger) func(http.Handler) http.Handler {
	if verifier == nil {
		panic("middleware: token verifier cannot be nil")
	}
	if users == nil {
		panic("middleware: user repository cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}
			email, err := verifier.Verify(token)
			if err != nil {
				logger.Warn("rejected invalid token", "error", err)
				http.Error(w, "invalid or expired token", http.StatusUnauthorized)
				return
			}
			user, err := users.GetByEmail(r.Context(), email)
			if err != nil {
				logger.Warn("token subject not found", "email", email, "error", err)
				http.Error(w, "invalid or expired token", http.StatusUnauthorized)
				return
			}
			if !user.IsActive {
				http.Error(w, "user is inactive", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithUser(r.Context(), user)))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
