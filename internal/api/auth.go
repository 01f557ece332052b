package api

import (
	"net/http"
	"strings"

	"github.com/crypticpy/COA-AI-Template/internal/auth"
)

// requireAuth guards a route group with bearer-token verification. The
// verified subject is attached to the request context. A nil verifier
// disables the check entirely; NewHandler warns when that happens.
func requireAuth(v auth.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if v == nil {
				next.ServeHTTP(w, r)
				return
			}

			authz := r.Header.Get("Authorization")
			const prefix = "Bearer "
			if !strings.HasPrefix(authz, prefix) {
				httpError(w, http.StatusUnauthorized, "authentication_error", "invalid or missing bearer token")
				return
			}
			subject, err := v.Verify(authz[len(prefix):])
			if err != nil {
				httpError(w, http.StatusUnauthorized, "authentication_error", "invalid or missing bearer token")
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithSubject(r.Context(), subject)))
		})
	}
}

func handleMe() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"authenticated": true,
			"subject":       auth.SubjectFrom(r.Context()),
			"message":       "You are authenticated!",
		})
	}
}
