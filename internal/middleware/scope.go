package middleware

import (
	"log"
	"net/http"

	"github.com/apricityDigital/attendease-backend/internal/auth"
)

// AttachCityScope resolves the caller's city scope and stores it on the
// request context. Admins short-circuit to an all-cities scope inside the
// resolver. Must run after Authenticate.
func AttachCityScope(deps Dependencies) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := auth.GetPrincipal(r.Context())
			if !ok {
				http.Error(w, "no token", http.StatusUnauthorized)
				return
			}

			scope, err := deps.Scopes.CityScopeFor(r.Context(), principal.User)
			if err != nil {
				log.Printf("scope: resolve city scope for user %d: %v", principal.UserID, err)
				http.Error(w, "unable to resolve city scope", http.StatusInternalServerError)
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.SetCityScope(r.Context(), scope)))
		})
	}
}

// RequireCityScope rejects callers whose resolved city scope is empty.
// Endpoints behind this gate return 403, never an empty 200.
func RequireCityScope() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			scope, ok := auth.GetCityScope(r.Context())
			if !ok {
				http.Error(w, "unable to resolve city scope", http.StatusInternalServerError)
				return
			}

			if scope.Empty() {
				http.Error(w, "no city access assigned", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
