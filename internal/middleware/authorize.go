package middleware

import (
	"log"
	"net/http"

	"github.com/apricityDigital/attendease-backend/internal/auth"
	"github.com/apricityDigital/attendease-backend/internal/db/models"
	"github.com/apricityDigital/attendease-backend/internal/services/authz"
)

// Authorize enforces that the caller holds the (module, action) permission.
// Admins short-circuit. On success the permission's own city scope is
// recorded on the context so handlers can narrow their queries further.
// Must run after Authenticate.
func Authorize(deps Dependencies, module, action string) func(http.Handler) http.Handler {
	permKey := models.PermissionKey(module, action)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := auth.GetPrincipal(r.Context())
			if !ok {
				http.Error(w, "no token", http.StatusUnauthorized)
				return
			}

			if principal.IsAdmin() {
				ctx := auth.SetPermissionScope(r.Context(), permKey, authz.CityScope{All: true})
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			grants, err := deps.Resolver.Resolve(r.Context(), principal.UserID)
			if err != nil {
				log.Printf("authz: resolve grants for user %d: %v", principal.UserID, err)
				http.Error(w, "authorization error", http.StatusInternalServerError)
				return
			}

			scope, ok := grants.ScopeFor(module, action)
			if !ok {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}

			ctx := auth.SetPermissionScope(r.Context(), permKey, scope)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
