package middleware

import (
	"errors"
	"log"
	"net/http"

	"github.com/apricityDigital/attendease-backend/internal/auth"
	"github.com/apricityDigital/attendease-backend/internal/repository"
)

// Authenticate extracts and verifies the bearer credential, loads the user,
// and attaches the principal to the request context.
//
// Credential sources, first non-empty wins: cookie, Authorization header,
// x-access-token header, token query parameter. A missing credential is
// 401; a present but invalid or expired one is 403.
func Authenticate(deps Dependencies) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, err := auth.ExtractToken(r)
			if err != nil {
				http.Error(w, "no token", http.StatusUnauthorized)
				return
			}

			claims, err := deps.Tokens.Verify(tokenString)
			if err != nil {
				http.Error(w, "invalid or expired token", http.StatusForbidden)
				return
			}

			user, err := deps.Users.GetByID(r.Context(), claims.UserID)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					http.Error(w, "invalid or expired token", http.StatusForbidden)
					return
				}
				log.Printf("authn: load user %d for %s %s: %v", claims.UserID, r.Method, r.URL.Path, err)
				http.Error(w, "authentication error", http.StatusInternalServerError)
				return
			}

			principal := auth.Principal{
				UserID: user.ID,
				Role:   claims.Role,
				User:   user,
			}

			next.ServeHTTP(w, r.WithContext(auth.SetPrincipal(r.Context(), principal)))
		})
	}
}
