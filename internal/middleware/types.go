package middleware

import (
	"github.com/apricityDigital/attendease-backend/internal/auth"
	"github.com/apricityDigital/attendease-backend/internal/repository"
	"github.com/apricityDigital/attendease-backend/internal/services/authz"
)

// Dependencies bundles collaborators required by the authorization
// middleware chain.
type Dependencies struct {
	Tokens   *auth.TokenIssuer
	Users    repository.UserRepository
	Resolver *authz.Resolver
	Scopes   *authz.ScopeResolver
}
