package auth

import (
	"context"

	"github.com/apricityDigital/attendease-backend/internal/db/models"
	"github.com/apricityDigital/attendease-backend/internal/services/authz"
)

// Principal is the authenticated caller attached to the request context.
type Principal struct {
	UserID int64
	Role   string
	User   *models.User
}

// IsAdmin reports whether the principal bypasses permission and scope checks.
func (p Principal) IsAdmin() bool {
	return p.Role == models.PrimaryRoleAdmin
}

type principalContextKey struct{}

type cityScopeContextKey struct{}

type permissionScopesContextKey struct{}

// SetPrincipal stores the authenticated principal on the context.
func SetPrincipal(ctx context.Context, principal Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, principal)
}

// GetPrincipal returns the authenticated principal from the context.
func GetPrincipal(ctx context.Context) (Principal, bool) {
	principal, ok := ctx.Value(principalContextKey{}).(Principal)
	return principal, ok
}

// SetCityScope stores the caller's resolved city scope on the context.
func SetCityScope(ctx context.Context, scope authz.CityScope) context.Context {
	return context.WithValue(ctx, cityScopeContextKey{}, scope)
}

// GetCityScope returns the caller's resolved city scope from the context.
func GetCityScope(ctx context.Context) (authz.CityScope, bool) {
	scope, ok := ctx.Value(cityScopeContextKey{}).(authz.CityScope)
	return scope, ok
}

// SetPermissionScope records the city scope of a checked permission under
// its "module:action" key. Handlers use these to additionally narrow query
// results. The bag is copied on write so sibling requests never share state.
func SetPermissionScope(ctx context.Context, permKey string, scope authz.CityScope) context.Context {
	existing, _ := ctx.Value(permissionScopesContextKey{}).(map[string]authz.CityScope)
	scopes := make(map[string]authz.CityScope, len(existing)+1)
	for k, v := range existing {
		scopes[k] = v
	}
	scopes[permKey] = scope
	return context.WithValue(ctx, permissionScopesContextKey{}, scopes)
}

// GetPermissionScope returns the city scope recorded for a checked permission.
func GetPermissionScope(ctx context.Context, permKey string) (authz.CityScope, bool) {
	scopes, ok := ctx.Value(permissionScopesContextKey{}).(map[string]authz.CityScope)
	if !ok {
		return authz.CityScope{}, false
	}
	scope, ok := scopes[permKey]
	return scope, ok
}
