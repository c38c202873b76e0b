package authz

import (
	"context"
	"fmt"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/apricityDigital/attendease-backend/internal/db/models"
	"github.com/apricityDigital/attendease-backend/internal/repository"
)

// cacheSize bounds the number of memoised (user, version) entries. Entries
// under stale versions become unreachable and are evicted by growth pressure.
const cacheSize = 2048

// Grants is the resolved effective-permission set of one user. For each
// "module:action" key the CityScope says which cities the permission
// applies in.
type Grants struct {
	Perms map[string]CityScope
}

// Has reports whether the grant set contains a permission.
func (g *Grants) Has(module, action string) bool {
	if g == nil {
		return false
	}
	_, ok := g.Perms[models.PermissionKey(module, action)]
	return ok
}

// ScopeFor returns the city scope attached to a permission.
func (g *Grants) ScopeFor(module, action string) (CityScope, bool) {
	if g == nil {
		return CityScope{}, false
	}
	scope, ok := g.Perms[models.PermissionKey(module, action)]
	return scope, ok
}

// Resolver computes a user's effective permissions from role grants and
// direct user grants, memoised under a monotonic version counter.
//
// Invalidation is process-local: every RBAC write bumps the version, making
// entries cached under older versions unreachable. In a multi-replica
// deployment each replica observes its own counter; a replica that did not
// perform the write serves stale grants until its entry ages out, which is
// an accepted operational trade-off.
type Resolver struct {
	rbac    repository.RBACRepository
	version atomic.Uint64
	cache   *lru.Cache[string, *Grants]
}

// NewResolver creates a permission resolver with an empty cache.
func NewResolver(rbac repository.RBACRepository) (*Resolver, error) {
	cache, err := lru.New[string, *Grants](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create permission cache: %w", err)
	}
	return &Resolver{rbac: rbac, cache: cache}, nil
}

// Version returns the current invalidation counter.
func (r *Resolver) Version() uint64 {
	return r.version.Load()
}

// Invalidate bumps the version counter. Called after any write to roles,
// permissions, role_permissions, user_roles, or user_permissions.
func (r *Resolver) Invalidate() {
	r.version.Add(1)
}

// Resolve returns the user's effective grants, from cache when the entry
// was computed under the current version. Database errors propagate and are
// never cached.
func (r *Resolver) Resolve(ctx context.Context, userID int64) (*Grants, error) {
	key := fmt.Sprintf("%d@%d", userID, r.version.Load())
	if grants, ok := r.cache.Get(key); ok {
		return grants, nil
	}

	rows, err := r.rbac.ListPermissionGrants(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list permission grants for user %d: %w", userID, err)
	}

	grants := &Grants{Perms: make(map[string]CityScope, len(rows))}
	for _, row := range rows {
		permKey := models.PermissionKey(row.Module, row.Action)
		scope := grants.Perms[permKey]

		// A single unqualified grant collapses the permission's scope
		// to all cities.
		if scope.All {
			continue
		}
		if row.CityID == nil {
			grants.Perms[permKey] = CityScope{All: true}
			continue
		}

		if !scope.Contains(*row.CityID) {
			scope.Cities = append(scope.Cities, *row.CityID)
		}
		grants.Perms[permKey] = scope
	}

	r.cache.Add(key, grants)
	return grants, nil
}
