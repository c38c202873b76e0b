package authz

import (
	"context"
	"fmt"

	"github.com/apricityDigital/attendease-backend/internal/db/models"
	"github.com/apricityDigital/attendease-backend/internal/repository"
)

// CityScope is either everything (All) or a finite set of city IDs the
// holder may see. The zero value is an empty scope.
type CityScope struct {
	All    bool
	Cities []int64
}

// Contains reports whether the scope covers a city.
func (s CityScope) Contains(cityID int64) bool {
	if s.All {
		return true
	}
	for _, id := range s.Cities {
		if id == cityID {
			return true
		}
	}
	return false
}

// Empty reports whether the scope admits no cities at all.
func (s CityScope) Empty() bool {
	return !s.All && len(s.Cities) == 0
}

// ZoneScope mirrors CityScope at zone granularity.
type ZoneScope struct {
	All   bool
	Zones []int64
}

// ScopeResolver derives a user's city and zone scopes from permissions and
// access-grant tables.
type ScopeResolver struct {
	resolver *Resolver
	rbac     repository.RBACRepository
}

// NewScopeResolver creates a scope resolver on top of the permission resolver.
func NewScopeResolver(resolver *Resolver, rbac repository.RBACRepository) *ScopeResolver {
	return &ScopeResolver{resolver: resolver, rbac: rbac}
}

// CityScopeFor computes the caller's city scope. Admins and holders of an
// unqualified city:view grant see everything; otherwise the scope is the
// union of explicit city access rows and city-qualified city:view grants.
func (s *ScopeResolver) CityScopeFor(ctx context.Context, user *models.User) (CityScope, error) {
	if user.IsAdmin() {
		return CityScope{All: true}, nil
	}

	grants, err := s.resolver.Resolve(ctx, user.ID)
	if err != nil {
		return CityScope{}, fmt.Errorf("resolve permissions: %w", err)
	}

	viewScope, hasView := grants.Perms[models.PermissionKey("city", "view")]
	if hasView && viewScope.All {
		return CityScope{All: true}, nil
	}

	cityIDs, err := s.rbac.ListUserCityAccess(ctx, user.ID)
	if err != nil {
		return CityScope{}, fmt.Errorf("list city access: %w", err)
	}

	set := make(map[int64]struct{}, len(cityIDs))
	for _, id := range cityIDs {
		set[id] = struct{}{}
	}
	if hasView {
		for _, id := range viewScope.Cities {
			set[id] = struct{}{}
		}
	}

	cities := make([]int64, 0, len(set))
	for id := range set {
		cities = append(cities, id)
	}
	return CityScope{Cities: cities}, nil
}

// ZoneScopeFor computes the caller's zone scope from explicit zone grants.
func (s *ScopeResolver) ZoneScopeFor(ctx context.Context, user *models.User) (ZoneScope, error) {
	if user.IsAdmin() {
		return ZoneScope{All: true}, nil
	}

	zoneIDs, err := s.rbac.ListUserZoneAccess(ctx, user.ID)
	if err != nil {
		return ZoneScope{}, fmt.Errorf("list zone access: %w", err)
	}
	return ZoneScope{Zones: zoneIDs}, nil
}
