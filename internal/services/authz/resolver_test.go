package authz

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apricityDigital/attendease-backend/internal/db/models"
	"github.com/apricityDigital/attendease-backend/internal/repository"
)

// mockGrantSource implements the subset of RBACRepository the resolver and
// scope resolver touch; the rest panics to catch accidental use.
type mockGrantSource struct {
	repository.RBACRepository

	mu         sync.Mutex
	grants     map[int64][]repository.PermissionGrant
	cityAccess map[int64][]int64
	zoneAccess map[int64][]int64
	calls      int
	err        error
}

func newMockGrantSource() *mockGrantSource {
	return &mockGrantSource{
		grants:     make(map[int64][]repository.PermissionGrant),
		cityAccess: make(map[int64][]int64),
		zoneAccess: make(map[int64][]int64),
	}
}

func (m *mockGrantSource) ListPermissionGrants(_ context.Context, userID int64) ([]repository.PermissionGrant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.grants[userID], nil
}

func (m *mockGrantSource) ListUserCityAccess(_ context.Context, userID int64) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cityAccess[userID], nil
}

func (m *mockGrantSource) ListUserZoneAccess(_ context.Context, userID int64) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.zoneAccess[userID], nil
}

func (m *mockGrantSource) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func cityID(id int64) *int64 { return &id }

func TestResolve(t *testing.T) {
	ctx := context.Background()

	t.Run("unions role and direct grants", func(t *testing.T) {
		source := newMockGrantSource()
		source.grants[1] = []repository.PermissionGrant{
			{Module: "attendance", Action: "view", CityID: cityID(3)},
			{Module: "attendance", Action: "view", CityID: cityID(5)},
			{Module: "employee", Action: "view", CityID: cityID(3)},
		}
		resolver, err := NewResolver(source)
		require.NoError(t, err)

		grants, err := resolver.Resolve(ctx, 1)
		require.NoError(t, err)
		assert.True(t, grants.Has("attendance", "view"))
		assert.False(t, grants.Has("attendance", "manage"))

		scope, ok := grants.ScopeFor("attendance", "view")
		require.True(t, ok)
		assert.False(t, scope.All)
		assert.ElementsMatch(t, []int64{3, 5}, scope.Cities)
	})

	t.Run("single unqualified grant collapses scope to all", func(t *testing.T) {
		source := newMockGrantSource()
		source.grants[1] = []repository.PermissionGrant{
			{Module: "attendance", Action: "view", CityID: cityID(3)},
			{Module: "attendance", Action: "view", CityID: nil},
			{Module: "attendance", Action: "view", CityID: cityID(5)},
		}
		resolver, err := NewResolver(source)
		require.NoError(t, err)

		grants, err := resolver.Resolve(ctx, 1)
		require.NoError(t, err)

		scope, ok := grants.ScopeFor("attendance", "view")
		require.True(t, ok)
		assert.True(t, scope.All)
	})

	t.Run("duplicate city ids deduplicated", func(t *testing.T) {
		source := newMockGrantSource()
		source.grants[1] = []repository.PermissionGrant{
			{Module: "ward", Action: "view", CityID: cityID(3)},
			{Module: "ward", Action: "view", CityID: cityID(3)},
		}
		resolver, err := NewResolver(source)
		require.NoError(t, err)

		grants, err := resolver.Resolve(ctx, 1)
		require.NoError(t, err)

		scope, _ := grants.ScopeFor("ward", "view")
		assert.Equal(t, []int64{3}, scope.Cities)
	})

	t.Run("memoises under current version", func(t *testing.T) {
		source := newMockGrantSource()
		source.grants[1] = []repository.PermissionGrant{
			{Module: "city", Action: "view", CityID: nil},
		}
		resolver, err := NewResolver(source)
		require.NoError(t, err)

		_, err = resolver.Resolve(ctx, 1)
		require.NoError(t, err)
		_, err = resolver.Resolve(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, 1, source.callCount())
	})

	t.Run("invalidate forces recomputation", func(t *testing.T) {
		source := newMockGrantSource()
		source.grants[1] = []repository.PermissionGrant{
			{Module: "city", Action: "view", CityID: cityID(3)},
		}
		resolver, err := NewResolver(source)
		require.NoError(t, err)

		before := resolver.Version()
		_, err = resolver.Resolve(ctx, 1)
		require.NoError(t, err)

		source.mu.Lock()
		source.grants[1] = append(source.grants[1], repository.PermissionGrant{Module: "city", Action: "view", CityID: cityID(9)})
		source.mu.Unlock()

		resolver.Invalidate()
		assert.Greater(t, resolver.Version(), before)

		grants, err := resolver.Resolve(ctx, 1)
		require.NoError(t, err)
		scope, _ := grants.ScopeFor("city", "view")
		assert.ElementsMatch(t, []int64{3, 9}, scope.Cities)
		assert.Equal(t, 2, source.callCount())
	})

	t.Run("errors are not cached", func(t *testing.T) {
		source := newMockGrantSource()
		source.err = errors.New("db down")
		resolver, err := NewResolver(source)
		require.NoError(t, err)

		_, err = resolver.Resolve(ctx, 1)
		require.Error(t, err)

		source.mu.Lock()
		source.err = nil
		source.grants[1] = []repository.PermissionGrant{{Module: "city", Action: "view"}}
		source.mu.Unlock()

		grants, err := resolver.Resolve(ctx, 1)
		require.NoError(t, err)
		assert.True(t, grants.Has("city", "view"))
	})
}

func TestCityScopeFor(t *testing.T) {
	ctx := context.Background()

	t.Run("admin sees everything", func(t *testing.T) {
		source := newMockGrantSource()
		resolver, err := NewResolver(source)
		require.NoError(t, err)
		scopes := NewScopeResolver(resolver, source)

		scope, err := scopes.CityScopeFor(ctx, &models.User{ID: 1, PrimaryRole: models.PrimaryRoleAdmin})
		require.NoError(t, err)
		assert.True(t, scope.All)
	})

	t.Run("unqualified city view grants everything", func(t *testing.T) {
		source := newMockGrantSource()
		source.grants[2] = []repository.PermissionGrant{
			{Module: "city", Action: "view", CityID: nil},
		}
		resolver, err := NewResolver(source)
		require.NoError(t, err)
		scopes := NewScopeResolver(resolver, source)

		scope, err := scopes.CityScopeFor(ctx, &models.User{ID: 2, PrimaryRole: models.PrimaryRoleUser})
		require.NoError(t, err)
		assert.True(t, scope.All)
	})

	t.Run("union of access rows and qualified view grants", func(t *testing.T) {
		source := newMockGrantSource()
		source.grants[2] = []repository.PermissionGrant{
			{Module: "city", Action: "view", CityID: cityID(4)},
		}
		source.cityAccess[2] = []int64{4, 8}
		resolver, err := NewResolver(source)
		require.NoError(t, err)
		scopes := NewScopeResolver(resolver, source)

		scope, err := scopes.CityScopeFor(ctx, &models.User{ID: 2, PrimaryRole: models.PrimaryRoleUser})
		require.NoError(t, err)
		assert.False(t, scope.All)
		assert.ElementsMatch(t, []int64{4, 8}, scope.Cities)
	})

	t.Run("no grants yields empty scope", func(t *testing.T) {
		source := newMockGrantSource()
		resolver, err := NewResolver(source)
		require.NoError(t, err)
		scopes := NewScopeResolver(resolver, source)

		scope, err := scopes.CityScopeFor(ctx, &models.User{ID: 3, PrimaryRole: models.PrimaryRoleUser})
		require.NoError(t, err)
		assert.True(t, scope.Empty())
	})
}
