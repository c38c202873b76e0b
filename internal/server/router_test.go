package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apricityDigital/attendease-backend/internal/auth"
	"github.com/apricityDigital/attendease-backend/internal/config"
	"github.com/apricityDigital/attendease-backend/internal/db/models"
	appmiddleware "github.com/apricityDigital/attendease-backend/internal/middleware"
	"github.com/apricityDigital/attendease-backend/internal/repository"
	"github.com/apricityDigital/attendease-backend/internal/services/attendance"
	"github.com/apricityDigital/attendease-backend/internal/services/authz"
)

type routeUserRepo struct {
	repository.UserRepository

	users map[int64]*models.User
}

func (s *routeUserRepo) GetByID(_ context.Context, id int64) (*models.User, error) {
	user, ok := s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	clone := *user
	return &clone, nil
}

type routeRBACRepo struct {
	repository.RBACRepository

	grants     map[int64][]repository.PermissionGrant
	cityAccess map[int64][]int64
}

func (s *routeRBACRepo) ListPermissionGrants(_ context.Context, userID int64) ([]repository.PermissionGrant, error) {
	return s.grants[userID], nil
}

func (s *routeRBACRepo) ListUserCityAccess(_ context.Context, userID int64) ([]int64, error) {
	return s.cityAccess[userID], nil
}

func (s *routeRBACRepo) ListUserZoneAccess(_ context.Context, userID int64) ([]int64, error) {
	return nil, nil
}

type routeLocationRepo struct {
	repository.LocationRepository

	cities []models.City
}

func (s *routeLocationRepo) ListCities(_ context.Context, cityIDs []int64) ([]models.City, error) {
	if cityIDs == nil {
		return s.cities, nil
	}
	out := []models.City{}
	for _, city := range s.cities {
		for _, id := range cityIDs {
			if city.ID == id {
				out = append(out, city)
			}
		}
	}
	return out, nil
}

type routeAttendanceRepo struct{ repository.AttendanceRepository }

type routeEmployeeRepo struct{ repository.EmployeeRepository }

func newTestRouter(t *testing.T, rbac *routeRBACRepo) (http.Handler, *auth.TokenIssuer) {
	t.Helper()

	users := &routeUserRepo{users: map[int64]*models.User{
		2: {ID: 2, PrimaryRole: models.PrimaryRoleUser},
		3: {ID: 3, PrimaryRole: models.PrimaryRoleUser},
	}}
	resolver, err := authz.NewResolver(rbac)
	require.NoError(t, err)

	tokens := auth.NewTokenIssuer("router-test-secret")
	deps := appmiddleware.Dependencies{
		Tokens:   tokens,
		Users:    users,
		Resolver: resolver,
		Scopes:   authz.NewScopeResolver(resolver, rbac),
	}

	clock, err := attendance.NewClock("Asia/Kolkata", 4)
	require.NoError(t, err)
	att := attendance.NewService(&routeAttendanceRepo{}, &routeEmployeeRepo{}, users, clock)

	router := NewRouter(RouterOptions{
		Cfg:        &config.Config{},
		AuthDeps:   deps,
		Users:      users,
		Locations:  &routeLocationRepo{cities: []models.City{{ID: 4, Name: "Indore"}}},
		Attendance: att,
	})
	return router, tokens
}

func TestRouterScopeGate(t *testing.T) {
	city := int64(4)
	rbac := &routeRBACRepo{
		grants: map[int64][]repository.PermissionGrant{
			2: {
				{Module: "city", Action: "view", CityID: &city},
				{Module: "zone", Action: "view", CityID: &city},
				{Module: "ward", Action: "view", CityID: &city},
				{Module: "attendance", Action: "view", CityID: &city},
			},
		},
		cityAccess: map[int64][]int64{2: {4}},
	}
	router, tokens := newTestRouter(t, rbac)

	get := func(t *testing.T, path string, userID int64) *httptest.ResponseRecorder {
		t.Helper()
		token, err := tokens.Issue(userID, models.PrimaryRoleUser)
		require.NoError(t, err)

		rec := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, path, nil)
		r.Header.Set("Authorization", "Bearer "+token)
		router.ServeHTTP(rec, r)
		return rec
	}

	t.Run("empty scope is rejected on every scoped list", func(t *testing.T) {
		paths := []string{
			"/api/cities",
			"/api/zones",
			"/api/wards",
			"/api/attendance/short-report",
		}
		for _, path := range paths {
			rec := get(t, path, 3)
			assert.Equal(t, http.StatusForbidden, rec.Code, path)
			assert.Contains(t, rec.Body.String(), "no city access assigned", path)
		}
	})

	t.Run("scoped caller lists granted cities", func(t *testing.T) {
		rec := get(t, "/api/cities", 2)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Indore")
		assert.Contains(t, rec.Body.String(), `"count":1`)
	})
}
