// Package rbac is the administrative service over roles, permissions, and
// per-user grants. Every write bumps the permission resolver's version so
// stale cached grants become unreachable.
package rbac

import (
	"context"
	"errors"
	"fmt"

	"github.com/apricityDigital/attendease-backend/internal/db/models"
	"github.com/apricityDigital/attendease-backend/internal/repository"
	"github.com/apricityDigital/attendease-backend/internal/services/authz"
)

// ErrSystemRole rejects edits to seeded system roles.
var ErrSystemRole = errors.New("system roles cannot be modified")

// Service mediates RBAC administration.
type Service struct {
	rbac     repository.RBACRepository
	users    repository.UserRepository
	resolver *authz.Resolver
}

// NewService creates the RBAC admin service.
func NewService(rbac repository.RBACRepository, users repository.UserRepository, resolver *authz.Resolver) *Service {
	return &Service{rbac: rbac, users: users, resolver: resolver}
}

// ListRoles returns every role.
func (s *Service) ListRoles(ctx context.Context) ([]models.Role, error) {
	return s.rbac.ListRoles(ctx)
}

// CreateRole creates a non-system role with a normalised unique name.
func (s *Service) CreateRole(ctx context.Context, name, description string) (*models.Role, error) {
	role := &models.Role{
		Name:        models.NormalizeRoleName(name),
		Description: description,
	}
	if role.Name == "" {
		return nil, fmt.Errorf("role name is required")
	}
	if err := s.rbac.CreateRole(ctx, role); err != nil {
		return nil, err
	}
	return role, nil
}

// UpdateRole renames or re-describes a non-system role.
func (s *Service) UpdateRole(ctx context.Context, id int64, name, description string) (*models.Role, error) {
	role, err := s.rbac.GetRoleByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if role.IsSystem {
		return nil, ErrSystemRole
	}

	if name != "" {
		role.Name = models.NormalizeRoleName(name)
	}
	role.Description = description
	if err := s.rbac.UpdateRole(ctx, role); err != nil {
		return nil, err
	}
	s.resolver.Invalidate()
	return role, nil
}

// DeleteRole removes a non-system role and its grants.
func (s *Service) DeleteRole(ctx context.Context, id int64) error {
	role, err := s.rbac.GetRoleByID(ctx, id)
	if err != nil {
		return err
	}
	if role.IsSystem {
		return ErrSystemRole
	}
	if err := s.rbac.DeleteRole(ctx, id); err != nil {
		return err
	}
	s.resolver.Invalidate()
	return nil
}

// ListPermissions returns the permission catalogue.
func (s *Service) ListPermissions(ctx context.Context) ([]models.Permission, error) {
	return s.rbac.ListPermissions(ctx)
}

// CreatePermission registers a new (module, action) pair.
func (s *Service) CreatePermission(ctx context.Context, module, action, label, description string) (*models.Permission, error) {
	if module == "" || action == "" {
		return nil, fmt.Errorf("module and action are required")
	}
	perm := &models.Permission{Module: module, Action: action, Label: label, Description: description}
	if err := s.rbac.CreatePermission(ctx, perm); err != nil {
		return nil, err
	}
	s.resolver.Invalidate()
	return perm, nil
}

// DeletePermission removes a permission and every grant referencing it.
func (s *Service) DeletePermission(ctx context.Context, id int64) error {
	if err := s.rbac.DeletePermission(ctx, id); err != nil {
		return err
	}
	s.resolver.Invalidate()
	return nil
}

// SetRolePermissions replaces a role's permission set.
func (s *Service) SetRolePermissions(ctx context.Context, roleID int64, permissionIDs []int64) error {
	role, err := s.rbac.GetRoleByID(ctx, roleID)
	if err != nil {
		return err
	}
	if role.IsSystem {
		return ErrSystemRole
	}
	if err := s.rbac.SetRolePermissions(ctx, roleID, permissionIDs); err != nil {
		return err
	}
	s.resolver.Invalidate()
	return nil
}

// ListRolePermissions returns the permissions attached to a role.
func (s *Service) ListRolePermissions(ctx context.Context, roleID int64) ([]models.Permission, error) {
	return s.rbac.ListRolePermissions(ctx, roleID)
}

// AssignRole attaches a role to a user, recording who assigned it.
func (s *Service) AssignRole(ctx context.Context, userID, roleID int64, assignedBy *int64) error {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return err
	}
	if _, err := s.rbac.GetRoleByID(ctx, roleID); err != nil {
		return err
	}
	if err := s.rbac.AssignUserRole(ctx, &models.UserRole{UserID: userID, RoleID: roleID, AssignedBy: assignedBy}); err != nil {
		return err
	}
	s.resolver.Invalidate()
	return nil
}

// RemoveRole detaches a role from a user.
func (s *Service) RemoveRole(ctx context.Context, userID, roleID int64) error {
	if err := s.rbac.RemoveUserRole(ctx, userID, roleID); err != nil {
		return err
	}
	s.resolver.Invalidate()
	return nil
}

// AccessUpdate is the replacement access profile applied to one user in a
// single transaction.
type AccessUpdate struct {
	// Permissions are direct grants; a nil CityID covers all cities.
	Permissions []models.UserPermission
	CityIDs     []int64
	ZoneIDs     []int64
}

// ReplaceUserAccess swaps out a user's direct permissions and city/zone
// access in one transaction, then invalidates cached grants.
func (s *Service) ReplaceUserAccess(ctx context.Context, userID int64, update AccessUpdate) error {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return err
	}
	if err := s.rbac.ReplaceUserAccess(ctx, userID, update.Permissions, update.CityIDs, update.ZoneIDs); err != nil {
		return err
	}
	s.resolver.Invalidate()
	return nil
}

// AccessProfile is the effective access picture for one user, as returned
// by /auth/me and the RBAC user listing.
type AccessProfile struct {
	Roles       []models.Role  `json:"roles"`
	Permissions map[string]any `json:"permissions"`
	CityIDs     []int64        `json:"city_ids"`
	ZoneIDs     []int64        `json:"zone_ids"`
}

// UserAccessProfile resolves a user's roles, effective permissions with
// their city scopes, and access grants.
func (s *Service) UserAccessProfile(ctx context.Context, userID int64) (*AccessProfile, error) {
	roles, err := s.rbac.ListUserRoles(ctx, userID)
	if err != nil {
		return nil, err
	}
	grants, err := s.resolver.Resolve(ctx, userID)
	if err != nil {
		return nil, err
	}
	cityIDs, err := s.rbac.ListUserCityAccess(ctx, userID)
	if err != nil {
		return nil, err
	}
	zoneIDs, err := s.rbac.ListUserZoneAccess(ctx, userID)
	if err != nil {
		return nil, err
	}

	perms := make(map[string]any, len(grants.Perms))
	for key, scope := range grants.Perms {
		if scope.All {
			perms[key] = "all"
		} else {
			perms[key] = scope.Cities
		}
	}

	if roles == nil {
		roles = []models.Role{}
	}
	if cityIDs == nil {
		cityIDs = []int64{}
	}
	if zoneIDs == nil {
		zoneIDs = []int64{}
	}
	return &AccessProfile{Roles: roles, Permissions: perms, CityIDs: cityIDs, ZoneIDs: zoneIDs}, nil
}
