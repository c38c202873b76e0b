package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/apricityDigital/attendease-backend/internal/db/models"
)

// ErrSystemRole is returned when a caller attempts to modify a seeded role.
var ErrSystemRole = errors.New("system roles cannot be modified")

// BunRBACRepository implements RBACRepository using Bun ORM
type BunRBACRepository struct {
	db *bun.DB
}

// NewBunRBACRepository creates a new Bun-based RBAC repository
func NewBunRBACRepository(db *bun.DB) *BunRBACRepository {
	return &BunRBACRepository{db: db}
}

// CreateRole inserts a new role with a case-normalised name
func (r *BunRBACRepository) CreateRole(ctx context.Context, role *models.Role) error {
	role.Name = models.NormalizeRoleName(role.Name)
	_, err := r.db.NewInsert().
		Model(role).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create role: %w", err)
	}
	return nil
}

// GetRoleByID retrieves a role by ID
func (r *BunRBACRepository) GetRoleByID(ctx context.Context, id int64) (*models.Role, error) {
	role := new(models.Role)
	err := r.db.NewSelect().
		Model(role).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("role %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get role by ID: %w", err)
	}
	return role, nil
}

// GetRoleByName retrieves a role by its case-normalised name
func (r *BunRBACRepository) GetRoleByName(ctx context.Context, name string) (*models.Role, error) {
	role := new(models.Role)
	err := r.db.NewSelect().
		Model(role).
		Where("name = ?", models.NormalizeRoleName(name)).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("role %s: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("get role by name: %w", err)
	}
	return role, nil
}

// UpdateRole updates a non-system role
func (r *BunRBACRepository) UpdateRole(ctx context.Context, role *models.Role) error {
	existing, err := r.GetRoleByID(ctx, role.ID)
	if err != nil {
		return err
	}
	if existing.IsSystem {
		return ErrSystemRole
	}

	role.Name = models.NormalizeRoleName(role.Name)
	role.UpdatedAt = time.Now()
	_, err = r.db.NewUpdate().
		Model(role).
		Column("name", "description", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update role: %w", err)
	}
	return nil
}

// DeleteRole removes a non-system role; role_permissions and user_roles
// cascade at the database level.
func (r *BunRBACRepository) DeleteRole(ctx context.Context, id int64) error {
	existing, err := r.GetRoleByID(ctx, id)
	if err != nil {
		return err
	}
	if existing.IsSystem {
		return ErrSystemRole
	}

	_, err = r.db.NewDelete().
		Model((*models.Role)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete role: %w", err)
	}
	return nil
}

// ListRoles retrieves all roles
func (r *BunRBACRepository) ListRoles(ctx context.Context) ([]models.Role, error) {
	var roles []models.Role
	err := r.db.NewSelect().
		Model(&roles).
		Order("name ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	return roles, nil
}

// CreatePermission inserts a new permission
func (r *BunRBACRepository) CreatePermission(ctx context.Context, perm *models.Permission) error {
	_, err := r.db.NewInsert().
		Model(perm).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create permission: %w", err)
	}
	return nil
}

// GetPermissionByID retrieves a permission by ID
func (r *BunRBACRepository) GetPermissionByID(ctx context.Context, id int64) (*models.Permission, error) {
	perm := new(models.Permission)
	err := r.db.NewSelect().
		Model(perm).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("permission %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get permission by ID: %w", err)
	}
	return perm, nil
}

// GetPermissionByKey retrieves a permission by its (module, action) pair
func (r *BunRBACRepository) GetPermissionByKey(ctx context.Context, module, action string) (*models.Permission, error) {
	perm := new(models.Permission)
	err := r.db.NewSelect().
		Model(perm).
		Where("lower(module) = lower(?) AND lower(action) = lower(?)", module, action).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("permission %s: %w", models.PermissionKey(module, action), ErrNotFound)
		}
		return nil, fmt.Errorf("get permission by key: %w", err)
	}
	return perm, nil
}

// ListPermissions retrieves all permissions
func (r *BunRBACRepository) ListPermissions(ctx context.Context) ([]models.Permission, error) {
	var perms []models.Permission
	err := r.db.NewSelect().
		Model(&perms).
		Order("module ASC", "action ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list permissions: %w", err)
	}
	return perms, nil
}

// DeletePermission removes a permission; edges cascade
func (r *BunRBACRepository) DeletePermission(ctx context.Context, id int64) error {
	_, err := r.db.NewDelete().
		Model((*models.Permission)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete permission: %w", err)
	}
	return nil
}

// SetRolePermissions replaces the permission set of a role in one transaction
func (r *BunRBACRepository) SetRolePermissions(ctx context.Context, roleID int64, permissionIDs []int64) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewDelete().
			Model((*models.RolePermission)(nil)).
			Where("role_id = ?", roleID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("clear role permissions: %w", err)
		}

		if len(permissionIDs) == 0 {
			return nil
		}

		edges := make([]models.RolePermission, 0, len(permissionIDs))
		for _, permID := range permissionIDs {
			edges = append(edges, models.RolePermission{RoleID: roleID, PermissionID: permID})
		}
		_, err = tx.NewInsert().
			Model(&edges).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("insert role permissions: %w", err)
		}
		return nil
	})
}

// ListRolePermissions retrieves the permissions attached to a role
func (r *BunRBACRepository) ListRolePermissions(ctx context.Context, roleID int64) ([]models.Permission, error) {
	var perms []models.Permission
	err := r.db.NewSelect().
		Model(&perms).
		Join("JOIN role_permissions AS rp ON rp.permission_id = p.id").
		Where("rp.role_id = ?", roleID).
		Order("p.module ASC", "p.action ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list role permissions: %w", err)
	}
	return perms, nil
}

// AssignUserRole links a user to a role
func (r *BunRBACRepository) AssignUserRole(ctx context.Context, userRole *models.UserRole) error {
	_, err := r.db.NewInsert().
		Model(userRole).
		On("CONFLICT (user_id, role_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("assign user role: %w", err)
	}
	return nil
}

// RemoveUserRole unlinks a user from a role
func (r *BunRBACRepository) RemoveUserRole(ctx context.Context, userID, roleID int64) error {
	_, err := r.db.NewDelete().
		Model((*models.UserRole)(nil)).
		Where("user_id = ? AND role_id = ?", userID, roleID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("remove user role: %w", err)
	}
	return nil
}

// ListUserRoles retrieves the roles assigned to a user
func (r *BunRBACRepository) ListUserRoles(ctx context.Context, userID int64) ([]models.Role, error) {
	var roles []models.Role
	err := r.db.NewSelect().
		Model(&roles).
		Join("JOIN user_roles AS ur ON ur.role_id = r.id").
		Where("ur.user_id = ?", userID).
		Order("r.name ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list user roles: %w", err)
	}
	return roles, nil
}

// ReplaceUserAccess replaces a user's direct permission grants and
// city/zone access in one transaction.
func (r *BunRBACRepository) ReplaceUserAccess(ctx context.Context, userID int64, perms []models.UserPermission, cityIDs, zoneIDs []int64) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, model := range []any{
			(*models.UserPermission)(nil),
			(*models.UserCityAccess)(nil),
			(*models.UserZoneAccess)(nil),
		} {
			if _, err := tx.NewDelete().
				Model(model).
				Where("user_id = ?", userID).
				Exec(ctx); err != nil {
				return fmt.Errorf("clear user access: %w", err)
			}
		}

		if len(perms) > 0 {
			for i := range perms {
				perms[i].UserID = userID
			}
			if _, err := tx.NewInsert().Model(&perms).Exec(ctx); err != nil {
				return fmt.Errorf("insert user permissions: %w", err)
			}
		}

		if len(cityIDs) > 0 {
			access := make([]models.UserCityAccess, 0, len(cityIDs))
			for _, cityID := range cityIDs {
				access = append(access, models.UserCityAccess{UserID: userID, CityID: cityID})
			}
			if _, err := tx.NewInsert().Model(&access).Exec(ctx); err != nil {
				return fmt.Errorf("insert user city access: %w", err)
			}
		}

		if len(zoneIDs) > 0 {
			access := make([]models.UserZoneAccess, 0, len(zoneIDs))
			for _, zoneID := range zoneIDs {
				access = append(access, models.UserZoneAccess{UserID: userID, ZoneID: zoneID})
			}
			if _, err := tx.NewInsert().Model(&access).Exec(ctx); err != nil {
				return fmt.Errorf("insert user zone access: %w", err)
			}
		}

		return nil
	})
}

// ListUserCityAccess retrieves the city IDs a user has explicit access to
func (r *BunRBACRepository) ListUserCityAccess(ctx context.Context, userID int64) ([]int64, error) {
	var cityIDs []int64
	err := r.db.NewSelect().
		Model((*models.UserCityAccess)(nil)).
		Column("city_id").
		Where("user_id = ?", userID).
		Scan(ctx, &cityIDs)
	if err != nil {
		return nil, fmt.Errorf("list user city access: %w", err)
	}
	return cityIDs, nil
}

// ListUserZoneAccess retrieves the zone IDs a user has explicit access to
func (r *BunRBACRepository) ListUserZoneAccess(ctx context.Context, userID int64) ([]int64, error) {
	var zoneIDs []int64
	err := r.db.NewSelect().
		Model((*models.UserZoneAccess)(nil)).
		Column("zone_id").
		Where("user_id = ?", userID).
		Scan(ctx, &zoneIDs)
	if err != nil {
		return nil, fmt.Errorf("list user zone access: %w", err)
	}
	return zoneIDs, nil
}

// ListPermissionGrants returns the union of role-derived and direct grants
// for a user. Role-derived rows carry a null city_id (all cities); direct
// rows carry the city qualifier as stored.
func (r *BunRBACRepository) ListPermissionGrants(ctx context.Context, userID int64) ([]PermissionGrant, error) {
	var grants []PermissionGrant
	err := r.db.NewSelect().
		ColumnExpr("p.module AS module").
		ColumnExpr("p.action AS action").
		ColumnExpr("NULL AS city_id").
		TableExpr("permissions AS p").
		Join("JOIN role_permissions AS rp ON rp.permission_id = p.id").
		Join("JOIN user_roles AS ur ON ur.role_id = rp.role_id").
		Where("ur.user_id = ?", userID).
		UnionAll(
			r.db.NewSelect().
				ColumnExpr("p.module AS module").
				ColumnExpr("p.action AS action").
				ColumnExpr("up.city_id AS city_id").
				TableExpr("permissions AS p").
				Join("JOIN user_permissions AS up ON up.permission_id = p.id").
				Where("up.user_id = ?", userID),
		).
		Scan(ctx, &grants)
	if err != nil {
		return nil, fmt.Errorf("list permission grants: %w", err)
	}
	return grants, nil
}
