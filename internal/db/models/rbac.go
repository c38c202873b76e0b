package models

import (
	"strings"
	"time"

	"github.com/uptrace/bun"
)

// Role defines a named bundle of permissions. System roles are seeded at
// bootstrap and cannot be edited or deleted.
type Role struct {
	bun.BaseModel `bun:"table:roles,alias:r"`

	ID          int64     `bun:"id,pk,autoincrement"`
	Name        string    `bun:"name,notnull,unique"`
	Description string    `bun:"description"`
	IsSystem    bool      `bun:"is_system,notnull,default:false"`
	CreatedAt   time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt   time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// NormalizeRoleName lower-cases and trims a role name for the unique index.
func NormalizeRoleName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Permission identifies an allowed (module, action) pair, unique lower-case.
type Permission struct {
	bun.BaseModel `bun:"table:permissions,alias:p"`

	ID          int64     `bun:"id,pk,autoincrement"`
	Module      string    `bun:"module,notnull"`
	Action      string    `bun:"action,notnull"`
	Label       string    `bun:"label"`
	Description string    `bun:"description"`
	CreatedAt   time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// Key returns the canonical "module:action" form used throughout the
// authorization layer.
func (p *Permission) Key() string {
	return PermissionKey(p.Module, p.Action)
}

// PermissionKey builds the canonical lower-case "module:action" key.
func PermissionKey(module, action string) string {
	return strings.ToLower(strings.TrimSpace(module)) + ":" + strings.ToLower(strings.TrimSpace(action))
}

// RolePermission links a role to a permission.
type RolePermission struct {
	bun.BaseModel `bun:"table:role_permissions,alias:rp"`

	ID           int64 `bun:"id,pk,autoincrement"`
	RoleID       int64 `bun:"role_id,notnull"`       // FK to roles(id)
	PermissionID int64 `bun:"permission_id,notnull"` // FK to permissions(id)
}

// UserRole links a user to a role, audited with who assigned it and when.
type UserRole struct {
	bun.BaseModel `bun:"table:user_roles,alias:ur"`

	ID         int64     `bun:"id,pk,autoincrement"`
	UserID     int64     `bun:"user_id,notnull"` // FK to users(id)
	RoleID     int64     `bun:"role_id,notnull"` // FK to roles(id)
	AssignedAt time.Time `bun:"assigned_at,notnull,default:current_timestamp"`
	AssignedBy *int64    `bun:"assigned_by"` // FK to users(id)
}

// UserPermission grants a permission directly to a user, optionally
// qualified by a city. A null CityID means the grant covers all cities.
type UserPermission struct {
	bun.BaseModel `bun:"table:user_permissions,alias:up"`

	ID           int64  `bun:"id,pk,autoincrement"`
	UserID       int64  `bun:"user_id,notnull"`       // FK to users(id)
	PermissionID int64  `bun:"permission_id,notnull"` // FK to permissions(id)
	CityID       *int64 `bun:"city_id"`               // FK to cities(id), null = all cities
}

// UserCityAccess grants a user view scope over one city's data.
type UserCityAccess struct {
	bun.BaseModel `bun:"table:user_city_access,alias:uca"`

	ID     int64 `bun:"id,pk,autoincrement"`
	UserID int64 `bun:"user_id,notnull"` // FK to users(id)
	CityID int64 `bun:"city_id,notnull"` // FK to cities(id)
}

// UserZoneAccess grants a user view scope over one zone's data.
type UserZoneAccess struct {
	bun.BaseModel `bun:"table:user_zone_access,alias:uza"`

	ID     int64 `bun:"id,pk,autoincrement"`
	UserID int64 `bun:"user_id,notnull"` // FK to users(id)
	ZoneID int64 `bun:"zone_id,notnull"` // FK to zones(id)
}
