package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Primary roles assignable to a user. Custom roles are modelled through the
// roles table; PrimaryRole is the coarse classification carried in the token.
const (
	PrimaryRoleAdmin      = "admin"
	PrimaryRoleSupervisor = "supervisor"
	PrimaryRoleUser       = "user"
	PrimaryRoleOperator   = "operator"
	PrimaryRoleManager    = "manager"
	PrimaryRoleCustom     = "custom"
)

// User represents a human principal that can log in to the backend.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID           int64      `bun:"id,pk,autoincrement"`
	Name         string     `bun:"name,notnull"`
	EmpCode      *string    `bun:"emp_code,unique"`
	Email        *string    `bun:"email,unique"`
	Phone        *string    `bun:"phone"`
	PrimaryRole  string     `bun:"primary_role,notnull,default:'user'"`
	Department   *string    `bun:"department"`
	PasswordHash *string    `bun:"password_hash"` // bcrypt hash
	CreatedAt    time.Time  `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt    time.Time  `bun:"updated_at,notnull,default:current_timestamp"`
	LastLoginAt  *time.Time `bun:"last_login_at"`
}

// IsAdmin reports whether the user bypasses permission and scope checks.
func (u *User) IsAdmin() bool {
	return u != nil && u.PrimaryRole == PrimaryRoleAdmin
}
