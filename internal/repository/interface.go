package repository

import (
	"context"

	"github.com/apricityDigital/attendease-backend/internal/db/models"
)

// PermissionGrant is one effective-permission source row for a user. A nil
// CityID means the grant is not city-qualified (covers all cities).
type PermissionGrant struct {
	Module string `bun:"module"`
	Action string `bun:"action"`
	CityID *int64 `bun:"city_id"`
}

// UserRepository exposes persistence operations for users.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByEmpCode(ctx context.Context, empCode string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	UpdateLastLogin(ctx context.Context, id int64) error
	Exists(ctx context.Context, id int64) (bool, error)
	List(ctx context.Context) ([]models.User, error)
	Delete(ctx context.Context, id int64) error
}

// RBACRepository exposes persistence operations for the role/permission
// model and per-user access grants.
type RBACRepository interface {
	// Roles
	CreateRole(ctx context.Context, role *models.Role) error
	GetRoleByID(ctx context.Context, id int64) (*models.Role, error)
	GetRoleByName(ctx context.Context, name string) (*models.Role, error)
	UpdateRole(ctx context.Context, role *models.Role) error
	DeleteRole(ctx context.Context, id int64) error
	ListRoles(ctx context.Context) ([]models.Role, error)

	// Permissions
	CreatePermission(ctx context.Context, perm *models.Permission) error
	GetPermissionByID(ctx context.Context, id int64) (*models.Permission, error)
	GetPermissionByKey(ctx context.Context, module, action string) (*models.Permission, error)
	ListPermissions(ctx context.Context) ([]models.Permission, error)
	DeletePermission(ctx context.Context, id int64) error

	// Edges
	SetRolePermissions(ctx context.Context, roleID int64, permissionIDs []int64) error
	ListRolePermissions(ctx context.Context, roleID int64) ([]models.Permission, error)
	AssignUserRole(ctx context.Context, userRole *models.UserRole) error
	RemoveUserRole(ctx context.Context, userID, roleID int64) error
	ListUserRoles(ctx context.Context, userID int64) ([]models.Role, error)

	// Direct grants and access scopes. ReplaceUserAccess runs in one
	// transaction covering permissions, city access, and zone access.
	ReplaceUserAccess(ctx context.Context, userID int64, perms []models.UserPermission, cityIDs, zoneIDs []int64) error
	ListUserCityAccess(ctx context.Context, userID int64) ([]int64, error)
	ListUserZoneAccess(ctx context.Context, userID int64) ([]int64, error)

	// ListPermissionGrants returns the union of role-derived grants
	// (city_id null) and direct user grants (city_id as stored) that feed
	// the permission resolver.
	ListPermissionGrants(ctx context.Context, userID int64) ([]PermissionGrant, error)
}

// LocationRepository exposes read operations over the location hierarchy
// and master data.
type LocationRepository interface {
	ListCities(ctx context.Context, cityIDs []int64) ([]models.City, error)
	ListZones(ctx context.Context, cityIDs []int64) ([]models.Zone, error)
	ListWards(ctx context.Context, zoneIDs []int64) ([]models.Ward, error)
	ListDepartments(ctx context.Context) ([]models.Department, error)
	ListDesignations(ctx context.Context) ([]models.Designation, error)
	ListSupervisorWards(ctx context.Context, supervisorID int64) ([]models.SupervisorWard, error)
}

// EmployeeRepository exposes persistence operations for employees.
type EmployeeRepository interface {
	Create(ctx context.Context, employee *models.Employee) error
	GetByID(ctx context.Context, empID int64) (*models.Employee, error)
	GetByCode(ctx context.Context, empCode string) (*models.Employee, error)
	GetByFaceID(ctx context.Context, faceID string) (*models.Employee, error)
	Update(ctx context.Context, employee *models.Employee) error
	SetFaceEnrolment(ctx context.Context, empID int64, faceID, embeddingRef string, confidence float64) error
	ClearFaceEnrolment(ctx context.Context, empID int64) error
	List(ctx context.Context, wardIDs []int64) ([]models.Employee, error)
}

// AttendanceRepository exposes persistence operations for attendance rows.
type AttendanceRepository interface {
	// CreateIfAbsent inserts the row unless one already exists for the
	// (emp_id, date) key, and reports whether a new row was created. The
	// returned row is always the current database row.
	CreateIfAbsent(ctx context.Context, att *models.Attendance) (*models.Attendance, bool, error)
	GetByID(ctx context.Context, attendanceID int64) (*models.Attendance, error)
	GetByEmpAndDate(ctx context.Context, empID int64, date string) (*models.Attendance, error)
	// FindOpenInRange returns the most recent row for the employee with
	// date in [fromDate, toDate], punch_in_time set, and punch_out_time
	// null. Used for night-shift carry-forward.
	FindOpenInRange(ctx context.Context, empID int64, fromDate, toDate string) (*models.Attendance, error)
	// SavePunchIn persists the punch-in fields. The write is guarded on
	// punch_in_time still being null so concurrent punch-ins serialise in
	// the database; a lost race reports ErrStateConflict.
	SavePunchIn(ctx context.Context, att *models.Attendance) error
	// SavePunchOut persists the punch-out fields on a row that is punched
	// in and not yet punched out, with the same guard semantics.
	SavePunchOut(ctx context.Context, att *models.Attendance) error
}
