package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/apricityDigital/attendease-backend/internal/db/models"
)

func init() {
	Migrations.MustRegister(up_20240315000000, down_20240315000000)
}

// up_20240315000000 creates the identity, location, employee, and attendance tables
func up_20240315000000(ctx context.Context, db *bun.DB) error {
	// Table creation order respects FK dependencies.
	tables := []any{
		(*models.User)(nil),
		(*models.Role)(nil),
		(*models.Permission)(nil),
		(*models.RolePermission)(nil),
		(*models.UserRole)(nil),
		(*models.City)(nil),
		(*models.Zone)(nil),
		(*models.Ward)(nil),
		(*models.Department)(nil),
		(*models.Designation)(nil),
		(*models.UserPermission)(nil),
		(*models.UserCityAccess)(nil),
		(*models.UserZoneAccess)(nil),
		(*models.SupervisorWard)(nil),
		(*models.Employee)(nil),
		(*models.Attendance)(nil),
	}

	for _, model := range tables {
		fmt.Printf(" [up] creating table for %T...", model)
		_, err := db.NewCreateTable().
			Model(model).
			IfNotExists().
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to create table for %T: %w", model, err)
		}
		fmt.Println(" OK")
	}

	indexes := []string{
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_permissions_module_action ON permissions(module, action)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_role_permissions_unique ON role_permissions(role_id, permission_id)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_user_roles_unique ON user_roles(user_id, role_id)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_user_city_access_unique ON user_city_access(user_id, city_id)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_user_zone_access_unique ON user_zone_access(user_id, zone_id)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_attendance_emp_date ON attendance(emp_id, date)`,
		`CREATE INDEX IF NOT EXISTS idx_attendance_date ON attendance(date)`,
		`CREATE INDEX IF NOT EXISTS idx_attendance_ward_id ON attendance(ward_id)`,
		`CREATE INDEX IF NOT EXISTS idx_employees_ward_id ON employees(ward_id)`,
		`CREATE INDEX IF NOT EXISTS idx_zones_city_id ON zones(city_id)`,
		`CREATE INDEX IF NOT EXISTS idx_wards_zone_id ON wards(zone_id)`,
		`CREATE INDEX IF NOT EXISTS idx_supervisor_wards_supervisor ON supervisor_wards(supervisor_id)`,
		`CREATE INDEX IF NOT EXISTS idx_user_permissions_user_id ON user_permissions(user_id)`,
	}

	for _, stmt := range indexes {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	// FK constraints with the cascade rules the authorization model relies on:
	// dropping a role cascades to role_permissions and user_roles, dropping a
	// user cascades to all of their grants.
	if IsPostgreSQL(db) {
		constraints := []string{
			`ALTER TABLE role_permissions ADD CONSTRAINT fk_role_permissions_role FOREIGN KEY (role_id) REFERENCES roles(id) ON DELETE CASCADE`,
			`ALTER TABLE role_permissions ADD CONSTRAINT fk_role_permissions_permission FOREIGN KEY (permission_id) REFERENCES permissions(id) ON DELETE CASCADE`,
			`ALTER TABLE user_roles ADD CONSTRAINT fk_user_roles_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE`,
			`ALTER TABLE user_roles ADD CONSTRAINT fk_user_roles_role FOREIGN KEY (role_id) REFERENCES roles(id) ON DELETE CASCADE`,
			`ALTER TABLE user_permissions ADD CONSTRAINT fk_user_permissions_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE`,
			`ALTER TABLE user_permissions ADD CONSTRAINT fk_user_permissions_permission FOREIGN KEY (permission_id) REFERENCES permissions(id) ON DELETE CASCADE`,
			`ALTER TABLE user_city_access ADD CONSTRAINT fk_user_city_access_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE`,
			`ALTER TABLE user_city_access ADD CONSTRAINT fk_user_city_access_city FOREIGN KEY (city_id) REFERENCES cities(id) ON DELETE CASCADE`,
			`ALTER TABLE user_zone_access ADD CONSTRAINT fk_user_zone_access_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE`,
			`ALTER TABLE user_zone_access ADD CONSTRAINT fk_user_zone_access_zone FOREIGN KEY (zone_id) REFERENCES zones(id) ON DELETE CASCADE`,
			`ALTER TABLE zones ADD CONSTRAINT fk_zones_city FOREIGN KEY (city_id) REFERENCES cities(id)`,
			`ALTER TABLE wards ADD CONSTRAINT fk_wards_zone FOREIGN KEY (zone_id) REFERENCES zones(id)`,
			`ALTER TABLE supervisor_wards ADD CONSTRAINT fk_supervisor_wards_user FOREIGN KEY (supervisor_id) REFERENCES users(id) ON DELETE CASCADE`,
			`ALTER TABLE supervisor_wards ADD CONSTRAINT fk_supervisor_wards_ward FOREIGN KEY (ward_id) REFERENCES wards(id)`,
			`ALTER TABLE employees ADD CONSTRAINT fk_employees_ward FOREIGN KEY (ward_id) REFERENCES wards(id)`,
			`ALTER TABLE attendance ADD CONSTRAINT fk_attendance_employee FOREIGN KEY (emp_id) REFERENCES employees(emp_id)`,
			`ALTER TABLE attendance ADD CONSTRAINT chk_attendance_punch_order CHECK (punch_out_time IS NULL OR punch_in_time IS NOT NULL)`,
		}

		for _, stmt := range constraints {
			if _, err := db.Exec(stmt); err != nil {
				return fmt.Errorf("failed to add constraint: %w", err)
			}
		}
	}

	return nil
}

// down_20240315000000 drops all tables in reverse dependency order
func down_20240315000000(ctx context.Context, db *bun.DB) error {
	tables := []string{
		"attendance",
		"employees",
		"supervisor_wards",
		"user_zone_access",
		"user_city_access",
		"user_permissions",
		"designations",
		"departments",
		"wards",
		"zones",
		"cities",
		"user_roles",
		"role_permissions",
		"permissions",
		"roles",
		"users",
	}

	for _, table := range tables {
		fmt.Printf(" [down] dropping %s table...", table)
		_, err := db.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s", table))
		if err != nil {
			return fmt.Errorf("failed to drop %s table: %w", table, err)
		}
		fmt.Println(" OK")
	}

	return nil
}
