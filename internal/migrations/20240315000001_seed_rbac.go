package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/apricityDigital/attendease-backend/internal/db/models"
)

func init() {
	Migrations.MustRegister(up_20240315000001, down_20240315000001)
}

// seedPermissions is the permission catalogue created at bootstrap.
// Holders of permissions:manage can amend it afterwards.
var seedPermissions = []models.Permission{
	{Module: "city", Action: "view", Label: "View Cities"},
	{Module: "city", Action: "manage", Label: "Manage Cities"},
	{Module: "zone", Action: "view", Label: "View Zones"},
	{Module: "zone", Action: "manage", Label: "Manage Zones"},
	{Module: "ward", Action: "view", Label: "View Wards"},
	{Module: "ward", Action: "manage", Label: "Manage Wards"},
	{Module: "employee", Action: "view", Label: "View Employees"},
	{Module: "employee", Action: "manage", Label: "Manage Employees"},
	{Module: "attendance", Action: "view", Label: "View Attendance"},
	{Module: "attendance", Action: "punch", Label: "Punch Attendance"},
	{Module: "attendance", Action: "report", Label: "Download Attendance Reports"},
	{Module: "face", Action: "enroll", Label: "Enrol Employee Faces"},
	{Module: "permissions", Action: "manage", Label: "Manage Roles and Permissions"},
	{Module: "users", Action: "manage", Label: "Manage Users"},
}

// seedRoles maps system role names to the permission keys they carry.
// The admin role bypasses checks entirely and carries no explicit rows.
var seedRoles = map[string][]string{
	"admin": nil,
	"supervisor": {
		"attendance:view", "attendance:punch", "attendance:report",
		"employee:view", "ward:view", "zone:view", "city:view",
	},
	"operator": {
		"attendance:view", "attendance:punch", "employee:view", "ward:view",
	},
	"manager": {
		"attendance:view", "attendance:report",
		"employee:view", "ward:view", "zone:view", "city:view",
	},
	"user": {
		"attendance:view",
	},
}

// up_20240315000001 seeds system roles and the permission catalogue in one
// transaction, idempotently.
func up_20240315000001(ctx context.Context, db *bun.DB) error {
	return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		fmt.Print(" [up] seeding permissions...")
		permIDs := make(map[string]int64, len(seedPermissions))
		for i := range seedPermissions {
			perm := seedPermissions[i]
			_, err := tx.NewInsert().
				Model(&perm).
				On("CONFLICT (module, action) DO NOTHING").
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("seed permission %s: %w", perm.Key(), err)
			}

			// Re-read: the insert does not populate the ID on conflict.
			existing := new(models.Permission)
			err = tx.NewSelect().
				Model(existing).
				Where("module = ? AND action = ?", perm.Module, perm.Action).
				Scan(ctx)
			if err != nil {
				return fmt.Errorf("read seeded permission %s: %w", perm.Key(), err)
			}
			permIDs[existing.Key()] = existing.ID
		}
		fmt.Println(" OK")

		fmt.Print(" [up] seeding system roles...")
		for name, permKeys := range seedRoles {
			role := &models.Role{Name: name, IsSystem: true}
			_, err := tx.NewInsert().
				Model(role).
				On("CONFLICT (name) DO NOTHING").
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("seed role %s: %w", name, err)
			}

			existing := new(models.Role)
			err = tx.NewSelect().
				Model(existing).
				Where("name = ?", name).
				Scan(ctx)
			if err != nil {
				return fmt.Errorf("read seeded role %s: %w", name, err)
			}

			for _, key := range permKeys {
				permID, ok := permIDs[key]
				if !ok {
					return fmt.Errorf("role %s references unknown permission %s", name, key)
				}
				rp := &models.RolePermission{RoleID: existing.ID, PermissionID: permID}
				_, err := tx.NewInsert().
					Model(rp).
					On("CONFLICT (role_id, permission_id) DO NOTHING").
					Exec(ctx)
				if err != nil {
					return fmt.Errorf("seed role permission %s/%s: %w", name, key, err)
				}
			}
		}
		fmt.Println(" OK")

		return nil
	})
}

// down_20240315000001 removes seeded system roles and permissions
func down_20240315000001(ctx context.Context, db *bun.DB) error {
	return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().
			Model((*models.Role)(nil)).
			Where("is_system = ?", true).
			Exec(ctx); err != nil {
			return fmt.Errorf("delete system roles: %w", err)
		}

		if _, err := tx.NewDelete().
			Model((*models.Permission)(nil)).
			Where("1 = 1").
			Exec(ctx); err != nil {
			return fmt.Errorf("delete permissions: %w", err)
		}

		return nil
	})
}
