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

// BunEmployeeRepository implements EmployeeRepository using Bun ORM
type BunEmployeeRepository struct {
	db *bun.DB
}

// NewBunEmployeeRepository creates a new Bun-based employee repository
func NewBunEmployeeRepository(db *bun.DB) *BunEmployeeRepository {
	return &BunEmployeeRepository{db: db}
}

// Create inserts a new employee
func (r *BunEmployeeRepository) Create(ctx context.Context, employee *models.Employee) error {
	_, err := r.db.NewInsert().
		Model(employee).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create employee: %w", err)
	}
	return nil
}

// GetByID retrieves an employee by ID
func (r *BunEmployeeRepository) GetByID(ctx context.Context, empID int64) (*models.Employee, error) {
	employee := new(models.Employee)
	err := r.db.NewSelect().
		Model(employee).
		Where("emp_id = ?", empID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("employee %d: %w", empID, ErrNotFound)
		}
		return nil, fmt.Errorf("get employee by ID: %w", err)
	}
	return employee, nil
}

// GetByCode retrieves an employee by unique code
func (r *BunEmployeeRepository) GetByCode(ctx context.Context, empCode string) (*models.Employee, error) {
	employee := new(models.Employee)
	err := r.db.NewSelect().
		Model(employee).
		Where("emp_code = ?", empCode).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("employee with code %s: %w", empCode, ErrNotFound)
		}
		return nil, fmt.Errorf("get employee by code: %w", err)
	}
	return employee, nil
}

// GetByFaceID retrieves an employee by their face gallery identifier
func (r *BunEmployeeRepository) GetByFaceID(ctx context.Context, faceID string) (*models.Employee, error) {
	employee := new(models.Employee)
	err := r.db.NewSelect().
		Model(employee).
		Where("face_id = ?", faceID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("employee with face_id %s: %w", faceID, ErrNotFound)
		}
		return nil, fmt.Errorf("get employee by face ID: %w", err)
	}
	return employee, nil
}

// Update updates an existing employee
func (r *BunEmployeeRepository) Update(ctx context.Context, employee *models.Employee) error {
	employee.UpdatedAt = time.Now()
	result, err := r.db.NewUpdate().
		Model(employee).
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update employee: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("employee %d: %w", employee.EmpID, ErrNotFound)
	}

	return nil
}

// SetFaceEnrolment stores the face gallery ID and reference image key
// produced by a successful enrolment.
func (r *BunEmployeeRepository) SetFaceEnrolment(ctx context.Context, empID int64, faceID, embeddingRef string, confidence float64) error {
	_, err := r.db.NewUpdate().
		Model((*models.Employee)(nil)).
		Set("face_id = ?", faceID).
		Set("face_embedding_ref = ?", embeddingRef).
		Set("face_confidence = ?", confidence).
		Set("updated_at = ?", time.Now()).
		Where("emp_id = ?", empID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("set face enrolment: %w", err)
	}
	return nil
}

// ClearFaceEnrolment removes both the gallery ID and the reference image key
func (r *BunEmployeeRepository) ClearFaceEnrolment(ctx context.Context, empID int64) error {
	_, err := r.db.NewUpdate().
		Model((*models.Employee)(nil)).
		Set("face_id = NULL").
		Set("face_embedding_ref = NULL").
		Set("face_confidence = NULL").
		Set("updated_at = ?", time.Now()).
		Where("emp_id = ?", empID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("clear face enrolment: %w", err)
	}
	return nil
}

// List retrieves employees, optionally restricted to the given ward IDs
func (r *BunEmployeeRepository) List(ctx context.Context, wardIDs []int64) ([]models.Employee, error) {
	var employees []models.Employee
	q := r.db.NewSelect().
		Model(&employees).
		Order("name ASC")
	if len(wardIDs) > 0 {
		q = q.Where("ward_id IN (?)", bun.In(wardIDs))
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("list employees: %w", err)
	}
	return employees, nil
}
