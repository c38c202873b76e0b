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

// ErrStateConflict reports a guarded attendance update that matched no row
// because a concurrent punch changed the state first.
var ErrStateConflict = errors.New("attendance state changed")

// BunAttendanceRepository implements AttendanceRepository using Bun ORM
type BunAttendanceRepository struct {
	db *bun.DB
}

// NewBunAttendanceRepository creates a new Bun-based attendance repository
func NewBunAttendanceRepository(db *bun.DB) *BunAttendanceRepository {
	return &BunAttendanceRepository{db: db}
}

// CreateIfAbsent inserts the attendance row unless one already exists for
// the (emp_id, date) key. The unique index serialises concurrent punches of
// the same employee; no application lock is taken. Returns the row that is
// now in the database and whether this call created it.
func (r *BunAttendanceRepository) CreateIfAbsent(ctx context.Context, att *models.Attendance) (*models.Attendance, bool, error) {
	res, err := r.db.NewInsert().
		Model(att).
		On("CONFLICT (emp_id, date) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("create attendance: %w", err)
	}

	inserted, err := res.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("get rows affected: %w", err)
	}

	// Re-read regardless: on conflict the model is left unpopulated.
	existing, err := r.GetByEmpAndDate(ctx, att.EmpID, att.Date)
	if err != nil {
		return nil, false, err
	}
	return existing, inserted > 0, nil
}

// GetByID retrieves an attendance row by ID
func (r *BunAttendanceRepository) GetByID(ctx context.Context, attendanceID int64) (*models.Attendance, error) {
	att := new(models.Attendance)
	err := r.db.NewSelect().
		Model(att).
		Where("attendance_id = ?", attendanceID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("attendance %d: %w", attendanceID, ErrNotFound)
		}
		return nil, fmt.Errorf("get attendance by ID: %w", err)
	}
	return att, nil
}

// GetByEmpAndDate retrieves the attendance row for an employee on a logical date
func (r *BunAttendanceRepository) GetByEmpAndDate(ctx context.Context, empID int64, date string) (*models.Attendance, error) {
	att := new(models.Attendance)
	err := r.db.NewSelect().
		Model(att).
		Where("emp_id = ? AND date = ?", empID, date).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("attendance for employee %d on %s: %w", empID, date, ErrNotFound)
		}
		return nil, fmt.Errorf("get attendance by employee and date: %w", err)
	}
	return att, nil
}

// FindOpenInRange returns the most recent open record (punched in, not
// punched out) for the employee with date in [fromDate, toDate].
func (r *BunAttendanceRepository) FindOpenInRange(ctx context.Context, empID int64, fromDate, toDate string) (*models.Attendance, error) {
	att := new(models.Attendance)
	err := r.db.NewSelect().
		Model(att).
		Where("emp_id = ?", empID).
		Where("date >= ? AND date <= ?", fromDate, toDate).
		Where("punch_in_time IS NOT NULL").
		Where("punch_out_time IS NULL").
		Order("date DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("open attendance for employee %d in [%s, %s]: %w", empID, fromDate, toDate, ErrNotFound)
		}
		return nil, fmt.Errorf("find open attendance: %w", err)
	}
	return att, nil
}

// SavePunchIn persists the punch-in fields, guarded so only a row whose
// punch-in is still unset accepts the write.
func (r *BunAttendanceRepository) SavePunchIn(ctx context.Context, att *models.Attendance) error {
	return r.saveGuarded(ctx, att, "punch_in_time IS NULL")
}

// SavePunchOut persists the punch-out fields on an open row.
func (r *BunAttendanceRepository) SavePunchOut(ctx context.Context, att *models.Attendance) error {
	return r.saveGuarded(ctx, att, "punch_in_time IS NOT NULL AND punch_out_time IS NULL")
}

// saveGuarded runs the update with the state predicate so racing punches
// serialise on the row instead of last writer winning. The caller has just
// read the row, so zero matched rows means the state moved underneath it.
func (r *BunAttendanceRepository) saveGuarded(ctx context.Context, att *models.Attendance, guard string) error {
	att.UpdatedAt = time.Now()
	result, err := r.db.NewUpdate().
		Model(att).
		WherePK().
		Where(guard).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update attendance: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("attendance %d: %w", att.AttendanceID, ErrStateConflict)
	}

	return nil
}
