package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Attendance is the per-(employee, logical date) record. Rows are created
// lazily on the first punch attempt of a logical date and never deleted.
//
// Date is the ISO calendar date (YYYY-MM-DD) in the attendance timezone
// after night-shift rollover; the (emp_id, date) pair is unique and is the
// mutual-exclusion point for concurrent punches.
type Attendance struct {
	bun.BaseModel `bun:"table:attendance,alias:a"`

	AttendanceID  int64      `bun:"attendance_id,pk,autoincrement"`
	EmpID         int64      `bun:"emp_id,notnull"` // FK to employees(emp_id)
	Date          string     `bun:"date,notnull"`
	WardID        int64      `bun:"ward_id,notnull"` // ward at punch-in time, kept for reporting lineage
	PunchInTime   *time.Time `bun:"punch_in_time"`
	PunchOutTime  *time.Time `bun:"punch_out_time"`
	PunchInImage  *string    `bun:"punch_in_image"`
	PunchOutImage *string    `bun:"punch_out_image"`
	LatitudeIn    *float64   `bun:"latitude_in"`
	LongitudeIn   *float64   `bun:"longitude_in"`
	LatitudeOut   *float64   `bun:"latitude_out"`
	LongitudeOut  *float64   `bun:"longitude_out"`
	InAddress     *string    `bun:"in_address"`
	OutAddress    *string    `bun:"out_address"`
	DurationMins  *int64     `bun:"duration_mins"`
	PunchedInBy   *int64     `bun:"punched_in_by"`  // FK to users(id), null = self service
	PunchedOutBy  *int64     `bun:"punched_out_by"` // FK to users(id), null = self service
	CreatedAt     time.Time  `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt     time.Time  `bun:"updated_at,notnull,default:current_timestamp"`
}

// State names for the attendance record lifecycle.
const (
	AttendanceAbsent    = "absent"
	AttendancePunchedIn = "punched_in"
	AttendanceCompleted = "completed"
)

// State derives the lifecycle state from the punch timestamps.
func (a *Attendance) State() string {
	switch {
	case a == nil || a.PunchInTime == nil:
		return AttendanceAbsent
	case a.PunchOutTime == nil:
		return AttendancePunchedIn
	default:
		return AttendanceCompleted
	}
}
