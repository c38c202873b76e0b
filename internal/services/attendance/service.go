package attendance

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/apricityDigital/attendease-backend/internal/db/models"
	"github.com/apricityDigital/attendease-backend/internal/repository"
)

var (
	// ErrAlreadyPunchedIn rejects a second punch-in on an open record.
	ErrAlreadyPunchedIn = errors.New("already punched in")

	// ErrAlreadyPunchedOut rejects any punch on a completed record.
	ErrAlreadyPunchedOut = errors.New("already punched out")

	// ErrMustPunchInFirst rejects a punch-out with no open record in the
	// carry-forward window.
	ErrMustPunchInFirst = errors.New("must punch in first")
)

// PunchType distinguishes the two punch events.
type PunchType string

const (
	PunchIn  PunchType = "IN"
	PunchOut PunchType = "OUT"
)

// ParsePunchType validates a client-supplied punch type.
func ParsePunchType(raw string) (PunchType, error) {
	switch PunchType(raw) {
	case PunchIn, PunchOut:
		return PunchType(raw), nil
	default:
		return "", fmt.Errorf("punch type must be IN or OUT, got %q", raw)
	}
}

// Punch carries the mutable fields stamped onto an attendance row by one
// punch event. ActorUserID is the requesting user when a supervisor punches
// on an employee's behalf; nil for self-service.
type Punch struct {
	EmpID       int64
	Latitude    *float64
	Longitude   *float64
	Address     *string
	ImageRef    *string
	ActorUserID *int64
}

// Service is the attendance state machine: Absent → PunchedIn → Completed,
// with night-shift rollover and open-record carry-forward.
type Service struct {
	attendance repository.AttendanceRepository
	employees  repository.EmployeeRepository
	users      repository.UserRepository
	clock      *Clock
}

// NewService creates the attendance service.
func NewService(attendance repository.AttendanceRepository, employees repository.EmployeeRepository, users repository.UserRepository, clock *Clock) *Service {
	return &Service{attendance: attendance, employees: employees, users: users, clock: clock}
}

// Clock exposes the service's logical-date clock.
func (s *Service) Clock() *Clock {
	return s.clock
}

// GetOrCreate returns today's attendance row for the employee, creating an
// absent row if none exists. The employee's current ward is stamped on the
// row to preserve reporting lineage across later reassignment.
func (s *Service) GetOrCreate(ctx context.Context, empID int64) (*models.Attendance, bool, error) {
	employee, err := s.employees.GetByID(ctx, empID)
	if err != nil {
		return nil, false, err
	}

	row := &models.Attendance{
		EmpID:  employee.EmpID,
		Date:   s.clock.Today(),
		WardID: employee.WardID,
	}
	return s.attendance.CreateIfAbsent(ctx, row)
}

// RecordPunchIn transitions Absent → PunchedIn for today's logical date.
func (s *Service) RecordPunchIn(ctx context.Context, punch Punch) (*models.Attendance, error) {
	row, _, err := s.GetOrCreate(ctx, punch.EmpID)
	if err != nil {
		return nil, err
	}

	switch row.State() {
	case models.AttendancePunchedIn:
		return nil, ErrAlreadyPunchedIn
	case models.AttendanceCompleted:
		return nil, ErrAlreadyPunchedIn
	}

	now := s.clock.Now()
	row.PunchInTime = &now
	row.LatitudeIn = punch.Latitude
	row.LongitudeIn = punch.Longitude
	row.InAddress = punch.Address
	row.PunchInImage = punch.ImageRef
	row.PunchedInBy = s.resolveActor(ctx, punch.ActorUserID)

	// The guarded write serialises racing punch-ins: whoever writes second
	// matches no row and is rejected like any other repeat punch.
	if err := s.attendance.SavePunchIn(ctx, row); err != nil {
		if errors.Is(err, repository.ErrStateConflict) {
			return nil, ErrAlreadyPunchedIn
		}
		return nil, err
	}
	return row, nil
}

// RecordPunchOut transitions PunchedIn → Completed. When today's logical
// date has no open record, the previous date is checked so a night shift
// that crossed the rollover boundary can still be closed.
func (s *Service) RecordPunchOut(ctx context.Context, punch Punch) (*models.Attendance, error) {
	today := s.clock.Today()

	row, err := s.attendance.GetByEmpAndDate(ctx, punch.EmpID, today)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	if row != nil && row.State() == models.AttendanceCompleted {
		return nil, ErrAlreadyPunchedOut
	}

	if row == nil || row.PunchInTime == nil {
		// Carry-forward: most recent open record within one day back.
		yesterday, perr := PreviousDate(today)
		if perr != nil {
			return nil, perr
		}
		open, ferr := s.attendance.FindOpenInRange(ctx, punch.EmpID, yesterday, today)
		if ferr != nil {
			if errors.Is(ferr, repository.ErrNotFound) {
				return nil, ErrMustPunchInFirst
			}
			return nil, ferr
		}
		row = open
	}

	now := s.clock.Now()
	row.PunchOutTime = &now
	row.LatitudeOut = punch.Latitude
	row.LongitudeOut = punch.Longitude
	row.OutAddress = punch.Address
	row.PunchOutImage = punch.ImageRef
	row.PunchedOutBy = s.resolveActor(ctx, punch.ActorUserID)

	if row.PunchInTime != nil {
		mins := int64(now.Sub(*row.PunchInTime).Minutes())
		row.DurationMins = &mins
	}

	if err := s.attendance.SavePunchOut(ctx, row); err != nil {
		if errors.Is(err, repository.ErrStateConflict) {
			return nil, ErrAlreadyPunchedOut
		}
		return nil, err
	}
	return row, nil
}

// Record dispatches a punch by type.
func (s *Service) Record(ctx context.Context, punchType PunchType, punch Punch) (*models.Attendance, error) {
	if punchType == PunchIn {
		return s.RecordPunchIn(ctx, punch)
	}
	return s.RecordPunchOut(ctx, punch)
}

// resolveActor returns the actor's user ID when it exists in the user
// table, and nil otherwise. An unresolvable actor usually means a
// misconfigured supervisor account, so it is logged rather than silently
// dropped.
func (s *Service) resolveActor(ctx context.Context, actorID *int64) *int64 {
	if actorID == nil {
		return nil
	}
	exists, err := s.users.Exists(ctx, *actorID)
	if err != nil {
		log.Printf("attendance: check audit actor %d: %v", *actorID, err)
		return nil
	}
	if !exists {
		log.Printf("attendance: audit actor %d not found, recording self-service punch", *actorID)
		return nil
	}
	return actorID
}
