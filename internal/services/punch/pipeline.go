// Package punch orchestrates the face-verified punch flow: normalise the
// captured frame, identify the employee against the face gallery, verify
// against the enrolled reference, persist the image, and drive the
// attendance state machine. Group mode fans the same flow out over every
// face detected in one frame.
package punch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/apricityDigital/attendease-backend/internal/db/models"
	"github.com/apricityDigital/attendease-backend/internal/face"
	"github.com/apricityDigital/attendease-backend/internal/objectstore"
	"github.com/apricityDigital/attendease-backend/internal/repository"
	"github.com/apricityDigital/attendease-backend/internal/services/attendance"
)

var (
	// ErrNoMatch indicates the gallery search returned no face above the
	// similarity threshold.
	ErrNoMatch = errors.New("no matching face found")

	// ErrEnrolmentMissing indicates the resolved employee has no reference
	// image to verify against.
	ErrEnrolmentMissing = errors.New("face enrollment missing")

	// ErrVerificationFailed indicates the pairwise compare against the
	// enrolled reference fell below the threshold.
	ErrVerificationFailed = errors.New("face verification failed")
)

// Request is one punch attempt carried through the pipeline.
type Request struct {
	PunchType attendance.PunchType

	// Image is the raw uploaded frame, before EXIF normalisation.
	Image []byte

	Latitude  *float64
	Longitude *float64
	Address   *string

	// Location names the capture site for the storage key; when empty the
	// address is used instead.
	Location string

	// Threshold overrides the configured similarity threshold when > 0.
	Threshold float64

	// ActorUserID is the requesting user for supervisor-assisted punches.
	ActorUserID *int64
}

// Result is a completed single-mode punch.
type Result struct {
	Attendance *models.Attendance
	Employee   *models.Employee
	Similarity float64
	ImageRef   string
}

// Pipeline wires the face service, object stores, and attendance state
// machine together.
type Pipeline struct {
	verifier   face.Verifier
	store      objectstore.Store
	proxy      *objectstore.Proxy
	attendance *attendance.Service
	employees  repository.EmployeeRepository
	threshold  float64
	now        func() time.Time
}

// NewPipeline creates the punch pipeline. threshold is the default
// similarity gate in 0..100.
func NewPipeline(verifier face.Verifier, store objectstore.Store, proxy *objectstore.Proxy, att *attendance.Service, employees repository.EmployeeRepository, threshold float64) *Pipeline {
	return &Pipeline{
		verifier:   verifier,
		store:      store,
		proxy:      proxy,
		attendance: att,
		employees:  employees,
		threshold:  threshold,
		now:        time.Now,
	}
}

// PunchSingle runs the single-face flow: search the gallery with the full
// frame, verify against the enrolled reference, upload the frame, and
// transition the attendance record.
func (p *Pipeline) PunchSingle(ctx context.Context, req Request) (*Result, error) {
	_, normalized, err := NormalizeImage(req.Image)
	if err != nil {
		return nil, err
	}

	threshold := p.effectiveThreshold(req.Threshold)

	employee, similarity, err := p.identify(ctx, normalized, threshold)
	if err != nil {
		return nil, err
	}

	// Fail ineligible transitions before touching the object store.
	if err := p.checkEligible(ctx, employee.EmpID, req.PunchType); err != nil {
		return nil, err
	}

	if _, err := p.verify(ctx, employee, normalized, threshold); err != nil {
		return nil, err
	}

	ref, err := p.uploadPunchImage(ctx, employee, req, normalized)
	if err != nil {
		return nil, err
	}

	row, err := p.attendance.Record(ctx, req.PunchType, attendance.Punch{
		EmpID:       employee.EmpID,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		Address:     req.Address,
		ImageRef:    &ref,
		ActorUserID: req.ActorUserID,
	})
	if err != nil {
		return nil, err
	}

	return &Result{Attendance: row, Employee: employee, Similarity: similarity, ImageRef: ref}, nil
}

// Enrol registers an employee's reference image: index it in the gallery,
// store the image, and record both references on the employee row.
func (p *Pipeline) Enrol(ctx context.Context, empID int64, image []byte) (*models.Employee, error) {
	if _, err := p.employees.GetByID(ctx, empID); err != nil {
		return nil, err
	}

	_, normalized, err := NormalizeImage(image)
	if err != nil {
		return nil, err
	}

	indexed, err := p.verifier.IndexFace(ctx, normalized, strconv.FormatInt(empID, 10))
	if err != nil {
		return nil, err
	}

	key := EnrolmentKey(empID, p.now())
	ref, err := p.store.Put(ctx, key, normalized, "image/jpeg")
	if err != nil {
		// The gallery entry is unusable without the stored reference.
		if derr := p.verifier.DeleteFace(ctx, indexed.FaceID); derr != nil {
			return nil, fmt.Errorf("store reference image: %w (orphaned gallery face %s: %v)", err, indexed.FaceID, derr)
		}
		return nil, fmt.Errorf("store reference image: %w", err)
	}

	if err := p.employees.SetFaceEnrolment(ctx, empID, indexed.FaceID, ref, indexed.Confidence); err != nil {
		return nil, err
	}
	return p.employees.GetByID(ctx, empID)
}

// Unenrol removes an employee's gallery face and clears the enrolment
// fields. A face already missing from the gallery is not an error.
func (p *Pipeline) Unenrol(ctx context.Context, empID int64) error {
	employee, err := p.employees.GetByID(ctx, empID)
	if err != nil {
		return err
	}

	if employee.FaceID != nil && *employee.FaceID != "" {
		if err := p.verifier.DeleteFace(ctx, *employee.FaceID); err != nil && !errors.Is(err, face.ErrCollectionMissing) {
			return err
		}
	}
	return p.employees.ClearFaceEnrolment(ctx, empID)
}

// identify searches the gallery with the image and resolves the best match
// to an employee row, preferring the stored face ID over the external-id
// fallback.
func (p *Pipeline) identify(ctx context.Context, image []byte, threshold float64) (*models.Employee, float64, error) {
	matches, err := p.verifier.SearchByImage(ctx, image, threshold)
	if err != nil {
		return nil, 0, err
	}
	if len(matches) == 0 {
		return nil, 0, ErrNoMatch
	}

	best := matches[0]

	employee, err := p.employees.GetByFaceID(ctx, best.FaceID)
	if err == nil {
		return employee, best.Similarity, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, 0, err
	}

	empID, perr := strconv.ParseInt(best.ExternalID, 10, 64)
	if perr != nil {
		return nil, 0, fmt.Errorf("gallery match %s carries unusable external id %q", best.FaceID, best.ExternalID)
	}
	employee, err = p.employees.GetByID(ctx, empID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, 0, ErrNoMatch
		}
		return nil, 0, err
	}
	return employee, best.Similarity, nil
}

// verify fetches the enrolled reference image and runs a pairwise compare
// against the captured frame.
func (p *Pipeline) verify(ctx context.Context, employee *models.Employee, captured []byte, threshold float64) (float64, error) {
	if !employee.Enrolled() {
		return 0, ErrEnrolmentMissing
	}

	obj, err := p.proxy.Open(ctx, *employee.FaceEmbeddingRef)
	if err != nil {
		return 0, fmt.Errorf("fetch reference image for employee %d: %w", employee.EmpID, err)
	}
	reference, err := io.ReadAll(obj.Body)
	obj.Body.Close()
	if err != nil {
		return 0, fmt.Errorf("read reference image for employee %d: %w", employee.EmpID, err)
	}

	similarity, err := p.verifier.CompareFaces(ctx, reference, captured)
	if err != nil {
		return 0, err
	}
	if similarity < threshold {
		return similarity, ErrVerificationFailed
	}
	return similarity, nil
}

// checkEligible rejects transitions the state machine would refuse, before
// any image is uploaded.
func (p *Pipeline) checkEligible(ctx context.Context, empID int64, punchType attendance.PunchType) error {
	row, _, err := p.attendance.GetOrCreate(ctx, empID)
	if err != nil {
		return err
	}

	state := row.State()
	if punchType == attendance.PunchIn {
		if state != models.AttendanceAbsent {
			return attendance.ErrAlreadyPunchedIn
		}
		return nil
	}
	if state == models.AttendanceCompleted {
		return attendance.ErrAlreadyPunchedOut
	}
	// A punch-out on an absent row may still close yesterday's open record;
	// the state machine owns that carry-forward decision.
	return nil
}

func (p *Pipeline) uploadPunchImage(ctx context.Context, employee *models.Employee, req Request, image []byte) (string, error) {
	location := req.Location
	if location == "" && req.Address != nil {
		location = *req.Address
	}

	key := ImageKey(p.attendance.Clock().Today(), employee.Name, location, string(req.PunchType), p.now())
	ref, err := p.store.Put(ctx, key, image, "image/jpeg")
	if err != nil {
		return "", fmt.Errorf("upload punch image: %w", err)
	}
	return ref, nil
}

func (p *Pipeline) effectiveThreshold(override float64) float64 {
	if override > 0 {
		return override
	}
	return p.threshold
}
