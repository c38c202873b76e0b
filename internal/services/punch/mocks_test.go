package punch

import (
	"context"
	"errors"
	"sync"

	"github.com/apricityDigital/attendease-backend/internal/db/models"
	"github.com/apricityDigital/attendease-backend/internal/face"
	"github.com/apricityDigital/attendease-backend/internal/objectstore"
	"github.com/apricityDigital/attendease-backend/internal/repository"
)

// fakeVerifier scripts the face service: search responses are consumed as a
// queue, falling back to defaultMatches when the queue runs dry.
type fakeVerifier struct {
	mu sync.Mutex

	searchQueue    [][]face.Match
	defaultMatches []face.Match
	searchErr      error

	compareSimilarity float64
	compareErr        error

	detections []face.Detection
	detectErr  error

	indexResult *face.IndexResult
	indexErr    error

	deleted []string
}

func (f *fakeVerifier) SearchByImage(_ context.Context, _ []byte, _ float64) ([]face.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.searchErr != nil {
		return nil, f.searchErr
	}
	if len(f.searchQueue) > 0 {
		matches := f.searchQueue[0]
		f.searchQueue = f.searchQueue[1:]
		return matches, nil
	}
	return f.defaultMatches, nil
}

func (f *fakeVerifier) CompareFaces(_ context.Context, _, _ []byte) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.compareSimilarity, f.compareErr
}

func (f *fakeVerifier) DetectFaces(_ context.Context, _ []byte) ([]face.Detection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.detections, f.detectErr
}

func (f *fakeVerifier) IndexFace(_ context.Context, _ []byte, _ string) (*face.IndexResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.indexResult, f.indexErr
}

func (f *fakeVerifier) DeleteFace(_ context.Context, faceID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, faceID)
	return nil
}

func (f *fakeVerifier) deletedFaces() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deleted...)
}

// failingStore rejects every operation.
type failingStore struct{}

func (failingStore) Put(_ context.Context, _ string, _ []byte, _ string) (string, error) {
	return "", errStoreDown
}

func (failingStore) Get(_ context.Context, _ string) (*objectstore.Object, error) {
	return nil, errStoreDown
}

// memAttendanceRepo is the in-memory attendance table used by the pipeline
// tests.
type memAttendanceRepo struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*models.Attendance
}

func newMemAttendanceRepo() *memAttendanceRepo {
	return &memAttendanceRepo{rows: make(map[int64]*models.Attendance)}
}

func (m *memAttendanceRepo) CreateIfAbsent(_ context.Context, att *models.Attendance) (*models.Attendance, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, row := range m.rows {
		if row.EmpID == att.EmpID && row.Date == att.Date {
			clone := *row
			return &clone, false, nil
		}
	}
	m.nextID++
	att.AttendanceID = m.nextID
	clone := *att
	m.rows[att.AttendanceID] = &clone
	out := clone
	return &out, true, nil
}

func (m *memAttendanceRepo) GetByID(_ context.Context, id int64) (*models.Attendance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	row, ok := m.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	clone := *row
	return &clone, nil
}

func (m *memAttendanceRepo) GetByEmpAndDate(_ context.Context, empID int64, date string) (*models.Attendance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, row := range m.rows {
		if row.EmpID == empID && row.Date == date {
			clone := *row
			return &clone, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memAttendanceRepo) FindOpenInRange(_ context.Context, empID int64, fromDate, toDate string) (*models.Attendance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var best *models.Attendance
	for _, row := range m.rows {
		if row.EmpID != empID || row.PunchInTime == nil || row.PunchOutTime != nil {
			continue
		}
		if row.Date < fromDate || row.Date > toDate {
			continue
		}
		if best == nil || row.Date > best.Date {
			best = row
		}
	}
	if best == nil {
		return nil, repository.ErrNotFound
	}
	clone := *best
	return &clone, nil
}

func (m *memAttendanceRepo) SavePunchIn(_ context.Context, att *models.Attendance) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	row, ok := m.rows[att.AttendanceID]
	if !ok {
		return repository.ErrNotFound
	}
	if row.PunchInTime != nil {
		return repository.ErrStateConflict
	}
	clone := *att
	m.rows[att.AttendanceID] = &clone
	return nil
}

func (m *memAttendanceRepo) SavePunchOut(_ context.Context, att *models.Attendance) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	row, ok := m.rows[att.AttendanceID]
	if !ok {
		return repository.ErrNotFound
	}
	if row.PunchInTime == nil || row.PunchOutTime != nil {
		return repository.ErrStateConflict
	}
	clone := *att
	m.rows[att.AttendanceID] = &clone
	return nil
}

// memEmployeeRepo implements the employee lookups and enrolment writes the
// pipeline touches; everything else is unreachable in these tests.
type memEmployeeRepo struct {
	repository.EmployeeRepository

	mu        sync.Mutex
	employees map[int64]*models.Employee
}

func newMemEmployeeRepo(employees ...*models.Employee) *memEmployeeRepo {
	m := &memEmployeeRepo{employees: make(map[int64]*models.Employee)}
	for _, e := range employees {
		m.employees[e.EmpID] = e
	}
	return m
}

func (m *memEmployeeRepo) GetByID(_ context.Context, empID int64) (*models.Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	employee, ok := m.employees[empID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	clone := *employee
	return &clone, nil
}

func (m *memEmployeeRepo) GetByFaceID(_ context.Context, faceID string) (*models.Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, employee := range m.employees {
		if employee.FaceID != nil && *employee.FaceID == faceID {
			clone := *employee
			return &clone, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memEmployeeRepo) SetFaceEnrolment(_ context.Context, empID int64, faceID, embeddingRef string, confidence float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	employee, ok := m.employees[empID]
	if !ok {
		return repository.ErrNotFound
	}
	employee.FaceID = &faceID
	employee.FaceEmbeddingRef = &embeddingRef
	employee.FaceConfidence = &confidence
	return nil
}

func (m *memEmployeeRepo) ClearFaceEnrolment(_ context.Context, empID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	employee, ok := m.employees[empID]
	if !ok {
		return repository.ErrNotFound
	}
	employee.FaceID = nil
	employee.FaceEmbeddingRef = nil
	employee.FaceConfidence = nil
	return nil
}

// stubUserRepo answers existence checks only.
type stubUserRepo struct {
	repository.UserRepository
}

func (stubUserRepo) Exists(_ context.Context, _ int64) (bool, error) {
	return false, nil
}

var errStoreDown = errors.New("store down")
