package attendance

import (
	"context"
	"sync"

	"github.com/apricityDigital/attendease-backend/internal/db/models"
	"github.com/apricityDigital/attendease-backend/internal/repository"
)

// mockAttendanceRepository keeps rows in memory keyed by (emp_id, date).
// beforeSave, when set, runs under the lock right before a guarded write
// so tests can interleave a competing punch.
type mockAttendanceRepository struct {
	mu         sync.Mutex
	nextID     int64
	rows       map[int64]*models.Attendance
	beforeSave func(rows map[int64]*models.Attendance)
}

func newMockAttendanceRepository() *mockAttendanceRepository {
	return &mockAttendanceRepository{rows: make(map[int64]*models.Attendance)}
}

func (m *mockAttendanceRepository) CreateIfAbsent(_ context.Context, att *models.Attendance) (*models.Attendance, bool, error) {
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

func (m *mockAttendanceRepository) GetByID(_ context.Context, attendanceID int64) (*models.Attendance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	row, ok := m.rows[attendanceID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	clone := *row
	return &clone, nil
}

func (m *mockAttendanceRepository) GetByEmpAndDate(_ context.Context, empID int64, date string) (*models.Attendance, error) {
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

func (m *mockAttendanceRepository) FindOpenInRange(_ context.Context, empID int64, fromDate, toDate string) (*models.Attendance, error) {
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

func (m *mockAttendanceRepository) SavePunchIn(_ context.Context, att *models.Attendance) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.beforeSave != nil {
		m.beforeSave(m.rows)
	}
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

func (m *mockAttendanceRepository) SavePunchOut(_ context.Context, att *models.Attendance) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.beforeSave != nil {
		m.beforeSave(m.rows)
	}
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

// mockEmployeeRepository serves a fixed employee set.
type mockEmployeeRepository struct {
	mu        sync.Mutex
	employees map[int64]*models.Employee
}

func newMockEmployeeRepository(employees ...*models.Employee) *mockEmployeeRepository {
	m := &mockEmployeeRepository{employees: make(map[int64]*models.Employee)}
	for _, e := range employees {
		m.employees[e.EmpID] = e
	}
	return m
}

func (m *mockEmployeeRepository) Create(_ context.Context, employee *models.Employee) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.employees[employee.EmpID] = employee
	return nil
}

func (m *mockEmployeeRepository) GetByID(_ context.Context, empID int64) (*models.Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	employee, ok := m.employees[empID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	clone := *employee
	return &clone, nil
}

func (m *mockEmployeeRepository) GetByCode(_ context.Context, empCode string) (*models.Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, employee := range m.employees {
		if employee.EmpCode == empCode {
			clone := *employee
			return &clone, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *mockEmployeeRepository) GetByFaceID(_ context.Context, faceID string) (*models.Employee, error) {
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

func (m *mockEmployeeRepository) Update(_ context.Context, employee *models.Employee) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.employees[employee.EmpID] = employee
	return nil
}

func (m *mockEmployeeRepository) SetFaceEnrolment(_ context.Context, empID int64, faceID, embeddingRef string, confidence float64) error {
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

func (m *mockEmployeeRepository) ClearFaceEnrolment(_ context.Context, empID int64) error {
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

func (m *mockEmployeeRepository) List(_ context.Context, _ []int64) ([]models.Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.Employee, 0, len(m.employees))
	for _, employee := range m.employees {
		out = append(out, *employee)
	}
	return out, nil
}

// mockUserRepository only answers existence checks in these tests.
type mockUserRepository struct {
	mu    sync.Mutex
	users map[int64]*models.User
}

func newMockUserRepository(users ...*models.User) *mockUserRepository {
	m := &mockUserRepository{users: make(map[int64]*models.User)}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *mockUserRepository) Create(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.ID] = user
	return nil
}

func (m *mockUserRepository) GetByID(_ context.Context, id int64) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	clone := *user
	return &clone, nil
}

func (m *mockUserRepository) GetByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, user := range m.users {
		if user.Email != nil && *user.Email == email {
			clone := *user
			return &clone, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *mockUserRepository) GetByEmpCode(_ context.Context, empCode string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, user := range m.users {
		if user.EmpCode != nil && *user.EmpCode == empCode {
			clone := *user
			return &clone, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *mockUserRepository) Update(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.ID] = user
	return nil
}

func (m *mockUserRepository) UpdateLastLogin(_ context.Context, _ int64) error {
	return nil
}

func (m *mockUserRepository) Exists(_ context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.users[id]
	return ok, nil
}

func (m *mockUserRepository) List(_ context.Context) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.User, 0, len(m.users))
	for _, user := range m.users {
		out = append(out, *user)
	}
	return out, nil
}

func (m *mockUserRepository) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.users, id)
	return nil
}
