package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-roster-api/internal/dto"
	"github.com/noah-isme/sma-roster-api/internal/models"
	"github.com/noah-isme/sma-roster-api/internal/repository"
	"github.com/noah-isme/sma-roster-api/internal/roster"
	appErrors "github.com/noah-isme/sma-roster-api/pkg/errors"
)

type memStudents struct {
	mu        sync.Mutex
	seq       int
	rows      map[string]models.Student // key: professor/number
	createErr error
	updateErr error
	updates   int
}

func newMemStudents() *memStudents {
	return &memStudents{rows: make(map[string]models.Student)}
}

func studentKey(professorID, number string) string {
	return professorID + "/" + number
}

func (m *memStudents) FindByNumber(ctx context.Context, professorID, number string) (*models.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[studentKey(professorID, number)]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &row, nil
}

func (m *memStudents) List(ctx context.Context, professorID string, filter repository.StudentFilter) ([]models.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Student
	for _, row := range m.rows {
		if row.ProfessorID != professorID {
			continue
		}
		if filter.ArchivedOnly && len(row.ArchivedSubjects) == 0 {
			continue
		}
		if search := strings.ToLower(filter.Search); search != "" &&
			!strings.Contains(strings.ToLower(row.FullName), search) &&
			!strings.Contains(row.StudentNumber, search) {
			continue
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStudents) Create(ctx context.Context, student *models.Student) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	key := studentKey(student.ProfessorID, student.StudentNumber)
	if _, exists := m.rows[key]; exists {
		return appErrors.Clone(appErrors.ErrConflict, "duplicate student")
	}
	m.seq++
	student.ID = fmt.Sprintf("stu-%03d", m.seq)
	student.CreatedAt = time.Now()
	m.rows[key] = *student
	return nil
}

func (m *memStudents) Update(ctx context.Context, student *models.Student) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	key := studentKey(student.ProfessorID, student.StudentNumber)
	current, ok := m.rows[key]
	if !ok {
		return sql.ErrNoRows
	}
	current.FullName = student.FullName
	current.Email = student.Email
	current.ArchivedSubjects = pq.StringArray(append([]string{}, student.ArchivedSubjects...))
	m.rows[key] = current
	m.updates++
	return nil
}

func (m *memStudents) DeleteByNumbers(ctx context.Context, professorID string, numbers []string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, number := range numbers {
		key := studentKey(professorID, number)
		if _, ok := m.rows[key]; ok {
			delete(m.rows, key)
			n++
		}
	}
	return n, nil
}

func (m *memStudents) byID(id string) (models.Student, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range m.rows {
		if row.ID == id {
			return row, true
		}
	}
	return models.Student{}, false
}

func (m *memStudents) get(professorID, number string) (models.Student, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[studentKey(professorID, number)]
	return row, ok
}

type memCourses struct {
	mu          sync.Mutex
	seq         int
	rows        map[string]models.Course // key: professor/code
	enrollments *memEnrollments
}

func newMemCourses(enrollments *memEnrollments) *memCourses {
	return &memCourses{rows: make(map[string]models.Course), enrollments: enrollments}
}

func (m *memCourses) FindByCode(ctx context.Context, professorID, code string) (*models.Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[professorID+"/"+code]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &row, nil
}

func (m *memCourses) ListByProfessor(ctx context.Context, professorID string) ([]models.Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Course
	for _, row := range m.rows {
		if row.ProfessorID == professorID {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memCourses) Create(ctx context.Context, course *models.Course) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := course.ProfessorID + "/" + course.Code
	if _, exists := m.rows[key]; exists {
		return appErrors.Clone(appErrors.ErrConflict, "duplicate course")
	}
	m.seq++
	course.ID = fmt.Sprintf("crs-%03d", m.seq)
	course.CreatedAt = time.Now()
	m.rows[key] = *course
	return nil
}

func (m *memCourses) Delete(ctx context.Context, professorID, code string) error {
	m.mu.Lock()
	key := professorID + "/" + code
	row, ok := m.rows[key]
	delete(m.rows, key)
	m.mu.Unlock()
	if ok && m.enrollments != nil {
		m.enrollments.deleteCourse(row.ID)
	}
	return nil
}

type memEnrollments struct {
	mu        sync.Mutex
	seq       int
	rows      []models.Enrollment
	students  *memStudents
	createErr error
}

func (m *memEnrollments) ListByCourse(ctx context.Context, courseID string) ([]models.EnrollmentRecord, error) {
	m.mu.Lock()
	rows := append([]models.Enrollment{}, m.rows...)
	m.mu.Unlock()

	var out []models.EnrollmentRecord
	for _, row := range rows {
		if row.CourseID != courseID {
			continue
		}
		record := models.EnrollmentRecord{Enrollment: row}
		if st, ok := m.students.byID(row.StudentID); ok {
			number, name := st.StudentNumber, st.FullName
			record.StudentNumber = &number
			record.StudentName = &name
		}
		out = append(out, record)
	}
	return out, nil
}

func (m *memEnrollments) FindByStudentAndCourse(ctx context.Context, studentID, courseID string) (*models.Enrollment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range m.rows {
		if row.StudentID == studentID && row.CourseID == courseID {
			found := row
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memEnrollments) Create(ctx context.Context, enrollment *models.Enrollment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.seq++
	enrollment.ID = fmt.Sprintf("enr-%03d", m.seq)
	enrollment.CreatedAt = time.Now()
	m.rows = append(m.rows, *enrollment)
	return nil
}

func (m *memEnrollments) DeleteByStudentAndCourse(ctx context.Context, studentID, courseID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.rows[:0]
	for _, row := range m.rows {
		if row.StudentID == studentID && row.CourseID == courseID {
			continue
		}
		kept = append(kept, row)
	}
	m.rows = kept
	return nil
}

func (m *memEnrollments) deleteCourse(courseID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.rows[:0]
	for _, row := range m.rows {
		if row.CourseID != courseID {
			kept = append(kept, row)
		}
	}
	m.rows = kept
}

func (m *memEnrollments) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

type memDashboards struct {
	mu      sync.Mutex
	rows    map[string]models.DashboardState
	saveErr error
	saves   int
}

func newMemDashboards() *memDashboards {
	return &memDashboards{rows: make(map[string]models.DashboardState)}
}

func (m *memDashboards) Get(ctx context.Context, professorID string) (*models.DashboardState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[professorID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &row, nil
}

func (m *memDashboards) Save(ctx context.Context, professorID string, snapshot types.JSONText) (*models.DashboardState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return nil, m.saveErr
	}
	row := m.rows[professorID]
	row.ProfessorID = professorID
	row.Snapshot = append(types.JSONText{}, snapshot...)
	row.Version++
	row.UpdatedAt = time.Now()
	m.rows[professorID] = row
	m.saves++
	return &row, nil
}

func (m *memDashboards) saveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

func (m *memDashboards) failWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveErr = err
}

// rosterHarness wires the real services over in-memory stores.
type rosterHarness struct {
	students    *memStudents
	courses     *memCourses
	enrollments *memEnrollments
	dashboards  *memDashboards

	gateway   *PersistenceGateway
	projector *ProjectionService
	store     *StateStore
	sync      *SyncService
	importer  *ImportService
	roster    *RosterService
	subjects  *SubjectService
	records   *RecordService
	dashboard *DashboardService
	exports   *ExportService
}

const testProfessor = "prof-1"

func newRosterHarness(t *testing.T) *rosterHarness {
	t.Helper()
	logger := zap.NewNop()
	validate := validator.New()

	students := newMemStudents()
	enrollments := &memEnrollments{students: students}
	courses := newMemCourses(enrollments)
	dashboards := newMemDashboards()

	gateway := NewPersistenceGateway(students, courses, enrollments, dashboards, nil, nil, logger, GatewayConfig{})
	projector := NewProjectionService(gateway, nil, logger)
	store := NewStateStore(gateway, projector, logger)
	syncSvc := NewSyncService(nil, logger)
	importer := NewImportService(gateway, store, projector, syncSvc, nil, logger, ImportConfig{
		MaxFileSizeBytes:  1024,
		AllowedExtensions: []string{".csv", ".xlsx", ".xls"},
	})

	return &rosterHarness{
		students:    students,
		courses:     courses,
		enrollments: enrollments,
		dashboards:  dashboards,
		gateway:     gateway,
		projector:   projector,
		store:       store,
		sync:        syncSvc,
		importer:    importer,
		roster:      NewRosterService(gateway, gateway, store, projector, importer, syncSvc, validate, logger),
		subjects:    NewSubjectService(gateway, store, projector, syncSvc, validate, logger),
		records:     NewRecordService(store, syncSvc, validate, logger),
		dashboard:   NewDashboardService(store, syncSvc, logger),
		exports:     NewExportService(store, nil, nil, logger),
	}
}

func (h *rosterHarness) createSubject(t *testing.T, code, name string) {
	t.Helper()
	_, err := h.subjects.Create(context.Background(), testProfessor, dto.CreateSubjectRequest{
		Code: code, Name: name, Credits: 3, Term: models.TermFirst,
	})
	require.NoError(t, err)
}

func (h *rosterHarness) addStudent(t *testing.T, code, id, name string) *dto.ImportReport {
	t.Helper()
	report, err := h.roster.AddStudent(context.Background(), testProfessor, code, dto.AddStudentRequest{ID: id, Name: name})
	require.NoError(t, err)
	return report
}

func (h *rosterHarness) load(t *testing.T) roster.State {
	t.Helper()
	state, err := h.store.Load(context.Background(), testProfessor)
	require.NoError(t, err)
	return state
}
