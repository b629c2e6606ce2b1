package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-roster-api/internal/models"
	"github.com/noah-isme/sma-roster-api/internal/repository"
	"github.com/noah-isme/sma-roster-api/internal/roster"
	appErrors "github.com/noah-isme/sma-roster-api/pkg/errors"
	"github.com/noah-isme/sma-roster-api/pkg/jobs"
)

const dashboardSaveJob = "dashboard.save"

type studentStore interface {
	FindByNumber(ctx context.Context, professorID, number string) (*models.Student, error)
	List(ctx context.Context, professorID string, filter repository.StudentFilter) ([]models.Student, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	DeleteByNumbers(ctx context.Context, professorID string, numbers []string) (int64, error)
}

type courseStore interface {
	FindByCode(ctx context.Context, professorID, code string) (*models.Course, error)
	ListByProfessor(ctx context.Context, professorID string) ([]models.Course, error)
	Create(ctx context.Context, course *models.Course) error
	Delete(ctx context.Context, professorID, code string) error
}

type enrollmentStore interface {
	ListByCourse(ctx context.Context, courseID string) ([]models.EnrollmentRecord, error)
	FindByStudentAndCourse(ctx context.Context, studentID, courseID string) (*models.Enrollment, error)
	Create(ctx context.Context, enrollment *models.Enrollment) error
	DeleteByStudentAndCourse(ctx context.Context, studentID, courseID string) error
}

type dashboardStore interface {
	Get(ctx context.Context, professorID string) (*models.DashboardState, error)
	Save(ctx context.Context, professorID string, snapshot types.JSONText) (*models.DashboardState, error)
}

type snapshotCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type saveScheduler interface {
	Schedule(key string, job jobs.Job)
	Cancel(key string) bool
	Flush()
}

// cachedDashboard is the cache entry for a saved snapshot.
type cachedDashboard struct {
	Version  int64                    `json:"version"`
	Snapshot models.DashboardSnapshot `json:"snapshot"`
}

// savePayload is carried by debounced save jobs.
type savePayload struct {
	ProfessorID string
	Seq         uint64
	Snapshot    models.DashboardSnapshot
}

// pendingSnapshot is a scheduled snapshot not yet written. Reads see it before the store.
type pendingSnapshot struct {
	seq      uint64
	version  int64
	snapshot models.DashboardSnapshot
}

// GatewayConfig tunes the gateway.
type GatewayConfig struct {
	CacheTTL time.Duration
}

// PersistenceGateway is the only path from the services to the relational store and the
// dashboard document. Every call is scoped to one professor.
type PersistenceGateway struct {
	students    studentStore
	courses     courseStore
	enrollments enrollmentStore
	dashboards  dashboardStore
	cache       snapshotCache
	scheduler   saveScheduler
	metrics     *MetricsService
	logger      *zap.Logger
	cfg         GatewayConfig

	mu      sync.Mutex
	seq     uint64
	pending map[string]pendingSnapshot
	// written is the highest save sequence that reached the store per professor. Jobs at or
	// below it are superseded.
	written map[string]uint64
	writers map[string]*sync.Mutex
}

// NewPersistenceGateway constructs the gateway. cache and scheduler may be nil; without a
// scheduler debounced saves run immediately.
func NewPersistenceGateway(students studentStore, courses courseStore, enrollments enrollmentStore, dashboards dashboardStore, cache snapshotCache, metrics *MetricsService, logger *zap.Logger, cfg GatewayConfig) *PersistenceGateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PersistenceGateway{
		students:    students,
		courses:     courses,
		enrollments: enrollments,
		dashboards:  dashboards,
		cache:       cache,
		metrics:     metrics,
		logger:      logger,
		cfg:         cfg,
		pending:     make(map[string]pendingSnapshot),
		written:     make(map[string]uint64),
		writers:     make(map[string]*sync.Mutex),
	}
}

// UseScheduler attaches the debouncer that coalesces dashboard saves.
func (g *PersistenceGateway) UseScheduler(scheduler saveScheduler) {
	g.scheduler = scheduler
}

func dashboardCacheKey(professorID string) string {
	return "dash:state:" + professorID
}

// GetCourseByCode returns the course backing a subject, or nil when none exists.
func (g *PersistenceGateway) GetCourseByCode(ctx context.Context, professorID, code string) (*models.Course, error) {
	course, err := g.courses.FindByCode(ctx, professorID, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get course %s: %w", code, err)
	}
	return course, nil
}

// CreateCourse inserts the course row for a subject.
func (g *PersistenceGateway) CreateCourse(ctx context.Context, professorID string, subject models.Subject) (*models.Course, error) {
	course := &models.Course{
		ProfessorID: professorID,
		Code:        subject.Code,
		Name:        subject.Name,
		Credits:     subject.Credits,
		Term:        subject.Term,
	}
	if err := g.courses.Create(ctx, course); err != nil {
		return nil, err
	}
	return course, nil
}

// ListCourses returns every course the professor owns.
func (g *PersistenceGateway) ListCourses(ctx context.Context, professorID string) ([]models.Course, error) {
	return g.courses.ListByProfessor(ctx, professorID)
}

// DeleteCourse removes a course together with its enrollments.
func (g *PersistenceGateway) DeleteCourse(ctx context.Context, professorID, code string) error {
	return g.courses.Delete(ctx, professorID, code)
}

// GetEnrollmentsByCourse returns a course's enrollment rows in creation order.
func (g *PersistenceGateway) GetEnrollmentsByCourse(ctx context.Context, courseID string) ([]models.EnrollmentRecord, error) {
	return g.enrollments.ListByCourse(ctx, courseID)
}

// CreateEnrollment inserts an enrollment. It does not check for an existing row; callers call
// GetEnrollmentByStudentAndCourse first.
func (g *PersistenceGateway) CreateEnrollment(ctx context.Context, studentID, courseID string) (*models.Enrollment, error) {
	enrollment := &models.Enrollment{StudentID: studentID, CourseID: courseID}
	err := g.enrollments.Create(ctx, enrollment)
	g.metrics.RecordEnrollmentCreation(err)
	if err != nil {
		return nil, err
	}
	return enrollment, nil
}

// GetEnrollmentByStudentAndCourse returns the linking row, or nil when none exists.
func (g *PersistenceGateway) GetEnrollmentByStudentAndCourse(ctx context.Context, studentID, courseID string) (*models.Enrollment, error) {
	enrollment, err := g.enrollments.FindByStudentAndCourse(ctx, studentID, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get enrollment: %w", err)
	}
	return enrollment, nil
}

// DeleteEnrollmentByStudentAndCourse removes the linking row if present.
func (g *PersistenceGateway) DeleteEnrollmentByStudentAndCourse(ctx context.Context, studentID, courseID string) error {
	return g.enrollments.DeleteByStudentAndCourse(ctx, studentID, courseID)
}

// GetStudentByNumericalID returns the stored student, or nil when none exists.
func (g *PersistenceGateway) GetStudentByNumericalID(ctx context.Context, professorID string, id roster.StudentID) (*models.Student, error) {
	student, err := g.students.FindByNumber(ctx, professorID, id.String())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get student %s: %w", id, err)
	}
	return student, nil
}

// AddStudent inserts a roster student.
func (g *PersistenceGateway) AddStudent(ctx context.Context, professorID string, student roster.Student) (*models.Student, error) {
	row := student.ToModel(professorID)
	if err := g.students.Create(ctx, &row); err != nil {
		return nil, err
	}
	return &row, nil
}

// UpdateStudent rewrites a roster student's name, email and archive markers.
func (g *PersistenceGateway) UpdateStudent(ctx context.Context, professorID string, student roster.Student) error {
	row := student.ToModel(professorID)
	return g.students.Update(ctx, &row)
}

// ListStudents returns the professor's stored students.
func (g *PersistenceGateway) ListStudents(ctx context.Context, professorID string, filter repository.StudentFilter) ([]models.Student, error) {
	return g.students.List(ctx, professorID, filter)
}

// DeleteStudents hard-deletes students by id.
func (g *PersistenceGateway) DeleteStudents(ctx context.Context, professorID string, ids []roster.StudentID) (int64, error) {
	return g.students.DeleteByNumbers(ctx, professorID, roster.Strings(ids))
}

// GetDashboardState returns the saved snapshot and its version. A professor without a saved
// document gets an empty snapshot at version 0.
func (g *PersistenceGateway) GetDashboardState(ctx context.Context, professorID string) (models.DashboardSnapshot, int64, error) {
	g.mu.Lock()
	queued, ok := g.pending[professorID]
	g.mu.Unlock()
	if ok {
		return queued.snapshot, queued.version, nil
	}

	if g.cache != nil {
		var cached cachedDashboard
		if hit, err := g.cache.Get(ctx, dashboardCacheKey(professorID), &cached); err == nil && hit {
			return cached.Snapshot, cached.Version, nil
		}
	}

	stored, err := g.dashboards.Get(ctx, professorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.DashboardSnapshot{}, 0, nil
		}
		return models.DashboardSnapshot{}, 0, fmt.Errorf("get dashboard state: %w", err)
	}

	var snapshot models.DashboardSnapshot
	if len(stored.Snapshot) > 0 {
		if err := stored.Snapshot.Unmarshal(&snapshot); err != nil {
			return models.DashboardSnapshot{}, 0, fmt.Errorf("decode dashboard state: %w", err)
		}
	}
	g.cacheSnapshot(ctx, professorID, stored.Version, snapshot)
	return snapshot, stored.Version, nil
}

// SaveDashboardState writes the snapshot now, superseding any pending debounced save.
func (g *PersistenceGateway) SaveDashboardState(ctx context.Context, professorID string, snapshot models.DashboardSnapshot) (int64, error) {
	if g.scheduler != nil {
		g.scheduler.Cancel(professorID)
	}
	writer := g.writer(professorID)
	writer.Lock()
	defer writer.Unlock()

	g.mu.Lock()
	g.seq++
	g.written[professorID] = g.seq
	delete(g.pending, professorID)
	g.mu.Unlock()

	version, err := g.save(ctx, professorID, snapshot)
	g.metrics.RecordDashboardSave("immediate", err)
	return version, err
}

// ScheduleDashboardSave queues a debounced save. Bursts for the same professor collapse into
// one write of the latest snapshot.
func (g *PersistenceGateway) ScheduleDashboardSave(ctx context.Context, professorID string, version int64, snapshot models.DashboardSnapshot) error {
	if g.scheduler == nil {
		_, err := g.SaveDashboardState(ctx, professorID, snapshot)
		return err
	}

	g.mu.Lock()
	g.seq++
	seq := g.seq
	g.pending[professorID] = pendingSnapshot{seq: seq, version: version, snapshot: snapshot}
	g.mu.Unlock()

	g.scheduler.Schedule(professorID, jobs.Job{
		ID:      fmt.Sprintf("%s-%d", professorID, seq),
		Type:    dashboardSaveJob,
		Payload: savePayload{ProfessorID: professorID, Seq: seq, Snapshot: snapshot},
	})
	return nil
}

// PendingSave reports whether a debounced save is waiting for the professor.
func (g *PersistenceGateway) PendingSave(professorID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.pending[professorID]
	return ok
}

// Flush pushes every pending debounced save to the worker queue.
func (g *PersistenceGateway) Flush() {
	if g.scheduler != nil {
		g.scheduler.Flush()
	}
}

// HandleSaveJob is the worker queue handler for debounced saves.
func (g *PersistenceGateway) HandleSaveJob(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(savePayload)
	if !ok {
		return fmt.Errorf("unexpected payload for %s job", job.Type)
	}
	writer := g.writer(payload.ProfessorID)
	writer.Lock()
	defer writer.Unlock()

	g.mu.Lock()
	superseded := payload.Seq <= g.written[payload.ProfessorID]
	if superseded {
		if current, ok := g.pending[payload.ProfessorID]; ok && current.seq == payload.Seq {
			delete(g.pending, payload.ProfessorID)
		}
	}
	g.mu.Unlock()
	if superseded {
		g.logger.Debug("skipping superseded dashboard save", zap.String("professor_id", payload.ProfessorID), zap.Uint64("seq", payload.Seq))
		return nil
	}

	version, err := g.save(ctx, payload.ProfessorID, payload.Snapshot)
	g.metrics.RecordDashboardSave("debounced", err)
	if err != nil {
		return err
	}

	g.mu.Lock()
	g.written[payload.ProfessorID] = payload.Seq
	if current, ok := g.pending[payload.ProfessorID]; ok {
		if current.seq == payload.Seq {
			delete(g.pending, payload.ProfessorID)
		} else {
			current.version = version
			g.pending[payload.ProfessorID] = current
		}
	}
	g.mu.Unlock()
	return nil
}

// writer serialises store writes for one professor so sequence checks and writes cannot interleave.
func (g *PersistenceGateway) writer(professorID string) *sync.Mutex {
	g.mu.Lock()
	defer g.mu.Unlock()
	lock, ok := g.writers[professorID]
	if !ok {
		lock = &sync.Mutex{}
		g.writers[professorID] = lock
	}
	return lock
}

func (g *PersistenceGateway) save(ctx context.Context, professorID string, snapshot models.DashboardSnapshot) (int64, error) {
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrSaveFailed.Code, appErrors.ErrSaveFailed.Status, "encode dashboard state")
	}
	stored, err := g.dashboards.Save(ctx, professorID, types.JSONText(raw))
	if err != nil {
		if g.cache != nil {
			_ = g.cache.Delete(ctx, dashboardCacheKey(professorID))
		}
		return 0, appErrors.Wrap(err, appErrors.ErrSaveFailed.Code, appErrors.ErrSaveFailed.Status, appErrors.ErrSaveFailed.Message)
	}
	g.cacheSnapshot(ctx, professorID, stored.Version, snapshot)
	return stored.Version, nil
}

func (g *PersistenceGateway) cacheSnapshot(ctx context.Context, professorID string, version int64, snapshot models.DashboardSnapshot) {
	if g.cache == nil {
		return
	}
	if err := g.cache.Set(ctx, dashboardCacheKey(professorID), cachedDashboard{Version: version, Snapshot: snapshot}, g.cfg.CacheTTL); err != nil {
		g.logger.Debug("dashboard cache write skipped", zap.String("professor_id", professorID), zap.Error(err))
	}
}
