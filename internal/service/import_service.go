package service

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-roster-api/internal/dto"
	"github.com/noah-isme/sma-roster-api/internal/models"
	"github.com/noah-isme/sma-roster-api/internal/roster"
	appErrors "github.com/noah-isme/sma-roster-api/pkg/errors"
	"github.com/noah-isme/sma-roster-api/pkg/tabular"
)

type rosterGateway interface {
	GetCourseByCode(ctx context.Context, professorID, code string) (*models.Course, error)
	CreateCourse(ctx context.Context, professorID string, subject models.Subject) (*models.Course, error)
	CreateEnrollment(ctx context.Context, studentID, courseID string) (*models.Enrollment, error)
	GetEnrollmentByStudentAndCourse(ctx context.Context, studentID, courseID string) (*models.Enrollment, error)
	DeleteEnrollmentByStudentAndCourse(ctx context.Context, studentID, courseID string) error
	GetStudentByNumericalID(ctx context.Context, professorID string, id roster.StudentID) (*models.Student, error)
	AddStudent(ctx context.Context, professorID string, student roster.Student) (*models.Student, error)
	UpdateStudent(ctx context.Context, professorID string, student roster.Student) error
}

type stateManager interface {
	Lock(professorID string) func()
	Load(ctx context.Context, professorID string) (roster.State, error)
	Commit(ctx context.Context, state roster.State, mode SaveMode) (roster.State, error)
}

type syncNotifier interface {
	Begin(professorID string) uint64
	End(professorID string) uint64
	Publish(ctx context.Context, professorID, reason string)
}

// ImportConfig bounds uploads and sets the domain used for synthesized emails.
type ImportConfig struct {
	EmailDomain       string
	MaxFileSizeBytes  int64
	AllowedExtensions []string
}

// ImportService runs bulk roster imports into one subject.
type ImportService struct {
	gateway   rosterGateway
	state     stateManager
	projector projector
	sync      syncNotifier
	metrics   *MetricsService
	logger    *zap.Logger
	cfg       ImportConfig
	now       func() time.Time
}

// NewImportService constructs an ImportService.
func NewImportService(gateway rosterGateway, state stateManager, projector projector, sync syncNotifier, metrics *MetricsService, logger *zap.Logger, cfg ImportConfig) *ImportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.EmailDomain == "" {
		cfg.EmailDomain = roster.DefaultEmailDomain
	}
	return &ImportService{
		gateway:   gateway,
		state:     state,
		projector: projector,
		sync:      sync,
		metrics:   metrics,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Import parses file and reconciles its rows into the subject. A failed final save still
// returns the report alongside the error.
func (s *ImportService) Import(ctx context.Context, professorID, subjectCode string, file dto.ImportFile) (*dto.ImportReport, error) {
	parsed, err := s.parse(file)
	if err != nil {
		return nil, err
	}
	report := newReport(subjectCode, parsed)
	if parsed.Empty() {
		report.Status = dto.ImportEmpty
		s.metrics.ObserveImport(string(report.Status), 0, 0, 0, 0, 0)
		s.logger.Info("roster import produced no rows",
			zap.String("professor_id", professorID),
			zap.String("subject", subjectCode),
			zap.String("diagnostic", parsed.Diagnostic),
		)
		return report, nil
	}
	return s.run(ctx, professorID, subjectCode, candidatesFrom(parsed.Records), report)
}

// ImportCandidates reconciles already-parsed candidates into the subject.
func (s *ImportService) ImportCandidates(ctx context.Context, professorID, subjectCode string, candidates []roster.Candidate) (*dto.ImportReport, error) {
	report := &dto.ImportReport{SubjectCode: subjectCode, Rows: len(candidates), Warnings: []roster.Warning{}}
	return s.run(ctx, professorID, subjectCode, candidates, report)
}

// Preview reconciles the file against current state without writing anything.
func (s *ImportService) Preview(ctx context.Context, professorID, subjectCode string, file dto.ImportFile) (*dto.ImportReport, error) {
	parsed, err := s.parse(file)
	if err != nil {
		return nil, err
	}
	report := newReport(subjectCode, parsed)
	if parsed.Empty() {
		report.Status = dto.ImportEmpty
		return report, nil
	}

	state, err := s.state.Load(ctx, professorID)
	if err != nil {
		return nil, err
	}
	if err := requireActive(state, subjectCode); err != nil {
		return nil, err
	}
	plan := s.reconcile(state, subjectCode, candidatesFrom(parsed.Records))

	report.Status = dto.ImportPreview
	report.Warnings = plan.Warnings
	report.Created = len(plan.ToCreate)
	report.Updated = len(plan.ToUpdate)
	report.Unarchived = len(plan.ToUnarchive)
	report.Succeeded = len(plan.ToEnroll)
	report.EnrolledCount = len(roster.ApplyOptimistic(state, plan).Enrolled(subjectCode))
	report.Version = state.Version
	return report, nil
}

func (s *ImportService) parse(file dto.ImportFile) (tabular.Result, error) {
	if s.cfg.MaxFileSizeBytes > 0 && int64(len(file.Data)) > s.cfg.MaxFileSizeBytes {
		return tabular.Result{}, appErrors.Clone(appErrors.ErrFileTooLarge, fmt.Sprintf("file exceeds %d bytes", s.cfg.MaxFileSizeBytes))
	}
	if len(s.cfg.AllowedExtensions) > 0 && file.Name != "" {
		ext := strings.ToLower(filepath.Ext(file.Name))
		allowed := false
		for _, candidate := range s.cfg.AllowedExtensions {
			if ext == candidate {
				allowed = true
				break
			}
		}
		if !allowed {
			return tabular.Result{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported file type %q", ext))
		}
	}
	return tabular.Parse(file.Data, file.Name, file.MimeType), nil
}

func (s *ImportService) reconcile(state roster.State, subjectCode string, candidates []roster.Candidate) roster.Plan {
	return roster.Reconcile(roster.ReconcileInput{
		SubjectCode: subjectCode,
		Candidates:  candidates,
		Students:    state.Students,
		Enrolled:    state.Enrolled(subjectCode),
		EmailDomain: s.cfg.EmailDomain,
	})
}

func (s *ImportService) run(ctx context.Context, professorID, subjectCode string, candidates []roster.Candidate, report *dto.ImportReport) (*dto.ImportReport, error) {
	start := s.now()
	unlock := s.state.Lock(professorID)
	defer unlock()

	s.sync.Begin(professorID)
	ended := false
	end := func() {
		if !ended {
			ended = true
			s.sync.End(professorID)
		}
	}
	defer end()

	state, err := s.state.Load(ctx, professorID)
	if err != nil {
		return nil, err
	}
	if err := requireActive(state, subjectCode); err != nil {
		return nil, err
	}
	subject, _, _ := state.FindSubject(subjectCode)
	course, err := ensureCourse(ctx, s.gateway, professorID, subject)
	if err != nil {
		return nil, err
	}

	plan := s.reconcile(state, subjectCode, candidates)
	report.Warnings = plan.Warnings
	if plan.Empty() {
		report.Status = dto.ImportNoChanges
		report.EnrolledCount = len(state.Enrolled(subjectCode))
		report.Version = state.Version
		s.metrics.ObserveImport(string(report.Status), 0, 0, 0, len(plan.Warnings), s.now().Sub(start))
		return report, nil
	}

	state = roster.ApplyOptimistic(state, plan)
	if unstored := s.persistPlan(ctx, professorID, course, state, plan, report); len(unstored) > 0 {
		state = roster.Reduce(state, roster.RemoveStudents{IDs: unstored})
	}

	proj, fetched, err := s.projector.Project(ctx, professorID, state.Students)
	if err != nil {
		report.Status = dto.ImportPartial
		return report, err
	}
	state = roster.ReconcileWithServer(state, proj, fetched)
	report.EnrolledCount = proj.Count(subjectCode)

	kind := models.AlertInfo
	if report.Failed > 0 {
		kind = models.AlertWarning
	}
	message := fmt.Sprintf("Import into %s: %d succeeded, %d failed", subjectCode, report.Succeeded, report.Failed)
	state = roster.Reduce(state, roster.AddAlert{Alert: roster.NewAlert(uuid.NewString(), kind, message, s.now())})

	report.Status = dto.ImportCompleted
	if report.Failed > 0 {
		report.Status = dto.ImportPartial
	}

	committed, err := s.state.Commit(ctx, state, SaveImmediate)
	s.metrics.ObserveImport(string(report.Status), report.Created, report.Updated, report.Succeeded, len(plan.Warnings), s.now().Sub(start))
	if err != nil {
		s.logger.Error("roster import save failed",
			zap.String("professor_id", professorID),
			zap.String("subject", subjectCode),
			zap.Error(err),
		)
		return report, err
	}
	report.Version = committed.Version

	end()
	s.sync.Publish(ctx, professorID, "import")

	s.logger.Info("roster import finished",
		zap.String("professor_id", professorID),
		zap.String("subject", subjectCode),
		zap.Int("created", report.Created),
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", report.Failed),
		zap.Int("warnings", len(report.Warnings)),
	)
	return report, nil
}

// persistPlan writes students and enrollments one at a time. A failure is counted against
// that student and the rest of the batch proceeds without rollback. It returns the new
// students that never reached the store so the caller can drop them from the snapshot.
func (s *ImportService) persistPlan(ctx context.Context, professorID string, course *models.Course, state roster.State, plan roster.Plan, report *dto.ImportReport) []roster.StudentID {
	rowIDs := make(map[roster.StudentID]string, len(plan.ToCreate))
	failed := make(map[roster.StudentID]struct{})
	fail := func(id roster.StudentID, step string, err error) {
		if _, seen := failed[id]; !seen {
			failed[id] = struct{}{}
			report.Failed++
		}
		s.logger.Warn("roster import step failed",
			zap.String("professor_id", professorID),
			zap.String("student_id", id.String()),
			zap.String("step", step),
			zap.Error(err),
		)
	}

	var unstored []roster.StudentID
	for _, created := range plan.ToCreate {
		row, err := s.gateway.AddStudent(ctx, professorID, created)
		if err != nil {
			fail(created.ID, "create_student", err)
			unstored = append(unstored, created.ID)
			continue
		}
		rowIDs[created.ID] = row.ID
		report.Created++
	}

	updated := make(map[roster.StudentID]struct{}, len(plan.ToUpdate))
	for _, u := range plan.ToUpdate {
		updated[u.ID] = struct{}{}
	}
	unarchived := make(map[roster.StudentID]struct{}, len(plan.ToUnarchive))
	for _, u := range plan.ToUnarchive {
		unarchived[u.StudentID] = struct{}{}
	}
	for _, id := range plan.ToEnroll {
		_, isUpdate := updated[id]
		_, isUnarchive := unarchived[id]
		if !isUpdate && !isUnarchive {
			continue
		}
		if _, created := rowIDs[id]; created {
			continue
		}
		student, ok := state.Student(id)
		if !ok {
			continue
		}
		if err := s.gateway.UpdateStudent(ctx, professorID, student); err != nil {
			fail(id, "update_student", err)
			continue
		}
		if isUpdate {
			report.Updated++
		}
		if isUnarchive {
			report.Unarchived++
		}
	}

	for _, id := range plan.ToEnroll {
		if _, skip := failed[id]; skip {
			continue
		}
		studentRowID, ok := rowIDs[id]
		if !ok {
			row, err := s.gateway.GetStudentByNumericalID(ctx, professorID, id)
			if err != nil {
				fail(id, "lookup_student", err)
				continue
			}
			if row == nil {
				// Known to the snapshot but missing from the store: write it now.
				student, known := state.Student(id)
				if !known {
					fail(id, "lookup_student", fmt.Errorf("student %s not stored", id))
					continue
				}
				if row, err = s.gateway.AddStudent(ctx, professorID, student); err != nil {
					fail(id, "create_student", err)
					continue
				}
				report.Created++
			}
			studentRowID = row.ID
		}
		if err := ensureEnrollment(ctx, s.gateway, studentRowID, course.ID); err != nil {
			fail(id, "create_enrollment", err)
			continue
		}
		report.Succeeded++
	}
	return unstored
}

func newReport(subjectCode string, parsed tabular.Result) *dto.ImportReport {
	return &dto.ImportReport{
		SubjectCode: subjectCode,
		Format:      string(parsed.Format),
		HeaderRow:   parsed.HeaderRow,
		Diagnostic:  parsed.Diagnostic,
		Rows:        len(parsed.Records),
		Warnings:    []roster.Warning{},
	}
}

func candidatesFrom(records []tabular.Record) []roster.Candidate {
	out := make([]roster.Candidate, 0, len(records))
	for _, r := range records {
		out = append(out, roster.Candidate{Row: r.Row, ID: r.ID, Name: r.Name, Email: r.Email})
	}
	return out
}

func requireActive(state roster.State, subjectCode string) error {
	_, list, ok := state.FindSubject(subjectCode)
	if !ok {
		return appErrors.Clone(appErrors.ErrNotFound, "subject not found")
	}
	if list != roster.ListActive {
		return appErrors.Clone(appErrors.ErrConflict, "subject is not active")
	}
	return nil
}

// ensureCourse returns the course backing subject, creating it for subjects saved before
// their course row existed.
func ensureCourse(ctx context.Context, gateway rosterGateway, professorID string, subject models.Subject) (*models.Course, error) {
	course, err := gateway.GetCourseByCode(ctx, professorID, subject.Code)
	if err != nil {
		return nil, err
	}
	if course != nil {
		return course, nil
	}
	return gateway.CreateCourse(ctx, professorID, subject)
}

// ensureEnrollment creates the enrollment row unless it already exists.
func ensureEnrollment(ctx context.Context, gateway rosterGateway, studentRowID, courseID string) error {
	existing, err := gateway.GetEnrollmentByStudentAndCourse(ctx, studentRowID, courseID)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}
	_, err = gateway.CreateEnrollment(ctx, studentRowID, courseID)
	return err
}
