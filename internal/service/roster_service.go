package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-roster-api/internal/dto"
	"github.com/noah-isme/sma-roster-api/internal/models"
	"github.com/noah-isme/sma-roster-api/internal/repository"
	"github.com/noah-isme/sma-roster-api/internal/roster"
	appErrors "github.com/noah-isme/sma-roster-api/pkg/errors"
)

type candidateImporter interface {
	ImportCandidates(ctx context.Context, professorID, subjectCode string, candidates []roster.Candidate) (*dto.ImportReport, error)
}

type studentDirectory interface {
	ListStudents(ctx context.Context, professorID string, filter repository.StudentFilter) ([]models.Student, error)
	DeleteStudents(ctx context.Context, professorID string, ids []roster.StudentID) (int64, error)
}

// RosterService handles single-student roster changes within subjects.
type RosterService struct {
	gateway   rosterGateway
	directory studentDirectory
	state     stateManager
	projector projector
	importer  candidateImporter
	sync      syncNotifier
	validator *validator.Validate
	logger    *zap.Logger
}

// NewRosterService constructs a RosterService.
func NewRosterService(gateway rosterGateway, directory studentDirectory, state stateManager, projector projector, importer candidateImporter, sync syncNotifier, validate *validator.Validate, logger *zap.Logger) *RosterService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RosterService{
		gateway:   gateway,
		directory: directory,
		state:     state,
		projector: projector,
		importer:  importer,
		sync:      sync,
		validator: validate,
		logger:    logger,
	}
}

// Roster lists the students projected into a subject, in enrollment order.
func (s *RosterService) Roster(ctx context.Context, professorID, subjectCode string) (*dto.RosterResponse, error) {
	state, err := s.state.Load(ctx, professorID)
	if err != nil {
		return nil, err
	}
	if _, _, ok := state.FindSubject(subjectCode); !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
	}
	return rosterResponse(state, subjectCode), nil
}

// Students lists the professor's stored students.
func (s *RosterService) Students(ctx context.Context, professorID string, query dto.StudentQuery) ([]dto.RosterEntry, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student query")
	}
	rows, err := s.directory.ListStudents(ctx, professorID, repository.StudentFilter{Search: query.Search, ArchivedOnly: query.ArchivedOnly})
	if err != nil {
		return nil, err
	}
	out := make([]dto.RosterEntry, 0, len(rows))
	for _, st := range roster.FromModels(rows) {
		out = append(out, rosterEntry(st))
	}
	return out, nil
}

// AddStudent enrolls one student through the reconciler, so conflicts and unarchiving behave
// exactly as they do for a file import.
func (s *RosterService) AddStudent(ctx context.Context, professorID, subjectCode string, req dto.AddStudentRequest) (*dto.ImportReport, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	return s.importer.ImportCandidates(ctx, professorID, subjectCode, []roster.Candidate{{Row: 1, ID: req.ID, Name: req.Name, Email: req.Email}})
}

// ArchiveStudent archives a student for one subject and removes the enrollment row.
func (s *RosterService) ArchiveStudent(ctx context.Context, professorID, subjectCode, rawID string) (*dto.RosterResponse, error) {
	id := roster.Normalize(rawID)
	return s.mutateStudent(ctx, professorID, subjectCode, id, "archive", func(ctx context.Context, state roster.State, row *models.Student, course *models.Course) (roster.State, error) {
		state = roster.Reduce(state, roster.ArchiveStudent{StudentID: id, SubjectCode: subjectCode})
		student, _ := state.Student(id)
		if err := s.gateway.UpdateStudent(ctx, professorID, student); err != nil {
			return state, err
		}
		if course != nil {
			if err := s.gateway.DeleteEnrollmentByStudentAndCourse(ctx, row.ID, course.ID); err != nil {
				return state, err
			}
		}
		return state, nil
	})
}

// RestoreStudent clears the archive marker and makes sure the enrollment row exists.
func (s *RosterService) RestoreStudent(ctx context.Context, professorID, subjectCode, rawID string) (*dto.RosterResponse, error) {
	id := roster.Normalize(rawID)
	return s.mutateStudent(ctx, professorID, subjectCode, id, "restore", func(ctx context.Context, state roster.State, row *models.Student, course *models.Course) (roster.State, error) {
		state = roster.Reduce(state, roster.RestoreStudent{StudentID: id, SubjectCode: subjectCode})
		student, _ := state.Student(id)
		if err := s.gateway.UpdateStudent(ctx, professorID, student); err != nil {
			return state, err
		}
		if course == nil {
			subject, _, _ := state.FindSubject(subjectCode)
			created, err := s.gateway.CreateCourse(ctx, professorID, subject)
			if err != nil {
				return state, err
			}
			course = created
		}
		return state, ensureEnrollment(ctx, s.gateway, row.ID, course.ID)
	})
}

type studentMutation func(ctx context.Context, state roster.State, row *models.Student, course *models.Course) (roster.State, error)

func (s *RosterService) mutateStudent(ctx context.Context, professorID, subjectCode string, id roster.StudentID, reason string, mutate studentMutation) (*dto.RosterResponse, error) {
	if !id.Numeric() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student id must be numeric")
	}

	unlock := s.state.Lock(professorID)
	defer unlock()

	state, err := s.state.Load(ctx, professorID)
	if err != nil {
		return nil, err
	}
	if _, _, ok := state.FindSubject(subjectCode); !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
	}
	if _, ok := state.Student(id); !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	row, err := s.gateway.GetStudentByNumericalID(ctx, professorID, id)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	course, err := s.gateway.GetCourseByCode(ctx, professorID, subjectCode)
	if err != nil {
		return nil, err
	}

	state, err = mutate(ctx, state, row, course)
	if err != nil {
		return nil, err
	}

	proj, fetched, err := s.projector.Project(ctx, professorID, state.Students)
	if err != nil {
		return nil, err
	}
	state = roster.ReconcileWithServer(state, proj, fetched)
	if state, err = s.state.Commit(ctx, state, SaveImmediate); err != nil {
		return nil, err
	}

	s.sync.Publish(ctx, professorID, "student."+reason)
	s.logger.Info("student roster change",
		zap.String("professor_id", professorID),
		zap.String("subject", subjectCode),
		zap.String("student_id", id.String()),
		zap.String("action", reason),
	)
	return rosterResponse(state, subjectCode), nil
}

// DeleteArchived hard-deletes students that are archived somewhere and projected nowhere,
// together with their attendance and scores.
func (s *RosterService) DeleteArchived(ctx context.Context, professorID string) (*dto.DeleteArchivedResult, error) {
	unlock := s.state.Lock(professorID)
	defer unlock()

	state, err := s.state.Load(ctx, professorID)
	if err != nil {
		return nil, err
	}

	var ids []roster.StudentID
	for _, st := range state.Students {
		if st.Archived() && !state.EnrolledAnywhere(st.ID) {
			ids = append(ids, st.ID)
		}
	}
	result := &dto.DeleteArchivedResult{Deleted: roster.Strings(ids)}
	if len(ids) == 0 {
		return result, nil
	}

	if _, err := s.directory.DeleteStudents(ctx, professorID, ids); err != nil {
		return nil, err
	}
	state = roster.Reduce(state, roster.RemoveStudents{IDs: ids})
	if _, err := s.state.Commit(ctx, state, SaveImmediate); err != nil {
		return nil, err
	}

	s.sync.Publish(ctx, professorID, "students.deleted")
	return result, nil
}

func rosterResponse(state roster.State, subjectCode string) *dto.RosterResponse {
	enrolled := state.Enrolled(subjectCode)
	out := &dto.RosterResponse{SubjectCode: subjectCode, Students: make([]dto.RosterEntry, 0, len(enrolled))}
	for _, id := range enrolled {
		if st, ok := state.Student(id); ok {
			out.Students = append(out.Students, rosterEntry(st))
		}
	}
	out.Count = len(out.Students)
	return out
}

func rosterEntry(st roster.Student) dto.RosterEntry {
	archived := st.ArchivedSubjects
	if archived == nil {
		archived = []string{}
	}
	return dto.RosterEntry{ID: st.ID.String(), Name: st.Name, Email: st.Email, ArchivedSubjects: archived}
}
