package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-roster-api/internal/dto"
	"github.com/noah-isme/sma-roster-api/internal/models"
	"github.com/noah-isme/sma-roster-api/internal/roster"
	appErrors "github.com/noah-isme/sma-roster-api/pkg/errors"
)

type subjectGateway interface {
	GetCourseByCode(ctx context.Context, professorID, code string) (*models.Course, error)
	CreateCourse(ctx context.Context, professorID string, subject models.Subject) (*models.Course, error)
	DeleteCourse(ctx context.Context, professorID, code string) error
	UpdateStudent(ctx context.Context, professorID string, student roster.Student) error
}

// SubjectService manages the subject lifecycle: active, removed, recycle bin, deleted.
type SubjectService struct {
	gateway   subjectGateway
	state     stateManager
	projector projector
	sync      syncNotifier
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewSubjectService constructs a SubjectService.
func NewSubjectService(gateway subjectGateway, state stateManager, projector projector, sync syncNotifier, validate *validator.Validate, logger *zap.Logger) *SubjectService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubjectService{gateway: gateway, state: state, projector: projector, sync: sync, validator: validate, logger: logger, now: time.Now}
}

// List returns the professor's subjects grouped by lifecycle stage.
func (s *SubjectService) List(ctx context.Context, professorID string) (*dto.SubjectLists, error) {
	state, err := s.state.Load(ctx, professorID)
	if err != nil {
		return nil, err
	}
	lists := subjectLists(state)
	return &lists, nil
}

// Create adds an active subject together with its course row.
func (s *SubjectService) Create(ctx context.Context, professorID string, req dto.CreateSubjectRequest) (*models.Subject, error) {
	req.Code = strings.TrimSpace(req.Code)
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid subject payload")
	}

	unlock := s.state.Lock(professorID)
	defer unlock()

	state, err := s.state.Load(ctx, professorID)
	if err != nil {
		return nil, err
	}
	if _, _, exists := state.FindSubject(req.Code); exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "subject code already exists")
	}

	subject := models.Subject{Code: req.Code, Name: req.Name, Credits: req.Credits, Term: req.Term, CreatedAt: s.now().UTC()}
	course, err := s.gateway.GetCourseByCode(ctx, professorID, subject.Code)
	if err != nil {
		return nil, err
	}
	if course == nil {
		if _, err := s.gateway.CreateCourse(ctx, professorID, subject); err != nil {
			return nil, err
		}
	}

	state = roster.Reduce(state, roster.UpsertSubject{Subject: subject})
	if _, err := s.state.Commit(ctx, state, SaveImmediate); err != nil {
		return nil, err
	}
	s.sync.Publish(ctx, professorID, "subject.created")
	return &subject, nil
}

// Archive moves an active subject to the removed list.
func (s *SubjectService) Archive(ctx context.Context, professorID, code string) (*dto.SubjectLists, error) {
	return s.move(ctx, professorID, code, "subject.archived", func(from roster.SubjectList) (roster.SubjectList, error) {
		if from != roster.ListActive {
			return "", appErrors.Clone(appErrors.ErrConflict, "only active subjects can be archived")
		}
		return roster.ListRemoved, nil
	})
}

// Recycle moves a removed or active subject to the recycle bin.
func (s *SubjectService) Recycle(ctx context.Context, professorID, code string) (*dto.SubjectLists, error) {
	return s.move(ctx, professorID, code, "subject.recycled", func(from roster.SubjectList) (roster.SubjectList, error) {
		if from == roster.ListRecycleBin {
			return "", appErrors.Clone(appErrors.ErrConflict, "subject is already in the recycle bin")
		}
		return roster.ListRecycleBin, nil
	})
}

// Restore brings a removed or recycled subject back to the active list and rebuilds its
// enrollment from the store.
func (s *SubjectService) Restore(ctx context.Context, professorID, code string) (*dto.SubjectLists, error) {
	return s.move(ctx, professorID, code, "subject.restored", func(from roster.SubjectList) (roster.SubjectList, error) {
		if from == roster.ListActive {
			return "", appErrors.Clone(appErrors.ErrConflict, "subject is already active")
		}
		return roster.ListActive, nil
	})
}

func (s *SubjectService) move(ctx context.Context, professorID, code, reason string, target func(from roster.SubjectList) (roster.SubjectList, error)) (*dto.SubjectLists, error) {
	unlock := s.state.Lock(professorID)
	defer unlock()

	state, err := s.state.Load(ctx, professorID)
	if err != nil {
		return nil, err
	}
	_, from, ok := state.FindSubject(code)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
	}
	to, err := target(from)
	if err != nil {
		return nil, err
	}

	state = roster.Reduce(state, roster.MoveSubject{Code: code, From: from, To: to})
	if to == roster.ListActive {
		proj, fetched, err := s.projector.Project(ctx, professorID, state.Students)
		if err != nil {
			return nil, err
		}
		state = roster.ReconcileWithServer(state, proj, fetched)
	}
	if state, err = s.state.Commit(ctx, state, SaveImmediate); err != nil {
		return nil, err
	}

	s.sync.Publish(ctx, professorID, reason)
	lists := subjectLists(state)
	return &lists, nil
}

// Delete permanently removes a recycled subject with its course row, enrollments, records,
// grades and archive markers.
func (s *SubjectService) Delete(ctx context.Context, professorID, code string) error {
	unlock := s.state.Lock(professorID)
	defer unlock()

	state, err := s.state.Load(ctx, professorID)
	if err != nil {
		return err
	}
	_, list, ok := state.FindSubject(code)
	if !ok {
		return appErrors.Clone(appErrors.ErrNotFound, "subject not found")
	}
	if list != roster.ListRecycleBin {
		return appErrors.Clone(appErrors.ErrConflict, "only subjects in the recycle bin can be deleted")
	}

	if err := s.gateway.DeleteCourse(ctx, professorID, code); err != nil {
		return err
	}
	purged := roster.Reduce(state, roster.PurgeSubject{Code: code})
	for _, before := range state.Students {
		if !before.ArchivedFor(code) {
			continue
		}
		after, _ := purged.Student(before.ID)
		if err := s.gateway.UpdateStudent(ctx, professorID, after); err != nil {
			return err
		}
	}

	if _, err := s.state.Commit(ctx, purged, SaveImmediate); err != nil {
		return err
	}
	s.sync.Publish(ctx, professorID, "subject.deleted")
	s.logger.Info("subject deleted", zap.String("professor_id", professorID), zap.String("subject", code))
	return nil
}

func subjectLists(state roster.State) dto.SubjectLists {
	summarise := func(subjects []models.Subject) []dto.SubjectSummary {
		out := make([]dto.SubjectSummary, 0, len(subjects))
		for _, subj := range subjects {
			out = append(out, dto.SubjectSummary{Subject: subj, EnrolledCount: len(state.Enrolled(subj.Code))})
		}
		return out
	}
	return dto.SubjectLists{
		Active:     summarise(state.Subjects),
		Removed:    summarise(state.RemovedSubjects),
		RecycleBin: summarise(state.RecycleBinSubjects),
	}
}
