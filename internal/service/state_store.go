package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-roster-api/internal/models"
	"github.com/noah-isme/sma-roster-api/internal/repository"
	"github.com/noah-isme/sma-roster-api/internal/roster"
	appErrors "github.com/noah-isme/sma-roster-api/pkg/errors"
)

type stateGateway interface {
	GetDashboardState(ctx context.Context, professorID string) (models.DashboardSnapshot, int64, error)
	SaveDashboardState(ctx context.Context, professorID string, snapshot models.DashboardSnapshot) (int64, error)
	ScheduleDashboardSave(ctx context.Context, professorID string, version int64, snapshot models.DashboardSnapshot) error
	ListStudents(ctx context.Context, professorID string, filter repository.StudentFilter) ([]models.Student, error)
}

type projector interface {
	Project(ctx context.Context, professorID string, students []roster.Student) (roster.Projection, []roster.Student, error)
}

// SaveMode selects how Commit persists the snapshot.
type SaveMode int

const (
	SaveDebounced SaveMode = iota
	SaveImmediate
)

// StateStore loads and commits professor dashboard state. Mutating flows hold the
// professor's lock from Load to Commit.
type StateStore struct {
	gateway   stateGateway
	projector projector
	logger    *zap.Logger

	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

// NewStateStore constructs a StateStore.
func NewStateStore(gateway stateGateway, projector projector, logger *zap.Logger) *StateStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StateStore{gateway: gateway, projector: projector, logger: logger, locks: make(map[string]*keyedLock)}
}

// Lock serialises mutations for one professor and returns the unlock function.
func (s *StateStore) Lock(professorID string) func() {
	s.mu.Lock()
	lock, ok := s.locks[professorID]
	if !ok {
		lock = &keyedLock{}
		s.locks[professorID] = lock
	}
	lock.refs++
	s.mu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()
		s.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(s.locks, professorID)
		}
		s.mu.Unlock()
	}
}

// Load assembles the professor's state: the saved document, overlaid with stored student rows,
// with enrollment rebuilt from the relational store.
func (s *StateStore) Load(ctx context.Context, professorID string) (roster.State, error) {
	snapshot, version, err := s.gateway.GetDashboardState(ctx, professorID)
	if err != nil {
		return roster.State{}, err
	}
	rows, err := s.gateway.ListStudents(ctx, professorID, repository.StudentFilter{})
	if err != nil {
		return roster.State{}, err
	}

	state := roster.FromSnapshot(professorID, version, snapshot).MergeStudents(roster.FromModels(rows))
	proj, fetched, err := s.projector.Project(ctx, professorID, state.Students)
	if err != nil {
		return roster.State{}, err
	}
	return roster.ReconcileWithServer(state, proj, fetched), nil
}

// Commit runs the integrity guard and persists the snapshot. Nothing is written when the
// guard fails. The returned state carries the new version for immediate saves.
func (s *StateStore) Commit(ctx context.Context, state roster.State, mode SaveMode) (roster.State, error) {
	if err := state.Integrity(); err != nil {
		var integrity *roster.IntegrityError
		if errors.As(err, &integrity) {
			s.logger.Error("integrity guard blocked dashboard save",
				zap.String("professor_id", state.ProfessorID),
				zap.Int("violations", len(integrity.Violations)),
			)
			return state, appErrors.WithDetails(appErrors.Clone(appErrors.ErrIntegrity, integrity.Error()), integrity.Violations)
		}
		return state, fmt.Errorf("integrity check: %w", err)
	}

	snapshot := state.Snapshot()
	if mode == SaveImmediate {
		version, err := s.gateway.SaveDashboardState(ctx, state.ProfessorID, snapshot)
		if err != nil {
			return state, err
		}
		state.Version = version
		return state, nil
	}
	if err := s.gateway.ScheduleDashboardSave(ctx, state.ProfessorID, state.Version, snapshot); err != nil {
		return state, err
	}
	return state, nil
}
