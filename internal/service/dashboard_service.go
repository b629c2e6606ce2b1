package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-roster-api/internal/dto"
	"github.com/noah-isme/sma-roster-api/internal/roster"
	appErrors "github.com/noah-isme/sma-roster-api/pkg/errors"
)

type refreshGuard interface {
	syncNotifier
	Token(professorID string) RefreshToken
	Current(token RefreshToken) bool
}

// DashboardService serves the professor dashboard read model.
type DashboardService struct {
	state  stateManager
	sync   refreshGuard
	logger *zap.Logger
}

// NewDashboardService constructs a DashboardService.
func NewDashboardService(state stateManager, sync refreshGuard, logger *zap.Logger) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{state: state, sync: sync, logger: logger}
}

// State returns the current dashboard.
func (s *DashboardService) State(ctx context.Context, professorID string) (*dto.DashboardResponse, error) {
	state, err := s.state.Load(ctx, professorID)
	if err != nil {
		return nil, err
	}
	return dashboardResponse(state), nil
}

// Refresh rebuilds the dashboard from the store and saves it. The result is discarded when an
// import started or finished after the refresh was requested. The rebuild runs under the
// professor lock so it starts from the latest saved snapshot.
func (s *DashboardService) Refresh(ctx context.Context, professorID string) (*dto.RefreshResult, error) {
	token := s.sync.Token(professorID)
	if token.Busy {
		return &dto.RefreshResult{Applied: false}, nil
	}

	unlock := s.state.Lock(professorID)
	defer unlock()

	state, err := s.state.Load(ctx, professorID)
	if err != nil {
		return nil, err
	}
	if !s.sync.Current(token) {
		s.logger.Info("discarding stale dashboard refresh", zap.String("professor_id", professorID), zap.Uint64("generation", token.Generation))
		return &dto.RefreshResult{Applied: false}, nil
	}

	if state, err = s.state.Commit(ctx, state, SaveDebounced); err != nil {
		return nil, err
	}
	return &dto.RefreshResult{Dashboard: dashboardResponse(state), Applied: true}, nil
}

// DismissAlert hides an alert.
func (s *DashboardService) DismissAlert(ctx context.Context, professorID, alertID string) error {
	unlock := s.state.Lock(professorID)
	defer unlock()

	state, err := s.state.Load(ctx, professorID)
	if err != nil {
		return err
	}
	found := false
	for _, alert := range state.Alerts {
		if alert.ID == alertID {
			found = true
			break
		}
	}
	if !found {
		return appErrors.Clone(appErrors.ErrNotFound, "alert not found")
	}

	state = roster.Reduce(state, roster.DismissAlert{ID: alertID})
	if _, err := s.state.Commit(ctx, state, SaveDebounced); err != nil {
		return err
	}
	s.sync.Publish(ctx, professorID, "alert.dismissed")
	return nil
}

func dashboardResponse(state roster.State) *dto.DashboardResponse {
	enrollment := make(map[string][]string, len(state.Enrollment))
	for code, ids := range state.Enrollment {
		enrollment[code] = roster.Strings(ids)
	}
	return &dto.DashboardResponse{
		Version:    state.Version,
		Subjects:   subjectLists(state),
		Students:   state.Students,
		Enrollment: enrollment,
		Records:    state.Records,
		Grades:     state.Grades,
		Alerts:     state.ActiveAlerts(),
	}
}
