package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-roster-api/internal/dto"
	"github.com/noah-isme/sma-roster-api/internal/models"
	"github.com/noah-isme/sma-roster-api/internal/roster"
	appErrors "github.com/noah-isme/sma-roster-api/pkg/errors"
)

// RecordService records attendance and assessment scores for projected students only.
type RecordService struct {
	state     stateManager
	sync      syncNotifier
	validator *validator.Validate
	logger    *zap.Logger
}

// NewRecordService constructs a RecordService.
func NewRecordService(state stateManager, sync syncNotifier, validate *validator.Validate, logger *zap.Logger) *RecordService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecordService{state: state, sync: sync, validator: validate, logger: logger}
}

// RecordAttendance sets statuses for the subject's students on one date.
func (s *RecordService) RecordAttendance(ctx context.Context, professorID, subjectCode string, req dto.AttendanceRequest) (*dto.RecordResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}

	raw := make(map[string]models.AttendanceStatus, len(req.Entries))
	for id, status := range req.Entries {
		raw[id] = models.AttendanceStatus(status)
	}

	return s.record(ctx, professorID, subjectCode, keys(raw), func(state roster.State, recorded []roster.StudentID) roster.State {
		entries := make(map[roster.StudentID]models.AttendanceStatus, len(recorded))
		for id, status := range raw {
			if nid := roster.Normalize(id); contains(recorded, nid) {
				entries[nid] = status
			}
		}
		return roster.Reduce(state, roster.RecordAttendance{Date: req.Date, SubjectCode: subjectCode, Entries: entries})
	})
}

// RecordAssessment inserts or replaces an assessment and its scores.
func (s *RecordService) RecordAssessment(ctx context.Context, professorID, subjectCode string, req dto.AssessmentRequest) (*dto.RecordResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assessment payload")
	}
	for id, score := range req.Scores {
		if score < 0 || score > req.MaxPoints {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("score for %s must be between 0 and %g", id, req.MaxPoints))
		}
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	result, err := s.record(ctx, professorID, subjectCode, keys(req.Scores), func(state roster.State, recorded []roster.StudentID) roster.State {
		scores := make(map[string]float64, len(recorded))
		for id, score := range req.Scores {
			if nid := roster.Normalize(id); contains(recorded, nid) {
				scores[nid.String()] = score
			}
		}
		return roster.Reduce(state, roster.RecordAssessment{SubjectCode: subjectCode, Assessment: models.Assessment{
			ID:        req.ID,
			Name:      req.Name,
			Type:      req.Type,
			Date:      req.Date,
			MaxPoints: req.MaxPoints,
			Scores:    scores,
		}})
	})
	if result != nil {
		result.ID = req.ID
	}
	return result, err
}

func (s *RecordService) record(ctx context.Context, professorID, subjectCode string, rawIDs []string, apply func(roster.State, []roster.StudentID) roster.State) (*dto.RecordResult, error) {
	unlock := s.state.Lock(professorID)
	defer unlock()

	state, err := s.state.Load(ctx, professorID)
	if err != nil {
		return nil, err
	}
	if err := requireActive(state, subjectCode); err != nil {
		return nil, err
	}

	result := &dto.RecordResult{Recorded: []string{}, Skipped: []string{}}
	var recorded []roster.StudentID
	for _, raw := range rawIDs {
		id := roster.Normalize(raw)
		if state.IsEnrolled(subjectCode, id) {
			recorded = append(recorded, id)
			result.Recorded = append(result.Recorded, id.String())
			continue
		}
		result.Skipped = append(result.Skipped, raw)
	}

	if len(recorded) > 0 {
		state = apply(state, recorded)
		if _, err := s.state.Commit(ctx, state, SaveDebounced); err != nil {
			return nil, err
		}
		s.sync.Publish(ctx, professorID, "records")
	}
	if len(result.Skipped) > 0 {
		s.logger.Debug("skipped students not projected into subject",
			zap.String("professor_id", professorID),
			zap.String("subject", subjectCode),
			zap.Strings("student_ids", result.Skipped),
		)
	}
	return result, nil
}

func keys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func contains(ids []roster.StudentID, id roster.StudentID) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
