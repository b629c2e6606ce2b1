package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-roster-api/internal/models"
	"github.com/noah-isme/sma-roster-api/internal/roster"
)

type projectionStore interface {
	ListCourses(ctx context.Context, professorID string) ([]models.Course, error)
	GetEnrollmentsByCourse(ctx context.Context, courseID string) ([]models.EnrollmentRecord, error)
	GetStudentByNumericalID(ctx context.Context, professorID string, id roster.StudentID) (*models.Student, error)
}

// ProjectionService rebuilds a professor's enrollment map from persisted rows.
type ProjectionService struct {
	store   projectionStore
	metrics *MetricsService
	logger  *zap.Logger
}

// NewProjectionService constructs a ProjectionService.
func NewProjectionService(store projectionStore, metrics *MetricsService, logger *zap.Logger) *ProjectionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProjectionService{store: store, metrics: metrics, logger: logger}
}

// Project returns the enrollment projection for every course the professor owns, plus any
// students that had to be fetched because the caller did not know them. Enrollments whose
// student cannot be found in the store at all are dropped and logged.
func (s *ProjectionService) Project(ctx context.Context, professorID string, students []roster.Student) (roster.Projection, []roster.Student, error) {
	start := time.Now()
	defer func() { s.metrics.ObserveProjection(time.Since(start)) }()

	courses, err := s.store.ListCourses(ctx, professorID)
	if err != nil {
		return roster.Projection{}, nil, fmt.Errorf("list courses: %w", err)
	}

	rows := make(map[string][]string, len(courses))
	for _, course := range courses {
		records, err := s.store.GetEnrollmentsByCourse(ctx, course.ID)
		if err != nil {
			return roster.Projection{}, nil, fmt.Errorf("list enrollments for %s: %w", course.Code, err)
		}
		ids := make([]string, 0, len(records))
		for _, record := range records {
			ids = append(ids, record.ExternalID())
		}
		rows[course.Code] = ids
	}

	proj := roster.Project(rows, students)
	if len(proj.Missing) == 0 {
		return proj, nil, nil
	}

	fetched := make([]roster.Student, 0, len(proj.Missing))
	unresolved := make(map[roster.StudentID]struct{})
	for _, id := range proj.Missing {
		row, err := s.store.GetStudentByNumericalID(ctx, professorID, id)
		if err != nil {
			return roster.Projection{}, nil, err
		}
		if row == nil {
			unresolved[id] = struct{}{}
			continue
		}
		fetched = append(fetched, roster.FromModel(*row))
	}

	if len(unresolved) > 0 {
		for code, ids := range rows {
			kept := ids[:0]
			for _, raw := range ids {
				if _, drop := unresolved[roster.Normalize(raw)]; drop {
					s.logger.Warn("enrollment without student row",
						zap.String("professor_id", professorID),
						zap.String("subject", code),
						zap.String("student_id", raw),
					)
					continue
				}
				kept = append(kept, raw)
			}
			rows[code] = kept
		}
	}

	known := append(append(make([]roster.Student, 0, len(students)+len(fetched)), students...), fetched...)
	return roster.Project(rows, known), fetched, nil
}
