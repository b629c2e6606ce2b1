package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-roster-api/internal/models"
)

// EnrollmentRepository handles persistence of enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// ListByCourse returns a course's enrollments joined with student numbers, oldest first.
func (r *EnrollmentRepository) ListByCourse(ctx context.Context, courseID string) ([]models.EnrollmentRecord, error) {
	const query = `SELECT e.id, e.student_id, e.course_id, e.created_at, s.student_number, s.full_name AS student_name
        FROM enrollments e
        LEFT JOIN students s ON s.id = e.student_id
        WHERE e.course_id = $1
        ORDER BY e.created_at ASC, e.id ASC`
	records := []models.EnrollmentRecord{}
	if err := r.db.SelectContext(ctx, &records, query, courseID); err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	return records, nil
}

// FindByStudentAndCourse returns the enrollment linking the two rows.
func (r *EnrollmentRepository) FindByStudentAndCourse(ctx context.Context, studentID, courseID string) (*models.Enrollment, error) {
	const query = `SELECT id, student_id, course_id, created_at FROM enrollments WHERE student_id = $1 AND course_id = $2`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, studentID, courseID); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// Create inserts an enrollment. It does not check for an existing row first.
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	if enrollment.CreatedAt.IsZero() {
		enrollment.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO enrollments (id, student_id, course_id, created_at) VALUES (:id, :student_id, :course_id, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, enrollment); err != nil {
		return writeError("create enrollment", err)
	}
	return nil
}

// DeleteByStudentAndCourse removes the enrollment linking the two rows, if any.
func (r *EnrollmentRepository) DeleteByStudentAndCourse(ctx context.Context, studentID, courseID string) error {
	const query = `DELETE FROM enrollments WHERE student_id = $1 AND course_id = $2`
	if _, err := r.db.ExecContext(ctx, query, studentID, courseID); err != nil {
		return fmt.Errorf("delete enrollment: %w", err)
	}
	return nil
}
