package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-roster-api/internal/models"
)

// CourseRepository handles persistence of the course rows backing subjects.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// FindByCode returns the professor's course with the given subject code.
func (r *CourseRepository) FindByCode(ctx context.Context, professorID, code string) (*models.Course, error) {
	const query = `SELECT id, professor_id, code, name, credits, term, created_at FROM courses WHERE professor_id = $1 AND code = $2`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, professorID, code); err != nil {
		return nil, err
	}
	return &course, nil
}

// ListByProfessor returns every course owned by the professor.
func (r *CourseRepository) ListByProfessor(ctx context.Context, professorID string) ([]models.Course, error) {
	const query = `SELECT id, professor_id, code, name, credits, term, created_at FROM courses WHERE professor_id = $1 ORDER BY created_at ASC, code ASC`
	courses := []models.Course{}
	if err := r.db.SelectContext(ctx, &courses, query, professorID); err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return courses, nil
}

// Create inserts a course.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	if course.CreatedAt.IsZero() {
		course.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO courses (id, professor_id, code, name, credits, term, created_at)
        VALUES (:id, :professor_id, :code, :name, :credits, :term, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return writeError("create course", err)
	}
	return nil
}

// Delete removes the course; its enrollments cascade.
func (r *CourseRepository) Delete(ctx context.Context, professorID, code string) error {
	const query = `DELETE FROM courses WHERE professor_id = $1 AND code = $2`
	if _, err := r.db.ExecContext(ctx, query, professorID, code); err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	return nil
}
