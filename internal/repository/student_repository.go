package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-roster-api/internal/models"
)

const studentColumns = "id, professor_id, student_number, full_name, email, archived_subjects, created_at, updated_at"

// StudentFilter narrows a roster listing.
type StudentFilter struct {
	Search       string
	ArchivedOnly bool
}

// StudentRepository handles persistence of roster students.
type StudentRepository struct {
	db *sqlx.DB
	sb sq.StatementBuilderType
}

// NewStudentRepository constructs the repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db, sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar)}
}

// FindByNumber returns the professor's student with the given numeric id.
func (r *StudentRepository) FindByNumber(ctx context.Context, professorID, number string) (*models.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE professor_id = $1 AND student_number = $2`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, professorID, number); err != nil {
		return nil, err
	}
	return &student, nil
}

// List returns the professor's students in creation order.
func (r *StudentRepository) List(ctx context.Context, professorID string, filter StudentFilter) ([]models.Student, error) {
	builder := r.sb.Select(strings.Split(studentColumns, ", ")...).
		From("students").
		Where(sq.Eq{"professor_id": professorID})
	if filter.Search != "" {
		pattern := "%" + strings.ToLower(filter.Search) + "%"
		builder = builder.Where(sq.Or{
			sq.Like{"LOWER(full_name)": pattern},
			sq.Like{"student_number": pattern},
			sq.Like{"LOWER(email)": pattern},
		})
	}
	if filter.ArchivedOnly {
		builder = builder.Where("cardinality(archived_subjects) > 0")
	}
	query, args, err := builder.OrderBy("created_at ASC", "student_number ASC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list students query: %w", err)
	}

	students := []models.Student{}
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return students, nil
}

// Create inserts a new student.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	student.UpdatedAt = now
	if student.ArchivedSubjects == nil {
		student.ArchivedSubjects = []string{}
	}
	const query = `INSERT INTO students (id, professor_id, student_number, full_name, email, archived_subjects, created_at, updated_at)
        VALUES (:id, :professor_id, :student_number, :full_name, :email, :archived_subjects, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return writeError("create student", err)
	}
	return nil
}

// Update rewrites name, email and archive markers of a student matched by professor and number.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	if student.ArchivedSubjects == nil {
		student.ArchivedSubjects = []string{}
	}
	const query = `UPDATE students SET full_name = :full_name, email = :email, archived_subjects = :archived_subjects, updated_at = :updated_at
        WHERE professor_id = :professor_id AND student_number = :student_number`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return writeError("update student", err)
	}
	return nil
}

// DeleteByNumbers hard-deletes students; their enrollments cascade.
func (r *StudentRepository) DeleteByNumbers(ctx context.Context, professorID string, numbers []string) (int64, error) {
	if len(numbers) == 0 {
		return 0, nil
	}
	query, args, err := r.sb.Delete("students").
		Where(sq.And{sq.Eq{"professor_id": professorID}, sq.Eq{"student_number": numbers}}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build delete students query: %w", err)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("delete students: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete students rows affected: %w", err)
	}
	return affected, nil
}
