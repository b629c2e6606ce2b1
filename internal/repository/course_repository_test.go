package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-roster-api/internal/models"
)

var courseRowColumns = []string{"id", "professor_id", "code", "name", "credits", "term", "created_at"}

func TestCourseRepositoryFindByCode(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM courses WHERE professor_id = $1 AND code = $2")).
		WithArgs("prof-1", "CS101").
		WillReturnRows(sqlmock.NewRows(courseRowColumns).AddRow("course-1", "prof-1", "CS101", "Intro", 4, "first", time.Now()))

	course, err := repo.FindByCode(context.Background(), "prof-1", "CS101")
	require.NoError(t, err)
	assert.Equal(t, "course-1", course.ID)
	assert.Equal(t, models.TermFirst, course.Term)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryListAndCreate(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectExec("INSERT INTO courses").
		WithArgs(sqlmock.AnyArg(), "prof-1", "CS101", "Intro", 4, models.TermFirst, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(regexp.QuoteMeta("FROM courses WHERE professor_id = $1 ORDER BY created_at ASC, code ASC")).
		WithArgs("prof-1").
		WillReturnRows(sqlmock.NewRows(courseRowColumns).AddRow("course-1", "prof-1", "CS101", "Intro", 4, "first", time.Now()))

	require.NoError(t, repo.Create(context.Background(), &models.Course{ProfessorID: "prof-1", Code: "CS101", Name: "Intro", Credits: 4, Term: models.TermFirst}))
	courses, err := repo.ListByProfessor(context.Background(), "prof-1")
	require.NoError(t, err)
	assert.Len(t, courses, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM courses WHERE professor_id = $1 AND code = $2")).
		WithArgs("prof-1", "CS101").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), "prof-1", "CS101"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
