package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-roster-api/internal/dto"
	"github.com/noah-isme/sma-roster-api/internal/models"
	appErrors "github.com/noah-isme/sma-roster-api/pkg/errors"
)

func TestSubjectCreateRejectsDuplicatesAndBadInput(t *testing.T) {
	h := newRosterHarness(t)
	ctx := context.Background()
	h.createSubject(t, "CS101", "Intro to Computing")

	_, err := h.subjects.Create(ctx, testProfessor, dto.CreateSubjectRequest{Code: "CS101", Name: "Again", Term: models.TermFirst})
	assert.ErrorIs(t, err, appErrors.ErrConflict)

	_, err = h.subjects.Create(ctx, testProfessor, dto.CreateSubjectRequest{Code: "  ", Name: "Blank", Term: models.TermFirst})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = h.subjects.Create(ctx, testProfessor, dto.CreateSubjectRequest{Code: "CS900", Name: "Summer", Term: "summer"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	course, err := h.gateway.GetCourseByCode(ctx, testProfessor, "CS101")
	require.NoError(t, err)
	require.NotNil(t, course)
	assert.Equal(t, "Intro to Computing", course.Name)
}

func TestSubjectLifecycle(t *testing.T) {
	h := newRosterHarness(t)
	ctx := context.Background()
	h.createSubject(t, "CS101", "Intro to Computing")
	h.addStudent(t, "CS101", "1", "Ann")

	lists, err := h.subjects.Archive(ctx, testProfessor, "CS101")
	require.NoError(t, err)
	assert.Empty(t, lists.Active)
	require.Len(t, lists.Removed, 1)

	_, err = h.subjects.Archive(ctx, testProfessor, "CS101")
	assert.ErrorIs(t, err, appErrors.ErrConflict)

	err = h.subjects.Delete(ctx, testProfessor, "CS101")
	assert.ErrorIs(t, err, appErrors.ErrConflict)

	lists, err = h.subjects.Recycle(ctx, testProfessor, "CS101")
	require.NoError(t, err)
	require.Len(t, lists.RecycleBin, 1)

	require.NoError(t, h.subjects.Delete(ctx, testProfessor, "CS101"))

	lists, err = h.subjects.List(ctx, testProfessor)
	require.NoError(t, err)
	assert.Empty(t, lists.Active)
	assert.Empty(t, lists.Removed)
	assert.Empty(t, lists.RecycleBin)
	assert.Zero(t, h.enrollments.count())

	course, err := h.gateway.GetCourseByCode(ctx, testProfessor, "CS101")
	require.NoError(t, err)
	assert.Nil(t, course)
}

func TestSubjectRestoreRebuildsEnrollment(t *testing.T) {
	h := newRosterHarness(t)
	ctx := context.Background()
	h.createSubject(t, "CS101", "Intro to Computing")
	h.addStudent(t, "CS101", "1", "Ann")
	h.addStudent(t, "CS101", "2", "Bea")

	_, err := h.subjects.Recycle(ctx, testProfessor, "CS101")
	require.NoError(t, err)

	lists, err := h.subjects.Restore(ctx, testProfessor, "CS101")
	require.NoError(t, err)
	require.Len(t, lists.Active, 1)
	assert.Equal(t, 2, lists.Active[0].EnrolledCount)

	_, err = h.subjects.Restore(ctx, testProfessor, "CS101")
	assert.ErrorIs(t, err, appErrors.ErrConflict)
}

func TestSubjectDeleteClearsArchiveMarkersAndRecords(t *testing.T) {
	h := newRosterHarness(t)
	ctx := context.Background()
	h.createSubject(t, "CS101", "Intro to Computing")
	h.addStudent(t, "CS101", "1", "Ann")
	h.addStudent(t, "CS101", "2", "Bea")
	_, err := h.records.RecordAttendance(ctx, testProfessor, "CS101", dto.AttendanceRequest{
		Date: "2024-02-01", Entries: map[string]string{"1": "present", "2": "absent"},
	})
	require.NoError(t, err)
	_, err = h.roster.ArchiveStudent(ctx, testProfessor, "CS101", "2")
	require.NoError(t, err)

	_, err = h.subjects.Recycle(ctx, testProfessor, "CS101")
	require.NoError(t, err)
	require.NoError(t, h.subjects.Delete(ctx, testProfessor, "CS101"))

	bea, _ := h.students.get(testProfessor, "2")
	assert.Empty(t, bea.ArchivedSubjects)

	state := h.load(t)
	for _, bySubject := range state.Records {
		_, ok := bySubject["CS101"]
		assert.False(t, ok)
	}
	_, ok := state.Grades["CS101"]
	assert.False(t, ok)
}

func TestSubjectMissing(t *testing.T) {
	h := newRosterHarness(t)

	_, err := h.subjects.Archive(context.Background(), testProfessor, "NOPE")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	assert.ErrorIs(t, h.subjects.Delete(context.Background(), testProfessor, "NOPE"), appErrors.ErrNotFound)
}
