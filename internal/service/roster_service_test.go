package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-roster-api/internal/dto"
	"github.com/noah-isme/sma-roster-api/internal/roster"
	appErrors "github.com/noah-isme/sma-roster-api/pkg/errors"
)

func TestRosterAddStudentValidates(t *testing.T) {
	h := newRosterHarness(t)
	h.createSubject(t, "CS101", "Intro to Computing")

	_, err := h.roster.AddStudent(context.Background(), testProfessor, "CS101", dto.AddStudentRequest{ID: "A12", Name: "Ann"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = h.roster.AddStudent(context.Background(), testProfessor, "CS101", dto.AddStudentRequest{ID: "12", Name: "Ann", Email: "not-an-email"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestRosterAddStudentKeepsExplicitEmail(t *testing.T) {
	h := newRosterHarness(t)
	h.createSubject(t, "CS101", "Intro to Computing")

	report, err := h.roster.AddStudent(context.Background(), testProfessor, "CS101", dto.AddStudentRequest{ID: "12", Name: "Ann Lee", Email: "ann@uni.edu"})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Succeeded)

	resp, err := h.roster.Roster(context.Background(), testProfessor, "CS101")
	require.NoError(t, err)
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, "12", resp.Students[0].ID)
	assert.Equal(t, "ann@uni.edu", resp.Students[0].Email)
}

func TestRosterArchiveAndRestore(t *testing.T) {
	h := newRosterHarness(t)
	ctx := context.Background()
	h.createSubject(t, "CS101", "Intro to Computing")
	h.addStudent(t, "CS101", "1", "Ann")
	h.addStudent(t, "CS101", "2", "Bea")

	resp, err := h.roster.ArchiveStudent(ctx, testProfessor, "CS101", "1")
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, "2", resp.Students[0].ID)
	assert.Equal(t, 1, h.enrollments.count())

	state := h.load(t)
	ann, ok := state.Student("1")
	require.True(t, ok)
	assert.True(t, ann.ArchivedFor("CS101"))

	resp, err = h.roster.RestoreStudent(ctx, testProfessor, "CS101", "1")
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Count)
	assert.Equal(t, 2, h.enrollments.count())

	stored, _ := h.students.get(testProfessor, "1")
	assert.Empty(t, stored.ArchivedSubjects)
}

func TestRosterArchiveUnknownStudent(t *testing.T) {
	h := newRosterHarness(t)
	h.createSubject(t, "CS101", "Intro to Computing")

	_, err := h.roster.ArchiveStudent(context.Background(), testProfessor, "CS101", "99")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	_, err = h.roster.ArchiveStudent(context.Background(), testProfessor, "CS101", "x9")
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestRosterDeleteArchivedOnlyRemovesUnenrolled(t *testing.T) {
	h := newRosterHarness(t)
	ctx := context.Background()
	h.createSubject(t, "CS101", "Intro to Computing")
	h.createSubject(t, "CS102", "Data Structures")
	h.addStudent(t, "CS101", "5", "Eve")
	h.addStudent(t, "CS101", "6", "Fay")
	h.addStudent(t, "CS102", "6", "Fay")

	_, err := h.roster.ArchiveStudent(ctx, testProfessor, "CS101", "5")
	require.NoError(t, err)
	_, err = h.roster.ArchiveStudent(ctx, testProfessor, "CS101", "6")
	require.NoError(t, err)
	_, err = h.records.RecordAttendance(ctx, testProfessor, "CS102", dto.AttendanceRequest{
		Date: "2024-03-01", Entries: map[string]string{"6": "present"},
	})
	require.NoError(t, err)

	result, err := h.roster.DeleteArchived(ctx, testProfessor)
	require.NoError(t, err)
	assert.Equal(t, []string{"5"}, result.Deleted)

	_, eve := h.students.get(testProfessor, "5")
	assert.False(t, eve)
	_, fay := h.students.get(testProfessor, "6")
	assert.True(t, fay)

	state := h.load(t)
	_, ok := state.Student("5")
	assert.False(t, ok)
	assert.Equal(t, []roster.StudentID{"6"}, state.Enrolled("CS102"))
}

func TestRosterStudentsListing(t *testing.T) {
	h := newRosterHarness(t)
	ctx := context.Background()
	h.createSubject(t, "CS101", "Intro to Computing")
	h.addStudent(t, "CS101", "1", "Ann")
	h.addStudent(t, "CS101", "2", "Bea")
	_, err := h.roster.ArchiveStudent(ctx, testProfessor, "CS101", "2")
	require.NoError(t, err)

	all, err := h.roster.Students(ctx, testProfessor, dto.StudentQuery{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	archived, err := h.roster.Students(ctx, testProfessor, dto.StudentQuery{ArchivedOnly: true})
	require.NoError(t, err)
	require.Len(t, archived, 1)
	assert.Equal(t, "2", archived[0].ID)

	found, err := h.roster.Students(ctx, testProfessor, dto.StudentQuery{Search: "ann"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Ann", found[0].Name)
}
