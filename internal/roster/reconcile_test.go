package roster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconcileFirstOccurrenceWins(t *testing.T) {
	plan := Reconcile(ReconcileInput{
		SubjectCode: "CS101",
		Candidates: []Candidate{
			{Row: 2, ID: "5", Name: "A"},
			{Row: 3, ID: "5", Name: "B"},
		},
	})

	require.Len(t, plan.ToCreate, 1)
	assert.Equal(t, "A", plan.ToCreate[0].Name)
	assert.Equal(t, []StudentID{"5"}, plan.ToEnroll)

	require.Len(t, plan.Warnings, 1)
	w := plan.Warnings[0]
	assert.Equal(t, WarningDuplicateInFile, w.Kind)
	assert.Equal(t, []string{"A", "B"}, w.Names)
	assert.Equal(t, []int{2, 3}, w.Rows)
	assert.Contains(t, w.Message, "A")
	assert.Contains(t, w.Message, "B")
}

func TestReconcileGroupsRepeatedDuplicates(t *testing.T) {
	plan := Reconcile(ReconcileInput{
		SubjectCode: "CS101",
		Candidates: []Candidate{
			{Row: 1, ID: "5", Name: "A"},
			{Row: 2, ID: "6", Name: "C"},
			{Row: 3, ID: " 5", Name: "B"},
			{Row: 4, ID: "5 ", Name: "D"},
		},
	})

	assert.Equal(t, 1, plan.CountWarnings(WarningDuplicateInFile))
	assert.Equal(t, []string{"A", "B", "D"}, plan.Warnings[0].Names)
	assert.Len(t, plan.ToCreate, 2)
}

func TestReconcileAlreadyEnrolledIsNoop(t *testing.T) {
	plan := Reconcile(ReconcileInput{
		SubjectCode: "CS101",
		Candidates:  []Candidate{{Row: 1, ID: "5", Name: "A", Email: "new@x.com"}},
		Students:    []Student{{ID: "5", Name: "A", Email: "a@x.com"}},
		Enrolled:    []StudentID{"5"},
	})

	assert.True(t, plan.Empty())
	require.Len(t, plan.Warnings, 1)
	assert.Equal(t, WarningAlreadyEnrolled, plan.Warnings[0].Kind)
	assert.False(t, plan.Warnings[0].Hard)
}

func TestReconcileNameConflictLeavesExistingUntouched(t *testing.T) {
	students := []Student{{ID: "5", Name: "Alice", Email: "alice@x.com"}}
	plan := Reconcile(ReconcileInput{
		SubjectCode: "CS101",
		Candidates:  []Candidate{{Row: 1, ID: "5", Name: "Bob"}},
		Students:    students,
	})

	assert.True(t, plan.Empty())
	require.Len(t, plan.Warnings, 1)
	assert.Equal(t, WarningNameConflict, plan.Warnings[0].Kind)
	assert.True(t, plan.Warnings[0].Hard)
	assert.Equal(t, "Alice", students[0].Name)
}

func TestReconcileNameMatchIsCaseInsensitive(t *testing.T) {
	plan := Reconcile(ReconcileInput{
		SubjectCode: "CS101",
		Candidates:  []Candidate{{Row: 1, ID: "5", Name: "alice  SMITH"}},
		Students:    []Student{{ID: "5", Name: "Alice Smith", Email: "alice@x.com"}},
	})

	assert.Empty(t, plan.Warnings)
	assert.Empty(t, plan.ToUpdate)
	assert.Equal(t, []StudentID{"5"}, plan.ToEnroll)
}

func TestReconcileEmailUniqueness(t *testing.T) {
	plan := Reconcile(ReconcileInput{
		SubjectCode: "CS101",
		Candidates:  []Candidate{{Row: 1, ID: "9", Name: "C", Email: "A@X.com"}},
		Students:    []Student{{ID: "5", Name: "A", Email: "a@x.com"}},
	})

	assert.Empty(t, plan.ToCreate)
	assert.Empty(t, plan.ToEnroll)
	require.Len(t, plan.Warnings, 1)
	assert.Equal(t, WarningEmailConflict, plan.Warnings[0].Kind)
	assert.Equal(t, StudentID("5"), plan.Warnings[0].ConflictsWith)
}

func TestReconcileEmailClaimedWithinBatch(t *testing.T) {
	plan := Reconcile(ReconcileInput{
		SubjectCode: "CS101",
		Candidates: []Candidate{
			{Row: 1, ID: "1", Name: "One", Email: "shared@x.com"},
			{Row: 2, ID: "2", Name: "Two", Email: "shared@x.com"},
		},
	})

	require.Len(t, plan.ToCreate, 1)
	assert.Equal(t, StudentID("1"), plan.ToCreate[0].ID)
	assert.Equal(t, 1, plan.CountWarnings(WarningEmailConflict))
}

func TestReconcileNameConflictStillClaimsEmail(t *testing.T) {
	plan := Reconcile(ReconcileInput{
		SubjectCode: "CS101",
		Candidates: []Candidate{
			{Row: 1, ID: "5", Name: "Bob", Email: "free@x.com"},
			{Row: 2, ID: "6", Name: "Eve", Email: "free@x.com"},
		},
		Students: []Student{{ID: "5", Name: "Alice", Email: "alice@x.com"}},
	})

	assert.Equal(t, 1, plan.CountWarnings(WarningNameConflict))
	require.Equal(t, 1, plan.CountWarnings(WarningEmailConflict))
	assert.Empty(t, plan.ToEnroll)
	assert.Empty(t, plan.ToCreate)
	for _, w := range plan.Warnings {
		if w.Kind == WarningEmailConflict {
			assert.Equal(t, StudentID("5"), w.ConflictsWith)
		}
	}
}

func TestReconcileUnarchiveOnReenroll(t *testing.T) {
	plan := Reconcile(ReconcileInput{
		SubjectCode: "MATH101",
		Candidates:  []Candidate{{Row: 1, ID: "7", Name: "Gus"}},
		Students:    []Student{{ID: "7", Name: "Gus", Email: "gus@x.com", ArchivedSubjects: []string{"MATH101", "ART1"}}},
	})

	assert.Equal(t, []Unarchive{{StudentID: "7", SubjectCode: "MATH101"}}, plan.ToUnarchive)
	assert.Equal(t, []StudentID{"7"}, plan.ToEnroll)

	next := ApplyOptimistic(State{
		Students:   []Student{{ID: "7", Name: "Gus", Email: "gus@x.com", ArchivedSubjects: []string{"MATH101", "ART1"}}},
		Enrollment: map[string][]StudentID{},
	}, plan)
	gus, ok := next.Student("7")
	require.True(t, ok)
	assert.Equal(t, []string{"ART1"}, gus.ArchivedSubjects)
	assert.Equal(t, []StudentID{"7"}, next.Enrolled("MATH101"))
	assert.NoError(t, next.Integrity())
}

func TestReconcileInvalidRows(t *testing.T) {
	plan := Reconcile(ReconcileInput{
		SubjectCode: "CS101",
		Candidates: []Candidate{
			{Row: 1, ID: "S-100", Name: "Legacy"},
			{Row: 2, ID: "", Name: "No Id"},
			{Row: 3, ID: "12", Name: " "},
		},
	})

	assert.True(t, plan.Empty())
	assert.Equal(t, 2, plan.CountWarnings(WarningInvalidID))
	assert.Equal(t, 1, plan.CountWarnings(WarningMissingField))
}

func TestReconcileEmailResolution(t *testing.T) {
	plan := Reconcile(ReconcileInput{
		SubjectCode: "CS101",
		EmailDomain: "uni.edu",
		Candidates: []Candidate{
			{Row: 1, ID: "1", Name: "Ana Lima", Email: "not-an-email"},
			{Row: 2, ID: "2", Name: "Bo", Email: ""},
			{Row: 3, ID: "3", Name: "Cy", Email: "cy@new.edu"},
		},
		Students: []Student{
			{ID: "2", Name: "Bo", Email: "bo@old.edu"},
			{ID: "3", Name: "Cy", Email: "cy@old.edu"},
		},
	})

	require.Len(t, plan.ToCreate, 1)
	assert.Equal(t, "ana.lima.1@uni.edu", plan.ToCreate[0].Email)
	require.Len(t, plan.ToUpdate, 1)
	assert.Equal(t, StudentID("3"), plan.ToUpdate[0].ID)
	assert.Equal(t, "cy@new.edu", plan.ToUpdate[0].Email)
	assert.Equal(t, []StudentID{"1", "2", "3"}, plan.ToEnroll)
}

func TestReconcileReleasesReplacedEmail(t *testing.T) {
	plan := Reconcile(ReconcileInput{
		SubjectCode: "CS101",
		Candidates: []Candidate{
			{Row: 1, ID: "3", Name: "Cy", Email: "cy@new.edu"},
			{Row: 2, ID: "4", Name: "Di", Email: "cy@old.edu"},
		},
		Students: []Student{{ID: "3", Name: "Cy", Email: "cy@old.edu"}},
	})

	assert.Empty(t, plan.Warnings)
	assert.Equal(t, []StudentID{"3", "4"}, plan.ToEnroll)
}

func TestReconcileDoesNotMutateInput(t *testing.T) {
	students := []Student{{ID: "7", Name: "Gus", Email: "gus@x.com", ArchivedSubjects: []string{"MATH101"}}}
	plan := Reconcile(ReconcileInput{
		SubjectCode: "MATH101",
		Candidates:  []Candidate{{Row: 1, ID: "7", Name: "Gus", Email: "gus@y.com"}},
		Students:    students,
	})

	require.Len(t, plan.ToUpdate, 1)
	plan.ToUpdate[0].ArchivedSubjects[0] = "changed"
	assert.Equal(t, "gus@x.com", students[0].Email)
	assert.Equal(t, []string{"MATH101"}, students[0].ArchivedSubjects)
}
