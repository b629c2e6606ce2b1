package roster

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-roster-api/internal/models"
)

func seededState() State {
	st := NewState("prof-1")
	st = Reduce(st, UpsertSubject{Subject: models.Subject{Code: "CS101", Name: "Intro", Credits: 3, Term: models.TermFirst}})
	st = Reduce(st, ApplyImportPlan{Plan: Plan{
		SubjectCode: "CS101",
		ToCreate:    []Student{{ID: "1", Name: "Ann", Email: "ann@x.com", ArchivedSubjects: []string{}}},
		ToEnroll:    []StudentID{"1"},
	}})
	return st
}

func TestImportScenarioEndsWithTwoEnrolled(t *testing.T) {
	st := seededState()

	plan := Reconcile(ReconcileInput{
		SubjectCode: "CS101",
		Candidates: []Candidate{
			{Row: 2, ID: "2", Name: "Bea"},
			{Row: 3, ID: "2", Name: "Beatrice"},
			{Row: 4, ID: "1", Name: "Ann"},
		},
		Students: st.Students,
		Enrolled: st.Enrolled("CS101"),
	})

	assert.Len(t, plan.ToCreate, 1)
	assert.Equal(t, 1, plan.CountWarnings(WarningDuplicateInFile))
	assert.Equal(t, 1, plan.CountWarnings(WarningAlreadyEnrolled))

	optimistic := ApplyOptimistic(st, plan)
	assert.Len(t, optimistic.Enrolled("CS101"), 2)

	proj := Project(map[string][]string{"CS101": {"1", "2"}}, optimistic.Students)
	confirmed := ReconcileWithServer(optimistic, proj, nil)
	assert.Len(t, confirmed.Enrolled("CS101"), 2)
	assert.NoError(t, confirmed.Integrity())

	assert.Len(t, st.Enrolled("CS101"), 1, "input state must not change")
}

func TestReduceArchiveAndRestore(t *testing.T) {
	st := seededState()

	archived := Reduce(st, ArchiveStudent{StudentID: "1", SubjectCode: "CS101"})
	ann, _ := archived.Student("1")
	assert.True(t, ann.ArchivedFor("CS101"))
	assert.Empty(t, archived.Enrolled("CS101"))

	restored := Reduce(archived, RestoreStudent{StudentID: "1", SubjectCode: "CS101"})
	ann, _ = restored.Student("1")
	assert.False(t, ann.ArchivedFor("CS101"))
	assert.Equal(t, []StudentID{"1"}, restored.Enrolled("CS101"))

	ann, _ = st.Student("1")
	assert.False(t, ann.ArchivedFor("CS101"))
}

func TestReduceSubjectLifecycle(t *testing.T) {
	st := seededState()
	st = Reduce(st, RecordAttendance{Date: "2024-01-02", SubjectCode: "CS101", Entries: map[StudentID]models.AttendanceStatus{"1": models.AttendancePresent}})
	st = Reduce(st, ArchiveStudent{StudentID: "1", SubjectCode: "CS101"})

	st = Reduce(st, MoveSubject{Code: "CS101", From: ListActive, To: ListRemoved})
	_, list, ok := st.FindSubject("CS101")
	require.True(t, ok)
	assert.Equal(t, ListRemoved, list)

	st = Reduce(st, MoveSubject{Code: "CS101", From: ListRemoved, To: ListRecycleBin})
	_, list, _ = st.FindSubject("CS101")
	assert.Equal(t, ListRecycleBin, list)

	st = Reduce(st, PurgeSubject{Code: "CS101"})
	_, _, ok = st.FindSubject("CS101")
	assert.False(t, ok)
	assert.Empty(t, st.Records)
	ann, _ := st.Student("1")
	assert.Empty(t, ann.ArchivedSubjects)
}

func TestReduceRemoveStudentsPurgesRecords(t *testing.T) {
	st := seededState()
	st = Reduce(st, RecordAttendance{Date: "2024-01-02", SubjectCode: "CS101", Entries: map[StudentID]models.AttendanceStatus{"1": models.AttendanceAbsent}})
	st = Reduce(st, RecordAssessment{SubjectCode: "CS101", Assessment: models.Assessment{ID: "a1", Name: "Quiz", Type: "quiz", MaxPoints: 10, Scores: map[string]float64{"1": 8}}})

	st = Reduce(st, RemoveStudents{IDs: []StudentID{"1"}})

	_, ok := st.Student("1")
	assert.False(t, ok)
	assert.Empty(t, st.Enrolled("CS101"))
	assert.Empty(t, st.Records["2024-01-02"]["CS101"])
	assert.Empty(t, st.Grades["CS101"]["quiz"][0].Scores)
}

func TestReduceRecordAssessmentReplacesByID(t *testing.T) {
	st := seededState()
	st = Reduce(st, RecordAssessment{SubjectCode: "CS101", Assessment: models.Assessment{ID: "a1", Name: "Quiz", Type: "quiz", Scores: map[string]float64{}}})
	st = Reduce(st, RecordAssessment{SubjectCode: "CS101", Assessment: models.Assessment{ID: "a1", Name: "Midterm", Type: "exam", Scores: map[string]float64{}}})

	assert.NotContains(t, st.Grades["CS101"], "quiz")
	require.Len(t, st.Grades["CS101"]["exam"], 1)
	assert.Equal(t, "Midterm", st.Grades["CS101"]["exam"][0].Name)
}

func TestSnapshotExcludesEnrollmentAndRoundTrips(t *testing.T) {
	st := seededState()
	st = Reduce(st, AddAlert{Alert: NewAlert("al-1", models.AlertInfo, "1 succeeded, 0 failed", time.Now())})

	snap := st.Snapshot()
	back := FromSnapshot("prof-1", 4, snap)

	assert.Equal(t, int64(4), back.Version)
	assert.Equal(t, st.Students, back.Students)
	assert.Empty(t, back.Enrollment)
	require.Len(t, back.ActiveAlerts(), 1)

	dismissed := Reduce(back, DismissAlert{ID: "al-1"})
	assert.Empty(t, dismissed.ActiveAlerts())
	assert.Len(t, back.ActiveAlerts(), 1)
}

func TestFromSnapshotNormalizesKeys(t *testing.T) {
	snap := models.DashboardSnapshot{
		Students: []models.SnapshotStudent{{ID: " 12 ", Name: "Lu"}},
		Records: models.AttendanceRecords{
			"2024-01-02": {"CS101": {" 12": models.AttendancePresent}},
		},
	}

	st := FromSnapshot("prof-1", 1, snap)

	_, ok := st.Student("12")
	assert.True(t, ok)
	assert.Equal(t, models.AttendancePresent, st.Records["2024-01-02"]["CS101"]["12"])
}

func TestMergeStudentsPrefersRows(t *testing.T) {
	st := seededState()
	merged := st.MergeStudents([]Student{{ID: "1", Name: "Ann", Email: "ann@new.com"}, {ID: "2", Name: "Bo"}})

	ann, _ := merged.Student("1")
	assert.Equal(t, "ann@new.com", ann.Email)
	assert.Len(t, merged.Students, 2)
	assert.Len(t, st.Students, 1)
}
