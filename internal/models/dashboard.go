package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// AttendanceStatus is the value recorded for one student on one date.
type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "present"
	AttendanceAbsent  AttendanceStatus = "absent"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	return s == AttendancePresent || s == AttendanceAbsent
}

// AttendanceRecords maps date (YYYY-MM-DD) -> subject code -> student id -> status.
type AttendanceRecords map[string]map[string]map[string]AttendanceStatus

// Assessment is one graded activity with the scores recorded for it.
type Assessment struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	Type      string             `json:"type"`
	Date      string             `json:"date"`
	MaxPoints float64            `json:"maxPoints"`
	Scores    map[string]float64 `json:"scores"`
}

// GradeBook maps subject code -> assessment type -> assessments.
type GradeBook map[string]map[string][]Assessment

// AlertKind classifies an alert.
type AlertKind string

const (
	AlertInfo    AlertKind = "info"
	AlertWarning AlertKind = "warning"
	AlertError   AlertKind = "error"
)

// Alert is an in-memory notice shown on the dashboard.
type Alert struct {
	ID        string    `json:"id"`
	Kind      AlertKind `json:"kind"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
	Dismissed bool      `json:"dismissed"`
}

// SnapshotStudent is the student shape stored in the dashboard document.
type SnapshotStudent struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Email            string   `json:"email"`
	ArchivedSubjects []string `json:"archivedSubjects"`
}

// DashboardSnapshot is the persisted dashboard document. Enrollment is never part of it.
type DashboardSnapshot struct {
	Subjects           []Subject         `json:"subjects"`
	RemovedSubjects    []Subject         `json:"removedSubjects"`
	RecycleBinSubjects []Subject         `json:"recycleBinSubjects"`
	Students           []SnapshotStudent `json:"students"`
	Records            AttendanceRecords `json:"records"`
	Grades             GradeBook         `json:"grades"`
	Alerts             []Alert           `json:"alerts"`
}

// DashboardState is the stored row holding a professor's snapshot.
type DashboardState struct {
	ProfessorID string         `db:"professor_id" json:"professorId"`
	Snapshot    types.JSONText `db:"snapshot" json:"snapshot"`
	Version     int64          `db:"version" json:"version"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updatedAt"`
}
