package dto

import (
	"time"

	"github.com/noah-isme/sma-roster-api/internal/models"
	"github.com/noah-isme/sma-roster-api/internal/roster"
)

// DashboardResponse is the professor dashboard read model.
type DashboardResponse struct {
	Version    int64                    `json:"version"`
	Subjects   SubjectLists             `json:"subjects"`
	Students   []roster.Student         `json:"students"`
	Enrollment map[string][]string      `json:"enrollment"`
	Records    models.AttendanceRecords `json:"records"`
	Grades     models.GradeBook         `json:"grades"`
	Alerts     []models.Alert           `json:"alerts"`
}

// RefreshResult wraps a refreshed dashboard. Applied is false when an import overlapped the
// refresh and its result was discarded.
type RefreshResult struct {
	Dashboard *DashboardResponse `json:"dashboard"`
	Applied   bool               `json:"applied"`
}

// SyncEvent is published whenever a professor's dashboard changes.
type SyncEvent struct {
	ProfessorID string    `json:"professorId"`
	Generation  uint64    `json:"generation"`
	Reason      string    `json:"reason"`
	At          time.Time `json:"at"`
}
