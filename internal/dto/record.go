package dto

// AttendanceRequest records statuses for one subject on one date.
type AttendanceRequest struct {
	Date    string            `json:"date" validate:"required,datetime=2006-01-02"`
	Entries map[string]string `json:"entries" validate:"required,min=1,dive,oneof=present absent"`
}

// AssessmentRequest inserts or replaces an assessment.
type AssessmentRequest struct {
	ID        string             `json:"id" validate:"omitempty,max=64"`
	Name      string             `json:"name" validate:"required,max=255"`
	Type      string             `json:"type" validate:"required,max=64"`
	Date      string             `json:"date" validate:"required,datetime=2006-01-02"`
	MaxPoints float64            `json:"maxPoints" validate:"gt=0"`
	Scores    map[string]float64 `json:"scores"`
}

// RecordResult reports which students were recorded and which were not projected into the subject.
type RecordResult struct {
	ID       string   `json:"id,omitempty"`
	Recorded []string `json:"recorded"`
	Skipped  []string `json:"skipped"`
}

// ExportFile is a rendered download.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}
