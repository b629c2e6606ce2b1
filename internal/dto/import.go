package dto

import "github.com/noah-isme/sma-roster-api/internal/roster"

// ImportStatus summarises how an import ended.
type ImportStatus string

const (
	ImportCompleted ImportStatus = "COMPLETED"
	ImportPartial   ImportStatus = "PARTIAL"
	ImportEmpty     ImportStatus = "EMPTY"
	ImportNoChanges ImportStatus = "NO_CHANGES"
	ImportPreview   ImportStatus = "PREVIEW"
)

// ImportReport is returned for every import, including ones whose final save failed.
type ImportReport struct {
	SubjectCode   string           `json:"subjectCode"`
	Status        ImportStatus     `json:"status"`
	Format        string           `json:"format,omitempty"`
	HeaderRow     int              `json:"headerRow"`
	Diagnostic    string           `json:"diagnostic,omitempty"`
	Rows          int              `json:"rows"`
	Created       int              `json:"created"`
	Updated       int              `json:"updated"`
	Unarchived    int              `json:"unarchived"`
	Succeeded     int              `json:"succeeded"`
	Failed        int              `json:"failed"`
	EnrolledCount int              `json:"enrolledCount"`
	Warnings      []roster.Warning `json:"warnings"`
	Version       int64            `json:"version,omitempty"`
}

// ImportFile carries an uploaded roster file.
type ImportFile struct {
	Name     string
	MimeType string
	Data     []byte
}
