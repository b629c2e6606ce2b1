package dto

// AddStudentRequest enrolls a single student into a subject.
type AddStudentRequest struct {
	ID    string `json:"id" validate:"required,numeric,max=32"`
	Name  string `json:"name" validate:"required,max=255"`
	Email string `json:"email" validate:"omitempty,email,max=255"`
}

// RosterEntry is one projected student of a subject.
type RosterEntry struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Email            string   `json:"email"`
	ArchivedSubjects []string `json:"archivedSubjects"`
}

// RosterResponse lists a subject's projected students.
type RosterResponse struct {
	SubjectCode string        `json:"subjectCode"`
	Students    []RosterEntry `json:"students"`
	Count       int           `json:"count"`
}

// StudentQuery filters the professor-wide student listing.
type StudentQuery struct {
	Search       string `form:"search" validate:"omitempty,max=100"`
	ArchivedOnly bool   `form:"archived"`
}

// DeleteArchivedResult lists hard-deleted students.
type DeleteArchivedResult struct {
	Deleted []string `json:"deleted"`
}
