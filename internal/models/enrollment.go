package models

import "time"

// Enrollment links a student row to a course row.
type Enrollment struct {
	ID        string    `db:"id" json:"id"`
	StudentID string    `db:"student_id" json:"studentId"`
	CourseID  string    `db:"course_id" json:"courseId"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// EnrollmentRecord is an enrollment joined with the student's human-facing number.
type EnrollmentRecord struct {
	Enrollment
	StudentNumber *string `db:"student_number" json:"studentNumber,omitempty"`
	StudentName   *string `db:"student_name" json:"studentName,omitempty"`
}

// ExternalID returns the student number when the join produced one, else the raw student id.
func (r EnrollmentRecord) ExternalID() string {
	if r.StudentNumber != nil && *r.StudentNumber != "" {
		return *r.StudentNumber
	}
	return r.StudentID
}
