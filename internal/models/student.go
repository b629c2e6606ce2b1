package models

import (
	"time"

	"github.com/lib/pq"
)

// Student is a learner on a professor's roster. StudentNumber is the numeric id shown to
// professors and used as the join key everywhere outside the database.
type Student struct {
	ID               string         `db:"id" json:"uuid"`
	ProfessorID      string         `db:"professor_id" json:"professorId"`
	StudentNumber    string         `db:"student_number" json:"id"`
	FullName         string         `db:"full_name" json:"name"`
	Email            string         `db:"email" json:"email"`
	ArchivedSubjects pq.StringArray `db:"archived_subjects" json:"archivedSubjects"`
	CreatedAt        time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time      `db:"updated_at" json:"updatedAt"`
}
