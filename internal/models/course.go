package models

import "time"

// Term identifies the half of the academic year a subject runs in.
type Term string

const (
	TermFirst  Term = "first"
	TermSecond Term = "second"
)

// Valid returns true when the term is a supported value.
func (t Term) Valid() bool {
	return t == TermFirst || t == TermSecond
}

// Course is the relational row backing a subject; enrollments reference it by surrogate id.
type Course struct {
	ID          string    `db:"id" json:"id"`
	ProfessorID string    `db:"professor_id" json:"professorId"`
	Code        string    `db:"code" json:"code"`
	Name        string    `db:"name" json:"name"`
	Credits     int       `db:"credits" json:"credits"`
	Term        Term      `db:"term" json:"term"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}
