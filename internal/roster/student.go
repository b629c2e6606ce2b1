package roster

import "github.com/noah-isme/sma-roster-api/internal/models"

// Student is the reconciler's view of a roster entry.
type Student struct {
	ID               StudentID `json:"id"`
	Name             string    `json:"name"`
	Email            string    `json:"email"`
	ArchivedSubjects []string  `json:"archivedSubjects"`
}

// ArchivedFor reports whether the student is archived for the subject.
func (s Student) ArchivedFor(subjectCode string) bool {
	for _, code := range s.ArchivedSubjects {
		if code == subjectCode {
			return true
		}
	}
	return false
}

// Archived reports whether the student is archived for at least one subject.
func (s Student) Archived() bool {
	return len(s.ArchivedSubjects) > 0
}

func (s Student) clone() Student {
	out := s
	out.ArchivedSubjects = append(make([]string, 0, len(s.ArchivedSubjects)), s.ArchivedSubjects...)
	return out
}

func (s Student) withArchived(subjectCode string) Student {
	out := s.clone()
	if !out.ArchivedFor(subjectCode) {
		out.ArchivedSubjects = append(out.ArchivedSubjects, subjectCode)
	}
	return out
}

func (s Student) withoutArchived(subjectCode string) Student {
	out := s.clone()
	kept := out.ArchivedSubjects[:0]
	for _, code := range out.ArchivedSubjects {
		if code != subjectCode {
			kept = append(kept, code)
		}
	}
	out.ArchivedSubjects = kept
	return out
}

// FromModel converts a stored student row, normalizing its id.
func FromModel(m models.Student) Student {
	return Student{
		ID:               Normalize(m.StudentNumber),
		Name:             m.FullName,
		Email:            m.Email,
		ArchivedSubjects: append([]string{}, m.ArchivedSubjects...),
	}
}

// FromModels converts stored student rows.
func FromModels(rows []models.Student) []Student {
	out := make([]Student, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromModel(row))
	}
	return out
}

// ToModel renders the student as a row owned by professorID. Surrogate ids and timestamps are
// left for the repository to fill.
func (s Student) ToModel(professorID string) models.Student {
	return models.Student{
		ProfessorID:      professorID,
		StudentNumber:    string(s.ID),
		FullName:         s.Name,
		Email:            s.Email,
		ArchivedSubjects: append([]string{}, s.ArchivedSubjects...),
	}
}
