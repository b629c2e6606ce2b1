package roster

import (
	"fmt"
	"strings"
)

// ViolationReason explains why a projected id is inconsistent.
type ViolationReason string

const (
	ViolationMissingStudent ViolationReason = "missing_student"
	ViolationArchived       ViolationReason = "archived"
)

// Violation is one enrolled id that fails the roster invariant.
type Violation struct {
	SubjectCode string          `json:"subjectCode"`
	StudentID   StudentID       `json:"studentId"`
	Reason      ViolationReason `json:"reason"`
}

// IntegrityError blocks a save whose enrollment disagrees with the student list.
type IntegrityError struct {
	Violations []Violation
}

func (e *IntegrityError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, fmt.Sprintf("%s/%s (%s)", v.SubjectCode, v.StudentID, v.Reason))
	}
	return "enrollment integrity violated: " + strings.Join(parts, ", ")
}

// CheckIntegrity verifies every enrolled id has a student record that is not archived for
// the subject. It returns nil or an *IntegrityError listing every violation.
func CheckIntegrity(enrollment map[string][]StudentID, students []Student) error {
	byID := make(map[StudentID]Student, len(students))
	for _, s := range students {
		byID[s.ID] = s
	}

	var violations []Violation
	for _, code := range sortedKeys(enrollment) {
		for _, id := range enrollment[code] {
			student, ok := byID[id]
			switch {
			case !ok:
				violations = append(violations, Violation{SubjectCode: code, StudentID: id, Reason: ViolationMissingStudent})
			case student.ArchivedFor(code):
				violations = append(violations, Violation{SubjectCode: code, StudentID: id, Reason: ViolationArchived})
			}
		}
	}
	if len(violations) == 0 {
		return nil
	}
	return &IntegrityError{Violations: violations}
}
