package roster

import (
	"fmt"
	"strings"
)

// WarningKind classifies a reconciliation finding.
type WarningKind string

const (
	WarningInvalidID       WarningKind = "INVALID_ID"
	WarningMissingField    WarningKind = "MISSING_FIELD"
	WarningDuplicateInFile WarningKind = "DUPLICATE_IN_FILE"
	WarningAlreadyEnrolled WarningKind = "ALREADY_ENROLLED"
	WarningEmailConflict   WarningKind = "EMAIL_CONFLICT"
	WarningNameConflict    WarningKind = "NAME_CONFLICT"
)

// Warning is one per-row finding. Hard warnings mean the candidate was skipped because it
// collided with another identity.
type Warning struct {
	Kind          WarningKind `json:"kind"`
	StudentID     StudentID   `json:"studentId,omitempty"`
	Rows          []int       `json:"rows,omitempty"`
	Names         []string    `json:"names,omitempty"`
	Email         string      `json:"email,omitempty"`
	ConflictsWith StudentID   `json:"conflictsWith,omitempty"`
	Message       string      `json:"message"`
	Hard          bool        `json:"hard"`
}

// Candidate is one parsed import row before reconciliation.
type Candidate struct {
	Row   int
	ID    string
	Name  string
	Email string
}

// Unarchive removes SubjectCode from the student's archived set.
type Unarchive struct {
	StudentID   StudentID `json:"studentId"`
	SubjectCode string    `json:"subjectCode"`
}

// ReconcileInput is everything the reconciler consults.
type ReconcileInput struct {
	SubjectCode string
	Candidates  []Candidate
	Students    []Student
	// Enrolled is the current projected enrollment of SubjectCode.
	Enrolled    []StudentID
	EmailDomain string
}

// Plan is the additive delta produced by Reconcile.
type Plan struct {
	SubjectCode string      `json:"subjectCode"`
	ToCreate    []Student   `json:"toCreate"`
	ToUpdate    []Student   `json:"toUpdate"`
	ToEnroll    []StudentID `json:"toEnroll"`
	ToUnarchive []Unarchive `json:"toUnarchive"`
	Warnings    []Warning   `json:"warnings"`
}

// Empty reports whether applying the plan would change nothing.
func (p Plan) Empty() bool {
	return len(p.ToCreate) == 0 && len(p.ToUpdate) == 0 && len(p.ToEnroll) == 0 && len(p.ToUnarchive) == 0
}

// CountWarnings returns how many warnings of kind the plan carries.
func (p Plan) CountWarnings(kind WarningKind) int {
	n := 0
	for _, w := range p.Warnings {
		if w.Kind == kind {
			n++
		}
	}
	return n
}

// Reconcile classifies candidates against the roster in file order. It never fails: every
// rejected candidate is reported as a warning and the rest of the batch proceeds.
func Reconcile(in ReconcileInput) Plan {
	plan := Plan{
		SubjectCode: in.SubjectCode,
		ToCreate:    []Student{},
		ToUpdate:    []Student{},
		ToEnroll:    []StudentID{},
		ToUnarchive: []Unarchive{},
		Warnings:    []Warning{},
	}

	existing := make(map[StudentID]Student, len(in.Students))
	owners := make(map[string]StudentID, len(in.Students))
	for _, s := range in.Students {
		existing[s.ID] = s
		if key := emailKey(s.Email); key != "" {
			owners[key] = s.ID
		}
	}
	enrolled := make(map[StudentID]struct{}, len(in.Enrolled))
	for _, id := range in.Enrolled {
		enrolled[id] = struct{}{}
	}

	// first occurrence per id, plus the index of its duplicate warning once one exists
	type seenRow struct {
		row      int
		name     string
		dupIndex int
	}
	seen := make(map[StudentID]*seenRow, len(in.Candidates))

	for _, c := range in.Candidates {
		id := Normalize(c.ID)
		name := strings.TrimSpace(c.Name)

		if !id.Numeric() {
			plan.Warnings = append(plan.Warnings, Warning{
				Kind:      WarningInvalidID,
				StudentID: id,
				Rows:      []int{c.Row},
				Names:     nonEmpty(name),
				Message:   fmt.Sprintf("row %d: student id %q must be numeric", c.Row, string(id)),
			})
			continue
		}
		if name == "" {
			plan.Warnings = append(plan.Warnings, Warning{
				Kind:      WarningMissingField,
				StudentID: id,
				Rows:      []int{c.Row},
				Message:   fmt.Sprintf("row %d: student %s has no name", c.Row, id),
			})
			continue
		}

		if first, ok := seen[id]; ok {
			if first.dupIndex < 0 {
				first.dupIndex = len(plan.Warnings)
				plan.Warnings = append(plan.Warnings, Warning{
					Kind:      WarningDuplicateInFile,
					StudentID: id,
					Rows:      []int{first.row},
					Names:     []string{first.name},
				})
			}
			w := &plan.Warnings[first.dupIndex]
			w.Rows = append(w.Rows, c.Row)
			w.Names = append(w.Names, name)
			w.Message = fmt.Sprintf("student id %s appears %d times in the file (%s); only the first row was used",
				id, len(w.Rows), strings.Join(w.Names, ", "))
			continue
		}
		seen[id] = &seenRow{row: c.Row, name: name, dupIndex: -1}

		if _, ok := enrolled[id]; ok {
			plan.Warnings = append(plan.Warnings, Warning{
				Kind:      WarningAlreadyEnrolled,
				StudentID: id,
				Rows:      []int{c.Row},
				Names:     []string{name},
				Message:   fmt.Sprintf("student %s is already enrolled in %s", id, in.SubjectCode),
			})
			continue
		}

		current, found := existing[id]
		email := strings.TrimSpace(c.Email)
		switch {
		case ValidEmailShape(email):
		case found && current.Email != "":
			email = current.Email
		default:
			email = SynthesizeEmail(name, id, in.EmailDomain)
		}

		key := emailKey(email)
		if owner, ok := owners[key]; ok && owner != id {
			plan.Warnings = append(plan.Warnings, Warning{
				Kind:          WarningEmailConflict,
				StudentID:     id,
				Rows:          []int{c.Row},
				Names:         []string{name},
				Email:         email,
				ConflictsWith: owner,
				Message:       fmt.Sprintf("row %d: email %s already belongs to student %s", c.Row, email, owner),
				Hard:          true,
			})
			continue
		}
		// Claimed before the name check: later rows in the batch are held to it even when
		// this row is rejected.
		owners[key] = id

		if found && !sameName(current.Name, name) {
			plan.Warnings = append(plan.Warnings, Warning{
				Kind:      WarningNameConflict,
				StudentID: id,
				Rows:      []int{c.Row},
				Names:     []string{current.Name, name},
				Message:   fmt.Sprintf("row %d: student %s is on file as %q, not %q", c.Row, id, current.Name, name),
				Hard:      true,
			})
			continue
		}

		if found {
			if emailKey(current.Email) != key {
				if old := emailKey(current.Email); old != "" && owners[old] == id {
					delete(owners, old)
				}
				updated := current.clone()
				updated.Email = email
				plan.ToUpdate = append(plan.ToUpdate, updated)
			}
			if current.ArchivedFor(in.SubjectCode) {
				plan.ToUnarchive = append(plan.ToUnarchive, Unarchive{StudentID: id, SubjectCode: in.SubjectCode})
			}
		} else {
			plan.ToCreate = append(plan.ToCreate, Student{
				ID:               id,
				Name:             name,
				Email:            email,
				ArchivedSubjects: []string{},
			})
		}

		plan.ToEnroll = append(plan.ToEnroll, id)
	}

	return plan
}

func nonEmpty(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
