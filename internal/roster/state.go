package roster

import (
	"sort"
	"time"

	"github.com/noah-isme/sma-roster-api/internal/models"
)

// SubjectList names one of the three subject lists of the dashboard.
type SubjectList string

const (
	ListActive     SubjectList = "active"
	ListRemoved    SubjectList = "removed"
	ListRecycleBin SubjectList = "recycleBin"
)

// State is a professor's dashboard state. Enrollment is always a projection of the
// relational store and is never persisted with the rest.
type State struct {
	ProfessorID        string                   `json:"professorId"`
	Version            int64                    `json:"version"`
	Subjects           []models.Subject         `json:"subjects"`
	RemovedSubjects    []models.Subject         `json:"removedSubjects"`
	RecycleBinSubjects []models.Subject         `json:"recycleBinSubjects"`
	Students           []Student                `json:"students"`
	Enrollment         map[string][]StudentID   `json:"enrollment"`
	Records            models.AttendanceRecords `json:"records"`
	Grades             models.GradeBook         `json:"grades"`
	Alerts             []models.Alert           `json:"alerts"`
}

// NewState returns an empty state for professorID.
func NewState(professorID string) State {
	return State{
		ProfessorID:        professorID,
		Subjects:           []models.Subject{},
		RemovedSubjects:    []models.Subject{},
		RecycleBinSubjects: []models.Subject{},
		Students:           []Student{},
		Enrollment:         map[string][]StudentID{},
		Records:            models.AttendanceRecords{},
		Grades:             models.GradeBook{},
		Alerts:             []models.Alert{},
	}
}

// Clone deep-copies the state.
func (s State) Clone() State {
	out := NewState(s.ProfessorID)
	out.Version = s.Version
	out.Subjects = append(out.Subjects, s.Subjects...)
	out.RemovedSubjects = append(out.RemovedSubjects, s.RemovedSubjects...)
	out.RecycleBinSubjects = append(out.RecycleBinSubjects, s.RecycleBinSubjects...)
	for _, st := range s.Students {
		out.Students = append(out.Students, st.clone())
	}
	for code, ids := range s.Enrollment {
		out.Enrollment[code] = append([]StudentID{}, ids...)
	}
	for date, bySubject := range s.Records {
		out.Records[date] = make(map[string]map[string]models.AttendanceStatus, len(bySubject))
		for code, byStudent := range bySubject {
			entries := make(map[string]models.AttendanceStatus, len(byStudent))
			for id, status := range byStudent {
				entries[id] = status
			}
			out.Records[date][code] = entries
		}
	}
	for code, byType := range s.Grades {
		out.Grades[code] = make(map[string][]models.Assessment, len(byType))
		for kind, list := range byType {
			copied := make([]models.Assessment, len(list))
			for i, a := range list {
				copied[i] = cloneAssessment(a)
			}
			out.Grades[code][kind] = copied
		}
	}
	out.Alerts = append(out.Alerts, s.Alerts...)
	return out
}

func cloneAssessment(a models.Assessment) models.Assessment {
	out := a
	out.Scores = make(map[string]float64, len(a.Scores))
	for id, score := range a.Scores {
		out.Scores[id] = score
	}
	return out
}

// Student looks a student up by id.
func (s State) Student(id StudentID) (Student, bool) {
	for _, st := range s.Students {
		if st.ID == id {
			return st, true
		}
	}
	return Student{}, false
}

// FindSubject locates a subject in any of the three lists.
func (s State) FindSubject(code string) (models.Subject, SubjectList, bool) {
	for _, list := range []SubjectList{ListActive, ListRemoved, ListRecycleBin} {
		for _, subj := range *s.list(list) {
			if subj.Code == code {
				return subj, list, true
			}
		}
	}
	return models.Subject{}, "", false
}

// Enrolled returns the projected students of subjectCode.
func (s State) Enrolled(subjectCode string) []StudentID {
	return s.Enrollment[subjectCode]
}

// IsEnrolled reports whether id is projected into subjectCode.
func (s State) IsEnrolled(subjectCode string, id StudentID) bool {
	for _, enrolled := range s.Enrollment[subjectCode] {
		if enrolled == id {
			return true
		}
	}
	return false
}

// EnrolledAnywhere reports whether id is projected into any subject.
func (s State) EnrolledAnywhere(id StudentID) bool {
	for code := range s.Enrollment {
		if s.IsEnrolled(code, id) {
			return true
		}
	}
	return false
}

// Integrity runs the integrity guard over the state.
func (s State) Integrity() error {
	return CheckIntegrity(s.Enrollment, s.Students)
}

func (s *State) list(which SubjectList) *[]models.Subject {
	switch which {
	case ListRemoved:
		return &s.RemovedSubjects
	case ListRecycleBin:
		return &s.RecycleBinSubjects
	default:
		return &s.Subjects
	}
}

func (s *State) upsertStudent(st Student) {
	for i := range s.Students {
		if s.Students[i].ID == st.ID {
			s.Students[i] = st
			return
		}
	}
	s.Students = append(s.Students, st)
}

func (s *State) mapStudent(id StudentID, fn func(Student) Student) {
	for i := range s.Students {
		if s.Students[i].ID == id {
			s.Students[i] = fn(s.Students[i])
			return
		}
	}
}

func (s *State) enroll(code string, id StudentID) {
	if !s.IsEnrolled(code, id) {
		s.Enrollment[code] = append(s.Enrollment[code], id)
	}
}

func (s *State) unenroll(code string, id StudentID) {
	ids := s.Enrollment[code]
	kept := make([]StudentID, 0, len(ids))
	for _, existing := range ids {
		if existing != id {
			kept = append(kept, existing)
		}
	}
	if _, ok := s.Enrollment[code]; ok {
		s.Enrollment[code] = kept
	}
}

// Snapshot renders the persistable document. Enrollment is deliberately left out.
func (s State) Snapshot() models.DashboardSnapshot {
	c := s.Clone()
	students := make([]models.SnapshotStudent, 0, len(c.Students))
	for _, st := range c.Students {
		students = append(students, models.SnapshotStudent{
			ID:               string(st.ID),
			Name:             st.Name,
			Email:            st.Email,
			ArchivedSubjects: st.ArchivedSubjects,
		})
	}
	return models.DashboardSnapshot{
		Subjects:           c.Subjects,
		RemovedSubjects:    c.RemovedSubjects,
		RecycleBinSubjects: c.RecycleBinSubjects,
		Students:           students,
		Records:            c.Records,
		Grades:             c.Grades,
		Alerts:             c.Alerts,
	}
}

// FromSnapshot rebuilds a state from a stored document, normalizing every student key.
func FromSnapshot(professorID string, version int64, snap models.DashboardSnapshot) State {
	st := NewState(professorID)
	st.Version = version
	st.Subjects = append(st.Subjects, snap.Subjects...)
	st.RemovedSubjects = append(st.RemovedSubjects, snap.RemovedSubjects...)
	st.RecycleBinSubjects = append(st.RecycleBinSubjects, snap.RecycleBinSubjects...)
	for _, s := range snap.Students {
		id := Normalize(s.ID)
		if id == "" {
			continue
		}
		st.upsertStudent(Student{
			ID:               id,
			Name:             s.Name,
			Email:            s.Email,
			ArchivedSubjects: append([]string{}, s.ArchivedSubjects...),
		})
	}
	for date, bySubject := range snap.Records {
		st.Records[date] = make(map[string]map[string]models.AttendanceStatus, len(bySubject))
		for code, byStudent := range bySubject {
			entries := make(map[string]models.AttendanceStatus, len(byStudent))
			for raw, status := range byStudent {
				entries[string(Normalize(raw))] = status
			}
			st.Records[date][code] = entries
		}
	}
	for code, byType := range snap.Grades {
		st.Grades[code] = make(map[string][]models.Assessment, len(byType))
		for kind, list := range byType {
			copied := make([]models.Assessment, 0, len(list))
			for _, a := range list {
				scores := make(map[string]float64, len(a.Scores))
				for raw, score := range a.Scores {
					scores[string(Normalize(raw))] = score
				}
				a.Scores = scores
				copied = append(copied, a)
			}
			st.Grades[code][kind] = copied
		}
	}
	st.Alerts = append(st.Alerts, snap.Alerts...)
	return st
}

// MergeStudents overlays stored student rows onto the state; rows win over the document.
func (s State) MergeStudents(rows []Student) State {
	out := s.Clone()
	for _, row := range rows {
		out.upsertStudent(row.clone())
	}
	return out
}

// ActiveAlerts returns undismissed alerts, newest first.
func (s State) ActiveAlerts() []models.Alert {
	out := make([]models.Alert, 0, len(s.Alerts))
	for _, a := range s.Alerts {
		if !a.Dismissed {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// NewAlert builds an alert stamped with now.
func NewAlert(id string, kind models.AlertKind, message string, now time.Time) models.Alert {
	return models.Alert{ID: id, Kind: kind, Message: message, CreatedAt: now.UTC()}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
