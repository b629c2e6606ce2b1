package roster

import "github.com/noah-isme/sma-roster-api/internal/models"

// Action is a tagged state transition consumed by Reduce.
type Action interface {
	action()
}

// ApplyImportPlan applies a reconciler plan optimistically.
type ApplyImportPlan struct{ Plan Plan }

// ReplaceProjection swaps in a projection rebuilt from the store, adding any students that
// had to be fetched to back it.
type ReplaceProjection struct {
	Projection Projection
	Fetched    []Student
}

// AddAlert appends an alert.
type AddAlert struct{ Alert models.Alert }

// DismissAlert marks an alert dismissed.
type DismissAlert struct{ ID string }

// ArchiveStudent archives a student for one subject and drops them from its projection.
type ArchiveStudent struct {
	StudentID   StudentID
	SubjectCode string
}

// RestoreStudent clears the archive marker and projects the student back into the subject.
type RestoreStudent struct {
	StudentID   StudentID
	SubjectCode string
}

// UpsertSubject adds or replaces an active subject.
type UpsertSubject struct{ Subject models.Subject }

// MoveSubject moves a subject between lists.
type MoveSubject struct {
	Code string
	From SubjectList
	To   SubjectList
}

// PurgeSubject forgets a subject with its records, grades, projection and archive markers.
type PurgeSubject struct{ Code string }

// RemoveStudents deletes students with their attendance and scores.
type RemoveStudents struct{ IDs []StudentID }

// RecordAttendance sets statuses for one subject on one date.
type RecordAttendance struct {
	Date        string
	SubjectCode string
	Entries     map[StudentID]models.AttendanceStatus
}

// RecordAssessment inserts or replaces an assessment by id.
type RecordAssessment struct {
	SubjectCode string
	Assessment  models.Assessment
}

func (ApplyImportPlan) action()   {}
func (ReplaceProjection) action() {}
func (AddAlert) action()          {}
func (DismissAlert) action()      {}
func (ArchiveStudent) action()    {}
func (RestoreStudent) action()    {}
func (UpsertSubject) action()     {}
func (MoveSubject) action()       {}
func (PurgeSubject) action()      {}
func (RemoveStudents) action()    {}
func (RecordAttendance) action()  {}
func (RecordAssessment) action()  {}

// Reduce returns the state after applying action. The input state is never modified.
func Reduce(state State, action Action) State {
	next := state.Clone()

	switch a := action.(type) {
	case ApplyImportPlan:
		applyPlan(&next, a.Plan)
	case ReplaceProjection:
		replaceProjection(&next, a.Projection, a.Fetched)
	case AddAlert:
		next.Alerts = append(next.Alerts, a.Alert)
	case DismissAlert:
		for i := range next.Alerts {
			if next.Alerts[i].ID == a.ID {
				next.Alerts[i].Dismissed = true
			}
		}
	case ArchiveStudent:
		next.mapStudent(a.StudentID, func(s Student) Student { return s.withArchived(a.SubjectCode) })
		next.unenroll(a.SubjectCode, a.StudentID)
	case RestoreStudent:
		next.mapStudent(a.StudentID, func(s Student) Student { return s.withoutArchived(a.SubjectCode) })
		if _, ok := next.Student(a.StudentID); ok {
			next.enroll(a.SubjectCode, a.StudentID)
		}
	case UpsertSubject:
		upsertSubject(&next, a.Subject)
	case MoveSubject:
		moveSubject(&next, a.Code, a.From, a.To)
	case PurgeSubject:
		purgeSubject(&next, a.Code)
	case RemoveStudents:
		removeStudents(&next, a.IDs)
	case RecordAttendance:
		recordAttendance(&next, a)
	case RecordAssessment:
		recordAssessment(&next, a.SubjectCode, a.Assessment)
	}

	return next
}

// ApplyOptimistic is the provisional half of a mutation: the plan's delta applied locally
// before the store confirms it.
func ApplyOptimistic(state State, plan Plan) State {
	return Reduce(state, ApplyImportPlan{Plan: plan})
}

// ReconcileWithServer overwrites the provisional enrollment with the rebuilt projection.
func ReconcileWithServer(state State, projection Projection, fetched []Student) State {
	return Reduce(state, ReplaceProjection{Projection: projection, Fetched: fetched})
}

func applyPlan(s *State, plan Plan) {
	for _, created := range plan.ToCreate {
		s.upsertStudent(created.clone())
	}
	for _, updated := range plan.ToUpdate {
		email := updated.Email
		s.mapStudent(updated.ID, func(st Student) Student {
			st = st.clone()
			st.Email = email
			return st
		})
	}
	for _, u := range plan.ToUnarchive {
		code := u.SubjectCode
		s.mapStudent(u.StudentID, func(st Student) Student { return st.withoutArchived(code) })
	}
	for _, id := range plan.ToEnroll {
		s.enroll(plan.SubjectCode, id)
	}
}

func replaceProjection(s *State, proj Projection, fetched []Student) {
	for _, st := range fetched {
		s.upsertStudent(st.clone())
	}
	s.Enrollment = make(map[string][]StudentID, len(proj.BySubject))
	for code, ids := range proj.BySubject {
		s.Enrollment[code] = append([]StudentID{}, ids...)
	}
	for _, subj := range s.Subjects {
		if _, ok := s.Enrollment[subj.Code]; !ok {
			s.Enrollment[subj.Code] = []StudentID{}
		}
	}
}

func upsertSubject(s *State, subject models.Subject) {
	for i := range s.Subjects {
		if s.Subjects[i].Code == subject.Code {
			s.Subjects[i] = subject
			return
		}
	}
	s.Subjects = append(s.Subjects, subject)
	if _, ok := s.Enrollment[subject.Code]; !ok {
		s.Enrollment[subject.Code] = []StudentID{}
	}
}

func moveSubject(s *State, code string, from, to SubjectList) {
	src := s.list(from)
	for i, subj := range *src {
		if subj.Code != code {
			continue
		}
		*src = append((*src)[:i:i], (*src)[i+1:]...)
		dst := s.list(to)
		*dst = append(*dst, subj)
		return
	}
}

func purgeSubject(s *State, code string) {
	for _, which := range []SubjectList{ListActive, ListRemoved, ListRecycleBin} {
		list := s.list(which)
		kept := make([]models.Subject, 0, len(*list))
		for _, subj := range *list {
			if subj.Code != code {
				kept = append(kept, subj)
			}
		}
		*list = kept
	}
	delete(s.Enrollment, code)
	for date, bySubject := range s.Records {
		delete(bySubject, code)
		if len(bySubject) == 0 {
			delete(s.Records, date)
		}
	}
	delete(s.Grades, code)
	for i := range s.Students {
		s.Students[i] = s.Students[i].withoutArchived(code)
	}
}

func removeStudents(s *State, ids []StudentID) {
	drop := make(map[StudentID]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}

	kept := make([]Student, 0, len(s.Students))
	for _, st := range s.Students {
		if _, ok := drop[st.ID]; !ok {
			kept = append(kept, st)
		}
	}
	s.Students = kept

	for code, enrolled := range s.Enrollment {
		filtered := make([]StudentID, 0, len(enrolled))
		for _, id := range enrolled {
			if _, ok := drop[id]; !ok {
				filtered = append(filtered, id)
			}
		}
		s.Enrollment[code] = filtered
	}
	for _, bySubject := range s.Records {
		for _, byStudent := range bySubject {
			for id := range drop {
				delete(byStudent, string(id))
			}
		}
	}
	for _, byType := range s.Grades {
		for _, list := range byType {
			for i := range list {
				for id := range drop {
					delete(list[i].Scores, string(id))
				}
			}
		}
	}
}

func recordAttendance(s *State, a RecordAttendance) {
	bySubject, ok := s.Records[a.Date]
	if !ok {
		bySubject = make(map[string]map[string]models.AttendanceStatus)
		s.Records[a.Date] = bySubject
	}
	byStudent, ok := bySubject[a.SubjectCode]
	if !ok {
		byStudent = make(map[string]models.AttendanceStatus, len(a.Entries))
		bySubject[a.SubjectCode] = byStudent
	}
	for id, status := range a.Entries {
		byStudent[string(id)] = status
	}
}

func recordAssessment(s *State, code string, assessment models.Assessment) {
	assessment = cloneAssessment(assessment)
	byType, ok := s.Grades[code]
	if !ok {
		byType = make(map[string][]models.Assessment)
		s.Grades[code] = byType
	}
search:
	for kind, list := range byType {
		for i := range list {
			if list[i].ID != assessment.ID {
				continue
			}
			if kind == assessment.Type {
				list[i] = assessment
				return
			}
			byType[kind] = append(list[:i:i], list[i+1:]...)
			if len(byType[kind]) == 0 {
				delete(byType, kind)
			}
			break search
		}
	}
	byType[assessment.Type] = append(byType[assessment.Type], assessment)
}
