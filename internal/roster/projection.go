package roster

// Projection is the enrollment map rebuilt from persisted rows.
type Projection struct {
	BySubject map[string][]StudentID `json:"bySubject"`
	All       []StudentID            `json:"all"`
	// Missing lists enrolled ids with no local student record; callers fetch them
	// instead of hiding the enrollment.
	Missing []StudentID `json:"missing,omitempty"`
}

// Count returns the number of students projected into subjectCode.
func (p Projection) Count(subjectCode string) int {
	return len(p.BySubject[subjectCode])
}

// Project builds the per-subject enrollment lists from raw persisted ids. Ids are
// normalized and deduplicated in row order, and a student archived for a subject is left
// out of that subject even when a stray row exists.
func Project(rowsBySubject map[string][]string, students []Student) Projection {
	byID := make(map[StudentID]Student, len(students))
	for _, s := range students {
		byID[s.ID] = s
	}

	proj := Projection{
		BySubject: make(map[string][]StudentID, len(rowsBySubject)),
		All:       []StudentID{},
	}
	all := make(map[StudentID]struct{})
	missing := make(map[StudentID]struct{})

	for _, code := range sortedKeys(rowsBySubject) {
		list := []StudentID{}
		inList := make(map[StudentID]struct{})
		for _, raw := range rowsBySubject[code] {
			id := Normalize(raw)
			if id == "" {
				continue
			}
			if _, dup := inList[id]; dup {
				continue
			}
			student, known := byID[id]
			if known && student.ArchivedFor(code) {
				continue
			}
			if !known {
				if _, noted := missing[id]; !noted {
					missing[id] = struct{}{}
					proj.Missing = append(proj.Missing, id)
				}
			}
			inList[id] = struct{}{}
			list = append(list, id)
			if _, counted := all[id]; !counted {
				all[id] = struct{}{}
				proj.All = append(proj.All, id)
			}
		}
		proj.BySubject[code] = list
	}

	return proj
}
