package tabular

import "strings"

const headerScanRows = 5

var idHeaderTokens = map[string]struct{}{
	"id": {}, "student id": {}, "student_id": {}, "studentid": {},
	"student number": {}, "student no": {}, "student #": {},
}

type columns struct {
	id, name, email int
}

func extract(rows []sourceRow) Result {
	result := Result{Records: []Record{}}

	headerIdx, cols := findHeader(rows)
	start := 0
	if headerIdx >= 0 {
		result.HeaderRow = rows[headerIdx].line
		start = headerIdx + 1
	} else {
		cols = columns{id: 0, name: 1, email: 2}
	}

	if cols.email < 0 {
		cols.email = sniffEmailColumn(rows[start:], cols)
	}

	for _, row := range rows[start:] {
		id := cleanCell(cellAt(row.cells, cols.id))
		name := cleanCell(cellAt(row.cells, cols.name))
		if id == "" && name == "" {
			continue
		}

		var email string
		if cols.email >= 0 && cols.email < len(row.cells) {
			email = cleanCell(row.cells[cols.email])
		} else {
			email = sniffEmail(row.cells, cols)
		}
		if !strings.Contains(email, "@") {
			email = ""
		}

		result.Records = append(result.Records, Record{Row: row.line, ID: id, Name: name, Email: email})
	}
	return result
}

// findHeader scans the first rows for one holding both an id-like and a name-like cell.
func findHeader(rows []sourceRow) (int, columns) {
	limit := headerScanRows
	if len(rows) < limit {
		limit = len(rows)
	}
	for i := 0; i < limit; i++ {
		if cols, ok := headerColumns(rows[i].cells); ok {
			return i, cols
		}
	}
	return -1, columns{}
}

func headerColumns(cells []string) (columns, bool) {
	cols := columns{id: -1, name: -1, email: -1}
	labels := make([]string, len(cells))
	for i, cell := range cells {
		labels[i] = strings.ToLower(cleanCell(cell))
	}

	for i, label := range labels {
		if _, ok := idHeaderTokens[label]; ok {
			cols.id = i
			break
		}
	}
	if cols.id < 0 {
		for i, label := range labels {
			if isIDLabel(label) {
				cols.id = i
				break
			}
		}
	}
	for i, label := range labels {
		if i != cols.id && isNameLabel(label) {
			cols.name = i
			break
		}
	}
	if cols.id < 0 || cols.name < 0 {
		return cols, false
	}
	for i, label := range labels {
		if i != cols.id && i != cols.name && isEmailLabel(label) {
			cols.email = i
			break
		}
	}
	return cols, true
}

func isIDLabel(label string) bool {
	return label != "" && len(label) <= 30 && strings.Contains(label, "id") && !strings.ContainsAny(label, "0123456789@")
}

func isNameLabel(label string) bool {
	if label == "" || strings.ContainsAny(label, "0123456789@") {
		return false
	}
	return strings.Contains(label, "name") || strings.Contains(label, "nombre") || label == "student"
}

func isEmailLabel(label string) bool {
	return strings.Contains(label, "email") || strings.Contains(label, "e-mail") || strings.Contains(label, "mail") ||
		strings.Contains(label, "@") || strings.Contains(label, ".edu")
}

// sniffEmailColumn adopts the first column of the first data row holding an address.
func sniffEmailColumn(rows []sourceRow, cols columns) int {
	for _, row := range rows {
		if len(row.cells) == 0 {
			continue
		}
		for i, cell := range row.cells {
			if i != cols.id && i != cols.name && strings.Contains(cell, "@") {
				return i
			}
		}
		return -1
	}
	return -1
}

func sniffEmail(cells []string, cols columns) string {
	for i, cell := range cells {
		if i == cols.id || i == cols.name {
			continue
		}
		if value := cleanCell(cell); strings.Contains(value, "@") {
			return value
		}
	}
	return ""
}

func cellAt(cells []string, idx int) string {
	if idx < 0 || idx >= len(cells) {
		return ""
	}
	return cells[idx]
}

// cleanCell trims the value and strips one layer of matching surrounding quotes. Escaped
// quotes inside CSV fields are already decoded by the reader and are left alone.
func cleanCell(value string) string {
	value = strings.TrimSpace(value)
	if len(value) >= 2 {
		first, last := value[0], value[len(value)-1]
		if first == last && (first == '"' || first == '\'') {
			value = value[1 : len(value)-1]
		}
	}
	return strings.TrimSpace(value)
}
