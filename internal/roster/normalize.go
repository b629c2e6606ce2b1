// Package roster holds the pure reconciliation engine: identifier normalization, import
// planning, enrollment projection, the integrity guard and the dashboard state reducer.
// Nothing in this package performs I/O.
package roster

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// StudentID is a normalized student identifier. Values are produced by Normalize at the
// system boundary and compared by plain equality afterwards.
type StudentID string

// Normalize canonicalizes a raw identifier: nil becomes "", anything else is stringified
// and trimmed. Integral floats (spreadsheet cells) render without a fraction.
func Normalize(raw any) StudentID {
	switch v := raw.(type) {
	case nil:
		return ""
	case StudentID:
		return StudentID(strings.TrimSpace(string(v)))
	case string:
		return StudentID(strings.TrimSpace(v))
	case *string:
		if v == nil {
			return ""
		}
		return StudentID(strings.TrimSpace(*v))
	case float64:
		return StudentID(formatFloat(v))
	case float32:
		return StudentID(formatFloat(float64(v)))
	}

	rv := reflect.ValueOf(raw)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return ""
		}
		return Normalize(rv.Elem().Interface())
	}
	return StudentID(strings.TrimSpace(fmt.Sprint(raw)))
}

func formatFloat(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// NormalizeAll normalizes a list of raw identifiers, dropping empties and duplicates.
func NormalizeAll(raw []string) []StudentID {
	out := make([]StudentID, 0, len(raw))
	seen := make(map[StudentID]struct{}, len(raw))
	for _, r := range raw {
		id := Normalize(r)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// String implements fmt.Stringer.
func (id StudentID) String() string {
	return string(id)
}

// Numeric reports whether the id is non-empty and made only of ASCII digits.
func (id StudentID) Numeric() bool {
	if id == "" {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < '0' || id[i] > '9' {
			return false
		}
	}
	return true
}

// Strings converts ids back to plain strings for storage and JSON.
func Strings(ids []StudentID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}
