package roster

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	var nilString *string
	padded := "  42 "

	cases := []struct {
		name string
		raw  any
		want StudentID
	}{
		{"nil", nil, ""},
		{"nil pointer", nilString, ""},
		{"pointer", &padded, "42"},
		{"trimmed", "\t 1001\n", "1001"},
		{"integer", 77, "77"},
		{"spreadsheet float", float64(20231001), "20231001"},
		{"fractional float", 1.5, "1.5"},
		{"already normalized", StudentID(" 9 "), "9"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Normalize(tc.raw))
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{"", " ", "5", " 5 ", "a b ", "  12", "007"}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "input %q", in)
		assert.Equal(t, once, Normalize(string(once)), "input %q", in)
	}
	assert.Equal(t, Normalize(nil), Normalize((*string)(nil)))
}

func TestStudentIDNumeric(t *testing.T) {
	assert.True(t, StudentID("0123").Numeric())
	assert.False(t, StudentID("").Numeric())
	assert.False(t, StudentID("A123").Numeric())
	assert.False(t, StudentID("12-3").Numeric())
	assert.False(t, StudentID("١٢").Numeric())
}

func TestNormalizeAll(t *testing.T) {
	assert.Equal(t, []StudentID{"1", "2"}, NormalizeAll([]string{" 1", "", "2", "1 "}))
}

func TestSynthesizeEmailIsStable(t *testing.T) {
	first := SynthesizeEmail("José  Ñúñez-Pérez", "15", "Uni.EDU")
	second := SynthesizeEmail("José  Ñúñez-Pérez", "15", "Uni.EDU")

	assert.Equal(t, "jose.nunez.perez.15@uni.edu", first)
	assert.Equal(t, first, second)
	assert.Equal(t, "student.3@students.local", SynthesizeEmail("!!!", "3", ""))
	assert.True(t, ValidEmailShape(first))
}

func TestValidEmailShape(t *testing.T) {
	assert.True(t, ValidEmailShape("jane@x.com"))
	assert.False(t, ValidEmailShape("jane@x"))
	assert.False(t, ValidEmailShape("@x.com"))
	assert.False(t, ValidEmailShape("jane@@x.com"))
	assert.False(t, ValidEmailShape("ja ne@x.com"))
	assert.False(t, ValidEmailShape("jane@x."))
}
