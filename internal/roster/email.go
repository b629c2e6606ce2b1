package roster

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DefaultEmailDomain is used for synthesized addresses when no domain is configured.
const DefaultEmailDomain = "students.local"

// ValidEmailShape accepts addresses of the form x@y.z with no whitespace.
func ValidEmailShape(email string) bool {
	email = strings.TrimSpace(email)
	if email == "" || strings.ContainsAny(email, " \t\r\n") {
		return false
	}
	at := strings.IndexByte(email, '@')
	if at <= 0 || at != strings.LastIndexByte(email, '@') {
		return false
	}
	domain := email[at+1:]
	dot := strings.LastIndexByte(domain, '.')
	return dot > 0 && dot < len(domain)-1
}

// SynthesizeEmail derives a stable address from the student's name and id, so repeated
// imports of the same row never produce drifting emails.
func SynthesizeEmail(name string, id StudentID, domain string) string {
	if domain == "" {
		domain = DefaultEmailDomain
	}
	slug := slugify(name)
	if slug == "" {
		slug = "student"
	}
	return fmt.Sprintf("%s.%s@%s", slug, id, strings.ToLower(domain))
}

func slugify(name string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), name)
	if err != nil {
		folded = name
	}

	var b strings.Builder
	pendingDot := false
	for _, r := range strings.ToLower(folded) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingDot && b.Len() > 0 {
				b.WriteByte('.')
			}
			pendingDot = false
			b.WriteRune(r)
			continue
		}
		pendingDot = true
	}
	return b.String()
}

func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func sameName(a, b string) bool {
	return strings.EqualFold(strings.Join(strings.Fields(a), " "), strings.Join(strings.Fields(b), " "))
}
