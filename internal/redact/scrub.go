package redact

import (
	"regexp"
	"strings"
)

const redacted = "[REDACTED]"

// emailPattern matches a single embedded e-mail address.
var emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9\-]+(?:\.[A-Za-z0-9\-]+)*\.[A-Za-z]{2,}`)

// phonePattern matches international (+44...) or trunk-prefixed (0...)
// numbers with common punctuation. Candidates are confirmed by digit count
// so short references survive.
var phonePattern = regexp.MustCompile(`(?:\+|\b0)[\d \-().]{8,}\d`)

// datePattern matches ISO and day-first dates. Date spans are never
// scanned for phone numbers.
var datePattern = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b|\b\d{1,2}[-/.]\d{1,2}[-/.]\d{4}\b`)

const minPhoneDigits = 10

// ScrubContactDetails replaces embedded e-mail addresses and phone numbers
// with [REDACTED] and reports whether anything changed. Line structure is
// preserved: matches never span a newline.
func ScrubContactDetails(input string) (string, bool) {
	out := emailPattern.ReplaceAllString(input, redacted)

	var b strings.Builder
	last := 0
	for _, span := range datePattern.FindAllStringIndex(out, -1) {
		b.WriteString(scrubPhones(out[last:span[0]]))
		b.WriteString(out[span[0]:span[1]])
		last = span[1]
	}
	b.WriteString(scrubPhones(out[last:]))
	out = b.String()
	return out, out != input
}

func scrubPhones(s string) string {
	return phonePattern.ReplaceAllStringFunc(s, func(m string) string {
		if digits(m) < minPhoneDigits {
			return m
		}
		return redacted
	})
}

func digits(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}

// scrubValue applies ScrubContactDetails to a string or to each string in a
// list. Other shapes pass through untouched.
func scrubValue(v any) (any, bool) {
	switch t := v.(type) {
	case string:
		return ScrubContactDetails(t)
	case []any:
		out := make([]any, len(t))
		changed := false
		for i, e := range t {
			s, c := scrubValue(e)
			out[i] = s
			changed = changed || c
		}
		return out, changed
	}
	return v, false
}
