package redact

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// Transform names recorded in the redaction log.
const (
	TransformRoleLabel        = "role_label"
	TransformNullify          = "nullify"
	TransformCoarsenAddress   = "coarsen_address"
	TransformMaskRegistration = "mask_registration"
	TransformScrubContact     = "scrub_contact_details"
	TransformRedactContent    = "redact_content"
)

// roleLabel replaces a person name with its role. Lists become numbered
// labels so the number of people stays visible.
func roleLabel(v any, label string) any {
	if list, ok := v.([]any); ok {
		out := make([]any, len(list))
		for i := range list {
			out[i] = fmt.Sprintf("%s %d", label, i+1)
		}
		return out
	}
	return label
}

// postcodePattern matches a UK postcode and captures its outward code.
var postcodePattern = regexp.MustCompile(`(?i)\b([A-Z]{1,2}\d[A-Z\d]?)\s*\d[A-Z]{2}\b`)

// coarsenAddress reduces an address to its town and postcode district.
// Anything finer (house numbers, streets, inward codes) is dropped. When
// neither can be identified the whole value is withheld.
func coarsenAddress(v any) any {
	s, ok := v.(string)
	if !ok {
		return redacted
	}
	outward := ""
	if m := postcodePattern.FindStringSubmatch(s); m != nil {
		outward = strings.ToUpper(m[1])
		s = postcodePattern.ReplaceAllString(s, "")
	}
	var parts []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	town := ""
	// A town must stand as its own comma-separated component. A single
	// component is as likely to carry a street or site name.
	if len(parts) > 1 {
		for i := len(parts) - 1; i >= 0; i-- {
			if isTownCandidate(parts[i]) {
				town = parts[i]
				break
			}
		}
	}
	switch {
	case town != "" && outward != "":
		return town + ", " + outward
	case town != "":
		return town
	case outward != "":
		return outward
	}
	return redacted
}

var thoroughfares = map[string]bool{
	"street": true, "st": true, "road": true, "rd": true, "lane": true,
	"ln": true, "avenue": true, "ave": true, "way": true, "drive": true,
	"close": true, "crescent": true, "place": true, "terrace": true,
	"court": true, "grove": true, "gardens": true, "square": true,
	"row": true, "mews": true, "parade": true, "walk": true,
}

func isTownCandidate(part string) bool {
	if strings.ContainsFunc(part, unicode.IsDigit) {
		return false
	}
	for _, w := range strings.Fields(part) {
		if thoroughfares[strings.ToLower(strings.Trim(w, "."))] {
			return false
		}
	}
	return true
}

// maskRegistration keeps the first two characters and every separator of a
// registration and masks the remaining letters and digits.
func maskRegistration(v any) any {
	s, ok := v.(string)
	if !ok {
		return redacted
	}
	var b strings.Builder
	kept := 0
	for _, r := range s {
		switch {
		case !unicode.IsLetter(r) && !unicode.IsDigit(r):
			b.WriteRune(r)
		case kept < 2:
			b.WriteRune(r)
			kept++
		default:
			b.WriteByte('*')
		}
	}
	return b.String()
}
