package registry

import (
	"fmt"
	"strings"
	"time"
)

// DeriveFunc computes one target value from the values of a rule's sources,
// passed in rule order. Inputs are guaranteed present and non-empty.
type DeriveFunc func(inputs []any) (any, error)

func builtinDerivers() map[string]DeriveFunc {
	return map[string]DeriveFunc{
		"prefix_title":  prefixTitle,
		"iso_date":      isoDate,
		"join_location": joinLocation,
		"name_list":     nameList,
	}
}

// dateLayouts are tried in order; day-first forms follow UK record keeping.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02/01/2006",
	"2 January 2006",
}

func isoDate(inputs []any) (any, error) {
	s, err := stringInput(inputs, 0)
	if err != nil {
		return nil, err
	}
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02"), nil
		}
	}
	return nil, fmt.Errorf("unrecognised date %q", s)
}

// prefixTitle folds a title into the start of a description body.
func prefixTitle(inputs []any) (any, error) {
	title, err := stringInput(inputs, 0)
	if err != nil {
		return nil, err
	}
	body, err := stringInput(inputs, 1)
	if err != nil {
		return nil, err
	}
	return strings.TrimSpace(title) + "\n\n" + strings.TrimSpace(body), nil
}

func joinLocation(inputs []any) (any, error) {
	parts := make([]string, 0, len(inputs))
	for i := range inputs {
		s, err := stringInput(inputs, i)
		if err != nil {
			return nil, err
		}
		parts = append(parts, strings.TrimSpace(s))
	}
	return strings.Join(parts, ", "), nil
}

// nameList accepts either a list of names or a single string separated by
// semicolons or newlines, and returns a list of trimmed names.
func nameList(inputs []any) (any, error) {
	if len(inputs) != 1 {
		return nil, fmt.Errorf("name_list takes one input, got %d", len(inputs))
	}
	var raw []string
	switch v := inputs[0].(type) {
	case string:
		raw = strings.FieldsFunc(v, func(r rune) bool { return r == ';' || r == '\n' })
	case []any:
		for i, e := range v {
			s, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf("name_list element %d is %T, want string", i, e)
			}
			raw = append(raw, s)
		}
	default:
		return nil, fmt.Errorf("name_list input is %T, want string or list", v)
	}
	out := make([]any, 0, len(raw))
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("name_list produced no names")
	}
	return out, nil
}

func stringInput(inputs []any, i int) (string, error) {
	if i >= len(inputs) {
		return "", fmt.Errorf("missing input %d", i)
	}
	s, ok := inputs[i].(string)
	if !ok {
		return "", fmt.Errorf("input %d is %T, want string", i, inputs[i])
	}
	return s, nil
}
