package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Field is one named raw value in a source record.
type Field struct {
	Name  string
	Value any
}

// Fields is the ordered raw field set of a source record. It serializes as a
// JSON object whose key order matches the slice order.
type Fields []Field

// Lookup returns the value stored under name and whether the name is present.
func (f Fields) Lookup(name string) (any, bool) {
	for _, fld := range f {
		if fld.Name == name {
			return fld.Value, true
		}
	}
	return nil, false
}

// Names returns the field names in record order.
func (f Fields) Names() []string {
	out := make([]string, len(f))
	for i, fld := range f {
		out[i] = fld.Name
	}
	return out
}

// MarshalJSON writes the fields as an object, preserving order.
func (f Fields) MarshalJSON() ([]byte, error) {
	if f == nil {
		return []byte("{}"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, fld := range f {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(fld.Name)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(fld.Value)
		if err != nil {
			return nil, fmt.Errorf("raw field %q: %w", fld.Name, err)
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads an object into Fields, keeping document order.
// Numbers decode as json.Number so no precision is lost. Duplicate keys
// are rejected.
func (f *Fields) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("raw_fields: %w", err)
	}
	if tok == nil {
		*f = nil
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("raw_fields: expected object, got %v", tok)
	}

	var out Fields
	seen := make(map[string]bool)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("raw_fields: %w", err)
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("raw_fields: expected key, got %v", tok)
		}
		if seen[name] {
			return fmt.Errorf("raw_fields: duplicate key %q", name)
		}
		seen[name] = true

		var v any
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("raw_fields[%q]: %w", name, err)
		}
		out = append(out, Field{Name: name, Value: v})
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("raw_fields: %w", err)
	}
	*f = out
	return nil
}

// IsEmpty reports whether a present value carries no content: JSON null, a
// blank string, or an empty list or object.
func IsEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	}
	return false
}

// ValueType names the JSON type of v.
func ValueType(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case json.Number, float64, float32, int, int64, int32:
		return "number"
	case []any, []string:
		return "array"
	case map[string]any:
		return "object"
	}
	return fmt.Sprintf("%T", v)
}

// CloneValue returns a deep copy of a JSON-shaped value so drafts never
// alias snapshot memory.
func CloneValue(v any) any {
	switch t := v.(type) {
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = CloneValue(e)
		}
		return out
	case []string:
		return append([]string(nil), t...)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = CloneValue(e)
		}
		return out
	}
	return v
}

// SplitPath splits "section_1.incident_date" into its container and field.
func SplitPath(path string) (container, field string, ok bool) {
	container, field, ok = strings.Cut(path, ".")
	if !ok || container == "" || field == "" || strings.Contains(field, ".") {
		return "", "", false
	}
	return container, field, true
}

// IsAddendum reports whether a container id names an addendum.
func IsAddendum(container string) bool {
	return strings.HasSuffix(container, "_addendum")
}

// Value returns the draft value at path and whether it is set (non-nil).
func (d *InvestigationDraft) Value(path string) (any, bool) {
	container, field, ok := SplitPath(path)
	if !ok {
		return nil, false
	}
	group := d.Sections
	if IsAddendum(container) {
		group = d.Addenda
	}
	vals, ok := group[container]
	if !ok {
		return nil, false
	}
	v, ok := vals[field]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// Has reports whether path is a field of the draft, set or not.
func (d *InvestigationDraft) Has(path string) bool {
	container, field, ok := SplitPath(path)
	if !ok {
		return false
	}
	group := d.Sections
	if IsAddendum(container) {
		group = d.Addenda
	}
	vals, ok := group[container]
	if !ok {
		return false
	}
	_, ok = vals[field]
	return ok
}

// HasConsent reports whether path carried an explicit share-consent flag.
func (d *InvestigationDraft) HasConsent(path string) bool {
	for _, p := range d.Consented {
		if p == path {
			return true
		}
	}
	return false
}

// IsApplicable reports whether the gate marked a section applicable.
// Addenda are always applicable.
func (d *InvestigationDraft) IsApplicable(container string) bool {
	if IsAddendum(container) {
		return true
	}
	for _, s := range d.ApplicableSections {
		if s == container {
			return true
		}
	}
	return false
}
