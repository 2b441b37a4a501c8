package schema

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestFields_UnmarshalPreservesOrder(t *testing.T) {
	raw := `{"zeta": "z", "alpha": 1, "mid": null, "list": ["a", "b"]}`
	var f Fields
	if err := json.Unmarshal([]byte(raw), &f); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	got := strings.Join(f.Names(), ",")
	if got != "zeta,alpha,mid,list" {
		t.Errorf("order = %q, want zeta,alpha,mid,list", got)
	}
	v, ok := f.Lookup("alpha")
	if !ok {
		t.Fatal("alpha not found")
	}
	if _, isNum := v.(json.Number); !isNum {
		t.Errorf("alpha decoded as %T, want json.Number", v)
	}
	if v, ok := f.Lookup("mid"); !ok || v != nil {
		t.Errorf("mid = %v, %v; want nil, true", v, ok)
	}
	if _, ok := f.Lookup("missing"); ok {
		t.Error("missing key reported present")
	}
}

func TestFields_MarshalPreservesOrder(t *testing.T) {
	f := Fields{{Name: "b", Value: "2"}, {Name: "a", Value: "1"}}
	out, err := json.Marshal(f)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(out) != `{"b":"2","a":"1"}` {
		t.Errorf("Marshal = %s", out)
	}
}

func TestFields_DuplicateKeyRejected(t *testing.T) {
	var f Fields
	err := json.Unmarshal([]byte(`{"a": 1, "a": 2}`), &f)
	if err == nil {
		t.Error("expected error for duplicate key, got nil")
	}
}

func TestFields_NonObjectRejected(t *testing.T) {
	var f Fields
	if err := json.Unmarshal([]byte(`["a"]`), &f); err == nil {
		t.Error("expected error for array raw_fields, got nil")
	}
}

func TestIsEmpty(t *testing.T) {
	tests := []struct {
		name string
		v    any
		want bool
	}{
		{"nil", nil, true},
		{"blank string", "   ", true},
		{"string", "x", false},
		{"empty list", []any{}, true},
		{"list", []any{"a"}, false},
		{"empty object", map[string]any{}, true},
		{"false", false, false},
		{"zero", json.Number("0"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsEmpty(tt.v); got != tt.want {
				t.Errorf("IsEmpty(%v) = %v, want %v", tt.v, got, tt.want)
			}
		})
	}
}

func TestCloneValue_DoesNotAlias(t *testing.T) {
	orig := []any{"a", map[string]any{"k": "v"}}
	c := CloneValue(orig).([]any)
	c[0] = "changed"
	c[1].(map[string]any)["k"] = "changed"
	if orig[0] != "a" || orig[1].(map[string]any)["k"] != "v" {
		t.Errorf("clone aliased original: %v", orig)
	}
}

func TestSplitPath(t *testing.T) {
	c, f, ok := SplitPath("section_1.incident_date")
	if !ok || c != "section_1" || f != "incident_date" {
		t.Errorf("SplitPath = %q, %q, %v", c, f, ok)
	}
	for _, bad := range []string{"", "section_1", ".x", "a.b.c"} {
		if _, _, ok := SplitPath(bad); ok {
			t.Errorf("SplitPath(%q) ok, want not ok", bad)
		}
	}
}

func TestDraft_ValueDistinguishesUnset(t *testing.T) {
	d := &InvestigationDraft{
		Sections: map[string]Values{"section_1": {"title": "", "incident_date": nil}},
		Addenda:  map[string]Values{"rta_addendum": {"driver_name": "Sam"}},
	}
	if v, ok := d.Value("section_1.title"); !ok || v != "" {
		t.Errorf("title = %v, %v; want \"\", true", v, ok)
	}
	if _, ok := d.Value("section_1.incident_date"); ok {
		t.Error("incident_date reported set")
	}
	if !d.Has("section_1.incident_date") {
		t.Error("incident_date should be present as an unset field")
	}
	if v, ok := d.Value("rta_addendum.driver_name"); !ok || v != "Sam" {
		t.Errorf("driver_name = %v, %v", v, ok)
	}
}

func TestOrdinals(t *testing.T) {
	if LevelOrdinal(LevelLow) >= LevelOrdinal(LevelMedium) || LevelOrdinal(LevelMedium) >= LevelOrdinal(LevelHigh) {
		t.Error("level ordinals not ascending")
	}
	if LevelOrdinal("CRITICAL") != -1 {
		t.Error("unknown level should have ordinal -1")
	}
	if VerdictOrdinal(VerdictComplete) >= VerdictOrdinal(VerdictIncomplete) {
		t.Error("verdict ordinals not ascending")
	}
}
