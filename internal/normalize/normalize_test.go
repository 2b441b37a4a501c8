package normalize

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/cgtqwmwkhp-rgb/quality-governance-platform-sub010/internal/registry"
	"github.com/cgtqwmwkhp-rgb/quality-governance-platform-sub010/internal/schema"
)

func mustRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	r, err := registry.New()
	if err != nil {
		t.Fatalf("registry.New: %v", err)
	}
	return r
}

func snapshot(st schema.SourceType, version string, fields ...schema.Field) *schema.SourceSnapshot {
	return &schema.SourceSnapshot{
		SourceType:      st,
		SourceID:        "src-001",
		ReferenceNumber: "INV-2024-0001",
		SchemaVersion:   version,
		CapturedAt:      time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC),
		CapturedBy:      "actor-7",
		RawFields:       fields,
	}
}

func f(name string, v any) schema.Field {
	return schema.Field{Name: name, Value: v}
}

func entryFor(t *testing.T, log schema.MappingLog, target string) schema.MappingLogEntry {
	t.Helper()
	for _, e := range log {
		if e.TargetField == target {
			return e
		}
	}
	t.Fatalf("no mapping log entry for %s", target)
	return schema.MappingLogEntry{}
}

func reasonOf(e schema.MappingLogEntry) schema.ReasonCode {
	if e.ReasonCode == nil {
		return ""
	}
	return *e.ReasonCode
}

func TestNormalize_NearMissCriticalIsHigh(t *testing.T) {
	snap := snapshot(schema.SourceNearMiss, "1.0.0",
		f("title", "Forklift reversing without banksman"),
		f("potential_severity", "critical"),
	)
	draft, log, err := Normalize(mustRegistry(t), snap)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if draft.Severity == nil || *draft.Severity != schema.LevelHigh {
		t.Fatalf("severity = %v, want HIGH", draft.Severity)
	}
	e := entryFor(t, log, "section_1.severity")
	if e.Result != schema.ResultSuccess {
		t.Errorf("severity result = %s", e.Result)
	}
	if e.SourceField == nil || *e.SourceField != "potential_severity" {
		t.Errorf("severity source = %v, want potential_severity", e.SourceField)
	}
}

func TestNormalize_FirstCandidateWins(t *testing.T) {
	snap := snapshot(schema.SourceNearMiss, "1.0.0",
		f("priority", "low"),
		f("severity", "high"),
	)
	draft, _, err := Normalize(mustRegistry(t), snap)
	if err != nil {
		t.Fatal(err)
	}
	if draft.Severity == nil || *draft.Severity != schema.LevelHigh {
		t.Errorf("severity = %v, want HIGH from the first candidate", draft.Severity)
	}
}

func TestNormalize_ComplaintMissingReceivedDate(t *testing.T) {
	snap := snapshot(schema.SourceComplaint, "1.2.0",
		f("subject", "Rude driver"),
		f("details", "Driver shouted at customer."),
	)
	draft, log, err := Normalize(mustRegistry(t), snap)
	if err != nil {
		t.Fatal(err)
	}
	e := entryFor(t, log, "section_1.incident_date")
	if e.Result != schema.ResultFallback || reasonOf(e) != schema.ReasonSourceMissingField {
		t.Errorf("incident_date = %s/%s, want FALLBACK/SOURCE_MISSING_FIELD", e.Result, reasonOf(e))
	}
	if _, set := draft.Value("section_1.incident_date"); set {
		t.Error("incident_date should be unset")
	}
	if !draft.Has("section_1.incident_date") {
		t.Error("incident_date should still be present as an explicit null")
	}
	desc, ok := draft.Value("section_1.description")
	if !ok || desc != "Rude driver\n\nDriver shouted at customer." {
		t.Errorf("description = %q", desc)
	}
}

func TestNormalize_FallbackReasons(t *testing.T) {
	snap := snapshot(schema.SourceComplaint, "1.2.0",
		f("subject", "   "),                  // EMPTY_VALUE
		f("priority", "P9"),                  // NOT_APPLICABLE
		f("channel", "carrier_pigeon"),       // TYPE_MISMATCH (lookup miss)
		f("injury_involved", true),           // TYPE_MISMATCH (not a string)
		f("received_date", "the other week"), // MAPPING_ERROR
	)
	draft, log, err := Normalize(mustRegistry(t), snap)
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		target string
		result schema.MappingResult
		reason schema.ReasonCode
	}{
		{"section_1.title", schema.ResultFallback, schema.ReasonEmptyValue},
		{"section_1.description", schema.ResultFallback, schema.ReasonEmptyValue},
		{"section_1.severity", schema.ResultFallback, schema.ReasonNotApplicable},
		{"complaint_addendum.complaint_channel", schema.ResultFallback, schema.ReasonTypeMismatch},
		{"section_3.injury_reported", schema.ResultFallback, schema.ReasonTypeMismatch},
		{"section_1.incident_date", schema.ResultError, schema.ReasonMappingError},
		{"section_2.witness_names", schema.ResultSuccess, ""},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			e := entryFor(t, log, tt.target)
			if e.Result != tt.result || reasonOf(e) != tt.reason {
				t.Errorf("%s = %s/%s, want %s/%s", tt.target, e.Result, reasonOf(e), tt.result, tt.reason)
			}
		})
	}
	if draft.Severity != nil {
		t.Errorf("severity = %v, want nil", *draft.Severity)
	}
	if v, _ := draft.Value("section_2.witness_names"); v != registry.NotApplicable {
		t.Errorf("witness_names = %v, want NOT_APPLICABLE", v)
	}
}

func TestNormalize_LogFollowsRuleOrder(t *testing.T) {
	reg := mustRegistry(t)
	// Raw fields deliberately listed in reverse of rule order.
	snap := snapshot(schema.SourceRTA, "2.0.0",
		f("road_surface", "wet"),
		f("vehicle_registration", "AB12 CDE"),
		f("driver_name", "Sam Driver"),
		f("collision_date", "2024-02-01"),
		f("severity", "fatal"),
		f("summary", "Rear-end collision"),
	)
	_, log, err := Normalize(reg, snap)
	if err != nil {
		t.Fatal(err)
	}
	rules, _ := reg.Resolve(schema.SourceRTA)
	if len(log) != len(rules) {
		t.Fatalf("log length = %d, rules = %d", len(log), len(rules))
	}
	for i, rule := range rules {
		if log[i].TargetField != rule.Target {
			t.Errorf("log[%d] = %s, want %s", i, log[i].TargetField, rule.Target)
		}
		if log[i].Transform != rule.Transform() {
			t.Errorf("log[%d] transform = %s, want %s", i, log[i].Transform, rule.Transform())
		}
	}
}

func TestNormalize_ComputedFieldsHaveNoSource(t *testing.T) {
	snap := snapshot(schema.SourceRTA, "2.0.0", f("road_name", "Kirkstall Road"), f("town", "Leeds"))
	_, log, err := Normalize(mustRegistry(t), snap)
	if err != nil {
		t.Fatal(err)
	}
	for _, target := range []string{"section_6.people", "section_1.location", "section_1.category"} {
		if e := entryFor(t, log, target); e.SourceField != nil {
			t.Errorf("%s source_field = %q, want null", target, *e.SourceField)
		}
	}
	if e := entryFor(t, log, "section_1.title"); e.SourceField == nil || *e.SourceField != "summary" {
		t.Errorf("missing direct field should still name its primary source")
	}
}

func TestNormalize_DeriveNamesItsSource(t *testing.T) {
	tests := []struct {
		name   string
		snap   *schema.SourceSnapshot
		target string
		want   string
		result schema.MappingResult
	}{
		{
			name:   "single source success",
			snap:   snapshot(schema.SourceComplaint, "1.2.0", f("received_date", "2024-03-01")),
			target: "section_1.incident_date",
			want:   "received_date",
			result: schema.ResultSuccess,
		},
		{
			name:   "single source missing",
			snap:   snapshot(schema.SourceComplaint, "1.2.0"),
			target: "section_1.incident_date",
			want:   "received_date",
			result: schema.ResultFallback,
		},
		{
			name:   "multi source names the failing input",
			snap:   snapshot(schema.SourceRTA, "2.0.0", f("road_name", "Kirkstall Road"), f("town", "")),
			target: "section_1.location",
			want:   "town",
			result: schema.ResultFallback,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, log, err := Normalize(mustRegistry(t), tt.snap)
			if err != nil {
				t.Fatal(err)
			}
			e := entryFor(t, log, tt.target)
			if e.Result != tt.result {
				t.Errorf("result = %s, want %s", e.Result, tt.result)
			}
			if e.SourceField == nil || *e.SourceField != tt.want {
				t.Errorf("source_field = %v, want %s", e.SourceField, tt.want)
			}
		})
	}
}

func TestNormalize_Consent(t *testing.T) {
	snap := snapshot(schema.SourceRTA, "2.0.0",
		f("driver_name", "Sam Driver"),
		f("driver_consent", "yes"),
		f("third_party_name", "Pat Other"),
		f("third_party_consent", false),
	)
	draft, _, err := Normalize(mustRegistry(t), snap)
	if err != nil {
		t.Fatal(err)
	}
	if !draft.HasConsent("rta_addendum.driver_name") {
		t.Error("driver_name should carry consent")
	}
	if !draft.HasConsent("section_2.reporter_name") {
		t.Error("reporter_name sourced from driver_name should carry consent")
	}
	if draft.HasConsent("rta_addendum.third_party_name") {
		t.Error("third_party_name consent was false")
	}
	if draft.HasConsent("section_2.reporter_email") {
		t.Error("unset field must not be marked consented")
	}
}

func TestNormalize_ConsentFollowsWinningSource(t *testing.T) {
	snap := snapshot(schema.SourceRTA, "2.0.0",
		f("reported_by", "Morgan Fleetmanager"),
		f("driver_name", "Sam Driver"),
		f("driver_consent", true),
	)
	draft, log, err := Normalize(mustRegistry(t), snap)
	if err != nil {
		t.Fatal(err)
	}
	if e := entryFor(t, log, "section_2.reporter_name"); e.SourceField == nil || *e.SourceField != "reported_by" {
		t.Fatalf("reporter_name source = %v, want reported_by", e.SourceField)
	}
	if draft.HasConsent("section_2.reporter_name") {
		t.Error("driver consent must not cover a reporter_name read from reported_by")
	}
	if !draft.HasConsent("rta_addendum.driver_name") {
		t.Error("driver_name should still carry consent")
	}
}

func TestNormalize_DoesNotMutateSnapshot(t *testing.T) {
	snap := snapshot(schema.SourceNearMiss, "1.0.0",
		f("title", "Loose cable"),
		f("witnesses", []any{"Alex Kim", "Jo Park"}),
		f("revision_log", []any{map[string]any{"rev": json.Number("1")}}),
	)
	before, _ := json.Marshal(snap)
	draft, _, err := Normalize(mustRegistry(t), snap)
	if err != nil {
		t.Fatal(err)
	}
	hist := draft.Sections["section_7"]["revision_history"].([]any)
	hist[0].(map[string]any)["rev"] = "tampered"
	after, _ := json.Marshal(snap)
	if !bytes.Equal(before, after) {
		t.Errorf("snapshot mutated:\nbefore %s\nafter  %s", before, after)
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	reg := mustRegistry(t)
	snap := snapshot(schema.SourceComplaint, "1.2.0",
		f("subject", "Billing error"),
		f("details", "Charged twice"),
		f("received_date", "05/03/2024"),
		f("priority", "P2"),
		f("complainant_name", "Chris Customer"),
		f("consent_to_share", true),
		f("staff_involved", "A. Clerk; B. Manager"),
	)
	d1, l1, err := Normalize(reg, snap)
	if err != nil {
		t.Fatal(err)
	}
	d2, l2, err := Normalize(reg, snap)
	if err != nil {
		t.Fatal(err)
	}
	b1, _ := json.Marshal(d1)
	b2, _ := json.Marshal(d2)
	if !bytes.Equal(b1, b2) {
		t.Errorf("drafts differ:\n%s\n%s", b1, b2)
	}
	m1, _ := json.Marshal(l1)
	m2, _ := json.Marshal(l2)
	if !bytes.Equal(m1, m2) {
		t.Errorf("mapping logs differ")
	}
}

func TestNormalize_UnknownSourceType(t *testing.T) {
	_, _, err := Normalize(mustRegistry(t), snapshot("audit", "1.0.0"))
	if err == nil {
		t.Error("expected error for unknown source type")
	}
}

func TestApply_UnknownDeriverIsMappingError(t *testing.T) {
	reg := mustRegistry(t)
	snap := snapshot(schema.SourceNearMiss, "1.0.0", f("witnesses", "Alex"))
	rule := registry.Rule{Target: "section_2.witness_names", Kind: registry.KindDerive, Derive: "missing", Sources: []string{"witnesses"}}
	v, e := apply(reg, snap, rule)
	if v != nil || e.Result != schema.ResultError || reasonOf(e) != schema.ReasonMappingError {
		t.Errorf("apply = %v, %s/%s", v, e.Result, reasonOf(e))
	}
}

func TestApply_PanicIsContained(t *testing.T) {
	reg := mustRegistry(t)
	snap := snapshot(schema.SourceNearMiss, "1.0.0")
	// A remap rule with no candidates indexes past the end of its source list.
	rule := registry.Rule{Target: "section_1.category", Kind: registry.KindRemap, Table: "hazard_category"}
	v, e := apply(reg, snap, rule)
	if v != nil || e.Result != schema.ResultError || reasonOf(e) != schema.ReasonMappingError {
		t.Errorf("apply = %v, %s/%s", v, e.Result, reasonOf(e))
	}
}
