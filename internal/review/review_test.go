package review

import (
	"reflect"
	"testing"

	"github.com/cgtqwmwkhp-rgb/quality-governance-platform-sub010/internal/gate"
	"github.com/cgtqwmwkhp-rgb/quality-governance-platform-sub010/internal/schema"
	"github.com/cgtqwmwkhp-rgb/quality-governance-platform-sub010/internal/template"
)

func makeLog(results ...schema.MappingResult) schema.MappingLog {
	log := make(schema.MappingLog, len(results))
	for i, r := range results {
		log[i] = schema.MappingLogEntry{TargetField: "section_1.title", Result: r}
	}
	return log
}

func mustGate(t *testing.T) *gate.Gate {
	t.Helper()
	g, err := gate.New()
	if err != nil {
		t.Fatal(err)
	}
	return g
}

// filledDraft returns a near-miss draft at level with every LOW-required
// field set.
func filledDraft(t *testing.T, level *schema.Level) *schema.InvestigationDraft {
	t.Helper()
	d, err := template.NewDraft(&schema.SourceSnapshot{SourceType: schema.SourceNearMiss})
	if err != nil {
		t.Fatal(err)
	}
	d.Severity = level
	d.Sections["section_1"]["title"] = "Trip hazard"
	d.Sections["section_1"]["description"] = "Cable across walkway"
	d.Sections["section_1"]["incident_date"] = "2024-03-05"
	d.Sections["section_1"]["location"] = "Leeds"
	d.Sections["section_1"]["severity"] = "LOW"
	d.Sections["section_2"]["reporter_name"] = "Alex"
	d.Sections["section_3"]["immediate_actions"] = "Cable taped down"
	return d
}

func TestCounts(t *testing.T) {
	s, f, e := Counts(makeLog(schema.ResultSuccess, schema.ResultFallback, schema.ResultSuccess, schema.ResultError))
	if s != 2 || f != 1 || e != 1 {
		t.Errorf("Counts = %d/%d/%d, want 2/1/1", s, f, e)
	}
}

func TestVerdict(t *testing.T) {
	tests := []struct {
		name    string
		log     schema.MappingLog
		missing []string
		want    schema.Verdict
	}{
		{"all success", makeLog(schema.ResultSuccess), nil, schema.VerdictComplete},
		{"empty log", nil, nil, schema.VerdictComplete},
		{"fallback", makeLog(schema.ResultSuccess, schema.ResultFallback), nil, schema.VerdictCompleteWithGaps},
		{"error", makeLog(schema.ResultFallback, schema.ResultError), nil, schema.VerdictIncomplete},
		{"missing required", makeLog(schema.ResultSuccess), []string{"section_1.title"}, schema.VerdictIncomplete},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Verdict(tt.log, tt.missing); got != tt.want {
				t.Errorf("Verdict = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestMissingRequired_DependsOnLevel(t *testing.T) {
	g := mustGate(t)
	low, high := schema.LevelLow, schema.LevelHigh

	if got := MissingRequired(filledDraft(t, &low), g, low); len(got) != 0 {
		t.Errorf("LOW missing = %v, want none", got)
	}

	got := MissingRequired(filledDraft(t, &high), g, high)
	want := []string{
		"section_4.root_cause",
		"section_5.corrective_actions",
		"section_6.people", "section_6.process", "section_6.equipment", "section_6.environment",
		"section_7.approver_name",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("HIGH missing = %v\nwant %v", got, want)
	}
}

func TestMissingRequired_BlankCountsAsMissing(t *testing.T) {
	low := schema.LevelLow
	d := filledDraft(t, &low)
	d.Sections["section_1"]["title"] = "  "
	got := MissingRequired(d, mustGate(t), low)
	if !reflect.DeepEqual(got, []string{"section_1.title"}) {
		t.Errorf("missing = %v", got)
	}
}

func TestSummarize(t *testing.T) {
	g := mustGate(t)
	low := schema.LevelLow
	r := Summarize(filledDraft(t, &low), makeLog(schema.ResultSuccess, schema.ResultFallback), g)
	if r.Verdict != schema.VerdictCompleteWithGaps || r.SuccessCount != 1 || r.FallbackCount != 1 || r.EffectiveLevel != low {
		t.Errorf("Summarize = %+v", r)
	}

	// No severity gates at HIGH, so the fishbone placeholders become required.
	r = Summarize(filledDraft(t, nil), makeLog(schema.ResultSuccess), g)
	if r.EffectiveLevel != schema.LevelHigh || r.Verdict != schema.VerdictIncomplete {
		t.Errorf("Summarize without severity = %+v", r)
	}
}

func TestFailsAt(t *testing.T) {
	tests := []struct {
		v, threshold schema.Verdict
		want         bool
	}{
		{schema.VerdictComplete, schema.VerdictCompleteWithGaps, false},
		{schema.VerdictCompleteWithGaps, schema.VerdictCompleteWithGaps, true},
		{schema.VerdictIncomplete, schema.VerdictCompleteWithGaps, true},
		{schema.VerdictCompleteWithGaps, schema.VerdictIncomplete, false},
	}
	for _, tt := range tests {
		if got := FailsAt(tt.v, tt.threshold); got != tt.want {
			t.Errorf("FailsAt(%s, %s) = %v, want %v", tt.v, tt.threshold, got, tt.want)
		}
	}
}
