package normalize

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/cgtqwmwkhp-rgb/quality-governance-platform-sub010/internal/schema"
)

// rawFieldNames covers names used by the rule tables plus noise.
var rawFieldNames = []string{
	"title", "description", "event_date", "severity", "potential_severity", "priority",
	"subject", "details", "received_date", "channel", "summary", "collision_date",
	"driver_name", "vehicle_registration", "witnesses", "road_name", "town", "noise",
}

func genSnapshot() gopter.Gen {
	return gopter.CombineGens(
		gen.IntRange(0, len(schema.SourceTypes())-1),
		gen.SliceOf(gen.IntRange(0, len(rawFieldNames)-1)),
		gen.SliceOf(gen.AlphaString()),
	).Map(func(vals []any) *schema.SourceSnapshot {
		st := schema.SourceTypes()[vals[0].(int)]
		idx := vals[1].([]int)
		strs := vals[2].([]string)
		seen := make(map[string]bool)
		var fields schema.Fields
		for i, n := range idx {
			name := rawFieldNames[n]
			if seen[name] {
				continue
			}
			seen[name] = true
			v := ""
			if i < len(strs) {
				v = strs[i]
			}
			fields = append(fields, schema.Field{Name: name, Value: v})
		}
		return snapshot(st, "1.5.0", fields...)
	})
}

func TestProperty_LogMatchesRules(t *testing.T) {
	reg := mustRegistry(t)
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("one log entry per rule, in rule order", prop.ForAll(
		func(snap *schema.SourceSnapshot) bool {
			_, log, err := Normalize(reg, snap)
			if err != nil {
				return false
			}
			rules, _ := reg.Resolve(snap.SourceType)
			if len(log) != len(rules) {
				return false
			}
			for i := range rules {
				if log[i].TargetField != rules[i].Target {
					return false
				}
			}
			return true
		},
		genSnapshot(),
	))

	properties.Property("every set field traces to a SUCCESS entry", prop.ForAll(
		func(snap *schema.SourceSnapshot) bool {
			draft, log, err := Normalize(reg, snap)
			if err != nil {
				return false
			}
			for _, e := range log {
				_, set := draft.Value(e.TargetField)
				if set != (e.Result == schema.ResultSuccess) {
					return false
				}
			}
			return true
		},
		genSnapshot(),
	))

	properties.Property("normalize is idempotent", prop.ForAll(
		func(snap *schema.SourceSnapshot) bool {
			d1, l1, err1 := Normalize(reg, snap)
			d2, l2, err2 := Normalize(reg, snap)
			if err1 != nil || err2 != nil {
				return false
			}
			a, _ := json.Marshal(struct {
				D *schema.InvestigationDraft
				L schema.MappingLog
			}{d1, l1})
			b, _ := json.Marshal(struct {
				D *schema.InvestigationDraft
				L schema.MappingLog
			}{d2, l2})
			return bytes.Equal(a, b)
		},
		genSnapshot(),
	))

	properties.TestingRun(t)
}
