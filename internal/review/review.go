// Package review summarises a normalized draft for a human reviewer.
package review

import (
	"github.com/cgtqwmwkhp-rgb/quality-governance-platform-sub010/internal/gate"
	"github.com/cgtqwmwkhp-rgb/quality-governance-platform-sub010/internal/schema"
	"github.com/cgtqwmwkhp-rgb/quality-governance-platform-sub010/internal/template"
)

// Summarize computes the counts, missing required fields and verdict for a
// draft. Counts cover every mapping log entry.
func Summarize(d *schema.InvestigationDraft, log schema.MappingLog, g *gate.Gate) schema.Review {
	level := gate.EffectiveLevel(d.Severity)
	success, fallback, errs := Counts(log)
	missing := MissingRequired(d, g, level)
	return schema.Review{
		Verdict:         Verdict(log, missing),
		SuccessCount:    success,
		FallbackCount:   fallback,
		ErrorCount:      errs,
		MissingRequired: missing,
		EffectiveLevel:  level,
	}
}

// Counts returns the SUCCESS, FALLBACK and ERROR counts of a mapping log.
func Counts(log schema.MappingLog) (success, fallback, errs int) {
	for _, e := range log {
		switch e.Result {
		case schema.ResultSuccess:
			success++
		case schema.ResultFallback:
			fallback++
		case schema.ResultError:
			errs++
		}
	}
	return
}

// MissingRequired lists, in template order, the required fields at level
// that carry no value.
func MissingRequired(d *schema.InvestigationDraft, g *gate.Gate, level schema.Level) []string {
	out := []string{}
	for _, c := range template.Containers(d.SourceType) {
		for _, f := range c.Fields {
			if !g.IsFieldRequired(c.ID, f.Name, level) {
				continue
			}
			if v, ok := d.Value(c.Path(f.Name)); !ok || schema.IsEmpty(v) {
				out = append(out, c.Path(f.Name))
			}
		}
	}
	return out
}

// Verdict is INCOMPLETE when any rule errored or a required field is
// missing, COMPLETE_WITH_GAPS when any rule fell back, and COMPLETE
// otherwise.
func Verdict(log schema.MappingLog, missing []string) schema.Verdict {
	if len(missing) > 0 {
		return schema.VerdictIncomplete
	}
	for _, e := range log {
		if e.Result == schema.ResultError {
			return schema.VerdictIncomplete
		}
	}
	for _, e := range log {
		if e.Result == schema.ResultFallback {
			return schema.VerdictCompleteWithGaps
		}
	}
	return schema.VerdictComplete
}

// FailsAt reports whether v is at or beyond threshold.
func FailsAt(v, threshold schema.Verdict) bool {
	return schema.VerdictOrdinal(v) >= schema.VerdictOrdinal(threshold)
}
