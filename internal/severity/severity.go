// Package severity maps source-specific severity vocabularies onto the
// canonical LOW/MEDIUM/HIGH scale.
package severity

import (
	"fmt"

	"github.com/cgtqwmwkhp-rgb/quality-governance-platform-sub010/internal/schema"
)

// Table maps raw values (case-sensitive, exact) to canonical levels.
type Table map[string]schema.Level

// Normalizer holds one lookup table per source type. It is never mutated
// after construction.
type Normalizer struct {
	tables map[schema.SourceType]Table
}

// Default returns the built-in tables.
func Default() *Normalizer {
	return &Normalizer{tables: map[schema.SourceType]Table{
		schema.SourceNearMiss:  nearMiss(),
		schema.SourceComplaint: complaint(),
		schema.SourceRTA:       rta(),
	}}
}

// nearMiss covers severity, potential_severity and priority vocabularies.
// "critical" has no level above HIGH and clamps to it.
func nearMiss() Table {
	return Table{
		"low":      schema.LevelLow,
		"minor":    schema.LevelLow,
		"medium":   schema.LevelMedium,
		"moderate": schema.LevelMedium,
		"high":     schema.LevelHigh,
		"major":    schema.LevelHigh,
		"critical": schema.LevelHigh,
	}
}

func complaint() Table {
	return Table{
		"P3":     schema.LevelLow,
		"low":    schema.LevelLow,
		"P2":     schema.LevelMedium,
		"normal": schema.LevelMedium,
		"P1":     schema.LevelHigh,
		"high":   schema.LevelHigh,
		"urgent": schema.LevelHigh,
	}
}

func rta() Table {
	return Table{
		"damage_only": schema.LevelLow,
		"slight":      schema.LevelMedium,
		"serious":     schema.LevelHigh,
		"fatal":       schema.LevelHigh,
	}
}

// Normalize maps a raw value for a source type. The second return is false
// when the value is not in the table; callers record that as NOT_APPLICABLE.
func (n *Normalizer) Normalize(t schema.SourceType, raw string) (schema.Level, bool) {
	tbl, ok := n.tables[t]
	if !ok {
		return "", false
	}
	l, ok := tbl[raw]
	return l, ok
}

// Validate checks that every source type has a non-empty table and every
// entry maps to a canonical level.
func (n *Normalizer) Validate() error {
	for _, st := range schema.SourceTypes() {
		tbl, ok := n.tables[st]
		if !ok || len(tbl) == 0 {
			return fmt.Errorf("severity: no table for source type %q", st)
		}
		for raw, l := range tbl {
			if schema.LevelOrdinal(l) < 0 {
				return fmt.Errorf("severity: %s value %q maps to unknown level %q", st, raw, l)
			}
		}
	}
	return nil
}
