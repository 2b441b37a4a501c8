// Package gate decides which template sections apply at a severity level
// and which fields within them are required.
package gate

import (
	"fmt"

	"github.com/cgtqwmwkhp-rgb/quality-governance-platform-sub010/internal/schema"
	"github.com/cgtqwmwkhp-rgb/quality-governance-platform-sub010/internal/template"
)

// Gate is a pure function of its level table.
type Gate struct {
	levels map[schema.Level][]string
}

// New returns the built-in gate: LOW covers the overview, people, immediate
// actions and sign-off; MEDIUM adds root cause and corrective actions; HIGH
// adds the fishbone analysis.
func New() (*Gate, error) {
	low := []string{"section_1", "section_2", "section_3", "section_7"}
	medium := append(append([]string(nil), low...), "section_4", "section_5")
	high := append(append([]string(nil), medium...), "section_6")
	return NewFromTable(map[schema.Level][]string{
		schema.LevelLow:    low,
		schema.LevelMedium: medium,
		schema.LevelHigh:   high,
	})
}

// NewFromTable validates a level table: every level present, every section
// known to the template, and LOW ⊆ MEDIUM ⊆ HIGH.
func NewFromTable(levels map[schema.Level][]string) (*Gate, error) {
	g := &Gate{levels: make(map[schema.Level][]string, len(levels))}
	var prev map[string]bool
	var prevLevel schema.Level
	for _, l := range schema.Levels() {
		ids, ok := levels[l]
		if !ok {
			return nil, fmt.Errorf("gate: no sections for level %s", l)
		}
		cur := make(map[string]bool, len(ids))
		for _, id := range ids {
			if _, ok := template.Section(id); !ok {
				return nil, fmt.Errorf("gate: level %s names unknown section %q", l, id)
			}
			cur[id] = true
		}
		for id := range prev {
			if !cur[id] {
				return nil, fmt.Errorf("gate: section %s applies at %s but not at %s", id, prevLevel, l)
			}
		}
		g.levels[l] = inTemplateOrder(cur)
		prev, prevLevel = cur, l
	}
	return g, nil
}

func inTemplateOrder(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for _, id := range template.SectionIDs() {
		if set[id] {
			out = append(out, id)
		}
	}
	return out
}

// EffectiveLevel returns the level a draft is gated at. A draft without a
// canonical severity gets the full template.
func EffectiveLevel(l *schema.Level) schema.Level {
	if l == nil || schema.LevelOrdinal(*l) < 0 {
		return schema.LevelHigh
	}
	return *l
}

// ApplicableSections returns the section ids that apply at level, in
// template order.
func (g *Gate) ApplicableSections(level schema.Level) []string {
	return append([]string(nil), g.levels[level]...)
}

// IsApplicable reports whether a section or addendum applies at level.
// Addenda depend only on source type and always apply.
func (g *Gate) IsApplicable(sectionID string, level schema.Level) bool {
	if schema.IsAddendum(sectionID) {
		return true
	}
	for _, id := range g.levels[level] {
		if id == sectionID {
			return true
		}
	}
	return false
}

// IsFieldRequired reports whether a field must carry a value at level.
func (g *Gate) IsFieldRequired(sectionID, fieldID string, level schema.Level) bool {
	if !g.IsApplicable(sectionID, level) {
		return false
	}
	def, ok := template.Lookup(sectionID + "." + fieldID)
	if !ok || def.Required == "" {
		return false
	}
	return schema.LevelOrdinal(level) >= schema.LevelOrdinal(def.Required)
}

// Annotate records the applicable sections on a draft.
func (g *Gate) Annotate(d *schema.InvestigationDraft) {
	d.ApplicableSections = g.ApplicableSections(EffectiveLevel(d.Severity))
}
