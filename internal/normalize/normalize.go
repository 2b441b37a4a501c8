// Package normalize maps one immutable source snapshot onto the canonical
// investigation draft. Every rule produces exactly one mapping log entry,
// in registry order, and no rule failure aborts the run.
package normalize

import (
	"fmt"
	"strings"

	"github.com/cgtqwmwkhp-rgb/quality-governance-platform-sub010/internal/registry"
	"github.com/cgtqwmwkhp-rgb/quality-governance-platform-sub010/internal/schema"
	"github.com/cgtqwmwkhp-rgb/quality-governance-platform-sub010/internal/template"
)

// Normalize applies the registry rules for snap's source type. The only
// error is an unknown source type; field-level problems are logged.
func Normalize(reg *registry.Registry, snap *schema.SourceSnapshot) (*schema.InvestigationDraft, schema.MappingLog, error) {
	rules, err := reg.Resolve(snap.SourceType)
	if err != nil {
		return nil, nil, err
	}
	draft, err := template.NewDraft(snap)
	if err != nil {
		return nil, nil, err
	}

	log := make(schema.MappingLog, 0, len(rules))
	for _, rule := range rules {
		value, entry := apply(reg, snap, rule)
		log = append(log, entry)
		if entry.Result != schema.ResultSuccess {
			continue
		}
		set(draft, rule.Target, value)
		if rule.Target == "section_1.severity" {
			if s, ok := value.(string); ok {
				lvl := schema.Level(s)
				draft.Severity = &lvl
			}
		}
		if consented(snap.RawFields, rule, entry.SourceField) {
			draft.Consented = append(draft.Consented, rule.Target)
		}
	}
	return draft, log, nil
}

// apply evaluates one rule. A panic inside a transform is contained and
// reported as MAPPING_ERROR.
func apply(reg *registry.Registry, snap *schema.SourceSnapshot, rule registry.Rule) (value any, entry schema.MappingLogEntry) {
	entry = schema.MappingLogEntry{
		TargetField: rule.Target,
		Transform:   rule.Transform(),
	}
	defer func() {
		if r := recover(); r != nil {
			value = nil
			entry.Result = schema.ResultError
			entry.ReasonCode = reason(schema.ReasonMappingError)
		}
	}()

	switch rule.Kind {
	case registry.KindConstant:
		entry.Result = schema.ResultSuccess
		return schema.CloneValue(rule.Constant), entry

	case registry.KindDirect, registry.KindRemap:
		name, raw, code := firstMatch(snap.RawFields, rule.Sources)
		entry.SourceField = &name
		if code != "" {
			return fallback(entry, code)
		}
		if rule.Kind == registry.KindDirect {
			entry.Result = schema.ResultSuccess
			return schema.CloneValue(raw), entry
		}
		s, ok := raw.(string)
		if !ok {
			return fallback(entry, schema.ReasonTypeMismatch)
		}
		var mapped string
		if rule.Table == registry.SeverityTable {
			lvl, found := reg.Severity(snap.SourceType, s)
			mapped, ok = string(lvl), found
		} else {
			mapped, ok = reg.Remap(rule.Table, s)
		}
		if !ok {
			return fallback(entry, rule.Fallback)
		}
		entry.Result = schema.ResultSuccess
		return mapped, entry

	case registry.KindDerive:
		if len(rule.Sources) == 1 {
			name := rule.Sources[0]
			entry.SourceField = &name
		}
		inputs := make([]any, len(rule.Sources))
		for i, name := range rule.Sources {
			raw, present := snap.RawFields.Lookup(name)
			switch {
			case !present:
				entry.SourceField = &name
				return fallback(entry, schema.ReasonSourceMissingField)
			case schema.IsEmpty(raw):
				entry.SourceField = &name
				return fallback(entry, schema.ReasonEmptyValue)
			}
			inputs[i] = schema.CloneValue(raw)
		}
		fn, ok := reg.Deriver(rule.Derive)
		if !ok {
			return mappingError(entry)
		}
		out, err := fn(inputs)
		if err != nil {
			return mappingError(entry)
		}
		entry.Result = schema.ResultSuccess
		return out, entry
	}
	return mappingError(entry)
}

// firstMatch returns the first candidate present with a non-empty value.
// When none qualifies it reports EMPTY_VALUE if any candidate was present
// and SOURCE_MISSING_FIELD otherwise; the returned name is then the first
// present candidate, or the primary one.
func firstMatch(fields schema.Fields, candidates []string) (string, any, schema.ReasonCode) {
	firstPresent := ""
	for _, name := range candidates {
		v, ok := fields.Lookup(name)
		if !ok {
			continue
		}
		if !schema.IsEmpty(v) {
			return name, v, ""
		}
		if firstPresent == "" {
			firstPresent = name
		}
	}
	if firstPresent != "" {
		return firstPresent, nil, schema.ReasonEmptyValue
	}
	return candidates[0], nil, schema.ReasonSourceMissingField
}

func fallback(entry schema.MappingLogEntry, code schema.ReasonCode) (any, schema.MappingLogEntry) {
	entry.Result = schema.ResultFallback
	entry.ReasonCode = reason(code)
	return nil, entry
}

func mappingError(entry schema.MappingLogEntry) (any, schema.MappingLogEntry) {
	entry.Result = schema.ResultError
	entry.ReasonCode = reason(schema.ReasonMappingError)
	return nil, entry
}

func reason(c schema.ReasonCode) *schema.ReasonCode {
	return &c
}

func set(d *schema.InvestigationDraft, path string, v any) {
	container, field, ok := schema.SplitPath(path)
	if !ok {
		panic(fmt.Sprintf("normalize: malformed target path %q", path))
	}
	if schema.IsAddendum(container) {
		d.Addenda[container][field] = v
		return
	}
	d.Sections[container][field] = v
}

// consented reports whether the value written for rule came from a
// candidate its consent flag covers, and the flag is set.
func consented(fields schema.Fields, rule registry.Rule, source *string) bool {
	if rule.Consent == "" {
		return false
	}
	name := ""
	if source != nil {
		name = *source
	}
	return rule.ConsentCovers(name) && consentGiven(fields, rule.Consent)
}

// consentGiven accepts a JSON true or a yes/true string.
func consentGiven(fields schema.Fields, flag string) bool {
	v, ok := fields.Lookup(flag)
	if !ok {
		return false
	}
	switch t := v.(type) {
	case bool:
		return t
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "yes", "y":
			return true
		}
	}
	return false
}
