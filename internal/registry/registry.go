package registry

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/cgtqwmwkhp-rgb/quality-governance-platform-sub010/internal/schema"
	"github.com/cgtqwmwkhp-rgb/quality-governance-platform-sub010/internal/severity"
	"github.com/cgtqwmwkhp-rgb/quality-governance-platform-sub010/internal/template"
)

var (
	// ErrUnknownSourceType is returned when no rule set exists for a source type.
	ErrUnknownSourceType = errors.New("unknown source type")
	// ErrIncomplete is returned when rule coverage of the template is not exact.
	ErrIncomplete = errors.New("incomplete rule coverage")
	// ErrUnsupportedVersion is returned for snapshots outside a rule set's schema range.
	ErrUnsupportedVersion = errors.New("unsupported schema version")
)

// Kind is the transform a rule applies.
type Kind string

const (
	KindDirect   Kind = "direct"
	KindRemap    Kind = "remap"
	KindDerive   Kind = "derive"
	KindConstant Kind = "constant"
)

// SeverityTable is the remap table name that routes through the severity normalizer.
const SeverityTable = "severity"

// NotApplicable is the placeholder emitted for fields a source type never carries.
const NotApplicable = "NOT_APPLICABLE"

// Pending is the placeholder for fields completed later in the investigation.
const Pending = "PENDING"

// Rule maps source field(s) onto one canonical target field.
//
// For direct and remap rules Sources is an ordered candidate list; the
// first candidate that is present and non-empty wins. For derive rules
// every source is a required input. Constant rules have no sources.
type Rule struct {
	Target   string
	Kind     Kind
	Sources  []string
	Table    string // remap only
	Derive   string // derive only
	Constant any    // constant only
	// Consent names the raw field carrying an explicit share-consent flag.
	Consent string
	// ConsentFor limits Consent to these candidates. Empty means every
	// source of the rule is covered.
	ConsentFor []string
	// Fallback is the reason recorded when a remap lookup misses.
	Fallback schema.ReasonCode
}

// Transform returns the transform name recorded in the mapping log.
func (r Rule) Transform() string {
	switch r.Kind {
	case KindRemap:
		return "remap:" + r.Table
	case KindDerive:
		return "derive:" + r.Derive
	}
	return string(r.Kind)
}

// ConsentCovers reports whether the consent flag applies to a value read
// from source.
func (r Rule) ConsentCovers(source string) bool {
	if r.Consent == "" {
		return false
	}
	if len(r.ConsentFor) == 0 {
		return true
	}
	return slices.Contains(r.ConsentFor, source)
}

// RuleSet is the ordered rule list for one source type.
type RuleSet struct {
	SourceType schema.SourceType
	// SchemaVersions is a semver constraint on snapshot schema versions.
	SchemaVersions string
	Rules          []Rule
}

// Registry resolves rule sets and owns the remap tables and derive
// functions they reference. A Registry is immutable once New returns.
type Registry struct {
	sets        map[schema.SourceType]RuleSet
	constraints map[schema.SourceType]*semver.Constraints
	tables      map[string]map[string]string
	derivers    map[string]DeriveFunc
	severity    *severity.Normalizer
}

// New builds the registry from the built-in rule tables and validates it.
func New() (*Registry, error) {
	sets := make([]RuleSet, 0, len(schema.SourceTypes()))
	for _, st := range schema.SourceTypes() {
		rs, err := builtin(st)
		if err != nil {
			return nil, err
		}
		sets = append(sets, rs)
	}
	return NewFromSets(sets)
}

// NewFromSets builds a registry from explicit rule sets using the built-in
// remap tables, derive functions and severity tables.
func NewFromSets(sets []RuleSet) (*Registry, error) {
	r := &Registry{
		sets:        make(map[schema.SourceType]RuleSet, len(sets)),
		constraints: make(map[schema.SourceType]*semver.Constraints, len(sets)),
		tables:      builtinTables(),
		derivers:    builtinDerivers(),
		severity:    severity.Default(),
	}
	for _, rs := range sets {
		if _, dup := r.sets[rs.SourceType]; dup {
			return nil, fmt.Errorf("registry: duplicate rule set for %q", rs.SourceType)
		}
		r.sets[rs.SourceType] = rs
	}
	if err := r.validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// builtin dispatches to the rule table for a source type.
func builtin(t schema.SourceType) (RuleSet, error) {
	switch t {
	case schema.SourceNearMiss:
		return nearMiss(), nil
	case schema.SourceComplaint:
		return complaint(), nil
	case schema.SourceRTA:
		return rta(), nil
	default:
		return RuleSet{}, fmt.Errorf("%w: %q", ErrUnknownSourceType, t)
	}
}

// Resolve returns the ordered rules for a source type.
func (r *Registry) Resolve(t schema.SourceType) ([]Rule, error) {
	rs, ok := r.sets[t]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSourceType, t)
	}
	return rs.Rules, nil
}

// Remap looks up raw in a named table.
func (r *Registry) Remap(table, raw string) (string, bool) {
	tbl, ok := r.tables[table]
	if !ok {
		return "", false
	}
	v, ok := tbl[raw]
	return v, ok
}

// Severity maps a raw severity value for a source type.
func (r *Registry) Severity(t schema.SourceType, raw string) (schema.Level, bool) {
	return r.severity.Normalize(t, raw)
}

// Deriver returns a named derive function.
func (r *Registry) Deriver(name string) (DeriveFunc, bool) {
	fn, ok := r.derivers[name]
	return fn, ok
}

// CheckVersion returns ErrUnsupportedVersion when version falls outside the
// schema range declared for the source type.
func (r *Registry) CheckVersion(t schema.SourceType, version string) error {
	c, ok := r.constraints[t]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownSourceType, t)
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrUnsupportedVersion, version, err)
	}
	if !c.Check(v) {
		return fmt.Errorf("%w: %s %s does not satisfy %q", ErrUnsupportedVersion, t, version, r.sets[t].SchemaVersions)
	}
	return nil
}

// validate enforces that every canonical field of every source type has
// exactly one well-formed rule.
func (r *Registry) validate() error {
	if err := r.severity.Validate(); err != nil {
		return fmt.Errorf("registry: %w", err)
	}
	for st := range r.sets {
		if !schema.IsValidSourceType(st) {
			return fmt.Errorf("registry: %w: %q", ErrUnknownSourceType, st)
		}
	}
	for _, st := range schema.SourceTypes() {
		rs, ok := r.sets[st]
		if !ok {
			return fmt.Errorf("registry: %w: no rules for %q", ErrIncomplete, st)
		}
		c, err := semver.NewConstraint(rs.SchemaVersions)
		if err != nil {
			return fmt.Errorf("registry: %s schema version constraint %q: %w", st, rs.SchemaVersions, err)
		}
		r.constraints[st] = c

		counts := make(map[string]int, len(rs.Rules))
		for i, rule := range rs.Rules {
			if err := r.validateRule(rule); err != nil {
				return fmt.Errorf("registry: %s rule[%d] %s: %w", st, i, rule.Target, err)
			}
			counts[rule.Target]++
		}
		for _, p := range template.Paths(st) {
			switch counts[p] {
			case 1:
			case 0:
				return fmt.Errorf("registry: %w: %s has no rule for %s", ErrIncomplete, st, p)
			default:
				return fmt.Errorf("registry: %w: %s has %d rules for %s", ErrIncomplete, st, counts[p], p)
			}
			delete(counts, p)
		}
		if len(counts) > 0 {
			extra := make([]string, 0, len(counts))
			for p := range counts {
				extra = append(extra, p)
			}
			sort.Strings(extra)
			return fmt.Errorf("registry: %s rules target unknown fields: %s", st, strings.Join(extra, ", "))
		}
	}
	return nil
}

func (r *Registry) validateRule(rule Rule) error {
	def, ok := template.Lookup(rule.Target)
	if !ok {
		// Reported with the coverage check so the message lists every stray target.
		return nil
	}
	if rule.Consent != "" && !def.Class.IsIdentity() {
		return fmt.Errorf("consent flag on non-identity field")
	}
	for _, src := range rule.ConsentFor {
		if rule.Consent == "" {
			return fmt.Errorf("consent candidates without a consent flag")
		}
		if !slices.Contains(rule.Sources, src) {
			return fmt.Errorf("consent candidate %q is not a source of the rule", src)
		}
	}
	switch rule.Kind {
	case KindDirect:
		if len(rule.Sources) == 0 {
			return fmt.Errorf("direct rule needs at least one source")
		}
	case KindRemap:
		if len(rule.Sources) == 0 {
			return fmt.Errorf("remap rule needs at least one source")
		}
		if rule.Table != SeverityTable {
			if _, ok := r.tables[rule.Table]; !ok {
				return fmt.Errorf("unknown remap table %q", rule.Table)
			}
		}
		if !schema.IsValidReasonCode(rule.Fallback) {
			return fmt.Errorf("remap rule has invalid fallback reason %q", rule.Fallback)
		}
	case KindDerive:
		if len(rule.Sources) == 0 {
			return fmt.Errorf("derive rule needs at least one source")
		}
		if _, ok := r.derivers[rule.Derive]; !ok {
			return fmt.Errorf("unknown derive function %q", rule.Derive)
		}
	case KindConstant:
		if rule.Constant == nil {
			return fmt.Errorf("constant rule has no value")
		}
		if len(rule.Sources) > 0 {
			return fmt.Errorf("constant rule must not read sources")
		}
	default:
		return fmt.Errorf("unknown transform kind %q", rule.Kind)
	}
	return nil
}

// Describe returns a human-readable listing of the rules for a source type.
func (r *Registry) Describe(t schema.SourceType) (string, error) {
	rs, ok := r.sets[t]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownSourceType, t)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Source type: %s (schema versions %s)\n\n", rs.SourceType, rs.SchemaVersions)
	for _, rule := range rs.Rules {
		fmt.Fprintf(&sb, "- %s <- %s", rule.Target, rule.Transform())
		switch rule.Kind {
		case KindConstant:
			fmt.Fprintf(&sb, " %v", rule.Constant)
		case KindDerive:
			fmt.Fprintf(&sb, "(%s)", strings.Join(rule.Sources, ", "))
		default:
			fmt.Fprintf(&sb, "(%s)", strings.Join(rule.Sources, " | "))
		}
		if rule.Consent != "" {
			fmt.Fprintf(&sb, " [consent: %s", rule.Consent)
			if len(rule.ConsentFor) > 0 {
				fmt.Fprintf(&sb, " for %s", strings.Join(rule.ConsentFor, ", "))
			}
			sb.WriteString("]")
		}
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

// direct, remap, derive and constant build rules compactly in the tables.

func direct(target string, sources ...string) Rule {
	return Rule{Target: target, Kind: KindDirect, Sources: sources}
}

func remap(target, table string, sources ...string) Rule {
	fallback := schema.ReasonTypeMismatch
	if table == SeverityTable {
		fallback = schema.ReasonNotApplicable
	}
	return Rule{Target: target, Kind: KindRemap, Table: table, Sources: sources, Fallback: fallback}
}

func derive(target, fn string, sources ...string) Rule {
	return Rule{Target: target, Kind: KindDerive, Derive: fn, Sources: sources}
}

func constant(target string, v any) Rule {
	return Rule{Target: target, Kind: KindConstant, Constant: v}
}

// withConsent attaches a consent flag. When sources are named, the flag
// only covers values read from those candidates.
func withConsent(r Rule, flag string, sources ...string) Rule {
	r.Consent = flag
	r.ConsentFor = sources
	return r
}

// fishbone rules are shared by every source type; the analysis always
// starts empty.
func fishbone() []Rule {
	return []Rule{
		constant("section_6.people", Pending),
		constant("section_6.process", Pending),
		constant("section_6.equipment", Pending),
		constant("section_6.environment", Pending),
	}
}
