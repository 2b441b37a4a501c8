// Package redact decides, for one draft, its evidence and a target
// audience, what a customer pack may show. Every field and every asset gets
// exactly one logged decision.
package redact

import (
	"errors"
	"fmt"
	"sort"

	"github.com/cgtqwmwkhp-rgb/quality-governance-platform-sub010/internal/evidence"
	"github.com/cgtqwmwkhp-rgb/quality-governance-platform-sub010/internal/schema"
	"github.com/cgtqwmwkhp-rgb/quality-governance-platform-sub010/internal/template"
)

// ErrDataQuality is returned when the public-PII policy is "fail" and an
// asset is marked both public and PII-bearing.
var ErrDataQuality = errors.New("evidence data-quality fault")

// PublicPIIPolicy selects how a public asset flagged as PII is handled.
type PublicPIIPolicy string

const (
	PublicPIIWarn    PublicPIIPolicy = "warn"
	PublicPIIExclude PublicPIIPolicy = "exclude"
	PublicPIIFail    PublicPIIPolicy = "fail"
)

// Policy holds the configurable parts of redaction.
type Policy struct {
	PublicPII PublicPIIPolicy
	// InternalRedactionRequired makes internal-customer packs honour an
	// asset's redaction-required flag.
	InternalRedactionRequired bool
	// RoleLabels overrides template role labels by field path.
	RoleLabels map[string]string
}

// DefaultPolicy warns on public PII and honours redaction-required for both
// audiences.
func DefaultPolicy() Policy {
	return Policy{PublicPII: PublicPIIWarn, InternalRedactionRequired: true}
}

// Validate checks the policy against the template.
func (p Policy) Validate() error {
	switch p.PublicPII {
	case PublicPIIWarn, PublicPIIExclude, PublicPIIFail:
	default:
		return fmt.Errorf("redact: unknown public PII policy %q", p.PublicPII)
	}
	for path, label := range p.RoleLabels {
		def, ok := template.Lookup(path)
		if !ok {
			return fmt.Errorf("redact: role label for unknown field %s", path)
		}
		if def.Class != template.ClassPersonName {
			return fmt.Errorf("redact: role label for %s, which is not a person name", path)
		}
		if label == "" {
			return fmt.Errorf("redact: empty role label for %s", path)
		}
	}
	return nil
}

// Engine applies a validated policy. It holds no mutable state.
type Engine struct {
	policy Policy
}

// New validates p and returns an engine.
func New(p Policy) (*Engine, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	labels := make(map[string]string, len(p.RoleLabels))
	for k, v := range p.RoleLabels {
		labels[k] = v
	}
	p.RoleLabels = labels
	return &Engine{policy: p}, nil
}

// Policy returns a copy of the engine's policy.
func (e *Engine) Policy() Policy {
	p := e.policy
	p.RoleLabels = make(map[string]string, len(e.policy.RoleLabels))
	for k, v := range e.policy.RoleLabels {
		p.RoleLabels[k] = v
	}
	return p
}

// View is the post-redaction content of a pack for one audience.
type View struct {
	Audience schema.PackType
	Sections []schema.PackSection
	Addenda  []schema.PackSection
	Evidence []schema.PackEvidence
	Warnings []schema.Warning
	Log      []schema.RedactionDecision
	// Withheld maps each withheld-N log path to the asset id it stands
	// for. It is never copied into a pack.
	Withheld map[string]string
}

// WithheldReason is the only reason a pack gives for an asset it must not
// acknowledge.
const WithheldReason = "evidence withheld"

// Apply evaluates every draft field and every asset for audience. Field
// decisions come first in template order, then assets ordered by id. The
// draft and assets are not modified.
func (e *Engine) Apply(d *schema.InvestigationDraft, assets []schema.EvidenceAsset, audience schema.PackType) (*View, error) {
	if d == nil {
		return nil, errors.New("redact: nil draft")
	}
	if !schema.IsValidPackType(audience) {
		return nil, fmt.Errorf("redact: unknown audience %q", audience)
	}
	v := &View{
		Audience: audience,
		Sections: []schema.PackSection{},
		Addenda:  []schema.PackSection{},
		Evidence: []schema.PackEvidence{},
		Warnings: []schema.Warning{},
		Log:      []schema.RedactionDecision{},
	}
	for _, c := range template.Containers(d.SourceType) {
		e.applyContainer(v, d, c)
	}
	if err := e.applyEvidence(v, assets); err != nil {
		return nil, err
	}
	return v, nil
}

func (e *Engine) applyContainer(v *View, d *schema.InvestigationDraft, c template.SectionDef) {
	applicable := d.IsApplicable(c.ID)
	fields := schema.Values{}
	for _, f := range c.Fields {
		path := c.Path(f.Name)
		raw, _ := d.Value(path)
		switch {
		case !applicable:
			v.Log = append(v.Log, exclude(path, "section not applicable at this severity"))
			continue
		case f.Class.IsInternal():
			v.Log = append(v.Log, exclude(path, string(f.Class)+" is never disclosed to customers"))
			continue
		}
		out, dec := e.decideField(d, path, f, raw, v.Audience)
		fields[f.Name] = out
		v.Log = append(v.Log, dec)
	}
	if !applicable {
		return
	}
	s := schema.PackSection{ID: c.ID, Title: c.Title, Fields: fields}
	if schema.IsAddendum(c.ID) {
		v.Addenda = append(v.Addenda, s)
	} else {
		v.Sections = append(v.Sections, s)
	}
}

// decideField applies the audience layer to one disclosable field.
func (e *Engine) decideField(d *schema.InvestigationDraft, path string, f template.FieldDef, raw any, audience schema.PackType) (any, schema.RedactionDecision) {
	if raw == nil || audience == schema.PackInternalCustomer {
		return schema.CloneValue(raw), include(path)
	}
	if f.Class.IsIdentity() && d.HasConsent(path) {
		return schema.CloneValue(raw), include(path)
	}
	switch f.Class {
	case template.ClassPersonName:
		return roleLabel(raw, e.label(path, f)), redact(path, TransformRoleLabel, raw, "name replaced with role label")
	case template.ClassEmail, template.ClassPhone:
		return nil, redact(path, TransformNullify, raw, "contact detail removed")
	case template.ClassAddress:
		return coarsenAddress(raw), redact(path, TransformCoarsenAddress, raw, "address reduced to town and postcode district")
	case template.ClassVehicleRegistration:
		return maskRegistration(raw), redact(path, TransformMaskRegistration, raw, "registration partially masked")
	case template.ClassNarrative:
		if out, changed := scrubValue(raw); changed {
			return out, redact(path, TransformScrubContact, raw, "embedded contact details removed")
		}
	}
	return schema.CloneValue(raw), include(path)
}

func (e *Engine) label(path string, f template.FieldDef) string {
	if l, ok := e.policy.RoleLabels[path]; ok {
		return l
	}
	if f.RoleLabel != "" {
		return f.RoleLabel
	}
	return "Person"
}

func (e *Engine) applyEvidence(v *View, assets []schema.EvidenceAsset) error {
	sorted := append([]schema.EvidenceAsset(nil), assets...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].AssetID < sorted[j].AssetID })

	for _, a := range sorted {
		c := evidence.Classify(a, v.Audience)
		entry := schema.PackEvidence{
			AssetID:      a.AssetID,
			AssetType:    a.AssetType,
			SourceModule: a.SourceModule,
			SourceID:     a.SourceID,
		}
		switch {
		case !c.Eligible:
			// Internal-only and unrecognised tiers are logged under a
			// positional token so no pack carries their ids.
			if a.Visibility == schema.VisibilityInternalOnly || !evidence.IsValidVisibility(a.Visibility) {
				token := fmt.Sprintf("withheld-%d", len(v.Withheld)+1)
				if v.Withheld == nil {
					v.Withheld = make(map[string]string)
				}
				v.Withheld[token] = a.AssetID
				v.Log = append(v.Log, exclude(token, WithheldReason))
				continue
			}
			v.Log = append(v.Log, exclude(a.AssetID, c.Reason))
			entry.Disposition = schema.DecisionExclude
			entry.ExclusionReason = c.Reason

		case c.DataQuality:
			v.Warnings = append(v.Warnings, schema.Warning{
				Code:    schema.WarningPublicPII,
				Path:    a.AssetID,
				Message: "asset is marked public but flagged as containing personal data",
			})
			switch e.policy.PublicPII {
			case PublicPIIFail:
				return fmt.Errorf("%w: asset %s is public and contains PII", ErrDataQuality, a.AssetID)
			case PublicPIIExclude:
				reason := "public asset flagged as containing personal data"
				v.Log = append(v.Log, exclude(a.AssetID, reason))
				entry.Disposition = schema.DecisionExclude
				entry.ExclusionReason = reason
			default:
				v.Log = append(v.Log, include(a.AssetID))
				entry.Disposition = schema.DecisionInclude
			}

		case c.RedactionCandidate && e.mustRedact(a, v.Audience):
			note := redactionNote(a)
			v.Log = append(v.Log, assetRedact(a, note))
			entry.Disposition = schema.DecisionRedact
			entry.RedactionNote = note

		default:
			v.Log = append(v.Log, include(a.AssetID))
			entry.Disposition = schema.DecisionInclude
		}
		v.Evidence = append(v.Evidence, entry)
	}
	return nil
}

// mustRedact applies the audience rule to a redaction candidate. External
// packs redact on either flag; internal packs only on redaction-required,
// and only when the policy says so.
func (e *Engine) mustRedact(a schema.EvidenceAsset, audience schema.PackType) bool {
	if audience == schema.PackExternalCustomer {
		return true
	}
	return a.RedactionRequired && e.policy.InternalRedactionRequired
}

func redactionNote(a schema.EvidenceAsset) string {
	switch {
	case a.ContainsPII && a.RedactionRequired:
		return "contains personal data and is marked redaction-required; redact before disclosure"
	case a.ContainsPII:
		return "contains personal data; redact before disclosure"
	default:
		return "marked redaction-required; redact before disclosure"
	}
}

func include(path string) schema.RedactionDecision {
	return schema.RedactionDecision{Path: path, Decision: schema.DecisionInclude}
}

func exclude(path, reason string) schema.RedactionDecision {
	return schema.RedactionDecision{Path: path, Decision: schema.DecisionExclude, Reason: reason}
}

func redact(path, transform string, original any, note string) schema.RedactionDecision {
	vt := schema.ValueType(original)
	return schema.RedactionDecision{
		Path:              path,
		Decision:          schema.DecisionRedact,
		Transform:         &transform,
		OriginalValueType: &vt,
		Reason:            note,
	}
}

func assetRedact(a schema.EvidenceAsset, note string) schema.RedactionDecision {
	t := TransformRedactContent
	vt := string(a.AssetType)
	return schema.RedactionDecision{
		Path:              a.AssetID,
		Decision:          schema.DecisionRedact,
		Transform:         &t,
		OriginalValueType: &vt,
		Reason:            note,
	}
}
