// Package pack assembles customer packs from a redacted view and computes
// their tamper-evidence checksum.
package pack

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/gowebpki/jcs"
	"golang.org/x/text/unicode/norm"

	"github.com/cgtqwmwkhp-rgb/quality-governance-platform-sub010/internal/redact"
	"github.com/cgtqwmwkhp-rgb/quality-governance-platform-sub010/internal/schema"
)

// ErrIntegrity reports a pack whose content no longer matches its checksum.
var ErrIntegrity = errors.New("pack integrity fault")

// IDFunc returns a new pack id.
type IDFunc func() string

// Clock returns the generation time.
type Clock func() time.Time

// Assembler renders packs. Its only inputs beyond the view are the id and
// clock sources, neither of which feeds the checksum.
type Assembler struct {
	newID IDFunc
	now   Clock
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithIDFunc overrides the pack id source.
func WithIDFunc(f IDFunc) Option {
	return func(a *Assembler) { a.newID = f }
}

// WithClock overrides the generation clock.
func WithClock(c Clock) Option {
	return func(a *Assembler) { a.now = c }
}

// NewAssembler returns an assembler using random UUIDs and the wall clock
// unless overridden.
func NewAssembler(opts ...Option) *Assembler {
	a := &Assembler{
		newID: func() string { return uuid.New().String() },
		now:   time.Now,
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Assemble renders v as a pack for d and stamps it with actorID.
func (a *Assembler) Assemble(d *schema.InvestigationDraft, v *redact.View, actorID string) (*schema.CustomerPack, error) {
	if d == nil || v == nil {
		return nil, errors.New("pack: draft and view are required")
	}
	if actorID == "" {
		return nil, errors.New("pack: generated-by actor id is required")
	}
	p := &schema.CustomerPack{
		PackID:           a.newID(),
		PackType:         v.Audience,
		InvestigationRef: nfc(d.ReferenceNumber),
		GeneratedAt:      a.now().UTC(),
		GeneratedBy:      actorID,
		Sections:         renderSections(v.Sections),
		Evidence:         renderEvidence(v.Evidence),
		Addenda:          renderSections(v.Addenda),
		Warnings:         append([]schema.Warning{}, v.Warnings...),
		RedactionLog:     append([]schema.RedactionDecision{}, v.Log...),
	}
	sum, err := Checksum(p)
	if err != nil {
		return nil, err
	}
	p.Checksum = sum
	return p, nil
}

func renderSections(in []schema.PackSection) []schema.PackSection {
	out := make([]schema.PackSection, len(in))
	for i, s := range in {
		fields := make(schema.Values, len(s.Fields))
		for k, v := range s.Fields {
			fields[k] = nfcValue(v)
		}
		out[i] = schema.PackSection{ID: s.ID, Title: nfc(s.Title), Fields: fields}
	}
	return out
}

func renderEvidence(in []schema.PackEvidence) []schema.PackEvidence {
	out := make([]schema.PackEvidence, len(in))
	for i, e := range in {
		e.RedactionNote = nfc(e.RedactionNote)
		e.ExclusionReason = nfc(e.ExclusionReason)
		out[i] = e
	}
	return out
}

func nfc(s string) string {
	return norm.NFC.String(s)
}

// nfcValue normalizes every string inside a JSON-shaped value.
func nfcValue(v any) any {
	switch t := v.(type) {
	case string:
		return nfc(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = nfcValue(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[nfc(k)] = nfcValue(e)
		}
		return out
	}
	return schema.CloneValue(v)
}

// content is the checksummed subset of a pack. Identity and generation
// metadata are excluded so identical inputs hash identically.
type content struct {
	PackType         schema.PackType            `json:"pack_type"`
	InvestigationRef string                     `json:"investigation_reference"`
	Sections         []schema.PackSection       `json:"sections"`
	Evidence         []schema.PackEvidence      `json:"evidence"`
	Addenda          []schema.PackSection       `json:"addenda"`
	Warnings         []schema.Warning           `json:"warnings"`
	RedactionLog     []schema.RedactionDecision `json:"redaction_log"`
}

// Canonical returns the RFC 8785 serialization of the pack's rendered
// content.
func Canonical(p *schema.CustomerPack) ([]byte, error) {
	raw, err := json.Marshal(content{
		PackType:         p.PackType,
		InvestigationRef: p.InvestigationRef,
		Sections:         orEmpty(p.Sections),
		Evidence:         orEmpty(p.Evidence),
		Addenda:          orEmpty(p.Addenda),
		Warnings:         orEmpty(p.Warnings),
		RedactionLog:     orEmpty(p.RedactionLog),
	})
	if err != nil {
		return nil, fmt.Errorf("pack: marshal content: %w", err)
	}
	out, err := jcs.Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("pack: canonicalize: %w", err)
	}
	return out, nil
}

// orEmpty makes nil and empty slices serialize identically.
func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// Checksum returns "sha256:<hex>" over the canonical content.
func Checksum(p *schema.CustomerPack) (string, error) {
	b, err := Canonical(p)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return "sha256:" + hex.EncodeToString(sum[:]), nil
}

// Verify recomputes the checksum and reports a mismatch as ErrIntegrity.
func Verify(p *schema.CustomerPack) error {
	got, err := Checksum(p)
	if err != nil {
		return err
	}
	if got != p.Checksum {
		return fmt.Errorf("%w: pack %s: stored %s, computed %s", ErrIntegrity, p.PackID, p.Checksum, got)
	}
	return nil
}
