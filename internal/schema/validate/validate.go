package validate

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"

	"github.com/Masterminds/semver/v3"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/cgtqwmwkhp-rgb/quality-governance-platform-sub010/internal/schema"
)

//go:embed schemas/*.json
var schemaFS embed.FS

const schemaBase = "https://qgp.schemas.local/"

var (
	snapshotSchema = mustCompile("snapshot.schema.json")
	evidenceSchema = mustCompile("evidence.schema.json")
	packSchema     = mustCompile("pack.schema.json")
)

func mustCompile(name string) *jsonschema.Schema {
	data, err := schemaFS.ReadFile("schemas/" + name)
	if err != nil {
		panic(err)
	}
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	c.AssertFormat = true
	if err := c.AddResource(schemaBase+name, bytes.NewReader(data)); err != nil {
		panic(fmt.Sprintf("loading %s: %v", name, err))
	}
	return c.MustCompile(schemaBase + name)
}

// ParseSnapshot decodes and validates a source snapshot document.
func ParseSnapshot(data []byte) (*schema.SourceSnapshot, error) {
	if err := checkSchema(snapshotSchema, data); err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	var snap schema.SourceSnapshot
	if err := decode(data, &snap); err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	if err := validateSnapshot(&snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// ParseEvidence decodes and validates an evidence metadata list.
func ParseEvidence(data []byte) ([]schema.EvidenceAsset, error) {
	if err := checkSchema(evidenceSchema, data); err != nil {
		return nil, fmt.Errorf("evidence: %w", err)
	}
	var assets []schema.EvidenceAsset
	if err := decode(data, &assets); err != nil {
		return nil, fmt.Errorf("evidence: %w", err)
	}
	seen := make(map[string]int, len(assets))
	for i, a := range assets {
		if j, dup := seen[a.AssetID]; dup {
			return nil, fmt.Errorf("evidence[%d]: asset_id %q already used by evidence[%d]", i, a.AssetID, j)
		}
		seen[a.AssetID] = i
	}
	return assets, nil
}

// ParsePack decodes and validates a customer pack document. The checksum
// is checked for shape only; pack.Verify checks it against the content.
func ParsePack(data []byte) (*schema.CustomerPack, error) {
	if err := checkSchema(packSchema, data); err != nil {
		return nil, fmt.Errorf("pack: %w", err)
	}
	var p schema.CustomerPack
	if err := decode(data, &p); err != nil {
		return nil, fmt.Errorf("pack: %w", err)
	}
	for i, d := range p.RedactionLog {
		if d.Decision == schema.DecisionExclude && d.Reason == "" {
			return nil, fmt.Errorf("pack: redaction_log[%d]: exclude decision for %q has no reason", i, d.Path)
		}
	}
	for i, e := range p.Evidence {
		if e.Disposition == schema.DecisionExclude && e.ExclusionReason == "" {
			return nil, fmt.Errorf("pack: evidence[%d]: excluded asset %q has no exclusion_reason", i, e.AssetID)
		}
	}
	return &p, nil
}

func checkSchema(s *jsonschema.Schema, data []byte) error {
	var doc any
	if err := decode(data, &doc); err != nil {
		return err
	}
	if err := s.Validate(doc); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}

// decode unmarshals with numbers preserved as json.Number.
func decode(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("JSON parse failed: %w", err)
	}
	if dec.More() {
		return fmt.Errorf("JSON parse failed: trailing data after document")
	}
	return nil
}

func validateSnapshot(s *schema.SourceSnapshot) error {
	prefix := fmt.Sprintf("snapshot %s/%s", s.SourceType, s.SourceID)
	if !schema.IsValidSourceType(s.SourceType) {
		return fmt.Errorf("%s: unknown source type %q", prefix, s.SourceType)
	}
	if _, err := semver.NewVersion(s.SchemaVersion); err != nil {
		return fmt.Errorf("%s: schema_version %q is not a semantic version: %w", prefix, s.SchemaVersion, err)
	}
	if s.CapturedAt.IsZero() {
		return fmt.Errorf("%s: captured_at is required", prefix)
	}
	for i, f := range s.RawFields {
		if f.Name == "" {
			return fmt.Errorf("%s: raw_fields[%d]: empty field name", prefix, i)
		}
	}
	return nil
}
