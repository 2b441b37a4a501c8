package packdiff

import (
	"strings"
	"testing"
	"time"

	"github.com/cgtqwmwkhp-rgb/quality-governance-platform-sub010/internal/schema"
)

func pack(id string, aud schema.PackType, driver any, checksum string) *schema.CustomerPack {
	return &schema.CustomerPack{
		PackID:           id,
		PackType:         aud,
		InvestigationRef: "RTA-2024-0009",
		GeneratedAt:      time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC),
		GeneratedBy:      "actor-" + id,
		Sections: []schema.PackSection{{
			ID: "section_1", Title: "Incident Overview",
			Fields: schema.Values{"title": "Rear-end collision"},
		}},
		Addenda: []schema.PackSection{{
			ID: "rta_addendum", Title: "Road Traffic Collision Details",
			Fields: schema.Values{"driver_name": driver},
		}},
		Checksum: checksum,
	}
}

func TestDiff_ShowsDisclosureDifference(t *testing.T) {
	internal := pack("a", schema.PackInternalCustomer, "Sam Driver", "sha256:1")
	external := pack("b", schema.PackExternalCustomer, "Driver", "sha256:2")
	res, err := Diff(internal, external)
	if err != nil {
		t.Fatal(err)
	}
	if res.SameContent {
		t.Error("different checksums should not report same content")
	}
	out := res.String()
	if !strings.Contains(out, "- - **driver_name:** Sam Driver") {
		t.Errorf("diff missing removed name line:\n%s", out)
	}
	if !strings.Contains(out, "+ - **driver_name:** Driver") {
		t.Errorf("diff missing added label line:\n%s", out)
	}
	if strings.Contains(out, "title") {
		t.Errorf("unchanged lines should not appear:\n%s", out)
	}
	if res.Patch == "" {
		t.Error("expected non-empty patch text")
	}
}

func TestDiff_IgnoresGenerationMetadata(t *testing.T) {
	a := pack("a", schema.PackInternalCustomer, "Sam Driver", "sha256:1")
	b := pack("b", schema.PackInternalCustomer, "Sam Driver", "sha256:1")
	b.GeneratedAt = b.GeneratedAt.Add(time.Hour)
	res, err := Diff(a, b)
	if err != nil {
		t.Fatal(err)
	}
	if !res.SameContent || len(res.Changes) != 0 || res.Patch != "" {
		t.Errorf("regenerated pack should not differ: %+v", res)
	}
}

func TestNormalize_TrailingWhitespaceAndCRLF(t *testing.T) {
	got := normalize("**Pack:** x\r\nline one   \r\nline two\t\n")
	if got != "line one\nline two\n" {
		t.Errorf("normalize = %q", got)
	}
}
