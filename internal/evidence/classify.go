// Package evidence decides, for one asset and one pack audience, whether the
// asset may appear in the pack before any redaction transform is considered.
package evidence

import (
	"github.com/cgtqwmwkhp-rgb/quality-governance-platform-sub010/internal/schema"
)

// Classification is the eligibility outcome for one asset.
type Classification struct {
	// Eligible is false when the asset must not appear in the pack at all.
	Eligible bool
	// RedactionCandidate marks an eligible asset whose flags call for
	// redaction before disclosure. The redaction engine makes the final call.
	RedactionCandidate bool
	// DataQuality is set for a public asset that also carries PII.
	DataQuality bool
	// Reason explains an ineligible asset. Never empty when Eligible is false.
	Reason string
}

// Classify applies the visibility table. Every (visibility, audience) pair
// has exactly one outcome; an unrecognised visibility tier is treated as
// the most restrictive.
func Classify(a schema.EvidenceAsset, audience schema.PackType) Classification {
	flagged := a.ContainsPII || a.RedactionRequired
	switch a.Visibility {
	case schema.VisibilityInternalOnly:
		return Classification{Reason: "internal-only evidence"}

	case schema.VisibilityInternalCustomer:
		if audience != schema.PackInternalCustomer {
			return Classification{Reason: "evidence restricted to internal customers"}
		}
		return Classification{Eligible: true, RedactionCandidate: flagged}

	case schema.VisibilityExternalAllowed:
		return Classification{Eligible: true, RedactionCandidate: flagged}

	case schema.VisibilityPublic:
		return Classification{Eligible: true, DataQuality: a.ContainsPII}
	}
	return Classification{Reason: "unrecognised visibility tier " + string(a.Visibility)}
}

// IsValidVisibility reports whether v is one of the four visibility tiers.
func IsValidVisibility(v schema.Visibility) bool {
	switch v {
	case schema.VisibilityInternalOnly, schema.VisibilityInternalCustomer,
		schema.VisibilityExternalAllowed, schema.VisibilityPublic:
		return true
	}
	return false
}
