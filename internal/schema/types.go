package schema

import "time"

// SourceType identifies the upstream record kind a snapshot was captured from.
type SourceType string

const (
	SourceNearMiss  SourceType = "near_miss"
	SourceComplaint SourceType = "complaint"
	SourceRTA       SourceType = "rta"
)

// SourceTypes returns every supported source type in a stable order.
func SourceTypes() []SourceType {
	return []SourceType{SourceNearMiss, SourceComplaint, SourceRTA}
}

// IsValidSourceType reports whether t is one of the supported source types.
func IsValidSourceType(t SourceType) bool {
	switch t {
	case SourceNearMiss, SourceComplaint, SourceRTA:
		return true
	}
	return false
}

// SourceSnapshot is the immutable copy of one source record taken when a
// mapping run begins. Nothing downstream mutates it.
type SourceSnapshot struct {
	SourceType      SourceType `json:"source_type"`
	SourceID        string     `json:"source_id"`
	ReferenceNumber string     `json:"reference_number"`
	SchemaVersion   string     `json:"schema_version"`
	CapturedAt      time.Time  `json:"captured_at"`
	CapturedBy      string     `json:"captured_by"`
	RawFields       Fields     `json:"raw_fields"`
}

// Level is the canonical three-level severity scale.
type Level string

const (
	LevelLow    Level = "LOW"
	LevelMedium Level = "MEDIUM"
	LevelHigh   Level = "HIGH"
)

// LevelOrdinal returns the numeric ordering for a level.
// LOW(0) < MEDIUM(1) < HIGH(2). Returns -1 for an unrecognised level.
func LevelOrdinal(l Level) int {
	switch l {
	case LevelLow:
		return 0
	case LevelMedium:
		return 1
	case LevelHigh:
		return 2
	default:
		return -1
	}
}

// Levels returns the canonical levels in ascending order.
func Levels() []Level {
	return []Level{LevelLow, LevelMedium, LevelHigh}
}

// Values maps field names to values within one section or addendum.
// A nil value is the explicit "no value" state; it is distinct from "".
type Values map[string]any

// InvestigationDraft is the canonical output of normalization.
type InvestigationDraft struct {
	SourceType      SourceType        `json:"source_type"`
	SourceID        string            `json:"source_id"`
	ReferenceNumber string            `json:"reference_number"`
	SchemaVersion   string            `json:"schema_version"`
	Severity        *Level            `json:"severity"` // nil when the raw value was not applicable
	Sections        map[string]Values `json:"sections"`
	Addenda         map[string]Values `json:"addenda"`
	// ApplicableSections is filled in by the section gate.
	ApplicableSections []string `json:"applicable_sections"`
	// Consented lists target paths whose source carried an explicit share-consent flag.
	Consented []string `json:"consented_fields"`
}

// MappingResult is the outcome of one mapping rule.
type MappingResult string

const (
	ResultSuccess  MappingResult = "SUCCESS"
	ResultFallback MappingResult = "FALLBACK"
	ResultError    MappingResult = "ERROR"
)

// ReasonCode explains a FALLBACK or ERROR outcome.
type ReasonCode string

const (
	ReasonSourceMissingField ReasonCode = "SOURCE_MISSING_FIELD"
	ReasonTypeMismatch       ReasonCode = "TYPE_MISMATCH"
	ReasonNotApplicable      ReasonCode = "NOT_APPLICABLE"
	ReasonEmptyValue         ReasonCode = "EMPTY_VALUE"
	ReasonRedactedPII        ReasonCode = "REDACTED_PII"
	ReasonMappingError       ReasonCode = "MAPPING_ERROR"
)

// IsValidReasonCode reports whether c is one of the mapping-layer reason codes.
func IsValidReasonCode(c ReasonCode) bool {
	switch c {
	case ReasonSourceMissingField,
		ReasonTypeMismatch,
		ReasonNotApplicable,
		ReasonEmptyValue,
		ReasonRedactedPII,
		ReasonMappingError:
		return true
	}
	return false
}

// MappingLogEntry records one attempted target field.
type MappingLogEntry struct {
	SourceField *string       `json:"source_field"` // nil for computed fields
	TargetField string        `json:"target_field"`
	Transform   string        `json:"transform"`
	Result      MappingResult `json:"result"`
	ReasonCode  *ReasonCode   `json:"reason_code"`
}

// MappingLog is the ordered audit trail of one normalization run.
type MappingLog []MappingLogEntry

// AssetType classifies an evidence artifact.
type AssetType string

const (
	AssetPhoto     AssetType = "photo"
	AssetVideo     AssetType = "video"
	AssetDocument  AssetType = "document"
	AssetMapPin    AssetType = "map_pin"
	AssetAudio     AssetType = "audio"
	AssetSignature AssetType = "signature"
	AssetOther     AssetType = "other"
)

// Visibility is the disclosure tier of an evidence asset.
type Visibility string

const (
	VisibilityInternalOnly     Visibility = "internal_only"
	VisibilityInternalCustomer Visibility = "internal_customer"
	VisibilityExternalAllowed  Visibility = "external_allowed"
	VisibilityPublic           Visibility = "public"
)

// EvidenceAsset is read-only metadata for one artifact linked to an investigation.
type EvidenceAsset struct {
	AssetID           string     `json:"asset_id"`
	AssetType         AssetType  `json:"asset_type"`
	Visibility        Visibility `json:"visibility"`
	ContainsPII       bool       `json:"contains_pii"`
	RedactionRequired bool       `json:"redaction_required"`
	RetentionPolicy   string     `json:"retention_policy"`
	SourceModule      string     `json:"source_module"`
	SourceID          string     `json:"source_id"`
}

// Decision is the outcome of evaluating one field or asset for an audience.
type Decision string

const (
	DecisionInclude Decision = "include"
	DecisionExclude Decision = "exclude"
	DecisionRedact  Decision = "redact"
)

// RedactionDecision records one field or asset decision for a specific audience.
type RedactionDecision struct {
	Path              string   `json:"path"`
	Decision          Decision `json:"decision"`
	Transform         *string  `json:"transform"`
	OriginalValueType *string  `json:"original_value_type"`
	// Reason is the exclusion_reason or redaction note; never empty for exclude.
	Reason string `json:"reason,omitempty"`
}

// PackType is the audience a customer pack is generated for.
type PackType string

const (
	PackInternalCustomer PackType = "internal_customer"
	PackExternalCustomer PackType = "external_customer"
)

// IsValidPackType reports whether t is a supported pack audience.
func IsValidPackType(t PackType) bool {
	return t == PackInternalCustomer || t == PackExternalCustomer
}

// PackSection is one rendered section or addendum.
type PackSection struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Fields Values `json:"fields"`
}

// PackEvidence is one rendered evidence entry.
type PackEvidence struct {
	AssetID         string    `json:"asset_id"`
	AssetType       AssetType `json:"asset_type"`
	Disposition     Decision  `json:"disposition"`
	RedactionNote   string    `json:"redaction_note,omitempty"`
	ExclusionReason string    `json:"exclusion_reason,omitempty"`
	SourceModule    string    `json:"source_module"`
	SourceID        string    `json:"source_id"`
}

// Warning is a visible data-quality notice attached to a pack.
type Warning struct {
	Code    string `json:"code"`
	Path    string `json:"path"`
	Message string `json:"message"`
}

// WarningPublicPII flags an asset marked both public and PII-bearing.
const WarningPublicPII = "PUBLIC_ASSET_CONTAINS_PII"

// CustomerPack is an immutable, audience-specific rendering of an investigation.
type CustomerPack struct {
	PackID           string              `json:"pack_id"`
	PackType         PackType            `json:"pack_type"`
	InvestigationRef string              `json:"investigation_reference"`
	GeneratedAt      time.Time           `json:"generated_at"`
	GeneratedBy      string              `json:"generated_by"`
	Sections         []PackSection       `json:"sections"`
	Evidence         []PackEvidence      `json:"evidence"`
	Addenda          []PackSection       `json:"addenda"`
	Warnings         []Warning           `json:"warnings"`
	RedactionLog     []RedactionDecision `json:"redaction_log"`
	Checksum         string              `json:"checksum"` // "sha256:<hex>" over the canonical rendered content
}

// Verdict is the completeness assessment of a normalized draft.
type Verdict string

const (
	VerdictComplete         Verdict = "COMPLETE"
	VerdictCompleteWithGaps Verdict = "COMPLETE_WITH_GAPS"
	VerdictIncomplete       Verdict = "INCOMPLETE"
)

// VerdictOrdinal returns the numeric ordering for a verdict, used by
// --fail-on comparison. COMPLETE(0) < COMPLETE_WITH_GAPS(1) < INCOMPLETE(2).
// Returns -1 for an unrecognised verdict.
func VerdictOrdinal(v Verdict) int {
	switch v {
	case VerdictComplete:
		return 0
	case VerdictCompleteWithGaps:
		return 1
	case VerdictIncomplete:
		return 2
	default:
		return -1
	}
}

// Review summarises a draft for a human reviewer.
// Counts always cover every mapping log entry.
type Review struct {
	Verdict         Verdict  `json:"verdict"`
	SuccessCount    int      `json:"success_count"`
	FallbackCount   int      `json:"fallback_count"`
	ErrorCount      int      `json:"error_count"`
	MissingRequired []string `json:"missing_required"`
	EffectiveLevel  Level    `json:"effective_level"`
}

// DraftReport is the document emitted by the normalize command.
type DraftReport struct {
	Draft      InvestigationDraft `json:"draft"`
	MappingLog MappingLog         `json:"mapping_log"`
	Review     Review             `json:"review"`
}
