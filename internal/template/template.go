// Package template defines the canonical investigation template: its
// ordered sections, the addendum for each source type, and the disclosure
// class of every field.
package template

import (
	"fmt"

	"github.com/cgtqwmwkhp-rgb/quality-governance-platform-sub010/internal/schema"
)

// Class drives how the redaction engine treats a field.
type Class string

const (
	ClassNarrative           Class = "narrative"
	ClassDate                Class = "date"
	ClassCategory            Class = "category"
	ClassSeverity            Class = "severity"
	ClassPlaceholder         Class = "placeholder"
	ClassPersonName          Class = "person_name"
	ClassEmail               Class = "email"
	ClassPhone               Class = "phone"
	ClassAddress             Class = "address"
	ClassVehicleRegistration Class = "vehicle_registration"
	ClassInternalComment     Class = "internal_comment"
	ClassRevisionHistory     Class = "revision_history"
	ClassAuditActor          Class = "audit_actor"
	ClassUnpublished         Class = "unpublished"
	ClassSystemIdentifier    Class = "system_identifier"
	ClassSystemTimestamp     Class = "system_timestamp"
)

// IsIdentity reports whether fields of this class identify a person.
func (c Class) IsIdentity() bool {
	switch c {
	case ClassPersonName, ClassEmail, ClassPhone, ClassAddress, ClassVehicleRegistration:
		return true
	}
	return false
}

// IsInternal reports whether fields of this class never leave the organisation.
func (c Class) IsInternal() bool {
	switch c {
	case ClassInternalComment, ClassRevisionHistory, ClassAuditActor,
		ClassUnpublished, ClassSystemIdentifier, ClassSystemTimestamp:
		return true
	}
	return false
}

// FieldDef describes one canonical field.
type FieldDef struct {
	Name      string
	Class     Class
	RoleLabel string       // replacement text for person names in external packs
	Required  schema.Level // lowest level at which the field is required; "" = never
}

// SectionDef describes one section or addendum.
type SectionDef struct {
	ID     string
	Title  string
	Fields []FieldDef
}

// Path returns the target path of a field in this section.
func (s SectionDef) Path(field string) string {
	return s.ID + "." + field
}

var sections = []SectionDef{
	{
		ID:    "section_1",
		Title: "Incident Overview",
		Fields: []FieldDef{
			{Name: "title", Class: ClassNarrative, Required: schema.LevelLow},
			{Name: "description", Class: ClassNarrative, Required: schema.LevelLow},
			{Name: "incident_date", Class: ClassDate, Required: schema.LevelLow},
			{Name: "location", Class: ClassAddress, Required: schema.LevelLow},
			{Name: "severity", Class: ClassSeverity, Required: schema.LevelLow},
			{Name: "category", Class: ClassCategory},
			{Name: "source_record_id", Class: ClassSystemIdentifier},
			{Name: "recorded_at", Class: ClassSystemTimestamp},
		},
	},
	{
		ID:    "section_2",
		Title: "People Involved",
		Fields: []FieldDef{
			{Name: "reporter_name", Class: ClassPersonName, RoleLabel: "Reporter", Required: schema.LevelLow},
			{Name: "reporter_email", Class: ClassEmail},
			{Name: "reporter_phone", Class: ClassPhone},
			{Name: "persons_involved", Class: ClassPersonName, RoleLabel: "Person Involved"},
			{Name: "witness_names", Class: ClassPersonName, RoleLabel: "Witness"},
		},
	},
	{
		ID:    "section_3",
		Title: "Immediate Actions",
		Fields: []FieldDef{
			{Name: "immediate_actions", Class: ClassNarrative, Required: schema.LevelLow},
			{Name: "injury_reported", Class: ClassCategory},
			{Name: "internal_notes", Class: ClassInternalComment},
		},
	},
	{
		ID:    "section_4",
		Title: "Root Cause Analysis",
		Fields: []FieldDef{
			{Name: "root_cause", Class: ClassNarrative, Required: schema.LevelMedium},
			{Name: "contributing_factors", Class: ClassNarrative},
		},
	},
	{
		ID:    "section_5",
		Title: "Corrective Actions",
		Fields: []FieldDef{
			{Name: "corrective_actions", Class: ClassNarrative, Required: schema.LevelMedium},
			{Name: "capa_reference", Class: ClassCategory},
		},
	},
	{
		ID:    "section_6",
		Title: "Fishbone Analysis",
		Fields: []FieldDef{
			{Name: "people", Class: ClassPlaceholder, Required: schema.LevelHigh},
			{Name: "process", Class: ClassPlaceholder, Required: schema.LevelHigh},
			{Name: "equipment", Class: ClassPlaceholder, Required: schema.LevelHigh},
			{Name: "environment", Class: ClassPlaceholder, Required: schema.LevelHigh},
		},
	},
	{
		ID:    "section_7",
		Title: "Review and Sign-off",
		Fields: []FieldDef{
			{Name: "investigator_name", Class: ClassPersonName, RoleLabel: "Investigator"},
			{Name: "approver_name", Class: ClassPersonName, RoleLabel: "Approver", Required: schema.LevelMedium},
			{Name: "revision_history", Class: ClassRevisionHistory},
			{Name: "created_by", Class: ClassAuditActor},
			{Name: "draft_conclusion", Class: ClassUnpublished},
		},
	},
}

var complaintAddendum = SectionDef{
	ID:    "complaint_addendum",
	Title: "Complaint Details",
	Fields: []FieldDef{
		{Name: "complainant_name", Class: ClassPersonName, RoleLabel: "Complainant", Required: schema.LevelLow},
		{Name: "complainant_address", Class: ClassAddress},
		{Name: "complaint_channel", Class: ClassCategory, Required: schema.LevelLow},
		{Name: "received_date", Class: ClassDate, Required: schema.LevelLow},
		{Name: "resolution_requested", Class: ClassNarrative},
	},
}

var rtaAddendum = SectionDef{
	ID:    "rta_addendum",
	Title: "Road Traffic Collision Details",
	Fields: []FieldDef{
		{Name: "driver_name", Class: ClassPersonName, RoleLabel: "Driver", Required: schema.LevelLow},
		{Name: "vehicle_registration", Class: ClassVehicleRegistration, Required: schema.LevelLow},
		{Name: "third_party_name", Class: ClassPersonName, RoleLabel: "Third Party"},
		{Name: "third_party_registration", Class: ClassVehicleRegistration},
		{Name: "police_reference", Class: ClassCategory},
		{Name: "road_conditions", Class: ClassCategory},
	},
}

// Sections returns the canonical sections in template order.
func Sections() []SectionDef {
	return sections
}

// SectionIDs returns the canonical section identifiers in template order.
func SectionIDs() []string {
	ids := make([]string, len(sections))
	for i, s := range sections {
		ids[i] = s.ID
	}
	return ids
}

// Section returns the definition for a section id.
func Section(id string) (SectionDef, bool) {
	for _, s := range sections {
		if s.ID == id {
			return s, true
		}
	}
	return SectionDef{}, false
}

// Addendum returns the conditional addendum for a source type, if it has one.
func Addendum(t schema.SourceType) (SectionDef, bool) {
	switch t {
	case schema.SourceComplaint:
		return complaintAddendum, true
	case schema.SourceRTA:
		return rtaAddendum, true
	case schema.SourceNearMiss:
		return SectionDef{}, false
	}
	return SectionDef{}, false
}

// Containers returns every section plus the source type's addendum, in order.
func Containers(t schema.SourceType) []SectionDef {
	out := append([]SectionDef(nil), sections...)
	if a, ok := Addendum(t); ok {
		out = append(out, a)
	}
	return out
}

// Paths returns every canonical target path for a source type in template order.
func Paths(t schema.SourceType) []string {
	var out []string
	for _, c := range Containers(t) {
		for _, f := range c.Fields {
			out = append(out, c.Path(f.Name))
		}
	}
	return out
}

// Lookup returns the field definition for a target path.
func Lookup(path string) (FieldDef, bool) {
	container, field, ok := schema.SplitPath(path)
	if !ok {
		return FieldDef{}, false
	}
	var def SectionDef
	switch container {
	case complaintAddendum.ID:
		def = complaintAddendum
	case rtaAddendum.ID:
		def = rtaAddendum
	default:
		def, ok = Section(container)
		if !ok {
			return FieldDef{}, false
		}
	}
	for _, f := range def.Fields {
		if f.Name == field {
			return f, true
		}
	}
	return FieldDef{}, false
}

// Title returns the display title of a section or addendum id.
func Title(container string) string {
	switch container {
	case complaintAddendum.ID:
		return complaintAddendum.Title
	case rtaAddendum.ID:
		return rtaAddendum.Title
	}
	if s, ok := Section(container); ok {
		return s.Title
	}
	return container
}

// NewDraft returns a draft skeleton for a snapshot in which every canonical
// field is present and unset.
func NewDraft(snap *schema.SourceSnapshot) (*schema.InvestigationDraft, error) {
	if !schema.IsValidSourceType(snap.SourceType) {
		return nil, fmt.Errorf("unknown source type %q", snap.SourceType)
	}
	d := &schema.InvestigationDraft{
		SourceType:         snap.SourceType,
		SourceID:           snap.SourceID,
		ReferenceNumber:    snap.ReferenceNumber,
		SchemaVersion:      snap.SchemaVersion,
		Sections:           make(map[string]schema.Values, len(sections)),
		Addenda:            make(map[string]schema.Values),
		ApplicableSections: []string{},
		Consented:          []string{},
	}
	for _, s := range sections {
		d.Sections[s.ID] = emptyValues(s)
	}
	if a, ok := Addendum(snap.SourceType); ok {
		d.Addenda[a.ID] = emptyValues(a)
	}
	return d, nil
}

func emptyValues(s SectionDef) schema.Values {
	v := make(schema.Values, len(s.Fields))
	for _, f := range s.Fields {
		v[f.Name] = nil
	}
	return v
}
