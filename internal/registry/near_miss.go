package registry

import "github.com/cgtqwmwkhp-rgb/quality-governance-platform-sub010/internal/schema"

func nearMiss() RuleSet {
	rules := []Rule{
		direct("section_1.title", "title"),
		direct("section_1.description", "description"),
		derive("section_1.incident_date", "iso_date", "event_date"),
		direct("section_1.location", "location"),
		remap("section_1.severity", SeverityTable, "severity", "potential_severity", "priority"),
		remap("section_1.category", "hazard_category", "hazard_category"),
		direct("section_1.source_record_id", "id"),
		direct("section_1.recorded_at", "created_at"),

		withConsent(direct("section_2.reporter_name", "reported_by_name"), "share_reporter_identity"),
		withConsent(direct("section_2.reporter_email", "reported_by_email"), "share_reporter_identity"),
		withConsent(direct("section_2.reporter_phone", "reported_by_phone"), "share_reporter_identity"),
		derive("section_2.persons_involved", "name_list", "persons_involved"),
		derive("section_2.witness_names", "name_list", "witnesses"),

		direct("section_3.immediate_actions", "immediate_action", "actions_taken"),
		// A near miss by definition caused no injury.
		constant("section_3.injury_reported", "NO"),
		direct("section_3.internal_notes", "internal_notes"),

		direct("section_4.root_cause", "suspected_cause"),
		direct("section_4.contributing_factors", "contributing_factors"),

		direct("section_5.corrective_actions", "recommended_actions"),
		direct("section_5.capa_reference", "capa_id"),
	}
	rules = append(rules, fishbone()...)
	rules = append(rules,
		direct("section_7.investigator_name", "assigned_investigator"),
		direct("section_7.approver_name", "approved_by"),
		direct("section_7.revision_history", "revision_log"),
		direct("section_7.created_by", "created_by"),
		direct("section_7.draft_conclusion", "draft_summary"),
	)
	return RuleSet{
		SourceType:     schema.SourceNearMiss,
		SchemaVersions: ">= 1.0.0, < 2.0.0",
		Rules:          rules,
	}
}
