package registry

import "github.com/cgtqwmwkhp-rgb/quality-governance-platform-sub010/internal/schema"

func complaint() RuleSet {
	rules := []Rule{
		direct("section_1.title", "subject"),
		derive("section_1.description", "prefix_title", "subject", "details"),
		derive("section_1.incident_date", "iso_date", "received_date"),
		direct("section_1.location", "incident_site", "customer_address"),
		remap("section_1.severity", SeverityTable, "priority"),
		remap("section_1.category", "complaint_category", "complaint_type"),
		direct("section_1.source_record_id", "id"),
		direct("section_1.recorded_at", "created_at"),

		withConsent(direct("section_2.reporter_name", "complainant_name"), "consent_to_share"),
		withConsent(direct("section_2.reporter_email", "complainant_email"), "consent_to_share"),
		withConsent(direct("section_2.reporter_phone", "complainant_phone"), "consent_to_share"),
		derive("section_2.persons_involved", "name_list", "staff_involved"),
		constant("section_2.witness_names", NotApplicable),

		direct("section_3.immediate_actions", "initial_response"),
		remap("section_3.injury_reported", "yes_no", "injury_involved"),
		direct("section_3.internal_notes", "handler_notes"),

		direct("section_4.root_cause", "root_cause_summary"),
		constant("section_4.contributing_factors", NotApplicable),

		direct("section_5.corrective_actions", "resolution_actions"),
		direct("section_5.capa_reference", "capa_id"),
	}
	rules = append(rules, fishbone()...)
	rules = append(rules,
		direct("section_7.investigator_name", "assigned_handler"),
		direct("section_7.approver_name", "approved_by"),
		direct("section_7.revision_history", "revision_log"),
		direct("section_7.created_by", "created_by"),
		direct("section_7.draft_conclusion", "draft_response"),

		withConsent(direct("complaint_addendum.complainant_name", "complainant_name"), "consent_to_share"),
		withConsent(direct("complaint_addendum.complainant_address", "customer_address"), "consent_to_share"),
		remap("complaint_addendum.complaint_channel", "complaint_channel", "channel"),
		derive("complaint_addendum.received_date", "iso_date", "received_date"),
		direct("complaint_addendum.resolution_requested", "desired_outcome"),
	)
	return RuleSet{
		SourceType:     schema.SourceComplaint,
		SchemaVersions: ">= 1.2.0, < 2.0.0",
		Rules:          rules,
	}
}
