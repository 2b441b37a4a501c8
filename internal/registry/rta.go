package registry

import "github.com/cgtqwmwkhp-rgb/quality-governance-platform-sub010/internal/schema"

func rta() RuleSet {
	rules := []Rule{
		direct("section_1.title", "summary"),
		direct("section_1.description", "narrative"),
		derive("section_1.incident_date", "iso_date", "collision_date"),
		derive("section_1.location", "join_location", "road_name", "town"),
		remap("section_1.severity", SeverityTable, "severity", "injury_severity"),
		constant("section_1.category", "VEHICLE"),
		direct("section_1.source_record_id", "id"),
		direct("section_1.recorded_at", "created_at"),

		withConsent(direct("section_2.reporter_name", "reported_by", "driver_name"), "driver_consent", "driver_name"),
		withConsent(direct("section_2.reporter_email", "driver_email"), "driver_consent"),
		withConsent(direct("section_2.reporter_phone", "driver_phone"), "driver_consent"),
		derive("section_2.persons_involved", "name_list", "passengers"),
		derive("section_2.witness_names", "name_list", "witnesses"),

		direct("section_3.immediate_actions", "actions_at_scene"),
		remap("section_3.injury_reported", "yes_no", "injuries"),
		direct("section_3.internal_notes", "fleet_manager_notes"),

		direct("section_4.root_cause", "cause_assessment"),
		direct("section_4.contributing_factors", "contributing_factors"),

		direct("section_5.corrective_actions", "corrective_actions"),
		direct("section_5.capa_reference", "capa_id"),
	}
	rules = append(rules, fishbone()...)
	rules = append(rules,
		direct("section_7.investigator_name", "investigator"),
		direct("section_7.approver_name", "approved_by"),
		direct("section_7.revision_history", "revision_log"),
		direct("section_7.created_by", "created_by"),
		direct("section_7.draft_conclusion", "draft_findings"),

		withConsent(direct("rta_addendum.driver_name", "driver_name"), "driver_consent"),
		direct("rta_addendum.vehicle_registration", "vehicle_registration"),
		withConsent(direct("rta_addendum.third_party_name", "third_party_name"), "third_party_consent"),
		direct("rta_addendum.third_party_registration", "third_party_registration"),
		direct("rta_addendum.police_reference", "police_reference"),
		remap("rta_addendum.road_conditions", "road_conditions", "road_surface"),
	)
	return RuleSet{
		SourceType:     schema.SourceRTA,
		SchemaVersions: ">= 2.0.0, < 3.0.0",
		Rules:          rules,
	}
}
