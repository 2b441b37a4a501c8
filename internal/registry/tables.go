package registry

// builtinTables holds the finite remap tables referenced by rules. Lookups
// are case-sensitive exact matches.
func builtinTables() map[string]map[string]string {
	return map[string]map[string]string{
		"hazard_category": {
			"slip_trip":         "SLIP_TRIP_FALL",
			"manual_handling":   "MANUAL_HANDLING",
			"vehicle":           "VEHICLE",
			"electrical":        "ELECTRICAL",
			"fire":              "FIRE",
			"chemical":          "CHEMICAL",
			"working_at_height": "WORKING_AT_HEIGHT",
			"other":             "OTHER",
		},
		"complaint_category": {
			"service": "SERVICE_QUALITY",
			"billing": "BILLING",
			"safety":  "SAFETY",
			"staff":   "STAFF_CONDUCT",
			"other":   "OTHER",
		},
		"complaint_channel": {
			"email":     "EMAIL",
			"phone":     "PHONE",
			"web":       "WEB_FORM",
			"letter":    "POST",
			"in_person": "IN_PERSON",
			"social":    "SOCIAL_MEDIA",
		},
		"yes_no": {
			"yes":     "YES",
			"y":       "YES",
			"no":      "NO",
			"n":       "NO",
			"unknown": "UNKNOWN",
		},
		"road_conditions": {
			"dry":   "DRY",
			"wet":   "WET",
			"ice":   "ICE_SNOW",
			"snow":  "ICE_SNOW",
			"flood": "FLOOD",
		},
	}
}
