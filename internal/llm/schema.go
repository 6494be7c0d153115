package llm

import "github.com/joseph-ayodele/hvac-extractor/internal/hvac"

// fieldKind is the JSON type a record field is coerced to before validation.
type fieldKind int

const (
	kindString fieldKind = iota
	kindInt
	kindFloat
	kindBool
)

// familyFields lists every field the model may return per family. "tag" is
// kept as a string and is not required: tagless rows are dropped later.
var familyFields = map[string]map[string]fieldKind{
	hvac.FamilyVAV: {
		"tag": kindString, "location": kindString, "area_served": kindString, "inlet_size": kindString,
		"total_cfm": kindInt, "cfm_min": kindInt, "cfm_max": kindInt,
		"manufacturer": kindString, "model": kindString,
		"motor_hp": kindString, "motor_voltage": kindString, "motor_phase": kindString, "motor_amperage": kindString,
		"has_reheat": kindBool, "reheat_kw": kindFloat,
	},
	hvac.FamilyFan: {
		"tag": kindString, "location": kindString, "fan_type": kindString, "drive": kindString,
		"cfm": kindInt, "esp": kindFloat, "motor_power": kindString, "rpm": kindInt, "voltage": kindString,
	},
	hvac.FamilyCRAC: {
		"tag": kindString, "location": kindString, "cfm": kindInt, "cooling_capacity": kindString,
	},
	hvac.FamilyHeater: {
		"tag": kindString, "location": kindString, "cfm": kindInt, "voltage": kindInt, "kw": kindFloat,
		"associated_vav": kindString,
	},
	hvac.FamilyAirDevice: {
		"tag": kindString, "type": kindString, "cfm": kindInt, "size": kindString,
	},
}

// FragmentSchema returns the JSON schema of one page result: an object with
// the five family arrays, every record field optional and nullable.
func FragmentSchema() map[string]any {
	props := make(map[string]any, len(familyFields))
	for family, fields := range familyFields {
		items := make(map[string]any, len(fields))
		for name, kind := range fields {
			items[name] = map[string]any{"type": []string{jsonType(kind), "null"}}
		}
		props[family] = map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"properties":           items,
			},
		}
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   hvac.Families,
	}
}

func jsonType(k fieldKind) string {
	switch k {
	case kindInt:
		return "integer"
	case kindFloat:
		return "number"
	case kindBool:
		return "boolean"
	default:
		return "string"
	}
}
