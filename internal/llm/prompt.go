package llm

import "github.com/joseph-ayodele/hvac-extractor/internal/hvac"

// SchedulePrompt asks for complete tabular records for every equipment family.
const SchedulePrompt = `Analyze this HVAC drawing page VERY CAREFULLY and extract ALL equipment data with COMPLETE details.

Look for:
1. VAV SCHEDULE tables - Contains VAVB5-XX entries with complete specifications
2. FAN SCHEDULE tables - Contains EF-1, EF-2, etc.
3. ELECTRIC DUCT HEATER SCHEDULE - Contains heater data
4. CRAC UNIT data
5. AIR DEVICE SCHEDULE - Supply diffusers, grilles

VAV TAGS follow pattern: VAVB5-01, VAVB5-02, ... VAVB5-99

For each VAV, extract ALL these fields if visible:
- tag: VAV identifier (e.g., VAVB5-01)
- location: Room number (e.g., "Software 443")
- area_served: Area description (e.g., "Large Conference 402")
- inlet_size: Primary air inlet size in inches (e.g., "10")
- total_cfm: Total fan CFM (design value)
- cfm_min: Minimum CFM
- cfm_max: Maximum CFM
- manufacturer: Manufacturer name
- model: Model number
- motor_hp: Motor horsepower
- motor_voltage: Motor voltage
- motor_phase: Motor phase
- motor_amperage: Motor amperage
- has_reheat: true/false if unit has electric reheat
- reheat_kw: Reheat kilowatts

Return a JSON object with this structure:
{
    "fans": [
        {"tag": "EF-1", "location": "407 - RR", "fan_type": "CEILING", "drive": "DIRECT", "cfm": 100, "esp": 0.25, "motor_power": "21 W", "rpm": 1100, "voltage": "120/1/60"}
    ],
    "vavs": [
        {
            "tag": "VAVB5-01",
            "location": "501",
            "area_served": "Office Area",
            "inlet_size": "10",
            "total_cfm": 750,
            "cfm_min": 150,
            "cfm_max": 750,
            "manufacturer": "",
            "model": "",
            "motor_hp": "",
            "motor_voltage": "",
            "has_reheat": true,
            "reheat_kw": 4.0
        }
    ],
    "cracs": [
        {"tag": "CRAC-1", "location": "Server Room", "cfm": 1000, "cooling_capacity": "5 tons"}
    ],
    "heaters": [
        {"tag": "VAVB5-01-H", "location": "501", "cfm": 700, "voltage": 277, "kw": 4.0, "associated_vav": "VAVB5-01"}
    ],
    "air_devices": [
        {"tag": "SD-1", "type": "Supply Diffuser", "cfm": 200, "size": "12x12"}
    ]
}

- Extract ALL rows from ALL tables - do not skip any
- For VAVs, inlet size is typically 6, 8, 10, or 12 inches
- If a field is not visible, use null
- If no equipment is found, return an object with empty lists.
- Return ONLY a valid JSON object. Do not include any conversational text, explanations, or markdown formatting.
- Ensure every tag follows the expected pattern (e.g., VAVB5-XX, EF-X).`

// FloorPlanPrompt only asks for tags and rough locations; floor plans rarely
// carry specifications.
const FloorPlanPrompt = `Analyze this HVAC floor plan drawing VERY CAREFULLY.

Look for ALL equipment tags visible anywhere on the drawing:
- VAV boxes labeled VAVB5-XX (e.g., VAVB5-01, VAVB5-02, VAVB5-52, VAVB5-78)
- Exhaust fans labeled EF-X
- CRAC units labeled CRAC-X

Return a JSON object:
{
    "vavs": [
        {"tag": "VAVB5-01", "location": "Room 501", "cfm_max": null, "cfm_min": null, "inlet_size": null, "has_reheat": null, "reheat_kw": null}
    ],
    "fans": [],
    "cracs": [],
    "heaters": [],
    "air_devices": []
}

- Look for tags in circles, rectangles, or next to ductwork
- Include tags that may be partially visible or small
- Tags range from VAVB5-01 to VAVB5-99
- If no tags are found, return the JSON object with empty lists.
- IMPORTANT: Return ONLY valid JSON. Absolutely no conversational text or explaining why you couldn't find anything.
- Return ONLY the JSON object, do not use markdown code blocks.`

// PromptFor selects the prompt for a page kind. Unknown kinds get the
// floor-plan prompt, which asks for the least.
func PromptFor(kind hvac.PageKind) string {
	if kind == hvac.PageSchedule {
		return SchedulePrompt
	}
	return FloorPlanPrompt
}
