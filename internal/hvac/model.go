// Package hvac holds the equipment data model and the rules that reconcile
// per-page extraction results into one dataset.
package hvac

// PageKind is the classification of a drawing page.
type PageKind string

const (
	PageSchedule  PageKind = "schedule"
	PageFloorPlan PageKind = "floor_plan"
)

// Family names double as the dataset's JSON keys.
const (
	FamilyVAV       = "vavs"
	FamilyFan       = "fans"
	FamilyCRAC      = "cracs"
	FamilyHeater    = "heaters"
	FamilyAirDevice = "air_devices"
)

var Families = []string{FamilyVAV, FamilyFan, FamilyCRAC, FamilyHeater, FamilyAirDevice}

// TextSpan is one run of page text with its bounding box in page units,
// origin at the top-left corner.
type TextSpan struct {
	Text     string  `json:"text" yaml:"text"`
	X        float64 `json:"x" yaml:"x"`
	Y        float64 `json:"y" yaml:"y"`
	X1       float64 `json:"x1" yaml:"x1"`
	Y1       float64 `json:"y1" yaml:"y1"`
	Page     int     `json:"page" yaml:"page"`
	FontSize float64 `json:"font_size,omitempty" yaml:"font_size,omitempty"`
}

// VAV is a variable air volume box. Nil fields were not observed.
type VAV struct {
	Tag           string   `json:"tag" yaml:"tag"`
	Location      *string  `json:"location" yaml:"location"`
	AreaServed    *string  `json:"area_served" yaml:"area_served"`
	InletSize     *string  `json:"inlet_size" yaml:"inlet_size"`
	TotalCFM      *int     `json:"total_cfm" yaml:"total_cfm"`
	CFMMin        *int     `json:"cfm_min" yaml:"cfm_min"`
	CFMMax        *int     `json:"cfm_max" yaml:"cfm_max"`
	Manufacturer  *string  `json:"manufacturer" yaml:"manufacturer"`
	Model         *string  `json:"model" yaml:"model"`
	MotorHP       *string  `json:"motor_hp" yaml:"motor_hp"`
	MotorVoltage  *string  `json:"motor_voltage" yaml:"motor_voltage"`
	MotorPhase    *string  `json:"motor_phase" yaml:"motor_phase"`
	MotorAmperage *string  `json:"motor_amperage" yaml:"motor_amperage"`
	HasReheat     *bool    `json:"has_reheat" yaml:"has_reheat"`
	ReheatKW      *float64 `json:"reheat_kw" yaml:"reheat_kw"`
	Estimated     []string `json:"estimated,omitempty" yaml:"estimated,omitempty"`
}

type Fan struct {
	Tag        string   `json:"tag" yaml:"tag"`
	Location   *string  `json:"location" yaml:"location"`
	FanType    *string  `json:"fan_type" yaml:"fan_type"`
	Drive      *string  `json:"drive" yaml:"drive"`
	CFM        *int     `json:"cfm" yaml:"cfm"`
	ESP        *float64 `json:"esp" yaml:"esp"`
	MotorPower *string  `json:"motor_power" yaml:"motor_power"`
	RPM        *int     `json:"rpm" yaml:"rpm"`
	Voltage    *string  `json:"voltage" yaml:"voltage"`
	Estimated  []string `json:"estimated,omitempty" yaml:"estimated,omitempty"`
}

type CRAC struct {
	Tag             string   `json:"tag" yaml:"tag"`
	Location        *string  `json:"location" yaml:"location"`
	CFM             *int     `json:"cfm" yaml:"cfm"`
	CoolingCapacity *string  `json:"cooling_capacity" yaml:"cooling_capacity"`
	Estimated       []string `json:"estimated,omitempty" yaml:"estimated,omitempty"`
}

type Heater struct {
	Tag           string   `json:"tag" yaml:"tag"`
	Location      *string  `json:"location" yaml:"location"`
	CFM           *int     `json:"cfm" yaml:"cfm"`
	Voltage       *int     `json:"voltage" yaml:"voltage"`
	KW            *float64 `json:"kw" yaml:"kw"`
	AssociatedVAV *string  `json:"associated_vav" yaml:"associated_vav"`
	Estimated     []string `json:"estimated,omitempty" yaml:"estimated,omitempty"`
}

type AirDevice struct {
	Tag       string   `json:"tag" yaml:"tag"`
	Type      *string  `json:"type" yaml:"type"`
	CFM       *int     `json:"cfm" yaml:"cfm"`
	Size      *string  `json:"size" yaml:"size"`
	Estimated []string `json:"estimated,omitempty" yaml:"estimated,omitempty"`
}

// Dataset is the five-family equipment listing. A Dataset produced by Merge
// holds one record per tag per family.
type Dataset struct {
	VAVs       []VAV       `json:"vavs" yaml:"vavs"`
	Fans       []Fan       `json:"fans" yaml:"fans"`
	CRACs      []CRAC      `json:"cracs" yaml:"cracs"`
	Heaters    []Heater    `json:"heaters" yaml:"heaters"`
	AirDevices []AirDevice `json:"air_devices" yaml:"air_devices"`
}

// Empty returns a dataset whose five sequences are empty, not nil.
func Empty() Dataset {
	return Dataset{
		VAVs:       []VAV{},
		Fans:       []Fan{},
		CRACs:      []CRAC{},
		Heaters:    []Heater{},
		AirDevices: []AirDevice{},
	}
}

// IsEmpty reports whether no family holds a record.
func (d Dataset) IsEmpty() bool {
	return len(d.VAVs) == 0 && len(d.Fans) == 0 && len(d.CRACs) == 0 &&
		len(d.Heaters) == 0 && len(d.AirDevices) == 0
}

// Counts returns the number of records per family key.
func (d Dataset) Counts() map[string]int {
	return map[string]int{
		FamilyVAV:       len(d.VAVs),
		FamilyFan:       len(d.Fans),
		FamilyCRAC:      len(d.CRACs),
		FamilyHeater:    len(d.Heaters),
		FamilyAirDevice: len(d.AirDevices),
	}
}

// Source identifies the strategy that produced a fragment.
type Source string

const (
	SourceVision    Source = "vision"
	SourceSchedule  Source = "schedule"
	SourceGeometric Source = "geometric"
)

// rank orders fragments of the same page: lower ranks win field conflicts.
func (s Source) rank() int {
	switch s {
	case SourceVision:
		return 0
	case SourceSchedule:
		return 1
	case SourceGeometric:
		return 2
	default:
		return 3
	}
}

// Fragment is the partial dataset one strategy produced for one page.
type Fragment struct {
	Page   int      `json:"page" yaml:"page"`
	Kind   PageKind `json:"kind" yaml:"kind"`
	Source Source   `json:"source" yaml:"source"`
	Data   Dataset  `json:"data" yaml:"data"`
}

// Ptr returns a pointer to a copy of v.
func Ptr[T any](v T) *T {
	return &v
}

// Deref returns *p, or the zero value for nil.
func Deref[T any](p *T) T {
	if p == nil {
		var zero T
		return zero
	}
	return *p
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneStrings(xs []string) []string {
	if xs == nil {
		return nil
	}
	return append([]string(nil), xs...)
}

func hasField(list []string, field string) bool {
	for _, f := range list {
		if f == field {
			return true
		}
	}
	return false
}
