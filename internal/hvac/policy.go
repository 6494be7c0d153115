package hvac

import (
	"math"

	"github.com/joseph-ayodele/hvac-extractor/internal/common"
)

// Policy groups the heuristic constants applied when the drawings do not
// carry a value. Everything derived from it is an estimate, not a
// measurement, and is listed in the record's Estimated fields.
type Policy struct {
	// Radius is the maximum tag-to-value distance, in page units, for
	// geometric association. Distances equal to the radius are accepted.
	Radius float64
	// MinCandidateCFM and MaxCandidateCFM bound bare integers accepted as CFM.
	MinCandidateCFM int
	MaxCandidateCFM int
	// MinCFMFraction estimates the minimum airflow from the maximum.
	MinCFMFraction float64
	// InletBreakpoints are inclusive upper CFM bounds for InletSizes[i];
	// the last size applies above the last breakpoint.
	InletBreakpoints []int
	InletSizes       []string
	// HeaterVoltage is assigned to heaters synthesized from VAV reheat data.
	HeaterVoltage int
	// BlankHeaters is the number of placeholder heaters emitted when no
	// heater was found at all.
	BlankHeaters int
}

// DefaultPolicy mirrors the reference template's conventions.
func DefaultPolicy() Policy {
	return Policy{
		Radius:           300,
		MinCandidateCFM:  50,
		MaxCandidateCFM:  5000,
		MinCFMFraction:   0.20,
		InletBreakpoints: []int{200, 400, 700},
		InletSizes:       []string{`6"`, `8"`, `10"`, `12"`},
		HeaterVoltage:    277,
		BlankHeaters:     10,
	}
}

// PolicyFrom converts validated configuration into a Policy.
func PolicyFrom(c common.PolicyConfig) Policy {
	return Policy{
		Radius:           c.Radius,
		MinCandidateCFM:  c.MinCandidateCFM,
		MaxCandidateCFM:  c.MaxCandidateCFM,
		MinCFMFraction:   c.MinCFMFraction,
		InletBreakpoints: append([]int(nil), c.InletBreakpoints...),
		InletSizes:       append([]string(nil), c.InletSizes...),
		HeaterVoltage:    c.HeaterVoltage,
		BlankHeaters:     c.BlankHeaters,
	}
}

// InletSize looks up the primary inlet size for an airflow. Non-positive
// airflow has no size.
func (p Policy) InletSize(cfm int) string {
	if cfm <= 0 || len(p.InletSizes) == 0 {
		return ""
	}
	for i, limit := range p.InletBreakpoints {
		if cfm <= limit && i < len(p.InletSizes) {
			return p.InletSizes[i]
		}
	}
	return p.InletSizes[len(p.InletSizes)-1]
}

// MinCFM estimates minimum airflow as a fraction of max, rounded down.
func (p Policy) MinCFM(maxCFM int) int {
	return int(math.Floor(float64(maxCFM)*p.MinCFMFraction + 1e-9))
}

// InCandidateRange reports whether a bare integer can be read as CFM.
func (p Policy) InCandidateRange(v int) bool {
	return v >= p.MinCandidateCFM && v <= p.MaxCandidateCFM
}

// ApplyAirflow sets a VAV's airflow fields from a single extracted CFM value,
// marking the minimum and the inlet size as estimated.
func (p Policy) ApplyAirflow(v *VAV, cfm int) {
	v.TotalCFM = Ptr(cfm)
	v.CFMMax = Ptr(cfm)
	v.CFMMin = Ptr(p.MinCFM(cfm))
	v.Estimated = appendField(v.Estimated, "cfm_min")
	if size := p.InletSize(cfm); size != "" {
		v.InletSize = Ptr(size)
		v.Estimated = appendField(v.Estimated, "inlet_size")
	}
}

func appendField(list []string, field string) []string {
	if hasField(list, field) {
		return list
	}
	return append(list, field)
}
