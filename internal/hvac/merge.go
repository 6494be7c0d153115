package hvac

import (
	"sort"
	"strings"
)

// record is implemented by every equipment family. absorb is the merge
// reducer: it returns the canonical record with unset fields filled from
// the incoming partial record, never replacing a field already set.
type record[T any] interface {
	key() string
	clone() T
	absorb(T) T
}

// take fills *dst from src when *dst is unset and src is set. An estimate
// marker on src travels with the value.
func take[T any](dst **T, src *T, field string, est *[]string, srcEst []string) {
	if *dst != nil || src == nil {
		return
	}
	*dst = clonePtr(src)
	if hasField(srcEst, field) {
		*est = appendField(*est, field)
	}
}

func (v VAV) key() string { return strings.TrimSpace(v.Tag) }

func (v VAV) clone() VAV {
	out := v
	out.Location = clonePtr(v.Location)
	out.AreaServed = clonePtr(v.AreaServed)
	out.InletSize = clonePtr(v.InletSize)
	out.TotalCFM = clonePtr(v.TotalCFM)
	out.CFMMin = clonePtr(v.CFMMin)
	out.CFMMax = clonePtr(v.CFMMax)
	out.Manufacturer = clonePtr(v.Manufacturer)
	out.Model = clonePtr(v.Model)
	out.MotorHP = clonePtr(v.MotorHP)
	out.MotorVoltage = clonePtr(v.MotorVoltage)
	out.MotorPhase = clonePtr(v.MotorPhase)
	out.MotorAmperage = clonePtr(v.MotorAmperage)
	out.HasReheat = clonePtr(v.HasReheat)
	out.ReheatKW = clonePtr(v.ReheatKW)
	out.Estimated = cloneStrings(v.Estimated)
	return out
}

func (v VAV) absorb(in VAV) VAV {
	out := v.clone()
	e := &out.Estimated
	take(&out.Location, in.Location, "location", e, in.Estimated)
	take(&out.AreaServed, in.AreaServed, "area_served", e, in.Estimated)
	take(&out.InletSize, in.InletSize, "inlet_size", e, in.Estimated)
	take(&out.TotalCFM, in.TotalCFM, "total_cfm", e, in.Estimated)
	take(&out.CFMMin, in.CFMMin, "cfm_min", e, in.Estimated)
	take(&out.CFMMax, in.CFMMax, "cfm_max", e, in.Estimated)
	take(&out.Manufacturer, in.Manufacturer, "manufacturer", e, in.Estimated)
	take(&out.Model, in.Model, "model", e, in.Estimated)
	take(&out.MotorHP, in.MotorHP, "motor_hp", e, in.Estimated)
	take(&out.MotorVoltage, in.MotorVoltage, "motor_voltage", e, in.Estimated)
	take(&out.MotorPhase, in.MotorPhase, "motor_phase", e, in.Estimated)
	take(&out.MotorAmperage, in.MotorAmperage, "motor_amperage", e, in.Estimated)
	take(&out.HasReheat, in.HasReheat, "has_reheat", e, in.Estimated)
	take(&out.ReheatKW, in.ReheatKW, "reheat_kw", e, in.Estimated)
	return out
}

func (f Fan) key() string { return strings.TrimSpace(f.Tag) }

func (f Fan) clone() Fan {
	out := f
	out.Location = clonePtr(f.Location)
	out.FanType = clonePtr(f.FanType)
	out.Drive = clonePtr(f.Drive)
	out.CFM = clonePtr(f.CFM)
	out.ESP = clonePtr(f.ESP)
	out.MotorPower = clonePtr(f.MotorPower)
	out.RPM = clonePtr(f.RPM)
	out.Voltage = clonePtr(f.Voltage)
	out.Estimated = cloneStrings(f.Estimated)
	return out
}

func (f Fan) absorb(in Fan) Fan {
	out := f.clone()
	e := &out.Estimated
	take(&out.Location, in.Location, "location", e, in.Estimated)
	take(&out.FanType, in.FanType, "fan_type", e, in.Estimated)
	take(&out.Drive, in.Drive, "drive", e, in.Estimated)
	take(&out.CFM, in.CFM, "cfm", e, in.Estimated)
	take(&out.ESP, in.ESP, "esp", e, in.Estimated)
	take(&out.MotorPower, in.MotorPower, "motor_power", e, in.Estimated)
	take(&out.RPM, in.RPM, "rpm", e, in.Estimated)
	take(&out.Voltage, in.Voltage, "voltage", e, in.Estimated)
	return out
}

func (c CRAC) key() string { return strings.TrimSpace(c.Tag) }

func (c CRAC) clone() CRAC {
	out := c
	out.Location = clonePtr(c.Location)
	out.CFM = clonePtr(c.CFM)
	out.CoolingCapacity = clonePtr(c.CoolingCapacity)
	out.Estimated = cloneStrings(c.Estimated)
	return out
}

func (c CRAC) absorb(in CRAC) CRAC {
	out := c.clone()
	e := &out.Estimated
	take(&out.Location, in.Location, "location", e, in.Estimated)
	take(&out.CFM, in.CFM, "cfm", e, in.Estimated)
	take(&out.CoolingCapacity, in.CoolingCapacity, "cooling_capacity", e, in.Estimated)
	return out
}

func (h Heater) key() string { return strings.TrimSpace(h.Tag) }

func (h Heater) clone() Heater {
	out := h
	out.Location = clonePtr(h.Location)
	out.CFM = clonePtr(h.CFM)
	out.Voltage = clonePtr(h.Voltage)
	out.KW = clonePtr(h.KW)
	out.AssociatedVAV = clonePtr(h.AssociatedVAV)
	out.Estimated = cloneStrings(h.Estimated)
	return out
}

func (h Heater) absorb(in Heater) Heater {
	out := h.clone()
	e := &out.Estimated
	take(&out.Location, in.Location, "location", e, in.Estimated)
	take(&out.CFM, in.CFM, "cfm", e, in.Estimated)
	take(&out.Voltage, in.Voltage, "voltage", e, in.Estimated)
	take(&out.KW, in.KW, "kw", e, in.Estimated)
	take(&out.AssociatedVAV, in.AssociatedVAV, "associated_vav", e, in.Estimated)
	return out
}

func (a AirDevice) key() string { return strings.TrimSpace(a.Tag) }

func (a AirDevice) clone() AirDevice {
	out := a
	out.Type = clonePtr(a.Type)
	out.CFM = clonePtr(a.CFM)
	out.Size = clonePtr(a.Size)
	out.Estimated = cloneStrings(a.Estimated)
	return out
}

func (a AirDevice) absorb(in AirDevice) AirDevice {
	out := a.clone()
	e := &out.Estimated
	take(&out.Type, in.Type, "type", e, in.Estimated)
	take(&out.CFM, in.CFM, "cfm", e, in.Estimated)
	take(&out.Size, in.Size, "size", e, in.Estimated)
	return out
}

// fold merges records in the given order: the first sighting of a tag
// becomes the canonical record, later ones only fill its unset fields.
// Records with an empty tag are dropped.
func fold[T record[T]](groups [][]T) []T {
	out := []T{}
	index := make(map[string]int)
	for _, group := range groups {
		for _, r := range group {
			tag := r.key()
			if tag == "" {
				continue
			}
			if i, ok := index[tag]; ok {
				out[i] = out[i].absorb(r)
				continue
			}
			index[tag] = len(out)
			out = append(out, r.clone())
		}
	}
	return out
}

func collect[T any](fragments []Fragment, pick func(Dataset) []T) [][]T {
	groups := make([][]T, 0, len(fragments))
	for _, f := range fragments {
		groups = append(groups, pick(f.Data))
	}
	return groups
}

// SortFragments returns the fragments ordered by page index, then by source
// priority within a page. Completion order of concurrent extraction never
// affects the result.
func SortFragments(fragments []Fragment) []Fragment {
	ordered := append([]Fragment(nil), fragments...)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Page != ordered[j].Page {
			return ordered[i].Page < ordered[j].Page
		}
		return ordered[i].Source.rank() < ordered[j].Source.rank()
	})
	return ordered
}

// Reconcile folds fragments, already in priority order, into one record per
// tag per family. It performs no derivation.
func Reconcile(fragments []Fragment) Dataset {
	return Dataset{
		VAVs:       fold(collect(fragments, func(d Dataset) []VAV { return d.VAVs })),
		Fans:       fold(collect(fragments, func(d Dataset) []Fan { return d.Fans })),
		CRACs:      fold(collect(fragments, func(d Dataset) []CRAC { return d.CRACs })),
		Heaters:    fold(collect(fragments, func(d Dataset) []Heater { return d.Heaters })),
		AirDevices: fold(collect(fragments, func(d Dataset) []AirDevice { return d.AirDevices })),
	}
}

// Merge orders fragments by page, reconciles them, then derives heater
// records. Merge is not commutative: earlier pages win field conflicts.
func Merge(fragments []Fragment, policy Policy) Dataset {
	return Derive(Reconcile(SortFragments(fragments)), policy)
}

// Clone returns a deep copy, so downstream consumers never share state with
// the orchestrator.
func (d Dataset) Clone() Dataset {
	out := Empty()
	for _, v := range d.VAVs {
		out.VAVs = append(out.VAVs, v.clone())
	}
	for _, f := range d.Fans {
		out.Fans = append(out.Fans, f.clone())
	}
	for _, c := range d.CRACs {
		out.CRACs = append(out.CRACs, c.clone())
	}
	for _, h := range d.Heaters {
		out.Heaters = append(out.Heaters, h.clone())
	}
	for _, a := range d.AirDevices {
		out.AirDevices = append(out.AirDevices, a.clone())
	}
	return out
}
