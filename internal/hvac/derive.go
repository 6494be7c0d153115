package hvac

import (
	"fmt"
	"log/slog"
	"strings"
)

// HeaterSuffix is appended to a VAV tag to name its reheat heater.
const HeaterSuffix = "-H"

// BlankHeaterTag is the generic name used for placeholder heaters.
const BlankHeaterTag = "Electric Duct Heater"

// HasElectricReheat reports whether a VAV carries an electric reheat coil: either the
// flag is set or a non-zero reheat rating was extracted.
func (v VAV) HasElectricReheat() bool {
	if v.HasReheat != nil && *v.HasReheat {
		return true
	}
	return v.ReheatKW != nil && *v.ReheatKW != 0
}

// Derive synthesizes heaters from VAV reheat data and, when the dataset has
// no heater at all, fills the heater sequence with blank placeholders.
// Directly extracted heaters always win over synthesized ones. A heater
// whose associated VAV is not in the dataset loses the reference.
func Derive(ds Dataset, policy Policy) Dataset {
	out := ds.Clone()

	seen := make(map[string]struct{}, len(out.Heaters))
	for _, h := range out.Heaters {
		seen[h.key()] = struct{}{}
	}
	for _, v := range out.VAVs {
		if !v.HasElectricReheat() {
			continue
		}
		h := heaterFor(v, policy)
		if _, ok := seen[h.Tag]; ok {
			continue
		}
		seen[h.Tag] = struct{}{}
		out.Heaters = append(out.Heaters, h)
	}

	if len(out.Heaters) == 0 {
		out.Heaters = BlankHeaters(policy.BlankHeaters)
	}
	dropDanglingVAVs(&out)
	return out
}

func dropDanglingVAVs(ds *Dataset) {
	vavs := make(map[string]struct{}, len(ds.VAVs))
	for _, v := range ds.VAVs {
		vavs[v.key()] = struct{}{}
	}
	for i := range ds.Heaters {
		h := &ds.Heaters[i]
		ref := strings.TrimSpace(Deref(h.AssociatedVAV))
		if ref == "" {
			h.AssociatedVAV = nil
			continue
		}
		if _, ok := vavs[ref]; ok {
			continue
		}
		slog.Default().Warn("hvac.derive.unknown_vav", "heater", h.Tag, "associated_vav", ref)
		h.AssociatedVAV = nil
	}
}

func heaterFor(v VAV, policy Policy) Heater {
	tag := v.key()
	return Heater{
		Tag:           tag + HeaterSuffix,
		Location:      clonePtr(v.Location),
		CFM:           clonePtr(v.CFMMax),
		Voltage:       Ptr(policy.HeaterVoltage),
		KW:            clonePtr(v.ReheatKW),
		AssociatedVAV: Ptr(tag),
		Estimated:     []string{"voltage"},
	}
}

// BlankHeaters returns n placeholder heaters named "Electric Duct Heater",
// "Electric Duct Heater (1)", ... with every other field unset.
func BlankHeaters(n int) []Heater {
	out := make([]Heater, 0, n)
	for i := 0; i < n; i++ {
		tag := BlankHeaterTag
		if i > 0 {
			tag = fmt.Sprintf("%s (%d)", BlankHeaterTag, i)
		}
		out = append(out, Heater{Tag: tag})
	}
	return out
}

// IsPlaceholder reports whether h is a blank placeholder heater.
func (h Heater) IsPlaceholder() bool {
	return strings.HasPrefix(h.Tag, BlankHeaterTag) && strings.TrimSpace(Deref(h.AssociatedVAV)) == ""
}
