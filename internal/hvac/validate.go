package hvac

import (
	"fmt"
	"strings"

	"github.com/joseph-ayodele/hvac-extractor/internal/common"
)

// Validate checks dataset invariants: tags are unique within a family and
// every non-placeholder heater with an associated VAV points at a VAV present
// in the same dataset.
func (d Dataset) Validate() error {
	v := common.NewValidator()
	checkUnique(v, FamilyVAV, keys(d.VAVs))
	checkUnique(v, FamilyFan, keys(d.Fans))
	checkUnique(v, FamilyCRAC, keys(d.CRACs))
	checkUnique(v, FamilyHeater, keys(d.Heaters))
	checkUnique(v, FamilyAirDevice, keys(d.AirDevices))

	vavs := make(map[string]struct{}, len(d.VAVs))
	for _, vav := range d.VAVs {
		vavs[vav.key()] = struct{}{}
	}
	for _, h := range d.Heaters {
		ref := strings.TrimSpace(Deref(h.AssociatedVAV))
		if ref == "" {
			continue
		}
		if _, ok := vavs[ref]; !ok {
			v.Field("heaters."+h.Tag+".associated_vav", ref, func(name string, value interface{}) *common.ValidationError {
				return &common.ValidationError{Field: name, Value: value, Message: "references an unknown VAV"}
			})
		}
	}
	return v.Error()
}

func keys[T interface{ key() string }](rs []T) []string {
	out := make([]string, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.key())
	}
	return out
}

func checkUnique(v *common.Validator, family string, tags []string) {
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		if tag == "" {
			v.Field(family+".tag", tag, common.Required)
			continue
		}
		if _, dup := seen[tag]; dup {
			v.Field(family+".tag", tag, func(name string, value interface{}) *common.ValidationError {
				return &common.ValidationError{Field: name, Value: value, Message: fmt.Sprintf("duplicate tag in %s", family)}
			})
		}
		seen[tag] = struct{}{}
	}
}
