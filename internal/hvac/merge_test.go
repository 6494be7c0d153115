package hvac

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func vavFragment(page int, src Source, vavs ...VAV) Fragment {
	d := Empty()
	d.VAVs = vavs
	return Fragment{Page: page, Source: src, Data: d}
}

func TestMergeFirstNonNullWins(t *testing.T) {
	a := vavFragment(0, SourceVision, VAV{Tag: "VAV-1", Location: Ptr("Room A")})
	b := vavFragment(1, SourceVision, VAV{Tag: "VAV-1", Location: Ptr("Room B")})

	ab := Reconcile([]Fragment{a, b})
	ba := Reconcile([]Fragment{b, a})

	require.Len(t, ab.VAVs, 1)
	require.Len(t, ba.VAVs, 1)
	assert.Equal(t, "Room A", *ab.VAVs[0].Location)
	assert.Equal(t, "Room B", *ba.VAVs[0].Location)
}

func TestMergeSortsByPageNotArrival(t *testing.T) {
	late := vavFragment(3, SourceVision, VAV{Tag: "VAV-1", CFMMax: Ptr(900)})
	early := vavFragment(0, SourceVision, VAV{Tag: "VAV-1", CFMMax: Ptr(400)})

	ds := Merge([]Fragment{late, early}, DefaultPolicy())
	require.Len(t, ds.VAVs, 1)
	assert.Equal(t, 400, *ds.VAVs[0].CFMMax)
}

func TestMergeSourcePriorityWithinPage(t *testing.T) {
	geo := vavFragment(0, SourceGeometric, VAV{Tag: "VAV-1", CFMMax: Ptr(120)})
	vision := vavFragment(0, SourceVision, VAV{Tag: "VAV-1", CFMMax: Ptr(750)})

	ds := Merge([]Fragment{geo, vision}, DefaultPolicy())
	assert.Equal(t, 750, *ds.VAVs[0].CFMMax)
}

func TestMergeEndToEndScheduleAndFloorPlan(t *testing.T) {
	schedule := vavFragment(0, SourceVision, VAV{Tag: "VAVB5-02", CFMMax: Ptr(500)})
	schedule.Kind = PageSchedule
	plan := vavFragment(1, SourceVision, VAV{Tag: "VAVB5-02", Location: Ptr("Room 210")})
	plan.Kind = PageFloorPlan

	ds := Merge([]Fragment{schedule, plan}, DefaultPolicy())

	require.Len(t, ds.VAVs, 1)
	got := ds.VAVs[0]
	assert.Equal(t, "VAVB5-02", got.Tag)
	assert.Equal(t, 500, *got.CFMMax)
	assert.Equal(t, "Room 210", *got.Location)
	assert.Nil(t, got.CFMMin)
}

func TestMergeDropsEmptyTags(t *testing.T) {
	f := vavFragment(0, SourceVision, VAV{Tag: ""}, VAV{Tag: "   "}, VAV{Tag: "VAV-2"})
	ds := Reconcile([]Fragment{f})
	require.Len(t, ds.VAVs, 1)
	assert.Equal(t, "VAV-2", ds.VAVs[0].Tag)
}

func TestMergeTagsUniquePerFamily(t *testing.T) {
	d1 := Empty()
	d1.VAVs = []VAV{{Tag: "VAV-1"}, {Tag: "VAV-2"}, {Tag: "VAV-1"}}
	d1.Fans = []Fan{{Tag: "EF-1"}, {Tag: "EF-1", CFM: Ptr(100)}}
	d1.CRACs = []CRAC{{Tag: "CRAC-1"}}
	d1.AirDevices = []AirDevice{{Tag: "SD-1"}, {Tag: "SD-1"}}
	d2 := Empty()
	d2.VAVs = []VAV{{Tag: "VAV-2", HasReheat: Ptr(true)}}
	d2.Heaters = []Heater{{Tag: "VAV-2-H"}}
	d2.CRACs = []CRAC{{Tag: "CRAC-1", CFM: Ptr(1000)}}

	ds := Merge([]Fragment{{Page: 0, Data: d1}, {Page: 1, Data: d2}}, DefaultPolicy())

	assert.NoError(t, ds.Validate())
	assert.Len(t, ds.VAVs, 2)
	assert.Len(t, ds.Fans, 1)
	assert.Equal(t, 100, *ds.Fans[0].CFM)
	assert.Len(t, ds.CRACs, 1)
	assert.Len(t, ds.AirDevices, 1)
	assert.Len(t, ds.Heaters, 1, "direct heater suppresses the synthesized duplicate")
}

func TestMergeCarriesEstimateMarkers(t *testing.T) {
	p := DefaultPolicy()
	geo := VAV{Tag: "VAV-1"}
	p.ApplyAirflow(&geo, 600)
	vision := VAV{Tag: "VAV-1", CFMMax: Ptr(650)}

	ds := Merge([]Fragment{
		vavFragment(0, SourceVision, vision),
		vavFragment(0, SourceGeometric, geo),
	}, p)

	got := ds.VAVs[0]
	assert.Equal(t, 650, *got.CFMMax)
	assert.Equal(t, 120, *got.CFMMin)
	assert.Contains(t, got.Estimated, "cfm_min")
	assert.Contains(t, got.Estimated, "inlet_size")
	assert.NotContains(t, got.Estimated, "cfm_max")
}

func TestMergeDoesNotAliasInput(t *testing.T) {
	f := vavFragment(0, SourceVision, VAV{Tag: "VAV-1", Location: Ptr("Room 1")})
	ds := Merge([]Fragment{f}, DefaultPolicy())

	*ds.VAVs[0].Location = "changed"
	assert.Equal(t, "Room 1", *f.Data.VAVs[0].Location)

	cp := ds.Clone()
	*cp.VAVs[0].Location = "again"
	assert.Equal(t, "changed", *ds.VAVs[0].Location)
}

func TestMergeNoFragments(t *testing.T) {
	ds := Merge(nil, DefaultPolicy())
	assert.Empty(t, ds.VAVs)
	assert.NotNil(t, ds.VAVs)
	assert.Len(t, ds.Heaters, 10)
}
