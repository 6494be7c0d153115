package hvac

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveHeaterFromReheat(t *testing.T) {
	ds := Empty()
	ds.VAVs = []VAV{{Tag: "VAVB5-01", HasReheat: Ptr(true), ReheatKW: Ptr(4.0), CFMMax: Ptr(750)}}

	out := Merge([]Fragment{{Page: 0, Data: ds}}, DefaultPolicy())

	require.Len(t, out.Heaters, 1)
	h := out.Heaters[0]
	assert.Equal(t, "VAVB5-01-H", h.Tag)
	assert.Equal(t, 277, *h.Voltage)
	assert.Equal(t, 4.0, *h.KW)
	assert.Equal(t, 750, *h.CFM)
	assert.Equal(t, "VAVB5-01", *h.AssociatedVAV)
	assert.Contains(t, h.Estimated, "voltage")
	assert.NoError(t, out.Validate())
}

func TestDeriveReheatKWWithoutFlag(t *testing.T) {
	ds := Empty()
	ds.VAVs = []VAV{
		{Tag: "VAV-1", ReheatKW: Ptr(2.5), Location: Ptr("Lab 3")},
		{Tag: "VAV-2", ReheatKW: Ptr(0.0)},
		{Tag: "VAV-3", HasReheat: Ptr(false)},
	}

	out := Derive(ds, DefaultPolicy())

	require.Len(t, out.Heaters, 1)
	assert.Equal(t, "VAV-1-H", out.Heaters[0].Tag)
	assert.Equal(t, "Lab 3", *out.Heaters[0].Location)
	assert.Nil(t, out.Heaters[0].CFM)
}

func TestDeriveDirectHeaterWins(t *testing.T) {
	ds := Empty()
	ds.VAVs = []VAV{{Tag: "VAV-1", HasReheat: Ptr(true), ReheatKW: Ptr(3.0)}}
	ds.Heaters = []Heater{{Tag: "VAV-1-H", Voltage: Ptr(480), AssociatedVAV: Ptr("VAV-1")}}

	out := Derive(ds, DefaultPolicy())

	require.Len(t, out.Heaters, 1)
	assert.Equal(t, 480, *out.Heaters[0].Voltage)
	assert.Nil(t, out.Heaters[0].KW)
}

func TestDeriveBlankHeaters(t *testing.T) {
	out := Derive(Empty(), DefaultPolicy())

	require.Len(t, out.Heaters, 10)
	assert.Equal(t, "Electric Duct Heater", out.Heaters[0].Tag)
	assert.Equal(t, "Electric Duct Heater (1)", out.Heaters[1].Tag)
	assert.Equal(t, "Electric Duct Heater (9)", out.Heaters[9].Tag)
	for _, h := range out.Heaters {
		assert.True(t, h.IsPlaceholder())
		assert.Nil(t, h.AssociatedVAV)
	}
	assert.NoError(t, out.Validate())

	p := DefaultPolicy()
	p.BlankHeaters = 0
	assert.Empty(t, Derive(Empty(), p).Heaters)
}

func TestDeriveClearsUnknownVAVReference(t *testing.T) {
	vision := Empty()
	vision.Heaters = []Heater{
		{Tag: "EDH-1", KW: Ptr(3.0), AssociatedVAV: Ptr("VAV-99")},
		{Tag: "EDH-2", AssociatedVAV: Ptr("VAV-1")},
		{Tag: "EDH-3", AssociatedVAV: Ptr("  ")},
	}
	schedule := Empty()
	schedule.VAVs = []VAV{{Tag: "VAV-1"}}

	out := Merge([]Fragment{
		{Page: 0, Source: SourceVision, Data: vision},
		{Page: 1, Source: SourceSchedule, Data: schedule},
	}, DefaultPolicy())

	require.Len(t, out.Heaters, 3)
	assert.Equal(t, "EDH-1", out.Heaters[0].Tag)
	assert.Nil(t, out.Heaters[0].AssociatedVAV)
	assert.Equal(t, 3.0, *out.Heaters[0].KW, "the heater itself is kept")
	assert.Equal(t, "VAV-1", *out.Heaters[1].AssociatedVAV)
	assert.Nil(t, out.Heaters[2].AssociatedVAV)
	assert.NoError(t, out.Validate())
	assert.Equal(t, "VAV-99", *vision.Heaters[0].AssociatedVAV, "input fragment untouched")
}

func TestValidateRejectsDanglingHeater(t *testing.T) {
	ds := Empty()
	ds.Heaters = []Heater{{Tag: "VAV-9-H", AssociatedVAV: Ptr("VAV-9")}}
	err := ds.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown VAV")

	ds.VAVs = []VAV{{Tag: "X"}, {Tag: "X"}}
	assert.Contains(t, ds.Validate().Error(), "duplicate tag")
}
