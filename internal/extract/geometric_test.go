package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/hvac-extractor/internal/hvac"
)

func span(page int, text string, x, y float64) hvac.TextSpan {
	return hvac.TextSpan{Text: text, X: x, Y: y, X1: x + 20, Y1: y + 8, Page: page}
}

func TestAssociateRadius(t *testing.T) {
	a := NewAssociator(hvac.DefaultPolicy(), nil)

	far := a.Associate([]hvac.TextSpan{span(0, "VAVB5-01", 0, 0), span(0, "450", 400, 0)})
	require.Len(t, far.VAVs, 1)
	assert.Nil(t, far.VAVs[0].CFMMax)
	assert.Nil(t, far.VAVs[0].InletSize)

	near := a.Associate([]hvac.TextSpan{span(0, "VAVB5-01", 0, 0), span(0, "450", 200, 0)})
	require.Len(t, near.VAVs, 1)
	v := near.VAVs[0]
	assert.Equal(t, 450, *v.TotalCFM)
	assert.Equal(t, 450, *v.CFMMax)
	assert.Equal(t, 90, *v.CFMMin)
	assert.Equal(t, `10"`, *v.InletSize)
	assert.ElementsMatch(t, []string{"cfm_min", "inlet_size"}, v.Estimated)

	edge := a.Associate([]hvac.TextSpan{span(0, "VAV-3", 0, 0), span(0, "300", 180, 240)})
	assert.Equal(t, 300, *edge.VAVs[0].CFMMax, "distance equal to the radius is inside")
}

func TestAssociateNearestWins(t *testing.T) {
	a := NewAssociator(hvac.DefaultPolicy(), nil)
	ds := a.Associate([]hvac.TextSpan{
		span(0, "900", 250, 0),
		span(0, "VAV-7", 100, 100),
		span(0, "350 CFM", 120, 110),
		span(0, "200", 130, 130),
	})
	require.Len(t, ds.VAVs, 1)
	assert.Equal(t, 350, *ds.VAVs[0].CFMMax)
}

func TestAssociateCandidates(t *testing.T) {
	a := NewAssociator(hvac.DefaultPolicy(), nil)
	tests := []struct {
		name  string
		text  string
		found bool
		want  int
	}{
		{"bare in range", "750", true, 750},
		{"lower bound", "50", true, 50},
		{"upper bound", "5000", true, 5000},
		{"below range", "49", false, 0},
		{"above range", "5001", false, 0},
		{"cfm suffix", "1200CFM", true, 1200},
		{"cfm lowercase", "max 600 cfm", true, 600},
		{"no digits", "CFM", false, 0},
		{"plain words", "ROOM", false, 0},
		{"overflow", "99999999999999999999999", false, 0},
		{"five digit cfm", "12345 CFM", false, 0},
		{"long run then value", "12345 / 800 CFM", true, 800},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := a.candidate(span(0, tt.text, 0, 0))
			assert.Equal(t, tt.found, ok)
			if tt.found {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestAssociateSamePageOnly(t *testing.T) {
	a := NewAssociator(hvac.DefaultPolicy(), nil)
	ds := a.Associate([]hvac.TextSpan{span(0, "VAV-1", 0, 0), span(1, "500", 10, 10)})
	require.Len(t, ds.VAVs, 1)
	assert.Nil(t, ds.VAVs[0].CFMMax)
}

func TestAssociateOtherFamilies(t *testing.T) {
	a := NewAssociator(hvac.DefaultPolicy(), nil)
	ds := a.Associate([]hvac.TextSpan{
		span(0, "EF-2", 0, 0),
		span(0, "120 CFM", 30, 0),
		span(0, "CRAC-A", 1000, 1000),
		span(0, "2400", 1000, 1050),
	})
	require.Len(t, ds.Fans, 1)
	assert.Equal(t, 120, *ds.Fans[0].CFM)
	require.Len(t, ds.CRACs, 1)
	assert.Equal(t, 2400, *ds.CRACs[0].CFM)
	assert.Empty(t, ds.VAVs)
}

func TestAssociateIgnoresTagDigits(t *testing.T) {
	a := NewAssociator(hvac.DefaultPolicy(), nil)
	ds := a.Associate([]hvac.TextSpan{span(0, "VAVB5-01 CFM", 0, 0)})
	require.Len(t, ds.VAVs, 1)
	assert.Nil(t, ds.VAVs[0].CFMMax)
}
