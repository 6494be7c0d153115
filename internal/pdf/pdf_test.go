package pdf

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	lpdf "github.com/ledongthuc/pdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/hvac-extractor/internal/common"
	"github.com/joseph-ayodele/hvac-extractor/internal/testutil"
)

func drawing(t *testing.T) string {
	return testutil.WritePDF(t, [][]testutil.Text{
		{
			{X: 72, Y: 72, Size: 12, S: "VAV BOX SCHEDULE"},
			{X: 72, Y: 100, Size: 10, S: "VAVB5-01"},
			{X: 160, Y: 100, Size: 10, S: "450 CFM"},
		},
		{
			{X: 300, Y: 400, Size: 10, S: "EF-1"},
		},
	})
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	garbage := filepath.Join(dir, "garbage.pdf")
	require.NoError(t, os.WriteFile(garbage, []byte("this is not a pdf"), 0o600))
	text := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(text, []byte("hello"), 0o600))

	tests := []struct {
		name string
		path string
	}{
		{"empty path", ""},
		{"missing file", filepath.Join(dir, "missing.pdf")},
		{"directory", dir},
		{"wrong extension", text},
		{"corrupt bytes", garbage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Validate(tt.path)
			require.Error(t, err)
			assert.ErrorIs(t, err, common.ErrInput)
		})
	}

	t.Run("valid drawing", func(t *testing.T) {
		pages, err := Validate(drawing(t))
		require.NoError(t, err)
		assert.Equal(t, 2, pages)
	})
}

func TestDocument(t *testing.T) {
	doc, err := Open(drawing(t))
	require.NoError(t, err)
	defer doc.Close()

	assert.Equal(t, 2, doc.NumPage())

	text, err := doc.Text(0)
	require.NoError(t, err)
	assert.Contains(t, text, "VAV BOX SCHEDULE")
	assert.Contains(t, text, "VAVB5-01")

	lines, err := doc.Lines(0)
	require.NoError(t, err)
	assert.NotEmpty(t, lines)

	img, err := doc.RenderPNG(1, 36)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(img, []byte("\x89PNG\r\n\x1a\n")))

	_, err = doc.Text(5)
	assert.Error(t, err)
	_, err = doc.RenderPNG(-1, 0)
	assert.Error(t, err)

	require.NoError(t, doc.Close())
	require.NoError(t, doc.Close())
}

func TestOpenMissing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope.pdf"))
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrInput)
}

func TestSpanReader(t *testing.T) {
	r, err := OpenSpans(drawing(t))
	require.NoError(t, err)
	defer r.Close()

	require.Equal(t, 2, r.NumPage())

	spans, err := r.Spans(0)
	require.NoError(t, err)
	var texts []string
	for _, s := range spans {
		texts = append(texts, s.Text)
		assert.Equal(t, 0, s.Page)
	}
	assert.Contains(t, texts, "VAVB5-01")
	assert.Contains(t, texts, "450 CFM")

	for _, s := range spans {
		if s.Text == "VAVB5-01" {
			assert.InDelta(t, 72, s.X, 1)
			assert.InDelta(t, 100, s.Y, 1)
		}
	}

	spans, err = r.Spans(1)
	require.NoError(t, err)
	require.Len(t, spans, 1)
	assert.Equal(t, "EF-1", spans[0].Text)
	assert.Equal(t, 1, spans[0].Page)

	_, err = r.Spans(2)
	assert.Error(t, err)
}

func TestGroupGlyphs(t *testing.T) {
	glyph := func(s string, x, y float64) lpdf.Text {
		return lpdf.Text{S: s, X: x, Y: y, W: 6, FontSize: 10}
	}

	t.Run("adjacent glyphs merge", func(t *testing.T) {
		spans := GroupGlyphs([]lpdf.Text{
			glyph("E", 100, 700), glyph("F", 106, 700), glyph("-", 112, 700), glyph("1", 118, 700),
		}, 792, 3)
		require.Len(t, spans, 1)
		s := spans[0]
		assert.Equal(t, "EF-1", s.Text)
		assert.Equal(t, 3, s.Page)
		assert.InDelta(t, 100, s.X, 1e-9)
		assert.InDelta(t, 124, s.X1, 1e-9)
		assert.InDelta(t, 82, s.Y, 1e-9)
		assert.InDelta(t, 92, s.Y1, 1e-9)
	})

	t.Run("wide gap splits", func(t *testing.T) {
		spans := GroupGlyphs([]lpdf.Text{
			glyph("A", 100, 700), glyph("B", 200, 700),
		}, 792, 0)
		require.Len(t, spans, 2)
		assert.Equal(t, "A", spans[0].Text)
		assert.Equal(t, "B", spans[1].Text)
	})

	t.Run("lines ordered top to bottom", func(t *testing.T) {
		spans := GroupGlyphs([]lpdf.Text{
			glyph("low", 100, 100), glyph("high", 100, 700),
		}, 792, 0)
		require.Len(t, spans, 2)
		assert.Equal(t, "high", spans[0].Text)
		assert.Equal(t, "low", spans[1].Text)
	})

	t.Run("blank glyphs dropped", func(t *testing.T) {
		spans := GroupGlyphs([]lpdf.Text{glyph("", 1, 1), glyph("\n", 2, 1), glyph(" ", 3, 1)}, 792, 0)
		assert.Empty(t, spans)
	})
}

func TestSplitLines(t *testing.T) {
	assert.Equal(t, []string{"a", "", "b"}, SplitLines("a  \r\n\nb\n\n"))
	assert.Empty(t, SplitLines(""))
}
