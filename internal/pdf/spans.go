package pdf

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	lpdf "github.com/ledongthuc/pdf"

	"github.com/joseph-ayodele/hvac-extractor/internal/common"
	"github.com/joseph-ayodele/hvac-extractor/internal/hvac"
)

// SpanReader reads positioned text from PDF content streams and groups
// glyphs into spans the way a layout engine would: consecutive glyphs on the
// same baseline with no visible gap form one span.
type SpanReader struct {
	mu     sync.Mutex
	closer interface{ Close() error }
	r      *lpdf.Reader
}

func OpenSpans(path string) (*SpanReader, error) {
	f, r, err := lpdf.Open(path)
	if err != nil {
		return nil, common.InputError(fmt.Sprintf("open pdf %q", path), err)
	}
	return &SpanReader{closer: f, r: r}, nil
}

func (s *SpanReader) NumPage() int { return s.r.NumPage() }

// Spans returns the text spans of page i (0-based) with top-left origin
// coordinates. Malformed content streams yield an error, never a panic.
func (s *SpanReader) Spans(i int) (spans []hvac.TextSpan, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i < 0 || i >= s.r.NumPage() {
		return nil, fmt.Errorf("page %d out of range [0,%d)", i, s.r.NumPage())
	}
	defer func() {
		if r := recover(); r != nil {
			spans, err = nil, fmt.Errorf("page %d content: %v", i, r)
		}
	}()

	page := s.r.Page(i + 1)
	if page.V.IsNull() {
		return nil, nil
	}
	glyphs := page.Content().Text
	return GroupGlyphs(glyphs, pageHeight(page, glyphs), i), nil
}

func (s *SpanReader) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closer == nil {
		return nil
	}
	err := s.closer.Close()
	s.closer = nil
	return err
}

func pageHeight(page lpdf.Page, glyphs []lpdf.Text) float64 {
	for _, v := range []lpdf.Value{page.V.Key("MediaBox"), page.V.Key("Parent").Key("MediaBox")} {
		if !v.IsNull() && v.Len() == 4 {
			if h := v.Index(3).Float64() - v.Index(1).Float64(); h > 0 {
				return h
			}
		}
	}
	var top float64
	for _, g := range glyphs {
		top = math.Max(top, g.Y+g.FontSize)
	}
	return top
}

// GroupGlyphs merges glyphs into spans and flips the Y axis so that y grows
// downward from the top of the page.
func GroupGlyphs(glyphs []lpdf.Text, height float64, page int) []hvac.TextSpan {
	sorted := make([]lpdf.Text, 0, len(glyphs))
	for _, g := range glyphs {
		if g.S == "" || g.S == "\n" {
			continue
		}
		sorted = append(sorted, g)
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sameLine(sorted[i], sorted[j]) {
			return sorted[i].Y > sorted[j].Y
		}
		return sorted[i].X < sorted[j].X
	})

	var out []hvac.TextSpan
	var b strings.Builder
	var first, last lpdf.Text
	flush := func() {
		text := strings.TrimSpace(b.String())
		b.Reset()
		if text == "" {
			return
		}
		out = append(out, hvac.TextSpan{
			Text:     text,
			X:        first.X,
			Y:        height - (first.Y + first.FontSize),
			X1:       last.X + last.W,
			Y1:       height - first.Y,
			Page:     page,
			FontSize: first.FontSize,
		})
	}

	for i, g := range sorted {
		if i > 0 && !continues(last, g) {
			flush()
		}
		if b.Len() == 0 {
			first = g
		}
		b.WriteString(g.S)
		last = g
	}
	flush()
	return out
}

func sameLine(a, b lpdf.Text) bool {
	tol := math.Max(math.Max(a.FontSize, b.FontSize)*0.3, 0.5)
	return math.Abs(a.Y-b.Y) <= tol
}

// continues reports whether g extends the span ending with prev: same line,
// same size and a gap smaller than one em.
func continues(prev, g lpdf.Text) bool {
	if !sameLine(prev, g) || math.Abs(prev.FontSize-g.FontSize) > 0.5 {
		return false
	}
	gap := g.X - (prev.X + prev.W)
	em := math.Max(prev.FontSize, 1)
	return gap >= -em && gap <= em
}
