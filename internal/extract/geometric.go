package extract

import (
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/hvac-extractor/internal/hvac"
)

// Associator pairs equipment tags with the nearest airflow value on the
// same page, using span top-left corners as positions.
type Associator struct {
	patterns []TagPattern
	policy   hvac.Policy
	logger   *slog.Logger
}

func NewAssociator(policy hvac.Policy, logger *slog.Logger) *Associator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Associator{patterns: DefaultTagPatterns(), policy: policy, logger: logger}
}

type valueCandidate struct {
	value int
	x, y  float64
}

type tagSpan struct {
	hit  tagHit
	x, y float64
}

// Associate returns one partial record per tag span, in span order. A tag
// with no candidate inside the radius keeps its numeric fields unset.
func (a *Associator) Associate(spans []hvac.TextSpan) hvac.Dataset {
	out := hvac.Empty()

	var pages []int
	seenPage := make(map[int]bool)
	tags := make(map[int][]tagSpan)
	candidates := make(map[int][]valueCandidate)
	for _, s := range spans {
		if !seenPage[s.Page] {
			seenPage[s.Page] = true
			pages = append(pages, s.Page)
		}
		if hit, ok := findTag(a.patterns, s.Text); ok {
			tags[s.Page] = append(tags[s.Page], tagSpan{hit: hit, x: s.X, y: s.Y})
		}
		if v, ok := a.candidate(s); ok {
			candidates[s.Page] = append(candidates[s.Page], valueCandidate{value: v, x: s.X, y: s.Y})
		}
	}

	for _, page := range pages {
		for _, t := range tags[page] {
			cfm, found := a.nearest(t, candidates[page])
			recordFor(&out, t.hit, cfm, found, a.policy)
		}
	}
	return out
}

// candidate reports whether a span reads as an airflow value: a bare
// integer inside the candidate range, or text mentioning CFM with a 2-4
// digit number. Unparseable tokens are skipped.
func (a *Associator) candidate(s hvac.TextSpan) (int, bool) {
	text := strings.TrimSpace(s.Text)
	if text == "" {
		return 0, false
	}
	if isDigits(text) {
		n, err := strconv.Atoi(text)
		if err != nil {
			a.logger.Debug("extract.geometric.skip_token", "page", s.Page, "text", text, "error", err)
			return 0, false
		}
		return n, a.policy.InCandidateRange(n)
	}
	if !strings.Contains(strings.ToUpper(text), "CFM") {
		return 0, false
	}
	m := cfmPattern.FindStringSubmatch(maskTags(a.patterns, text))
	if m == nil {
		a.logger.Debug("extract.geometric.skip_token", "page", s.Page, "text", text, "reason", "no_cfm_value")
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		a.logger.Debug("extract.geometric.skip_token", "page", s.Page, "text", text, "error", err)
		return 0, false
	}
	return n, true
}

// nearest picks the closest candidate within the radius; ties keep the
// earlier candidate.
func (a *Associator) nearest(t tagSpan, candidates []valueCandidate) (int, bool) {
	best, bestDist, found := 0, math.Inf(1), false
	for _, c := range candidates {
		d := math.Hypot(c.x-t.x, c.y-t.y)
		if d > a.policy.Radius {
			continue
		}
		if d < bestDist {
			best, bestDist, found = c.value, d, true
		}
	}
	return best, found
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
