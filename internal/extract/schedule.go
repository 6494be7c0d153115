package extract

import (
	"strconv"
	"strings"

	"github.com/joseph-ayodele/hvac-extractor/internal/hvac"
)

// ScheduleScanner reads tabular schedule text line by line. For each tagged
// line it looks for an airflow value in the line and its immediate
// neighbours.
type ScheduleScanner struct {
	patterns []TagPattern
	policy   hvac.Policy
}

func NewScheduleScanner(policy hvac.Policy) *ScheduleScanner {
	return &ScheduleScanner{patterns: DefaultTagPatterns(), policy: policy}
}

type scheduleHit struct {
	hit tagHit
	cfm int
}

// scan returns hits in order of first appearance. A tag already recorded on
// the page is ignored on later lines.
func (s *ScheduleScanner) scan(lines []string) []scheduleHit {
	var hits []scheduleHit
	seen := make(map[string]struct{})
	for i, line := range lines {
		hit, ok := findTag(s.patterns, line)
		if !ok {
			continue
		}
		if _, dup := seen[hit.tag]; dup {
			continue
		}
		lo, hi := max(0, i-1), min(len(lines), i+2)
		window := maskTags(s.patterns, strings.Join(lines[lo:hi], " "))
		m := cfmPattern.FindStringSubmatch(window)
		if m == nil {
			continue
		}
		cfm, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		seen[hit.tag] = struct{}{}
		hits = append(hits, scheduleHit{hit: hit, cfm: cfm})
	}
	return hits
}

// Scan returns the VAV records found on one schedule page keyed by tag.
func (s *ScheduleScanner) Scan(lines []string) map[string]hvac.VAV {
	out := make(map[string]hvac.VAV)
	for _, h := range s.scan(lines) {
		if h.hit.family != hvac.FamilyVAV {
			continue
		}
		v := hvac.VAV{Tag: h.hit.tag}
		s.policy.ApplyAirflow(&v, h.cfm)
		out[h.hit.tag] = v
	}
	return out
}

// ScanDataset returns every family found on the page, in line order.
func (s *ScheduleScanner) ScanDataset(lines []string) hvac.Dataset {
	out := hvac.Empty()
	for _, h := range s.scan(lines) {
		recordFor(&out, h.hit, h.cfm, true, s.policy)
	}
	return out
}
