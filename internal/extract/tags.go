package extract

import (
	"regexp"

	"github.com/joseph-ayodele/hvac-extractor/internal/hvac"
)

// TagPattern ties an equipment family to the lexical form of its tags.
type TagPattern struct {
	Family string
	Re     *regexp.Regexp
}

var (
	VAVTagPattern  = regexp.MustCompile(`VAVB?\d*-\d+|VAV-\d+`)
	FanTagPattern  = regexp.MustCompile(`\bEF-\d+[A-Z]?\b`)
	CRACTagPattern = regexp.MustCompile(`\bCRAC-[A-Z0-9]+\b`)

	// cfmPattern finds a standalone 2-4 digit airflow value. Longer digit
	// runs never match, so they are skipped rather than truncated.
	cfmPattern = regexp.MustCompile(`(?:^|\D)(\d{2,4})(?:\D|$)`)
)

// DefaultTagPatterns lists the families the text strategies recognise, in
// tie-break order.
func DefaultTagPatterns() []TagPattern {
	return []TagPattern{
		{Family: hvac.FamilyVAV, Re: VAVTagPattern},
		{Family: hvac.FamilyFan, Re: FanTagPattern},
		{Family: hvac.FamilyCRAC, Re: CRACTagPattern},
	}
}

// tagHit is one tag occurrence found in a piece of text.
type tagHit struct {
	family string
	tag    string
}

// findTag returns the leftmost tag in text. Patterns only break ties
// between matches starting at the same position.
func findTag(patterns []TagPattern, text string) (tagHit, bool) {
	best, start := tagHit{}, -1
	for _, p := range patterns {
		loc := p.Re.FindStringIndex(text)
		if loc == nil || loc[0] == loc[1] {
			continue
		}
		if start < 0 || loc[0] < start {
			best, start = tagHit{family: p.Family, tag: text[loc[0]:loc[1]]}, loc[0]
		}
	}
	return best, start >= 0
}

// maskTags blanks every tag occurrence so tag digits are never read as values.
func maskTags(patterns []TagPattern, text string) string {
	for _, p := range patterns {
		text = p.Re.ReplaceAllString(text, " ")
	}
	return text
}

// recordFor builds the partial record for a tag, applying an airflow value
// when one was found. VAVs also receive the estimated minimum and inlet size.
func recordFor(d *hvac.Dataset, hit tagHit, cfm int, found bool, policy hvac.Policy) {
	switch hit.family {
	case hvac.FamilyVAV:
		v := hvac.VAV{Tag: hit.tag}
		if found {
			policy.ApplyAirflow(&v, cfm)
		}
		d.VAVs = append(d.VAVs, v)
	case hvac.FamilyFan:
		f := hvac.Fan{Tag: hit.tag}
		if found {
			f.CFM = hvac.Ptr(cfm)
		}
		d.Fans = append(d.Fans, f)
	case hvac.FamilyCRAC:
		c := hvac.CRAC{Tag: hit.tag}
		if found {
			c.CFM = hvac.Ptr(cfm)
		}
		d.CRACs = append(d.CRACs, c)
	}
}
