package extract

import (
	"strings"

	"github.com/joseph-ayodele/hvac-extractor/internal/hvac"
)

// ScheduleKeywords mark a page as a tabular equipment schedule.
var ScheduleKeywords = []string{"SCHEDULE", "DESIGNATION", "CFM", "AIRFLOW"}

// Classify labels a page from its extracted text. Matching is
// case-insensitive; pages without any keyword, including empty ones, are
// floor plans.
func Classify(text string) hvac.PageKind {
	upper := strings.ToUpper(text)
	for _, kw := range ScheduleKeywords {
		if strings.Contains(upper, kw) {
			return hvac.PageSchedule
		}
	}
	return hvac.PageFloorPlan
}
