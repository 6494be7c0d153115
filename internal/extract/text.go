package extract

import (
	"context"
	"log/slog"

	"github.com/joseph-ayodele/hvac-extractor/internal/hvac"
)

// TextStrategies runs the text-layer strategies on a page: the schedule
// scanner on schedule pages and the geometric associator on every page.
type TextStrategies struct {
	scanner    *ScheduleScanner
	associator *Associator
	schedule   bool
	geometric  bool
	logger     *slog.Logger
}

type TextOption func(*TextStrategies)

func WithSchedule(enabled bool) TextOption {
	return func(t *TextStrategies) { t.schedule = enabled }
}

func WithGeometric(enabled bool) TextOption {
	return func(t *TextStrategies) { t.geometric = enabled }
}

func NewTextStrategies(policy hvac.Policy, logger *slog.Logger, opts ...TextOption) *TextStrategies {
	if logger == nil {
		logger = slog.Default()
	}
	t := &TextStrategies{
		scanner:    NewScheduleScanner(policy),
		associator: NewAssociator(policy, logger),
		schedule:   true,
		geometric:  true,
		logger:     logger,
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

func (t *TextStrategies) ExtractPage(ctx context.Context, page Page, kind hvac.PageKind) ([]hvac.Fragment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []hvac.Fragment
	if t.schedule && kind == hvac.PageSchedule && len(page.Lines) > 0 {
		d := t.scanner.ScanDataset(page.Lines)
		if !d.IsEmpty() {
			out = append(out, hvac.Fragment{Page: page.Index, Kind: kind, Source: hvac.SourceSchedule, Data: d})
		}
	}
	if t.geometric && len(page.Spans) > 0 {
		d := t.associator.Associate(page.Spans)
		if !d.IsEmpty() {
			out = append(out, hvac.Fragment{Page: page.Index, Kind: kind, Source: hvac.SourceGeometric, Data: d})
		}
	}
	t.logger.Debug("extract.text.page",
		"page", page.Index,
		"kind", kind,
		"fragments", len(out),
	)
	return out, nil
}
