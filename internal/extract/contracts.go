package extract

import (
	"context"

	"github.com/joseph-ayodele/hvac-extractor/internal/hvac"
)

// Page is the text layer of one drawing page.
type Page struct {
	Index int
	Text  string
	Lines []string
	Spans []hvac.TextSpan
}

// PageExtractor turns one classified page into zero or more fragments.
type PageExtractor interface {
	ExtractPage(ctx context.Context, page Page, kind hvac.PageKind) ([]hvac.Fragment, error)
}
