package pipeline

import (
	"errors"
	"log/slog"

	"github.com/joseph-ayodele/hvac-extractor/internal/hvac"
	"github.com/joseph-ayodele/hvac-extractor/internal/pdf"
)

// PageSource is the read side of an opened drawing set.
type PageSource interface {
	NumPage() int
	Text(i int) (string, error)
	Spans(i int) ([]hvac.TextSpan, error)
	RenderPNG(i int, dpi float64) ([]byte, error)
	Close() error
}

// Opener opens a validated PDF path.
type Opener func(path string) (PageSource, error)

// pdfSource pairs the MuPDF document with the content-stream span reader.
// The span reader is optional: when it cannot parse a file the pipeline
// continues without geometric association.
type pdfSource struct {
	*pdf.Document
	spans  *pdf.SpanReader
	logger *slog.Logger
}

// OpenPDF is the default Opener.
func OpenPDF(logger *slog.Logger) Opener {
	if logger == nil {
		logger = slog.Default()
	}
	return func(path string) (PageSource, error) {
		doc, err := pdf.Open(path)
		if err != nil {
			return nil, err
		}
		src := &pdfSource{Document: doc, logger: logger}
		if sr, err := pdf.OpenSpans(path); err != nil {
			logger.Warn("pipeline.spans.unavailable", "path", path, "error", err)
		} else {
			src.spans = sr
		}
		return src, nil
	}
}

func (s *pdfSource) Spans(i int) ([]hvac.TextSpan, error) {
	if s.spans == nil {
		return nil, nil
	}
	return s.spans.Spans(i)
}

func (s *pdfSource) Close() error {
	var errs []error
	if s.spans != nil {
		errs = append(errs, s.spans.Close())
	}
	errs = append(errs, s.Document.Close())
	return errors.Join(errs...)
}
