package llm

import (
	"context"

	"github.com/joseph-ayodele/hvac-extractor/internal/hvac"
)

// VisionExtractor reads equipment records from a rendered page image.
// Implementations return an empty dataset, not an error, when the model
// reply cannot be parsed; errors are reserved for transport failures.
type VisionExtractor interface {
	ExtractPage(ctx context.Context, image []byte, kind hvac.PageKind) (hvac.Dataset, error)
}
