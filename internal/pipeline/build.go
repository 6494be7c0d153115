package pipeline

import (
	"log/slog"

	"github.com/joseph-ayodele/hvac-extractor/internal/common"
	"github.com/joseph-ayodele/hvac-extractor/internal/extract"
	"github.com/joseph-ayodele/hvac-extractor/internal/hvac"
	"github.com/joseph-ayodele/hvac-extractor/internal/llm/openai"
	"github.com/joseph-ayodele/hvac-extractor/internal/ocr"
)

// FromConfig wires a Processor from validated configuration: text
// strategies always, the OpenAI-compatible vision client and the tesseract
// fallback when enabled.
func FromConfig(cfg *common.Config, logger *slog.Logger, opts ...Option) (*Processor, error) {
	if logger == nil {
		logger = slog.Default()
	}
	policy := hvac.PolicyFrom(cfg.Policy)
	text := extract.NewTextStrategies(policy, logger,
		extract.WithSchedule(cfg.Pipeline.Schedule),
		extract.WithGeometric(cfg.Pipeline.Geometric),
	)

	base := []Option{
		WithConcurrency(cfg.Pipeline.Concurrency),
		WithSchedulesOnly(cfg.Pipeline.SchedulesOnly),
		WithDPI(cfg.Vision.DPI),
	}
	if cfg.Vision.Enabled {
		client, err := openai.NewClient(openai.ConfigFrom(cfg.Vision), logger)
		if err != nil {
			return nil, err
		}
		base = append(base, WithVision(client))
	}
	if cfg.OCR.Enabled {
		base = append(base, WithOCR(ocr.NewEngine(ocr.ConfigFrom(cfg.OCR), logger), cfg.OCR.DPI))
	}
	return NewProcessor(text, policy, logger, append(base, opts...)...), nil
}
