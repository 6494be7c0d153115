// Package ocr recovers a positioned text layer from rasterized drawing pages
// with tesseract. It is the fallback for scanned sheets whose PDF carries no
// text of its own.
package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/joseph-ayodele/hvac-extractor/internal/common"
	"github.com/joseph-ayodele/hvac-extractor/internal/hvac"
)

type Config struct {
	Tesseract   string // binary name or absolute path; "tesseract" when empty
	Lang        string // default "eng"
	TessdataDir string
	// PSM 11 (sparse text) suits drawings, where labels are scattered
	// rather than laid out in paragraphs.
	PSM int
	OEM int // 1 = LSTM; 0 leaves the engine default
	// MinConfidence drops words tesseract scored below it (0..100).
	MinConfidence float64
	Timeout       time.Duration
}

// ConfigFrom maps the application configuration.
func ConfigFrom(c common.OCRConfig) Config {
	return Config{
		Tesseract:     c.Tesseract,
		Lang:          c.Lang,
		TessdataDir:   c.TessdataDir,
		PSM:           c.PSM,
		OEM:           c.OEM,
		MinConfidence: c.MinConfidence,
		Timeout:       c.Timeout,
	}
}

// Result is the text layer recognized on one page image.
type Result struct {
	Text  string
	Lines []string
	// Spans are word boxes converted to page units at the render DPI.
	Spans []hvac.TextSpan
	// Confidence is the mean word confidence in 0..1.
	Confidence float64
	Words      int
	Duration   time.Duration
}

type Engine struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

type Option func(*Engine)

// WithRunner replaces the process runner.
func WithRunner(r Runner) Option {
	return func(e *Engine) { e.runner = r }
}

func NewEngine(cfg Config, logger *slog.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.Lang == "" {
		cfg.Lang = "eng"
	}
	if cfg.PSM <= 0 {
		cfg.PSM = 11
	}
	e := &Engine{cfg: cfg, runner: execRunner{logger: logger}, logger: logger}
	for _, o := range opts {
		o(e)
	}
	return e
}

func (e *Engine) args(dpi float64) []string {
	// tesseract stdin stdout -l <lang> --psm N [--oem N] [--dpi N] [--tessdata-dir D] tsv
	args := []string{"stdin", "stdout", "-l", e.cfg.Lang, "--psm", strconv.Itoa(e.cfg.PSM)}
	if e.cfg.OEM > 0 {
		args = append(args, "--oem", strconv.Itoa(e.cfg.OEM))
	}
	if dpi > 0 {
		args = append(args, "--dpi", strconv.Itoa(int(dpi)))
	}
	if e.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.cfg.TessdataDir)
	}
	return append(args, "tsv")
}

// Recognize runs tesseract on a PNG rendered at dpi and returns the words of
// page as spans in page units.
func (e *Engine) Recognize(ctx context.Context, image []byte, page int, dpi float64) (Result, error) {
	if len(image) == 0 {
		return Result{}, common.InputError("ocr: empty image", nil)
	}
	if dpi <= 0 {
		return Result{}, common.InputError(fmt.Sprintf("ocr: invalid dpi %v", dpi), nil)
	}
	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	out, errb, err := e.runner.Run(ctx, bytes.NewReader(image), e.cfg.Tesseract, e.args(dpi)...)
	if err != nil {
		if ctxErr := ctx.Err(); errors.Is(ctxErr, context.Canceled) {
			return Result{}, ctxErr
		}
		msg := strings.TrimSpace(truncate(string(errb), 512))
		return Result{}, fmt.Errorf("tesseract page %d: %w: %s", page, err, msg)
	}

	words, err := ParseTSV(out)
	if err != nil {
		return Result{}, fmt.Errorf("tesseract page %d: %w", page, err)
	}
	res := Assemble(words, page, dpi, e.cfg.MinConfidence)
	res.Duration = time.Since(start)

	e.logger.Debug("ocr.page.ok",
		"page", page,
		"words", res.Words,
		"lines", len(res.Lines),
		"confidence", res.Confidence,
		"duration_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}
