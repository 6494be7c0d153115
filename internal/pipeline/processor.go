// Package pipeline runs an extraction over a drawing set: pre-flight
// checks, per-page classification and extraction, then merge and derivation.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/hvac-extractor/internal/common"
	"github.com/joseph-ayodele/hvac-extractor/internal/extract"
	"github.com/joseph-ayodele/hvac-extractor/internal/hvac"
	"github.com/joseph-ayodele/hvac-extractor/internal/llm"
	"github.com/joseph-ayodele/hvac-extractor/internal/ocr"
	"github.com/joseph-ayodele/hvac-extractor/internal/pdf"
)

// Request names the drawing set to process.
type Request struct {
	Path string
}

// PageOutcome records what one page contributed.
type PageOutcome struct {
	Index     int           `json:"index"`
	Kind      hvac.PageKind `json:"kind"`
	Status    PageStatus    `json:"status"`
	Fragments int           `json:"fragments"`
	OCR       bool          `json:"ocr,omitempty"`
	Error     string        `json:"error,omitempty"`
}

// Result is the handoff of one run. Dataset is a copy owned by the caller.
type Result struct {
	Dataset hvac.Dataset   `json:"dataset"`
	Counts  map[string]int `json:"counts"`
	Pages   []PageOutcome  `json:"pages"`
	States  []State        `json:"states"`
	Elapsed time.Duration  `json:"elapsed"`
}

// Processor coordinates the text strategies and the vision adapter.
type Processor struct {
	text          extract.PageExtractor
	vision        llm.VisionExtractor
	visionEnabled bool
	policy        hvac.Policy
	concurrency   int
	schedulesOnly bool
	dpi           float64
	ocr           Recognizer
	ocrDPI        float64
	observer      Observer
	open          Opener
	validate      func(path string) (int, error)
	logger        *slog.Logger
}

// Recognizer reads a text layer off a rendered page image.
type Recognizer interface {
	Recognize(ctx context.Context, image []byte, page int, dpi float64) (ocr.Result, error)
}

type Option func(*Processor)

func WithConcurrency(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// WithSchedulesOnly skips floor-plan pages entirely.
func WithSchedulesOnly(on bool) Option {
	return func(p *Processor) { p.schedulesOnly = on }
}

// WithVision enables the vision adapter. A nil extractor with vision
// enabled fails pre-flight with a configuration error.
func WithVision(v llm.VisionExtractor) Option {
	return func(p *Processor) {
		p.vision = v
		p.visionEnabled = true
	}
}

func WithDPI(dpi float64) Option {
	return func(p *Processor) {
		if dpi > 0 {
			p.dpi = dpi
		}
	}
}

// WithOCR recognizes pages whose PDF text layer is blank, rendering them
// at dpi. The recognized words replace the empty text and spans.
func WithOCR(r Recognizer, dpi float64) Option {
	return func(p *Processor) {
		p.ocr = r
		if dpi > 0 {
			p.ocrDPI = dpi
		}
	}
}

func WithObserver(o Observer) Option {
	return func(p *Processor) { p.observer = o }
}

func WithOpener(o Opener) Option {
	return func(p *Processor) { p.open = o }
}

// WithValidator replaces the pre-flight file check.
func WithValidator(fn func(path string) (int, error)) Option {
	return func(p *Processor) { p.validate = fn }
}

func NewProcessor(text extract.PageExtractor, policy hvac.Policy, logger *slog.Logger, opts ...Option) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Processor{
		text:        text,
		policy:      policy,
		concurrency: 1,
		dpi:         pdf.DefaultDPI,
		ocrDPI:      300,
		validate:    pdf.Validate,
		logger:      logger,
	}
	for _, o := range opts {
		o(p)
	}
	if p.open == nil {
		p.open = OpenPDF(logger)
	}
	return p
}

// run tracks the state sequence of one Run call.
type run struct {
	p      *Processor
	mu     sync.Mutex
	states []State
	done   int
	pages  int
}

func (r *run) enter(s State, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.states) == 0 || r.states[len(r.states)-1] != s {
		r.states = append(r.states, s)
	}
	r.emit(Event{State: s, Page: r.done, Pages: r.pages, Err: err})
}

func (r *run) pageDone() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.done++
	r.emit(Event{State: StateExtracting, Page: r.done, Pages: r.pages})
}

func (r *run) emit(ev Event) {
	if r.p.observer != nil {
		r.p.observer(ev)
	}
}

// Run extracts, merges and derives. The only errors it returns are the
// pre-flight ones (configuration, unreadable input) and cancellation of
// ctx; page-level failures become empty pages.
func (p *Processor) Run(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	logger := common.LoggerFromContext(ctx, p.logger)

	if p.text == nil && !p.visionEnabled {
		return nil, common.ConfigurationError("no extraction strategy configured", nil)
	}
	if p.visionEnabled && p.vision == nil {
		return nil, common.ConfigurationError("vision extraction enabled without a vision client", nil)
	}
	pages, err := p.validate(req.Path)
	if err != nil {
		return nil, err
	}

	r := &run{p: p, states: []State{StateIdle}, pages: pages}
	src, err := p.open(req.Path)
	if err != nil {
		r.enter(StateFailed, err)
		return nil, err
	}
	defer func() {
		if cerr := src.Close(); cerr != nil {
			logger.Warn("pipeline.close_error", "error", cerr)
		}
	}()
	if n := src.NumPage(); n != pages {
		logger.Warn("pipeline.page_count_mismatch", "validated", pages, "opened", n)
		pages = min(pages, n)
		r.pages = pages
	}

	logger.Info("pipeline.start",
		"path", req.Path,
		"pages", pages,
		"vision", p.visionEnabled,
		"schedules_only", p.schedulesOnly,
		"concurrency", p.concurrency,
	)
	r.enter(StateExtracting, nil)

	slots := make([][]hvac.Fragment, pages)
	outcomes := make([]PageOutcome, pages)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i := 0; i < pages; i++ {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			slots[i], outcomes[i] = p.page(gctx, src, i, logger)
			r.pageDone()
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		r.enter(StateFailed, err)
		logger.Error("pipeline.failed", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, fmt.Errorf("extract pages: %w", err)
	}

	var fragments []hvac.Fragment
	for _, s := range slots {
		fragments = append(fragments, s...)
	}

	r.enter(StateMerging, nil)
	merged := hvac.Reconcile(hvac.SortFragments(fragments))

	r.enter(StateDeriving, nil)
	ds := hvac.Derive(merged, p.policy)
	if err := ds.Validate(); err != nil {
		r.enter(StateFailed, err)
		logger.Error("pipeline.dataset.invalid", "error", err)
		return nil, fmt.Errorf("derive dataset: %w", err)
	}

	r.enter(StateDone, nil)
	res := &Result{
		Dataset: ds.Clone(),
		Counts:  ds.Counts(),
		Pages:   outcomes,
		States:  append([]State(nil), r.states...),
		Elapsed: time.Since(start),
	}
	logger.Info("pipeline.done",
		"pages", pages,
		"fragments", len(fragments),
		"vavs", res.Counts[hvac.FamilyVAV],
		"fans", res.Counts[hvac.FamilyFan],
		"cracs", res.Counts[hvac.FamilyCRAC],
		"heaters", res.Counts[hvac.FamilyHeater],
		"air_devices", res.Counts[hvac.FamilyAirDevice],
		"elapsed_ms", res.Elapsed.Milliseconds(),
	)
	return res, nil
}

// page classifies page i and runs every enabled strategy on it. Strategy
// failures are logged and absorbed.
func (p *Processor) page(ctx context.Context, src PageSource, i int, logger *slog.Logger) ([]hvac.Fragment, PageOutcome) {
	start := time.Now()
	out := PageOutcome{Index: i, Status: PageEmpty}

	text, err := src.Text(i)
	if err != nil {
		logger.Warn("pipeline.page.text_error", "page", i, "error", err)
		out.Error = err.Error()
	}
	var recognized *ocr.Result
	if strings.TrimSpace(text) == "" && p.ocr != nil {
		if res, ok := p.recognize(ctx, src, i, logger); ok {
			recognized = &res
			text = res.Text
			out.OCR = true
		}
	}
	kind := extract.Classify(text)
	out.Kind = kind

	if p.schedulesOnly && kind != hvac.PageSchedule {
		out.Status = PageSkipped
		logger.Debug("pipeline.page.skipped", "page", i, "kind", kind)
		return nil, out
	}

	var fragments []hvac.Fragment

	if p.visionEnabled {
		if f, ok := p.visionFragment(ctx, src, i, kind, logger); ok {
			fragments = append(fragments, f)
		}
	}

	if p.text != nil {
		page := extract.Page{Index: i, Text: text, Lines: pdf.SplitLines(text)}
		if recognized != nil {
			page.Lines, page.Spans = recognized.Lines, recognized.Spans
		} else {
			spans, err := src.Spans(i)
			if err != nil {
				logger.Warn("pipeline.page.spans_error", "page", i, "error", err)
			}
			page.Spans = spans
		}
		fs, err := p.text.ExtractPage(ctx, page, kind)
		if err != nil {
			logger.Warn("pipeline.page.text_strategy_error", "page", i, "error", err)
		}
		fragments = append(fragments, fs...)
	}

	out.Fragments = len(fragments)
	if len(fragments) > 0 {
		out.Status = PageOK
	}
	logger.Info("pipeline.page.ok",
		"page", i,
		"kind", kind,
		"status", out.Status,
		"fragments", len(fragments),
		"ocr", out.OCR,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return fragments, out
}

// recognize runs OCR on a blank page. Failures and pages where nothing
// legible was found leave the page as it was.
func (p *Processor) recognize(ctx context.Context, src PageSource, i int, logger *slog.Logger) (ocr.Result, bool) {
	img, err := src.RenderPNG(i, p.ocrDPI)
	if err != nil {
		logger.Warn("pipeline.page.render_error", "page", i, "error", err)
		return ocr.Result{}, false
	}
	res, err := p.ocr.Recognize(ctx, img, i, p.ocrDPI)
	if err != nil {
		logger.Warn("pipeline.page.ocr_error", "page", i, "error", err)
		return ocr.Result{}, false
	}
	if strings.TrimSpace(res.Text) == "" {
		return ocr.Result{}, false
	}
	logger.Debug("pipeline.page.ocr", "page", i, "words", res.Words, "confidence", res.Confidence)
	return res, true
}

func (p *Processor) visionFragment(ctx context.Context, src PageSource, i int, kind hvac.PageKind, logger *slog.Logger) (hvac.Fragment, bool) {
	img, err := src.RenderPNG(i, p.dpi)
	if err != nil {
		logger.Warn("pipeline.page.render_error", "page", i, "error", err)
		return hvac.Fragment{}, false
	}
	ds, err := p.vision.ExtractPage(ctx, img, kind)
	if err != nil {
		logger.Warn("pipeline.page.vision_error", "page", i, "kind", kind, "error", err)
		return hvac.Fragment{}, false
	}
	if ds.IsEmpty() {
		return hvac.Fragment{}, false
	}
	return hvac.Fragment{Page: i, Kind: kind, Source: hvac.SourceVision, Data: ds}, true
}
