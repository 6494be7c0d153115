package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/hvac-extractor/internal/export"
	"github.com/joseph-ayodele/hvac-extractor/internal/hvac"
	"github.com/joseph-ayodele/hvac-extractor/internal/pipeline"
)

type extractFlags struct {
	pdf           string
	output        string
	json          string
	job           string
	project       string
	apiKey        string
	template      string
	schedulesOnly bool
	noVision      bool
	ocr           bool
	concurrency   int
}

func newExtractCmd(a *app) *cobra.Command {
	var f extractFlags
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Extract equipment from a PDF drawing set",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runExtract(cmd, f)
		},
	}
	cmd.Flags().StringVarP(&f.pdf, "pdf", "p", "", "drawing set PDF (required)")
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "report workbook path (default <output_dir>/<pdf>_hvac.xlsx)")
	cmd.Flags().StringVar(&f.json, "json", "", "also write the dataset to this .json or .yaml file")
	cmd.Flags().StringVar(&f.job, "job", "", "job number printed on the report")
	cmd.Flags().StringVar(&f.project, "project", "", "project name printed on the report")
	cmd.Flags().StringVar(&f.apiKey, "api-key", "", "vision API key (overrides config and environment)")
	cmd.Flags().StringVar(&f.template, "template", "", "customer template to populate alongside the report")
	cmd.Flags().BoolVar(&f.schedulesOnly, "schedules-only", false, "only process schedule pages")
	cmd.Flags().BoolVar(&f.noVision, "no-vision", false, "text strategies only, no vision calls")
	cmd.Flags().BoolVar(&f.ocr, "ocr", false, "run tesseract on pages without a text layer")
	cmd.Flags().IntVar(&f.concurrency, "concurrency", 0, "pages processed in parallel")
	_ = cmd.MarkFlagRequired("pdf")
	return cmd
}

func (a *app) runExtract(cmd *cobra.Command, f extractFlags) error {
	cfg := a.cfg
	if f.apiKey != "" {
		cfg.Vision.APIKey = f.apiKey
	}
	if f.noVision {
		cfg.Vision.Enabled = false
	}
	if f.ocr {
		cfg.OCR.Enabled = true
	}
	if f.schedulesOnly {
		cfg.Pipeline.SchedulesOnly = true
	}
	if f.concurrency > 0 {
		cfg.Pipeline.Concurrency = f.concurrency
	}
	if f.job != "" {
		cfg.Report.JobNumber = f.job
	}
	if f.project != "" {
		cfg.Report.ProjectName = f.project
	}
	if f.template == "" {
		f.template = cfg.Report.TemplatePath
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	output := f.output
	if output == "" {
		base := strings.TrimSuffix(filepath.Base(f.pdf), filepath.Ext(f.pdf))
		output = filepath.Join(cfg.Report.OutputDir, base+"_hvac.xlsx")
	}

	stderr := cmd.ErrOrStderr()
	proc, err := pipeline.FromConfig(cfg, a.logger, pipeline.WithObserver(func(ev pipeline.Event) {
		if ev.State == pipeline.StateExtracting && ev.Pages > 0 {
			fmt.Fprintf(stderr, "\rpages %d/%d", ev.Page, ev.Pages)
			if ev.Page == ev.Pages {
				fmt.Fprintln(stderr)
			}
		}
	}))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	res, err := proc.Run(ctx, pipeline.Request{Path: f.pdf})
	if err != nil {
		return err
	}

	if f.json != "" {
		if err := writeFile(f.json, func(w io.Writer) error {
			return export.WriteDataset(w, res.Dataset, export.FormatFromPath(f.json))
		}); err != nil {
			return err
		}
	}
	if err := writeReport(output, res.Dataset, reportOptions(cfg), a.logger); err != nil {
		return err
	}
	var populated string
	if f.template != "" {
		populated = filepath.Join(filepath.Dir(output), "populated_"+filepath.Base(output))
		if err := populateTemplate(f.template, populated, res.Dataset, a.logger, stderr); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	printCounts(out, res.Dataset)
	fmt.Fprintf(out, "pages: %d (%s)\n", len(res.Pages), pageSummary(res.Pages))
	fmt.Fprintf(out, "report: %s\n", output)
	if f.json != "" {
		fmt.Fprintf(out, "dataset: %s\n", f.json)
	}
	if populated != "" {
		fmt.Fprintf(out, "populated: %s\n", populated)
	}
	return nil
}

func printCounts(w io.Writer, ds hvac.Dataset) {
	counts := ds.Counts()
	for _, family := range hvac.Families {
		fmt.Fprintf(w, "%-12s %d\n", family+":", counts[family])
	}
}

func pageSummary(pages []pipeline.PageOutcome) string {
	n := map[pipeline.PageStatus]int{}
	for _, p := range pages {
		n[p.Status]++
	}
	return fmt.Sprintf("%d ok, %d empty, %d skipped", n[pipeline.PageOK], n[pipeline.PageEmpty], n[pipeline.PageSkipped])
}
