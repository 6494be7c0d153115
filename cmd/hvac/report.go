package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/hvac-extractor/internal/common"
	"github.com/joseph-ayodele/hvac-extractor/internal/export"
	"github.com/joseph-ayodele/hvac-extractor/internal/hvac"
)

func newReportCmd(a *app) *cobra.Command {
	var data, output, job, project string
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Generate the test-data workbook from a dataset dump",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ds, err := readDataset(data)
			if err != nil {
				return err
			}
			if job != "" {
				a.cfg.Report.JobNumber = job
			}
			if project != "" {
				a.cfg.Report.ProjectName = project
			}
			if err := writeReport(output, ds, reportOptions(a.cfg), a.logger); err != nil {
				return err
			}
			printCounts(cmd.OutOrStdout(), ds)
			fmt.Fprintf(cmd.OutOrStdout(), "report: %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&data, "data", "d", "", "dataset .json or .yaml (required)")
	cmd.Flags().StringVarP(&output, "output", "o", "hvac_report.xlsx", "report workbook path")
	cmd.Flags().StringVar(&job, "job", "", "job number printed on the report")
	cmd.Flags().StringVar(&project, "project", "", "project name printed on the report")
	_ = cmd.MarkFlagRequired("data")
	return cmd
}

func reportOptions(cfg *common.Config) export.ReportOptions {
	return export.ReportOptions{JobNumber: cfg.Report.JobNumber, ProjectName: cfg.Report.ProjectName}
}

func readDataset(path string) (hvac.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return hvac.Dataset{}, common.InputError("open dataset", err)
	}
	defer f.Close()
	return export.ReadDataset(f, export.FormatFromPath(path))
}

func writeReport(path string, ds hvac.Dataset, opts export.ReportOptions, logger *slog.Logger) error {
	buf, _, err := export.NewReportWriter(opts, logger).Write(ds)
	if err != nil {
		return err
	}
	return writeFile(path, func(w io.Writer) error {
		_, err := buf.WriteTo(w)
		return err
	})
}

func writeFile(path string, write func(io.Writer) error) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
