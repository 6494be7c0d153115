package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/hvac-extractor/internal/common"
	"github.com/joseph-ayodele/hvac-extractor/internal/export"
	"github.com/joseph-ayodele/hvac-extractor/internal/hvac"
)

func newPopulateCmd(a *app) *cobra.Command {
	var data, template, output string
	cmd := &cobra.Command{
		Use:   "populate",
		Short: "Fill a customer template workbook from a dataset dump",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ds, err := readDataset(data)
			if err != nil {
				return err
			}
			if err := populateTemplate(template, output, ds, a.logger, cmd.ErrOrStderr()); err != nil {
				return err
			}
			printCounts(cmd.OutOrStdout(), ds)
			fmt.Fprintf(cmd.OutOrStdout(), "populated: %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&data, "data", "d", "", "dataset .json or .yaml (required)")
	cmd.Flags().StringVarP(&template, "template", "t", "", "template workbook (required)")
	cmd.Flags().StringVarP(&output, "output", "o", "populated.xlsx", "populated workbook path")
	_ = cmd.MarkFlagRequired("data")
	_ = cmd.MarkFlagRequired("template")
	return cmd
}

func populateTemplate(template, output string, ds hvac.Dataset, logger *slog.Logger, warn io.Writer) error {
	f, err := os.Open(template)
	if err != nil {
		return common.InputError("open template", err)
	}
	defer f.Close()

	buf, stats, err := export.NewTemplatePopulator(logger).Populate(f, ds)
	if err != nil {
		return err
	}
	if len(stats.Missing) > 0 {
		fmt.Fprintf(warn, "no template sheet for: %s\n", strings.Join(stats.Missing, ", "))
	}
	return writeFile(output, func(w io.Writer) error {
		_, err := buf.WriteTo(w)
		return err
	})
}
