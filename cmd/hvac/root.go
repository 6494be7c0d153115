package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/hvac-extractor/internal/common"
)

// app is the state shared by subcommands once the root has loaded config.
type app struct {
	cfgFile  string
	logLevel string
	cfg      *common.Config
	logger   *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "hvac",
		Short:         "Extract HVAC equipment schedules from PDF drawings",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := common.LoadConfig(a.cfgFile)
			if err != nil {
				return err
			}
			if a.logLevel != "" {
				cfg.Log.Level = a.logLevel
			}
			a.cfg = cfg
			a.logger = common.NewLogger(cmd.ErrOrStderr(), cfg.Log)
			slog.SetDefault(a.logger)
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&a.cfgFile, "config", "c", "", "config file (default ./hvac.yaml)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "debug|info|warn|error")

	root.AddCommand(newExtractCmd(a), newReportCmd(a), newPopulateCmd(a))
	return root
}
