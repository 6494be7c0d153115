// Command hvacd serves the extraction job tracker over HTTP, with a gRPC
// health endpoint for orchestrators.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/hvac-extractor/internal/async"
	"github.com/joseph-ayodele/hvac-extractor/internal/common"
	"github.com/joseph-ayodele/hvac-extractor/internal/export"
	"github.com/joseph-ayodele/hvac-extractor/internal/ingest"
	"github.com/joseph-ayodele/hvac-extractor/internal/pipeline"
	"github.com/joseph-ayodele/hvac-extractor/internal/repository"
	"github.com/joseph-ayodele/hvac-extractor/internal/server"
	"github.com/joseph-ayodele/hvac-extractor/internal/services/jobs"
)

const shutdownTimeout = 30 * time.Second

func main() {
	var cfgFile string
	cmd := &cobra.Command{
		Use:           "hvacd",
		Short:         "HVAC extraction job server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := common.LoadConfig(cfgFile)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			logger := common.NewLogger(os.Stdout, cfg.Log)
			slog.SetDefault(logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, logger)
		},
	}
	cmd.Flags().StringVarP(&cfgFile, "config", "c", "", "config file (default ./hvac.yaml)")
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func serve(ctx context.Context, cfg *common.Config, logger *slog.Logger) error {
	store, err := repository.Open(ctx, cfg.Store, logger)
	if err != nil {
		return fmt.Errorf("open job store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("hvacd.store.close_failed", "error", err)
		}
	}()
	ready := func(ctx context.Context) error {
		if p, ok := store.(repository.Pinger); ok {
			return p.Ping(ctx)
		}
		return nil
	}

	proc, err := pipeline.FromConfig(cfg, logger)
	if err != nil {
		return err
	}
	svc := jobs.NewService(store, proc, jobs.Config{
		UploadDir: cfg.Server.UploadDir,
		OutputDir: cfg.Report.OutputDir,
		Report:    export.ReportOptions{JobNumber: cfg.Report.JobNumber, ProjectName: cfg.Report.ProjectName},
	}, logger)
	queue := async.NewJobQueue(svc.Run, logger,
		async.WithWorkers(cfg.Server.Workers),
		async.WithQueueSize(cfg.Server.QueueSize),
		async.WithJobTimeout(cfg.Server.JobTimeout),
	)
	svc.UseQueue(queue)

	httpSrv := &http.Server{
		Addr: cfg.Server.HTTPAddr,
		Handler: server.NewRouter(svc, server.RouterConfig{
			RequestTimeout: cfg.Server.RequestTimeout,
			Ready:          ready,
		}, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Server.GRPCAddr, err)
	}
	grpcSrv, health := server.NewGRPCServer(ready, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("hvacd.http.listening", "addr", cfg.Server.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		logger.Info("hvacd.grpc.listening", "addr", cfg.Server.GRPCAddr)
		return grpcSrv.Serve(lis)
	})
	g.Go(func() error {
		health.Watch(gctx, 15*time.Second)
		return nil
	})
	if cfg.Server.InboxDir != "" {
		inbox := ingest.NewInbox(svc, ingest.InboxConfig{Dir: cfg.Server.InboxDir, Debounce: cfg.Server.InboxDebounce}, logger)
		g.Go(func() error {
			return inbox.Run(gctx)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("hvacd.shutdown.start")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		err := httpSrv.Shutdown(sctx)
		grpcSrv.GracefulStop()
		if qerr := queue.Shutdown(sctx); qerr != nil {
			err = errors.Join(err, fmt.Errorf("drain queue: %w", qerr))
		}
		logger.Info("hvacd.shutdown.done")
		return err
	})
	return g.Wait()
}
