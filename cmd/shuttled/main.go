// Copyright (C) Shuttlecraft, Inc.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/labstack/echo/v4"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/shuttlecraft/shuttle/bridge"
	"github.com/shuttlecraft/shuttle/config"
	"github.com/shuttlecraft/shuttle/registry"
	"github.com/shuttlecraft/shuttle/server"
)

const terminationGracePeriod = 10 * time.Second

var logger *zap.Logger

var rootCmd = &cobra.Command{
	Use:           "shuttled",
	Short:         "Multi-language service host",
	Long: `Start the shuttle daemon.

The daemon discovers services under the services directory and exposes each
one over HTTP (POST /services/<name>), SSE (POST /services/<name>/stream),
and WebSocket (GET /services/<name>). Each process-kind invocation runs in a
fresh worker process with a file handoff for input and output.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	RunE:          rootRunE,
}

var rootArgs struct {
	configFile  string
	port        int
	addr        string
	servicesDir string
	dataDir     string
	devLog      bool
}

func init() {
	rootCmd.Flags().StringVarP(&rootArgs.configFile, "config", "c", os.Getenv("SHUTTLE_CONFIG"), "Path to YAML config file (SHUTTLE_CONFIG)")
	rootCmd.Flags().IntVarP(&rootArgs.port, "port", "p", 0, "Listen port (SHUTTLE_PORT)")
	rootCmd.Flags().StringVar(&rootArgs.addr, "addr", "", "Bind address (SHUTTLE_ADDR)")
	rootCmd.Flags().StringVar(&rootArgs.servicesDir, "services-dir", "", "Services root directory (SHUTTLE_SERVICES_DIR)")
	rootCmd.Flags().StringVar(&rootArgs.dataDir, "data-dir", "", "Handoff data directory (SHUTTLE_DATA_DIR)")
	rootCmd.Flags().BoolVar(&rootArgs.devLog, "dev", false, "Use development logging (SHUTTLE_DEV_LOG)")
}

func rootRunE(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(rootArgs.configFile)
	if err != nil {
		return err
	}
	// Flags override the file and the environment.
	if rootArgs.port != 0 {
		cfg.Port = rootArgs.port
	}
	if rootArgs.addr != "" {
		cfg.ListenAddr = rootArgs.addr
	}
	if rootArgs.servicesDir != "" {
		cfg.ServicesDir = rootArgs.servicesDir
	}
	if rootArgs.dataDir != "" {
		cfg.DataDir = rootArgs.dataDir
	}
	if rootArgs.devLog {
		cfg.DevLog = true
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if cfg.DevLog {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return errors.Wrap(err, "constructing logger")
	}
	defer func() { _ = logger.Sync() }()

	exporter, err := prometheus.New()
	if err != nil {
		return errors.Wrap(err, "creating prometheus exporter")
	}
	provider := metric.NewMeterProvider(
		metric.WithReader(exporter),
		metric.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String("shuttle"),
		)),
	)
	otel.SetMeterProvider(provider)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	grp, ctx := errgroup.WithContext(ctx)

	fs := afero.NewOsFs()
	if err := fs.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return errors.Wrapf(err, "creating data dir %s", cfg.DataDir)
	}

	reg := registry.New()
	discovered, err := registry.Discover(fs, cfg.ServicesDir)
	if err != nil {
		return err
	}
	for _, desc := range discovered {
		if err := reg.Register(desc); err != nil {
			return err
		}
	}
	registerBuiltins(reg)
	logger.Info("service registry populated",
		zap.Int("discovered", len(discovered)),
		zap.Int("total", reg.Len()))

	workDir := cfg.WorkerDir
	if workDir == "" {
		workDir = cfg.ServicesDir
	}
	launcher := bridge.NewLauncher(fs, bridge.LauncherOptions{
		DataDir:      cfg.DataDir,
		Command:      cfg.WorkerCommand,
		WorkDir:      workDir,
		CallbackPort: cfg.Port,
	}, logger)
	dispatcher := bridge.NewDispatcher(reg, launcher, logger)

	janitor := bridge.NewJanitor(fs, cfg.DataDir, cfg.HandoffMaxAge, cfg.SweepInterval, logger)
	grp.Go(func() error { return janitor.Run(ctx) })

	httpServer := server.RunServer(ctx, grp, server.Deps{
		Registry:   reg,
		Dispatcher: dispatcher,
		Config:     cfg,
		Logger:     logger,
		Fs:         fs,
		Version:    BuildTag,
	})

	handleIntercepts(ctx, cancel, grp, httpServer)

	if errGrp := grp.Wait(); errGrp != nil {
		logger.Error("daemon unexpectedly shut down", zap.Error(errGrp))
		return errGrp
	}

	logger.Info("daemon gracefully shut down")
	return nil
}

// interceptSignals blocks until a termination signal arrives or ctx is done.
// It reports whether an actual signal was the cause.
func interceptSignals(ctx context.Context) bool {
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc,
		syscall.SIGHUP,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT)
	defer signal.Stop(sigc)

	select {
	case <-ctx.Done():
		return false
	case sig := <-sigc:
		logger.Info("intercepted signal", zap.String("signal", sig.String()))
		return true
	}
}

func handleIntercepts(ctx context.Context, cancel context.CancelFunc, grp *errgroup.Group, httpServer *echo.Echo) {
	grp.Go(func() error {
		interceptSignals(ctx)

		go func() {
			if interceptSignals(ctx) {
				logger.Error("forcibly shutting down on second signal")
				os.Exit(1)
			}
		}()

		// The janitor and any other background tasks block on ctx; cancel it
		// once the server has drained or the group can never finish waiting.
		defer cancel()

		shutdownCtx, shutCancel := context.WithTimeout(context.Background(), terminationGracePeriod)
		defer shutCancel()

		if httpServer != nil {
			return shutdown(shutdownCtx, httpServer)
		}
		return nil
	})
}

func shutdown(ctx context.Context, httpServer *echo.Echo) (errs error) {
	var wg sync.WaitGroup
	wg.Add(1)

	go func() {
		defer wg.Done()
		if err := errors.WithStack(httpServer.Shutdown(ctx)); err != nil {
			errs = errors.Join(errs, err)
		}
	}()

	wg.Wait()

	return
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "shuttled: %v\n", err)
		os.Exit(1)
	}
}
