package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"parking-lot/internal/config"
	"parking-lot/internal/logging"
	"parking-lot/internal/parking"
	"parking-lot/internal/server"
	"parking-lot/internal/telemetry"
)

const shutdownTimeout = 10 * time.Second

func newRootCmd() *cobra.Command {
	v := viper.New()
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "parking-lot",
		Short: "Parking lot simulator with an interactive shell and an HTTP API",
		Long: `parking-lot allocates numbered slots to arriving vehicles and answers
occupancy queries. Commands are read one per line from stdin; in server
mode the same lot is exposed over HTTP.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(v, cfgFile)
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
				return err
			}

			err = run(cmd.Context(), v, cfg, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
			}
			return err
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: ./parking-lot.yaml if present)")
	flags.String("mode", config.ModeCLI, "mode to run: cli, server, or both")
	flags.String("port", "8080", "port for the HTTP server")
	flags.String("prompt", parking.DefaultPrompt, "shell prompt, may be empty")
	flags.String("log-level", "info", "log level: debug, info, warn, error")
	flags.String("log-format", "text", "log format: text or json")
	flags.Bool("telemetry", false, "export traces, metrics and logs")
	flags.String("telemetry-exporter", "otlp", "telemetry exporter: otlp or stdout")

	_ = v.BindPFlag("mode", flags.Lookup("mode"))
	_ = v.BindPFlag("port", flags.Lookup("port"))
	_ = v.BindPFlag("prompt", flags.Lookup("prompt"))
	_ = v.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = v.BindPFlag("log.format", flags.Lookup("log-format"))
	_ = v.BindPFlag("telemetry.enabled", flags.Lookup("telemetry"))
	_ = v.BindPFlag("telemetry.exporter", flags.Lookup("telemetry-exporter"))

	return cmd
}

// run wires the lot and blocks until the selected front ends finish. The
// returned error decides the exit status.
func run(ctx context.Context, v *viper.Viper, cfg config.Config, in io.Reader, out, errOut io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	telemetryCfg := cfg.TelemetryConfig()
	telemetryCfg.Output = errOut
	telemetryProvider, err := telemetry.New(ctx, telemetryCfg)
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}

	levelVar := new(slog.LevelVar)
	logOpts := cfg.LoggingOptions()
	logOpts.Output = errOut
	logOpts.OTel = telemetryProvider.ExportsLogs()
	logOpts.LevelVar = levelVar
	logger, err := logging.New(logOpts)
	if err != nil {
		return errors.Join(fmt.Errorf("initializing logger: %w", err), shutdownTelemetry(telemetryProvider))
	}
	defer func() {
		if err := shutdownTelemetry(telemetryProvider); err != nil {
			logger.Error("telemetry shutdown failed", slog.String("error", err.Error()))
		}
	}()

	useCase, err := newUseCase(logger, telemetryProvider)
	if err != nil {
		return fmt.Errorf("initializing parking lot: %w", err)
	}
	defer useCase.Close()

	if config.WatchLogLevel(v, levelVar, logger) {
		logger.Debug("watching config file", slog.String("file", v.ConfigFileUsed()))
	}

	logger.Debug("starting", slog.String("mode", cfg.Mode))

	switch cfg.Mode {
	case config.ModeCLI:
		return runCLI(ctx, cfg, useCase, telemetryProvider, in, out)
	case config.ModeServer:
		return runServer(ctx, cfg, useCase, logger, telemetryProvider)
	case config.ModeBoth:
		return runBoth(ctx, cfg, useCase, logger, telemetryProvider, in, out)
	default:
		return fmt.Errorf("invalid mode %q", cfg.Mode)
	}
}

// newUseCase stacks the lot: the registry-backed service, a lock so the HTTP
// server and the metric reader can share it, then tracing and metrics.
func newUseCase(logger *slog.Logger, tp *telemetry.Provider) (*parking.InstrumentedService, error) {
	service := parking.NewService(parking.NewRegistry(), logger)
	return parking.NewInstrumentedService(parking.NewSyncService(service), tp.Tracer(), tp.Meter())
}

func newShell(cfg config.Config, useCase parking.UseCase, tp *telemetry.Provider, in io.Reader, out io.Writer) *parking.Shell {
	return parking.NewShell(useCase, in, out,
		parking.WithTracer(tp.Tracer()),
		parking.WithPrompt(cfg.Prompt),
	)
}

func runCLI(ctx context.Context, cfg config.Config, useCase parking.UseCase, tp *telemetry.Provider, in io.Reader, out io.Writer) error {
	shell := newShell(cfg, useCase, tp, in, out)

	done := make(chan error, 1)
	go func() {
		done <- shell.Run(ctx)
	}()

	// A signal does not unblock a pending read, so stop waiting on it.
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return nil
	}
}

func runServer(ctx context.Context, cfg config.Config, useCase parking.UseCase, logger *slog.Logger, tp *telemetry.Provider) error {
	srv, err := server.NewServer(cfg.Port, useCase, logger, tp.ServiceName())
	if err != nil {
		return err
	}

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- srv.Start()
	}()

	select {
	case err := <-serverDone:
		return err
	case <-ctx.Done():
		logger.Info("received shutdown signal")
	}

	return shutdownServer(srv, serverDone)
}

func runBoth(ctx context.Context, cfg config.Config, useCase parking.UseCase, logger *slog.Logger, tp *telemetry.Provider, in io.Reader, out io.Writer) error {
	srv, err := server.NewServer(cfg.Port, useCase, logger, tp.ServiceName())
	if err != nil {
		return err
	}

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- srv.Start()
	}()

	cliDone := make(chan error, 1)
	go func() {
		cliDone <- newShell(cfg, useCase, tp, in, out).Run(ctx)
	}()

	var runErr error
	select {
	case err := <-serverDone:
		return err
	case runErr = <-cliDone:
		logger.Info("CLI exited")
	case <-ctx.Done():
		logger.Info("received shutdown signal")
	}

	return errors.Join(runErr, shutdownServer(srv, serverDone))
}

func shutdownServer(srv *server.Server, serverDone <-chan error) error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return <-serverDone
}

func shutdownTelemetry(tp *telemetry.Provider) error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return tp.Shutdown(shutdownCtx)
}
