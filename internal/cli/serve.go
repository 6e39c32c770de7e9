package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/ZSmain/ordo/internal/authority"
	"github.com/ZSmain/ordo/internal/config"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	ConfigFile string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the sync authority",
		Long: `Start the sync authority server.

The authority accepts pushed events per user partition, assigns each a
total order, and broadcasts accepted events to all connected devices of
that partition over WebSocket or HTTP long-poll. Prometheus metrics are
served on /metrics.

Examples:
  ordo serve
  ordo serve --config ./ordo.yaml --verbose`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.ConfigFile, "config", "", "path to YAML config file")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))

	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}

	if err := os.MkdirAll(cfg.DatabaseDir, 0o755); err != nil {
		return WrapExitError(ExitCommandError, "failed to create database directory", err)
	}

	logPath := filepath.Join(cfg.DatabaseDir, "authority.db")
	slog.Info("opening event log", "path", logPath)
	log, err := authority.OpenLog(logPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open event log", err)
	}
	defer func() {
		if closeErr := log.Close(); closeErr != nil {
			slog.Error("error closing event log", "error", closeErr)
		}
	}()

	registry := prometheus.NewRegistry()
	collector := authority.NewCollector(registry)

	auth := authority.StaticTokens(cfg.SessionCookie, cfg.Tokens)
	srv := authority.NewServer(log, auth,
		authority.WithMetrics(collector),
		authority.WithPushRate(rate.Limit(cfg.PushRate), cfg.PushBurst),
		authority.WithPollTimeout(cfg.PollTimeout))

	r := chi.NewRouter()
	r.Mount("/", srv.Router())
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	httpServer := &http.Server{Addr: cfg.ListenAddr, Handler: r}

	errChan := make(chan error, 1)
	go func() {
		slog.Info("authority listening", "addr", cfg.ListenAddr)
		fmt.Fprintf(cmd.OutOrStdout(), "Authority listening on %s. Press Ctrl-C to stop.\n", cfg.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return WrapExitError(ExitCommandError, "server listen failed", err)
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return WrapExitError(ExitFailure, "shutdown failed", err)
	}

	slog.Info("authority stopped gracefully")
	return nil
}
