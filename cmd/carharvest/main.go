package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/carharvest/internal/config"
	"github.com/IshaanNene/carharvest/internal/observability"
	"github.com/IshaanNene/carharvest/internal/storage"
)

var (
	cfgFile        string
	verbose        bool
	metricsEnabled bool
	linkFile       string
	limit          int
	dryRun         bool
	fetcherType    string
	timeout        string
	translations   string
	outputPath     string
	outputFormat   string
	colorStrategy  string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "carharvest",
		Short: "carharvest: used-car listing harvester",
		Long: `carharvest collects used-car ads for one model from a paginated catalog,
stores one document per listing and normalizes the collection into a flat table.

Typical use:
  carharvest run                  discover listing links, then crawl them
  carharvest normalize            write the normalized table`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&metricsEnabled, "metrics", false, "serve Prometheus metrics while running")

	rootCmd.AddCommand(discoverCmd())
	rootCmd.AddCommand(crawlCmd())
	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(normalizeCmd())
	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(configCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// app holds what every command needs: config, loggers, metrics and a
// context cancelled on SIGINT/SIGTERM.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	failures *observability.FailureLog
	metrics  *observability.Metrics
	store    storage.RecordStore
	ctx      context.Context
	cancel   context.CancelFunc
	closers  []io.Closer
}

// newApp loads and validates the config, applies CLI overrides and wires the
// ambient services.
func newApp() (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if err := applyCLIOverrides(cfg); err != nil {
		return nil, err
	}

	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	a := &app{cfg: cfg}

	logger, closer, err := setupLogger(&cfg.Logging)
	if err != nil {
		return nil, err
	}
	a.logger = logger
	if closer != nil {
		a.closers = append(a.closers, closer)
	}

	failures, err := observability.OpenFailureLog(cfg.Logging.FailureLog)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.failures = failures
	a.closers = append(a.closers, failures)

	a.ctx, a.cancel = context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received signal, shutting down...", "signal", sig)
			a.cancel()
		case <-a.ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	a.metrics = observability.NewMetrics(logger)
	if cfg.Metrics.Enabled {
		a.metrics.StartServer(a.ctx, cfg.Metrics.Port, cfg.Metrics.Path)
	}

	return a, nil
}

// Close cancels the app context and closes log files.
func (a *app) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i].Close()
	}
}

// recordStore opens the configured store on first use and keeps it for the
// rest of the command.
func (a *app) recordStore() (storage.RecordStore, error) {
	if a.store != nil {
		return a.store, nil
	}
	s, err := storage.New(a.ctx, a.cfg, a.logger)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	a.store = s
	a.closers = append(a.closers, s)
	return s, nil
}

// setupLogger creates the structured logger described by cfg. The returned
// closer is non-nil when logs go to a file.
func setupLogger(cfg *config.LoggingConfig) (*slog.Logger, io.Closer, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var (
		w      io.Writer
		closer io.Closer
	)
	switch cfg.Output {
	case "", "stderr":
		w = os.Stderr
	case "stdout":
		w = os.Stdout
	default:
		f, err := os.OpenFile(cfg.Output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log output: %w", err)
		}
		w, closer = f, f
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler), closer, nil
}

// applyCLIOverrides applies command-line flag values to the config.
func applyCLIOverrides(cfg *config.Config) error {
	if metricsEnabled {
		cfg.Metrics.Enabled = true
	}
	if linkFile != "" {
		cfg.Catalog.LinkFile = linkFile
	}
	if limit > 0 {
		cfg.Engine.Limit = limit
	}
	if dryRun {
		cfg.Storage.Type = "memory"
	}
	if fetcherType != "" {
		cfg.Fetcher.Type = strings.ToLower(fetcherType)
	}
	if timeout != "" {
		d, err := time.ParseDuration(timeout)
		if err != nil {
			return fmt.Errorf("invalid --timeout %q: %w", timeout, err)
		}
		cfg.Engine.RequestTimeout = d
	}
	if translations != "" {
		cfg.Normalize.TranslationFile = translations
	}
	if outputPath != "" {
		cfg.Normalize.OutputPath = outputPath
	}
	if outputFormat != "" {
		cfg.Normalize.OutputFormat = strings.ToLower(outputFormat)
	}
	if colorStrategy != "" {
		cfg.Normalize.ColorStrategy = strings.ToLower(colorStrategy)
	}
	return nil
}
