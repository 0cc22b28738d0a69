// Package main provides the entry point for the geofacet cartography service.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jobrunner/geofacet/internal/app"
	"github.com/jobrunner/geofacet/internal/config"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

var (
	cfgFile string
	v       = viper.New()
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "geofacet",
	Short: "geofacet - GeoJSON exports from a faceted search index",
	Long: `geofacet turns geometry fields of faceted search records into GeoJSON.

It builds point models for configured data layers, resolves icons and popup
templates, and writes per-layer FeatureCollections to an export sink.

Features:
  - Meilisearch backed layer queries and marker discovery
  - Layer configuration in SQLite or PostgreSQL
  - Icon catalog with hot reload and optional Redis cache
  - Export sinks: local, AWS S3, Azure Blob Storage, HTTP (WebDAV)
  - Scheduled exports
  - TLS with automatic certificate management
  - Prometheus metrics`,
	SilenceUsage: true,
	RunE:         runServer,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("geofacet %s\n", version)
		fmt.Printf("  Commit:     %s\n", commit)
		fmt.Printf("  Build Date: %s\n", buildDate)
	},
}

var exportCmd = &cobra.Command{
	Use:   "export <layer-id>...",
	Short: "Export data layers to the configured sink and exit",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runExport,
}

var layersCmd = &cobra.Command{
	Use:   "layers",
	Short: "Manage the layer store",
}

var layersImportCmd = &cobra.Command{
	Use:   "import <snapshot.yaml>",
	Short: "Import layer types, layers, basemaps and maps from a YAML snapshot",
	Args:  cobra.ExactArgs(1),
	RunE:  runLayersImport,
}

func init() {
	cobra.OnInitialize(loadEnvFile)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "json", "log format (json, text)")
	rootCmd.PersistentFlags().String("search-host", "http://localhost:7700", "Meilisearch host")
	rootCmd.PersistentFlags().String("layers-dsn", "./data/layers.db", "layer store DSN")

	// Server flags
	rootCmd.Flags().String("host", "0.0.0.0", "server host")
	rootCmd.Flags().Int("port", 8080, "server port")
	rootCmd.Flags().Bool("tls", false, "enable TLS")
	rootCmd.Flags().StringSlice("tls-domains", nil, "TLS domains")
	rootCmd.Flags().String("tls-email", "", "TLS email for Let's Encrypt")
	rootCmd.Flags().StringSlice("cors", nil, "allowed CORS origins (e.g., https://example.com,*.sub.domain.tld)")

	// Export flags
	rootCmd.PersistentFlags().String("sink", "local", "export sink (local, s3, azure, http)")
	rootCmd.PersistentFlags().String("export-path", "./exports", "local export directory")

	_ = v.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = v.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))
	_ = v.BindPFlag("search.host", rootCmd.PersistentFlags().Lookup("search-host"))
	_ = v.BindPFlag("layers.dsn", rootCmd.PersistentFlags().Lookup("layers-dsn"))
	_ = v.BindPFlag("export.sink", rootCmd.PersistentFlags().Lookup("sink"))
	_ = v.BindPFlag("export.local_path", rootCmd.PersistentFlags().Lookup("export-path"))
	_ = v.BindPFlag("server.host", rootCmd.Flags().Lookup("host"))
	_ = v.BindPFlag("server.port", rootCmd.Flags().Lookup("port"))
	_ = v.BindPFlag("tls.enabled", rootCmd.Flags().Lookup("tls"))
	_ = v.BindPFlag("tls.domains", rootCmd.Flags().Lookup("tls-domains"))
	_ = v.BindPFlag("tls.email", rootCmd.Flags().Lookup("tls-email"))
	_ = v.BindPFlag("server.cors.allowed_origins", rootCmd.Flags().Lookup("cors"))

	layersCmd.AddCommand(layersImportCmd)
	rootCmd.AddCommand(versionCmd, exportCmd, layersCmd)
}

// loadEnvFile reads a .env file from the working directory when present.
func loadEnvFile() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "warning: reading .env:", err)
	}
}

func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(v, cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	logger := setupLogger(cfg.Logging)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func runServer(_ *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	logger.Info("starting geofacet",
		"version", version,
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"search_host", cfg.Search.Host,
		"index", cfg.Search.Index,
		"sink", cfg.Export.Sink,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := application.Start(ctx); err != nil {
			serverErr <- err
		}
	}()

	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig)
	case err := <-serverErr:
		logger.Error("server error", "error", err)
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := application.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		return err
	}

	logger.Info("server stopped")
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer application.Close()

	var failed int
	for _, layerID := range args {
		result, err := application.Exports.ExportLayer(ctx, layerID)
		if err != nil {
			logger.Error("export failed", "layer", layerID, "error", err)
			failed++
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%d features\t%d skipped\n",
			result.LayerID, result.Key, result.Features, result.Skipped)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d exports failed", failed, len(args))
	}
	return nil
}

func runLayersImport(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	layersCfg := cfg.Layers
	layersCfg.Snapshot = ""
	store, err := app.OpenLayerStore(cmd.Context(), layersCfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	return app.ImportSnapshot(cmd.Context(), store, args[0])
}

func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				a.Value = slog.StringValue(a.Value.Time().UTC().Format(time.RFC3339))
			}
			return a
		},
	}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
