// Package app provides application initialization and wiring.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	httpAdapter "github.com/jobrunner/geofacet/internal/adapters/http"
	"github.com/jobrunner/geofacet/internal/adapters/icons"
	"github.com/jobrunner/geofacet/internal/adapters/layerstore"
	"github.com/jobrunner/geofacet/internal/adapters/metrics"
	"github.com/jobrunner/geofacet/internal/adapters/search"
	"github.com/jobrunner/geofacet/internal/adapters/storage"
	tlsAdapter "github.com/jobrunner/geofacet/internal/adapters/tls"
	"github.com/jobrunner/geofacet/internal/adapters/watcher"
	"github.com/jobrunner/geofacet/internal/application"
	"github.com/jobrunner/geofacet/internal/config"
	"github.com/jobrunner/geofacet/internal/ports/output"
)

// App holds all application components.
type App struct {
	Config  *config.Config
	Logger  *slog.Logger
	Metrics *metrics.Collector

	Layers     *layerstore.Store
	Backend    *search.Backend
	Catalog    *icons.Catalog
	IconCache  *icons.RedisCache
	Sink       output.ExportSink
	Points     *application.LayerService
	Exports    *application.ExportService
	Maps       *application.MapService
	Markers    *application.MarkerService
	Health     *application.HealthService
	Scheduler  *application.ExportScheduler
	HTTPServer *httpAdapter.Server
	TLS        *tlsAdapter.Manager
	Watcher    *watcher.Watcher

	redis *redis.Client
}

// New creates and initializes a new application.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	var collector output.MetricsCollector = &output.NoOpMetrics{}
	if cfg.Metrics.Enabled {
		app.Metrics = metrics.NewCollector(metrics.DefaultNamespace)
		collector = app.Metrics
	}

	store, err := OpenLayerStore(ctx, cfg.Layers, logger)
	if err != nil {
		return nil, err
	}
	app.Layers = store

	app.Backend = search.New(search.Config{
		Host:     cfg.Search.Host,
		APIKey:   cfg.Search.APIKey,
		Index:    cfg.Search.Index,
		UIDField: cfg.Search.UIDField,
	}, logger)

	lookup, err := app.initIcons(collector)
	if err != nil {
		app.Close()
		return nil, err
	}

	sink, err := OpenSink(ctx, cfg.Export)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("initializing export sink: %w", err)
	}
	app.Sink = storage.NewInstrumented(sink, collector)

	app.initServices(lookup, collector)

	if cfg.Export.Schedule.Interval > 0 {
		app.Scheduler = application.NewExportScheduler(
			app.Exports,
			cfg.Export.Schedule.Layers,
			cfg.Export.Schedule.Interval,
			logger,
		)
	}

	app.TLS, err = tlsAdapter.NewManager(tlsConfig(cfg.TLS), logger)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("initializing TLS: %w", err)
	}

	opts := []httpAdapter.Option{httpAdapter.WithTLS(app.TLS.TLSConfig())}
	if app.Metrics != nil {
		opts = append(opts, httpAdapter.WithMetrics(cfg.Metrics.Path, metrics.Handler(), app.Metrics.Middleware))
	}
	app.HTTPServer = httpAdapter.NewServer(cfg.Server, httpAdapter.Services{
		Points:    app.Points,
		Exports:   app.Exports,
		Downloads: app.Exports,
		Maps:      app.Maps,
		Markers:   app.Markers,
		Health:    app.Health,
		Scheduler: app.Scheduler,
	}, logger, opts...)

	return app, nil
}

// initIcons builds the icon lookup chain: the YAML catalog, optionally
// fronted by the shared Redis cache, and the catalog watcher.
func (a *App) initIcons(collector output.MetricsCollector) (output.IconLookup, error) {
	cfg := a.Config.Icons

	catalog, err := icons.NewCatalog(cfg.Catalog, a.Logger)
	if err != nil {
		return nil, fmt.Errorf("loading icon catalog: %w", err)
	}
	a.Catalog = catalog

	var lookup output.IconLookup = catalog
	if client := icons.OpenRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB); client != nil {
		a.redis = client
		a.IconCache = icons.NewRedisCache(client, catalog, cfg.Redis.TTL, collector, a.Logger)
		lookup = a.IconCache
	}

	if cfg.Watch {
		w, err := watcher.New(watcher.Config{
			Files:    []string{catalog.Path()},
			Debounce: cfg.Debounce,
		}, a.handleCatalogEvent, a.Logger)
		if err != nil {
			a.Logger.Warn("failed to initialize icon catalog watcher", "error", err)
		} else {
			a.Watcher = w
		}
	}

	return lookup, nil
}

func (a *App) initServices(lookup output.IconLookup, collector output.MetricsCollector) {
	cfg := a.Config
	query := application.LayerQueryConfig{
		TagField:    cfg.Search.TagField,
		ResultLimit: cfg.Search.ResultLimit,
	}

	a.Markers = application.NewMarkerService(a.Backend, collector, a.Logger, application.MarkerServiceConfig{
		TagField:     cfg.Search.TagField,
		UIDField:     cfg.Search.UIDField,
		FacetLimit:   cfg.Search.FacetLimit,
		MarkerFields: cfg.Search.MarkerFields,
	})

	points := application.NewPointBuilder(
		application.NewIconResolver(lookup, collector),
		application.NewTemplateResolver(a.Markers),
		collector,
		a.Logger,
	)

	a.Points = application.NewLayerService(a.Layers, a.Backend, points, collector, a.Logger, query)
	a.Exports = application.NewExportService(a.Layers, a.Backend, points, a.Sink, collector, a.Logger,
		application.ExportServiceConfig{LayerQueryConfig: query, Filename: cfg.Export.Filename})
	a.Maps = application.NewMapService(a.Layers, a.Backend, points, collector, a.Logger,
		application.MapServiceConfig{LayerQueryConfig: query, LimitVertex: cfg.Map.LimitVertex})
	a.Health = application.NewHealthService(a.Backend, a.Layers)
}

// Start starts all application components and blocks while the server runs.
func (a *App) Start(ctx context.Context) error {
	if count, err := a.Layers.CountLayers(ctx); err != nil {
		a.Logger.Warn("failed to count data layers", "error", err)
	} else {
		a.Logger.Info("layer store ready", "layers", count)
		if a.Metrics != nil {
			a.Metrics.SetLayersConfigured(count)
		}
	}

	if err := a.TLS.ManageCertificates(ctx); err != nil {
		return err
	}

	if a.Watcher != nil {
		if err := a.Watcher.Start(ctx); err != nil {
			a.Logger.Warn("failed to start icon catalog watcher", "error", err)
		}
	}

	if a.Scheduler != nil {
		a.Scheduler.Start(ctx)
	}

	return a.HTTPServer.Start()
}

// Shutdown gracefully shuts down all components.
func (a *App) Shutdown(ctx context.Context) error {
	a.Logger.Info("shutting down application")

	if a.Scheduler != nil {
		a.Scheduler.Stop()
	}

	if a.Watcher != nil {
		_ = a.Watcher.Stop()
	}

	if err := a.HTTPServer.Shutdown(ctx); err != nil {
		a.Logger.Error("HTTP server shutdown error", "error", err)
	}

	a.Close()
	return nil
}

// Close releases the layer store and the Redis client. Shutdown calls it.
func (a *App) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.Logger.Error("failed to close redis client", "error", err)
		}
	}
	if a.Layers != nil {
		if err := a.Layers.Close(); err != nil {
			a.Logger.Error("failed to close layer store", "error", err)
		}
	}
}

// handleCatalogEvent reloads the icon catalog and drops cached resolutions.
func (a *App) handleCatalogEvent(ctx context.Context, event watcher.Event) error {
	a.Logger.Info("icon catalog changed", "path", event.Path, "operation", event.Operation.String())

	if err := watcher.ReloadHandler(a.Catalog.Reload)(ctx, event); err != nil {
		return err
	}
	if a.IconCache != nil && event.Operation != watcher.OpRemove {
		return a.IconCache.Invalidate(ctx)
	}
	return nil
}

// OpenLayerStore opens the layer store and imports the configured snapshot.
func OpenLayerStore(ctx context.Context, cfg config.LayersConfig, logger *slog.Logger) (*layerstore.Store, error) {
	store, err := layerstore.Open(ctx, layerstore.Config{
		Driver:       cfg.Driver,
		DSN:          cfg.DSN,
		Migrate:      cfg.Migrate,
		MaxOpenConns: cfg.MaxOpenConns,
		MaxIdleConns: cfg.MaxIdleConns,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("opening layer store: %w", err)
	}

	if cfg.Snapshot != "" {
		if err := ImportSnapshot(ctx, store, cfg.Snapshot); err != nil {
			_ = store.Close()
			return nil, err
		}
	}
	return store, nil
}

// ImportSnapshot loads a YAML snapshot into the layer store.
func ImportSnapshot(ctx context.Context, store *layerstore.Store, path string) error {
	snap, err := layerstore.LoadSnapshot(path)
	if err != nil {
		return fmt.Errorf("loading layer snapshot: %w", err)
	}
	if err := store.Import(ctx, snap); err != nil {
		return fmt.Errorf("importing layer snapshot: %w", err)
	}
	return nil
}

// OpenSink creates the export sink selected by the configuration.
func OpenSink(ctx context.Context, cfg config.ExportConfig) (output.ExportSink, error) {
	return storage.New(ctx, storage.Config{
		Type:      output.StorageType(cfg.Sink),
		LocalPath: cfg.LocalPath,
		S3: storage.S3Config{
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			Prefix:          cfg.S3.Prefix,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
		},
		Azure: storage.AzureConfig{
			Container:        cfg.Azure.Container,
			AccountName:      cfg.Azure.AccountName,
			AccountKey:       cfg.Azure.AccountKey,
			ConnectionString: cfg.Azure.ConnectionString,
			Prefix:           cfg.Azure.Prefix,
		},
		HTTP: storage.HTTPConfig{
			BaseURL:  cfg.HTTP.BaseURL,
			Timeout:  cfg.HTTP.Timeout,
			Username: cfg.HTTP.Username,
			Password: cfg.HTTP.Password,
		},
	})
}

func tlsConfig(cfg config.TLSConfig) tlsAdapter.Config {
	return tlsAdapter.Config{
		Enabled:  cfg.Enabled,
		Domains:  cfg.Domains,
		Email:    cfg.Email,
		CacheDir: cfg.CacheDir,
		Staging:  cfg.Staging,
		DNS: tlsAdapter.DNSConfig{
			SubscriptionID:    cfg.DNS.SubscriptionID,
			ResourceGroupName: cfg.DNS.ResourceGroup,
			ClientID:          cfg.DNS.ClientID,
		},
	}
}
