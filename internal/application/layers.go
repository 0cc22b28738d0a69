package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/jobrunner/geofacet/internal/domain"
	"github.com/jobrunner/geofacet/internal/ports/output"
)

// LayerQueryConfig holds the search settings shared by layer-based services.
type LayerQueryConfig struct {
	TagField    string // Field carrying the layer tag
	ResultLimit int    // Maximum records fetched per layer
}

func (c LayerQueryConfig) withDefaults() LayerQueryConfig {
	if c.TagField == "" {
		c.TagField = "DataLayer_text"
	}
	if c.ResultLimit == 0 {
		c.ResultLimit = 100
	}
	return c
}

// layerRecords fetches the geolocated records of a data layer.
func layerRecords(
	ctx context.Context,
	backend output.SearchBackend,
	metrics output.MetricsCollector,
	cfg LayerQueryConfig,
	layer *domain.LayerConfig,
) ([]domain.SearchRecord, error) {
	start := time.Now()
	records, err := backend.Query(ctx, domain.TagExpression(cfg.TagField, layer.Tag), cfg.ResultLimit)
	observeBackend(metrics, "query", start, err)
	if err != nil {
		return nil, &domain.BackendError{Operation: "query layer " + layer.ID, Err: err}
	}
	return records, nil
}

// LayerService lists data layers and builds their point models.
type LayerService struct {
	layers  output.LayerRepository
	backend output.SearchBackend
	points  *PointBuilder
	metrics output.MetricsCollector
	logger  *slog.Logger
	cfg     LayerQueryConfig
}

// NewLayerService creates a new layer service.
func NewLayerService(
	layers output.LayerRepository,
	backend output.SearchBackend,
	points *PointBuilder,
	metrics output.MetricsCollector,
	logger *slog.Logger,
	cfg LayerQueryConfig,
) *LayerService {
	return &LayerService{
		layers:  layers,
		backend: backend,
		points:  points,
		metrics: metrics,
		logger:  logger,
		cfg:     cfg.withDefaults(),
	}
}

// ListLayers returns every configured data layer.
func (s *LayerService) ListLayers(ctx context.Context) ([]domain.LayerConfig, error) {
	return s.layers.ListLayers(ctx)
}

// LayerPoints returns the point models of one data layer with resolved
// popups. When the layer names a default layer type it must exist.
func (s *LayerService) LayerPoints(ctx context.Context, layerID string) ([]domain.PointModel, error) {
	layer, err := s.layers.FindLayerConfig(ctx, layerID)
	if err != nil {
		return nil, err
	}

	opts := PointOptions{Layer: layer}
	if layer.LayerTypeID != "" {
		lt, err := s.layers.FindLayerType(ctx, layer.LayerTypeID)
		if err != nil {
			return nil, err
		}
		opts.LayerType = lt
	}

	records, err := layerRecords(ctx, s.backend, s.metrics, s.cfg, layer)
	if err != nil {
		return nil, err
	}

	batch, err := s.points.BuildAll(ctx, records, opts, domain.NewIconCache())
	if err != nil {
		return nil, err
	}

	s.logger.Debug("layer points built",
		"layer", layer.ID,
		"records", len(records),
		"points", len(batch.Points),
		"skipped", batch.Skipped,
	)
	return batch.Points, nil
}
