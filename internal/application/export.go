package application

import (
	"context"
	"io"
	"log/slog"
	"path"
	"time"

	"github.com/google/uuid"

	"github.com/jobrunner/geofacet/internal/domain"
	"github.com/jobrunner/geofacet/internal/geo"
	"github.com/jobrunner/geofacet/internal/ports/output"
)

// ExportService writes data layers as GeoJSON FeatureCollections.
type ExportService struct {
	layers   output.LayerRepository
	backend  output.SearchBackend
	points   *PointBuilder
	sink     output.ExportSink
	metrics  output.MetricsCollector
	logger   *slog.Logger
	cfg      LayerQueryConfig
	filename string
}

// ExportServiceConfig holds configuration for the export service.
type ExportServiceConfig struct {
	LayerQueryConfig
	Filename string // Name of the written file, per layer
}

// NewExportService creates a new export service.
func NewExportService(
	layers output.LayerRepository,
	backend output.SearchBackend,
	points *PointBuilder,
	sink output.ExportSink,
	metrics output.MetricsCollector,
	logger *slog.Logger,
	cfg ExportServiceConfig,
) *ExportService {
	if cfg.Filename == "" {
		cfg.Filename = domain.DefaultExportFilename
	}

	return &ExportService{
		layers:   layers,
		backend:  backend,
		points:   points,
		sink:     sink,
		metrics:  metrics,
		logger:   logger,
		cfg:      cfg.LayerQueryConfig.withDefaults(),
		filename: cfg.Filename,
	}
}

// ExportKey returns the sink key of a layer export.
func (s *ExportService) ExportKey(layerID string) string {
	return path.Join(layerID, s.filename)
}

// ExportLayer writes the FeatureCollection of a data layer to the sink.
// Each export starts with a fresh icon cache. Records that cannot be built
// are skipped and counted. Sink failures are returned as *domain.ExportError
// and are not retried.
func (s *ExportService) ExportLayer(ctx context.Context, layerID string) (*domain.ExportResult, error) {
	layer, err := s.layers.FindLayerConfig(ctx, layerID)
	if err != nil {
		return nil, err
	}

	records, err := layerRecords(ctx, s.backend, s.metrics, s.cfg, layer)
	if err != nil {
		s.metrics.IncExports(layer.ID, false)
		return nil, err
	}

	batch, err := s.points.BuildAll(ctx, records, PointOptions{}, domain.NewIconCache())
	if err != nil {
		return nil, err
	}

	features := make([]string, len(batch.Points))
	for i, p := range batch.Points {
		features[i] = p.Geometry
	}
	doc := geo.FeatureCollection(features, layer.Title)

	key := s.ExportKey(layer.ID)
	if err := s.sink.Write(ctx, key, doc); err != nil {
		s.metrics.IncExports(layer.ID, false)
		s.logger.Error("export failed", "layer", layer.ID, "key", key, "error", err)
		return nil, &domain.ExportError{Key: key, Err: err}
	}
	s.metrics.IncExports(layer.ID, true)

	result := &domain.ExportResult{
		SessionID:  uuid.NewString(),
		LayerID:    layer.ID,
		Key:        key,
		Features:   len(features),
		Skipped:    batch.Skipped,
		Bytes:      len(doc),
		ExportedAt: time.Now().UTC(),
	}

	s.logger.Info("layer exported",
		"session", result.SessionID,
		"layer", layer.ID,
		"key", key,
		"features", result.Features,
		"skipped", result.Skipped,
	)
	return result, nil
}

// OpenExport returns a reader for a written export.
func (s *ExportService) OpenExport(ctx context.Context, key string) (io.ReadCloser, error) {
	exists, err := s.sink.Exists(ctx, key)
	if err != nil {
		return nil, &domain.StorageError{Operation: "exists", Key: key, Err: err}
	}
	if !exists {
		return nil, &domain.NotFoundError{Kind: "export", ID: key, Err: domain.ErrExportNotFound}
	}

	rc, err := s.sink.Open(ctx, key)
	if err != nil {
		return nil, &domain.StorageError{Operation: "open", Key: key, Err: err}
	}
	return rc, nil
}
