package application

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jobrunner/geofacet/internal/domain"
	"github.com/jobrunner/geofacet/internal/ports/output"
)

// MapService assembles map rendering models.
type MapService struct {
	layers      output.LayerRepository
	backend     output.SearchBackend
	points      *PointBuilder
	metrics     output.MetricsCollector
	logger      *slog.Logger
	cfg         LayerQueryConfig
	limitVertex int
}

// MapServiceConfig holds configuration for the map service.
type MapServiceConfig struct {
	LayerQueryConfig
	LimitVertex int // Maximum vertices a drawn geometry may have
}

// NewMapService creates a new map service.
func NewMapService(
	layers output.LayerRepository,
	backend output.SearchBackend,
	points *PointBuilder,
	metrics output.MetricsCollector,
	logger *slog.Logger,
	cfg MapServiceConfig,
) *MapService {
	return &MapService{
		layers:      layers,
		backend:     backend,
		points:      points,
		metrics:     metrics,
		logger:      logger,
		cfg:         cfg.LayerQueryConfig.withDefaults(),
		limitVertex: cfg.LimitVertex,
	}
}

// LoadMap builds the points of every data layer bound to the map, sharing one
// icon cache across the layers. A missing binding, layer type or basemap is a
// configuration fault and is returned as a not-found error.
func (s *MapService) LoadMap(ctx context.Context, mapID string) (*domain.MapView, error) {
	m, err := s.layers.FindMapTemplate(ctx, mapID)
	if err != nil {
		return nil, err
	}

	bound, err := s.layers.ListMapLayers(ctx, mapID)
	if err != nil {
		return nil, err
	}

	cache := domain.NewIconCache()
	all := &PointBatch{}
	for i := range bound {
		layer := &bound[i]

		records, err := layerRecords(ctx, s.backend, s.metrics, s.cfg, layer)
		if err != nil {
			return nil, err
		}

		binding, err := s.layers.FindMapLayer(ctx, mapID, layer.ID)
		if err != nil {
			return nil, err
		}
		layerType, err := s.layers.FindLayerType(ctx, binding.LayerTypeID)
		if err != nil {
			return nil, err
		}

		batch, err := s.points.BuildAll(ctx, records, PointOptions{
			Layer:     layer,
			Binding:   binding,
			LayerType: layerType,
		}, cache)
		if err != nil {
			return nil, err
		}
		all.Points = append(all.Points, batch.Points...)
		all.Skipped += batch.Skipped
		all.coords = append(all.coords, batch.coords...)
	}

	basemap, err := s.layers.FindBasemap(ctx, m.BasemapID)
	if err != nil {
		return nil, err
	}

	view := &domain.MapView{
		Map:         *m,
		Points:      all.Points,
		BasemapURL:  basemap.URL,
		LimitVertex: s.limitVertex,
		Extent:      all.Extent(),
	}
	if view.Points == nil {
		view.Points = []domain.PointModel{}
	}

	editable, err := s.layers.FindEditableLayer(ctx, mapID)
	switch {
	case err == nil:
		view.EditableLayer = editable
	case errors.Is(err, domain.ErrNotFound):
	default:
		return nil, err
	}

	s.logger.Debug("map loaded",
		"map", mapID,
		"layers", len(bound),
		"points", len(view.Points),
		"skipped", all.Skipped,
	)
	return view, nil
}
