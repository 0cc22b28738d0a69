// Package input defines the primary/driving ports of the application.
package input

import (
	"context"
	"io"

	"github.com/jobrunner/geofacet/internal/domain"
)

// PointService defines the primary port for building point models.
type PointService interface {
	// LayerPoints returns the point models of one data layer.
	LayerPoints(ctx context.Context, layerID string) ([]domain.PointModel, error)

	// ListLayers returns every configured data layer.
	ListLayers(ctx context.Context) ([]domain.LayerConfig, error)
}

// ExportService defines the primary port for layer exports.
type ExportService interface {
	// ExportLayer writes the FeatureCollection of a data layer to the sink.
	ExportLayer(ctx context.Context, layerID string) (*domain.ExportResult, error)
}

// ExportReader defines the primary port for downloading written exports.
type ExportReader interface {
	// OpenExport returns a reader for a written export. The caller closes it.
	OpenExport(ctx context.Context, key string) (io.ReadCloser, error)
}

// MapService defines the primary port for map rendering models.
type MapService interface {
	// LoadMap assembles the rendering model of a map.
	LoadMap(ctx context.Context, mapID string) (*domain.MapView, error)
}

// MarkerService defines the primary port for popup template markers.
type MarkerService interface {
	// MarkerDescriptions lists the markers available to a layer's templates.
	MarkerDescriptions(ctx context.Context, tag string) ([]domain.MarkerSpec, error)

	// MarkerValues returns the marker values of one record.
	MarkerValues(ctx context.Context, tag, uid string) ([]domain.MarkerSpec, error)
}

// HealthChecker defines the primary port for health checks.
type HealthChecker interface {
	// IsHealthy returns true if the service is healthy.
	IsHealthy(ctx context.Context) bool

	// IsReady returns true if the service is ready to accept requests.
	IsReady(ctx context.Context) bool

	// GetHealthDetails returns detailed health information.
	GetHealthDetails(ctx context.Context) HealthDetails
}

// HealthDetails contains detailed health information.
type HealthDetails struct {
	Healthy      bool              // Overall health status
	Ready        bool              // Ready to accept requests
	LayersLoaded int               // Number of configured data layers
	Components   map[string]string // Component statuses
}
