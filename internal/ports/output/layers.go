package output

import (
	"context"

	"github.com/jobrunner/geofacet/internal/domain"
)

// LayerRepository defines the secondary port for layer and map configuration.
// Find methods return an error wrapping domain.ErrNotFound when the record
// does not exist.
type LayerRepository interface {
	// ListLayers returns every configured data layer.
	ListLayers(ctx context.Context) ([]domain.LayerConfig, error)

	// FindLayerConfig returns a data layer by ID.
	FindLayerConfig(ctx context.Context, id string) (*domain.LayerConfig, error)

	// FindLayerType returns a layer type by ID.
	FindLayerType(ctx context.Context, id string) (*domain.LayerType, error)

	// FindMapTemplate returns a map by ID.
	FindMapTemplate(ctx context.Context, id string) (*domain.MapTemplate, error)

	// ListMapLayers returns the data layers bound to a map, in binding order.
	ListMapLayers(ctx context.Context, mapID string) ([]domain.LayerConfig, error)

	// FindMapLayer returns the binding of a data layer to a map.
	FindMapLayer(ctx context.Context, mapID, layerID string) (*domain.MapLayer, error)

	// FindEditableLayer returns the editable data layer of a map.
	FindEditableLayer(ctx context.Context, mapID string) (*domain.LayerConfig, error)

	// FindBasemap returns a basemap by ID.
	FindBasemap(ctx context.Context, id string) (*domain.Basemap, error)
}
