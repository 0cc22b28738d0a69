package application

import (
	"context"

	"github.com/jobrunner/geofacet/internal/ports/input"
	"github.com/jobrunner/geofacet/internal/ports/output"
)

// HealthService provides health check functionality.
type HealthService struct {
	backend output.SearchBackend
	layers  output.LayerRepository
}

// NewHealthService creates a new health service.
func NewHealthService(backend output.SearchBackend, layers output.LayerRepository) *HealthService {
	return &HealthService{
		backend: backend,
		layers:  layers,
	}
}

// IsHealthy returns true if the service is healthy.
func (s *HealthService) IsHealthy(ctx context.Context) bool {
	return true // Basic health check
}

// IsReady returns true when the search backend answers.
func (s *HealthService) IsReady(ctx context.Context) bool {
	return s.backend.Ping(ctx) == nil
}

// GetHealthDetails returns detailed health information.
func (s *HealthService) GetHealthDetails(ctx context.Context) input.HealthDetails {
	components := map[string]string{
		"search": "ok",
		"layers": "ok",
	}

	ready := true
	if err := s.backend.Ping(ctx); err != nil {
		components["search"] = err.Error()
		ready = false
	}

	layers, err := s.layers.ListLayers(ctx)
	if err != nil {
		components["layers"] = err.Error()
	}

	return input.HealthDetails{
		Healthy:      s.IsHealthy(ctx),
		Ready:        ready,
		LayersLoaded: len(layers),
		Components:   components,
	}
}
