package output

import (
	"context"

	"github.com/jobrunner/geofacet/internal/domain"
)

// SearchBackend defines the secondary port for the faceted search index.
type SearchBackend interface {
	// Query runs a free-text query and returns at most limit records
	// (no limit when limit <= 0).
	Query(ctx context.Context, expression string, limit int) ([]domain.SearchRecord, error)

	// FacetedQuery runs a query and returns the requested facet counts
	// alongside the matching records.
	FacetedQuery(ctx context.Context, q domain.FacetedQuery) (*domain.FacetedResult, error)

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error
}

// IconLookup defines the secondary port resolving icon identifiers to
// display paths.
type IconLookup interface {
	// ResolveIcon returns the display path of iconID for the given record type.
	ResolveIcon(ctx context.Context, typ, iconID string) (string, error)
}
