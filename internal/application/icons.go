package application

import (
	"context"

	"github.com/jobrunner/geofacet/internal/domain"
	"github.com/jobrunner/geofacet/internal/ports/output"
)

// IconResolver resolves icon identifiers to display paths, memoizing the
// results in a per-batch cache.
type IconResolver struct {
	lookup  output.IconLookup
	metrics output.MetricsCollector
}

// NewIconResolver creates a new icon resolver.
func NewIconResolver(lookup output.IconLookup, metrics output.MetricsCollector) *IconResolver {
	return &IconResolver{lookup: lookup, metrics: metrics}
}

// Resolve returns the display path of iconID for the record type. The lookup
// runs at most once per (type, iconID) for the lifetime of cache. Failed
// lookups are not cached.
func (r *IconResolver) Resolve(ctx context.Context, typ, iconID string, cache *domain.IconCache) (string, error) {
	if path, ok := cache.Get(typ, iconID); ok {
		r.metrics.IncIconLookups(output.IconCacheBatch, true)
		return path, nil
	}
	r.metrics.IncIconLookups(output.IconCacheBatch, false)

	path, err := r.lookup.ResolveIcon(ctx, typ, iconID)
	if err != nil {
		return "", &domain.BackendError{Operation: "resolve icon", Err: err}
	}
	cache.Put(typ, iconID, path)
	return path, nil
}
