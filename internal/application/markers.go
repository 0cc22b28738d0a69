package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/jobrunner/geofacet/internal/domain"
	"github.com/jobrunner/geofacet/internal/ports/output"
)

// Marker discovery paging.
const (
	markerPageSize = 10
	markerPage     = 1
)

// MarkerService discovers and resolves popup template markers.
type MarkerService struct {
	backend output.SearchBackend
	metrics output.MetricsCollector
	logger  *slog.Logger
	cfg     MarkerServiceConfig
}

// MarkerServiceConfig holds configuration for the marker service.
type MarkerServiceConfig struct {
	TagField     string   // Field carrying the layer tag
	UIDField     string   // Field carrying the record uid
	FacetLimit   int      // Upper bound on records considered by faceted queries
	MarkerFields []string // Fields faceted when resolving marker values
}

// NewMarkerService creates a new marker service.
func NewMarkerService(
	backend output.SearchBackend,
	metrics output.MetricsCollector,
	logger *slog.Logger,
	cfg MarkerServiceConfig,
) *MarkerService {
	if cfg.TagField == "" {
		cfg.TagField = "DataLayer_text"
	}
	if cfg.UIDField == "" {
		cfg.UIDField = "uid"
	}
	if cfg.FacetLimit == 0 {
		cfg.FacetLimit = 100
	}

	return &MarkerService{
		backend: backend,
		metrics: metrics,
		logger:  logger,
		cfg:     cfg,
	}
}

// MarkerDescriptions lists the markers usable in the templates of the layer
// tagged tag: the facet names first, then the text fields found on the
// layer's records.
func (s *MarkerService) MarkerDescriptions(ctx context.Context, tag string) ([]domain.MarkerSpec, error) {
	if tag == "" {
		return nil, &domain.ValidationError{Field: "tag", Message: "tag is required"}
	}

	result, err := s.facetedQuery(ctx, "marker_descriptions", domain.FacetedQuery{
		Expression: domain.TagExpression(s.cfg.TagField, tag),
		Facets:     []string{s.cfg.TagField},
		SortField:  s.cfg.UIDField,
		SortOrder:  domain.SortAsc,
		PageSize:   markerPageSize,
		Page:       markerPage,
		Limit:      s.cfg.FacetLimit,
	})
	if err != nil {
		return nil, err
	}

	return domain.AggregateMarkers(result.FacetNames(), result.Records), nil
}

// MarkerValues returns one valued marker per configured marker field of the
// record (tag, uid). Facets without values are left out.
func (s *MarkerService) MarkerValues(ctx context.Context, tag, uid string) ([]domain.MarkerSpec, error) {
	if tag == "" || uid == "" {
		return nil, &domain.ValidationError{Field: "tag/uid", Message: "tag and uid are required"}
	}
	if len(s.cfg.MarkerFields) == 0 {
		return []domain.MarkerSpec{}, nil
	}

	result, err := s.facetedQuery(ctx, "marker_values", domain.FacetedQuery{
		Expression: s.recordExpression(tag, uid),
		Facets:     s.cfg.MarkerFields,
		SortField:  s.cfg.UIDField,
		SortOrder:  domain.SortAsc,
		PageSize:   s.cfg.FacetLimit,
		Page:       markerPage,
		Limit:      s.cfg.FacetLimit,
	})
	if err != nil {
		return nil, err
	}

	markers := make([]domain.MarkerSpec, 0, len(result.Facets))
	for _, facet := range result.Facets {
		v, ok := facet.First()
		if !ok {
			continue
		}
		markers = append(markers, domain.NewMarkerValue(facet.Name, v.Value))
	}
	return markers, nil
}

// FieldValues returns the text fields of the records matching (tag, uid).
// When several records match, later records win on conflicting keys.
func (s *MarkerService) FieldValues(ctx context.Context, tag, uid string) (map[string]string, error) {
	start := time.Now()
	records, err := s.backend.Query(ctx, s.recordExpression(tag, uid), s.cfg.FacetLimit)
	s.observe("field_values", start, err)
	if err != nil {
		return nil, &domain.BackendError{Operation: "field values", Err: err}
	}

	values := make(map[string]string)
	for _, rec := range records {
		for k, v := range rec.TextValues() {
			values[k] = v
		}
	}
	return values, nil
}

func (s *MarkerService) recordExpression(tag, uid string) string {
	return domain.AndExpression(
		domain.TagExpression(s.cfg.TagField, tag),
		domain.TagExpression(s.cfg.UIDField, uid),
	)
}

func (s *MarkerService) facetedQuery(ctx context.Context, op string, q domain.FacetedQuery) (*domain.FacetedResult, error) {
	start := time.Now()
	result, err := s.backend.FacetedQuery(ctx, q)
	s.observe(op, start, err)
	if err != nil {
		s.logger.Warn("faceted query failed", "operation", op, "expression", q.Expression, "error", err)
		return nil, &domain.BackendError{Operation: op, Err: err}
	}
	return result, nil
}

func (s *MarkerService) observe(op string, start time.Time, err error) {
	observeBackend(s.metrics, op, start, err)
}

// observeBackend records the outcome and duration of a search backend call.
func observeBackend(metrics output.MetricsCollector, op string, start time.Time, err error) {
	metrics.IncBackendCalls(op, err == nil)
	metrics.ObserveBackendDuration(op, time.Since(start))
}
