package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jobrunner/geofacet/internal/domain"
	"github.com/jobrunner/geofacet/internal/geo"
	"github.com/jobrunner/geofacet/internal/ports/output"
)

// Skip reasons reported to metrics.
const (
	skipMalformedID = "malformed_identifier"
	skipParse       = "parse"
	skipIcon        = "icon"
	skipPopup       = "popup"
	skipEncode      = "encode"
)

// PointOptions carries the optional layer context of a batch.
type PointOptions struct {
	Layer     *domain.LayerConfig // Sets the title and enables popups
	Binding   *domain.MapLayer    // Map-specific display properties
	LayerType *domain.LayerType   // Resolved layer type of the binding
}

// PointBatch is the outcome of building the points of a result set.
type PointBatch struct {
	Points  []domain.PointModel
	Skipped int
	coords  []domain.Coordinate
}

// Extent returns the bounding box of the built geometries.
func (b *PointBatch) Extent() *domain.Extent {
	e, ok := domain.ExtentOf(b.coords)
	if !ok {
		return nil
	}
	return &e
}

// PointBuilder assembles point models from search records.
type PointBuilder struct {
	icons     *IconResolver
	templates *TemplateResolver
	metrics   output.MetricsCollector
	logger    *slog.Logger
}

// NewPointBuilder creates a new point builder.
func NewPointBuilder(
	icons *IconResolver,
	templates *TemplateResolver,
	metrics output.MetricsCollector,
	logger *slog.Logger,
) *PointBuilder {
	return &PointBuilder{
		icons:     icons,
		templates: templates,
		metrics:   metrics,
		logger:    logger,
	}
}

// Build assembles the point model of one geometry field of a record.
func (b *PointBuilder) Build(
	ctx context.Context,
	rec domain.SearchRecord,
	field domain.Field,
	opts PointOptions,
	cache *domain.IconCache,
) (domain.PointModel, error) {
	point, _, _, err := b.build(ctx, rec, field, opts, cache)
	return point, err
}

func (b *PointBuilder) build(
	ctx context.Context,
	rec domain.SearchRecord,
	field domain.Field,
	opts PointOptions,
	cache *domain.IconCache,
) (domain.PointModel, domain.Geometry, string, error) {
	var none domain.PointModel

	id, err := domain.ParseIdentifier(rec.ID)
	if err != nil {
		return none, domain.Geometry{}, skipMalformedID, err
	}

	g, err := geo.Decode(field.Value)
	if err != nil {
		return none, domain.Geometry{}, skipParse, err
	}

	icon, err := b.icons.Resolve(ctx, id.Type, g.Properties.Icon, cache)
	if err != nil {
		return none, domain.Geometry{}, skipIcon, err
	}
	g = g.WithIcon(icon)

	encoded, err := geo.Encode(g)
	if err != nil {
		return none, domain.Geometry{}, skipEncode, fmt.Errorf("encoding geometry: %w", err)
	}

	point := domain.PointModel{
		Geometry:  encoded,
		EntityID:  id.EntityID,
		FieldCode: domain.FieldCode(field.Key),
		Type:      id.Type,
		Binding:   opts.Binding,
		LayerType: opts.LayerType,
	}

	if opts.Layer != nil {
		point.LayerTitle = opts.Layer.Title
		popup := ""
		if opts.Layer.HasPopup() {
			popup, err = b.templates.Resolve(ctx, opts.Layer.PopupTemplate, opts.Layer.Tag, rec.ID)
			if err != nil {
				return none, domain.Geometry{}, skipPopup, fmt.Errorf("resolving popup: %w", err)
			}
		}
		point.Popup = &popup
	}

	return point, g, "", nil
}

// BuildAll builds one point per geometry field of every record. Records that
// fail are logged, counted and skipped; records without a geometry field are
// ignored. Only context cancellation stops the batch.
func (b *PointBuilder) BuildAll(
	ctx context.Context,
	records []domain.SearchRecord,
	opts PointOptions,
	cache *domain.IconCache,
) (*PointBatch, error) {
	batch := &PointBatch{Points: make([]domain.PointModel, 0, len(records))}

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, field := range rec.FieldsWithSuffix(domain.GeoJSONFieldSuffix) {
			point, g, reason, err := b.build(ctx, rec, field, opts, cache)
			if err != nil {
				b.logger.Warn("skipping record",
					"record_id", rec.ID,
					"field", field.Key,
					"reason", reason,
					"error", err,
				)
				b.metrics.IncSkippedRecords(reason)
				batch.Skipped++
				continue
			}
			batch.Points = append(batch.Points, point)
			batch.coords = append(batch.coords, g.Coordinates()...)
		}
	}

	return batch, nil
}
