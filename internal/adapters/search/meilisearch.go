// Package search implements the search backend port on Meilisearch.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/meilisearch/meilisearch-go"

	"github.com/jobrunner/geofacet/internal/domain"
)

// Config holds the Meilisearch connection settings.
type Config struct {
	Host     string
	APIKey   string
	Index    string
	UIDField string // Field holding the composite record identifier
}

// Backend implements output.SearchBackend on a Meilisearch index.
type Backend struct {
	client   meilisearch.ServiceManager
	index    meilisearch.IndexManager
	uidField string
	logger   *slog.Logger
}

// New creates a backend for the configured index.
func New(cfg Config, logger *slog.Logger) *Backend {
	client := meilisearch.New(cfg.Host, meilisearch.WithAPIKey(cfg.APIKey))
	return NewWithClient(client, cfg, logger)
}

// NewWithClient creates a backend on an existing client.
func NewWithClient(client meilisearch.ServiceManager, cfg Config, logger *slog.Logger) *Backend {
	uidField := cfg.UIDField
	if uidField == "" {
		uidField = "uid"
	}
	return &Backend{
		client:   client,
		index:    client.Index(cfg.Index),
		uidField: uidField,
		logger:   logger,
	}
}

// Query runs expression and returns at most limit records. A limit <= 0
// uses the index default.
func (b *Backend) Query(ctx context.Context, expression string, limit int) ([]domain.SearchRecord, error) {
	query, filter := translateExpression(expression)
	req := &meilisearch.SearchRequest{Query: query}
	if filter != "" {
		req.Filter = filter
	}
	if limit > 0 {
		req.Limit = int64(limit)
	}

	resp, err := b.index.SearchWithContext(ctx, query, req)
	if err != nil {
		return nil, fmt.Errorf("meilisearch search %q: %w", expression, err)
	}
	return b.records(resp.Hits)
}

// FacetedQuery runs q and returns the facet distribution of the requested
// fields, in request order, with the page of matching records.
func (b *Backend) FacetedQuery(ctx context.Context, q domain.FacetedQuery) (*domain.FacetedResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	query, filter := translateExpression(q.Expression)
	req := &meilisearch.SearchRequest{
		Query:  query,
		Facets: q.Facets,
		Sort:   sortClause(q.SortField, string(q.SortOrder)),
	}
	if filter != "" {
		req.Filter = filter
	}
	req.Offset, req.Limit = pageWindow(q)
	if q.Highlight {
		req.AttributesToHighlight = []string{"*"}
	}

	resp, err := b.index.SearchWithContext(ctx, query, req)
	if err != nil {
		return nil, fmt.Errorf("meilisearch faceted search %q: %w", q.Expression, err)
	}

	records, err := b.records(resp.Hits)
	if err != nil {
		return nil, err
	}
	if req.Limit == 0 && q.Limit > 0 {
		// The client falls back to its default page size for a zero limit.
		records = records[:0]
	}
	facets, err := facetFields(q.Facets, resp.FacetDistribution)
	if err != nil {
		return nil, err
	}

	return &domain.FacetedResult{Facets: facets, Records: records}, nil
}

// Ping checks that Meilisearch is reachable.
func (b *Backend) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !b.client.IsHealthy() {
		return domain.ErrBackendUnavailable
	}
	return nil
}

// pageWindow converts page/pageSize/limit into offset/limit, never reading
// past limit records.
func pageWindow(q domain.FacetedQuery) (offset, limit int64) {
	page := q.Page
	if page < 1 {
		page = 1
	}
	size := int64(q.PageSize)
	offset = int64(page-1) * size
	limit = size
	if q.Limit > 0 {
		bound := int64(q.Limit)
		if size == 0 || offset+size > bound {
			limit = bound - offset
		}
		if limit < 0 {
			limit = 0
		}
	}
	return offset, limit
}

// records converts hits into search records. Field keys are sorted so the
// field order is stable across calls.
func (b *Backend) records(hits any) ([]domain.SearchRecord, error) {
	raw, err := json.Marshal(hits)
	if err != nil {
		return nil, fmt.Errorf("encoding hits: %w", err)
	}
	var docs []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &docs); err != nil {
		return nil, fmt.Errorf("decoding hits: %w", err)
	}

	records := make([]domain.SearchRecord, 0, len(docs))
	for _, doc := range docs {
		keys := make([]string, 0, len(doc))
		for k := range doc {
			if k == "_formatted" {
				continue
			}
			keys = append(keys, k)
		}
		sort.Strings(keys)

		rec := domain.SearchRecord{Fields: make([]domain.Field, 0, len(keys))}
		for _, k := range keys {
			v := fieldValue(doc[k])
			rec.Fields = append(rec.Fields, domain.Field{Key: k, Value: v})
			if k == b.uidField {
				rec.ID = v
			}
		}
		if rec.ID == "" {
			if id, ok := doc["id"]; ok {
				rec.ID = fieldValue(id)
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

// fieldValue renders a document value as text. Strings are unquoted, string
// arrays are joined, everything else keeps its JSON form.
func fieldValue(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return strings.Join(list, ", ")
	}
	return string(raw)
}

// facetFields orders the facet distribution by the requested facets. Values
// are sorted by descending count, then by value.
func facetFields(requested []string, distribution any) ([]domain.FacetField, error) {
	dist := map[string]map[string]int64{}
	if distribution != nil {
		raw, err := json.Marshal(distribution)
		if err != nil {
			return nil, fmt.Errorf("encoding facet distribution: %w", err)
		}
		if len(raw) > 0 && string(raw) != "null" {
			if err := json.Unmarshal(raw, &dist); err != nil {
				return nil, fmt.Errorf("decoding facet distribution: %w", err)
			}
		}
	}

	fields := make([]domain.FacetField, 0, len(requested))
	for _, name := range requested {
		counts := dist[name]
		values := make([]domain.FacetValue, 0, len(counts))
		for v, c := range counts {
			values = append(values, domain.FacetValue{Value: v, Count: c})
		}
		sort.Slice(values, func(i, j int) bool {
			if values[i].Count != values[j].Count {
				return values[i].Count > values[j].Count
			}
			return values[i].Value < values[j].Value
		})
		fields = append(fields, domain.FacetField{Name: name, Values: values})
	}
	return fields, nil
}
