package application

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/jobrunner/geofacet/internal/domain"
	"github.com/jobrunner/geofacet/internal/ports/output"
)

func newTestMarkerService(backend *mockBackend, markerFields ...string) *MarkerService {
	return NewMarkerService(backend, &output.NoOpMetrics{}, testLogger(), MarkerServiceConfig{
		MarkerFields: markerFields,
	})
}

func TestMarkerDescriptions(t *testing.T) {
	backend := &mockBackend{
		faceted: map[string]*domain.FacetedResult{
			"DataLayer_text:parks": {
				Facets: []domain.FacetField{{Name: "a"}, {Name: "b"}},
				Records: []domain.SearchRecord{
					{ID: "1_1_Point", Fields: []domain.Field{{Key: "a_text", Value: "1"}}},
					{ID: "1_2_Point", Fields: []domain.Field{{Key: "c_text", Value: "2"}}},
				},
			},
		},
	}
	service := newTestMarkerService(backend)

	markers, err := service.MarkerDescriptions(context.Background(), "parks")
	if err != nil {
		t.Fatalf("MarkerDescriptions() error = %v", err)
	}

	labels := make([]string, len(markers))
	for i, m := range markers {
		labels[i] = m.Description
	}
	if want := []string{"a", "b", "c_text"}; !reflect.DeepEqual(labels, want) {
		t.Errorf("labels = %v, want %v", labels, want)
	}

	if len(backend.facetedQueries) != 1 {
		t.Fatalf("faceted queries = %d, want 1", len(backend.facetedQueries))
	}
	q := backend.facetedQueries[0]
	want := domain.FacetedQuery{
		Expression: "DataLayer_text:parks",
		Facets:     []string{"DataLayer_text"},
		SortField:  "uid",
		SortOrder:  domain.SortAsc,
		PageSize:   10,
		Page:       1,
		Limit:      100,
	}
	if !reflect.DeepEqual(q, want) {
		t.Errorf("query = %+v, want %+v", q, want)
	}
}

func TestMarkerDescriptionsErrors(t *testing.T) {
	service := newTestMarkerService(&mockBackend{})
	if _, err := service.MarkerDescriptions(context.Background(), ""); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("empty tag error = %v, want ErrInvalidInput", err)
	}

	failing := newTestMarkerService(&mockBackend{queryErr: errors.New("down")})
	_, err := failing.MarkerDescriptions(context.Background(), "parks")
	var backendErr *domain.BackendError
	if !errors.As(err, &backendErr) {
		t.Errorf("error = %v, want *domain.BackendError", err)
	}
}

func TestMarkerValues(t *testing.T) {
	backend := &mockBackend{
		faceted: map[string]*domain.FacetedResult{
			"DataLayer_text:parks AND uid:1_2_Point": {
				Facets: []domain.FacetField{
					{Name: "addr_text", Values: []domain.FacetValue{{Value: "10 Rue X", Count: 1}}},
					{Name: "empty_text"},
					{Name: "name_text", Values: []domain.FacetValue{{Value: "Parc", Count: 2}, {Value: "Other", Count: 1}}},
				},
			},
		},
	}
	service := newTestMarkerService(backend, "addr_text", "empty_text", "name_text")

	markers, err := service.MarkerValues(context.Background(), "parks", "1_2_Point")
	if err != nil {
		t.Fatalf("MarkerValues() error = %v", err)
	}

	want := []domain.MarkerSpec{
		domain.NewMarkerValue("addr_text", "10 Rue X"),
		domain.NewMarkerValue("name_text", "Parc"),
	}
	if !reflect.DeepEqual(markers, want) {
		t.Errorf("MarkerValues() = %+v, want %+v", markers, want)
	}
}

func TestMarkerValuesWithoutFields(t *testing.T) {
	backend := &mockBackend{}
	service := newTestMarkerService(backend)

	markers, err := service.MarkerValues(context.Background(), "parks", "1_2_Point")
	if err != nil || len(markers) != 0 {
		t.Errorf("MarkerValues() = %v, %v", markers, err)
	}
	if len(backend.facetedQueries) != 0 {
		t.Error("no query expected without marker fields")
	}
}

func TestFieldValues(t *testing.T) {
	backend := &mockBackend{
		records: map[string][]domain.SearchRecord{
			"DataLayer_text:parks AND uid:1_2_Point": {
				{ID: "1_2_Point", Fields: []domain.Field{
					{Key: "addr_text", Value: "10 Rue X"},
					{Key: "coordonnee_geojson", Value: "{}"},
					{Key: "uid", Value: "1_2_Point"},
				}},
			},
		},
	}
	service := newTestMarkerService(backend)

	values, err := service.FieldValues(context.Background(), "parks", "1_2_Point")
	if err != nil {
		t.Fatalf("FieldValues() error = %v", err)
	}
	if want := map[string]string{"addr_text": "10 Rue X"}; !reflect.DeepEqual(values, want) {
		t.Errorf("FieldValues() = %v, want %v", values, want)
	}
}

func TestTemplateThroughMarkerService(t *testing.T) {
	backend := &mockBackend{
		records: map[string][]domain.SearchRecord{
			"DataLayer_text:parks AND uid:1_2_Point": {
				{ID: "1_2_Point", Fields: []domain.Field{{Key: "addr", Value: "10 Rue X"}, {Key: "addr_text", Value: "10 Rue X"}}},
			},
		},
	}
	resolver := NewTemplateResolver(newTestMarkerService(backend))

	got, err := resolver.Resolve(context.Background(), "Addr: [addr_text] / [missing]", "parks", "1_2_Point")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got != "Addr: 10 Rue X /  " {
		t.Errorf("Resolve() = %q", got)
	}
	if backend.queryCount() != 2 {
		t.Errorf("backend queries = %d, want one per token", backend.queryCount())
	}
}
