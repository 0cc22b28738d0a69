package application

import (
	"context"
	"errors"
	"testing"

	"github.com/jobrunner/geofacet/internal/domain"
	"github.com/jobrunner/geofacet/internal/ports/output"
)

func mapFixtures() (*mockLayers, *mockBackend) {
	layers := &mockLayers{
		layers: map[string]domain.LayerConfig{
			"1": {ID: "1", Tag: "parks", Title: "Parcs", PopupTemplate: "[addr_text]"},
			"2": {ID: "2", Tag: "zones", Title: "Zones", Editable: true},
		},
		order:      []string{"1", "2"},
		layerTypes: map[string]domain.LayerType{"pt": {ID: "pt", Kind: domain.KindPoint}, "pg": {ID: "pg", Kind: domain.KindPolygon}},
		maps:       map[string]domain.MapTemplate{"m": {ID: "m", Title: "Paris", BasemapID: "osm"}},
		mapLayers:  map[string][]string{"m": {"1", "2"}},
		bindings: map[string]domain.MapLayer{
			"m/1": {MapID: "m", LayerID: "1", LayerTypeID: "pt"},
			"m/2": {MapID: "m", LayerID: "2", LayerTypeID: "pg"},
		},
		editable: map[string]string{"m": "2"},
		basemaps: map[string]domain.Basemap{"osm": {ID: "osm", URL: "https://tile.openstreetmap.org/{z}/{x}/{y}.png"}},
	}
	backend := &mockBackend{
		records: map[string][]domain.SearchRecord{
			"DataLayer_text:parks": {
				{ID: "1_1_Point", Fields: []domain.Field{{Key: "coordonnee_geojson", Value: pointJSON}}},
			},
			"DataLayer_text:zones": {
				{ID: "1_2_Polygon", Fields: []domain.Field{{Key: "zone_geojson", Value: polygonJSON}}},
			},
		},
	}
	return layers, backend
}

func newTestMapService(layers *mockLayers, backend *mockBackend, icons *mockIcons) *MapService {
	builder := newTestPointBuilder(icons, &mockFields{values: map[string]string{"addr_text": "10 Rue X"}})
	return NewMapService(layers, backend, builder, &output.NoOpMetrics{}, testLogger(), MapServiceConfig{
		LimitVertex: 500,
	})
}

func TestLoadMap(t *testing.T) {
	layers, backend := mapFixtures()
	service := newTestMapService(layers, backend, &mockIcons{})

	view, err := service.LoadMap(context.Background(), "m")
	if err != nil {
		t.Fatalf("LoadMap() error = %v", err)
	}

	if len(view.Points) != 2 {
		t.Fatalf("points = %d, want 2", len(view.Points))
	}
	first, second := view.Points[0], view.Points[1]
	if first.LayerTitle != "Parcs" || first.PopupText() != "10 Rue X" || first.LayerType.ID != "pt" {
		t.Errorf("first point = %+v", first)
	}
	if second.LayerTitle != "Zones" || second.PopupText() != "" || second.Binding.LayerTypeID != "pg" {
		t.Errorf("second point = %+v", second)
	}

	if view.BasemapURL != "https://tile.openstreetmap.org/{z}/{x}/{y}.png" {
		t.Errorf("BasemapURL = %q", view.BasemapURL)
	}
	if view.LimitVertex != 500 {
		t.Errorf("LimitVertex = %d", view.LimitVertex)
	}
	if view.EditableLayer == nil || view.EditableLayer.ID != "2" {
		t.Errorf("EditableLayer = %+v", view.EditableLayer)
	}
	if view.Extent == nil || view.Extent.MinLon != 1 || view.Extent.MaxLon != 5 {
		t.Errorf("Extent = %+v", view.Extent)
	}
}

func TestLoadMapSharesIconCache(t *testing.T) {
	layers, backend := mapFixtures()
	backend.records["DataLayer_text:zones"] = backend.records["DataLayer_text:parks"]
	icons := &mockIcons{}
	service := newTestMapService(layers, backend, icons)

	if _, err := service.LoadMap(context.Background(), "m"); err != nil {
		t.Fatalf("LoadMap() error = %v", err)
	}
	if got := icons.callCount("Point", "park"); got != 1 {
		t.Errorf("icon lookups = %d, want 1 across the map's layers", got)
	}
}

func TestLoadMapWithoutEditableLayer(t *testing.T) {
	layers, backend := mapFixtures()
	delete(layers.editable, "m")
	service := newTestMapService(layers, backend, &mockIcons{})

	view, err := service.LoadMap(context.Background(), "m")
	if err != nil {
		t.Fatalf("LoadMap() error = %v", err)
	}
	if view.EditableLayer != nil {
		t.Error("EditableLayer should be nil")
	}
}

func TestLoadMapConfigurationFaults(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*mockLayers)
		mapID   string
		wantErr error
	}{
		{name: "unknown map", mapID: "nope", wantErr: domain.ErrMapNotFound},
		{
			name:    "missing layer type",
			mutate:  func(l *mockLayers) { delete(l.layerTypes, "pg") },
			mapID:   "m",
			wantErr: domain.ErrLayerTypeNotFound,
		},
		{
			name:    "missing basemap",
			mutate:  func(l *mockLayers) { delete(l.basemaps, "osm") },
			mapID:   "m",
			wantErr: domain.ErrBasemapNotFound,
		},
		{
			name:    "missing binding",
			mutate:  func(l *mockLayers) { delete(l.bindings, "m/1") },
			mapID:   "m",
			wantErr: domain.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			layers, backend := mapFixtures()
			if tt.mutate != nil {
				tt.mutate(layers)
			}
			service := newTestMapService(layers, backend, &mockIcons{})

			_, err := service.LoadMap(context.Background(), tt.mapID)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("LoadMap() error = %v, want %v", err, tt.wantErr)
			}
			var nf *domain.NotFoundError
			if !errors.As(err, &nf) {
				t.Errorf("error type = %T, want *domain.NotFoundError", err)
			}
		})
	}
}
