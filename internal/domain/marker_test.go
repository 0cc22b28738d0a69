package domain

import (
	"reflect"
	"testing"
)

func markerLabels(markers []MarkerSpec) []string {
	labels := make([]string, len(markers))
	for i, m := range markers {
		labels[i] = m.Description
	}
	return labels
}

func TestAggregateMarkers(t *testing.T) {
	tests := []struct {
		name    string
		facets  []string
		records []SearchRecord
		want    []string
	}{
		{
			name:   "facets then discovered fields",
			facets: []string{"a", "b"},
			records: []SearchRecord{
				{ID: "1_1_Point", Fields: []Field{{Key: "a_text", Value: "1"}}},
				{ID: "1_2_Point", Fields: []Field{{Key: "c_text", Value: "2"}}},
			},
			want: []string{"a", "b", "c_text"},
		},
		{
			name:   "facet carrying the suffix is not repeated",
			facets: []string{"DataLayer_text"},
			records: []SearchRecord{
				{ID: "1_1_Point", Fields: []Field{
					{Key: "DataLayer_text", Value: "parks"},
					{Key: "name_text", Value: "Parc"},
				}},
			},
			want: []string{"DataLayer_text", "name_text"},
		},
		{
			name:   "first seen order across records",
			facets: nil,
			records: []SearchRecord{
				{ID: "1_1_Point", Fields: []Field{{Key: "z_text"}, {Key: "geo_geojson"}, {Key: "m_text"}}},
				{ID: "1_2_Point", Fields: []Field{{Key: "a_text"}, {Key: "z_text"}}},
				{ID: "1_3_Point", Fields: []Field{{Key: "m_text"}, {Key: "b_text"}}},
			},
			want: []string{"z_text", "m_text", "a_text", "b_text"},
		},
		{
			name:   "duplicate facet names collapse",
			facets: []string{"a", "a", "b"},
			want:   []string{"a", "b"},
		},
		{
			name: "empty input",
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := markerLabels(AggregateMarkers(tt.facets, tt.records))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("AggregateMarkers() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAggregateMarkersDeterministic(t *testing.T) {
	facets := []string{"a", "b"}
	records := []SearchRecord{
		{ID: "1_1_Point", Fields: []Field{{Key: "x_text"}, {Key: "y_text"}}},
		{ID: "1_2_Point", Fields: []Field{{Key: "y_text"}, {Key: "w_text"}}},
	}

	first := markerLabels(AggregateMarkers(facets, records))
	for i := 0; i < 10; i++ {
		if got := markerLabels(AggregateMarkers(facets, records)); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d: %v != %v", i, got, first)
		}
	}
}

func TestMarkerListAdd(t *testing.T) {
	list := NewMarkerList()

	if !list.Add(NewMarker("a")) {
		t.Error("first Add should succeed")
	}
	if list.Add(NewMarker("a")) {
		t.Error("second Add with the same label should be rejected")
	}
	if list.Len() != 1 {
		t.Errorf("Len() = %d, want 1", list.Len())
	}

	markers := list.Markers()
	markers[0].Description = "mutated"
	if !list.Has("a") || list.Markers()[0].Description != "a" {
		t.Error("Markers() should return a copy")
	}
}

func TestNewMarkerValue(t *testing.T) {
	m := NewMarkerValue("addr_text", "10 Rue X")
	if !m.HasValue || m.Value != "10 Rue X" || m.ID != "addr_text" {
		t.Errorf("NewMarkerValue() = %+v", m)
	}
}
