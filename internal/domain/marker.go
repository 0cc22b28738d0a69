package domain

import "strings"

// MarkerSpec is a named placeholder usable in popup templates. It describes
// either a discoverable field (Description set) or a resolved value (Value set).
type MarkerSpec struct {
	ID          string `json:"id"`
	Description string `json:"description,omitempty"`
	Value       string `json:"value,omitempty"`
	HasValue    bool   `json:"-"`
}

// NewMarker creates a marker whose label is its own name.
func NewMarker(name string) MarkerSpec {
	return MarkerSpec{ID: name, Description: name}
}

// NewMarkerValue creates a marker carrying a resolved value.
func NewMarkerValue(name, value string) MarkerSpec {
	return MarkerSpec{ID: name, Value: value, HasValue: true}
}

// MarkerList is an ordered, de-duplicated list of markers keyed by label.
type MarkerList struct {
	markers []MarkerSpec
	labels  map[string]struct{}
}

// NewMarkerList creates an empty marker list.
func NewMarkerList() *MarkerList {
	return &MarkerList{labels: make(map[string]struct{})}
}

// Has reports whether a marker with this exact label exists.
func (l *MarkerList) Has(label string) bool {
	_, ok := l.labels[label]
	return ok
}

// Add appends a marker unless its label is already present.
func (l *MarkerList) Add(m MarkerSpec) bool {
	if l.Has(m.Description) {
		return false
	}
	l.labels[m.Description] = struct{}{}
	l.markers = append(l.markers, m)
	return true
}

// Markers returns the markers in insertion order.
func (l *MarkerList) Markers() []MarkerSpec {
	return append([]MarkerSpec(nil), l.markers...)
}

// Len returns the number of markers.
func (l *MarkerList) Len() int {
	return len(l.markers)
}

// AggregateMarkers merges facet names with the text fields discovered on the
// records.
//
// Facets come first in their received order. Then every text-suffixed field
// key is appended in first-seen order across records, unless a marker already
// carries that key or the key without its text suffix ("a_text" is covered by
// facet "a").
func AggregateMarkers(facets []string, records []SearchRecord) []MarkerSpec {
	list := NewMarkerList()
	for _, name := range facets {
		list.Add(NewMarker(name))
	}

	for _, rec := range records {
		for _, f := range rec.FieldsWithSuffix(TextFieldSuffix) {
			if list.Has(strings.TrimSuffix(f.Key, TextFieldSuffix)) {
				continue
			}
			list.Add(NewMarker(f.Key))
		}
	}

	return list.Markers()
}
