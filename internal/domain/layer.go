package domain

import "time"

// LayerConfig is a data layer: a named slice of indexed records sharing a tag.
type LayerConfig struct {
	ID            string    // Primary key
	Tag           string    // Value of the tag field shared by the layer's records
	Title         string    // Display title
	PopupTemplate string    // Optional popup template with [field] tokens
	Editable      bool      // Can geometries of this layer be drawn on the map?
	LayerTypeID   string    // Default layer type reference
	CreatedAt     time.Time // Creation timestamp
}

// HasPopup returns true if the layer carries a non-empty popup template.
func (l *LayerConfig) HasPopup() bool {
	return l.PopupTemplate != ""
}

// LayerType describes how the geometries of a layer are drawn.
type LayerType struct {
	ID    string       `json:"id"`
	Title string       `json:"title"`
	Kind  GeometryKind `json:"kind"`
	Icon  string       `json:"icon,omitempty"` // Default icon identifier
}

// MapTemplate is a configured map.
type MapTemplate struct {
	ID          string  // Primary key
	Title       string  // Display title
	Description string  // Free text description
	BasemapID   string  // Background tile layer reference
	CenterLon   float64 // Initial view center longitude
	CenterLat   float64 // Initial view center latitude
	Zoom        int     // Initial zoom level
}

// Center returns the initial view center.
func (m *MapTemplate) Center() Coordinate {
	return NewCoordinate(m.CenterLon, m.CenterLat)
}

// MapLayer binds a data layer to a map with map-specific display properties.
type MapLayer struct {
	MapID       string  `json:"map_id"`
	LayerID     string  `json:"layer_id"`
	LayerTypeID string  `json:"layer_type_id"`
	Color       string  `json:"color,omitempty"`
	Thickness   int     `json:"thickness,omitempty"`
	Opacity     float64 `json:"opacity,omitempty"`
}

// Basemap is a background tile layer.
type Basemap struct {
	ID    string
	Title string
	URL   string
}

// MapView is everything needed to render one map.
type MapView struct {
	Map           MapTemplate
	Points        []PointModel
	BasemapURL    string
	LimitVertex   int
	Extent        *Extent      // nil when the map has no points
	EditableLayer *LayerConfig // nil when the map has no editable layer
}
