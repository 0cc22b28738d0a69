package domain

import "fmt"

// GeometryKind is the discriminator of the Geometry variant.
type GeometryKind int

// Geometry kinds.
const (
	KindPoint GeometryKind = iota + 1
	KindPolygon
	KindPolyline
)

// String returns the kind name used by the map layer and the geometry builder.
func (k GeometryKind) String() string {
	switch k {
	case KindPoint:
		return "Point"
	case KindPolygon:
		return "Polygon"
	case KindPolyline:
		return "Polyline"
	default:
		return fmt.Sprintf("GeometryKind(%d)", int(k))
	}
}

// MarshalText encodes the kind by name.
func (k GeometryKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// ParseGeometryKind parses "Point", "Polygon" or "Polyline".
// "LineString" is accepted as an alias of Polyline.
func ParseGeometryKind(s string) (GeometryKind, error) {
	switch s {
	case "Point":
		return KindPoint, nil
	case "Polygon":
		return KindPolygon, nil
	case "Polyline", "LineString":
		return KindPolyline, nil
	default:
		return 0, &ValidationError{
			Field:      "kind",
			Value:      s,
			Constraint: "Point|Polygon|Polyline",
			Message:    "unsupported geometry kind",
		}
	}
}

// GeometryProperties holds the documented feature properties.
// Unknown keys found in a payload are dropped at decode time.
type GeometryProperties struct {
	Address string // Postal address shown in popups
	Icon    string // Icon identifier before resolution, display path after
}

// Geometry is a Point, Polygon or Polyline with its properties.
//
// For KindPoint only Point is meaningful; for KindPolygon and KindPolyline only
// Path is. Path keeps the vertex order exactly as received.
type Geometry struct {
	Kind       GeometryKind
	Point      Coordinate
	Path       []Coordinate
	Properties GeometryProperties
}

// NewPoint creates a point geometry.
func NewPoint(c Coordinate, props GeometryProperties) Geometry {
	return Geometry{Kind: KindPoint, Point: c, Properties: props}
}

// NewPath creates a polygon or polyline geometry.
func NewPath(kind GeometryKind, path []Coordinate, props GeometryProperties) Geometry {
	return Geometry{Kind: kind, Path: path, Properties: props}
}

// IsPoint returns true if the geometry is a point.
func (g Geometry) IsPoint() bool {
	return g.Kind == KindPoint
}

// Coordinates returns every vertex of the geometry.
func (g Geometry) Coordinates() []Coordinate {
	if g.Kind == KindPoint {
		return []Coordinate{g.Point}
	}
	return g.Path
}

// VertexCount returns the number of vertices.
func (g Geometry) VertexCount() int {
	return len(g.Coordinates())
}

// WithIcon returns a copy of the geometry whose icon property is replaced.
func (g Geometry) WithIcon(icon string) Geometry {
	out := g
	out.Path = append([]Coordinate(nil), g.Path...)
	out.Properties.Icon = icon
	return out
}

// Equal reports whether two geometries have the same kind, coordinates and
// properties.
func (g Geometry) Equal(o Geometry) bool {
	if g.Kind != o.Kind || g.Properties != o.Properties {
		return false
	}
	if g.Kind == KindPoint {
		return g.Point == o.Point
	}
	if len(g.Path) != len(o.Path) {
		return false
	}
	for i := range g.Path {
		if g.Path[i] != o.Path[i] {
			return false
		}
	}
	return true
}
