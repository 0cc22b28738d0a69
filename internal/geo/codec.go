// Package geo encodes and decodes the compact GeoJSON geometry payloads stored
// in the search index and assembles them into FeatureCollection documents.
package geo

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/jobrunner/geofacet/internal/domain"
)

const (
	typeFeature    = "Feature"
	typeLineString = "LineString"
)

// payload is the union of a Feature and a bare geometry object.
type payload struct {
	Type        string          `json:"type"`
	Geometry    *geometryJSON   `json:"geometry,omitempty"`
	Coordinates json.RawMessage `json:"coordinates,omitempty"`
	Properties  *propertiesJSON `json:"properties,omitempty"`
}

type geometryJSON struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

type propertiesJSON struct {
	Address string `json:"address,omitempty"`
	Icon    string `json:"icon,omitempty"`
}

type featureJSON struct {
	Type       string         `json:"type"`
	Geometry   geometryJSON   `json:"geometry"`
	Properties propertiesJSON `json:"properties"`
}

// Decode parses a geometry payload. Both a Feature wrapper and a bare
// {"type","coordinates"} object are accepted. Unknown properties are dropped.
func Decode(raw string) (domain.Geometry, error) {
	var p payload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return domain.Geometry{}, &domain.ParseError{Input: raw, Reason: "invalid JSON", Err: err}
	}

	geomType, coords := p.Type, p.Coordinates
	if p.Type == typeFeature {
		if p.Geometry == nil {
			return domain.Geometry{}, &domain.ParseError{Input: raw, Reason: "feature without geometry"}
		}
		geomType, coords = p.Geometry.Type, p.Geometry.Coordinates
	}

	kind, err := domain.ParseGeometryKind(geomType)
	if err != nil {
		return domain.Geometry{}, &domain.ParseError{Input: raw, Reason: fmt.Sprintf("unsupported geometry type %q", geomType), Err: err}
	}
	if len(coords) == 0 {
		return domain.Geometry{}, &domain.ParseError{Input: raw, Reason: "missing coordinates"}
	}

	var props domain.GeometryProperties
	if p.Properties != nil {
		props = domain.GeometryProperties{Address: p.Properties.Address, Icon: p.Properties.Icon}
	}

	if kind == domain.KindPoint {
		c, err := decodePosition(coords)
		if err != nil {
			return domain.Geometry{}, &domain.ParseError{Input: raw, Reason: "point coordinates", Err: err}
		}
		return domain.NewPoint(c, props), nil
	}

	path, err := decodePath(kind, coords)
	if err != nil {
		return domain.Geometry{}, &domain.ParseError{Input: raw, Reason: kind.String() + " coordinates", Err: err}
	}
	return domain.NewPath(kind, path, props), nil
}

func decodePosition(raw json.RawMessage) (domain.Coordinate, error) {
	var pos []float64
	if err := json.Unmarshal(raw, &pos); err != nil {
		return domain.Coordinate{}, err
	}
	if len(pos) != 2 {
		return domain.Coordinate{}, fmt.Errorf("position has %d values, want 2", len(pos))
	}
	return domain.NewCoordinate(pos[0], pos[1]), nil
}

// decodePath reads a polyline ([[x,y],...]) or a polygon. Polygons are
// accepted as a single ring ([[[x,y],...]]) or as a flat vertex list.
func decodePath(kind domain.GeometryKind, raw json.RawMessage) ([]domain.Coordinate, error) {
	if kind == domain.KindPolygon && nestingDepth(raw) == 3 {
		var rings [][]json.RawMessage
		if err := json.Unmarshal(raw, &rings); err != nil {
			return nil, err
		}
		if len(rings) != 1 {
			return nil, fmt.Errorf("polygon has %d rings, want 1", len(rings))
		}
		return decodePositions(rings[0])
	}

	var positions []json.RawMessage
	if err := json.Unmarshal(raw, &positions); err != nil {
		return nil, err
	}
	return decodePositions(positions)
}

func decodePositions(raw []json.RawMessage) ([]domain.Coordinate, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("no vertices")
	}
	path := make([]domain.Coordinate, 0, len(raw))
	for i, r := range raw {
		c, err := decodePosition(r)
		if err != nil {
			return nil, fmt.Errorf("vertex %d: %w", i, err)
		}
		path = append(path, c)
	}
	return path, nil
}

// nestingDepth counts the leading '[' of a JSON array.
func nestingDepth(raw json.RawMessage) int {
	depth := 0
	for _, b := range bytes.TrimSpace(raw) {
		switch b {
		case '[':
			depth++
		case ' ', '\t', '\r', '\n':
		default:
			return depth
		}
	}
	return depth
}

// DecodePolygon parses "x,y;x,y;..." into a polygon or polyline.
func DecodePolygon(coordinates string, kind domain.GeometryKind) (domain.Geometry, error) {
	if kind != domain.KindPolygon && kind != domain.KindPolyline {
		return domain.Geometry{}, &domain.ValidationError{
			Field:      "kind",
			Value:      kind.String(),
			Constraint: "Polygon|Polyline",
			Message:    "vertex lists describe polygons or polylines only",
		}
	}
	if strings.TrimSpace(coordinates) == "" {
		return domain.Geometry{}, &domain.ParseError{Input: coordinates, Reason: "no vertices"}
	}

	groups := strings.Split(coordinates, ";")
	path := make([]domain.Coordinate, 0, len(groups))
	for i, group := range groups {
		parts := strings.Split(group, ",")
		if len(parts) != 2 {
			return domain.Geometry{}, &domain.ParseError{
				Input:  coordinates,
				Reason: fmt.Sprintf("vertex %d: want \"x,y\", got %q", i, group),
			}
		}
		x, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		if err != nil {
			return domain.Geometry{}, &domain.ParseError{Input: coordinates, Reason: fmt.Sprintf("vertex %d x", i), Err: err}
		}
		y, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			return domain.Geometry{}, &domain.ParseError{Input: coordinates, Reason: fmt.Sprintf("vertex %d y", i), Err: err}
		}
		path = append(path, domain.NewCoordinate(x, y))
	}

	return domain.NewPath(kind, path, domain.GeometryProperties{}), nil
}

// Encode serializes a geometry as a GeoJSON Feature. Polylines are written as
// LineString and polygons as a single ring.
func Encode(g domain.Geometry) (string, error) {
	var (
		typ    string
		coords any
	)
	switch g.Kind {
	case domain.KindPoint:
		typ, coords = g.Kind.String(), g.Point.Pair()
	case domain.KindPolygon:
		typ, coords = g.Kind.String(), [][][2]float64{pairs(g.Path)}
	case domain.KindPolyline:
		typ, coords = typeLineString, pairs(g.Path)
	default:
		return "", &domain.ValidationError{Field: "kind", Value: g.Kind.String(), Message: "cannot encode geometry"}
	}

	rawCoords, err := json.Marshal(coords)
	if err != nil {
		return "", fmt.Errorf("encoding coordinates: %w", err)
	}

	out, err := json.Marshal(featureJSON{
		Type:     typeFeature,
		Geometry: geometryJSON{Type: typ, Coordinates: rawCoords},
		Properties: propertiesJSON{
			Address: g.Properties.Address,
			Icon:    g.Properties.Icon,
		},
	})
	if err != nil {
		return "", fmt.Errorf("encoding feature: %w", err)
	}
	return string(out), nil
}

func pairs(path []domain.Coordinate) [][2]float64 {
	out := make([][2]float64, len(path))
	for i, c := range path {
		out[i] = c.Pair()
	}
	return out
}
