package domain

import (
	"errors"
	"testing"
)

func TestParseGeometryKind(t *testing.T) {
	tests := []struct {
		in      string
		want    GeometryKind
		wantErr bool
	}{
		{in: "Point", want: KindPoint},
		{in: "Polygon", want: KindPolygon},
		{in: "Polyline", want: KindPolyline},
		{in: "LineString", want: KindPolyline},
		{in: "point", wantErr: true},
		{in: "MultiPolygon", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseGeometryKind(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseGeometryKind(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidInput) {
				t.Errorf("error should wrap ErrInvalidInput, got %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseGeometryKind(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestGeometryKindString(t *testing.T) {
	if KindPolyline.String() != "Polyline" {
		t.Errorf("KindPolyline.String() = %q", KindPolyline.String())
	}
	if GeometryKind(42).String() != "GeometryKind(42)" {
		t.Errorf("unknown kind String() = %q", GeometryKind(42).String())
	}
}

func TestGeometryCoordinates(t *testing.T) {
	point := NewPoint(NewCoordinate(1, 2), GeometryProperties{})
	if point.VertexCount() != 1 || point.Coordinates()[0] != NewCoordinate(1, 2) {
		t.Errorf("point Coordinates() = %v", point.Coordinates())
	}

	path := []Coordinate{NewCoordinate(1, 2), NewCoordinate(3, 4), NewCoordinate(5, 6)}
	line := NewPath(KindPolyline, path, GeometryProperties{})
	if line.VertexCount() != 3 {
		t.Errorf("line VertexCount() = %d, want 3", line.VertexCount())
	}
	if line.IsPoint() {
		t.Error("line IsPoint() = true")
	}
}

func TestGeometryWithIconDoesNotAlias(t *testing.T) {
	path := []Coordinate{NewCoordinate(1, 2), NewCoordinate(3, 4)}
	g := NewPath(KindPolygon, path, GeometryProperties{Icon: "park"})

	withIcon := g.WithIcon("/images/park.png")
	withIcon.Path[0] = NewCoordinate(9, 9)

	if g.Properties.Icon != "park" {
		t.Errorf("original icon changed to %q", g.Properties.Icon)
	}
	if g.Path[0] != NewCoordinate(1, 2) {
		t.Error("WithIcon should copy the path")
	}
	if withIcon.Properties.Icon != "/images/park.png" {
		t.Errorf("WithIcon icon = %q", withIcon.Properties.Icon)
	}
}

func TestGeometryEqual(t *testing.T) {
	a := NewPath(KindPolygon, []Coordinate{NewCoordinate(1, 2), NewCoordinate(3, 4)}, GeometryProperties{Address: "x"})
	b := NewPath(KindPolygon, []Coordinate{NewCoordinate(1, 2), NewCoordinate(3, 4)}, GeometryProperties{Address: "x"})
	reversed := NewPath(KindPolygon, []Coordinate{NewCoordinate(3, 4), NewCoordinate(1, 2)}, GeometryProperties{Address: "x"})
	line := NewPath(KindPolyline, []Coordinate{NewCoordinate(1, 2), NewCoordinate(3, 4)}, GeometryProperties{Address: "x"})

	if !a.Equal(b) {
		t.Error("identical polygons should be equal")
	}
	if a.Equal(reversed) {
		t.Error("vertex order is significant")
	}
	if a.Equal(line) {
		t.Error("kind is significant")
	}
}
