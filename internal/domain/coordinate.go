// Package domain contains the core business entities and value objects.
package domain

import (
	"fmt"
	"math"
)

// Coordinate is a WGS84 position. Order is always (lon, lat).
type Coordinate struct {
	Lon float64
	Lat float64
}

// NewCoordinate creates a coordinate from longitude and latitude.
func NewCoordinate(lon, lat float64) Coordinate {
	return Coordinate{Lon: lon, Lat: lat}
}

// Validate checks that the coordinate is a finite CRS84 position.
func (c Coordinate) Validate() error {
	if math.IsNaN(c.Lon) || math.IsInf(c.Lon, 0) || c.Lon < -180 || c.Lon > 180 {
		return &ValidationError{
			Field:      "longitude",
			Value:      c.Lon,
			Constraint: "[-180, 180]",
			Message:    "longitude must be between -180 and 180",
		}
	}
	if math.IsNaN(c.Lat) || math.IsInf(c.Lat, 0) || c.Lat < -90 || c.Lat > 90 {
		return &ValidationError{
			Field:      "latitude",
			Value:      c.Lat,
			Constraint: "[-90, 90]",
			Message:    "latitude must be between -90 and 90",
		}
	}
	return nil
}

// Pair returns the coordinate as a [lon, lat] pair.
func (c Coordinate) Pair() [2]float64 {
	return [2]float64{c.Lon, c.Lat}
}

// String returns a string representation of the coordinate.
func (c Coordinate) String() string {
	return fmt.Sprintf("(%g %g)", c.Lon, c.Lat)
}

// Extent represents a spatial bounding box.
type Extent struct {
	MinLon float64
	MinLat float64
	MaxLon float64
	MaxLat float64
}

// ExtentOf returns the bounding box of the given coordinates.
func ExtentOf(coords []Coordinate) (Extent, bool) {
	if len(coords) == 0 {
		return Extent{}, false
	}
	e := Extent{
		MinLon: coords[0].Lon, MaxLon: coords[0].Lon,
		MinLat: coords[0].Lat, MaxLat: coords[0].Lat,
	}
	for _, c := range coords[1:] {
		e.MinLon = math.Min(e.MinLon, c.Lon)
		e.MaxLon = math.Max(e.MaxLon, c.Lon)
		e.MinLat = math.Min(e.MinLat, c.Lat)
		e.MaxLat = math.Max(e.MaxLat, c.Lat)
	}
	return e, true
}

// Contains checks if a coordinate is within the extent.
func (e Extent) Contains(c Coordinate) bool {
	return c.Lon >= e.MinLon && c.Lon <= e.MaxLon && c.Lat >= e.MinLat && c.Lat <= e.MaxLat
}

// Center returns the center coordinate of the extent.
func (e Extent) Center() Coordinate {
	return Coordinate{
		Lon: (e.MinLon + e.MaxLon) / 2,
		Lat: (e.MinLat + e.MaxLat) / 2,
	}
}
