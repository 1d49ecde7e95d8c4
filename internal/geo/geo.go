package geo

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/waterrocket/simulator/pkg/core"
	"github.com/wroge/wgs84"
)

// GEO POINTS
// Launch sites are always stored as EPSG:3857 so SQLite, which has no spatial
// awareness, can still round-trip them through the WKB Scan/Value functions.

// ErrInvalidCoordinates is returned when the coordinates are invalid
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

// maxMercatorLatitude is the latitude where Web Mercator runs off to infinity.
const maxMercatorLatitude = 85.05112878

// ParseLonLat parses a "long,lat" string into WGS84 degrees
func ParseLonLat(coords string) (lon, lat float64, err error) {
	coordsSplit := strings.Split(coords, ",")
	if len(coordsSplit) != 2 {
		return 0, 0, ErrInvalidCoordinates
	}
	lon, err = strconv.ParseFloat(strings.TrimSpace(coordsSplit[0]), 64)
	if err != nil {
		return 0, 0, ErrInvalidCoordinates
	}
	lat, err = strconv.ParseFloat(strings.TrimSpace(coordsSplit[1]), 64)
	if err != nil {
		return 0, 0, ErrInvalidCoordinates
	}
	if !validLonLat(lon, lat) {
		return 0, 0, ErrInvalidCoordinates
	}
	return lon, lat, nil
}

func validLonLat(lon, lat float64) bool {
	if math.IsNaN(lon) || math.IsNaN(lat) {
		return false
	}
	return lon >= -180 && lon <= 180 && lat >= -maxMercatorLatitude && lat <= maxMercatorLatitude
}

// Coords3857From4326 creates a GPS point from a longitude and latitude
func Coords3857From4326(
	longitude float64,
	latitude float64,
) (
	point geom.Point,
	err error,
) {
	if !validLonLat(longitude, latitude) {
		return geom.NewEmptyPoint(geom.DimXY), ErrInvalidCoordinates
	}
	epsg := wgs84.EPSG()
	f := epsg.Transform(4326, 3857)
	x, y, _ := f(longitude, latitude, 0)
	point, err = geom.NewPoint(
		geom.Coordinates{
			XY: geom.XY{X: x, Y: y},
		},
	)
	if err != nil {
		return geom.NewEmptyPoint(geom.DimXY), err
	}
	return point, nil
}

// Coords4326From3857 reverses Coords3857From4326. An empty point yields ok=false.
func Coords4326From3857(point geom.Point) (longitude, latitude float64, ok bool) {
	coords, ok := point.Coordinates()
	if !ok {
		return 0, 0, false
	}
	f := wgs84.EPSG().Transform(3857, 4326)
	longitude, latitude, _ = f(coords.X, coords.Y, 0)
	return longitude, latitude, true
}

// FlightProfile builds a height-over-time line (X = seconds, Y = metres) from a
// trajectory. Fewer than two samples give an empty line. A non-finite time or
// height is an error.
func FlightProfile(samples []core.SimulationState) (geom.LineString, error) {
	if len(samples) < 2 {
		return geom.LineString{}, nil
	}
	flat := make([]float64, 0, len(samples)*2)
	for i, s := range samples {
		if !isFinite(s.Time) || !isFinite(s.Height) {
			return geom.LineString{}, fmt.Errorf("invalid flight profile: sample %d is not finite", i)
		}
		flat = append(flat, s.Time, s.Height)
	}
	line, err := geom.NewLineString(geom.NewSequence(flat, geom.DimXY))
	if err != nil {
		return geom.LineString{}, fmt.Errorf("invalid flight profile: %w", err)
	}
	return line, nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
