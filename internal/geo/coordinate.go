// Package geo holds the coordinate model shared by the API, the loader and
// the CLI: range checks, great-circle distance, extraction of coordinates
// from pasted map links and human-readable formatting.
package geo

import "math"

const (
	// EarthRadiusM is the mean earth radius used for great-circle distances.
	EarthRadiusM = 6371e3

	MaxLat = 90.0
	MaxLng = 180.0
)

// Coordinate is a WGS84 point in decimal degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether both components are finite and inside their ranges.
func (c Coordinate) Valid() bool {
	return ValidLat(c.Lat) && ValidLng(c.Lng)
}

// ValidLat reports whether lat is a finite value in [-90, 90].
func ValidLat(lat float64) bool {
	return !math.IsNaN(lat) && math.Abs(lat) <= MaxLat
}

// ValidLng reports whether lng is a finite value in [-180, 180].
func ValidLng(lng float64) bool {
	return !math.IsNaN(lng) && math.Abs(lng) <= MaxLng
}

// Distance returns the haversine distance between a and b in meters.
func Distance(a, b Coordinate) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dlat := (b.Lat - a.Lat) * math.Pi / 180
	dlng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(lat1)*math.Cos(lat2)*
			math.Sin(dlng/2)*math.Sin(dlng/2)

	return EarthRadiusM * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// Destination returns the point reached by travelling distanceM meters from
// origin along the given initial bearing (degrees clockwise from north).
func Destination(origin Coordinate, bearingDeg, distanceM float64) Coordinate {
	lat1 := origin.Lat * math.Pi / 180
	lng1 := origin.Lng * math.Pi / 180
	brng := bearingDeg * math.Pi / 180
	ang := distanceM / EarthRadiusM

	lat2 := math.Asin(math.Sin(lat1)*math.Cos(ang) + math.Cos(lat1)*math.Sin(ang)*math.Cos(brng))
	lng2 := lng1 + math.Atan2(
		math.Sin(brng)*math.Sin(ang)*math.Cos(lat1),
		math.Cos(ang)-math.Sin(lat1)*math.Sin(lat2),
	)

	lng := lng2 * 180 / math.Pi
	// normalise to [-180, 180)
	lng = math.Mod(lng+540, 360) - 180
	return Coordinate{Lat: lat2 * 180 / math.Pi, Lng: lng}
}
