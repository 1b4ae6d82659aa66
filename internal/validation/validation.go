// Package validation range-checks raw request parameters before any
// warehouse query is issued.
//
// Coordinates fail closed. The radius degrades: an unusable radius is
// reported as invalid but the result still carries the default, and the
// caller decides whether to reject the request or proceed.
package validation

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/elofiber/viabilidade-ftth/internal/geo"
)

const (
	DefaultRadius = 300
	MaxRadius     = 2000
)

const (
	msgCoordinatesRequired = "Latitude e longitude são obrigatórios"
	msgLatNotNumber        = "Latitude deve ser um número válido"
	msgLngNotNumber        = "Longitude deve ser um número válido"
	msgLatRange            = "Latitude deve estar entre -90 e 90 graus"
	msgLngRange            = "Longitude deve estar entre -180 e 180 graus"
	msgRadiusPositive      = "Raio deve ser um número positivo"
)

// CoordinateResult is the outcome of ValidateCoordinates.
type CoordinateResult struct {
	Valid      bool
	Errors     []string
	Coordinate geo.Coordinate
}

// RadiusResult is the outcome of ValidateRadius. Radius is always usable.
type RadiusResult struct {
	Valid  bool
	Radius int
	Error  string
}

// Validator holds the radius policy. The zero value is not useful; use New.
type Validator struct {
	DefaultRadius int
	MaxRadius     int
}

// New returns a Validator with the given radius default and ceiling.
func New(defaultRadius, maxRadius int) Validator {
	return Validator{DefaultRadius: defaultRadius, MaxRadius: maxRadius}
}

var std = New(DefaultRadius, MaxRadius)

// ValidateCoordinates checks raw latitude and longitude strings.
func ValidateCoordinates(rawLat, rawLng string) CoordinateResult {
	return std.ValidateCoordinates(rawLat, rawLng)
}

// ValidateRadius checks a raw radius string with the default policy.
func ValidateRadius(raw string) RadiusResult {
	return std.ValidateRadius(raw)
}

// ValidateCoordinates checks raw latitude and longitude strings.
func (v Validator) ValidateCoordinates(rawLat, rawLng string) CoordinateResult {
	rawLat = strings.TrimSpace(rawLat)
	rawLng = strings.TrimSpace(rawLng)
	if rawLat == "" || rawLng == "" {
		return CoordinateResult{Errors: []string{msgCoordinatesRequired}}
	}

	var errs []string
	lat, latOK := parseFinite(rawLat)
	if !latOK {
		errs = append(errs, msgLatNotNumber)
	}
	lng, lngOK := parseFinite(rawLng)
	if !lngOK {
		errs = append(errs, msgLngNotNumber)
	}
	if latOK && !geo.ValidLat(lat) {
		errs = append(errs, msgLatRange)
	}
	if lngOK && !geo.ValidLng(lng) {
		errs = append(errs, msgLngRange)
	}

	return CoordinateResult{
		Valid:      len(errs) == 0,
		Errors:     errs,
		Coordinate: geo.Coordinate{Lat: lat, Lng: lng},
	}
}

// ValidateRadius checks a raw radius string. Decimal input is truncated.
func (v Validator) ValidateRadius(raw string) RadiusResult {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return RadiusResult{Valid: true, Radius: v.DefaultRadius}
	}

	radius, ok := parseRadius(raw)
	if !ok || radius <= 0 {
		return RadiusResult{Radius: v.DefaultRadius, Error: msgRadiusPositive}
	}
	if radius > v.MaxRadius {
		return RadiusResult{
			Radius: v.DefaultRadius,
			Error:  fmt.Sprintf("Raio máximo permitido é %dm", v.MaxRadius),
		}
	}
	return RadiusResult{Valid: true, Radius: radius}
}

func parseFinite(raw string) (float64, bool) {
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func parseRadius(raw string) (int, bool) {
	if n, err := strconv.Atoi(raw); err == nil {
		return n, true
	}
	f, ok := parseFinite(raw)
	if !ok || math.Abs(f) > math.MaxInt32 {
		return 0, false
	}
	return int(math.Trunc(f)), true
}
