package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCoordinateValid(t *testing.T) {
	assert.True(t, Coordinate{Lat: 90, Lng: 180}.Valid())
	assert.True(t, Coordinate{Lat: -90, Lng: -180}.Valid())
	assert.False(t, Coordinate{Lat: 90.0001, Lng: 0}.Valid())
	assert.False(t, Coordinate{Lat: 0, Lng: -180.5}.Valid())
	assert.False(t, Coordinate{Lat: math.NaN(), Lng: 0}.Valid())
}

func TestDistance(t *testing.T) {
	se := Coordinate{Lat: -23.55052, Lng: -46.633308}
	assert.Equal(t, 0.0, Distance(se, se))

	// one degree of latitude is ~111.19 km on the mean sphere
	d := Distance(Coordinate{Lat: 0, Lng: 0}, Coordinate{Lat: 1, Lng: 0})
	assert.InDelta(t, 111195, d, 1)

	// symmetric
	other := Coordinate{Lat: -22.906847, Lng: -43.172897}
	assert.InDelta(t, Distance(se, other), Distance(other, se), 1e-6)
}

func TestDestinationRoundTrip(t *testing.T) {
	origin := Coordinate{Lat: -23.55052, Lng: -46.633308}
	for _, bearing := range []float64{0, 45, 90, 180, 270} {
		p := Destination(origin, bearing, 300)
		assert.InDelta(t, 300, Distance(origin, p), 0.01, "bearing %v", bearing)
	}
}

func TestFormatting(t *testing.T) {
	c := Coordinate{Lat: -23.55052, Lng: -46.633308}
	assert.Equal(t, "-23.550520, -46.633308", FormatDecimal(c))
	assert.Equal(t, "23°33'1.9\"S 46°37'59.9\"W", FormatDMS(c))
	assert.Equal(t, "120 m", FormatDistance(119.6))
	assert.Equal(t, "1.25 km", FormatDistance(1250))
	assert.Equal(t, "https://www.google.com/maps?q=-23.55052,-46.633308", MapsURL(c))
}
