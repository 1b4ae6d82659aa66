package geo

import (
	"fmt"
	"math"
)

// FormatDecimal renders c as "lat, lng" with six decimals.
func FormatDecimal(c Coordinate) string {
	return fmt.Sprintf("%.6f, %.6f", c.Lat, c.Lng)
}

// FormatDMS renders c in degrees, minutes and seconds with hemisphere letters.
func FormatDMS(c Coordinate) string {
	latDir := "N"
	if c.Lat < 0 {
		latDir = "S"
	}
	lngDir := "E"
	if c.Lng < 0 {
		lngDir = "W"
	}
	return dms(c.Lat) + latDir + " " + dms(c.Lng) + lngDir
}

func dms(v float64) string {
	abs := math.Abs(v)
	deg := math.Floor(abs)
	minutes := math.Floor((abs - deg) * 60)
	sec := (abs - deg - minutes/60) * 3600
	return fmt.Sprintf("%d°%d'%.1f\"", int(deg), int(minutes), sec)
}

// FormatDistance renders meters as "120 m" or, from one kilometer up, "1.25 km".
func FormatDistance(meters float64) string {
	if meters < 1000 {
		return fmt.Sprintf("%d m", int(math.Round(meters)))
	}
	return fmt.Sprintf("%.2f km", meters/1000)
}

// MapsURL returns a map-service link centred on c.
func MapsURL(c Coordinate) string {
	return fmt.Sprintf("https://www.google.com/maps?q=%g,%g", c.Lat, c.Lng)
}
