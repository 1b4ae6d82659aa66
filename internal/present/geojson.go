package present

import (
	"encoding/json"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/elofiber/viabilidade-ftth/internal/geo"
	"github.com/elofiber/viabilidade-ftth/internal/proximity"
)

// CircleSegments is the number of edges of the radius overlay.
const CircleSegments = 64

// Map builds a FeatureCollection with the query point, the search radius as
// a polygon and one marker per candidate coloured by its rating.
func Map(center geo.Coordinate, radiusM float64, candidates []proximity.Candidate) (*geojson.FeatureCollection, error) {
	fc := &geojson.FeatureCollection{
		Features: make([]*geojson.Feature, 0, len(candidates)+2),
	}

	query, err := pointGeometry(center)
	if err != nil {
		return nil, err
	}
	fc.Features = append(fc.Features, &geojson.Feature{
		ID:       "consulta",
		Geometry: query,
		Properties: map[string]interface{}{
			"tipo":          "consulta",
			"marker-color":  "#3b82f6",
			"marker-symbol": "star",
		},
	})

	circle, err := circleGeometry(center, radiusM)
	if err != nil {
		return nil, err
	}
	fc.Features = append(fc.Features, &geojson.Feature{
		ID:       "raio",
		Geometry: circle,
		Properties: map[string]interface{}{
			"tipo":         "raio",
			"raio_metros":  radiusM,
			"stroke":       "#3b82f6",
			"fill":         "#3b82f6",
			"fill-opacity": 0.1,
		},
	})

	for i, c := range candidates {
		pt, err := pointGeometry(c.Location())
		if err != nil {
			return nil, err
		}
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:       c.ID,
			Geometry: pt,
			Properties: map[string]interface{}{
				"tipo":                  "cto",
				"posicao":               i + 1,
				"nome":                  c.Name,
				"endereco":              c.Address,
				"distancia_metros":      c.DistanceM,
				"capacidade_disponivel": c.CapacityAvailable,
				"viabilidade":           c.Viabilidade,
				"marker-color":          c.Level.Color(),
			},
		})
	}
	return fc, nil
}

// MarshalMap is Map encoded as indented JSON.
func MarshalMap(center geo.Coordinate, radiusM float64, candidates []proximity.Candidate) ([]byte, error) {
	fc, err := Map(center, radiusM, candidates)
	if err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		return nil, eris.Wrap(err, "present: encode map")
	}
	return data, nil
}

func pointGeometry(c geo.Coordinate) (*geom.Point, error) {
	pt, err := geom.NewPoint(geom.XY).SetCoords(geom.Coord{c.Lng, c.Lat})
	if err != nil {
		return nil, eris.Wrap(err, "present: build point")
	}
	return pt, nil
}

// circleGeometry approximates the radius with a closed ring walked clockwise
// from north.
func circleGeometry(center geo.Coordinate, radiusM float64) (*geom.Polygon, error) {
	ring := make([]geom.Coord, 0, CircleSegments+1)
	for i := 0; i < CircleSegments; i++ {
		p := geo.Destination(center, float64(i)*360/CircleSegments, radiusM)
		ring = append(ring, geom.Coord{p.Lng, p.Lat})
	}
	ring = append(ring, ring[0])

	poly, err := geom.NewPolygon(geom.XY).SetCoords([][]geom.Coord{ring})
	if err != nil {
		return nil, eris.Wrap(err, "present: build radius polygon")
	}
	return poly, nil
}
