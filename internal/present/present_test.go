package present

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elofiber/viabilidade-ftth/internal/apiclient"
	"github.com/elofiber/viabilidade-ftth/internal/geo"
	"github.com/elofiber/viabilidade-ftth/internal/history"
	"github.com/elofiber/viabilidade-ftth/internal/proximity"
	"github.com/elofiber/viabilidade-ftth/internal/viability"
	"github.com/elofiber/viabilidade-ftth/internal/warehouse"
)

var center = geo.Coordinate{Lat: -23.55052, Lng: -46.633308}

func candidate(id string, distanceM float64, available int) proximity.Candidate {
	loc := geo.Destination(center, 90, distanceM)
	r := viability.Classify(distanceM, available)
	return proximity.Candidate{
		CTO: warehouse.CTO{
			ID:                id,
			Name:              "CTO " + id,
			Address:           "Rua " + id,
			CapacityTotal:     16,
			CapacityAvailable: available,
			DistanceM:         distanceM,
			Lat:               loc.Lat,
			Lng:               loc.Lng,
		},
		Viabilidade: r.Label(),
		Level:       r.Level,
	}
}

func TestDefaultTheme(t *testing.T) {
	theme := DefaultTheme()
	assert.Equal(t, viability.High.Color(), string(theme.Success))
	assert.Equal(t, viability.Low.Color(), string(theme.Error))
	assert.NotNil(t, NewStyles(nil))
}

func TestCandidateTable(t *testing.T) {
	p := NewPrinter(&bytes.Buffer{}, nil)
	out := p.CandidateTable([]proximity.Candidate{
		candidate("A", 120, 5),
		candidate("B", 1250, 0),
	})

	assert.Contains(t, out, "Distância")
	assert.Contains(t, out, "CTO A")
	assert.Contains(t, out, "120 m")
	assert.Contains(t, out, "5/16")
	assert.Contains(t, out, "ALTA - Dentro do raio e com capacidade")
	assert.Contains(t, out, "1.25 km")
	assert.Contains(t, out, "BAIXA - Fora do raio ou sem capacidade")
	assert.Less(t, bytes.Index([]byte(out), []byte("CTO A")), bytes.Index([]byte(out), []byte("CTO B")))
}

func TestViabilityReport(t *testing.T) {
	resp := &apiclient.ViabilityResponse{
		Success: true,
		Overall: viability.Overall(1),
		Viable:  true,
		Results: []proximity.Candidate{candidate("A", 120, 5)},
		Recommendations: viability.Recommendations(&viability.Nearest{
			DistanceM: 120,
			Available: 5,
		}),
	}
	resp.Metadata.Query.Latitude = center.Lat
	resp.Metadata.Query.Longitude = center.Lng
	resp.Metadata.RadiusM = 500

	var buf bytes.Buffer
	NewPrinter(&buf, nil).Viability("-23.55052, -46.633308", resp)
	out := buf.String()

	assert.Contains(t, out, "-23.550520, -46.633308")
	assert.Contains(t, out, "500 m")
	assert.Contains(t, out, "VIÁVEL")
	assert.Contains(t, out, "CTO A")
	assert.Contains(t, out, "✅ CTO dentro do raio padrão de 300m")
}

func TestViabilityReportWithoutResults(t *testing.T) {
	resp := &apiclient.ViabilityResponse{
		Overall:         viability.Overall(0),
		Results:         []proximity.Candidate{},
		Recommendations: viability.Recommendations(nil),
	}

	var buf bytes.Buffer
	NewPrinter(&buf, nil).Viability("", resp)
	out := buf.String()

	assert.Contains(t, out, "NÃO VIÁVEL")
	assert.Contains(t, out, "Nenhuma CTO encontrada no raio especificado")
	assert.NotContains(t, out, "Endereço")
}

func TestInfrastructureReport(t *testing.T) {
	cto := candidate("A", 80, 2)
	resp := &apiclient.InfrastructureResponse{
		Infrastructure: proximity.Infrastructure{
			CTOCount:   1,
			POPCount:   1,
			NearestCTO: &cto,
			NearestPOP: &warehouse.POP{ID: "POP-1", Name: "POP Centro", OLTType: "GPON", PortsAvailable: 12, DistanceM: 640},
			CTOs:       []proximity.Candidate{cto},
			POPs:       []warehouse.POP{{ID: "POP-1", Name: "POP Centro", OLTType: "GPON", PortsAvailable: 12, DistanceM: 640}},
		},
	}

	var buf bytes.Buffer
	NewPrinter(&buf, nil).Infrastructure(resp)
	out := buf.String()

	assert.Contains(t, out, "CTO A a 80 m")
	assert.Contains(t, out, "POP Centro a 640 m")
	assert.Contains(t, out, "GPON")
	assert.Contains(t, out, "Portas livres")
}

func TestStatsReport(t *testing.T) {
	last := history.Entry{Input: "Av. Paulista", Coordinate: center, Timestamp: time.Now(), ResultCount: 3}
	server := &apiclient.StatsResponse{Stats: warehouse.Stats{TotalCTOs: 10, WithCapacity: 7, WithoutCapacity: 3, MeanCapacity: 4.5}}

	var buf bytes.Buffer
	NewPrinter(&buf, nil).Stats(server, &history.Summary{Total: 4, WithResults: 3, MeanResults: 2.5, Last: &last})
	out := buf.String()

	assert.Contains(t, out, "Total: 10")
	assert.Contains(t, out, "Capacidade média: 4.5")
	assert.Contains(t, out, "Consultas: 4")
	assert.Contains(t, out, "Média de resultados: 2.5")
	assert.Contains(t, out, "Av. Paulista")
}

func TestHistory(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, nil)

	p.History(nil)
	assert.Contains(t, buf.String(), "Nenhuma consulta no histórico")

	buf.Reset()
	p.History([]history.Entry{{Input: "link", Coordinate: center, Timestamp: time.Now(), ResultCount: 2}})
	assert.Contains(t, buf.String(), "-23.550520, -46.633308")
	assert.Contains(t, buf.String(), "link")
}

func TestExtractionFailed(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf, nil).ExtractionFailed("rua sem número")
	assert.Contains(t, buf.String(), "rua sem número")
	assert.Contains(t, buf.String(), "Tente novamente")
}

func TestMap(t *testing.T) {
	fc, err := Map(center, 300, []proximity.Candidate{candidate("A", 120, 5), candidate("B", 450, 0)})
	require.NoError(t, err)
	require.Len(t, fc.Features, 4)

	assert.Equal(t, "consulta", fc.Features[0].ID)
	assert.Equal(t, "raio", fc.Features[1].ID)
	assert.Equal(t, "A", fc.Features[2].ID)
	assert.Equal(t, viability.High.Color(), fc.Features[2].Properties["marker-color"])
	assert.Equal(t, viability.Low.Color(), fc.Features[3].Properties["marker-color"])
}

func TestMapCircle(t *testing.T) {
	poly, err := circleGeometry(center, 300)
	require.NoError(t, err)

	ring := poly.LinearRing(0)
	require.Equal(t, CircleSegments+1, ring.NumCoords())
	assert.Equal(t, ring.Coord(0), ring.Coord(CircleSegments))

	for i := 0; i < CircleSegments; i++ {
		c := ring.Coord(i)
		d := geo.Distance(center, geo.Coordinate{Lat: c.Y(), Lng: c.X()})
		assert.InDelta(t, 300, d, 0.5)
	}
}

func TestMarshalMap(t *testing.T) {
	data, err := MarshalMap(center, 300, []proximity.Candidate{candidate("A", 120, 5)})
	require.NoError(t, err)

	var doc struct {
		Type     string `json:"type"`
		Features []struct {
			Geometry struct {
				Type string `json:"type"`
			} `json:"geometry"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "FeatureCollection", doc.Type)
	require.Len(t, doc.Features, 3)
	assert.Equal(t, "Point", doc.Features[0].Geometry.Type)
	assert.Equal(t, "Polygon", doc.Features[1].Geometry.Type)
	assert.Equal(t, "Point", doc.Features[2].Geometry.Type)
}
