package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/elofiber/viabilidade-ftth/internal/geo"
	"github.com/elofiber/viabilidade-ftth/internal/history"
	"github.com/elofiber/viabilidade-ftth/internal/proximity"
	"github.com/elofiber/viabilidade-ftth/internal/warehouse"
	"github.com/elofiber/viabilidade-ftth/services/api/config"
	httpserver "github.com/elofiber/viabilidade-ftth/services/api/http"
)

var origin = geo.Coordinate{Lat: -23.55052, Lng: -46.633308}

func ctoAt(id string, distanceM float64, available int) warehouse.CTO {
	loc := geo.Destination(origin, 90, distanceM)
	return warehouse.CTO{ID: id, Name: "CTO " + id, Address: "Rua " + id, CapacityTotal: 16, CapacityAvailable: available, Lat: loc.Lat, Lng: loc.Lng}
}

// newAPI serves the real API over the in-memory warehouse.
func newAPI(t *testing.T, ctos []warehouse.CTO) string {
	t.Helper()
	cfg := config.Config{Port: 3001, FrontendURL: "http://localhost:3000", QueryTimeout: 5 * time.Second}
	svc := proximity.New(warehouse.NewMemory(ctos, nil), proximity.WithLogger(zap.NewNop()))
	srv := httptest.NewServer(httpserver.New(cfg, svc, httpserver.Deps{Logger: zap.NewNop()}).Engine())
	t.Cleanup(srv.Close)
	return srv.URL
}

func run(t *testing.T, historyPath string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd(&out)
	root.SetArgs(append([]string{"--history", historyPath}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCheck(t *testing.T) {
	api := newAPI(t, []warehouse.CTO{ctoAt("1", 120, 5), ctoAt("2", 250, 0)})
	dir := t.TempDir()
	hist := filepath.Join(dir, "history.db")
	mapPath := filepath.Join(dir, "mapa.geojson")

	out, err := run(t, hist, "--api-url", api, "check", "https://www.google.com/maps/@-23.55052,-46.633308,17z", "--map", mapPath)
	require.NoError(t, err)

	assert.Contains(t, out, "VIÁVEL")
	assert.Contains(t, out, "CTO 1")
	assert.Contains(t, out, "CTO 2")
	assert.Contains(t, out, "120 m")
	assert.Contains(t, out, "✅ Capacidade disponível para nova instalação")
	assert.Contains(t, out, "Mapa salvo em "+mapPath)

	data, err := os.ReadFile(mapPath)
	require.NoError(t, err)
	var fc struct {
		Features []json.RawMessage `json:"features"`
	}
	require.NoError(t, json.Unmarshal(data, &fc))
	assert.Len(t, fc.Features, 4)

	store, err := history.Open(hist)
	require.NoError(t, err)
	defer store.Close()
	entries, err := store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 2, entries[0].ResultCount)
	assert.InDelta(t, origin.Lat, entries[0].Coordinate.Lat, 1e-9)
}

func TestCheckBareCoordinatesAcrossArgs(t *testing.T) {
	api := newAPI(t, nil)

	out, err := run(t, filepath.Join(t.TempDir(), "h.db"), "--api-url", api, "check", "--radius", "500", "--", "-23.55052,", "-46.633308")
	require.NoError(t, err)
	assert.Contains(t, out, "NÃO VIÁVEL")
	assert.Contains(t, out, "500 m")
	assert.Contains(t, out, "Nenhuma CTO encontrada no raio especificado")
}

func TestCheckExtractionFailure(t *testing.T) {
	out, err := run(t, filepath.Join(t.TempDir(), "h.db"), "--api-url", "http://127.0.0.1:1", "check", "rua", "sem", "número")
	require.ErrorIs(t, err, errNoCoordinate)
	assert.Contains(t, out, "Tente novamente")
}

func TestCheckValidationError(t *testing.T) {
	api := newAPI(t, nil)

	_, err := run(t, filepath.Join(t.TempDir(), "h.db"), "--api-url", api, "check", "--radius", "5000", "--", "-23.55052,-46.633308")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
}

func TestInfra(t *testing.T) {
	api := newAPI(t, []warehouse.CTO{ctoAt("1", 80, 3)})

	out, err := run(t, filepath.Join(t.TempDir(), "h.db"), "--api-url", api, "infra", "--", "-23.55052, -46.633308")
	require.NoError(t, err)
	assert.Contains(t, out, "CTO 1 a 80 m")
}

func TestStatsAndHistory(t *testing.T) {
	api := newAPI(t, []warehouse.CTO{ctoAt("1", 80, 3), ctoAt("2", 900, 0)})
	hist := filepath.Join(t.TempDir(), "h.db")

	_, err := run(t, hist, "--api-url", api, "check", "--", "-23.55052,-46.633308")
	require.NoError(t, err)

	out, err := run(t, hist, "--api-url", api, "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Total: 2")
	assert.Contains(t, out, "Consultas: 1")

	out, err = run(t, hist, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "-23.55052,-46.633308")

	out, err = run(t, hist, "history", "--clear")
	require.NoError(t, err)
	assert.Contains(t, out, "Histórico apagado")

	out, err = run(t, hist, "stats", "--local")
	require.NoError(t, err)
	assert.Contains(t, out, "Consultas: 0")
	assert.NotContains(t, out, "Inventário")
}
