package proximity

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elofiber/viabilidade-ftth/internal/geo"
	"github.com/elofiber/viabilidade-ftth/internal/observability"
	"github.com/elofiber/viabilidade-ftth/internal/viability"
	"github.com/elofiber/viabilidade-ftth/internal/warehouse"
)

var origin = geo.Coordinate{Lat: -23.55052, Lng: -46.633308}

func cto(id string, distanceM float64, available int) warehouse.CTO {
	loc := geo.Destination(origin, 45, distanceM)
	return warehouse.CTO{ID: id, Name: id, CapacityTotal: 16, CapacityAvailable: available, Lat: loc.Lat, Lng: loc.Lng}
}

func pop(id string, distanceM float64) warehouse.POP {
	loc := geo.Destination(origin, 180, distanceM)
	return warehouse.POP{ID: id, Name: id, Lat: loc.Lat, Lng: loc.Lng}
}

// stubWarehouse returns canned rows regardless of the query shape.
type stubWarehouse struct {
	ctos  []warehouse.CTO
	pops  []warehouse.POP
	err   error
	calls atomic.Int32
}

func (s *stubWarehouse) CTOsWithin(ctx context.Context, _ geo.Coordinate, _ float64, _ int) ([]warehouse.CTO, error) {
	s.calls.Add(1)
	return s.ctos, s.err
}

func (s *stubWarehouse) POPsWithin(ctx context.Context, _ geo.Coordinate, _ float64, _ int) ([]warehouse.POP, error) {
	s.calls.Add(1)
	return s.pops, s.err
}

func (s *stubWarehouse) NearestServingCTO(ctx context.Context, _ geo.Coordinate) (*warehouse.CTO, error) {
	s.calls.Add(1)
	if s.err != nil || len(s.ctos) == 0 {
		return nil, s.err
	}
	return &s.ctos[0], nil
}

func (s *stubWarehouse) CTOStats(ctx context.Context) (warehouse.Stats, error) {
	s.calls.Add(1)
	return warehouse.Stats{TotalCTOs: int64(len(s.ctos))}, s.err
}

func (s *stubWarehouse) Close() error { return nil }

func TestNearby_RatesAndOrders(t *testing.T) {
	w := warehouse.NewMemory([]warehouse.CTO{
		cto("far", 450, 2),
		cto("near", 120, 5),
		cto("full", 200, 0),
	}, nil)
	svc := New(w)

	got, err := svc.Nearby(context.Background(), origin, 500)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "near", got[0].ID)
	assert.Equal(t, viability.High, got[0].Level)
	assert.Equal(t, "ALTA - Dentro do raio e com capacidade", got[0].Viabilidade)

	assert.Equal(t, "full", got[1].ID)
	assert.Equal(t, "MÉDIA - Dentro do raio mas sem capacidade", got[1].Viabilidade)

	assert.Equal(t, "far", got[2].ID)
	assert.Equal(t, "MÉDIA - Fora do raio padrão, com capacidade", got[2].Viabilidade)
}

func TestNearby_EnforcesRadiusLimitAndOrder(t *testing.T) {
	rows := []warehouse.CTO{
		{ID: "c", DistanceM: 250},
		{ID: "out", DistanceM: 301},
		{ID: "a", DistanceM: 100},
		{ID: "b", DistanceM: 100},
	}
	svc := New(&stubWarehouse{ctos: rows}, WithMaxResults(2))

	got, err := svc.Nearby(context.Background(), origin, 300)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "b", got[1].ID)
}

func TestNearby_EmptyIsNotNil(t *testing.T) {
	svc := New(warehouse.NewMemory(nil, nil))

	got, err := svc.Nearby(context.Background(), origin, 300)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	body, err := json.Marshal(got)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(body))
}

func TestNearby_UpstreamFailure(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := observability.NewCollector(reg)
	require.NoError(t, err)

	svc := New(&stubWarehouse{err: errors.New("bigquery: 403 access denied")}, WithCollector(collector))

	got, err := svc.Nearby(context.Background(), origin, 300)
	require.Error(t, err)
	assert.Nil(t, got)
	assert.True(t, errors.Is(err, ErrUpstream))

	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, "ctos_within", upstream.Op)
	assert.Contains(t, err.Error(), "403 access denied")

	assert.Equal(t, 1.0, testutil.ToFloat64(collector.WarehouseQueries.WithLabelValues("ctos_within", "error")))
}

func TestNearby_QueryTimeout(t *testing.T) {
	slow := &slowWarehouse{Memory: warehouse.NewMemory(nil, nil)}
	svc := New(slow, WithQueryTimeout(10*time.Millisecond))

	_, err := svc.Nearby(context.Background(), origin, 300)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUpstream)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

type slowWarehouse struct {
	*warehouse.Memory
}

func (s *slowWarehouse) CTOsWithin(ctx context.Context, p geo.Coordinate, r float64, n int) ([]warehouse.CTO, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestInfrastructure(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := observability.NewCollector(reg)
	require.NoError(t, err)

	w := warehouse.NewMemory(
		[]warehouse.CTO{cto("in", 150, 3), cto("out", 400, 3)},
		[]warehouse.POP{pop("p-far", 1200), pop("p-near", 700)},
	)
	svc := New(w, WithCollector(collector))

	infra, err := svc.Infrastructure(context.Background(), origin)
	require.NoError(t, err)

	assert.Equal(t, 1, infra.CTOCount)
	assert.Equal(t, 1, infra.POPCount)
	require.NotNil(t, infra.NearestCTO)
	assert.Equal(t, "in", infra.NearestCTO.ID)
	require.NotNil(t, infra.NearestPOP)
	assert.Equal(t, "p-near", infra.NearestPOP.ID)

	assert.Equal(t, 1.0, testutil.ToFloat64(collector.WarehouseQueries.WithLabelValues("ctos_within", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.WarehouseQueries.WithLabelValues("pops_within", "ok")))
}

func TestInfrastructure_CustomRadii(t *testing.T) {
	w := warehouse.NewMemory(
		[]warehouse.CTO{cto("in", 150, 3), cto("out", 400, 3)},
		[]warehouse.POP{pop("p-far", 1200), pop("p-near", 700)},
	)
	svc := New(w, WithInfrastructureRadius(450), WithPOPSearch(1500, 1))

	infra, err := svc.Infrastructure(context.Background(), origin)
	require.NoError(t, err)
	assert.Equal(t, 2, infra.CTOCount)
	assert.Equal(t, 1, infra.POPCount)
	assert.Equal(t, "p-near", infra.NearestPOP.ID)
}

func TestInfrastructure_Empty(t *testing.T) {
	infra, err := New(warehouse.NewMemory(nil, nil)).Infrastructure(context.Background(), origin)
	require.NoError(t, err)

	body, err := json.Marshal(infra)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"cto_disponiveis": 0,
		"pop_disponiveis": 0,
		"cto_mais_proxima": null,
		"pop_mais_proximo": null,
		"lista_ctos": [],
		"lista_pops": []
	}`, string(body))
}

func TestInfrastructure_FailureFailsWhole(t *testing.T) {
	stub := &stubWarehouse{err: errors.New("timeout")}
	_, err := New(stub).Infrastructure(context.Background(), origin)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestCheckServing(t *testing.T) {
	wide := cto("wide", 350, 1)
	wide.ServiceRadiusM = 400
	svc := New(warehouse.NewMemory([]warehouse.CTO{wide}, nil))

	got, err := svc.CheckServing(context.Background(), origin)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "wide", got.ID)

	got, err = New(warehouse.NewMemory(nil, nil)).CheckServing(context.Background(), origin)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStats(t *testing.T) {
	svc := New(warehouse.NewMemory([]warehouse.CTO{cto("a", 10, 2), cto("b", 20, 0)}, nil))

	st, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), st.TotalCTOs)
	assert.Equal(t, int64(1), st.WithCapacity)
	assert.Equal(t, 1.0, st.MeanCapacity)

	_, err = New(&stubWarehouse{err: errors.New("down")}).Stats(context.Background())
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestCandidateJSON(t *testing.T) {
	c := Candidate{
		CTO:         warehouse.CTO{ID: "CTO-1", Name: "CTO 1", DistanceM: 120, CapacityAvailable: 5},
		Viabilidade: "ALTA - Dentro do raio e com capacidade",
		Level:       viability.High,
	}
	body, err := json.Marshal(c)
	require.NoError(t, err)

	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &m))
	assert.Equal(t, "CTO-1", m["cto_id"])
	assert.Equal(t, 120.0, m["distancia_metros"])
	assert.Equal(t, "HIGH", m["nivel_viabilidade"])
	assert.Equal(t, "ALTA - Dentro do raio e com capacidade", m["viabilidade"])
	assert.Equal(t, viability.High, c.Rating().Level)
}
