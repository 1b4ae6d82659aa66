package warehouse

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/elofiber/viabilidade-ftth/internal/geo"
)

// Pool is the subset of pgxpool.Pool used here; pgxmock satisfies it too.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
	Close()
}

// PostGIS runs the radius queries against PostgreSQL with PostGIS
// geography columns.
type PostGIS struct {
	pool Pool
}

// ConnectPostGIS opens a pgx pool against databaseURL.
func ConnectPostGIS(ctx context.Context, databaseURL string) (*PostGIS, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, eris.Wrap(err, "warehouse: connect postgis")
	}
	return &PostGIS{pool: pool}, nil
}

// NewPostGIS wraps an existing pool.
func NewPostGIS(pool Pool) *PostGIS {
	return &PostGIS{pool: pool}
}

// Close releases the pool.
func (p *PostGIS) Close() error {
	if p.pool != nil {
		p.pool.Close()
	}
	return nil
}

// SchemaSQL creates the tables the queries below expect.
const SchemaSQL = `
CREATE EXTENSION IF NOT EXISTS postgis;
CREATE SCHEMA IF NOT EXISTS viabilidade;
CREATE TABLE IF NOT EXISTS viabilidade.ctos (
    cto_id                text PRIMARY KEY,
    nome                  text NOT NULL,
    endereco              text,
    capacidade_total      integer NOT NULL DEFAULT 0,
    capacidade_disponivel integer NOT NULL DEFAULT 0,
    status                text,
    data_instalacao       date,
    raio_atendimento_m    double precision,
    location              geography(Point, 4326) NOT NULL,
    updated_at            timestamptz NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS ctos_location_gix ON viabilidade.ctos USING gist (location);
CREATE TABLE IF NOT EXISTS viabilidade.pops (
    pop_id             text PRIMARY KEY,
    nome_pop           text NOT NULL,
    endereco           text,
    tipo_olt           text,
    portas_disponiveis integer NOT NULL DEFAULT 0,
    capacidade_total   integer NOT NULL DEFAULT 0,
    status             text,
    location           geography(Point, 4326) NOT NULL,
    updated_at         timestamptz NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS pops_location_gix ON viabilidade.pops USING gist (location);
`

// EnsureSchema applies SchemaSQL.
func (p *PostGIS) EnsureSchema(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, SchemaSQL); err != nil {
		return eris.Wrap(err, "warehouse: ensure schema")
	}
	return nil
}

const ctosWithinSQL = `
    WITH cliente AS (
        SELECT ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography AS point
    )
    SELECT c.cto_id, c.nome, COALESCE(c.endereco, ''), c.capacidade_total, c.capacidade_disponivel,
           ST_Distance(cl.point, c.location) AS distancia_metros,
           ST_X(c.location::geometry), ST_Y(c.location::geometry),
           COALESCE(c.status, ''), COALESCE(to_char(c.data_instalacao, 'YYYY-MM-DD'), ''),
           COALESCE(c.raio_atendimento_m, 0)
    FROM viabilidade.ctos c, cliente cl
    WHERE ST_DWithin(cl.point, c.location, $3)
    ORDER BY distancia_metros, c.cto_id
    LIMIT $4
`

// CTOsWithin returns CTOs within radiusM of point, nearest first.
func (p *PostGIS) CTOsWithin(ctx context.Context, point geo.Coordinate, radiusM float64, limit int) ([]CTO, error) {
	rows, err := p.pool.Query(ctx, ctosWithinSQL, point.Lng, point.Lat, radiusM, limit)
	if err != nil {
		return nil, eris.Wrap(err, "warehouse: query ctos within radius")
	}
	return collectCTOs(rows)
}

const nearestServingSQL = `
    WITH cliente AS (
        SELECT ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography AS point
    )
    SELECT c.cto_id, c.nome, COALESCE(c.endereco, ''), c.capacidade_total, c.capacidade_disponivel,
           ST_Distance(cl.point, c.location) AS distancia_metros,
           ST_X(c.location::geometry), ST_Y(c.location::geometry),
           COALESCE(c.status, ''), COALESCE(to_char(c.data_instalacao, 'YYYY-MM-DD'), ''),
           COALESCE(c.raio_atendimento_m, 0)
    FROM viabilidade.ctos c, cliente cl
    WHERE ST_DWithin(cl.point, c.location, COALESCE(NULLIF(c.raio_atendimento_m, 0), $3))
    ORDER BY distancia_metros, c.cto_id
    LIMIT 1
`

// NearestServingCTO returns the closest CTO whose service radius covers point.
func (p *PostGIS) NearestServingCTO(ctx context.Context, point geo.Coordinate) (*CTO, error) {
	rows, err := p.pool.Query(ctx, nearestServingSQL, point.Lng, point.Lat, float64(DefaultServiceRadiusM))
	if err != nil {
		return nil, eris.Wrap(err, "warehouse: query nearest serving cto")
	}
	ctos, err := collectCTOs(rows)
	if err != nil {
		return nil, err
	}
	if len(ctos) == 0 {
		return nil, nil
	}
	return &ctos[0], nil
}

func collectCTOs(rows pgx.Rows) ([]CTO, error) {
	defer rows.Close()

	ctos := make([]CTO, 0)
	for rows.Next() {
		var c CTO
		if err := rows.Scan(
			&c.ID,
			&c.Name,
			&c.Address,
			&c.CapacityTotal,
			&c.CapacityAvailable,
			&c.DistanceM,
			&c.Lng,
			&c.Lat,
			&c.Status,
			&c.InstalledAt,
			&c.ServiceRadiusM,
		); err != nil {
			return nil, eris.Wrap(err, "warehouse: scan cto row")
		}
		ctos = append(ctos, c)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "warehouse: iterate cto rows")
	}
	return ctos, nil
}

const popsWithinSQL = `
    SELECT p.pop_id, p.nome_pop, COALESCE(p.endereco, ''), COALESCE(p.tipo_olt, ''),
           p.portas_disponiveis, p.capacidade_total,
           ST_Distance(ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography, p.location) AS distancia_metros,
           ST_X(p.location::geometry), ST_Y(p.location::geometry), COALESCE(p.status, '')
    FROM viabilidade.pops p
    WHERE ST_DWithin(ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography, p.location, $3)
    ORDER BY distancia_metros, p.pop_id
    LIMIT $4
`

// POPsWithin returns POPs within radiusM of point, nearest first.
func (p *PostGIS) POPsWithin(ctx context.Context, point geo.Coordinate, radiusM float64, limit int) ([]POP, error) {
	rows, err := p.pool.Query(ctx, popsWithinSQL, point.Lng, point.Lat, radiusM, limit)
	if err != nil {
		return nil, eris.Wrap(err, "warehouse: query pops within radius")
	}
	defer rows.Close()

	pops := make([]POP, 0)
	for rows.Next() {
		var pop POP
		if err := rows.Scan(
			&pop.ID,
			&pop.Name,
			&pop.Address,
			&pop.OLTType,
			&pop.PortsAvailable,
			&pop.CapacityTotal,
			&pop.DistanceM,
			&pop.Lng,
			&pop.Lat,
			&pop.Status,
		); err != nil {
			return nil, eris.Wrap(err, "warehouse: scan pop row")
		}
		pops = append(pops, pop)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "warehouse: iterate pop rows")
	}
	return pops, nil
}

const ctoStatsSQL = `
    SELECT COUNT(*),
           COUNT(*) FILTER (WHERE capacidade_disponivel > 0),
           COUNT(*) FILTER (WHERE capacidade_disponivel = 0),
           COALESCE(AVG(capacidade_disponivel), 0)::double precision
    FROM viabilidade.ctos
`

// CTOStats aggregates capacity over the whole CTO table.
func (p *PostGIS) CTOStats(ctx context.Context) (Stats, error) {
	var st Stats
	if err := p.pool.QueryRow(ctx, ctoStatsSQL).Scan(
		&st.TotalCTOs,
		&st.WithCapacity,
		&st.WithoutCapacity,
		&st.MeanCapacity,
	); err != nil {
		return Stats{}, eris.Wrap(err, "warehouse: query cto stats")
	}
	return st, nil
}
