package warehouse

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"

	"github.com/elofiber/viabilidade-ftth/internal/geo"
)

const upsertCTOSQL = `INSERT INTO viabilidade.ctos (cto_id, nome, endereco, capacidade_total, capacidade_disponivel, status, data_instalacao, raio_atendimento_m, location, updated_at)
VALUES ($1,$2,NULLIF($3,''),$4,$5,NULLIF($6,''),NULLIF($7,'')::date,NULLIF($8,0),ST_GeomFromEWKB($9)::geography,NOW())
ON CONFLICT (cto_id) DO UPDATE
SET nome = EXCLUDED.nome,
    endereco = EXCLUDED.endereco,
    capacidade_total = EXCLUDED.capacidade_total,
    capacidade_disponivel = EXCLUDED.capacidade_disponivel,
    status = EXCLUDED.status,
    data_instalacao = EXCLUDED.data_instalacao,
    raio_atendimento_m = EXCLUDED.raio_atendimento_m,
    location = EXCLUDED.location,
    updated_at = NOW()`

const upsertPOPSQL = `INSERT INTO viabilidade.pops (pop_id, nome_pop, endereco, tipo_olt, portas_disponiveis, capacidade_total, status, location, updated_at)
VALUES ($1,$2,NULLIF($3,''),NULLIF($4,''),$5,$6,NULLIF($7,''),ST_GeomFromEWKB($8)::geography,NOW())
ON CONFLICT (pop_id) DO UPDATE
SET nome_pop = EXCLUDED.nome_pop,
    endereco = EXCLUDED.endereco,
    tipo_olt = EXCLUDED.tipo_olt,
    portas_disponiveis = EXCLUDED.portas_disponiveis,
    capacidade_total = EXCLUDED.capacidade_total,
    status = EXCLUDED.status,
    location = EXCLUDED.location,
    updated_at = NOW()`

// UpsertCTOs inserts or updates CTO rows in a single batch.
func (p *PostGIS) UpsertCTOs(ctx context.Context, ctos []CTO) error {
	if len(ctos) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, c := range ctos {
		point, err := PointEWKB(c.Location())
		if err != nil {
			return eris.Wrapf(err, "warehouse: encode cto %s", c.ID)
		}
		batch.Queue(upsertCTOSQL, c.ID, c.Name, c.Address, c.CapacityTotal, c.CapacityAvailable,
			c.Status, c.InstalledAt, c.ServiceRadiusM, point)
	}
	return p.sendBatch(ctx, batch, len(ctos), "ctos")
}

// UpsertPOPs inserts or updates POP rows in a single batch.
func (p *PostGIS) UpsertPOPs(ctx context.Context, pops []POP) error {
	if len(pops) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, pop := range pops {
		point, err := PointEWKB(pop.Location())
		if err != nil {
			return eris.Wrapf(err, "warehouse: encode pop %s", pop.ID)
		}
		batch.Queue(upsertPOPSQL, pop.ID, pop.Name, pop.Address, pop.OLTType, pop.PortsAvailable,
			pop.CapacityTotal, pop.Status, point)
	}
	return p.sendBatch(ctx, batch, len(pops), "pops")
}

func (p *PostGIS) sendBatch(ctx context.Context, batch *pgx.Batch, n int, what string) error {
	res := p.pool.SendBatch(ctx, batch)
	defer res.Close()

	for i := 0; i < n; i++ {
		if _, err := res.Exec(); err != nil {
			return eris.Wrapf(err, "warehouse: upsert %s row %d", what, i)
		}
	}
	return nil
}

// PointEWKB encodes c as a little-endian EWKB point with SRID 4326.
func PointEWKB(c geo.Coordinate) ([]byte, error) {
	pt := geom.NewPointFlat(geom.XY, []float64{c.Lng, c.Lat}).SetSRID(4326)
	return ewkb.Marshal(pt, ewkb.NDR)
}
