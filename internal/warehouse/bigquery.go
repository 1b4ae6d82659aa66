package warehouse

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/bigquery"
	"github.com/rotisserie/eris"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/elofiber/viabilidade-ftth/internal/geo"
)

// Defaults for the managed warehouse.
const (
	DefaultProjectID = "elofiber"
	DefaultDataset   = "viabilidade"
	DefaultLocation  = "southamerica-east1"
	DefaultCTOView   = "vw_viabilidade"
	DefaultPOPView   = "vw_pops"
)

// rowIterator is the part of *bigquery.RowIterator the backend reads.
type rowIterator interface {
	Next(dst interface{}) error
}

type runFunc func(ctx context.Context, sql string, params []bigquery.QueryParameter) (rowIterator, error)

// BigQuery runs GoogleSQL geography queries against the analytics views.
type BigQuery struct {
	client   *bigquery.Client
	project  string
	dataset  string
	location string
	ctoView  string
	popView  string
	run      runFunc
}

// NewBigQuery creates a client for cfg. When cfg.CredentialsJSON is set it
// is used as the service account; otherwise application default
// credentials apply.
func NewBigQuery(ctx context.Context, cfg Config) (*BigQuery, error) {
	cfg = bigQueryDefaults(cfg)

	var opts []option.ClientOption
	if cfg.CredentialsJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	}

	client, err := bigquery.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, eris.Wrap(err, "warehouse: create bigquery client")
	}
	client.Location = cfg.Location

	bq := newBigQuery(cfg)
	bq.client = client
	bq.run = func(ctx context.Context, sql string, params []bigquery.QueryParameter) (rowIterator, error) {
		q := client.Query(sql)
		q.Parameters = params
		q.Location = cfg.Location
		it, err := q.Read(ctx)
		if err != nil {
			return nil, err
		}
		return it, nil
	}
	return bq, nil
}

func newBigQuery(cfg Config) *BigQuery {
	return &BigQuery{
		project:  cfg.ProjectID,
		dataset:  cfg.Dataset,
		location: cfg.Location,
		ctoView:  cfg.CTOView,
		popView:  cfg.POPView,
	}
}

func bigQueryDefaults(cfg Config) Config {
	if cfg.ProjectID == "" {
		cfg.ProjectID = projectFromCredentials(cfg.CredentialsJSON)
	}
	if cfg.ProjectID == "" {
		cfg.ProjectID = DefaultProjectID
	}
	if cfg.Dataset == "" {
		cfg.Dataset = DefaultDataset
	}
	if cfg.Location == "" {
		cfg.Location = DefaultLocation
	}
	if cfg.CTOView == "" {
		cfg.CTOView = DefaultCTOView
	}
	if cfg.POPView == "" {
		cfg.POPView = DefaultPOPView
	}
	return cfg
}

func projectFromCredentials(raw string) string {
	if raw == "" {
		return ""
	}
	var creds struct {
		ProjectID string `json:"project_id"`
	}
	if err := json.Unmarshal([]byte(raw), &creds); err != nil {
		return ""
	}
	return creds.ProjectID
}

// Close releases the client.
func (b *BigQuery) Close() error {
	if b.client == nil {
		return nil
	}
	return b.client.Close()
}

// table returns the quoted fully qualified name of a view.
func (b *BigQuery) table(view string) string {
	return fmt.Sprintf("`%s.%s.%s`", b.project, b.dataset, view)
}

type ctoRow struct {
	ID                string  `bigquery:"cto_id"`
	Name              string  `bigquery:"nome"`
	Address           string  `bigquery:"endereco"`
	CapacityTotal     int64   `bigquery:"capacidade_total"`
	CapacityAvailable int64   `bigquery:"capacidade_disponivel"`
	DistanceM         float64 `bigquery:"distancia_metros"`
	Lng               float64 `bigquery:"longitude_cto"`
	Lat               float64 `bigquery:"latitude_cto"`
	Status            string  `bigquery:"status"`
	InstalledAt       string  `bigquery:"data_instalacao"`
	ServiceRadiusM    float64 `bigquery:"raio_atendimento_m"`
}

func (r ctoRow) cto() CTO {
	return CTO{
		ID:                r.ID,
		Name:              r.Name,
		Address:           r.Address,
		CapacityTotal:     int(r.CapacityTotal),
		CapacityAvailable: int(r.CapacityAvailable),
		DistanceM:         r.DistanceM,
		Lng:               r.Lng,
		Lat:               r.Lat,
		Status:            r.Status,
		InstalledAt:       r.InstalledAt,
		ServiceRadiusM:    r.ServiceRadiusM,
	}
}

const ctoColumns = `
        c.cto_id,
        c.nome,
        IFNULL(c.endereco, '') AS endereco,
        IFNULL(c.capacidade_total, 0) AS capacidade_total,
        IFNULL(c.capacidade_disponivel, 0) AS capacidade_disponivel,
        ST_DISTANCE(cl.point, c.cto_location) AS distancia_metros,
        ST_X(c.cto_location) AS longitude_cto,
        ST_Y(c.cto_location) AS latitude_cto,
        IFNULL(c.status, '') AS status,
        IFNULL(FORMAT_DATE('%F', c.data_instalacao), '') AS data_instalacao,
        CAST(IFNULL(c.raio_atendimento_m, 0) AS FLOAT64) AS raio_atendimento_m`

func (b *BigQuery) ctosWithinSQL() string {
	return `
    WITH cliente_location AS (
        SELECT ST_GEOGPOINT(@longitude, @latitude) AS point
    )
    SELECT` + ctoColumns + `
    FROM ` + b.table(b.ctoView) + ` AS c, cliente_location AS cl
    WHERE ST_DWITHIN(cl.point, c.cto_location, @radius)
    ORDER BY distancia_metros, c.cto_id
    LIMIT @limit`
}

func (b *BigQuery) nearestServingSQL() string {
	return `
    WITH cliente_location AS (
        SELECT ST_GEOGPOINT(@longitude, @latitude) AS point
    )
    SELECT` + ctoColumns + `
    FROM ` + b.table(b.ctoView) + ` AS c, cliente_location AS cl
    WHERE ST_DWITHIN(cl.point, c.cto_location, IFNULL(NULLIF(c.raio_atendimento_m, 0), @radius))
    ORDER BY distancia_metros, c.cto_id
    LIMIT 1`
}

func pointParams(point geo.Coordinate, radiusM float64) []bigquery.QueryParameter {
	return []bigquery.QueryParameter{
		{Name: "latitude", Value: point.Lat},
		{Name: "longitude", Value: point.Lng},
		{Name: "radius", Value: radiusM},
	}
}

// CTOsWithin returns CTOs within radiusM of point, nearest first.
func (b *BigQuery) CTOsWithin(ctx context.Context, point geo.Coordinate, radiusM float64, limit int) ([]CTO, error) {
	params := append(pointParams(point, radiusM), bigquery.QueryParameter{Name: "limit", Value: int64(limit)})
	it, err := b.run(ctx, b.ctosWithinSQL(), params)
	if err != nil {
		return nil, eris.Wrap(err, "warehouse: query ctos within radius")
	}
	return readCTOs(it)
}

// NearestServingCTO returns the closest CTO whose service radius covers point.
func (b *BigQuery) NearestServingCTO(ctx context.Context, point geo.Coordinate) (*CTO, error) {
	it, err := b.run(ctx, b.nearestServingSQL(), pointParams(point, DefaultServiceRadiusM))
	if err != nil {
		return nil, eris.Wrap(err, "warehouse: query nearest serving cto")
	}
	ctos, err := readCTOs(it)
	if err != nil {
		return nil, err
	}
	if len(ctos) == 0 {
		return nil, nil
	}
	return &ctos[0], nil
}

func readCTOs(it rowIterator) ([]CTO, error) {
	ctos := make([]CTO, 0)
	for {
		var row ctoRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "warehouse: read cto row")
		}
		ctos = append(ctos, row.cto())
	}
	return ctos, nil
}

type popRow struct {
	ID             string  `bigquery:"pop_id"`
	Name           string  `bigquery:"nome_pop"`
	Address        string  `bigquery:"endereco"`
	OLTType        string  `bigquery:"tipo_olt"`
	PortsAvailable int64   `bigquery:"portas_disponiveis"`
	CapacityTotal  int64   `bigquery:"capacidade_total"`
	DistanceM      float64 `bigquery:"distancia_metros"`
	Lng            float64 `bigquery:"longitude_pop"`
	Lat            float64 `bigquery:"latitude_pop"`
	Status         string  `bigquery:"status"`
}

func (b *BigQuery) popsWithinSQL() string {
	return `
    SELECT
        p.pop_id,
        p.nome_pop,
        IFNULL(p.endereco, '') AS endereco,
        IFNULL(p.tipo_olt, '') AS tipo_olt,
        IFNULL(p.portas_disponiveis, 0) AS portas_disponiveis,
        IFNULL(p.capacidade_total, 0) AS capacidade_total,
        ST_DISTANCE(ST_GEOGPOINT(@longitude, @latitude), p.pop_location) AS distancia_metros,
        ST_X(p.pop_location) AS longitude_pop,
        ST_Y(p.pop_location) AS latitude_pop,
        IFNULL(p.status, '') AS status
    FROM ` + b.table(b.popView) + ` AS p
    WHERE ST_DWITHIN(ST_GEOGPOINT(@longitude, @latitude), p.pop_location, @radius)
    ORDER BY distancia_metros, p.pop_id
    LIMIT @limit`
}

// POPsWithin returns POPs within radiusM of point, nearest first.
func (b *BigQuery) POPsWithin(ctx context.Context, point geo.Coordinate, radiusM float64, limit int) ([]POP, error) {
	params := append(pointParams(point, radiusM), bigquery.QueryParameter{Name: "limit", Value: int64(limit)})
	it, err := b.run(ctx, b.popsWithinSQL(), params)
	if err != nil {
		return nil, eris.Wrap(err, "warehouse: query pops within radius")
	}

	pops := make([]POP, 0)
	for {
		var row popRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "warehouse: read pop row")
		}
		pops = append(pops, POP{
			ID:             row.ID,
			Name:           row.Name,
			Address:        row.Address,
			OLTType:        row.OLTType,
			PortsAvailable: int(row.PortsAvailable),
			CapacityTotal:  int(row.CapacityTotal),
			DistanceM:      row.DistanceM,
			Lng:            row.Lng,
			Lat:            row.Lat,
			Status:         row.Status,
		})
	}
	return pops, nil
}

type statsRow struct {
	TotalCTOs       int64   `bigquery:"total_ctos"`
	WithCapacity    int64   `bigquery:"cto_com_capacidade"`
	WithoutCapacity int64   `bigquery:"cto_sem_capacidade"`
	MeanCapacity    float64 `bigquery:"capacidade_media"`
}

func (b *BigQuery) statsSQL() string {
	return `
    SELECT
        COUNT(*) AS total_ctos,
        COUNTIF(capacidade_disponivel > 0) AS cto_com_capacidade,
        COUNTIF(capacidade_disponivel = 0) AS cto_sem_capacidade,
        IFNULL(AVG(capacidade_disponivel), 0) AS capacidade_media
    FROM ` + b.table(b.ctoView)
}

// CTOStats aggregates capacity over the CTO view.
func (b *BigQuery) CTOStats(ctx context.Context) (Stats, error) {
	it, err := b.run(ctx, b.statsSQL(), nil)
	if err != nil {
		return Stats{}, eris.Wrap(err, "warehouse: query cto stats")
	}

	var row statsRow
	if err := it.Next(&row); err != nil {
		if err == iterator.Done {
			return Stats{}, nil
		}
		return Stats{}, eris.Wrap(err, "warehouse: read cto stats")
	}
	return Stats(row), nil
}
