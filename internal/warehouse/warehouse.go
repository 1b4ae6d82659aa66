// Package warehouse executes the radius geo-queries behind the viability
// API. The Warehouse interface is the only thing the rest of the service
// sees; the concrete backend is chosen once at startup and injected.
package warehouse

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/elofiber/viabilidade-ftth/internal/geo"
	"github.com/elofiber/viabilidade-ftth/internal/inventory"
)

// DefaultServiceRadiusM applies to CTOs stored without their own service radius.
const DefaultServiceRadiusM = 300

// CTO is a read-only projection of an optical splitter box. DistanceM is
// filled by the query and is zero outside of search results.
type CTO struct {
	ID                string  `json:"cto_id"`
	Name              string  `json:"nome"`
	Address           string  `json:"endereco"`
	CapacityTotal     int     `json:"capacidade_total"`
	CapacityAvailable int     `json:"capacidade_disponivel"`
	DistanceM         float64 `json:"distancia_metros"`
	Lng               float64 `json:"longitude_cto"`
	Lat               float64 `json:"latitude_cto"`
	Status            string  `json:"status"`
	InstalledAt       string  `json:"data_instalacao,omitempty"`
	ServiceRadiusM    float64 `json:"raio_atendimento_m,omitempty"`
}

// Location returns the stored position of the CTO.
func (c CTO) Location() geo.Coordinate {
	return geo.Coordinate{Lat: c.Lat, Lng: c.Lng}
}

// POP is a point of presence hosting OLTs.
type POP struct {
	ID             string  `json:"pop_id"`
	Name           string  `json:"nome_pop"`
	Address        string  `json:"endereco"`
	OLTType        string  `json:"tipo_olt"`
	PortsAvailable int     `json:"portas_disponiveis"`
	CapacityTotal  int     `json:"capacidade_total"`
	DistanceM      float64 `json:"distancia_metros"`
	Lng            float64 `json:"longitude_pop"`
	Lat            float64 `json:"latitude_pop"`
	Status         string  `json:"status"`
}

// Location returns the stored position of the POP.
func (p POP) Location() geo.Coordinate {
	return geo.Coordinate{Lat: p.Lat, Lng: p.Lng}
}

// Stats aggregates the CTO inventory.
type Stats struct {
	TotalCTOs       int64   `json:"total_ctos"`
	WithCapacity    int64   `json:"cto_com_capacidade"`
	WithoutCapacity int64   `json:"cto_sem_capacidade"`
	MeanCapacity    float64 `json:"capacidade_media"`
}

// Warehouse answers nearest-within-radius questions about the network.
// Results are ordered by ascending distance and every row lies within the
// requested radius; an empty slice is a valid answer.
type Warehouse interface {
	CTOsWithin(ctx context.Context, point geo.Coordinate, radiusM float64, limit int) ([]CTO, error)
	POPsWithin(ctx context.Context, point geo.Coordinate, radiusM float64, limit int) ([]POP, error)
	// NearestServingCTO returns the closest CTO whose own service radius
	// covers point, or nil when there is none.
	NearestServingCTO(ctx context.Context, point geo.Coordinate) (*CTO, error)
	CTOStats(ctx context.Context) (Stats, error)
	Close() error
}

// Drivers accepted by Open.
const (
	DriverBigQuery = "bigquery"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config selects and configures a backend.
type Config struct {
	Driver string

	// BigQuery
	ProjectID       string
	Dataset         string
	Location        string
	CTOView         string
	POPView         string
	CredentialsJSON string

	// PostGIS
	DatabaseURL string

	// Memory
	InventoryPath string
}

// Open constructs the backend named by cfg.Driver.
func Open(ctx context.Context, cfg Config) (Warehouse, error) {
	switch strings.ToLower(cfg.Driver) {
	case DriverBigQuery, "":
		return NewBigQuery(ctx, cfg)
	case DriverPostgres, "postgis":
		if cfg.DatabaseURL == "" {
			return nil, eris.New("warehouse: DATABASE_URL is required for the postgres driver")
		}
		return ConnectPostGIS(ctx, cfg.DatabaseURL)
	case DriverMemory:
		if cfg.InventoryPath == "" {
			return NewMemory(nil, nil), nil
		}
		recs, err := inventory.ReadFile(cfg.InventoryPath)
		if err != nil {
			return nil, eris.Wrap(err, "warehouse: load inventory")
		}
		ctos, pops := FromRecords(recs)
		return NewMemory(ctos, pops), nil
	default:
		return nil, eris.Errorf("warehouse: unknown driver %q", cfg.Driver)
	}
}

// FromRecords splits inventory records into CTOs and POPs.
func FromRecords(recs []inventory.Record) ([]CTO, []POP) {
	var ctos []CTO
	var pops []POP
	for _, r := range recs {
		switch r.Kind {
		case inventory.KindCTO:
			ctos = append(ctos, CTO{
				ID:                r.ID,
				Name:              r.Name,
				Address:           r.Address,
				CapacityTotal:     r.CapacityTotal,
				CapacityAvailable: r.CapacityAvailable,
				Lat:               r.Location.Lat,
				Lng:               r.Location.Lng,
				Status:            r.Status,
				InstalledAt:       r.InstalledAt,
				ServiceRadiusM:    r.ServiceRadiusM,
			})
		case inventory.KindPOP:
			pops = append(pops, POP{
				ID:             r.ID,
				Name:           r.Name,
				Address:        r.Address,
				OLTType:        r.OLTType,
				PortsAvailable: r.PortsAvailable,
				CapacityTotal:  r.CapacityTotal,
				Lat:            r.Location.Lat,
				Lng:            r.Location.Lng,
				Status:         r.Status,
			})
		}
	}
	return ctos, pops
}
