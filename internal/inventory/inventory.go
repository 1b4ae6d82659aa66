// Package inventory decodes the network inventory exchanged as a GeoJSON
// FeatureCollection: one Point feature per CTO or POP with pt-BR property
// names matching the warehouse columns.
package inventory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/elofiber/viabilidade-ftth/internal/geo"
)

// Kind distinguishes the two node types of the network.
type Kind string

const (
	KindCTO Kind = "cto"
	KindPOP Kind = "pop"
)

// Record is one normalised inventory entry.
type Record struct {
	Kind              Kind
	ID                string
	Name              string
	Address           string
	CapacityTotal     int
	CapacityAvailable int
	Location          geo.Coordinate
	Status            string
	InstalledAt       string
	ServiceRadiusM    float64
	OLTType           string
	PortsAvailable    int
}

// ReadFile decodes the inventory stored at path.
func ReadFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "inventory: open %s", path)
	}
	defer f.Close()
	return Decode(f)
}

// Fetch downloads and decodes the inventory published at url.
func Fetch(ctx context.Context, client *http.Client, url string) ([]Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, eris.Wrap(err, "inventory: build request")
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "inventory: request feed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, eris.Errorf("inventory: unexpected status %s", resp.Status)
	}
	return Decode(resp.Body)
}

// Decode reads a FeatureCollection. Features that are not points, have no
// id or an out-of-range position are rejected with their index.
func Decode(r io.Reader) ([]Record, error) {
	var fc geojson.FeatureCollection
	if err := json.NewDecoder(r).Decode(&fc); err != nil {
		return nil, eris.Wrap(err, "inventory: decode feature collection")
	}

	records := make([]Record, 0, len(fc.Features))
	for i, f := range fc.Features {
		rec, err := fromFeature(f)
		if err != nil {
			return nil, eris.Wrapf(err, "inventory: feature %d", i)
		}
		records = append(records, rec)
	}
	return records, nil
}

func fromFeature(f *geojson.Feature) (Record, error) {
	if f == nil {
		return Record{}, eris.New("null feature")
	}
	pt, ok := f.Geometry.(*geom.Point)
	if !ok || pt == nil {
		return Record{}, eris.Errorf("geometry must be a Point, got %T", f.Geometry)
	}
	loc := geo.Coordinate{Lat: pt.Y(), Lng: pt.X()}
	if !loc.Valid() {
		return Record{}, eris.Errorf("position out of range: %v", loc)
	}

	props := properties(f.Properties)
	rec := Record{
		Kind:     Kind(strings.ToLower(props.text("tipo"))),
		Location: loc,
		Status:   props.text("status"),
		Address:  props.text("endereco"),
	}
	if rec.Kind == "" {
		rec.Kind = KindCTO
	}

	switch rec.Kind {
	case KindCTO:
		rec.ID = firstNonEmpty(f.ID, props.text("cto_id"), props.text("id"))
		rec.Name = firstNonEmpty(props.text("nome"), props.text("nome_cto"))
		rec.CapacityTotal = props.integer("capacidade_total")
		rec.CapacityAvailable = props.integer("capacidade_disponivel")
		rec.InstalledAt = props.text("data_instalacao")
		rec.ServiceRadiusM = props.number("raio_atendimento_m")
	case KindPOP:
		rec.ID = firstNonEmpty(f.ID, props.text("pop_id"), props.text("id"))
		rec.Name = firstNonEmpty(props.text("nome_pop"), props.text("nome"))
		rec.CapacityTotal = props.integer("capacidade_total")
		rec.OLTType = props.text("tipo_olt")
		rec.PortsAvailable = props.integer("portas_disponiveis")
	default:
		return Record{}, eris.Errorf("unknown tipo %q", rec.Kind)
	}

	if rec.ID == "" {
		return Record{}, eris.New("missing id")
	}
	if rec.Name == "" {
		rec.Name = rec.ID
	}
	return rec, nil
}

type properties map[string]interface{}

func (p properties) text(key string) string {
	switch v := p[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func (p properties) number(key string) float64 {
	switch v := p[key].(type) {
	case float64:
		return v
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0
		}
		return f
	default:
		return 0
	}
}

func (p properties) integer(key string) int {
	return int(math.Trunc(p.number(key)))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
