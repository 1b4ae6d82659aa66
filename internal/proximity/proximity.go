// Package proximity answers "which network nodes are near this point" on
// top of an injected warehouse, and rates every CTO it returns.
package proximity

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/elofiber/viabilidade-ftth/internal/geo"
	"github.com/elofiber/viabilidade-ftth/internal/observability"
	"github.com/elofiber/viabilidade-ftth/internal/viability"
	"github.com/elofiber/viabilidade-ftth/internal/warehouse"
)

// Defaults for the search shapes.
const (
	DefaultMaxResults    = 20
	DefaultPOPRadiusM    = 1000
	DefaultPOPMaxResults = 10
	DefaultQueryTimeout  = 30 * time.Second
)

// ErrUpstream marks every failure that originated in the warehouse.
var ErrUpstream = errors.New("proximity: warehouse unavailable")

// UpstreamError carries the failed operation and the warehouse error.
// errors.Is(err, ErrUpstream) holds for every UpstreamError.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return "proximity: " + e.Op + ": " + e.Err.Error()
}

func (e *UpstreamError) Unwrap() error { return e.Err }

func (e *UpstreamError) Is(target error) bool { return target == ErrUpstream }

// Candidate is a CTO together with its rating.
type Candidate struct {
	warehouse.CTO
	Viabilidade string          `json:"viabilidade"`
	Level       viability.Level `json:"nivel_viabilidade"`
}

// Rating recomputes the candidate's rating.
func (c Candidate) Rating() viability.Rating {
	return viability.Classify(c.DistanceM, c.CapacityAvailable)
}

// Infrastructure is the joined result of the CTO and POP searches.
type Infrastructure struct {
	CTOCount   int             `json:"cto_disponiveis"`
	POPCount   int             `json:"pop_disponiveis"`
	NearestCTO *Candidate      `json:"cto_mais_proxima"`
	NearestPOP *warehouse.POP  `json:"pop_mais_proximo"`
	CTOs       []Candidate     `json:"lista_ctos"`
	POPs       []warehouse.POP `json:"lista_pops"`
}

// Service runs radius searches. It holds no per-request state and is safe
// for concurrent use.
type Service struct {
	wh            warehouse.Warehouse
	maxResults    int
	popRadiusM    float64
	popMaxResults int
	ctoRadiusM    float64
	timeout       time.Duration
	metrics       *observability.Collector
	tracer        trace.Tracer
	log           *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithMaxResults caps the number of CTOs returned by Nearby.
func WithMaxResults(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxResults = n
		}
	}
}

// WithPOPSearch sets the radius and cap of the POP search.
func WithPOPSearch(radiusM float64, limit int) Option {
	return func(s *Service) {
		if radiusM > 0 {
			s.popRadiusM = radiusM
		}
		if limit > 0 {
			s.popMaxResults = limit
		}
	}
}

// WithInfrastructureRadius sets the CTO radius of Infrastructure.
func WithInfrastructureRadius(radiusM float64) Option {
	return func(s *Service) {
		if radiusM > 0 {
			s.ctoRadiusM = radiusM
		}
	}
}

// WithQueryTimeout bounds every warehouse call.
func WithQueryTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithCollector records warehouse timings.
func WithCollector(c *observability.Collector) Option {
	return func(s *Service) { s.metrics = c }
}

// WithTracer overrides the tracer used for warehouse spans.
func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// New returns a Service over w.
func New(w warehouse.Warehouse, opts ...Option) *Service {
	s := &Service{
		wh:            w,
		maxResults:    DefaultMaxResults,
		popRadiusM:    DefaultPOPRadiusM,
		popMaxResults: DefaultPOPMaxResults,
		ctoRadiusM:    viability.StandardRadiusM,
		timeout:       DefaultQueryTimeout,
		tracer:        observability.Tracer(),
		log:           zap.L(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Nearby returns the rated CTOs within radiusM of point, nearest first.
// Ties keep the warehouse order. Zero matches yield an empty slice.
func (s *Service) Nearby(ctx context.Context, point geo.Coordinate, radiusM float64) ([]Candidate, error) {
	ctos, err := query(ctx, s, "ctos_within", func(ctx context.Context) ([]warehouse.CTO, error) {
		return s.wh.CTOsWithin(ctx, point, radiusM, s.maxResults)
	})
	if err != nil {
		return nil, err
	}
	return s.rate(ctos, radiusM, s.maxResults), nil
}

func (s *Service) rate(ctos []warehouse.CTO, radiusM float64, limit int) []Candidate {
	out := make([]Candidate, 0, len(ctos))
	for _, c := range ctos {
		if c.DistanceM > radiusM {
			continue
		}
		r := viability.Classify(c.DistanceM, c.CapacityAvailable)
		out = append(out, Candidate{CTO: c, Viabilidade: r.Label(), Level: r.Level})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DistanceM < out[j].DistanceM })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (s *Service) nearbyPOPs(ctx context.Context, point geo.Coordinate) ([]warehouse.POP, error) {
	pops, err := query(ctx, s, "pops_within", func(ctx context.Context) ([]warehouse.POP, error) {
		return s.wh.POPsWithin(ctx, point, s.popRadiusM, s.popMaxResults)
	})
	if err != nil {
		return nil, err
	}
	out := make([]warehouse.POP, 0, len(pops))
	for _, p := range pops {
		if p.DistanceM <= s.popRadiusM {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DistanceM < out[j].DistanceM })
	if len(out) > s.popMaxResults {
		out = out[:s.popMaxResults]
	}
	return out, nil
}

// Infrastructure runs the standard-radius CTO search and the POP search
// concurrently. Either failure fails the whole call.
func (s *Service) Infrastructure(ctx context.Context, point geo.Coordinate) (Infrastructure, error) {
	var ctos []Candidate
	var pops []warehouse.POP

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		ctos, err = s.Nearby(gctx, point, s.ctoRadiusM)
		return err
	})
	g.Go(func() error {
		var err error
		pops, err = s.nearbyPOPs(gctx, point)
		return err
	})
	if err := g.Wait(); err != nil {
		return Infrastructure{}, err
	}

	infra := Infrastructure{
		CTOCount: len(ctos),
		POPCount: len(pops),
		CTOs:     ctos,
		POPs:     pops,
	}
	if len(ctos) > 0 {
		infra.NearestCTO = &ctos[0]
	}
	if len(pops) > 0 {
		infra.NearestPOP = &pops[0]
	}
	return infra, nil
}

// CheckServing returns the nearest CTO whose own service radius covers
// point, or nil.
func (s *Service) CheckServing(ctx context.Context, point geo.Coordinate) (*warehouse.CTO, error) {
	return query(ctx, s, "nearest_serving_cto", func(ctx context.Context) (*warehouse.CTO, error) {
		return s.wh.NearestServingCTO(ctx, point)
	})
}

// Stats returns inventory-wide capacity figures.
func (s *Service) Stats(ctx context.Context) (warehouse.Stats, error) {
	return query(ctx, s, "cto_stats", func(ctx context.Context) (warehouse.Stats, error) {
		return s.wh.CTOStats(ctx)
	})
}

// query runs one warehouse call under the query timeout, inside a span,
// and records its latency. Failures come back as *UpstreamError.
func query[T any](ctx context.Context, s *Service, op string, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	ctx, span := s.tracer.Start(ctx, "warehouse."+op, trace.WithAttributes(attribute.String("warehouse.operation", op)))
	defer span.End()

	start := time.Now()
	res, err := fn(ctx)
	elapsed := time.Since(start)
	s.metrics.ObserveQuery(op, err, elapsed)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "warehouse query failed")
		s.log.Error("warehouse query failed",
			zap.String("operation", op),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
		var zero T
		return zero, &UpstreamError{Op: op, Err: err}
	}
	s.log.Debug("warehouse query", zap.String("operation", op), zap.Duration("elapsed", elapsed))
	return res, nil
}
