package warehouse

import (
	"context"
	"sort"
	"sync"

	"github.com/elofiber/viabilidade-ftth/internal/geo"
)

// Memory is an in-process warehouse computing great-circle distances over
// a fixed inventory. It backs local development and tests.
type Memory struct {
	mu   sync.RWMutex
	ctos []CTO
	pops []POP
}

// NewMemory returns a Memory warehouse over the given inventory.
func NewMemory(ctos []CTO, pops []POP) *Memory {
	m := &Memory{}
	m.Replace(ctos, pops)
	return m
}

// Replace swaps the whole inventory.
func (m *Memory) Replace(ctos []CTO, pops []POP) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ctos = append([]CTO(nil), ctos...)
	m.pops = append([]POP(nil), pops...)
}

// CTOsWithin returns CTOs within radiusM of point, nearest first. Equal
// distances keep inventory order.
func (m *Memory) CTOsWithin(ctx context.Context, point geo.Coordinate, radiusM float64, limit int) ([]CTO, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]CTO, 0)
	for _, c := range m.ctos {
		d := geo.Distance(point, c.Location())
		if d <= radiusM {
			c.DistanceM = d
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DistanceM < out[j].DistanceM })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// POPsWithin returns POPs within radiusM of point, nearest first.
func (m *Memory) POPsWithin(ctx context.Context, point geo.Coordinate, radiusM float64, limit int) ([]POP, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]POP, 0)
	for _, p := range m.pops {
		d := geo.Distance(point, p.Location())
		if d <= radiusM {
			p.DistanceM = d
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DistanceM < out[j].DistanceM })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// NearestServingCTO returns the closest CTO whose service radius covers point.
func (m *Memory) NearestServingCTO(ctx context.Context, point geo.Coordinate) (*CTO, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var best *CTO
	for _, c := range m.ctos {
		radius := c.ServiceRadiusM
		if radius <= 0 {
			radius = DefaultServiceRadiusM
		}
		d := geo.Distance(point, c.Location())
		if d > radius {
			continue
		}
		if best == nil || d < best.DistanceM {
			c.DistanceM = d
			found := c
			best = &found
		}
	}
	return best, nil
}

// CTOStats aggregates capacity over the inventory.
func (m *Memory) CTOStats(ctx context.Context) (Stats, error) {
	if err := ctx.Err(); err != nil {
		return Stats{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var st Stats
	var sum float64
	for _, c := range m.ctos {
		st.TotalCTOs++
		if c.CapacityAvailable > 0 {
			st.WithCapacity++
		} else if c.CapacityAvailable == 0 {
			st.WithoutCapacity++
		}
		sum += float64(c.CapacityAvailable)
	}
	if st.TotalCTOs > 0 {
		st.MeanCapacity = sum / float64(st.TotalCTOs)
	}
	return st, nil
}

// Close is a no-op.
func (m *Memory) Close() error { return nil }
