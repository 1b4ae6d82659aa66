// Package batch turns decoded inventory records into upsert batches.
package batch

import (
	"github.com/elofiber/viabilidade-ftth/internal/inventory"
	"github.com/elofiber/viabilidade-ftth/internal/warehouse"
)

// Batch is what one loader run writes.
type Batch struct {
	CTOs       []warehouse.CTO
	POPs       []warehouse.POP
	Duplicates int
}

// Build splits records by kind. When an id repeats, the later record
// replaces the earlier one in place.
func Build(recs []inventory.Record) Batch {
	var b Batch
	seen := make(map[string]int, len(recs))
	unique := make([]inventory.Record, 0, len(recs))
	for _, r := range recs {
		key := string(r.Kind) + ":" + r.ID
		if i, ok := seen[key]; ok {
			unique[i] = r
			b.Duplicates++
			continue
		}
		seen[key] = len(unique)
		unique = append(unique, r)
	}
	b.CTOs, b.POPs = warehouse.FromRecords(unique)
	return b
}

// WithoutCapacity counts CTOs with no free port.
func (b Batch) WithoutCapacity() int {
	n := 0
	for _, c := range b.CTOs {
		if c.CapacityAvailable == 0 {
			n++
		}
	}
	return n
}
