package batch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elofiber/viabilidade-ftth/internal/inventory"
)

func TestBuild(t *testing.T) {
	b := Build([]inventory.Record{
		{Kind: inventory.KindCTO, ID: "C1", CapacityAvailable: 4},
		{Kind: inventory.KindPOP, ID: "C1", PortsAvailable: 8},
		{Kind: inventory.KindCTO, ID: "C2", CapacityAvailable: 0},
		{Kind: inventory.KindCTO, ID: "C1", CapacityAvailable: 1},
	})

	require.Len(t, b.CTOs, 2)
	require.Len(t, b.POPs, 1)
	assert.Equal(t, 1, b.Duplicates)
	assert.Equal(t, "C1", b.CTOs[0].ID)
	assert.Equal(t, 1, b.CTOs[0].CapacityAvailable)
	assert.Equal(t, "C2", b.CTOs[1].ID)
	assert.Equal(t, 1, b.WithoutCapacity())
}

func TestBuildEmpty(t *testing.T) {
	b := Build(nil)
	assert.Empty(t, b.CTOs)
	assert.Empty(t, b.POPs)
	assert.Zero(t, b.WithoutCapacity())
}
