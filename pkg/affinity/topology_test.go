package affinity_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corestress/corestress/pkg/affinity"
	"github.com/corestress/corestress/pkg/types"
)

func TestUnitsFor_SMT(t *testing.T) {
	topo := affinity.Topology{PhysicalCores: 8, LogicalCPUs: 16}

	for _, core := range topo.AllCores() {
		units := topo.UnitsFor(core)
		c := int(core)
		assert.Equal(t, affinity.UnitSet{c, c + 8}, units, "core %d", c)
		assert.Equal(t, affinity.NewUnitSet(units...), units, "core %d must have no duplicates", c)
	}
}

func TestUnitsFor_NoSMT(t *testing.T) {
	topo := affinity.Topology{PhysicalCores: 4, LogicalCPUs: 4}

	assert.False(t, topo.HasSMT())
	assert.Equal(t, affinity.UnitSet{3}, topo.UnitsFor(3))
}

func TestUnitsForMany(t *testing.T) {
	topo := affinity.Topology{PhysicalCores: 4, LogicalCPUs: 8}

	tests := []struct {
		name  string
		cores []types.PhysicalCore
		want  affinity.UnitSet
	}{
		{"empty", nil, affinity.UnitSet{}},
		{"single", []types.PhysicalCore{1}, affinity.UnitSet{1, 5}},
		{"unsorted input", []types.PhysicalCore{3, 0}, affinity.UnitSet{0, 3, 4, 7}},
		{"repeated core", []types.PhysicalCore{2, 2}, affinity.UnitSet{2, 6}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, topo.UnitsForMany(tt.cores))
		})
	}
}

func TestUnitsFor_DistinctCoresAreDisjoint(t *testing.T) {
	topo := affinity.Topology{PhysicalCores: 6, LogicalCPUs: 12}

	for a := 0; a < 6; a++ {
		for b := a + 1; b < 6; b++ {
			ua := topo.UnitsFor(types.PhysicalCore(a))
			ub := topo.UnitsFor(types.PhysicalCore(b))
			assert.False(t, ua.Intersects(ub), "cores %d and %d share units", a, b)
		}
	}
}

func TestTopology_Contains(t *testing.T) {
	topo := affinity.Topology{PhysicalCores: 4, LogicalCPUs: 8}

	assert.True(t, topo.Contains(0))
	assert.True(t, topo.Contains(3))
	assert.False(t, topo.Contains(4))
	assert.False(t, topo.Contains(-1))
}

func TestUnitSet(t *testing.T) {
	s := affinity.NewUnitSet(5, 1, 5, 3)
	assert.Equal(t, affinity.UnitSet{1, 3, 5}, s)
	assert.True(t, s.Equal(affinity.UnitSet{1, 3, 5}))
	assert.False(t, s.Equal(affinity.UnitSet{1, 3}))
	assert.Equal(t, affinity.UnitSet{1, 2, 3, 5}, s.Union(affinity.UnitSet{2, 3}))
	assert.Equal(t, affinity.UnitSet{}, affinity.NewUnitSet())
}

func TestDetectTopology(t *testing.T) {
	topo, err := affinity.DetectTopology()
	require.NoError(t, err)
	assert.Positive(t, topo.PhysicalCores)
	assert.GreaterOrEqual(t, topo.LogicalCPUs, topo.PhysicalCores)
}
