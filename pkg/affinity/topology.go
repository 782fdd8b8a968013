// Package affinity maps physical cores to schedulable CPUs and pins the
// calling thread to them for the duration of a scoped operation.
package affinity

import (
	"fmt"
	"sort"

	"github.com/shirou/gopsutil/v3/cpu"

	"github.com/corestress/corestress/pkg/types"
)

// UnitSet is a sorted, duplicate-free set of logical CPU indices
type UnitSet []int

// NewUnitSet builds a normalized set from arbitrary indices
func NewUnitSet(units ...int) UnitSet {
	if len(units) == 0 {
		return UnitSet{}
	}
	sorted := append([]int(nil), units...)
	sort.Ints(sorted)

	set := make(UnitSet, 0, len(sorted))
	for i, u := range sorted {
		if i > 0 && u == sorted[i-1] {
			continue
		}
		set = append(set, u)
	}
	return set
}

// Union returns the union of s and other
func (s UnitSet) Union(other UnitSet) UnitSet {
	merged := make([]int, 0, len(s)+len(other))
	merged = append(merged, s...)
	merged = append(merged, other...)
	return NewUnitSet(merged...)
}

// Equal reports whether both sets hold the same units
func (s UnitSet) Equal(other UnitSet) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Intersects reports whether the sets share any unit
func (s UnitSet) Intersects(other UnitSet) bool {
	seen := make(map[int]struct{}, len(s))
	for _, u := range s {
		seen[u] = struct{}{}
	}
	for _, u := range other {
		if _, ok := seen[u]; ok {
			return true
		}
	}
	return false
}

// Topology describes how physical cores map to logical CPUs on a host
type Topology struct {
	PhysicalCores int
	LogicalCPUs   int
}

// DetectTopology reads the physical and logical CPU counts of the host
func DetectTopology() (Topology, error) {
	physical, err := cpu.Counts(false)
	if err != nil {
		return Topology{}, fmt.Errorf("failed to count physical cores: %w", err)
	}
	logical, err := cpu.Counts(true)
	if err != nil {
		return Topology{}, fmt.Errorf("failed to count logical cpus: %w", err)
	}
	if physical <= 0 {
		return Topology{}, fmt.Errorf("host reported %d physical cores", physical)
	}
	if logical < physical {
		logical = physical
	}
	return Topology{PhysicalCores: physical, LogicalCPUs: logical}, nil
}

// HasSMT reports whether cores have hyperthread siblings
func (t Topology) HasSMT() bool {
	return t.LogicalCPUs > t.PhysicalCores
}

// Contains reports whether core is a valid physical core index on this host
func (t Topology) Contains(core types.PhysicalCore) bool {
	return core >= 0 && int(core) < t.PhysicalCores
}

// UnitsFor returns the logical CPUs backing one physical core. On a 2-way SMT
// host the sibling of core c is c + PhysicalCores; a sibling index the host
// does not have is left out.
func (t Topology) UnitsFor(core types.PhysicalCore) UnitSet {
	c := int(core)
	sibling := c + t.PhysicalCores
	if sibling < t.LogicalCPUs {
		return UnitSet{c, sibling}
	}
	return UnitSet{c}
}

// UnitsForMany returns the union of UnitsFor over cores
func (t Topology) UnitsForMany(cores []types.PhysicalCore) UnitSet {
	set := UnitSet{}
	for _, core := range cores {
		set = set.Union(t.UnitsFor(core))
	}
	return set
}

// AllCores lists every physical core index in ascending order
func (t Topology) AllCores() []types.PhysicalCore {
	cores := make([]types.PhysicalCore, t.PhysicalCores)
	for i := range cores {
		cores[i] = types.PhysicalCore(i)
	}
	return cores
}
