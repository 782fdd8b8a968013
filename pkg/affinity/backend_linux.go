//go:build linux

package affinity

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// maxUnits is the number of CPUs a unix.CPUSet can describe
var maxUnits = int(unsafe.Sizeof(unix.CPUSet{})) * 8

// threadBackend uses sched_getaffinity/sched_setaffinity on the calling thread (tid 0)
type threadBackend struct{}

// NewBackend returns the affinity backend for this platform
func NewBackend() Backend {
	return threadBackend{}
}

func (threadBackend) Get() (UnitSet, error) {
	var set unix.CPUSet
	if err := unix.SchedGetaffinity(0, &set); err != nil {
		return nil, err
	}

	units := make(UnitSet, 0, set.Count())
	for u := 0; u < maxUnits; u++ {
		if set.IsSet(u) {
			units = append(units, u)
		}
	}
	return units, nil
}

func (threadBackend) Set(units UnitSet) error {
	if len(units) == 0 {
		return fmt.Errorf("empty unit set")
	}

	var set unix.CPUSet
	set.Zero()
	for _, u := range units {
		if u < 0 || u >= maxUnits {
			return fmt.Errorf("cpu %d outside the supported range 0..%d", u, maxUnits-1)
		}
		set.Set(u)
	}
	return unix.SchedSetaffinity(0, &set)
}
