//go:build !linux

package affinity

type unsupportedBackend struct{}

// NewBackend returns the affinity backend for this platform
func NewBackend() Backend {
	return unsupportedBackend{}
}

func (unsupportedBackend) Get() (UnitSet, error) {
	return nil, ErrUnsupported
}

func (unsupportedBackend) Set(UnitSet) error {
	return ErrUnsupported
}
