package affinity

import (
	"errors"
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/corestress/corestress/pkg/logger"
)

// ErrUnsupported indicates the platform has no thread affinity backend
var ErrUnsupported = errors.New("thread affinity is not supported on this platform")

//go:generate mockgen -destination=../mocks/mock_backend.go -package=mocks github.com/corestress/corestress/pkg/affinity Backend

// Backend reads and writes the CPU mask of the calling OS thread. Callers
// must hold the thread with runtime.LockOSThread between Get and Set.
type Backend interface {
	Get() (UnitSet, error)
	Set(units UnitSet) error
}

// Op names the affinity operation that failed
type Op string

const (
	OpGet     Op = "get"
	OpSet     Op = "set"
	OpRestore Op = "restore"
)

// AffinityError wraps an OS-level affinity failure
type AffinityError struct {
	Op    Op
	Units UnitSet
	Err   error
}

func (e *AffinityError) Error() string {
	if e.Op == OpGet {
		return fmt.Sprintf("failed to get affinity: %v", e.Err)
	}
	return fmt.Sprintf("failed to %s affinity to %v: %v", e.Op, []int(e.Units), e.Err)
}

func (e *AffinityError) Unwrap() error {
	return e.Err
}

// Pinner runs operations with the calling thread pinned to a unit set
type Pinner struct {
	backend Backend
	logger  logger.Logger
}

// NewPinner creates a pinner over backend
func NewPinner(backend Backend, log logger.Logger) *Pinner {
	return &Pinner{
		backend: backend,
		logger:  log,
	}
}

// Pin runs fn pinned to units. See WithPinned.
func (p *Pinner) Pin(units UnitSet, fn func() error) error {
	_, err := WithPinned(p, units, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

type pinResult[T any] struct {
	value T
	err   error
}

// WithPinned captures the current mask, applies units, runs body and puts the
// captured mask back on every exit path, including a panic in body, which is
// returned as an error. Child processes started inside body inherit units.
//
// body runs on a dedicated, locked OS thread. If the mask cannot be restored
// the failure is logged, body's own result is still returned, and the thread
// is retired instead of being handed back to the scheduler with a stale mask.
func WithPinned[T any](p *Pinner, units UnitSet, body func() (T, error)) (T, error) {
	done := make(chan pinResult[T], 1)

	go func() {
		runtime.LockOSThread()
		res, restored := runPinned(p, units, body)
		if restored {
			runtime.UnlockOSThread()
		}
		done <- res
	}()

	res := <-done
	return res.value, res.err
}

func runPinned[T any](p *Pinner, units UnitSet, body func() (T, error)) (res pinResult[T], restored bool) {
	snapshot, err := p.backend.Get()
	if err != nil {
		res.err = &AffinityError{Op: OpGet, Err: err}
		return res, true
	}

	if err := p.backend.Set(units); err != nil {
		res.err = &AffinityError{Op: OpSet, Units: units, Err: err}
		return res, true
	}

	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("Pinned operation panicked",
				logger.WithField("panic", r),
				logger.WithField("stack_trace", string(debug.Stack())))
			res.err = fmt.Errorf("pinned operation panicked: %v", r)
		}

		if err := p.backend.Set(snapshot); err != nil {
			restoreErr := &AffinityError{Op: OpRestore, Units: snapshot, Err: err}
			p.logger.Error(restoreErr.Error())
			restored = false
			return
		}
		restored = true
	}()

	res.value, res.err = body()
	return res, false
}
