package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for stress operations. Check with errors.Is().
var (
	// ErrNoProjects indicates discovery found no directory carrying the manifest marker
	ErrNoProjects = errors.New("no buildable projects found")

	// ErrCoreOutOfRange indicates a core index at or above the physical core count
	ErrCoreOutOfRange = errors.New("core index out of range")

	// ErrInvalidMode indicates an unknown run mode selector
	ErrInvalidMode = errors.New("invalid run mode")

	// ErrBuildFailed indicates a build process exited unsuccessfully
	ErrBuildFailed = errors.New("build failed")
)

// BuildFailedError carries the failing project and its captured output
type BuildFailedError struct {
	Project string
	Core    PhysicalCore
	Outcome *BuildOutcome
}

func (e *BuildFailedError) Error() string {
	if e.Outcome == nil {
		return fmt.Sprintf("failed to build %q on core %d", e.Project, e.Core)
	}
	return fmt.Sprintf("failed to build %q on core %d (exit code %d)", e.Project, e.Core, e.Outcome.ExitCode)
}

// Unwrap lets errors.Is match ErrBuildFailed
func (e *BuildFailedError) Unwrap() error {
	return ErrBuildFailed
}
