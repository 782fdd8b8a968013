// Package builders runs clean and build operations against a project, with
// builds pinned to the execution units of a core.
package builders

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/corestress/corestress/pkg/affinity"
	"github.com/corestress/corestress/pkg/logger"
	"github.com/corestress/corestress/pkg/process"
	"github.com/corestress/corestress/pkg/types"
)

// Options configures the external build tool
type Options struct {
	// CleanCommand and BuildCommand are command lines run in the project directory
	CleanCommand string
	BuildCommand string
	// FlagsEnv names the compiler flags variable that is cleared for builds
	FlagsEnv string
	// IsolateEnv names a variable pointing the build tool at a per-core output
	// directory. It is only set for slots marked Isolated.
	IsolateEnv string
}

// DefaultOptions returns the options for cargo projects
func DefaultOptions() Options {
	return Options{
		CleanCommand: "cargo clean",
		BuildCommand: "cargo build",
		FlagsEnv:     "RUSTFLAGS",
		IsolateEnv:   "CARGO_TARGET_DIR",
	}
}

// Slot is the core a build is stressing and the units it is pinned to
type Slot struct {
	Core  types.PhysicalCore
	Units affinity.UnitSet
	// Isolated gives the slot its own build output directory so that slots
	// building the same project at the same time do not collide.
	Isolated bool
}

// Stats summarizes builds run so far
type Stats struct {
	TotalBuilds   int
	SuccessBuilds int
	LastBuildTime time.Duration
}

// BaseBuilder runs the clean and build commands through a process runner
type BaseBuilder struct {
	opts   Options
	runner process.Runner
	pinner *affinity.Pinner
	logger logger.Logger

	stats Stats
	mu    sync.RWMutex
}

// NewBaseBuilder creates a new base builder
func NewBaseBuilder(opts Options, runner process.Runner, pinner *affinity.Pinner, log logger.Logger) *BaseBuilder {
	return &BaseBuilder{
		opts:   opts,
		runner: runner,
		pinner: pinner,
		logger: log,
	}
}

// Validate validates the builder configuration
func (b *BaseBuilder) Validate() error {
	if strings.TrimSpace(b.opts.BuildCommand) == "" {
		return fmt.Errorf("no build command defined")
	}
	if strings.TrimSpace(b.opts.CleanCommand) == "" {
		return fmt.Errorf("no clean command defined")
	}
	return nil
}

// Clean runs the clean command in the project directory. A non-zero exit is
// returned as an error; callers treat clean failures as non-fatal.
func (b *BaseBuilder) Clean(ctx context.Context, project types.Project, slot Slot) error {
	cmd := b.command(b.opts.CleanCommand, project, slot)

	res, err := b.runner.Run(ctx, cmd)
	if err != nil {
		return fmt.Errorf("clean %s: %w", project.Name, err)
	}
	if !res.Success() {
		return fmt.Errorf("clean %s exited with code %d: %s",
			project.Name, res.ExitCode, firstLine(res.Stderr))
	}
	return nil
}

// Build runs the build command in the project directory with the calling
// thread, and so the build process, pinned to slot.Units. The returned
// outcome's Success mirrors the exit status; an error means the build could
// not be run at all.
func (b *BaseBuilder) Build(ctx context.Context, project types.Project, slot Slot) (*types.BuildOutcome, error) {
	cmd := b.command(b.opts.BuildCommand, project, slot)

	startedAt := time.Now()
	res, err := affinity.WithPinned(b.pinner, slot.Units, func() (*process.Result, error) {
		return b.runner.Run(ctx, cmd)
	})
	duration := time.Since(startedAt)

	if err != nil {
		return nil, fmt.Errorf("build %s: %w", project.Name, err)
	}

	outcome := &types.BuildOutcome{
		Success:   res.Success(),
		ExitCode:  res.ExitCode,
		Stdout:    res.Stdout,
		Stderr:    res.Stderr,
		StartedAt: startedAt,
		Duration:  duration,
	}

	b.mu.Lock()
	b.stats.TotalBuilds++
	if outcome.Success {
		b.stats.SuccessBuilds++
	}
	b.stats.LastBuildTime = duration
	b.mu.Unlock()

	if b.logger != nil {
		b.logger.Debug("Build process exited",
			logger.WithField("project", project.Name),
			logger.WithField("units", []int(slot.Units)),
			logger.WithField("exit_code", res.ExitCode))
	}

	return outcome, nil
}

// Stats returns a snapshot of the build counters
func (b *BaseBuilder) Stats() Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.stats
}

// command assembles the process invocation for project. PATH is passed
// explicitly and the flags variable is cleared so stale compiler flags from
// the operator's shell do not change the workload.
func (b *BaseBuilder) command(line string, project types.Project, slot Slot) process.Command {
	cmd := process.ParseCommand(line)
	cmd.Dir = project.Path
	cmd.Env = b.environment(project, slot)
	return cmd
}

func (b *BaseBuilder) environment(project types.Project, slot Slot) []string {
	env := []string{"PATH=" + os.Getenv("PATH")}
	if b.opts.FlagsEnv != "" {
		env = append(env, b.opts.FlagsEnv+"=")
	}
	if slot.Isolated && b.opts.IsolateEnv != "" {
		env = append(env, b.opts.IsolateEnv+"="+IsolatedDir(project, slot.Core))
	}
	return env
}

// IsolatedDir is the per-core output directory used for isolated slots
func IsolatedDir(project types.Project, core types.PhysicalCore) string {
	return filepath.Join(project.Path, "target", fmt.Sprintf("corestress-core-%d", core))
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
