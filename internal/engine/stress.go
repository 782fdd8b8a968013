// Package engine drives the stress run loop: every run cleans and builds each
// project on each requested core, pinned to that core's execution units.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/corestress/corestress/pkg/affinity"
	"github.com/corestress/corestress/pkg/builders"
	pcontext "github.com/corestress/corestress/pkg/context"
	"github.com/corestress/corestress/pkg/logger"
	"github.com/corestress/corestress/pkg/metrics"
	"github.com/corestress/corestress/pkg/types"
)

// Options configures a stress session
type Options struct {
	// Cores are stressed in the order given
	Cores    []types.PhysicalCore
	Mode     types.RunMode
	Topology affinity.Topology
	// Isolate gives each core its own build output directory in parallel mode
	Isolate bool
	// MaxRuns stops the loop after that many runs. Zero runs until cancelled.
	MaxRuns int
	// OnRun is called after every successful run
	OnRun func(types.RunSummary)
}

// StressEngine repeatedly runs the core x project matrix
type StressEngine struct {
	opts     Options
	projects []types.Project
	builder  Builder
	recorder metrics.Recorder
	logger   logger.Logger

	completed atomic.Int64
}

// New creates an engine over projects. deps.Builder is required.
func New(opts Options, projects []types.Project, log logger.Logger, deps Dependencies) *StressEngine {
	if deps.Builder == nil {
		panic("Builder dependency is required")
	}
	recorder := deps.Recorder
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	return &StressEngine{
		opts:     opts,
		projects: projects,
		builder:  deps.Builder,
		recorder: recorder,
		logger:   log,
	}
}

// CompletedRuns is the number of runs that finished without error
func (e *StressEngine) CompletedRuns() int {
	return int(e.completed.Load())
}

// Validate checks the session inputs before any build is attempted
func (e *StressEngine) Validate() error {
	if len(e.projects) == 0 {
		return types.ErrNoProjects
	}
	if !e.opts.Mode.IsValid() {
		return fmt.Errorf("%w: %q", types.ErrInvalidMode, e.opts.Mode)
	}
	if len(e.opts.Cores) == 0 {
		return fmt.Errorf("no cores requested")
	}

	seen := make(map[types.PhysicalCore]bool, len(e.opts.Cores))
	for _, core := range e.opts.Cores {
		if !e.opts.Topology.Contains(core) {
			return fmt.Errorf("%w: zero-based core index %d is greater than physical core count %d",
				types.ErrCoreOutOfRange, core, e.opts.Topology.PhysicalCores)
		}
		// Concurrent pins must not share units
		if e.opts.Mode == types.RunModeParallel && seen[core] {
			return fmt.Errorf("core %d requested more than once in parallel mode", core)
		}
		seen[core] = true
	}
	return nil
}

// Run loops until ctx is cancelled, MaxRuns is reached or a run fails. A
// cancelled context is returned as ctx.Err().
func (e *StressEngine) Run(ctx context.Context) error {
	if err := e.Validate(); err != nil {
		return err
	}

	for run := 0; e.opts.MaxRuns <= 0 || run < e.opts.MaxRuns; run++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		summary, err := e.RunOnce(ctx, run)
		if err != nil {
			return err
		}

		e.completed.Add(1)
		if e.opts.OnRun != nil {
			e.opts.OnRun(summary)
		}
	}
	return nil
}

// RunOnce performs one full pass over every core and project
func (e *StressEngine) RunOnce(ctx context.Context, run int) (types.RunSummary, error) {
	ctx = pcontext.WithRun(ctx, run)
	log := logger.WithContext(ctx, e.logger)

	e.recorder.SetCurrentRun(run)
	log.Info(fmt.Sprintf("run #%d started", run))
	start := time.Now()

	var (
		cores []types.CoreSummary
		err   error
	)
	switch e.opts.Mode {
	case types.RunModeParallel:
		cores, err = e.runParallel(ctx, log)
	default:
		cores, err = e.runSequential(ctx, log)
	}
	if err != nil {
		return types.RunSummary{}, err
	}

	elapsed := time.Since(start)
	e.recorder.ObserveRunDuration(elapsed)
	log.Info(fmt.Sprintf("run #%d finished in %.2fs", run, elapsed.Seconds()))

	return types.RunSummary{
		Run:     run,
		Mode:    e.opts.Mode,
		Cores:   cores,
		Elapsed: elapsed,
	}, nil
}

func (e *StressEngine) runSequential(ctx context.Context, log logger.Logger) ([]types.CoreSummary, error) {
	summaries := make([]types.CoreSummary, 0, len(e.opts.Cores))
	for _, core := range e.opts.Cores {
		s, err := e.stressCore(ctx, log, e.slot(core, false))
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
	}
	return summaries, nil
}

// runParallel gives every core its own goroutine. Each goroutine pins only
// its core's units, so concurrent pins are disjoint.
func (e *StressEngine) runParallel(ctx context.Context, log logger.Logger) ([]types.CoreSummary, error) {
	group, gctx := NewSafeGroup(ctx, log)
	summaries := make([]types.CoreSummary, len(e.opts.Cores))

	for i, core := range e.opts.Cores {
		slot := e.slot(core, e.opts.Isolate)
		group.Go(func() error {
			s, err := e.stressCore(gctx, log, slot)
			if err != nil {
				return err
			}
			summaries[i] = s
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		// A sibling core failing cancels gctx; report the caller's own
		// cancellation rather than the sibling's side effect.
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	return summaries, nil
}

func (e *StressEngine) slot(core types.PhysicalCore, isolated bool) builders.Slot {
	return builders.Slot{
		Core:     core,
		Units:    e.opts.Topology.UnitsFor(core),
		Isolated: isolated,
	}
}

func (e *StressEngine) stressCore(ctx context.Context, log logger.Logger, slot builders.Slot) (types.CoreSummary, error) {
	log = log.WithScope(fmt.Sprintf("core %d", slot.Core))
	log.Info(fmt.Sprintf("stressing core %d", slot.Core), logger.WithField("units", []int(slot.Units)))
	start := time.Now()

	summary := types.CoreSummary{
		Core:     slot.Core,
		Units:    append([]int(nil), slot.Units...),
		Projects: make([]types.ProjectSummary, 0, len(e.projects)),
	}
	for _, project := range e.projects {
		ps, err := e.stressProject(ctx, log, project, slot)
		if err != nil {
			return types.CoreSummary{}, err
		}
		summary.Projects = append(summary.Projects, ps)
	}

	summary.Elapsed = time.Since(start)
	e.recorder.ObserveCoreDuration(int(slot.Core), summary.Elapsed)
	log.Info(fmt.Sprintf("core %d finished in %.2fs", slot.Core, summary.Elapsed.Seconds()))
	return summary, nil
}

func (e *StressEngine) stressProject(ctx context.Context, log logger.Logger, project types.Project, slot builders.Slot) (types.ProjectSummary, error) {
	log.Info(fmt.Sprintf("cleaning %q", project.Name))
	if err := e.builder.Clean(ctx, project, slot); err != nil {
		if ctx.Err() != nil {
			return types.ProjectSummary{}, ctx.Err()
		}
		e.recorder.IncCleanFailure(project.Name)
		log.Warn("Clean failed, continuing", logger.WithField("error", err))
	}

	log.Info(fmt.Sprintf("building %q", project.Name))
	outcome, err := e.builder.Build(ctx, project, slot)
	if ctx.Err() != nil {
		e.recorder.IncBuildOutcome(metrics.OutcomeInterrupted)
		return types.ProjectSummary{}, ctx.Err()
	}
	if err != nil {
		e.recorder.IncBuildOutcome(metrics.OutcomeError)
		return types.ProjectSummary{}, fmt.Errorf("core %d: %w", slot.Core, err)
	}

	if !outcome.Success {
		e.recorder.IncBuildOutcome(metrics.OutcomeFailed)
		failure := &types.BuildFailedError{Project: project.Name, Core: slot.Core, Outcome: outcome}
		dumpOutput(log, outcome)
		log.Error(failure.Error())
		return types.ProjectSummary{}, failure
	}

	e.recorder.IncBuildOutcome(metrics.OutcomeSuccess)
	e.recorder.ObserveBuildDuration(project.Name, int(slot.Core), outcome.Duration)
	log.Info(fmt.Sprintf("built %q in %.2fs", project.Name, outcome.Duration.Seconds()))

	return types.ProjectSummary{Project: project.Name, Duration: outcome.Duration}, nil
}

// dumpOutput writes the captured streams line by line so the failing build
// can be diagnosed from the log alone.
func dumpOutput(log logger.Logger, outcome *types.BuildOutcome) {
	log.Error("------ stdout ------")
	for _, line := range splitLines(outcome.Stdout) {
		log.Error(line)
	}
	log.Error("------ stderr ------")
	for _, line := range splitLines(outcome.Stderr) {
		log.Error(line)
	}
}

func splitLines(s string) []string {
	s = strings.TrimRight(s, "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

// IsInterrupted reports whether err came from the run context being
// cancelled rather than from a failed run.
func IsInterrupted(err error) bool {
	return errors.Is(err, context.Canceled)
}
