// Package metrics exposes stress run timings and outcomes. Components take a
// Recorder; NoopRecorder is the default when no endpoint is configured.
package metrics

import "time"

// OutcomeLabel enumerates build outcome categories for counters
type OutcomeLabel string

const (
	OutcomeSuccess     OutcomeLabel = "success"
	OutcomeFailed      OutcomeLabel = "failed"
	OutcomeError       OutcomeLabel = "error"
	OutcomeInterrupted OutcomeLabel = "interrupted"
)

// Recorder receives timing and outcome observations from the stress engine.
// Implementations must be safe for concurrent use; parallel mode reports from
// one goroutine per core.
type Recorder interface {
	ObserveBuildDuration(project string, core int, d time.Duration)
	ObserveCoreDuration(core int, d time.Duration)
	ObserveRunDuration(d time.Duration)
	IncBuildOutcome(outcome OutcomeLabel)
	IncCleanFailure(project string)
	SetCurrentRun(run int)
}

// NoopRecorder is a Recorder that does nothing
type NoopRecorder struct{}

func (NoopRecorder) ObserveBuildDuration(string, int, time.Duration) {}
func (NoopRecorder) ObserveCoreDuration(int, time.Duration)          {}
func (NoopRecorder) ObserveRunDuration(time.Duration)                {}
func (NoopRecorder) IncBuildOutcome(OutcomeLabel)                    {}
func (NoopRecorder) IncCleanFailure(string)                          {}
func (NoopRecorder) SetCurrentRun(int)                               {}
