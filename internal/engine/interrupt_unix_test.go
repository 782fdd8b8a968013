//go:build unix

package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corestress/corestress/pkg/affinity"
	"github.com/corestress/corestress/pkg/builders"
	"github.com/corestress/corestress/pkg/logger"
	"github.com/corestress/corestress/pkg/metrics"
	"github.com/corestress/corestress/pkg/process"
	"github.com/corestress/corestress/pkg/types"
)

// fixedBackend reports a single unit and accepts any mask
type fixedBackend struct{}

func (fixedBackend) Get() (affinity.UnitSet, error) { return affinity.UnitSet{0}, nil }
func (fixedBackend) Set(affinity.UnitSet) error     { return nil }

// The build interrupts corestress the way a terminal Ctrl-C would: the
// signal goes to corestress and, only when the build shares its process
// group, to the build as well.
const interruptingBuild = `kill -INT $PPID; ` +
	`if [ -r /proc/$$/stat ] && [ "$(cut -d' ' -f5 /proc/$$/stat)" = "$(cut -d' ' -f5 /proc/$PPID/stat)" ]; then kill -INT $$; fi; ` +
	`sleep 5`

func TestRun_TerminalInterruptDuringRealBuild(t *testing.T) {
	log := logger.CreateLoggerWithOutput("debug", nil)
	opts := builders.Options{CleanCommand: "true", BuildCommand: interruptingBuild, FlagsEnv: "CFLAGS"}
	builder := builders.NewBaseBuilder(opts, process.NewExecRunner(), affinity.NewPinner(fixedBackend{}, log), log)
	rec := newCountingRecorder()

	project := types.Project{Name: "victim", Path: t.TempDir()}
	eng := New(Options{
		Cores:    []types.PhysicalCore{0},
		Mode:     types.RunModeSequential,
		Topology: affinity.Topology{PhysicalCores: 1, LogicalCPUs: 1},
		MaxRuns:  1,
	}, []types.Project{project}, log, Dependencies{Builder: builder, Recorder: rec})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	manager := process.NewManager(log)
	manager.RegisterShutdownHandler(cancel)
	manager.Start(ctx)
	defer manager.Stop()

	start := time.Now()
	err := eng.Run(ctx)

	require.Error(t, err)
	assert.True(t, IsInterrupted(err), "got %v", err)
	var failure *types.BuildFailedError
	assert.NotErrorAs(t, err, &failure)
	assert.Less(t, time.Since(start), 4*time.Second)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, 1, rec.outcomes[metrics.OutcomeInterrupted])
	assert.Zero(t, rec.outcomes[metrics.OutcomeFailed])
}
