//go:build unix

package process_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corestress/corestress/pkg/process"
)

func TestExecRunner_CancelKillsProcessGroup(t *testing.T) {
	dir := t.TempDir()
	marker := filepath.Join(dir, "still-running")

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	cmd := process.ParseCommand("(sleep 1; touch still-running) & wait")
	cmd.Dir = dir

	start := time.Now()
	result, err := process.NewExecRunner().Run(ctx, cmd)
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.False(t, result.Success())
	assert.Less(t, elapsed, 900*time.Millisecond, "run must return once the context is done")

	// Outlive the background sleep to catch a surviving grandchild
	time.Sleep(1500 * time.Millisecond)
	assert.NoFileExists(t, marker)
}

func TestExecRunner_ChildRunsInOwnProcessGroup(t *testing.T) {
	// Field 5 of /proc/<pid>/stat is the process group id
	cmd := process.ParseCommand(`[ -r /proc/$$/stat ] || exit 2; [ "$(cut -d' ' -f5 /proc/$$/stat)" = "$$" ]`)

	result, err := process.NewExecRunner().Run(context.Background(), cmd)
	require.NoError(t, err)
	if result.ExitCode == 2 {
		t.Skip("requires procfs")
	}
	assert.True(t, result.Success(), "build must lead its own process group")
}
