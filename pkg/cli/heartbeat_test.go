package cli

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/corestress/corestress/internal/engine"
	"github.com/corestress/corestress/pkg/builders"
	"github.com/corestress/corestress/pkg/types"
)

type plainBuilder struct{}

func (plainBuilder) Clean(context.Context, types.Project, builders.Slot) error { return nil }

func (plainBuilder) Build(context.Context, types.Project, builders.Slot) (*types.BuildOutcome, error) {
	return &types.BuildOutcome{Success: true}, nil
}

type countingBuilder struct {
	plainBuilder
	stats builders.Stats
}

func (b countingBuilder) Stats() builders.Stats { return b.stats }

func TestHeartbeatMessage(t *testing.T) {
	tests := []struct {
		name    string
		builder engine.Builder
		want    string
	}{
		{
			name:    "with build stats",
			builder: countingBuilder{stats: builders.Stats{TotalBuilds: 12, SuccessBuilds: 11, LastBuildTime: 1500 * time.Millisecond}},
			want:    "still stressing, 3 runs completed, 11/12 builds succeeded, last build took 1.50s",
		},
		{
			name:    "no builds yet",
			builder: countingBuilder{},
			want:    "still stressing, 3 runs completed, 0/0 builds succeeded",
		},
		{
			name:    "builder without stats",
			builder: plainBuilder{},
			want:    "still stressing, 3 runs completed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, heartbeatMessage(3, tt.builder))
		})
	}
}

func TestResolveLogPath(t *testing.T) {
	assert.Equal(t, "/stress/stress.log", resolveLogPath("/stress", "stress.log"))
	assert.Equal(t, "/stress/logs/run.log", resolveLogPath("/stress", "logs/run.log"))
	assert.Equal(t, "/var/log/stress.log", resolveLogPath("/stress", "/var/log/stress.log"))
	assert.Equal(t, "", resolveLogPath("/stress", ""))
}
