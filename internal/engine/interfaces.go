package engine

import (
	"context"

	"github.com/corestress/corestress/pkg/builders"
	"github.com/corestress/corestress/pkg/metrics"
	"github.com/corestress/corestress/pkg/types"
)

// Builder runs the clean and build steps for one project on one slot.
// builders.BaseBuilder is the production implementation; tests script it.
type Builder interface {
	Clean(ctx context.Context, project types.Project, slot builders.Slot) error
	Build(ctx context.Context, project types.Project, slot builders.Slot) (*types.BuildOutcome, error)
}

// Dependencies are the collaborators injected into the engine
type Dependencies struct {
	Builder  Builder
	Recorder metrics.Recorder
}
