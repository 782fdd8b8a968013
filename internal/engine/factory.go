package engine

import (
	"fmt"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/corestress/corestress/pkg/affinity"
	"github.com/corestress/corestress/pkg/builders"
	"github.com/corestress/corestress/pkg/config"
	"github.com/corestress/corestress/pkg/logger"
	"github.com/corestress/corestress/pkg/metrics"
	"github.com/corestress/corestress/pkg/notifier"
	"github.com/corestress/corestress/pkg/process"
)

// DependencyFactory creates the production collaborators of the engine from
// a loaded configuration.
type DependencyFactory struct {
	config   *config.Config
	logger   logger.Logger
	registry *prom.Registry
}

// NewDependencyFactory creates a new dependency factory
func NewDependencyFactory(cfg *config.Config, log logger.Logger) *DependencyFactory {
	f := &DependencyFactory{
		config: cfg,
		logger: log,
	}
	if cfg.MetricsAddr != "" {
		f.registry = prom.NewRegistry()
	}
	return f
}

// CreateDefaults builds the exec-backed builder, pinned through the host's
// affinity backend, and a recorder matching the metrics setting.
func (f *DependencyFactory) CreateDefaults() (Dependencies, error) {
	builder := builders.NewBaseBuilder(
		f.BuilderOptions(),
		process.NewExecRunner(),
		affinity.NewPinner(affinity.NewBackend(), f.logger.WithScope("affinity")),
		f.logger,
	)
	if err := builder.Validate(); err != nil {
		return Dependencies{}, fmt.Errorf("invalid build configuration: %w", err)
	}

	return Dependencies{
		Builder:  builder,
		Recorder: f.createRecorder(),
	}, nil
}

// CreateWithOverrides creates the defaults and replaces any non-nil override
func (f *DependencyFactory) CreateWithOverrides(overrides Dependencies) (Dependencies, error) {
	deps, err := f.CreateDefaults()
	if err != nil {
		return Dependencies{}, err
	}

	if overrides.Builder != nil {
		deps.Builder = overrides.Builder
	}
	if overrides.Recorder != nil {
		deps.Recorder = overrides.Recorder
	}
	return deps, nil
}

// BuilderOptions maps the configured commands onto builder options
func (f *DependencyFactory) BuilderOptions() builders.Options {
	return builders.Options{
		CleanCommand: f.config.CleanCommand,
		BuildCommand: f.config.BuildCommand,
		FlagsEnv:     f.config.FlagsEnv,
		IsolateEnv:   f.config.IsolateEnv,
	}
}

// Registry is the metrics registry to serve, nil when metrics are disabled
func (f *DependencyFactory) Registry() *prom.Registry {
	return f.registry
}

// CreateNotifier creates the end-of-session notifier
func (f *DependencyFactory) CreateNotifier() *notifier.StressNotifier {
	return notifier.New(notifier.Config{
		Enabled: f.config.Notify,
		Beep:    f.config.Notify,
	}, f.logger)
}

func (f *DependencyFactory) createRecorder() metrics.Recorder {
	if f.registry == nil {
		return metrics.NoopRecorder{}
	}
	return metrics.NewPrometheusRecorder(f.registry)
}
