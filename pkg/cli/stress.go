package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/corestress/corestress/internal/engine"
	"github.com/corestress/corestress/pkg/builders"
	"github.com/corestress/corestress/pkg/config"
	pcontext "github.com/corestress/corestress/pkg/context"
	"github.com/corestress/corestress/pkg/logger"
	"github.com/corestress/corestress/pkg/metrics"
	"github.com/corestress/corestress/pkg/process"
	"github.com/corestress/corestress/pkg/project"
	"github.com/corestress/corestress/pkg/types"
)

// loadConfig merges flags, CORESTRESS_* env and the config file
func (c *CLI) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	v := viper.New()
	if err := config.BindFlags(v, cmd.Flags()); err != nil {
		return nil, err
	}

	cfg, err := config.Load(v, c.config.ConfigFile, c.config.Workdir)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *CLI) runStress(cmd *cobra.Command, _ []string) error {
	cfg, err := c.loadConfig(cmd)
	if err != nil {
		return err
	}

	root, err := canonicalDir(cfg.Workdir)
	if err != nil {
		return err
	}

	topology, err := c.config.DetectTopology()
	if err != nil {
		return err
	}
	cores, err := config.ParseCores(cfg.Cores, topology.PhysicalCores)
	if err != nil {
		return err
	}

	log, err := logger.CreateLoggerTo(c.output, resolveLogPath(root, cfg.LogPath), cfg.Verbosity)
	if err != nil {
		return err
	}
	defer log.Close()

	ctx := pcontext.WithSessionID(cmd.Context(), "")
	sessionLog := logger.WithContext(ctx, log)
	sessionLog.Info("Starting stress session",
		logger.WithField("workdir", root),
		logger.WithField("mode", cfg.RunMode()),
		logger.WithField("cores", cores),
		logger.WithField("physical", topology.PhysicalCores),
		logger.WithField("logical", topology.LogicalCPUs))

	projects, err := project.NewRepository(cfg.Marker, log).Discover(root)
	if err != nil {
		return err
	}
	if len(projects) == 0 {
		sessionLog.Error(fmt.Sprintf("no directory under %s contains %s", root, cfg.Marker))
		return fmt.Errorf("%w under %s", types.ErrNoProjects, root)
	}
	sessionLog.Info(fmt.Sprintf("found %d projects: %s", len(projects), projectNames(projects)))

	factory := engine.NewDependencyFactory(cfg, log)
	deps, err := factory.CreateWithOverrides(c.config.Overrides)
	if err != nil {
		return err
	}
	notify := factory.CreateNotifier()

	if reg := factory.Registry(); reg != nil {
		srv, err := metrics.Listen(cfg.MetricsAddr, reg)
		if err != nil {
			return fmt.Errorf("failed to serve metrics: %w", err)
		}
		go func() {
			if err := srv.Serve(); err != nil {
				sessionLog.Warn("Metrics server stopped", logger.WithField("error", err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		sessionLog.Info("Serving metrics", logger.WithField("addr", srv.Addr()))
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	eng := engine.New(engine.Options{
		Cores:    cores,
		Mode:     cfg.RunMode(),
		Topology: topology,
		Isolate:  cfg.IsolateEnv != "",
		MaxRuns:  cfg.MaxRuns,
		OnRun: func(s types.RunSummary) {
			sessionLog.Debug("Run summary",
				logger.WithField("run", s.Run),
				logger.WithField("cores", len(s.Cores)))
		},
	}, projects, log, deps)

	manager := process.NewManager(log)
	manager.RegisterShutdownHandler(cancel)
	manager.SetHeartbeat(cfg.Heartbeat, func() {
		sessionLog.Info(heartbeatMessage(eng.CompletedRuns(), deps.Builder))
	})
	manager.Start(ctx)
	defer manager.Stop()

	start := time.Now()
	err = eng.Run(ctx)

	switch {
	case err == nil:
		sessionLog.Success(fmt.Sprintf("completed %d runs in %.2fs", eng.CompletedRuns(), time.Since(start).Seconds()))
		return nil
	case engine.IsInterrupted(err):
		sessionLog.Warn(fmt.Sprintf("interrupted after %d completed runs", eng.CompletedRuns()))
		notify.NotifyInterrupted(eng.CompletedRuns(), time.Since(start))
		return nil
	default:
		sessionLog.Error(fmt.Sprintf("stress failed during run #%d: %v", eng.CompletedRuns(), err))
		notify.NotifyRunFailed(eng.CompletedRuns(), err)
		return err
	}
}

// statsReporter is implemented by builders that count their builds
type statsReporter interface {
	Stats() builders.Stats
}

func heartbeatMessage(runs int, builder engine.Builder) string {
	msg := fmt.Sprintf("still stressing, %d runs completed", runs)
	if r, ok := builder.(statsReporter); ok {
		stats := r.Stats()
		msg += fmt.Sprintf(", %d/%d builds succeeded", stats.SuccessBuilds, stats.TotalBuilds)
		if stats.TotalBuilds > 0 {
			msg += fmt.Sprintf(", last build took %.2fs", stats.LastBuildTime.Seconds())
		}
	}
	return msg
}

// resolveLogPath anchors a relative log path at the stress root
func resolveLogPath(root, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}

func canonicalDir(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve workdir %s: %w", dir, err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("failed to resolve workdir %s: %w", dir, err)
	}
	return resolved, nil
}

func projectNames(projects []types.Project) string {
	names := make([]string, 0, len(projects))
	for _, p := range projects {
		names = append(names, p.Name)
	}
	return strings.Join(names, ", ")
}

// ExitCode maps a CLI error to the process exit status
func ExitCode(err error) int {
	if err == nil || errors.Is(err, context.Canceled) {
		return 0
	}
	return 1
}
