// Package cli provides the command-line interface for corestress
package cli

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/corestress/corestress/pkg/config"
	"github.com/corestress/corestress/pkg/logger"
)

// CLI holds the command tree and its outputs
type CLI struct {
	config   *Config
	rootCmd  *cobra.Command
	output   io.Writer
	errorOut io.Writer
}

// NewCLI creates a new CLI instance with the given configuration
func NewCLI(cfg *Config) *CLI {
	if cfg == nil {
		cfg = NewConfig()
	}
	if cfg.DetectTopology == nil {
		cfg.DetectTopology = NewConfig().DetectTopology
	}

	c := &CLI{
		config:   cfg,
		output:   os.Stdout,
		errorOut: os.Stderr,
	}
	c.setupCommands()
	return c
}

// NewCLIWithOutput creates a CLI with custom output writers (for testing)
func NewCLIWithOutput(cfg *Config, output, errorOut io.Writer) *CLI {
	c := NewCLI(cfg)
	c.output = output
	c.errorOut = errorOut
	c.rootCmd.SetOut(output)
	c.rootCmd.SetErr(errorOut)
	return c
}

// Execute runs the CLI with the given arguments
func (c *CLI) Execute(args []string) error {
	return c.ExecuteContext(context.Background(), args)
}

// ExecuteContext runs the CLI with context support
func (c *CLI) ExecuteContext(ctx context.Context, args []string) error {
	c.rootCmd.SetArgs(args)
	return c.rootCmd.ExecuteContext(ctx)
}

func (c *CLI) setupCommands() {
	c.rootCmd = &cobra.Command{
		Use:   "corestress",
		Short: "Burn in CPU cores by building projects pinned to them",
		Long: `corestress repeatedly cleans and builds every project under the work
directory while pinning each build to one physical core and its hyperthread
siblings. It runs until interrupted or until a build fails, so unstable
silicon shows up as a broken build in the log.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          c.runStress,
	}

	c.setupFlags()

	c.rootCmd.Version = c.config.Version
	c.rootCmd.SetVersionTemplate("corestress v{{.Version}}\n")

	c.rootCmd.AddCommand(c.newInitCmd())
	c.rootCmd.AddCommand(c.newTopologyCmd())
}

func (c *CLI) setupFlags() {
	persistent := c.rootCmd.PersistentFlags()
	persistent.StringVar(&c.config.ConfigFile, "config", "", "config file (default: <workdir>/"+config.DefaultConfigFile+")")
	persistent.StringVarP(&c.config.Workdir, "workdir", "w", c.config.Workdir, "directory containing the projects to build")
	persistent.StringP("verbosity", "v", "info", "log level (debug, info, warn, error)")

	d := config.Default()
	flags := c.rootCmd.Flags()
	flags.StringSliceP("cores", "c", nil, "zero-based physical cores to stress (default: all)")
	flags.StringP("log-path", "l", d.LogPath, "log file, truncated at start")
	flags.StringP("mode", "m", d.Mode, "run mode: sequential|seq|parallel|par")
	flags.String("marker", d.Marker, "file identifying a project directory")
	flags.String("clean-command", d.CleanCommand, "command cleaning a project")
	flags.String("build-command", d.BuildCommand, "command building a project")
	flags.String("flags-env", d.FlagsEnv, "compiler flags variable cleared for builds")
	flags.String("isolate-env", d.IsolateEnv, "variable pointing parallel builds at a per-core output directory (empty disables)")
	flags.Int("max-runs", d.MaxRuns, "stop after this many runs (0 runs until interrupted)")
	flags.String("metrics-addr", d.MetricsAddr, "serve Prometheus metrics on this address")
	flags.Bool("notify", d.Notify, "raise a desktop notification when the session ends")
	flags.Duration("heartbeat", d.Heartbeat, "log a progress line at this interval (0 disables)")
}

// console prints one-shot command output
func (c *CLI) console() *logger.ConsoleLogger {
	return logger.NewConsoleLogger(c.output)
}

// ExecuteWithVersion runs the CLI against os.Args
func ExecuteWithVersion(version string) error {
	cfg := NewConfig()
	cfg.Version = version
	return NewCLI(cfg).Execute(os.Args[1:])
}
