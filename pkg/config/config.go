// Package config loads stress session settings from flags, environment and
// an optional corestress.yaml.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/corestress/corestress/pkg/types"
)

const (
	// ConfigName is the config file base name searched for in the workdir
	ConfigName = "corestress"
	// DefaultConfigFile is the file written by `corestress init`
	DefaultConfigFile = ConfigName + ".yaml"
	// EnvPrefix prefixes every environment override, e.g. CORESTRESS_MODE
	EnvPrefix = "CORESTRESS"
)

// Config keys
const (
	KeyCores        = "cores"
	KeyLogPath      = "log_path"
	KeyWorkdir      = "workdir"
	KeyMode         = "mode"
	KeyMarker       = "marker"
	KeyCleanCommand = "clean_command"
	KeyBuildCommand = "build_command"
	KeyFlagsEnv     = "flags_env"
	KeyIsolateEnv   = "isolate_env"
	KeyMaxRuns      = "max_runs"
	KeyMetricsAddr  = "metrics_addr"
	KeyNotify       = "notify"
	KeyHeartbeat    = "heartbeat"
	KeyVerbosity    = "verbosity"
)

// MinHeartbeat is the shortest accepted heartbeat interval. A bare number in
// the config file decodes as nanoseconds and falls below it.
const MinHeartbeat = time.Second

// Config holds the settings of one stress session
type Config struct {
	// Cores are zero-based physical core indices. Empty means every core.
	Cores        []string      `mapstructure:"cores" yaml:"cores"`
	LogPath      string        `mapstructure:"log_path" yaml:"log_path"`
	Workdir      string        `mapstructure:"workdir" yaml:"workdir"`
	Mode         string        `mapstructure:"mode" yaml:"mode"`
	Marker       string        `mapstructure:"marker" yaml:"marker"`
	CleanCommand string        `mapstructure:"clean_command" yaml:"clean_command"`
	BuildCommand string        `mapstructure:"build_command" yaml:"build_command"`
	FlagsEnv     string        `mapstructure:"flags_env" yaml:"flags_env"`
	IsolateEnv   string        `mapstructure:"isolate_env" yaml:"isolate_env"`
	MaxRuns      int           `mapstructure:"max_runs" yaml:"max_runs"`
	MetricsAddr  string        `mapstructure:"metrics_addr" yaml:"metrics_addr"`
	Notify       bool          `mapstructure:"notify" yaml:"notify"`
	Heartbeat    time.Duration `mapstructure:"heartbeat" yaml:"heartbeat"`
	Verbosity    string        `mapstructure:"verbosity" yaml:"verbosity"`
}

// Default returns the configuration used when nothing is overridden
func Default() *Config {
	return &Config{
		Cores:        []string{},
		LogPath:      "stress.log",
		Workdir:      ".",
		Mode:         string(types.RunModeSequential),
		Marker:       "Cargo.toml",
		CleanCommand: "cargo clean",
		BuildCommand: "cargo build",
		FlagsEnv:     "RUSTFLAGS",
		IsolateEnv:   "CARGO_TARGET_DIR",
		Verbosity:    "info",
	}
}

// SetDefaults registers Default() with v
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault(KeyCores, d.Cores)
	v.SetDefault(KeyLogPath, d.LogPath)
	v.SetDefault(KeyWorkdir, d.Workdir)
	v.SetDefault(KeyMode, d.Mode)
	v.SetDefault(KeyMarker, d.Marker)
	v.SetDefault(KeyCleanCommand, d.CleanCommand)
	v.SetDefault(KeyBuildCommand, d.BuildCommand)
	v.SetDefault(KeyFlagsEnv, d.FlagsEnv)
	v.SetDefault(KeyIsolateEnv, d.IsolateEnv)
	v.SetDefault(KeyMaxRuns, d.MaxRuns)
	v.SetDefault(KeyMetricsAddr, d.MetricsAddr)
	v.SetDefault(KeyNotify, d.Notify)
	v.SetDefault(KeyHeartbeat, d.Heartbeat)
	v.SetDefault(KeyVerbosity, d.Verbosity)
}

// BindFlags binds flags named like the keys with dashes, e.g. --log-path,
// so that a flag set on the command line wins over env and file.
func BindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for _, key := range []string{
		KeyCores, KeyLogPath, KeyWorkdir, KeyMode, KeyMarker, KeyCleanCommand,
		KeyBuildCommand, KeyFlagsEnv, KeyIsolateEnv, KeyMaxRuns, KeyMetricsAddr,
		KeyNotify, KeyHeartbeat, KeyVerbosity,
	} {
		flag := flags.Lookup(strings.ReplaceAll(key, "_", "-"))
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", flag.Name, err)
		}
	}
	return nil
}

// Load reads configFile, or corestress.yaml in searchDir when configFile is
// empty, applies CORESTRESS_* environment overrides and returns the merged
// configuration. A missing corestress.yaml is not an error; a missing
// explicit configFile is.
func Load(v *viper.Viper, configFile, searchDir string) (*Config, error) {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.AddConfigPath(searchDir)
		v.SetConfigName(ConfigName)
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

// Validate checks everything that does not depend on the host topology
func (c *Config) Validate() error {
	if strings.TrimSpace(c.LogPath) == "" {
		return fmt.Errorf("log_path must not be empty")
	}
	if strings.TrimSpace(c.Workdir) == "" {
		return fmt.Errorf("workdir must not be empty")
	}
	if strings.TrimSpace(c.Marker) == "" {
		return fmt.Errorf("marker must not be empty")
	}
	if strings.TrimSpace(c.BuildCommand) == "" {
		return fmt.Errorf("build_command must not be empty")
	}
	if strings.TrimSpace(c.CleanCommand) == "" {
		return fmt.Errorf("clean_command must not be empty")
	}
	if _, err := ParseMode(c.Mode); err != nil {
		return err
	}
	if c.MaxRuns < 0 {
		return fmt.Errorf("max_runs must not be negative, got %d", c.MaxRuns)
	}
	if c.Heartbeat < 0 {
		return fmt.Errorf("heartbeat must not be negative, got %s", c.Heartbeat)
	}
	if c.Heartbeat > 0 && c.Heartbeat < MinHeartbeat {
		return fmt.Errorf("heartbeat must be at least %s, got %s (use a unit, e.g. 30s)", MinHeartbeat, c.Heartbeat)
	}
	switch strings.ToLower(c.Verbosity) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid verbosity %q (debug, info, warn, error)", c.Verbosity)
	}
	return nil
}

// RunMode returns the parsed mode. Call Validate first.
func (c *Config) RunMode() types.RunMode {
	mode, _ := ParseMode(c.Mode)
	return mode
}

// ParseMode accepts sequential/seq and parallel/par in any case
func ParseMode(s string) (types.RunMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sequential", "seq":
		return types.RunModeSequential, nil
	case "parallel", "par":
		return types.RunModeParallel, nil
	default:
		return "", fmt.Errorf("%w %q (sequential, seq, parallel, par)", types.ErrInvalidMode, s)
	}
}

// ParseCore parses one zero-based physical core index and checks it against
// the host's physical core count.
func ParseCore(s string, physical int) (types.PhysicalCore, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("failed to parse core index %q: %w", s, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("%w: core index %d is negative", types.ErrCoreOutOfRange, n)
	}
	if n >= physical {
		return 0, fmt.Errorf("%w: zero-based core index %d is greater than physical core count %d",
			types.ErrCoreOutOfRange, n, physical)
	}
	return types.PhysicalCore(n), nil
}

// ParseCores parses every value in order. No values selects all physical
// cores in ascending order.
func ParseCores(values []string, physical int) ([]types.PhysicalCore, error) {
	if len(values) == 0 {
		cores := make([]types.PhysicalCore, physical)
		for i := range cores {
			cores[i] = types.PhysicalCore(i)
		}
		return cores, nil
	}

	cores := make([]types.PhysicalCore, 0, len(values))
	for _, s := range values {
		core, err := ParseCore(s, physical)
		if err != nil {
			return nil, err
		}
		cores = append(cores, core)
	}
	return cores, nil
}

const fileHeader = `# corestress configuration
# Every key can be overridden with a CORESTRESS_<KEY> environment variable
# or the matching --flag. An empty cores list stresses every physical core.
`

// YAML renders c as a commented corestress.yaml
func (c *Config) YAML() ([]byte, error) {
	body, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return append([]byte(fileHeader), body...), nil
}

// WriteDefault writes the default configuration to path. An existing file
// is only replaced when force is set.
func WriteDefault(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("configuration already exists at %s, use --force to overwrite", path)
	}

	data, err := Default().YAML()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
