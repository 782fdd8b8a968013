package cli

import (
	"github.com/corestress/corestress/internal/engine"
	"github.com/corestress/corestress/pkg/affinity"
)

// Config holds the CLI-level settings that are not part of a stress session
type Config struct {
	ConfigFile string
	Workdir    string
	Version    string

	// DetectTopology reads the host's core layout
	DetectTopology func() (affinity.Topology, error)
	// Overrides replaces engine collaborators, for tests
	Overrides engine.Dependencies
}

// NewConfig creates a new CLI configuration with defaults
func NewConfig() *Config {
	return &Config{
		Workdir:        ".",
		DetectTopology: affinity.DetectTopology,
	}
}
