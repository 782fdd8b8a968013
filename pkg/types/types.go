// Package types provides the core data model for corestress
package types

import (
	"fmt"
	"path/filepath"
	"time"
)

// PhysicalCore is a zero-based index of one physical core on the host,
// excluding hyperthread siblings.
type PhysicalCore int

// String implements fmt.Stringer
func (c PhysicalCore) String() string {
	return fmt.Sprintf("%d", int(c))
}

// RunMode selects how requested cores are stressed
type RunMode string

const (
	// RunModeSequential stresses one core at a time, building every project on it
	// before moving on to the next core.
	RunModeSequential RunMode = "sequential"
	// RunModeParallel stresses all requested cores at once, each driving the
	// full project list on its own.
	RunModeParallel RunMode = "parallel"
)

// IsValid reports whether the mode is a known run mode
func (m RunMode) IsValid() bool {
	return m == RunModeSequential || m == RunModeParallel
}

// Project is one buildable directory discovered under the stress root
type Project struct {
	Name string `json:"name" yaml:"name"`
	Path string `json:"path" yaml:"path"`
}

// NewProject creates a project handle from an already canonical path
func NewProject(path string) Project {
	return Project{
		Name: filepath.Base(path),
		Path: path,
	}
}

// String implements fmt.Stringer
func (p Project) String() string {
	return p.Name
}

// BuildOutcome is the result of one build attempt
type BuildOutcome struct {
	Success   bool          `json:"success"`
	ExitCode  int           `json:"exitCode"`
	Stdout    string        `json:"stdout,omitempty"`
	Stderr    string        `json:"stderr,omitempty"`
	StartedAt time.Time     `json:"startedAt"`
	Duration  time.Duration `json:"duration"`
}

// ProjectSummary records one successful clean+build of a project on a core
type ProjectSummary struct {
	Project  string        `json:"project"`
	Duration time.Duration `json:"duration"`
}

// CoreSummary records everything built on one core during a run
type CoreSummary struct {
	Core     PhysicalCore     `json:"core"`
	Units    []int            `json:"units"`
	Projects []ProjectSummary `json:"projects"`
	Elapsed  time.Duration    `json:"elapsed"`
}

// RunSummary records one full pass of the core x project matrix
type RunSummary struct {
	Run     int           `json:"run"`
	Mode    RunMode       `json:"mode"`
	Cores   []CoreSummary `json:"cores"`
	Elapsed time.Duration `json:"elapsed"`
}

// RunShape is the timing-free view of a RunSummary
type RunShape struct {
	Mode  RunMode
	Cores []CoreShape
}

// CoreShape is the timing-free view of a CoreSummary
type CoreShape struct {
	Core     PhysicalCore
	Units    []int
	Projects []string
}

// Shape strips run number and elapsed times so that two runs over the same
// inputs can be compared structurally.
func (s RunSummary) Shape() RunShape {
	shape := RunShape{Mode: s.Mode, Cores: make([]CoreShape, 0, len(s.Cores))}
	for _, c := range s.Cores {
		cs := CoreShape{
			Core:     c.Core,
			Units:    append([]int(nil), c.Units...),
			Projects: make([]string, 0, len(c.Projects)),
		}
		for _, p := range c.Projects {
			cs.Projects = append(cs.Projects, p.Project)
		}
		shape.Cores = append(shape.Cores, cs)
	}
	return shape
}
