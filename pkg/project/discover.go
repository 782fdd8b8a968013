// Package project discovers buildable projects under a stress root
package project

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/corestress/corestress/pkg/logger"
	"github.com/corestress/corestress/pkg/types"
)

// DefaultMarker is the manifest file that identifies a cargo project
const DefaultMarker = "Cargo.toml"

// Repository finds project directories carrying a manifest marker
type Repository struct {
	marker string
	logger logger.Logger
}

// NewRepository creates a repository matching on marker
func NewRepository(marker string, log logger.Logger) *Repository {
	if marker == "" {
		marker = DefaultMarker
	}
	return &Repository{
		marker: marker,
		logger: log,
	}
}

// Discover scans the immediate subdirectories of root and returns those that
// directly contain the marker file. Failing to read root is an error; a
// subdirectory that cannot be inspected is skipped.
func (r *Repository) Discover(root string) ([]types.Project, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("failed to read project root %s: %w", root, err)
	}

	projects := make([]types.Project, 0, len(entries))
	for _, entry := range entries {
		dir := filepath.Join(root, entry.Name())

		p, ok := r.inspect(dir)
		if !ok {
			continue
		}
		projects = append(projects, p)
	}

	return projects, nil
}

func (r *Repository) inspect(dir string) (types.Project, bool) {
	info, err := os.Stat(dir)
	if err != nil {
		r.skip(dir, err)
		return types.Project{}, false
	}
	if !info.IsDir() {
		return types.Project{}, false
	}

	marker, err := os.Stat(filepath.Join(dir, r.marker))
	if err != nil {
		if !os.IsNotExist(err) {
			r.skip(dir, err)
		}
		return types.Project{}, false
	}
	if !marker.Mode().IsRegular() {
		return types.Project{}, false
	}

	canonical, err := canonicalize(dir)
	if err != nil {
		r.skip(dir, err)
		return types.Project{}, false
	}

	return types.NewProject(canonical), true
}

func (r *Repository) skip(dir string, err error) {
	if r.logger != nil {
		r.logger.Debug("Skipping project candidate",
			logger.WithField("dir", dir),
			logger.WithField("error", err))
	}
}

func canonicalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}
