//go:build tools

// Package tools tracks development tool dependencies in go.mod.
// Install with: go install -tags tools ./...
package tools

import (
	// Code generation for pkg/mocks
	_ "github.com/golang/mock/mockgen"
)
