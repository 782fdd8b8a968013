// Package context carries stress session metadata through context.Context
package context

import (
	"context"

	"github.com/google/uuid"
)

// Context keys. Using unexported struct pointers prevents key collisions.
var (
	sessionIDKey = &struct{}{}
	runKey       = &struct{}{}
)

// WithSessionID adds a session ID to the context, generating one when empty
func WithSessionID(parent context.Context, sessionID string) context.Context {
	if sessionID == "" {
		sessionID = GenerateSessionID()
	}
	return context.WithValue(parent, sessionIDKey, sessionID)
}

// GetSessionID retrieves the session ID from context
func GetSessionID(ctx context.Context) string {
	if id, ok := ctx.Value(sessionIDKey).(string); ok {
		return id
	}
	return ""
}

// WithRun marks the context with the current iteration of the run loop
func WithRun(parent context.Context, run int) context.Context {
	return context.WithValue(parent, runKey, run)
}

// GetRun retrieves the run number from context
func GetRun(ctx context.Context) (int, bool) {
	run, ok := ctx.Value(runKey).(int)
	return run, ok
}

// GenerateSessionID creates a new unique session ID
func GenerateSessionID() string {
	return "stress_" + uuid.New().String()[:8]
}
