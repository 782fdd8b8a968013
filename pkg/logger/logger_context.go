package logger

import (
	"context"

	pcontext "github.com/corestress/corestress/pkg/context"
)

// WithContext creates a logger that automatically includes the session and
// run carried by ctx in every line.
func WithContext(ctx context.Context, logger Logger) Logger {
	if ctx == nil {
		return logger
	}

	return &contextualLogger{
		ctx:    ctx,
		logger: logger,
	}
}

// contextualLogger wraps a logger with automatic context field extraction
type contextualLogger struct {
	ctx    context.Context
	logger Logger
}

// extractContextFields extracts tracing fields from context
func extractContextFields(ctx context.Context) []Field {
	var fields []Field

	if sessionID := pcontext.GetSessionID(ctx); sessionID != "" {
		fields = append(fields, WithField("session", sessionID))
	}
	if run, ok := pcontext.GetRun(ctx); ok {
		fields = append(fields, WithField("run", run))
	}

	return fields
}

func (cl *contextualLogger) with(fields []Field) []Field {
	return append(extractContextFields(cl.ctx), fields...)
}

func (cl *contextualLogger) Info(message string, fields ...Field) {
	cl.logger.Info(message, cl.with(fields)...)
}

func (cl *contextualLogger) Error(message string, fields ...Field) {
	cl.logger.Error(message, cl.with(fields)...)
}

func (cl *contextualLogger) Warn(message string, fields ...Field) {
	cl.logger.Warn(message, cl.with(fields)...)
}

func (cl *contextualLogger) Debug(message string, fields ...Field) {
	cl.logger.Debug(message, cl.with(fields)...)
}

func (cl *contextualLogger) Success(message string, fields ...Field) {
	cl.logger.Success(message, cl.with(fields)...)
}

func (cl *contextualLogger) WithScope(scope string) Logger {
	return &contextualLogger{
		ctx:    cl.ctx,
		logger: cl.logger.WithScope(scope),
	}
}
