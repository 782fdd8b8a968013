// Package logger provides leveled, timestamped logging to the console and a log file
package logger

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
)

// TimestampFormat is day-month and wall clock time, matching what operators
// read off a burn-in log over several days.
const TimestampFormat = "02-01 15:04:05"

// Logger interface for abstracted logging
type Logger interface {
	Info(message string, fields ...Field)
	Error(message string, fields ...Field)
	Warn(message string, fields ...Field)
	Debug(message string, fields ...Field)
	Success(message string, fields ...Field)
	WithScope(scope string) Logger
}

// Field represents a structured logging field
type Field struct {
	Key   string
	Value interface{}
}

// WithField creates a new field
func WithField(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// ScopedLogger implements Logger with an optional scope prefix such as "core 3"
type ScopedLogger struct {
	logger *logrus.Logger
	scope  string
	closer io.Closer
	mu     sync.RWMutex
}

// CustomFormatter formats log lines with optional colors
type CustomFormatter struct {
	TimestampFormat string
	DisableColors   bool
}

// Format implements logrus.Formatter
func (f *CustomFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	timestamp := entry.Time.Format(f.TimestampFormat)

	var levelColor *color.Color
	var levelText string

	switch entry.Level {
	case logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel:
		levelColor = color.New(color.FgRed, color.Bold)
		levelText = "ERROR"
	case logrus.WarnLevel:
		levelColor = color.New(color.FgYellow, color.Bold)
		levelText = "WARN "
	case logrus.InfoLevel:
		levelColor = color.New(color.FgCyan)
		levelText = "INFO "
	default:
		levelColor = color.New(color.FgWhite, color.Faint)
		levelText = "DEBUG"
	}

	// Copy data so that a shared entry is not mutated for the next formatter
	data := make(logrus.Fields, len(entry.Data))
	for k, v := range entry.Data {
		data[k] = v
	}

	scopePrefix := ""
	if scope, ok := data["scope"]; ok {
		if f.DisableColors {
			scopePrefix = fmt.Sprintf("[%v] ", scope)
		} else {
			scopePrefix = fmt.Sprintf("[%s] ", color.New(color.FgBlue).Sprint(scope))
		}
		delete(data, "scope")
	}

	var b strings.Builder
	if f.DisableColors {
		fmt.Fprintf(&b, "[%s] %s %s%s", timestamp, levelText, scopePrefix, entry.Message)
	} else {
		fmt.Fprintf(&b, "[%s] %s %s%s", timestamp, levelColor.Sprint(levelText), scopePrefix, entry.Message)
	}

	if len(data) > 0 {
		keys := make([]string, 0, len(data))
		for k := range data {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		pairs := make([]string, 0, len(keys))
		for _, k := range keys {
			pairs = append(pairs, fmt.Sprintf("%s=%v", k, data[k]))
		}
		fields := " {" + strings.Join(pairs, ", ") + "}"
		if f.DisableColors {
			b.WriteString(fields)
		} else {
			b.WriteString(color.New(color.FgWhite, color.Faint).Sprint(fields))
		}
	}

	b.WriteByte('\n')
	return []byte(b.String()), nil
}

// fileHook mirrors every entry into the log file without colors
type fileHook struct {
	writer    io.Writer
	formatter logrus.Formatter
	mu        sync.Mutex
}

func (h *fileHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *fileHook) Fire(entry *logrus.Entry) error {
	line, err := h.formatter.Format(entry)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	_, err = h.writer.Write(line)
	return err
}

// CreateLogger creates a logger that writes colored lines to stdout and, when
// logFile is set, plain lines to that file. The file is truncated and opened
// for synchronous writes so that a host that hangs mid-run still leaves the
// lines leading up to the hang on disk.
func CreateLogger(logFile string, logLevel string) (*ScopedLogger, error) {
	return CreateLoggerTo(os.Stdout, logFile, logLevel)
}

// CreateLoggerTo is CreateLogger with the console lines going to console
func CreateLoggerTo(console io.Writer, logFile string, logLevel string) (*ScopedLogger, error) {
	log := newLogrus(logLevel, console, false)

	var closer io.Closer
	if logFile != "" {
		file, err := openLogFile(logFile)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %w", logFile, err)
		}
		log.AddHook(&fileHook{
			writer: file,
			formatter: &CustomFormatter{
				TimestampFormat: TimestampFormat,
				DisableColors:   true,
			},
		})
		closer = file
	}

	return &ScopedLogger{
		logger: log,
		closer: closer,
	}, nil
}

// CreateLoggerWithOutput creates a logger with custom output (for testing)
func CreateLoggerWithOutput(logLevel string, output io.Writer) *ScopedLogger {
	if output == nil {
		output = io.Discard
	}
	return &ScopedLogger{
		logger: newLogrus(logLevel, output, true),
	}
}

func newLogrus(logLevel string, output io.Writer, disableColors bool) *logrus.Logger {
	log := logrus.New()

	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	log.SetOutput(output)
	log.SetFormatter(&CustomFormatter{
		TimestampFormat: TimestampFormat,
		DisableColors:   disableColors,
	})

	return log
}

// WithScope creates a new logger that prefixes every line with scope
func (l *ScopedLogger) WithScope(scope string) Logger {
	return &ScopedLogger{
		logger: l.logger,
		scope:  scope,
	}
}

// Close releases the log file, if any
func (l *ScopedLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closer == nil {
		return nil
	}
	err := l.closer.Close()
	l.closer = nil
	return err
}

// convertFields converts Field slice to logrus.Fields
func (l *ScopedLogger) convertFields(fields []Field) logrus.Fields {
	result := make(logrus.Fields, len(fields)+1)
	if l.scope != "" {
		result["scope"] = l.scope
	}
	for _, f := range fields {
		result[f.Key] = f.Value
	}
	return result
}

// Info logs an info message
func (l *ScopedLogger) Info(message string, fields ...Field) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	l.logger.WithFields(l.convertFields(fields)).Info(message)
}

// Error logs an error message
func (l *ScopedLogger) Error(message string, fields ...Field) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	l.logger.WithFields(l.convertFields(fields)).Error(message)
}

// Warn logs a warning message
func (l *ScopedLogger) Warn(message string, fields ...Field) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	l.logger.WithFields(l.convertFields(fields)).Warn(message)
}

// Debug logs a debug message
func (l *ScopedLogger) Debug(message string, fields ...Field) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	l.logger.WithFields(l.convertFields(fields)).Debug(message)
}

// Success logs a success message (info level with special formatting)
func (l *ScopedLogger) Success(message string, fields ...Field) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	l.logger.WithFields(l.convertFields(fields)).Info("✓ " + message)
}

// ConsoleLogger provides plain console output for one-shot CLI commands
type ConsoleLogger struct {
	out io.Writer
}

// NewConsoleLogger creates a console logger writing to out
func NewConsoleLogger(out io.Writer) *ConsoleLogger {
	if out == nil {
		out = os.Stdout
	}
	return &ConsoleLogger{out: out}
}

// Info prints info message
func (c *ConsoleLogger) Info(message string) {
	fmt.Fprintf(c.out, "%s %s\n", color.CyanString("[corestress]"), message)
}

// Warn prints warning message
func (c *ConsoleLogger) Warn(message string) {
	fmt.Fprintf(c.out, "%s %s\n", color.YellowString("[corestress]"), message)
}

// Success prints success message
func (c *ConsoleLogger) Success(message string) {
	fmt.Fprintf(c.out, "%s ✓ %s\n", color.GreenString("[corestress]"), message)
}

func openLogFile(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC|os.O_SYNC, 0644)
}
