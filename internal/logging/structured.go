// Package logging provides structured logging for workerctl components.
package logging

import (
	"maps"
	"os"
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level represents log severity
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Format selects the encoder used by the base logger.
type Format string

const (
	FormatConsole Format = "console"
	FormatJSON    Format = "json"
)

var (
	baseMu sync.RWMutex
	base   = zap.NewNop()
)

// zapLevel converts a level name to zapcore.Level, defaulting to warn.
func zapLevel(level Level) zapcore.Level {
	switch Level(strings.ToLower(string(level))) {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelInfo:
		return zapcore.InfoLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.WarnLevel
	}
}

// Init builds the process-wide base logger writing to stderr and installs it.
func Init(level Level, format Format) *zap.Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var enc zapcore.Encoder
	if Format(strings.ToLower(string(format))) == FormatJSON {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	}

	core := zapcore.NewCore(enc, zapcore.Lock(os.Stderr), zapLevel(level))
	l := zap.New(core)
	SetBase(l)
	return l
}

// SetBase replaces the base logger. Passing nil installs a no-op logger.
func SetBase(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	baseMu.Lock()
	base = l
	baseMu.Unlock()
}

// Base returns the current base logger.
func Base() *zap.Logger {
	baseMu.RLock()
	defer baseMu.RUnlock()
	return base
}

// Sync flushes the base logger.
func Sync() {
	_ = Base().Sync()
}

// Logger provides structured logging
type Logger struct {
	component string
	worker    string
	run       string
}

// New creates a new logger for a component
func New(component string) *Logger {
	return &Logger{component: component}
}

// WithWorker sets the worker context
func (l *Logger) WithWorker(worker string) *Logger {
	return &Logger{
		component: l.component,
		worker:    worker,
		run:       l.run,
	}
}

// WithRun sets the supervisor run id
func (l *Logger) WithRun(run string) *Logger {
	return &Logger{
		component: l.component,
		worker:    l.worker,
		run:       run,
	}
}

// log emits a structured log event
func (l *Logger) log(level zapcore.Level, event string, extra map[string]interface{}, err error) {
	z := Base()
	if !z.Core().Enabled(level) {
		return
	}

	fields := make([]zap.Field, 0, len(extra)+4)
	fields = append(fields, zap.String("component", l.component))
	if l.worker != "" {
		fields = append(fields, zap.String("worker", l.worker))
	}
	if l.run != "" {
		fields = append(fields, zap.String("run", l.run))
	}
	for _, k := range slices.Sorted(maps.Keys(extra)) {
		fields = append(fields, zap.Any(k, extra[k]))
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}

	if ce := z.Check(level, event); ce != nil {
		ce.Write(fields...)
	}
}

// Debug logs a debug event
func (l *Logger) Debug(event string, extra map[string]interface{}) {
	l.log(zapcore.DebugLevel, event, extra, nil)
}

// Info logs an info event
func (l *Logger) Info(event string, extra map[string]interface{}) {
	l.log(zapcore.InfoLevel, event, extra, nil)
}

// Warn logs a warning event
func (l *Logger) Warn(event string, extra map[string]interface{}, err error) {
	l.log(zapcore.WarnLevel, event, extra, err)
}

// Error logs an error event
func (l *Logger) Error(event string, extra map[string]interface{}, err error) {
	l.log(zapcore.ErrorLevel, event, extra, err)
}
