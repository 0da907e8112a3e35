// Package logger is a thin component-tagged logging facade over zap.
// Call sites pass a component name plus an optional field map so every
// line carries enough context to follow one turn through the pipeline.
package logger

import (
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var active atomic.Pointer[zap.Logger]

func init() {
	active.Store(zap.NewNop())
}

// Setup installs the process-wide logger. level is one of
// debug|info|warn|error; format is json or console.
func Setup(level, format string) error {
	cfg := zap.NewProductionConfig()
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	case "warn":
		cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	case "error":
		cfg.Level = zap.NewAtomicLevelAt(zapcore.ErrorLevel)
	default:
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}
	if strings.EqualFold(format, "console") {
		cfg.Encoding = "console"
	}
	l, err := cfg.Build(zap.WithCaller(false))
	if err != nil {
		return err
	}
	active.Store(l)
	return nil
}

// SetLogger replaces the process logger. Tests pass zap.NewNop().
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	active.Store(l)
}

// Sync flushes buffered log entries.
func Sync() {
	_ = active.Load().Sync()
}

func fieldsOf(component string, fields map[string]interface{}) []zap.Field {
	out := make([]zap.Field, 0, len(fields)+1)
	out = append(out, zap.String("component", component))
	for k, v := range fields {
		out = append(out, zap.Any(k, v))
	}
	return out
}

func DebugCF(component, msg string, fields map[string]interface{}) {
	active.Load().Debug(msg, fieldsOf(component, fields)...)
}

func InfoCF(component, msg string, fields map[string]interface{}) {
	active.Load().Info(msg, fieldsOf(component, fields)...)
}

func WarnCF(component, msg string, fields map[string]interface{}) {
	active.Load().Warn(msg, fieldsOf(component, fields)...)
}

func ErrorCF(component, msg string, fields map[string]interface{}) {
	active.Load().Error(msg, fieldsOf(component, fields)...)
}
