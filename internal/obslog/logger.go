// Package obslog constructs the structured logger used throughout the
// server. It follows the pack's convention of building a zap.Logger
// from an explicit zap.Config rather than reaching for a package-level
// global, so tests and multiple server instances never fight over one
// logger's level.
package obslog

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"voxelrealm/internal/worldproc"
)

// Level names accepted by New, matching the values a deployment would
// set via flag or environment variable.
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// New builds a JSON-encoded, stderr-writing logger at the given level.
// An unrecognized level falls back to info rather than failing
// startup over a typo'd flag.
func New(level string, development bool) (*zap.Logger, error) {
	cfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(parseLevel(level)),
		Development:      development,
		Encoding:         "json",
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
		DisableCaller:    !development,
	}
	if development {
		cfg.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	}
	return cfg.Build()
}

// TickLogger implements worldproc.TickLogger over the structured
// logger, emitting one debug-level line per tick that had any join,
// leave, dispatched command, or destruction. Silent ticks are
// skipped so idle servers don't fill the log at tick rate.
type TickLogger struct {
	logger *zap.Logger
}

func NewTickLogger(logger *zap.Logger) *TickLogger {
	return &TickLogger{logger: logger}
}

func (t *TickLogger) WriteTick(entry worldproc.TickLogEntry) error {
	if entry.Joins == 0 && entry.Leaves == 0 && entry.Actions == 0 && entry.EntitiesDestroyed == 0 {
		return nil
	}
	t.logger.Debug("tick",
		zap.Uint64("tick", entry.Tick),
		zap.Uint64("joins", entry.Joins),
		zap.Uint64("leaves", entry.Leaves),
		zap.Uint64("actions", entry.Actions),
		zap.Uint64("entitiesDestroyed", entry.EntitiesDestroyed),
	)
	return nil
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case LevelDebug:
		return zap.DebugLevel
	case LevelWarn:
		return zap.WarnLevel
	case LevelError:
		return zap.ErrorLevel
	default:
		return zap.InfoLevel
	}
}
