package config

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds a zap logger from the logging section.
// Level is one of debug, info, warn, error (default info); format is json
// or console (default json).
func NewLogger(cfg Logging) (*zap.Logger, error) {
	level := cfg.Level
	if level == "" {
		level = "info"
	}
	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	var zc zap.Config
	switch cfg.Format {
	case "console":
		zc = zap.NewDevelopmentConfig()
	case "json", "":
		zc = zap.NewProductionConfig()
	default:
		return nil, fmt.Errorf("invalid log format %q: must be \"json\" or \"console\"", cfg.Format)
	}
	zc.Level = zap.NewAtomicLevelAt(zapLevel)
	zc.DisableStacktrace = zapLevel > zapcore.DebugLevel

	return zc.Build()
}
