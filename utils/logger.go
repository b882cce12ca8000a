package utils

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log output formats accepted by NewLogger.
const (
	LogConsole = "console"
	LogJSON    = "json"
)

// NewLogger builds the structured logger used by the command line tool.
// The json format is meant for log collectors, the console format for humans.
func NewLogger(format string, verbose bool) (*zap.Logger, error) {
	var cfg zap.Config

	switch format {
	case LogJSON:
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "timestamp"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	case LogConsole, "":
		cfg = zap.NewDevelopmentConfig()
		cfg.DisableStacktrace = true
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		if colorize {
			cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		}
	default:
		return nil, fmt.Errorf("unsupported log format %q", format)
	}

	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.DisableCaller = !verbose

	return cfg.Build()
}
