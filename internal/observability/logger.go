// Package observability wires structured logging for the CLI and server.
package observability

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// CLILogger is the process-wide logger for command output paths.
// It defaults to a no-op logger until InitCLILogger runs.
var CLILogger = zap.NewNop()

// InitCLILogger configures CLILogger for interactive use: console encoding,
// stderr output, human-readable timestamps. Quiet raises the level to error
// so job records on stdout stay machine-parseable.
func InitCLILogger(level string, quiet bool) error {
	lvl, err := parseLevel(level)
	if err != nil {
		return err
	}
	if quiet {
		lvl = zapcore.ErrorLevel
	}

	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stderr"}
	cfg.DisableStacktrace = true

	logger, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("build cli logger: %w", err)
	}
	CLILogger = logger
	return nil
}

// NewServerLogger builds a production JSON logger for the HTTP server.
func NewServerLogger(level string) (*zap.Logger, error) {
	lvl, err := parseLevel(level)
	if err != nil {
		return nil, err
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.DisableStacktrace = true

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build server logger: %w", err)
	}
	return logger, nil
}

func parseLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "info":
		return zapcore.InfoLevel, nil
	case "debug":
		return zapcore.DebugLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level: %s", level)
	}
}
