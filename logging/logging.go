// ABOUTME: Builds the process-wide zap logger from log settings.
// ABOUTME: "json" gives production JSON lines; "human" gives colored development output.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config contains configuration for the logger.
type Config struct {
	Debug          bool   // enable debug level logging
	Format         string // "json" or "human"
	File           string // optional log file, appended to
	DisableConsole bool   // drop the stderr sink, e.g. while a TUI owns the terminal
}

// DefaultConfig returns human-readable info logging to stderr.
func DefaultConfig() Config {
	return Config{Format: "human"}
}

// New builds a logger from config.
func New(config Config) (*zap.Logger, error) {
	var zapConfig zap.Config
	switch strings.ToLower(config.Format) {
	case "json":
		zapConfig = zap.NewProductionConfig()
		zapConfig.EncoderConfig.TimeKey = "time"
		zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	case "", "human", "console":
		zapConfig = zap.NewDevelopmentConfig()
		zapConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		if config.File != "" || config.DisableConsole {
			zapConfig.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		}
	default:
		return nil, fmt.Errorf("unknown log format %q (want json or human)", config.Format)
	}

	var outputs []string
	if !config.DisableConsole {
		outputs = append(outputs, "stderr")
	}
	if config.File != "" {
		if err := os.MkdirAll(filepath.Dir(config.File), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		outputs = append(outputs, config.File)
	}
	if len(outputs) == 0 {
		return zap.NewNop(), nil
	}
	zapConfig.OutputPaths = outputs
	zapConfig.ErrorOutputPaths = outputs

	if config.Debug {
		zapConfig.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	} else {
		zapConfig.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	logger, err := zapConfig.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger.Named("sigmachain"), nil
}

// OrNop returns logger, or a no-op logger when it is nil.
func OrNop(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
