// Package applog builds clarium's root zap logger.
package applog

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Mode selects the encoder/level profile.
type Mode int

const (
	// Dev uses a human-readable console encoder at debug level.
	Dev Mode = iota
	// Release uses a JSON encoder at info level.
	Release
)

// New builds a logger for the given mode and installs it as the global
// zap logger so package-level zap.L() calls elsewhere in the engine
// (storage, ingest, sidecar, ...) resolve to it.
func New(mode Mode) *zap.Logger {
	var cfg zap.Config
	switch mode {
	case Release:
		cfg = zap.NewProductionConfig()
	default:
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	if lvl := os.Getenv("CLARIUM_LOG_LEVEL"); lvl != "" {
		if parsed, err := zapcore.ParseLevel(lvl); err == nil {
			cfg.Level = zap.NewAtomicLevelAt(parsed)
		}
	}
	logger, err := cfg.Build()
	if err != nil {
		logger = zap.NewNop()
	}
	zap.ReplaceGlobals(logger)
	return logger
}

// Values groups a set of zap.Field under a single "values" object field,
// matching how the rest of the engine batches per-row / per-chunk context.
func Values(fields ...zap.Field) zap.Field {
	return zap.Object("values", zapcore.ObjectMarshalerFunc(func(enc zapcore.ObjectEncoder) error {
		for _, f := range fields {
			f.AddTo(enc)
		}
		return nil
	}))
}
