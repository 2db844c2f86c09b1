package main

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// newLogger builds the process logger. The terminal display owns the screen,
// so without a log file nothing is logged while it runs.
func newLogger(cfg *config) (*zap.Logger, error) {
	if cfg.logFile == "" && !cfg.raw {
		return zap.NewNop(), nil
	}

	var zc zap.Config
	if cfg.verbose {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
		zc.EncoderConfig.TimeKey = "timestamp"
		zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}

	if cfg.logFile != "" {
		zc.OutputPaths = []string{cfg.logFile}
	}

	return zc.Build()
}
