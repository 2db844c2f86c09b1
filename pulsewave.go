// Package pulsewave reads ECG or PPG records from an input backend and turns
// them into conditioned waveform frames with heart rate and SpO2 estimates.
package pulsewave

import (
	"context"
	"io"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/sensorbench/pulsewave/input"
)

// Run opens the input, runs the pipeline until the input ends, fails, or ctx
// is done, then cleans up. Cancellation is not an error. The recorder and any
// output that is an io.Closer are closed on return, even when cfg is invalid.
func Run(cfg *Config, ctx context.Context) error {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	if cfg.Recorder != nil {
		defer func() {
			if err := cfg.Recorder.Close(); err != nil {
				log.Error("failed to close recorder", zap.Error(err))
			}
		}()
	}

	if c, ok := cfg.Output.(io.Closer); ok {
		defer func() {
			if err := c.Close(); err != nil {
				log.Error("failed to close output", zap.Error(err))
			}
		}()
	}

	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "invalid config")
	}

	proc, err := cfg.NewProcessor()
	if err != nil {
		return err
	}

	// INPUT SETUP

	name := cfg.Backend
	if name == "" {
		name = input.DefaultBackend()
	}

	backend, err := input.InitBackend(name)
	if err != nil {
		return err
	}
	defer backend.Close()

	sessConfig := input.SessionConfig{
		BaudRate: cfg.BaudRate,
		Quiet:    cfg.Quiet,
	}

	if sessConfig.Device, err = input.GetDevice(backend, cfg.Device); err != nil {
		return err
	}

	session, err := backend.Start(sessConfig)
	if err != nil {
		return errors.Wrap(err, "failed to start the input backend")
	}

	// OUTPUT SETUP

	if cfg.SetupFunc != nil {
		if err := cfg.SetupFunc(); err != nil {
			return err
		}
	}

	if cfg.CleanupFunc != nil {
		defer func() {
			if err := cfg.CleanupFunc(); err != nil {
				log.Error("cleanup failed", zap.Error(err))
			}
		}()
	}

	if cfg.StartFunc != nil {
		if ctx, err = cfg.StartFunc(ctx); err != nil {
			return err
		}
	}

	log.Info("session started",
		zap.String("backend", name),
		zap.Stringer("device", sessConfig.Device),
		zap.Stringer("format", cfg.Format),
		zap.Float64("rate", cfg.SampleRate),
		zap.Int("window", cfg.WindowSize))

	err = session.Start(ctx, proc)

	stats := proc.Stats()
	log.Info("session ended",
		zap.Uint64("records", stats.Records),
		zap.Uint64("accepted", stats.Accepted),
		zap.Uint64("dropped", stats.Dropped),
		zap.Uint64("frames", stats.Frames))

	if err != nil && !errors.Is(err, context.Canceled) {
		return errors.Wrap(err, "input session failed")
	}

	return nil
}
