package pulsewave

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/sensorbench/pulsewave/dsp"
	"github.com/sensorbench/pulsewave/frame"
	"github.com/sensorbench/pulsewave/input"
	"github.com/sensorbench/pulsewave/processor"
)

// MaxWindowSize is the largest window accepted.
const MaxWindowSize = 1 << 16

// SetupFunc is called once the input is open, before the loop starts.
type SetupFunc func() error

// StartFunc may derive the context the loop runs under.
type StartFunc func(ctx context.Context) (context.Context, error)

// CleanupFunc is called on the way out when SetupFunc succeeded.
type CleanupFunc func() error

type Config struct {
	// The name of the backend from the input package
	Backend string
	// The name of the device to read records from
	Device string
	// Serial line speed
	BaudRate int
	// Shape of the records
	Format input.Format
	// Keep input diagnostics off the terminal, set while a display draws
	Quiet bool

	// Nominal rate samples arrive at
	SampleRate float64
	// Number of samples kept per channel
	WindowSize int
	// Bandpass edges in Hz
	BandLow  float64
	BandHigh float64
	// Bandpass prototype order, 0 disables filtering
	FilterOrder int

	// Minimum samples between heart beats
	PeakMinDistance int
	// Minimum prominence of a heart beat
	PeakMinProminence float64
	// Raw infrared mean below which no finger is on the sensor
	NoFingerThreshold float64
	// SpO2 clamp range
	SpO2Min float64
	SpO2Max float64
	// SpO2 = SpO2Intercept - SpO2Slope * R
	SpO2Intercept float64
	SpO2Slope     float64
	// |DC| or infrared AC at or below this makes SpO2 degenerate, 0 for the
	// estimator default
	DCEpsilon float64

	// Estimate every n frames
	EstimateEvery int
	// Estimate at least this often, 0 to only count frames
	EstimateInterval time.Duration
	// Emit a frame every n accepted samples
	FrameEvery int
	// Frame axis kind
	Axis frame.Axis

	// Function to call when setting up the pipeline
	SetupFunc SetupFunc
	// Function to call when starting the pipeline
	StartFunc StartFunc
	// Function to call when cleaning up the pipeline
	CleanupFunc CleanupFunc
	// Where to send frames
	Output processor.Output
	// Where to persist samples, closed by Run
	Recorder processor.Recorder
	// Logger for the pipeline, nil logs nothing
	Logger *zap.Logger
}

// NewZeroConfig returns the defaults for format. Timestamped and bare records
// are ECG, pairs are red/infrared PPG.
func NewZeroConfig(format input.Format) Config {
	if format == input.FormatPair {
		return Config{
			Format:            format,
			SampleRate:        30,
			WindowSize:        200,
			BandLow:           0.5,
			BandHigh:          5,
			FilterOrder:       2,
			PeakMinDistance:   15,
			PeakMinProminence: 300,
			NoFingerThreshold: 50000,
			SpO2Min:           80,
			SpO2Max:           100,
			SpO2Intercept:     110,
			SpO2Slope:         25,
			DCEpsilon:         dsp.DefaultDCEpsilon,
			EstimateEvery:     5,
			FrameEvery:        1,
			Axis:              frame.AxisIndex,
		}
	}

	return Config{
		Format:            format,
		SampleRate:        250,
		WindowSize:        2000,
		BandLow:           0.5,
		BandHigh:          40,
		FilterOrder:       3,
		PeakMinDistance:   75,
		PeakMinProminence: 20,
		SpO2Min:           80,
		SpO2Max:           100,
		SpO2Intercept:     110,
		SpO2Slope:         25,
		DCEpsilon:         dsp.DefaultDCEpsilon,
		EstimateEvery:     5,
		FrameEvery:        1,
		Axis:              frame.AxisSeconds,
	}
}

func (cfg *Config) Validate() error {
	switch {
	case cfg.SampleRate <= 0:
		return errors.New("sample rate must be positive")

	case cfg.WindowSize < 2:
		return errors.New("window size too small (2 min)")

	case cfg.WindowSize > MaxWindowSize:
		return errors.Errorf("window size too large (%d max)", MaxWindowSize)

	case cfg.FilterOrder < 0 || cfg.FilterOrder > dsp.MaxFilterOrder:
		return errors.Errorf("filter order out of range [0, %d]", dsp.MaxFilterOrder)

	case cfg.PeakMinDistance < 1:
		return errors.New("peak distance too small (1 min)")

	case cfg.PeakMinDistance >= cfg.WindowSize:
		return errors.New("peak distance must be shorter than the window")

	case cfg.SpO2Min > cfg.SpO2Max:
		return errors.Errorf("invalid SpO2 range [%.1f, %.1f]", cfg.SpO2Min, cfg.SpO2Max)

	case cfg.SpO2Min < 0 || cfg.SpO2Max > 100:
		return errors.New("SpO2 range must lie within [0, 100]")

	case cfg.DCEpsilon < 0:
		return errors.New("DC epsilon must not be negative")

	case cfg.EstimateEvery < 0 || cfg.FrameEvery < 0 || cfg.EstimateInterval < 0:
		return errors.New("throttles must not be negative")
	}

	if _, err := cfg.conditioner(); err != nil {
		return err
	}

	return nil
}

func (cfg *Config) conditioner() (*dsp.Conditioner, error) {
	return dsp.NewConditioner(dsp.ConditionerConfig{
		SampleRate: cfg.SampleRate,
		LowCut:     cfg.BandLow,
		HighCut:    cfg.BandHigh,
		Order:      cfg.FilterOrder,
	})
}

// NewProcessor builds the pipeline cfg describes.
func (cfg *Config) NewProcessor() (*processor.Processor, error) {
	cond, err := cfg.conditioner()
	if err != nil {
		return nil, err
	}

	est, err := dsp.NewEstimator(dsp.EstimatorConfig{
		SampleRate:        cfg.SampleRate,
		PeakMinDistance:   cfg.PeakMinDistance,
		PeakMinProminence: cfg.PeakMinProminence,
		NoFingerThreshold: cfg.NoFingerThreshold,
		SpO2Min:           cfg.SpO2Min,
		SpO2Max:           cfg.SpO2Max,
		SpO2Intercept:     cfg.SpO2Intercept,
		SpO2Slope:         cfg.SpO2Slope,
		DCEpsilon:         cfg.DCEpsilon,
	})
	if err != nil {
		return nil, errors.Wrap(err, "invalid estimator")
	}

	return processor.New(processor.Config{
		Format:           cfg.Format,
		SampleRate:       cfg.SampleRate,
		WindowSize:       cfg.WindowSize,
		Conditioner:      cond,
		Estimator:        est,
		EstimateEvery:    cfg.EstimateEvery,
		EstimateInterval: cfg.EstimateInterval,
		FrameEvery:       cfg.FrameEvery,
		Axis:             cfg.Axis,
		Output:           cfg.Output,
		Recorder:         cfg.Recorder,
		Logger:           cfg.Logger,
	})
}
