package dsp

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"
)

// Status describes how far an estimate got.
type Status int

// Statuses
const (
	// StatusNoSignal means the window is not full yet.
	StatusNoSignal Status = iota
	// StatusNoFinger means the infrared level is below the presence threshold.
	StatusNoFinger
	// StatusCalculating means the window is full but the statistics are
	// degenerate or no heart rate was found.
	StatusCalculating
	// StatusMeasuring means a valid estimate was produced.
	StatusMeasuring
)

func (s Status) String() string {
	switch s {
	case StatusNoSignal:
		return "No Signal"
	case StatusNoFinger:
		return "No Finger Detected"
	case StatusCalculating:
		return "Calculating..."
	case StatusMeasuring:
		return "Measuring"
	default:
		return "Unknown"
	}
}

// Estimate is one heart rate / SpO2 reading. Values are only meaningful when
// their OK flag is set.
type Estimate struct {
	HeartRate   float64 // beats per minute
	HeartRateOK bool
	SpO2        float64 // percent, within the configured range
	SpO2OK      bool
	Status      Status
}

// Channel is one channel of a window: the raw values for DC/AC statistics
// and the conditioned values for peak detection.
type Channel struct {
	Raw         []float64
	Conditioned []float64
}

// EstimatorConfig holds the peak, presence and SpO2 calibration settings.
type EstimatorConfig struct {
	SampleRate        float64 // nominal rate used to turn peak spacing into bpm
	PeakMinDistance   int     // samples between accepted peaks
	PeakMinProminence float64 // minimum peak prominence
	NoFingerThreshold float64 // raw infrared mean below this means no finger
	SpO2Min           float64 // clamp range for SpO2
	SpO2Max           float64
	SpO2Intercept     float64 // SpO2 = intercept - slope*R
	SpO2Slope         float64
	DCEpsilon         float64 // |DC| or AC at or below this is degenerate
}

// DefaultDCEpsilon is used when EstimatorConfig.DCEpsilon is zero.
const DefaultDCEpsilon = 1e-9

// Estimator turns conditioned windows into vital sign estimates. It keeps no
// state between calls.
type Estimator struct {
	cfg EstimatorConfig
}

// NewEstimator validates cfg.
func NewEstimator(cfg EstimatorConfig) (*Estimator, error) {
	switch {
	case cfg.SampleRate <= 0:
		return nil, errors.New("sample rate must be positive")
	case cfg.PeakMinDistance < 1:
		return nil, errors.New("peak distance must be at least 1 sample")
	case cfg.PeakMinProminence < 0:
		return nil, errors.New("peak prominence must not be negative")
	case cfg.SpO2Min > cfg.SpO2Max:
		return nil, errors.Errorf("invalid SpO2 range [%.1f, %.1f]", cfg.SpO2Min, cfg.SpO2Max)
	case cfg.DCEpsilon < 0:
		return nil, errors.New("DC epsilon must not be negative")
	}

	if cfg.DCEpsilon == 0 {
		cfg.DCEpsilon = DefaultDCEpsilon
	}

	return &Estimator{cfg: cfg}, nil
}

// Config returns the validated configuration.
func (e *Estimator) Config() EstimatorConfig {
	return e.cfg
}

// Estimate computes a fresh estimate. One channel is treated as ECG, two as
// PPG in (red, ir) order. The last channel drives heart rate. full reports
// whether the windows have reached capacity.
func (e *Estimator) Estimate(full bool, channels ...Channel) Estimate {
	if !full || len(channels) == 0 {
		return Estimate{Status: StatusNoSignal}
	}

	primary := channels[len(channels)-1]

	if len(channels) == 2 {
		if stat.Mean(primary.Raw, nil) < e.cfg.NoFingerThreshold {
			return Estimate{Status: StatusNoFinger}
		}
	}

	var est Estimate
	est.HeartRate, est.HeartRateOK = e.HeartRate(primary.Conditioned)

	if len(channels) == 1 {
		est.Status = StatusCalculating
		if est.HeartRateOK {
			est.Status = StatusMeasuring
		}
		return est
	}

	est.SpO2, est.SpO2OK = e.SpO2(channels[0].Raw, primary.Raw)

	est.Status = StatusCalculating
	if est.SpO2OK {
		est.Status = StatusMeasuring
	}

	return est
}

// HeartRate detects peaks on x and converts their mean spacing to beats per
// minute at the nominal sample rate. It reports false with fewer than two
// peaks.
func (e *Estimator) HeartRate(x []float64) (float64, bool) {
	peaks := FindPeaks(x, e.cfg.PeakMinDistance, e.cfg.PeakMinProminence)
	if len(peaks) < 2 {
		return 0, false
	}

	// the mean of consecutive differences telescopes.
	span := float64(peaks[len(peaks)-1].Index - peaks[0].Index)
	interval := span / float64(len(peaks)-1)

	return 60 * e.cfg.SampleRate / interval, true
}

// SpO2 applies the ratio of ratios to raw red and infrared windows. It
// reports false when a DC level or the infrared AC is degenerate.
func (e *Estimator) SpO2(red, ir []float64) (float64, bool) {
	if len(red) == 0 || len(ir) == 0 {
		return 0, false
	}

	dcRed, acRed := stat.PopMeanStdDev(red, nil)
	dcIR, acIR := stat.PopMeanStdDev(ir, nil)

	eps := e.cfg.DCEpsilon
	if math.Abs(dcRed) <= eps || math.Abs(dcIR) <= eps || acIR <= eps {
		return 0, false
	}

	r := (acRed / dcRed) / (acIR / dcIR)
	spo2 := e.cfg.SpO2Intercept - e.cfg.SpO2Slope*r

	if math.IsNaN(spo2) || math.IsInf(spo2, 0) {
		return 0, false
	}

	return math.Max(e.cfg.SpO2Min, math.Min(e.cfg.SpO2Max, spo2)), true
}
