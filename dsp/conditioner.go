package dsp

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Fallback explains why a conditioned window was not bandpassed.
type Fallback int

// Fallbacks
const (
	// FallbackNone means the window was detrended and filtered.
	FallbackNone Fallback = iota
	// FallbackDisabled means no filter is configured.
	FallbackDisabled
	// FallbackShortWindow means the window is shorter than the filter needs.
	FallbackShortWindow
	// FallbackUnstable means filtering produced non-finite output.
	FallbackUnstable
)

func (f Fallback) String() string {
	switch f {
	case FallbackNone:
		return "filtered"
	case FallbackDisabled:
		return "unfiltered"
	case FallbackShortWindow:
		return "short-window"
	case FallbackUnstable:
		return "unstable"
	default:
		return "unknown"
	}
}

// ConditionerConfig describes the bandpass. Order 0 disables filtering.
type ConditionerConfig struct {
	SampleRate float64 // nominal sample rate
	LowCut     float64 // bandpass low edge in Hz
	HighCut    float64 // bandpass high edge in Hz
	Order      int     // prototype order, 0 disables the bandpass
}

// Conditioner detrends and band limits window snapshots.
type Conditioner struct {
	filter *FilterCoefficients
}

// NewConditioner designs the bandpass once. It fails only on an invalid
// configuration.
func NewConditioner(cfg ConditionerConfig) (*Conditioner, error) {
	if cfg.Order == 0 {
		return &Conditioner{}, nil
	}

	fc, err := Bandpass(cfg.LowCut, cfg.HighCut, cfg.SampleRate, cfg.Order)
	if err != nil {
		return nil, errors.Wrap(err, "invalid bandpass")
	}

	return &Conditioner{filter: fc}, nil
}

// Filter returns the bandpass, or nil when filtering is disabled.
func (c *Conditioner) Filter() *FilterCoefficients {
	return c.filter
}

// MinLength is the shortest window that is filtered rather than only
// detrended. It is 0 when filtering is disabled.
func (c *Conditioner) MinLength() int {
	if c.filter == nil {
		return 0
	}
	return c.filter.MinLength()
}

// Condition returns a new, same length, detrended and (when possible)
// bandpassed copy of src, along with the reason filtering was skipped.
func (c *Conditioner) Condition(src []float64) ([]float64, Fallback) {
	out := make([]float64, len(src))
	Detrend(out, src)

	if c.filter == nil {
		return out, FallbackDisabled
	}

	if len(out) < c.filter.MinLength() {
		return out, FallbackShortWindow
	}

	filtered, err := c.filter.FiltFilt(out)
	if err != nil {
		return out, FallbackUnstable
	}

	return filtered, FallbackNone
}

// Detrend writes src minus its mean into dst and returns the mean. dst must
// be at least as long as src and may alias it.
func Detrend(dst, src []float64) float64 {
	if len(src) == 0 {
		return 0
	}

	mean := stat.Mean(src, nil)

	dst = dst[:len(src)]
	copy(dst, src)
	floats.AddConst(-mean, dst)

	return mean
}
