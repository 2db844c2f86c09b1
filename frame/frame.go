// Package frame assembles display frames from conditioned windows.
package frame

import "github.com/sensorbench/pulsewave/dsp"

// Axis selects how the horizontal axis of a frame is generated.
type Axis int

// Axes
const (
	// AxisSeconds places each sample at its age relative to the newest sample,
	// in seconds. Values are zero or negative.
	AxisSeconds Axis = iota
	// AxisIndex numbers samples 0..n-1, oldest first.
	AxisIndex
)

func (a Axis) String() string {
	switch a {
	case AxisSeconds:
		return "seconds"
	case AxisIndex:
		return "index"
	default:
		return "unknown"
	}
}

// Series is one conditioned channel of a frame.
type Series struct {
	Label    string
	Values   []float64
	Fallback dsp.Fallback
}

// Frame is one display update. The caller owns everything it references.
type Frame struct {
	Seq       uint64
	AxisKind  Axis
	Axis      []float64
	Series    []Series
	Estimate  dsp.Estimate
	Refreshed bool // Estimate was computed for this frame, not carried over
}

// Len returns the number of samples on the axis.
func (f Frame) Len() int {
	return len(f.Axis)
}

// Input is what Build needs to assemble a frame.
type Input struct {
	Seq       uint64
	AxisKind  Axis
	Times     []int64 // sample timestamps in milliseconds, oldest first
	Series    []Series
	Estimate  dsp.Estimate
	Refreshed bool
}

// Build assembles a frame. The axis is as long as the shortest of Times (for
// AxisSeconds) and the series.
func Build(in Input) Frame {
	n := -1
	for _, s := range in.Series {
		if n < 0 || len(s.Values) < n {
			n = len(s.Values)
		}
	}

	if in.AxisKind == AxisSeconds && (n < 0 || len(in.Times) < n) {
		n = len(in.Times)
	}

	if n < 0 {
		n = 0
	}

	f := Frame{
		Seq:       in.Seq,
		AxisKind:  in.AxisKind,
		Axis:      make([]float64, n),
		Series:    make([]Series, len(in.Series)),
		Estimate:  in.Estimate,
		Refreshed: in.Refreshed,
	}

	switch in.AxisKind {
	case AxisSeconds:
		if n > 0 {
			// align on the newest samples.
			times := in.Times[len(in.Times)-n:]
			newest := times[n-1]
			for i, t := range times {
				f.Axis[i] = float64(t-newest) / 1000
			}
		}

	default:
		for i := range f.Axis {
			f.Axis[i] = float64(i)
		}
	}

	for i, s := range in.Series {
		values := make([]float64, n)
		copy(values, s.Values[len(s.Values)-n:])

		f.Series[i] = Series{
			Label:    s.Label,
			Values:   values,
			Fallback: s.Fallback,
		}
	}

	return f
}
