package dsp

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ErrShortInput is returned by FiltFilt when the input does not cover the
// edge padding.
var ErrShortInput = errors.New("input shorter than filter padding")

// ErrUnstable is returned when filtering produced non-finite values.
var ErrUnstable = errors.New("filter output is not finite")

// LFilter runs x through the filter in direct form II transposed, starting
// from state zi (len(A)-1 values, or nil for rest). The result is written to
// dst, which may alias x.
func (fc *FilterCoefficients) LFilter(dst, x, zi []float64) []float64 {
	b, a := fc.B, fc.A
	order := len(a) - 1

	z := make([]float64, order+1)
	copy(z, zi)

	if len(dst) < len(x) {
		dst = make([]float64, len(x))
	}
	dst = dst[:len(x)]

	for n, xn := range x {
		yn := b[0]*xn + z[0]

		for i := 0; i < order; i++ {
			z[i] = b[i+1]*xn + z[i+1] - a[i+1]*yn
		}

		dst[n] = yn
	}

	return dst
}

// StepState returns the filter state for which a constant input of 1 gives a
// constant output from the first sample on. Scale it by the first input value
// to start a filter without an edge transient.
func (fc *FilterCoefficients) StepState() ([]float64, error) {
	b, a := fc.B, fc.A
	m := len(a) - 1

	if m < 1 {
		return nil, nil
	}

	// (I - transpose(companion(a))) * zi = b[1:] - a[1:]*b[0]
	lhs := mat.NewDense(m, m, nil)
	for i := 0; i < m; i++ {
		lhs.Set(i, i, 1)
		lhs.Set(i, 0, lhs.At(i, 0)+a[i+1])
		if i > 0 {
			lhs.Set(i-1, i, lhs.At(i-1, i)-1)
		}
	}

	rhs := mat.NewVecDense(m, nil)
	for i := 0; i < m; i++ {
		rhs.SetVec(i, b[i+1]-a[i+1]*b[0])
	}

	var zi mat.VecDense
	if err := zi.SolveVec(lhs, rhs); err != nil {
		return nil, errors.Wrap(err, "failed to solve for filter state")
	}

	return zi.RawVector().Data, nil
}

// FiltFilt applies the filter forward and then backward, so the output has no
// phase shift. Both ends are padded with an odd reflection of PadLen samples
// and each pass starts from the steady state of its first sample.
func (fc *FilterCoefficients) FiltFilt(x []float64) ([]float64, error) {
	pad := fc.PadLen()
	n := len(x)

	if n <= pad {
		return nil, ErrShortInput
	}

	zi, err := fc.StepState()
	if err != nil {
		return nil, err
	}

	ext := make([]float64, n+2*pad)

	for i := 0; i < pad; i++ {
		ext[i] = 2*x[0] - x[pad-i]
		ext[pad+n+i] = 2*x[n-1] - x[n-2-i]
	}
	copy(ext[pad:], x)

	state := make([]float64, len(zi))

	floats.ScaleTo(state, ext[0], zi)
	y := fc.LFilter(nil, ext, state)

	floats.Reverse(y)
	floats.ScaleTo(state, y[0], zi)
	y = fc.LFilter(y, y, state)
	floats.Reverse(y)

	out := y[pad : pad+n]
	for _, v := range out {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, ErrUnstable
		}
	}

	return out, nil
}
