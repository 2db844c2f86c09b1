// Package dsp provides the signal conditioning and vital sign math.
//
// Some notes:
//
// https://en.wikipedia.org/wiki/Butterworth_filter
// https://en.wikipedia.org/wiki/Bilinear_transform
// https://www.ti.com/lit/an/slaa655/slaa655.pdf (ratio of ratios)
package dsp

import (
	"math"
	"math/cmplx"

	"github.com/pkg/errors"
)

// MaxFilterOrder bounds the prototype order. Higher orders lose precision in
// transfer function form.
const MaxFilterOrder = 8

// FilterCoefficients are the numerator (B) and denominator (A) of a digital
// filter, highest power first, with A[0] == 1.
type FilterCoefficients struct {
	B []float64
	A []float64
}

// PadLen is how many samples are mirrored onto each end before filtering.
func (fc *FilterCoefficients) PadLen() int {
	n := len(fc.A)
	if len(fc.B) > n {
		n = len(fc.B)
	}
	return 3 * n
}

// MinLength is the shortest input FiltFilt accepts.
func (fc *FilterCoefficients) MinLength() int {
	return fc.PadLen() + 1
}

// Bandpass designs a Butterworth bandpass of the given prototype order. The
// result has 2*order+1 coefficients in each of B and A.
func Bandpass(low, high, rate float64, order int) (*FilterCoefficients, error) {
	nyq := rate / 2

	switch {
	case rate <= 0:
		return nil, errors.New("sample rate must be positive")
	case order < 1 || order > MaxFilterOrder:
		return nil, errors.Errorf("filter order %d out of range [1, %d]", order, MaxFilterOrder)
	case low <= 0:
		return nil, errors.New("low cutoff must be positive")
	case high <= low:
		return nil, errors.New("high cutoff must be above low cutoff")
	case high >= nyq:
		return nil, errors.Errorf("high cutoff %.2f must be below nyquist %.2f", high, nyq)
	}

	// pre-warp the normalized edges for the bilinear transform, with the
	// digital side normalized to fs = 2.
	const fs2 = 4.0
	loW := fs2 * math.Tan(math.Pi*(low/nyq)/2)
	hiW := fs2 * math.Tan(math.Pi*(high/nyq)/2)

	bw := hiW - loW
	wo2 := complex(loW*hiW, 0)

	// analog lowpass prototype poles, shifted into a bandpass. each prototype
	// pole becomes a pair.
	poles := make([]complex128, 0, 2*order)
	for k := -order + 1; k < order; k += 2 {
		p := -cmplx.Exp(complex(0, math.Pi*float64(k)/float64(2*order)))
		p *= complex(bw/2, 0)

		d := cmplx.Sqrt(p*p - wo2)
		poles = append(poles, p+d, p-d)
	}

	// bilinear transform. the bandpass has order zeros at s = 0, which land
	// on z = 1, and order zeros at infinity, which land on z = -1.
	gain := complex(math.Pow(bw, float64(order)), 0)
	gain *= cmplx.Pow(complex(fs2, 0), complex(float64(order), 0))

	zPoles := make([]complex128, len(poles))
	for i, p := range poles {
		gain /= complex(fs2, 0) - p
		zPoles[i] = (complex(fs2, 0) + p) / (complex(fs2, 0) - p)
	}

	zZeros := make([]complex128, 0, 2*order)
	for i := 0; i < order; i++ {
		zZeros = append(zZeros, 1, -1)
	}

	b := poly(zZeros)
	a := poly(zPoles)

	fc := &FilterCoefficients{
		B: make([]float64, len(b)),
		A: make([]float64, len(a)),
	}

	k := real(gain)
	for i := range b {
		fc.B[i] = k * real(b[i])
	}

	for i := range a {
		fc.A[i] = real(a[i])
	}

	for _, v := range fc.B {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, errors.New("filter design is numerically unstable")
		}
	}

	return fc, nil
}

// poly expands the monic polynomial with the given roots, highest power first.
func poly(roots []complex128) []complex128 {
	c := make([]complex128, len(roots)+1)
	c[0] = 1

	for i, r := range roots {
		for j := i + 1; j > 0; j-- {
			c[j] -= r * c[j-1]
		}
	}

	return c
}
