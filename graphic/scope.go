package graphic

import (
	"fmt"
	"math"
	"strings"

	"github.com/sensorbench/pulsewave/dsp"
	"github.com/sensorbench/pulsewave/frame"
)

// span is the rows one column of a lane covers, top <= bottom, counted from
// the top of the lane.
type span struct {
	top, bottom int
}

// columnSpans squeezes values into width columns of a lane height rows tall.
// Each column covers the min to max of the samples falling into it, so
// narrow peaks survive the squeeze. Values are scaled to their own range.
func columnSpans(values []float64, width, height int) []span {
	n := len(values)
	if n == 0 || width < 1 || height < 1 {
		return nil
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}

	scale := 0.0
	if hi > lo {
		scale = float64(height-1) / (hi - lo)
	}

	row := func(v float64) int {
		if scale == 0 {
			return height / 2
		}
		return (height - 1) - int(math.Round((v-lo)*scale))
	}

	cols := width
	if n < cols {
		cols = n
	}

	spans := make([]span, cols)

	var prev int
	for xCol := range spans {
		start := xCol * n / cols
		stop := (xCol + 1) * n / cols
		if stop <= start {
			stop = start + 1
		}

		cMin, cMax := values[start], values[start]
		for _, v := range values[start+1 : stop] {
			cMin = math.Min(cMin, v)
			cMax = math.Max(cMax, v)
		}

		sp := span{top: row(cMax), bottom: row(cMin)}

		// join with the previous column so steep edges stay connected.
		if xCol > 0 {
			if prev < sp.top {
				sp.top = prev
			} else if prev > sp.bottom {
				sp.bottom = prev
			}
		}
		prev = row(values[stop-1])

		spans[xCol] = sp
	}

	return spans
}

// StatusLine renders the vitals of f on one line.
func StatusLine(f frame.Frame) string {
	var sb strings.Builder

	est := f.Estimate

	sb.WriteString("BPM: ")
	if est.HeartRateOK {
		fmt.Fprintf(&sb, "%.1f", est.HeartRate)
	} else {
		sb.WriteString("--")
	}

	if len(f.Series) > 1 {
		sb.WriteString("  SpO2: ")
		if est.SpO2OK {
			fmt.Fprintf(&sb, "%.1f%%", est.SpO2)
		} else {
			sb.WriteString("--")
		}
	}

	fmt.Fprintf(&sb, "  %s", est.Status)

	for _, s := range f.Series {
		if s.Fallback != dsp.FallbackNone {
			fmt.Fprintf(&sb, "  [%s %s]", s.Label, s.Fallback)
		}
	}

	return sb.String()
}
