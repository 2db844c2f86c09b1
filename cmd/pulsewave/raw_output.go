package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/sensorbench/pulsewave/frame"
	"github.com/sensorbench/pulsewave/processor"
)

// RawOutput prints one line per frame: the sequence number, the newest
// conditioned value of every series and the vitals.
type RawOutput struct {
	w  io.Writer
	sb strings.Builder
}

var _ processor.Output = &RawOutput{}

func NewRawOutput(w io.Writer) *RawOutput {
	return &RawOutput{w: w}
}

func (d *RawOutput) Write(f frame.Frame) error {
	d.sb.Reset()

	fmt.Fprintf(&d.sb, "%d", f.Seq)

	for _, s := range f.Series {
		if n := len(s.Values); n > 0 {
			fmt.Fprintf(&d.sb, " %s=%.3f", s.Label, s.Values[n-1])
		}
	}

	est := f.Estimate

	if est.HeartRateOK {
		fmt.Fprintf(&d.sb, " bpm=%.1f", est.HeartRate)
	} else {
		d.sb.WriteString(" bpm=-")
	}

	if len(f.Series) > 1 {
		if est.SpO2OK {
			fmt.Fprintf(&d.sb, " spo2=%.1f", est.SpO2)
		} else {
			d.sb.WriteString(" spo2=-")
		}
	}

	fmt.Fprintf(&d.sb, " status=%q\n", est.Status.String())

	_, err := io.WriteString(d.w, d.sb.String())
	return err
}
