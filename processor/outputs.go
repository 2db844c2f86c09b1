package processor

import (
	"io"

	"github.com/pkg/errors"

	"github.com/sensorbench/pulsewave/frame"
)

// Outputs writes every frame to each output in order. The first failure
// stops the fan out.
type Outputs []Output

func (o Outputs) Write(f frame.Frame) error {
	for idx, out := range o {
		if err := out.Write(f); err != nil {
			return errors.Wrapf(err, "output %d", idx)
		}
	}
	return nil
}

// Close closes every output that is an io.Closer, even after a failure, and
// returns the first error.
func (o Outputs) Close() error {
	var first error
	for idx, out := range o {
		c, ok := out.(io.Closer)
		if !ok {
			continue
		}
		if err := c.Close(); err != nil && first == nil {
			first = errors.Wrapf(err, "output %d", idx)
		}
	}
	return first
}

// OutputFunc adapts a function to Output.
type OutputFunc func(frame.Frame) error

func (fn OutputFunc) Write(f frame.Frame) error {
	return fn(f)
}
