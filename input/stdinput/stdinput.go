// Package stdinput reads records from standard input.
package stdinput

import (
	"context"
	"io"
	"os"

	"github.com/sensorbench/pulsewave/input"
	"github.com/sensorbench/pulsewave/input/common/lineread"
)

func init() {
	input.RegisterBackend("stdin", StdinBackend{})
}

type StdinBackend struct{}

func (b StdinBackend) Init() error {
	return nil
}

func (b StdinBackend) Close() error {
	return nil
}

func (b StdinBackend) Devices() ([]input.Device, error) {
	return []input.Device{StdInputDevice{}}, nil
}

func (b StdinBackend) DefaultDevice() (input.Device, error) {
	return StdInputDevice{}, nil
}

func (b StdinBackend) Start(cfg input.SessionConfig) (input.Session, error) {
	return NewSession(os.Stdin), nil
}

type StdInputDevice struct{}

func (d StdInputDevice) String() string {
	return "stdin"
}

// Session pumps lines from a reader. Standard input cannot be woken from a
// blocked read, so cancellation takes effect on the next record.
type Session struct {
	r io.Reader
}

// NewSession returns a session over r.
func NewSession(r io.Reader) *Session {
	return &Session{r: r}
}

func (s *Session) Start(ctx context.Context, proc input.Processor) error {
	return lineread.Pump(ctx, s.r, proc)
}
