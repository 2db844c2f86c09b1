// Package execread provides a shared struct that wraps around cmd.
package execread

import (
	"context"
	"os"
	"os/exec"

	"github.com/pkg/errors"
	"github.com/sensorbench/pulsewave/input"
	"github.com/sensorbench/pulsewave/input/common/lineread"
)

// Session is a session that reads text records from the stdout of a Cmd.
type Session struct {
	// prevents cmd.Stderr from pointing to os.Stderr. false by default.
	DisconnectedStderr bool

	argv []string
}

// NewSession creates a new execread session. It never returns an error.
func NewSession(argv []string) *Session {
	if len(argv) < 1 {
		panic("argv has no arg0")
	}

	return &Session{argv: argv}
}

func (s *Session) Start(ctx context.Context, proc input.Processor) error {
	// the command is killed once ctx is done, which closes the pipe and wakes
	// the pending read.
	cmd := exec.CommandContext(ctx, s.argv[0], s.argv[1:]...)

	if !s.DisconnectedStderr {
		cmd.Stderr = os.Stderr
	}

	o, err := cmd.StdoutPipe()
	if err != nil {
		return errors.Wrap(err, "failed to get stdout pipe")
	}

	if err := cmd.Start(); err != nil {
		return errors.Wrap(err, "failed to start "+s.argv[0])
	}

	pumpErr := lineread.Pump(ctx, o, proc)
	if pumpErr != nil {
		cmd.Process.Kill()
	}

	waitErr := cmd.Wait()

	switch {
	case pumpErr != nil:
		return pumpErr
	case ctx.Err() != nil:
		return ctx.Err()
	case waitErr != nil:
		return errors.Wrap(waitErr, s.argv[0]+" exited")
	}

	return nil
}
