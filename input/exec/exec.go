// Package exec reads records from the standard output of a command, e.g. a
// serial bridge running on another host.
package exec

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/sensorbench/pulsewave/input"
	"github.com/sensorbench/pulsewave/input/common/execread"
)

func init() {
	input.RegisterBackend("exec", Backend{})
}

type Backend struct{}

func (b Backend) Init() error {
	return nil
}

func (b Backend) Close() error {
	return nil
}

func (b Backend) Devices() ([]input.Device, error) {
	return nil, nil
}

func (b Backend) DefaultDevice() (input.Device, error) {
	return nil, errors.New("the exec backend needs a command line (-d)")
}

func (b Backend) DeviceName(name string) input.Device {
	return Command(name)
}

func (b Backend) Start(cfg input.SessionConfig) (input.Session, error) {
	cmd, ok := cfg.Device.(Command)
	if !ok {
		return nil, errors.Errorf("invalid device type %T", cfg.Device)
	}

	argv := cmd.Argv()
	if len(argv) == 0 {
		return nil, errors.New("empty command line")
	}

	session := execread.NewSession(argv)
	session.DisconnectedStderr = cfg.Quiet

	return session, nil
}

// Command is a whitespace separated command line.
type Command string

func (c Command) String() string {
	return string(c)
}

// Argv splits the command line. Quoting is not supported.
func (c Command) Argv() []string {
	return strings.Fields(string(c))
}
