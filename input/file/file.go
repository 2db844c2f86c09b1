// Package file replays a capture file, one record per line.
package file

import (
	"context"
	"os"

	"github.com/pkg/errors"
	"github.com/sensorbench/pulsewave/input"
	"github.com/sensorbench/pulsewave/input/common/lineread"
)

func init() {
	input.RegisterBackend("file", Backend{})
}

type Backend struct{}

func (b Backend) Init() error {
	return nil
}

func (b Backend) Close() error {
	return nil
}

// Devices is empty; any path is a device.
func (b Backend) Devices() ([]input.Device, error) {
	return nil, nil
}

func (b Backend) DefaultDevice() (input.Device, error) {
	return nil, errors.New("the file backend needs a path (-d)")
}

func (b Backend) DeviceName(name string) input.Device {
	return Path(name)
}

func (b Backend) Start(cfg input.SessionConfig) (input.Session, error) {
	path, ok := cfg.Device.(Path)
	if !ok {
		return nil, errors.Errorf("invalid device type %T", cfg.Device)
	}

	f, err := os.Open(string(path))
	if err != nil {
		return nil, errors.Wrap(err, "failed to open capture")
	}

	return &Session{f: f}, nil
}

// Path is a capture file.
type Path string

func (p Path) String() string {
	return string(p)
}

type Session struct {
	f *os.File
}

func (s *Session) Start(ctx context.Context, proc input.Processor) error {
	defer s.f.Close()

	stop := context.AfterFunc(ctx, func() { s.f.Close() })
	defer stop()

	return lineread.Pump(ctx, s.f, proc)
}
