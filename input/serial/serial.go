// Package serial reads records from a serial port, the usual link to an
// ESP32/Arduino front end.
package serial

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sensorbench/pulsewave/input"
	"github.com/sensorbench/pulsewave/input/common/lineread"

	goserial "go.bug.st/serial"
)

// DefaultBaudRate matches the firmware in the field.
const DefaultBaudRate = 115200

func init() {
	input.RegisterBackend("serial", Backend{})
}

type Backend struct{}

func (b Backend) Init() error {
	return nil
}

func (b Backend) Close() error {
	return nil
}

func (b Backend) Devices() ([]input.Device, error) {
	ports, err := goserial.GetPortsList()
	if err != nil {
		return nil, errors.Wrap(err, "failed to list serial ports")
	}

	devices := make([]input.Device, len(ports))
	for i, port := range ports {
		devices[i] = Port(port)
	}

	return devices, nil
}

func (b Backend) DefaultDevice() (input.Device, error) {
	ports, err := goserial.GetPortsList()
	if err != nil {
		return nil, errors.Wrap(err, "failed to list serial ports")
	}

	if len(ports) == 0 {
		return nil, errors.New("no serial ports found")
	}

	return Port(ports[0]), nil
}

// DeviceName accepts ports the OS does not enumerate (pty pairs, symlinks).
func (b Backend) DeviceName(name string) input.Device {
	return Port(name)
}

func (b Backend) Start(cfg input.SessionConfig) (input.Session, error) {
	port, ok := cfg.Device.(Port)
	if !ok {
		return nil, errors.Errorf("invalid device type %T", cfg.Device)
	}

	baud := cfg.BaudRate
	if baud <= 0 {
		baud = DefaultBaudRate
	}

	p, err := goserial.Open(string(port), &goserial.Mode{BaudRate: baud})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", port)
	}

	// whatever queued up before we opened is stale.
	if err := p.ResetInputBuffer(); err != nil {
		p.Close()
		return nil, errors.Wrap(err, "failed to reset input buffer")
	}

	return &Session{port: p}, nil
}

// Port is a serial port name.
type Port string

func (p Port) String() string {
	return string(p)
}

type Session struct {
	port goserial.Port
}

func (s *Session) Start(ctx context.Context, proc input.Processor) error {
	defer s.port.Close()

	// closing the port wakes the blocked read.
	stop := context.AfterFunc(ctx, func() { s.port.Close() })
	defer stop()

	return lineread.Pump(ctx, s.port, proc)
}
