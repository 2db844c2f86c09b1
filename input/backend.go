package input

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
)

// Device is something a backend can read records from.
type Device interface {
	String() string
}

// SessionConfig is passed to Backend.Start.
type SessionConfig struct {
	Device   Device
	BaudRate int  // serial line speed, ignored by other backends
	Quiet    bool // keep child process diagnostics off the terminal
}

// Session reads records until the source ends, fails, or ctx is done. It calls
// proc.Process for every record on its own goroutine and returns the first
// error Process returns.
type Session interface {
	Start(ctx context.Context, proc Processor) error
}

type Backend interface {
	// Init should do nothing if called more than once.
	Init() error
	Close() error

	Devices() ([]Device, error)
	DefaultDevice() (Device, error)
	Start(SessionConfig) (Session, error)
}

type NamedBackend struct {
	Name string
	Backend
}

var Backends []NamedBackend

// RegisterBackend registers a backend globally. This function is not
// thread-safe, and most packages should call it on init().
func RegisterBackend(name string, b Backend) {
	Backends = append(Backends, NamedBackend{
		Name:    name,
		Backend: b,
	})
}

// GetAllBackendNames returns all installed backend names.
func GetAllBackendNames() []string {
	out := make([]string, len(Backends))
	for i, backend := range Backends {
		out[i] = backend.Name
	}
	return out
}

// DefaultBackend is the backend used when none is named.
func DefaultBackend() string {
	if HasBackend("stdin") {
		return "stdin"
	}

	if len(Backends) > 0 {
		return Backends[0].Name
	}

	return ""
}

// FindBackend is a helper function that finds a backend. It returns nil if the
// backend is not found.
func FindBackend(name string) Backend {
	for _, backend := range Backends {
		if backend.Name == name {
			return backend.Backend
		}
	}
	return nil
}

func HasBackend(name string) bool {
	return FindBackend(name) != nil
}

func InitBackend(bknd string) (Backend, error) {
	backend := FindBackend(bknd)
	if backend == nil {
		return nil, fmt.Errorf("backend not found: %q; check list-backends", bknd)
	}

	if err := backend.Init(); err != nil {
		return nil, errors.Wrap(err, "failed to initialize input backend")
	}

	return backend, nil
}

// GetDevice resolves a device name for backend. An empty name picks the
// backend default. Backends whose devices are free-form (files, commands,
// broker URLs) accept any name not in their list through DeviceName.
func GetDevice(backend Backend, device string) (Device, error) {
	if device == "" {
		def, err := backend.DefaultDevice()
		if err != nil {
			return nil, errors.Wrap(err, "failed to get default device")
		}
		return def, nil
	}

	devices, err := backend.Devices()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get devices")
	}

	for idx := range devices {
		if devices[idx].String() == device {
			return devices[idx], nil
		}
	}

	if named, ok := backend.(interface{ DeviceName(string) Device }); ok {
		return named.DeviceName(device), nil
	}

	return nil, errors.Errorf("device %q not found; check list-devices", device)
}
