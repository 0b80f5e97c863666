package hubctl

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidDescriptor is returned when a hub descriptor is too short or
	// the device is not of the hub class.
	ErrInvalidDescriptor = errors.New("invalid hub descriptor")

	// ErrAccess is returned by Discover when at least one hub could not be
	// read and no compatible hub was found, which usually means the process
	// lacks permission to open USB devices.
	ErrAccess = errors.New("no compatible hubs accessible, check USB permissions")

	// ErrMultipleHubs is returned when a state-changing action is requested
	// while more than one physical hub is actionable.
	ErrMultipleHubs = errors.New("changing port state for multiple hubs at once is not supported")

	// ErrPortRange is returned when a port number is outside the hub.
	ErrPortRange = errors.New("port out of range")

	// ErrNoHub is returned when an operation needs an actionable hub and
	// there is none.
	ErrNoHub = errors.New("no hub selected")
)

// TransportError wraps a failed open, control transfer or reset.
type TransportError struct {
	Op       string
	Location string
	Port     int
	Err      error
}

func (e *TransportError) Error() string {
	if e.Port > 0 {
		return fmt.Sprintf("%s hub %s port %d: %v", e.Op, e.Location, e.Port, e.Err)
	}
	return fmt.Sprintf("%s hub %s: %v", e.Op, e.Location, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
