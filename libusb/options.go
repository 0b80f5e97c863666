package libusb

import (
	"errors"
	"time"

	"github.com/apex/log"
)

// Options configures the libusb transport.
type Options struct {
	// ControlTimeout bounds every control transfer.
	ControlTimeout time.Duration
	// Debug is the libusb log level, 0 to 4.
	Debug  int
	Logger log.Interface
}

// DefaultOptions returns a 5 second control timeout and libusb logging off.
func DefaultOptions() Options {
	return Options{ControlTimeout: 5 * time.Second, Logger: log.Log}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.ControlTimeout <= 0 {
		o.ControlTimeout = d.ControlTimeout
	}
	if o.Logger == nil {
		o.Logger = d.Logger
	}
	return o
}

// ErrDeviceNotFound is returned by Open when the device has gone away since
// enumeration.
var ErrDeviceNotFound = errors.New("device not found")

// ErrUnsupported is returned by Open in builds without cgo.
var ErrUnsupported = errors.New("libusb transport needs cgo")
