package hubctl

import (
	"fmt"
	"strings"
)

// ClassHub is the USB device class code for hubs.
const ClassHub = 0x09

// Control request type bits (bmRequestType).
const (
	controlIn    = 0x80
	controlOut   = 0x00
	controlClass = 0x20
	recipDevice  = 0x00
	recipOther   = 0x03
)

// Standard requests used against hub class devices.
const (
	reqGetStatus     = 0x00
	reqClearFeature  = 0x01
	reqSetFeature    = 0x03
	reqGetDescriptor = 0x06
)

// Hub class descriptor types and feature selectors.
const (
	dtHub           = 0x29
	dtSuperSpeedHub = 0x2a

	featPortPower = 8
)

// Device is one entry of an enumeration snapshot. It is a plain value copied
// out of the transport; opening it goes back through Transport.Open.
type Device struct {
	Bus     int
	Address int
	// Path lists the port numbers from the root hub down to this device.
	// Root hubs have an empty path.
	Path    []int
	Spec    BCD
	Class   uint8
	Vendor  uint16
	Product uint16
}

// ID returns the device identity as "vvvv:pppp".
func (d *Device) ID() string {
	return fmt.Sprintf("%04x:%04x", d.Vendor, d.Product)
}

// Location returns "<bus>-<port>.<port>..." for the device.
func (d *Device) Location() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d", d.Bus)
	for i, p := range d.Path {
		if i == 0 {
			b.WriteByte('-')
		} else {
			b.WriteByte('.')
		}
		fmt.Fprintf(&b, "%d", p)
	}
	return b.String()
}

// Port returns the port number on the parent hub, or 0 for a root hub.
func (d *Device) Port() int {
	if len(d.Path) == 0 {
		return 0
	}
	return d.Path[len(d.Path)-1]
}

// ChildOf reports whether d is attached directly to port of parent.
func (d *Device) ChildOf(parent *Device, port int) bool {
	if d.Bus != parent.Bus || len(d.Path) != len(parent.Path)+1 {
		return false
	}
	for i, p := range parent.Path {
		if d.Path[i] != p {
			return false
		}
	}
	return d.Port() == port
}

// Transport enumerates and opens USB devices. Implementations are provided by
// package libusb; tests use an in-memory fake.
type Transport interface {
	// Enumerate returns a point-in-time list of attached devices without
	// opening any of them.
	Enumerate() ([]*Device, error)
	// Open opens dev for control transfers. The caller closes the handle.
	Open(dev *Device) (Handle, error)
	Close() error
}

// Handle is an open device. *gousb.Device satisfies it.
type Handle interface {
	Control(rType, request uint8, val, idx uint16, data []byte) (int, error)
	Manufacturer() (string, error)
	Product() (string, error)
	SerialNumber() (string, error)
	Reset() error
	Close() error
}
