//go:build !cgo

package libusb

import "github.com/Thiagojm/uhubctl/hubctl"

// Transport is unavailable without cgo.
type Transport struct{}

// Open always fails without cgo.
func Open(Options) (*Transport, error) { return nil, ErrUnsupported }

func (*Transport) Enumerate() ([]*hubctl.Device, error)       { return nil, ErrUnsupported }
func (*Transport) Open(*hubctl.Device) (hubctl.Handle, error) { return nil, ErrUnsupported }
func (*Transport) Close() error                               { return nil }

// VendorName knows no names without the gousb usb.ids table.
func VendorName(vid, pid uint16) string { return "" }
