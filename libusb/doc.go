// Package libusb provides the hubctl.Transport backed by libusb through
// github.com/google/gousb. It needs cgo; without it Open returns
// ErrUnsupported.
package libusb
