//go:build cgo

package libusb

import (
	"fmt"

	"github.com/google/gousb"
	"github.com/google/gousb/usbid"

	"github.com/Thiagojm/uhubctl/hubctl"
)

// Transport enumerates and opens devices through a gousb.Context.
type Transport struct {
	ctx  *gousb.Context
	opts Options
}

// Open initializes libusb.
func Open(opts Options) (*Transport, error) {
	opts = opts.withDefaults()
	ctx := gousb.NewContext()
	if opts.Debug > 0 {
		ctx.Debug(opts.Debug)
	}
	return &Transport{ctx: ctx, opts: opts}, nil
}

// Enumerate lists attached devices without opening any of them.
func (t *Transport) Enumerate() ([]*hubctl.Device, error) {
	var out []*hubctl.Device
	_, err := t.ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		out = append(out, toDevice(desc))
		return false
	})
	if err != nil {
		// gousb still visits the devices it could describe; report the
		// failure but keep the partial list like libusb callers do.
		t.opts.Logger.WithError(err).Warn("device enumeration incomplete")
		if len(out) == 0 {
			return nil, fmt.Errorf("enumerating USB devices: %w", err)
		}
	}
	return out, nil
}

// Open opens the device at the bus and address of dev.
func (t *Transport) Open(dev *hubctl.Device) (hubctl.Handle, error) {
	var found bool
	devs, err := t.ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		if found || desc.Bus != dev.Bus || desc.Address != dev.Address {
			return false
		}
		found = true
		return true
	})
	if len(devs) == 0 {
		if err == nil {
			err = ErrDeviceNotFound
		}
		return nil, fmt.Errorf("open %s: %w", dev.Location(), err)
	}
	for _, d := range devs[1:] {
		_ = d.Close()
	}
	d := devs[0]
	d.ControlTimeout = t.opts.ControlTimeout
	return d, nil
}

// Close releases the libusb context.
func (t *Transport) Close() error {
	return t.ctx.Close()
}

func toDevice(desc *gousb.DeviceDesc) *hubctl.Device {
	path := make([]int, len(desc.Path))
	copy(path, desc.Path)
	return &hubctl.Device{
		Bus:     desc.Bus,
		Address: desc.Address,
		Path:    path,
		Spec:    hubctl.BCD(desc.Spec),
		Class:   uint8(desc.Class),
		Vendor:  uint16(desc.Vendor),
		Product: uint16(desc.Product),
	}
}

// VendorName returns the usb.ids vendor and product names for vid:pid, or
// "" when the vendor is unknown.
func VendorName(vid, pid uint16) string {
	v, ok := usbid.Vendors[gousb.ID(vid)]
	if !ok {
		return ""
	}
	if p, ok := v.Product[gousb.ID(pid)]; ok {
		return fmt.Sprintf("%s %s", v.Name, p.Name)
	}
	return v.Name
}
