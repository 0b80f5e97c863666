package report

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/apex/log"
	"github.com/apex/log/handlers/discard"

	"github.com/Thiagojm/uhubctl/hubctl"
)

var errFakeIO = errors.New("LIBUSB_ERROR_IO")

type fakeDev struct {
	dev       *hubctl.Device
	ports     int
	status    map[int]uint16
	statusErr map[int]error
	strs      [3]string
}

type fakeTransport struct {
	devs []*fakeDev
}

func (t *fakeTransport) Enumerate() ([]*hubctl.Device, error) {
	var out []*hubctl.Device
	for _, d := range t.devs {
		out = append(out, d.dev)
	}
	return out, nil
}

func (t *fakeTransport) Open(dev *hubctl.Device) (hubctl.Handle, error) {
	for _, d := range t.devs {
		if d.dev == dev {
			return &fakeHandle{d: d}, nil
		}
	}
	return nil, fmt.Errorf("no device at %s", dev.Location())
}

func (t *fakeTransport) Close() error { return nil }

type fakeHandle struct{ d *fakeDev }

func (h *fakeHandle) Control(rType, request uint8, val, idx uint16, data []byte) (int, error) {
	switch {
	case rType == 0xa0 && request == 0x06:
		// USB 2.0 hub descriptor, per-port switching and over-current.
		return copy(data, []byte{9, 0x29, byte(h.d.ports), 0x09, 0x00, 50, 100, 0, 0xff}), nil
	case rType == 0xa3 && request == 0x00:
		if err := h.d.statusErr[int(idx)]; err != nil {
			return 0, err
		}
		binary.LittleEndian.PutUint16(data, h.d.status[int(idx)])
		binary.LittleEndian.PutUint16(data[2:], 0)
		return 4, nil
	}
	return 0, errFakeIO
}

func (h *fakeHandle) Manufacturer() (string, error) { return h.d.strs[0], nil }
func (h *fakeHandle) Product() (string, error)      { return h.d.strs[1], nil }
func (h *fakeHandle) SerialNumber() (string, error) { return h.d.strs[2], nil }
func (h *fakeHandle) Reset() error                  { return nil }
func (h *fakeHandle) Close() error                  { return nil }

// fixture is a four port hub on 1-1 with an FTDI adapter on port 1.
func fixture() *fakeTransport {
	hub := &fakeDev{
		dev: &hubctl.Device{
			Bus: 1, Path: []int{1}, Spec: 0x0200, Class: hubctl.ClassHub,
			Vendor: 0x2001, Product: 0xf103,
		},
		ports: 4,
		status: map[int]uint16{
			1: 0x0503,
			2: 0x0100,
			3: 0x0100,
			4: 0x0000,
		},
		strs: [3]string{"D-Link", "DUB-H7", ""},
	}
	ftdi := &fakeDev{
		dev:  &hubctl.Device{Bus: 1, Path: []int{1, 1}, Spec: 0x0200, Vendor: 0x0403, Product: 0x6001},
		strs: [3]string{"FTDI", "FT232R USB UART", "A1"},
	}
	return &fakeTransport{devs: []*fakeDev{hub, ftdi}}
}

func discover(t *fakeTransport) (*hubctl.Session, error) {
	cfg := hubctl.DefaultConfig()
	cfg.Logger = &log.Logger{Handler: discard.New()}
	s := hubctl.NewSession(t, cfg)
	_, err := s.Discover(hubctl.Filter{})
	return s, err
}
