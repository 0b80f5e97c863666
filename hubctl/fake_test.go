package hubctl

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/apex/log/handlers/memory"
)

var errFakeIO = errors.New("LIBUSB_ERROR_IO")

// fakeDev is one device behind fakeTransport.
type fakeDev struct {
	dev          *Device
	hubDesc      []byte
	manufacturer string
	product      string
	serial       string
	stringErr    error
	openErr      error
	featureErr   error
	statusErr    error
	resetErr     error
	status       map[int]uint16
}

// fakeTransport is an in-memory Transport. Every power request, status read
// and sleep is appended to events so tests can check ordering.
type fakeTransport struct {
	devs   []*fakeDev
	events []string
	opens  int
	closes int
	closed bool
}

func (t *fakeTransport) Enumerate() ([]*Device, error) {
	out := make([]*Device, len(t.devs))
	for i, d := range t.devs {
		out[i] = d.dev
	}
	return out, nil
}

func (t *fakeTransport) Open(dev *Device) (Handle, error) {
	for _, d := range t.devs {
		if d.dev == dev {
			if d.openErr != nil {
				return nil, d.openErr
			}
			t.opens++
			return &fakeHandle{t: t, d: d}, nil
		}
	}
	return nil, fmt.Errorf("no such device %s", dev.Location())
}

func (t *fakeTransport) Close() error {
	t.closed = true
	return nil
}

func (t *fakeTransport) sleep(_ context.Context, d time.Duration) {
	t.events = append(t.events, "sleep "+d.String())
}

// featureEvents returns only the power requests.
func (t *fakeTransport) featureEvents() []string {
	var out []string
	for _, e := range t.events {
		if strings.HasPrefix(e, "set ") || strings.HasPrefix(e, "clear ") {
			out = append(out, e)
		}
	}
	return out
}

type fakeHandle struct {
	t *fakeTransport
	d *fakeDev
}

func (h *fakeHandle) Control(rType, request uint8, val, idx uint16, data []byte) (int, error) {
	switch {
	case rType == controlIn|controlClass|recipDevice && request == reqGetDescriptor:
		if h.d.hubDesc == nil {
			return 0, errFakeIO
		}
		return copy(data, h.d.hubDesc), nil
	case rType == controlIn|controlClass|recipOther && request == reqGetStatus:
		h.t.events = append(h.t.events, fmt.Sprintf("status %s %d", h.d.dev.Location(), idx))
		if h.d.statusErr != nil {
			return 0, h.d.statusErr
		}
		binary.LittleEndian.PutUint16(data[0:2], h.d.status[int(idx)])
		binary.LittleEndian.PutUint16(data[2:4], 0)
		return 4, nil
	case rType == controlOut|controlClass|recipOther && val == featPortPower:
		mask := powerMask[h.d.dev.Spec.Generation()]
		name := "clear"
		if request == reqSetFeature {
			name = "set"
		}
		h.t.events = append(h.t.events, fmt.Sprintf("%s %s %d", name, h.d.dev.Location(), idx))
		if h.d.featureErr != nil {
			return 0, h.d.featureErr
		}
		if request == reqSetFeature {
			h.d.status[int(idx)] |= mask
		} else {
			h.d.status[int(idx)] &^= mask
		}
		return 0, nil
	}
	return 0, fmt.Errorf("unexpected control 0x%02x/0x%02x", rType, request)
}

func (h *fakeHandle) Manufacturer() (string, error) { return h.d.manufacturer, h.d.stringErr }
func (h *fakeHandle) Product() (string, error)      { return h.d.product, h.d.stringErr }
func (h *fakeHandle) SerialNumber() (string, error) { return h.d.serial, h.d.stringErr }

func (h *fakeHandle) Reset() error {
	h.t.events = append(h.t.events, "reset "+h.d.dev.Location())
	return h.d.resetErr
}

func (h *fakeHandle) Close() error {
	h.t.closes++
	return nil
}

// hubDescriptor builds a USB 2.0 hub descriptor reply.
func hubDescriptor(ports int, chars uint16) []byte {
	return []byte{9, dtHub, byte(ports), byte(chars), byte(chars >> 8), 50, 100, 0, 0xff}
}

const (
	charsPPPS   = hubCharLPSMPort | hubCharOCPMPort
	charsGanged = 0x0000
)

func newHub(bus int, path []int, spec BCD, vid, pid uint16, ports int, chars uint16) *fakeDev {
	status := map[int]uint16{}
	for p := 1; p <= ports; p++ {
		status[p] = powerMask[spec.Generation()]
	}
	return &fakeDev{
		dev: &Device{
			Bus: bus, Path: path, Spec: spec, Class: ClassHub,
			Vendor: vid, Product: pid,
		},
		hubDesc: hubDescriptor(ports, chars),
		status:  status,
	}
}

func newPeripheral(bus int, path []int, vid, pid uint16) *fakeDev {
	return &fakeDev{dev: &Device{Bus: bus, Path: path, Spec: 0x0200, Vendor: vid, Product: pid}}
}

func newTestSession(t *fakeTransport) (*Session, *memory.Handler) {
	h := memory.New()
	cfg := DefaultConfig()
	cfg.Logger = &log.Logger{Handler: h, Level: log.DebugLevel}
	cfg.Sleep = t.sleep
	return NewSession(t, cfg), h
}
