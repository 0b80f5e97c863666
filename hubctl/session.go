package hubctl

import (
	"fmt"

	"github.com/apex/log"
)

// Session owns an enumeration snapshot and the hub table built from it.
// Devices and hubs it hands out are valid until the next Discover or Close.
type Session struct {
	t   Transport
	cfg Config
	log log.Interface

	devices []*Device
	hubs    []*Hub
	phys    int
}

// NewSession creates a session over t. Zero fields of cfg take the values
// of DefaultConfig.
func NewSession(t Transport, cfg Config) *Session {
	cfg = cfg.withDefaults()
	return &Session{
		t:   t,
		cfg: cfg,
		log: cfg.Logger,
	}
}

// Close drops the snapshot and closes the transport.
func (s *Session) Close() error {
	s.devices = nil
	s.hubs = nil
	s.phys = 0
	return s.t.Close()
}

// Devices returns the enumeration snapshot taken by the last Discover.
func (s *Session) Devices() []*Device {
	return s.devices
}

// Hubs returns every hub in the table, actionable or not.
func (s *Session) Hubs() []*Hub {
	out := make([]*Hub, len(s.hubs))
	copy(out, s.hubs)
	return out
}

// Actionable returns the hubs that operations will be applied to.
func (s *Session) Actionable() []*Hub {
	var out []*Hub
	for _, h := range s.hubs {
		if h.Actionable {
			out = append(out, h)
		}
	}
	return out
}

// PhysicalCount returns the number of distinct physical actionable hubs
// found by the last Discover.
func (s *Session) PhysicalCount() int {
	return s.phys
}

// Downstream returns the device attached directly to port of hub, or nil.
func (s *Session) Downstream(hub *Hub, port int) *Device {
	for _, d := range s.devices {
		if d.ChildOf(hub.Device, port) {
			return d
		}
	}
	return nil
}

// PortStatus reads the current status of one port. The hub is opened and
// closed around the request.
func (s *Session) PortStatus(hub *Hub, port int) (PortStatus, error) {
	if port < 1 || port > hub.Ports {
		return PortStatus{}, fmt.Errorf("%w: port %d, hub %s has %d", ErrPortRange, port, hub.Location, hub.Ports)
	}
	h, err := s.t.Open(hub.Device)
	if err != nil {
		return PortStatus{}, &TransportError{Op: "open", Location: hub.Location, Err: err}
	}
	defer h.Close()
	st, err := getPortStatus(h, port)
	if err != nil {
		return PortStatus{}, &TransportError{Op: "get port status", Location: hub.Location, Port: port, Err: err}
	}
	return st, nil
}

func readHubDescriptor(h Handle, dev *Device) (HubDescriptor, error) {
	if dev.Class != ClassHub {
		return HubDescriptor{}, fmt.Errorf("%w: device class 0x%02x is not a hub", ErrInvalidDescriptor, dev.Class)
	}
	buf := make([]byte, hubDescBufLen)
	n, err := h.Control(controlIn|controlClass|recipDevice, reqGetDescriptor,
		uint16(dev.Spec.Generation().descriptorType())<<8, 0, buf)
	if err != nil {
		return HubDescriptor{}, err
	}
	return DecodeHubDescriptor(buf[:n])
}

func getPortStatus(h Handle, port int) (PortStatus, error) {
	buf := make([]byte, 4)
	n, err := h.Control(controlIn|controlClass|recipOther, reqGetStatus, 0, uint16(port), buf)
	if err != nil {
		return PortStatus{}, err
	}
	return DecodePortStatus(buf[:n])
}

func setPortPower(h Handle, port int, on bool) error {
	req := uint8(reqClearFeature)
	if on {
		req = reqSetFeature
	}
	_, err := h.Control(controlOut|controlClass|recipOther, req, featPortPower, uint16(port), nil)
	return err
}
