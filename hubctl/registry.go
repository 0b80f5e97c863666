package hubctl

import (
	"fmt"
	"strings"

	"github.com/apex/log"
)

// Hub is one hub controller with per-port power switching. A physical
// USB3 hub usually shows up as two Hubs: a USB2 and a USB3 controller
// sharing the same ports.
type Hub struct {
	// Device is borrowed from the session snapshot.
	Device     *Device
	Spec       BCD
	Ports      int
	PPPS       bool
	Descriptor HubDescriptor
	// Actionable marks hubs that power operations apply to. It is the only
	// field changed after the hub enters the table.
	Actionable  bool
	Vendor      string
	Location    string
	Description string
}

// Generation returns the protocol generation of the hub.
func (h *Hub) Generation() Generation {
	return h.Spec.Generation()
}

// Filter restricts which hubs become actionable.
type Filter struct {
	// Location must equal the hub location, ignoring case.
	Location string
	// Vendor must be a case-insensitive prefix of "vvvv:pppp".
	Vendor string
	// Exact disables USB2/USB3 dual hub pairing.
	Exact bool
}

func (f Filter) matches(h *Hub) bool {
	if f.Location != "" && !strings.EqualFold(f.Location, h.Location) {
		return false
	}
	if f.Vendor != "" && !hasPrefixFold(h.Vendor, f.Vendor) {
		return false
	}
	return true
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

// Discover takes a fresh enumeration snapshot and rebuilds the hub table.
// It returns the number of distinct physical hubs that are actionable.
//
// ErrAccess is returned when some hub could not be read and nothing
// actionable was found; a zero count with a nil error means no compatible
// hardware is attached.
func (s *Session) Discover(f Filter) (int, error) {
	devs, err := s.t.Enumerate()
	if err != nil {
		return 0, fmt.Errorf("enumerate devices: %w", err)
	}
	s.devices = devs
	s.hubs = nil
	s.phys = 0

	permOK := true
	for _, dev := range devs {
		if dev.Class != ClassHub {
			continue
		}
		hub, err := s.probe(dev)
		if err != nil {
			permOK = false
			s.log.WithFields(log.Fields{"device": dev.ID(), "location": dev.Location()}).
				WithError(err).Debug("cannot read hub descriptor")
			continue
		}
		if hub == nil {
			continue
		}
		if len(s.hubs) >= s.cfg.MaxHubs {
			s.log.WithFields(log.Fields{"location": hub.Location, "max": s.cfg.MaxHubs}).
				Debug("hub table full, dropping hub")
			continue
		}
		hub.Actionable = f.matches(hub)
		s.hubs = append(s.hubs, hub)
	}

	s.phys = reconcile(s.hubs, f.Exact)
	if !permOK && s.phys == 0 {
		return 0, ErrAccess
	}
	return s.phys, nil
}

// probe opens a hub device and reads its capabilities. It returns a nil Hub
// without error when the hub is readable but cannot switch port power.
func (s *Session) probe(dev *Device) (*Hub, error) {
	if len(dev.Path) > s.cfg.MaxHubChain {
		s.log.WithFields(log.Fields{"location": dev.Location(), "depth": len(dev.Path)}).
			Debug("hub chain too deep, skipping")
		return nil, nil
	}
	h, err := s.t.Open(dev)
	if err != nil {
		return nil, err
	}
	defer h.Close()

	hd, err := readHubDescriptor(h, dev)
	if err != nil {
		return nil, err
	}
	if hd.Ports < 1 {
		s.log.WithField("location", dev.Location()).Debug("hub reports no ports")
		return nil, nil
	}
	if !hd.Qualifies() {
		s.log.WithFields(log.Fields{
			"location":  dev.Location(),
			"switching": hd.PowerSwitching,
			"overcur":   hd.OverCurrent,
		}).Debug("hub has no per-port power switching")
		return nil, nil
	}

	desc := Description{
		VendorID:  dev.Vendor,
		ProductID: dev.Product,
		Hub:       &HubSummary{Spec: dev.Spec, Ports: hd.Ports},
	}
	s.readStrings(h, dev, &desc)

	return &Hub{
		Device:      dev,
		Spec:        dev.Spec,
		Ports:       hd.Ports,
		PPPS:        true,
		Descriptor:  hd,
		Vendor:      dev.ID(),
		Location:    dev.Location(),
		Description: desc.String(),
	}, nil
}
