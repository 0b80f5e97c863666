package hubctl

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/apex/log"
)

// HubSummary is the hub suffix of a device description.
type HubSummary struct {
	Spec  BCD
	Ports int
}

// Description identifies a device for humans.
type Description struct {
	VendorID     uint16
	ProductID    uint16
	Manufacturer string
	Product      string
	Serial       string
	Hub          *HubSummary
}

// String formats d as "vid:pid[ vendor][ product][ serial][, USB x.yz, N ports]".
func (d Description) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%04x:%04x", d.VendorID, d.ProductID)
	for _, s := range []string{d.Manufacturer, d.Product, d.Serial} {
		if s != "" {
			b.WriteByte(' ')
			b.WriteString(s)
		}
	}
	if d.Hub != nil {
		fmt.Fprintf(&b, ", USB %s, %d ports", d.Hub.Spec, d.Hub.Ports)
	}
	return b.String()
}

// Describe opens dev, reads its string descriptors and, for hubs, the hub
// descriptor. Unreadable strings are left empty. If the device cannot be
// opened the description carries only the vendor and product IDs.
func (s *Session) Describe(dev *Device) Description {
	desc := Description{VendorID: dev.Vendor, ProductID: dev.Product}
	h, err := s.t.Open(dev)
	if err != nil {
		s.log.WithFields(log.Fields{"device": dev.ID(), "location": dev.Location()}).
			WithError(err).Debug("cannot open device for description")
		return desc
	}
	defer h.Close()

	if dev.Class == ClassHub {
		if hd, err := readHubDescriptor(h, dev); err == nil {
			desc.Hub = &HubSummary{Spec: dev.Spec, Ports: hd.Ports}
		}
	}
	s.readStrings(h, dev, &desc)
	return desc
}

// readStrings fills the string fields of desc from an open handle.
func (s *Session) readStrings(h Handle, dev *Device, desc *Description) {
	readers := []struct {
		name string
		get  func() (string, error)
		dst  *string
	}{
		{"manufacturer", h.Manufacturer, &desc.Manufacturer},
		{"product", h.Product, &desc.Product},
		{"serial", h.SerialNumber, &desc.Serial},
	}
	for _, r := range readers {
		v, err := r.get()
		if err != nil {
			s.log.WithFields(log.Fields{"device": dev.ID(), "string": r.name}).
				WithError(err).Debug("string descriptor unreadable")
			continue
		}
		*r.dst = strings.TrimRightFunc(v, unicode.IsSpace)
	}
}
