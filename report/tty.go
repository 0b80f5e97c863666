package report

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"go.bug.st/serial/enumerator"

	"github.com/Thiagojm/uhubctl/hubctl"
)

// TTYIndex maps USB devices to the serial ports they expose, keyed by
// vid, pid and serial number.
type TTYIndex map[string][]string

// LoadTTYIndex enumerates the serial ports of the system.
func LoadTTYIndex() (TTYIndex, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("enumerating ports: %w", err)
	}
	return NewTTYIndex(ports), nil
}

// NewTTYIndex indexes the USB ports of an enumerator listing. Ports with
// an unparseable VID or PID are ignored.
func NewTTYIndex(ports []*enumerator.PortDetails) TTYIndex {
	idx := TTYIndex{}
	for _, p := range ports {
		if p == nil || !p.IsUSB {
			continue
		}
		vid, err := strconv.ParseUint(p.VID, 16, 16)
		if err != nil {
			continue
		}
		pid, err := strconv.ParseUint(p.PID, 16, 16)
		if err != nil {
			continue
		}
		k := ttyKey(uint16(vid), uint16(pid), p.SerialNumber)
		idx[k] = append(idx[k], p.Name)
	}
	for _, names := range idx {
		sort.Strings(names)
	}
	return idx
}

// Lookup returns the serial ports of the described device.
func (x TTYIndex) Lookup(d hubctl.Description) []string {
	if x == nil {
		return nil
	}
	return x[ttyKey(d.VendorID, d.ProductID, d.Serial)]
}

func ttyKey(vid, pid uint16, serial string) string {
	return fmt.Sprintf("%04x:%04x/%s", vid, pid, strings.TrimSpace(serial))
}
