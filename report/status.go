package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/Thiagojm/uhubctl/hubctl"
)

// PortRow is the state of one hub port at the time it was read.
type PortRow struct {
	Hub    *hubctl.Hub
	Port   int
	Status hubctl.PortStatus
	// Device describes what is plugged into the port. It is empty when the
	// port is not connected or the attached device is not in the snapshot.
	Device string
}

// Flags names the status bits of the port.
func (r PortRow) Flags() []string {
	return r.Status.Flags(r.Hub.Generation())
}

// ReadPorts reads the selected ports of hub in order. It stops at the
// first port that cannot be read and returns the rows read so far.
func ReadPorts(s *hubctl.Session, hub *hubctl.Hub, ports hubctl.PortMask, tty TTYIndex) ([]PortRow, error) {
	var rows []PortRow
	for port := 1; port <= hub.Ports && port <= hubctl.MaxPorts; port++ {
		if !ports.Has(port) {
			continue
		}
		st, err := s.PortStatus(hub, port)
		if err != nil {
			return rows, err
		}
		row := PortRow{Hub: hub, Port: port, Status: st}
		if st.Connected() {
			row.Device = deviceLabel(s, hub, port, tty)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func deviceLabel(s *hubctl.Session, hub *hubctl.Hub, port int, tty TTYIndex) string {
	dev := s.Downstream(hub, port)
	if dev == nil {
		return ""
	}
	d := s.Describe(dev)
	label := d.String()
	if names := tty.Lookup(d); len(names) > 0 {
		label += " " + strings.Join(names, " ")
	}
	return label
}

// Status writes one line per selected port of hub:
//
//	  Port 1: 0503 power highspeed enable connect [0781:5567 SanDisk Cruzer]
//
// Lines already read are written even when a later port fails.
func Status(w io.Writer, s *hubctl.Session, hub *hubctl.Hub, ports hubctl.PortMask, tty TTYIndex) error {
	rows, err := ReadPorts(s, hub, ports, tty)
	for _, r := range rows {
		if _, werr := fmt.Fprintln(w, formatRow(r)); werr != nil {
			return werr
		}
	}
	return err
}

func formatRow(r PortRow) string {
	var b strings.Builder
	fmt.Fprintf(&b, "  Port %d: %04x", r.Port, r.Status.Status)
	for _, f := range r.Flags() {
		b.WriteByte(' ')
		b.WriteString(f)
	}
	if r.Status.Connected() {
		fmt.Fprintf(&b, " [%s]", r.Device)
	}
	return b.String()
}
