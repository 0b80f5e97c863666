package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/apex/log"
	"github.com/xuri/excelize/v2"

	"github.com/Thiagojm/uhubctl/hubctl"
)

const (
	hubsSheet  = "Hubs"
	portsSheet = "Ports"
)

var (
	hubsHeader  = []interface{}{"Location", "Vendor", "Vendor name", "Description", "USB", "Ports", "PPPS", "Actionable"}
	portsHeader = []interface{}{"Location", "Port", "Status", "Flags", "Change", "Device"}
)

// Snapshot is the state of every hub of a session.
type Snapshot struct {
	Hubs  []*hubctl.Hub
	Ports []PortRow
}

// Collect reads all ports of every hub in the session, actionable or not.
// Hubs whose ports cannot be read keep the rows read before the failure.
func Collect(s *hubctl.Session, tty TTYIndex, logger log.Interface) Snapshot {
	snap := Snapshot{Hubs: s.Hubs()}
	for _, hub := range snap.Hubs {
		rows, err := ReadPorts(s, hub, hubctl.AllPorts, tty)
		if err != nil {
			logger.WithField("location", hub.Location).WithError(err).Warn("cannot read port status")
		}
		snap.Ports = append(snap.Ports, rows...)
	}
	return snap
}

// VendorNamer resolves a vid:pid pair to a readable name.
type VendorNamer func(vid, pid uint16) string

// Export writes snap as an xlsx workbook with a Hubs and a Ports sheet.
// names may be nil.
func Export(w io.Writer, snap Snapshot, names VendorNamer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", hubsSheet); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}
	if _, err := f.NewSheet(portsSheet); err != nil {
		return fmt.Errorf("adding sheet: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("creating style: %w", err)
	}

	hubRows := [][]interface{}{hubsHeader}
	for _, h := range snap.Hubs {
		name := ""
		if names != nil {
			name = names(h.Device.Vendor, h.Device.Product)
		}
		hubRows = append(hubRows, []interface{}{
			h.Location, h.Vendor, name, h.Description, h.Spec.String(),
			h.Ports, yesNo(h.PPPS), yesNo(h.Actionable),
		})
	}
	portRows := [][]interface{}{portsHeader}
	for _, r := range snap.Ports {
		portRows = append(portRows, []interface{}{
			r.Hub.Location, r.Port, fmt.Sprintf("%04x", r.Status.Status),
			strings.Join(r.Flags(), " "), strings.Join(r.Status.ChangeFlags(), " "), r.Device,
		})
	}

	for sheet, rows := range map[string][][]interface{}{hubsSheet: hubRows, portsSheet: portRows} {
		if err := writeRows(f, sheet, rows); err != nil {
			return err
		}
		if err := f.SetRowStyle(sheet, 1, 1, bold); err != nil {
			return fmt.Errorf("styling %s: %w", sheet, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		row := row
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("writing %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
