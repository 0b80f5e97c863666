package hubctl

import (
	"encoding/binary"
	"fmt"
)

// wPortStatus bits, USB 2.0 table 11-21.
const (
	PortStatConnection  = 0x0001
	PortStatEnable      = 0x0002
	PortStatSuspend     = 0x0004
	PortStatOverCurrent = 0x0008
	PortStatReset       = 0x0010
	PortStatL1          = 0x0020
	PortStatPower       = 0x0100
	PortStatLowSpeed    = 0x0200
	PortStatHighSpeed   = 0x0400
	PortStatTest        = 0x0800
	PortStatIndicator   = 0x1000
)

// wPortStatus additions for superspeed hubs, USB 3.0 table 10-10.
const (
	PortStatLinkState = 0x01e0
	SSPortStatPower   = 0x0200
	SSPortStatSpeed   = 0x1c00
	portStatSpeed5G   = 0x0000
)

// wPortChange bits.
const (
	PortChangeConnection  = 0x0001
	PortChangeEnable      = 0x0002
	PortChangeSuspend     = 0x0004
	PortChangeOverCurrent = 0x0008
	PortChangeReset       = 0x0010
	PortChangeBHReset     = 0x0020
	PortChangeLinkState   = 0x0040
	PortChangeConfigError = 0x0080
)

// powerMask is the port power bit per generation.
var powerMask = map[Generation]uint16{
	GenUSB2: PortStatPower,
	GenUSB3: SSPortStatPower,
}

// LinkState is the superspeed port link state held in bits 5-8 of
// wPortStatus.
type LinkState uint16

const (
	LinkU0         LinkState = 0x0000
	LinkU1         LinkState = 0x0020
	LinkU2         LinkState = 0x0040
	LinkU3         LinkState = 0x0060
	LinkSSDisabled LinkState = 0x0080
	LinkRxDetect   LinkState = 0x00a0
	LinkSSInactive LinkState = 0x00c0
	LinkPolling    LinkState = 0x00e0
	LinkRecovery   LinkState = 0x0100
	LinkHotReset   LinkState = 0x0120
	LinkCompliance LinkState = 0x0140
	LinkLoopback   LinkState = 0x0160
)

var linkStateNames = map[LinkState]string{
	LinkU0:         "U0",
	LinkU1:         "U1",
	LinkU2:         "U2",
	LinkU3:         "U3",
	LinkSSDisabled: "SS.Disabled",
	LinkRxDetect:   "Rx.Detect",
	LinkSSInactive: "SS.Inactive",
	LinkPolling:    "Polling",
	LinkRecovery:   "Recovery",
	LinkHotReset:   "HotReset",
	LinkCompliance: "Compliance",
	LinkLoopback:   "Loopback",
}

func (l LinkState) String() string {
	if s, ok := linkStateNames[l]; ok {
		return s
	}
	return fmt.Sprintf("LinkState(0x%04x)", uint16(l))
}

// PortStatus is the reply of a port GET_STATUS request. It is never cached:
// each query goes back to the hub.
type PortStatus struct {
	Status uint16
	Change uint16
}

// DecodePortStatus parses the 4-byte GET_STATUS reply.
func DecodePortStatus(b []byte) (PortStatus, error) {
	if len(b) != 4 {
		return PortStatus{}, fmt.Errorf("port status: got %d bytes, want 4", len(b))
	}
	return PortStatus{
		Status: binary.LittleEndian.Uint16(b[0:2]),
		Change: binary.LittleEndian.Uint16(b[2:4]),
	}, nil
}

// Bytes encodes s in wire order.
func (s PortStatus) Bytes() []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint16(b[0:2], s.Status)
	binary.LittleEndian.PutUint16(b[2:4], s.Change)
	return b
}

// Powered reports whether the port power bit for gen is set.
func (s PortStatus) Powered(gen Generation) bool {
	return s.Status&powerMask[gen] != 0
}

// Idle reports whether nothing but the power bit is set.
func (s PortStatus) Idle(gen Generation) bool {
	return s.Status&^powerMask[gen] == 0
}

// LinkState returns the superspeed link state field.
func (s PortStatus) LinkState() LinkState {
	return LinkState(s.Status & PortStatLinkState)
}

// Off reports whether the port reads as fully powered down.
func (s PortStatus) Off(gen Generation) bool {
	if gen == GenUSB3 {
		return s.Status == uint16(LinkSSDisabled)
	}
	return s.Status == 0
}

type statusBit struct {
	mask uint16
	name string
}

var usb2Flags = []statusBit{
	{PortStatPower, "power"},
	{PortStatIndicator, "indicator"},
	{PortStatTest, "test"},
	{PortStatHighSpeed, "highspeed"},
	{PortStatLowSpeed, "lowspeed"},
	{PortStatSuspend, "suspend"},
}

var commonFlags = []statusBit{
	{PortStatReset, "reset"},
	{PortStatOverCurrent, "oc"},
	{PortStatEnable, "enable"},
	{PortStatConnection, "connect"},
}

var changeFlags = []statusBit{
	{PortChangeConnection, "c_connect"},
	{PortChangeEnable, "c_enable"},
	{PortChangeSuspend, "c_suspend"},
	{PortChangeOverCurrent, "c_oc"},
	{PortChangeReset, "c_reset"},
	{PortChangeBHReset, "c_bh_reset"},
	{PortChangeLinkState, "c_link_state"},
	{PortChangeConfigError, "c_config_error"},
}

// Flags names the status bits in the order uhubctl has always printed them.
func (s PortStatus) Flags(gen Generation) []string {
	var out []string
	if s.Off(gen) {
		out = append(out, "off")
	} else if gen == GenUSB3 {
		if s.Powered(gen) {
			out = append(out, "power")
		}
		if s.Status&SSPortStatSpeed == portStatSpeed5G {
			out = append(out, "5gbps")
		}
		if name, ok := linkStateNames[s.LinkState()]; ok {
			out = append(out, name)
		}
	} else {
		for _, f := range usb2Flags {
			if s.Status&f.mask != 0 {
				out = append(out, f.name)
			}
		}
	}
	for _, f := range commonFlags {
		if s.Status&f.mask != 0 {
			out = append(out, f.name)
		}
	}
	return out
}

// ChangeFlags names the set change bits.
func (s PortStatus) ChangeFlags() []string {
	var out []string
	for _, f := range changeFlags {
		if s.Change&f.mask != 0 {
			out = append(out, f.name)
		}
	}
	return out
}

// Connected reports whether a device is attached to the port.
func (s PortStatus) Connected() bool {
	return s.Status&PortStatConnection != 0
}
