package hubctl

import (
	"encoding/binary"
	"fmt"
	"time"
)

// BCD is a binary-coded USB specification release number, e.g. 0x0210.
type BCD uint16

// Generation is the protocol generation of a hub, which selects the port
// status bit layout.
type Generation int

const (
	GenUSB2 Generation = iota
	GenUSB3
)

// superSpeedBCD is the first release using the USB 3.0 hub layout.
const superSpeedBCD BCD = 0x0300

// Generation returns GenUSB3 for 3.0 and later, GenUSB2 otherwise.
func (b BCD) Generation() Generation {
	if b >= superSpeedBCD {
		return GenUSB3
	}
	return GenUSB2
}

// String renders the version as "major.minor", for example "2.10".
func (b BCD) String() string {
	return fmt.Sprintf("%x.%02x", uint16(b)>>8, uint16(b)&0xff)
}

func (g Generation) String() string {
	if g == GenUSB3 {
		return "USB3"
	}
	return "USB2"
}

// descriptorType returns the class descriptor type to request from a hub of
// this generation.
func (g Generation) descriptorType() uint8 {
	if g == GenUSB3 {
		return dtSuperSpeedHub
	}
	return dtHub
}

// PowerMode is the logical power switching or over-current protection mode
// advertised in wHubCharacteristics.
type PowerMode int

const (
	ModeGanged PowerMode = iota
	ModePerPort
	ModeNone
)

func (m PowerMode) String() string {
	switch m {
	case ModeGanged:
		return "ganged"
	case ModePerPort:
		return "per-port"
	default:
		return "none"
	}
}

// wHubCharacteristics masks, USB 2.0 table 11-13.
const (
	hubCharLPSM     = 0x0003
	hubCharLPSMPort = 0x0001
	hubCharCompound = 0x0004
	hubCharOCPM     = 0x0018
	hubCharOCPMPort = 0x0008
	hubCharPortInd  = 0x0080
)

const (
	// hubDescNonVarSize is the fixed part of the hub descriptor.
	hubDescNonVarSize = 7
	// hubDescMinLen is the shortest reply that carries the removable
	// bitmap byte and the power control mask byte.
	hubDescMinLen = hubDescNonVarSize + 2
	// hubDescBufLen is the buffer passed to GET_DESCRIPTOR; it fits the
	// whole superspeed hub descriptor.
	hubDescBufLen = hubDescNonVarSize + 2 + 3
)

// HubDescriptor is the decoded hub class descriptor.
type HubDescriptor struct {
	Ports           int
	Characteristics uint16
	PowerSwitching  PowerMode
	OverCurrent     PowerMode
	Compound        bool
	PortIndicators  bool
	// PowerOnToGood is the time the hub needs after power-on before the
	// port is usable.
	PowerOnToGood time.Duration
}

// DecodeHubDescriptor parses the raw reply of a hub GET_DESCRIPTOR request.
func DecodeHubDescriptor(b []byte) (HubDescriptor, error) {
	if len(b) < hubDescMinLen {
		return HubDescriptor{}, fmt.Errorf("%w: %d bytes, need %d", ErrInvalidDescriptor, len(b), hubDescMinLen)
	}
	chars := binary.LittleEndian.Uint16(b[3:5])
	d := HubDescriptor{
		Ports:           int(b[2]),
		Characteristics: chars,
		Compound:        chars&hubCharCompound != 0,
		PortIndicators:  chars&hubCharPortInd != 0,
		PowerOnToGood:   time.Duration(b[5]) * 2 * time.Millisecond,
	}
	switch chars & hubCharLPSM {
	case 0:
		d.PowerSwitching = ModeGanged
	case hubCharLPSMPort:
		d.PowerSwitching = ModePerPort
	default:
		d.PowerSwitching = ModeNone
	}
	switch chars & hubCharOCPM {
	case 0:
		d.OverCurrent = ModeGanged
	case hubCharOCPMPort:
		d.OverCurrent = ModePerPort
	default:
		d.OverCurrent = ModeNone
	}
	return d, nil
}

// Qualifies reports whether the hub can switch port power individually with
// a usable over-current protection mode.
func (d HubDescriptor) Qualifies() bool {
	return d.PowerSwitching == ModePerPort &&
		(d.OverCurrent == ModePerPort || d.OverCurrent == ModeGanged)
}
