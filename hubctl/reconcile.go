package hubctl

import "strings"

// reconcile marks the USB2/USB3 dual of every actionable hub as actionable
// too and returns the number of distinct physical actionable hubs.
//
// Hubs with a USB3 controller enumerate twice, once per protocol
// generation, and both controllers switch the same physical ports. The
// dual is found heuristically: the other generation, the same 4-character
// vendor ID, and preferably the same port path after the bus number. The
// path match is reliable where the OS numbers both controllers' ports the
// same way (Linux); on macOS it is not, and with several hubs of the same
// vendor and no path match the first not-yet-actionable candidate wins,
// which may be the wrong hub.
//
// Pairing is a single ordered scan of the table. Counting happens after
// it, over the final actionable set, so the count does not depend on the
// order in which the two controllers of a hub were enumerated.
func reconcile(hubs []*Hub, exact bool) int {
	if !exact {
		for i, hi := range hubs {
			if !hi.Actionable {
				continue
			}
			if j := findDual(hubs, i); j >= 0 {
				hubs[j].Actionable = true
			}
		}
	}
	phys := 0
	for _, h := range hubs {
		if h.Actionable && (exact || h.Generation() == GenUSB2) {
			phys++
		}
	}
	return phys
}

// findDual returns the index of the hub paired with hubs[i], or -1.
func findDual(hubs []*Hub, i int) int {
	hi := hubs[i]
	match := -1
	for j, hj := range hubs {
		if i == j {
			continue
		}
		if hi.Generation() == hj.Generation() {
			continue
		}
		if !sameVendorPrefix(hi.Vendor, hj.Vendor) {
			continue
		}
		if match < 0 && !hj.Actionable {
			match = j
		}
		if p1, p2 := portPath(hi.Location), portPath(hj.Location); p1 != "" && p2 != "" && strings.EqualFold(p1, p2) {
			return j
		}
	}
	return match
}

func sameVendorPrefix(a, b string) bool {
	const n = 4
	if len(a) < n || len(b) < n {
		return false
	}
	return strings.EqualFold(a[:n], b[:n])
}

// portPath returns the location from the first '-' on, or "" for a root
// hub location that has no port chain.
func portPath(loc string) string {
	if i := strings.IndexByte(loc, '-'); i >= 0 {
		return loc[i:]
	}
	return ""
}
