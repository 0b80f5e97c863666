// Package hubctl discovers USB hubs that support per-port power switching and
// drives power off/on/cycle sequences on their ports.
//
// A Session owns one enumeration snapshot and the hub table built from it.
// Discover walks the snapshot, keeps every hub whose descriptor advertises
// per-port power switching, applies the location and vendor filters, and
// pairs USB3 hub controllers with their USB2 counterparts so that one
// physical enclosure is switched as a unit. Apply and Run then issue the
// CLEAR_FEATURE/SET_FEATURE(PORT_POWER) requests with the configured repeat
// count and delays.
//
// All I/O is synchronous and blocking. A Session is not safe for concurrent
// use, and no power sequence should overlap a discovery pass.
package hubctl
