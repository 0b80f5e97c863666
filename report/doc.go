// Package report renders hub and port state for people: the status lines
// printed by the uhubctl command, serial port annotations for attached
// devices and an xlsx inventory of every hub found.
package report
