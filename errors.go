package swapd

import "fmt"

// UnroutableError is returned when no link-layer address is configured for
// an egress port and circuit. The affected packet is dropped; the condition
// is a per-event outcome, never fatal.
type UnroutableError struct {
	Port    Port
	Circuit CircuitID
}

func (e UnroutableError) Error() string {
	return fmt.Sprintf("no link-layer address for egress port %d circuit %d", e.Port, e.Circuit)
}

// PortRangeError is returned when an event names a port outside [0, MaxPorts).
type PortRangeError struct {
	Port Port
}

func (e PortRangeError) Error() string {
	return fmt.Sprintf("port %d out of range [0, %d)", e.Port, MaxPorts)
}
