package swapd

// Port identifies a physical link port on the node. Valid ports are in
// [0, MaxPorts). Port 0 is reserved as the controller (CPU) egress
// destination; outcome telemetry addressed to it bypasses rendezvous.
type Port uint16

const (
	// MaxPorts is the exclusive upper bound on port identifiers.
	MaxPorts = 512

	// CPUPort is the reserved controller/management egress port.
	CPUPort Port = 0
)

// Valid reports whether p is within the port identifier range.
func (p Port) Valid() bool {
	return p < MaxPorts
}

// CircuitID names a provisioned end-to-end entanglement circuit. It is
// assigned by external provisioning and stable for the circuit's lifetime.
type CircuitID uint16

// LinkLabel correlates two ports' independently-arriving
// entanglement-generation records at the point-to-point link level, before
// a circuit id is known.
type LinkLabel uint16

// SwapID correlates a swap instruction with its asynchronous outcome. A
// swap produced by the cross-connect matcher uses the target circuit id as
// its swap id.
type SwapID uint16

// LinkAddr is an opaque link-layer destination address.
type LinkAddr uint64

// BroadcastAddr is the fixed destination for controller-bound telemetry.
const BroadcastAddr LinkAddr = 0xffff_ffff_ffff
