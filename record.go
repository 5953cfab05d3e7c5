package swapd

// EGRecord is a point-to-point entanglement-generation descriptor, produced
// at a link's far end before a circuit id is assigned. At most one is
// pending per ingress port until it is matched with a partner or released.
type EGRecord struct {
	LinkLabel LinkLabel
	PairSeq   uint16
	Bell      BellIndex
}

// CircuitRecord is a circuit-level descriptor carried by an in-flight
// classical packet after a circuit id has been assigned.
type CircuitRecord struct {
	CircuitID CircuitID
	PairID    uint16
	Bell      BellIndex
}

// OutcomeRecord is the telemetry record derived from one physical-layer
// outcome event. OutcomeSeq is assigned from the per-circuit sequence
// counter, exactly once per event.
type OutcomeRecord struct {
	SwapID     SwapID
	OutcomeSeq uint16
	Success    bool
	Bell       BellIndex
}

// Packet is the record content of a classical data-plane packet. At most
// one field is set. A packet with no records is a plain link-layer frame,
// which the core does not process.
type Packet struct {
	EG      *EGRecord
	Circuit *CircuitRecord
	Outcome *OutcomeRecord
}

// LinkHeader is the outbound link-layer header of an emitted packet. Seq
// carries the pair sequence of the consumed EG descriptor so the far end
// can correlate the onward packet with its own link state.
type LinkHeader struct {
	Dest LinkAddr
	Seq  uint16
}

// OutPacket is a packet scheduled for transmission on an egress port.
type OutPacket struct {
	Egress Port
	Header LinkHeader
	Packet
}
