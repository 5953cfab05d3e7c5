// Package swapd contains the domain types for the data-plane control logic
// of a quantum-network repeater node.
//
// A repeater node coordinates entanglement swapping across its physical link
// ports. Two independently-arriving event streams have to be joined exactly
// once per logical operation: classical control packets carried by the
// network, and asynchronous physical-layer outcome events reported by the
// quantum device arbiter. The root package holds the vocabulary shared by
// every layer (ports, records, Bell-frame corrections, instructions); the
// moving parts live in subpackages:
//
//   - xconnect: ingress-side cross-connect matcher pairing waiting link
//     requests into swap instructions
//   - egress: per-port rendezvous engine joining circuit records with
//     outcome telemetry
//   - state: the explicit per-port/per-circuit state table
//   - dispatch: the swap-group registry and outcome fan-out
//   - policy: static forwarding policy (link pairing, circuit forwarding,
//     egress addressing)
//   - arbiter: the instruction boundary to the physical layer
//   - node: per-event orchestration tying the above together
//   - wire: bit-exact record codecs
//   - telemetry: counters and outcome statistics
package swapd
