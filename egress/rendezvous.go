// Package egress implements the rendezvous engine: the per-port state
// machine that joins a circuit-level record with the corresponding
// outcome-telemetry record, whichever arrives second, and emits the
// corrected onward packet.
//
// Each join key (the egress port) is in one of three states: empty, a
// circuit record waiting for its outcome, or an outcome waiting for its
// circuit record. The waiting side is persisted in the state table; no
// goroutine blocks. A match requires the correlation ids to agree
// (telemetry swap id == stored circuit id); a disagreeing event overwrites
// the stale entry and becomes the new waiting side.
package egress

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/qnetworks/swapd"
	"github.com/qnetworks/swapd/policy"
	"github.com/qnetworks/swapd/state"
)

// Engine joins circuit records with outcome telemetry per egress port.
type Engine struct {
	policy policy.Reader
	table  *state.Table
	logger *slog.Logger
}

// New creates an Engine.
func New(pol policy.Reader, table *state.Table, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		policy: pol,
		table:  table,
		logger: logger.With("component", "egress"),
	}
}

// DeliverOutcome delivers an outcome-telemetry record to a join key.
//
// Telemetry directed to the controller port bypasses rendezvous and is
// emitted immediately to the fixed broadcast destination. Otherwise the
// record either completes a waiting join or becomes the waiting side
// itself; in the latter case no packet is emitted and (nil, nil) is
// returned.
func (e *Engine) DeliverOutcome(ctx context.Context, port swapd.Port, rec swapd.OutcomeRecord) (*swapd.OutPacket, error) {
	if port == swapd.CPUPort {
		return &swapd.OutPacket{
			Egress: swapd.CPUPort,
			Header: swapd.LinkHeader{Dest: swapd.BroadcastAddr},
			Packet: swapd.Packet{Outcome: &rec},
		}, nil
	}

	circ, ok := e.table.PeekCircuit(port)
	if !ok || circ.CircuitID != swapd.CircuitID(rec.SwapID) {
		if ok {
			// Stale match: the waiting circuit record belongs to a
			// different correlation id. The new event replaces it.
			e.logger.Debug("stale circuit record overwritten by outcome",
				"port", port, "stored_circuit", circ.CircuitID, "swap_id", rec.SwapID)
		}
		e.table.StoreOutcome(port, rec)
		return nil, nil
	}

	return e.completeJoin(ctx, port, circ, rec)
}

// DeliverCircuit delivers a circuit record to a join key, symmetric to
// DeliverOutcome: it completes a waiting join or is absorbed as the new
// waiting side.
func (e *Engine) DeliverCircuit(ctx context.Context, port swapd.Port, rec swapd.CircuitRecord) (*swapd.OutPacket, error) {
	outc, ok := e.table.PeekOutcome(port)
	if !ok || swapd.CircuitID(outc.SwapID) != rec.CircuitID {
		if ok {
			e.logger.Debug("stale outcome record overwritten by circuit",
				"port", port, "stored_swap", outc.SwapID, "circuit", rec.CircuitID)
		}
		e.table.StoreCircuit(port, rec)
		return nil, nil
	}

	return e.completeJoin(ctx, port, rec, outc)
}

// completeJoin clears both pending entries, consumes the staged EG
// descriptor, folds the three correction codes and builds the onward
// packet. The emitted bell index is
//
//	compose(compose(circuit.bell, outcome.bell), descriptor.bell)
//
// and the circuit id of the emitted record is the outcome's swap id.
func (e *Engine) completeJoin(ctx context.Context, port swapd.Port, circ swapd.CircuitRecord, outc swapd.OutcomeRecord) (*swapd.OutPacket, error) {
	e.table.ClearJoin(port)

	desc, ok := e.table.TakeDescriptor(port)
	if !ok {
		// The one-shot descriptor is gone (evicted, or consumed by a
		// duplicate). Without it there is no outbound link header to
		// build, so the join result cannot be transmitted.
		e.logger.Warn("join completed without staged descriptor, dropping",
			"port", port, "circuit", circ.CircuitID)
		return nil, nil
	}

	out := swapd.CircuitRecord{
		CircuitID: swapd.CircuitID(outc.SwapID),
		PairID:    circ.PairID,
		Bell:      swapd.Compose(swapd.Compose(circ.Bell, outc.Bell), desc.Bell),
	}

	addr, err := e.policy.Address(ctx, port, out.CircuitID)
	if errors.Is(err, policy.ErrNotFound) {
		return nil, swapd.UnroutableError{Port: port, Circuit: out.CircuitID}
	}
	if err != nil {
		return nil, fmt.Errorf("address lookup (%d, %d): %w", port, out.CircuitID, err)
	}

	e.logger.Debug("join completed",
		"port", port, "circuit", out.CircuitID, "pair_id", out.PairID, "bell", out.Bell)

	return &swapd.OutPacket{
		Egress: port,
		Header: swapd.LinkHeader{Dest: addr, Seq: desc.PairSeq},
		Packet: swapd.Packet{Circuit: &out},
	}, nil
}
