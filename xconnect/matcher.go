// Package xconnect implements the ingress-side cross-connect matcher: the
// decision logic that pairs waiting link requests into swap instructions
// and routes circuit-level packets towards their egress rendezvous.
package xconnect

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/qnetworks/swapd"
	"github.com/qnetworks/swapd/policy"
	"github.com/qnetworks/swapd/state"
)

// Decision is the outcome of processing one ingress event. Instruction is
// nil when no command is issued to the arbiter this step. Forward reports
// whether the triggering packet continues to the egress rendezvous at
// Egress.
type Decision struct {
	Instruction swapd.Instruction
	Forward     bool
	Egress      swapd.Port
}

// Matcher makes the ingress-time store/forward/release/swap decision. It
// reads policy and reads/writes the state table; it performs no I/O of its
// own beyond that.
type Matcher struct {
	policy policy.Reader
	table  *state.Table
	logger *slog.Logger
}

// New creates a Matcher.
func New(pol policy.Reader, table *state.Table, logger *slog.Logger) *Matcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Matcher{
		policy: pol,
		table:  table,
		logger: logger.With("component", "xconnect"),
	}
}

// OnEGArrival handles a classical packet carrying an EG record on an
// ingress port.
//
// The arriving record is stored before the partner port is checked. The
// check is read-only and never clears state, so two ports running their
// checks concurrently are each safe in either order: whichever side
// observes the other's stored record issues the swap.
func (m *Matcher) OnEGArrival(ctx context.Context, ingress swapd.Port, rec swapd.EGRecord) (Decision, error) {
	rule, err := m.policy.LinkRule(ctx, ingress, rec.LinkLabel)
	if errors.Is(err, policy.ErrNotFound) {
		m.logger.Debug("no link rule, releasing",
			"port", ingress, "link_label", rec.LinkLabel)
		return Decision{Instruction: swapd.Release{Port: ingress}}, nil
	}
	if err != nil {
		return Decision{}, fmt.Errorf("link rule lookup (%d, %d): %w", ingress, rec.LinkLabel, err)
	}
	if rule.Action == policy.ActionRelease {
		return Decision{Instruction: swapd.Release{Port: ingress}}, nil
	}

	m.table.StoreEG(ingress, rec)

	partner, ok := m.table.PeekEG(rule.Partner)
	if !ok || partner.LinkLabel != rule.PartnerLabel {
		// No partner waiting yet; the symmetric check on the partner
		// port will discover our stored record when it arrives.
		m.logger.Debug("stored eg record, waiting for partner",
			"port", ingress, "partner", rule.Partner, "link_label", rec.LinkLabel)
		return Decision{}, nil
	}

	// Both sides of the pairing are known. Stage each port's EG record as
	// that port's outbound descriptor; the egress joins consume them
	// one-shot after the swap outcome arrives. The pending slots are not
	// cleared here.
	m.table.StageDescriptor(ingress, rec)
	m.table.StageDescriptor(rule.Partner, partner)

	swap := swapd.Swap{
		SwapID: swapd.SwapID(rule.Circuit),
		Qubit0: ingress,
		Qubit1: rule.Partner,
	}
	m.logger.Debug("partner found, issuing swap",
		"port", ingress, "partner", rule.Partner, "circuit", rule.Circuit)
	return Decision{Instruction: swap}, nil
}

// OnCircuitArrival handles a classical packet carrying a circuit record on
// an ingress port. It selects the egress port; all further state changes
// belong to the rendezvous engine.
func (m *Matcher) OnCircuitArrival(ctx context.Context, ingress swapd.Port, rec swapd.CircuitRecord) (Decision, error) {
	rule, err := m.policy.CircuitRule(ctx, ingress, rec.CircuitID)
	if errors.Is(err, policy.ErrNotFound) {
		m.logger.Debug("no circuit rule, releasing",
			"port", ingress, "circuit", rec.CircuitID)
		return Decision{Instruction: swapd.Release{Port: ingress}}, nil
	}
	if err != nil {
		return Decision{}, fmt.Errorf("circuit rule lookup (%d, %d): %w", ingress, rec.CircuitID, err)
	}
	if rule.Action == policy.ActionRelease {
		return Decision{Instruction: swapd.Release{Port: ingress}}, nil
	}

	return Decision{Forward: true, Egress: rule.Egress}, nil
}

// OnOutcome turns a physical-layer outcome event into the telemetry record
// delivered to the ports named in the originating swap. The per-circuit
// sequence counter is read and incremented exactly once per event; fan-out
// duplicates the record, not the increment.
func (m *Matcher) OnOutcome(ev swapd.OutcomeEvent) swapd.OutcomeRecord {
	return swapd.OutcomeRecord{
		SwapID:     ev.SwapID,
		OutcomeSeq: m.table.NextOutcomeSeq(swapd.CircuitID(ev.SwapID)),
		Success:    ev.Success,
		Bell:       ev.Bell,
	}
}
