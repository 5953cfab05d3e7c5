// Package node wires the data-plane components into a single repeater
// node: policy, pending state, the cross-connect matcher, the egress
// rendezvous engine, the dispatch registry and the arbiter client.
//
// The node has two entry points. HandlePacket processes a classical
// packet arriving on an ingress port; HandleOutcome processes a
// measurement outcome reported by the arbiter. Both are safe for
// concurrent use: events for the same port are serialized on a striped
// lock, events for distinct ports proceed in parallel.
package node

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/qnetworks/swapd"
	"github.com/qnetworks/swapd/arbiter"
	"github.com/qnetworks/swapd/dispatch"
	"github.com/qnetworks/swapd/egress"
	"github.com/qnetworks/swapd/policy"
	"github.com/qnetworks/swapd/state"
	"github.com/qnetworks/swapd/telemetry"
	"github.com/qnetworks/swapd/xconnect"
)

// lockStripes is the number of port-serialization locks. Ports map onto
// stripes by modulo; two ports sharing a stripe serialize against each
// other, which is harmless.
const lockStripes = 64

// Emitter transmits completed packets on their egress port.
type Emitter interface {
	Emit(ctx context.Context, pkt swapd.OutPacket) error
}

// Node is the control logic of one repeater node.
type Node struct {
	table    *state.Table
	matcher  *xconnect.Matcher
	engine   *egress.Engine
	registry *dispatch.Registry
	arb      arbiter.Arbiter
	emitter  Emitter
	metrics  *telemetry.Recorder
	logger   *slog.Logger

	locks [lockStripes]sync.Mutex
}

// New creates a Node. A nil metrics recorder is replaced with a fresh
// one; a nil logger falls back to slog.Default.
func New(pol policy.Reader, table *state.Table, arb arbiter.Arbiter, emitter Emitter, metrics *telemetry.Recorder, logger *slog.Logger) *Node {
	if metrics == nil {
		metrics = telemetry.NewRecorder()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Node{
		table:    table,
		matcher:  xconnect.New(pol, table, logger),
		engine:   egress.New(pol, table, logger),
		registry: dispatch.NewRegistry(),
		arb:      arb,
		emitter:  emitter,
		metrics:  metrics,
		logger:   logger.With("component", "node"),
	}
}

// Metrics returns the node's telemetry recorder.
func (n *Node) Metrics() *telemetry.Recorder {
	return n.metrics
}

func (n *Node) lock(port swapd.Port) *sync.Mutex {
	return &n.locks[uint16(port)%lockStripes]
}

// HandlePacket processes one classical packet arriving on an ingress
// port. Exactly one of the packet's record fields must be set.
func (n *Node) HandlePacket(ctx context.Context, ingress swapd.Port, pkt swapd.Packet) error {
	if !ingress.Valid() {
		return swapd.PortRangeError{Port: ingress}
	}

	switch {
	case pkt.EG != nil:
		return n.handleEG(ctx, ingress, *pkt.EG)
	case pkt.Circuit != nil:
		return n.handleCircuit(ctx, ingress, *pkt.Circuit)
	case pkt.Outcome != nil:
		// Outcome records originate from the arbiter, not the wire.
		return fmt.Errorf("outcome record on ingress port %d", ingress)
	default:
		return fmt.Errorf("empty packet on ingress port %d", ingress)
	}
}

func (n *Node) handleEG(ctx context.Context, ingress swapd.Port, rec swapd.EGRecord) error {
	mu := n.lock(ingress)
	mu.Lock()
	decision, err := n.matcher.OnEGArrival(ctx, ingress, rec)
	mu.Unlock()
	if err != nil {
		return err
	}
	return n.apply(ctx, decision.Instruction)
}

func (n *Node) handleCircuit(ctx context.Context, ingress swapd.Port, rec swapd.CircuitRecord) error {
	mu := n.lock(ingress)
	mu.Lock()
	decision, err := n.matcher.OnCircuitArrival(ctx, ingress, rec)
	mu.Unlock()
	if err != nil {
		return err
	}
	if decision.Instruction != nil {
		return n.apply(ctx, decision.Instruction)
	}
	if !decision.Forward {
		return nil
	}

	mu = n.lock(decision.Egress)
	mu.Lock()
	out, err := n.engine.DeliverCircuit(ctx, decision.Egress, rec)
	mu.Unlock()
	return n.finishJoin(ctx, out, err)
}

// HandleOutcome processes one measurement outcome from the arbiter. The
// outcome is stamped with the next per-circuit sequence number exactly
// once, then the same record is delivered to both swap ports and the
// controller port.
func (n *Node) HandleOutcome(ctx context.Context, ev swapd.OutcomeEvent) error {
	group, ok := n.registry.Lookup(ev.SwapID)
	if !ok {
		n.metrics.UnknownSwap()
		n.logger.Warn("outcome for unknown swap id, ignoring", "swap_id", ev.SwapID)
		return nil
	}
	if group.Qubit0 != ev.Qubit0 || group.Qubit1 != ev.Qubit1 {
		n.logger.Warn("outcome ports disagree with issued swap",
			"swap_id", ev.SwapID,
			"issued_qubit0", group.Qubit0, "issued_qubit1", group.Qubit1,
			"reported_qubit0", ev.Qubit0, "reported_qubit1", ev.Qubit1)
	}

	rec := n.matcher.OnOutcome(ev)
	n.metrics.Outcome(ev.Success)

	var errs []error
	for _, port := range dispatch.FanOut(group) {
		mu := n.lock(port)
		mu.Lock()
		out, err := n.engine.DeliverOutcome(ctx, port, rec)
		mu.Unlock()
		if err := n.finishJoin(ctx, out, err); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// apply issues an instruction to the arbiter and records the bookkeeping
// that goes with it. A nil instruction is a no-op.
func (n *Node) apply(ctx context.Context, ins swapd.Instruction) error {
	if ins == nil {
		return nil
	}
	if err := arbiter.Execute(ctx, n.arb, ins); err != nil {
		return fmt.Errorf("execute %s: %w", ins, err)
	}

	switch v := ins.(type) {
	case swapd.Swap:
		n.registry.Register(v.SwapID, dispatch.Group{Qubit0: v.Qubit0, Qubit1: v.Qubit1})
		n.metrics.SwapIssued()
	case swapd.Release:
		n.metrics.ReleaseIssued()
	}
	return nil
}

// finishJoin handles the result of a rendezvous delivery: emit the
// packet if one was produced, drop on unroutable circuits, propagate
// everything else.
func (n *Node) finishJoin(ctx context.Context, out *swapd.OutPacket, err error) error {
	var unroutable swapd.UnroutableError
	if errors.As(err, &unroutable) {
		n.metrics.PacketDropped()
		n.logger.Warn("dropping unroutable join result",
			"port", unroutable.Port, "circuit", unroutable.Circuit)
		return nil
	}
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}

	if out.Egress != swapd.CPUPort {
		n.metrics.JoinCompleted()
	}
	if err := n.emitter.Emit(ctx, *out); err != nil {
		return fmt.Errorf("emit on port %d: %w", out.Egress, err)
	}
	return nil
}

// RunEviction sweeps expired pending records every interval until the
// context is cancelled. A non-positive ttl disables eviction and the
// method returns immediately.
func (n *Node) RunEviction(ctx context.Context, ttl, interval time.Duration) {
	if ttl <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if evicted := n.table.EvictExpired(now, ttl); evicted > 0 {
				n.metrics.Evicted(evicted)
				n.logger.Debug("evicted expired pending records", "count", evicted)
			}
		}
	}
}
