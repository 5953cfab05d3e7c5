package node_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qnetworks/swapd"
	"github.com/qnetworks/swapd/node"
	"github.com/qnetworks/swapd/policy"
	"github.com/qnetworks/swapd/policy/sqlite"
	"github.com/qnetworks/swapd/state"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeArbiter records issued instructions and can inject failures per
// operation kind.
type fakeArbiter struct {
	ops  []string
	fail map[string]error
}

func newFakeArbiter() *fakeArbiter {
	return &fakeArbiter{fail: make(map[string]error)}
}

func (f *fakeArbiter) Swap(_ context.Context, id swapd.SwapID, qubit0, qubit1 swapd.Port) error {
	f.ops = append(f.ops, fmt.Sprintf("swap %d (%d,%d)", id, qubit0, qubit1))
	return f.fail["swap"]
}

func (f *fakeArbiter) Release(_ context.Context, port swapd.Port) error {
	f.ops = append(f.ops, fmt.Sprintf("release %d", port))
	return f.fail["release"]
}

// fakeEmitter records emitted packets.
type fakeEmitter struct {
	packets []swapd.OutPacket
	err     error
}

func (f *fakeEmitter) Emit(_ context.Context, pkt swapd.OutPacket) error {
	if f.err != nil {
		return f.err
	}
	f.packets = append(f.packets, pkt)
	return nil
}

// newTestNode provisions a two-port swap: EG records labelled 9 on ports
// 1 and 2 pair into circuit 42, circuit packets for 42 cross-connect
// between the two ports, and both egress sides have addresses.
func newTestNode(t *testing.T) (*node.Node, *fakeArbiter, *fakeEmitter) {
	t.Helper()
	ctx := context.Background()

	store, err := sqlite.NewInMemory(ctx, testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.SetLinkRule(ctx, 1, 9, policy.LinkRule{
		Action: policy.ActionForward, Circuit: 42, Partner: 2, PartnerLabel: 9,
	}))
	require.NoError(t, store.SetLinkRule(ctx, 2, 9, policy.LinkRule{
		Action: policy.ActionForward, Circuit: 42, Partner: 1, PartnerLabel: 9,
	}))
	require.NoError(t, store.SetCircuitRule(ctx, 1, 42, policy.CircuitRule{
		Action: policy.ActionForward, Egress: 2,
	}))
	require.NoError(t, store.SetCircuitRule(ctx, 2, 42, policy.CircuitRule{
		Action: policy.ActionForward, Egress: 1,
	}))
	require.NoError(t, store.SetAddress(ctx, 1, 42, 0x0000aaaa))
	require.NoError(t, store.SetAddress(ctx, 2, 42, 0x0000bbbb))

	arb := newFakeArbiter()
	emitter := &fakeEmitter{}
	n := node.New(store, state.NewTable(), arb, emitter, nil, testLogger())
	return n, arb, emitter
}

func egPacket(rec swapd.EGRecord) swapd.Packet {
	return swapd.Packet{EG: &rec}
}

func circuitPacket(rec swapd.CircuitRecord) swapd.Packet {
	return swapd.Packet{Circuit: &rec}
}

func TestUnconfiguredLinkReleases(t *testing.T) {
	ctx := context.Background()
	n, arb, emitter := newTestNode(t)

	err := n.HandlePacket(ctx, 3, egPacket(swapd.EGRecord{LinkLabel: 7}))
	require.NoError(t, err)

	assert.Equal(t, []string{"release 3"}, arb.ops)
	assert.Empty(t, emitter.packets)
	assert.Equal(t, uint64(1), n.Metrics().Snapshot().ReleasesIssued)
}

func TestSecondEGArrivalIssuesSwap(t *testing.T) {
	ctx := context.Background()
	n, arb, _ := newTestNode(t)

	err := n.HandlePacket(ctx, 1, egPacket(swapd.EGRecord{LinkLabel: 9, PairSeq: 100}))
	require.NoError(t, err)
	assert.Empty(t, arb.ops, "first arrival must wait for its partner")

	err = n.HandlePacket(ctx, 2, egPacket(swapd.EGRecord{LinkLabel: 9, PairSeq: 200}))
	require.NoError(t, err)
	assert.Equal(t, []string{"swap 42 (2,1)"}, arb.ops)
	assert.Equal(t, uint64(1), n.Metrics().Snapshot().SwapsIssued)
}

func TestFullSwapPipeline(t *testing.T) {
	ctx := context.Background()
	n, arb, emitter := newTestNode(t)

	// Two EG arrivals pair into a swap.
	require.NoError(t, n.HandlePacket(ctx, 1,
		egPacket(swapd.EGRecord{LinkLabel: 9, PairSeq: 100, Bell: swapd.PhiPlus})))
	require.NoError(t, n.HandlePacket(ctx, 2,
		egPacket(swapd.EGRecord{LinkLabel: 9, PairSeq: 200, Bell: swapd.PhiMinus})))
	require.Equal(t, []string{"swap 42 (2,1)"}, arb.ops)

	// The outcome fans out: telemetry to the controller immediately,
	// both swap ports store the record pending their circuit packet.
	err := n.HandleOutcome(ctx, swapd.OutcomeEvent{
		SwapID: 42, Success: true, Bell: swapd.PsiPlus, Qubit0: 2, Qubit1: 1,
	})
	require.NoError(t, err)
	require.Len(t, emitter.packets, 1)
	telem := emitter.packets[0]
	assert.Equal(t, swapd.CPUPort, telem.Egress)
	assert.Equal(t, swapd.BroadcastAddr, telem.Header.Dest)
	require.NotNil(t, telem.Packet.Outcome)
	assert.Equal(t, swapd.SwapID(42), telem.Packet.Outcome.SwapID)
	assert.True(t, telem.Packet.Outcome.Success)

	// A circuit packet arriving on port 1 cross-connects to port 2 and
	// completes that side's join.
	err = n.HandlePacket(ctx, 1, circuitPacket(swapd.CircuitRecord{
		CircuitID: 42, PairID: 7, Bell: swapd.PsiMinus,
	}))
	require.NoError(t, err)
	require.Len(t, emitter.packets, 2)

	out := emitter.packets[1]
	assert.Equal(t, swapd.Port(2), out.Egress)
	assert.Equal(t, swapd.LinkAddr(0x0000bbbb), out.Header.Dest)
	assert.Equal(t, uint16(200), out.Header.Seq, "link header reuses the descriptor's pair sequence")
	require.NotNil(t, out.Packet.Circuit)
	assert.Equal(t, swapd.CircuitID(42), out.Packet.Circuit.CircuitID)
	assert.Equal(t, uint16(7), out.Packet.Circuit.PairID)
	wantBell := swapd.Compose(swapd.Compose(swapd.PsiMinus, swapd.PsiPlus), swapd.PhiMinus)
	assert.Equal(t, wantBell, out.Packet.Circuit.Bell)

	snap := n.Metrics().Snapshot()
	assert.Equal(t, uint64(1), snap.SwapsIssued)
	assert.Equal(t, uint64(1), snap.JoinsCompleted)
	assert.Equal(t, 1, snap.Outcomes)
	assert.InDelta(t, 1.0, snap.SuccessRate, 1e-9)
}

func TestOutcomeSequencesAreGapless(t *testing.T) {
	ctx := context.Background()
	n, _, emitter := newTestNode(t)

	require.NoError(t, n.HandlePacket(ctx, 1, egPacket(swapd.EGRecord{LinkLabel: 9})))
	require.NoError(t, n.HandlePacket(ctx, 2, egPacket(swapd.EGRecord{LinkLabel: 9})))

	// Each outcome event consumes exactly one sequence number even
	// though the record is delivered to three ports.
	for i := 0; i < 3; i++ {
		require.NoError(t, n.HandleOutcome(ctx, swapd.OutcomeEvent{
			SwapID: 42, Success: true, Qubit0: 2, Qubit1: 1,
		}))
	}

	var seqs []uint16
	for _, pkt := range emitter.packets {
		if pkt.Egress == swapd.CPUPort && pkt.Packet.Outcome != nil {
			seqs = append(seqs, pkt.Packet.Outcome.OutcomeSeq)
		}
	}
	assert.Equal(t, []uint16{0, 1, 2}, seqs)
}

func TestUnknownSwapOutcomeIgnored(t *testing.T) {
	ctx := context.Background()
	n, _, emitter := newTestNode(t)

	err := n.HandleOutcome(ctx, swapd.OutcomeEvent{SwapID: 999, Success: true})
	require.NoError(t, err)
	assert.Empty(t, emitter.packets)
	assert.Equal(t, uint64(1), n.Metrics().Snapshot().UnknownSwaps)
}

func TestArbiterFailurePropagates(t *testing.T) {
	ctx := context.Background()
	n, arb, _ := newTestNode(t)
	arb.fail["release"] = fmt.Errorf("device busy")

	err := n.HandlePacket(ctx, 3, egPacket(swapd.EGRecord{LinkLabel: 7}))
	require.Error(t, err)
	assert.ErrorContains(t, err, "device busy")
}

func TestUnroutableJoinDropsWithoutError(t *testing.T) {
	ctx := context.Background()

	store, err := sqlite.NewInMemory(ctx, testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	// Circuit rule but no egress address: the join completes and the
	// result is unroutable.
	require.NoError(t, store.SetLinkRule(ctx, 1, 9, policy.LinkRule{
		Action: policy.ActionForward, Circuit: 42, Partner: 2, PartnerLabel: 9,
	}))
	require.NoError(t, store.SetLinkRule(ctx, 2, 9, policy.LinkRule{
		Action: policy.ActionForward, Circuit: 42, Partner: 1, PartnerLabel: 9,
	}))
	require.NoError(t, store.SetCircuitRule(ctx, 1, 42, policy.CircuitRule{
		Action: policy.ActionForward, Egress: 2,
	}))

	arb := newFakeArbiter()
	emitter := &fakeEmitter{}
	n := node.New(store, state.NewTable(), arb, emitter, nil, testLogger())

	require.NoError(t, n.HandlePacket(ctx, 1, egPacket(swapd.EGRecord{LinkLabel: 9})))
	require.NoError(t, n.HandlePacket(ctx, 2, egPacket(swapd.EGRecord{LinkLabel: 9})))
	require.NoError(t, n.HandleOutcome(ctx, swapd.OutcomeEvent{
		SwapID: 42, Success: true, Qubit0: 2, Qubit1: 1,
	}))

	err = n.HandlePacket(ctx, 1, circuitPacket(swapd.CircuitRecord{CircuitID: 42, PairID: 1}))
	require.NoError(t, err, "unroutable joins are dropped, not errored")

	// Only the controller telemetry packet was emitted.
	require.Len(t, emitter.packets, 1)
	assert.Equal(t, swapd.CPUPort, emitter.packets[0].Egress)
	assert.Equal(t, uint64(1), n.Metrics().Snapshot().PacketsDropped)
}

func TestMalformedPackets(t *testing.T) {
	ctx := context.Background()
	n, _, _ := newTestNode(t)

	err := n.HandlePacket(ctx, 1, swapd.Packet{})
	assert.ErrorContains(t, err, "empty packet")

	err = n.HandlePacket(ctx, 1, swapd.Packet{Outcome: &swapd.OutcomeRecord{}})
	assert.ErrorContains(t, err, "outcome record on ingress")

	var rangeErr swapd.PortRangeError
	err = n.HandlePacket(ctx, swapd.MaxPorts, egPacket(swapd.EGRecord{}))
	require.ErrorAs(t, err, &rangeErr)
	assert.Equal(t, swapd.Port(swapd.MaxPorts), rangeErr.Port)
}
