// swapd runs one repeater node's data-plane control logic against a
// simulated physical layer: it provisions a demo two-port swap circuit,
// drives entanglement-generation rounds through the node and prints the
// resulting telemetry.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"syscall"

	flag "github.com/spf13/pflag"

	"github.com/qnetworks/swapd"
	"github.com/qnetworks/swapd/config"
	"github.com/qnetworks/swapd/lock"
	"github.com/qnetworks/swapd/logging"
	"github.com/qnetworks/swapd/node"
	"github.com/qnetworks/swapd/policy"
	"github.com/qnetworks/swapd/policy/sqlite"
	"github.com/qnetworks/swapd/state"
)

var (
	runtimeDir  = flag.String("runtime-dir", "", "Runtime directory for the policy database. Empty runs fully in memory.")
	pendingTTL  = flag.Duration("pending-ttl", config.DefaultPendingTTL, "How long pending records may wait before eviction. Zero disables eviction.")
	sweepEvery  = flag.Duration("sweep-interval", config.DefaultSweepInterval, "How often the eviction sweep runs.")
	logSpec     = flag.String("log", "", "Log spec: <level>[,<component>=<level>]... Overrides "+logging.EnvVar+".")
	logFormat   = flag.String("log-format", "text", "Log output format: text or json.")
	seed        = flag.Int64("seed", 1, "Seed for the simulated measurement outcomes.")
	rounds      = flag.Int("rounds", 10, "Entanglement-generation rounds to drive through the node.")
	successProb = flag.Float64("success-prob", 0.85, "Probability a simulated swap measurement succeeds.")
)

func main() {
	flag.Parse()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "swapd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	format, err := logging.ParseFormat(*logFormat)
	if err != nil {
		return err
	}
	logger, err := logging.New(logging.Options{
		CLISpec: *logSpec,
		EnvSpec: os.Getenv(logging.EnvVar),
		Format:  format,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, guard, err := openStore(ctx, logger)
	if err != nil {
		return err
	}
	defer store.Close()
	defer guard.Close()

	if err := provisionDemo(ctx, store); err != nil {
		return fmt.Errorf("provision demo policy: %w", err)
	}

	arb := &simArbiter{
		rng:         rand.New(rand.NewSource(*seed)),
		successProb: *successProb,
	}
	emitter := &logEmitter{logger: logger}
	n := node.New(store, state.NewTable(), arb, emitter, nil, logger)
	arb.node = n

	if *pendingTTL > 0 {
		go n.RunEviction(ctx, *pendingTTL, *sweepEvery)
	}

	if err := drive(ctx, n, arb, logger); err != nil {
		return err
	}

	snap := n.Metrics().Snapshot()
	fmt.Printf("rounds=%d swaps=%d joins=%d releases=%d drops=%d success_rate=%.2f±%.2f\n",
		*rounds, snap.SwapsIssued, snap.JoinsCompleted, snap.ReleasesIssued,
		snap.PacketsDropped, snap.SuccessRate, snap.SuccessStdDev)
	return nil
}

// openStore opens the policy store. With a runtime directory the
// single-instance lock is taken first and the store is backed by the
// on-disk database; otherwise everything runs in memory.
func openStore(ctx context.Context, logger *slog.Logger) (policy.Store, *lock.Guard, error) {
	if *runtimeDir == "" {
		store, err := sqlite.NewInMemory(ctx, logger)
		return store, nil, err
	}
	dirs, err := config.NewRuntimeDirs(*runtimeDir)
	if err != nil {
		return nil, nil, err
	}
	if err := os.MkdirAll(dirs.DB(), 0o755); err != nil {
		return nil, nil, err
	}
	guard, err := lock.Acquire(ctx, dirs.Lock())
	if err != nil {
		return nil, nil, err
	}
	store, err := sqlite.New(ctx, dirs.PolicyDB(), logger)
	if err != nil {
		guard.Close()
		return nil, nil, err
	}
	return store, guard, nil
}

// provisionDemo configures a single circuit through the node: EG records
// labelled 9 arriving on ports 1 and 2 pair into circuit 42, circuit
// packets cross-connect between the two ports, and both egress sides
// have link addresses.
func provisionDemo(ctx context.Context, store policy.Store) error {
	link := func(port swapd.Port, partner swapd.Port) error {
		return store.SetLinkRule(ctx, port, demoLabel, policy.LinkRule{
			Action:       policy.ActionForward,
			Circuit:      demoCircuit,
			Partner:      partner,
			PartnerLabel: demoLabel,
		})
	}
	if err := link(1, 2); err != nil {
		return err
	}
	if err := link(2, 1); err != nil {
		return err
	}

	for port, egress := range map[swapd.Port]swapd.Port{1: 2, 2: 1} {
		err := store.SetCircuitRule(ctx, port, demoCircuit, policy.CircuitRule{
			Action: policy.ActionForward,
			Egress: egress,
		})
		if err != nil {
			return err
		}
	}

	for port, addr := range map[swapd.Port]swapd.LinkAddr{1: 0x0a00_0001, 2: 0x0a00_0002} {
		if err := store.SetAddress(ctx, port, demoCircuit, addr); err != nil {
			return err
		}
	}
	return nil
}

const (
	demoLabel   swapd.LinkLabel = 9
	demoCircuit swapd.CircuitID = 42
)

// simArbiter simulates the physical layer: swap instructions produce an
// outcome event fed straight back into the node, releases are logged.
type simArbiter struct {
	node        *node.Node
	rng         *rand.Rand
	successProb float64
}

func (a *simArbiter) Swap(ctx context.Context, id swapd.SwapID, qubit0, qubit1 swapd.Port) error {
	return a.node.HandleOutcome(ctx, swapd.OutcomeEvent{
		SwapID:  id,
		Success: a.rng.Float64() < a.successProb,
		Bell:    swapd.BellIndex(a.rng.Intn(4)),
		Qubit0:  qubit0,
		Qubit1:  qubit1,
	})
}

func (a *simArbiter) Release(ctx context.Context, port swapd.Port) error {
	return nil
}

// logEmitter logs emitted packets instead of transmitting them.
type logEmitter struct {
	logger *slog.Logger
}

func (e *logEmitter) Emit(_ context.Context, pkt swapd.OutPacket) error {
	switch {
	case pkt.Packet.Circuit != nil:
		e.logger.Info("emit circuit packet",
			"egress", pkt.Egress, "dest", fmt.Sprintf("%#x", uint64(pkt.Header.Dest)),
			"seq", pkt.Header.Seq,
			"circuit", pkt.Packet.Circuit.CircuitID,
			"pair_id", pkt.Packet.Circuit.PairID,
			"bell", pkt.Packet.Circuit.Bell)
	case pkt.Packet.Outcome != nil:
		e.logger.Info("emit outcome telemetry",
			"egress", pkt.Egress,
			"swap_id", pkt.Packet.Outcome.SwapID,
			"seq", pkt.Packet.Outcome.OutcomeSeq,
			"success", pkt.Packet.Outcome.Success,
			"bell", pkt.Packet.Outcome.Bell)
	}
	return nil
}

// drive feeds entanglement-generation rounds through the node: an EG
// record on each swap port, then the upstream circuit packet that the
// completed swap corrects and forwards.
func drive(ctx context.Context, n *node.Node, arb *simArbiter, logger *slog.Logger) error {
	for round := 0; round < *rounds; round++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		seq := uint16(round)
		for _, port := range []swapd.Port{1, 2} {
			rec := swapd.EGRecord{
				LinkLabel: demoLabel,
				PairSeq:   seq,
				Bell:      swapd.BellIndex(arb.rng.Intn(4)),
			}
			if err := n.HandlePacket(ctx, port, swapd.Packet{EG: &rec}); err != nil {
				return fmt.Errorf("round %d: eg on port %d: %w", round, port, err)
			}
		}

		circ := swapd.CircuitRecord{
			CircuitID: demoCircuit,
			PairID:    seq,
			Bell:      swapd.BellIndex(arb.rng.Intn(4)),
		}
		if err := n.HandlePacket(ctx, 1, swapd.Packet{Circuit: &circ}); err != nil {
			return fmt.Errorf("round %d: circuit: %w", round, err)
		}

		logger.Debug("round complete", "round", round)
	}
	return nil
}
