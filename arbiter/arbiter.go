// Package arbiter defines the interface to the quantum device arbiter: the
// physical-layer component that executes swap and release instructions and
// reports measurement outcomes asynchronously.
//
// The arbiter's internals are outside this repository. The node issues
// instructions through this interface and receives the resulting
// OutcomeEvents back through its own HandleOutcome entry point, routed by
// the surrounding dispatcher.
package arbiter

import (
	"context"
	"fmt"

	"github.com/qnetworks/swapd"
)

// Arbiter executes instructions against the physical layer.
type Arbiter interface {
	// Swap entangles the two qubits held at qubit0 and qubit1. The result
	// arrives later as an OutcomeEvent carrying the same id.
	Swap(ctx context.Context, id swapd.SwapID, qubit0, qubit1 swapd.Port) error

	// Release frees the physical resource held at a port.
	Release(ctx context.Context, port swapd.Port) error
}

// Execute issues an instruction to the arbiter.
func Execute(ctx context.Context, a Arbiter, ins swapd.Instruction) error {
	switch v := ins.(type) {
	case swapd.Release:
		return a.Release(ctx, v.Port)
	case swapd.Swap:
		return a.Swap(ctx, v.SwapID, v.Qubit0, v.Qubit1)
	default:
		return fmt.Errorf("unknown instruction type %T", ins)
	}
}
