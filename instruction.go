package swapd

import "fmt"

// Instruction is a command issued to the quantum device arbiter.
type Instruction interface {
	isInstruction()
	fmt.Stringer
}

// Release frees the physical resource held at a port without swapping.
type Release struct {
	Port Port
}

func (Release) isInstruction() {}

func (r Release) String() string {
	return fmt.Sprintf("release(port=%d)", r.Port)
}

// Swap instructs the arbiter to entangle the two qubits held at Qubit0 and
// Qubit1. The arbiter reports the result later as an OutcomeEvent carrying
// the same SwapID.
type Swap struct {
	SwapID SwapID
	Qubit0 Port
	Qubit1 Port
}

func (Swap) isInstruction() {}

func (s Swap) String() string {
	return fmt.Sprintf("swap(id=%d, q0=%d, q1=%d)", s.SwapID, s.Qubit0, s.Qubit1)
}

// OutcomeEvent is the asynchronous result of a swap or heralding
// measurement, reported by the quantum device arbiter. Qubit0 and Qubit1
// name the ports involved in the originating instruction.
type OutcomeEvent struct {
	SwapID  SwapID
	Success bool
	Bell    BellIndex
	Qubit0  Port
	Qubit1  Port
}
