package swapd

import "fmt"

// BellIndex is a 2-bit Pauli-frame correction class. The two bits are
// independent flags; bit 1 distinguishes Phi from Psi states, bit 0
// distinguishes plus from minus.
type BellIndex uint8

const (
	PhiPlus  BellIndex = 0b00
	PhiMinus BellIndex = 0b01
	PsiPlus  BellIndex = 0b10
	PsiMinus BellIndex = 0b11
)

// Compose combines two corrections into the single correction equivalent to
// applying both in sequence. Each flag composes by addition modulo 2, which
// makes the operation commutative, associative and self-inverse, with
// PhiPlus as the identity.
func Compose(a, b BellIndex) BellIndex {
	return (a ^ b) & 0b11
}

// Valid reports whether b fits in two bits.
func (b BellIndex) Valid() bool {
	return b <= PsiMinus
}

// String returns the conventional Bell-state name.
func (b BellIndex) String() string {
	switch b {
	case PhiPlus:
		return "phi+"
	case PhiMinus:
		return "phi-"
	case PsiPlus:
		return "psi+"
	case PsiMinus:
		return "psi-"
	default:
		return fmt.Sprintf("BellIndex(%d)", uint8(b))
	}
}
