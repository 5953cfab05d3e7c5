package wire_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qnetworks/swapd"
	"github.com/qnetworks/swapd/wire"
)

func TestEGRecordLayout(t *testing.T) {
	r := swapd.EGRecord{LinkLabel: 0x1234, PairSeq: 0x5678, Bell: swapd.PsiPlus}
	b := wire.AppendEG(nil, r)
	require.Len(t, b, wire.EGRecordLen)
	// psi+ = 0b10 in the top two bits of the last byte.
	assert.Equal(t, []byte{0x12, 0x34, 0x56, 0x78, 0x80}, b)

	got, err := wire.DecodeEG(b)
	require.NoError(t, err)
	assert.Equal(t, r, got)
}

func TestCircuitRecordLayout(t *testing.T) {
	r := swapd.CircuitRecord{CircuitID: 42, PairID: 5, Bell: swapd.PhiMinus}
	b := wire.AppendCircuit(nil, r)
	require.Len(t, b, wire.CircuitRecordLen)
	assert.Equal(t, []byte{0x00, 0x2a, 0x00, 0x05, 0x40}, b)

	got, err := wire.DecodeCircuit(b)
	require.NoError(t, err)
	assert.Equal(t, r, got)
}

func TestOutcomeRecordLayout(t *testing.T) {
	r := swapd.OutcomeRecord{SwapID: 0xbeef, OutcomeSeq: 3, Success: true, Bell: swapd.PsiMinus}
	b := wire.AppendOutcome(nil, r)
	require.Len(t, b, wire.OutcomeRecordLen)
	// success(1)=1, bell(2)=0b11, pad(5)=0 -> 0b1110_0000.
	assert.Equal(t, []byte{0xbe, 0xef, 0x00, 0x03, 0xe0}, b)

	got, err := wire.DecodeOutcome(b)
	require.NoError(t, err)
	assert.Equal(t, r, got)
}

func TestOutcomeFailureEncodesZeroSuccessBit(t *testing.T) {
	r := swapd.OutcomeRecord{SwapID: 1, OutcomeSeq: 0, Success: false, Bell: swapd.PhiPlus}
	b := wire.AppendOutcome(nil, r)
	assert.Equal(t, byte(0x00), b[4])

	got, err := wire.DecodeOutcome(b)
	require.NoError(t, err)
	assert.False(t, got.Success)
}

func TestDecodeShortBuffer(t *testing.T) {
	short := []byte{0x00, 0x01, 0x02, 0x03}

	_, err := wire.DecodeEG(short)
	assert.ErrorIs(t, err, wire.ErrShortBuffer)

	_, err = wire.DecodeCircuit(short)
	assert.ErrorIs(t, err, wire.ErrShortBuffer)

	_, err = wire.DecodeOutcome(short)
	assert.ErrorIs(t, err, wire.ErrShortBuffer)
}

func TestDecodeIgnoresPadding(t *testing.T) {
	// Padding bits set by a buggy peer must not change the decoded fields.
	b := []byte{0x12, 0x34, 0x56, 0x78, 0x80 | 0x3f}
	got, err := wire.DecodeEG(b)
	require.NoError(t, err)
	assert.Equal(t, swapd.PsiPlus, got.Bell)
}
