// Package wire implements the bit-exact record layouts exchanged between
// repeater nodes.
//
// All multi-byte integers are transmitted most-significant-byte first. The
// sub-byte fields of the final byte are packed from the most significant
// bit down, with zero padding to the byte boundary:
//
//	EG record      = link_label(16) pair_seq(16) bell(2) pad(6)
//	circuit record = circuit_id(16) pair_id(16) bell(2) pad(6)
//	outcome record = swap_id(16) outcome_seq(16) success(1) bell(2) pad(5)
//
// These layouts are a contract with the other nodes in the network and must
// not change.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/qnetworks/swapd"
)

// Encoded record sizes in bytes.
const (
	EGRecordLen      = 5
	CircuitRecordLen = 5
	OutcomeRecordLen = 5
)

// ErrShortBuffer is returned when a decode input is too small for the
// record type.
var ErrShortBuffer = errors.New("wire: short buffer")

// AppendEG appends the encoding of r to dst and returns the extended slice.
func AppendEG(dst []byte, r swapd.EGRecord) []byte {
	dst = binary.BigEndian.AppendUint16(dst, uint16(r.LinkLabel))
	dst = binary.BigEndian.AppendUint16(dst, r.PairSeq)
	return append(dst, uint8(r.Bell&0b11)<<6)
}

// DecodeEG decodes an EG record from the front of b. Padding bits are
// ignored.
func DecodeEG(b []byte) (swapd.EGRecord, error) {
	if len(b) < EGRecordLen {
		return swapd.EGRecord{}, fmt.Errorf("eg record: need %d bytes, have %d: %w", EGRecordLen, len(b), ErrShortBuffer)
	}
	return swapd.EGRecord{
		LinkLabel: swapd.LinkLabel(binary.BigEndian.Uint16(b[0:2])),
		PairSeq:   binary.BigEndian.Uint16(b[2:4]),
		Bell:      swapd.BellIndex(b[4] >> 6),
	}, nil
}

// AppendCircuit appends the encoding of r to dst and returns the extended
// slice.
func AppendCircuit(dst []byte, r swapd.CircuitRecord) []byte {
	dst = binary.BigEndian.AppendUint16(dst, uint16(r.CircuitID))
	dst = binary.BigEndian.AppendUint16(dst, r.PairID)
	return append(dst, uint8(r.Bell&0b11)<<6)
}

// DecodeCircuit decodes a circuit record from the front of b.
func DecodeCircuit(b []byte) (swapd.CircuitRecord, error) {
	if len(b) < CircuitRecordLen {
		return swapd.CircuitRecord{}, fmt.Errorf("circuit record: need %d bytes, have %d: %w", CircuitRecordLen, len(b), ErrShortBuffer)
	}
	return swapd.CircuitRecord{
		CircuitID: swapd.CircuitID(binary.BigEndian.Uint16(b[0:2])),
		PairID:    binary.BigEndian.Uint16(b[2:4]),
		Bell:      swapd.BellIndex(b[4] >> 6),
	}, nil
}

// AppendOutcome appends the encoding of r to dst and returns the extended
// slice.
func AppendOutcome(dst []byte, r swapd.OutcomeRecord) []byte {
	dst = binary.BigEndian.AppendUint16(dst, uint16(r.SwapID))
	dst = binary.BigEndian.AppendUint16(dst, r.OutcomeSeq)
	var tail uint8
	if r.Success {
		tail = 1 << 7
	}
	tail |= uint8(r.Bell&0b11) << 5
	return append(dst, tail)
}

// DecodeOutcome decodes an outcome-telemetry record from the front of b.
func DecodeOutcome(b []byte) (swapd.OutcomeRecord, error) {
	if len(b) < OutcomeRecordLen {
		return swapd.OutcomeRecord{}, fmt.Errorf("outcome record: need %d bytes, have %d: %w", OutcomeRecordLen, len(b), ErrShortBuffer)
	}
	return swapd.OutcomeRecord{
		SwapID:     swapd.SwapID(binary.BigEndian.Uint16(b[0:2])),
		OutcomeSeq: binary.BigEndian.Uint16(b[2:4]),
		Success:    b[4]&(1<<7) != 0,
		Bell:       swapd.BellIndex(b[4] >> 5 & 0b11),
	}, nil
}
