// Package state owns the node's per-port and per-circuit mutable state as
// an explicit object passed into the matcher and rendezvous engine.
//
// Each port carries three independent single-entry slots: the ingress-side
// EG pending record, and the egress-side pending circuit and outcome
// records used by the rendezvous join. A fourth slot stages the one-shot
// outbound EG descriptor consumed when a join completes. Writing an
// occupied slot overwrites it (last-write-wins); the protocol guarantees at
// most one classical packet in flight per port, so an overwrite only ever
// replaces a record the protocol has already orphaned.
//
// "Waiting" is persisted state, not a blocked goroutine: every operation
// here is synchronous and non-blocking.
package state

import (
	"sync"
	"time"

	"github.com/qnetworks/swapd"
)

type slot[T any] struct {
	val      T
	present  bool
	storedAt time.Time
}

func (s *slot[T]) store(v T, now time.Time) {
	s.val = v
	s.present = true
	s.storedAt = now
}

func (s *slot[T]) clear() {
	var zero T
	s.val = zero
	s.present = false
	s.storedAt = time.Time{}
}

func (s *slot[T]) expired(now time.Time, ttl time.Duration) bool {
	return s.present && now.Sub(s.storedAt) > ttl
}

type portState struct {
	egPending  slot[swapd.EGRecord]
	descriptor slot[swapd.EGRecord]
	circuit    slot[swapd.CircuitRecord]
	outcome    slot[swapd.OutcomeRecord]
}

// Table holds all per-port slots and the per-circuit outcome sequence
// counters. Individual operations are safe for concurrent use; callers
// needing multi-operation atomicity on a key serialise events per key, as
// the node does.
type Table struct {
	mu    sync.Mutex
	ports map[swapd.Port]*portState

	seqMu sync.Mutex
	seq   map[swapd.CircuitID]uint16

	now func() time.Time
}

// NewTable creates an empty state table.
func NewTable() *Table {
	return &Table{
		ports: make(map[swapd.Port]*portState),
		seq:   make(map[swapd.CircuitID]uint16),
		now:   time.Now,
	}
}

// port returns the state for p, creating it on first use. Caller holds mu.
func (t *Table) port(p swapd.Port) *portState {
	ps, ok := t.ports[p]
	if !ok {
		ps = &portState{}
		t.ports[p] = ps
	}
	return ps
}

// StoreEG unconditionally stores the EG pending record for a port.
func (t *Table) StoreEG(p swapd.Port, rec swapd.EGRecord) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.port(p).egPending.store(rec, t.now())
}

// PeekEG returns the EG pending record for a port without clearing it.
func (t *Table) PeekEG(p swapd.Port) (swapd.EGRecord, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	ps, ok := t.ports[p]
	if !ok {
		return swapd.EGRecord{}, false
	}
	return ps.egPending.val, ps.egPending.present
}

// ClearEG clears the EG pending slot for a port.
func (t *Table) ClearEG(p swapd.Port) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if ps, ok := t.ports[p]; ok {
		ps.egPending.clear()
	}
}

// StageDescriptor stages the outbound EG descriptor for an egress port.
func (t *Table) StageDescriptor(p swapd.Port, rec swapd.EGRecord) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.port(p).descriptor.store(rec, t.now())
}

// TakeDescriptor consumes the staged descriptor for an egress port. The
// slot is cleared on read; a descriptor feeds exactly one join.
func (t *Table) TakeDescriptor(p swapd.Port) (swapd.EGRecord, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	ps, ok := t.ports[p]
	if !ok || !ps.descriptor.present {
		return swapd.EGRecord{}, false
	}
	rec := ps.descriptor.val
	ps.descriptor.clear()
	return rec, true
}

// StoreCircuit stores the pending circuit record at a join key.
func (t *Table) StoreCircuit(p swapd.Port, rec swapd.CircuitRecord) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.port(p).circuit.store(rec, t.now())
}

// PeekCircuit returns the pending circuit record at a join key.
func (t *Table) PeekCircuit(p swapd.Port) (swapd.CircuitRecord, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	ps, ok := t.ports[p]
	if !ok {
		return swapd.CircuitRecord{}, false
	}
	return ps.circuit.val, ps.circuit.present
}

// StoreOutcome stores the pending outcome record at a join key.
func (t *Table) StoreOutcome(p swapd.Port, rec swapd.OutcomeRecord) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.port(p).outcome.store(rec, t.now())
}

// PeekOutcome returns the pending outcome record at a join key.
func (t *Table) PeekOutcome(p swapd.Port) (swapd.OutcomeRecord, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	ps, ok := t.ports[p]
	if !ok {
		return swapd.OutcomeRecord{}, false
	}
	return ps.outcome.val, ps.outcome.present
}

// ClearJoin atomically clears both rendezvous slots at a join key. A
// completed join must clear both sides before any further event for the key
// is processed.
func (t *Table) ClearJoin(p swapd.Port) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if ps, ok := t.ports[p]; ok {
		ps.circuit.clear()
		ps.outcome.clear()
	}
}

// NextOutcomeSeq returns the current sequence value for a circuit and
// increments the counter, as one indivisible step. The counter wraps modulo
// 2^16. Two concurrently swapped ports may reference the same circuit's
// counter, so this is the only cross-key shared state.
func (t *Table) NextOutcomeSeq(c swapd.CircuitID) uint16 {
	t.seqMu.Lock()
	defer t.seqMu.Unlock()
	v := t.seq[c]
	t.seq[c] = v + 1
	return v
}

// EvictExpired clears every slot stored more than ttl before now and
// returns the number of evicted records. A ttl of zero or less disables
// eviction. The upstream design had no expiry at all; eviction is an
// operator policy bound on the slot leak that unmatched partners would
// otherwise cause.
func (t *Table) EvictExpired(now time.Time, ttl time.Duration) int {
	if ttl <= 0 {
		return 0
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	evicted := 0
	for _, ps := range t.ports {
		if ps.egPending.expired(now, ttl) {
			ps.egPending.clear()
			evicted++
		}
		if ps.descriptor.expired(now, ttl) {
			ps.descriptor.clear()
			evicted++
		}
		if ps.circuit.expired(now, ttl) {
			ps.circuit.clear()
			evicted++
		}
		if ps.outcome.expired(now, ttl) {
			ps.outcome.clear()
			evicted++
		}
	}
	return evicted
}
