// Package telemetry aggregates data-plane counters and swap outcome
// statistics for the controller.
//
// Counters cover the observable per-event outcomes: instructions issued,
// joins completed, packets dropped and pending-state evictions. Outcome
// success is additionally kept in a bounded sliding window so the
// controller can watch the recent swap success rate rather than a
// lifetime average.
package telemetry

import (
	"sync"

	"gonum.org/v1/gonum/stat"
)

// DefaultWindowSize is the number of recent outcomes kept for rate
// statistics.
const DefaultWindowSize = 256

// Recorder accumulates counters and the outcome window. All methods are
// safe for concurrent use.
type Recorder struct {
	mu sync.Mutex

	swapsIssued    uint64
	releasesIssued uint64
	joinsCompleted uint64
	packetsDropped uint64
	evictions      uint64
	staleMatches   uint64
	unknownSwaps   uint64

	window     []float64
	windowSize int
	next       int
}

// NewRecorder creates a Recorder with the default window size.
func NewRecorder() *Recorder {
	return NewRecorderWithWindow(DefaultWindowSize)
}

// NewRecorderWithWindow creates a Recorder keeping the last n outcomes.
func NewRecorderWithWindow(n int) *Recorder {
	if n <= 0 {
		n = DefaultWindowSize
	}
	return &Recorder{
		window:     make([]float64, 0, n),
		windowSize: n,
	}
}

// SwapIssued counts a swap instruction sent to the arbiter.
func (r *Recorder) SwapIssued() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.swapsIssued++
}

// ReleaseIssued counts a release instruction sent to the arbiter.
func (r *Recorder) ReleaseIssued() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.releasesIssued++
}

// JoinCompleted counts a completed egress rendezvous.
func (r *Recorder) JoinCompleted() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.joinsCompleted++
}

// PacketDropped counts a dropped packet (unroutable or untransmittable).
func (r *Recorder) PacketDropped() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.packetsDropped++
}

// Evicted counts pending-state records removed by the eviction sweep.
func (r *Recorder) Evicted(n int) {
	if n <= 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evictions += uint64(n)
}

// StaleMatch counts a pending record overwritten by a non-matching event.
func (r *Recorder) StaleMatch() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.staleMatches++
}

// UnknownSwap counts an outcome event whose swap id was never issued.
func (r *Recorder) UnknownSwap() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unknownSwaps++
}

// Outcome records one swap outcome in the sliding window.
func (r *Recorder) Outcome(success bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	v := 0.0
	if success {
		v = 1.0
	}
	if len(r.window) < r.windowSize {
		r.window = append(r.window, v)
		return
	}
	r.window[r.next] = v
	r.next = (r.next + 1) % r.windowSize
}

// Snapshot is a point-in-time copy of the recorder.
type Snapshot struct {
	SwapsIssued    uint64
	ReleasesIssued uint64
	JoinsCompleted uint64
	PacketsDropped uint64
	Evictions      uint64
	StaleMatches   uint64
	UnknownSwaps   uint64

	// Outcomes is the number of samples in the window.
	Outcomes int
	// SuccessRate is the mean success over the window; zero when empty.
	SuccessRate float64
	// SuccessStdDev is the sample standard deviation over the window;
	// zero with fewer than two samples.
	SuccessStdDev float64
}

// Snapshot returns the current counters and window statistics.
func (r *Recorder) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := Snapshot{
		SwapsIssued:    r.swapsIssued,
		ReleasesIssued: r.releasesIssued,
		JoinsCompleted: r.joinsCompleted,
		PacketsDropped: r.packetsDropped,
		Evictions:      r.evictions,
		StaleMatches:   r.staleMatches,
		UnknownSwaps:   r.unknownSwaps,
		Outcomes:       len(r.window),
	}
	if len(r.window) > 0 {
		s.SuccessRate = stat.Mean(r.window, nil)
	}
	if len(r.window) > 1 {
		s.SuccessStdDev = stat.StdDev(r.window, nil)
	}
	return s
}
