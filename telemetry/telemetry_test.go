package telemetry_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/qnetworks/swapd/telemetry"
)

func TestCounters(t *testing.T) {
	r := telemetry.NewRecorder()

	r.SwapIssued()
	r.SwapIssued()
	r.ReleaseIssued()
	r.JoinCompleted()
	r.PacketDropped()
	r.Evicted(3)
	r.Evicted(0)
	r.StaleMatch()
	r.UnknownSwap()

	s := r.Snapshot()
	assert.Equal(t, uint64(2), s.SwapsIssued)
	assert.Equal(t, uint64(1), s.ReleasesIssued)
	assert.Equal(t, uint64(1), s.JoinsCompleted)
	assert.Equal(t, uint64(1), s.PacketsDropped)
	assert.Equal(t, uint64(3), s.Evictions)
	assert.Equal(t, uint64(1), s.StaleMatches)
	assert.Equal(t, uint64(1), s.UnknownSwaps)
}

func TestSuccessRate(t *testing.T) {
	r := telemetry.NewRecorderWithWindow(8)

	s := r.Snapshot()
	assert.Zero(t, s.Outcomes)
	assert.Zero(t, s.SuccessRate)

	r.Outcome(true)
	r.Outcome(true)
	r.Outcome(false)
	r.Outcome(true)

	s = r.Snapshot()
	assert.Equal(t, 4, s.Outcomes)
	assert.InDelta(t, 0.75, s.SuccessRate, 1e-9)
	assert.Greater(t, s.SuccessStdDev, 0.0)
}

func TestWindowIsBounded(t *testing.T) {
	r := telemetry.NewRecorderWithWindow(4)

	// Four failures, then four successes: the failures age out.
	for i := 0; i < 4; i++ {
		r.Outcome(false)
	}
	for i := 0; i < 4; i++ {
		r.Outcome(true)
	}

	s := r.Snapshot()
	assert.Equal(t, 4, s.Outcomes)
	assert.InDelta(t, 1.0, s.SuccessRate, 1e-9)
}
