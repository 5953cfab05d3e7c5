package dispatch_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qnetworks/swapd"
	"github.com/qnetworks/swapd/dispatch"
)

func TestRegistry(t *testing.T) {
	r := dispatch.NewRegistry()

	_, ok := r.Lookup(42)
	assert.False(t, ok)

	r.Register(42, dispatch.Group{Qubit0: 1, Qubit1: 2})
	g, ok := r.Lookup(42)
	require.True(t, ok)
	assert.Equal(t, dispatch.Group{Qubit0: 1, Qubit1: 2}, g)

	// Re-registration overwrites.
	r.Register(42, dispatch.Group{Qubit0: 3, Qubit1: 4})
	g, _ = r.Lookup(42)
	assert.Equal(t, dispatch.Group{Qubit0: 3, Qubit1: 4}, g)

	r.Remove(42)
	_, ok = r.Lookup(42)
	assert.False(t, ok)
}

func TestFanOutIncludesControllerLast(t *testing.T) {
	ports := dispatch.FanOut(dispatch.Group{Qubit0: 1, Qubit1: 2})
	assert.Equal(t, []swapd.Port{1, 2, swapd.CPUPort}, ports)
}
