// Package dispatch routes arbiter outcome events to the ports that must
// observe them.
//
// A swap outcome is inherently one-to-many: both ports named in the
// originating swap instruction run their own egress rendezvous on the same
// telemetry record, and the controller port receives a copy as telemetry.
// The fan-out is an explicit primitive at this boundary rather than being
// buried in the matching logic.
package dispatch

import (
	"sync"

	"github.com/qnetworks/swapd"
)

// Group names the two ports involved in a swap.
type Group struct {
	Qubit0 swapd.Port
	Qubit1 swapd.Port
}

// Registry tracks the swap groups the node has issued instructions for.
// Outcome events whose swap id is not registered are ignored by the node:
// only events matching an id the arbiter was actually given are processed.
type Registry struct {
	mu     sync.Mutex
	groups map[swapd.SwapID]Group
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{groups: make(map[swapd.SwapID]Group)}
}

// Register records the group for a swap id. Re-registering an id
// overwrites the previous group; repeated swaps on the same circuit reuse
// its id.
func (r *Registry) Register(id swapd.SwapID, g Group) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.groups[id] = g
}

// Lookup returns the group registered for a swap id.
func (r *Registry) Lookup(id swapd.SwapID) (Group, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.groups[id]
	return g, ok
}

// Remove deletes the group for a swap id, for circuit teardown.
func (r *Registry) Remove(id swapd.SwapID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.groups, id)
}

// FanOut returns the delivery ports for an outcome on a group: both swap
// ports, then the controller port for telemetry.
func FanOut(g Group) []swapd.Port {
	return []swapd.Port{g.Qubit0, g.Qubit1, swapd.CPUPort}
}
