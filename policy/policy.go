// Package policy holds the static forwarding policy consulted by the data
// plane: the link-label pairing table, the circuit forwarding table and the
// egress address table.
//
// The tables are provisioned by the external control plane; the data plane
// only reads them. A lookup miss is not an error condition for the node --
// the matcher falls back to releasing the physical resource.
package policy

import (
	"context"
	"errors"
	"io"

	"github.com/qnetworks/swapd"
)

// ErrNotFound is returned when no rule or address is configured for a key.
var ErrNotFound = errors.New("policy: not found")

// Action selects between forwarding and releasing the physical resource.
type Action uint8

const (
	// ActionForward forwards per the rule's target fields.
	ActionForward Action = iota
	// ActionRelease frees the physical resource without forwarding.
	ActionRelease
)

// LinkRule pairs an ingress (port, link label) with its swap partner. For
// ActionForward rules, Circuit names the provisioned circuit the pairing
// belongs to, and Partner/PartnerLabel identify the record the matcher must
// find waiting on the partner port.
type LinkRule struct {
	Action       Action
	Circuit      swapd.CircuitID
	Partner      swapd.Port
	PartnerLabel swapd.LinkLabel
}

// CircuitRule forwards an in-circuit packet towards its egress port.
type CircuitRule struct {
	Action Action
	Egress swapd.Port
}

// Reader is the read side used by the data plane. Implementations return
// ErrNotFound for unconfigured keys.
type Reader interface {
	// LinkRule looks up the pairing rule for an EG record arriving on port
	// with the given link label.
	LinkRule(ctx context.Context, port swapd.Port, label swapd.LinkLabel) (LinkRule, error)

	// CircuitRule looks up the forwarding rule for a circuit record
	// arriving on port.
	CircuitRule(ctx context.Context, port swapd.Port, circuit swapd.CircuitID) (CircuitRule, error)

	// Address resolves the outbound link-layer address for an egress port
	// and circuit.
	Address(ctx context.Context, port swapd.Port, circuit swapd.CircuitID) (swapd.LinkAddr, error)
}

// Writer is the provisioning side. Setting a key that already exists
// overwrites it.
type Writer interface {
	SetLinkRule(ctx context.Context, port swapd.Port, label swapd.LinkLabel, rule LinkRule) error
	SetCircuitRule(ctx context.Context, port swapd.Port, circuit swapd.CircuitID, rule CircuitRule) error
	SetAddress(ctx context.Context, port swapd.Port, circuit swapd.CircuitID, addr swapd.LinkAddr) error
	DeleteLinkRule(ctx context.Context, port swapd.Port, label swapd.LinkLabel) error
	DeleteCircuitRule(ctx context.Context, port swapd.Port, circuit swapd.CircuitID) error
}

// Store combines both sides of the policy tables.
type Store interface {
	io.Closer
	Reader
	Writer
}
