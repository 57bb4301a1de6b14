// Copyright 2025 Certen Protocol
//
// Transport is the narrow capability set consensus needs from the network
// layer: broadcast, send, and the inbound message flow handled via the
// engine's Handle* methods. Per spec.md 9's design note, concrete backends
// (in-memory for tests, a production transport for deployment) plug in at
// boot; the engine itself never depends on a specific wire protocol.

package consensus

// Message is the union of everything one validator sends another.
type Message struct {
	Proposal    *Proposal
	Vote        *Vote
	ViewChange  *ViewChangeMsg
	NewView     *NewViewMsg
	QC          *QCMsg
}

// Transport delivers messages between validators.
type Transport interface {
	Broadcast(from string, msg Message) error
	Send(from, to string, msg Message) error
}
