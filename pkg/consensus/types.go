// Copyright 2025 Certen Protocol
//
// HotStuff-2 two-phase consensus engine (C4). Message and block shapes
// follow the teacher's ValidatorInfo-style plain struct conventions (see the
// original pkg/consensus/types.go business types), generalized from
// Accumulate-specific proof bundles to the block/vote/QC vocabulary of
// spec.md 4.4.

package consensus

import (
	"encoding/binary"

	"lukechampine.com/blake3"
)

// Phase names one of the two HotStuff-2 voting rounds for a block.
type Phase string

const (
	PhasePrepare Phase = "prepare"
	PhaseCommit  Phase = "commit"
)

// State is one validator's local position in the per-view state machine.
type State string

const (
	StateWaitForProposal State = "wait_for_proposal"
	StatePrepare         State = "prepare"
	StateCommit          State = "commit"
	StateViewChange      State = "view_change"
)

// Block is a proposed batch of opaque, already-ordered request payloads.
// Consensus does not interpret Requests; it only orders and commits them.
type Block struct {
	View       uint64
	Height     uint64
	ParentHash [32]byte
	ProposerID string
	Requests   [][]byte
}

// Hash returns the block's content hash, used as the identifier votes and
// QCs bind to.
func (b *Block) Hash() [32]byte {
	h := blake3.New(32, nil)
	var scratch [8]byte

	binary.BigEndian.PutUint64(scratch[:], b.View)
	h.Write(scratch[:])
	binary.BigEndian.PutUint64(scratch[:], b.Height)
	h.Write(scratch[:])
	h.Write(b.ParentHash[:])
	h.Write([]byte(b.ProposerID))
	for _, r := range b.Requests {
		var l [4]byte
		binary.BigEndian.PutUint32(l[:], uint32(len(r)))
		h.Write(l[:])
		h.Write(r)
	}

	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// QC is a quorum certificate: proof that >= threshold validators voted for
// the same (phase, view, block). Per the spec's Open Question decision,
// consensus votes are independently signed per voter rather than threshold-
// aggregated — a QC is a bundle of individual signatures, not one signature.
type QC struct {
	Phase     Phase
	View      uint64
	BlockHash [32]byte
	Sigs      map[string][]byte // voter ID -> that voter's signature
}

// NumSigners reports how many distinct voters back this QC.
func (qc *QC) NumSigners() int {
	if qc == nil {
		return 0
	}
	return len(qc.Sigs)
}

// Vote is one validator's signed endorsement of a block at a phase and view.
type Vote struct {
	Phase     Phase
	View      uint64
	BlockHash [32]byte
	Voter     string
	Sig       []byte
}

func (v *Vote) signingPayload() []byte {
	h := blake3.New(32, nil)
	h.Write([]byte(v.Phase))
	var scratch [8]byte
	binary.BigEndian.PutUint64(scratch[:], v.View)
	h.Write(scratch[:])
	h.Write(v.BlockHash[:])
	return h.Sum(nil)
}

// Proposal is the leader's broadcast message for a view.
type Proposal struct {
	Block     *Block
	JustifyQC *QC // the leader's prepare_qc at proposal time, nil before any QC exists
}

// ViewChangeMsg is sent to the prospective new leader when a validator's
// view timer expires without a commit.
type ViewChangeMsg struct {
	NewView uint64
	Sender  string
	HighQC  *QC
}

// NewViewMsg is the prospective leader's broadcast once it collects enough
// ViewChangeMsg for the same new view.
type NewViewMsg struct {
	View        uint64
	Leader      string
	HighQC      *QC
	ViewChanges []*ViewChangeMsg
}

// QCMsg relays a freshly formed QC from whichever validator assembled it
// (normally the leader) to the rest of the cluster, since votes are sent to
// the leader rather than broadcast.
type QCMsg struct {
	QC *QC
}
