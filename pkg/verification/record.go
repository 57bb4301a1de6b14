// Copyright 2025 Certen Protocol
//
// OutcomeRecord is the immutable artifact a verification produces on
// quorum, per spec.md 3's Outcome record entity.

package verification

import (
	"fmt"
	"time"

	"github.com/certen/verified-ledger/pkg/eventlog"
	"github.com/certen/verified-ledger/pkg/merkleacc"
)

// OutcomeRecord is assembled once, on quorum, and never mutated again.
type OutcomeRecord struct {
	RecordID    string
	Fingerprint RequestFingerprint

	Passed        bool
	QuorumReached bool
	Voters        []string // signer set used in aggregation, sorted
	QuorumThresh  string   // "T-of-N"
	ThresholdSig  []byte   // 64 bytes, empty if not reached

	MerkleRoot  merkleacc.Hash
	MerkleIndex uint64
	MerkleProof *merkleacc.Proof

	SubmittedAt time.Time
	VerifiedAt  time.Time
	LatencyMs   uint64

	StreamPosition uint64
}

// quorumThresholdString renders "T-of-N".
func quorumThresholdString(t, n int) string {
	return fmt.Sprintf("%d-of-%d", t, n)
}

func (r OutcomeRecord) finalizedPayload() eventlog.OutcomeFinalizedPayload {
	return eventlog.OutcomeFinalizedPayload{
		RequestID: r.Fingerprint.RequestID,
		Record:    r.encode(),
	}
}

// encode is a minimal, internal-only serialization used solely to round-trip
// through the event log's opaque OutcomeFinalized payload; it is never
// parsed by any other component.
func (r OutcomeRecord) encode() []byte {
	w := &recordWriter{}
	w.str(r.RecordID)
	w.str(r.Fingerprint.RequestID)
	w.boolean(r.Passed)
	w.boolean(r.QuorumReached)
	w.str(r.QuorumThresh)
	w.bytes(r.ThresholdSig)
	w.bytes(r.MerkleRoot[:])
	w.u64(r.MerkleIndex)
	w.u64(r.LatencyMs)
	w.i64(r.SubmittedAt.UnixNano())
	w.i64(r.VerifiedAt.UnixNano())
	return w.buf
}
