// Copyright 2025 Certen Protocol
//
// Request fingerprints and the canonical hash binding a verification's
// content, per spec.md 3 and 4.5.

package verification

import (
	"encoding/binary"
	"time"

	"lukechampine.com/blake3"
)

// RequestFingerprint is the immutable claim a verification is built from.
// Once submitted it is never mutated; only the surrounding pendingVerification
// state machine advances.
type RequestFingerprint struct {
	RequestID     string
	ActorID       string
	ClientID      string
	ActionType    string
	InputHash     [32]byte
	OutputHash    [32]byte
	ComputeAmount string // decimal string, preserved verbatim
	SubmittedAt   time.Time
}

// CanonicalHash computes the stable, implementation-independent digest that
// oracle signature shares are bound to and that anchors into the Merkle
// accumulator. Matches spec.md 4.5:
//
//	BLAKE3(record_id || actor_id || client_id || action_type || input_hash ||
//	       output_hash || utf8(compute_amount) || le_bytes(submitted_at))
func (f RequestFingerprint) CanonicalHash() [32]byte {
	h := blake3.New(32, nil)
	h.Write([]byte(f.RequestID))
	h.Write([]byte(f.ActorID))
	h.Write([]byte(f.ClientID))
	h.Write([]byte(f.ActionType))
	h.Write(f.InputHash[:])
	h.Write(f.OutputHash[:])
	h.Write([]byte(f.ComputeAmount))

	var ts [8]byte
	binary.LittleEndian.PutUint64(ts[:], uint64(f.SubmittedAt.UnixNano()))
	h.Write(ts[:])

	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}
