// Copyright 2025 Certen Protocol
//
// Session tracks one request's oracle participation: who was joined when
// the request was ordered, what commitments and votes/shares have arrived
// since, generalized from the attestation strategy's per-validator
// sign/verify/aggregate bookkeeping to "oracle vote + FROST share".

package oracle

import (
	"sync"
	"time"

	"github.com/certen/verified-ledger/pkg/threshold"
)

// Vote is one oracle's decision on a request, with the round-1 commitment
// and signature share it carries when approving.
type Vote struct {
	OracleID   string
	Approve    bool
	Reason     string
	Commitment *threshold.SigningCommitment // nil on rejection
	Share      *threshold.SignatureShare    // nil on rejection
	RecordedAt time.Time
}

// Session holds all oracle-facing state for a single request from the
// moment it is ordered until it reaches a terminal verification state.
type Session struct {
	mu sync.Mutex

	RequestID string
	Joined    []string // snapshot of joined oracles at ordering time
	StartedAt time.Time

	commitments map[string]*threshold.SigningCommitment
	votes       map[string]Vote
}

func newSession(requestID string, joined []string, startedAt time.Time) *Session {
	joinedCopy := make([]string, len(joined))
	copy(joinedCopy, joined)
	return &Session{
		RequestID:   requestID,
		Joined:      joinedCopy,
		StartedAt:   startedAt,
		commitments: make(map[string]*threshold.SigningCommitment),
		votes:       make(map[string]Vote),
	}
}

// RecordCommitment stores oracleID's round-1 commitment. Idempotent: a
// repeated commitment from the same oracle for the same request overwrites
// with no observable difference as long as the payload is identical.
func (s *Session) RecordCommitment(oracleID string, c *threshold.SigningCommitment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commitments[oracleID] = c
}

// RecordVoteAndShare records oracleID's vote. Idempotent per oracle: a
// second submission never overwrites an already-recorded vote, so the
// committed state of two identical submissions equals that of one.
func (s *Session) RecordVoteAndShare(v Vote) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.votes[v.OracleID]; exists {
		return
	}
	s.votes[v.OracleID] = v
}

// Tally reports the current approvals and rejections.
func (s *Session) Tally() (approvals, rejections int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range s.votes {
		if v.Approve {
			approvals++
		} else {
			rejections++
		}
	}
	return approvals, rejections
}

// SnapshotForAggregation returns the commitments and shares for exactly the
// approving oracle set, frozen at the moment of the call. Aggregation must
// only ever observe this snapshot, never the live maps, so that a vote
// arriving after quorum is detected cannot change the signer set mid-flight.
func (s *Session) SnapshotForAggregation() (commitments []*threshold.SigningCommitment, shares []*threshold.SignatureShare, signerIDs []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, v := range s.votes {
		if !v.Approve || v.Share == nil || v.Commitment == nil {
			continue
		}
		commitments = append(commitments, v.Commitment)
		shares = append(shares, v.Share)
		signerIDs = append(signerIDs, id)
	}
	return commitments, shares, signerIDs
}
