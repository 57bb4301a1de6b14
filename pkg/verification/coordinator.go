// Copyright 2025 Certen Protocol
//
// Coordinator is the verification coordinator (C5): one state machine per
// request, collecting oracle votes and FROST signature shares until quorum,
// rejection, or timeout, then anchoring the outcome. Grounded on the
// teacher's UnifiedVerifier (pkg/verification/unified_verifier.go) for the
// *Config + mutex-guarded struct shape, generalized from its four-level
// Accumulate-specific proof bundle to the quorum/aggregate/anchor pipeline
// of spec.md 4.5.

package verification

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/certen/verified-ledger/pkg/consensus"
	"github.com/certen/verified-ledger/pkg/eventlog"
	"github.com/certen/verified-ledger/pkg/ledgererr"
	"github.com/certen/verified-ledger/pkg/logging"
	"github.com/certen/verified-ledger/pkg/merkleacc"
	"github.com/certen/verified-ledger/pkg/oracle"
	"github.com/certen/verified-ledger/pkg/threshold"
)

// SubmitFunc hands an ordered request payload to the consensus engine.
// Only the request ID is submitted for ordering; the fingerprint itself
// stays owned by the coordinator, per spec.md 3's Ownership rule.
type SubmitFunc func(requestID []byte)

// Coordinator is the verification coordinator (C5).
type Coordinator struct {
	cfg *Config

	submit  SubmitFunc
	oracles *oracle.Manager
	tree    *merkleacc.Accumulator
	events  *eventlog.Store
	pub     *threshold.PublicKeyPackage
	clock   Clock

	mu      sync.RWMutex
	pending map[string]*pendingVerification
}

// pendingVerification is a single request's mutable state machine. Owned
// exclusively by the coordinator; fields are only ever touched with mu held.
type pendingVerification struct {
	mu sync.Mutex

	fingerprint RequestFingerprint
	state       State
	generation  uint64 // invalidates a stale timeout timer once terminal

	record *OutcomeRecord
	reason string

	waiters []chan Status // synchronous Submit callers awaiting a terminal state
}

// New creates a verification coordinator. submit forwards an ordered
// request to consensus; oracles tracks joined oracles and sessions; tree is
// the Merkle accumulator outcome hashes anchor into; events is the append-
// only log; pub is the FROST group public key package used to verify and
// aggregate signature shares.
func New(cfg *Config, submit SubmitFunc, oracles *oracle.Manager, tree *merkleacc.Accumulator, events *eventlog.Store, pub *threshold.PublicKeyPackage, clock Clock) *Coordinator {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if clock == nil {
		clock = RealClock{}
	}
	return &Coordinator{
		cfg:     cfg,
		submit:  submit,
		oracles: oracles,
		tree:    tree,
		events:  events,
		pub:     pub,
		clock:   clock,
		pending: make(map[string]*pendingVerification),
	}
}

// Submit registers a new verification request. When synchronous is true it
// blocks (up to timeout) for a terminal Status; otherwise it returns a
// Pending status immediately and the caller polls Status or subscribes to
// the event log.
func (c *Coordinator) Submit(fp RequestFingerprint, synchronous bool, timeout time.Duration) (Status, error) {
	if fp.RequestID == "" {
		fp.RequestID = uuid.New().String()
	}
	if fp.SubmittedAt.IsZero() {
		fp.SubmittedAt = c.clock.Now()
	}
	if fp.ActorID == "" || fp.ActionType == "" {
		return Status{}, ledgererr.New(ledgererr.KindInput, "invalid_fingerprint", "actor_id and action_type are required")
	}

	pv := &pendingVerification{fingerprint: fp, state: StateSubmitted}

	c.mu.Lock()
	if _, exists := c.pending[fp.RequestID]; exists {
		c.mu.Unlock()
		return Status{}, ledgererr.New(ledgererr.KindInput, "duplicate_request_id", "request_id already submitted")
	}
	c.pending[fp.RequestID] = pv
	c.mu.Unlock()

	submittedEvt := eventlog.ActionSubmittedPayload{
		RequestID:     fp.RequestID,
		ActorID:       fp.ActorID,
		ClientID:      fp.ClientID,
		ActionType:    fp.ActionType,
		InputHash:     fp.InputHash,
		OutputHash:    fp.OutputHash,
		ComputeAmount: fp.ComputeAmount,
		SubmittedAt:   fp.SubmittedAt,
	}
	if _, err := c.events.Append(eventlog.GlobalStream, eventlog.TypeActionSubmitted, submittedEvt.Encode(), nil); err != nil {
		logging.Component("verification").Error("append ActionSubmitted failed", "err", err, "request_id", fp.RequestID)
	}
	if _, err := c.events.Append(eventlog.ActorStream(fp.ActorID), eventlog.TypeActionSubmitted, submittedEvt.Encode(), nil); err != nil {
		logging.Component("verification").Error("append actor ActionSubmitted failed", "err", err, "request_id", fp.RequestID)
	}

	pv.mu.Lock()
	pv.state = StateAwaitingOrdering
	pv.mu.Unlock()

	c.submit([]byte(fp.RequestID))
	c.armTimeout(fp.RequestID, pv)

	if !synchronous {
		return c.statusLocked(pv), nil
	}
	return c.awaitTerminal(pv, timeout), nil
}

func (c *Coordinator) armTimeout(requestID string, pv *pendingVerification) {
	pv.mu.Lock()
	gen := pv.generation
	pv.mu.Unlock()

	ch := c.clock.After(c.cfg.VerificationTimeout)
	go func() {
		<-ch
		c.onTimeout(requestID, pv, gen)
	}()
}

func (c *Coordinator) onTimeout(requestID string, pv *pendingVerification, gen uint64) {
	pv.mu.Lock()
	if pv.generation != gen || pv.state.terminal() {
		pv.mu.Unlock()
		return
	}
	pv.state = StateTimedOut
	pv.reason = "verification_timeout"
	waiters := pv.waiters
	pv.waiters = nil
	pv.mu.Unlock()

	c.oracles.DropOnTerminal(requestID)
	c.emitTerminal(pv, false, false)
	c.notifyWaiters(pv, waiters)
}

// OnBlockCommitted is wired as the consensus engine's onCommit callback: for
// every request ID ordered into this block, open its oracle session and
// advance it to Ordered/Collecting.
func (c *Coordinator) OnBlockCommitted(block *consensus.Block, _ *consensus.QC) {
	for _, reqBytes := range block.Requests {
		requestID := string(reqBytes)

		c.mu.RLock()
		pv, ok := c.pending[requestID]
		c.mu.RUnlock()
		if !ok {
			continue
		}

		c.oracles.OpenSession(requestID, c.clock.Now())

		pv.mu.Lock()
		if !pv.state.terminal() {
			pv.state = StateCollecting
		}
		pv.mu.Unlock()
	}
}

// RecordOracleVote registers oracleID's vote (and, on approval, its FROST
// signature share) for requestID, then re-evaluates the quorum/rejection
// tests. Idempotent per oracle per spec.md 4.6.
func (c *Coordinator) RecordOracleVote(requestID, oracleID string, approve bool, reason string, commitment *threshold.SigningCommitment, share *threshold.SignatureShare) error {
	c.mu.RLock()
	pv, ok := c.pending[requestID]
	c.mu.RUnlock()
	if !ok {
		return ledgererr.New(ledgererr.KindInput, "unknown_request", "no pending verification for request_id")
	}

	session, ok := c.oracles.Session(requestID)
	if !ok {
		return ledgererr.New(ledgererr.KindInput, "session_not_open", "request has not yet been ordered")
	}

	now := c.clock.Now()
	if commitment != nil {
		session.RecordCommitment(oracleID, commitment)
	}
	session.RecordVoteAndShare(oracle.Vote{
		OracleID:   oracleID,
		Approve:    approve,
		Reason:     reason,
		Commitment: commitment,
		Share:      share,
		RecordedAt: now,
	})

	voteEvt := eventlog.OracleVoteRecordedPayload{RequestID: requestID, OracleID: oracleID, Approve: approve, Reason: reason, At: now}
	if _, err := c.events.Append(eventlog.GlobalStream, eventlog.TypeOracleVoteRecorded, voteEvt.Encode(), nil); err != nil {
		logging.Component("verification").Error("append OracleVoteRecorded failed", "err", err, "request_id", requestID)
	}

	c.evaluateQuorum(pv, session)
	return nil
}

func (c *Coordinator) evaluateQuorum(pv *pendingVerification, session *oracle.Session) {
	pv.mu.Lock()
	if pv.state.terminal() || pv.state != StateCollecting {
		pv.mu.Unlock()
		return
	}
	pv.mu.Unlock()

	approvals, rejections := session.Tally()
	t := c.cfg.Threshold
	n := c.cfg.Participants

	switch {
	case approvals >= t:
		c.aggregateAndFinalize(pv, session)
	case rejections > n-t:
		c.rejectByThreshold(pv)
	}
}

func (c *Coordinator) rejectByThreshold(pv *pendingVerification) {
	pv.mu.Lock()
	if pv.state.terminal() {
		pv.mu.Unlock()
		return
	}
	pv.state = StateRejected
	pv.reason = "rejected_by_threshold"
	pv.generation++
	waiters := pv.waiters
	pv.waiters = nil
	pv.mu.Unlock()

	c.oracles.DropOnTerminal(pv.fingerprint.RequestID)
	c.emitTerminal(pv, false, false)
	c.notifyWaiters(pv, waiters)
}

func (c *Coordinator) aggregateAndFinalize(pv *pendingVerification, session *oracle.Session) {
	fp := pv.fingerprint
	canonical := fp.CanonicalHash()

	commitments, shares, signerIDs := session.SnapshotForAggregation()
	sort.Strings(signerIDs)

	sig, err := threshold.Aggregate(c.pub, canonical[:], commitments, shares, c.cfg.Threshold)
	if err != nil {
		logging.Component("verification").Error("signature aggregation failed", "err", err, "request_id", fp.RequestID)
		c.rejectAggregationFailure(pv)
		return
	}

	index := c.tree.Append(merkleacc.Hash(canonical))
	root, _ := c.tree.Root()
	proof, _ := c.tree.Prove(index)

	now := c.clock.Now()
	latencyMs := uint64(now.Sub(fp.SubmittedAt).Milliseconds())

	record := &OutcomeRecord{
		RecordID:      uuid.New().String(),
		Fingerprint:   fp,
		Passed:        true,
		QuorumReached: true,
		Voters:        signerIDs,
		QuorumThresh:  quorumThresholdString(c.cfg.Threshold, c.cfg.Participants),
		ThresholdSig:  sig,
		MerkleRoot:    root,
		MerkleIndex:   index,
		MerkleProof:   proof,
		SubmittedAt:   fp.SubmittedAt,
		VerifiedAt:    now,
		LatencyMs:     latencyMs,
	}

	pv.mu.Lock()
	if pv.state.terminal() {
		pv.mu.Unlock()
		return
	}
	pv.state = StateQuorum
	pv.record = record
	pv.generation++
	waiters := pv.waiters
	pv.waiters = nil
	pv.mu.Unlock()

	c.oracles.DropOnTerminal(fp.RequestID)

	completedEvt := eventlog.VerificationCompletedPayload{
		RequestID:     fp.RequestID,
		Passed:        true,
		QuorumReached: true,
		LatencyMs:     latencyMs,
		AggregatedSig: sig,
	}
	if _, err := c.events.Append(eventlog.GlobalStream, eventlog.TypeVerificationComplete, completedEvt.Encode(), nil); err != nil {
		logging.Component("verification").Error("append VerificationCompleted failed", "err", err, "request_id", fp.RequestID)
	}
	finalizedEvt := record.finalizedPayload()
	if pos, err := c.events.Append(eventlog.ActorStream(fp.ActorID), eventlog.TypeOutcomeFinalized, finalizedEvt.Encode(), nil); err != nil {
		logging.Component("verification").Error("append OutcomeFinalized failed", "err", err, "request_id", fp.RequestID)
	} else {
		record.StreamPosition = pos
	}

	c.notifyWaiters(pv, waiters)
}

func (c *Coordinator) rejectAggregationFailure(pv *pendingVerification) {
	pv.mu.Lock()
	if pv.state.terminal() {
		pv.mu.Unlock()
		return
	}
	pv.state = StateRejected
	pv.reason = ledgererr.ErrAggregationFailed.Code
	pv.generation++
	waiters := pv.waiters
	pv.waiters = nil
	pv.mu.Unlock()

	c.oracles.DropOnTerminal(pv.fingerprint.RequestID)
	c.emitTerminal(pv, false, false)
	c.notifyWaiters(pv, waiters)
}

func (c *Coordinator) emitTerminal(pv *pendingVerification, passed, quorumReached bool) {
	fp := pv.fingerprint
	now := c.clock.Now()
	latencyMs := uint64(now.Sub(fp.SubmittedAt).Milliseconds())
	evt := eventlog.VerificationCompletedPayload{
		RequestID:     fp.RequestID,
		Passed:        passed,
		QuorumReached: quorumReached,
		LatencyMs:     latencyMs,
	}
	if _, err := c.events.Append(eventlog.GlobalStream, eventlog.TypeVerificationComplete, evt.Encode(), nil); err != nil {
		logging.Component("verification").Error("append terminal VerificationCompleted failed", "err", err, "request_id", fp.RequestID)
	}
}

func (c *Coordinator) notifyWaiters(pv *pendingVerification, waiters []chan Status) {
	status := c.statusLocked(pv)
	for _, w := range waiters {
		w <- status
		close(w)
	}
}

func (c *Coordinator) awaitTerminal(pv *pendingVerification, timeout time.Duration) Status {
	pv.mu.Lock()
	if pv.state.terminal() {
		status := c.statusLocked(pv)
		pv.mu.Unlock()
		return status
	}
	ch := make(chan Status, 1)
	pv.waiters = append(pv.waiters, ch)
	pv.mu.Unlock()

	var wait time.Duration
	if timeout > 0 {
		wait = timeout
	} else {
		wait = c.cfg.VerificationTimeout + 500*time.Millisecond
	}

	select {
	case status := <-ch:
		return status
	case <-c.clock.After(wait):
		return c.statusLocked(pv)
	}
}

// Status returns the current external-facing snapshot for requestID.
func (c *Coordinator) Status(requestID string) (Status, error) {
	c.mu.RLock()
	pv, ok := c.pending[requestID]
	c.mu.RUnlock()
	if !ok {
		return Status{}, ledgererr.New(ledgererr.KindInput, "unknown_request", "no verification found for request_id")
	}
	return c.statusLocked(pv), nil
}

func (c *Coordinator) statusLocked(pv *pendingVerification) Status {
	pv.mu.Lock()
	defer pv.mu.Unlock()

	var approvals int
	if session, ok := c.oracles.Session(pv.fingerprint.RequestID); ok {
		approvals, _ = session.Tally()
	}
	elapsed := c.clock.Now().Sub(pv.fingerprint.SubmittedAt)

	return Status{
		State:         pv.state,
		VotesReceived: approvals,
		VotesRequired: c.cfg.Threshold,
		ElapsedMs:     uint64(elapsed.Milliseconds()),
		Record:        pv.record,
		Reason:        pv.reason,
	}
}

// Get returns the finalized outcome record for requestID, if quorum was
// reached.
func (c *Coordinator) Get(requestID string) (*OutcomeRecord, error) {
	status, err := c.Status(requestID)
	if err != nil {
		return nil, err
	}
	if status.State != StateQuorum || status.Record == nil {
		return nil, ledgererr.ErrRecordNotFound
	}
	return status.Record, nil
}

// VerifyProof is a thin wrapper over the Merkle accumulator's stateless
// verify, exposed for the external proofs API (spec.md 6).
func VerifyProof(leaf merkleacc.Hash, proof *merkleacc.Proof, index uint64, root merkleacc.Hash) bool {
	return merkleacc.Verify(leaf, proof, index, root)
}
