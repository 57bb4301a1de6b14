// Copyright 2025 Certen Protocol

package consensus

import (
	"fmt"
	"sync"
	"time"

	"github.com/certen/verified-ledger/pkg/logging"
)

// Signer produces and checks the per-voter signatures attached to votes and
// view-change messages. Consensus votes are independently signed per voter
// (see spec.md 9's Open Question decision); only outcome records use the
// FROST threshold signature.
type Signer interface {
	Sign(payload []byte) ([]byte, error)
	Verify(voter string, payload, sig []byte) bool
}

// Engine is one validator's HotStuff-2 state machine.
type Engine struct {
	id          string
	validators  []string // sorted
	threshold   int
	maxBlockTxs int
	viewTimeout time.Duration

	clock     Clock
	transport Transport
	signer    Signer
	onCommit  func(block *Block, qc *QC)

	mu sync.Mutex

	view  uint64
	state State

	lockedQC  *QC // highest Commit-QC ever observed
	prepareQC *QC // most recent Prepare-QC, used as justify_qc for the next proposal

	currentBlock *Block
	height       uint64
	lastHash     [32]byte
	committed    map[uint64][32]byte // height -> committed block hash, for the safety property check

	pending [][]byte

	// votes[phase][view][blockHash][voter] -> vote, held by whichever
	// validator is meant to tally it (the leader for that phase/view).
	votes map[Phase]map[uint64]map[[32]byte]map[string]*Vote

	viewChanges map[uint64]map[string]*ViewChangeMsg

	timerGeneration uint64 // invalidates stale timers after a view advances
}

// Config bundles the fixed parameters of a running engine.
type Config struct {
	ID          string
	Validators  []string
	Threshold   int
	MaxBlockTxs int
	ViewTimeout time.Duration
}

// New creates an engine at view 0, awaiting the first proposal.
func New(cfg Config, clock Clock, transport Transport, signer Signer, onCommit func(*Block, *QC)) *Engine {
	return &Engine{
		id:          cfg.ID,
		validators:  sortedValidators(cfg.Validators),
		threshold:   cfg.Threshold,
		maxBlockTxs: cfg.MaxBlockTxs,
		viewTimeout: cfg.ViewTimeout,
		clock:       clock,
		transport:   transport,
		signer:      signer,
		onCommit:    onCommit,
		state:       StateWaitForProposal,
		committed:   make(map[uint64][32]byte),
		votes:       make(map[Phase]map[uint64]map[[32]byte]map[string]*Vote),
		viewChanges: make(map[uint64]map[string]*ViewChangeMsg),
	}
}

// Start arms the first view timer and attempts a proposal if this validator
// leads view 0.
func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.armTimerLocked()
	e.tryProposeLocked()
}

// View returns the engine's current view number.
func (e *Engine) View() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.view
}

// State returns the engine's current local state.
func (e *Engine) StateName() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// CommittedHeight returns the height of the last committed block.
func (e *Engine) CommittedHeight() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.height
}

// SubmitRequest enqueues an opaque request payload for inclusion in a future
// block, and proposes immediately if this validator is the current leader
// with nothing else pending.
func (e *Engine) SubmitRequest(req []byte) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pending = append(e.pending, req)
	e.tryProposeLocked()
}

func (e *Engine) isLeaderLocked() bool {
	return leaderFor(e.validators, e.view) == e.id
}

// tryProposeLocked assembles and broadcasts a proposal if this validator
// leads the current view, is awaiting one, and has at least one pending
// request. Must be called with mu held.
func (e *Engine) tryProposeLocked() {
	if e.state != StateWaitForProposal || !e.isLeaderLocked() || len(e.pending) == 0 {
		return
	}

	n := len(e.pending)
	if n > e.maxBlockTxs {
		n = e.maxBlockTxs
	}
	reqs := make([][]byte, n)
	copy(reqs, e.pending[:n])
	e.pending = e.pending[n:]

	block := &Block{
		View:       e.view,
		Height:     e.height + 1,
		ParentHash: e.lastHash,
		ProposerID: e.id,
		Requests:   reqs,
	}
	proposal := &Proposal{Block: block, JustifyQC: e.prepareQC}

	if err := e.transport.Broadcast(e.id, Message{Proposal: proposal}); err != nil {
		logging.Component("consensus").Error("broadcast proposal failed", "err", err, "view", e.view)
		return
	}

	// The leader processes its own proposal the same way every validator
	// does, rather than special-casing its own vote path.
	e.handleProposalLocked(proposal)
}

// HandleProposal processes an inbound leader proposal.
func (e *Engine) HandleProposal(p *Proposal) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.handleProposalLocked(p)
}

func (e *Engine) handleProposalLocked(p *Proposal) error {
	if p == nil || p.Block == nil {
		return fmt.Errorf("consensus: nil proposal")
	}
	if p.Block.View != e.view {
		return nil // stale or future view, ignore
	}
	if e.state != StateWaitForProposal {
		return nil // already voted this view
	}
	if leaderFor(e.validators, e.view) != p.Block.ProposerID {
		return nil // not from the expected leader
	}
	if !safeToVote(e.lockedQC, p.JustifyQC) {
		logging.Component("consensus").Debug("dropping unsafe proposal", "view", e.view, "validator", e.id)
		return nil
	}

	e.currentBlock = p.Block
	e.state = StatePrepare

	return e.voteLocked(PhasePrepare, p.Block.Hash())
}

func (e *Engine) voteLocked(phase Phase, blockHash [32]byte) error {
	v := &Vote{Phase: phase, View: e.view, BlockHash: blockHash, Voter: e.id}
	sig, err := e.signer.Sign(v.signingPayload())
	if err != nil {
		return fmt.Errorf("consensus: sign vote: %w", err)
	}
	v.Sig = sig

	leader := leaderFor(e.validators, e.view)
	return e.transport.Send(e.id, leader, Message{Vote: v})
}

// HandleVote processes an inbound vote. Only the current leader tallies
// votes toward a QC; other validators ignore votes sent to them in error.
func (e *Engine) HandleVote(v *Vote) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if v == nil || v.View != e.view || !e.isLeaderLocked() {
		return nil
	}
	if !e.signer.Verify(v.Voter, v.signingPayload(), v.Sig) {
		return fmt.Errorf("consensus: invalid vote signature from %s", v.Voter)
	}

	e.recordVoteLocked(v)

	tally := e.votes[v.Phase][v.View][v.BlockHash]
	if len(tally) < e.threshold {
		return nil
	}

	qc := &QC{Phase: v.Phase, View: v.View, BlockHash: v.BlockHash, Sigs: copySigs(tally)}
	if err := e.transport.Broadcast(e.id, Message{QC: &QCMsg{QC: qc}}); err != nil {
		return fmt.Errorf("consensus: broadcast QC: %w", err)
	}
	return e.handleQCLocked(qc)
}

func (e *Engine) recordVoteLocked(v *Vote) {
	byView, ok := e.votes[v.Phase]
	if !ok {
		byView = make(map[uint64]map[[32]byte]map[string]*Vote)
		e.votes[v.Phase] = byView
	}
	byHash, ok := byView[v.View]
	if !ok {
		byHash = make(map[[32]byte]map[string]*Vote)
		byView[v.View] = byHash
	}
	byVoter, ok := byHash[v.BlockHash]
	if !ok {
		byVoter = make(map[string]*Vote)
		byHash[v.BlockHash] = byVoter
	}
	byVoter[v.Voter] = v
}

func copySigs(tally map[string]*Vote) map[string][]byte {
	out := make(map[string][]byte, len(tally))
	for voter, v := range tally {
		out[voter] = v.Sig
	}
	return out
}

// HandleQC processes a relayed quorum certificate.
func (e *Engine) HandleQC(qc *QC) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.handleQCLocked(qc)
}

func (e *Engine) handleQCLocked(qc *QC) error {
	if qc == nil || qc.View != e.view || qc.NumSigners() < e.threshold {
		return nil
	}

	switch qc.Phase {
	case PhasePrepare:
		if e.state != StatePrepare || e.currentBlock == nil || e.currentBlock.Hash() != qc.BlockHash {
			return nil
		}
		e.prepareQC = qc
		e.state = StateCommit
		return e.voteLocked(PhaseCommit, qc.BlockHash)

	case PhaseCommit:
		if e.currentBlock == nil || e.currentBlock.Hash() != qc.BlockHash {
			return nil
		}
		return e.commitLocked(qc)
	}
	return nil
}

func (e *Engine) commitLocked(qc *QC) error {
	block := e.currentBlock
	height := block.Height

	if existing, ok := e.committed[height]; ok && existing != qc.BlockHash {
		return fmt.Errorf("consensus: safety violation: height %d already committed a different block", height)
	}
	e.committed[height] = qc.BlockHash

	if e.lockedQC == nil || qc.View > e.lockedQC.View {
		e.lockedQC = qc
	}

	if e.onCommit != nil {
		e.onCommit(block, qc)
	}

	e.height = height
	e.lastHash = qc.BlockHash
	e.currentBlock = nil
	e.advanceViewLocked(e.view + 1)
	e.tryProposeLocked()
	return nil
}

func (e *Engine) advanceViewLocked(newView uint64) {
	e.view = newView
	e.state = StateWaitForProposal
	e.timerGeneration++
	e.armTimerLocked()
}

func (e *Engine) armTimerLocked() {
	gen := e.timerGeneration
	view := e.view
	ch := e.clock.After(e.viewTimeout)
	go func() {
		<-ch
		e.onViewTimeout(gen, view)
	}()
}

func (e *Engine) onViewTimeout(gen uint64, view uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if gen != e.timerGeneration || view != e.view {
		return // a commit or view change already moved us on
	}

	// Still stuck in the same view, whether this is the first timeout or a
	// view-change round that itself failed to produce a NewView in time:
	// advance and try again against the next prospective leader.
	newView := e.view + 1
	e.state = StateViewChange
	e.timerGeneration++

	vc := &ViewChangeMsg{NewView: newView, Sender: e.id, HighQC: e.prepareQC}
	prospectiveLeader := leaderFor(e.validators, newView)
	if err := e.transport.Send(e.id, prospectiveLeader, Message{ViewChange: vc}); err != nil {
		logging.Component("consensus").Error("send view change failed", "err", err)
	}

	// Arm a fresh timer for the new view's own timeout, in case the
	// view-change round itself stalls.
	e.view = newView
	e.armTimerLocked()
}

// HandleViewChange processes an inbound ViewChangeMsg. Only the prospective
// leader for the named view tallies these toward a NewView broadcast.
func (e *Engine) HandleViewChange(vc *ViewChangeMsg) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if vc == nil || leaderFor(e.validators, vc.NewView) != e.id {
		return nil
	}

	set, ok := e.viewChanges[vc.NewView]
	if !ok {
		set = make(map[string]*ViewChangeMsg)
		e.viewChanges[vc.NewView] = set
	}
	set[vc.Sender] = vc

	if len(set) < e.threshold {
		return nil
	}

	var highQC *QC
	changes := make([]*ViewChangeMsg, 0, len(set))
	for _, v := range set {
		changes = append(changes, v)
		if v.HighQC != nil && (highQC == nil || v.HighQC.View > highQC.View) {
			highQC = v.HighQC
		}
	}

	nv := &NewViewMsg{View: vc.NewView, Leader: e.id, HighQC: highQC, ViewChanges: changes}
	if err := e.transport.Broadcast(e.id, Message{NewView: nv}); err != nil {
		return fmt.Errorf("consensus: broadcast new view: %w", err)
	}
	return e.handleNewViewLocked(nv)
}

// HandleNewView processes the prospective leader's NewView broadcast,
// adopting the new view if it carries enough ViewChange evidence.
func (e *Engine) HandleNewView(nv *NewViewMsg) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.handleNewViewLocked(nv)
}

func (e *Engine) handleNewViewLocked(nv *NewViewMsg) error {
	if nv == nil || len(nv.ViewChanges) < e.threshold || nv.View < e.view {
		return nil
	}

	if nv.HighQC != nil && (e.prepareQC == nil || nv.HighQC.View > e.prepareQC.View) {
		e.prepareQC = nv.HighQC
	}
	e.advanceViewLocked(nv.View)
	e.tryProposeLocked()
	return nil
}
