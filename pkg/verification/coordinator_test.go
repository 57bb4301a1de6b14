package verification

import (
	"sync"
	"testing"
	"time"

	"github.com/certen/verified-ledger/pkg/consensus"
	"github.com/certen/verified-ledger/pkg/eventlog"
	"github.com/certen/verified-ledger/pkg/kvdb"
	"github.com/certen/verified-ledger/pkg/merkleacc"
	"github.com/certen/verified-ledger/pkg/oracle"
	"github.com/certen/verified-ledger/pkg/threshold"
)

const (
	testT = 3
	testN = 5
)

type harness struct {
	coord   *Coordinator
	oracles *oracle.Manager
	shares  map[threshold.ParticipantID]*threshold.KeyShare
	pub     *threshold.PublicKeyPackage
	clock   *manualClock
}

// manualClock lets tests fire verification timeouts deterministically.
type manualClock struct {
	mu      sync.Mutex
	now     time.Time
	waiting []chan time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}
func (c *manualClock) After(d time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	c.mu.Lock()
	c.waiting = append(c.waiting, ch)
	c.mu.Unlock()
	return ch
}
func (c *manualClock) fire() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(3 * time.Second)
	for _, ch := range c.waiting {
		ch <- c.now
	}
	c.waiting = nil
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	ids := []threshold.ParticipantID{1, 2, 3, 4, 5}
	shares, pub, err := threshold.TrustedDealerKeygen(testT, ids)
	if err != nil {
		t.Fatalf("keygen: %v", err)
	}

	mgr := oracle.NewManager()
	for i, id := range ids {
		mgr.Join(oracleName(i+1), id)
	}

	clock := &manualClock{now: time.Unix(1_700_000_000, 0)}

	var committedBlocks []*consensus.Block
	var coord *Coordinator
	submit := func(requestID []byte) {
		block := &consensus.Block{Requests: [][]byte{requestID}}
		committedBlocks = append(committedBlocks, block)
		coord.OnBlockCommitted(block, nil)
	}

	store := eventlog.New(kvdb.NewMemory())
	cfg := &Config{Threshold: testT, Participants: testN, VerificationTimeout: 200 * time.Millisecond}
	coord = New(cfg, submit, mgr, merkleacc.New(), store, pub, clock)

	return &harness{coord: coord, oracles: mgr, shares: shares, pub: pub, clock: clock}
}

func oracleName(i int) string {
	return "oracle-" + string(rune('0'+i))
}

// approve has oracle i (1-indexed) sign canonical with the given commitment
// set (shared across every approver in the same session) and records its
// vote with the coordinator.
func (h *harness) approve(t *testing.T, requestID string, canonical [32]byte, pid threshold.ParticipantID, commitments []*threshold.SigningCommitment, nonces map[threshold.ParticipantID]*threshold.SigningNonce) {
	t.Helper()
	z, err := threshold.Round2Sign(h.shares[pid], nonces[pid], canonical[:], commitments)
	if err != nil {
		t.Fatalf("round2 sign: %v", err)
	}
	var commitment *threshold.SigningCommitment
	for _, c := range commitments {
		if c.ID == pid {
			commitment = c
		}
	}
	share := &threshold.SignatureShare{ID: pid, Share: z}
	if err := h.coord.RecordOracleVote(requestID, oracleName(int(pid)), true, "", commitment, share); err != nil {
		t.Fatalf("record vote for %d: %v", pid, err)
	}
}

func TestHappyPathSynchronousQuorum(t *testing.T) {
	h := newHarness(t)

	fp := RequestFingerprint{
		RequestID:     "req-happy",
		ActorID:       "A",
		ClientID:      "B",
		ActionType:    "infer",
		InputHash:     [32]byte{0x01},
		OutputHash:    [32]byte{0x02},
		ComputeAmount: "1.0",
		SubmittedAt:   h.clock.now,
	}
	canonical := fp.CanonicalHash()

	approvers := []threshold.ParticipantID{1, 2, 3}
	nonces := make(map[threshold.ParticipantID]*threshold.SigningNonce)
	var commitments []*threshold.SigningCommitment
	for _, pid := range approvers {
		nonce, commitment, err := threshold.Round1Commit(pid)
		if err != nil {
			t.Fatalf("round1: %v", err)
		}
		nonces[pid] = nonce
		commitments = append(commitments, commitment)
	}

	done := make(chan Status, 1)
	go func() {
		status, err := h.coord.Submit(fp, true, time.Second)
		if err != nil {
			t.Errorf("submit: %v", err)
		}
		done <- status
	}()

	// Give the submit goroutine a moment to register the request and open
	// the oracle session via the synchronous submit callback.
	time.Sleep(10 * time.Millisecond)
	for _, pid := range approvers {
		h.approve(t, fp.RequestID, canonical, pid, commitments, nonces)
	}

	status := <-done
	if status.State != StateQuorum {
		t.Fatalf("expected Quorum, got %s (reason=%s)", status.State, status.Reason)
	}
	if status.Record == nil || !status.Record.Passed {
		t.Fatal("expected a passed outcome record")
	}
	if len(status.Record.Voters) != testT {
		t.Fatalf("expected %d voters, got %d", testT, len(status.Record.Voters))
	}

	if !threshold.Verify(canonical[:], status.Record.ThresholdSig, h.pub.GroupPublicKey) {
		t.Fatal("aggregated signature does not verify under the group public key")
	}

	if !VerifyProof(merkleacc.Hash(canonical), status.Record.MerkleProof, status.Record.MerkleIndex, status.Record.MerkleRoot) {
		t.Fatal("merkle proof does not verify against the recorded root")
	}
}

func TestProofTamperingIsDetected(t *testing.T) {
	h := newHarness(t)
	fp := RequestFingerprint{RequestID: "req-tamper", ActorID: "A", ActionType: "infer", ComputeAmount: "1.0", SubmittedAt: h.clock.now}
	canonical := fp.CanonicalHash()

	approvers := []threshold.ParticipantID{1, 2, 3}
	nonces := make(map[threshold.ParticipantID]*threshold.SigningNonce)
	var commitments []*threshold.SigningCommitment
	for _, pid := range approvers {
		nonce, commitment, _ := threshold.Round1Commit(pid)
		nonces[pid] = nonce
		commitments = append(commitments, commitment)
	}

	status, err := h.coord.Submit(fp, false, 0)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	_ = status
	for _, pid := range approvers {
		h.approve(t, fp.RequestID, canonical, pid, commitments, nonces)
	}

	final, err := h.coord.Status(fp.RequestID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if final.Record == nil {
		t.Fatal("expected a finalized record")
	}

	tampered := *final.Record.MerkleProof
	if len(tampered.Path) == 0 {
		t.Skip("proof has no siblings to tamper with at this tree size")
	}
	tampered.Path = append([]merkleacc.ProofStep(nil), tampered.Path...)
	tampered.Path[0].Sibling[0] ^= 0xFF

	if VerifyProof(merkleacc.Hash(canonical), &tampered, final.Record.MerkleIndex, final.Record.MerkleRoot) {
		t.Fatal("tampered proof must not verify")
	}
}

func TestRejectionByThreshold(t *testing.T) {
	h := newHarness(t)
	fp := RequestFingerprint{RequestID: "req-reject", ActorID: "A", ActionType: "infer", ComputeAmount: "1.0", SubmittedAt: h.clock.now}

	if _, err := h.coord.Submit(fp, false, 0); err != nil {
		t.Fatalf("submit: %v", err)
	}

	// 3 rejections with N=5,T=3: rejections(3) > N-T(2), so it must reject
	// even before any approvals arrive.
	for _, pid := range []threshold.ParticipantID{1, 2, 3} {
		if err := h.coord.RecordOracleVote(fp.RequestID, oracleName(int(pid)), false, "bad output", nil, nil); err != nil {
			t.Fatalf("record vote: %v", err)
		}
	}

	status, err := h.coord.Status(fp.RequestID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.State != StateRejected {
		t.Fatalf("expected Rejected, got %s", status.State)
	}
	if status.Record != nil {
		t.Fatal("a rejected request must not carry an outcome record")
	}
}

func TestTimeoutWithoutQuorum(t *testing.T) {
	h := newHarness(t)
	fp := RequestFingerprint{RequestID: "req-timeout", ActorID: "A", ActionType: "infer", ComputeAmount: "1.0", SubmittedAt: h.clock.now}

	if _, err := h.coord.Submit(fp, false, 0); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := h.coord.RecordOracleVote(fp.RequestID, oracleName(1), true, "", nil, nil); err != nil {
		// A vote with a nil share never reaches quorum on its own since
		// SnapshotForAggregation drops votes with no share.
		t.Fatalf("record vote: %v", err)
	}

	h.clock.fire()
	time.Sleep(20 * time.Millisecond)

	status, err := h.coord.Status(fp.RequestID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.State != StateTimedOut {
		t.Fatalf("expected TimedOut, got %s", status.State)
	}
}

func TestIdempotentOracleVote(t *testing.T) {
	h := newHarness(t)
	fp := RequestFingerprint{RequestID: "req-idempotent", ActorID: "A", ActionType: "infer", ComputeAmount: "1.0", SubmittedAt: h.clock.now}
	if _, err := h.coord.Submit(fp, false, 0); err != nil {
		t.Fatalf("submit: %v", err)
	}

	session, ok := h.oracles.Session(fp.RequestID)
	if !ok {
		t.Fatal("expected an open oracle session")
	}

	for i := 0; i < 2; i++ {
		if err := h.coord.RecordOracleVote(fp.RequestID, oracleName(1), false, "dup", nil, nil); err != nil {
			t.Fatalf("record vote: %v", err)
		}
	}

	approvals, rejections := session.Tally()
	if approvals != 0 || rejections != 1 {
		t.Fatalf("expected exactly one recorded rejection, got approvals=%d rejections=%d", approvals, rejections)
	}
}
