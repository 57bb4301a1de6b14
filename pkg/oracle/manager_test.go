package oracle

import (
	"testing"
	"time"

	"github.com/certen/verified-ledger/pkg/threshold"
)

func TestJoinAssignsIncreasingPositionsAndIsIdempotent(t *testing.T) {
	m := NewManager()
	p1 := m.Join("oracle-a", threshold.ParticipantID(1))
	p2 := m.Join("oracle-b", threshold.ParticipantID(2))
	if p1 != 1 || p2 != 2 {
		t.Fatalf("want positions 1,2, got %d,%d", p1, p2)
	}

	// Re-joining an already-joined oracle must not overwrite its participant
	// id, even if called with a different one.
	m.Join("oracle-a", threshold.ParticipantID(99))
	pid, ok := m.ParticipantID("oracle-a")
	if !ok || pid != threshold.ParticipantID(1) {
		t.Fatalf("rejoin should not overwrite the original participant id, got %v ok=%v", pid, ok)
	}
	if got := len(m.JoinedSnapshot()); got != 2 {
		t.Fatalf("rejoin must not grow the joined set, want 2, got %d", got)
	}
}

func TestParticipantIDLookupMissesForUnjoinedOracle(t *testing.T) {
	m := NewManager()
	if _, ok := m.ParticipantID("ghost"); ok {
		t.Fatal("expected lookup miss for an oracle that never joined")
	}
}

func TestJoinedSnapshotContainsAllJoinedOracles(t *testing.T) {
	m := NewManager()
	m.Join("oracle-a", threshold.ParticipantID(1))
	m.Join("oracle-b", threshold.ParticipantID(2))
	m.Join("oracle-c", threshold.ParticipantID(3))

	snap := m.JoinedSnapshot()
	if len(snap) != 3 {
		t.Fatalf("want 3 joined oracles, got %d: %v", len(snap), snap)
	}
	seen := map[string]bool{}
	for _, id := range snap {
		seen[id] = true
	}
	for _, id := range []string{"oracle-a", "oracle-b", "oracle-c"} {
		if !seen[id] {
			t.Fatalf("expected %q in joined snapshot %v", id, snap)
		}
	}
}

func TestOpenSessionSeedsJoinedOraclesAtOrderingTime(t *testing.T) {
	m := NewManager()
	m.Join("oracle-a", threshold.ParticipantID(1))
	m.Join("oracle-b", threshold.ParticipantID(2))

	now := time.Unix(1700000000, 0)
	sess := m.OpenSession("req-1", now)
	if sess.RequestID != "req-1" {
		t.Fatalf("want request id req-1, got %q", sess.RequestID)
	}
	if len(sess.Joined) != 2 {
		t.Fatalf("want session seeded with 2 joined oracles, got %v", sess.Joined)
	}
	if !sess.StartedAt.Equal(now) {
		t.Fatalf("want StartedAt %v, got %v", now, sess.StartedAt)
	}

	// A late joiner must not retroactively appear in an already-opened session.
	m.Join("oracle-c", threshold.ParticipantID(3))
	if len(sess.Joined) != 2 {
		t.Fatalf("session's joined snapshot must be frozen at open time, got %v", sess.Joined)
	}
}

func TestOpenSessionIsIdempotentForSameRequest(t *testing.T) {
	m := NewManager()
	m.Join("oracle-a", threshold.ParticipantID(1))

	first := m.OpenSession("req-1", time.Unix(1, 0))
	second := m.OpenSession("req-1", time.Unix(2, 0))
	if first != second {
		t.Fatal("opening a session twice for the same request must return the existing session")
	}
}

func TestSessionLookupAndDropOnTerminal(t *testing.T) {
	m := NewManager()
	m.Join("oracle-a", threshold.ParticipantID(1))
	m.OpenSession("req-1", time.Unix(1, 0))

	if _, ok := m.Session("req-1"); !ok {
		t.Fatal("expected an open session for req-1")
	}
	if _, ok := m.Session("req-missing"); ok {
		t.Fatal("expected no session for an unopened request")
	}

	m.DropOnTerminal("req-1")
	if _, ok := m.Session("req-1"); ok {
		t.Fatal("expected session to be gone after DropOnTerminal")
	}

	// Dropping an already-absent request must not panic.
	m.DropOnTerminal("req-1")
}
