package dna

import (
	"testing"
	"time"
)

func TestDelegateEnforcesPerActionAndTotalCap(t *testing.T) {
	b := newTestBook()
	b.OpenAccount("delegator", 1000, 0, 0.5)
	b.OpenAccount("delegate", 0, 0, 0.5)

	expires := time.Unix(1_700_000_000, 0).Add(time.Hour)
	_, err := b.Delegate("grant-1", "delegator", "delegate", []string{"lend"}, 50, 120, expires, false)
	if err != nil {
		t.Fatalf("Delegate: %v", err)
	}

	now := time.Unix(1_700_000_000, 0)
	if err := b.CheckAndUse("grant-1", "lend", 60, now); err != ErrGrantCapExceeded {
		t.Fatalf("want ErrGrantCapExceeded for amount above per-action cap, got %v", err)
	}
	if err := b.CheckAndUse("grant-1", "lend", 50, now); err != nil {
		t.Fatalf("1st use: %v", err)
	}
	if err := b.CheckAndUse("grant-1", "lend", 50, now); err != nil {
		t.Fatalf("2nd use: %v", err)
	}
	// cumulative is now 100; a third use of 50 would exceed the 120 total cap
	if err := b.CheckAndUse("grant-1", "lend", 50, now); err != ErrGrantCapExceeded {
		t.Fatalf("want ErrGrantCapExceeded for cumulative overrun, got %v", err)
	}

	g, _ := b.Grant("grant-1")
	if g.Used != 100 {
		t.Fatalf("want cumulative usage 100 after the rejected 3rd call, got %v", g.Used)
	}
}

func TestDelegateRejectsActionOutsideAllowedSet(t *testing.T) {
	b := newTestBook()
	b.OpenAccount("delegator", 1000, 0, 0.5)
	b.OpenAccount("delegate", 0, 0, 0.5)
	expires := time.Unix(1_700_000_000, 0).Add(time.Hour)
	b.Delegate("grant-1", "delegator", "delegate", []string{"lend"}, 50, 120, expires, false)

	now := time.Unix(1_700_000_000, 0)
	if err := b.CheckAndUse("grant-1", "spawn", 10, now); err != ErrGrantActionNotAllowed {
		t.Fatalf("want ErrGrantActionNotAllowed, got %v", err)
	}
}

func TestDelegateExpiresAtBoundary(t *testing.T) {
	b := newTestBook()
	b.OpenAccount("delegator", 1000, 0, 0.5)
	b.OpenAccount("delegate", 0, 0, 0.5)
	expires := time.Unix(1_700_000_000, 0)
	b.Delegate("grant-1", "delegator", "delegate", []string{"lend"}, 50, 120, expires, false)

	if err := b.CheckAndUse("grant-1", "lend", 10, expires); err != ErrGrantExpired {
		t.Fatalf("want ErrGrantExpired at the exact expiry instant, got %v", err)
	}
	if err := b.CheckAndUse("grant-1", "lend", 10, expires.Add(-time.Second)); err != nil {
		t.Fatalf("want success just before expiry, got %v", err)
	}
}

func TestRevokeBlocksFurtherUsage(t *testing.T) {
	b := newTestBook()
	b.OpenAccount("delegator", 1000, 0, 0.5)
	b.OpenAccount("delegate", 0, 0, 0.5)
	expires := time.Unix(1_700_000_000, 0).Add(time.Hour)
	b.Delegate("grant-1", "delegator", "delegate", []string{"lend"}, 50, 120, expires, false)

	if err := b.Revoke("grant-1"); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	now := time.Unix(1_700_000_000, 0)
	if err := b.CheckAndUse("grant-1", "lend", 10, now); err != ErrGrantExpired {
		t.Fatalf("want ErrGrantExpired after revocation, got %v", err)
	}
}

func TestDelegateRejectsUnknownAccounts(t *testing.T) {
	b := newTestBook()
	b.OpenAccount("delegator", 1000, 0, 0.5)
	expires := time.Unix(1_700_000_000, 0).Add(time.Hour)

	if _, err := b.Delegate("grant-1", "delegator", "ghost", nil, 1, 1, expires, false); err != ErrAccountNotFound {
		t.Fatalf("want ErrAccountNotFound, got %v", err)
	}
}
