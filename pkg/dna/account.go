// Copyright 2025 Certen Protocol
//
// Protocol DNA Book (C8): transactional bookkeeping over account balances
// and trust, per spec.md 4.8. New component — grounded on the teacher's
// load-mutate-save single-writer idiom in pkg/ledger/store.go, generalized
// from Accumulate account state to credits/stake/trust/lineage.

package dna

import (
	"sync"
	"time"

	"github.com/certen/verified-ledger/pkg/rateguard"
)

// Account is one actor's ledger-visible state.
type Account struct {
	ID      string
	Credits float64
	Stake   float64
	Tau     float64 // trust score in [0, 1]

	Parent string // empty for a root account
	Depth  int
}

// Book is the in-memory Protocol DNA Book. All four primitives (Spawn,
// Lend, Insure, Delegate) are transactional over the same accounts map
// under one writer lock, matching the teacher's load-mutate-save pattern.
type Book struct {
	accounts map[string]*Account
	loans    map[string]*Loan
	policies map[string]*Policy
	claims   map[string]*Claim
	grants   map[string]*Grant

	mu sync.Mutex

	nowFn func() time.Time

	// spawnGuard, when set, gates Spawn through the Sybil/Rate Guard before
	// any balance is moved. Nil means spawns are ungated (tests, and any
	// deployment that runs the guard out of process).
	spawnGuard *rateguard.Guard
}

// New creates an empty book. nowFn defaults to time.Now; tests may inject a
// fixed clock.
func New(nowFn func() time.Time) *Book {
	if nowFn == nil {
		nowFn = time.Now
	}
	return &Book{
		accounts: make(map[string]*Account),
		loans:    make(map[string]*Loan),
		policies: make(map[string]*Policy),
		claims:   make(map[string]*Claim),
		grants:   make(map[string]*Grant),
		nowFn:    nowFn,
	}
}

// SetSpawnGuard wires the Sybil/Rate Guard that Spawn consults before
// transferring any credits. Call once during startup wiring; a nil guard
// (the zero value) leaves Spawn ungated.
func (b *Book) SetSpawnGuard(g *rateguard.Guard) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.spawnGuard = g
}

// OpenAccount creates a root account with the given initial balances.
func (b *Book) OpenAccount(id string, credits, stake, tau float64) *Account {
	b.mu.Lock()
	defer b.mu.Unlock()
	a := &Account{ID: id, Credits: credits, Stake: stake, Tau: tau}
	b.accounts[id] = a
	return a
}

// Account returns a copy of the current state for id, if it exists.
func (b *Book) Account(id string) (Account, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	a, ok := b.accounts[id]
	if !ok {
		return Account{}, false
	}
	return *a, true
}
