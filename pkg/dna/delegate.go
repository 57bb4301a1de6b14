// Copyright 2025 Certen Protocol
//
// Delegate: a capability grant from one account to another, bounded by an
// allowed-action set, a per-action cap, a cumulative cap, and an expiry.

package dna

import "time"

// Grant records one Delegate transaction's terms and cumulative usage.
type Grant struct {
	ID        string
	Delegator string
	Delegate  string

	AllowedActions map[string]bool
	PerActionCap   float64
	TotalCap       float64
	Used           float64

	ExpiresAt          time.Time
	AllowSubdelegation bool
	Revoked            bool
}

// Delegate grants delegateID authority to act on delegatorID's behalf,
// bounded by allowedActions, perActionCap, totalCap, and expiresAt.
func (b *Book) Delegate(grantID, delegatorID, delegateID string, allowedActions []string, perActionCap, totalCap float64, expiresAt time.Time, allowSubdelegation bool) (*Grant, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.accounts[delegatorID]; !ok {
		return nil, ErrAccountNotFound
	}
	if _, ok := b.accounts[delegateID]; !ok {
		return nil, ErrAccountNotFound
	}

	actions := make(map[string]bool, len(allowedActions))
	for _, a := range allowedActions {
		actions[a] = true
	}

	grant := &Grant{
		ID:                 grantID,
		Delegator:          delegatorID,
		Delegate:           delegateID,
		AllowedActions:     actions,
		PerActionCap:       perActionCap,
		TotalCap:           totalCap,
		ExpiresAt:          expiresAt,
		AllowSubdelegation: allowSubdelegation,
	}
	b.grants[grantID] = grant
	return grant, nil
}

// CheckAndUse validates that action is permitted under grantID at now and,
// if so, records amount against the grant's per-action and cumulative caps
// in the same locked step. A rejected check records no usage.
func (b *Book) CheckAndUse(grantID, action string, amount float64, now time.Time) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	grant, ok := b.grants[grantID]
	if !ok {
		return ErrGrantNotFound
	}
	if grant.Revoked || !now.Before(grant.ExpiresAt) {
		return ErrGrantExpired
	}
	if !grant.AllowedActions[action] {
		return ErrGrantActionNotAllowed
	}
	if amount > grant.PerActionCap {
		return ErrGrantCapExceeded
	}
	if grant.Used+amount > grant.TotalCap {
		return ErrGrantCapExceeded
	}

	grant.Used += amount
	return nil
}

// Revoke marks grantID revoked; subsequent CheckAndUse calls fail with
// ErrGrantExpired regardless of the expiry timestamp.
func (b *Book) Revoke(grantID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	grant, ok := b.grants[grantID]
	if !ok {
		return ErrGrantNotFound
	}
	grant.Revoked = true
	return nil
}

// Grant returns a copy of grantID's current state.
func (b *Book) Grant(grantID string) (Grant, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	g, ok := b.grants[grantID]
	if !ok {
		return Grant{}, false
	}
	return *g, true
}
