// Copyright 2025 Certen Protocol

package dna

import (
	"github.com/certen/verified-ledger/pkg/audit"
	"github.com/certen/verified-ledger/pkg/rateguard"
)

// InheritedTauPct is the fraction of a parent's tau a freshly spawned child
// inherits.
const InheritedTauPct = 0.5

// Spawn transfers initialCredits+stake from parent to a newly created child
// account, inherits a fraction of parent's trust, and records lineage. When
// a spawn guard is wired in, it gates the whole operation first: C7 decides
// whether C8's Spawn primitive may run at all.
func (b *Book) Spawn(parentID, childID string, initialCredits, stake float64) (*Account, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	parent, ok := b.accounts[parentID]
	if !ok {
		return nil, ErrAccountNotFound
	}

	deny := func(reason string, err error) (*Account, error) {
		audit.Record(audit.Event{
			Severity: audit.SeverityWarning,
			Category: audit.CategoryAuthorization,
			Actor:    parentID,
			Action:   "spawn:" + childID,
			Outcome:  "denied",
			Reason:   reason,
		})
		return nil, err
	}

	if b.spawnGuard != nil {
		switch b.spawnGuard.CheckSpawn(parentID, parent.Stake, b.nowFn()) {
		case rateguard.VerdictOk:
		case rateguard.VerdictTierTooLow:
			return deny("tier_too_low", ErrSpawnTierTooLow)
		case rateguard.VerdictRateLimit:
			return deny("rate_limited", ErrSpawnRateLimited)
		case rateguard.VerdictInsufficientStake:
			return deny("insufficient_stake", ErrInsufficientStake)
		case rateguard.VerdictClusterFull:
			return deny("cluster_full", ErrSpawnClusterFull)
		case rateguard.VerdictCoolOff:
			return deny("cool_off", ErrSpawnCoolOff)
		default:
			return deny("rate_limited", ErrSpawnRateLimited)
		}
	}

	if parent.Tau < MinSpawnTau {
		return deny("insufficient_trust", ErrInsufficientTrust)
	}
	if stake < 0 {
		return deny("insufficient_stake", ErrInsufficientStake)
	}
	total := initialCredits + stake
	if parent.Credits < total {
		return deny("insufficient_funds", ErrInsufficientFunds)
	}
	depth := parent.Depth + 1
	if depth > MaxSpawnDepth {
		return deny("spawn_depth_exceeded", ErrSpawnDepthExceeded)
	}

	parent.Credits -= total

	child := &Account{
		ID:      childID,
		Credits: initialCredits,
		Stake:   stake,
		Tau:     parent.Tau * InheritedTauPct,
		Parent:  parentID,
		Depth:   depth,
	}
	b.accounts[childID] = child

	audit.Record(audit.Event{
		Severity: audit.SeverityInfo,
		Category: audit.CategoryAuthorization,
		Actor:    parentID,
		Action:   "spawn:" + childID,
		Outcome:  "allowed",
	})
	return child, nil
}
