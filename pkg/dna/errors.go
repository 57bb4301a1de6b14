// Copyright 2025 Certen Protocol

package dna

import "github.com/certen/verified-ledger/pkg/ledgererr"

// Tunable constants, per spec.md 4.8.
const (
	MinSpawnTau         = 0.2
	MaxSpawnDepth       = 8
	BaseRate            = 0.08
	RateDiscountPerTau  = 0.05
	MinInterestRate     = 0.01
	BasePremiumRate     = 0.02
	InsurancePremiumCap = 1.0
)

var (
	ErrInsufficientTrust   = ledgererr.New(ledgererr.KindInput, "insufficient_trust", "parent's trust score is below the minimum required to spawn")
	ErrInsufficientFunds   = ledgererr.New(ledgererr.KindInput, "insufficient_funds", "account balance is insufficient for this transfer")
	ErrSpawnDepthExceeded  = ledgererr.New(ledgererr.KindInput, "spawn_depth_exceeded", "child would exceed the maximum spawn lineage depth")
	ErrInsufficientStake   = ledgererr.New(ledgererr.KindInput, "insufficient_stake", "stake transferred is below the minimum required")
	ErrAccountNotFound     = ledgererr.New(ledgererr.KindInput, "account_not_found", "account does not exist")
	ErrLoanNotFound        = ledgererr.New(ledgererr.KindInput, "loan_not_found", "loan does not exist")
	ErrLoanNotOutstanding  = ledgererr.New(ledgererr.KindInput, "loan_not_outstanding", "loan has already reached a terminal state")
	ErrPolicyNotFound      = ledgererr.New(ledgererr.KindInput, "policy_not_found", "insurance policy does not exist")
	ErrClaimNotFound       = ledgererr.New(ledgererr.KindInput, "claim_not_found", "insurance claim does not exist")
	ErrClaimNotPending     = ledgererr.New(ledgererr.KindInput, "claim_not_pending", "claim has already been resolved")
	ErrCoverageExceeded    = ledgererr.New(ledgererr.KindInput, "coverage_exceeded", "claim amount exceeds remaining policy coverage")
	ErrGrantNotFound       = ledgererr.New(ledgererr.KindInput, "grant_not_found", "delegation grant does not exist")
	ErrGrantExpired        = ledgererr.New(ledgererr.KindInput, "grant_expired", "delegation grant has expired or been revoked")
	ErrGrantActionNotAllowed = ledgererr.New(ledgererr.KindInput, "grant_action_not_allowed", "action is not covered by the delegation grant")
	ErrGrantCapExceeded    = ledgererr.New(ledgererr.KindInput, "grant_cap_exceeded", "action would exceed the grant's per-action or cumulative cap")

	ErrSpawnTierTooLow  = ledgererr.New(ledgererr.KindInput, "spawn_tier_too_low", "parent's verification tier has no spawn allowance")
	ErrSpawnRateLimited = ledgererr.New(ledgererr.KindInput, "spawn_rate_limited", "parent has exhausted its spawn allowance for the current window")
	ErrSpawnClusterFull = ledgererr.New(ledgererr.KindInput, "spawn_cluster_full", "parent's descendant cluster is at capacity")
	ErrSpawnCoolOff     = ledgererr.New(ledgererr.KindInput, "spawn_cool_off", "parent is in a behavioral cool-off period")
)
