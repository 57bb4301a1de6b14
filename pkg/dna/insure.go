// Copyright 2025 Certen Protocol
//
// Insure: premium transfer, policy bookkeeping, and claims. A claim enters
// Pending, resolves to Approved or Denied, and Approved claims are Paid.
// "Recoverable failure" retries (spec.md 9's Open Question) use a bounded
// schedule of 3 attempts at 1s/5s/25s backoff, then Denied with reason
// "retry_budget_exhausted".

package dna

import "time"

// ClaimState is a claim's lifecycle position.
type ClaimState string

const (
	ClaimPending  ClaimState = "pending"
	ClaimApproved ClaimState = "approved"
	ClaimDenied   ClaimState = "denied"
	ClaimPaid     ClaimState = "paid"
)

// RetryBackoff is the bounded retry schedule for a claim resolution that
// hits a recoverable failure (e.g. a transient payout-rail error).
var RetryBackoff = []time.Duration{1 * time.Second, 5 * time.Second, 25 * time.Second}

const MaxClaimRetries = len(RetryBackoff)

// Policy records one Insure transaction's terms.
type Policy struct {
	ID             string
	Insured        string
	Insurer        string
	Coverage       float64
	PaidOut        float64
	CoveredActions map[string]bool
}

// Claim is one draw against a Policy's coverage.
type Claim struct {
	ID       string
	PolicyID string
	Amount   float64
	State    ClaimState
	Attempts int
	Reason   string
}

// Insure transfers the premium (base_premium_rate * coverage, discounted by
// the insured's tau) from insured to insurer and records the policy.
func (b *Book) Insure(policyID, insuredID, insurerID string, coverage float64, coveredActions []string) (*Policy, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	insured, ok := b.accounts[insuredID]
	if !ok {
		return nil, ErrAccountNotFound
	}
	insurer, ok := b.accounts[insurerID]
	if !ok {
		return nil, ErrAccountNotFound
	}

	rate := BasePremiumRate * (1 - insured.Tau)
	if rate < 0 {
		rate = 0
	}
	premium := rate * coverage
	if insured.Credits < premium {
		return nil, ErrInsufficientFunds
	}

	insured.Credits -= premium
	insurer.Credits += premium

	actions := make(map[string]bool, len(coveredActions))
	for _, a := range coveredActions {
		actions[a] = true
	}

	policy := &Policy{ID: policyID, Insured: insuredID, Insurer: insurerID, Coverage: coverage, CoveredActions: actions}
	b.policies[policyID] = policy
	return policy, nil
}

// FileClaim opens a new Pending claim for amount against policyID.
func (b *Book) FileClaim(claimID, policyID string, amount float64) (*Claim, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	policy, ok := b.policies[policyID]
	if !ok {
		return nil, ErrPolicyNotFound
	}
	if amount > policy.Coverage-policy.PaidOut {
		return nil, ErrCoverageExceeded
	}

	claim := &Claim{ID: claimID, PolicyID: policyID, Amount: amount, State: ClaimPending}
	b.claims[claimID] = claim
	return claim, nil
}

// ResolveClaim approves or denies a pending claim.
func (b *Book) ResolveClaim(claimID string, approve bool, reason string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	claim, ok := b.claims[claimID]
	if !ok {
		return ErrClaimNotFound
	}
	if claim.State != ClaimPending {
		return ErrClaimNotPending
	}

	if approve {
		claim.State = ClaimApproved
	} else {
		claim.State = ClaimDenied
		claim.Reason = reason
	}
	return nil
}

// AttemptPayout tries to pay an approved claim. recoverable reports whether
// a failed attempt (err != nil) should be retried per RetryBackoff; once
// MaxClaimRetries is exhausted the claim is denied with
// "retry_budget_exhausted" and no further attempts are made.
func (b *Book) AttemptPayout(claimID string, pay func(policy *Policy, amount float64) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	claim, ok := b.claims[claimID]
	if !ok {
		return ErrClaimNotFound
	}
	if claim.State != ClaimApproved {
		return ErrClaimNotPending
	}

	policy, ok := b.policies[claim.PolicyID]
	if !ok {
		return ErrPolicyNotFound
	}

	claim.Attempts++
	if err := pay(policy, claim.Amount); err != nil {
		if claim.Attempts >= MaxClaimRetries {
			claim.State = ClaimDenied
			claim.Reason = "retry_budget_exhausted"
		}
		return err
	}

	policy.PaidOut += claim.Amount
	claim.State = ClaimPaid
	return nil
}

// Claim returns a copy of claimID's current state.
func (b *Book) Claim(claimID string) (Claim, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.claims[claimID]
	if !ok {
		return Claim{}, false
	}
	return *c, true
}
