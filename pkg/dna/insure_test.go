package dna

import (
	"errors"
	"testing"
)

func TestInsureDebitsPremiumDiscountedByTau(t *testing.T) {
	b := newTestBook()
	b.OpenAccount("insured", 1000, 0, 0.5)
	b.OpenAccount("insurer", 0, 0, 0.5)

	policy, err := b.Insure("policy-1", "insured", "insurer", 500, []string{"spawn", "lend"})
	if err != nil {
		t.Fatalf("Insure: %v", err)
	}
	wantRate := BasePremiumRate * (1 - 0.5)
	wantPremium := wantRate * 500
	insured, _ := b.Account("insured")
	if insured.Credits != 1000-wantPremium {
		t.Fatalf("want insured debited by %v, got credits %v", wantPremium, insured.Credits)
	}
	if !policy.CoveredActions["spawn"] || !policy.CoveredActions["lend"] {
		t.Fatalf("want covered actions recorded, got %v", policy.CoveredActions)
	}
}

func TestInsureRejectsInsufficientFunds(t *testing.T) {
	b := newTestBook()
	b.OpenAccount("insured", 1, 0, 0.0)
	b.OpenAccount("insurer", 0, 0, 0.5)

	if _, err := b.Insure("policy-1", "insured", "insurer", 1000, nil); err != ErrInsufficientFunds {
		t.Fatalf("want ErrInsufficientFunds, got %v", err)
	}
}

func TestFileClaimRejectsAmountAboveRemainingCoverage(t *testing.T) {
	b := newTestBook()
	b.OpenAccount("insured", 1000, 0, 0.5)
	b.OpenAccount("insurer", 0, 0, 0.5)
	b.Insure("policy-1", "insured", "insurer", 100, nil)

	if _, err := b.FileClaim("claim-1", "policy-1", 200); err != ErrCoverageExceeded {
		t.Fatalf("want ErrCoverageExceeded, got %v", err)
	}
}

func TestClaimLifecycleApprovedThenPaid(t *testing.T) {
	b := newTestBook()
	b.OpenAccount("insured", 1000, 0, 0.5)
	b.OpenAccount("insurer", 1000, 0, 0.5)
	b.Insure("policy-1", "insured", "insurer", 500, nil)
	b.FileClaim("claim-1", "policy-1", 100)

	if err := b.ResolveClaim("claim-1", true, ""); err != nil {
		t.Fatalf("ResolveClaim: %v", err)
	}
	claim, _ := b.Claim("claim-1")
	if claim.State != ClaimApproved {
		t.Fatalf("want ClaimApproved, got %s", claim.State)
	}

	if err := b.AttemptPayout("claim-1", func(p *Policy, amount float64) error { return nil }); err != nil {
		t.Fatalf("AttemptPayout: %v", err)
	}
	claim, _ = b.Claim("claim-1")
	if claim.State != ClaimPaid {
		t.Fatalf("want ClaimPaid, got %s", claim.State)
	}
	policy := mustPolicy(t, b, "policy-1")
	if policy.PaidOut != 100 {
		t.Fatalf("want policy PaidOut 100, got %v", policy.PaidOut)
	}
}

func TestClaimDeniedOnRejection(t *testing.T) {
	b := newTestBook()
	b.OpenAccount("insured", 1000, 0, 0.5)
	b.OpenAccount("insurer", 1000, 0, 0.5)
	b.Insure("policy-1", "insured", "insurer", 500, nil)
	b.FileClaim("claim-1", "policy-1", 100)

	if err := b.ResolveClaim("claim-1", false, "fraud_suspected"); err != nil {
		t.Fatalf("ResolveClaim: %v", err)
	}
	claim, _ := b.Claim("claim-1")
	if claim.State != ClaimDenied || claim.Reason != "fraud_suspected" {
		t.Fatalf("want ClaimDenied/fraud_suspected, got %s/%s", claim.State, claim.Reason)
	}
}

func TestPayoutExhaustsRetryBudgetThenDenies(t *testing.T) {
	b := newTestBook()
	b.OpenAccount("insured", 1000, 0, 0.5)
	b.OpenAccount("insurer", 1000, 0, 0.5)
	b.Insure("policy-1", "insured", "insurer", 500, nil)
	b.FileClaim("claim-1", "policy-1", 100)
	b.ResolveClaim("claim-1", true, "")

	failing := func(p *Policy, amount float64) error { return errors.New("payout rail unavailable") }
	for i := 0; i < MaxClaimRetries; i++ {
		if err := b.AttemptPayout("claim-1", failing); err == nil {
			t.Fatalf("attempt %d: want error from failing payout", i)
		}
	}

	claim, _ := b.Claim("claim-1")
	if claim.State != ClaimDenied || claim.Reason != "retry_budget_exhausted" {
		t.Fatalf("want ClaimDenied/retry_budget_exhausted after %d attempts, got %s/%s", MaxClaimRetries, claim.State, claim.Reason)
	}
}

func mustPolicy(t *testing.T, b *Book, id string) Policy {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.policies[id]
	if !ok {
		t.Fatalf("policy %q not found", id)
	}
	return *p
}
