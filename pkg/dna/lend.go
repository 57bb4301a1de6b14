// Copyright 2025 Certen Protocol

package dna

import "github.com/certen/verified-ledger/pkg/ledgererr"

// LoanState is a loan's terminal-or-not lifecycle position.
type LoanState string

const (
	LoanOutstanding LoanState = "outstanding"
	LoanRepaid      LoanState = "repaid"
	LoanDefaulted   LoanState = "defaulted"
	LoanLiquidated  LoanState = "liquidated"
)

const CollateralPct = 1.5

// Loan records one Lend transaction's terms and current state.
type Loan struct {
	ID         string
	Lender     string
	Borrower   string
	Principal  float64
	Collateral float64
	Rate       float64
	State      LoanState
}

func interestRate(borrowerTau float64) float64 {
	rate := BaseRate - borrowerTau*RateDiscountPerTau
	if rate < MinInterestRate {
		return MinInterestRate
	}
	return rate
}

// Lend transfers principal from lender to borrower and locks collateral
// from the borrower's balance. The interest rate is derived from the
// borrower's trust score, clamped at MinInterestRate.
func (b *Book) Lend(loanID, lenderID, borrowerID string, principal float64) (*Loan, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	lender, ok := b.accounts[lenderID]
	if !ok {
		return nil, ErrAccountNotFound
	}
	borrower, ok := b.accounts[borrowerID]
	if !ok {
		return nil, ErrAccountNotFound
	}
	if lender.Credits < principal {
		return nil, ErrInsufficientFunds
	}
	collateral := CollateralPct * principal
	if borrower.Credits < collateral {
		return nil, ErrInsufficientFunds
	}

	lender.Credits -= principal
	borrower.Credits += principal
	borrower.Credits -= collateral

	loan := &Loan{
		ID:         loanID,
		Lender:     lenderID,
		Borrower:   borrowerID,
		Principal:  principal,
		Collateral: collateral,
		Rate:       interestRate(borrower.Tau),
		State:      LoanOutstanding,
	}
	b.loans[loanID] = loan
	return loan, nil
}

// Repay settles an outstanding loan, returning collateral to the borrower
// and principal-plus-interest to the lender.
func (b *Book) Repay(loanID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	loan, ok := b.loans[loanID]
	if !ok {
		return ErrLoanNotFound
	}
	if loan.State != LoanOutstanding {
		return ErrLoanNotOutstanding
	}

	borrower := b.accounts[loan.Borrower]
	lender := b.accounts[loan.Lender]
	if borrower == nil || lender == nil {
		return ledgererr.New(ledgererr.KindFatal, "dna_corrupted_loan", "loan references a missing account")
	}

	interest := loan.Principal * loan.Rate
	total := loan.Principal + interest
	borrower.Credits -= total
	borrower.Credits += loan.Collateral
	lender.Credits += total

	loan.State = LoanRepaid
	return nil
}

// Default marks loanID defaulted and forfeits the borrower's locked
// collateral to the lender.
func (b *Book) Default(loanID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	loan, ok := b.loans[loanID]
	if !ok {
		return ErrLoanNotFound
	}
	if loan.State != LoanOutstanding {
		return ErrLoanNotOutstanding
	}

	lender := b.accounts[loan.Lender]
	if lender != nil {
		lender.Credits += loan.Collateral
	}
	loan.State = LoanDefaulted
	return nil
}

// Liquidate marks loanID liquidated: the lender recovers what collateral
// remains, which may be less than the full amount if it was partially
// drawn down by an external process prior to liquidation.
func (b *Book) Liquidate(loanID string, recoveredCollateral float64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	loan, ok := b.loans[loanID]
	if !ok {
		return ErrLoanNotFound
	}
	if loan.State != LoanOutstanding {
		return ErrLoanNotOutstanding
	}

	if recoveredCollateral > loan.Collateral {
		recoveredCollateral = loan.Collateral
	}
	lender := b.accounts[loan.Lender]
	if lender != nil {
		lender.Credits += recoveredCollateral
	}
	loan.State = LoanLiquidated
	return nil
}

// Loan returns a copy of loanID's current state.
func (b *Book) Loan(loanID string) (Loan, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	l, ok := b.loans[loanID]
	if !ok {
		return Loan{}, false
	}
	return *l, true
}
