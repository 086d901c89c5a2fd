/*
loan.go - Loan lifecycle state machine

PURPOSE:
  Owns the lifecycle of one borrowing record. All transitions are pure
  functions on a Loan value: they return the updated value plus a typed
  error, never touching shared state. Persisting the result through a
  conditional update keyed on the prior status is the caller's job
  (see LoanStore.UpdateLoanIf).

STATES:
  BORROWED ──renew──▶ RENEWED
     │                   │
     │  ┌────────────────┘
     ▼  ▼
  OVERDUE  (time-triggered, sweeper only)
     │
     ├──return──▶ RETURNED  (terminal)
     └──lost────▶ LOST      (terminal)

  RETURNED and LOST are reachable from any of BORROWED/RENEWED/OVERDUE.
  A loan is never deleted; terminal states are immutable.

GUARDS:
  - Renew: only from BORROWED, not past due, RenewalCount < MaxRenewals
  - MarkOverdue: only from BORROWED/RENEWED when past due; calling it
    while already OVERDUE is the one permitted silent no-op
  - Return: only from open statuses; repeated return fails
  - MarkLost: from any open status; replacement value overrides any
    previously accrued overdue fine

SEE ALSO:
  - fine.go: fine amounts computed on return and during accrual
  - sweeper.go: drives MarkOverdue and AccrueFine in batch
*/
package lending

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// NewLoan creates a loan in BORROWED state. periodDays must be positive;
// callers apply DefaultBorrowingPeriodDays before calling when the period
// was not supplied.
func NewLoan(userID UserID, bookID BookID, borrowDate Date, periodDays int) (Loan, error) {
	if userID == "" || bookID == "" {
		return Loan{}, fmt.Errorf("%w: user and book ids are required", ErrInvalidInput)
	}
	if periodDays <= 0 {
		return Loan{}, fmt.Errorf("%w: borrowing period must be positive, got %d", ErrInvalidInput, periodDays)
	}

	return Loan{
		UserID:       userID,
		BookID:       bookID,
		BorrowDate:   borrowDate,
		DueDate:      borrowDate.AddDays(periodDays),
		Status:       LoanBorrowed,
		FineAmount:   decimal.Zero,
		RenewalCount: 0,
		MaxRenewals:  DefaultMaxRenewals,
	}, nil
}

// Renew extends the due date by additionalDays and moves the loan to
// RENEWED. A loan already renewed or overdue is not renewable again.
func (l Loan) Renew(today Date, additionalDays int) (Loan, error) {
	if additionalDays <= 0 {
		return l, fmt.Errorf("%w: renewal period must be positive, got %d", ErrInvalidInput, additionalDays)
	}
	if l.Status != LoanBorrowed {
		sentinel := ErrRenewalNotAllowed
		if l.Status.IsTerminal() {
			sentinel = ErrLoanClosed
		}
		return l, &InvalidTransitionError{LoanID: l.ID, From: l.Status, Attempted: "renew", Sentinel: sentinel}
	}
	if l.RenewalCount >= l.MaxRenewals {
		return l, &InvalidTransitionError{LoanID: l.ID, From: l.Status, Attempted: "renew", Sentinel: ErrRenewalNotAllowed}
	}
	if today.After(l.DueDate) {
		// Overdue in fact, even if the sweeper has not flipped the status yet.
		return l, &InvalidTransitionError{LoanID: l.ID, From: l.Status, Attempted: "renew", Sentinel: ErrRenewalNotAllowed}
	}

	l.DueDate = l.DueDate.AddDays(additionalDays)
	l.RenewalCount++
	l.Status = LoanRenewed
	return l, nil
}

// MarkOverdue moves a past-due open loan to OVERDUE. Returns the updated
// loan and whether a transition happened. Calling it while the loan is
// already OVERDUE is a no-op; any other disallowed case is an error.
func (l Loan) MarkOverdue(today Date) (Loan, bool, error) {
	switch l.Status {
	case LoanOverdue:
		return l, false, nil
	case LoanBorrowed, LoanRenewed:
		if !today.After(l.DueDate) {
			return l, false, &InvalidTransitionError{LoanID: l.ID, From: l.Status, Attempted: "mark overdue before due date", Sentinel: ErrInvalidInput}
		}
		l.Status = LoanOverdue
		return l, true, nil
	default:
		return l, false, &InvalidTransitionError{LoanID: l.ID, From: l.Status, Attempted: "mark overdue", Sentinel: ErrLoanClosed}
	}
}

// AccrueFine recomputes the accruing fine on an OVERDUE loan as of today.
// The result is monotonic non-decreasing because the evaluation date only
// moves forward.
func (l Loan) AccrueFine(today Date, policy FinePolicy) (Loan, error) {
	if l.Status != LoanOverdue {
		return l, &InvalidTransitionError{LoanID: l.ID, From: l.Status, Attempted: "accrue fine", Sentinel: ErrLoanClosed}
	}
	fine := Fine(l.DueDate, today, policy)
	if fine.GreaterThan(l.FineAmount) {
		l.FineAmount = fine
	}
	return l, nil
}

// Return closes the loan as RETURNED. If the return is late the final fine
// is computed from the actual return date; otherwise the last accrued value
// stands (zero if the loan was never overdue).
func (l Loan) Return(today Date, policy FinePolicy) (Loan, error) {
	switch l.Status {
	case LoanReturned:
		return l, &InvalidTransitionError{LoanID: l.ID, From: l.Status, Attempted: "return", Sentinel: ErrAlreadyReturned}
	case LoanLost:
		return l, &InvalidTransitionError{LoanID: l.ID, From: l.Status, Attempted: "return", Sentinel: ErrLoanClosed}
	}

	if today.After(l.DueDate) {
		fine := Fine(l.DueDate, today, policy)
		if fine.GreaterThan(l.FineAmount) {
			l.FineAmount = fine
		}
	}
	returned := today
	l.ReturnDate = &returned
	l.Status = LoanReturned
	return l, nil
}

// MarkLost closes the loan as LOST with the replacement value as the final
// fine, overriding any previously accrued overdue fine.
func (l Loan) MarkLost(today Date, replacementValue decimal.Decimal) (Loan, error) {
	switch l.Status {
	case LoanReturned:
		return l, &InvalidTransitionError{LoanID: l.ID, From: l.Status, Attempted: "mark lost", Sentinel: ErrAlreadyReturned}
	case LoanLost:
		return l, &InvalidTransitionError{LoanID: l.ID, From: l.Status, Attempted: "mark lost", Sentinel: ErrLoanClosed}
	}

	lost := today
	l.ReturnDate = &lost
	l.Status = LoanLost
	l.FineAmount = replacementValue
	return l, nil
}
