package lending

import "github.com/shopspring/decimal"

// =============================================================================
// ELIGIBILITY VALIDATOR - Pure decision: may this user start this loan now?
// =============================================================================

// EligibilityValidator decides whether a user may start a new loan for a
// book as of now. Read-only: the service gathers the inputs (open-loan
// count, outstanding fines) and the validator only judges them. Passing
// here is advisory; the authoritative availability check is still the
// atomic precondition inside CopyLedger.ReserveCopy.
type EligibilityValidator struct {
	// FineThreshold is the outstanding-fine amount above which new
	// borrowing is blocked. The default (zero) blocks on any positive fine.
	FineThreshold decimal.Decimal
}

// Validate runs all borrow preconditions, failing with an EligibilityError
// naming the first check that did not hold.
func (v EligibilityValidator) Validate(user User, book Book, openLoans int, outstandingFines decimal.Decimal) error {
	fail := func(reason EligibilityReason) error {
		return &EligibilityError{UserID: user.ID, BookID: book.ID, Reason: reason}
	}

	if !user.IsActive {
		return fail(ReasonUserInactive)
	}
	if !book.IsActive {
		return fail(ReasonBookInactive)
	}
	if !book.IsAvailable() {
		return fail(ReasonBookUnavailable)
	}
	if openLoans >= user.MaxBooksAllowed {
		return fail(ReasonBorrowLimit)
	}
	if outstandingFines.GreaterThan(v.FineThreshold) {
		return fail(ReasonOutstandingFines)
	}
	return nil
}
