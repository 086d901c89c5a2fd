/*
errors.go - Centralized error types for the lending engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  The taxonomy follows the failure classes of the engine:

  1. Validation errors   - bad input, nothing touched
  2. Eligibility errors  - borrow preconditions failed, nothing mutated
  3. Contention errors   - a conditional update found the state changed;
                           expected and recoverable, not a system failure
  4. Transition errors   - a loan is not in a state that allows the
                           attempted operation
  5. Not-found errors    - unknown loan/book/user id
  6. Authorization errors- caller is neither the loan owner nor an admin

PROPAGATION:
  All of the above are recovered at the LendingService boundary and
  returned typed to the caller. Only infrastructure failures (store
  unavailable) propagate as plain wrapped errors.

USAGE:
  The HTTP layer maps errors to status codes with the classifier
  helpers:

    if lending.IsNotFound(err) { ... 404 ... }
    if errors.Is(err, lending.ErrAlreadyReturned) { ... 409 ... }

SEE ALSO:
  - loan.go: transitions producing InvalidTransitionError
  - eligibility.go: EligibilityError
  - service.go: error recovery boundary
*/
package lending

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidInput is returned for malformed commands (missing ids,
	// non-positive periods). Nothing is mutated.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotEligible is returned when a borrow precondition fails.
	// Safe to retry once the underlying condition changes.
	ErrNotEligible = errors.New("user not eligible to borrow")

	// ErrBookNotAvailable is returned when ReserveCopy finds no copy to
	// reserve, including the race where eligibility passed but another
	// borrower took the last copy first.
	ErrBookNotAvailable = errors.New("book not available")

	// ErrRenewalNotAllowed is returned when a loan cannot be renewed:
	// renewal limit reached, loan overdue, or not in BORROWED state.
	ErrRenewalNotAllowed = errors.New("renewal not allowed")

	// ErrAlreadyReturned is returned on a repeated return of the same loan.
	ErrAlreadyReturned = errors.New("loan already returned")

	// ErrLoanClosed is returned when an operation is attempted on a loan
	// in a terminal state (RETURNED or LOST).
	ErrLoanClosed = errors.New("loan is closed")

	// ErrConcurrentModification is returned when a conditional update
	// lost a race: the loan's status changed between load and store.
	// Callers should re-query before deciding anything.
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// ErrInventoryInvariant is returned when a direct inventory adjustment
	// would break available-copies accounting against open loans.
	ErrInventoryInvariant = errors.New("inventory adjustment violates copy accounting")

	// ErrNotAuthorized is returned when the actor is neither the loan's
	// owner nor an admin.
	ErrNotAuthorized = errors.New("not authorized")

	ErrLoanNotFound = errors.New("loan not found")
	ErrBookNotFound = errors.New("book not found")
	ErrUserNotFound = errors.New("user not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// EligibilityReason identifies which borrow precondition failed.
type EligibilityReason string

const (
	ReasonUserInactive     EligibilityReason = "user_inactive"
	ReasonBookInactive     EligibilityReason = "book_inactive"
	ReasonBookUnavailable  EligibilityReason = "book_unavailable"
	ReasonBorrowLimit      EligibilityReason = "borrow_limit_reached"
	ReasonOutstandingFines EligibilityReason = "outstanding_fines"
)

// EligibilityError reports a failed borrow precondition.
type EligibilityError struct {
	UserID UserID
	BookID BookID
	Reason EligibilityReason
}

func (e *EligibilityError) Error() string {
	return fmt.Sprintf("user %s cannot borrow book %s: %s", e.UserID, e.BookID, e.Reason)
}

func (e *EligibilityError) Unwrap() error { return ErrNotEligible }

// InvalidTransitionError reports a disallowed loan state transition.
// Sentinel identifies the failure class (ErrAlreadyReturned,
// ErrRenewalNotAllowed, ErrLoanClosed).
type InvalidTransitionError struct {
	LoanID    LoanID
	From      LoanStatus
	Attempted string
	Sentinel  error
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("loan %s: cannot %s from status %s", e.LoanID, e.Attempted, e.From)
}

func (e *InvalidTransitionError) Unwrap() error { return e.Sentinel }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrLoanNotFound) ||
		errors.Is(err, ErrBookNotFound) ||
		errors.Is(err, ErrUserNotFound)
}

// IsConflict returns true for expected, recoverable contention outcomes:
// lost races, exhausted inventory, incompatible loan state.
func IsConflict(err error) bool {
	return errors.Is(err, ErrBookNotAvailable) ||
		errors.Is(err, ErrConcurrentModification) ||
		errors.Is(err, ErrAlreadyReturned) ||
		errors.Is(err, ErrRenewalNotAllowed) ||
		errors.Is(err, ErrLoanClosed) ||
		errors.Is(err, ErrInventoryInvariant)
}

// IsClientError returns true if the error is due to the caller's input or
// state rather than an infrastructure failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrNotEligible) ||
		errors.Is(err, ErrNotAuthorized) ||
		IsNotFound(err) ||
		IsConflict(err)
}

// IsRetryable returns true if the operation might succeed if re-attempted
// after re-querying current state.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification) ||
		errors.Is(err, ErrBookNotAvailable)
}
