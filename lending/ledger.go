/*
ledger.go - Copy counter contract and derived book status

PURPOSE:
  The CopyLedger is the sole authority for mutating a book's
  availableCopies/status pair. It guarantees the central invariant

      availableCopies == totalCopies - count of open loans

  under concurrent callers.

WHY CONDITIONAL OPERATIONS?
  A naive "read availableCopies, branch, write" is a classic race: two
  concurrent borrowers both read 1, both decide "available", both write 0,
  and one copy has been lent twice. The contract therefore requires the
  precondition and the counter change to be one atomic operation:

  - memory store: the check and the decrement happen under one mutex
  - sqlite store: a single conditional UPDATE guarded by the precondition,
    success decided by rows-affected

  ReserveCopy/ReleaseCopy returning false is NOT an error. It is the
  expected signal of lost contention or exhausted inventory; callers must
  treat it as "operation did not happen" and re-validate, never retry
  blindly.

SEE ALSO:
  - store.go: the full Store interface the ledger belongs to
  - store/memory.go, store/sqlite: implementations
*/
package lending

import "context"

// CopyLedger owns the available/total copy counters for books.
type CopyLedger interface {
	// ReserveCopy atomically decrements availableCopies if, at the instant
	// of mutation, the book is active and a copy is available. The derived
	// status change happens inside the same atomic mutation.
	// Returns (false, nil) when the precondition does not hold.
	ReserveCopy(ctx context.Context, bookID BookID) (bool, error)

	// ReleaseCopy atomically increments availableCopies if it is below
	// totalCopies, flipping a BORROWED status back to AVAILABLE. Manually
	// set statuses (MAINTENANCE, DAMAGED, LOST) are left untouched.
	// Returns (false, nil) when the book is already at full availability.
	ReleaseCopy(ctx context.Context, bookID BookID) (bool, error)

	// AdjustInventory sets totalCopies directly (an admin operation) while
	// preserving copy accounting: availableCopies becomes
	// totalCopies - open loans, and the adjustment is rejected with
	// ErrInventoryInvariant if totalCopies < open loans.
	AdjustInventory(ctx context.Context, bookID BookID, totalCopies int) (Book, error)
}

// DeriveStatus is the pure derived-status function, invoked inside the same
// atomic mutation as the counter change, never computed from stale data.
// Exhausting the last copy forces BORROWED; releasing into a BORROWED book
// restores AVAILABLE. Externally set statuses are never auto-overridden.
func DeriveStatus(previous BookStatus, availableCopies int) BookStatus {
	switch previous {
	case BookAvailable:
		if availableCopies == 0 {
			return BookBorrowed
		}
	case BookBorrowed:
		if availableCopies > 0 {
			return BookAvailable
		}
	}
	return previous
}
