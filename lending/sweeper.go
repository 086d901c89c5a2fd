/*
sweeper.go - Periodic overdue batch pass

PURPOSE:
  The sweeper is the only time-triggered writer. One pass:

    phase 1: every BORROWED/RENEWED loan past due -> OVERDUE
    phase 2: every OVERDUE loan -> fine recomputed as of today

  Both phases persist through the same conditional-update discipline as
  user-initiated operations, so a sweep racing a return on the same loan
  loses cleanly: the conditional write observes the status changed and
  skips the loan. Re-running a sweep immediately is a no-op: transitions
  are idempotent and fine recomputation is monotonic.

SEE ALSO:
  - loan.go: MarkOverdue / AccrueFine
  - api/scheduler.go: runs this on a fixed cadence
*/
package lending

import (
	"context"
	"fmt"
	"log"
)

// SweepResult summarizes one sweep pass.
type SweepResult struct {
	MarkedOverdue int
	FinesUpdated  int
	Skipped       int // lost races with concurrent return/renew
}

type OverdueSweeper struct {
	Store Store
	Fines FinePolicy
	Now   func() Date
}

func NewOverdueSweeper(store Store) *OverdueSweeper {
	return &OverdueSweeper{Store: store, Fines: DefaultFinePolicy(), Now: Today}
}

// RunOverdueSweep executes one idempotent pass over all open loans.
// Per-loan conflicts are counted and skipped, never fatal; only store
// failures abort the pass.
func (sw *OverdueSweeper) RunOverdueSweep(ctx context.Context) (SweepResult, error) {
	today := sw.Now()
	var result SweepResult

	due, err := sw.Store.DueLoans(ctx, today)
	if err != nil {
		return result, fmt.Errorf("sweep: loading due loans: %w", err)
	}

	for _, loan := range due {
		updated, changed, err := loan.MarkOverdue(today)
		if err != nil || !changed {
			// Loaded state already moved on (returned, or not yet due
			// by the time we got here); nothing to write.
			result.Skipped++
			continue
		}
		// The overdue loan starts accruing immediately.
		if accrued, err := updated.AccrueFine(today, sw.Fines); err == nil {
			updated = accrued
		}
		ok, err := sw.Store.UpdateLoanIf(ctx, updated, LoanBorrowed, LoanRenewed)
		if err != nil {
			return result, fmt.Errorf("sweep: marking loan %s overdue: %w", loan.ID, err)
		}
		if !ok {
			result.Skipped++
			continue
		}
		result.MarkedOverdue++
	}

	overdue, err := sw.Store.OverdueLoans(ctx)
	if err != nil {
		return result, fmt.Errorf("sweep: loading overdue loans: %w", err)
	}

	for _, loan := range overdue {
		updated, err := loan.AccrueFine(today, sw.Fines)
		if err != nil {
			result.Skipped++
			continue
		}
		if updated.FineAmount.Equal(loan.FineAmount) {
			continue // already current, keep the pass idempotent
		}
		ok, err := sw.Store.UpdateLoanIf(ctx, updated, LoanOverdue)
		if err != nil {
			return result, fmt.Errorf("sweep: updating fine for loan %s: %w", loan.ID, err)
		}
		if !ok {
			result.Skipped++
			continue
		}
		result.FinesUpdated++
	}

	if result.MarkedOverdue > 0 || result.FinesUpdated > 0 {
		log.Printf("[Sweeper] Pass complete: %d marked overdue, %d fines updated, %d skipped",
			result.MarkedOverdue, result.FinesUpdated, result.Skipped)
	}
	return result, nil
}
