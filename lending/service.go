/*
service.go - LendingService orchestration

PURPOSE:
  Orchestrates the engine for the public use cases. The borrow path is
  deliberately two-phase:

    1. EligibilityValidator  - advisory, read-only pre-check
    2. CopyLedger.ReserveCopy - the authoritative atomic reservation
    3. LoanStateMachine.create + persist

  The validator can pass and ReserveCopy still fail (another borrower
  took the last copy between the two); that case surfaces as
  ErrBookNotAvailable, not as a system failure.

AUTHORIZATION:
  Every call carries an explicit Actor. Members act on their own loans;
  admins act on anyone's. Authentication itself is a collaborator; the
  engine only enforces ownership.

ERROR BOUNDARY:
  All rule failures are recovered here and returned typed. Only
  infrastructure failures (store unavailable) propagate as wrapped
  plain errors.

SEE ALSO:
  - loan.go: the transitions this service drives
  - sweeper.go: the independent batch writer
*/
package lending

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// COMMANDS
// =============================================================================

type BorrowCommand struct {
	UserID     UserID
	BookID     BookID
	PeriodDays int // 0 means DefaultBorrowingPeriodDays
	Notes      string
}

type ReturnCommand struct {
	IsLost bool
	Notes  string
}

// =============================================================================
// LENDING SERVICE
// =============================================================================

type LendingService struct {
	Store     Store
	Validator EligibilityValidator
	Fines     FinePolicy

	// Now supplies "today" and is swappable in tests.
	Now func() Date
}

func NewLendingService(store Store) *LendingService {
	return &LendingService{
		Store:     store,
		Validator: EligibilityValidator{FineThreshold: decimal.Zero},
		Fines:     DefaultFinePolicy(),
		Now:       Today,
	}
}

// BorrowBook starts a new loan: eligibility pre-check, atomic copy
// reservation, loan creation, persist.
func (s *LendingService) BorrowBook(ctx context.Context, actor Actor, cmd BorrowCommand) (Loan, error) {
	if cmd.UserID == "" || cmd.BookID == "" {
		return Loan{}, fmt.Errorf("%w: user and book ids are required", ErrInvalidInput)
	}
	if cmd.PeriodDays < 0 {
		return Loan{}, fmt.Errorf("%w: borrowing period must be positive, got %d", ErrInvalidInput, cmd.PeriodDays)
	}
	periodDays := cmd.PeriodDays
	if periodDays == 0 {
		periodDays = DefaultBorrowingPeriodDays
	}

	// Members borrow for themselves; admins may issue on behalf of anyone.
	if !actor.IsAdmin() && actor.ID != cmd.UserID {
		return Loan{}, fmt.Errorf("%w: cannot borrow on behalf of another user", ErrNotAuthorized)
	}

	user, err := s.Store.GetUser(ctx, cmd.UserID)
	if err != nil {
		return Loan{}, err
	}
	book, err := s.Store.GetBook(ctx, cmd.BookID)
	if err != nil {
		return Loan{}, err
	}
	openLoans, err := s.Store.OpenLoanCount(ctx, cmd.UserID)
	if err != nil {
		return Loan{}, err
	}
	fines, err := s.Store.OutstandingFines(ctx, cmd.UserID)
	if err != nil {
		return Loan{}, err
	}

	if err := s.Validator.Validate(user, book, openLoans, fines); err != nil {
		return Loan{}, err
	}

	// Authoritative availability decision. Eligibility passing does not
	// guarantee success: a concurrent borrower may take the last copy.
	reserved, err := s.Store.ReserveCopy(ctx, cmd.BookID)
	if err != nil {
		return Loan{}, err
	}
	if !reserved {
		return Loan{}, fmt.Errorf("%w: book %s", ErrBookNotAvailable, cmd.BookID)
	}

	loan, err := NewLoan(cmd.UserID, cmd.BookID, s.Now(), periodDays)
	if err != nil {
		// Invalid input detected after reservation; undo it.
		s.Store.ReleaseCopy(ctx, cmd.BookID)
		return Loan{}, err
	}
	loan.ID = LoanID(uuid.NewString())
	loan.Notes = cmd.Notes
	loan.IssuedBy = string(actor.ID)

	if err := s.Store.InsertLoan(ctx, loan); err != nil {
		// The reserved copy must not leak if the record cannot be written.
		s.Store.ReleaseCopy(ctx, cmd.BookID)
		return Loan{}, fmt.Errorf("failed to persist loan: %w", err)
	}

	return loan, nil
}

// ReturnBook closes a loan. A lost copy does not go back into circulation;
// a returned one releases its copy after the loan transition commits.
func (s *LendingService) ReturnBook(ctx context.Context, actor Actor, loanID LoanID, cmd ReturnCommand) (Loan, error) {
	loan, err := s.loadAuthorized(ctx, actor, loanID)
	if err != nil {
		return Loan{}, err
	}

	today := s.Now()
	var updated Loan
	if cmd.IsLost {
		book, err := s.Store.GetBook(ctx, loan.BookID)
		if err != nil {
			return Loan{}, err
		}
		updated, err = loan.MarkLost(today, ReplacementFine(book.Price, s.Fines))
		if err != nil {
			return Loan{}, err
		}
	} else {
		updated, err = loan.Return(today, s.Fines)
		if err != nil {
			return Loan{}, err
		}
	}

	updated.ReturnedTo = string(actor.ID)
	if cmd.Notes != "" {
		updated.Notes = cmd.Notes
	}

	// Conditional on the status we loaded: a racing return/sweep makes
	// this fail cleanly instead of double-finalizing.
	ok, err := s.Store.UpdateLoanIf(ctx, updated, loan.Status)
	if err != nil {
		return Loan{}, err
	}
	if !ok {
		return Loan{}, fmt.Errorf("%w: loan %s", ErrConcurrentModification, loanID)
	}

	if !cmd.IsLost {
		// False here means the book was already at full availability,
		// which indicates external inventory adjustment, not a failure
		// of this return.
		if _, err := s.Store.ReleaseCopy(ctx, loan.BookID); err != nil {
			return Loan{}, fmt.Errorf("loan %s returned but copy release failed: %w", loanID, err)
		}
	}

	return updated, nil
}

// MarkBookAsLost is ReturnBook with the lost path, kept as a separate
// entry point for the transport layer.
func (s *LendingService) MarkBookAsLost(ctx context.Context, actor Actor, loanID LoanID, notes string) (Loan, error) {
	return s.ReturnBook(ctx, actor, loanID, ReturnCommand{IsLost: true, Notes: notes})
}

// RenewBook extends a loan's due date. Renewal never touches availability.
func (s *LendingService) RenewBook(ctx context.Context, actor Actor, loanID LoanID, additionalDays int) (Loan, error) {
	loan, err := s.loadAuthorized(ctx, actor, loanID)
	if err != nil {
		return Loan{}, err
	}

	updated, err := loan.Renew(s.Now(), additionalDays)
	if err != nil {
		return Loan{}, err
	}

	ok, err := s.Store.UpdateLoanIf(ctx, updated, loan.Status)
	if err != nil {
		return Loan{}, err
	}
	if !ok {
		return Loan{}, fmt.Errorf("%w: loan %s", ErrConcurrentModification, loanID)
	}

	return updated, nil
}

// =============================================================================
// READ QUERIES
// =============================================================================

// GetLoan returns a loan by id, owner-or-admin only.
func (s *LendingService) GetLoan(ctx context.Context, actor Actor, loanID LoanID) (Loan, error) {
	return s.loadAuthorized(ctx, actor, loanID)
}

// UserOpenLoans returns the user's currently open loans.
func (s *LendingService) UserOpenLoans(ctx context.Context, actor Actor, userID UserID) ([]Loan, error) {
	if !actor.IsAdmin() && actor.ID != userID {
		return nil, fmt.Errorf("%w: cannot view another user's loans", ErrNotAuthorized)
	}
	return s.Store.OpenLoansByUser(ctx, userID)
}

// UserBorrowingHistory returns all of the user's loans, newest first.
func (s *LendingService) UserBorrowingHistory(ctx context.Context, actor Actor, userID UserID) ([]Loan, error) {
	if !actor.IsAdmin() && actor.ID != userID {
		return nil, fmt.Errorf("%w: cannot view another user's history", ErrNotAuthorized)
	}
	return s.Store.LoansByUser(ctx, userID)
}

// OverdueLoans returns every loan currently overdue. Admin only.
func (s *LendingService) OverdueLoans(ctx context.Context, actor Actor) ([]Loan, error) {
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: admin only", ErrNotAuthorized)
	}
	return s.Store.OverdueLoans(ctx)
}

// CanBorrow is the advisory eligibility query: the decision BorrowBook
// would make right now, without mutating anything. The returned reason is
// empty when borrowing would be allowed.
func (s *LendingService) CanBorrow(ctx context.Context, userID UserID, bookID BookID) (bool, EligibilityReason, error) {
	user, err := s.Store.GetUser(ctx, userID)
	if err != nil {
		return false, "", err
	}
	book, err := s.Store.GetBook(ctx, bookID)
	if err != nil {
		return false, "", err
	}
	openLoans, err := s.Store.OpenLoanCount(ctx, userID)
	if err != nil {
		return false, "", err
	}
	fines, err := s.Store.OutstandingFines(ctx, userID)
	if err != nil {
		return false, "", err
	}

	if err := s.Validator.Validate(user, book, openLoans, fines); err != nil {
		var elig *EligibilityError
		if errors.As(err, &elig) {
			return false, elig.Reason, nil
		}
		return false, "", err
	}
	return true, "", nil
}

// Statistics returns the library-wide aggregate projection. Admin only.
func (s *LendingService) Statistics(ctx context.Context, actor Actor) (LibraryStats, error) {
	if !actor.IsAdmin() {
		return LibraryStats{}, fmt.Errorf("%w: admin only", ErrNotAuthorized)
	}
	return s.Store.LibraryStatistics(ctx)
}

// OverdueStatistics returns the overdue aggregate projection. Admin only.
func (s *LendingService) OverdueStatistics(ctx context.Context, actor Actor) (OverdueStats, error) {
	if !actor.IsAdmin() {
		return OverdueStats{}, fmt.Errorf("%w: admin only", ErrNotAuthorized)
	}
	return s.Store.OverdueStatistics(ctx, s.Now())
}

// UsersWithOutstandingFines lists users blocked by unpaid fines. Admin only.
func (s *LendingService) UsersWithOutstandingFines(ctx context.Context, actor Actor) ([]UserFineSummary, error) {
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: admin only", ErrNotAuthorized)
	}
	return s.Store.UsersWithOutstandingFines(ctx)
}

// MostBorrowedBooks returns the top borrowed titles. Admin only.
func (s *LendingService) MostBorrowedBooks(ctx context.Context, actor Actor, limit int) ([]BookBorrowStats, error) {
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: admin only", ErrNotAuthorized)
	}
	if limit <= 0 {
		limit = 10
	}
	return s.Store.MostBorrowedBooks(ctx, limit)
}

// BorrowingTrends returns monthly loan volume, newest first. Admin only.
func (s *LendingService) BorrowingTrends(ctx context.Context, actor Actor, months int) ([]MonthlyLoanStats, error) {
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: admin only", ErrNotAuthorized)
	}
	if months <= 0 {
		months = 12
	}
	return s.Store.BorrowingTrends(ctx, months)
}

// =============================================================================
// INVENTORY ADJUSTMENT (admin)
// =============================================================================

// AdjustInventory sets a book's total copies directly, preserving copy
// accounting against open loans. Admin only.
func (s *LendingService) AdjustInventory(ctx context.Context, actor Actor, bookID BookID, totalCopies int) (Book, error) {
	if !actor.IsAdmin() {
		return Book{}, fmt.Errorf("%w: admin only", ErrNotAuthorized)
	}
	if totalCopies < 0 {
		return Book{}, fmt.Errorf("%w: total copies must be non-negative, got %d", ErrInvalidInput, totalCopies)
	}
	return s.Store.AdjustInventory(ctx, bookID, totalCopies)
}

// =============================================================================
// HELPERS
// =============================================================================

func (s *LendingService) loadAuthorized(ctx context.Context, actor Actor, loanID LoanID) (Loan, error) {
	if loanID == "" {
		return Loan{}, fmt.Errorf("%w: loan id is required", ErrInvalidInput)
	}
	loan, err := s.Store.GetLoan(ctx, loanID)
	if err != nil {
		return Loan{}, err
	}
	if !actor.CanActOn(loan) {
		return Loan{}, fmt.Errorf("%w: loan %s belongs to another user", ErrNotAuthorized, loanID)
	}
	return loan, nil
}
