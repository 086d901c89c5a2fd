/*
store.go - Persistence interfaces for the lending engine

PURPOSE:
  Defines the interface between the engine and the database. The spec
  mandates no persistence engine, only the concurrency contract any
  implementation must honor:

  - per-book copy mutations are linearizable (CopyLedger)
  - per-loan transitions are linearizable (UpdateLoanIf, a conditional
    update keyed on the loan's current status)
  - operations on different books/loans proceed fully in parallel;
    no global lock

CONDITIONAL UPDATE DISCIPLINE:
  Every loan mutation goes through UpdateLoanIf(loan, fromStatuses...).
  The write succeeds only if the stored loan is still in one of the
  expected statuses. A return racing the sweeper's markOverdue therefore
  lands in a valid terminal state instead of corrupting fine accrual:
  whichever write loses the race observes ok=false and re-reads.

IMPLEMENTATIONS:
  - store/memory.go: in-memory, one mutex (tests/dev)
  - store/sqlite:    conditional UPDATEs, rows-affected as the signal

SEE ALSO:
  - ledger.go: CopyLedger contract
  - service.go: the only writer besides the sweeper
*/
package lending

import (
	"context"

	"github.com/shopspring/decimal"
)

// =============================================================================
// STORE INTERFACES
// =============================================================================

// BookStore supplies catalog records. Creation/edit of books is a
// collaborator concern; the engine only reads them and mutates copy
// counters through the CopyLedger.
type BookStore interface {
	GetBook(ctx context.Context, id BookID) (Book, error)
	SaveBook(ctx context.Context, b Book) error
}

// UserStore supplies the borrower attributes eligibility reads.
type UserStore interface {
	GetUser(ctx context.Context, id UserID) (User, error)
	SaveUser(ctx context.Context, u User) error
}

// LoanStore persists loans. Loans are never deleted.
type LoanStore interface {
	GetLoan(ctx context.Context, id LoanID) (Loan, error)
	InsertLoan(ctx context.Context, l Loan) error

	// UpdateLoanIf writes the loan only if its stored status is one of
	// `from`. Returns (false, nil) when the condition no longer holds,
	// signalling a lost race.
	UpdateLoanIf(ctx context.Context, l Loan, from ...LoanStatus) (bool, error)

	// Read projections.
	LoansByUser(ctx context.Context, userID UserID) ([]Loan, error)
	OpenLoansByUser(ctx context.Context, userID UserID) ([]Loan, error)
	OpenLoanCount(ctx context.Context, userID UserID) (int, error)
	LoansByBook(ctx context.Context, bookID BookID) ([]Loan, error)
	LoansByStatus(ctx context.Context, status LoanStatus) ([]Loan, error)

	// DueLoans returns loans still BORROWED/RENEWED whose due date is
	// before asOf (sweeper input, phase one).
	DueLoans(ctx context.Context, asOf Date) ([]Loan, error)

	// OverdueLoans returns all loans currently in OVERDUE status.
	OverdueLoans(ctx context.Context) ([]Loan, error)

	// OutstandingFines sums fines the user has not cleared: positive
	// fine amounts on loans that are overdue, lost, or returned late.
	OutstandingFines(ctx context.Context, userID UserID) (decimal.Decimal, error)
}

// StatsStore provides the aggregate read projections the reporting
// collaborator consumes. Read-only.
type StatsStore interface {
	LibraryStatistics(ctx context.Context) (LibraryStats, error)
	OverdueStatistics(ctx context.Context, asOf Date) (OverdueStats, error)
	UsersWithOutstandingFines(ctx context.Context) ([]UserFineSummary, error)
	MostBorrowedBooks(ctx context.Context, limit int) ([]BookBorrowStats, error)

	// BorrowingTrends returns monthly loan volume, newest month first,
	// at most `months` entries.
	BorrowingTrends(ctx context.Context, months int) ([]MonthlyLoanStats, error)
}

// Store is the full persistence surface the LendingService requires.
type Store interface {
	BookStore
	UserStore
	LoanStore
	CopyLedger
	StatsStore
}

// =============================================================================
// AGGREGATE PROJECTIONS
// =============================================================================

type LibraryStats struct {
	TotalLoans     int
	LoansByStatus  map[LoanStatus]int
	OpenLoans      int
	TotalFines     decimal.Decimal
	LoansWithFines int
}

type OverdueStats struct {
	TotalOverdue   int
	UniqueUsers    int
	AvgDaysOverdue decimal.Decimal
	TotalFines     decimal.Decimal
}

type UserFineSummary struct {
	UserID     UserID
	TotalFines decimal.Decimal
	LoanCount  int
}

type BookBorrowStats struct {
	BookID          BookID
	Title           string
	TotalBorrows    int
	UniqueBorrowers int
}

// MonthlyLoanStats is one month of borrowing volume, keyed "2006-01".
type MonthlyLoanStats struct {
	Month string
	Loans int
}
