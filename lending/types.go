/*
Package lending contains the core lending engine.

PURPOSE:
  This package owns the rules of lending: how many copies of a book are
  available, the lifecycle of a single loan, who is allowed to start a
  new loan, and how overdue fines are computed. Persistence and transport
  are collaborators behind interfaces; the engine only expresses the
  rules and the atomicity contract those collaborators must honor.

KEY CONCEPTS IN THIS FILE (types.go):
  - Book: the catalog record with its copy counters and derived status
  - User: the borrower attributes the engine reads for eligibility
  - Loan: one borrowing transaction (the core mutable entity)
  - Actor: explicit caller identity threaded into every service call

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal for fine amounts, never float64
  2. Type Safety: Strong typing for IDs prevents mixing user/book/loan IDs
  3. Explicit identity: No ambient "current user" context; every command
     carries the Actor performing it
  4. Value semantics: Loan transitions return updated values; shared
     state is mutated only through the store's atomic update operations

SEE ALSO:
  - loan.go: Loan lifecycle transitions
  - ledger.go: Copy counter contract and derived book status
  - fine.go: Fine calculation
  - service.go: Orchestration of borrow/return/renew
*/
package lending

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type UserID string
type BookID string
type LoanID string

// =============================================================================
// BOOK - Catalog record (engine mutates only the copy counters and status)
// =============================================================================

type BookStatus string

const (
	BookAvailable   BookStatus = "AVAILABLE"
	BookBorrowed    BookStatus = "BORROWED"
	BookReserved    BookStatus = "RESERVED"
	BookMaintenance BookStatus = "MAINTENANCE"
	BookLost        BookStatus = "LOST"
	BookDamaged     BookStatus = "DAMAGED"
)

type Book struct {
	ID     BookID
	Title  string
	Author string
	ISBN   string

	// Copy accounting. Invariant: 0 <= AvailableCopies <= TotalCopies,
	// and AvailableCopies == TotalCopies - count of open loans.
	TotalCopies     int
	AvailableCopies int

	Status   BookStatus
	IsActive bool

	// Replacement value for lost copies, when known.
	Price *decimal.Decimal
}

// IsAvailable reports whether the catalog considers this book borrowable.
// This is the optimistic pre-check; the authoritative decision is the
// conditional decrement in CopyLedger.ReserveCopy.
func (b Book) IsAvailable() bool {
	return b.IsActive && b.AvailableCopies > 0 && b.Status == BookAvailable
}

func (b Book) BorrowedCopies() int {
	return b.TotalCopies - b.AvailableCopies
}

// =============================================================================
// USER - Borrower attributes read for eligibility
// =============================================================================

type User struct {
	ID              UserID
	Name            string
	Email           string
	IsActive        bool
	MaxBooksAllowed int
}

// =============================================================================
// LOAN - One borrowing transaction
// =============================================================================

type LoanStatus string

const (
	LoanBorrowed LoanStatus = "BORROWED"
	LoanRenewed  LoanStatus = "RENEWED"
	LoanOverdue  LoanStatus = "OVERDUE"
	LoanReturned LoanStatus = "RETURNED"
	LoanLost     LoanStatus = "LOST"
)

// OpenLoanStatuses are the statuses in which the borrowed copy is still out.
var OpenLoanStatuses = []LoanStatus{LoanBorrowed, LoanRenewed, LoanOverdue}

func (s LoanStatus) IsOpen() bool {
	return s == LoanBorrowed || s == LoanRenewed || s == LoanOverdue
}

func (s LoanStatus) IsTerminal() bool {
	return s == LoanReturned || s == LoanLost
}

type Loan struct {
	ID     LoanID
	UserID UserID
	BookID BookID

	BorrowDate Date
	DueDate    Date
	ReturnDate *Date

	Status LoanStatus

	// FineAmount is monotonic non-decreasing while the loan is open and
	// fixed once the loan reaches a terminal status.
	FineAmount decimal.Decimal

	RenewalCount int
	MaxRenewals  int

	// Attribution, not semantically load-bearing.
	Notes      string
	IssuedBy   string
	ReturnedTo string
}

// IsOverdueAsOf reports whether the loan is past due and still open.
func (l Loan) IsOverdueAsOf(today Date) bool {
	return l.Status.IsOpen() && today.After(l.DueDate)
}

// DaysOverdueAsOf returns whole days past due, never negative.
func (l Loan) DaysOverdueAsOf(today Date) int {
	days := DaysBetween(l.DueDate, today)
	if days < 0 {
		return 0
	}
	return days
}

// =============================================================================
// ACTOR - Explicit caller identity (replaces ambient auth context)
// =============================================================================

type Role string

const (
	RoleMember Role = "MEMBER"
	RoleAdmin  Role = "ADMIN"
)

type Actor struct {
	ID   UserID
	Role Role
}

func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

// CanActOn reports whether the actor may operate on a loan: the loan's
// owner or an admin. Authentication itself is a collaborator concern;
// the engine only enforces ownership.
func (a Actor) CanActOn(l Loan) bool {
	return a.IsAdmin() || a.ID == l.UserID
}

// =============================================================================
// DEFAULTS - Lending policy constants
// =============================================================================

const (
	DefaultBorrowingPeriodDays = 14
	DefaultMaxRenewals         = 2
)
