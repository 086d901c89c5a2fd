/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Validation is done in handlers and in the engine, not in DTOs.
  DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"github.com/shelfwise/lending-engine/lending"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// BorrowRequest starts a new loan.
type BorrowRequest struct {
	UserID     string `json:"user_id"`
	BookID     string `json:"book_id"`
	PeriodDays int    `json:"period_days,omitempty"`
	Notes      string `json:"notes,omitempty"`
}

// ReturnRequest closes a loan.
type ReturnRequest struct {
	IsLost bool   `json:"is_lost,omitempty"`
	Notes  string `json:"notes,omitempty"`
}

// RenewRequest extends a loan.
type RenewRequest struct {
	AdditionalDays int `json:"additional_days"`
}

// AdjustInventoryRequest sets a book's total copies directly.
type AdjustInventoryRequest struct {
	TotalCopies int `json:"total_copies"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// LoanDTO represents a loan in API responses.
type LoanDTO struct {
	ID           string `json:"id"`
	UserID       string `json:"user_id"`
	BookID       string `json:"book_id"`
	BorrowDate   string `json:"borrow_date"`
	DueDate      string `json:"due_date"`
	ReturnDate   string `json:"return_date,omitempty"`
	Status       string `json:"status"`
	FineAmount   string `json:"fine_amount"`
	RenewalCount int    `json:"renewal_count"`
	MaxRenewals  int    `json:"max_renewals"`
	Notes        string `json:"notes,omitempty"`
	IssuedBy     string `json:"issued_by,omitempty"`
	ReturnedTo   string `json:"returned_to,omitempty"`
}

func toLoanDTO(l lending.Loan) LoanDTO {
	dto := LoanDTO{
		ID:           string(l.ID),
		UserID:       string(l.UserID),
		BookID:       string(l.BookID),
		BorrowDate:   l.BorrowDate.String(),
		DueDate:      l.DueDate.String(),
		Status:       string(l.Status),
		FineAmount:   l.FineAmount.String(),
		RenewalCount: l.RenewalCount,
		MaxRenewals:  l.MaxRenewals,
		Notes:        l.Notes,
		IssuedBy:     l.IssuedBy,
		ReturnedTo:   l.ReturnedTo,
	}
	if l.ReturnDate != nil {
		dto.ReturnDate = l.ReturnDate.String()
	}
	return dto
}

func toLoanDTOs(loans []lending.Loan) []LoanDTO {
	dtos := make([]LoanDTO, 0, len(loans))
	for _, l := range loans {
		dtos = append(dtos, toLoanDTO(l))
	}
	return dtos
}

// BookDTO represents a book after an inventory adjustment.
type BookDTO struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	TotalCopies     int    `json:"total_copies"`
	AvailableCopies int    `json:"available_copies"`
	Status          string `json:"status"`
	IsActive        bool   `json:"is_active"`
}

func toBookDTO(b lending.Book) BookDTO {
	return BookDTO{
		ID:              string(b.ID),
		Title:           b.Title,
		TotalCopies:     b.TotalCopies,
		AvailableCopies: b.AvailableCopies,
		Status:          string(b.Status),
		IsActive:        b.IsActive,
	}
}

// EligibilityDTO is the advisory can-borrow decision.
type EligibilityDTO struct {
	CanBorrow bool   `json:"can_borrow"`
	Reason    string `json:"reason,omitempty"`
}

// StatsDTO is the library-wide aggregate projection.
type StatsDTO struct {
	TotalLoans     int            `json:"total_loans"`
	OpenLoans      int            `json:"open_loans"`
	LoansByStatus  map[string]int `json:"loans_by_status"`
	TotalFines     string         `json:"total_fines"`
	LoansWithFines int            `json:"loans_with_fines"`
}

func toStatsDTO(s lending.LibraryStats) StatsDTO {
	byStatus := make(map[string]int, len(s.LoansByStatus))
	for status, count := range s.LoansByStatus {
		byStatus[string(status)] = count
	}
	return StatsDTO{
		TotalLoans:     s.TotalLoans,
		OpenLoans:      s.OpenLoans,
		LoansByStatus:  byStatus,
		TotalFines:     s.TotalFines.String(),
		LoansWithFines: s.LoansWithFines,
	}
}

// OverdueStatsDTO is the overdue aggregate projection.
type OverdueStatsDTO struct {
	TotalOverdue   int    `json:"total_overdue"`
	UniqueUsers    int    `json:"unique_users"`
	AvgDaysOverdue string `json:"avg_days_overdue"`
	TotalFines     string `json:"total_fines"`
}

// UserFinesDTO is one entry of the outstanding-fines report.
type UserFinesDTO struct {
	UserID     string `json:"user_id"`
	TotalFines string `json:"total_fines"`
	LoanCount  int    `json:"loan_count"`
}

// BookBorrowStatsDTO is one entry of the most-borrowed report.
type BookBorrowStatsDTO struct {
	BookID          string `json:"book_id"`
	Title           string `json:"title,omitempty"`
	TotalBorrows    int    `json:"total_borrows"`
	UniqueBorrowers int    `json:"unique_borrowers"`
}

// MonthlyLoanStatsDTO is one month of borrowing volume.
type MonthlyLoanStatsDTO struct {
	Month string `json:"month"`
	Loans int    `json:"loans"`
}

// SweepResultDTO summarizes a manually triggered sweep.
type SweepResultDTO struct {
	MarkedOverdue int `json:"marked_overdue"`
	FinesUpdated  int `json:"fines_updated"`
	Skipped       int `json:"skipped"`
}

// ErrorResponse is the uniform error payload.
type ErrorResponse struct {
	Error string `json:"error"`
}
