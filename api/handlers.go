/*
handlers.go - HTTP handlers for the lending engine

PURPOSE:
  Exposes the lending engine via REST. Handles HTTP request/response,
  JSON serialization, and delegates every decision to the engine.

ENDPOINTS:
  Loans:
    POST   /api/loans                 Borrow a book
    POST   /api/loans/{id}/return     Return a book
    POST   /api/loans/{id}/renew      Renew a loan
    POST   /api/loans/{id}/lost       Mark the copy lost
    GET    /api/loans/{id}            Loan by id
    GET    /api/loans/overdue         All overdue loans (admin)

  Users:
    GET    /api/users/{id}/loans      Open loans for a user
    GET    /api/users/{id}/history    Borrowing history
    GET    /api/users/{id}/can-borrow/{bookID}  Advisory eligibility

  Stats:
    GET    /api/stats                 Library statistics (admin)
    GET    /api/stats/overdue         Overdue statistics (admin)
    GET    /api/stats/fines           Users with outstanding fines (admin)
    GET    /api/stats/top-books       Most borrowed books (admin)
    GET    /api/stats/trends          Monthly borrowing volume (admin)

  Admin:
    POST   /api/admin/sweep           Run the overdue sweep now
    POST   /api/admin/books/{id}/inventory  Adjust total copies

CALLER IDENTITY:
  Authentication is an external collaborator. The transport reads the
  authenticated identity from X-Actor-ID / X-Actor-Role headers and
  threads it into the engine as an explicit Actor; the engine enforces
  ownership, nothing else.

ERROR HANDLING:
  Errors map to status codes via the engine's classifiers:
  - 400: validation errors
  - 401: missing caller identity
  - 403: authorization errors
  - 404: unknown loan/book/user
  - 409: contention (no copy left, lost race, incompatible loan state)
  - 422: eligibility rejections
  - 500: infrastructure failures

SEE ALSO:
  - dto.go: request/response shapes
  - server.go: router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/shelfwise/lending-engine/lending"
)

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service *lending.LendingService
	Sweeper *lending.OverdueSweeper
}

func NewHandler(svc *lending.LendingService, sweeper *lending.OverdueSweeper) *Handler {
	return &Handler{Service: svc, Sweeper: sweeper}
}

// =============================================================================
// LOAN COMMANDS
// =============================================================================

func (h *Handler) BorrowBook(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing caller identity")
		return
	}

	var req BorrowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	loan, err := h.Service.BorrowBook(r.Context(), actor, lending.BorrowCommand{
		UserID:     lending.UserID(req.UserID),
		BookID:     lending.BookID(req.BookID),
		PeriodDays: req.PeriodDays,
		Notes:      req.Notes,
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toLoanDTO(loan))
}

func (h *Handler) ReturnBook(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing caller identity")
		return
	}

	var req ReturnRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
	}

	loan, err := h.Service.ReturnBook(r.Context(), actor,
		lending.LoanID(chi.URLParam(r, "id")),
		lending.ReturnCommand{IsLost: req.IsLost, Notes: req.Notes})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toLoanDTO(loan))
}

func (h *Handler) RenewBook(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing caller identity")
		return
	}

	var req RenewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	loan, err := h.Service.RenewBook(r.Context(), actor, lending.LoanID(chi.URLParam(r, "id")), req.AdditionalDays)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toLoanDTO(loan))
}

func (h *Handler) MarkBookAsLost(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing caller identity")
		return
	}

	var req ReturnRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
	}

	loan, err := h.Service.MarkBookAsLost(r.Context(), actor, lending.LoanID(chi.URLParam(r, "id")), req.Notes)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toLoanDTO(loan))
}

// =============================================================================
// LOAN QUERIES
// =============================================================================

func (h *Handler) GetLoan(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing caller identity")
		return
	}

	loan, err := h.Service.GetLoan(r.Context(), actor, lending.LoanID(chi.URLParam(r, "id")))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toLoanDTO(loan))
}

func (h *Handler) OverdueLoans(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing caller identity")
		return
	}

	loans, err := h.Service.OverdueLoans(r.Context(), actor)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toLoanDTOs(loans))
}

func (h *Handler) UserOpenLoans(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing caller identity")
		return
	}

	loans, err := h.Service.UserOpenLoans(r.Context(), actor, lending.UserID(chi.URLParam(r, "id")))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toLoanDTOs(loans))
}

func (h *Handler) UserHistory(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing caller identity")
		return
	}

	loans, err := h.Service.UserBorrowingHistory(r.Context(), actor, lending.UserID(chi.URLParam(r, "id")))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toLoanDTOs(loans))
}

func (h *Handler) CanBorrow(w http.ResponseWriter, r *http.Request) {
	can, reason, err := h.Service.CanBorrow(r.Context(),
		lending.UserID(chi.URLParam(r, "id")),
		lending.BookID(chi.URLParam(r, "bookID")))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, EligibilityDTO{CanBorrow: can, Reason: string(reason)})
}

// =============================================================================
// STATISTICS
// =============================================================================

func (h *Handler) Statistics(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing caller identity")
		return
	}

	stats, err := h.Service.Statistics(r.Context(), actor)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toStatsDTO(stats))
}

func (h *Handler) OverdueStatistics(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing caller identity")
		return
	}

	stats, err := h.Service.OverdueStatistics(r.Context(), actor)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, OverdueStatsDTO{
		TotalOverdue:   stats.TotalOverdue,
		UniqueUsers:    stats.UniqueUsers,
		AvgDaysOverdue: stats.AvgDaysOverdue.StringFixed(2),
		TotalFines:     stats.TotalFines.String(),
	})
}

func (h *Handler) UsersWithFines(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing caller identity")
		return
	}

	summaries, err := h.Service.UsersWithOutstandingFines(r.Context(), actor)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	dtos := make([]UserFinesDTO, 0, len(summaries))
	for _, s := range summaries {
		dtos = append(dtos, UserFinesDTO{
			UserID:     string(s.UserID),
			TotalFines: s.TotalFines.String(),
			LoanCount:  s.LoanCount,
		})
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) MostBorrowedBooks(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing caller identity")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	books, err := h.Service.MostBorrowedBooks(r.Context(), actor, limit)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	dtos := make([]BookBorrowStatsDTO, 0, len(books))
	for _, b := range books {
		dtos = append(dtos, BookBorrowStatsDTO{
			BookID:          string(b.BookID),
			Title:           b.Title,
			TotalBorrows:    b.TotalBorrows,
			UniqueBorrowers: b.UniqueBorrowers,
		})
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) BorrowingTrends(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing caller identity")
		return
	}

	months, _ := strconv.Atoi(r.URL.Query().Get("months"))
	trends, err := h.Service.BorrowingTrends(r.Context(), actor, months)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	dtos := make([]MonthlyLoanStatsDTO, 0, len(trends))
	for _, m := range trends {
		dtos = append(dtos, MonthlyLoanStatsDTO{Month: m.Month, Loans: m.Loans})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// ADMIN
// =============================================================================

func (h *Handler) RunSweep(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing caller identity")
		return
	}
	if !actor.IsAdmin() {
		writeError(w, http.StatusForbidden, "admin only")
		return
	}

	result, err := h.Sweeper.RunOverdueSweep(r.Context())
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SweepResultDTO{
		MarkedOverdue: result.MarkedOverdue,
		FinesUpdated:  result.FinesUpdated,
		Skipped:       result.Skipped,
	})
}

func (h *Handler) AdjustInventory(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing caller identity")
		return
	}

	var req AdjustInventoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	book, err := h.Service.AdjustInventory(r.Context(), actor,
		lending.BookID(chi.URLParam(r, "id")), req.TotalCopies)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookDTO(book))
}

// =============================================================================
// HELPERS
// =============================================================================

// actorFrom reads the authenticated identity the auth collaborator put on
// the request. Unknown roles default to MEMBER.
func actorFrom(r *http.Request) (lending.Actor, bool) {
	id := r.Header.Get("X-Actor-ID")
	if id == "" {
		return lending.Actor{}, false
	}
	role := lending.RoleMember
	if strings.EqualFold(r.Header.Get("X-Actor-Role"), string(lending.RoleAdmin)) {
		role = lending.RoleAdmin
	}
	return lending.Actor{ID: lending.UserID(id), Role: role}, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// writeEngineError maps engine errors to HTTP status codes.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, lending.ErrNotAuthorized):
		writeError(w, http.StatusForbidden, err.Error())
	case lending.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, lending.ErrNotEligible):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case lending.IsConflict(err):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, lending.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
