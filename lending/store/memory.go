// Package store provides the in-memory Store implementation (tests/dev).
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/shelfwise/lending-engine/lending"
)

// =============================================================================
// MEMORY STORE - One mutex; check-and-mutate happens under it, which makes
// ReserveCopy/ReleaseCopy/UpdateLoanIf atomic with their preconditions.
// =============================================================================

type Memory struct {
	mu    sync.RWMutex
	books map[lending.BookID]lending.Book
	users map[lending.UserID]lending.User
	loans map[lending.LoanID]lending.Loan
	order []lending.LoanID // insertion order for stable listings
}

func NewMemory() *Memory {
	return &Memory{
		books: make(map[lending.BookID]lending.Book),
		users: make(map[lending.UserID]lending.User),
		loans: make(map[lending.LoanID]lending.Loan),
	}
}

// =============================================================================
// BOOKS / USERS
// =============================================================================

func (m *Memory) GetBook(_ context.Context, id lending.BookID) (lending.Book, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	b, ok := m.books[id]
	if !ok {
		return lending.Book{}, lending.ErrBookNotFound
	}
	return b, nil
}

func (m *Memory) SaveBook(_ context.Context, b lending.Book) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.books[b.ID] = b
	return nil
}

func (m *Memory) GetUser(_ context.Context, id lending.UserID) (lending.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return lending.User{}, lending.ErrUserNotFound
	}
	return u, nil
}

func (m *Memory) SaveUser(_ context.Context, u lending.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
	return nil
}

// =============================================================================
// COPY LEDGER
// =============================================================================

func (m *Memory) ReserveCopy(_ context.Context, bookID lending.BookID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.books[bookID]
	if !ok {
		return false, lending.ErrBookNotFound
	}
	if !b.IsActive || b.AvailableCopies <= 0 {
		return false, nil
	}
	b.AvailableCopies--
	b.Status = lending.DeriveStatus(b.Status, b.AvailableCopies)
	m.books[bookID] = b
	return true, nil
}

func (m *Memory) ReleaseCopy(_ context.Context, bookID lending.BookID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.books[bookID]
	if !ok {
		return false, lending.ErrBookNotFound
	}
	if b.AvailableCopies >= b.TotalCopies {
		return false, nil
	}
	b.AvailableCopies++
	b.Status = lending.DeriveStatus(b.Status, b.AvailableCopies)
	m.books[bookID] = b
	return true, nil
}

func (m *Memory) AdjustInventory(_ context.Context, bookID lending.BookID, totalCopies int) (lending.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.books[bookID]
	if !ok {
		return lending.Book{}, lending.ErrBookNotFound
	}

	open := 0
	for _, l := range m.loans {
		if l.BookID == bookID && l.Status.IsOpen() {
			open++
		}
	}
	if totalCopies < open {
		return lending.Book{}, lending.ErrInventoryInvariant
	}

	b.TotalCopies = totalCopies
	b.AvailableCopies = totalCopies - open
	b.Status = lending.DeriveStatus(b.Status, b.AvailableCopies)
	m.books[bookID] = b
	return b, nil
}

// =============================================================================
// LOANS
// =============================================================================

func (m *Memory) GetLoan(_ context.Context, id lending.LoanID) (lending.Loan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	l, ok := m.loans[id]
	if !ok {
		return lending.Loan{}, lending.ErrLoanNotFound
	}
	return l, nil
}

func (m *Memory) InsertLoan(_ context.Context, l lending.Loan) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.loans[l.ID] = l
	m.order = append(m.order, l.ID)
	return nil
}

func (m *Memory) UpdateLoanIf(_ context.Context, l lending.Loan, from ...lending.LoanStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.loans[l.ID]
	if !ok {
		return false, lending.ErrLoanNotFound
	}
	for _, status := range from {
		if current.Status == status {
			m.loans[l.ID] = l
			return true, nil
		}
	}
	return false, nil
}

func (m *Memory) LoansByUser(_ context.Context, userID lending.UserID) ([]lending.Loan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	loans := m.collect(func(l lending.Loan) bool { return l.UserID == userID })
	sort.SliceStable(loans, func(i, j int) bool { return loans[j].BorrowDate.Before(loans[i].BorrowDate) })
	return loans, nil
}

func (m *Memory) OpenLoansByUser(_ context.Context, userID lending.UserID) ([]lending.Loan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	loans := m.collect(func(l lending.Loan) bool { return l.UserID == userID && l.Status.IsOpen() })
	sort.SliceStable(loans, func(i, j int) bool { return loans[i].DueDate.Before(loans[j].DueDate) })
	return loans, nil
}

func (m *Memory) OpenLoanCount(_ context.Context, userID lending.UserID) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, l := range m.loans {
		if l.UserID == userID && l.Status.IsOpen() {
			count++
		}
	}
	return count, nil
}

func (m *Memory) LoansByBook(_ context.Context, bookID lending.BookID) ([]lending.Loan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.collect(func(l lending.Loan) bool { return l.BookID == bookID }), nil
}

func (m *Memory) LoansByStatus(_ context.Context, status lending.LoanStatus) ([]lending.Loan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.collect(func(l lending.Loan) bool { return l.Status == status }), nil
}

func (m *Memory) DueLoans(_ context.Context, asOf lending.Date) ([]lending.Loan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.collect(func(l lending.Loan) bool {
		return (l.Status == lending.LoanBorrowed || l.Status == lending.LoanRenewed) && l.DueDate.Before(asOf)
	}), nil
}

func (m *Memory) OverdueLoans(_ context.Context) ([]lending.Loan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.collect(func(l lending.Loan) bool { return l.Status == lending.LoanOverdue }), nil
}

func (m *Memory) OutstandingFines(_ context.Context, userID lending.UserID) (decimal.Decimal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	total := decimal.Zero
	for _, l := range m.loans {
		if l.UserID == userID && finedLoan(l) {
			total = total.Add(l.FineAmount)
		}
	}
	return total, nil
}

// collect returns loans matching pred in insertion order. Callers must
// hold at least the read lock.
func (m *Memory) collect(pred func(lending.Loan) bool) []lending.Loan {
	var result []lending.Loan
	for _, id := range m.order {
		if l, ok := m.loans[id]; ok && pred(l) {
			result = append(result, l)
		}
	}
	return result
}

// finedLoan reports whether a loan carries an outstanding (uncleared) fine.
// Fine settlement itself is a collaborator concern; until cleared, any
// positive fine on an overdue, lost, or late-returned loan counts.
func finedLoan(l lending.Loan) bool {
	if !l.FineAmount.IsPositive() {
		return false
	}
	return l.Status == lending.LoanOverdue || l.Status == lending.LoanLost || l.Status == lending.LoanReturned
}

// =============================================================================
// STATISTICS
// =============================================================================

func (m *Memory) LibraryStatistics(_ context.Context) (lending.LibraryStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := lending.LibraryStats{
		LoansByStatus: make(map[lending.LoanStatus]int),
		TotalFines:    decimal.Zero,
	}
	for _, l := range m.loans {
		stats.TotalLoans++
		stats.LoansByStatus[l.Status]++
		if l.Status.IsOpen() {
			stats.OpenLoans++
		}
		if l.FineAmount.IsPositive() {
			stats.LoansWithFines++
			stats.TotalFines = stats.TotalFines.Add(l.FineAmount)
		}
	}
	return stats, nil
}

func (m *Memory) OverdueStatistics(_ context.Context, asOf lending.Date) (lending.OverdueStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := lending.OverdueStats{
		AvgDaysOverdue: decimal.Zero,
		TotalFines:     decimal.Zero,
	}
	users := make(map[lending.UserID]bool)
	totalDays := 0
	for _, l := range m.loans {
		if l.Status != lending.LoanOverdue {
			continue
		}
		stats.TotalOverdue++
		users[l.UserID] = true
		totalDays += l.DaysOverdueAsOf(asOf)
		stats.TotalFines = stats.TotalFines.Add(l.FineAmount)
	}
	stats.UniqueUsers = len(users)
	if stats.TotalOverdue > 0 {
		stats.AvgDaysOverdue = decimal.NewFromInt(int64(totalDays)).
			Div(decimal.NewFromInt(int64(stats.TotalOverdue)))
	}
	return stats, nil
}

func (m *Memory) UsersWithOutstandingFines(_ context.Context) ([]lending.UserFineSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	totals := make(map[lending.UserID]*lending.UserFineSummary)
	for _, l := range m.loans {
		if !finedLoan(l) {
			continue
		}
		s, ok := totals[l.UserID]
		if !ok {
			s = &lending.UserFineSummary{UserID: l.UserID, TotalFines: decimal.Zero}
			totals[l.UserID] = s
		}
		s.TotalFines = s.TotalFines.Add(l.FineAmount)
		s.LoanCount++
	}

	result := make([]lending.UserFineSummary, 0, len(totals))
	for _, s := range totals {
		result = append(result, *s)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].TotalFines.GreaterThan(result[j].TotalFines) })
	return result, nil
}

func (m *Memory) BorrowingTrends(_ context.Context, months int) ([]lending.MonthlyLoanStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	byMonth := make(map[string]int)
	for _, l := range m.loans {
		byMonth[l.BorrowDate.Time.Format("2006-01")]++
	}

	result := make([]lending.MonthlyLoanStats, 0, len(byMonth))
	for month, count := range byMonth {
		result = append(result, lending.MonthlyLoanStats{Month: month, Loans: count})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Month > result[j].Month })
	if months > 0 && len(result) > months {
		result = result[:months]
	}
	return result, nil
}

func (m *Memory) MostBorrowedBooks(_ context.Context, limit int) ([]lending.BookBorrowStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	type agg struct {
		borrows int
		users   map[lending.UserID]bool
	}
	byBook := make(map[lending.BookID]*agg)
	for _, l := range m.loans {
		a, ok := byBook[l.BookID]
		if !ok {
			a = &agg{users: make(map[lending.UserID]bool)}
			byBook[l.BookID] = a
		}
		a.borrows++
		a.users[l.UserID] = true
	}

	result := make([]lending.BookBorrowStats, 0, len(byBook))
	for id, a := range byBook {
		stats := lending.BookBorrowStats{
			BookID:          id,
			TotalBorrows:    a.borrows,
			UniqueBorrowers: len(a.users),
		}
		if b, ok := m.books[id]; ok {
			stats.Title = b.Title
		}
		result = append(result, stats)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].TotalBorrows > result[j].TotalBorrows })
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}
