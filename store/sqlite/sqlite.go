/*
Package sqlite provides the SQLite-backed implementation of lending.Store.

PURPOSE:
  Implements all persistence interfaces (BookStore, UserStore, LoanStore,
  CopyLedger, StatsStore) using SQLite. In production the same patterns
  apply to PostgreSQL - only minor SQL dialect differences.

ATOMICITY:
  The engine's concurrency contract is expressed as conditional UPDATEs:

  - ReserveCopy: single UPDATE guarded by
      is_active = 1 AND available_copies > 0
    with the derived status change in the same statement. Success is
    rows-affected = 1. Two concurrent borrowers of the last copy cannot
    both succeed.

  - UpdateLoanIf: UPDATE ... WHERE id = ? AND status IN (expected...).
    A return racing the sweeper's mark-overdue loses cleanly with
    rows-affected = 0.

  There is no global lock; rows for different books/loans contend only
  at the storage layer.

DECIMAL FIELDS:
  Fine amounts and prices are stored as decimal strings and summed in Go
  with shopspring/decimal, never as floats.

WAL MODE:
  SQLite is opened with WAL for better concurrency: readers don't block,
  one writer at a time, better crash recovery.

USAGE:
  store, err := sqlite.New("./lending.db")   // ":memory:" for tests
  defer store.Close()
  svc := lending.NewLendingService(store)

SEE ALSO:
  - lending/store.go: interface definitions and the update discipline
  - lending/store/memory.go: in-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/shelfwise/lending-engine/lending"
)

// Store implements lending.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a SQLite store. Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS books (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		author TEXT,
		isbn TEXT,
		total_copies INTEGER NOT NULL,
		available_copies INTEGER NOT NULL,
		status TEXT NOT NULL,
		is_active INTEGER NOT NULL DEFAULT 1,
		price TEXT,
		CHECK (available_copies >= 0),
		CHECK (available_copies <= total_copies)
	);

	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT,
		is_active INTEGER NOT NULL DEFAULT 1,
		max_books_allowed INTEGER NOT NULL DEFAULT 5
	);

	CREATE TABLE IF NOT EXISTS loans (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		book_id TEXT NOT NULL,
		borrow_date TEXT NOT NULL,
		due_date TEXT NOT NULL,
		return_date TEXT,
		status TEXT NOT NULL,
		fine_amount TEXT NOT NULL DEFAULT '0',
		renewal_count INTEGER NOT NULL DEFAULT 0,
		max_renewals INTEGER NOT NULL DEFAULT 2,
		notes TEXT,
		issued_by TEXT,
		returned_to TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_loans_user ON loans(user_id);
	CREATE INDEX IF NOT EXISTS idx_loans_book ON loans(book_id);
	CREATE INDEX IF NOT EXISTS idx_loans_status ON loans(status);
	CREATE INDEX IF NOT EXISTS idx_loans_due_date ON loans(due_date);
	CREATE INDEX IF NOT EXISTS idx_loans_user_status ON loans(user_id, status);
	`
	_, err := s.db.Exec(schema)
	return err
}

const openStatuses = "('BORROWED', 'RENEWED', 'OVERDUE')"

// =============================================================================
// BOOK STORE
// =============================================================================

func (s *Store) GetBook(ctx context.Context, id lending.BookID) (lending.Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, author, isbn, total_copies, available_copies, status, is_active, price
		FROM books WHERE id = ?`, id)
	return scanBook(row)
}

func (s *Store) SaveBook(ctx context.Context, b lending.Book) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var price sql.NullString
	if b.Price != nil {
		price = sql.NullString{String: b.Price.String(), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO books (id, title, author, isbn, total_copies, available_copies, status, is_active, price)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			author = excluded.author,
			isbn = excluded.isbn,
			total_copies = excluded.total_copies,
			available_copies = excluded.available_copies,
			status = excluded.status,
			is_active = excluded.is_active,
			price = excluded.price`,
		b.ID, b.Title, b.Author, b.ISBN, b.TotalCopies, b.AvailableCopies,
		string(b.Status), boolToInt(b.IsActive), price)
	return err
}

// =============================================================================
// USER STORE
// =============================================================================

func (s *Store) GetUser(ctx context.Context, id lending.UserID) (lending.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var u lending.User
	var active int
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, email, is_active, max_books_allowed FROM users WHERE id = ?`, id).
		Scan(&u.ID, &u.Name, &u.Email, &active, &u.MaxBooksAllowed)
	if err == sql.ErrNoRows {
		return lending.User{}, lending.ErrUserNotFound
	}
	if err != nil {
		return lending.User{}, fmt.Errorf("failed to load user: %w", err)
	}
	u.IsActive = active != 0
	return u, nil
}

func (s *Store) SaveUser(ctx context.Context, u lending.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, name, email, is_active, max_books_allowed)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			is_active = excluded.is_active,
			max_books_allowed = excluded.max_books_allowed`,
		u.ID, u.Name, u.Email, boolToInt(u.IsActive), u.MaxBooksAllowed)
	return err
}

// =============================================================================
// COPY LEDGER - Conditional updates; rows-affected is the success signal
// =============================================================================

func (s *Store) ReserveCopy(ctx context.Context, bookID lending.BookID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Precondition, decrement, and derived status in one statement.
	res, err := s.db.ExecContext(ctx, `
		UPDATE books SET
			available_copies = available_copies - 1,
			status = CASE
				WHEN available_copies - 1 = 0 AND status = 'AVAILABLE' THEN 'BORROWED'
				ELSE status
			END
		WHERE id = ? AND is_active = 1 AND available_copies > 0`, bookID)
	if err != nil {
		return false, fmt.Errorf("failed to reserve copy: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		// Exhausted, inactive, or unknown: tell the unknown-book case apart.
		return false, s.bookMissing(ctx, bookID)
	}
	return true, nil
}

func (s *Store) ReleaseCopy(ctx context.Context, bookID lending.BookID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE books SET
			available_copies = available_copies + 1,
			status = CASE
				WHEN status = 'BORROWED' THEN 'AVAILABLE'
				ELSE status
			END
		WHERE id = ? AND available_copies < total_copies`, bookID)
	if err != nil {
		return false, fmt.Errorf("failed to release copy: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, s.bookMissing(ctx, bookID)
	}
	return true, nil
}

func (s *Store) AdjustInventory(ctx context.Context, bookID lending.BookID, totalCopies int) (lending.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return lending.Book{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var open int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM loans WHERE book_id = ? AND status IN `+openStatuses, bookID).Scan(&open)
	if err != nil {
		return lending.Book{}, fmt.Errorf("failed to count open loans: %w", err)
	}
	if totalCopies < open {
		return lending.Book{}, fmt.Errorf("%w: %d open loans, requested total %d",
			lending.ErrInventoryInvariant, open, totalCopies)
	}

	available := totalCopies - open
	res, err := tx.ExecContext(ctx, `
		UPDATE books SET
			total_copies = ?,
			available_copies = ?,
			status = CASE
				WHEN status = 'AVAILABLE' AND ? = 0 THEN 'BORROWED'
				WHEN status = 'BORROWED' AND ? > 0 THEN 'AVAILABLE'
				ELSE status
			END
		WHERE id = ?`, totalCopies, available, available, available, bookID)
	if err != nil {
		return lending.Book{}, fmt.Errorf("failed to adjust inventory: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return lending.Book{}, lending.ErrBookNotFound
	}

	row := tx.QueryRowContext(ctx, `
		SELECT id, title, author, isbn, total_copies, available_copies, status, is_active, price
		FROM books WHERE id = ?`, bookID)
	book, err := scanBook(row)
	if err != nil {
		return lending.Book{}, err
	}

	return book, tx.Commit()
}

// bookMissing distinguishes "no matching row because the precondition
// failed" from "book does not exist". Callers hold the write lock.
func (s *Store) bookMissing(ctx context.Context, bookID lending.BookID) error {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM books WHERE id = ?", bookID).Scan(&count); err != nil {
		return err
	}
	if count == 0 {
		return lending.ErrBookNotFound
	}
	return nil
}

// =============================================================================
// LOAN STORE
// =============================================================================

const loanColumns = `id, user_id, book_id, borrow_date, due_date, return_date,
	status, fine_amount, renewal_count, max_renewals, notes, issued_by, returned_to`

func (s *Store) GetLoan(ctx context.Context, id lending.LoanID) (lending.Loan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `SELECT `+loanColumns+` FROM loans WHERE id = ?`, id)
	return scanLoan(row)
}

func (s *Store) InsertLoan(ctx context.Context, l lending.Loan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO loans (`+loanColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.UserID, l.BookID,
		l.BorrowDate.String(), l.DueDate.String(), dateOrNull(l.ReturnDate),
		string(l.Status), l.FineAmount.String(), l.RenewalCount, l.MaxRenewals,
		l.Notes, l.IssuedBy, l.ReturnedTo)
	if err != nil {
		return fmt.Errorf("failed to insert loan: %w", err)
	}
	return nil
}

func (s *Store) UpdateLoanIf(ctx context.Context, l lending.Loan, from ...lending.LoanStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(from) == 0 {
		return false, fmt.Errorf("%w: UpdateLoanIf requires expected statuses", lending.ErrInvalidInput)
	}

	placeholders := ""
	args := []any{
		l.DueDate.String(), dateOrNull(l.ReturnDate), string(l.Status),
		l.FineAmount.String(), l.RenewalCount, l.Notes, l.ReturnedTo, l.ID,
	}
	for i, status := range from {
		if i > 0 {
			placeholders += ", "
		}
		placeholders += "?"
		args = append(args, string(status))
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE loans SET
			due_date = ?,
			return_date = ?,
			status = ?,
			fine_amount = ?,
			renewal_count = ?,
			notes = ?,
			returned_to = ?
		WHERE id = ? AND status IN (`+placeholders+`)`, args...)
	if err != nil {
		return false, fmt.Errorf("failed to update loan: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		var count int
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM loans WHERE id = ?", l.ID).Scan(&count); err != nil {
			return false, err
		}
		if count == 0 {
			return false, lending.ErrLoanNotFound
		}
		return false, nil
	}
	return true, nil
}

func (s *Store) LoansByUser(ctx context.Context, userID lending.UserID) ([]lending.Loan, error) {
	return s.queryLoans(ctx, `
		SELECT `+loanColumns+` FROM loans
		WHERE user_id = ? ORDER BY borrow_date DESC, id`, userID)
}

func (s *Store) OpenLoansByUser(ctx context.Context, userID lending.UserID) ([]lending.Loan, error) {
	return s.queryLoans(ctx, `
		SELECT `+loanColumns+` FROM loans
		WHERE user_id = ? AND status IN `+openStatuses+`
		ORDER BY due_date ASC, id`, userID)
}

func (s *Store) OpenLoanCount(ctx context.Context, userID lending.UserID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM loans WHERE user_id = ? AND status IN `+openStatuses, userID).
		Scan(&count)
	return count, err
}

func (s *Store) LoansByBook(ctx context.Context, bookID lending.BookID) ([]lending.Loan, error) {
	return s.queryLoans(ctx, `
		SELECT `+loanColumns+` FROM loans
		WHERE book_id = ? ORDER BY borrow_date DESC, id`, bookID)
}

func (s *Store) LoansByStatus(ctx context.Context, status lending.LoanStatus) ([]lending.Loan, error) {
	return s.queryLoans(ctx, `
		SELECT `+loanColumns+` FROM loans
		WHERE status = ? ORDER BY borrow_date DESC, id`, string(status))
}

func (s *Store) DueLoans(ctx context.Context, asOf lending.Date) ([]lending.Loan, error) {
	return s.queryLoans(ctx, `
		SELECT `+loanColumns+` FROM loans
		WHERE status IN ('BORROWED', 'RENEWED') AND due_date < ?
		ORDER BY due_date ASC, id`, asOf.String())
}

func (s *Store) OverdueLoans(ctx context.Context) ([]lending.Loan, error) {
	return s.queryLoans(ctx, `
		SELECT `+loanColumns+` FROM loans
		WHERE status = 'OVERDUE' ORDER BY due_date ASC, id`)
}

func (s *Store) OutstandingFines(ctx context.Context, userID lending.UserID) (decimal.Decimal, error) {
	// Summed in Go: fine_amount is a decimal string and SQLite's SUM would
	// go through floating point.
	loans, err := s.queryLoans(ctx, `
		SELECT `+loanColumns+` FROM loans
		WHERE user_id = ? AND status IN ('OVERDUE', 'LOST', 'RETURNED')
		  AND CAST(fine_amount AS REAL) > 0`, userID)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, l := range loans {
		total = total.Add(l.FineAmount)
	}
	return total, nil
}

func (s *Store) queryLoans(ctx context.Context, query string, args ...any) ([]lending.Loan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query loans: %w", err)
	}
	defer rows.Close()

	var loans []lending.Loan
	for rows.Next() {
		l, err := scanLoanRows(rows)
		if err != nil {
			return nil, err
		}
		loans = append(loans, l)
	}
	return loans, rows.Err()
}

// =============================================================================
// STATISTICS
// =============================================================================

func (s *Store) LibraryStatistics(ctx context.Context) (lending.LibraryStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := lending.LibraryStats{
		LoansByStatus: make(map[lending.LoanStatus]int),
		TotalFines:    decimal.Zero,
	}

	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM loans GROUP BY status`)
	if err != nil {
		return stats, fmt.Errorf("failed to query statistics: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return stats, err
		}
		ls := lending.LoanStatus(status)
		stats.LoansByStatus[ls] = count
		stats.TotalLoans += count
		if ls.IsOpen() {
			stats.OpenLoans += count
		}
	}
	if err := rows.Err(); err != nil {
		return stats, err
	}

	fineRows, err := s.db.QueryContext(ctx,
		`SELECT fine_amount FROM loans WHERE CAST(fine_amount AS REAL) > 0`)
	if err != nil {
		return stats, fmt.Errorf("failed to query fines: %w", err)
	}
	defer fineRows.Close()
	for fineRows.Next() {
		var amount string
		if err := fineRows.Scan(&amount); err != nil {
			return stats, err
		}
		fine, err := decimal.NewFromString(amount)
		if err != nil {
			return stats, fmt.Errorf("corrupt fine amount %q: %w", amount, err)
		}
		stats.LoansWithFines++
		stats.TotalFines = stats.TotalFines.Add(fine)
	}
	return stats, fineRows.Err()
}

func (s *Store) OverdueStatistics(ctx context.Context, asOf lending.Date) (lending.OverdueStats, error) {
	overdue, err := s.OverdueLoans(ctx)
	if err != nil {
		return lending.OverdueStats{}, err
	}

	stats := lending.OverdueStats{
		AvgDaysOverdue: decimal.Zero,
		TotalFines:     decimal.Zero,
	}
	users := make(map[lending.UserID]bool)
	totalDays := 0
	for _, l := range overdue {
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

func (s *Store) UsersWithOutstandingFines(ctx context.Context) ([]lending.UserFineSummary, error) {
	loans, err := s.queryLoans(ctx, `
		SELECT `+loanColumns+` FROM loans
		WHERE status IN ('OVERDUE', 'LOST', 'RETURNED') AND CAST(fine_amount AS REAL) > 0
		ORDER BY user_id`)
	if err != nil {
		return nil, err
	}

	var result []lending.UserFineSummary
	index := make(map[lending.UserID]int)
	for _, l := range loans {
		i, ok := index[l.UserID]
		if !ok {
			i = len(result)
			index[l.UserID] = i
			result = append(result, lending.UserFineSummary{UserID: l.UserID, TotalFines: decimal.Zero})
		}
		result[i].TotalFines = result[i].TotalFines.Add(l.FineAmount)
		result[i].LoanCount++
	}
	return result, nil
}

func (s *Store) BorrowingTrends(ctx context.Context, months int) ([]lending.MonthlyLoanStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if months <= 0 {
		months = -1 // no limit
	}

	// borrow_date is "2006-01-02"; the first seven characters are the month.
	rows, err := s.db.QueryContext(ctx, `
		SELECT substr(borrow_date, 1, 7) AS month, COUNT(*)
		FROM loans
		GROUP BY month
		ORDER BY month DESC
		LIMIT ?`, months)
	if err != nil {
		return nil, fmt.Errorf("failed to query borrowing trends: %w", err)
	}
	defer rows.Close()

	var result []lending.MonthlyLoanStats
	for rows.Next() {
		var m lending.MonthlyLoanStats
		if err := rows.Scan(&m.Month, &m.Loans); err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	return result, rows.Err()
}

func (s *Store) MostBorrowedBooks(ctx context.Context, limit int) ([]lending.BookBorrowStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT l.book_id, COALESCE(b.title, ''), COUNT(l.id), COUNT(DISTINCT l.user_id)
		FROM loans l
		LEFT JOIN books b ON b.id = l.book_id
		GROUP BY l.book_id
		ORDER BY COUNT(l.id) DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query most borrowed books: %w", err)
	}
	defer rows.Close()

	var result []lending.BookBorrowStats
	for rows.Next() {
		var b lending.BookBorrowStats
		if err := rows.Scan(&b.BookID, &b.Title, &b.TotalBorrows, &b.UniqueBorrowers); err != nil {
			return nil, err
		}
		result = append(result, b)
	}
	return result, rows.Err()
}

// =============================================================================
// SCANNERS AND HELPERS
// =============================================================================

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBook(row rowScanner) (lending.Book, error) {
	var b lending.Book
	var status string
	var active int
	var price sql.NullString
	err := row.Scan(&b.ID, &b.Title, &b.Author, &b.ISBN,
		&b.TotalCopies, &b.AvailableCopies, &status, &active, &price)
	if err == sql.ErrNoRows {
		return lending.Book{}, lending.ErrBookNotFound
	}
	if err != nil {
		return lending.Book{}, fmt.Errorf("failed to load book: %w", err)
	}
	b.Status = lending.BookStatus(status)
	b.IsActive = active != 0
	if price.Valid {
		p, err := decimal.NewFromString(price.String)
		if err != nil {
			return lending.Book{}, fmt.Errorf("corrupt price %q: %w", price.String, err)
		}
		b.Price = &p
	}
	return b, nil
}

func scanLoan(row rowScanner) (lending.Loan, error) {
	l, err := scanLoanRows(row)
	if err == sql.ErrNoRows {
		return lending.Loan{}, lending.ErrLoanNotFound
	}
	return l, err
}

func scanLoanRows(row rowScanner) (lending.Loan, error) {
	var l lending.Loan
	var borrowDate, dueDate, status, fine string
	var returnDate, notes, issuedBy, returnedTo sql.NullString

	err := row.Scan(&l.ID, &l.UserID, &l.BookID, &borrowDate, &dueDate, &returnDate,
		&status, &fine, &l.RenewalCount, &l.MaxRenewals, &notes, &issuedBy, &returnedTo)
	if err != nil {
		return lending.Loan{}, err
	}

	if l.BorrowDate, err = lending.ParseDate(borrowDate); err != nil {
		return lending.Loan{}, err
	}
	if l.DueDate, err = lending.ParseDate(dueDate); err != nil {
		return lending.Loan{}, err
	}
	if returnDate.Valid {
		d, err := lending.ParseDate(returnDate.String)
		if err != nil {
			return lending.Loan{}, err
		}
		l.ReturnDate = &d
	}
	l.Status = lending.LoanStatus(status)
	if l.FineAmount, err = decimal.NewFromString(fine); err != nil {
		return lending.Loan{}, fmt.Errorf("corrupt fine amount %q: %w", fine, err)
	}
	l.Notes = notes.String
	l.IssuedBy = issuedBy.String
	l.ReturnedTo = returnedTo.String
	return l, nil
}

func dateOrNull(d *lending.Date) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
