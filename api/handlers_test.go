package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfwise/lending-engine/api"
	"github.com/shelfwise/lending-engine/lending"
	"github.com/shelfwise/lending-engine/lending/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

type testEnv struct {
	router  http.Handler
	service *lending.LendingService
	mem     *store.Memory
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	mem := store.NewMemory()
	svc := lending.NewLendingService(mem)
	svc.Now = func() lending.Date { return lending.NewDate(2026, time.January, 1) }
	sweeper := lending.NewOverdueSweeper(mem)
	sweeper.Now = svc.Now

	h := api.NewHandler(svc, sweeper)
	return &testEnv{router: api.NewRouter(h), service: svc, mem: mem}
}

func (e *testEnv) seed(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, e.mem.SaveUser(ctx, lending.User{
		ID: "user-1", Name: "Ada", Email: "ada@example.com", IsActive: true, MaxBooksAllowed: 3,
	}))
	require.NoError(t, e.mem.SaveBook(ctx, lending.Book{
		ID: "book-1", Title: "The Go Programming Language", TotalCopies: 2, AvailableCopies: 2,
		Status: lending.BookAvailable, IsActive: true,
	}))
}

// do executes a request with the given actor headers and returns the recorder.
func (e *testEnv) do(method, path, body string, actorID, role string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if actorID != "" {
		req.Header.Set("X-Actor-ID", actorID)
		req.Header.Set("X-Actor-Role", role)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeLoan(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	return payload
}

// =============================================================================
// BORROW / RETURN / RENEW FLOW
// =============================================================================

func TestBorrowEndpoint_Success(t *testing.T) {
	// GIVEN: A seeded user and book
	// WHEN: POST /api/loans as the user
	// THEN: 201 with the created loan

	env := newTestEnv(t)
	env.seed(t)

	rec := env.do(http.MethodPost, "/api/loans",
		`{"user_id": "user-1", "book_id": "book-1"}`, "user-1", "MEMBER")

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	loan := decodeLoan(t, rec)
	assert.Equal(t, "user-1", loan["user_id"])
	assert.Equal(t, "BORROWED", loan["status"])
	assert.Equal(t, "2026-01-15", loan["due_date"])
	assert.NotEmpty(t, loan["id"])
}

func TestBorrowEndpoint_MissingIdentity_401(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t)

	rec := env.do(http.MethodPost, "/api/loans",
		`{"user_id": "user-1", "book_id": "book-1"}`, "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBorrowEndpoint_OnBehalf_403(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t)

	rec := env.do(http.MethodPost, "/api/loans",
		`{"user_id": "user-1", "book_id": "book-1"}`, "user-2", "MEMBER")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestBorrowEndpoint_UnknownBook_404(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t)

	rec := env.do(http.MethodPost, "/api/loans",
		`{"user_id": "user-1", "book_id": "ghost"}`, "user-1", "MEMBER")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBorrowEndpoint_NotEligible_422(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t)
	ctx := context.Background()

	// Exhaust the copies with an admin issuing to another reader.
	require.NoError(t, env.mem.SaveUser(ctx, lending.User{ID: "user-2", Name: "Lin", IsActive: true, MaxBooksAllowed: 3}))
	for _, id := range []string{"user-1", "user-2"} {
		rec := env.do(http.MethodPost, "/api/loans",
			`{"user_id": "`+id+`", "book_id": "book-1"}`, "admin-1", "ADMIN")
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	require.NoError(t, env.mem.SaveUser(ctx, lending.User{ID: "user-3", Name: "Kim", IsActive: true, MaxBooksAllowed: 3}))
	rec := env.do(http.MethodPost, "/api/loans",
		`{"user_id": "user-3", "book_id": "book-1"}`, "user-3", "MEMBER")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var errResp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
	assert.Contains(t, errResp["error"], "book_unavailable")
}

func TestReturnEndpoint_FullCycle(t *testing.T) {
	// Borrow, then return late: the response carries the computed fine.
	env := newTestEnv(t)
	env.seed(t)

	rec := env.do(http.MethodPost, "/api/loans",
		`{"user_id": "user-1", "book_id": "book-1"}`, "user-1", "MEMBER")
	require.Equal(t, http.StatusCreated, rec.Code)
	loanID := decodeLoan(t, rec)["id"].(string)

	env.service.Now = func() lending.Date { return lending.NewDate(2026, time.January, 21) }
	rec = env.do(http.MethodPost, "/api/loans/"+loanID+"/return", "", "user-1", "MEMBER")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	loan := decodeLoan(t, rec)
	assert.Equal(t, "RETURNED", loan["status"])
	assert.Equal(t, "6", loan["fine_amount"])
	assert.Equal(t, "2026-01-21", loan["return_date"])

	// Returning again is a conflict.
	rec = env.do(http.MethodPost, "/api/loans/"+loanID+"/return", "", "user-1", "MEMBER")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRenewEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t)

	rec := env.do(http.MethodPost, "/api/loans",
		`{"user_id": "user-1", "book_id": "book-1"}`, "user-1", "MEMBER")
	require.Equal(t, http.StatusCreated, rec.Code)
	loanID := decodeLoan(t, rec)["id"].(string)

	rec = env.do(http.MethodPost, "/api/loans/"+loanID+"/renew",
		`{"additional_days": 14}`, "user-1", "MEMBER")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	loan := decodeLoan(t, rec)
	assert.Equal(t, "RENEWED", loan["status"])
	assert.Equal(t, "2026-01-29", loan["due_date"])

	// A second renewal conflicts: only BORROWED loans renew.
	rec = env.do(http.MethodPost, "/api/loans/"+loanID+"/renew",
		`{"additional_days": 14}`, "user-1", "MEMBER")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestLostEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t)

	rec := env.do(http.MethodPost, "/api/loans",
		`{"user_id": "user-1", "book_id": "book-1"}`, "user-1", "MEMBER")
	require.Equal(t, http.StatusCreated, rec.Code)
	loanID := decodeLoan(t, rec)["id"].(string)

	rec = env.do(http.MethodPost, "/api/loans/"+loanID+"/lost",
		`{"notes": "left on the train"}`, "user-1", "MEMBER")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	loan := decodeLoan(t, rec)
	assert.Equal(t, "LOST", loan["status"])
	assert.Equal(t, "50", loan["fine_amount"], "no price on file, flat lost-book fine")
}

// =============================================================================
// QUERIES AND AUTHORIZATION
// =============================================================================

func TestGetLoan_OwnerOrAdminOnly(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t)

	rec := env.do(http.MethodPost, "/api/loans",
		`{"user_id": "user-1", "book_id": "book-1"}`, "user-1", "MEMBER")
	require.Equal(t, http.StatusCreated, rec.Code)
	loanID := decodeLoan(t, rec)["id"].(string)

	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/api/loans/"+loanID, "", "user-1", "MEMBER").Code)
	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/api/loans/"+loanID, "", "admin-1", "ADMIN").Code)
	assert.Equal(t, http.StatusForbidden, env.do(http.MethodGet, "/api/loans/"+loanID, "", "user-2", "MEMBER").Code)
}

func TestCanBorrowEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t)

	rec := env.do(http.MethodGet, "/api/users/user-1/can-borrow/book-1", "", "user-1", "MEMBER")
	require.Equal(t, http.StatusOK, rec.Code)

	var elig map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &elig))
	assert.Equal(t, true, elig["can_borrow"])
}

func TestStatsEndpoints_AdminOnly(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t)

	for _, path := range []string{"/api/stats", "/api/stats/overdue", "/api/stats/fines", "/api/stats/top-books", "/api/stats/trends", "/api/loans/overdue"} {
		rec := env.do(http.MethodGet, path, "", "user-1", "MEMBER")
		assert.Equal(t, http.StatusForbidden, rec.Code, path)

		rec = env.do(http.MethodGet, path, "", "admin-1", "ADMIN")
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

// =============================================================================
// ADMIN ENDPOINTS
// =============================================================================

func TestSweepEndpoint(t *testing.T) {
	// GIVEN: A loan past due as of the sweep clock
	// WHEN: An admin triggers POST /api/admin/sweep
	// THEN: The pass reports the transition

	env := newTestEnv(t)
	env.seed(t)

	rec := env.do(http.MethodPost, "/api/loans",
		`{"user_id": "user-1", "book_id": "book-1"}`, "user-1", "MEMBER")
	require.Equal(t, http.StatusCreated, rec.Code)

	assert.Equal(t, http.StatusForbidden,
		env.do(http.MethodPost, "/api/admin/sweep", "", "user-1", "MEMBER").Code)

	// Move the sweep clock past the due date.
	sweeper := lending.NewOverdueSweeper(env.mem)
	sweeper.Now = func() lending.Date { return lending.NewDate(2026, time.January, 20) }
	h := api.NewHandler(env.service, sweeper)
	env.router = api.NewRouter(h)

	rec = env.do(http.MethodPost, "/api/admin/sweep", "", "admin-1", "ADMIN")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, float64(1), result["marked_overdue"])
}

func TestAdjustInventoryEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t)

	rec := env.do(http.MethodPost, "/api/admin/books/book-1/inventory",
		`{"total_copies": 5}`, "admin-1", "ADMIN")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var book map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &book))
	assert.Equal(t, float64(5), book["total_copies"])
	assert.Equal(t, float64(5), book["available_copies"])

	rec = env.do(http.MethodPost, "/api/admin/books/book-1/inventory",
		`{"total_copies": 3}`, "user-1", "MEMBER")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
