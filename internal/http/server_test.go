package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"outlay/internal/ai/gemini"
	"outlay/internal/services"
	"outlay/internal/storage"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "outlay.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	expenses := services.NewExpenseService(repo, nil)
	// Empty API key: the gateway reports Unconfigured without touching the
	// network, so insight requests exercise the local fallback.
	insights := services.NewInsightService(repo, "gemini", gemini.New("", "", "", 0))

	s := NewServer(":0", expenses, insights)
	t.Cleanup(func() {
		s.cacheSweeper.Stop()
		s.rateLimiter.stop()
	})
	return s
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var reader *bytes.Reader
	if body == "" {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	parsed := map[string]any{}
	if rec.Body.Len() > 0 && strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &parsed); err != nil {
			t.Fatalf("invalid JSON response for %s %s: %v\n%s", method, path, err, rec.Body.String())
		}
	}
	return rec, parsed
}

func signupAndLogin(t *testing.T, s *Server) int64 {
	t.Helper()

	rec, _ := doJSON(t, s.Handler, http.MethodPost, "/signup",
		`{"Fullname":"Ana","Email":"a@x.com","Password":"p"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup status = %d; want 201", rec.Code)
	}

	rec, body := doJSON(t, s.Handler, http.MethodPost, "/login",
		`{"Email":"a@x.com","Password":"p"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("login status = %d; want 201", rec.Code)
	}
	if body["userName"] != "Ana" || body["userEmail"] != "a@x.com" {
		t.Fatalf("login body = %v", body)
	}
	return int64(body["userId"].(float64))
}

func addExpense(t *testing.T, s *Server, userID int64, item string, cost float64) {
	t.Helper()

	rec, _ := doJSON(t, s.Handler, http.MethodPost, "/add-expense",
		fmt.Sprintf(`{"UserId":%d,"ExpenseItem":%q,"ExpenseCost":%v}`, userID, item, cost))
	if rec.Code != http.StatusCreated {
		t.Fatalf("add-expense(%s) status = %d; want 201", item, rec.Code)
	}
}

func TestSignupDuplicateEmail(t *testing.T) {
	s := newTestServer(t)
	signupAndLogin(t, s)

	rec, body := doJSON(t, s.Handler, http.MethodPost, "/signup",
		`{"Fullname":"Other","Email":"a@x.com","Password":"q"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("duplicate signup status = %d; want 400", rec.Code)
	}
	if body["message"] != "Email already exists" {
		t.Fatalf("message = %v", body["message"])
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	s := newTestServer(t)
	signupAndLogin(t, s)

	rec, body := doJSON(t, s.Handler, http.MethodPost, "/login",
		`{"Email":"a@x.com","Password":"wrong"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad login status = %d; want 400", rec.Code)
	}
	if body["message"] != "Invalid email or password" {
		t.Fatalf("message = %v", body["message"])
	}
}

func TestAddExpenseValidation(t *testing.T) {
	s := newTestServer(t)
	userID := signupAndLogin(t, s)

	tests := []struct {
		name    string
		body    string
		status  int
		message string
	}{
		{"bad json", `{`, http.StatusBadRequest, "Invalid JSON format"},
		{"missing user", `{"ExpenseItem":"Coffee","ExpenseCost":10}`, http.StatusBadRequest, "Invalid user ID format"},
		{"non-numeric user", `{"UserId":"abc","ExpenseItem":"Coffee","ExpenseCost":10}`, http.StatusBadRequest, "Invalid user ID format"},
		{"unknown user", `{"UserId":999,"ExpenseItem":"Coffee","ExpenseCost":10}`, http.StatusBadRequest, "User does not exist"},
		{"bad cost", fmt.Sprintf(`{"UserId":%d,"ExpenseItem":"Coffee","ExpenseCost":"abc"}`, userID), http.StatusBadRequest, "An error occurred"},
		{"missing cost", fmt.Sprintf(`{"UserId":%d,"ExpenseItem":"Coffee"}`, userID), http.StatusBadRequest, "An error occurred"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := doJSON(t, s.Handler, http.MethodPost, "/add-expense", tt.body)
			if rec.Code != tt.status {
				t.Fatalf("status = %d; want %d", rec.Code, tt.status)
			}
			if body["message"] != tt.message {
				t.Fatalf("message = %v; want %q", body["message"], tt.message)
			}
		})
	}
}

func TestAddExpenseWithDate(t *testing.T) {
	s := newTestServer(t)
	userID := signupAndLogin(t, s)

	rec, _ := doJSON(t, s.Handler, http.MethodPost, "/add-expense",
		fmt.Sprintf(`{"UserId":%d,"ExpenseItem":"Coffee","ExpenseCost":150,"ExpenseDate":"2026-08-15"}`, userID))
	if rec.Code != http.StatusCreated {
		t.Fatalf("add-expense status = %d; want 201", rec.Code)
	}

	rec, body := doJSON(t, s.Handler, http.MethodGet, fmt.Sprintf("/manage-expense/%d", userID), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("manage-expense status = %d; want 200", rec.Code)
	}
	expenses := body["expenses"].([]any)
	if len(expenses) != 1 {
		t.Fatalf("got %d expenses; want 1", len(expenses))
	}
	first := expenses[0].(map[string]any)
	if first["ExpenseDate"] != "2026-08-15" {
		t.Fatalf("ExpenseDate = %v; want 2026-08-15", first["ExpenseDate"])
	}
	if first["ExpenseItem"] != "Coffee" || first["ExpenseCost"] != 150.0 {
		t.Fatalf("expense = %v", first)
	}
}

func TestListExpensesUnknownUserIsEmpty(t *testing.T) {
	s := newTestServer(t)

	// A user id with no account behind it lists as zero expenses, not an
	// error.
	rec, body := doJSON(t, s.Handler, http.MethodGet, "/manage-expense/999", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("manage-expense unknown user status = %d; want 200", rec.Code)
	}
	expenses, ok := body["expenses"].([]any)
	if !ok {
		t.Fatalf("body = %v; want an expenses array", body)
	}
	if len(expenses) != 0 {
		t.Fatalf("got %d expenses for unknown user; want 0", len(expenses))
	}
}

func TestListExpensesCacheInvalidation(t *testing.T) {
	s := newTestServer(t)
	userID := signupAndLogin(t, s)
	addExpense(t, s, userID, "Coffee", 150)

	// Prime the cache.
	rec, body := doJSON(t, s.Handler, http.MethodGet, fmt.Sprintf("/manage-expense/%d", userID), "")
	if rec.Code != http.StatusOK || len(body["expenses"].([]any)) != 1 {
		t.Fatalf("first list: status %d body %v", rec.Code, body)
	}

	// A mutation must invalidate the cached list.
	addExpense(t, s, userID, "Rent", 5000)
	rec, body = doJSON(t, s.Handler, http.MethodGet, fmt.Sprintf("/manage-expense/%d", userID), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("second list status = %d", rec.Code)
	}
	if got := len(body["expenses"].([]any)); got != 2 {
		t.Fatalf("got %d expenses after add; want 2", got)
	}
}

func TestUpdateExpense(t *testing.T) {
	s := newTestServer(t)
	userID := signupAndLogin(t, s)
	addExpense(t, s, userID, "Coffee", 150)

	_, body := doJSON(t, s.Handler, http.MethodGet, fmt.Sprintf("/manage-expense/%d", userID), "")
	expenseID := int64(body["expenses"].([]any)[0].(map[string]any)["id"].(float64))

	rec, _ := doJSON(t, s.Handler, http.MethodPut, fmt.Sprintf("/expenses/%d", expenseID),
		`{"ExpenseCost":175}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d; want 200", rec.Code)
	}

	// Non-numeric cost leaves the record unchanged.
	rec, resp := doJSON(t, s.Handler, http.MethodPatch, fmt.Sprintf("/expenses/%d", expenseID),
		`{"ExpenseCost":"not-a-number"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad cost update status = %d; want 400", rec.Code)
	}
	if resp["message"] != "Invalid ExpenseCost value" {
		t.Fatalf("message = %v", resp["message"])
	}

	rec, resp = doJSON(t, s.Handler, http.MethodPut, fmt.Sprintf("/expenses/%d", expenseID), `{}`)
	if rec.Code != http.StatusBadRequest || resp["message"] != "No fields provided for update" {
		t.Fatalf("empty update: status %d message %v", rec.Code, resp["message"])
	}

	_, body = doJSON(t, s.Handler, http.MethodGet, fmt.Sprintf("/manage-expense/%d", userID), "")
	got := body["expenses"].([]any)[0].(map[string]any)
	if got["ExpenseCost"] != 175.0 || got["ExpenseItem"] != "Coffee" {
		t.Fatalf("expense after updates = %v; want Coffee/175", got)
	}

	rec, _ = doJSON(t, s.Handler, http.MethodPut, "/expenses/99999", `{"ExpenseItem":"X"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown expense update status = %d; want 404", rec.Code)
	}
}

func TestDeleteExpenseTwice(t *testing.T) {
	s := newTestServer(t)
	userID := signupAndLogin(t, s)
	addExpense(t, s, userID, "Coffee", 150)

	_, body := doJSON(t, s.Handler, http.MethodGet, fmt.Sprintf("/manage-expense/%d", userID), "")
	expenseID := int64(body["expenses"].([]any)[0].(map[string]any)["id"].(float64))

	rec, resp := doJSON(t, s.Handler, http.MethodDelete, fmt.Sprintf("/expenses/%d", expenseID), "")
	if rec.Code != http.StatusOK || resp["message"] != "Expense deleted successfully" {
		t.Fatalf("delete: status %d message %v", rec.Code, resp["message"])
	}

	rec, resp = doJSON(t, s.Handler, http.MethodDelete, fmt.Sprintf("/expenses/%d", expenseID), "")
	if rec.Code != http.StatusNotFound || resp["message"] != "Expense not found" {
		t.Fatalf("second delete: status %d message %v", rec.Code, resp["message"])
	}
}

func TestInsightsNoData(t *testing.T) {
	s := newTestServer(t)
	userID := signupAndLogin(t, s)

	rec, body := doJSON(t, s.Handler, http.MethodPost, fmt.Sprintf("/ai/insights/%d", userID), "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("no-data insights status = %d; want 404", rec.Code)
	}
	if body["message"] != "No expenses found for user" || body["provider"] != "none" {
		t.Fatalf("body = %v", body)
	}

	rec, _ = doJSON(t, s.Handler, http.MethodPost, "/ai/insights/999", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown-user insights status = %d; want 404", rec.Code)
	}
}

func TestInsightsFallbackEndToEnd(t *testing.T) {
	s := newTestServer(t)
	userID := signupAndLogin(t, s)
	addExpense(t, s, userID, "Coffee", 150)
	addExpense(t, s, userID, "Coffee", 120)
	addExpense(t, s, userID, "Rent", 5000)

	rec, body := doJSON(t, s.Handler, http.MethodPost, fmt.Sprintf("/ai/insights/%d", userID), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("insights status = %d; want 200", rec.Code)
	}

	if body["provider"] != "fallback" {
		t.Fatalf("provider = %v; want fallback", body["provider"])
	}
	if body["total_expenses"] != 5270.0 {
		t.Fatalf("total_expenses = %v; want 5270", body["total_expenses"])
	}
	if avg := body["average_expense"].(float64); math.Abs(avg-1756.67) > 0.01 {
		t.Fatalf("average_expense = %v; want 1756.67", avg)
	}
	if body["expense_count"] != 3.0 {
		t.Fatalf("expense_count = %v; want 3", body["expense_count"])
	}

	insight := body["insight"].(string)
	if !strings.Contains(insight, "Top spend categories -> Rent:") {
		t.Fatalf("insight missing Rent as top category:\n%s", insight)
	}
	if note := body["note"].(string); !strings.Contains(note, "GEMINI_API_KEY not configured") {
		t.Fatalf("note = %q", note)
	}
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		s.Handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s status = %d; want 200", path, rec.Code)
		}
	}
}
