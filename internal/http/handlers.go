package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"outlay/internal/core"
)

type signupRequest struct {
	FullName string `json:"Fullname"`
	Email    string `json:"Email"`
	Password string `json:"Password"`
}

type loginRequest struct {
	Email    string `json:"Email"`
	Password string `json:"Password"`
}

type loginResponse struct {
	Message   string `json:"message"`
	UserID    int64  `json:"userId"`
	UserName  string `json:"userName"`
	UserEmail string `json:"userEmail"`
}

type addExpenseRequest struct {
	UserID      any    `json:"UserId"`
	ExpenseItem string `json:"ExpenseItem"`
	ExpenseCost any    `json:"ExpenseCost"`
	ExpenseDate string `json:"ExpenseDate"`
}

type updateExpenseRequest struct {
	ExpenseItem *string `json:"ExpenseItem"`
	ExpenseCost any     `json:"ExpenseCost"`
}

type expenseItem struct {
	ID          int64   `json:"id"`
	ExpenseDate string  `json:"ExpenseDate"`
	ExpenseItem string  `json:"ExpenseItem"`
	ExpenseCost float64 `json:"ExpenseCost"`
}

type insightResponse struct {
	Insight        string  `json:"insight"`
	Provider       string  `json:"provider"`
	Note           string  `json:"note,omitempty"`
	TotalExpenses  float64 `json:"total_expenses"`
	AverageExpense float64 `json:"average_expense"`
	ExpenseCount   int     `json:"expense_count"`
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid JSON format")
		return
	}

	if _, err := s.expenses.Signup(r.Context(), req.FullName, req.Email, req.Password); err != nil {
		if errors.Is(err, core.ErrEmailTaken) {
			writeMessage(w, http.StatusBadRequest, "Email already exists")
			return
		}
		slog.ErrorContext(r.Context(), "Signup failed", "error", err)
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"message": "An error occurred",
			"error":   err.Error(),
		})
		return
	}

	writeMessage(w, http.StatusCreated, "User registered successfully")
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid JSON format")
		return
	}

	user, err := s.expenses.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid email or password")
		return
	}

	writeJSON(w, http.StatusCreated, loginResponse{
		Message:   "Login successful",
		UserID:    user.ID,
		UserName:  user.FullName,
		UserEmail: user.Email,
	})
}

func (s *Server) handleAddExpense(w http.ResponseWriter, r *http.Request) {
	var req addExpenseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid JSON format")
		return
	}

	userID, ok := parseUserID(req.UserID)
	if !ok {
		writeMessage(w, http.StatusBadRequest, "Invalid user ID format")
		return
	}

	cost, err := core.ParseCost(req.ExpenseCost)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"message": "An error occurred",
			"error":   err.Error(),
		})
		return
	}

	occurredAt, err := parseExpenseDate(req.ExpenseDate)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"message": "An error occurred",
			"error":   "invalid ExpenseDate value",
		})
		return
	}

	if _, err := s.expenses.AddExpense(r.Context(), userID, req.ExpenseItem, cost, occurredAt); err != nil {
		if errors.Is(err, core.ErrUserNotFound) {
			writeMessage(w, http.StatusBadRequest, "User does not exist")
			return
		}
		slog.ErrorContext(r.Context(), "Add expense failed", "user_id", userID, "error", err)
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"message": "An error occurred",
			"error":   err.Error(),
		})
		return
	}

	s.listCache.Delete(listCacheKey(userID))
	writeMessage(w, http.StatusCreated, "Expense added successfully")
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	userID, err := parseID(r.PathValue("userId"))
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid user ID format")
		return
	}

	key := listCacheKey(userID)
	records, ok := s.listCache.Get(key)
	if !ok {
		records, err = s.expenses.ListExpenses(r.Context(), userID)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"message": "Error fetching expenses",
				"error":   err.Error(),
			})
			return
		}
		s.listCache.Set(key, records)
	}

	items := make([]expenseItem, 0, len(records))
	for _, e := range records {
		items = append(items, expenseItem{
			ID:          e.ID,
			ExpenseDate: e.OccurredAt.Format("2006-01-02"),
			ExpenseItem: e.Item,
			ExpenseCost: e.Cost,
		})
	}

	writeJSON(w, http.StatusOK, map[string][]expenseItem{"expenses": items})
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	expenseID, err := parseID(r.PathValue("expenseId"))
	if err != nil {
		writeMessage(w, http.StatusNotFound, "Expense not found")
		return
	}

	var req updateExpenseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid JSON format")
		return
	}
	if req.ExpenseItem == nil && req.ExpenseCost == nil {
		writeMessage(w, http.StatusBadRequest, "No fields provided for update")
		return
	}

	patch := core.ExpensePatch{Item: req.ExpenseItem}
	if req.ExpenseCost != nil {
		cost, err := core.ParseCost(req.ExpenseCost)
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "Invalid ExpenseCost value")
			return
		}
		patch.Cost = &cost
	}

	updated, err := s.expenses.UpdateExpense(r.Context(), expenseID, patch)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrExpenseNotFound):
			writeMessage(w, http.StatusNotFound, "Expense not found")
		case errors.Is(err, core.ErrEmptyPatch):
			writeMessage(w, http.StatusBadRequest, "No fields provided for update")
		default:
			slog.ErrorContext(r.Context(), "Update expense failed", "expense_id", expenseID, "error", err)
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"message": "An error occurred",
				"error":   err.Error(),
			})
		}
		return
	}

	s.listCache.Delete(listCacheKey(updated.UserID))
	writeMessage(w, http.StatusOK, "Expense updated successfully")
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	expenseID, err := parseID(r.PathValue("expenseId"))
	if err != nil {
		writeMessage(w, http.StatusNotFound, "Expense not found")
		return
	}

	removed, err := s.expenses.DeleteExpense(r.Context(), expenseID)
	if err != nil {
		if errors.Is(err, core.ErrExpenseNotFound) {
			writeMessage(w, http.StatusNotFound, "Expense not found")
			return
		}
		slog.ErrorContext(r.Context(), "Delete expense failed", "expense_id", expenseID, "error", err)
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"message": "An error occurred",
			"error":   err.Error(),
		})
		return
	}

	s.listCache.Delete(listCacheKey(removed.UserID))
	writeMessage(w, http.StatusOK, "Expense deleted successfully")
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	userID, err := parseID(r.PathValue("userId"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"message":  "No expenses found for user",
			"provider": "none",
		})
		return
	}

	insight, err := s.insights.GenerateInsight(r.Context(), userID, r.URL.Query().Get("provider"))
	if err != nil {
		if errors.Is(err, core.ErrUserNotFound) || errors.Is(err, core.ErrNoExpenses) {
			writeJSON(w, http.StatusNotFound, map[string]string{
				"message":  "No expenses found for user",
				"provider": "none",
			})
			return
		}
		slog.ErrorContext(r.Context(), "Insight generation failed", "user_id", userID, "error", err)
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"message": "An error occurred",
			"error":   err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, insightResponse{
		Insight:        insight.Text,
		Provider:       insight.Provider,
		Note:           insight.Note,
		TotalExpenses:  insight.Total,
		AverageExpense: insight.Average,
		ExpenseCount:   insight.Count,
	})
}

func listCacheKey(userID int64) string {
	return "expenses:" + strconv.FormatInt(userID, 10)
}
