package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"outlay/internal/amqp"
	"outlay/internal/core"
	"outlay/internal/storage"
)

// ExpenseService orchestrates account and expense operations across SQLite
// and the optional AMQP audit stream.
type ExpenseService struct {
	storage    *storage.SQLiteRepository
	amqpClient *amqp.Client
}

func NewExpenseService(storage *storage.SQLiteRepository, amqpClient *amqp.Client) *ExpenseService {
	return &ExpenseService{
		storage:    storage,
		amqpClient: amqpClient,
	}
}

// Signup registers a new user account.
func (s *ExpenseService) Signup(ctx context.Context, fullName, email, password string) (core.User, error) {
	user, err := s.storage.CreateUser(ctx, fullName, email, password)
	if err != nil {
		return core.User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// Login verifies credentials and returns the matching user.
func (s *ExpenseService) Login(ctx context.Context, email, password string) (core.User, error) {
	return s.storage.GetUserByCredentials(ctx, email, password)
}

// AddExpense saves an expense locally and publishes an audit event.
func (s *ExpenseService) AddExpense(ctx context.Context, userID int64, item string, cost float64, occurredAt time.Time) (core.Expense, error) {
	expense, err := s.storage.CreateExpense(ctx, userID, item, cost, occurredAt)
	if err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}

	s.publishEvent(ctx, expense.ID, expense.UserID, amqp.ActionCreated)
	return expense, nil
}

// ListExpenses returns all expenses for a user, oldest insert first. An
// unknown user simply has no expenses, so the result is an empty list
// rather than an error.
func (s *ExpenseService) ListExpenses(ctx context.Context, userID int64) ([]core.Expense, error) {
	return s.storage.ListExpensesByUser(ctx, userID)
}

// UpdateExpense applies a partial update to an expense.
func (s *ExpenseService) UpdateExpense(ctx context.Context, expenseID int64, patch core.ExpensePatch) (core.Expense, error) {
	expense, err := s.storage.UpdateExpense(ctx, expenseID, patch)
	if err != nil {
		return core.Expense{}, err
	}

	s.publishEvent(ctx, expense.ID, expense.UserID, amqp.ActionUpdated)
	return expense, nil
}

// DeleteExpense removes an expense permanently and returns the removed row.
func (s *ExpenseService) DeleteExpense(ctx context.Context, expenseID int64) (core.Expense, error) {
	expense, err := s.storage.GetExpense(ctx, expenseID)
	if err != nil {
		return core.Expense{}, err
	}
	if err := s.storage.DeleteExpense(ctx, expenseID); err != nil {
		return core.Expense{}, err
	}

	s.publishEvent(ctx, expense.ID, expense.UserID, amqp.ActionDeleted)
	return expense, nil
}

// Close releases the storage handle and the AMQP connection when present.
func (s *ExpenseService) Close() error {
	if s.amqpClient != nil {
		if err := s.amqpClient.Close(); err != nil {
			slog.Error("Failed to close AMQP client", "error", err)
		}
	}
	if s.storage != nil {
		return s.storage.Close()
	}
	return nil
}

// publishEvent sends an audit event without failing the request. Expenses are
// already durable in SQLite; a missing broker only costs the audit trail.
func (s *ExpenseService) publishEvent(ctx context.Context, expenseID, userID int64, action string) {
	if s.amqpClient == nil {
		return
	}

	msg := amqp.NewExpenseEventMessage(expenseID, userID, action)
	if err := s.amqpClient.PublishExpenseEvent(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish expense event",
			"expense_id", expenseID,
			"action", action,
			"error", err)
	}
}
