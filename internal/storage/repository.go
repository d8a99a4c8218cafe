package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"outlay/internal/core"

	_ "modernc.org/sqlite"
)

// SQLiteRepository persists users, expenses, and the expense-event audit
// trail. Every operation is atomic at single-record granularity; no
// multi-record transactions are needed by the callers.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// CreateUser registers a new account. Email uniqueness is checked first so
// callers get core.ErrEmailTaken instead of a driver-specific error.
func (r *SQLiteRepository) CreateUser(ctx context.Context, fullName, email, password string) (core.User, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE email = ?)`, email).Scan(&exists)
	if err != nil {
		return core.User{}, fmt.Errorf("check email: %w", err)
	}
	if exists {
		return core.User{}, core.ErrEmailTaken
	}

	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (full_name, email, password, registered_at) VALUES (?, ?, ?, ?)`,
		fullName, email, password, now)
	if err != nil {
		return core.User{}, fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.User{}, fmt.Errorf("user insert id: %w", err)
	}

	slog.InfoContext(ctx, "User registered", "user_id", id, "email", email)

	return core.User{
		ID:           id,
		FullName:     fullName,
		Email:        email,
		Password:     password,
		RegisteredAt: now,
	}, nil
}

func (r *SQLiteRepository) GetUserByID(ctx context.Context, id int64) (core.User, error) {
	var u core.User
	err := r.db.QueryRowContext(ctx,
		`SELECT id, full_name, email, password, registered_at FROM users WHERE id = ?`, id).
		Scan(&u.ID, &u.FullName, &u.Email, &u.Password, &u.RegisteredAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, core.ErrUserNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user %d: %w", id, err)
	}
	return u, nil
}

// GetUserByCredentials performs the exact-match credential lookup the login
// endpoint relies on. Plaintext comparison is a documented non-goal of this
// system; do not introduce hashing here without a schema migration.
func (r *SQLiteRepository) GetUserByCredentials(ctx context.Context, email, password string) (core.User, error) {
	var u core.User
	err := r.db.QueryRowContext(ctx,
		`SELECT id, full_name, email, password, registered_at FROM users WHERE email = ? AND password = ?`,
		email, password).
		Scan(&u.ID, &u.FullName, &u.Email, &u.Password, &u.RegisteredAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, core.ErrInvalidCredentials
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user by credentials: %w", err)
	}
	return u, nil
}

// CreateExpense inserts a record for an existing owner. The caller supplies
// occurredAt (zero means "now"); recordedAt is always assigned here.
func (r *SQLiteRepository) CreateExpense(ctx context.Context, userID int64, item string, cost float64, occurredAt time.Time) (core.Expense, error) {
	if _, err := r.GetUserByID(ctx, userID); err != nil {
		return core.Expense{}, err
	}

	now := time.Now().UTC()
	if occurredAt.IsZero() {
		occurredAt = now
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses (user_id, item, cost, occurred_at, recorded_at) VALUES (?, ?, ?, ?, ?)`,
		userID, item, cost, occurredAt.UTC(), now)
	if err != nil {
		return core.Expense{}, fmt.Errorf("insert expense: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Expense{}, fmt.Errorf("expense insert id: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved",
		"expense_id", id,
		"user_id", userID,
		"item", item,
		"cost", cost)

	return core.Expense{
		ID:         id,
		UserID:     userID,
		Item:       item,
		Cost:       cost,
		OccurredAt: occurredAt.UTC(),
		RecordedAt: now,
	}, nil
}

func (r *SQLiteRepository) GetExpense(ctx context.Context, id int64) (core.Expense, error) {
	var e core.Expense
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, item, cost, occurred_at, recorded_at FROM expenses WHERE id = ?`, id).
		Scan(&e.ID, &e.UserID, &e.Item, &e.Cost, &e.OccurredAt, &e.RecordedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, core.ErrExpenseNotFound
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense %d: %w", id, err)
	}
	return e, nil
}

// ListExpensesByUser returns every record for the owner, unbounded, for the
// management listing. Ordering follows insertion order.
func (r *SQLiteRepository) ListExpensesByUser(ctx context.Context, userID int64) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, item, cost, occurred_at, recorded_at FROM expenses WHERE user_id = ? ORDER BY id`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("list expenses for user %d: %w", userID, err)
	}
	defer rows.Close()
	return scanExpenses(rows)
}

// ListRecentExpenses returns at most limit records ordered by occurred_at
// descending. Ties are broken by id descending so the order is
// deterministic (newest insert first).
func (r *SQLiteRepository) ListRecentExpenses(ctx context.Context, userID int64, limit int) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, item, cost, occurred_at, recorded_at FROM expenses
		 WHERE user_id = ? ORDER BY occurred_at DESC, id DESC LIMIT ?`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent expenses for user %d: %w", userID, err)
	}
	defer rows.Close()
	return scanExpenses(rows)
}

// UpdateExpense applies a partial patch to the mutable fields. occurred_at
// and recorded_at never change after creation.
func (r *SQLiteRepository) UpdateExpense(ctx context.Context, id int64, patch core.ExpensePatch) (core.Expense, error) {
	if patch.IsEmpty() {
		return core.Expense{}, core.ErrEmptyPatch
	}

	existing, err := r.GetExpense(ctx, id)
	if err != nil {
		return core.Expense{}, err
	}

	if patch.Item != nil {
		existing.Item = *patch.Item
	}
	if patch.Cost != nil {
		existing.Cost = *patch.Cost
	}

	_, err = r.db.ExecContext(ctx,
		`UPDATE expenses SET item = ?, cost = ? WHERE id = ?`,
		existing.Item, existing.Cost, id)
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense %d: %w", id, err)
	}

	slog.InfoContext(ctx, "Expense updated", "expense_id", id, "item", existing.Item, "cost", existing.Cost)

	return existing, nil
}

// DeleteExpense removes a record. Deleting an already-deleted id fails with
// core.ErrExpenseNotFound; deletion is deliberately not idempotent.
func (r *SQLiteRepository) DeleteExpense(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete expense %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete expense %d rows affected: %w", id, err)
	}
	if affected == 0 {
		return core.ErrExpenseNotFound
	}

	slog.InfoContext(ctx, "Expense deleted", "expense_id", id)
	return nil
}

// RecordEvent appends one row to the audit trail. Used by the worker, not
// the request path.
func (r *SQLiteRepository) RecordEvent(ctx context.Context, expenseID, userID int64, action string, occurredAt time.Time) error {
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO expense_events (expense_id, user_id, action, recorded_at) VALUES (?, ?, ?, ?)`,
		expenseID, userID, action, occurredAt.UTC())
	if err != nil {
		return fmt.Errorf("record expense event: %w", err)
	}
	return nil
}

// CountEvents reports the audit-trail size, used by the worker's periodic
// stats pass.
func (r *SQLiteRepository) CountEvents(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM expense_events`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count expense events: %w", err)
	}
	return n, nil
}

// ExpenseEvent is one row of the audit trail.
type ExpenseEvent struct {
	ID         int64
	ExpenseID  int64
	UserID     int64
	Action     string
	RecordedAt time.Time
}

// ListRecentEvents returns up to limit audit-trail rows, newest first.
func (r *SQLiteRepository) ListRecentEvents(ctx context.Context, limit int) ([]ExpenseEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, expense_id, user_id, action, recorded_at
		 FROM expense_events
		 ORDER BY id DESC
		 LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list expense events: %w", err)
	}
	defer rows.Close()

	var out []ExpenseEvent
	for rows.Next() {
		var e ExpenseEvent
		if err := rows.Scan(&e.ID, &e.ExpenseID, &e.UserID, &e.Action, &e.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan expense event: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expense events: %w", err)
	}
	return out, nil
}

func scanExpenses(rows *sql.Rows) ([]core.Expense, error) {
	var out []core.Expense
	for rows.Next() {
		var e core.Expense
		if err := rows.Scan(&e.ID, &e.UserID, &e.Item, &e.Cost, &e.OccurredAt, &e.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}
	return out, nil
}
