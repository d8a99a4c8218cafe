package core

import (
	"errors"
	"strings"
	"time"
)

type (
	// User is an account that owns expenses. Credentials are stored and
	// compared as plain text to preserve the historical login contract.
	User struct {
		ID           int64
		FullName     string
		Email        string
		Password     string
		RegisteredAt time.Time
	}

	// Expense is a single spending record owned by exactly one user.
	// OccurredAt and RecordedAt are server-assigned at creation and
	// immutable afterwards; only Item and Cost may be patched.
	Expense struct {
		ID         int64
		UserID     int64
		Item       string
		Cost       float64
		OccurredAt time.Time
		RecordedAt time.Time
	}

	// ExpensePatch carries the mutable expense fields for a partial update.
	ExpensePatch struct {
		Item *string
		Cost *float64
	}
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrExpenseNotFound    = errors.New("expense not found")
	ErrNoExpenses         = errors.New("no expenses found for user")
	ErrEmailTaken         = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidCost        = errors.New("invalid cost")
	ErrEmptyPatch         = errors.New("no fields provided for update")
)

// IsEmpty reports whether the patch carries no fields at all.
func (p ExpensePatch) IsEmpty() bool {
	return p.Item == nil && p.Cost == nil
}

// DefaultItem is substituted for blank or whitespace-only item labels
// when aggregating.
const DefaultItem = "Other"

// NormalizeItem trims an item label, mapping blank labels to DefaultItem.
// Grouping is otherwise case-sensitive.
func NormalizeItem(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultItem
	}
	return s
}
