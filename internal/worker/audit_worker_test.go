package worker

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"outlay/internal/amqp"
	"outlay/internal/storage"
)

func newTestWorker(t *testing.T, batchSize int) (*AuditWorker, *storage.SQLiteRepository) {
	t.Helper()

	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "outlay.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	return NewAuditWorker(repo, batchSize), repo
}

func recordActions(t *testing.T, w *AuditWorker, repo *storage.SQLiteRepository) (int64, int64) {
	t.Helper()
	ctx := context.Background()

	user, err := repo.CreateUser(ctx, "Ana", "a@x.com", "p")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	expense, err := repo.CreateExpense(ctx, user.ID, "Coffee", 150, time.Time{})
	if err != nil {
		t.Fatalf("CreateExpense: %v", err)
	}

	msgs := []*amqp.ExpenseEventMessage{
		amqp.NewExpenseEventMessage(expense.ID, user.ID, amqp.ActionCreated),
		amqp.NewExpenseEventMessage(expense.ID, user.ID, amqp.ActionUpdated),
		amqp.NewExpenseEventMessage(expense.ID, user.ID, amqp.ActionDeleted),
	}
	for _, msg := range msgs {
		if err := w.HandleEventMessage(ctx, msg); err != nil {
			t.Fatalf("HandleEventMessage(%s): %v", msg.Action, err)
		}
	}
	return user.ID, expense.ID
}

func TestHandleEventMessage(t *testing.T) {
	w, repo := newTestWorker(t, 50)
	ctx := context.Background()

	recordActions(t, w, repo)

	count, err := repo.CountEvents(ctx)
	if err != nil {
		t.Fatalf("CountEvents: %v", err)
	}
	if count != 3 {
		t.Fatalf("CountEvents = %d; want 3", count)
	}

	if err := w.ReportStats(ctx); err != nil {
		t.Fatalf("ReportStats: %v", err)
	}
}

func TestStatsBatchLimit(t *testing.T) {
	w, repo := newTestWorker(t, 2)
	ctx := context.Background()

	userID, expenseID := recordActions(t, w, repo)

	// The stats pass inspects at most batchSize rows, newest first.
	recent, err := repo.ListRecentEvents(ctx, 2)
	if err != nil {
		t.Fatalf("ListRecentEvents: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("ListRecentEvents returned %d rows; want 2", len(recent))
	}
	if recent[0].Action != amqp.ActionDeleted || recent[1].Action != amqp.ActionUpdated {
		t.Fatalf("recent actions = %s, %s; want deleted, updated", recent[0].Action, recent[1].Action)
	}
	if recent[0].UserID != userID || recent[0].ExpenseID != expenseID {
		t.Fatalf("recent event = %+v", recent[0])
	}

	if err := w.ReportStats(ctx); err != nil {
		t.Fatalf("ReportStats: %v", err)
	}
}
