package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"outlay/internal/ai"
	"outlay/internal/core"
)

type fakeInsightStore struct {
	users    map[int64]core.User
	expenses map[int64][]core.Expense
}

func (f *fakeInsightStore) GetUserByID(_ context.Context, id int64) (core.User, error) {
	user, ok := f.users[id]
	if !ok {
		return core.User{}, core.ErrUserNotFound
	}
	return user, nil
}

func (f *fakeInsightStore) ListRecentExpenses(_ context.Context, userID int64, limit int) ([]core.Expense, error) {
	records := f.expenses[userID]
	if len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

type fakeGenerator struct {
	name    string
	outcome ai.Outcome
	calls   int
	prompt  string
}

func (g *fakeGenerator) Name() string { return g.name }

func (g *fakeGenerator) Generate(_ context.Context, prompt string) ai.Outcome {
	g.calls++
	g.prompt = prompt
	return g.outcome
}

func insightFixture() (*fakeInsightStore, []core.Expense) {
	now := time.Now()
	records := []core.Expense{
		{ID: 1, UserID: 7, Item: "Coffee", Cost: 150, OccurredAt: now},
		{ID: 2, UserID: 7, Item: "Coffee", Cost: 120, OccurredAt: now},
		{ID: 3, UserID: 7, Item: "Rent", Cost: 5000, OccurredAt: now},
	}
	store := &fakeInsightStore{
		users:    map[int64]core.User{7: {ID: 7, FullName: "Ana"}},
		expenses: map[int64][]core.Expense{7: records},
	}
	return store, records
}

func TestGenerateInsightSuccess(t *testing.T) {
	store, _ := insightFixture()
	gen := &fakeGenerator{name: "gemini", outcome: ai.Success("Spend less on coffee.")}
	svc := NewInsightService(store, "gemini", gen)

	got, err := svc.GenerateInsight(context.Background(), 7, "gemini")
	if err != nil {
		t.Fatalf("GenerateInsight: %v", err)
	}

	if got.Provider != "gemini" {
		t.Fatalf("Provider = %q; want gemini", got.Provider)
	}
	if got.Text != "Spend less on coffee." {
		t.Fatalf("Text = %q", got.Text)
	}
	if got.Note != "" {
		t.Fatalf("Note = %q; want empty on success", got.Note)
	}
	if got.Total != 5270 || got.Count != 3 {
		t.Fatalf("aggregates = %v/%v; want 5270/3", got.Total, got.Count)
	}
	if gen.calls != 1 {
		t.Fatalf("generator called %d times; want 1", gen.calls)
	}
	if !strings.Contains(gen.prompt, "concise financial coach") {
		t.Fatalf("prompt missing preamble: %q", gen.prompt)
	}
}

func TestGenerateInsightQuotaFallsBack(t *testing.T) {
	store, records := insightFixture()
	gen := &fakeGenerator{name: "gemini", outcome: ai.Quota("Gemini quota exceeded")}
	svc := NewInsightService(store, "gemini", gen)

	got, err := svc.GenerateInsight(context.Background(), 7, "")
	if err != nil {
		t.Fatalf("GenerateInsight: %v", err)
	}

	if got.Provider != FallbackProvider {
		t.Fatalf("Provider = %q; want %q", got.Provider, FallbackProvider)
	}
	if got.Note != "Gemini quota exceeded; showing local insights." {
		t.Fatalf("Note = %q", got.Note)
	}
	if want := core.Summarize(records).Narrative; got.Text != want {
		t.Fatalf("Text = %q; want local summary %q", got.Text, want)
	}
}

func TestGenerateInsightUnconfiguredFallsBack(t *testing.T) {
	store, _ := insightFixture()
	gen := &fakeGenerator{name: "openai", outcome: ai.Unconfigured("OPENAI_API_KEY not configured")}
	svc := NewInsightService(store, "gemini", gen)

	got, err := svc.GenerateInsight(context.Background(), 7, "openai")
	if err != nil {
		t.Fatalf("GenerateInsight: %v", err)
	}
	if got.Provider != FallbackProvider {
		t.Fatalf("Provider = %q; want %q", got.Provider, FallbackProvider)
	}
	if got.Note != "OPENAI_API_KEY not configured" {
		t.Fatalf("Note = %q", got.Note)
	}
}

func TestGenerateInsightUnknownProvider(t *testing.T) {
	store, _ := insightFixture()
	gen := &fakeGenerator{name: "gemini", outcome: ai.Success("unused")}
	svc := NewInsightService(store, "gemini", gen)

	got, err := svc.GenerateInsight(context.Background(), 7, "llama")
	if err != nil {
		t.Fatalf("GenerateInsight: %v", err)
	}
	if got.Provider != FallbackProvider {
		t.Fatalf("Provider = %q; want %q", got.Provider, FallbackProvider)
	}
	if got.Note != "Using local fallback insights." {
		t.Fatalf("Note = %q", got.Note)
	}
	if gen.calls != 0 {
		t.Fatalf("generator called %d times for unknown provider; want 0", gen.calls)
	}
}

func TestGenerateInsightDefaultProvider(t *testing.T) {
	store, _ := insightFixture()
	gemini := &fakeGenerator{name: "gemini", outcome: ai.Success("from gemini")}
	openai := &fakeGenerator{name: "openai", outcome: ai.Success("from openai")}
	svc := NewInsightService(store, "openai", gemini, openai)

	got, err := svc.GenerateInsight(context.Background(), 7, "")
	if err != nil {
		t.Fatalf("GenerateInsight: %v", err)
	}
	if got.Provider != "openai" || got.Text != "from openai" {
		t.Fatalf("got %+v; want the default provider openai", got)
	}
	if gemini.calls != 0 {
		t.Fatal("non-default generator was called")
	}
}

func TestGenerateInsightUnknownUser(t *testing.T) {
	store, _ := insightFixture()
	svc := NewInsightService(store, "gemini", &fakeGenerator{name: "gemini"})

	if _, err := svc.GenerateInsight(context.Background(), 999, ""); !errors.Is(err, core.ErrUserNotFound) {
		t.Fatalf("error = %v; want ErrUserNotFound", err)
	}
}

func TestGenerateInsightNoExpenses(t *testing.T) {
	store, _ := insightFixture()
	store.users[8] = core.User{ID: 8, FullName: "Empty"}
	svc := NewInsightService(store, "gemini", &fakeGenerator{name: "gemini"})

	if _, err := svc.GenerateInsight(context.Background(), 8, ""); !errors.Is(err, core.ErrNoExpenses) {
		t.Fatalf("error = %v; want ErrNoExpenses", err)
	}
}
