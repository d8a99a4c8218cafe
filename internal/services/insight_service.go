package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"outlay/internal/ai"
	"outlay/internal/core"
)

// FallbackProvider tags insights produced locally instead of by an AI
// provider.
const FallbackProvider = "fallback"

// recentWindow bounds how many expenses feed a single insight request.
const recentWindow = 100

// InsightStore is the slice of storage the insight pipeline needs.
type InsightStore interface {
	GetUserByID(ctx context.Context, id int64) (core.User, error)
	ListRecentExpenses(ctx context.Context, userID int64, limit int) ([]core.Expense, error)
}

// Insight is the outcome of one insight request: the narrative, where it came
// from, and the aggregates computed over the analyzed window.
type Insight struct {
	Text     string
	Provider string
	Note     string
	Total    float64
	Average  float64
	Count    int
}

// InsightService turns a user's recent expenses into coaching text. It asks
// the selected AI provider first and degrades to the local summary whenever
// the provider cannot answer.
type InsightService struct {
	store           InsightStore
	generators      map[string]ai.Generator
	defaultProvider string
}

// NewInsightService builds the pipeline. Generators are keyed by their
// lowercase Name; defaultProvider picks which one serves requests that do
// not name a provider.
func NewInsightService(store InsightStore, defaultProvider string, generators ...ai.Generator) *InsightService {
	byName := make(map[string]ai.Generator, len(generators))
	for _, g := range generators {
		byName[strings.ToLower(g.Name())] = g
	}
	return &InsightService{
		store:           store,
		generators:      byName,
		defaultProvider: strings.ToLower(defaultProvider),
	}
}

// GenerateInsight produces an insight for a user. The provider argument is
// the raw request value; empty means the configured default. Unknown users
// yield core.ErrUserNotFound and users without expenses core.ErrNoExpenses,
// every other path returns a usable Insight.
func (s *InsightService) GenerateInsight(ctx context.Context, userID int64, provider string) (Insight, error) {
	if _, err := s.store.GetUserByID(ctx, userID); err != nil {
		return Insight{}, err
	}

	records, err := s.store.ListRecentExpenses(ctx, userID, recentWindow)
	if err != nil {
		return Insight{}, fmt.Errorf("list recent expenses: %w", err)
	}
	if len(records) == 0 {
		return Insight{}, core.ErrNoExpenses
	}

	// The summary is always computed: it backs the fallback narrative and
	// supplies the aggregates returned alongside AI text.
	summary := core.Summarize(records)

	name := strings.ToLower(strings.TrimSpace(provider))
	if name == "" {
		name = s.defaultProvider
	}

	gen, ok := s.generators[name]
	if !ok {
		slog.WarnContext(ctx, "Unknown AI provider requested, using fallback",
			"provider", name,
			"user_id", userID)
		return s.fallback(summary, "Using local fallback insights."), nil
	}

	outcome := gen.Generate(ctx, core.BuildPrompt(records))
	switch outcome.Status {
	case ai.StatusSuccess:
		slog.InfoContext(ctx, "AI insight generated",
			"provider", gen.Name(),
			"user_id", userID,
			"expense_count", summary.Count)
		return Insight{
			Text:     outcome.Text,
			Provider: gen.Name(),
			Total:    summary.Total,
			Average:  summary.Average,
			Count:    summary.Count,
		}, nil
	case ai.StatusQuota:
		slog.WarnContext(ctx, "AI provider quota exhausted, using fallback",
			"provider", gen.Name(),
			"user_id", userID)
		return s.fallback(summary, outcome.Reason+"; showing local insights."), nil
	default:
		slog.WarnContext(ctx, "AI provider unavailable, using fallback",
			"provider", gen.Name(),
			"status", string(outcome.Status),
			"reason", outcome.Reason,
			"user_id", userID)
		return s.fallback(summary, outcome.Reason), nil
	}
}

func (s *InsightService) fallback(summary core.Summary, note string) Insight {
	return Insight{
		Text:     summary.Narrative,
		Provider: FallbackProvider,
		Note:     note,
		Total:    summary.Total,
		Average:  summary.Average,
		Count:    summary.Count,
	}
}
