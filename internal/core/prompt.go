package core

import (
	"fmt"
	"sort"
	"strings"
)

// promptDetailLimit caps the detail block so the prompt stays bounded no
// matter how many records the caller passes.
const promptDetailLimit = 30

// BuildPrompt turns a list of expenses into the instruction sent to an AI
// provider: a fixed coaching preamble, a numeric summary block, and a
// detail block with at most promptDetailLimit "item | cost" lines. Like
// Summarize it is pure; no clock, network, or randomness.
func BuildPrompt(records []Expense) string {
	var total float64
	for _, e := range records {
		total += e.Cost
	}
	var avg float64
	if len(records) > 0 {
		avg = total / float64(len(records))
	}

	summaryLines := []string{
		fmt.Sprintf("Total expenses: %s", FormatRupees(total, 2)),
		fmt.Sprintf("Average per expense: %s", FormatRupees(avg, 2)),
		fmt.Sprintf("Expense count: %d", len(records)),
	}

	type freq struct {
		name  string
		count int
	}
	var freqs []*freq
	index := make(map[string]*freq)
	for _, e := range records {
		name := NormalizeItem(e.Item)
		f, ok := index[name]
		if !ok {
			f = &freq{name: name}
			index[name] = f
			freqs = append(freqs, f)
		}
		f.count++
	}
	sort.SliceStable(freqs, func(i, j int) bool { return freqs[i].count > freqs[j].count })
	if len(freqs) > 5 {
		freqs = freqs[:5]
	}
	if len(freqs) > 0 {
		parts := make([]string, len(freqs))
		for i, f := range freqs {
			parts[i] = fmt.Sprintf("%s x%d", f.name, f.count)
		}
		summaryLines = append(summaryLines, "Top items: "+strings.Join(parts, ", "))
	}

	detail := records
	if len(detail) > promptDetailLimit {
		detail = detail[:promptDetailLimit]
	}
	detailLines := make([]string, len(detail))
	for i, e := range detail {
		item := strings.TrimSpace(e.Item)
		if item == "" {
			item = "Item"
		}
		detailLines[i] = fmt.Sprintf("- %s | ₹%.2f", item, e.Cost)
	}

	return "You are a concise financial coach." +
		" Give 3-5 bullet insights and 2 actionable suggestions tailored to the data." +
		" Avoid repeating the raw numbers; focus on patterns and next steps." +
		" Keep it under 120 words." +
		"\nSummary:\n" + strings.Join(summaryLines, "\n") +
		"\nDetails:\n" + strings.Join(detailLines, "\n")
}
