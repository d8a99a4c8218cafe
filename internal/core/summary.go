package core

import (
	"fmt"
	"sort"
	"strings"
)

// Summary is the deterministic local stand-in for an AI-generated insight.
// Narrative holds newline-joined bullet lines; the numeric fields feed the
// response metadata regardless of which provider produced the final text.
type Summary struct {
	Narrative string
	Total     float64
	Average   float64
	Count     int
}

const insufficientDataLine = "- Keep tracking; not enough data for insights yet."

// Summarize computes spending statistics and a templated narrative from a
// list of expenses. It is pure and side-effect-free so it can double as the
// fallback when no AI provider is available.
//
// The narrative is built from, in order: the top three item groups by
// summed cost, the two most frequent items, an advisory when at least three
// purchases cost less than half the average, the average with a suggested
// per-purchase cap, and a closing action line. Ties are broken by
// first-seen order; blank items group under "Other".
func Summarize(records []Expense) Summary {
	if len(records) == 0 {
		return Summary{Narrative: insufficientDataLine}
	}

	var total float64
	for _, e := range records {
		total += e.Cost
	}
	avg := total / float64(len(records))

	type group struct {
		name  string
		total float64
		count int
	}
	var groups []*group
	index := make(map[string]*group)
	for _, e := range records {
		name := NormalizeItem(e.Item)
		g, ok := index[name]
		if !ok {
			g = &group{name: name}
			index[name] = g
			groups = append(groups, g)
		}
		g.total += e.Cost
		g.count++
	}

	byTotal := make([]*group, len(groups))
	copy(byTotal, groups)
	sort.SliceStable(byTotal, func(i, j int) bool { return byTotal[i].total > byTotal[j].total })
	if len(byTotal) > 3 {
		byTotal = byTotal[:3]
	}

	byCount := make([]*group, len(groups))
	copy(byCount, groups)
	sort.SliceStable(byCount, func(i, j int) bool { return byCount[i].count > byCount[j].count })
	if len(byCount) > 2 {
		byCount = byCount[:2]
	}

	smallSpends := 0
	if avg > 0 {
		threshold := avg * 0.5
		for _, e := range records {
			if e.Cost < threshold {
				smallSpends++
			}
		}
	}

	var lines []string
	if len(byTotal) > 0 {
		parts := make([]string, len(byTotal))
		for i, g := range byTotal {
			parts[i] = fmt.Sprintf("%s: %s", g.name, FormatRupees(g.total, 0))
		}
		lines = append(lines, fmt.Sprintf("Top spend categories -> %s.", strings.Join(parts, ", ")))
	}
	if len(byCount) > 0 {
		parts := make([]string, len(byCount))
		for i, g := range byCount {
			parts[i] = fmt.Sprintf("%s x%d", g.name, g.count)
		}
		lines = append(lines, fmt.Sprintf("Most frequent items -> %s.", strings.Join(parts, ", ")))
	}
	if smallSpends >= 3 {
		lines = append(lines, "Many small purchases detected; try batching or weekly caps.")
	}
	if avg > 0 {
		lines = append(lines, fmt.Sprintf("Average per expense: %s. Set a per-purchase limit to stay on budget.", FormatRupees(avg, 0)))
	}
	lines = append(lines, "Pick one top category and aim to trim 10-15% this month.")

	bullets := make([]string, len(lines))
	for i, l := range lines {
		bullets[i] = "- " + l
	}

	return Summary{
		Narrative: strings.Join(bullets, "\n"),
		Total:     total,
		Average:   avg,
		Count:     len(records),
	}
}
