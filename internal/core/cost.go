// Package core provides the expense domain model plus the pure
// summarization and prompt-building logic used by the insight pipeline.
//
// This file contains cost parsing. Costs arrive from JSON bodies either as
// numbers or as strings, so parsing coerces both forms into a non-negative
// float64.
package core

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ParseCost coerces a decoded JSON value into a non-negative cost.
//
// Accepted inputs are float64 (the default JSON number decoding),
// json.Number, and numeric strings. A missing value (nil), a non-numeric
// string, NaN/Inf, or a negative amount all yield ErrInvalidCost.
//
// Examples:
//
//	ParseCost(12.5)    -> 12.5, nil
//	ParseCost("12.5")  -> 12.5, nil
//	ParseCost(nil)     -> 0, ErrInvalidCost
//	ParseCost("-3")    -> 0, ErrInvalidCost
func ParseCost(v any) (float64, error) {
	var (
		cost float64
		err  error
	)
	switch t := v.(type) {
	case nil:
		return 0, fmt.Errorf("%w: missing value", ErrInvalidCost)
	case float64:
		cost = t
	case int:
		cost = float64(t)
	case int64:
		cost = float64(t)
	case json.Number:
		cost, err = t.Float64()
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, fmt.Errorf("%w: empty string", ErrInvalidCost)
		}
		cost, err = strconv.ParseFloat(s, 64)
	default:
		return 0, fmt.Errorf("%w: unsupported type %T", ErrInvalidCost, v)
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidCost, err)
	}
	if math.IsNaN(cost) || math.IsInf(cost, 0) {
		return 0, fmt.Errorf("%w: not a finite number", ErrInvalidCost)
	}
	if cost < 0 {
		return 0, fmt.Errorf("%w: negative amount", ErrInvalidCost)
	}
	return cost, nil
}

// FormatRupees renders an amount as a rupee string with thousands grouping,
// e.g. FormatRupees(5270, 0) -> "₹5,270" and FormatRupees(1756.666, 2) ->
// "₹1,756.67". Grouping matches the original report formatting.
func FormatRupees(v float64, decimals int) string {
	s := strconv.FormatFloat(v, 'f', decimals, 64)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	intPart := s
	frac := ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, frac = s[:i], s[i:]
	}
	var b strings.Builder
	for i, d := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(d)
	}
	out := "₹" + b.String() + frac
	if neg {
		out = "-" + out
	}
	return out
}
