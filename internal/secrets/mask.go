// Package secrets holds helpers for handling provider API keys outside the
// web surface: masking for diagnostics and rough format checks. Keys are
// never logged in full by the server; the keycheck CLI uses these same
// helpers.
package secrets

import "regexp"

var (
	openAIKeyPattern = regexp.MustCompile(`^(sk-|sk-proj-)[A-Za-z0-9_-]+`)
	geminiKeyPattern = regexp.MustCompile(`^AIza[0-9A-Za-z_-]{30,}$`)
)

// Mask returns a redacted form of a secret: the first six and last four
// characters with an ellipsis in between. Secrets of ten characters or
// fewer are fully masked since showing any part would reveal too much.
func Mask(value string) string {
	if len(value) <= 10 {
		return "***"
	}
	return value[:6] + "..." + value[len(value)-4:]
}

// LooksValid reports whether a key matches the known shape for the named
// provider ("openai" or "gemini"). It is a plausibility check only, not an
// authorization check.
func LooksValid(provider, value string) bool {
	switch provider {
	case "openai":
		return openAIKeyPattern.MatchString(value)
	case "gemini":
		return geminiKeyPattern.MatchString(value)
	}
	return false
}
