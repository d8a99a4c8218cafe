// Package ai defines the outbound port for text-generation providers.
// Concrete adapters live in the gemini and openai subpackages.
package ai

import "context"

// Status classifies the result of a generation attempt.
type Status string

const (
	// StatusSuccess carries non-empty generated text.
	StatusSuccess Status = "success"
	// StatusQuota means the provider signaled rate or quota limiting.
	// Kept distinct from StatusFailure so the caller can pick a specific
	// user-facing note.
	StatusQuota Status = "quota"
	// StatusUnconfigured means the required credential is absent. An
	// unconfigured adapter must not attempt a network call.
	StatusUnconfigured Status = "unconfigured"
	// StatusFailure covers everything else: non-2xx responses, malformed
	// bodies, network errors, timeouts, and empty text.
	StatusFailure Status = "failure"
)

// Outcome is the normalized result of Generator.Generate. Text is set only
// on success; Reason is a human-readable description for the other states.
type Outcome struct {
	Status Status
	Text   string
	Reason string
}

// Generator is the capability "generate text from a prompt".
type Generator interface {
	// Name identifies the provider ("gemini", "openai") for provenance.
	Name() string
	// Generate runs one bounded generation attempt. It never returns an
	// error; all failure modes are folded into the Outcome.
	Generate(ctx context.Context, prompt string) Outcome
}

func Success(text string) Outcome { return Outcome{Status: StatusSuccess, Text: text} }

func Quota(reason string) Outcome { return Outcome{Status: StatusQuota, Reason: reason} }

func Unconfigured(reason string) Outcome {
	return Outcome{Status: StatusUnconfigured, Reason: reason}
}

func Failure(reason string) Outcome { return Outcome{Status: StatusFailure, Reason: reason} }
