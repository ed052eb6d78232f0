// Package models contains shared data models used across the SentinelSlice codebase.
package models

import (
	"context"
	"time"
)

// CompletionProvider is the core interface that all language-model integrations
// must implement. Never call specific providers directly — always inject this
// interface.
type CompletionProvider interface {
	// Complete sends a prompt and returns the generated text plus usage.
	Complete(ctx context.Context, req CompletionRequest) (*Completion, error)
	// Name returns the provider identifier (e.g., "openai", "mock").
	Name() string
}

// CompletionRequest is the input to a single completion call.
type CompletionRequest struct {
	Prompt    string
	MaxTokens int
}

// Completion holds the generated text and the cost of producing it.
type Completion struct {
	Text             string
	Model            string
	PromptTokens     int
	CompletionTokens int
	Latency          time.Duration
}
