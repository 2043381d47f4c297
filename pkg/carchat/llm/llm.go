// Package llm defines the narrow completion contract the chat pipeline needs
// from a language model, plus decorators for rate limiting and metrics.
package llm

import (
	"context"
	"errors"
)

var (
	// ErrEmptyResponse is returned when the model produced no choices
	ErrEmptyResponse = errors.New("llm returned no choices")
	// ErrMissingAPIKey is returned when a hosted endpoint is called without a key
	ErrMissingAPIKey = errors.New("llm api key missing")
)

const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// Message is one role-tagged chat message
type Message struct {
	Role    string
	Content string
}

// Request is a single plain-text completion call
type Request struct {
	// Operation labels the call for logs and metrics, e.g. "extract"
	Operation   string
	Messages    []Message
	Temperature float32
	MaxTokens   int
}

// Completer returns the generated text for a request
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// CompleterFunc adapts a function to Completer
type CompleterFunc func(ctx context.Context, req Request) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// UserPrompt builds a request with a single user message
func UserPrompt(op, prompt string, temperature float32, maxTokens int) Request {
	return Request{
		Operation:   op,
		Messages:    []Message{{Role: RoleUser, Content: prompt}},
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}
}
