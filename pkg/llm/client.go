// Package llm defines the chat-completion and embedding contract shared by
// the language model providers.
package llm

import (
	"context"
	"errors"
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ErrEmptyCompletion is returned when the provider answers without any choice.
var ErrEmptyCompletion = errors.New("llm: empty completion")

// Message is one chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionOptions tune a single completion call. Zero values use provider defaults.
type CompletionOptions struct {
	Model       string
	MaxTokens   int
	Temperature float64
}

// Client is implemented by every language model provider.
type Client interface {
	Complete(ctx context.Context, messages []Message, opts CompletionOptions) (string, error)
	Embed(ctx context.Context, text string) ([]float32, error)
}
