package core

import "context"

// Message is a single chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func System(content string) Message { return Message{Role: "system", Content: content} }

func User(content string) Message { return Message{Role: "user", Content: content} }

// Options controls model behaviour; zero fields take the provider defaults.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int
	// JSONMode asks the provider to return a single JSON object.
	JSONMode bool
}

// Client is a provider-agnostic chat completion client.
type Client interface {
	Complete(ctx context.Context, messages []Message, opts Options) (string, error)
}
