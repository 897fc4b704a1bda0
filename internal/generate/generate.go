// Package generate produces the assistant's spoken responses as token
// streams. Every provider exposes the same two-channel contract: a content
// channel that closes when the response is complete, and an error channel
// for anything that went wrong mid-stream. Consumers range over tokens and
// check the error channel once the content channel closes.
package generate

import (
	"context"
	"strings"
)

// TokenGenerator streams a response to text token by token.
type TokenGenerator interface {
	Generate(ctx context.Context, text string) (<-chan string, <-chan error)
}

// Message is one turn of a chat transcript.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Passthrough streams the input text back word by word. It stands in for a
// real provider when no API key is configured, so the assistant keeps
// answering instead of going silent.
type Passthrough struct{}

func (Passthrough) Generate(ctx context.Context, text string) (<-chan string, <-chan error) {
	contentChan := make(chan string, 100)
	errorChan := make(chan error, 1)

	go func() {
		defer close(contentChan)
		defer close(errorChan)

		words := strings.Fields(text)
		for i, word := range words {
			token := word
			if i < len(words)-1 {
				token += " "
			}
			select {
			case contentChan <- token:
			case <-ctx.Done():
				errorChan <- ctx.Err()
				return
			}
		}
	}()

	return contentChan, errorChan
}
