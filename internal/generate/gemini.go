package generate

import (
	"context"
	"fmt"
	"sync"

	"google.golang.org/genai"
)

// Gemini is the conversational generator backed by the Gemini API. Like
// Chat it carries the running transcript between turns.
type Gemini struct {
	client *genai.Client
	model  string

	mu      sync.Mutex
	history []*genai.Content
}

// NewGemini creates the Gemini provider.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &Gemini{client: client, model: model}, nil
}

func (g *Gemini) Generate(ctx context.Context, text string) (<-chan string, <-chan error) {
	contentChan := make(chan string, 100)
	errorChan := make(chan error, 1)

	g.mu.Lock()
	g.history = append(g.history, genai.NewContentFromText(text, genai.RoleUser))
	transcript := make([]*genai.Content, len(g.history))
	copy(transcript, g.history)
	g.mu.Unlock()

	go func() {
		defer close(contentChan)
		defer close(errorChan)

		config := &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(chatPrompt, genai.RoleUser),
		}

		var reply string
		for resp, err := range g.client.Models.GenerateContentStream(ctx, g.model, transcript, config) {
			if err != nil {
				errorChan <- fmt.Errorf("Gemini stream failed: %w", err)
				return
			}
			token := resp.Text()
			if token == "" {
				continue
			}
			reply += token
			select {
			case contentChan <- token:
			case <-ctx.Done():
				errorChan <- ctx.Err()
				return
			}
		}

		if reply != "" {
			g.mu.Lock()
			g.history = append(g.history, genai.NewContentFromText(reply, genai.RoleModel))
			g.mu.Unlock()
		}
	}()

	return contentChan, errorChan
}
