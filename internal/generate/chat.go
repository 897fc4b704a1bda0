package generate

import (
	"context"
	"strings"
	"sync"
)

const chatPrompt = "Answer as short as possible"

// historyLimit caps the transcript so long sessions do not grow the
// request without bound. The system prompt is never evicted.
const historyLimit = 40

// Chat is the conversational generator. It keeps the running transcript
// so the model sees earlier turns, and folds each finished response back
// into the history.
type Chat struct {
	client ChatStreamer

	mu      sync.Mutex
	history []Message
}

// NewChat starts a conversation with the brevity instruction pinned first.
func NewChat(client ChatStreamer) *Chat {
	return &Chat{
		client:  client,
		history: []Message{{Role: RoleSystem, Content: chatPrompt}},
	}
}

// Generate streams a reply to text. The user turn joins the history
// immediately; the assistant turn joins once its stream closes, so a
// cancelled response is remembered only as far as it got.
func (c *Chat) Generate(ctx context.Context, text string) (<-chan string, <-chan error) {
	c.mu.Lock()
	c.history = append(c.history, Message{Role: RoleUser, Content: text})
	c.trimLocked()
	transcript := make([]Message, len(c.history))
	copy(transcript, c.history)
	c.mu.Unlock()

	tokens, errs := c.client.StreamChat(ctx, transcript)

	contentChan := make(chan string, 100)
	errorChan := make(chan error, 1)
	go func() {
		defer close(contentChan)
		defer close(errorChan)

		var reply strings.Builder
		for token := range tokens {
			reply.WriteString(token)
			select {
			case contentChan <- token:
			case <-ctx.Done():
			}
		}
		if err := <-errs; err != nil {
			errorChan <- err
		}

		if reply.Len() > 0 {
			c.mu.Lock()
			c.history = append(c.history, Message{Role: RoleAssistant, Content: reply.String()})
			c.trimLocked()
			c.mu.Unlock()
		}
	}()

	return contentChan, errorChan
}

// History returns a copy of the transcript.
func (c *Chat) History() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.history))
	copy(out, c.history)
	return out
}

func (c *Chat) trimLocked() {
	if len(c.history) <= historyLimit {
		return
	}
	trimmed := []Message{c.history[0]}
	c.history = append(trimmed, c.history[len(c.history)-historyLimit+1:]...)
}
