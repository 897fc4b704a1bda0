package generate

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ChatStreamer is the provider-side contract the formatter and the chat
// generator build on.
type ChatStreamer interface {
	StreamChat(ctx context.Context, messages []Message) (<-chan string, <-chan error)
}

// ClientConfig configures an OpenAI-compatible streaming client.
type ClientConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Timeout     time.Duration
	Temperature float64
}

// DefaultClientConfig returns the DeepSeek defaults.
func DefaultClientConfig(apiKey string) ClientConfig {
	return ClientConfig{
		APIKey:      apiKey,
		BaseURL:     "https://api.deepseek.com",
		Model:       "deepseek-chat",
		Timeout:     2 * time.Minute,
		Temperature: 1.0,
	}
}

// Client streams chat completions from any OpenAI-compatible endpoint.
type Client struct {
	log        *zap.Logger
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	temp       float64
}

// NewClient creates a streaming client. A nil logger is replaced with a
// no-op one.
func NewClient(log *zap.Logger, config ClientConfig) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		log:     log.Named("llm"),
		apiKey:  config.APIKey,
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		model:   config.Model,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		temp: config.Temperature,
	}
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Stream      bool      `json:"stream"`
	Temperature float64   `json:"temperature,omitempty"`
}

type chatChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// StreamChat sends the transcript and streams the completion token by
// token. The content channel closes when the stream ends; the error
// channel carries at most one error.
func (c *Client) StreamChat(ctx context.Context, messages []Message) (<-chan string, <-chan error) {
	contentChan := make(chan string, 100)
	errorChan := make(chan error, 1)

	go func() {
		defer close(contentChan)
		defer close(errorChan)

		if c.apiKey == "" {
			errorChan <- fmt.Errorf("API key not configured")
			return
		}

		reqBody := chatRequest{
			Model:       c.model,
			Messages:    messages,
			Stream:      true,
			Temperature: c.temp,
		}
		jsonData, err := json.Marshal(reqBody)
		if err != nil {
			errorChan <- fmt.Errorf("failed to marshal request: %w", err)
			return
		}

		req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewReader(jsonData))
		if err != nil {
			errorChan <- fmt.Errorf("failed to create request: %w", err)
			return
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		start := time.Now()
		resp, err := c.httpClient.Do(req)
		if err != nil {
			errorChan <- fmt.Errorf("request failed: %w", err)
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			errorChan <- fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
			return
		}

		// The scanner runs in its own goroutine so cancellation can
		// force-close the body and unblock Scan.
		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

		scanDone := make(chan struct{})
		scanErrChan := make(chan error, 1)

		go func() {
			defer close(scanDone)
			for scanner.Scan() {
				line := scanner.Text()
				if !strings.HasPrefix(line, "data:") {
					continue
				}
				data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
				if data == "" {
					continue
				}
				if data == "[DONE]" {
					return
				}

				var chunk chatChunk
				if err := json.Unmarshal([]byte(data), &chunk); err != nil {
					continue
				}
				if chunk.Error != nil {
					scanErrChan <- fmt.Errorf("API error: %s", chunk.Error.Message)
					return
				}
				if len(chunk.Choices) == 0 {
					continue
				}
				token := chunk.Choices[0].Delta.Content
				if token == "" {
					continue
				}
				select {
				case contentChan <- token:
				case <-ctx.Done():
					return
				}
			}
			if err := scanner.Err(); err != nil {
				scanErrChan <- err
			}
		}()

		select {
		case <-scanDone:
			select {
			case err := <-scanErrChan:
				errorChan <- fmt.Errorf("stream error: %w", err)
			default:
				c.log.Debug("stream completed", zap.Duration("elapsed", time.Since(start)))
			}
		case <-ctx.Done():
			resp.Body.Close()
			<-scanDone
			errorChan <- ctx.Err()
		}
	}()

	return contentChan, errorChan
}
