package generate

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeStreamer records the transcript it was handed and replays canned
// tokens.
type fakeStreamer struct {
	tokens []string
	err    error
	got    []Message
}

func (f *fakeStreamer) StreamChat(ctx context.Context, messages []Message) (<-chan string, <-chan error) {
	f.got = messages
	contentChan := make(chan string, len(f.tokens))
	errorChan := make(chan error, 1)
	go func() {
		defer close(contentChan)
		defer close(errorChan)
		for _, tok := range f.tokens {
			select {
			case contentChan <- tok:
			case <-ctx.Done():
				errorChan <- ctx.Err()
				return
			}
		}
		if f.err != nil {
			errorChan <- f.err
		}
	}()
	return contentChan, errorChan
}

func collect(t *testing.T, tokens <-chan string, errs <-chan error) (string, error) {
	t.Helper()
	var sb strings.Builder
	for tok := range tokens {
		sb.WriteString(tok)
	}
	return sb.String(), <-errs
}

func TestPassthrough_StreamsWordByWord(t *testing.T) {
	tokens, errs := Passthrough{}.Generate(context.Background(), "It is 20:34 right now")

	var got []string
	for tok := range tokens {
		got = append(got, tok)
	}
	require.NoError(t, <-errs)
	require.Equal(t, []string{"It ", "is ", "20:34 ", "right ", "now"}, got)
	require.Equal(t, "It is 20:34 right now", strings.Join(got, ""))
}

func TestFormatter_WrapsMessageWithLanguage(t *testing.T) {
	fake := &fakeStreamer{tokens: []string{"All ", "done!"}}
	f := NewFormatter(fake, func() string { return "ru" })

	tokens, errs := f.Generate(context.Background(), "Object was found and deleted")
	out, err := collect(t, tokens, errs)

	require.NoError(t, err)
	require.Equal(t, "All done!", out)
	require.Len(t, fake.got, 2)
	require.Equal(t, RoleSystem, fake.got[0].Role)
	require.Equal(t, RoleUser, fake.got[1].Role)
	require.Equal(t, "Object was found and deleted\nru", fake.got[1].Content)
}

func TestFormatter_DefaultsToEnglish(t *testing.T) {
	fake := &fakeStreamer{tokens: []string{"ok"}}
	f := NewFormatter(fake, nil)

	tokens, errs := f.Generate(context.Background(), "20:34")
	_, err := collect(t, tokens, errs)

	require.NoError(t, err)
	require.True(t, strings.HasSuffix(fake.got[1].Content, "\nen"))
}

func TestChat_KeepsHistoryAcrossTurns(t *testing.T) {
	fake := &fakeStreamer{tokens: []string{"Hi ", "there"}}
	chat := NewChat(fake)

	tokens, errs := chat.Generate(context.Background(), "hello")
	out, err := collect(t, tokens, errs)
	require.NoError(t, err)
	require.Equal(t, "Hi there", out)

	// Second turn must carry the system prompt, both user turns, and the
	// first assistant reply.
	fake.tokens = []string{"Still here"}
	tokens, errs = chat.Generate(context.Background(), "are you there?")
	_, err = collect(t, tokens, errs)
	require.NoError(t, err)

	require.Equal(t, []Message{
		{Role: RoleSystem, Content: chatPrompt},
		{Role: RoleUser, Content: "hello"},
		{Role: RoleAssistant, Content: "Hi there"},
		{Role: RoleUser, Content: "are you there?"},
	}, fake.got)
}

func TestChat_SurfacesStreamError(t *testing.T) {
	fake := &fakeStreamer{tokens: []string{"par"}, err: fmt.Errorf("connection reset")}
	chat := NewChat(fake)

	tokens, errs := chat.Generate(context.Background(), "hello")
	out, err := collect(t, tokens, errs)

	require.Error(t, err)
	require.Equal(t, "par", out)
	// A partial reply is still remembered.
	history := chat.History()
	require.Equal(t, Message{Role: RoleAssistant, Content: "par"}, history[len(history)-1])
}

func TestChat_TrimsOldTurnsButKeepsSystemPrompt(t *testing.T) {
	fake := &fakeStreamer{tokens: []string{"ok"}}
	chat := NewChat(fake)
	for i := 0; i < historyLimit; i++ {
		fake.tokens = []string{"ok"}
		tokens, errs := chat.Generate(context.Background(), fmt.Sprintf("turn %d", i))
		_, err := collect(t, tokens, errs)
		require.NoError(t, err)
	}

	history := chat.History()
	require.LessOrEqual(t, len(history), historyLimit)
	require.Equal(t, Message{Role: RoleSystem, Content: chatPrompt}, history[0])
}

func TestClient_StreamsServerSentEvents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, tok := range []string{"Hello", ", ", "world"} {
			fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":%q}}]}\n\n", tok)
			flusher.Flush()
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	client := NewClient(nil, ClientConfig{
		APIKey:  "test-key",
		BaseURL: srv.URL,
		Model:   "deepseek-chat",
		Timeout: 5 * time.Second,
	})

	tokens, errs := client.StreamChat(context.Background(), []Message{
		{Role: RoleUser, Content: "hi"},
	})
	out, err := collect(t, tokens, errs)

	require.NoError(t, err)
	require.Equal(t, "Hello, world", out)
}

func TestClient_MissingKeyFails(t *testing.T) {
	client := NewClient(nil, DefaultClientConfig(""))
	tokens, errs := client.StreamChat(context.Background(), nil)
	_, err := collect(t, tokens, errs)
	require.Error(t, err)
}

func TestClient_NonOKStatusFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"quota exceeded"}}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewClient(nil, ClientConfig{APIKey: "k", BaseURL: srv.URL, Model: "m", Timeout: 5 * time.Second})
	tokens, errs := client.StreamChat(context.Background(), nil)
	_, err := collect(t, tokens, errs)
	require.ErrorContains(t, err, "429")
}

func TestClient_CancellationStopsStream(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"first\"}}]}\n\n")
		flusher.Flush()
		<-release // hold the stream open
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	client := NewClient(nil, ClientConfig{APIKey: "k", BaseURL: srv.URL, Model: "m", Timeout: time.Minute})
	tokens, errs := client.StreamChat(ctx, []Message{{Role: RoleUser, Content: "hi"}})

	require.Equal(t, "first", <-tokens)
	cancel()

	for range tokens {
	}
	require.Error(t, <-errs)
}
