package generate

import "context"

// formatterPrompt turns terse internal status messages into something a
// person would actually want to hear.
const formatterPrompt = `You convert robotic desktop assistant responses into friendly, conversational messages.
Transform technical outputs into warm, human-like replies with personality.
Answer in the language named at the end of the user message.

Examples:

"20:34" -> "It's 20:34 right now! Need help with anything else?"
"Google was opened successfully" -> "I opened Google for you! What would you like to search for?"
"Object was found and deleted" -> "Done, I got rid of it! Anything else?"

Guidelines:

Use friendly, casual language with enthusiasm
Add helpful follow-up questions when appropriate
Sound like a helpful friend, not a robot
Keep responses warm but concise`

// Formatter rephrases instantaneous-action results through the model
// before they reach the user. Each call is independent: the formatter
// keeps no history.
type Formatter struct {
	client ChatStreamer

	// Language reports the user's reply language; nil means English.
	Language func() string
}

// NewFormatter wraps a provider in the rephrasing prompt.
func NewFormatter(client ChatStreamer, language func() string) *Formatter {
	return &Formatter{client: client, Language: language}
}

func (f *Formatter) Generate(ctx context.Context, text string) (<-chan string, <-chan error) {
	lang := "en"
	if f.Language != nil {
		lang = f.Language()
	}
	messages := []Message{
		{Role: RoleSystem, Content: formatterPrompt},
		{Role: RoleUser, Content: text + "\n" + lang},
	}
	return f.client.StreamChat(ctx, messages)
}
