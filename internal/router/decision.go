package router

// Kind tags a dispatch decision. Every processed utterance yields exactly
// one of the three.
type Kind int

const (
	// Instantaneous tasks already ran; Text carries their result.
	Instantaneous Kind = iota
	// LongTerm tasks run on a background worker; Task and Argument name
	// what to execute.
	LongTerm
	// Conversational input goes straight to the chat generator; Text
	// carries the user's words.
	Conversational
)

func (k Kind) String() string {
	switch k {
	case Instantaneous:
		return "instantaneous"
	case LongTerm:
		return "long-term"
	case Conversational:
		return "conversational"
	}
	return "unknown"
}

// Long-term task names understood by the streaming controller's registry.
const (
	TaskOpening        = "opening"
	TaskDeletion       = "deletion"
	TaskReorganization = "reorganization"
	TaskReminder       = "reminder"
	TaskReading        = "reading"
	TaskAlarm          = "alarm"
	TaskGrayscale      = "image processing"
)

// Decision is the outcome of routing one utterance.
type Decision struct {
	Kind     Kind
	Task     string // long-term only
	Argument string // long-term only
	Text     string // instantaneous result or conversational text
}

func instant(text string) Decision {
	return Decision{Kind: Instantaneous, Text: text}
}

func longTerm(task, argument string) Decision {
	return Decision{Kind: LongTerm, Task: task, Argument: argument}
}

func conversational(text string) Decision {
	return Decision{Kind: Conversational, Text: text}
}
