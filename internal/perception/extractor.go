// Package perception turns free text into structured intent. The extractor
// finds the root action verb (fusing a trailing particle, so "turn off" is
// one verb token) and the direct object attached to it. Absent fields are a
// valid outcome, not an error: the router treats them as "fall back to
// conversation".
package perception

import (
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// Intent is the (verb, object) pair extracted from an utterance. Either
// field may be empty when the sentence has no recognizable structure.
type Intent struct {
	Verb   string
	Object string
}

// Defined reports whether both the verb and the object were found.
func (i Intent) Defined() bool {
	return i.Verb != "" && i.Object != ""
}

// Extractor is the intent classifier. It works on pre-normalized text
// (lowercased, punctuation stripped, whitespace collapsed) using a small
// verb lexicon instead of a full dependency parser.
type Extractor struct {
	log *zap.Logger
}

// NewExtractor returns an Extractor logging through the given logger.
func NewExtractor(log *zap.Logger) *Extractor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Extractor{log: log.Named("extractor")}
}

// Imperative verbs the assistant understands as sentence roots. The command
// table decides which of them map to system capabilities.
var rootVerbs = map[string]bool{
	"open": true, "play": true, "say": true, "create": true,
	"search": true, "read": true, "show": true, "tell": true,
	"set": true, "make": true, "start": true, "stop": true,
	"turn": true, "switch": true, "increase": true, "decrease": true,
	"mute": true, "unmute": true, "delete": true, "remove": true,
	"solve": true, "find": true, "launch": true, "run": true,
}

// Particles that fuse with a preceding verb into a phrasal verb.
var particles = map[string]bool{
	"on": true, "off": true, "up": true, "down": true, "out": true,
	"over": true, "in": true, "away": true,
}

// Fillers skipped when looking for the direct object.
var fillers = map[string]bool{
	"the": true, "a": true, "an": true, "some": true, "my": true,
	"your": true, "this": true, "that": true, "please": true,
	"to": true, "me": true, "for": true, "of": true, "it": true,
	"at": true, "and": true,
}

var whitespaceRe = regexp.MustCompile(`\s+`)

// Normalize lowercases, strips punctuation and collapses whitespace. The
// router runs it before Extract so both see the same token stream.
func Normalize(text string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(text) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == ' ', r == '\t':
			b.WriteRune(r)
		default:
			// Unicode letters survive; ASCII punctuation does not.
			if r > 127 {
				b.WriteRune(r)
			}
		}
	}
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(b.String(), " "))
}

// Extract returns the root verb and its direct object. The verb is the
// first lexicon token; a particle immediately after it is fused in; the
// object is the first non-filler token after the verb.
func (e *Extractor) Extract(text string) Intent {
	tokens := strings.Fields(text)

	verbIdx := -1
	var verb string
	for i, tok := range tokens {
		if rootVerbs[tok] {
			verbIdx = i
			verb = tok
			break
		}
	}
	if verbIdx < 0 {
		e.log.Debug("no root verb found", zap.String("text", text))
		return Intent{}
	}

	rest := tokens[verbIdx+1:]
	if len(rest) > 0 && particles[rest[0]] {
		verb = verb + " " + rest[0]
		rest = rest[1:]
	}

	var object string
	for _, tok := range rest {
		if fillers[tok] {
			continue
		}
		object = tok
		break
	}

	if object == "" {
		e.log.Debug("verb without object", zap.String("verb", verb))
		return Intent{Verb: verb}
	}

	e.log.Debug("intent extracted",
		zap.String("verb", verb),
		zap.String("object", object))
	return Intent{Verb: verb, Object: object}
}
