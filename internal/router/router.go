package router

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"eva/internal/actions"
	"eva/internal/perception"
	"eva/internal/state"
	"eva/internal/store"
)

// apology is what the user sees when a routing step blows up. The router
// never lets an error escape Process.
const apology = "Sorry, something went wrong while handling that. Please try again."

// Router turns raw utterances into dispatch decisions.
type Router struct {
	log       *zap.Logger
	st        *state.Shared
	extractor *perception.Extractor
	table     *Table
	actions   *actions.Actions
	registry  map[string]actions.Func
	store     *store.Store
}

// New wires a Router. A nil table uses the built-in command set.
func New(log *zap.Logger, st *state.Shared, acts *actions.Actions, objects *store.Store, table *Table) *Router {
	if log == nil {
		log = zap.NewNop()
	}
	if table == nil {
		table = DefaultTable()
	}
	return &Router{
		log:       log.Named("router"),
		st:        st,
		extractor: perception.NewExtractor(log),
		table:     table,
		actions:   acts,
		registry:  acts.Registry(),
		store:     objects,
	}
}

// Process is the sole entry point the UI layer calls. It never panics and
// never returns an error: failures come back as a Conversational apology.
func (r *Router) Process(utterance string) (d Decision) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("panic while routing", zap.Any("panic", rec),
				zap.String("utterance", utterance))
			d = conversational(apology)
		}
	}()

	d, handled := r.specialCases(utterance)
	if handled {
		r.log.Info("dispatch decided",
			zap.String("kind", d.Kind.String()),
			zap.String("task", d.Task))
		return d
	}

	d = r.classify(utterance)
	r.log.Info("dispatch decided",
		zap.String("kind", d.Kind.String()),
		zap.String("task", d.Task))
	return d
}

// specialCases intercepts inputs that need bespoke argument extraction
// before general classification. First match wins.
func (r *Router) specialCases(utterance string) (Decision, bool) {
	lower := strings.ToLower(utterance)

	// A previous turn asked for the directory of a pending music play.
	if r.st.MusicRequestPending() {
		msg, err := r.actions.AddMusicEntry(utterance)
		if err != nil {
			r.log.Warn("music entry failed", zap.Error(err))
			return conversational(apology), true
		}
		return instant(msg), true
	}

	// A previous turn asked for reminder data; this utterance is it.
	if r.st.ReminderPending() {
		return longTerm(TaskReminder, utterance), true
	}

	switch {
	case strings.Contains(lower, "reorganize"):
		return longTerm(TaskReorganization, stripWord(utterance, "reorganize")), true

	case strings.Contains(lower, "open"):
		return r.handleOpen(lower), true

	case strings.Contains(lower, "delete"):
		return longTerm(TaskDeletion, stripWord(lower, "delete")), true

	case strings.Contains(lower, "search"):
		msg, err := r.actions.SearchInformation(utterance)
		if err != nil {
			r.log.Warn("search failed", zap.Error(err))
			return conversational(apology), true
		}
		return instant(msg), true

	case strings.Contains(lower, "solve"):
		msg, err := r.actions.CalculateExpression(utterance)
		if err != nil {
			r.log.Warn("calculation failed", zap.Error(err))
			return conversational(apology), true
		}
		return instant(msg), true

	case strings.Contains(lower, "brightness"):
		msg, err := r.actions.SetScreenBrightness(utterance)
		if err != nil {
			r.log.Warn("brightness failed", zap.Error(err))
			return conversational(apology), true
		}
		return instant(msg), true

	case strings.Contains(lower, "volume"):
		// The sub-verb (increase, mute, ...) rides inside the sentence.
		intent := r.extractor.Extract(perception.Normalize(utterance))
		verb := intent.Verb
		if verb == "" {
			verb = lower
		}
		msg, err := r.actions.ControlVolume(verb)
		if err != nil {
			r.log.Warn("volume failed", zap.Error(err))
			return conversational(apology), true
		}
		return instant(msg), true

	case strings.Contains(lower, "gray"):
		_, path, ok := r.st.CurrentFile()
		if !ok {
			return conversational("Attach an image first, then ask me to grayscale it."), true
		}
		return longTerm(TaskGrayscale, path), true
	}

	return Decision{}, false
}

// handleOpen covers the "open" trigger: named sites open inline, everything
// else becomes a long-term scan. A path already learned for the target is
// opened immediately, but the scan still runs to refresh it.
func (r *Router) handleOpen(lower string) Decision {
	target := stripWord(lower, "open")
	if target == "" {
		return conversational("What should I open?")
	}

	cmd, _ := r.table.CommandFor("open")
	for _, f := range cmd.Features {
		for _, site := range f.Arguments {
			if target == site {
				msg, err := r.runFeature(f.Name, target)
				if err != nil {
					r.log.Warn("open feature failed", zap.Error(err))
					return conversational(apology)
				}
				return instant(msg)
			}
		}
	}

	if r.store != nil {
		if path, ok, err := r.store.ObjectPath(target); err == nil && ok {
			if err := r.actions.OpenStoredObject(path); err != nil {
				r.log.Warn("stored path is stale",
					zap.String("target", target), zap.Error(err))
			}
		}
	}

	return longTerm(TaskOpening, target)
}

// classify runs the general pipeline: normalize, extract intent, map the
// verb to a command, resolve the feature, execute or defer.
func (r *Router) classify(utterance string) Decision {
	// An HH:MM in the raw text is captured for a later alarm request.
	r.actions.CaptureAlarmTime(utterance)

	text := perception.Normalize(utterance)
	intent := r.extractor.Extract(text)
	if !intent.Defined() {
		return conversational(utterance)
	}

	cmd, ok := r.table.CommandFor(intent.Verb)
	if !ok {
		r.log.Debug("no command for verb", zap.String("verb", intent.Verb))
		return conversational(utterance)
	}

	feature, argument, ok := Resolve(cmd, intent.Object)
	if !ok {
		r.log.Debug("no feature matched",
			zap.String("command", cmd.Name),
			zap.String("object", intent.Object))
		return conversational(utterance)
	}

	switch feature {
	case "set_alarm":
		return longTerm(TaskAlarm, r.st.AlarmTime())
	case "read_file":
		return longTerm(TaskReading, argument)
	case "open_file":
		return longTerm(TaskOpening, argument)
	}

	msg, err := r.runFeature(feature, argument)
	if err != nil {
		r.log.Warn("feature execution failed",
			zap.String("feature", feature), zap.Error(err))
		return conversational(apology)
	}
	return instant(msg)
}

func (r *Router) runFeature(feature, argument string) (string, error) {
	fn, ok := r.registry[feature]
	if !ok {
		return "", fmt.Errorf("feature %q has no implementation", feature)
	}
	return fn(argument)
}

// stripWord removes every occurrence of word from the utterance and
// rejoins the rest, giving the bespoke argument for keyword triggers.
func stripWord(utterance, word string) string {
	fields := strings.Fields(utterance)
	kept := fields[:0]
	for _, f := range fields {
		if !strings.EqualFold(f, word) {
			kept = append(kept, f)
		}
	}
	return strings.Join(kept, " ")
}
