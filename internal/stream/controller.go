// Package stream couples task execution and response delivery into one
// session lifecycle. A session walks Created → Started → Streaming →
// Finished; generator failures are absorbed into a single fixed error
// token and still end in Finished, so nothing ever propagates to the
// caller.
package stream

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"eva/internal/generate"
	"eva/internal/router"
	"eva/internal/state"
)

// errorToken is the one user-facing token a failed generator produces.
const errorToken = "Error occurs, try to send your message again."

// fallbackResult is spoken when a long-term task finishes without leaving
// a message in the mailbox.
const fallbackResult = "Everything is completed!"

// mailboxWait bounds how long the controller waits for a background task
// to report before falling back.
const mailboxWait = 5 * time.Minute

// State is a session's position in its lifecycle.
type State int

const (
	Created State = iota
	Started
	Streaming
	Finished
)

func (s State) String() string {
	switch s {
	case Created:
		return "created"
	case Started:
		return "started"
	case Streaming:
		return "streaming"
	case Finished:
		return "finished"
	default:
		return "unknown"
	}
}

// Task executes one long-term job. A task either returns its result
// string directly or returns "" and reports through the shared mailbox.
type Task func(ctx context.Context, arg string) (string, error)

// Session is one token-delivery lifecycle for a single dispatched
// response.
type Session struct {
	ID         string
	SourceText string
	Mode       router.Kind

	mu          sync.Mutex
	state       State
	accumulated strings.Builder
	finished    bool

	interrupt atomic.Bool
}

// Interrupt asks the session to stop. It is polled between tokens, so a
// provider call already in flight finishes first.
func (s *Session) Interrupt() { s.interrupt.Store(true) }

// State returns the session's current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Output returns everything streamed so far, in arrival order.
func (s *Session) Output() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accumulated.String()
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

func (s *Session) append(token string) {
	s.mu.Lock()
	s.accumulated.WriteString(token)
	s.state = Streaming
	s.mu.Unlock()
}

// markFinished reports whether this call is the one that finished the
// session. Finishing twice is a no-op.
func (s *Session) markFinished() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finished {
		return false
	}
	s.finished = true
	s.state = Finished
	return true
}

// Controller turns dispatch decisions into token streams on the active
// sink. Mode picks the generator once per session: task results go
// through the formatter, conversation goes to the chat pass.
type Controller struct {
	log       *zap.Logger
	st        *state.Shared
	formatter generate.TokenGenerator
	chat      generate.TokenGenerator
	tasks     map[string]Task

	mu     sync.Mutex
	active *Session
}

// Options configures NewController.
type Options struct {
	State     *state.Shared
	Formatter generate.TokenGenerator
	Chat      generate.TokenGenerator
	Tasks     map[string]Task
}

// NewController wires a Controller. Missing generators fall back to
// passthrough so the assistant never goes mute.
func NewController(log *zap.Logger, opts Options) *Controller {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Controller{
		log:       log.Named("stream"),
		st:        opts.State,
		formatter: opts.Formatter,
		chat:      opts.Chat,
		tasks:     opts.Tasks,
	}
	if c.formatter == nil {
		c.formatter = generate.Passthrough{}
	}
	if c.chat == nil {
		c.chat = generate.Passthrough{}
	}
	if c.tasks == nil {
		c.tasks = map[string]Task{}
	}
	return c
}

// Interrupt stops the currently streaming session, if any.
func (c *Controller) Interrupt() {
	c.mu.Lock()
	s := c.active
	c.mu.Unlock()
	if s != nil {
		s.Interrupt()
	}
}

// Run delivers one decision as an ordered token stream and blocks until
// the session reaches Finished. The returned session carries the
// accumulated output and terminal state.
func (c *Controller) Run(ctx context.Context, d router.Decision) *Session {
	s := &Session{
		ID:         uuid.NewString(),
		SourceText: d.Text,
		Mode:       d.Kind,
	}
	c.mu.Lock()
	c.active = s
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		if c.active == s {
			c.active = nil
		}
		c.mu.Unlock()
	}()

	c.log.Info("session started",
		zap.String("session", s.ID),
		zap.String("mode", d.Kind.String()),
		zap.String("task", d.Task))

	sink := c.st.ActiveSink()

	text := d.Text
	if d.Kind == router.LongTerm {
		result, err := c.runTask(ctx, d)
		if err != nil {
			c.log.Error("long-term task failed",
				zap.String("task", d.Task), zap.Error(err))
			c.fail(s, sink)
			return s
		}
		text = result
	}

	gen := c.chat
	if d.Kind != router.Conversational {
		gen = c.formatter
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sink.StreamStarted()
	s.setState(Started)

	tokens, errs := gen.Generate(ctx, text)
	for token := range tokens {
		if s.interrupt.Load() || ctx.Err() != nil {
			cancel()
			for range tokens { // let the generator wind down
			}
			<-errs
			c.finish(s, sink)
			return s
		}
		sink.ChunkReady(token)
		s.append(token)
	}
	if err := <-errs; err != nil {
		c.log.Error("generator failed", zap.String("session", s.ID), zap.Error(err))
		c.fail(s, sink)
		return s
	}

	c.finish(s, sink)
	return s
}

// runTask executes the long-term task and collects its result, waiting on
// the mailbox when the task reports asynchronously. The mailbox is
// cleared afterwards so a stale result cannot leak into the next session.
func (c *Controller) runTask(ctx context.Context, d router.Decision) (string, error) {
	task, ok := c.tasks[d.Task]
	if !ok {
		c.log.Error("unknown long-term task", zap.String("task", d.Task))
		return "", errUnknownTask(d.Task)
	}

	result, err := task(ctx, d.Argument)
	if err != nil {
		return "", err
	}
	if result != "" {
		return result, nil
	}

	waitCtx, cancel := context.WithTimeout(ctx, mailboxWait)
	defer cancel()
	msg, err := c.st.Mailbox.Wait(waitCtx)
	c.st.Mailbox.Clear()
	if err != nil {
		c.log.Warn("task finished without a result message",
			zap.String("task", d.Task), zap.Error(err))
		return fallbackResult, nil
	}
	return msg, nil
}

// fail emits the fixed error token and closes the session. A session
// that never started gets a synthetic start first.
func (c *Controller) fail(s *Session, sink state.Sink) {
	if s.State() == Created {
		sink.StreamStarted()
		s.setState(Started)
	}
	sink.ChunkReady(errorToken)
	s.append(errorToken)
	c.finish(s, sink)
}

func (c *Controller) finish(s *Session, sink state.Sink) {
	if !s.markFinished() {
		return
	}
	sink.StreamFinished()
	c.log.Info("session finished",
		zap.String("session", s.ID),
		zap.Int("bytes", len(s.Output())))
}

type errUnknownTask string

func (e errUnknownTask) Error() string { return "no such long-term task: " + string(e) }
