// Package state holds the process-wide mutable state shared between the
// dispatcher, the search engine, the streaming controller and the flag
// monitors. It replaces a grab bag of globals with one injected object;
// every cross-goroutine field is synchronized here so callers never touch
// a mutex themselves.
package state

import (
	"context"
	"sync"
	"sync/atomic"
)

// Sink receives user-facing output. The UI layer implements it; everything
// in the core writes through it. Monitor notifications and in-flight stream
// chunks may interleave on the same sink and must be displayed as separate
// messages.
type Sink interface {
	StreamStarted()
	ChunkReady(token string)
	StreamFinished()
	Notify(message string)
}

// Shared is the cross-component state. One instance is created at startup
// and passed to every component constructor.
type Shared struct {
	// AlarmDue is set by the alarm scheduler and cleared by its monitor.
	AlarmDue *Flag
	// GrayscaleDone is set by the grayscale task and cleared by its monitor.
	GrayscaleDone *Flag
	// Mailbox carries result messages from background tasks back to the
	// streaming controller.
	Mailbox *Mailbox

	reminderPending atomic.Bool

	mu             sync.Mutex
	searchCancel   context.CancelFunc
	sink           Sink
	alarmTime      string
	pendingMusic   bool
	musicTitle     string
	chatFiles      map[string]string
	currentFile    string
	newImagePath   string
}

// New returns a Shared with all flags down and an empty mailbox.
func New() *Shared {
	return &Shared{
		AlarmDue:      NewFlag(),
		GrayscaleDone: NewFlag(),
		Mailbox:       NewMailbox(),
		chatFiles:     make(map[string]string),
	}
}

// BeginSearch cancels any search still in flight and derives a fresh
// cancellable context for the new one. At most one search's cancellation
// gate is live at a time.
func (s *Shared) BeginSearch(parent context.Context) context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.searchCancel != nil {
		s.searchCancel()
	}
	ctx, cancel := context.WithCancel(parent)
	s.searchCancel = cancel
	return ctx
}

// StopSearch cancels the active search, if any. Safe to call repeatedly.
func (s *Shared) StopSearch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.searchCancel != nil {
		s.searchCancel()
		s.searchCancel = nil
	}
}

// SetSink installs the active output sink.
func (s *Shared) SetSink(sink Sink) {
	s.mu.Lock()
	s.sink = sink
	s.mu.Unlock()
}

// ActiveSink returns the current output sink. Output produced before a
// sink is installed goes nowhere rather than panicking the producer.
func (s *Shared) ActiveSink() Sink {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sink == nil {
		return NopSink{}
	}
	return s.sink
}

// NopSink discards everything written to it.
type NopSink struct{}

func (NopSink) StreamStarted()    {}
func (NopSink) ChunkReady(string) {}
func (NopSink) StreamFinished()   {}
func (NopSink) Notify(string)     {}

// SetReminderPending marks that the next utterance is reminder data.
func (s *Shared) SetReminderPending(v bool) { s.reminderPending.Store(v) }

// ReminderPending reports whether a reminder is being collected.
func (s *Shared) ReminderPending() bool { return s.reminderPending.Load() }

// RequestMusicDirectory records that the next utterance should be treated as
// the directory holding the given track.
func (s *Shared) RequestMusicDirectory(title string) {
	s.mu.Lock()
	s.pendingMusic = true
	s.musicTitle = title
	s.mu.Unlock()
}

// MusicRequestPending reports whether a music-directory request is waiting
// without consuming it.
func (s *Shared) MusicRequestPending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pendingMusic
}

// TakeMusicRequest consumes a pending music-directory request. The second
// return is false when no request was pending.
func (s *Shared) TakeMusicRequest() (title string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.pendingMusic {
		return "", false
	}
	s.pendingMusic = false
	title = s.musicTitle
	s.musicTitle = ""
	return title, true
}

// SetAlarmTime stores the HH:MM the user asked an alarm for.
func (s *Shared) SetAlarmTime(t string) {
	s.mu.Lock()
	s.alarmTime = t
	s.mu.Unlock()
}

// AlarmTime returns the most recently requested alarm time.
func (s *Shared) AlarmTime() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.alarmTime
}

// RegisterFile records a file the user attached to the chat and makes it the
// current one.
func (s *Shared) RegisterFile(name, path string) {
	s.mu.Lock()
	s.chatFiles[name] = path
	s.currentFile = name
	s.mu.Unlock()
}

// CurrentFile returns the name and path of the most recently attached file.
func (s *Shared) CurrentFile() (name, path string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.currentFile == "" {
		return "", "", false
	}
	path, ok = s.chatFiles[s.currentFile]
	return s.currentFile, path, ok
}

// SetNewImagePath records where the grayscale task wrote its output.
func (s *Shared) SetNewImagePath(p string) {
	s.mu.Lock()
	s.newImagePath = p
	s.mu.Unlock()
}

// NewImagePath returns the path of the last grayscale output.
func (s *Shared) NewImagePath() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.newImagePath
}
