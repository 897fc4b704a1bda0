package state

import (
	"context"
	"sync"
)

// Flag is a mutex-guarded boolean with a wakeup channel. Setters raise it,
// a single monitor consumes it with an atomic read-and-clear so one raise
// fires exactly one notification.
type Flag struct {
	mu   sync.Mutex
	set  bool
	wake chan struct{}
}

// NewFlag returns a lowered Flag.
func NewFlag() *Flag {
	return &Flag{wake: make(chan struct{}, 1)}
}

// Raise sets the flag and wakes a waiting monitor. Raising an already-raised
// flag coalesces into one wakeup.
func (f *Flag) Raise() {
	f.mu.Lock()
	f.set = true
	f.mu.Unlock()
	select {
	case f.wake <- struct{}{}:
	default:
	}
}

// TakeIfRaised reads and clears the flag in one critical section.
func (f *Flag) TakeIfRaised() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.set {
		return false
	}
	f.set = false
	return true
}

// Wake returns the wakeup channel. A receive means the flag was probably
// raised; the receiver must still confirm via TakeIfRaised.
func (f *Flag) Wake() <-chan struct{} {
	return f.wake
}

// Mailbox is a single-slot message cell used by background tasks to hand a
// result string to the streaming controller. A new Put replaces any unread
// message.
type Mailbox struct {
	mu    sync.Mutex
	msg   string
	full  bool
	ready chan struct{}
}

// NewMailbox returns an empty Mailbox.
func NewMailbox() *Mailbox {
	return &Mailbox{ready: make(chan struct{}, 1)}
}

// Put stores a message, replacing any unread one.
func (m *Mailbox) Put(msg string) {
	m.mu.Lock()
	m.msg = msg
	m.full = true
	m.mu.Unlock()
	select {
	case m.ready <- struct{}{}:
	default:
	}
}

// Take removes and returns the stored message. ok is false when empty.
func (m *Mailbox) Take() (msg string, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.full {
		return "", false
	}
	msg = m.msg
	m.msg, m.full = "", false
	// Drain a stale wakeup so the next Wait doesn't fire early.
	select {
	case <-m.ready:
	default:
	}
	return msg, true
}

// Wait blocks until a message is available or the context ends, then takes it.
func (m *Mailbox) Wait(ctx context.Context) (string, error) {
	for {
		if msg, ok := m.Take(); ok {
			return msg, nil
		}
		select {
		case <-m.ready:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}

// Clear discards any unread message.
func (m *Mailbox) Clear() {
	m.mu.Lock()
	m.msg, m.full = "", false
	m.mu.Unlock()
	select {
	case <-m.ready:
	default:
	}
}
