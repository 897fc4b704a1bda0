// Package monitor runs the background watchers that turn raised state
// flags into user-facing notifications. Each monitor watches one flag,
// wakes on its channel with a polling tick as a safety net, and delivers
// at most one notification per raise.
package monitor

import (
	"context"
	"time"

	"go.uber.org/zap"

	"eva/internal/state"
)

// pollPeriod is the fallback polling interval. Stop is not instantaneous
// but bounded by one period.
const pollPeriod = 100 * time.Millisecond

// Monitor watches a single flag and reports through the active sink.
type Monitor struct {
	log    *zap.Logger
	st     *state.Shared
	flag   *state.Flag
	notice func() string
}

// NewAlarm returns the alarm monitor. The message carries the scheduled
// time so "It's an alarm on 17:45" reads back what the user asked for.
func NewAlarm(log *zap.Logger, st *state.Shared) *Monitor {
	return newMonitor(log, "alarm", st, st.AlarmDue, func() string {
		return "It's an alarm on " + st.AlarmTime()
	})
}

// NewGrayscale returns the monitor for finished image conversions.
func NewGrayscale(log *zap.Logger, st *state.Shared) *Monitor {
	return newMonitor(log, "grayscale", st, st.GrayscaleDone, func() string {
		return "The image has been converted to grayscale"
	})
}

func newMonitor(log *zap.Logger, name string, st *state.Shared, flag *state.Flag, notice func() string) *Monitor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Monitor{
		log:    log.Named("monitor." + name),
		st:     st,
		flag:   flag,
		notice: notice,
	}
}

// Run watches the flag until ctx is cancelled. Wakeups arrive through the
// flag's channel; the ticker catches a raise whose wakeup was consumed by
// an earlier spurious check.
func (m *Monitor) Run(ctx context.Context) {
	m.log.Info("monitor started")
	defer m.log.Info("monitor stopped")

	ticker := time.NewTicker(pollPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.flag.Wake():
		case <-ticker.C:
		}

		if !m.flag.TakeIfRaised() {
			continue
		}
		msg := m.notice()
		m.log.Info("notification", zap.String("message", msg))
		m.st.ActiveSink().Notify(msg)
	}
}

// Start runs the monitor in the background and returns a stop function
// that blocks until the monitor has exited.
func (m *Monitor) Start(ctx context.Context) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		m.Run(ctx)
	}()
	return func() {
		cancel()
		<-done
	}
}
