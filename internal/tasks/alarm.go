package tasks

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"eva/internal/state"
)

// Scheduler turns a captured HH:MM into a timer that raises the alarm
// flag when it elapses. The monitor does the actual notifying.
type Scheduler struct {
	log *zap.Logger
	st  *state.Shared
	now func() time.Time

	mu     sync.Mutex
	timers []*time.Timer
}

// NewScheduler creates an alarm scheduler on the given clock.
func NewScheduler(log *zap.Logger, st *state.Shared, now func() time.Time) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	if now == nil {
		now = time.Now
	}
	return &Scheduler{log: log.Named("alarm"), st: st, now: now}
}

// Schedule arms an alarm for the given HH:MM. A time already past today
// rolls over to tomorrow.
func (s *Scheduler) Schedule(alarmTime string) string {
	delay, err := s.delayUntil(alarmTime)
	if err != nil {
		s.log.Warn("bad alarm time", zap.String("time", alarmTime), zap.Error(err))
		return "I could not understand the alarm time, try a format like 17:45"
	}

	timer := time.AfterFunc(delay, s.st.AlarmDue.Raise)
	s.mu.Lock()
	s.timers = append(s.timers, timer)
	s.mu.Unlock()

	s.log.Info("alarm armed",
		zap.String("time", alarmTime), zap.Duration("in", delay))
	return fmt.Sprintf("Alarm on %s is set", alarmTime)
}

// Stop disarms every pending alarm.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.timers {
		t.Stop()
	}
	s.timers = nil
}

func (s *Scheduler) delayUntil(alarmTime string) (time.Duration, error) {
	parts := strings.Split(strings.TrimSpace(alarmTime), ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("expected HH:MM, got %q", alarmTime)
	}
	var hour, minute int
	if _, err := fmt.Sscanf(alarmTime, "%d:%d", &hour, &minute); err != nil {
		return 0, fmt.Errorf("expected HH:MM, got %q: %w", alarmTime, err)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("time %q out of range", alarmTime)
	}

	now := s.now()
	target := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !target.After(now) {
		target = target.Add(24 * time.Hour)
	}
	return target.Sub(now), nil
}
