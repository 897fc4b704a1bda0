package monitor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"eva/internal/state"
)

type notifySink struct {
	state.NopSink
	mu       sync.Mutex
	messages []string
}

func (n *notifySink) Notify(message string) {
	n.mu.Lock()
	n.messages = append(n.messages, message)
	n.mu.Unlock()
}

func (n *notifySink) Messages() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.messages))
	copy(out, n.messages)
	return out
}

func TestAlarm_OneRaiseOneNotification(t *testing.T) {
	defer goleak.VerifyNone(t)
	st := state.New()
	sink := &notifySink{}
	st.SetSink(sink)
	st.SetAlarmTime("17:45")

	stop := NewAlarm(nil, st).Start(context.Background())
	defer stop()

	st.AlarmDue.Raise()

	require.Eventually(t, func() bool {
		return len(sink.Messages()) == 1
	}, 2*time.Second, 5*time.Millisecond)
	require.Equal(t, "It's an alarm on 17:45", sink.Messages()[0])

	// No double fire: the flag was cleared with the read.
	time.Sleep(3 * pollPeriod)
	require.Len(t, sink.Messages(), 1)
}

func TestGrayscale_CoalescedRaisesFireOnce(t *testing.T) {
	defer goleak.VerifyNone(t)
	st := state.New()
	sink := &notifySink{}
	st.SetSink(sink)

	// Raised twice before the monitor ever looks: one notification.
	st.GrayscaleDone.Raise()
	st.GrayscaleDone.Raise()

	stop := NewGrayscale(nil, st).Start(context.Background())
	defer stop()

	require.Eventually(t, func() bool {
		return len(sink.Messages()) == 1
	}, 2*time.Second, 5*time.Millisecond)
	time.Sleep(3 * pollPeriod)
	require.Len(t, sink.Messages(), 1)
}

func TestMonitor_StopIsBounded(t *testing.T) {
	defer goleak.VerifyNone(t)
	st := state.New()
	st.SetSink(&notifySink{})

	stop := NewAlarm(nil, st).Start(context.Background())

	start := time.Now()
	stop()
	require.Less(t, time.Since(start), 5*pollPeriod)
}

func TestMonitor_RaiseAfterStopStaysSilent(t *testing.T) {
	defer goleak.VerifyNone(t)
	st := state.New()
	sink := &notifySink{}
	st.SetSink(sink)

	stop := NewGrayscale(nil, st).Start(context.Background())
	stop()

	st.GrayscaleDone.Raise()
	time.Sleep(3 * pollPeriod)
	require.Empty(t, sink.Messages())
}
