package router

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"eva/internal/actions"
	"eva/internal/state"
	"eva/internal/store"
)

type fakeSystem struct {
	mu         sync.Mutex
	opened     []string
	urls       []string
	brightness int
}

func (f *fakeSystem) Open(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opened = append(f.opened, path)
	return nil
}

func (f *fakeSystem) OpenURL(url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.urls = append(f.urls, url)
	return nil
}

func (f *fakeSystem) Adjust(step float64) error { return nil }
func (f *fakeSystem) SetMuted(muted bool) error { return nil }
func (f *fakeSystem) Brightness() (int, error)  { return f.brightness, nil }
func (f *fakeSystem) SetBrightness(p int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.brightness = p
	return nil
}

func newTestRouter(t *testing.T) (*Router, *state.Shared, *store.Store, *fakeSystem) {
	t.Helper()
	st := state.New()
	db, err := store.Open(filepath.Join(t.TempDir(), "eva.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	sys := &fakeSystem{brightness: 50}
	acts := actions.New(nil, actions.Options{
		State:      st,
		Store:      db,
		Browser:    sys,
		Opener:     sys,
		Volume:     sys,
		Brightness: sys,
		Now: func() time.Time {
			return time.Date(2026, 2, 13, 20, 34, 5, 0, time.UTC)
		},
	})
	return New(nil, st, acts, db, nil), st, db, sys
}

func TestProcess_NoVerbIsConversational(t *testing.T) {
	r, _, _, _ := newTestRouter(t)
	for _, in := range []string{
		"hello there",
		"what a lovely evening",
		"hmm",
	} {
		d := r.Process(in)
		if d.Kind != Conversational {
			t.Errorf("Process(%q).Kind = %v, want Conversational", in, d.Kind)
		}
		if d.Text != in {
			t.Errorf("Process(%q).Text = %q, want the raw utterance", in, d.Text)
		}
	}
}

func TestProcess_SayTime(t *testing.T) {
	r, _, _, _ := newTestRouter(t)
	d := r.Process("say the time")
	require.Equal(t, Instantaneous, d.Kind)
	require.Equal(t, "20:34:05", d.Text)
}

func TestProcess_SayDate(t *testing.T) {
	r, _, _, _ := newTestRouter(t)
	d := r.Process("say the date")
	require.Equal(t, Instantaneous, d.Kind)
	require.Equal(t, "13 February 2026", d.Text)
}

func TestProcess_SolveBypassesClassifier(t *testing.T) {
	r, _, _, _ := newTestRouter(t)
	d := r.Process("solve 2+2")
	require.Equal(t, Instantaneous, d.Kind)
	require.Contains(t, d.Text, "4")
}

func TestProcess_OpenSiteInline(t *testing.T) {
	r, _, _, sys := newTestRouter(t)
	d := r.Process("open youtube")
	require.Equal(t, Instantaneous, d.Kind)
	require.Len(t, sys.urls, 1)
	require.Contains(t, sys.urls[0], "youtube")
}

func TestProcess_OpenUnknownTargetIsLongTerm(t *testing.T) {
	r, _, _, _ := newTestRouter(t)
	d := r.Process("open discord")
	require.Equal(t, LongTerm, d.Kind)
	require.Equal(t, TaskOpening, d.Task)
	require.Equal(t, "discord", d.Argument)
}

func TestProcess_OpenWithStoredPathStillScans(t *testing.T) {
	r, _, db, sys := newTestRouter(t)
	// A learned path is opened immediately; the scan still runs to refresh it.
	tmp := filepath.Join(t.TempDir(), "Discord")
	require.NoError(t, writeFile(tmp))
	require.NoError(t, db.SaveObjectPath("discord", tmp))

	d := r.Process("open discord")
	require.Equal(t, LongTerm, d.Kind)
	require.Equal(t, TaskOpening, d.Task)
	require.Equal(t, []string{tmp}, sys.opened)
}

func TestProcess_DeleteIsLongTerm(t *testing.T) {
	r, _, _, _ := newTestRouter(t)
	d := r.Process("delete oldgame")
	require.Equal(t, LongTerm, d.Kind)
	require.Equal(t, TaskDeletion, d.Task)
	require.Equal(t, "oldgame", d.Argument)
}

func TestProcess_ReorganizeStripsTrigger(t *testing.T) {
	r, _, _, _ := newTestRouter(t)
	d := r.Process("reorganize /tmp/downloads")
	require.Equal(t, LongTerm, d.Kind)
	require.Equal(t, TaskReorganization, d.Task)
	require.Equal(t, "/tmp/downloads", d.Argument)
}

func TestProcess_VolumeExtractsSubVerb(t *testing.T) {
	r, _, _, _ := newTestRouter(t)
	d := r.Process("increase the volume")
	require.Equal(t, Instantaneous, d.Kind)
	require.Contains(t, d.Text, "increased")
}

func TestProcess_Brightness(t *testing.T) {
	r, _, _, sys := newTestRouter(t)
	d := r.Process("increase brightness 15")
	require.Equal(t, Instantaneous, d.Kind)
	require.Contains(t, d.Text, "65")
	require.Equal(t, 65, sys.brightness)
}

func TestProcess_ReminderFlow(t *testing.T) {
	r, st, _, _ := newTestRouter(t)

	d := r.Process("create a reminder")
	require.Equal(t, Instantaneous, d.Kind)
	require.Contains(t, d.Text, "format")
	require.True(t, st.ReminderPending())

	d = r.Process("standup | daily sync | 01.09.2026 14:30 | 15 | meet | 5")
	require.Equal(t, LongTerm, d.Kind)
	require.Equal(t, TaskReminder, d.Task)
	require.True(t, strings.Contains(d.Argument, "standup"))
}

func TestProcess_AlarmCapturesTime(t *testing.T) {
	r, st, _, _ := newTestRouter(t)
	d := r.Process("create an alarm for 17:45")
	require.Equal(t, LongTerm, d.Kind)
	require.Equal(t, TaskAlarm, d.Task)
	require.Equal(t, "17:45", st.AlarmTime())
}

func TestProcess_PlayMusicUnknownAsksForDirectory(t *testing.T) {
	r, st, _, _ := newTestRouter(t)
	d := r.Process("play nocturne")
	require.Equal(t, Instantaneous, d.Kind)
	require.Contains(t, d.Text, "directory")
	require.True(t, st.MusicRequestPending())
}

func TestProcess_GrayWithoutFile(t *testing.T) {
	r, _, _, _ := newTestRouter(t)
	d := r.Process("make it gray")
	require.Equal(t, Conversational, d.Kind)
}

func TestProcess_GrayWithRegisteredImage(t *testing.T) {
	r, st, _, _ := newTestRouter(t)
	st.RegisterFile("photo.png", "/tmp/photo.png")
	d := r.Process("gray the picture")
	require.Equal(t, LongTerm, d.Kind)
	require.Equal(t, TaskGrayscale, d.Task)
	require.Equal(t, "/tmp/photo.png", d.Argument)
}

func TestProcess_ReadFileIsLongTerm(t *testing.T) {
	r, _, _, _ := newTestRouter(t)
	d := r.Process("read the file")
	require.Equal(t, LongTerm, d.Kind)
	require.Equal(t, TaskReading, d.Task)
}

func writeFile(path string) error {
	return os.WriteFile(path, []byte("x"), 0644)
}
