package tasks

import (
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"eva/internal/state"
	"eva/internal/store"
)

func TestReorganize_GroupsByExtension(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"notes.txt", "report.PDF", "archive"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "keep"), 0o755))

	msg, err := Reorganize(nil, dir)
	require.NoError(t, err)
	require.Equal(t, "Relocation is completed", msg)

	require.FileExists(t, filepath.Join(dir, "txt", "notes.txt"))
	require.FileExists(t, filepath.Join(dir, "pdf", "report.PDF"))
	require.FileExists(t, filepath.Join(dir, "no_ext", "archive"))
	require.DirExists(t, filepath.Join(dir, "keep"))

	logData, err := os.ReadFile(filepath.Join(dir, "relocation_log.json"))
	require.NoError(t, err)
	var relocations map[string]string
	require.NoError(t, json.Unmarshal(logData, &relocations))
	require.Equal(t, filepath.Join("txt", "notes.txt"), relocations["notes.txt"])
	require.Len(t, relocations, 3)
}

func TestReorganize_MissingDirectoryFails(t *testing.T) {
	_, err := Reorganize(nil, filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
}

func newReminderFixture(t *testing.T) (*state.Shared, *store.Store) {
	t.Helper()
	st := state.New()
	st.SetReminderPending(true)
	db, err := store.Open(filepath.Join(t.TempDir(), "eva.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return st, db
}

func TestCreateReminder_PersistsAndClearsFlag(t *testing.T) {
	st, db := newReminderFixture(t)

	msg := CreateReminder(st, db, "Dentist | Bring the referral | 13.02.2026 17:45 | 30 | Main street | 15")

	require.Equal(t, "The event has been added!", msg)
	require.False(t, st.ReminderPending())

	reminders, err := db.Reminders()
	require.NoError(t, err)
	require.Len(t, reminders, 1)
	r := reminders[0]
	require.Equal(t, "Dentist", r.Name)
	require.Equal(t, "Bring the referral", r.Message)
	require.Equal(t, 30, r.DurationMinutes)
	require.Equal(t, "Main street", r.Location)
	require.Equal(t, 15, r.AlertMinutesBefore)

	want := time.Date(2026, 2, 13, 17, 45, 0, 0, time.Local)
	require.True(t, r.StartAt.Equal(want), "got %v", r.StartAt)
}

func TestCreateReminder_ValidationMessages(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"too few fields", "a | b | c", "You have not entered enough or too many parameters to create a note!"},
		{"bad date", "a | b | 2026-02-13 17:45 | 30 | here | 15", "The format is entered incorrectly!"},
		{"bad duration", "a | b | 13.02.2026 17:45 | soon | here | 15", "The duration has to be a number of minutes!"},
		{"bad alert", "a | b | 13.02.2026 17:45 | 30 | here | shortly", "The alert time has to be a number of minutes!"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			st, db := newReminderFixture(t)
			require.Equal(t, tc.want, CreateReminder(st, db, tc.input))
			// Even rejected input ends the collection turn.
			require.False(t, st.ReminderPending())
		})
	}
}

func TestScheduler_DelayAndRollover(t *testing.T) {
	now := time.Date(2026, 2, 13, 20, 34, 5, 0, time.UTC)
	s := NewScheduler(nil, state.New(), func() time.Time { return now })

	delay, err := s.delayUntil("21:00")
	require.NoError(t, err)
	require.Equal(t, 25*time.Minute+55*time.Second, delay)

	// A time already past today means tomorrow.
	delay, err = s.delayUntil("08:00")
	require.NoError(t, err)
	require.Equal(t, 11*time.Hour+25*time.Minute+55*time.Second, delay)

	_, err = s.delayUntil("25:00")
	require.Error(t, err)
	_, err = s.delayUntil("soonish")
	require.Error(t, err)
}

func TestScheduler_RaisesFlagWhenTimerFires(t *testing.T) {
	st := state.New()
	// The clock sits one second before the target so the timer is short.
	now := time.Now()
	s := NewScheduler(nil, st, func() time.Time {
		return time.Date(now.Year(), now.Month(), now.Day(), 10, 29, 59, 950_000_000, time.Local)
	})
	defer s.Stop()

	msg := s.Schedule("10:30")
	require.Equal(t, "Alarm on 10:30 is set", msg)

	require.Eventually(t, st.AlarmDue.TakeIfRaised, 2*time.Second, 5*time.Millisecond)
}

func TestScheduler_BadTimeIsAMessage(t *testing.T) {
	s := NewScheduler(nil, state.New(), nil)
	msg := s.Schedule("whenever")
	require.Contains(t, msg, "17:45")
}

type recordingSpeaker struct {
	spoken chan string
}

func (r *recordingSpeaker) Speak(text string) { r.spoken <- text }

func TestReader_ReadsCurrentFile(t *testing.T) {
	st := state.New()
	path := filepath.Join(t.TempDir(), "story.txt")
	require.NoError(t, os.WriteFile(path, []byte("once upon a time"), 0o644))
	st.RegisterFile("story.txt", path)

	speaker := &recordingSpeaker{spoken: make(chan string, 1)}
	r := &Reader{State: st, Speaker: speaker}

	require.Equal(t, "Reading the content...", r.Read())
	select {
	case text := <-speaker.spoken:
		require.Equal(t, "once upon a time", text)
	case <-time.After(2 * time.Second):
		t.Fatal("speaker never received the content")
	}
}

func TestReader_NoFileRegistered(t *testing.T) {
	r := &Reader{State: state.New()}
	require.Contains(t, r.Read(), "Attach a file first")
}

func TestReader_VanishedFile(t *testing.T) {
	st := state.New()
	st.RegisterFile("gone.txt", filepath.Join(t.TempDir(), "gone.txt"))
	r := &Reader{State: st}
	require.Equal(t, "This file doesn't exist", r.Read())
}

func TestGrayscaleImage_WritesPrefixedCopyAndRaisesFlag(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "photo.png")
	src := image.NewRGBA(image.Rect(0, 0, 2, 1))
	src.Set(0, 0, color.RGBA{R: 255, A: 255})
	src.Set(1, 0, color.RGBA{G: 255, A: 255})
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, src))
	require.NoError(t, f.Close())

	st := state.New()
	msg, err := GrayscaleImage(nil, st, path)
	require.NoError(t, err)
	require.Contains(t, msg, "Grayscaling was finished")

	outPath := filepath.Join(dir, "grayscale_photo.png")
	require.FileExists(t, outPath)
	require.Equal(t, outPath, st.NewImagePath())
	require.True(t, st.GrayscaleDone.TakeIfRaised())

	out, err := os.Open(outPath)
	require.NoError(t, err)
	defer out.Close()
	decoded, err := png.Decode(out)
	require.NoError(t, err)

	// Red and green collapse to their luma weights.
	r0, g0, b0, _ := decoded.At(0, 0).RGBA()
	require.Equal(t, r0, g0)
	require.Equal(t, g0, b0)
	require.InDelta(t, 76, int(r0>>8), 1) // 0.299 * 255
	r1, _, _, _ := decoded.At(1, 0).RGBA()
	require.InDelta(t, 149, int(r1>>8), 1) // 0.587 * 255
}

func TestGrayscaleImage_MissingFileFails(t *testing.T) {
	st := state.New()
	_, err := GrayscaleImage(nil, st, filepath.Join(t.TempDir(), "none.png"))
	require.Error(t, err)
	require.False(t, st.GrayscaleDone.TakeIfRaised())
}

func TestRegistry_CoversEveryDispatchedTask(t *testing.T) {
	st := state.New()
	reg := Registry(nil, Options{State: st})

	for _, name := range []string{
		"opening", "deletion", "reorganization",
		"reminder", "reading", "alarm", "image processing",
	} {
		require.Contains(t, reg, name)
	}

	// Reading without an attached file answers politely instead of failing.
	msg, err := reg["reading"](context.Background(), "file")
	require.NoError(t, err)
	require.Contains(t, msg, "Attach a file first")
}
