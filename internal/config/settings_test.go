package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_WritesDefaults(t *testing.T) {
	dir := t.TempDir()
	m, err := Load(dir, nil)
	require.NoError(t, err)
	defer m.Close()

	s := m.Current()
	require.Equal(t, "en", s.Language)
	require.False(t, s.VoiceEnabled)

	_, err = os.Stat(filepath.Join(dir, settingsFile))
	require.NoError(t, err, "defaults should be persisted")
}

func TestSetLanguage_RoundTrips(t *testing.T) {
	dir := t.TempDir()
	m, err := Load(dir, nil)
	require.NoError(t, err)
	require.NoError(t, m.SetLanguage("ru"))
	require.NoError(t, m.SetVoiceEnabled(true))
	m.Close()

	m2, err := Load(dir, nil)
	require.NoError(t, err)
	defer m2.Close()
	require.Equal(t, "ru", m2.Language())
	require.True(t, m2.Current().VoiceEnabled)
}

func TestWatch_ReloadsOnDiskChange(t *testing.T) {
	dir := t.TempDir()
	m, err := Load(dir, nil)
	require.NoError(t, err)
	defer m.Close()
	require.NoError(t, m.Watch())

	data := []byte(`{"language": "de", "voice_enabled": true}`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, settingsFile), data, 0644))

	require.Eventually(t, func() bool {
		return m.Language() == "de"
	}, 2*time.Second, 20*time.Millisecond, "watcher should pick up the new language")
}
