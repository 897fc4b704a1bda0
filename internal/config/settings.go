// Package config persists the user-facing preferences: response language
// and whether voice output is enabled. The file is plain JSON managed by
// viper; a watcher reloads changes made while the assistant is running.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const settingsFile = "user_settings.json"

// Settings is the persisted preference set.
type Settings struct {
	Language     string `mapstructure:"language" json:"language"`
	VoiceEnabled bool   `mapstructure:"voice_enabled" json:"voice_enabled"`
}

// Manager loads, serves and saves settings. All accessors are safe for
// concurrent use.
type Manager struct {
	log  *zap.Logger
	v    *viper.Viper
	path string

	mu      sync.RWMutex
	current Settings

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// Load reads settings from dir, writing defaults when the file is missing.
func Load(dir string, log *zap.Logger) (*Manager, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create settings directory: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(filepath.Join(dir, settingsFile))
	v.SetConfigType("json")
	v.SetDefault("language", "en")
	v.SetDefault("voice_enabled", false)

	m := &Manager{
		log:  log.Named("settings"),
		v:    v,
		path: filepath.Join(dir, settingsFile),
		done: make(chan struct{}),
	}

	if err := v.ReadInConfig(); err != nil {
		if _, missing := err.(viper.ConfigFileNotFoundError); !missing && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read settings: %w", err)
		}
		if err := v.WriteConfigAs(m.path); err != nil {
			return nil, fmt.Errorf("failed to write default settings: %w", err)
		}
	}

	if err := v.Unmarshal(&m.current); err != nil {
		return nil, fmt.Errorf("failed to parse settings: %w", err)
	}
	m.log.Info("settings loaded",
		zap.String("language", m.current.Language),
		zap.Bool("voice", m.current.VoiceEnabled))
	return m, nil
}

// Current returns a copy of the active settings.
func (m *Manager) Current() Settings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Language returns the configured response language code.
func (m *Manager) Language() string {
	return m.Current().Language
}

// SetLanguage persists a new language code.
func (m *Manager) SetLanguage(code string) error {
	return m.update(func(s *Settings) { s.Language = code })
}

// SetVoiceEnabled persists the voice-output flag.
func (m *Manager) SetVoiceEnabled(enabled bool) error {
	return m.update(func(s *Settings) { s.VoiceEnabled = enabled })
}

func (m *Manager) update(apply func(*Settings)) error {
	m.mu.Lock()
	apply(&m.current)
	m.v.Set("language", m.current.Language)
	m.v.Set("voice_enabled", m.current.VoiceEnabled)
	m.mu.Unlock()
	if err := m.v.WriteConfigAs(m.path); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

// Watch reloads the settings file when it changes on disk. Stop with Close.
func (m *Manager) Watch() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create settings watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(m.path)); err != nil {
		w.Close()
		return fmt.Errorf("failed to watch settings directory: %w", err)
	}
	m.watcher = w

	go func() {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Name != m.path || !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
					continue
				}
				m.reload()
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				m.log.Warn("settings watcher error", zap.Error(err))
			case <-m.done:
				return
			}
		}
	}()
	return nil
}

func (m *Manager) reload() {
	if err := m.v.ReadInConfig(); err != nil {
		m.log.Warn("settings reload failed", zap.Error(err))
		return
	}
	var s Settings
	if err := m.v.Unmarshal(&s); err != nil {
		m.log.Warn("settings reload parse failed", zap.Error(err))
		return
	}
	m.mu.Lock()
	m.current = s
	m.mu.Unlock()
	m.log.Info("settings reloaded", zap.String("language", s.Language))
}

// Close stops the watcher, if running.
func (m *Manager) Close() error {
	close(m.done)
	if m.watcher != nil {
		return m.watcher.Close()
	}
	return nil
}
