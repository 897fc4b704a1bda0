// Package system wraps the OS-level side effects the core delegates to:
// launching files, deleting them, opening URLs, volume and brightness.
// Everything is an interface so the router and search engine can be tested
// without touching the machine; the default implementations shell out and
// degrade gracefully when the underlying tool is missing.
package system

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"

	"go.uber.org/zap"
)

// Opener launches a file or application by path.
type Opener interface {
	Open(path string) error
}

// Remover deletes a file by path.
type Remover interface {
	Remove(path string) error
}

// Browser opens a URL in the user's default browser.
type Browser interface {
	OpenURL(url string) error
}

// VolumeControl adjusts the output volume. Step is a fraction of full
// scale, so 0.1 is ten percent.
type VolumeControl interface {
	Adjust(step float64) error
	SetMuted(muted bool) error
}

// BrightnessControl reads and sets the display brightness in percent.
type BrightnessControl interface {
	Brightness() (int, error)
	SetBrightness(percent int) error
}

// DefaultOpener opens paths with the platform's file handler.
type DefaultOpener struct {
	Log *zap.Logger
}

func (o DefaultOpener) Open(path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	cmd := exec.Command(openCommand(), path)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	if o.Log != nil {
		o.Log.Info("object opened", zap.String("path", path))
	}
	// Detach; the opened application outlives us.
	go func() { _ = cmd.Wait() }()
	return nil
}

func openCommand() string {
	switch runtime.GOOS {
	case "darwin":
		return "open"
	case "windows":
		return "explorer"
	default:
		return "xdg-open"
	}
}

// DefaultRemover deletes via the filesystem.
type DefaultRemover struct {
	Log *zap.Logger
}

func (r DefaultRemover) Remove(path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	if r.Log != nil {
		r.Log.Info("object deleted", zap.String("path", path))
	}
	return nil
}

// DefaultBrowser shells out to the platform opener with a URL.
type DefaultBrowser struct{}

func (DefaultBrowser) OpenURL(url string) error {
	cmd := exec.Command(openCommand(), url)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("open url %s: %w", url, err)
	}
	go func() { _ = cmd.Wait() }()
	return nil
}

// AmixerVolume drives ALSA's amixer. On hosts without it every call
// returns the exec error, which the caller reports as a friendly message.
type AmixerVolume struct{}

func (AmixerVolume) Adjust(step float64) error {
	pct := int(step * 100)
	arg := fmt.Sprintf("%d%%+", pct)
	if pct < 0 {
		arg = fmt.Sprintf("%d%%-", -pct)
	}
	return exec.Command("amixer", "set", "Master", arg).Run()
}

func (AmixerVolume) SetMuted(muted bool) error {
	arg := "unmute"
	if muted {
		arg = "mute"
	}
	return exec.Command("amixer", "set", "Master", arg).Run()
}

// SysfsBrightness reads and writes the backlight through brightnessctl.
type SysfsBrightness struct{}

func (SysfsBrightness) Brightness() (int, error) {
	out, err := exec.Command("brightnessctl", "-m", "get").Output()
	if err != nil {
		return 0, fmt.Errorf("read brightness: %w", err)
	}
	var v int
	if _, err := fmt.Sscanf(string(out), "%d", &v); err != nil {
		return 0, fmt.Errorf("parse brightness: %w", err)
	}
	return v, nil
}

func (SysfsBrightness) SetBrightness(percent int) error {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	return exec.Command("brightnessctl", "set", fmt.Sprintf("%d%%", percent)).Run()
}
