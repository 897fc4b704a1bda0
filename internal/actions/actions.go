// Package actions implements the instantaneous command set: the functions
// the router executes inline within the current turn. Each returns a terse
// status string; the streaming controller later rewrites it into friendly
// phrasing.
package actions

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"eva/internal/calc"
	"eva/internal/config"
	"eva/internal/perception"
	"eva/internal/state"
	"eva/internal/store"
	"eva/internal/system"
)

// Func is one instantaneous capability: argument in, status message out.
type Func func(arg string) (string, error)

// Actions bundles the collaborators the instantaneous set needs.
type Actions struct {
	log        *zap.Logger
	st         *state.Shared
	store      *store.Store
	settings   *config.Manager
	calc       *calc.Calculator
	browser    system.Browser
	opener     system.Opener
	volume     system.VolumeControl
	brightness system.BrightnessControl
	now        func() time.Time
}

// Options configures New. Nil collaborators fall back to defaults suitable
// for the current platform.
type Options struct {
	State      *state.Shared
	Store      *store.Store
	Settings   *config.Manager
	Browser    system.Browser
	Opener     system.Opener
	Volume     system.VolumeControl
	Brightness system.BrightnessControl
	Now        func() time.Time
}

// New wires an Actions instance.
func New(log *zap.Logger, opts Options) *Actions {
	if log == nil {
		log = zap.NewNop()
	}
	a := &Actions{
		log:        log.Named("actions"),
		st:         opts.State,
		store:      opts.Store,
		settings:   opts.Settings,
		calc:       calc.New(),
		browser:    opts.Browser,
		opener:     opts.Opener,
		volume:     opts.Volume,
		brightness: opts.Brightness,
		now:        opts.Now,
	}
	if a.browser == nil {
		a.browser = system.DefaultBrowser{}
	}
	if a.opener == nil {
		a.opener = system.DefaultOpener{Log: log}
	}
	if a.volume == nil {
		a.volume = system.AmixerVolume{}
	}
	if a.brightness == nil {
		a.brightness = system.SysfsBrightness{}
	}
	if a.now == nil {
		a.now = time.Now
	}
	return a
}

// Registry maps feature names from the command table to their functions.
func (a *Actions) Registry() map[string]Func {
	return map[string]Func{
		"get_time":               a.GetTime,
		"get_date":               a.GetDate,
		"open_site":              a.OpenSite,
		"control_volume":         a.ControlVolume,
		"play_music":             a.PlayMusic,
		"search_information":     a.SearchInformation,
		"set_screen_brightness":  a.SetScreenBrightness,
		"calculate_expression":   a.CalculateExpression,
		"activate_reminder_flag": a.ActivateReminderFlag,
	}
}

// GetTime returns the current time as HH:MM:SS.
func (a *Actions) GetTime(string) (string, error) {
	return a.now().Format("15:04:05"), nil
}

// GetDate returns the current date as "2 January 2006".
func (a *Actions) GetDate(string) (string, error) {
	return a.now().Format("2 January 2006"), nil
}

// OpenSite opens a website in the default browser. "spacex dot com"
// becomes spacex.com; a bare name gets ".com" appended.
func (a *Actions) OpenSite(website string) (string, error) {
	website = strings.TrimSpace(website)
	if strings.Contains(website, "dot com") {
		website = strings.ReplaceAll(website, "dot com", ".com")
		website = strings.ReplaceAll(website, " ", "")
	} else if !strings.Contains(website, ".") {
		website += ".com"
	}
	u := "https://www." + website
	if err := a.browser.OpenURL(u); err != nil {
		return "", fmt.Errorf("opening site: %w", err)
	}
	a.log.Info("site opened", zap.String("url", u))
	return "Website was opened successfully", nil
}

// ControlVolume adjusts system volume by ten percent, or mutes/unmutes.
func (a *Actions) ControlVolume(action string) (string, error) {
	action = strings.TrimSpace(action)
	switch {
	case strings.Contains(action, "increase"), strings.Contains(action, "up"):
		if err := a.volume.Adjust(0.1); err != nil {
			return "", fmt.Errorf("volume control: %w", err)
		}
		return "Volume has been increased successfully", nil
	case strings.Contains(action, "decrease"), strings.Contains(action, "down"):
		if err := a.volume.Adjust(-0.1); err != nil {
			return "", fmt.Errorf("volume control: %w", err)
		}
		return "Volume has been decreased successfully", nil
	case strings.Contains(action, "unmute"):
		if err := a.volume.SetMuted(false); err != nil {
			return "", fmt.Errorf("volume control: %w", err)
		}
		return "Volume has been unmuted successfully", nil
	case strings.Contains(action, "mute"):
		if err := a.volume.SetMuted(true); err != nil {
			return "", fmt.Errorf("volume control: %w", err)
		}
		return "Volume has been muted successfully", nil
	}
	return "", fmt.Errorf("unknown volume action %q", action)
}

// PlayMusic plays a track from the library. An unknown title asks the user
// for the directory holding it; the next utterance is then handled by
// AddMusicEntry.
func (a *Actions) PlayMusic(title string) (string, error) {
	title = strings.TrimSpace(title)
	if path, ok, err := a.store.TrackPath(title); err != nil {
		return "", err
	} else if ok {
		if err := a.opener.Open(path); err != nil {
			return "", fmt.Errorf("playing music: %w", err)
		}
		return "Music was playing successfully", nil
	}

	titles, err := a.store.Titles()
	if err != nil {
		return "", err
	}
	if match, _, ok := perception.BestMatch(title, titles, 70); ok {
		path, _, err := a.store.TrackPath(match)
		if err != nil {
			return "", err
		}
		if err := a.opener.Open(path); err != nil {
			return "", fmt.Errorf("playing music: %w", err)
		}
		return "Music was playing successfully", nil
	}

	a.st.RequestMusicDirectory(title)
	return "Please provide the directory where your music is saved", nil
}

// AddMusicEntry resolves a pending music request against the given
// directory, saves the track and starts playback.
func (a *Actions) AddMusicEntry(directory string) (string, error) {
	title, ok := a.st.TakeMusicRequest()
	if !ok {
		return "", fmt.Errorf("no music request pending")
	}
	directory = strings.TrimSpace(directory)
	entries, err := os.ReadDir(directory)
	if err != nil {
		return "", fmt.Errorf("reading music directory: %w", err)
	}
	var tracks []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(strings.ToLower(e.Name()), ".mp3") {
			tracks = append(tracks, e.Name())
		}
	}
	match, _, ok := perception.BestMatch(title, tracks, 50)
	if !ok {
		return "", fmt.Errorf("no track resembling %q in %s", title, directory)
	}
	path := filepath.Join(directory, match)
	if err := a.store.SaveTrack(title, path); err != nil {
		return "", err
	}
	if err := a.opener.Open(path); err != nil {
		return "", fmt.Errorf("playing music: %w", err)
	}
	a.log.Info("track registered", zap.String("title", title), zap.String("path", path))
	return "Music was loaded and playing successfully", nil
}

// SearchInformation opens a web search for the query. Russian-language
// setups search on Yandex, everyone else on Google.
func (a *Actions) SearchInformation(utterance string) (string, error) {
	query := strings.TrimSpace(strings.Replace(utterance, "search", "", 1))
	lang := "en"
	if a.settings != nil {
		lang = a.settings.Language()
	}
	var u string
	if strings.HasPrefix(lang, "ru") {
		u = "https://www.yandex.ru/search/?text=" + url.QueryEscape(query)
	} else {
		u = "https://www.google.com/search?q=" + url.QueryEscape(query)
	}
	if err := a.browser.OpenURL(u); err != nil {
		return "", fmt.Errorf("search: %w", err)
	}
	return fmt.Sprintf("Here is your request about '%s'", query), nil
}

var numberRe = regexp.MustCompile(`-?\d+\.?\d*`)

// SetScreenBrightness raises or lowers the brightness by the value in the
// utterance, defaulting to 20, clamped to 0..100.
func (a *Actions) SetScreenBrightness(utterance string) (string, error) {
	step := 20.0
	if m := numberRe.FindString(utterance); m != "" {
		if v, err := strconv.ParseFloat(m, 64); err == nil {
			step = v
		}
	}
	current, err := a.brightness.Brightness()
	if err != nil {
		return "", fmt.Errorf("brightness: %w", err)
	}
	target := current
	lower := strings.ToLower(utterance)
	switch {
	case strings.Contains(lower, "increase"):
		target = current + int(step)
	case strings.Contains(lower, "decrease"):
		target = current - int(step)
	}
	if target > 100 {
		target = 100
	}
	if target < 0 {
		target = 0
	}
	if err := a.brightness.SetBrightness(target); err != nil {
		return "", fmt.Errorf("brightness: %w", err)
	}
	return fmt.Sprintf("Current brightness: %d%%", target), nil
}

// CalculateExpression solves the expression after the "solve" trigger.
func (a *Actions) CalculateExpression(utterance string) (string, error) {
	expr := strings.TrimSpace(strings.Replace(utterance, "solve", "", 1))
	result, err := a.calc.Eval(expr)
	if err != nil {
		return "", fmt.Errorf("calculation: %w", err)
	}
	return "Result: " + result, nil
}

// ActivateReminderFlag turns the next utterance into reminder data and
// tells the user the expected format.
func (a *Actions) ActivateReminderFlag(string) (string, error) {
	a.st.SetReminderPending(true)
	return "Enter the data for your note in the format: " +
		"name | message | time (DD.MM.YYYY HH:MM) | duration | location | minutes before start", nil
}

var alarmTimeRe = regexp.MustCompile(`\d{1,2}:\d{2}`)

// CaptureAlarmTime records an HH:MM found in the utterance so a later
// "create alarm" can use it. Returns the captured time, empty if none.
func (a *Actions) CaptureAlarmTime(utterance string) string {
	m := alarmTimeRe.FindString(utterance)
	if m != "" {
		a.st.SetAlarmTime(m)
	}
	return m
}

// OpenStoredObject opens a path previously learned by the search engine.
func (a *Actions) OpenStoredObject(path string) error {
	return a.opener.Open(path)
}
