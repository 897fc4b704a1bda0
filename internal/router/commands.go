// Package router classifies utterances into dispatch decisions. It owns the
// verb-to-command table, the feature resolver and the precedence of special
// cases over the general classification pipeline.
package router

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Feature is a concrete action under a command. A nil Arguments slice means
// the feature is unconstrained and accepts any object.
type Feature struct {
	Name      string   `yaml:"name"`
	Arguments []string `yaml:"arguments"`
}

// Command groups the features reachable through one verb.
type Command struct {
	Name     string    `yaml:"name"`
	Features []Feature `yaml:"features"`
}

// Table maps verbs to commands.
type Table struct {
	Verbs    map[string]string  `yaml:"verbs"`
	Commands map[string]Command `yaml:"commands"`
}

// DefaultTable returns the built-in command set.
func DefaultTable() *Table {
	return &Table{
		Verbs: map[string]string{
			"open":   "open_features",
			"play":   "play_feature",
			"say":    "say_features",
			"create": "create_features",
			"search": "search_features",
			"read":   "reading_feature",
		},
		Commands: map[string]Command{
			"open_features": {
				Name: "open_features",
				Features: []Feature{
					{Name: "open_site", Arguments: []string{"youtube", "google", "soundcloud"}},
				},
			},
			"play_feature": {
				Name: "play_feature",
				Features: []Feature{
					{Name: "play_music"}, // unconstrained
				},
			},
			"say_features": {
				Name: "say_features",
				Features: []Feature{
					{Name: "get_time", Arguments: []string{"time"}},
					{Name: "get_date", Arguments: []string{"date"}},
				},
			},
			"create_features": {
				Name: "create_features",
				Features: []Feature{
					{Name: "set_alarm", Arguments: []string{"alarm"}},
					{Name: "activate_reminder_flag", Arguments: []string{"reminder"}},
				},
			},
			"search_features": {
				Name: "search_features",
				Features: []Feature{
					{Name: "search_information"}, // unconstrained
				},
			},
			"reading_feature": {
				Name: "reading_feature",
				Features: []Feature{
					{Name: "read_file", Arguments: []string{"file"}},
				},
			},
		},
	}
}

// LoadTable reads a YAML table from disk, for user overrides of the
// built-in verb mappings.
func LoadTable(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read command table: %w", err)
	}
	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse command table: %w", err)
	}
	if len(t.Verbs) == 0 || len(t.Commands) == 0 {
		return nil, fmt.Errorf("command table %s is incomplete", path)
	}
	return &t, nil
}

// CommandFor resolves a verb to its command. ok is false for unknown verbs.
func (t *Table) CommandFor(verb string) (Command, bool) {
	name, ok := t.Verbs[verb]
	if !ok {
		return Command{}, false
	}
	cmd, ok := t.Commands[name]
	return cmd, ok
}
