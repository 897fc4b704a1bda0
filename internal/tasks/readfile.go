package tasks

import (
	"os"

	"go.uber.org/zap"

	"eva/internal/state"
)

// Reader voices the most recently attached chat file out loud.
type Reader struct {
	Log     *zap.Logger
	State   *state.Shared
	Speaker Speaker
}

// Read loads the current file and hands its content to the speaker in the
// background, so the answer streams while the voice catches up.
func (r *Reader) Read() string {
	log := r.Log
	if log == nil {
		log = zap.NewNop()
	}

	name, path, ok := r.State.CurrentFile()
	if !ok {
		return "Attach a file first, then ask me to read it"
	}

	content, err := os.ReadFile(path)
	if err != nil {
		log.Error("failed to read attached file",
			zap.String("file", name), zap.Error(err))
		return "This file doesn't exist"
	}

	if r.Speaker != nil {
		go r.Speaker.Speak(string(content))
	}
	return "Reading the content..."
}
