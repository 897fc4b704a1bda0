// Package tasks implements the long-term jobs the router dispatches:
// program search (open/delete), folder reorganization, reminders, alarms,
// file reading and image grayscaling. Every task reports with a short
// user-facing message; failures become messages too, never panics.
package tasks

import (
	"context"
	"time"

	"go.uber.org/zap"

	"eva/internal/router"
	"eva/internal/search"
	"eva/internal/state"
	"eva/internal/store"
	"eva/internal/stream"
)

// Speaker voices text in the background. The TTS engine implements it.
type Speaker interface {
	Speak(text string)
}

// Options bundles the collaborators the task set needs.
type Options struct {
	State   *state.Shared
	Store   *store.Store
	Search  *search.Engine
	Speaker Speaker
	Now     func() time.Time
}

// Registry builds the long-term task table keyed by dispatch task name.
func Registry(log *zap.Logger, opts Options) map[string]stream.Task {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("tasks")

	if opts.Now == nil {
		opts.Now = time.Now
	}

	scheduler := NewScheduler(log, opts.State, opts.Now)
	reader := &Reader{Log: log, State: opts.State, Speaker: opts.Speaker}

	return map[string]stream.Task{
		router.TaskOpening: func(ctx context.Context, arg string) (string, error) {
			return runSearch(ctx, opts, arg, false)
		},
		router.TaskDeletion: func(ctx context.Context, arg string) (string, error) {
			return runSearch(ctx, opts, arg, true)
		},
		router.TaskReorganization: func(ctx context.Context, arg string) (string, error) {
			return Reorganize(log, arg)
		},
		router.TaskReminder: func(ctx context.Context, arg string) (string, error) {
			return CreateReminder(opts.State, opts.Store, arg), nil
		},
		router.TaskReading: func(ctx context.Context, arg string) (string, error) {
			return reader.Read(), nil
		},
		router.TaskAlarm: func(ctx context.Context, arg string) (string, error) {
			return scheduler.Schedule(arg), nil
		},
		router.TaskGrayscale: func(ctx context.Context, arg string) (string, error) {
			return GrayscaleImage(log, opts.State, arg)
		},
	}
}

// runSearch blocks until the scan settles and drains the mailbox, so the
// session never waits on a search that found nothing.
func runSearch(ctx context.Context, opts Options, target string, shouldDelete bool) (string, error) {
	if err := opts.Search.Run(ctx, target, shouldDelete); err != nil {
		return "", err
	}
	if msg, ok := opts.State.Mailbox.Take(); ok {
		return msg, nil
	}
	return "Object was not found", nil
}
