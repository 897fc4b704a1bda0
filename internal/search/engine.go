// Package search fans out a filesystem hunt for a named program across all
// storage volumes. Branches share one claim: the first to find an
// acceptable match performs the open or delete, everyone else backs off.
// Traversal runs on a bounded worker pool with explicit directory stacks
// instead of a thread per subdirectory, so deep trees cannot explode the
// scheduler; cancellation means workers stop taking new directories.
package search

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"eva/internal/perception"
	"eva/internal/state"
	"eva/internal/system"
)

// matchCutoff is the fuzzy score a directory entry must reach before the
// engine will open or delete it.
const matchCutoff = 91

// defaultWorkers bounds the number of concurrently walking branches.
const defaultWorkers = 8

// ObjectStore persists where a target was found so the next "open" skips
// the scan.
type ObjectStore interface {
	SaveObjectPath(name, path string) error
}

// Engine is the concurrent search engine.
type Engine struct {
	log     *zap.Logger
	st      *state.Shared
	fs      FS
	opener  system.Opener
	remover system.Remover
	objects ObjectStore
	workers int64
}

// Options configures New.
type Options struct {
	State   *state.Shared
	FS      FS
	Opener  system.Opener
	Remover system.Remover
	Objects ObjectStore
	Workers int64
}

// New wires an Engine. A nil FS uses the host filesystem.
func New(log *zap.Logger, opts Options) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	e := &Engine{
		log:     log.Named("search"),
		st:      opts.State,
		fs:      opts.FS,
		opener:  opts.Opener,
		remover: opts.Remover,
		objects: opts.Objects,
		workers: opts.Workers,
	}
	if e.fs == nil {
		e.fs = HostFS{}
	}
	if e.opener == nil {
		e.opener = system.DefaultOpener{Log: log}
	}
	if e.remover == nil {
		e.remover = system.DefaultRemover{Log: log}
	}
	if e.workers <= 0 {
		e.workers = defaultWorkers
	}
	return e
}

// Run searches every volume for target and performs the action on the
// first acceptable match. It blocks until all branches finish or are
// cancelled; the outcome is observed through the shared mailbox. Branch
// failures are not fatal, so the only errors returned are setup ones.
func (e *Engine) Run(ctx context.Context, target string, shouldDelete bool) error {
	// Starting a new search retires the cancellation gate of any prior one.
	ctx = e.st.BeginSearch(ctx)

	vols, err := e.fs.Volumes()
	if err != nil {
		return err
	}

	e.log.Info("search started",
		zap.String("target", target),
		zap.Bool("delete", shouldDelete),
		zap.Int("volumes", len(vols)))

	var claimed atomic.Bool
	sem := semaphore.NewWeighted(e.workers)
	var wg sync.WaitGroup

	w := &walk{
		engine:       e,
		ctx:          ctx,
		target:       target,
		shouldDelete: shouldDelete,
		claimed:      &claimed,
		sem:          sem,
		wg:           &wg,
	}

	for _, vol := range vols {
		for _, root := range vol.SearchRoots() {
			w.spawn(root)
		}
	}
	wg.Wait()

	if !claimed.Load() {
		e.log.Info("search finished without a match", zap.String("target", target))
	}
	return nil
}

// Start runs the search in the background and returns immediately.
func (e *Engine) Start(ctx context.Context, target string, shouldDelete bool) {
	go func() {
		if err := e.Run(ctx, target, shouldDelete); err != nil {
			e.log.Error("search failed to start", zap.Error(err))
		}
	}()
}

// walk carries the per-invocation search context shared by all branches.
type walk struct {
	engine       *Engine
	ctx          context.Context
	target       string
	shouldDelete bool
	claimed      *atomic.Bool
	sem          *semaphore.Weighted
	wg           *sync.WaitGroup
}

// spawn hands a subtree to a pool worker. When the pool is saturated the
// caller keeps the subtree on its own stack instead, so spawning never
// blocks a walking branch.
func (w *walk) spawn(root string) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		if err := w.sem.Acquire(w.ctx, 1); err != nil {
			return // cancelled while waiting for a slot
		}
		defer w.sem.Release(1)
		w.branch(root)
	}()
}

// branch walks a subtree depth-first with an explicit stack. The
// cancellation gate and the claim are re-checked before every directory
// step and before any side effect.
func (w *walk) branch(root string) {
	stack := []string{root}
	for len(stack) > 0 {
		if w.ctx.Err() != nil || w.claimed.Load() {
			return
		}

		dir := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		entries, err := w.engine.fs.ReadDir(dir)
		if err != nil {
			// Permission denied or vanished path: this branch found
			// nothing here; siblings keep going.
			w.engine.log.Debug("directory skipped",
				zap.String("dir", dir), zap.Error(err))
			continue
		}

		var files, dirs []string
		for _, entry := range entries {
			if entry.Dir {
				if !deniedDirs[entry.Name] {
					dirs = append(dirs, entry.Name)
				}
			} else if !deniedFiles[entry.Name] {
				files = append(files, entry.Name)
			}
		}

		if match, score, ok := perception.BestMatch(w.target, files, matchCutoff); ok {
			if w.claimed.CompareAndSwap(false, true) {
				w.engine.act(filepath.Join(dir, match), w.target, score, w.shouldDelete)
				w.engine.st.StopSearch()
			}
			return
		}

		for _, sub := range dirs {
			path := filepath.Join(dir, sub)
			// Offload to an idle worker when one exists, otherwise keep
			// walking it ourselves.
			if w.sem.TryAcquire(1) {
				w.wg.Add(1)
				go func() {
					defer w.wg.Done()
					defer w.sem.Release(1)
					w.branch(path)
				}()
			} else {
				stack = append(stack, path)
			}
		}
	}
}

// act performs the single open-or-delete this invocation is allowed.
func (e *Engine) act(path, target string, score int, shouldDelete bool) {
	e.log.Info("target found",
		zap.String("path", path),
		zap.Int("score", score),
		zap.Bool("delete", shouldDelete))

	if shouldDelete {
		if err := e.remover.Remove(path); err != nil {
			e.log.Error("delete failed", zap.String("path", path), zap.Error(err))
			e.st.Mailbox.Put("Object was found but could not be deleted")
			return
		}
		e.st.Mailbox.Put("Object was found and deleted")
		return
	}

	if e.objects != nil {
		if err := e.objects.SaveObjectPath(target, path); err != nil {
			e.log.Warn("failed to remember object path", zap.Error(err))
		}
	}
	if err := e.opener.Open(path); err != nil {
		e.log.Error("open failed", zap.String("path", path), zap.Error(err))
		e.st.Mailbox.Put("Object was found but could not be opened")
		return
	}
	e.st.Mailbox.Put("Object was found and opened")
}
