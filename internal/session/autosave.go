package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/planforge/planforge-backend/internal/platform/logger"
)

// DefaultDebounceInterval is the quiet period after the last dirty mark
// before a commit runs.
const DefaultDebounceInterval = 3 * time.Second

// autosaver debounces persistence commits. Every MarkDirty restarts the quiet
// window; Flush bypasses it. Commits are serialized: at most one is in flight
// per document, and a window that fires mid-commit restarts after the commit
// finishes instead of stacking a second one.
type autosaver struct {
	log      *logger.Logger
	interval time.Duration
	commit   func(ctx context.Context) error
	locked   func() bool
	onStatus func(saving bool, err error)

	mu      sync.Mutex
	timer   *time.Timer
	pending bool
	stopped bool

	commitMu sync.Mutex
	saving   atomic.Bool
}

func newAutosaver(log *logger.Logger, interval time.Duration, commit func(ctx context.Context) error, locked func() bool, onStatus func(saving bool, err error)) *autosaver {
	if interval <= 0 {
		interval = DefaultDebounceInterval
	}
	return &autosaver{
		log:      log.With("component", "autosaver"),
		interval: interval,
		commit:   commit,
		locked:   locked,
		onStatus: onStatus,
	}
}

func (a *autosaver) MarkDirty() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stopped {
		return
	}
	if a.timer != nil {
		a.timer.Stop()
	}
	a.timer = time.AfterFunc(a.interval, a.fire)
}

func (a *autosaver) fire() {
	a.mu.Lock()
	if a.stopped {
		a.mu.Unlock()
		return
	}
	a.mu.Unlock()

	// Never persist half-typed drafts: while an edit lock is held the window
	// simply lapses; the save (or the next dirty mark) reschedules.
	if a.locked != nil && a.locked() {
		return
	}

	if !a.commitMu.TryLock() {
		a.mu.Lock()
		a.pending = true
		a.mu.Unlock()
		return
	}
	a.runCommitLocked()
	a.commitMu.Unlock()

	a.rearmIfPending()
}

// Flush commits immediately, bypassing the debounce. Used right after an
// explicit user save so manual content is never lost to a crash during the
// quiet window.
func (a *autosaver) Flush() error {
	a.mu.Lock()
	if a.stopped {
		a.mu.Unlock()
		return nil
	}
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.mu.Unlock()

	a.commitMu.Lock()
	err := a.runCommitLocked()
	a.commitMu.Unlock()

	a.rearmIfPending()
	return err
}

// runCommitLocked must hold commitMu.
func (a *autosaver) runCommitLocked() error {
	a.saving.Store(true)
	if a.onStatus != nil {
		a.onStatus(true, nil)
	}
	err := a.commit(context.Background())
	a.saving.Store(false)
	if a.onStatus != nil {
		a.onStatus(false, err)
	}
	if err != nil {
		// Storage is a mirror of in-memory truth; nothing to roll back. The
		// next dirty mark retries naturally.
		a.log.Warn("autosave commit failed", "error", err)
	}
	return err
}

func (a *autosaver) rearmIfPending() {
	a.mu.Lock()
	pending := a.pending
	a.pending = false
	stopped := a.stopped
	a.mu.Unlock()
	if pending && !stopped {
		a.MarkDirty()
	}
}

func (a *autosaver) Saving() bool {
	return a.saving.Load()
}

// Stop cancels any scheduled commit. Switching documents must never let a
// stale commit from a previous document id leak in.
func (a *autosaver) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopped = true
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
}
