package session

import (
	"log/slog"
	"sync"
)

// WakeLock keeps the device display on while playback is active.
type WakeLock interface {
	Activate()
	Release()
}

// BrowseCache is the secondary metadata cache cleared on session entry to
// free memory for playback buffers.
type BrowseCache interface {
	Clear()
}

// AppContext is the explicitly owned process-wide playback context:
// exactly one active session suspends unrelated background work and holds
// the keep-awake lock. It is injected into the session controller, never
// reached as an ambient global.
type AppContext struct {
	wake   WakeLock
	browse BrowseCache
	logger *slog.Logger

	mu        sync.Mutex
	awake     bool
	suspended bool
}

// NewAppContext creates the playback context. Nil collaborators are
// replaced with no-ops so tests and headless runs need no stubs.
func NewAppContext(wake WakeLock, browse BrowseCache, logger *slog.Logger) *AppContext {
	if wake == nil {
		wake = noopWake{}
	}
	if browse == nil {
		browse = noopBrowse{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AppContext{wake: wake, browse: browse, logger: logger}
}

// EnterPlayback suspends background content refresh process-wide and
// clears the browse cache. Idempotent.
func (a *AppContext) EnterPlayback() {
	a.mu.Lock()
	already := a.suspended
	a.suspended = true
	a.mu.Unlock()
	if already {
		return
	}
	a.browse.Clear()
	a.logger.Debug("background refresh suspended")
}

// ExitPlayback resumes background refresh. Idempotent.
func (a *AppContext) ExitPlayback() {
	a.mu.Lock()
	was := a.suspended
	a.suspended = false
	a.mu.Unlock()
	if was {
		a.logger.Debug("background refresh resumed")
	}
}

// BackgroundSuspended reports whether background refresh is gated off.
func (a *AppContext) BackgroundSuspended() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.suspended
}

// AcquireWake activates the keep-awake lock. Each acquire is matched by
// at most one underlying activation; repeated calls are no-ops until the
// lock is released.
func (a *AppContext) AcquireWake() {
	a.mu.Lock()
	already := a.awake
	a.awake = true
	a.mu.Unlock()
	if !already {
		a.wake.Activate()
	}
}

// ReleaseWake releases the keep-awake lock if held.
func (a *AppContext) ReleaseWake() {
	a.mu.Lock()
	held := a.awake
	a.awake = false
	a.mu.Unlock()
	if held {
		a.wake.Release()
	}
}

type noopWake struct{}

func (noopWake) Activate() {}
func (noopWake) Release()  {}

type noopBrowse struct{}

func (noopBrowse) Clear() {}
