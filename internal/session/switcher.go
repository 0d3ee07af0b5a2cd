package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/strandmedia/strand/internal/domain"
	"github.com/strandmedia/strand/internal/player"
)

// SwitchState is the transient state governing a source swap.
type SwitchState int

const (
	SwitchIdle SwitchState = iota
	SwitchInFlight
	SwitchFailed
)

// String returns a human-readable label for the switch state.
func (s SwitchState) String() string {
	switch s {
	case SwitchIdle:
		return "idle"
	case SwitchInFlight:
		return "switching"
	case SwitchFailed:
		return "error"
	default:
		return "unknown"
	}
}

// ErrSwitchInFlight means a switch request arrived while another was
// already running; the second request is ignored.
var ErrSwitchInFlight = errors.New("episode switch already in flight")

const (
	// switchSettleDelay lets the route-parameter update propagate before
	// the suppression flag clears, so the reactive loader cannot race a
	// reload against the uncommitted swap.
	switchSettleDelay = 150 * time.Millisecond

	// switchErrorWindow is how long a switch error stays visible before
	// the state auto-clears back to idle.
	switchErrorWindow = 4 * time.Second

	switchFetchTimeout = 15 * time.Second
	switchFlushTimeout = 10 * time.Second
)

// historyPatcher updates an episode's cached watch-history fraction.
type historyPatcher interface {
	PatchWatchHistory(contentID string, season, episode int, fraction float64) error
}

// Switcher orchestrates a safe transition from one episode's session to
// another without destroying the player handle. At most one switch runs
// at a time; while one is in flight the content loader's reactivity is
// suppressed.
type Switcher struct {
	resolve       func(ctx context.Context, params ContentParams) (*domain.MediaSession, error)
	flush         func(ctx context.Context) error
	handle        player.Handle
	nav           domain.Navigator
	history       historyPatcher
	setSuppressed func(bool)
	commit        func(*domain.MediaSession)
	logger        *slog.Logger

	// Delays, injectable for tests.
	settleDelay time.Duration
	errorWindow time.Duration

	mu      sync.Mutex
	state   SwitchState
	message string
	clear   *time.Timer
}

// SwitcherDeps wires the coordinator's collaborators.
type SwitcherDeps struct {
	Resolve       func(ctx context.Context, params ContentParams) (*domain.MediaSession, error)
	Flush         func(ctx context.Context) error
	Handle        player.Handle
	Nav           domain.Navigator
	History       historyPatcher
	SetSuppressed func(bool)
	Commit        func(*domain.MediaSession)
	Logger        *slog.Logger
}

// NewSwitcher creates an episode switch coordinator.
func NewSwitcher(deps SwitcherDeps) *Switcher {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Switcher{
		resolve:       deps.Resolve,
		flush:         deps.Flush,
		handle:        deps.Handle,
		nav:           deps.Nav,
		history:       deps.History,
		setSuppressed: deps.SetSuppressed,
		commit:        deps.Commit,
		logger:        logger,
		settleDelay:   switchSettleDelay,
		errorWindow:   switchErrorWindow,
	}
}

// State returns the current switch state and error message, if any.
func (s *Switcher) State() (SwitchState, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.message
}

// Reset clears a failed state and its pending auto-clear timer. A switch
// in flight is left alone.
func (s *Switcher) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != SwitchFailed {
		return
	}
	if s.clear != nil {
		s.clear.Stop()
		s.clear = nil
	}
	s.state = SwitchIdle
	s.message = ""
}

// SwitchTo swaps the active session to another episode of the same show.
// current is the outgoing session; the incoming episode is resolved
// explicitly, bypassing the reactive loader.
func (s *Switcher) SwitchTo(ctx context.Context, current *domain.MediaSession, targetEpisode int) error {
	if current == nil {
		return errors.New("no active session to switch from")
	}
	if current.MediaType != domain.MediaTypeTV {
		return errors.New("episode switching requires tv content")
	}

	s.mu.Lock()
	if s.state == SwitchInFlight {
		s.mu.Unlock()
		s.logger.Debug("ignoring switch request, another is in flight", "episode", targetEpisode)
		return ErrSwitchInFlight
	}
	if s.clear != nil {
		s.clear.Stop()
		s.clear = nil
	}
	s.state = SwitchInFlight
	s.message = ""
	s.mu.Unlock()

	// Suppression must be up before any flush or fetch begins.
	s.setSuppressed(true)

	target := ContentParams{
		ContentID: current.ContentID,
		MediaType: domain.MediaTypeTV,
		Season:    current.Season,
		Episode:   targetEpisode,
	}

	if err := s.run(ctx, current, target); err != nil {
		var switchErr *domain.EpisodeSwitchError
		if !errors.As(err, &switchErr) {
			switchErr = &domain.EpisodeSwitchError{Message: "episode switch failed", Err: err}
		}
		s.fail(switchErr, target)
		return switchErr
	}

	// Let the parameter update propagate before the loader may react
	// again.
	time.Sleep(s.settleDelay)
	s.setSuppressed(false)

	s.mu.Lock()
	s.state = SwitchIdle
	s.mu.Unlock()
	return nil
}

// run executes the swap steps against a live suppression flag. Any error
// is mapped to the switch error taxonomy by the caller.
func (s *Switcher) run(ctx context.Context, current *domain.MediaSession, target ContentParams) error {
	// Final progress flush for the outgoing episode. Best-effort: a
	// failed flush is logged and the switch proceeds.
	if pos, err := s.handle.CurrentTime(); err == nil && pos > 0 {
		flushCtx, cancel := context.WithTimeout(ctx, switchFlushTimeout)
		if err := s.flush(flushCtx); err != nil {
			s.logger.Warn("outgoing progress flush failed", "error", err)
		}
		cancel()
	}

	fetchCtx, cancel := context.WithTimeout(ctx, switchFetchTimeout)
	defer cancel()

	incoming, err := s.resolve(fetchCtx, target)
	if err != nil {
		return &domain.EpisodeSwitchError{Message: "failed to load selected episode", Err: err}
	}
	if incoming.VideoURL == "" {
		return &domain.EpisodeSwitchError{
			Message:  "No video URL available for selected episode",
			NoSource: true,
		}
	}

	// Swap the source in place. The handle instance survives so other
	// subscribers keep their bindings and the view does not flicker.
	if err := s.handle.Replace(ctx, player.Source{URI: incoming.VideoURL, Title: incoming.Title}); err != nil {
		return &domain.EpisodeSwitchError{Message: "failed to start selected episode", Err: err}
	}

	if resume := incoming.ResumePosition(); resume > 0 {
		if err := s.handle.SeekTo(resume); err != nil {
			s.logger.Warn("resume seek failed", "position", resume, "error", err)
		}
	}
	if err := s.handle.Play(); err != nil {
		return &domain.EpisodeSwitchError{Message: "failed to resume playback", Err: err}
	}

	s.commit(incoming)
	s.patchHistory(incoming)

	// Deep-link consistency: rewrite the visible route parameters. The
	// suppression flag is still set, so this cannot re-trigger the
	// loader.
	s.nav.SetRouteParams(domain.RouteParams{
		ContentID: target.ContentID,
		MediaType: domain.MediaTypeTV,
		Season:    target.Season,
		Episode:   target.Episode,
		Backdrop:  incoming.Backdrop.URL,
	})

	s.logger.Info("episode switch committed",
		"contentID", incoming.ContentID, "episode", incoming.EpisodeCode())
	return nil
}

// patchHistory updates the picker's cached watch-history for the incoming
// episode so the UI reflects progress without a full list refetch.
func (s *Switcher) patchHistory(incoming *domain.MediaSession) {
	if s.history == nil || incoming.DurationMs <= 0 {
		return
	}
	fraction := incoming.PriorWatchPosition / (float64(incoming.DurationMs) / 1000)
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	if err := s.history.PatchWatchHistory(incoming.ContentID, incoming.Season, incoming.Episode, fraction); err != nil {
		s.logger.Warn("watch-history patch failed", "error", err)
	}
}

// fail transitions to the error state, schedules the auto-clear, and for
// the "no playable source" case falls back to a plain route-parameter
// update so the screen can remount against the new params.
func (s *Switcher) fail(switchErr *domain.EpisodeSwitchError, target ContentParams) {
	s.logger.Error("episode switch failed",
		"episode", target.Episode, "noSource", switchErr.NoSource, "error", switchErr)

	s.setSuppressed(false)

	s.mu.Lock()
	s.state = SwitchFailed
	s.message = switchErr.Message
	if s.clear != nil {
		s.clear.Stop()
	}
	s.clear = time.AfterFunc(s.errorWindow, func() {
		s.mu.Lock()
		if s.state == SwitchFailed {
			s.state = SwitchIdle
			s.message = ""
		}
		s.clear = nil
		s.mu.Unlock()
	})
	s.mu.Unlock()

	if switchErr.NoSource {
		// Degraded path: suppression already cleared, so this update
		// lets the screen reload against the new params.
		s.nav.SetRouteParams(domain.RouteParams{
			ContentID: target.ContentID,
			MediaType: domain.MediaTypeTV,
			Season:    target.Season,
			Episode:   target.Episode,
		})
	}
}
