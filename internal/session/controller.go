package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/strandmedia/strand/internal/domain"
	"github.com/strandmedia/strand/internal/player"
	"github.com/strandmedia/strand/internal/store"
)

// Phase is the exhaustive UI phase of one playback session.
type Phase int

const (
	PhaseLoading Phase = iota
	PhaseReady
	PhaseSwitching
	PhaseError
	PhaseUnloaded
)

// String returns a human-readable label for the phase.
func (p Phase) String() string {
	switch p {
	case PhaseLoading:
		return "Loading"
	case PhaseReady:
		return "Ready"
	case PhaseSwitching:
		return "Switching"
	case PhaseError:
		return "Error"
	case PhaseUnloaded:
		return "Unloaded"
	default:
		return "Unknown"
	}
}

// captionPrefs persists the subtitle choice (consumer-defined interface).
type captionPrefs interface {
	GetCaptionPref() store.CaptionPref
	SaveCaptionPref(pref store.CaptionPref) error
}

// Snapshot is the controller state projected for presentation.
type Snapshot struct {
	Phase       Phase
	Title       string
	EpisodeCode string
	Backdrop    domain.BackdropImage
	Playing     bool
	Position    float64
	Duration    float64
	SwitchState SwitchState
	ErrMessage  string
	Captions    CaptionSelection
	Params      ContentParams
}

// Deps wires the controller's collaborators.
type Deps struct {
	Content domain.ContentService
	Handle  player.Handle
	Nav     domain.Navigator
	Prefs   captionPrefs
	History historyPatcher
	App     *AppContext
	Logger  *slog.Logger

	// Notify is invoked after every externally visible state change.
	// Must not block; may be nil.
	Notify func()
}

// Controller owns one active playback session: it reconciles player
// events, network fetches, user input, and navigation into one coherent
// phase machine and exposes the single effective view of current media.
type Controller struct {
	deps   Deps
	logger *slog.Logger

	loader   *Loader
	reporter *Reporter
	switcher *Switcher

	mu         sync.Mutex
	phase      Phase
	params     ContentParams
	loaded     *domain.MediaSession
	override   *domain.MediaSession
	contentErr error
	deviceErr  error
	switchErr  string
	playing    bool
	suppressed bool
	unmounted  bool

	captionResolved bool
	captions        CaptionSelection

	subs player.SubscriptionSet
}

// New creates a session controller for the given route parameters. Call
// Start to begin the initial load.
func New(params ContentParams, deps Deps) *Controller {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if deps.App == nil {
		deps.App = NewAppContext(nil, nil, logger)
	}

	c := &Controller{
		deps:   deps,
		logger: logger,
		phase:  PhaseLoading,
		params: params,
	}

	c.loader = NewLoader(deps.Content, c.isSuppressed, logger)
	c.reporter = NewReporter(deps.Content, deps.Handle, c.Effective, logger)
	c.switcher = NewSwitcher(SwitcherDeps{
		Resolve:       c.loader.Resolve,
		Flush:         c.reporter.Flush,
		Handle:        deps.Handle,
		Nav:           deps.Nav,
		History:       deps.History,
		SetSuppressed: c.setSuppressed,
		Commit:        c.commitOverride,
		Logger:        logger,
	})

	return c
}

// Start performs the initial load and binds the player handle to the
// resolved source. The phase stays Loading until the handle reports
// ready-to-play.
func (c *Controller) Start(ctx context.Context) error {
	c.deps.App.EnterPlayback()

	sub := c.deps.Handle.Bind(c.onPlayerEvent)
	c.mu.Lock()
	c.subs.Add(sub)
	c.mu.Unlock()

	session, err := c.loader.Load(ctx, c.paramsCopy())
	if err != nil {
		if errors.Is(err, ErrLoadSuperseded) || errors.Is(err, ErrLoadSuppressed) {
			return nil
		}
		c.mu.Lock()
		c.contentErr = err
		c.phase = PhaseError
		c.mu.Unlock()
		c.notify()
		return err
	}

	c.mu.Lock()
	c.loaded = session
	c.mu.Unlock()

	if err := c.bindSource(ctx, session); err != nil {
		c.mu.Lock()
		c.contentErr = err
		c.phase = PhaseError
		c.mu.Unlock()
		c.notify()
		return err
	}

	c.resolveCaptionsOnce(session)
	c.reporter.Start()
	c.notify()
	return nil
}

// bindSource replaces the handle's source and applies the resume offset.
func (c *Controller) bindSource(ctx context.Context, session *domain.MediaSession) error {
	if err := c.deps.Handle.Replace(ctx, player.Source{URI: session.VideoURL, Title: session.Title}); err != nil {
		return err
	}
	if resume := session.ResumePosition(); resume > 0 {
		if err := c.deps.Handle.SeekTo(resume); err != nil {
			c.logger.Warn("resume seek failed", "position", resume, "error", err)
		}
	}
	return c.deps.Handle.Play()
}

// SetParams applies a route-parameter change. While a switch is in
// flight the change is recorded but triggers no fetch; afterwards a real
// change reloads the session in full (dropping any switch override).
func (c *Controller) SetParams(ctx context.Context, params ContentParams) error {
	c.mu.Lock()
	if c.unmounted {
		c.mu.Unlock()
		return nil
	}
	if c.suppressed {
		c.params = params
		c.mu.Unlock()
		c.logger.Debug("param update during switch, holding", "episode", params.Episode)
		return nil
	}
	if params == c.params {
		c.mu.Unlock()
		return nil
	}
	c.params = params
	c.mu.Unlock()

	session, err := c.loader.Load(ctx, params)
	if err != nil {
		if errors.Is(err, ErrLoadSuperseded) || errors.Is(err, ErrLoadSuppressed) {
			return nil
		}
		c.mu.Lock()
		c.contentErr = err
		c.phase = PhaseError
		c.mu.Unlock()
		c.notify()
		return err
	}

	// Full reload: the override no longer supersedes anything, and any
	// prior error state gives way to a fresh Loading lifecycle so the
	// ready-to-play status can promote the phase again.
	c.mu.Lock()
	c.loaded = session
	c.override = nil
	c.contentErr = nil
	c.deviceErr = nil
	c.switchErr = ""
	c.phase = PhaseLoading
	c.captionResolved = false
	c.mu.Unlock()
	c.switcher.Reset()

	if err := c.bindSource(ctx, session); err != nil {
		c.mu.Lock()
		c.contentErr = err
		c.phase = PhaseError
		c.mu.Unlock()
		c.notify()
		return err
	}

	c.resolveCaptionsOnce(session)
	c.notify()
	return nil
}

// SwitchTo swaps to another episode in place. Rejected unless the session
// is Ready; a second request while switching is ignored.
func (c *Controller) SwitchTo(ctx context.Context, episode int) error {
	c.mu.Lock()
	if c.phase != PhaseReady {
		c.mu.Unlock()
		return errors.New("session not ready for episode switch")
	}
	current := c.effectiveLocked()
	c.phase = PhaseSwitching
	c.switchErr = ""
	c.mu.Unlock()
	c.notify()

	err := c.switcher.SwitchTo(ctx, current, episode)

	c.mu.Lock()
	switch {
	case err == nil:
		c.phase = PhaseReady
	case errors.Is(err, ErrSwitchInFlight):
		// Another writer owns the handle; leave its phase alone.
	default:
		var switchErr *domain.EpisodeSwitchError
		if errors.As(err, &switchErr) && switchErr.NoSource {
			c.switchErr = switchErr.Message
			c.phase = PhaseError
		} else {
			// Prior session keeps playing; the error is inline and
			// dismissible.
			c.switchErr = err.Error()
			c.phase = PhaseReady
		}
	}
	c.mu.Unlock()
	c.notify()
	return err
}

// commitOverride installs the switch-produced session as the effective
// view. Called by the switch coordinator after the source swap succeeds.
func (c *Controller) commitOverride(session *domain.MediaSession) {
	c.mu.Lock()
	c.override = session
	c.captionResolved = false
	c.mu.Unlock()
	c.resolveCaptionsOnce(session)
	c.notify()
}

// DismissSwitchError clears an inline switch error.
func (c *Controller) DismissSwitchError() {
	c.mu.Lock()
	c.switchErr = ""
	c.mu.Unlock()
	c.notify()
}

// onPlayerEvent reconciles handle events into the phase machine.
func (c *Controller) onPlayerEvent(ev player.Event) {
	switch ev.Kind {
	case player.EventTimeUpdate:
		c.reporter.OnTimeUpdate(ev.Position)

	case player.EventPlayingChange:
		c.mu.Lock()
		c.playing = ev.IsPlaying
		c.mu.Unlock()
		if ev.IsPlaying {
			c.deps.App.AcquireWake()
		} else {
			c.deps.App.ReleaseWake()
		}
		c.reporter.OnPlayingChange(ev.IsPlaying)
		c.notify()

	case player.EventStatusChange:
		c.onStatusChange(ev)

	case player.EventSourceChange:
		c.notify()
	}
}

func (c *Controller) onStatusChange(ev player.Event) {
	c.mu.Lock()
	switch ev.Status {
	case player.StatusReadyToPlay:
		if c.phase == PhaseLoading {
			c.phase = PhaseReady
		}
	case player.StatusError:
		msg := "media playback failed"
		if ev.Err != nil {
			msg = ev.Err.Error()
		}
		c.deviceErr = &domain.PlaybackDeviceError{Message: msg}
		c.phase = PhaseError
	}
	c.mu.Unlock()
	c.notify()
}

// TogglePlay flips play/pause. Guarded reads: a released handle is
// treated as gone, not fatal.
func (c *Controller) TogglePlay() {
	playing, err := c.deps.Handle.Playing()
	if err != nil {
		return
	}
	if playing {
		_ = c.deps.Handle.Pause()
	} else {
		_ = c.deps.Handle.Play()
	}
}

// SeekBy seeks relative to the current position. Only valid while Ready;
// the switch coordinator holds exclusive write intent otherwise.
func (c *Controller) SeekBy(seconds float64) {
	c.mu.Lock()
	ready := c.phase == PhaseReady
	c.mu.Unlock()
	if !ready {
		return
	}
	_ = c.deps.Handle.SeekBy(seconds)
}

// Unmount tears the session down: one final fire-and-forget flush, all
// subscriptions and timers closed exactly once, background work resumed.
func (c *Controller) Unmount() {
	c.mu.Lock()
	if c.unmounted {
		c.mu.Unlock()
		return
	}
	c.unmounted = true
	c.phase = PhaseUnloaded
	c.mu.Unlock()

	c.reporter.FlushFinal()
	c.mu.Lock()
	c.subs.Close()
	c.mu.Unlock()

	c.deps.App.ReleaseWake()
	c.deps.App.ExitPlayback()
	c.notify()
}

// Effective returns the currently authoritative session: once an episode
// switch has produced override data, that override supersedes the
// loader's data until the next full reload.
func (c *Controller) Effective() *domain.MediaSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.effectiveLocked()
}

func (c *Controller) effectiveLocked() *domain.MediaSession {
	if c.override != nil {
		return c.override
	}
	return c.loaded
}

// UserError returns the single user-visible error: first non-empty of
// content, device, and switch errors, in that priority order.
func (c *Controller) UserError() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userErrorLocked()
}

func (c *Controller) userErrorLocked() string {
	if c.contentErr != nil {
		return c.contentErr.Error()
	}
	if c.deviceErr != nil {
		return c.deviceErr.Error()
	}
	if c.switchErr != "" {
		return c.switchErr
	}
	if _, msg := c.switcher.State(); msg != "" {
		return msg
	}
	return ""
}

// Snapshot projects the controller state for presentation.
func (c *Controller) Snapshot() Snapshot {
	pos, _ := c.deps.Handle.CurrentTime()
	dur, _ := c.deps.Handle.Duration()

	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		Phase:    c.phase,
		Playing:  c.playing,
		Position: pos,
		Duration: dur,
		Captions: c.captions,
		Params:   c.params,
	}
	snap.SwitchState, _ = c.switcher.State()
	snap.ErrMessage = c.userErrorLocked()

	if s := c.effectiveLocked(); s != nil {
		snap.Title = s.Title
		snap.EpisodeCode = s.EpisodeCode()
		snap.Backdrop = s.Backdrop
		if dur == 0 && s.DurationMs > 0 {
			snap.Duration = float64(s.DurationMs) / 1000
		}
	}
	return snap
}

// Params returns the current route parameters.
func (c *Controller) Params() ContentParams {
	return c.paramsCopy()
}

func (c *Controller) paramsCopy() ContentParams {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.params
}

// === Captions ===

// resolveCaptionsOnce runs auto-resolution at most once per session. A
// refreshed track list never re-runs it; only a full reload or switch
// commit (a new session) resets the sentinel.
func (c *Controller) resolveCaptionsOnce(session *domain.MediaSession) {
	c.mu.Lock()
	if c.captionResolved {
		c.mu.Unlock()
		return
	}
	c.captionResolved = true
	c.mu.Unlock()

	pref := store.CaptionPref{}
	if c.deps.Prefs != nil {
		pref = c.deps.Prefs.GetCaptionPref()
	}
	selection := ResolveCaptions(session.CaptionTracks, pref)

	c.mu.Lock()
	c.captions = selection
	c.mu.Unlock()
}

// SelectCaption picks a caption track by label, persisting the language
// preference and re-enabling subtitles.
func (c *Controller) SelectCaption(label string) {
	session := c.Effective()
	if session == nil {
		return
	}
	track, ok := session.CaptionTracks[label]
	if !ok {
		return
	}

	if c.deps.Prefs != nil {
		if err := c.deps.Prefs.SaveCaptionPref(store.CaptionPref{State: label}); err != nil {
			c.logger.Warn("caption preference save failed", "error", err)
		}
	}

	c.mu.Lock()
	c.captions = CaptionSelection{Track: &track}
	c.captionResolved = true
	c.mu.Unlock()
	c.notify()
}

// DisableCaptions turns subtitles off and persists the choice.
func (c *Controller) DisableCaptions() {
	if c.deps.Prefs != nil {
		if err := c.deps.Prefs.SaveCaptionPref(store.CaptionPref{State: store.CaptionStateDisabled}); err != nil {
			c.logger.Warn("caption preference save failed", "error", err)
		}
	}
	c.mu.Lock()
	c.captions = CaptionSelection{Off: true}
	c.captionResolved = true
	c.mu.Unlock()
	c.notify()
}

// === internal ===

func (c *Controller) isSuppressed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.suppressed
}

func (c *Controller) setSuppressed(v bool) {
	c.mu.Lock()
	c.suppressed = v
	c.mu.Unlock()
}

func (c *Controller) notify() {
	if c.deps.Notify != nil {
		c.deps.Notify()
	}
}
