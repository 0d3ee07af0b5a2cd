package session

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/strandmedia/strand/internal/domain"
	"github.com/strandmedia/strand/internal/player"
)

const (
	// periodicInterval is the wall-clock cadence of the background tick
	// while playing.
	periodicInterval = 30 * time.Second

	// reportGapSeconds is the minimum accumulated playback between
	// event-driven sends.
	reportGapSeconds = 30.0

	// jumpThresholdSeconds: a per-tick position jump beyond this is a
	// seek and reports out of band.
	jumpThresholdSeconds = 10.0

	sendTimeout = 10 * time.Second
)

// progressSink persists one observation (consumer-defined interface).
type progressSink interface {
	UpdatePlaybackProgress(ctx context.Context, progress domain.PlaybackProgress) error
}

// Reporter observes a bound player handle and persists watch progress
// under timing/jump heuristics. All triggers share one invariant: a
// position at or below zero is never sent, and nothing is sent after the
// owning session unmounted.
type Reporter struct {
	sink    progressSink
	handle  player.Handle
	session func() *domain.MediaSession // effective session accessor
	logger  *slog.Logger
	now     func() time.Time

	mu           sync.Mutex
	alive        bool
	playing      bool
	lastObserved float64   // previous time-update position, for seek detection
	lastReported float64   // position of the last successful trigger
	lastSentAt   time.Time // wall clock of the last trigger, rate-limits the periodic tick
	stop         chan struct{}
}

// NewReporter creates a progress reporter. session returns the currently
// authoritative media session (switch override included); a nil return
// suppresses sends.
func NewReporter(sink progressSink, handle player.Handle, session func() *domain.MediaSession, logger *slog.Logger) *Reporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reporter{
		sink:    sink,
		handle:  handle,
		session: session,
		logger:  logger,
		now:     time.Now,
		alive:   true,
	}
}

// Start launches the periodic tick. Safe to call once per session; the
// ticker is torn down by Stop or by a released handle.
func (r *Reporter) Start() {
	r.mu.Lock()
	if !r.alive || r.stop != nil {
		r.mu.Unlock()
		return
	}
	stop := make(chan struct{})
	r.stop = stop
	r.mu.Unlock()

	go func() {
		ticker := time.NewTicker(periodicInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				r.Tick()
			case <-stop:
				return
			}
		}
	}()
}

// Stop tears down the periodic tick and marks the reporter dead. No
// trigger fires after Stop returns.
func (r *Reporter) Stop() {
	r.mu.Lock()
	r.alive = false
	stop := r.stop
	r.stop = nil
	r.mu.Unlock()
	if stop != nil {
		close(stop)
	}
}

// Tick is one periodic observation. The handle's liveness is re-validated
// before reading its time: native handles may be released out-of-band, in
// which case the reporter tears itself down instead of crashing.
func (r *Reporter) Tick() {
	r.mu.Lock()
	alive := r.alive
	r.mu.Unlock()
	if !alive {
		return
	}

	playing, err := r.handle.Playing()
	if err != nil {
		r.handleGone(err)
		return
	}
	if !playing {
		return
	}

	// An event-driven trigger inside the last interval already covered
	// this window.
	r.mu.Lock()
	recent := !r.lastSentAt.IsZero() && r.now().Sub(r.lastSentAt) < periodicInterval
	r.mu.Unlock()
	if recent {
		return
	}

	pos, err := r.handle.CurrentTime()
	if err != nil {
		r.handleGone(err)
		return
	}

	r.send(pos, "periodic")
}

// OnTimeUpdate is the event-driven trigger: send when at least 30 seconds
// of playback accumulated since the last report, or when the per-tick
// jump exceeds 10 seconds in either direction (a seek).
func (r *Reporter) OnTimeUpdate(pos float64) {
	r.mu.Lock()
	if !r.alive {
		r.mu.Unlock()
		return
	}
	jump := pos - r.lastObserved
	r.lastObserved = pos
	elapsed := pos - r.lastReported
	r.mu.Unlock()

	if math.Abs(jump) > jumpThresholdSeconds || elapsed >= reportGapSeconds {
		r.send(pos, "timeUpdate")
	}
}

// OnPlayingChange flushes once on the playing -> paused transition.
func (r *Reporter) OnPlayingChange(isPlaying bool) {
	r.mu.Lock()
	wasPlaying := r.playing
	r.playing = isPlaying
	alive := r.alive
	r.mu.Unlock()

	if !alive || isPlaying || !wasPlaying {
		return
	}

	pos, err := r.handle.CurrentTime()
	if err != nil {
		r.handleGone(err)
		return
	}
	r.send(pos, "pause")
}

// Flush sends the current position and waits for the result. The episode
// switch coordinator awaits this before swapping sources.
func (r *Reporter) Flush(ctx context.Context) error {
	r.mu.Lock()
	alive := r.alive
	r.mu.Unlock()
	if !alive {
		return nil
	}

	pos, err := r.handle.CurrentTime()
	if err != nil {
		r.handleGone(err)
		return nil
	}

	progress, ok := r.observation(pos)
	if !ok {
		return nil
	}
	if err := r.sink.UpdatePlaybackProgress(ctx, progress); err != nil {
		return &domain.ProgressReportError{Err: err}
	}
	r.recordSent(pos)
	return nil
}

// FlushFinal is the unmount trigger: one best-effort fire-and-forget
// send, then the reporter goes dead so an in-flight timer can never send
// again.
func (r *Reporter) FlushFinal() {
	pos, err := r.handle.CurrentTime()
	if err != nil {
		pos = 0
	}

	session := r.session()
	r.Stop()

	if session == nil || pos <= 0 {
		return
	}
	progress := domain.ProgressFor(session, pos)
	if !progress.Reportable() {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()
		if err := r.sink.UpdatePlaybackProgress(ctx, progress); err != nil {
			r.logger.Warn("final progress flush failed", "error", err)
		}
	}()
}

// send performs one asynchronous trigger. Liveness is re-checked at the
// start of the send, not just at trigger time.
func (r *Reporter) send(pos float64, trigger string) {
	progress, ok := r.observation(pos)
	if !ok {
		return
	}
	r.recordSent(pos)

	go func() {
		r.mu.Lock()
		alive := r.alive
		r.mu.Unlock()
		if !alive {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()

		if err := r.sink.UpdatePlaybackProgress(ctx, progress); err != nil {
			reportErr := &domain.ProgressReportError{Err: err}
			r.logger.Warn("progress report dropped", "trigger", trigger, "error", reportErr)
		}
	}()
}

// observation builds the progress payload, enforcing the non-positive
// position invariant.
func (r *Reporter) observation(pos float64) (domain.PlaybackProgress, bool) {
	if pos <= 0 {
		return domain.PlaybackProgress{}, false
	}
	session := r.session()
	if session == nil {
		return domain.PlaybackProgress{}, false
	}
	progress := domain.ProgressFor(session, pos)
	if !progress.Reportable() {
		return domain.PlaybackProgress{}, false
	}
	return progress, true
}

func (r *Reporter) recordSent(pos float64) {
	r.mu.Lock()
	r.lastReported = pos
	r.lastSentAt = r.now()
	r.mu.Unlock()
}

// handleGone reacts to a read on a released handle: tear down our own
// timers and listeners, never propagate.
func (r *Reporter) handleGone(err error) {
	if !errors.Is(err, player.ErrHandleReleased) {
		r.logger.Warn("player read failed", "error", err)
	}
	r.logger.Debug("player handle gone, stopping progress reporter")
	r.Stop()
}
