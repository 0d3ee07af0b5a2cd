package session

import (
	"context"
	"testing"
	"time"

	"github.com/strandmedia/strand/internal/domain"
	"github.com/strandmedia/strand/internal/log"
	"github.com/strandmedia/strand/internal/player"
	"github.com/strandmedia/strand/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type controllerFixture struct {
	ctrl   *Controller
	svc    *fakeService
	handle *fakeHandle
	nav    *fakeNav
	prefs  *fakePrefs
	wake   *fakeWake
	app    *AppContext
}

func newControllerFixture(t *testing.T, params ContentParams) *controllerFixture {
	t.Helper()

	f := &controllerFixture{
		svc:    newFakeService(),
		handle: newFakeHandle(),
		nav:    &fakeNav{},
		prefs:  &fakePrefs{},
		wake:   &fakeWake{},
	}
	f.app = NewAppContext(f.wake, nil, log.NullLogger())

	f.ctrl = New(params, Deps{
		Content: f.svc,
		Handle:  f.handle,
		Nav:     f.nav,
		Prefs:   f.prefs,
		History: &fakeHistory{},
		App:     f.app,
		Logger:  log.NullLogger(),
	})
	f.ctrl.switcher.settleDelay = 0
	f.ctrl.switcher.errorWindow = 30 * time.Millisecond
	return f
}

func tvParams(episode int) ContentParams {
	return ContentParams{
		ContentID: "show-1",
		MediaType: domain.MediaTypeTV,
		Season:    1,
		Episode:   episode,
	}
}

func TestControllerStartBindsSourceAndResumes(t *testing.T) {
	f := newControllerFixture(t, tvParams(5))
	sess := tvSession(5)
	sess.PriorWatchPosition = 300
	f.svc.sessions[5] = sess

	require.NoError(t, f.ctrl.Start(context.Background()))

	// Source bound, resume seek applied with the backtrack, playback on.
	require.Len(t, f.handle.replaces, 1)
	assert.Equal(t, sess.VideoURL, f.handle.replaces[0].URI)
	require.Len(t, f.handle.seeks, 1)
	assert.InDelta(t, 298.0, f.handle.seeks[0], 0.001)
	assert.Equal(t, 1, f.handle.plays)

	// Loading until the engine reports ready.
	assert.Equal(t, PhaseLoading, f.ctrl.Snapshot().Phase)

	f.handle.emit(player.Event{Kind: player.EventStatusChange, Status: player.StatusReadyToPlay})
	assert.Equal(t, PhaseReady, f.ctrl.Snapshot().Phase)

	// Background refresh suspended for the whole session.
	assert.True(t, f.app.BackgroundSuspended())
}

func TestControllerStartWithoutSavedPositionSkipsSeek(t *testing.T) {
	f := newControllerFixture(t, tvParams(5))
	f.svc.sessions[5] = tvSession(5) // no prior position

	require.NoError(t, f.ctrl.Start(context.Background()))

	assert.Empty(t, f.handle.seeks)
	assert.Equal(t, 1, f.handle.plays)
}

func TestControllerStartFailureEntersErrorPhase(t *testing.T) {
	f := newControllerFixture(t, tvParams(5))
	f.svc.detailErr = domain.ErrServiceOffline

	err := f.ctrl.Start(context.Background())
	require.Error(t, err)

	snap := f.ctrl.Snapshot()
	assert.Equal(t, PhaseError, snap.Phase)
	assert.NotEmpty(t, snap.ErrMessage)
	assert.Empty(t, f.handle.replaces)
}

func TestControllerSwitchOverrideSupersedesLoader(t *testing.T) {
	f := newControllerFixture(t, tvParams(5))
	f.svc.sessions[5] = tvSession(5)
	f.svc.sessions[6] = tvSession(6)

	require.NoError(t, f.ctrl.Start(context.Background()))
	f.handle.emit(player.Event{Kind: player.EventStatusChange, Status: player.StatusReadyToPlay})

	require.NoError(t, f.ctrl.SwitchTo(context.Background(), 6))

	// The switch override is now the effective view.
	effective := f.ctrl.Effective()
	require.NotNil(t, effective)
	assert.Equal(t, 6, effective.Episode)
	assert.Equal(t, "S01E06", f.ctrl.Snapshot().EpisodeCode)
	assert.Equal(t, PhaseReady, f.ctrl.Snapshot().Phase)
}

func TestControllerFullReloadDropsOverride(t *testing.T) {
	f := newControllerFixture(t, tvParams(5))
	f.svc.sessions[5] = tvSession(5)
	f.svc.sessions[6] = tvSession(6)
	f.svc.sessions[9] = tvSession(9)

	require.NoError(t, f.ctrl.Start(context.Background()))
	f.handle.emit(player.Event{Kind: player.EventStatusChange, Status: player.StatusReadyToPlay})
	require.NoError(t, f.ctrl.SwitchTo(context.Background(), 6))

	// A genuine route change reloads in full; the override no longer
	// supersedes anything.
	require.NoError(t, f.ctrl.SetParams(context.Background(), tvParams(9)))

	effective := f.ctrl.Effective()
	require.NotNil(t, effective)
	assert.Equal(t, 9, effective.Episode)
}

func TestControllerSetParamsUnchangedIsNoOp(t *testing.T) {
	f := newControllerFixture(t, tvParams(5))
	f.svc.sessions[5] = tvSession(5)

	require.NoError(t, f.ctrl.Start(context.Background()))
	calls := f.svc.detailCalls

	require.NoError(t, f.ctrl.SetParams(context.Background(), tvParams(5)))
	assert.Equal(t, calls, f.svc.detailCalls)
}

func TestControllerSwitchRequiresReadyPhase(t *testing.T) {
	f := newControllerFixture(t, tvParams(5))
	f.svc.sessions[5] = tvSession(5)

	require.NoError(t, f.ctrl.Start(context.Background()))

	// Still Loading: the engine has not reported ready.
	err := f.ctrl.SwitchTo(context.Background(), 6)
	require.Error(t, err)
	assert.Empty(t, f.handle.replaces[1:], "no second source bind")
}

func TestControllerNoSourceSwitchEntersErrorPhase(t *testing.T) {
	f := newControllerFixture(t, tvParams(5))
	f.svc.sessions[5] = tvSession(5)
	broken := tvSession(6)
	broken.VideoURL = ""
	f.svc.sessions[6] = broken

	require.NoError(t, f.ctrl.Start(context.Background()))
	f.handle.emit(player.Event{Kind: player.EventStatusChange, Status: player.StatusReadyToPlay})

	err := f.ctrl.SwitchTo(context.Background(), 6)
	require.Error(t, err)

	snap := f.ctrl.Snapshot()
	assert.Equal(t, PhaseError, snap.Phase)
	assert.Equal(t, "No video URL available for selected episode", snap.ErrMessage)
}

func TestControllerOrdinarySwitchFailureStaysReady(t *testing.T) {
	f := newControllerFixture(t, tvParams(5))
	f.svc.sessions[5] = tvSession(5)
	// Episode 6 missing: resolve fails with a plain error.

	require.NoError(t, f.ctrl.Start(context.Background()))
	f.handle.emit(player.Event{Kind: player.EventStatusChange, Status: player.StatusReadyToPlay})

	err := f.ctrl.SwitchTo(context.Background(), 6)
	require.Error(t, err)

	// Prior episode keeps playing with an inline, dismissible error.
	snap := f.ctrl.Snapshot()
	assert.Equal(t, PhaseReady, snap.Phase)
	assert.NotEmpty(t, snap.ErrMessage)
	assert.Equal(t, 5, f.ctrl.Effective().Episode)

	f.ctrl.DismissSwitchError()
	// The switcher's own auto-clear window may still hold a message.
	require.Eventually(t, func() bool {
		return f.ctrl.Snapshot().ErrMessage == ""
	}, time.Second, 5*time.Millisecond)
}

func TestControllerPlayingChangeDrivesWakeLock(t *testing.T) {
	f := newControllerFixture(t, tvParams(5))
	f.svc.sessions[5] = tvSession(5)

	require.NoError(t, f.ctrl.Start(context.Background()))

	f.handle.emit(player.Event{Kind: player.EventPlayingChange, IsPlaying: true})
	f.handle.emit(player.Event{Kind: player.EventPlayingChange, IsPlaying: true})

	f.wake.mu.Lock()
	assert.Equal(t, 1, f.wake.activated, "repeat events collapse to one activation")
	f.wake.mu.Unlock()

	f.handle.emit(player.Event{Kind: player.EventPlayingChange, IsPlaying: false})
	f.wake.mu.Lock()
	assert.Equal(t, 1, f.wake.released)
	f.wake.mu.Unlock()
}

func TestControllerDeviceErrorEntersErrorPhase(t *testing.T) {
	f := newControllerFixture(t, tvParams(5))
	f.svc.sessions[5] = tvSession(5)

	require.NoError(t, f.ctrl.Start(context.Background()))
	f.handle.emit(player.Event{Kind: player.EventStatusChange, Status: player.StatusError})

	snap := f.ctrl.Snapshot()
	assert.Equal(t, PhaseError, snap.Phase)
	assert.NotEmpty(t, snap.ErrMessage)
}

func TestControllerUnmountIsIdempotent(t *testing.T) {
	f := newControllerFixture(t, tvParams(5))
	f.svc.sessions[5] = tvSession(5)

	require.NoError(t, f.ctrl.Start(context.Background()))
	f.handle.emit(player.Event{Kind: player.EventPlayingChange, IsPlaying: true})
	f.handle.setPos(444)

	f.ctrl.Unmount()
	f.ctrl.Unmount()
	f.ctrl.Unmount()

	assert.Equal(t, PhaseUnloaded, f.ctrl.Snapshot().Phase)
	assert.False(t, f.app.BackgroundSuspended(), "background work resumed")

	f.wake.mu.Lock()
	assert.Equal(t, 1, f.wake.released, "wake lock released exactly once")
	f.wake.mu.Unlock()

	f.handle.mu.Lock()
	assert.Equal(t, 1, f.handle.subClosed, "subscriptions closed exactly once")
	f.handle.mu.Unlock()

	// The final flush fired once for the last position.
	require.Eventually(t, func() bool {
		return f.svc.progressCount() == 1
	}, time.Second, 5*time.Millisecond)
	assert.InDelta(t, 444.0, f.svc.lastProgress().PositionSeconds, 0.001)
}

func TestControllerIgnoresInputAfterUnmount(t *testing.T) {
	f := newControllerFixture(t, tvParams(5))
	f.svc.sessions[5] = tvSession(5)

	require.NoError(t, f.ctrl.Start(context.Background()))
	f.ctrl.Unmount()

	calls := f.svc.detailCalls
	require.NoError(t, f.ctrl.SetParams(context.Background(), tvParams(8)))
	assert.Equal(t, calls, f.svc.detailCalls)
}

func TestControllerCaptionsResolvedOncePerSession(t *testing.T) {
	f := newControllerFixture(t, tvParams(5))
	sess := tvSession(5)
	sess.CaptionTracks = map[string]domain.CaptionTrack{
		"English":  {Label: "English", Language: "en"},
		"Français": {Label: "Français", Language: "fr"},
	}
	f.svc.sessions[5] = sess

	require.NoError(t, f.ctrl.Start(context.Background()))

	snap := f.ctrl.Snapshot()
	require.NotNil(t, snap.Captions.Track)
	assert.Equal(t, "English", snap.Captions.Track.Label)
}

func TestControllerSelectCaptionPersistsPreference(t *testing.T) {
	f := newControllerFixture(t, tvParams(5))
	sess := tvSession(5)
	sess.CaptionTracks = map[string]domain.CaptionTrack{
		"English":  {Label: "English", Language: "en"},
		"Français": {Label: "Français", Language: "fr"},
	}
	f.svc.sessions[5] = sess

	require.NoError(t, f.ctrl.Start(context.Background()))

	f.ctrl.SelectCaption("Français")

	snap := f.ctrl.Snapshot()
	require.NotNil(t, snap.Captions.Track)
	assert.Equal(t, "Français", snap.Captions.Track.Label)
	assert.Equal(t, "Français", f.prefs.GetCaptionPref().State)
}

func TestControllerDisableCaptionsPersists(t *testing.T) {
	f := newControllerFixture(t, tvParams(5))
	sess := tvSession(5)
	sess.CaptionTracks = map[string]domain.CaptionTrack{
		"English": {Label: "English", Language: "en"},
	}
	f.svc.sessions[5] = sess

	require.NoError(t, f.ctrl.Start(context.Background()))
	f.ctrl.DisableCaptions()

	assert.True(t, f.ctrl.Snapshot().Captions.Off)
	assert.True(t, f.prefs.GetCaptionPref().Disabled())
}

func TestControllerDisabledPreferenceSkipsAutoResolution(t *testing.T) {
	f := newControllerFixture(t, tvParams(5))
	f.prefs.pref = store.CaptionPref{State: store.CaptionStateDisabled}
	sess := tvSession(5)
	sess.CaptionTracks = map[string]domain.CaptionTrack{
		"English": {Label: "English", Language: "en"},
	}
	f.svc.sessions[5] = sess

	require.NoError(t, f.ctrl.Start(context.Background()))

	snap := f.ctrl.Snapshot()
	assert.True(t, snap.Captions.Off)
	assert.Nil(t, snap.Captions.Track)
}

func TestControllerSnapshotFallsBackToSessionDuration(t *testing.T) {
	f := newControllerFixture(t, tvParams(5))
	f.svc.sessions[5] = tvSession(5) // DurationMs 1800000

	require.NoError(t, f.ctrl.Start(context.Background()))

	// The fake handle reports no duration yet.
	snap := f.ctrl.Snapshot()
	assert.InDelta(t, 1800.0, snap.Duration, 0.001)
}

func TestControllerReloadRecoversFromNoSourceFallback(t *testing.T) {
	f := newControllerFixture(t, tvParams(5))
	f.svc.sessions[5] = tvSession(5)
	broken := tvSession(6)
	broken.VideoURL = ""
	f.svc.sessions[6] = broken

	require.NoError(t, f.ctrl.Start(context.Background()))
	f.handle.emit(player.Event{Kind: player.EventStatusChange, Status: player.StatusReadyToPlay})

	require.Error(t, f.ctrl.SwitchTo(context.Background(), 6))
	require.Equal(t, PhaseError, f.ctrl.Snapshot().Phase)

	// The degraded fallback republished the route params; by the time the
	// reload fires the episode has become playable.
	f.svc.sessions[6] = tvSession(6)
	require.NoError(t, f.ctrl.SetParams(context.Background(), tvParams(6)))

	snap := f.ctrl.Snapshot()
	assert.Equal(t, PhaseLoading, snap.Phase, "reload restarts the normal lifecycle")
	assert.Empty(t, snap.ErrMessage, "stale switch error cleared")

	f.handle.emit(player.Event{Kind: player.EventStatusChange, Status: player.StatusReadyToPlay})
	assert.Equal(t, PhaseReady, f.ctrl.Snapshot().Phase)
	assert.Equal(t, 6, f.ctrl.Effective().Episode)
}

func TestControllerReloadRecoversFromStartFailure(t *testing.T) {
	f := newControllerFixture(t, tvParams(5))
	f.svc.detailErr = domain.ErrServiceOffline

	require.Error(t, f.ctrl.Start(context.Background()))
	require.Equal(t, PhaseError, f.ctrl.Snapshot().Phase)

	// The service comes back and a route change arrives.
	f.svc.detailErr = nil
	f.svc.sessions[6] = tvSession(6)
	require.NoError(t, f.ctrl.SetParams(context.Background(), tvParams(6)))
	require.Equal(t, PhaseLoading, f.ctrl.Snapshot().Phase)

	f.handle.emit(player.Event{Kind: player.EventStatusChange, Status: player.StatusReadyToPlay})
	snap := f.ctrl.Snapshot()
	assert.Equal(t, PhaseReady, snap.Phase)
	assert.Empty(t, snap.ErrMessage)
}

func TestControllerReloadClearsDeviceError(t *testing.T) {
	f := newControllerFixture(t, tvParams(5))
	f.svc.sessions[5] = tvSession(5)
	f.svc.sessions[6] = tvSession(6)

	require.NoError(t, f.ctrl.Start(context.Background()))
	f.handle.emit(player.Event{Kind: player.EventStatusChange, Status: player.StatusError})
	require.Equal(t, PhaseError, f.ctrl.Snapshot().Phase)

	require.NoError(t, f.ctrl.SetParams(context.Background(), tvParams(6)))
	f.handle.emit(player.Event{Kind: player.EventStatusChange, Status: player.StatusReadyToPlay})

	snap := f.ctrl.Snapshot()
	assert.Equal(t, PhaseReady, snap.Phase)
	assert.Empty(t, snap.ErrMessage)
}

func TestControllerSeekGuardedBySwitchPhase(t *testing.T) {
	f := newControllerFixture(t, tvParams(5))
	f.svc.sessions[5] = tvSession(5)

	require.NoError(t, f.ctrl.Start(context.Background()))

	// Still Loading: the seek is dropped.
	f.handle.setPos(100)
	f.ctrl.SeekBy(30)
	pos, _ := f.handle.CurrentTime()
	assert.InDelta(t, 100.0, pos, 0.001)

	f.handle.emit(player.Event{Kind: player.EventStatusChange, Status: player.StatusReadyToPlay})
	f.ctrl.SeekBy(30)
	pos, _ = f.handle.CurrentTime()
	assert.InDelta(t, 130.0, pos, 0.001)
}
