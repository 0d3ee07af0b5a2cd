package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/strandmedia/strand/internal/domain"
	"github.com/strandmedia/strand/internal/player"
	"github.com/strandmedia/strand/internal/store"
)

// fakeHandle is an in-memory player.Handle for session tests.
type fakeHandle struct {
	mu        sync.Mutex
	released  bool
	pos       float64
	dur       float64
	playing   bool
	listeners []player.Listener

	replaces   []player.Source
	seeks      []float64
	plays      int
	pauses     int
	replaceErr error

	subClosed int
}

func newFakeHandle() *fakeHandle {
	return &fakeHandle{}
}

func (h *fakeHandle) CurrentTime() (float64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return 0, player.ErrHandleReleased
	}
	return h.pos, nil
}

func (h *fakeHandle) Duration() (float64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return 0, player.ErrHandleReleased
	}
	return h.dur, nil
}

func (h *fakeHandle) Playing() (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return false, player.ErrHandleReleased
	}
	return h.playing, nil
}

func (h *fakeHandle) Play() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return player.ErrHandleReleased
	}
	h.playing = true
	h.plays++
	return nil
}

func (h *fakeHandle) Pause() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return player.ErrHandleReleased
	}
	h.playing = false
	h.pauses++
	return nil
}

func (h *fakeHandle) SeekBy(seconds float64) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return player.ErrHandleReleased
	}
	h.pos += seconds
	return nil
}

func (h *fakeHandle) SeekTo(seconds float64) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return player.ErrHandleReleased
	}
	h.pos = seconds
	h.seeks = append(h.seeks, seconds)
	return nil
}

func (h *fakeHandle) Replace(ctx context.Context, src player.Source) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return player.ErrHandleReleased
	}
	if h.replaceErr != nil {
		return h.replaceErr
	}
	h.replaces = append(h.replaces, src)
	h.pos = 0
	return nil
}

func (h *fakeHandle) Bind(l player.Listener) player.Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.listeners = append(h.listeners, l)
	return fakeSub{h: h}
}

func (h *fakeHandle) Release() {
	h.mu.Lock()
	h.released = true
	h.mu.Unlock()
}

func (h *fakeHandle) setPos(pos float64) {
	h.mu.Lock()
	h.pos = pos
	h.mu.Unlock()
}

func (h *fakeHandle) setPlaying(playing bool) {
	h.mu.Lock()
	h.playing = playing
	h.mu.Unlock()
}

// emit delivers an event to every bound listener.
func (h *fakeHandle) emit(ev player.Event) {
	h.mu.Lock()
	listeners := append([]player.Listener(nil), h.listeners...)
	h.mu.Unlock()
	for _, l := range listeners {
		l(ev)
	}
}

type fakeSub struct{ h *fakeHandle }

func (s fakeSub) Close() {
	s.h.mu.Lock()
	s.h.subClosed++
	s.h.mu.Unlock()
}

// fakeService is an in-memory domain.ContentService. Sessions are keyed by
// episode number (0 for movies).
type fakeService struct {
	mu        sync.Mutex
	sessions  map[int]*domain.MediaSession
	detailErr error

	episodes     []domain.EpisodeListEntry
	episodeErr   error
	episodeCalls int

	progress    []domain.PlaybackProgress
	progressErr error

	detailCalls int
	gate        chan struct{} // when non-nil, GetMediaDetails blocks on it
}

func newFakeService() *fakeService {
	return &fakeService{sessions: make(map[int]*domain.MediaSession)}
}

func (f *fakeService) GetMediaDetails(ctx context.Context, req domain.MediaDetailsRequest) (*domain.MediaSession, error) {
	f.mu.Lock()
	f.detailCalls++
	gate := f.gate
	err := f.detailErr
	session := f.sessions[req.Episode]
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, domain.ErrNotFound
	}
	copied := *session
	return &copied, nil
}

func (f *fakeService) GetTVMediaDetails(ctx context.Context, req domain.TVDetailsRequest) ([]domain.EpisodeListEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.episodeCalls++
	if f.episodeErr != nil {
		return nil, f.episodeErr
	}
	return f.episodes, nil
}

func (f *fakeService) UpdatePlaybackProgress(ctx context.Context, progress domain.PlaybackProgress) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.progressErr != nil {
		return f.progressErr
	}
	f.progress = append(f.progress, progress)
	return nil
}

func (f *fakeService) progressCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.progress)
}

func (f *fakeService) lastProgress() domain.PlaybackProgress {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.progress[len(f.progress)-1]
}

// fakeNav records navigation intents.
type fakeNav struct {
	mu     sync.Mutex
	routes []domain.RouteParams

	// onSetRoute observes each SetRouteParams call synchronously.
	onSetRoute func(domain.RouteParams)
}

func (n *fakeNav) Back()                                {}
func (n *fakeNav) ToMediaInfo(string, domain.MediaType) {}
func (n *fakeNav) ToWatch(domain.RouteParams)           {}

func (n *fakeNav) SetRouteParams(params domain.RouteParams) {
	n.mu.Lock()
	n.routes = append(n.routes, params)
	cb := n.onSetRoute
	n.mu.Unlock()
	if cb != nil {
		cb(params)
	}
}

func (n *fakeNav) routeCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.routes)
}

func (n *fakeNav) lastRoute() domain.RouteParams {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.routes[len(n.routes)-1]
}

// fakeHistory records watch-history patches.
type fakeHistory struct {
	mu      sync.Mutex
	patches []historyPatch
}

type historyPatch struct {
	contentID string
	season    int
	episode   int
	fraction  float64
}

func (h *fakeHistory) PatchWatchHistory(contentID string, season, episode int, fraction float64) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.patches = append(h.patches, historyPatch{contentID, season, episode, fraction})
	return nil
}

// fakePrefs is an in-memory caption preference store.
type fakePrefs struct {
	mu   sync.Mutex
	pref store.CaptionPref
}

func (p *fakePrefs) GetCaptionPref() store.CaptionPref {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pref
}

func (p *fakePrefs) SaveCaptionPref(pref store.CaptionPref) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pref = pref
	return nil
}

// fakeWake counts keep-awake activations.
type fakeWake struct {
	mu        sync.Mutex
	activated int
	released  int
}

func (w *fakeWake) Activate() {
	w.mu.Lock()
	w.activated++
	w.mu.Unlock()
}

func (w *fakeWake) Release() {
	w.mu.Lock()
	w.released++
	w.mu.Unlock()
}

// tvSession builds a playable tv session for tests.
func tvSession(episode int) *domain.MediaSession {
	return &domain.MediaSession{
		ContentID:  "show-1",
		MediaType:  domain.MediaTypeTV,
		Season:     1,
		Episode:    episode,
		ShowID:     "show-1",
		VideoURL:   fmt.Sprintf("https://cdn.example.com/show-1/s1e%d.m3u8", episode),
		Title:      "Example Show",
		DurationMs: 1800000,
	}
}
