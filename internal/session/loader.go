package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/strandmedia/strand/internal/domain"
)

// ErrLoadSuperseded means the inputs changed while a fetch was in flight;
// the stale result was discarded and never applied to visible state.
var ErrLoadSuperseded = errors.New("content load superseded")

// ErrLoadSuppressed means an episode switch is in flight and the reactive
// loader held its last-resolved state untouched.
var ErrLoadSuppressed = errors.New("content load suppressed during switch")

// ContentParams identify what the playback screen should resolve.
type ContentParams struct {
	ContentID string
	MediaType domain.MediaType
	Season    int
	Episode   int
}

// request converts params to the content-service request shape.
func (p ContentParams) request() domain.MediaDetailsRequest {
	return domain.MediaDetailsRequest{
		MediaType:           p.MediaType,
		MediaID:             p.ContentID,
		Season:              p.Season,
		Episode:             p.Episode,
		IncludeWatchHistory: true,
	}
}

// Loader resolves content params to a playable MediaSession. Reactive
// loads are generation-counted so a superseded request can never commit,
// and gated by the switch-suppression flag so a mid-swap route-parameter
// update cannot trigger a stale refetch.
type Loader struct {
	svc        domain.ContentService
	suppressed func() bool
	logger     *slog.Logger

	mu   sync.Mutex
	gen  uint64
	last *domain.MediaSession
}

// NewLoader creates a content loader. suppressed is consulted before the
// fetch and again before commit; nil means never suppressed.
func NewLoader(svc domain.ContentService, suppressed func() bool, logger *slog.Logger) *Loader {
	if suppressed == nil {
		suppressed = func() bool { return false }
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{svc: svc, suppressed: suppressed, logger: logger}
}

// Load performs a reactive resolution: the path driven by route
// parameters. Returns ErrLoadSuppressed while a switch is in flight and
// ErrLoadSuperseded when a newer request started before this one could
// commit. Fetch failures come back as *domain.ContentLoadError.
func (l *Loader) Load(ctx context.Context, params ContentParams) (*domain.MediaSession, error) {
	if l.suppressed() {
		l.logger.Debug("loader suppressed, holding last state", "contentID", params.ContentID)
		return nil, ErrLoadSuppressed
	}

	// Generation token captured at request start; checked before commit.
	l.mu.Lock()
	l.gen++
	gen := l.gen
	l.mu.Unlock()

	session, err := l.Resolve(ctx, params)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if gen != l.gen {
		l.logger.Debug("discarding superseded load", "contentID", params.ContentID)
		return nil, ErrLoadSuperseded
	}
	if l.suppressed() {
		return nil, ErrLoadSuppressed
	}
	l.last = session
	return session, nil
}

// Resolve performs one explicit resolution with no generation or
// suppression bookkeeping. The episode switch coordinator uses this path
// directly.
func (l *Loader) Resolve(ctx context.Context, params ContentParams) (*domain.MediaSession, error) {
	session, err := l.svc.GetMediaDetails(ctx, params.request())
	if err != nil {
		l.logger.Error("content resolution failed",
			"contentID", params.ContentID, "mediaType", params.MediaType, "error", err)
		return nil, &domain.ContentLoadError{Message: "failed to load content", Err: err}
	}

	if err := session.Validate(); err != nil {
		return nil, &domain.ContentLoadError{Message: "content service returned an invalid session", Err: err}
	}

	l.logger.Debug("content resolved",
		"contentID", session.ContentID, "title", session.Title, "videoURL", session.VideoURL != "")
	return session, nil
}

// Last returns the most recently committed session, if any.
func (l *Loader) Last() *domain.MediaSession {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.last
}
