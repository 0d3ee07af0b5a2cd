package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/strandmedia/strand/internal/domain"
)

const (
	episodeRefreshInterval = 5 * time.Minute
	episodeFetchTimeout    = 15 * time.Second
)

// episodeCache stores and patches episode lists (consumer-defined
// interface, implemented by the bbolt store).
type episodeCache interface {
	GetEpisodes(contentID string, season int) ([]domain.EpisodeListEntry, bool)
	SaveEpisodes(contentID string, season int, entries []domain.EpisodeListEntry) error
}

// EpisodeList owns the episode picker data: cached reads, explicit
// refresh, and a background refresh loop that yields to the playback
// gate. The session controller never writes this data except through the
// store's watch-history patch.
type EpisodeList struct {
	svc    domain.ContentService
	cache  episodeCache
	gate   *AppContext
	logger *slog.Logger

	interval time.Duration
}

// NewEpisodeList creates the episode-list service.
func NewEpisodeList(svc domain.ContentService, cache episodeCache, gate *AppContext, logger *slog.Logger) *EpisodeList {
	if logger == nil {
		logger = slog.Default()
	}
	return &EpisodeList{
		svc:      svc,
		cache:    cache,
		gate:     gate,
		logger:   logger,
		interval: episodeRefreshInterval,
	}
}

// Get returns the episode list for one season, from cache when present,
// fetching otherwise.
func (e *EpisodeList) Get(ctx context.Context, contentID string, season int) ([]domain.EpisodeListEntry, error) {
	if e.cache != nil {
		if entries, ok := e.cache.GetEpisodes(contentID, season); ok {
			return entries, nil
		}
	}
	return e.Refresh(ctx, contentID, season)
}

// Refresh fetches the episode list and replaces the cached copy.
func (e *EpisodeList) Refresh(ctx context.Context, contentID string, season int) ([]domain.EpisodeListEntry, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, episodeFetchTimeout)
	defer cancel()

	entries, err := e.svc.GetTVMediaDetails(fetchCtx, domain.TVDetailsRequest{
		MediaID:             contentID,
		Season:              season,
		IncludeWatchHistory: true,
	})
	if err != nil {
		e.logger.Error("episode list fetch failed", "contentID", contentID, "season", season, "error", err)
		return nil, err
	}

	if e.cache != nil {
		if err := e.cache.SaveEpisodes(contentID, season, entries); err != nil {
			e.logger.Warn("episode list cache write failed", "error", err)
		}
	}

	e.logger.Debug("episode list refreshed", "contentID", contentID, "season", season, "count", len(entries))
	return entries, nil
}

// Run refreshes the list on an interval until ctx is done. Ticks are
// skipped while the playback gate has background work suspended.
func (e *EpisodeList) Run(ctx context.Context, contentID string, season int) {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if e.gate != nil && e.gate.BackgroundSuspended() {
				continue
			}
			if _, err := e.Refresh(ctx, contentID, season); err != nil {
				continue
			}
		}
	}
}
