package domain

import "context"

// MediaDetailsRequest identifies one playable title or episode to resolve.
type MediaDetailsRequest struct {
	MediaType           MediaType
	MediaID             string
	Season              int // tv only
	Episode             int // tv only
	IncludeWatchHistory bool
}

// TVDetailsRequest identifies one season whose episode list to resolve.
type TVDetailsRequest struct {
	MediaID             string
	Season              int
	IncludeWatchHistory bool
}

// ContentService is the remote content-resolution and progress-persistence
// contract. The client consumes it as a black box.
type ContentService interface {
	// GetMediaDetails resolves a (title, season, episode) tuple to a
	// playable session, including prior watch position when requested.
	GetMediaDetails(ctx context.Context, req MediaDetailsRequest) (*MediaSession, error)

	// GetTVMediaDetails resolves the episode list for one season.
	GetTVMediaDetails(ctx context.Context, req TVDetailsRequest) ([]EpisodeListEntry, error)

	// UpdatePlaybackProgress persists one progress observation.
	// Fire-and-forget semantics; no response payload is consumed.
	UpdatePlaybackProgress(ctx context.Context, progress PlaybackProgress) error
}

// RouteParams are the externally-visible navigation parameters the
// playback screen was opened with. The switch coordinator rewrites them
// in place for deep-link consistency.
type RouteParams struct {
	ContentID        string
	MediaType        MediaType
	Season           int
	Episode          int
	Backdrop         string
	BackdropBlurhash string
}

// Navigator is the opaque navigation boundary. The session controller
// emits intents; it never inspects the router.
type Navigator interface {
	Back()
	ToMediaInfo(contentID string, mediaType MediaType)
	ToWatch(params RouteParams)

	// SetRouteParams updates the current route's parameters without
	// remounting the screen. Used during in-place episode switching.
	SetRouteParams(params RouteParams)
}
