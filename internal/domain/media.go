package domain

import "fmt"

// MediaType distinguishes content types. String-valued so it is stable on
// the wire and in route parameters.
type MediaType string

const (
	MediaTypeMovie MediaType = "movie"
	MediaTypeTV    MediaType = "tv"
)

// Valid reports whether the media type is one the client understands.
func (t MediaType) Valid() bool {
	return t == MediaTypeMovie || t == MediaTypeTV
}

// CaptionTrack describes one subtitle track offered by the resolved media.
type CaptionTrack struct {
	Label    string // Display label, e.g. "English", "Español"
	Language string // ISO language code, e.g. "en", "eng", "es"
	URI      string // Track source
}

// BackdropImage is the artwork shown behind the player chrome.
type BackdropImage struct {
	URL      string
	Blurhash string // Placeholder rendered while the image loads
}

// resumeBacktrackSeconds compensates for imprecise resume bookmarking:
// resuming a couple of seconds before the saved position avoids dropping
// the viewer mid-sentence.
const resumeBacktrackSeconds = 2

// MediaSession is the resolved, playable representation of one title or
// episode. It is replaced wholesale on an episode switch, never mutated.
type MediaSession struct {
	// Identity
	ContentID string
	MediaType MediaType
	Season    int // tv only, >= 1
	Episode   int // tv only, >= 1

	// Resolved by the content loader
	VideoURL           string
	Title              string
	ShowID             string // tv only: parent show identifier
	DurationMs         int64
	PriorWatchPosition float64 // seconds; 0 means no saved position
	CaptionTracks      map[string]CaptionTrack
	Backdrop           BackdropImage
}

// Validate checks the identity invariants: a tv session must carry an
// episode before a player handle may bind to it, a movie must not carry
// season/episode at all.
func (s *MediaSession) Validate() error {
	if !s.MediaType.Valid() {
		return fmt.Errorf("unknown media type %q", s.MediaType)
	}
	switch s.MediaType {
	case MediaTypeTV:
		if s.Episode < 1 {
			return fmt.Errorf("tv session %s has no episode", s.ContentID)
		}
		if s.Season < 1 {
			return fmt.Errorf("tv session %s has no season", s.ContentID)
		}
	case MediaTypeMovie:
		if s.Season != 0 || s.Episode != 0 {
			return fmt.Errorf("movie session %s must not carry season/episode", s.ContentID)
		}
	}
	return nil
}

// ResumePosition returns the position playback should resume from,
// applying the deliberate 2-second backtrack. Returns 0 when there is no
// saved position.
func (s *MediaSession) ResumePosition() float64 {
	if s.PriorWatchPosition <= 0 {
		return 0
	}
	pos := s.PriorWatchPosition - resumeBacktrackSeconds
	if pos < 0 {
		return 0
	}
	return pos
}

// EpisodeCode returns the formatted episode code (e.g., "S01E05"), or ""
// for movies.
func (s *MediaSession) EpisodeCode() string {
	if s.MediaType != MediaTypeTV {
		return ""
	}
	return fmt.Sprintf("S%02dE%02d", s.Season, s.Episode)
}

// EpisodeListEntry is read-only metadata for the episode picker. It is
// owned by the background episode-list refresher; the session controller
// only patches WatchedFraction after a switch.
type EpisodeListEntry struct {
	Number          int
	Title           string
	DurationMs      int64
	ThumbURL        string
	WatchedFraction float64 // 0..1, prior watch history
}

// FormattedDuration returns the entry duration in a human-readable form.
func (e EpisodeListEntry) FormattedDuration() string {
	mins := e.DurationMs / 60000
	h := mins / 60
	if h > 0 {
		return fmt.Sprintf("%dh %dm", h, mins%60)
	}
	return fmt.Sprintf("%dm", mins)
}
