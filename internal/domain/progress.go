package domain

// MediaMetadata identifies what a progress observation belongs to on the
// remote side. For tv content the resolved session's own season/episode
// are authoritative over raw route parameters.
type MediaMetadata struct {
	MediaType     MediaType `json:"mediaType"`
	ContentID     string    `json:"contentId"`
	ShowID        string    `json:"showId,omitempty"`
	SeasonNumber  int       `json:"seasonNumber,omitempty"`
	EpisodeNumber int       `json:"episodeNumber,omitempty"`
}

// PlaybackProgress is a point-in-time observation of playback position for
// one media session. Sent once per trigger; there is no retry queue.
type PlaybackProgress struct {
	VideoID         string        `json:"videoId"` // = session VideoURL, the remote identity key
	PositionSeconds float64       `json:"playbackTime"`
	MediaMetadata   MediaMetadata `json:"mediaMetadata"`
}

// Reportable reports whether this observation is worth persisting.
// Positions at or below zero are never sent.
func (p PlaybackProgress) Reportable() bool {
	return p.VideoID != "" && p.PositionSeconds > 0
}

// ProgressFor builds a progress observation for a session at the given
// position.
func ProgressFor(s *MediaSession, positionSeconds float64) PlaybackProgress {
	meta := MediaMetadata{
		MediaType: s.MediaType,
		ContentID: s.ContentID,
	}
	if s.MediaType == MediaTypeTV {
		meta.ShowID = s.ShowID
		if meta.ShowID == "" {
			meta.ShowID = s.ContentID
		}
		meta.SeasonNumber = s.Season
		meta.EpisodeNumber = s.Episode
	}
	return PlaybackProgress{
		VideoID:         s.VideoURL,
		PositionSeconds: positionSeconds,
		MediaMetadata:   meta,
	}
}
