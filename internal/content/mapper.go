package content

import "github.com/strandmedia/strand/internal/domain"

// mapMediaSession converts a media-details response to a domain session.
// Season/episode from the response win over the request parameters; the
// resolved data is authoritative once loaded.
func mapMediaSession(dto *mediaDetailsResponse, req domain.MediaDetailsRequest) *domain.MediaSession {
	s := &domain.MediaSession{
		ContentID:  dto.ID,
		MediaType:  req.MediaType,
		ShowID:     dto.ShowID,
		VideoURL:   dto.VideoURL,
		Title:      dto.Title,
		DurationMs: dto.DurationMs,
	}
	if s.ContentID == "" {
		s.ContentID = req.MediaID
	}

	if req.MediaType == domain.MediaTypeTV {
		s.Season = dto.Season
		s.Episode = dto.Episode
		if s.Season == 0 {
			s.Season = req.Season
		}
		if s.Episode == 0 {
			s.Episode = req.Episode
		}
	}

	if dto.WatchHistory != nil {
		s.PriorWatchPosition = dto.WatchHistory.PositionSeconds
	}

	if len(dto.Captions) > 0 {
		s.CaptionTracks = make(map[string]domain.CaptionTrack, len(dto.Captions))
		for _, t := range dto.Captions {
			s.CaptionTracks[t.Label] = domain.CaptionTrack{
				Label:    t.Label,
				Language: t.Language,
				URI:      t.URI,
			}
		}
	}

	if dto.Backdrop != nil {
		s.Backdrop = domain.BackdropImage{
			URL:      dto.Backdrop.URL,
			Blurhash: dto.Backdrop.Blurhash,
		}
	}

	return s
}

// mapEpisodes converts episode DTOs to picker entries.
func mapEpisodes(dtos []episodeDTO) []domain.EpisodeListEntry {
	entries := make([]domain.EpisodeListEntry, 0, len(dtos))
	for _, e := range dtos {
		entry := domain.EpisodeListEntry{
			Number:     e.Number,
			Title:      e.Title,
			DurationMs: e.DurationMs,
			ThumbURL:   e.ThumbURL,
		}
		if e.WatchHistory != nil {
			entry.WatchedFraction = e.WatchHistory.Fraction
		}
		entries = append(entries, entry)
	}
	return entries
}
