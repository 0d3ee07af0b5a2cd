package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMediaSessionValidate(t *testing.T) {
	tv := &MediaSession{ContentID: "s1", MediaType: MediaTypeTV, Season: 1, Episode: 5}
	assert.NoError(t, tv.Validate())

	noEpisode := &MediaSession{ContentID: "s1", MediaType: MediaTypeTV, Season: 1}
	assert.Error(t, noEpisode.Validate())

	noSeason := &MediaSession{ContentID: "s1", MediaType: MediaTypeTV, Episode: 5}
	assert.Error(t, noSeason.Validate())

	movie := &MediaSession{ContentID: "m1", MediaType: MediaTypeMovie}
	assert.NoError(t, movie.Validate())

	movieWithEpisode := &MediaSession{ContentID: "m1", MediaType: MediaTypeMovie, Episode: 1}
	assert.Error(t, movieWithEpisode.Validate())

	unknown := &MediaSession{ContentID: "x", MediaType: "radio"}
	assert.Error(t, unknown.Validate())
}

func TestResumePositionBacktrack(t *testing.T) {
	s := &MediaSession{PriorWatchPosition: 300}
	assert.InDelta(t, 298.0, s.ResumePosition(), 0.001)

	// A tiny saved position clamps at zero instead of going negative.
	s.PriorWatchPosition = 1
	assert.InDelta(t, 0.0, s.ResumePosition(), 0.001)

	s.PriorWatchPosition = 0
	assert.InDelta(t, 0.0, s.ResumePosition(), 0.001)
}

func TestEpisodeCode(t *testing.T) {
	tv := &MediaSession{MediaType: MediaTypeTV, Season: 1, Episode: 5}
	assert.Equal(t, "S01E05", tv.EpisodeCode())

	tv.Season, tv.Episode = 12, 103
	assert.Equal(t, "S12E103", tv.EpisodeCode())

	movie := &MediaSession{MediaType: MediaTypeMovie}
	assert.Empty(t, movie.EpisodeCode())
}

func TestFormattedDuration(t *testing.T) {
	assert.Equal(t, "30m", EpisodeListEntry{DurationMs: 1800000}.FormattedDuration())
	assert.Equal(t, "1h 30m", EpisodeListEntry{DurationMs: 5400000}.FormattedDuration())
}

func TestProgressForTVFallsBackToContentID(t *testing.T) {
	s := &MediaSession{
		ContentID: "show-1",
		MediaType: MediaTypeTV,
		Season:    2,
		Episode:   3,
		VideoURL:  "https://cdn.example.com/x.m3u8",
	}

	p := ProgressFor(s, 100)
	require.True(t, p.Reportable())
	assert.Equal(t, "show-1", p.MediaMetadata.ShowID)
	assert.Equal(t, 2, p.MediaMetadata.SeasonNumber)
	assert.Equal(t, 3, p.MediaMetadata.EpisodeNumber)
}

func TestProgressForMovieCarriesNoEpisodeData(t *testing.T) {
	s := &MediaSession{
		ContentID: "movie-1",
		MediaType: MediaTypeMovie,
		VideoURL:  "https://cdn.example.com/m.m3u8",
	}

	p := ProgressFor(s, 50)
	assert.Empty(t, p.MediaMetadata.ShowID)
	assert.Zero(t, p.MediaMetadata.SeasonNumber)
	assert.Zero(t, p.MediaMetadata.EpisodeNumber)
}

func TestProgressReportable(t *testing.T) {
	assert.False(t, PlaybackProgress{VideoID: "x", PositionSeconds: 0}.Reportable())
	assert.False(t, PlaybackProgress{VideoID: "x", PositionSeconds: -1}.Reportable())
	assert.False(t, PlaybackProgress{PositionSeconds: 10}.Reportable())
	assert.True(t, PlaybackProgress{VideoID: "x", PositionSeconds: 10}.Reportable())
}
