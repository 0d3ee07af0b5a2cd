package store

import (
	"testing"

	"github.com/strandmedia/strand/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleEpisodes() []domain.EpisodeListEntry {
	return []domain.EpisodeListEntry{
		{Number: 1, Title: "Pilot", DurationMs: 1800000, WatchedFraction: 1},
		{Number: 2, Title: "The Second One", DurationMs: 1750000, WatchedFraction: 0.4},
		{Number: 3, Title: "Finale", DurationMs: 2400000},
	}
}

func TestCaptionPrefDefaultsToUnset(t *testing.T) {
	s := openTestStore(t)

	pref := s.GetCaptionPref()
	assert.True(t, pref.Unset())
	assert.False(t, pref.Disabled())
}

func TestSeedCaptionPrefFirstRunOnly(t *testing.T) {
	s := openTestStore(t)

	// First run: the configured default takes effect.
	require.NoError(t, s.SeedCaptionPref(CaptionPref{State: "Español"}))
	assert.Equal(t, "Español", s.GetCaptionPref().State)

	// A later seed never overrides an existing choice.
	require.NoError(t, s.SeedCaptionPref(CaptionPref{State: "English"}))
	assert.Equal(t, "Español", s.GetCaptionPref().State)
}

func TestSeedCaptionPrefUnsetIsNoOp(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.SeedCaptionPref(CaptionPref{}))
	assert.True(t, s.GetCaptionPref().Unset())
}

func TestCaptionPrefRoundTrip(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.SaveCaptionPref(CaptionPref{State: "Español"}))
	assert.Equal(t, "Español", s.GetCaptionPref().State)

	require.NoError(t, s.SaveCaptionPref(CaptionPref{State: CaptionStateDisabled}))
	assert.True(t, s.GetCaptionPref().Disabled())
}

func TestCaptionPrefSurvivesCacheClear(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.SaveCaptionPref(CaptionPref{State: "English"}))
	s.ClearMemoryCache()

	// Repopulated from disk.
	assert.Equal(t, "English", s.GetCaptionPref().State)
}

func TestEpisodesRoundTrip(t *testing.T) {
	s := openTestStore(t)

	_, ok := s.GetEpisodes("show-1", 1)
	assert.False(t, ok)

	require.NoError(t, s.SaveEpisodes("show-1", 1, sampleEpisodes()))

	entries, ok := s.GetEpisodes("show-1", 1)
	require.True(t, ok)
	require.Len(t, entries, 3)
	assert.Equal(t, "Pilot", entries[0].Title)

	// Seasons are cached independently.
	_, ok = s.GetEpisodes("show-1", 2)
	assert.False(t, ok)
}

func TestPatchWatchHistory(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.SaveEpisodes("show-1", 1, sampleEpisodes()))

	require.NoError(t, s.PatchWatchHistory("show-1", 1, 3, 0.75))

	entries, ok := s.GetEpisodes("show-1", 1)
	require.True(t, ok)
	assert.InDelta(t, 0.75, entries[2].WatchedFraction, 0.001)
	// Untouched entries keep their fractions.
	assert.InDelta(t, 0.4, entries[1].WatchedFraction, 0.001)
}

func TestPatchWatchHistoryMissIsNoOp(t *testing.T) {
	s := openTestStore(t)

	// No cached list at all.
	require.NoError(t, s.PatchWatchHistory("show-1", 1, 3, 0.75))

	// Cached list without the episode.
	require.NoError(t, s.SaveEpisodes("show-1", 1, sampleEpisodes()))
	require.NoError(t, s.PatchWatchHistory("show-1", 1, 99, 0.75))

	entries, ok := s.GetEpisodes("show-1", 1)
	require.True(t, ok)
	require.Len(t, entries, 3)
}

func TestMemoryOnlyStore(t *testing.T) {
	s, err := Open("")
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.SaveCaptionPref(CaptionPref{State: "English"}))
	assert.Equal(t, "English", s.GetCaptionPref().State)

	require.NoError(t, s.SaveEpisodes("show-1", 1, sampleEpisodes()))
	entries, ok := s.GetEpisodes("show-1", 1)
	require.True(t, ok)
	assert.Len(t, entries, 3)
}
