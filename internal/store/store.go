// Package store persists user preferences and the episode-list cache in a
// local BoltDB file, with an in-memory hot cache in front of it.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/strandmedia/strand/internal/domain"
	bolt "go.etcd.io/bbolt"
)

// Bucket names
var (
	bucketPrefs    = []byte("prefs")
	bucketEpisodes = []byte("episodes")
)

const keyCaptionPref = "captions"

// Caption preference states. Unset is distinct from an explicit "off": a
// session that has never chosen anything runs auto-resolution, a session
// whose user disabled subtitles does not.
const (
	CaptionStateUnset    = ""
	CaptionStateDisabled = "off"
)

// CaptionPref is the persisted subtitle choice.
type CaptionPref struct {
	// State is CaptionStateUnset, CaptionStateDisabled, or a language
	// label previously selected by the user.
	State string `json:"state"`
}

// Disabled reports whether the user explicitly turned subtitles off.
func (p CaptionPref) Disabled() bool { return p.State == CaptionStateDisabled }

// Unset reports whether no choice has ever been made.
func (p CaptionPref) Unset() bool { return p.State == CaptionStateUnset }

// Store implements preference and episode-cache persistence on BoltDB.
type Store struct {
	db *bolt.DB
	mu sync.RWMutex // Protects memory cache

	// In-memory cache for hot-path reads (promoted on access)
	cache map[string][]byte
}

// Open opens (or creates) the store under dir. Empty dir gives a
// memory-only store with no persistence.
func Open(dir string) (*Store, error) {
	if dir == "" {
		return &Store{cache: make(map[string][]byte)}, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	dbPath := filepath.Join(dir, "strand.db")
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketPrefs, bucketEpisodes} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, cache: make(map[string][]byte)}, nil
}

// ClearMemoryCache drops the in-memory hot cache. Persisted data is
// untouched; subsequent reads repopulate from disk.
func (s *Store) ClearMemoryCache() {
	s.mu.Lock()
	s.cache = make(map[string][]byte)
	s.mu.Unlock()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// === Generic helpers ===

func (s *Store) get(bucket []byte, key string, dest interface{}) bool {
	cacheKey := string(bucket) + ":" + key

	s.mu.RLock()
	if data, ok := s.cache[cacheKey]; ok {
		s.mu.RUnlock()
		return json.Unmarshal(data, dest) == nil
	}
	s.mu.RUnlock()

	if s.db == nil {
		return false
	}

	var data []byte
	s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(key)); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})
	if data == nil {
		return false
	}

	// Promote to memory cache
	s.mu.Lock()
	s.cache[cacheKey] = data
	s.mu.Unlock()

	return json.Unmarshal(data, dest) == nil
}

func (s *Store) put(bucket []byte, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.cache[string(bucket)+":"+key] = data
	s.mu.Unlock()

	if s.db == nil {
		return nil
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b == nil {
			return fmt.Errorf("bucket %s missing", bucket)
		}
		return b.Put([]byte(key), data)
	})
}

// === Caption preference ===

// GetCaptionPref returns the persisted subtitle choice. A store with no
// saved choice returns the unset preference.
func (s *Store) GetCaptionPref() CaptionPref {
	var pref CaptionPref
	s.get(bucketPrefs, keyCaptionPref, &pref)
	return pref
}

// SaveCaptionPref persists the subtitle choice.
func (s *Store) SaveCaptionPref(pref CaptionPref) error {
	return s.put(bucketPrefs, keyCaptionPref, pref)
}

// SeedCaptionPref installs a configured default choice on first run only.
// A store that already holds a choice keeps it; an unset seed is a no-op.
func (s *Store) SeedCaptionPref(pref CaptionPref) error {
	if pref.Unset() || !s.GetCaptionPref().Unset() {
		return nil
	}
	return s.SaveCaptionPref(pref)
}

// === Episode list cache ===

func episodeKey(contentID string, season int) string {
	return fmt.Sprintf("%s/s%d", contentID, season)
}

// GetEpisodes returns the cached episode list for one season.
func (s *Store) GetEpisodes(contentID string, season int) ([]domain.EpisodeListEntry, bool) {
	var entries []domain.EpisodeListEntry
	if !s.get(bucketEpisodes, episodeKey(contentID, season), &entries) {
		return nil, false
	}
	return entries, true
}

// SaveEpisodes replaces the cached episode list for one season.
func (s *Store) SaveEpisodes(contentID string, season int, entries []domain.EpisodeListEntry) error {
	return s.put(bucketEpisodes, episodeKey(contentID, season), entries)
}

// PatchWatchHistory updates one episode's watched fraction in the cached
// list, so the picker reflects fresh progress without a full refetch.
// A miss (no cached list, unknown episode) is a no-op.
func (s *Store) PatchWatchHistory(contentID string, season, episode int, fraction float64) error {
	entries, ok := s.GetEpisodes(contentID, season)
	if !ok {
		return nil
	}
	patched := false
	for i := range entries {
		if entries[i].Number == episode {
			entries[i].WatchedFraction = fraction
			patched = true
			break
		}
	}
	if !patched {
		return nil
	}
	return s.SaveEpisodes(contentID, season, entries)
}
