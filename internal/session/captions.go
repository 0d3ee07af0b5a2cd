package session

import (
	"sort"

	"github.com/strandmedia/strand/internal/domain"
	"github.com/strandmedia/strand/internal/store"
)

// CaptionSelection is the resolved subtitle choice for a session.
type CaptionSelection struct {
	Off   bool
	Track *domain.CaptionTrack
}

// ResolveCaptions picks the default caption track for a session. Pure
// function of (available tracks, persisted preference); resolution order:
//
//  1. user previously disabled subtitles -> off
//  2. persisted preferred language present among tracks -> that track
//  3. a track literally labeled "English"
//  4. a track whose language code is "eng" or "en"
//  5. the first available track (by sorted label, for determinism)
//
// No tracks at all resolves to off.
func ResolveCaptions(tracks map[string]domain.CaptionTrack, pref store.CaptionPref) CaptionSelection {
	if pref.Disabled() || len(tracks) == 0 {
		return CaptionSelection{Off: true}
	}

	if !pref.Unset() {
		if t, ok := tracks[pref.State]; ok {
			return CaptionSelection{Track: &t}
		}
	}

	if t, ok := tracks["English"]; ok {
		return CaptionSelection{Track: &t}
	}

	labels := make([]string, 0, len(tracks))
	for label := range tracks {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	for _, label := range labels {
		t := tracks[label]
		if t.Language == "eng" || t.Language == "en" {
			return CaptionSelection{Track: &t}
		}
	}

	t := tracks[labels[0]]
	return CaptionSelection{Track: &t}
}
