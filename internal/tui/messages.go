package tui

import (
	"time"

	"github.com/strandmedia/strand/internal/domain"
)

// Message types for the player screen

// ErrMsg represents an error
type ErrMsg struct {
	Err     error
	Context string
}

// Error implements the error interface
func (e ErrMsg) Error() string {
	if e.Context != "" {
		return e.Context + ": " + e.Err.Error()
	}
	return e.Err.Error()
}

// SessionUpdateMsg signals that the session controller's state changed
// and the view should re-read its snapshot.
type SessionUpdateMsg struct{}

// SessionStartedMsg signals that the initial load completed
type SessionStartedMsg struct{}

// EpisodesLoadedMsg carries the episode list for the picker
type EpisodesLoadedMsg struct {
	Episodes []domain.EpisodeListEntry
}

// SwitchDoneMsg signals that an episode switch finished
type SwitchDoneMsg struct {
	Episode int
	Err     error
}

// TickMsg drives the transport bar refresh
type TickMsg time.Time
