package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/strandmedia/strand/internal/session"
)

// Command factories for async operations

const startTimeout = 30 * time.Second

// StartSessionCmd runs the initial load and source bind.
func StartSessionCmd(ctrl *session.Controller) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), startTimeout)
		defer cancel()

		if err := ctrl.Start(ctx); err != nil {
			return ErrMsg{Err: err, Context: "starting session"}
		}
		return SessionStartedMsg{}
	}
}

// LoadEpisodesCmd loads the episode list for the picker.
func LoadEpisodesCmd(list *session.EpisodeList, contentID string, seasonNum int) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		episodes, err := list.Get(ctx, contentID, seasonNum)
		if err != nil {
			return ErrMsg{Err: err, Context: "loading episodes"}
		}
		return EpisodesLoadedMsg{Episodes: episodes}
	}
}

// SwitchEpisodeCmd runs an in-place episode switch.
func SwitchEpisodeCmd(ctrl *session.Controller, episode int) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		err := ctrl.SwitchTo(ctx, episode)
		return SwitchDoneMsg{Episode: episode, Err: err}
	}
}

// WaitForUpdateCmd blocks on the controller's notification channel and
// re-arms itself from Update.
func WaitForUpdateCmd(updates <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-updates
		return SessionUpdateMsg{}
	}
}

// TickCmd refreshes the transport bar once per second.
func TickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}
