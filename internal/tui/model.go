package tui

import (
	"context"
	"sort"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/strandmedia/strand/internal/domain"
	"github.com/strandmedia/strand/internal/search"
	"github.com/strandmedia/strand/internal/session"
	"github.com/strandmedia/strand/internal/tui/components"
	"github.com/strandmedia/strand/internal/tui/styles"
)

// Overlay identifies the modal layered over the player screen
type Overlay int

const (
	OverlayNone Overlay = iota
	OverlayEpisodes
	OverlayCaptions
	OverlayJump
	OverlayInfo
)

// Model is the Bubble Tea model for the player screen.
type Model struct {
	ctrl     *session.Controller
	episodes *session.EpisodeList

	keys    KeyMap
	picker  *components.EpisodePicker
	jumpBar textinput.Model
	seekBar progress.Model

	overlay Overlay

	// Caption overlay state
	captionLabels []string
	captionCursor int

	// Episode data shared by picker and jump bar
	episodeList []domain.EpisodeListEntry

	updates <-chan struct{}

	seekStep     float64
	spinnerFrame int
	width        int
	height       int
	quitting     bool
}

// NewModel builds the player screen model.
func NewModel(ctrl *session.Controller, episodes *session.EpisodeList, updates <-chan struct{}, seekStep float64) Model {
	jump := textinput.New()
	jump.Placeholder = "episode number or title"
	jump.Prompt = "jump: "
	jump.PromptStyle = styles.AccentStyle
	jump.CharLimit = 64

	bar := progress.New(
		progress.WithSolidFill(string(styles.Amber)),
		progress.WithoutPercentage(),
	)

	return Model{
		ctrl:     ctrl,
		episodes: episodes,
		keys:     DefaultKeyMap(),
		picker:   components.NewEpisodePicker(),
		jumpBar:  jump,
		seekBar:  bar,
		updates:  updates,
		seekStep: seekStep,
	}
}

// Init starts the session and the refresh loops.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		StartSessionCmd(m.ctrl),
		WaitForUpdateCmd(m.updates),
		TickCmd(),
	)
}

// Update handles all messages for the player screen.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.seekBar.Width = msg.Width - 16
		if m.seekBar.Width < 10 {
			m.seekBar.Width = 10
		}
		return m, nil

	case TickMsg:
		m.spinnerFrame++
		m.picker.SetSpinnerFrame(m.spinnerFrame)
		if m.quitting {
			return m, nil
		}
		return m, TickCmd()

	case SessionUpdateMsg:
		if m.quitting {
			return m, nil
		}
		return m, WaitForUpdateCmd(m.updates)

	case SessionStartedMsg:
		return m, nil

	case EpisodesLoadedMsg:
		m.episodeList = msg.Episodes
		m.picker.SetEpisodes(msg.Episodes, m.ctrl.Params().Episode)
		return m, nil

	case SwitchDoneMsg:
		// Controller already reconciled phase and error state; the next
		// snapshot render reflects it.
		return m, nil

	case ErrMsg:
		// Load errors already live in the controller snapshot.
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Quit always works, except while typing in an input.
	if key.Matches(msg, m.keys.Quit) && !m.typing() {
		m.quitting = true
		m.ctrl.Unmount()
		return m, tea.Quit
	}

	switch m.overlay {
	case OverlayEpisodes:
		return m.handleEpisodesKey(msg)
	case OverlayCaptions:
		return m.handleCaptionsKey(msg)
	case OverlayJump:
		return m.handleJumpKey(msg)
	case OverlayInfo:
		if key.Matches(msg, m.keys.Escape) || key.Matches(msg, m.keys.Info) {
			m.overlay = OverlayNone
		}
		return m, nil
	}

	return m.handlePlayerKey(msg)
}

func (m Model) typing() bool {
	if m.overlay == OverlayJump && m.jumpBar.Focused() {
		return true
	}
	return m.overlay == OverlayEpisodes && m.picker.IsFilterTyping()
}

func (m Model) handlePlayerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	snap := m.ctrl.Snapshot()

	switch {
	case key.Matches(msg, m.keys.PlayPause):
		m.ctrl.TogglePlay()
		return m, nil

	case key.Matches(msg, m.keys.SeekBack):
		m.ctrl.SeekBy(-m.seekStep)
		return m, nil

	case key.Matches(msg, m.keys.SeekForward):
		m.ctrl.SeekBy(m.seekStep)
		return m, nil

	case key.Matches(msg, m.keys.Escape):
		if snap.ErrMessage != "" {
			m.ctrl.DismissSwitchError()
			return m, nil
		}
		m.quitting = true
		m.ctrl.Unmount()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Episodes):
		if snap.Params.MediaType != domain.MediaTypeTV {
			return m, nil
		}
		m.overlay = OverlayEpisodes
		m.picker.SetLoading(true)
		return m, LoadEpisodesCmd(m.episodes, snap.Params.ContentID, snap.Params.Season)

	case key.Matches(msg, m.keys.Jump):
		if snap.Params.MediaType != domain.MediaTypeTV {
			return m, nil
		}
		m.overlay = OverlayJump
		m.jumpBar.SetValue("")
		m.jumpBar.Focus()
		if m.episodeList == nil {
			return m, tea.Batch(
				textinput.Blink,
				LoadEpisodesCmd(m.episodes, snap.Params.ContentID, snap.Params.Season),
			)
		}
		return m, textinput.Blink

	case key.Matches(msg, m.keys.Captions):
		m.openCaptions()
		return m, nil

	case key.Matches(msg, m.keys.Info):
		m.overlay = OverlayInfo
		return m, nil
	}

	return m, nil
}

func (m Model) handleEpisodesKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if !m.picker.IsFilterTyping() && key.Matches(msg, m.keys.Escape) {
		m.overlay = OverlayNone
		return m, nil
	}

	if !m.picker.IsFilterTyping() && key.Matches(msg, m.keys.Enter) {
		selected := m.picker.Selected()
		m.overlay = OverlayNone
		if selected == nil {
			return m, nil
		}
		if selected.Number == m.ctrl.Params().Episode {
			return m, nil
		}
		return m, SwitchEpisodeCmd(m.ctrl, selected.Number)
	}

	cmd := m.picker.Update(msg)
	return m, cmd
}

func (m Model) handleJumpKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Escape):
		m.overlay = OverlayNone
		m.jumpBar.Blur()
		return m, nil

	case key.Matches(msg, m.keys.Enter):
		query := m.jumpBar.Value()
		m.overlay = OverlayNone
		m.jumpBar.Blur()

		matches := search.FilterEpisodes(query, m.episodeList)
		if len(matches) == 0 {
			return m, nil
		}
		target := matches[0].Number
		if target == m.ctrl.Params().Episode {
			return m, nil
		}
		return m, SwitchEpisodeCmd(m.ctrl, target)
	}

	var cmd tea.Cmd
	m.jumpBar, cmd = m.jumpBar.Update(msg)
	return m, cmd
}

func (m *Model) openCaptions() {
	sess := m.ctrl.Effective()
	if sess == nil || len(sess.CaptionTracks) == 0 {
		return
	}

	labels := make([]string, 0, len(sess.CaptionTracks))
	for label := range sess.CaptionTracks {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	m.captionLabels = labels
	m.captionCursor = 0

	// Position the cursor on the active selection; index 0 is "Off".
	snap := m.ctrl.Snapshot()
	if snap.Captions.Track != nil {
		for i, label := range labels {
			if label == snap.Captions.Track.Label {
				m.captionCursor = i + 1
				break
			}
		}
	}
	m.overlay = OverlayCaptions
}

func (m Model) handleCaptionsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Escape), key.Matches(msg, m.keys.Captions):
		m.overlay = OverlayNone

	case key.Matches(msg, m.keys.Up):
		if m.captionCursor > 0 {
			m.captionCursor--
		}

	case key.Matches(msg, m.keys.Down):
		if m.captionCursor < len(m.captionLabels) {
			m.captionCursor++
		}

	case key.Matches(msg, m.keys.Enter):
		if m.captionCursor == 0 {
			m.ctrl.DisableCaptions()
		} else {
			m.ctrl.SelectCaption(m.captionLabels[m.captionCursor-1])
		}
		m.overlay = OverlayNone
	}
	return m, nil
}

// Run builds the program and blocks until it exits. The controller is
// unmounted exactly once regardless of exit path.
func Run(ctx context.Context, m Model) error {
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	m.ctrl.Unmount()
	return err
}
