package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/strandmedia/strand/internal/domain"
	"github.com/strandmedia/strand/internal/session"
	"github.com/strandmedia/strand/internal/tui/styles"
)

// View renders the player screen for the current controller snapshot.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	snap := m.ctrl.Snapshot()

	var screen string
	switch snap.Phase {
	case session.PhaseLoading:
		screen = m.viewLoading(snap)
	case session.PhaseError:
		screen = m.viewError(snap)
	case session.PhaseUnloaded:
		return ""
	default:
		screen = m.viewPlayer(snap)
	}

	if overlay := m.viewOverlay(snap); overlay != "" {
		return m.centered(overlay)
	}
	return screen
}

func (m Model) viewLoading(snap session.Snapshot) string {
	spinner := styles.SpinnerFrames[m.spinnerFrame%len(styles.SpinnerFrames)]
	line := styles.AccentStyle.Render(spinner) + " " + styles.SubtitleStyle.Render("Loading media...")
	return m.centered(line)
}

func (m Model) viewError(snap session.Snapshot) string {
	var b strings.Builder
	b.WriteString(styles.ErrorStyle.Render("Playback error"))
	b.WriteString("\n\n")
	b.WriteString(styles.SubtitleStyle.Render(snap.ErrMessage))
	b.WriteString("\n\n")
	b.WriteString(styles.DimStyle.Render("esc dismiss • q quit"))
	return m.centered(styles.ModalBorder.Render(b.String()))
}

func (m Model) viewPlayer(snap session.Snapshot) string {
	var b strings.Builder

	// Header: title and episode code
	title := styles.TitleStyle.Render(snap.Title)
	if snap.EpisodeCode != "" {
		title += "  " + styles.AccentStyle.Render(snap.EpisodeCode)
	}
	b.WriteString(title)
	b.WriteString("\n")

	if snap.Backdrop.URL != "" {
		b.WriteString(styles.DimStyle.Render(snap.Backdrop.URL))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	// Switch-in-flight banner
	if snap.Phase == session.PhaseSwitching || snap.SwitchState == session.SwitchInFlight {
		spinner := styles.SpinnerFrames[m.spinnerFrame%len(styles.SpinnerFrames)]
		b.WriteString(styles.AccentStyle.Render(spinner + " Switching episode..."))
		b.WriteString("\n\n")
	}

	// Inline, dismissible error (prior episode keeps playing)
	if snap.ErrMessage != "" {
		b.WriteString(styles.ErrorStyle.Render("✗ " + snap.ErrMessage))
		b.WriteString("  ")
		b.WriteString(styles.DimStyle.Render("(esc to dismiss)"))
		b.WriteString("\n\n")
	}

	b.WriteString(m.viewTransport(snap))
	b.WriteString("\n\n")
	b.WriteString(m.viewCaptionStatus(snap))
	b.WriteString("\n\n")
	b.WriteString(m.viewFooter(snap))

	return styles.PanelStyle.Render(b.String())
}

func (m Model) viewTransport(snap session.Snapshot) string {
	state := "⏸"
	if snap.Playing {
		state = "▶"
	}

	var bar string
	if snap.Duration > 0 {
		bar = m.seekBar.ViewAs(snap.Position / snap.Duration)
	} else {
		bar = m.seekBar.ViewAs(0)
	}

	times := fmt.Sprintf("%s / %s", formatClock(snap.Position), formatClock(snap.Duration))
	return fmt.Sprintf("%s %s  %s", styles.AccentStyle.Render(state), bar, styles.SubtitleStyle.Render(times))
}

func (m Model) viewCaptionStatus(snap session.Snapshot) string {
	switch {
	case snap.Captions.Track != nil:
		return styles.DimStyle.Render("CC: ") + styles.SubtitleStyle.Render(snap.Captions.Track.Label)
	case snap.Captions.Off:
		return styles.DimStyle.Render("CC: off")
	default:
		return styles.DimStyle.Render("CC: —")
	}
}

func (m Model) viewFooter(snap session.Snapshot) string {
	help := []string{"space play/pause", "←/→ seek", "c captions"}
	if snap.Params.MediaType == domain.MediaTypeTV {
		help = append(help, "e episodes", "/ jump")
	}
	help = append(help, "i info", "q quit")
	return styles.DimStyle.Render(strings.Join(help, " • "))
}

func (m Model) viewOverlay(snap session.Snapshot) string {
	switch m.overlay {
	case OverlayEpisodes:
		return m.picker.View()
	case OverlayCaptions:
		return m.viewCaptionsOverlay(snap)
	case OverlayJump:
		return styles.ModalBorder.Render(m.jumpBar.View())
	case OverlayInfo:
		return m.viewInfoOverlay(snap)
	}
	return ""
}

func (m Model) viewCaptionsOverlay(snap session.Snapshot) string {
	var b strings.Builder
	b.WriteString(styles.AccentStyle.Render("Captions"))
	b.WriteString("\n\n")

	rows := append([]string{"Off"}, m.captionLabels...)
	for i, row := range rows {
		marker := "  "
		active := (i == 0 && snap.Captions.Off) ||
			(i > 0 && snap.Captions.Track != nil && snap.Captions.Track.Label == row)
		if active {
			marker = styles.SuccessStyle.Render("✓ ")
		}
		line := marker + row
		if i == m.captionCursor {
			line = styles.HighlightStyle.Render(row)
			if active {
				line = styles.SuccessStyle.Render("✓ ") + line
			}
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(styles.DimStyle.Render("enter select • esc close"))
	return styles.ModalBorder.Render(b.String())
}

func (m Model) viewInfoOverlay(snap session.Snapshot) string {
	var b strings.Builder
	b.WriteString(styles.AccentStyle.Render("Media info"))
	b.WriteString("\n\n")

	write := func(label, value string) {
		if value == "" {
			return
		}
		b.WriteString(styles.DimStyle.Render(label + ": "))
		b.WriteString(styles.SubtitleStyle.Render(value))
		b.WriteString("\n")
	}

	write("Title", snap.Title)
	write("Episode", snap.EpisodeCode)
	write("Content ID", snap.Params.ContentID)
	write("Type", string(snap.Params.MediaType))
	write("Duration", formatClock(snap.Duration))
	write("Backdrop", snap.Backdrop.URL)

	b.WriteString("\n")
	b.WriteString(styles.DimStyle.Render("esc close"))
	return styles.ModalBorder.Render(b.String())
}

func (m Model) centered(content string) string {
	if m.width == 0 || m.height == 0 {
		return content
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
}

// formatClock renders seconds as m:ss or h:mm:ss.
func formatClock(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int(seconds)
	h := total / 3600
	mm := (total % 3600) / 60
	ss := total % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, mm, ss)
	}
	return fmt.Sprintf("%d:%02d", mm, ss)
}
