package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sahilm/fuzzy"
	"github.com/strandmedia/strand/internal/domain"
	"github.com/strandmedia/strand/internal/tui/styles"
)

// Layout constants for the picker modal
const (
	pickerMaxVisible = 12
	pickerWidth      = 52
)

// EpisodePicker is the modal episode list: cursor navigation plus a
// type-to-filter input backed by fuzzy matching on episode titles.
type EpisodePicker struct {
	episodes []domain.EpisodeListEntry
	current  int // currently playing episode number

	cursor int
	offset int

	loading      bool
	spinnerFrame int

	filterActive bool
	filterInput  textinput.Model
	filteredIdx  []int // indices into episodes
}

// NewEpisodePicker creates an empty picker in the loading state.
func NewEpisodePicker() *EpisodePicker {
	ti := textinput.New()
	ti.Placeholder = "type to filter..."
	ti.Prompt = "/ "
	ti.PromptStyle = styles.AccentStyle
	ti.TextStyle = styles.SubtitleStyle

	return &EpisodePicker{
		filterInput: ti,
		loading:     true,
	}
}

// SetEpisodes replaces the list and positions the cursor on the episode
// that is currently playing.
func (p *EpisodePicker) SetEpisodes(episodes []domain.EpisodeListEntry, current int) {
	p.episodes = episodes
	p.current = current
	p.loading = false
	p.clearFilter()

	p.cursor = 0
	for i, e := range episodes {
		if e.Number == current {
			p.cursor = i
			break
		}
	}
	p.ensureVisible()
}

// SetLoading toggles the loading spinner.
func (p *EpisodePicker) SetLoading(loading bool) {
	p.loading = loading
}

// SetSpinnerFrame advances the spinner animation.
func (p *EpisodePicker) SetSpinnerFrame(frame int) {
	p.spinnerFrame = frame
}

// IsFilterTyping reports whether keystrokes should go to the filter
// input rather than navigation.
func (p *EpisodePicker) IsFilterTyping() bool {
	return p.filterActive && p.filterInput.Focused()
}

// Selected returns the episode under the cursor, or nil when empty.
func (p *EpisodePicker) Selected() *domain.EpisodeListEntry {
	count := p.count()
	if count == 0 || p.cursor >= count {
		return nil
	}
	e := p.episodes[p.mapIndex(p.cursor)]
	return &e
}

// Update handles key input for the picker.
func (p *EpisodePicker) Update(msg tea.Msg) tea.Cmd {
	if p.IsFilterTyping() {
		switch msg := msg.(type) {
		case tea.KeyMsg:
			switch msg.String() {
			case "esc":
				p.clearFilter()
				return nil
			case "enter":
				// Accept filter, blur to navigate results
				p.filterInput.Blur()
				return nil
			case "backspace":
				if p.filterInput.Value() == "" {
					p.clearFilter()
					return nil
				}
			}
		}

		var cmd tea.Cmd
		p.filterInput, cmd = p.filterInput.Update(msg)
		p.applyFilter()
		return cmd
	}

	count := p.count()

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "/":
			p.filterActive = true
			p.filterInput.Focus()
			return textinput.Blink
		case "esc":
			if p.filterActive {
				p.clearFilter()
			}
		case "j", "down":
			if p.cursor < count-1 {
				p.cursor++
				p.ensureVisible()
			}
		case "k", "up":
			if p.cursor > 0 {
				p.cursor--
				p.ensureVisible()
			}
		case "g":
			p.cursor = 0
			p.offset = 0
		case "G":
			if count > 0 {
				p.cursor = count - 1
				p.ensureVisible()
			}
		}
	}
	return nil
}

// View renders the picker modal.
func (p *EpisodePicker) View() string {
	title := styles.AccentStyle.Render("Episodes")

	if p.loading {
		spinner := styles.SpinnerFrames[p.spinnerFrame%len(styles.SpinnerFrames)]
		body := styles.DimStyle.Render(spinner + " Loading episodes...")
		return styles.ModalBorder.Width(pickerWidth).Render(title + "\n\n" + body)
	}

	count := p.count()
	if count == 0 {
		empty := styles.DimStyle.Render("No episodes")
		if p.filterActive && p.filterInput.Value() != "" {
			empty = styles.DimStyle.Render("No matches")
		}
		content := title + "\n\n" + empty
		if p.filterActive {
			content += "\n\n" + p.renderFilterBar()
		}
		return styles.ModalBorder.Width(pickerWidth).Render(content)
	}

	end := p.offset + pickerMaxVisible
	if end > count {
		end = count
	}

	var lines []string
	for i := p.offset; i < end; i++ {
		e := p.episodes[p.mapIndex(i)]
		lines = append(lines, p.renderRow(e, i == p.cursor))
	}

	header := " "
	if p.offset > 0 {
		header = styles.DimStyle.Render("↑ more")
	}
	footer := " "
	if end < count {
		footer = styles.DimStyle.Render("↓ more")
	}

	content := title + "\n" + header + "\n" + strings.Join(lines, "\n") + "\n" + footer
	if p.filterActive {
		content += "\n" + p.renderFilterBar()
	}
	return styles.ModalBorder.Width(pickerWidth).Render(content)
}

func (p *EpisodePicker) renderRow(e domain.EpisodeListEntry, selected bool) string {
	var dot string
	switch {
	case e.WatchedFraction >= 0.95:
		dot = styles.WatchedCheck
	case e.WatchedFraction > 0:
		dot = styles.InProgressDot
	default:
		dot = styles.UnwatchedDot
	}

	num := fmt.Sprintf("%2d", e.Number)
	dur := e.FormattedDuration()

	// width - dot(1) - spaces(3) - number(2) - duration
	avail := pickerWidth - 6 - len(dur) - 1
	if avail < 5 {
		avail = 5
	}
	title := styles.Truncate(e.Title, avail)

	line := fmt.Sprintf("%s %s %-*s %s", dot, num, avail, title, styles.DimStyle.Render(dur))
	if selected {
		return styles.HighlightStyle.Render(fmt.Sprintf("%s %-*s %s", num, avail, title, dur))
	}
	if e.Number == p.current {
		return styles.AccentStyle.Render(fmt.Sprintf("%s %s %-*s", "▶", num, avail, title)) + " " + styles.DimStyle.Render(dur)
	}
	return line
}

func (p *EpisodePicker) renderFilterBar() string {
	bar := p.filterInput.View()
	if q := p.filterInput.Value(); q != "" {
		bar += styles.DimStyle.Render(fmt.Sprintf(" [%d/%d]", p.count(), len(p.episodes)))
	}
	return bar
}

func (p *EpisodePicker) clearFilter() {
	p.filterActive = false
	p.filteredIdx = nil
	p.filterInput.SetValue("")
	p.filterInput.Blur()
}

func (p *EpisodePicker) applyFilter() {
	query := p.filterInput.Value()
	if query == "" {
		p.filteredIdx = nil
		return
	}

	titles := make([]string, len(p.episodes))
	for i, e := range p.episodes {
		titles[i] = strings.ToLower(e.Title)
	}

	matches := fuzzy.Find(strings.ToLower(query), titles)
	p.filteredIdx = make([]int, len(matches))
	for i, m := range matches {
		p.filteredIdx[i] = m.Index
	}

	p.cursor = 0
	p.offset = 0
}

func (p *EpisodePicker) ensureVisible() {
	if p.cursor < p.offset {
		p.offset = p.cursor
	}
	if p.cursor >= p.offset+pickerMaxVisible {
		p.offset = p.cursor - pickerMaxVisible + 1
	}
}

func (p *EpisodePicker) count() int {
	if p.filteredIdx != nil {
		return len(p.filteredIdx)
	}
	return len(p.episodes)
}

func (p *EpisodePicker) mapIndex(i int) int {
	if p.filteredIdx != nil && i < len(p.filteredIdx) {
		return p.filteredIdx[i]
	}
	return i
}
