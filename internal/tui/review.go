package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type Pane int

const (
	PaneCanonical Pane = iota
	PaneDuplicates
)

type ReviewModel struct {
	session    *ReviewSession
	styles     *Styles
	cursor     int // current group index
	viewport   viewport.Model
	activePane Pane
	width      int
	height     int
	quitting   bool
	help       help.Model
	keys       keyMap
}

type keyMap struct {
	Up      key.Binding
	Down    key.Binding
	Tab     key.Binding
	Confirm key.Binding
	Dismiss key.Binding
	Undo    key.Binding
	Quit    key.Binding
}

func (km keyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		km.Up,
		km.Down,
		km.Tab,
		km.Confirm,
		km.Dismiss,
		km.Undo,
		km.Quit,
	}
}

func (km keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{km.Up, km.Down, km.Tab},
		{km.Confirm, km.Dismiss, km.Undo},
		{km.Quit},
	}
}

func newKeyMap() keyMap {
	return keyMap{
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "prev group"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "next group"),
		),
		Tab: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "switch pane"),
		),
		Confirm: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "confirm"),
		),
		Dismiss: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "dismiss"),
		),
		Undo: key.NewBinding(
			key.WithKeys("u"),
			key.WithHelp("u", "reset"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
	}
}

func NewReviewModel(session *ReviewSession) ReviewModel {
	vp := viewport.New(0, 0)
	vp.Style = lipgloss.NewStyle()

	return ReviewModel{
		session:    session,
		styles:     DefaultStyles(),
		cursor:     0,
		viewport:   vp,
		activePane: PaneCanonical,
		width:      80,
		height:     24,
		quitting:   false,
		help:       help.New(),
		keys:       newKeyMap(),
	}
}

func (m ReviewModel) Init() tea.Cmd {
	return nil
}

func (m ReviewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = msg.Width/2 - 4
		m.viewport.Height = msg.Height - 10
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "j", "down":
			if m.cursor < len(m.session.Items)-1 {
				m.cursor++
			}
			return m, nil

		case "k", "up":
			if m.cursor > 0 {
				m.cursor--
			}
			return m, nil

		case "tab":
			if m.activePane == PaneCanonical {
				m.activePane = PaneDuplicates
			} else {
				m.activePane = PaneCanonical
			}
			return m, nil

		case "c":
			if m.cursor < len(m.session.Items) {
				m.session.Items[m.cursor].Decision = DecisionConfirmed
			}
			return m, nil

		case "d":
			if m.cursor < len(m.session.Items) {
				m.session.Items[m.cursor].Decision = DecisionDismissed
			}
			return m, nil

		case "u":
			if m.cursor < len(m.session.Items) {
				m.session.Items[m.cursor].Decision = DecisionPending
			}
			return m, nil

		case "q", "esc":
			m.quitting = true
			return m, tea.Quit
		}
	}

	return m, nil
}

func (m ReviewModel) View() string {
	if m.quitting {
		return ""
	}

	if len(m.session.Items) == 0 {
		return m.styles.StatusDismissed.Render("No duplicate groups to review")
	}

	var sections []string

	sections = append(sections, m.renderTopBar())
	sections = append(sections, m.renderNavigator())
	sections = append(sections, m.renderPanels())
	sections = append(sections, m.renderBottom())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m ReviewModel) renderTopBar() string {
	title := fmt.Sprintf("Duplicate Review - %d groups", len(m.session.Items))
	item := m.session.Items[m.cursor]
	simText := fmt.Sprintf("%.4f", item.MinSimilarity())
	simBadge := SimilarityColor(item.MinSimilarity()).Render(simText)

	titleStyled := m.styles.Title.Render(title)
	return lipgloss.JoinHorizontal(lipgloss.Top, titleStyled, "  ", simBadge)
}

func (m ReviewModel) renderNavigator() string {
	if m.cursor >= len(m.session.Items) {
		return ""
	}

	item := m.session.Items[m.cursor]
	position := fmt.Sprintf("[%d/%d]", m.cursor+1, len(m.session.Items))
	groupName := fmt.Sprintf("group %d (%d members)", item.Record.GroupID, item.Record.Size)
	decision := m.formatDecision(item.Decision)

	parts := []string{position, groupName, decision}
	return m.styles.Subtitle.Render(strings.Join(parts, "  "))
}

func (m ReviewModel) formatDecision(d Decision) string {
	switch d {
	case DecisionConfirmed:
		return m.styles.StatusConfirmed.Render("[Confirmed]")
	case DecisionDismissed:
		return m.styles.StatusDismissed.Render("[Dismissed]")
	default:
		return m.styles.StatusPending.Render("[Pending]")
	}
}

func (m ReviewModel) renderPanels() string {
	if m.cursor >= len(m.session.Items) {
		return ""
	}

	item := m.session.Items[m.cursor]

	left := m.renderMemberPanel(
		"Canonical",
		m.formatCanonical(item),
		m.activePane == PaneCanonical,
	)

	var dupLines []string
	for _, d := range item.Record.Duplicates {
		dupLines = append(dupLines, m.formatDuplicate(d.FileName, d.MediaType, float64(d.SimilarityToCanonical)))
	}
	right := m.renderMemberPanel(
		fmt.Sprintf("Duplicates (%d)", len(item.Record.Duplicates)),
		dupLines,
		m.activePane == PaneDuplicates,
	)

	panelWidth := (m.width - 6) / 2
	left = lipgloss.NewStyle().Width(panelWidth).Render(left)
	right = lipgloss.NewStyle().Width(panelWidth).Render(right)

	return lipgloss.JoinHorizontal(lipgloss.Top, left, right)
}

func (m ReviewModel) formatCanonical(item *GroupItem) []string {
	c := item.Record.Canonical
	lines := []string{
		c.FileName,
		fmt.Sprintf("file %d  %s", c.FileID, c.MediaType),
	}
	if c.Duration > 0 {
		lines = append(lines, fmt.Sprintf("duration %.1fs", c.Duration))
	}
	return append(lines, fmt.Sprintf("quality %.3f", c.Quality))
}

func (m ReviewModel) formatDuplicate(name, mediaType string, similarity float64) string {
	sim := "transitive"
	if similarity > 0 {
		sim = fmt.Sprintf("%.4f", similarity)
	}
	return fmt.Sprintf("%s (%s)  %s", name, mediaType, sim)
}

func (m ReviewModel) renderMemberPanel(title string, lines []string, active bool) string {
	style := m.styles.Border
	if active {
		style = m.styles.ActiveBorder
	}

	titleStyled := m.styles.Tab.Render(title)
	if active {
		titleStyled = m.styles.ActiveTab.Render(title)
	}

	maxLines := m.height - 12
	if maxLines < 1 {
		maxLines = 1
	}

	var shown []string
	for i, line := range lines {
		if i >= maxLines {
			shown = append(shown, fmt.Sprintf("... %d more", len(lines)-i))
			break
		}
		shown = append(shown, m.truncateLine(line, (m.width/2)-10))
	}

	content := m.styles.MemberBlock.Render(strings.Join(shown, "\n"))
	panel := lipgloss.JoinVertical(lipgloss.Left, titleStyled, content)
	return style.Render(panel)
}

func (m ReviewModel) truncateLine(line string, maxWidth int) string {
	if len(line) <= maxWidth {
		return line
	}
	if maxWidth < 3 {
		return "..."
	}
	return line[:maxWidth-3] + "..."
}

func (m ReviewModel) renderBottom() string {
	helpView := m.help.ShortHelpView([]key.Binding{
		m.keys.Up,
		m.keys.Down,
		m.keys.Tab,
		m.keys.Confirm,
		m.keys.Dismiss,
		m.keys.Undo,
		m.keys.Quit,
	})

	return m.styles.Help.Render(helpView)
}
