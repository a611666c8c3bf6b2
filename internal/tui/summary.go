package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// SummaryModel displays the final tally after review is complete
type SummaryModel struct {
	session  *ReviewSession
	styles   *Styles
	width    int
	height   int
	quitting bool
}

// NewSummaryModel creates a new summary screen
func NewSummaryModel(session *ReviewSession) SummaryModel {
	return SummaryModel{
		session: session,
		styles:  DefaultStyles(),
	}
}

// Init implements tea.Model
func (m SummaryModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model
func (m SummaryModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "enter":
			m.quitting = true
			return m, tea.Quit
		}
	}

	return m, nil
}

// View implements tea.Model
func (m SummaryModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	title := m.styles.Title.Render("Review Summary")
	b.WriteString(title)
	b.WriteString("\n\n")

	total := len(m.session.Items)
	confirmed := 0
	dismissed := 0
	pending := 0
	members := 0

	for _, item := range m.session.Items {
		members += item.Record.Size
		switch item.Decision {
		case DecisionConfirmed:
			confirmed++
		case DecisionDismissed:
			dismissed++
		case DecisionPending:
			pending++
		}
	}

	b.WriteString(m.renderStatsTable(total, members, confirmed, dismissed, pending))
	b.WriteString("\n\n")

	if dismissed > 0 {
		b.WriteString(m.styles.Subtitle.Render("Dismissed Groups:"))
		b.WriteString("\n\n")

		for _, item := range m.session.Items {
			if item.Decision == DecisionDismissed {
				b.WriteString(m.renderItemDetail(item))
				b.WriteString("\n")
			}
		}
		b.WriteString("\n")
	}

	help := m.styles.Help.Render("Press enter to save and exit")
	b.WriteString(help)

	return b.String()
}

// renderStatsTable creates a formatted stats table
func (m SummaryModel) renderStatsTable(total, members, confirmed, dismissed, pending int) string {
	var b strings.Builder

	b.WriteString(m.styles.Subtitle.Render("Statistics"))
	b.WriteString("\n\n")

	b.WriteString(fmt.Sprintf("  Total groups:          %d\n", total))
	b.WriteString(fmt.Sprintf("  Total members:         %d\n", members))

	confirmedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGreen)).Bold(true)
	b.WriteString(fmt.Sprintf("  Confirmed:             %s\n", confirmedStyle.Render(fmt.Sprintf("%d", confirmed))))

	dismissedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(ColorRed)).Bold(true)
	b.WriteString(fmt.Sprintf("  Dismissed:             %s\n", dismissedStyle.Render(fmt.Sprintf("%d", dismissed))))

	pendingStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGray))
	b.WriteString(fmt.Sprintf("  Pending (kept):        %s\n", pendingStyle.Render(fmt.Sprintf("%d", pending))))

	return b.String()
}

// renderItemDetail renders a single dismissed group with its canonical
func (m SummaryModel) renderItemDetail(item *GroupItem) string {
	var b strings.Builder

	header := fmt.Sprintf("group %d: %s", item.Record.GroupID, item.Record.Canonical.FileName)
	b.WriteString(m.styles.Subtitle.Render(header))
	b.WriteString(" ")
	b.WriteString(m.styles.StatusDismissed.Render("DISMISSED"))
	b.WriteString("\n")

	b.WriteString(fmt.Sprintf("  %d members, weakest link %.4f\n", item.Record.Size, item.MinSimilarity()))

	return b.String()
}
