package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/mmcdole/appshelf/internal/tui/styles"
)

// View renders the application
func (m Model) View() string {
	if !m.Ready {
		return "Loading..."
	}

	layout := m.calculateColumnLayout(m.Width)
	content := m.List.View()
	if layout.inspectorWidth > 0 {
		content = lipgloss.JoinHorizontal(lipgloss.Top, content, m.Inspector.View())
	}

	switch m.State {
	case StateHelp:
		content = m.overlay(m.renderHelp())
	case StateConfirmRemove:
		content = m.overlay(m.renderConfirmRemove())
	}

	return lipgloss.JoinVertical(lipgloss.Left, content, m.renderFooter())
}

// overlay centers a modal over the content area
func (m Model) overlay(modal string) string {
	return lipgloss.Place(m.Width, m.Height-ChromeHeight, lipgloss.Center, lipgloss.Center, modal)
}

func (m Model) renderHelp() string {
	h := m.Help
	h.ShowAll = true
	return styles.ModalStyle.Render(
		styles.ModalTitleStyle.Render("Keys") + "\n" + h.View(Keys),
	)
}

func (m Model) renderConfirmRemove() string {
	name := ""
	if m.pendingRemove != nil {
		name = m.pendingRemove.Title()
	}
	return styles.ModalStyle.Render(
		styles.ModalTitleStyle.Render("Remove "+name+"?") + "\n" +
			styles.HelpKeyStyle.Render("y") + styles.HelpDescStyle.Render(" remove   ") +
			styles.HelpKeyStyle.Render("n") + styles.HelpDescStyle.Render(" cancel"),
	)
}

func (m Model) renderFooter() string {
	if m.StatusMsg != "" {
		style := styles.SuccessStyle
		if m.StatusIsErr {
			style = styles.ErrorStyle
		}
		return style.Render(styles.Truncate(m.StatusMsg, m.Width))
	}
	return m.Help.View(Keys)
}
