package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/mmcdole/appshelf/internal/domain"
)

// handleKeyMsg handles keyboard input
func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.State {
	case StateHelp:
		if key.Matches(msg, Keys.Escape, Keys.Help, Keys.Quit) {
			m.State = StateBrowsing
		}
		return m, nil

	case StateConfirmRemove:
		switch {
		case key.Matches(msg, Keys.Confirm):
			sw := m.pendingRemove
			m.pendingRemove = nil
			m.State = StateBrowsing
			if sw != nil {
				return m, RemoveCmd(m.Catalog, *sw)
			}
		case key.Matches(msg, Keys.Deny):
			m.pendingRemove = nil
			m.State = StateBrowsing
		}
		return m, nil
	}

	// Filter typing swallows everything except ctrl+c
	if m.List.IsFilterTyping() {
		if msg.String() == "ctrl+c" {
			m.stopWatch()
			return m, tea.Quit
		}
		cmd := m.List.Update(msg)
		syncCmd := m.syncSelection()
		return m, tea.Batch(cmd, syncCmd)
	}

	switch {
	case key.Matches(msg, Keys.Quit):
		m.stopWatch()
		return m, tea.Quit

	case key.Matches(msg, Keys.Help):
		m.State = StateHelp
		return m, nil

	case key.Matches(msg, Keys.Escape):
		if m.List.IsFiltering() {
			m.List.ClearFilter()
			cmd := m.syncSelection()
			return m, cmd
		}
		return m, nil

	case key.Matches(msg, Keys.Filter):
		if m.List.IsFiltering() {
			// Re-focus an accepted filter
			cmd := m.List.Update(msg)
			return m, cmd
		}
		m.List.ToggleFilter()
		m.updateLayout()
		return m, nil

	case key.Matches(msg, Keys.Refresh):
		m.Loading = true
		m.List.SetLoading(true)
		return m, tea.Batch(LoadCatalogCmd(m.Catalog, m.Filter), TickCmd(100*time.Millisecond))

	case key.Matches(msg, Keys.ToggleInspector):
		m.ShowInspector = !m.ShowInspector
		m.updateLayout()
		return m, nil

	case key.Matches(msg, Keys.ScrollDown):
		m.Inspector.ScrollDown()
		return m, nil

	case key.Matches(msg, Keys.ScrollUp):
		m.Inspector.ScrollUp()
		return m, nil

	case key.Matches(msg, Keys.Install):
		return m.withNative(func(sw domain.Software) tea.Cmd {
			if status, ok := m.Inspector.Status(); ok && status != domain.StatusReady {
				return statusCmd("Already "+status.String()+": "+sw.Title(), false)
			}
			return InstallCmd(m.Catalog, sw)
		})

	case key.Matches(msg, Keys.Remove):
		if !m.Catalog.Native() {
			return m, statusCmd(domain.ErrNativeUnavailable.Error(), true)
		}
		if sw, ok := m.List.SelectedItem(); ok {
			m.pendingRemove = &sw
			m.State = StateConfirmRemove
		}
		return m, nil

	case key.Matches(msg, Keys.Open):
		return m.withNative(func(sw domain.Software) tea.Cmd {
			return OpenCmd(m.Catalog, sw)
		})

	case key.Matches(msg, Keys.Size):
		return m.withNative(func(sw domain.Software) tea.Cmd {
			return SizeCmd(m.Catalog, sw)
		})
	}

	// Navigation goes to the list
	cmd := m.List.Update(msg)
	syncCmd := m.syncSelection()
	return m, tea.Batch(cmd, syncCmd)
}

// withNative runs fn for the selected entry when a store daemon is configured
func (m Model) withNative(fn func(domain.Software) tea.Cmd) (tea.Model, tea.Cmd) {
	if !m.Catalog.Native() {
		return m, statusCmd(domain.ErrNativeUnavailable.Error(), true)
	}
	sw, ok := m.List.SelectedItem()
	if !ok {
		return m, nil
	}
	return m, fn(sw)
}

func statusCmd(message string, isErr bool) tea.Cmd {
	return func() tea.Msg {
		return StatusMsg{Message: message, IsError: isErr}
	}
}
