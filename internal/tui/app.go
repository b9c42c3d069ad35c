// Package tui is the terminal catalog browser.
package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/mmcdole/appshelf/internal/domain"
	"github.com/mmcdole/appshelf/internal/service"
	"github.com/mmcdole/appshelf/internal/tui/components"
)

// Catalog is the listing and operation surface the browser drives
type Catalog interface {
	List(ctx context.Context, filter domain.QueryFilter) ([]domain.Software, error)
	Size(ctx context.Context, sw domain.Software) (int64, error)
	Open(ctx context.Context, sw domain.Software) error
	Install(ctx context.Context, items ...domain.Software) error
	Remove(ctx context.Context, items ...domain.Software) error
	Native() bool
}

// StatusSource hands out live install status subscriptions
type StatusSource interface {
	Subscribe(name string) *service.Subscription
}

// ApplicationState represents the current state of the application
type ApplicationState int

const (
	StateBrowsing ApplicationState = iota
	StateHelp
	StateConfirmRemove
)

// Layout proportions
const (
	ListColumnPercent = 40
	MinColumnWidth    = 20

	// Vertical layout: single footer line
	ChromeHeight = 1
)

// Model is the main Bubble Tea model for the application
type Model struct {
	State ApplicationState
	Ready bool

	// Services
	Catalog Catalog
	Tracker StatusSource // nil without a store daemon
	Filter  domain.QueryFilter

	// UI components
	List      *components.ListColumn
	Inspector components.Inspector
	Help      help.Model

	// Dimensions
	Width  int
	Height int

	// UI state
	StatusMsg     string
	StatusIsErr   bool
	Loading       bool
	SpinnerFrame  int
	ShowInspector bool

	watch         *statusWatch
	pendingRemove *domain.Software
}

// NewModel creates a new application model. tracker may be nil.
func NewModel(catalog Catalog, tracker StatusSource, filter domain.QueryFilter) Model {
	return Model{
		State:         StateBrowsing,
		Catalog:       catalog,
		Tracker:       tracker,
		Filter:        filter,
		List:          components.NewListColumn(listTitle(filter)),
		Inspector:     components.NewInspector(),
		Help:          help.New(),
		ShowInspector: true,
		Loading:       true,
	}
}

func listTitle(filter domain.QueryFilter) string {
	title := "Apps"
	if filter.Category != "" {
		title = filter.Category
	}
	if filter.Order != "" {
		title += " by " + string(filter.Order)
	}
	return title
}

// Init initializes the application
func (m Model) Init() tea.Cmd {
	m.List.SetLoading(true)
	return tea.Batch(
		LoadCatalogCmd(m.Catalog, m.Filter),
		TickCmd(100*time.Millisecond),
	)
}

// Update handles all messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Ready = true
		m.updateLayout()
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case TickMsg:
		if !m.Loading {
			return m, nil
		}
		m.SpinnerFrame++
		m.List.SetSpinnerFrame(m.SpinnerFrame)
		return m, TickCmd(100 * time.Millisecond)

	case CatalogLoadedMsg:
		m.Loading = false
		m.List.SetItems(msg.Items)
		m.StatusMsg = fmt.Sprintf("%d apps", len(msg.Items))
		m.StatusIsErr = false
		syncCmd := m.syncSelection()
		return m, tea.Batch(syncCmd, ClearStatusCmd(3*time.Second))

	case StatusUpdateMsg:
		if msg.watch != m.watch {
			return m, nil
		}
		u := msg.Update
		m.Inspector.SetStatus(u.Status, u.Err)
		if u.Err == nil {
			m.List.SetStatus(u.Name, u.Status)
		}
		return m, WaitStatusCmd(m.watch)

	case statusClosedMsg:
		if msg.watch == m.watch {
			m.watch = nil
		}
		return m, nil

	case OpStartedMsg:
		verb := "Installing"
		if msg.Op == "remove" {
			verb = "Removing"
		}
		m.StatusMsg = verb + ": " + msg.Name
		m.StatusIsErr = false
		return m, ClearStatusCmd(3 * time.Second)

	case SizeLoadedMsg:
		if item := m.Inspector.Item(); item != nil && item.Name == msg.Name {
			m.Inspector.SetDownloadSize(msg.Size)
		}
		return m, nil

	case ErrMsg:
		m.StatusMsg = msg.Error()
		m.StatusIsErr = true
		if m.Loading {
			m.Loading = false
			m.List.SetLoading(false)
		}
		return m, ClearStatusCmd(5 * time.Second)

	case StatusMsg:
		m.StatusMsg = msg.Message
		m.StatusIsErr = msg.IsError
		return m, ClearStatusCmd(3 * time.Second)

	case ClearStatusMsg:
		m.StatusMsg = ""
		m.StatusIsErr = false
		return m, nil
	}

	// Cursor blink and other input messages go to the filter
	if cmd := m.List.Update(msg); cmd != nil {
		return m, cmd
	}
	return m, nil
}

// syncSelection points the inspector and the status watch at the selected entry
func (m *Model) syncSelection() tea.Cmd {
	sw, ok := m.List.SelectedItem()
	if !ok {
		m.stopWatch()
		m.Inspector.SetItem(nil)
		return nil
	}

	m.Inspector.SetItem(&sw)
	if m.watch != nil && m.watch.name == sw.Name {
		return nil
	}

	m.stopWatch()
	if m.Tracker == nil || !m.Catalog.Native() {
		return nil
	}
	m.watch = newStatusWatch(m.Tracker, sw.Name)
	return WaitStatusCmd(m.watch)
}

func (m *Model) stopWatch() {
	if m.watch != nil {
		m.watch.stop()
		m.watch = nil
	}
}

// Close releases the status watch
func (m *Model) Close() {
	m.stopWatch()
}
