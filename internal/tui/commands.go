package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mmcdole/appshelf/internal/domain"
	"github.com/mmcdole/appshelf/internal/service"
)

// Command factories for async operations

// LoadCatalogCmd runs a listing
func LoadCatalogCmd(svc Catalog, filter domain.QueryFilter) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()

		items, err := svc.List(ctx, filter)
		if err != nil {
			return ErrMsg{Err: err, Context: "loading catalog"}
		}
		return CatalogLoadedMsg{Items: items}
	}
}

// InstallCmd submits an install job for one entry
func InstallCmd(svc Catalog, sw domain.Software) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := svc.Install(ctx, sw); err != nil {
			return ErrMsg{Err: err, Context: "installing " + sw.Title()}
		}
		return OpStartedMsg{Op: "install", Name: sw.Title()}
	}
}

// RemoveCmd submits a remove job for one entry
func RemoveCmd(svc Catalog, sw domain.Software) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := svc.Remove(ctx, sw); err != nil {
			return ErrMsg{Err: err, Context: "removing " + sw.Title()}
		}
		return OpStartedMsg{Op: "remove", Name: sw.Title()}
	}
}

// OpenCmd launches an installed entry
func OpenCmd(svc Catalog, sw domain.Software) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := svc.Open(ctx, sw); err != nil {
			return ErrMsg{Err: err, Context: "opening " + sw.Title()}
		}
		return StatusMsg{Message: "Launched: " + sw.Title()}
	}
}

// SizeCmd queries the download size of an entry
func SizeCmd(svc Catalog, sw domain.Software) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		size, err := svc.Size(ctx, sw)
		if err != nil {
			return ErrMsg{Err: err, Context: "querying size"}
		}
		return SizeLoadedMsg{Name: sw.Name, Size: size}
	}
}

// statusWatch is the live status subscription of the selected entry
type statusWatch struct {
	name   string
	sub    *service.Subscription
	cancel context.CancelFunc
	ch     <-chan service.StatusUpdate
}

func newStatusWatch(src StatusSource, name string) *statusWatch {
	ctx, cancel := context.WithCancel(context.Background())
	sub := src.Subscribe(name)
	return &statusWatch{
		name:   name,
		sub:    sub,
		cancel: cancel,
		ch:     service.Distinct(ctx, sub.C),
	}
}

func (w *statusWatch) stop() {
	w.cancel()
	w.sub.Close()
}

// WaitStatusCmd waits for the next status transition of w
func WaitStatusCmd(w *statusWatch) tea.Cmd {
	return func() tea.Msg {
		u, ok := <-w.ch
		if !ok {
			return statusClosedMsg{watch: w}
		}
		return StatusUpdateMsg{Update: u, watch: w}
	}
}

// TickCmd returns a command that sends a tick after a delay
func TickCmd(delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(time.Time) tea.Msg {
		return TickMsg{}
	})
}

// ClearStatusCmd returns a command that clears status after a delay
func ClearStatusCmd(delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(time.Time) tea.Msg {
		return ClearStatusMsg{}
	})
}
