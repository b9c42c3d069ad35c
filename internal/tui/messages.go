package tui

import (
	"github.com/mmcdole/appshelf/internal/domain"
	"github.com/mmcdole/appshelf/internal/service"
)

// ErrMsg represents an error
type ErrMsg struct {
	Err     error
	Context string
}

// Error implements the error interface
func (e ErrMsg) Error() string {
	if e.Context != "" {
		return e.Context + ": " + e.Err.Error()
	}
	return e.Err.Error()
}

// CatalogLoadedMsg signals that a listing finished
type CatalogLoadedMsg struct {
	Items []domain.Software
}

// StatusUpdateMsg carries one status transition for the watched entry
type StatusUpdateMsg struct {
	Update service.StatusUpdate
	watch  *statusWatch
}

// statusClosedMsg signals that a watch's channel closed
type statusClosedMsg struct {
	watch *statusWatch
}

// OpStartedMsg signals that the daemon accepted a package operation
type OpStartedMsg struct {
	Op   string
	Name string
}

// SizeLoadedMsg carries the download size of an entry
type SizeLoadedMsg struct {
	Name string
	Size int64
}

// TickMsg drives the loading spinner
type TickMsg struct{}

// ClearStatusMsg clears the status bar message
type ClearStatusMsg struct{}

// StatusMsg sets a temporary status message
type StatusMsg struct {
	Message string
	IsError bool
}
