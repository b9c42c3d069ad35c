package domain

import (
	"context"
)

// StatRepository provides popularity statistics (operation server)
type StatRepository interface {
	// QueryStats returns stats for the filter. Zero-valued fields are not sent.
	QueryStats(ctx context.Context, filter QueryFilter) ([]Stat, error)
}

// MetadataRepository provides normalized descriptive metadata (metadata server)
type MetadataRepository interface {
	// GetSoftwares returns normalized entries for names. Unknown names are absent.
	GetSoftwares(ctx context.Context, names []string) ([]Software, error)
}

// PackageRepository resolves entries against the local package system
type PackageRepository interface {
	// QueryPackages returns local package records keyed by entry name
	QueryPackages(ctx context.Context, queries []PackageQuery) (map[string]Package, error)
}

// InstalledChecker answers whether an entry is installed locally
type InstalledChecker interface {
	Installed(ctx context.Context, name string) (bool, error)
}

// JobTracker reports background jobs in the store daemon
type JobTracker interface {
	// JobByName returns the active job touching name, or nil when there is none
	JobByName(ctx context.Context, name string) (*Job, error)
}

// Operator runs package operations through the store daemon
type Operator interface {
	Install(ctx context.Context, queries ...PackageQuery) error
	Remove(ctx context.Context, queries ...PackageQuery) error
	Open(ctx context.Context, query PackageQuery) error
	DownloadSize(ctx context.Context, queries ...PackageQuery) (int64, error)
}

// NativeBridge is everything the store daemon offers to the catalog
type NativeBridge interface {
	PackageRepository
	InstalledChecker
	JobTracker
	Operator
}
