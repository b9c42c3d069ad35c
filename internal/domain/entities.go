package domain

import (
	"fmt"
	"time"
)

// ImageType distinguishes artwork kinds. High-density variants are always base + 1.
type ImageType int

const (
	ImageTypeInvalid ImageType = iota
	ImageTypeIcon
	ImageTypeCover
	ImageTypeCoverHD
	ImageTypeScreenshot
	ImageTypeScreenshotHD
)

// Source identifies who maintains a catalog entry
type Source int

const (
	SourceThirdParty Source = iota
	SourceOfficial
	SourceCollaborative
)

// String returns a human-readable source name
func (s Source) String() string {
	switch s {
	case SourceOfficial:
		return "official"
	case SourceCollaborative:
		return "collaborative"
	default:
		return "third-party"
	}
}

// Order selects the popularity ranking used by the stat query
type Order string

const (
	OrderDownload Order = "download"
	OrderScore    Order = "score"
)

// Desc is a localized description record
type Desc struct {
	Locale      string `json:"locale"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Slogan      string `json:"slogan"`
}

// LocaleTag returns the record locale
func (d Desc) LocaleTag() string { return d.Locale }

// Tag is a localized tag record
type Tag struct {
	Locale string `json:"locale"`
	Tag    string `json:"tag"`
}

// LocaleTag returns the record locale
func (t Tag) LocaleTag() string { return t.Locale }

// Image is a localized artwork record as published by the metadata server
type Image struct {
	Locale string    `json:"locale"`
	Path   string    `json:"path"`
	Type   ImageType `json:"type"`
	Order  int       `json:"order"`
}

// LocaleTag returns the record locale
func (i Image) LocaleTag() string { return i.Locale }

// PackageURI points at one installable package for an entry (e.g. "deb:vim")
type PackageURI struct {
	PackageURI string `json:"packageURI"`
}

// Version is one published version of an entry. The server keeps it free-form.
type Version map[string]any

// Info is the canonical, locale-resolved descriptive block of an entry
type Info struct {
	Name        string         // Display name (localized)
	Description string         // Long description (localized)
	Slogan      string         // One-line pitch (localized)
	Locale      string         // Locale of the merged description, empty if none matched
	Category    string         // Category slug
	Author      string         // Upstream author
	Packager    string         // Who packaged it for the store
	HomePage    string         // Project home page
	Icon        string         // Absolute icon URL
	Cover       string         // Absolute cover URL, empty when no cover matched
	Screenshots []string       // Absolute screenshot URLs in display order
	Tags        []string       // Localized tag names
	Packages    []PackageURI   // Parsed package URIs
	Extra       map[string]any // Parsed free-form extra data
	Versions    []Version      // Published versions
	Source      Source         // Maintainer kind
}

// Stat is the popularity record of an entry
type Stat struct {
	Name       string  `json:"name"`
	Score      float64 `json:"score"`
	ScoreCount int     `json:"score_count"`
	Download   int     `json:"download"`
}

// Package is the local package record reported by the store daemon
type Package struct {
	AppName       string `json:"appName"`
	PackageName   string `json:"packageName"`
	PackageURI    string `json:"packageURI"`
	LocalVersion  string `json:"localVersion"`
	RemoteVersion string `json:"remoteVersion"`
	Upgradable    bool   `json:"upgradable"`
	Installed     bool   `json:"installed"`
}

// Software is one catalog entry joining metadata, stats and local install state
type Software struct {
	ID        int
	Name      string // Unique key across all sources
	CreatedAt time.Time
	UpdatedAt time.Time
	Info      Info
	Stat      *Stat    // nil unless stats were queried and matched
	Package   *Package // nil unless local packages were queried and matched
}

// Title returns the display name, falling back to the entry key
func (s Software) Title() string {
	if s.Info.Name != "" {
		return s.Info.Name
	}
	return s.Name
}

// IsInstalled reports whether the local package record marks the entry installed
func (s Software) IsInstalled() bool {
	return s.Package != nil && s.Package.Installed
}

// FormattedScore returns the score with its vote count (e.g., "4.5 (120)")
func (s Software) FormattedScore() string {
	if s.Stat == nil {
		return ""
	}
	return fmt.Sprintf("%.1f (%d)", s.Stat.Score, s.Stat.ScoreCount)
}

// PackageQuery is the tuple the store daemon uses to resolve an entry locally
type PackageQuery struct {
	Name      string       `json:"name"`
	LocalName string       `json:"localName"`
	Packages  []PackageURI `json:"packages"`
}

// QueryFilter selects which entries a catalog listing returns
type QueryFilter struct {
	Order         Order
	Offset        int
	Limit         int
	Category      string
	Tag           string
	Keyword       string
	Author        string
	Packager      string
	Names         []string
	FilterPackage bool // Keep only entries with a local package match
	FilterStat    bool // Let the stat query select and filter entries
}

// DefaultFilter returns the filter used when a caller does not override anything
func DefaultFilter() QueryFilter {
	return QueryFilter{
		Order:         OrderDownload,
		Offset:        0,
		Limit:         20,
		FilterPackage: true,
		FilterStat:    true,
	}
}

// PackagesURL maps an entry name to its package descriptor on the metadata server
type PackagesURL map[string]struct {
	Name string `json:"name"`
}

// FormatSize returns a byte count in a human-readable format
func FormatSize(size int64) string {
	const (
		gb = 1024 * 1024 * 1024
		mb = 1024 * 1024
		kb = 1024
	)
	switch {
	case size <= 0:
		return "0 B"
	case size >= gb:
		return fmt.Sprintf("%.1f GB", float64(size)/float64(gb))
	case size >= mb:
		return fmt.Sprintf("%.1f MB", float64(size)/float64(mb))
	case size >= kb:
		return fmt.Sprintf("%d KB", size/kb)
	default:
		return fmt.Sprintf("%d B", size)
	}
}
