package metaserver

import "github.com/mmcdole/appshelf/internal/domain"

// SoftwareDTO is one record returned by the metadata server's app listing.
// The nested desc/tags/images slices are only present when preloaded.
type SoftwareDTO struct {
	ID        int            `json:"id"`
	CreatedAt string         `json:"created_at,omitempty"`
	UpdatedAt string         `json:"updated_at,omitempty"`
	Name      string         `json:"name"`
	Info      InfoDTO        `json:"info"`
	Desc      []domain.Desc  `json:"desc,omitempty"`
	Tags      []domain.Tag   `json:"tags,omitempty"`
	Images    []domain.Image `json:"images,omitempty"`
}

// InfoDTO is the base (unlocalized) info block of a software record
type InfoDTO struct {
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Slogan      string           `json:"slogan,omitempty"`
	Category    string           `json:"category,omitempty"`
	Author      string           `json:"author,omitempty"`
	Packager    string           `json:"packager,omitempty"`
	HomePage    string           `json:"homePage,omitempty"`
	Icon        string           `json:"icon,omitempty"`
	PackageURI  string           `json:"packageURI,omitempty"` // JSON-encoded []string
	Extra       string           `json:"extra,omitempty"`      // JSON-encoded object
	Source      int              `json:"source,omitempty"`
	Versions    []domain.Version `json:"versions,omitempty"`
}

// StatDTO is one record returned by the operation server's stat listing
type StatDTO struct {
	Name       string  `json:"name"`
	Score      float64 `json:"score"`
	ScoreCount int     `json:"score_count"`
	Download   int     `json:"download"`
}

// PackageURLDTO is one value of the metadata server's package map
type PackageURLDTO struct {
	Name string `json:"name"`
}
