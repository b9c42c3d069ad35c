package metaserver

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/mmcdole/appshelf/internal/domain"
	"github.com/mmcdole/appshelf/internal/images"
	"github.com/mmcdole/appshelf/internal/locale"
)

// Normalizer converts raw server records to canonical domain entries
type Normalizer struct {
	locales *locale.Resolver
	images  *images.Selector
}

// NewNormalizer creates a normalizer for one locale chain and image selector
func NewNormalizer(locales *locale.Resolver, selector *images.Selector) *Normalizer {
	if locales == nil {
		locales = locale.New("")
	}
	if selector == nil {
		selector = images.New("", 1, locales)
	}
	return &Normalizer{locales: locales, images: selector}
}

// MapSoftwares converts a batch of records. The first malformed record aborts the batch.
func (n *Normalizer) MapSoftwares(dtos []SoftwareDTO) ([]domain.Software, error) {
	items := make([]domain.Software, 0, len(dtos))
	for _, dto := range dtos {
		sw, err := n.MapSoftware(dto)
		if err != nil {
			return nil, err
		}
		items = append(items, sw)
	}
	return items, nil
}

// MapSoftware converts one record into a domain entry with a resolved info block
func (n *Normalizer) MapSoftware(dto SoftwareDTO) (domain.Software, error) {
	packages, err := parsePackageURIs(dto.Info.PackageURI)
	if err != nil {
		return domain.Software{}, &domain.NormalizeError{Name: dto.Name, Field: "packageURI", Err: err}
	}

	extra, err := parseExtra(dto.Info.Extra)
	if err != nil {
		return domain.Software{}, &domain.NormalizeError{Name: dto.Name, Field: "extra", Err: err}
	}

	info := domain.Info{
		Name:        dto.Info.Name,
		Description: dto.Info.Description,
		Slogan:      dto.Info.Slogan,
		Category:    dto.Info.Category,
		Author:      dto.Info.Author,
		Packager:    dto.Info.Packager,
		HomePage:    dto.Info.HomePage,
		Packages:    packages,
		Extra:       extra,
		Versions:    dto.Info.Versions,
		Source:      domain.Source(dto.Info.Source),
	}

	if desc, ok := n.description(dto.Desc); ok {
		info.Name = desc.Name
		info.Description = desc.Description
		info.Slogan = desc.Slogan
		info.Locale = desc.Locale
	}

	preferred := locale.FilterPreferred(n.locales, dto.Tags)
	info.Tags = make([]string, 0, len(preferred))
	for _, tag := range preferred {
		info.Tags = append(info.Tags, tag.Tag)
	}

	info.Icon = n.images.Icon(dto.Info.Icon)
	if cover, ok := n.images.Cover(dto.Images); ok {
		info.Cover = cover
	}
	info.Screenshots = n.images.Screenshots(dto.Images)

	return domain.Software{
		ID:        dto.ID,
		Name:      dto.Name,
		CreatedAt: parseTimestamp(dto.CreatedAt),
		UpdatedAt: parseTimestamp(dto.UpdatedAt),
		Info:      info,
	}, nil
}

// description picks the first named record among the preferred locale. When
// neither the target locale nor en_US has one, the best ranked named record
// is used so that entries published only in zh_CN still get a description.
func (n *Normalizer) description(descs []domain.Desc) (domain.Desc, bool) {
	for _, d := range locale.FilterPreferred(n.locales, descs) {
		if d.Name != "" {
			return d, true
		}
	}
	for _, d := range locale.Sort(n.locales, descs) {
		if d.Name != "" {
			return d, true
		}
	}
	return domain.Desc{}, false
}

// MapStats converts stat records, keeping server order
func MapStats(dtos []StatDTO) []domain.Stat {
	stats := make([]domain.Stat, 0, len(dtos))
	for _, s := range dtos {
		stats = append(stats, domain.Stat{
			Name:       s.Name,
			Score:      s.Score,
			ScoreCount: s.ScoreCount,
			Download:   s.Download,
		})
	}
	return stats
}

func parsePackageURIs(raw string) ([]domain.PackageURI, error) {
	if raw == "" {
		raw = "[]"
	}
	var urls []string
	if err := json.Unmarshal([]byte(raw), &urls); err != nil {
		return nil, fmt.Errorf("decode package uri list: %w", err)
	}
	packages := make([]domain.PackageURI, 0, len(urls))
	for _, u := range urls {
		packages = append(packages, domain.PackageURI{PackageURI: u})
	}
	return packages, nil
}

func parseExtra(raw string) (map[string]any, error) {
	if raw == "" {
		raw = "{}"
	}
	var extra map[string]any
	if err := json.Unmarshal([]byte(raw), &extra); err != nil {
		return nil, fmt.Errorf("decode extra: %w", err)
	}
	if extra == nil {
		extra = map[string]any{}
	}
	return extra, nil
}

func parseTimestamp(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}
	}
	return ts
}
