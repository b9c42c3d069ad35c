// Package images derives icon, cover and screenshot URLs for catalog entries.
package images

import (
	"slices"
	"strings"

	"github.com/mmcdole/appshelf/internal/domain"
	"github.com/mmcdole/appshelf/internal/locale"
)

// Selector picks artwork for a device pixel ratio and locale chain
type Selector struct {
	mediaBase  string
	pixelRatio float64
	locales    *locale.Resolver
}

// New creates a selector. mediaBase is prefixed to every image path.
func New(mediaBase string, pixelRatio float64, locales *locale.Resolver) *Selector {
	if locales == nil {
		locales = locale.New("")
	}
	return &Selector{
		mediaBase:  strings.TrimRight(mediaBase, "/"),
		pixelRatio: pixelRatio,
		locales:    locales,
	}
}

// densities returns the density offsets to try, preferred first
func (s *Selector) densities() []domain.ImageType {
	if s.pixelRatio == 1 {
		return []domain.ImageType{0, 1}
	}
	return []domain.ImageType{1, 0}
}

// URL resolves an image path against the media base
func (s *Selector) URL(path string) string {
	return s.mediaBase + "/" + strings.TrimLeft(path, "/")
}

// Icon returns the icon URL, or "" when no icon is declared
func (s *Selector) Icon(path string) string {
	if path == "" {
		return ""
	}
	return s.URL(path)
}

// Cover returns the best cover URL. The first density tier with any cover wins.
func (s *Selector) Cover(imgs []domain.Image) (string, bool) {
	for _, density := range s.densities() {
		best, ok := locale.Best(s.locales, ofType(imgs, domain.ImageTypeCover+density))
		if ok {
			return s.URL(best.Path), true
		}
	}
	return "", false
}

// Screenshots returns the screenshot URLs of the best locale group, ordered.
// The first density tier with any screenshot wins.
func (s *Selector) Screenshots(imgs []domain.Image) []string {
	for _, density := range s.densities() {
		groups := groupByLocale(ofType(imgs, domain.ImageTypeScreenshot+density))
		best, ok := locale.Best(s.locales, groups)
		if !ok {
			continue
		}
		shots := slices.Clone(best.images)
		slices.SortStableFunc(shots, func(a, b domain.Image) int {
			return a.Order - b.Order
		})
		urls := make([]string, len(shots))
		for i, img := range shots {
			urls[i] = s.URL(img.Path)
		}
		return urls
	}
	return nil
}

func ofType(imgs []domain.Image, t domain.ImageType) []domain.Image {
	var out []domain.Image
	for _, img := range imgs {
		if img.Type == t {
			out = append(out, img)
		}
	}
	return out
}

// localeGroup holds same-locale images in first-appearance order
type localeGroup struct {
	locale string
	images []domain.Image
}

func (g localeGroup) LocaleTag() string { return g.locale }

func groupByLocale(imgs []domain.Image) []localeGroup {
	var groups []localeGroup
	for _, img := range imgs {
		i := slices.IndexFunc(groups, func(g localeGroup) bool { return g.locale == img.Locale })
		if i < 0 {
			groups = append(groups, localeGroup{locale: img.Locale})
			i = len(groups) - 1
		}
		groups[i].images = append(groups[i].images, img)
	}
	return groups
}
