// Package locale picks the best localized record out of locale-tagged candidates.
//
// A Resolver carries the fallback chain [target, en_US, zh_CN]. Records whose
// locale is absent from the chain rank after every chain member.
package locale

import (
	"slices"
	"strings"

	"golang.org/x/text/language"
)

const (
	English = "en_US"
	Chinese = "zh_CN"
)

// Localized is implemented by records tagged with a locale
type Localized interface {
	LocaleTag() string
}

// Resolver ranks locales against a fixed fallback chain
type Resolver struct {
	target string
	chain  []string
}

// New creates a resolver for the target locale
func New(target string) *Resolver {
	if target == "" {
		target = English
	}
	return &Resolver{
		target: target,
		chain:  []string{target, English, Chinese},
	}
}

// Target returns the configured target locale
func (r *Resolver) Target() string { return r.target }

// Chain returns a copy of the fallback chain
func (r *Resolver) Chain() []string { return slices.Clone(r.chain) }

// Position returns the chain index of locale, or the chain length when absent
func (r *Resolver) Position(locale string) int {
	if i := slices.Index(r.chain, locale); i >= 0 {
		return i
	}
	return len(r.chain)
}

// Rank compares two locales; negative means a sorts before b
func (r *Resolver) Rank(a, b string) int {
	return r.Position(a) - r.Position(b)
}

// Sort returns a copy of items stably ordered by locale rank
func Sort[T Localized](r *Resolver, items []T) []T {
	sorted := slices.Clone(items)
	slices.SortStableFunc(sorted, func(a, b T) int {
		return r.Rank(a.LocaleTag(), b.LocaleTag())
	})
	return sorted
}

// Best returns the best ranked item. Ties keep input order.
func Best[T Localized](r *Resolver, items []T) (T, bool) {
	var zero T
	if len(items) == 0 {
		return zero, false
	}
	best := items[0]
	for _, item := range items[1:] {
		if r.Rank(item.LocaleTag(), best.LocaleTag()) < 0 {
			best = item
		}
	}
	return best, true
}

// FilterPreferred returns every item in the target locale, or every en_US item
// when the target is missing. Neither present yields an empty result.
func FilterPreferred[T Localized](r *Resolver, items []T) []T {
	if slices.ContainsFunc(items, func(item T) bool { return item.LocaleTag() == r.target }) {
		return filterLocale(items, r.target)
	}
	return filterLocale(items, English)
}

func filterLocale[T Localized](items []T, locale string) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if item.LocaleTag() == locale {
			out = append(out, item)
		}
	}
	return out
}

// Normalize converts user locale strings ("zh-CN", "zh_CN.UTF-8", "en") to
// the underscore form used by the catalog ("zh_CN", "en_US"). Unparseable
// input yields an empty string.
func Normalize(tag string) string {
	tag = strings.TrimSpace(tag)
	if i := strings.IndexAny(tag, ".@"); i >= 0 {
		tag = tag[:i]
	}
	if tag == "" || tag == "C" || tag == "POSIX" {
		return ""
	}
	parsed, err := language.Parse(strings.ReplaceAll(tag, "_", "-"))
	if err != nil {
		return ""
	}
	base, _ := parsed.Base()
	region, _ := parsed.Region()
	return base.String() + "_" + region.String()
}
