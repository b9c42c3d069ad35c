package service

import (
	"github.com/mmcdole/appshelf/internal/domain"
)

// Pure helpers used by CatalogService.List. None of them mutate their inputs.

// UniqueNames drops repeated names, keeping the first occurrence
func UniqueNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

// NarrowNames keeps the names accepted by keep, in order
func NarrowNames(names []string, keep func(string) bool) []string {
	out := make([]string, 0, len(names))
	for _, name := range names {
		if keep(name) {
			out = append(out, name)
		}
	}
	return out
}

// IndexStats maps stats by name and returns their names in response order.
// A repeated name keeps its first stat.
func IndexStats(stats []domain.Stat) (map[string]domain.Stat, []string) {
	index := make(map[string]domain.Stat, len(stats))
	order := make([]string, 0, len(stats))
	for _, s := range stats {
		if _, ok := index[s.Name]; ok {
			continue
		}
		index[s.Name] = s
		order = append(order, s.Name)
	}
	return index, order
}

// IndexSoftwares maps entries by name. A repeated name keeps its first entry.
func IndexSoftwares(items []domain.Software) map[string]domain.Software {
	index := make(map[string]domain.Software, len(items))
	for _, sw := range items {
		if _, ok := index[sw.Name]; !ok {
			index[sw.Name] = sw
		}
	}
	return index
}

// WithStat returns a copy of sw carrying its stat from stats, if any
func WithStat(sw domain.Software, stats map[string]domain.Stat) domain.Software {
	if s, ok := stats[sw.Name]; ok {
		sw.Stat = &s
	} else {
		sw.Stat = nil
	}
	return sw
}

// WithPackage returns a copy of sw carrying its local package from pkgs, if any
func WithPackage(sw domain.Software, pkgs map[string]domain.Package) domain.Software {
	if p, ok := pkgs[sw.Name]; ok {
		sw.Package = &p
	} else {
		sw.Package = nil
	}
	return sw
}

// ToQuery builds the tuple the store daemon resolves an entry with
func ToQuery(sw domain.Software) domain.PackageQuery {
	packages := make([]domain.PackageURI, len(sw.Info.Packages))
	copy(packages, sw.Info.Packages)
	return domain.PackageQuery{
		Name:      sw.Name,
		LocalName: sw.Info.Name,
		Packages:  packages,
	}
}

// ToQueries maps ToQuery over entries
func ToQueries(items []domain.Software) []domain.PackageQuery {
	queries := make([]domain.PackageQuery, len(items))
	for i, sw := range items {
		queries[i] = ToQuery(sw)
	}
	return queries
}

// OrderByNames returns the indexed entries in names order, dropping names with no entry
func OrderByNames(names []string, index map[string]domain.Software) []domain.Software {
	out := make([]domain.Software, 0, len(names))
	for _, name := range names {
		if sw, ok := index[name]; ok {
			out = append(out, sw)
		}
	}
	return out
}

func entryNames(items []domain.Software) []string {
	names := make([]string, len(items))
	for i, sw := range items {
		names[i] = sw.Name
	}
	return names
}
