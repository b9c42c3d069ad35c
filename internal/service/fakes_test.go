package service

import (
	"context"
	"sync"

	"github.com/mmcdole/appshelf/internal/domain"
)

type fakeStats struct {
	stats   []domain.Stat
	err     error
	calls   int
	filters []domain.QueryFilter
}

func (f *fakeStats) QueryStats(_ context.Context, filter domain.QueryFilter) ([]domain.Stat, error) {
	f.calls++
	f.filters = append(f.filters, filter)
	return f.stats, f.err
}

type fakeMetadata struct {
	items []domain.Software
	err   error
	calls [][]string
}

func (f *fakeMetadata) GetSoftwares(_ context.Context, names []string) ([]domain.Software, error) {
	f.calls = append(f.calls, names)
	if f.err != nil {
		return nil, f.err
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	var out []domain.Software
	for _, sw := range f.items {
		if want[sw.Name] {
			out = append(out, sw)
		}
	}
	return out, nil
}

// fakeBridge implements domain.NativeBridge
type fakeBridge struct {
	mu sync.Mutex

	packages  map[string]domain.Package
	queryErr  error
	queries   [][]domain.PackageQuery
	installed map[string]bool
	jobs      map[string]*domain.Job
	checkErr  error
	checks    int

	installs [][]domain.PackageQuery
	removes  [][]domain.PackageQuery
	opened   []domain.PackageQuery
	opErr    error
	size     int64
}

func (f *fakeBridge) QueryPackages(_ context.Context, queries []domain.PackageQuery) (map[string]domain.Package, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, queries)
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	out := map[string]domain.Package{}
	for _, q := range queries {
		if p, ok := f.packages[q.Name]; ok {
			out[q.Name] = p
		}
	}
	return out, nil
}

func (f *fakeBridge) Installed(_ context.Context, name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checks++
	if f.checkErr != nil {
		return false, f.checkErr
	}
	return f.installed[name], nil
}

func (f *fakeBridge) JobByName(_ context.Context, name string) (*domain.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.jobs[name], nil
}

func (f *fakeBridge) Install(_ context.Context, queries ...domain.PackageQuery) error {
	f.installs = append(f.installs, queries)
	return f.opErr
}

func (f *fakeBridge) Remove(_ context.Context, queries ...domain.PackageQuery) error {
	f.removes = append(f.removes, queries)
	return f.opErr
}

func (f *fakeBridge) Open(_ context.Context, query domain.PackageQuery) error {
	f.opened = append(f.opened, query)
	return f.opErr
}

func (f *fakeBridge) DownloadSize(_ context.Context, _ ...domain.PackageQuery) (int64, error) {
	return f.size, f.opErr
}

func (f *fakeBridge) set(fn func(f *fakeBridge)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakeBridge) checkCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.checks
}

func software(name string) domain.Software {
	return domain.Software{
		Name: name,
		Info: domain.Info{
			Name:     name + " app",
			Packages: []domain.PackageURI{{PackageURI: "deb:" + name}},
		},
	}
}
