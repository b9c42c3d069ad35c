package service

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmcdole/appshelf/internal/adapter"
	"github.com/mmcdole/appshelf/internal/domain"
)

func newCatalog(stats *fakeStats, meta *fakeMetadata, native *fakeBridge) *CatalogService {
	if native == nil {
		return NewCatalogService(stats, meta, nil, adapter.NullLogger())
	}
	return NewCatalogService(stats, meta, native, adapter.NullLogger())
}

func TestListCollapsesDuplicateNames(t *testing.T) {
	stats := &fakeStats{}
	meta := &fakeMetadata{items: []domain.Software{software("foo")}}

	filter := domain.QueryFilter{Names: []string{"foo", "foo"}}
	items, err := newCatalog(stats, meta, nil).List(context.Background(), filter)
	require.NoError(t, err)

	assert.Equal(t, []string{"foo"}, entryNames(items))
	assert.Zero(t, stats.calls, "stat query skipped without FilterStat")
	require.Len(t, meta.calls, 1)
	assert.Equal(t, []string{"foo"}, meta.calls[0])
	assert.Nil(t, items[0].Stat)
}

func TestListUsesStatNamesWhenNoneRequested(t *testing.T) {
	stats := &fakeStats{stats: []domain.Stat{{Name: "bar", Download: 10}}}
	meta := &fakeMetadata{items: []domain.Software{software("bar"), software("baz")}}

	filter := domain.QueryFilter{FilterStat: true, Order: domain.OrderDownload}
	items, err := newCatalog(stats, meta, nil).List(context.Background(), filter)
	require.NoError(t, err)

	require.Len(t, meta.calls, 1)
	assert.Equal(t, []string{"bar"}, meta.calls[0])
	require.Len(t, items, 1)
	require.NotNil(t, items[0].Stat)
	assert.Equal(t, 10, items[0].Stat.Download)
}

func TestListShortCircuitsOnEmptyStats(t *testing.T) {
	stats := &fakeStats{stats: []domain.Stat{}}
	meta := &fakeMetadata{items: []domain.Software{software("foo")}}

	filter := domain.DefaultFilter()
	filter.Names = []string{"foo"}
	items, err := newCatalog(stats, meta, &fakeBridge{}).List(context.Background(), filter)
	require.NoError(t, err)

	assert.Empty(t, items)
	assert.Empty(t, meta.calls, "metadata must not be queried")
}

func TestListOrderFollowsNarrowedNames(t *testing.T) {
	// Stat response order differs from the requested order.
	stats := &fakeStats{stats: []domain.Stat{{Name: "c"}, {Name: "a"}, {Name: "b"}}}
	meta := &fakeMetadata{items: []domain.Software{software("a"), software("b"), software("c")}}

	filter := domain.QueryFilter{FilterStat: true, Names: []string{"b", "x", "a", "c"}}
	items, err := newCatalog(stats, meta, nil).List(context.Background(), filter)
	require.NoError(t, err)

	assert.Equal(t, []string{"b", "a", "c"}, entryNames(items))
	require.Len(t, stats.filters, 1)
	assert.Equal(t, []string{"b", "x", "a", "c"}, stats.filters[0].Names)

	// Without requested names the stat order is authoritative.
	filter.Names = nil
	items, err = newCatalog(stats, meta, nil).List(context.Background(), filter)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a", "b"}, entryNames(items))
}

func TestListDropsNamesWithoutMetadata(t *testing.T) {
	stats := &fakeStats{stats: []domain.Stat{{Name: "a"}, {Name: "ghost"}}}
	meta := &fakeMetadata{items: []domain.Software{software("a")}}

	items, err := newCatalog(stats, meta, nil).List(context.Background(), domain.QueryFilter{FilterStat: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, entryNames(items))
}

func TestListAttachesPackages(t *testing.T) {
	stats := &fakeStats{stats: []domain.Stat{{Name: "b"}, {Name: "a"}}}
	meta := &fakeMetadata{items: []domain.Software{software("a"), software("b")}}
	native := &fakeBridge{packages: map[string]domain.Package{
		"a": {AppName: "a", PackageName: "a", Installed: true},
	}}

	filter := domain.QueryFilter{FilterStat: true}
	items, err := newCatalog(stats, meta, native).List(context.Background(), filter)
	require.NoError(t, err)

	assert.Equal(t, []string{"b", "a"}, entryNames(items))
	assert.Nil(t, items[0].Package)
	assert.True(t, items[1].IsInstalled())

	require.Len(t, native.queries, 1)
	assert.Equal(t, []domain.PackageQuery{ToQuery(software("b")), ToQuery(software("a"))}, native.queries[0])

	filter.FilterPackage = true
	items, err = newCatalog(stats, meta, native).List(context.Background(), filter)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, entryNames(items))
}

func TestListSkipsPackageQueryWithoutEntries(t *testing.T) {
	stats := &fakeStats{stats: []domain.Stat{{Name: "ghost"}}}
	native := &fakeBridge{}

	items, err := newCatalog(stats, &fakeMetadata{}, native).List(context.Background(), domain.DefaultFilter())
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Empty(t, native.queries)
}

func TestListAbortsOnCollaboratorFailure(t *testing.T) {
	boom := errors.New("boom")

	t.Run("stats", func(t *testing.T) {
		meta := &fakeMetadata{}
		_, err := newCatalog(&fakeStats{err: boom}, meta, nil).List(context.Background(), domain.DefaultFilter())
		assert.ErrorIs(t, err, boom)
		assert.Empty(t, meta.calls)
	})

	t.Run("metadata", func(t *testing.T) {
		stats := &fakeStats{stats: []domain.Stat{{Name: "a"}}}
		items, err := newCatalog(stats, &fakeMetadata{err: boom}, nil).List(context.Background(), domain.DefaultFilter())
		assert.ErrorIs(t, err, boom)
		assert.Nil(t, items)
	})

	t.Run("packages", func(t *testing.T) {
		stats := &fakeStats{stats: []domain.Stat{{Name: "a"}}}
		meta := &fakeMetadata{items: []domain.Software{software("a")}}
		items, err := newCatalog(stats, meta, &fakeBridge{queryErr: boom}).List(context.Background(), domain.DefaultFilter())
		assert.ErrorIs(t, err, boom)
		assert.Nil(t, items)
	})
}

func TestListFailureLogsBelowError(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	catalog := NewCatalogService(&fakeStats{err: errors.New("boom")}, &fakeMetadata{}, nil, logger)

	_, err := catalog.List(context.Background(), domain.DefaultFilter())
	require.Error(t, err)
	assert.Contains(t, buf.String(), "level=WARN")
	assert.NotContains(t, buf.String(), "level=ERROR")
}

func TestGet(t *testing.T) {
	meta := &fakeMetadata{items: []domain.Software{software("vim")}}
	c := newCatalog(&fakeStats{}, meta, &fakeBridge{})

	sw, err := c.Get(context.Background(), "vim")
	require.NoError(t, err)
	assert.Equal(t, "vim", sw.Name)

	_, err = c.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrSoftwareNotFound)
}

func TestOperationsRequireNative(t *testing.T) {
	c := newCatalog(&fakeStats{}, &fakeMetadata{}, nil)
	ctx := context.Background()
	sw := software("vim")

	assert.False(t, c.Native())
	_, err := c.Size(ctx, sw)
	assert.ErrorIs(t, err, domain.ErrNativeUnavailable)
	assert.ErrorIs(t, c.Open(ctx, sw), domain.ErrNativeUnavailable)
	assert.ErrorIs(t, c.Install(ctx, sw), domain.ErrNativeUnavailable)
	assert.ErrorIs(t, c.Remove(ctx, sw), domain.ErrNativeUnavailable)
}

func TestOperationsForwardQueries(t *testing.T) {
	native := &fakeBridge{size: 2048}
	c := newCatalog(&fakeStats{}, &fakeMetadata{}, native)
	ctx := context.Background()
	a, b := software("a"), software("b")

	size, err := c.Size(ctx, a)
	require.NoError(t, err)
	assert.EqualValues(t, 2048, size)

	require.NoError(t, c.Install(ctx, a, b))
	require.NoError(t, c.Remove(ctx, b))
	require.NoError(t, c.Open(ctx, a))
	require.NoError(t, c.Install(ctx))

	assert.Equal(t, [][]domain.PackageQuery{{ToQuery(a), ToQuery(b)}}, native.installs)
	assert.Equal(t, [][]domain.PackageQuery{{ToQuery(b)}}, native.removes)
	assert.Equal(t, []domain.PackageQuery{ToQuery(a)}, native.opened)

	native.opErr = errors.New("denied")
	err = c.Install(ctx, a)
	var opErr *domain.OpError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, "install", opErr.Op)
	assert.Equal(t, []string{"a"}, opErr.Names)
}
