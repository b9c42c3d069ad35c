package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mmcdole/appshelf/internal/domain"
)

func TestUniqueNames(t *testing.T) {
	assert.Equal(t, []string{"foo", "bar"}, UniqueNames([]string{"foo", "bar", "foo", "bar"}))
	assert.Empty(t, UniqueNames(nil))
}

func TestIndexStatsKeepsResponseOrder(t *testing.T) {
	index, order := IndexStats([]domain.Stat{{Name: "b", Download: 1}, {Name: "a"}, {Name: "b", Download: 9}})
	assert.Equal(t, []string{"b", "a"}, order)
	assert.Equal(t, 1, index["b"].Download)
}

func TestWithStatDoesNotMutate(t *testing.T) {
	sw := software("vim")
	stats := map[string]domain.Stat{"vim": {Name: "vim", Score: 5}}

	merged := WithStat(sw, stats)
	assert.Nil(t, sw.Stat)
	if assert.NotNil(t, merged.Stat) {
		assert.Equal(t, 5.0, merged.Stat.Score)
	}
	assert.Nil(t, WithStat(software("curl"), stats).Stat)
	assert.Nil(t, WithStat(sw, nil).Stat)
}

func TestWithPackage(t *testing.T) {
	pkgs := map[string]domain.Package{"vim": {AppName: "vim", Installed: true}}
	merged := WithPackage(software("vim"), pkgs)
	assert.True(t, merged.IsInstalled())
	assert.False(t, WithPackage(software("curl"), pkgs).IsInstalled())
}

func TestToQuery(t *testing.T) {
	sw := software("vim")
	q := ToQuery(sw)
	assert.Equal(t, domain.PackageQuery{
		Name:      "vim",
		LocalName: "vim app",
		Packages:  []domain.PackageURI{{PackageURI: "deb:vim"}},
	}, q)

	q.Packages[0].PackageURI = "changed"
	assert.Equal(t, "deb:vim", sw.Info.Packages[0].PackageURI)
}

func TestOrderByNames(t *testing.T) {
	index := IndexSoftwares([]domain.Software{software("a"), software("b"), software("c")})
	out := OrderByNames([]string{"c", "missing", "a"}, index)
	assert.Equal(t, []string{"c", "a"}, entryNames(out))
}
