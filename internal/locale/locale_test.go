package locale

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type record struct {
	locale string
	id     int
}

func (r record) LocaleTag() string { return r.locale }

func TestRankFollowsChain(t *testing.T) {
	r := New("de_DE")
	chain := []string{"de_DE", English, Chinese}

	for i, x := range chain {
		for j, y := range chain {
			if i == j {
				continue
			}
			assert.Equal(t, i < j, r.Rank(x, y) < r.Rank(y, x), "%s vs %s", x, y)
		}
	}

	t.Run("absent locale ranks last", func(t *testing.T) {
		for _, l := range chain {
			assert.Negative(t, r.Rank(l, "fr_FR"))
			assert.Positive(t, r.Rank("fr_FR", l))
		}
		assert.Equal(t, 3, r.Position("fr_FR"))
		assert.Zero(t, r.Rank("fr_FR", "ja_JP"))
	})
}

func TestFilterPreferred(t *testing.T) {
	r := New("zh_TW")

	t.Run("target locale wins", func(t *testing.T) {
		items := []record{{English, 1}, {"zh_TW", 2}, {Chinese, 3}, {"zh_TW", 4}}
		assert.Equal(t, []record{{"zh_TW", 2}, {"zh_TW", 4}}, FilterPreferred(r, items))
	})

	t.Run("falls back to english", func(t *testing.T) {
		items := []record{{Chinese, 1}, {English, 2}, {English, 3}}
		assert.Equal(t, []record{{English, 2}, {English, 3}}, FilterPreferred(r, items))
	})

	t.Run("no safe default", func(t *testing.T) {
		items := []record{{Chinese, 1}, {"ja_JP", 2}}
		assert.Empty(t, FilterPreferred(r, items))
	})
}

func TestSortAndBest(t *testing.T) {
	r := New(Chinese)
	items := []record{{"ja_JP", 1}, {English, 2}, {Chinese, 3}, {English, 4}}

	sorted := Sort(r, items)
	assert.Equal(t, []record{{Chinese, 3}, {English, 2}, {English, 4}, {"ja_JP", 1}}, sorted)
	assert.Equal(t, record{"ja_JP", 1}, items[0], "input must not be reordered")

	best, ok := Best(r, items)
	assert.True(t, ok)
	assert.Equal(t, record{Chinese, 3}, best)

	best, ok = Best(r, []record{{English, 7}, {English, 8}})
	assert.True(t, ok)
	assert.Equal(t, 7, best.id, "ties keep input order")

	_, ok = Best[record](r, nil)
	assert.False(t, ok)
}

func TestNewDefaultsToEnglish(t *testing.T) {
	r := New("")
	assert.Equal(t, English, r.Target())
	assert.Equal(t, []string{English, English, Chinese}, r.Chain())
}

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"zh_CN":       "zh_CN",
		"zh-CN":       "zh_CN",
		"zh_CN.UTF-8": "zh_CN",
		"en":          "en_US",
		"de_DE@euro":  "de_DE",
		"C":           "",
		"":            "",
	}
	for in, want := range cases {
		assert.Equal(t, want, Normalize(in), in)
	}
}
