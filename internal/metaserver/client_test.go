package metaserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmcdole/appshelf/internal/adapter"
	"github.com/mmcdole/appshelf/internal/domain"
	"github.com/mmcdole/appshelf/internal/locale"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient(Config{
		MetadataURL:  srv.URL + "/",
		OperationURL: srv.URL,
		Timeout:      time.Second,
	}, newNormalizer(locale.English, 1), adapter.NullLogger())
	return c, srv
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestStatQueryOmitsZeroFields(t *testing.T) {
	q := StatQuery(domain.QueryFilter{Order: domain.OrderScore, Limit: 5, Names: []string{"b", "a"}})
	assert.Equal(t, url.Values{
		"order": {"score"},
		"limit": {"5"},
		"names": {"b", "a"},
	}, q)

	assert.Empty(t, StatQuery(domain.QueryFilter{}))
}

func TestSoftwareQuerySortsNames(t *testing.T) {
	names := []string{"zsh", "curl", "vim"}
	q := SoftwareQuery(names)

	assert.Equal(t, []string{"curl", "vim", "zsh"}, q["names"])
	assert.Equal(t, []string{"info", "desc", "tags", "images"}, q["preloads"])
	assert.Equal(t, []string{"zsh", "curl", "vim"}, names, "caller slice untouched")
}

func TestQueryStats(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, appsPath, r.URL.Path)
		assert.Equal(t, "download", r.URL.Query().Get("order"))
		assert.False(t, r.URL.Query().Has("offset"))
		writeJSON(t, w, []StatDTO{{Name: "vim", Score: 4.8, ScoreCount: 12, Download: 300}})
	})

	stats, err := c.QueryStats(context.Background(), domain.QueryFilter{Order: domain.OrderDownload})
	require.NoError(t, err)
	assert.Equal(t, []domain.Stat{{Name: "vim", Score: 4.8, ScoreCount: 12, Download: 300}}, stats)
}

func TestGetSoftwares(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, appsPath, r.URL.Path)
		assert.Equal(t, []string{"curl", "vim"}, r.URL.Query()["names"])
		writeJSON(t, w, []SoftwareDTO{sampleDTO()})
	})

	items, err := c.GetSoftwares(context.Background(), []string{"vim", "curl"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Vim", items[0].Info.Name)
	assert.Equal(t, mediaBase+"/vim/cover.png", items[0].Info.Cover)
}

func TestGetSoftwaresMalformedRecord(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		dto := sampleDTO()
		dto.Info.Extra = "not json"
		writeJSON(t, w, []SoftwareDTO{dto})
	})

	_, err := c.GetSoftwares(context.Background(), []string{"vim"})
	assert.ErrorIs(t, err, domain.ErrMalformedPayload)
}

func TestGetPackagesURL(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, packagesPath, r.URL.Path)
		_, _ = w.Write([]byte(`{"vim":{"name":"vim"},"code":{"name":"code-oss"}}`))
	})

	urls, err := c.GetPackagesURL(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "code-oss", urls["code"].Name)
	assert.Len(t, urls, 2)
}

func TestClientErrors(t *testing.T) {
	t.Run("unexpected status", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		})
		_, err := c.QueryStats(context.Background(), domain.DefaultFilter())
		assert.ErrorIs(t, err, domain.ErrUnexpectedStatus)
	})

	t.Run("malformed body", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"not":"a list"}`))
		})
		_, err := c.QueryStats(context.Background(), domain.DefaultFilter())
		assert.ErrorIs(t, err, domain.ErrMalformedPayload)
	})

	t.Run("offline", func(t *testing.T) {
		c, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
		srv.Close()
		_, err := c.GetSoftwares(context.Background(), []string{"vim"})
		assert.ErrorIs(t, err, domain.ErrServerOffline)
	})

	t.Run("cancelled", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(t, w, []StatDTO{})
		})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := c.QueryStats(ctx, domain.DefaultFilter())
		assert.ErrorIs(t, err, context.Canceled)
	})
}
