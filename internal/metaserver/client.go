// Package metaserver talks to the store's metadata and operation servers and
// normalizes what they return into domain entries.
package metaserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/mmcdole/appshelf/internal/domain"
)

const (
	defaultTimeout = 30 * time.Second
	userAgent      = "appshelf/1.0"
	appsPath       = "/api/v3/apps"
	packagesPath   = "/api/v3/packages"
)

// preloads are the relations the metadata server attaches to every listed app
var preloads = []string{"info", "desc", "tags", "images"}

// Client implements domain.StatRepository and domain.MetadataRepository
type Client struct {
	metadata   *resty.Client
	operation  *resty.Client
	normalizer *Normalizer
	logger     *slog.Logger
}

// Config holds the server endpoints
type Config struct {
	MetadataURL  string
	OperationURL string
	Timeout      time.Duration
}

// NewClient creates a client for both servers. Records are normalized with n.
func NewClient(cfg Config, n *Normalizer, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if n == nil {
		n = NewNormalizer(nil, nil)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		metadata:   newResty(cfg.MetadataURL, timeout),
		operation:  newResty(cfg.OperationURL, timeout),
		normalizer: n,
		logger:     logger,
	}
}

func newResty(baseURL string, timeout time.Duration) *resty.Client {
	return resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", userAgent)
}

// doRequest performs a GET and returns the body of a 200 response
func (c *Client) doRequest(ctx context.Context, rc *resty.Client, path string, query url.Values) ([]byte, error) {
	c.logger.Debug("store request", "base", rc.BaseURL, "path", path, "query", query.Encode())

	resp, err := rc.R().
		SetContext(ctx).
		SetQueryParamsFromValues(query).
		Get(path)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.logger.Error("store request failed", "path", path, "error", err)
		return nil, fmt.Errorf("%w: %v", domain.ErrServerOffline, err)
	}

	if resp.StatusCode() != http.StatusOK {
		c.logger.Error("store request error", "path", path, "status", resp.StatusCode(), "body", resp.String())
		return nil, fmt.Errorf("%w: %s %d", domain.ErrUnexpectedStatus, path, resp.StatusCode())
	}
	return resp.Body(), nil
}

// QueryStats returns popularity stats for the filter from the operation server.
// Zero-valued filter fields are omitted from the query.
func (c *Client) QueryStats(ctx context.Context, filter domain.QueryFilter) ([]domain.Stat, error) {
	body, err := c.doRequest(ctx, c.operation, appsPath, StatQuery(filter))
	if err != nil {
		return nil, err
	}

	var dtos []StatDTO
	if err := json.Unmarshal(body, &dtos); err != nil {
		return nil, fmt.Errorf("%w: decode stats: %v", domain.ErrMalformedPayload, err)
	}
	return MapStats(dtos), nil
}

// GetSoftwares fetches and normalizes the named entries from the metadata server.
// Names are sent sorted so equal requests share a cache key upstream.
func (c *Client) GetSoftwares(ctx context.Context, names []string) ([]domain.Software, error) {
	body, err := c.doRequest(ctx, c.metadata, appsPath, SoftwareQuery(names))
	if err != nil {
		return nil, err
	}

	var dtos []SoftwareDTO
	if err := json.Unmarshal(body, &dtos); err != nil {
		return nil, fmt.Errorf("%w: decode apps: %v", domain.ErrMalformedPayload, err)
	}

	items, err := c.normalizer.MapSoftwares(dtos)
	if err != nil {
		c.logger.Warn("normalize failed", "error", err)
		return nil, err
	}
	return items, nil
}

// GetPackagesURL returns the package descriptor of every app on the metadata server
func (c *Client) GetPackagesURL(ctx context.Context) (domain.PackagesURL, error) {
	body, err := c.doRequest(ctx, c.metadata, packagesPath, nil)
	if err != nil {
		return nil, err
	}

	var urls domain.PackagesURL
	if err := json.Unmarshal(body, &urls); err != nil {
		return nil, fmt.Errorf("%w: decode packages: %v", domain.ErrMalformedPayload, err)
	}
	if urls == nil {
		urls = domain.PackagesURL{}
	}
	return urls, nil
}

// StatQuery builds the stat query string, leaving out zero-valued fields
func StatQuery(filter domain.QueryFilter) url.Values {
	q := url.Values{}
	setIf := func(key, value string) {
		if value != "" {
			q.Set(key, value)
		}
	}
	setIf("order", string(filter.Order))
	if filter.Offset != 0 {
		q.Set("offset", strconv.Itoa(filter.Offset))
	}
	if filter.Limit != 0 {
		q.Set("limit", strconv.Itoa(filter.Limit))
	}
	setIf("category", filter.Category)
	setIf("tag", filter.Tag)
	setIf("keyword", filter.Keyword)
	setIf("author", filter.Author)
	setIf("packager", filter.Packager)
	for _, name := range filter.Names {
		q.Add("names", name)
	}
	return q
}

// SoftwareQuery builds the metadata query string for names
func SoftwareQuery(names []string) url.Values {
	sorted := slices.Clone(names)
	slices.Sort(sorted)

	q := url.Values{}
	for _, name := range sorted {
		q.Add("names", name)
	}
	for _, p := range preloads {
		q.Add("preloads", p)
	}
	return q
}
