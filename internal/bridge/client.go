// Package bridge connects the catalog to the local store daemon over
// JSON-RPC on a Unix domain socket.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"sync"
	"time"

	"github.com/mmcdole/appshelf/internal/domain"
)

const dialTimeout = 2 * time.Second

// Client provides RPC access to the store daemon. It connects lazily and
// redials once after the connection drops. Client implements domain.NativeBridge.
type Client struct {
	path   string
	logger *slog.Logger

	mu     sync.Mutex
	conn   net.Conn
	client *rpc.Client
}

// NewClient creates a client for the socket path without connecting
func NewClient(path string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{path: path, logger: logger}
}

// Dial connects to the daemon at the socket path
func Dial(path string, logger *slog.Logger) (*Client, error) {
	c := NewClient(path, logger)
	if _, err := c.connect(); err != nil {
		return nil, err
	}
	return c, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeLocked()
}

func (c *Client) closeLocked() error {
	var err error
	if c.client != nil {
		err = c.client.Close()
		c.client = nil
	}
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	if errors.Is(err, rpc.ErrShutdown) {
		return nil
	}
	return err
}

func (c *Client) connect() (*rpc.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != nil {
		return c.client, nil
	}
	conn, err := net.DialTimeout("unix", c.path, dialTimeout)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrNativeUnavailable, err)
	}
	c.conn = conn
	c.client = rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return c.client, nil
}

// reset drops rc if it is still the current connection
func (c *Client) reset(rc *rpc.Client) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client == rc {
		_ = c.closeLocked()
	}
}

// call invokes method, honouring ctx. A dropped connection is redialed once.
func (c *Client) call(ctx context.Context, method string, args, reply any) error {
	for attempt := 0; ; attempt++ {
		rc, err := c.connect()
		if err != nil {
			return err
		}

		call := rc.Go(ServiceName+"."+method, args, reply, make(chan *rpc.Call, 1))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-call.Done:
		}

		if !isConnError(call.Error) {
			return call.Error
		}
		c.reset(rc)
		if attempt > 0 {
			return fmt.Errorf("%w: %v", domain.ErrNativeUnavailable, call.Error)
		}
		c.logger.Debug("bridge connection lost, redialing", "method", method, "error", call.Error)
	}
}

func isConnError(err error) bool {
	return errors.Is(err, rpc.ErrShutdown) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, net.ErrClosed)
}

// QueryPackages resolves entries against the local package system
func (c *Client) QueryPackages(ctx context.Context, queries []domain.PackageQuery) (map[string]domain.Package, error) {
	var resp QueryPackagesResponse
	if err := c.call(ctx, "QueryPackages", QueryPackagesRequest{Queries: queries}, &resp); err != nil {
		return nil, err
	}
	if resp.Packages == nil {
		resp.Packages = map[string]domain.Package{}
	}
	return resp.Packages, nil
}

// Installed reports whether the entry is installed
func (c *Client) Installed(ctx context.Context, name string) (bool, error) {
	var resp AppInstalledResponse
	if err := c.call(ctx, "AppInstalled", AppInstalledRequest{Name: name}, &resp); err != nil {
		return false, err
	}
	return resp.Installed, nil
}

// JobByName returns the active job touching name, or nil
func (c *Client) JobByName(ctx context.Context, name string) (*domain.Job, error) {
	var resp GetJobByNameResponse
	if err := c.call(ctx, "GetJobByName", GetJobByNameRequest{Name: name}, &resp); err != nil {
		return nil, err
	}
	return resp.Job, nil
}

// Install queues installation and waits for the daemon to accept it
func (c *Client) Install(ctx context.Context, queries ...domain.PackageQuery) error {
	_, err := c.InstallJob(ctx, queries...)
	return err
}

// InstallJob queues installation and returns the created job
func (c *Client) InstallJob(ctx context.Context, queries ...domain.PackageQuery) (domain.Job, error) {
	var resp JobResponse
	if err := c.call(ctx, "InstallPackages", PackagesRequest{Queries: queries}, &resp); err != nil {
		return domain.Job{}, err
	}
	return resp.Job, nil
}

// Remove queues removal and waits for the daemon to accept it
func (c *Client) Remove(ctx context.Context, queries ...domain.PackageQuery) error {
	var resp JobResponse
	return c.call(ctx, "RemovePackages", PackagesRequest{Queries: queries}, &resp)
}

// Open launches an installed entry
func (c *Client) Open(ctx context.Context, query domain.PackageQuery) error {
	var resp OpenAppResponse
	return c.call(ctx, "OpenApp", OpenAppRequest{Query: query}, &resp)
}

// DownloadSize returns the bytes an install of the entries would download
func (c *Client) DownloadSize(ctx context.Context, queries ...domain.PackageQuery) (int64, error) {
	var resp QueryDownloadSizeResponse
	if err := c.call(ctx, "QueryDownloadSize", QueryDownloadSizeRequest{Queries: queries}, &resp); err != nil {
		return 0, err
	}
	return resp.Size, nil
}

// Status returns the daemon version and its job list
func (c *Client) Status(ctx context.Context) (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.call(ctx, "Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
