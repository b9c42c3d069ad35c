package bridge

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmcdole/appshelf/internal/domain"
)

type fakeBackend struct {
	mu        sync.Mutex
	installed map[string]bool
	installs  [][]domain.PackageQuery
	opened    []domain.PackageQuery
	block     chan struct{}
}

func (f *fakeBackend) QueryPackages(_ context.Context, queries []domain.PackageQuery) (map[string]domain.Package, error) {
	out := map[string]domain.Package{}
	for _, q := range queries {
		if len(q.Packages) > 0 {
			out[q.Name] = domain.Package{AppName: q.Name, PackageURI: q.Packages[0].PackageURI}
		}
	}
	return out, nil
}

func (f *fakeBackend) Installed(_ context.Context, name string) (bool, error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.installed[name], nil
}

func (f *fakeBackend) JobByName(_ context.Context, name string) (*domain.Job, error) {
	if name == "busy" {
		return &domain.Job{ID: "j1", Names: []string{"busy"}, Status: domain.JobRunning}, nil
	}
	return nil, nil
}

func (f *fakeBackend) Install(_ context.Context, queries []domain.PackageQuery) (domain.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.installs = append(f.installs, queries)
	return domain.Job{ID: "j2", Type: domain.JobInstall, Status: domain.JobQueued}, nil
}

func (f *fakeBackend) Remove(_ context.Context, _ []domain.PackageQuery) (domain.Job, error) {
	return domain.Job{}, domain.ErrSoftwareNotFound
}

func (f *fakeBackend) Open(_ context.Context, query domain.PackageQuery) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opened = append(f.opened, query)
	return nil
}

func (f *fakeBackend) DownloadSize(_ context.Context, queries []domain.PackageQuery) (int64, error) {
	return int64(len(queries)) * 1024, nil
}

func (f *fakeBackend) Jobs(context.Context) ([]domain.Job, error) {
	return []domain.Job{{ID: "j1"}}, nil
}

func (f *fakeBackend) Version() string { return "test" }

func socketPath(t *testing.T) string {
	t.Helper()
	// Unix socket paths are length limited; keep it short.
	dir, err := os.MkdirTemp("", "shelf")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	return filepath.Join(dir, "d.sock")
}

func startServer(t *testing.T, backend Backend) string {
	t.Helper()
	path := socketPath(t)
	srv, err := NewServer(context.Background(), path, backend, nil)
	if err != nil {
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping bridge test: %v", err)
		}
		require.NoError(t, err)
	}
	srv.Serve()
	t.Cleanup(srv.Close)
	return path
}

func TestClientServerRoundTrip(t *testing.T) {
	backend := &fakeBackend{installed: map[string]bool{"vim": true}}
	path := startServer(t, backend)

	client, err := Dial(path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	ctx := context.Background()
	query := domain.PackageQuery{Name: "vim", LocalName: "Vim", Packages: []domain.PackageURI{{PackageURI: "deb:vim"}}}

	pkgs, err := client.QueryPackages(ctx, []domain.PackageQuery{query, {Name: "none"}})
	require.NoError(t, err)
	assert.Equal(t, map[string]domain.Package{"vim": {AppName: "vim", PackageURI: "deb:vim"}}, pkgs)

	installed, err := client.Installed(ctx, "vim")
	require.NoError(t, err)
	assert.True(t, installed)

	job, err := client.JobByName(ctx, "busy")
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.True(t, job.Active())

	job, err = client.JobByName(ctx, "idle")
	require.NoError(t, err)
	assert.Nil(t, job)

	created, err := client.InstallJob(ctx, query)
	require.NoError(t, err)
	assert.Equal(t, "j2", created.ID)
	require.NoError(t, client.Install(ctx, query))

	require.NoError(t, client.Open(ctx, query))

	size, err := client.DownloadSize(ctx, query, query)
	require.NoError(t, err)
	assert.EqualValues(t, 2048, size)

	err = client.Remove(ctx, query)
	require.Error(t, err)
	assert.Contains(t, err.Error(), domain.ErrSoftwareNotFound.Error())

	status, err := client.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, "test", status.Version)
	assert.Len(t, status.Jobs, 1)

	backend.mu.Lock()
	defer backend.mu.Unlock()
	assert.Len(t, backend.installs, 2)
	assert.Equal(t, []domain.PackageQuery{query}, backend.opened)
}

func TestClientImplementsNativeBridge(t *testing.T) {
	var _ domain.NativeBridge = (*Client)(nil)
}

func TestClientUnavailable(t *testing.T) {
	client := NewClient(filepath.Join(t.TempDir(), "missing.sock"), nil)
	_, err := client.Installed(context.Background(), "vim")
	assert.ErrorIs(t, err, domain.ErrNativeUnavailable)

	_, err = Dial(filepath.Join(t.TempDir(), "missing.sock"), nil)
	assert.ErrorIs(t, err, domain.ErrNativeUnavailable)
}

func TestClientRedialsAfterDrop(t *testing.T) {
	path := startServer(t, &fakeBackend{})

	client, err := Dial(path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	client.mu.Lock()
	_ = client.conn.Close()
	client.mu.Unlock()

	installed, err := client.Installed(context.Background(), "vim")
	require.NoError(t, err)
	assert.False(t, installed)
}

func TestClientHonoursContext(t *testing.T) {
	backend := &fakeBackend{block: make(chan struct{})}
	path := startServer(t, backend)

	client, err := Dial(path, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		close(backend.block)
		client.Close()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = client.Installed(ctx, "vim")
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestServerCloseDropsClients(t *testing.T) {
	path := socketPath(t)
	srv, err := NewServer(context.Background(), path, &fakeBackend{}, nil)
	if err != nil {
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping bridge test: %v", err)
		}
		require.NoError(t, err)
	}
	srv.Serve()

	client, err := Dial(path, nil)
	require.NoError(t, err)
	defer client.Close()
	_, err = client.Status(context.Background())
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		srv.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Close blocked on a connected client")
	}
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}
