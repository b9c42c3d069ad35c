package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmcdole/appshelf/internal/bridge"
)

func TestLoadConfigOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("daemon:\n  socket: /run/a.sock\n  db_path: /var/lib/a\n"), 0o600))

	cfg, err := loadConfig(daemonOptions{config: path})
	require.NoError(t, err)
	assert.Equal(t, "/run/a.sock", cfg.Daemon.Socket)
	assert.Equal(t, "/var/lib/a", cfg.Daemon.DBPath)

	cfg, err = loadConfig(daemonOptions{config: path, socket: "/tmp/b.sock", dbPath: "/tmp/b"})
	require.NoError(t, err)
	assert.Equal(t, "/tmp/b.sock", cfg.Daemon.Socket)
	assert.Equal(t, "/tmp/b", cfg.Daemon.DBPath)

	_, err = loadConfig(daemonOptions{config: filepath.Join(t.TempDir(), "missing.yaml")})
	assert.Error(t, err)
}

func TestRunServesBridge(t *testing.T) {
	dir, err := os.MkdirTemp("", "shelfd")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })

	socket := filepath.Join(dir, "d.sock")
	config := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(config, []byte("logging:\n  level: error\n"), 0o600))

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		errc <- run(ctx, daemonOptions{config: config, socket: socket, dbPath: filepath.Join(dir, "db")})
	}()

	client := bridge.NewClient(socket, nil)
	defer client.Close()

	var status *bridge.StatusResponse
	deadline := time.Now().Add(3 * time.Second)
	for status == nil {
		select {
		case err := <-errc:
			if err != nil && strings.Contains(err.Error(), "operation not permitted") {
				t.Skipf("skipping daemon test: %v", err)
			}
			t.Fatalf("run returned early: %v", err)
		default:
		}
		require.True(t, time.Now().Before(deadline), "daemon never answered")
		callCtx, stop := context.WithTimeout(ctx, 200*time.Millisecond)
		status, _ = client.Status(callCtx)
		stop()
		if status == nil {
			time.Sleep(20 * time.Millisecond)
		}
	}
	assert.Equal(t, Version, status.Version)
	assert.Equal(t, os.Getpid(), status.PID)
	assert.Empty(t, status.Jobs)

	cancel()
	select {
	case err := <-errc:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("run did not return after cancel")
	}
	_, err = os.Stat(socket)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dir, "db"))
	assert.NoError(t, err)
}
