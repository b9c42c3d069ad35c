package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmcdole/appshelf/internal/domain"
)

func openStores(t *testing.T) map[string]*PackageStore {
	t.Helper()
	disk, err := Open(t.TempDir())
	require.NoError(t, err)
	mem, err := Open("")
	require.NoError(t, err)
	t.Cleanup(func() {
		disk.Close()
		mem.Close()
	})
	return map[string]*PackageStore{"disk": disk, "memory": mem}
}

func TestRecords(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			_, ok := s.GetRecord("vim")
			assert.False(t, ok)

			require.NoError(t, s.SaveRecord(Record{AppName: "vim", PackageName: "vim", Version: "9.1"}))
			require.NoError(t, s.SaveRecord(Record{AppName: "curl", PackageName: "curl"}))
			require.Error(t, s.SaveRecord(Record{}))

			r, ok := s.GetRecord("vim")
			require.True(t, ok)
			assert.Equal(t, "9.1", r.Version)

			records, err := s.Records()
			require.NoError(t, err)
			require.Len(t, records, 2)
			assert.Equal(t, "curl", records[0].AppName)

			require.NoError(t, s.DeleteRecord("vim"))
			_, ok = s.GetRecord("vim")
			assert.False(t, ok)
		})
	}
}

func TestJobs(t *testing.T) {
	now := time.Now()
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.SaveJob(domain.Job{ID: "b", Names: []string{"vim"}, Status: domain.JobRunning, CreatedAt: now}))
			require.NoError(t, s.SaveJob(domain.Job{ID: "a", Names: []string{"curl"}, Status: domain.JobQueued, CreatedAt: now.Add(time.Second)}))

			j, ok := s.GetJob("b")
			require.True(t, ok)
			assert.True(t, j.Touches("vim"))

			jobs, err := s.Jobs()
			require.NoError(t, err)
			require.Len(t, jobs, 2)
			assert.Equal(t, "b", jobs[0].ID, "oldest first")

			require.NoError(t, s.DeleteJob("b"))
			jobs, err = s.Jobs()
			require.NoError(t, err)
			assert.Len(t, jobs, 1)

			require.NoError(t, s.ClearJobs())
			jobs, err = s.Jobs()
			require.NoError(t, err)
			assert.Empty(t, jobs)
			_, ok = s.GetJob("a")
			assert.False(t, ok)
		})
	}
}

func TestPersistsAcrossOpen(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)
	assert.True(t, s.Persistent())
	require.NoError(t, s.SaveRecord(Record{AppName: "vim", Version: "9.1"}))
	require.NoError(t, s.Close())

	s, err = Open(dir)
	require.NoError(t, err)
	defer s.Close()

	r, ok := s.GetRecord("vim")
	require.True(t, ok)
	assert.Equal(t, "9.1", r.Version)
}
