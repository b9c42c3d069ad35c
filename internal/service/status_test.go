package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmcdole/appshelf/internal/adapter"
	"github.com/mmcdole/appshelf/internal/domain"
)

const tick = 5 * time.Millisecond

func newTracker(b *fakeBridge) *StatusTracker {
	return NewStatusTracker(b, b, WithInterval(tick), WithLogger(adapter.NullLogger()))
}

func next(t *testing.T, sub *Subscription) StatusUpdate {
	t.Helper()
	select {
	case u, ok := <-sub.C:
		require.True(t, ok, "subscription closed")
		return u
	case <-time.After(time.Second):
		t.Fatal("no status update")
		return StatusUpdate{}
	}
}

// waitFor reads updates until one satisfies match
func waitFor(t *testing.T, sub *Subscription, match func(StatusUpdate) bool) {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		select {
		case u, ok := <-sub.C:
			require.True(t, ok, "subscription closed")
			if match(u) {
				return
			}
		case <-deadline:
			t.Fatal("condition not reached")
		}
	}
}

func hasStatus(status domain.InstallStatus) func(StatusUpdate) bool {
	return func(u StatusUpdate) bool { return u.Err == nil && u.Status == status }
}

func TestTrackerReportsReady(t *testing.T) {
	b := &fakeBridge{}
	tr := newTracker(b)
	defer tr.Close()

	sub := tr.Subscribe("vim")
	defer sub.Close()

	for i := 0; i < 3; i++ {
		u := next(t, sub)
		require.NoError(t, u.Err)
		assert.Equal(t, "vim", u.Name)
		assert.Equal(t, domain.StatusReady, u.Status)
	}
}

func TestTrackerFinishWinsOverJobs(t *testing.T) {
	b := &fakeBridge{jobs: map[string]*domain.Job{
		"vim": {ID: "1", Names: []string{"vim"}, Status: domain.JobRunning},
	}}
	tr := newTracker(b)
	defer tr.Close()

	sub := tr.Subscribe("vim")
	defer sub.Close()

	waitFor(t, sub, hasStatus(domain.StatusRunning))

	b.set(func(f *fakeBridge) { f.installed = map[string]bool{"vim": true} })
	waitFor(t, sub, hasStatus(domain.StatusFinish))

	for i := 0; i < 3; i++ {
		assert.Equal(t, domain.StatusFinish, next(t, sub).Status)
	}
}

func TestTrackerIgnoresFinishedJobs(t *testing.T) {
	b := &fakeBridge{jobs: map[string]*domain.Job{
		"vim": {ID: "1", Names: []string{"vim"}, Status: domain.JobFailed},
	}}
	status, err := newTracker(b).Evaluate(context.Background(), "vim")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusReady, status)
}

func TestTrackerContinuesAfterError(t *testing.T) {
	boom := errors.New("socket reset")
	b := &fakeBridge{checkErr: boom}
	tr := newTracker(b)
	defer tr.Close()

	sub := tr.Subscribe("vim")
	defer sub.Close()

	u := next(t, sub)
	assert.ErrorIs(t, u.Err, boom)

	b.set(func(f *fakeBridge) { f.checkErr = nil })
	waitFor(t, sub, hasStatus(domain.StatusReady))
}

func TestTrackerSharesOneLoop(t *testing.T) {
	b := &fakeBridge{}
	tr := NewStatusTracker(b, b, WithInterval(time.Hour), WithLogger(adapter.NullLogger()))
	defer tr.Close()

	first := tr.Subscribe("vim")
	defer first.Close()
	require.Equal(t, domain.StatusReady, next(t, first).Status)

	second := tr.Subscribe("vim")
	defer second.Close()

	u := next(t, second)
	assert.Equal(t, domain.StatusReady, u.Status, "latest value replayed to late subscriber")
	assert.Equal(t, 1, tr.Active())
	assert.Equal(t, 1, b.checkCount(), "late subscriber must not trigger another poll")
}

func TestTrackerStopsAfterLastClose(t *testing.T) {
	b := &fakeBridge{}
	tr := newTracker(b)
	defer tr.Close()

	a := tr.Subscribe("vim")
	c := tr.Subscribe("vim")
	next(t, a)

	a.Close()
	assert.Equal(t, 1, tr.Active())
	for range a.C {
	}

	c.Close()
	c.Close()
	assert.Zero(t, tr.Active())

	checks := b.checkCount()
	time.Sleep(10 * tick)
	assert.Equal(t, checks, b.checkCount(), "no polling after the last subscriber left")
}

func TestTrackerClose(t *testing.T) {
	tr := newTracker(&fakeBridge{})
	sub := tr.Subscribe("vim")
	tr.Close()

	assert.Eventually(t, func() bool {
		select {
		case _, ok := <-sub.C:
			return !ok
		default:
			return false
		}
	}, time.Second, tick)

	late := tr.Subscribe("curl")
	_, ok := <-late.C
	assert.False(t, ok)
	sub.Close()
}

func TestDistinct(t *testing.T) {
	in := make(chan StatusUpdate, 8)
	boom := errors.New("boom")
	for _, u := range []StatusUpdate{
		{Status: domain.StatusReady},
		{Status: domain.StatusReady},
		{Err: boom},
		{Status: domain.StatusRunning},
		{Status: domain.StatusRunning},
		{Status: domain.StatusFinish},
	} {
		in <- u
	}
	close(in)

	var got []StatusUpdate
	for u := range Distinct(context.Background(), in) {
		got = append(got, u)
	}

	require.Len(t, got, 4)
	assert.Equal(t, domain.StatusReady, got[0].Status)
	assert.ErrorIs(t, got[1].Err, boom)
	assert.Equal(t, domain.StatusRunning, got[2].Status)
	assert.Equal(t, domain.StatusFinish, got[3].Status)
}
