package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mmcdole/appshelf/internal/domain"
)

const defaultPollInterval = time.Second

// StatusTracker polls the install state of entries and broadcasts it.
// Each name has one poll loop no matter how many subscribers it has; the loop
// stops when its last subscriber closes.
type StatusTracker struct {
	installed domain.InstalledChecker
	jobs      domain.JobTracker
	interval  time.Duration
	logger    *slog.Logger

	mu     sync.Mutex
	feeds  map[string]*feed
	closed bool
	wg     sync.WaitGroup
}

// TrackerOption configures a StatusTracker
type TrackerOption func(*StatusTracker)

// WithInterval sets the poll cadence
func WithInterval(d time.Duration) TrackerOption {
	return func(t *StatusTracker) {
		if d > 0 {
			t.interval = d
		}
	}
}

// WithLogger sets the tracker logger
func WithLogger(logger *slog.Logger) TrackerOption {
	return func(t *StatusTracker) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// NewStatusTracker creates a tracker over the installed check and job tracker
func NewStatusTracker(installed domain.InstalledChecker, jobs domain.JobTracker, opts ...TrackerOption) *StatusTracker {
	t := &StatusTracker{
		installed: installed,
		jobs:      jobs,
		interval:  defaultPollInterval,
		logger:    slog.Default(),
		feeds:     make(map[string]*feed),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Subscribe starts receiving status updates for name. The first evaluation
// runs immediately; later subscribers get the latest successful update replayed.
func (t *StatusTracker) Subscribe(name string) *Subscription {
	sub := newSubscription()

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		close(sub.ch)
		return sub
	}

	f, ok := t.feeds[name]
	if !ok {
		ctx, cancel := context.WithCancel(context.Background())
		f = newFeed(cancel)
		t.feeds[name] = f
		t.wg.Add(1)
		go t.poll(ctx, name, f)
		t.logger.Debug("status poll started", "name", name)
	}
	f.add(sub)
	sub.close = func() { t.unsubscribe(name, f, sub) }
	return sub
}

func (t *StatusTracker) unsubscribe(name string, f *feed, sub *Subscription) {
	t.mu.Lock()
	remaining := f.remove(sub)
	stop := remaining == 0 && t.feeds[name] == f
	if stop {
		delete(t.feeds, name)
	}
	t.mu.Unlock()

	if stop {
		f.cancel()
		<-f.done
		t.logger.Debug("status poll stopped", "name", name)
	}
}

// Close stops every poll loop and closes every subscription
func (t *StatusTracker) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	feeds := t.feeds
	t.feeds = make(map[string]*feed)
	t.mu.Unlock()

	for _, f := range feeds {
		f.cancel()
	}
	t.wg.Wait()
	for _, f := range feeds {
		f.closeAll()
	}
}

// Active returns the number of names being polled
func (t *StatusTracker) Active() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.feeds)
}

func (t *StatusTracker) poll(ctx context.Context, name string, f *feed) {
	defer t.wg.Done()
	defer close(f.done)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		status, err := t.Evaluate(ctx, name)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			t.logger.Warn("status check failed", "name", name, "error", err)
		}
		f.publish(StatusUpdate{Name: name, Status: status, Err: err, At: time.Now()})

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Evaluate derives the current status of name from scratch: installed wins,
// then an active job, otherwise ready.
func (t *StatusTracker) Evaluate(ctx context.Context, name string) (domain.InstallStatus, error) {
	installed, err := t.installed.Installed(ctx, name)
	if err != nil {
		return domain.StatusReady, err
	}
	if installed {
		return domain.StatusFinish, nil
	}

	job, err := t.jobs.JobByName(ctx, name)
	if err != nil {
		return domain.StatusReady, err
	}
	if job != nil && job.Active() {
		return domain.StatusRunning, nil
	}
	return domain.StatusReady, nil
}
