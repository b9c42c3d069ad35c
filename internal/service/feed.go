package service

import (
	"context"
	"sync"
	"time"

	"github.com/mmcdole/appshelf/internal/domain"
)

// StatusUpdate is one evaluation of an entry's install status.
// Err is set when the evaluation failed; Status is then meaningless.
type StatusUpdate struct {
	Name   string
	Status domain.InstallStatus
	Err    error
	At     time.Time
}

// Subscription receives status updates for one name until closed.
// Delivery is latest-wins: a slow reader sees the newest update, not a backlog.
type Subscription struct {
	C <-chan StatusUpdate

	ch    chan StatusUpdate
	once  sync.Once
	close func()
}

// Close detaches the subscription and closes C. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		if s.close != nil {
			s.close()
		}
	})
}

func newSubscription() *Subscription {
	ch := make(chan StatusUpdate, 1)
	return &Subscription{C: ch, ch: ch}
}

// offer replaces any undelivered update with u
func (s *Subscription) offer(u StatusUpdate) {
	select {
	case s.ch <- u:
		return
	default:
	}
	select {
	case <-s.ch:
	default:
	}
	select {
	case s.ch <- u:
	default:
	}
}

// feed broadcasts one name's updates to its subscribers and remembers the
// latest successful update for late joiners.
type feed struct {
	mu   sync.Mutex
	subs map[*Subscription]struct{}
	last *StatusUpdate

	cancel context.CancelFunc
	done   chan struct{}
}

func newFeed(cancel context.CancelFunc) *feed {
	return &feed{
		subs:   make(map[*Subscription]struct{}),
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

func (f *feed) add(sub *Subscription) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs[sub] = struct{}{}
	if f.last != nil {
		sub.offer(*f.last)
	}
}

// remove detaches sub and reports how many subscribers remain
func (f *feed) remove(sub *Subscription) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.subs[sub]; ok {
		delete(f.subs, sub)
		close(sub.ch)
	}
	return len(f.subs)
}

func (f *feed) publish(u StatusUpdate) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u.Err == nil {
		last := u
		f.last = &last
	}
	for sub := range f.subs {
		sub.offer(u)
	}
}

// closeAll detaches every subscriber
func (f *feed) closeAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for sub := range f.subs {
		delete(f.subs, sub)
		close(sub.ch)
	}
}

// Distinct forwards updates from in, dropping ones that repeat the previous
// status. Errors are always forwarded. The output closes when in closes or
// ctx is done.
func Distinct(ctx context.Context, in <-chan StatusUpdate) <-chan StatusUpdate {
	out := make(chan StatusUpdate)
	go func() {
		defer close(out)
		var prev *domain.InstallStatus
		for {
			var u StatusUpdate
			select {
			case <-ctx.Done():
				return
			case v, ok := <-in:
				if !ok {
					return
				}
				u = v
			}

			if u.Err == nil {
				if prev != nil && *prev == u.Status {
					continue
				}
				status := u.Status
				prev = &status
			}

			select {
			case out <- u:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
