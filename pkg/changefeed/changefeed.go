// Package changefeed delivers state-change notifications from launchkit
// components to interested subscribers.
//
// Components expose their current state through snapshot accessors; the feed
// only tells subscribers that something changed, so a subscriber that falls
// behind loses notifications, never state. Publishing never blocks: messages
// for a full subscriber buffer are dropped.
package changefeed

import (
	"context"
	"sync"
	"time"
)

// Kind classifies a change.
type Kind string

const (
	FlagChanged       Kind = "flag_changed"
	RolloutChanged    Kind = "rollout_changed"
	TestChanged       Kind = "test_changed"
	FeedbackCollected Kind = "feedback_collected"
	PriorityChanged   Kind = "priority_changed"
	AlertConfigured   Kind = "alert_configured"
	AlertRaised       Kind = "alert_raised"
	StateRestored     Kind = "state_restored"
)

// Change describes a committed state transition.
type Change struct {
	Kind Kind      `json:"kind"`
	Key  string    `json:"key"`
	At   time.Time `json:"at"`
}

// Publisher accepts change notifications.
type Publisher interface {
	Publish(ctx context.Context, c Change)
}

// Nop discards every change.
type Nop struct{}

func (Nop) Publish(context.Context, Change) {}

// Feed fans changes out to subscribers. All methods are safe for concurrent use.
type Feed struct {
	subs       map[*Subscription]struct{}
	bufferSize int
	closed     bool
	mu         sync.RWMutex
	cleanupWg  sync.WaitGroup
}

// New creates a feed whose subscribers buffer up to bufferSize changes (minimum 1).
func New(bufferSize int) *Feed {
	return &Feed{
		subs:       make(map[*Subscription]struct{}),
		bufferSize: max(bufferSize, 1),
	}
}

// Subscribe registers a subscriber. The subscription ends when ctx is
// cancelled, when Close is called on it, or when the feed is closed.
func (f *Feed) Subscribe(ctx context.Context) *Subscription {
	f.mu.Lock()
	defer f.mu.Unlock()

	sub := &Subscription{
		ch:   make(chan Change, f.bufferSize),
		stop: make(chan struct{}),
	}
	if f.closed {
		_ = sub.Close()
		return sub
	}
	f.subs[sub] = struct{}{}

	f.cleanupWg.Add(1)
	go func() {
		defer f.cleanupWg.Done()
		select {
		case <-ctx.Done():
		case <-sub.stop:
		}
		f.unsubscribe(sub)
	}()
	return sub
}

// Publish delivers c to every subscriber with buffer space.
func (f *Feed) Publish(ctx context.Context, c Change) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.closed {
		return
	}
	for sub := range f.subs {
		sub.send(c)
	}
}

// Close closes every subscription. Safe to call multiple times.
func (f *Feed) Close() error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	for sub := range f.subs {
		_ = sub.Close()
	}
	clear(f.subs)
	f.mu.Unlock()

	f.cleanupWg.Wait()
	return nil
}

func (f *Feed) unsubscribe(sub *Subscription) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.subs, sub)
	_ = sub.Close()
}

// Subscription receives changes published after it was created.
type Subscription struct {
	ch      chan Change
	stop    chan struct{}
	closed  bool
	dropped int
	mu      sync.Mutex
}

// C returns the receive channel. It is closed when the subscription ends.
func (s *Subscription) C() <-chan Change {
	return s.ch
}

// Dropped returns how many changes were discarded because the buffer was full.
func (s *Subscription) Dropped() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// Close ends the subscription. Safe to call multiple times.
func (s *Subscription) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
		close(s.stop)
	}
	return nil
}

func (s *Subscription) send(c Change) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- c:
	default:
		s.dropped++
	}
}
