package repository

import (
	"context"
	"sync"
)

// Broadcaster fans storage changes out to watchers. Publishing never blocks:
// each watcher keeps the latest change per key until it is delivered, so a
// slow reader sees every key that changed, not every intermediate write.
type Broadcaster struct {
	mu   sync.Mutex
	subs map[*subscriber]struct{}
}

type subscriber struct {
	mu      sync.Mutex
	pending map[string]Change
	order   []string
	signal  chan struct{}
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[*subscriber]struct{})}
}

// Publish queues c for every current watcher.
func (b *Broadcaster) Publish(c Change) {
	b.mu.Lock()
	subs := make([]*subscriber, 0, len(b.subs))
	for sub := range b.subs {
		subs = append(subs, sub)
	}
	b.mu.Unlock()

	for _, sub := range subs {
		sub.push(c)
	}
}

// Watch registers a watcher that lives until ctx is done.
func (b *Broadcaster) Watch(ctx context.Context) <-chan Change {
	sub := &subscriber{
		pending: make(map[string]Change),
		signal:  make(chan struct{}, 1),
	}
	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()

	out := make(chan Change)
	go func() {
		defer close(out)
		defer func() {
			b.mu.Lock()
			delete(b.subs, sub)
			b.mu.Unlock()
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case <-sub.signal:
			}
			for _, c := range sub.take() {
				select {
				case out <- c:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

func (s *subscriber) push(c Change) {
	s.mu.Lock()
	if _, queued := s.pending[c.Key]; !queued {
		s.order = append(s.order, c.Key)
	}
	s.pending[c.Key] = c
	s.mu.Unlock()

	select {
	case s.signal <- struct{}{}:
	default:
	}
}

func (s *subscriber) take() []Change {
	s.mu.Lock()
	defer s.mu.Unlock()
	changes := make([]Change, 0, len(s.order))
	for _, key := range s.order {
		changes = append(changes, s.pending[key])
	}
	s.pending = make(map[string]Change)
	s.order = nil
	return changes
}
