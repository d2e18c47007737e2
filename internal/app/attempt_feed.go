package app

import (
	"sync"

	"skill-quiz-service/internal/domain"
)

// AttemptFeed fans out scored attempts to live subscribers (the admin
// dashboard websocket). Publishing never blocks: a subscriber that falls behind
// loses its oldest pending event.
type AttemptFeed struct {
	mu          sync.Mutex
	subscribers map[chan domain.AttemptEvent]struct{}
	buffer      int
}

func NewAttemptFeed(buffer int) *AttemptFeed {
	if buffer <= 0 {
		buffer = 8
	}
	return &AttemptFeed{
		subscribers: make(map[chan domain.AttemptEvent]struct{}),
		buffer:      buffer,
	}
}

// Subscribe returns a channel of future events.
// The caller must invoke the returned cancel function to avoid leaks.
func (f *AttemptFeed) Subscribe() (<-chan domain.AttemptEvent, func()) {
	ch := make(chan domain.AttemptEvent, f.buffer)

	f.mu.Lock()
	f.subscribers[ch] = struct{}{}
	f.mu.Unlock()

	cancel := func() {
		f.mu.Lock()
		if _, ok := f.subscribers[ch]; ok {
			delete(f.subscribers, ch)
			close(ch)
		}
		f.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers event to every subscriber.
func (f *AttemptFeed) Publish(event domain.AttemptEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subscribers {
		select {
		case ch <- event:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- event
		}
	}
}

// Subscribers reports the number of live subscriptions.
func (f *AttemptFeed) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subscribers)
}
