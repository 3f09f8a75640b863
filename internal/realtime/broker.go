// Package realtime fans inserted chat messages out to in-process subscribers.
package realtime

import (
	"sync"

	"gitea.kood.tech/petrkubec/linkvibez/internal/model"
)

const defaultBuffer = 16

// Broker delivers every published message to every current subscriber.
// A subscriber whose buffer is full misses the message rather than
// blocking the publisher.
type Broker struct {
	mu          sync.RWMutex
	subscribers map[chan model.Message]struct{}
	buffer      int
	closed      bool
}

func NewBroker() *Broker {
	return &Broker{
		subscribers: make(map[chan model.Message]struct{}),
		buffer:      defaultBuffer,
	}
}

// Subscribe returns a receive channel and the function that releases it.
// The channel is closed on release or when the broker is closed.
// Calling the release function more than once is a no-op.
func (b *Broker) Subscribe() (<-chan model.Message, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan model.Message, b.buffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	b.subscribers[ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() { b.unsubscribe(ch) })
	}
}

func (b *Broker) unsubscribe(ch chan model.Message) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subscribers[ch]; ok {
		delete(b.subscribers, ch)
		close(ch)
	}
}

// Publish sends msg to all subscribers and returns how many received it.
func (b *Broker) Publish(msg model.Message) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	delivered := 0
	for ch := range b.subscribers {
		select {
		case ch <- msg:
			delivered++
		default:
		}
	}
	return delivered
}

// Subscribers returns the number of open subscriptions.
func (b *Broker) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Close releases every subscription. Later subscriptions are closed immediately.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for ch := range b.subscribers {
		delete(b.subscribers, ch)
		close(ch)
	}
}
