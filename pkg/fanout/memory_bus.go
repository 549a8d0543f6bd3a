package fanout

import (
	"context"
	"sync"
)

// MemoryBus is an in-process Bus. Envelopes are fanned out to every
// subscriber through buffered channels; a subscriber whose buffer is full
// misses the envelope rather than blocking the publisher (durability
// lives in the job store, not here).
type MemoryBus struct {
	mu         sync.RWMutex
	subs       map[chan Envelope]struct{}
	bufferSize int
	closed     bool
	cleanupWg  sync.WaitGroup
}

// NewMemoryBus creates an in-memory bus. bufferSize sets each
// subscriber's channel buffer; a minimum of 1 is enforced.
func NewMemoryBus(bufferSize int) *MemoryBus {
	return &MemoryBus{
		subs:       make(map[chan Envelope]struct{}),
		bufferSize: max(bufferSize, 1),
	}
}

// Publish implements Bus.
func (b *MemoryBus) Publish(ctx context.Context, env Envelope) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return ErrBusClosed
	}

	for ch := range b.subs {
		select {
		case ch <- env:
		default:
			// Full buffer: drop for this subscriber.
		}
	}
	return nil
}

// Subscribe implements Bus. The subscription is removed and its channel
// closed when ctx is cancelled.
func (b *MemoryBus) Subscribe(ctx context.Context) (<-chan Envelope, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrBusClosed
	}

	ch := make(chan Envelope, b.bufferSize)
	b.subs[ch] = struct{}{}

	if ctx.Done() != nil {
		b.cleanupWg.Add(1)
		go func() {
			defer b.cleanupWg.Done()
			<-ctx.Done()
			b.unsubscribe(ch)
		}()
	}

	return ch, nil
}

// Close shuts down the bus and closes all subscriber channels.
func (b *MemoryBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	for ch := range b.subs {
		close(ch)
	}
	clear(b.subs)
	b.mu.Unlock()

	b.cleanupWg.Wait()
	return nil
}

func (b *MemoryBus) unsubscribe(ch chan Envelope) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
		close(ch)
	}
}
