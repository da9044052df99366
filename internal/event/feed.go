// Package event provides broadcast notification feeds.
package event

import "sync"

// Feed delivers published values to every subscriber. Subscribers run
// synchronously on the publisher's goroutine, so they must not block.
type Feed[T any] struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[uint64]func(T)
}

// Subscribe registers fn and returns a function that removes it.
func (f *Feed[T]) Subscribe(fn func(T)) (cancel func()) {
	f.mu.Lock()
	if f.subs == nil {
		f.subs = make(map[uint64]func(T))
	}
	id := f.nextID
	f.nextID++
	f.subs[id] = fn
	f.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs, id)
			f.mu.Unlock()
		})
	}
}

// Publish calls every subscriber with v.
func (f *Feed[T]) Publish(v T) {
	f.mu.RLock()
	subs := make([]func(T), 0, len(f.subs))
	for _, fn := range f.subs {
		subs = append(subs, fn)
	}
	f.mu.RUnlock()

	for _, fn := range subs {
		fn(v)
	}
}

// Chan subscribes a buffered channel to the feed. Values are dropped when the
// channel is full so a slow reader never stalls the publisher.
// The channel is not closed by cancel.
func (f *Feed[T]) Chan(size int) (<-chan T, func()) {
	ch := make(chan T, size)
	cancel := f.Subscribe(func(v T) {
		select {
		case ch <- v:
		default:
		}
	})
	return ch, cancel
}
