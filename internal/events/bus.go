// Package events implements a typed pub/sub bus exposing
// subscribe(handler) -> unsubscribe, generalized via generics so both
// the CacheManager's OnUpdate bus and the AuthMediator's sign-in/out bus
// share one implementation.
package events

import (
	"sort"
	"sync"
)

// Handler receives one published event. It must not block for long:
// handlers run one after another on the publisher's goroutine, so a slow
// handler delays every handler after it and the Publish call itself.
type Handler[T any] func(T)

// Unsubscribe removes a previously registered handler.
type Unsubscribe func()

type subscriber[T any] struct {
	id      int64
	handler Handler[T]
}

// Bus is a strong-reference pub/sub primitive. Publish invokes every
// subscriber synchronously and in registration order; a subscriber that
// blocks holds up those registered after it and the Publish caller, and
// one that panics stops delivery to those after it.
type Bus[T any] struct {
	mu        sync.Mutex
	nextID    int64
	observers map[int64]*subscriber[T]
}

// NewBus constructs an empty Bus.
func NewBus[T any]() *Bus[T] {
	return &Bus[T]{observers: make(map[int64]*subscriber[T])}
}

// Subscribe registers handler and returns a function that removes it.
// The returned Unsubscribe is idempotent.
func (b *Bus[T]) Subscribe(handler Handler[T]) Unsubscribe {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.observers[id] = &subscriber[T]{id: id, handler: handler}
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.observers, id)
			b.mu.Unlock()
		})
	}
}

// Publish synchronously invokes every current subscriber with event, in
// registration order. CacheManager relies on this being synchronous: by
// the time Publish returns, every OnUpdate observer has seen the
// transition-to-Idle event.
func (b *Bus[T]) Publish(event T) {
	b.mu.Lock()
	subs := make([]*subscriber[T], 0, len(b.observers))
	for _, s := range b.observers {
		subs = append(subs, s)
	}
	b.mu.Unlock()

	sort.Slice(subs, func(i, j int) bool { return subs[i].id < subs[j].id })
	for _, s := range subs {
		s.handler(event)
	}
}

// SubscribeOnce registers a handler that unsubscribes itself after its
// first invocation, the pattern LiveDataProvider uses to await exactly
// one terminal event on a cold miss.
func (b *Bus[T]) SubscribeOnce(handler Handler[T]) Unsubscribe {
	var unsub Unsubscribe
	var once sync.Once
	unsub = b.Subscribe(func(event T) {
		once.Do(func() {
			handler(event)
			unsub()
		})
	})
	return unsub
}
