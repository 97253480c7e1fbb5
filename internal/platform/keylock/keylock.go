// Package keylock provides a per-key mutual exclusion lock whose waiters are
// served strictly in arrival order.
package keylock

import (
	"context"
	"sync"
)

type waiter struct {
	ready chan struct{}
}

type queue struct {
	holder  *waiter
	waiters []*waiter
}

// Locker serializes work per key. Different keys never block each other.
type Locker[K comparable] struct {
	mu     sync.Mutex
	queues map[K]*queue
}

func New[K comparable]() *Locker[K] {
	return &Locker[K]{queues: make(map[K]*queue)}
}

// Lock blocks until the caller owns key or ctx is done. The returned function
// releases the lock and must be called exactly once.
func (l *Locker[K]) Lock(ctx context.Context, key K) (func(), error) {
	w := &waiter{ready: make(chan struct{})}

	l.mu.Lock()
	q, ok := l.queues[key]
	if !ok {
		q = &queue{}
		l.queues[key] = q
	}
	if q.holder == nil {
		q.holder = w
		close(w.ready)
	} else {
		q.waiters = append(q.waiters, w)
	}
	l.mu.Unlock()

	select {
	case <-w.ready:
		return l.releaser(key, w), nil
	case <-ctx.Done():
		l.mu.Lock()
		defer l.mu.Unlock()
		// Ownership may have been handed over while we were giving up.
		if q.holder == w {
			l.handOff(key, q)
			return nil, ctx.Err()
		}
		for i, other := range q.waiters {
			if other == w {
				q.waiters = append(q.waiters[:i], q.waiters[i+1:]...)
				break
			}
		}
		return nil, ctx.Err()
	}
}

func (l *Locker[K]) releaser(key K, w *waiter) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			q, ok := l.queues[key]
			if !ok || q.holder != w {
				return
			}
			l.handOff(key, q)
		})
	}
}

// handOff passes ownership to the oldest waiter; l.mu must be held.
func (l *Locker[K]) handOff(key K, q *queue) {
	if len(q.waiters) == 0 {
		q.holder = nil
		delete(l.queues, key)
		return
	}
	next := q.waiters[0]
	q.waiters = q.waiters[1:]
	q.holder = next
	close(next.ready)
}

// Pending reports how many callers hold or wait for key.
func (l *Locker[K]) Pending(key K) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	q, ok := l.queues[key]
	if !ok {
		return 0
	}
	n := len(q.waiters)
	if q.holder != nil {
		n++
	}
	return n
}
