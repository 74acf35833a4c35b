// Package ringbuf provides the bounded FIFO queue shared by every in-process
// store: appends evict the oldest entry once capacity is exceeded and reads
// return most-recent-first copies.
package ringbuf

import (
	"sort"
	"sync"
)

// Queue is a bounded FIFO queue. It is safe for concurrent use.
type Queue[T any] struct {
	mu    sync.Mutex
	cap   int
	items []T // oldest first
}

// New returns a Queue holding at most capacity items. A capacity below 1 is
// treated as 1.
func New[T any](capacity int) *Queue[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue[T]{
		cap:   capacity,
		items: make([]T, 0, capacity),
	}
}

// Push appends v. When the queue was already full the oldest item is removed
// and returned with ok=true.
func (q *Queue[T]) Push(v T) (evicted T, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.items = append(q.items, v)
	if len(q.items) > q.cap {
		evicted = q.items[0]
		var zero T
		q.items[0] = zero
		q.items = q.items[1:]
		ok = true
	}
	return evicted, ok
}

// Items returns a copy of the queue contents, most recent first.
func (q *Queue[T]) Items() []T {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]T, len(q.items))
	for i, v := range q.items {
		out[len(q.items)-1-i] = v
	}
	return out
}

// Head returns at most n items, most recent first. n <= 0 means all.
func (q *Queue[T]) Head(n int) []T {
	items := q.Items()
	if n > 0 && n < len(items) {
		return items[:n]
	}
	return items
}

// Latest returns the most recently pushed item.
func (q *Queue[T]) Latest() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		var zero T
		return zero, false
	}
	return q.items[len(q.items)-1], true
}

func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *Queue[T]) Cap() int { return q.cap }

// Keyed is a set of Queues addressed by key, all sharing one capacity.
type Keyed[T any] struct {
	mu     sync.RWMutex
	cap    int
	queues map[string]*Queue[T]
}

// NewKeyed returns an empty Keyed with a per-key capacity.
func NewKeyed[T any](capacity int) *Keyed[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Keyed[T]{
		cap:    capacity,
		queues: make(map[string]*Queue[T]),
	}
}

func (k *Keyed[T]) queue(key string, create bool) *Queue[T] {
	k.mu.RLock()
	q, ok := k.queues[key]
	k.mu.RUnlock()
	if ok || !create {
		return q
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	if q, ok = k.queues[key]; ok {
		return q
	}
	q = New[T](k.cap)
	k.queues[key] = q
	return q
}

// Push appends v to the queue for key.
func (k *Keyed[T]) Push(key string, v T) (evicted T, ok bool) {
	return k.queue(key, true).Push(v)
}

// Items returns the contents for key, most recent first.
func (k *Keyed[T]) Items(key string) []T {
	q := k.queue(key, false)
	if q == nil {
		return []T{}
	}
	return q.Items()
}

// Latest returns the newest item for key.
func (k *Keyed[T]) Latest(key string) (T, bool) {
	q := k.queue(key, false)
	if q == nil {
		var zero T
		return zero, false
	}
	return q.Latest()
}

// Keys returns every key that has been pushed to, sorted.
func (k *Keyed[T]) Keys() []string {
	k.mu.RLock()
	defer k.mu.RUnlock()

	keys := make([]string, 0, len(k.queues))
	for key := range k.queues {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func (k *Keyed[T]) Cap() int { return k.cap }
