package pool

import (
	"sync"
)

// ObjectPool keeps at most queueSize released objects for reuse. Objects are created by
// the constructor when the pool is empty, so Acquire never blocks. Unlike sync.Pool, the
// retained objects are never dropped by the garbage collector, and their number is bounded.
type ObjectPool[T any] struct {
	mu    sync.Mutex
	queue []T
	new   func() T
}

func NewObjectPool[T any](queueSize int, constructor func() T) *ObjectPool[T] {
	return &ObjectPool[T]{
		queue: make([]T, 0, queueSize),
		new:   constructor,
	}
}

func (o *ObjectPool[T]) Acquire() (obj T) {
	o.mu.Lock()
	if len(o.queue) != 0 {
		obj = o.queue[len(o.queue)-1]
		o.queue = o.queue[:len(o.queue)-1]
		o.mu.Unlock()
		return obj
	}
	o.mu.Unlock()

	return o.new()
}

// Release returns the object back. If the pool is full, the object is left to the
// garbage collector.
func (o *ObjectPool[T]) Release(obj T) {
	o.mu.Lock()
	if len(o.queue) < cap(o.queue) {
		o.queue = append(o.queue, obj)
	}
	o.mu.Unlock()
}

// Len returns the number of currently retained objects.
func (o *ObjectPool[T]) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()

	return len(o.queue)
}
