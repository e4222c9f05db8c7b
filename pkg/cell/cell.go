// Package cell provides small reactive value containers. The form tree exposes
// its mutable state (answers, errors, choices, child lists) as cells so a
// presentation layer can subscribe to exactly the state it renders, and so
// surviving nodes keep their subscriptions across reconciliations.
package cell

import "sync"

// Cell holds a value of type T and notifies subscribers when it changes.
type Cell[T any] struct {
	mu    sync.Mutex
	value T
	subs  []func(T)
}

// New constructs a cell seeded with an initial value.
func New[T any](initial T) *Cell[T] {
	return &Cell[T]{value: initial}
}

// Get returns the current value.
func (c *Cell[T]) Get() T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

// Set stores a new value and notifies subscribers. Subscribers run
// synchronously on the calling goroutine, in registration order; they must not
// mutate the form tree from inside the callback.
func (c *Cell[T]) Set(value T) {
	c.mu.Lock()
	c.value = value
	subs := make([]func(T), len(c.subs))
	copy(subs, c.subs)
	c.mu.Unlock()

	for _, sub := range subs {
		if sub != nil {
			sub(value)
		}
	}
}

// Subscribe registers fn to run on every Set. The returned function removes
// the subscription.
func (c *Cell[T]) Subscribe(fn func(T)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.subs = append(c.subs, fn)
	idx := len(c.subs) - 1
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if idx < len(c.subs) {
			c.subs[idx] = nil
		}
	}
}
