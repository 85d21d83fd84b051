package store

import (
	"sync"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Record is anything that can be kept in a Collection.
type Record interface {
	Key() string
}

// Collection is an insertion ordered set of records keyed by Record.Key.
// It is safe for concurrent use, though the records themselves are not
// guarded.
type Collection[T Record] struct {
	mutex sync.RWMutex
	items *orderedmap.OrderedMap[string, T]
}

func NewCollection[T Record]() *Collection[T] {
	return &Collection[T]{items: orderedmap.New[string, T]()}
}

// GetOrCreate returns the record with the given id, creating and inserting it
// with create if it does not exist yet.
func (c *Collection[T]) GetOrCreate(id string, create func(id string) T) T {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if rec, ok := c.items.Get(id); ok {
		return rec
	}
	rec := create(id)
	c.items.Set(id, rec)
	return rec
}

// UpsertReplace removes the record with the same key as rec (if any) and
// then appends rec, the latest value always wins.
func (c *Collection[T]) UpsertReplace(rec T) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	key := rec.Key()
	c.items.Delete(key)
	c.items.Set(key, rec)
}

// AddIfAbsent inserts rec only if no record with the same key exists,
// it returns false if rec was discarded.
func (c *Collection[T]) AddIfAbsent(rec T) bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	key := rec.Key()
	if _, ok := c.items.Get(key); ok {
		return false
	}
	c.items.Set(key, rec)
	return true
}

func (c *Collection[T]) Get(id string) (T, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.items.Get(id)
}

func (c *Collection[T]) Len() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.items.Len()
}

// All returns a copy of the records in insertion order.
func (c *Collection[T]) All() []T {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	out := make([]T, 0, c.items.Len())
	for pair := c.items.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value)
	}
	return out
}
