// Package memstore keeps every collection in process memory. It backs the test suites and the
// STORE_DRIVER=memory mode; documents are deep-copied through BSON on the way in and out so callers
// never share state with the store.
package memstore

import (
	"context"
	"sort"
	"sync"

	"crackers-backend/internal/models"
	"crackers-backend/internal/store"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// New returns a fully wired in-memory store.
func New() *store.Store {
	return &store.Store{
		Users:      &users{c: newCollection(func(u *models.User) string { return u.Email })},
		Products:   &products{c: newCollection[models.Product](nil)},
		Categories: &categories{c: newCollection(func(c *models.Category) string { return c.Slug })},
		Bundles:    &bundles{c: newCollection[models.Bundle](nil)},
		GiftBoxes:  &bundles{c: newCollection[models.Bundle](nil)},
		Orders:     &orders{c: newCollection(func(o *models.Order) string { return o.OrderNumber })},
		Admins:     &admins{c: newCollection(func(a *models.Admin) string { return a.Email })},
		Ping:       func(context.Context) error { return nil },
		Close:      func(context.Context) error { return nil },
	}
}

func clone[T any](v *T) *T {
	raw, err := bson.Marshal(v)
	if err != nil {
		panic(err)
	}
	out := new(T)
	if err := bson.Unmarshal(raw, out); err != nil {
		panic(err)
	}
	return out
}

type row[T any] struct {
	seq int
	doc *T
}

// collection is a mutex-guarded map with an optional unique key.
type collection[T any] struct {
	mu     sync.RWMutex
	rows   map[primitive.ObjectID]row[T]
	seq    int
	unique func(*T) string
}

func newCollection[T any](unique func(*T) string) *collection[T] {
	return &collection[T]{rows: map[primitive.ObjectID]row[T]{}, unique: unique}
}

func (c *collection[T]) taken(id primitive.ObjectID, doc *T) bool {
	if c.unique == nil {
		return false
	}
	key := c.unique(doc)
	if key == "" {
		return false
	}
	for other, r := range c.rows {
		if other != id && c.unique(r.doc) == key {
			return true
		}
	}
	return false
}

func (c *collection[T]) insert(id primitive.ObjectID, doc *T) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.rows[id]; ok || c.taken(id, doc) {
		return store.ErrDuplicate
	}
	c.seq++
	c.rows[id] = row[T]{seq: c.seq, doc: clone(doc)}
	return nil
}

func (c *collection[T]) replace(id primitive.ObjectID, doc *T) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.rows[id]
	if !ok {
		return store.ErrNotFound
	}
	if c.taken(id, doc) {
		return store.ErrDuplicate
	}
	r.doc = clone(doc)
	c.rows[id] = r
	return nil
}

// update applies fn to the stored document under the write lock.
func (c *collection[T]) update(id primitive.ObjectID, fn func(*T) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.rows[id]
	if !ok {
		return store.ErrNotFound
	}
	doc := clone(r.doc)
	if err := fn(doc); err != nil {
		return err
	}
	r.doc = doc
	c.rows[id] = r
	return nil
}

func (c *collection[T]) get(id primitive.ObjectID) (*T, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.rows[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return clone(r.doc), nil
}

func (c *collection[T]) find(match func(*T) bool) (*T, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, r := range c.ordered() {
		if match(r.doc) {
			return clone(r.doc), nil
		}
	}
	return nil, store.ErrNotFound
}

// filter returns copies of matching documents in insertion order.
func (c *collection[T]) filter(match func(*T) bool) []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := []T{}
	for _, r := range c.ordered() {
		if match == nil || match(r.doc) {
			out = append(out, *clone(r.doc))
		}
	}
	return out
}

func (c *collection[T]) remove(id primitive.ObjectID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.rows[id]; !ok {
		return store.ErrNotFound
	}
	delete(c.rows, id)
	return nil
}

func (c *collection[T]) ordered() []row[T] {
	rows := make([]row[T], 0, len(c.rows))
	for _, r := range c.rows {
		rows = append(rows, r)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq < rows[j].seq })
	return rows
}

func page[T any](items []T, p, limit int) []T {
	if limit <= 0 {
		return items
	}
	if p < 1 {
		p = 1
	}
	start := (p - 1) * limit
	if start >= len(items) {
		return []T{}
	}
	end := start + limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
