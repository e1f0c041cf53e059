package localstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sultumov/allergyTracker/internal/client/models"
)

// Collection is a typed view over one cache snapshot. Each document is
// validated through the entity decoder on the way out, so a corrupt payload
// degrades to a miss instead of an error.
type Collection[T models.Entity] struct {
	store  *Store
	name   string
	decode func(json.RawMessage) (T, error)
}

// NewCollection binds a typed view to a snapshot key of the store.
func NewCollection[T models.Entity](store *Store, name string, decode func(json.RawMessage) (T, error)) *Collection[T] {
	return &Collection[T]{store: store, name: name, decode: decode}
}

func (c *Collection[T]) Name() string { return c.name }

// ReadAll returns the cached snapshot. Missing or malformed payloads yield
// an empty slice; individual documents that fail validation are skipped.
func (c *Collection[T]) ReadAll(ctx context.Context) []T {
	return c.decodePayload(ctx, c.store.readRaw(ctx, c.name))
}

func (c *Collection[T]) decodePayload(ctx context.Context, payload []byte) []T {
	if len(payload) == 0 {
		return []T{}
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(payload, &raw); err != nil {
		c.store.log.Warn(ctx, "malformed cache snapshot, treating as empty",
			"collection", c.name, "error", err)
		return []T{}
	}

	items := make([]T, 0, len(raw))
	for _, doc := range raw {
		item, err := c.decode(doc)
		if err != nil {
			c.store.log.Warn(ctx, "skipping malformed cached document",
				"collection", c.name, "error", err)
			continue
		}
		items = append(items, item)
	}
	return items
}

// WriteAll atomically replaces the snapshot with items.
func (c *Collection[T]) WriteAll(ctx context.Context, items []T) error {
	mu := c.store.lockFor(c.name)
	mu.Lock()
	defer mu.Unlock()
	return c.writeLocked(ctx, items)
}

func (c *Collection[T]) writeLocked(ctx context.Context, items []T) error {
	if items == nil {
		items = []T{}
	}
	payload, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encoding %s snapshot: %w", c.name, err)
	}
	return c.store.writeRaw(ctx, c.name, payload)
}

// Update runs a read-modify-write of the whole snapshot under the
// collection lock. fn receives the current items and returns the
// replacement snapshot.
func (c *Collection[T]) Update(ctx context.Context, fn func(items []T) []T) error {
	mu := c.store.lockFor(c.name)
	mu.Lock()
	defer mu.Unlock()

	items := c.decodePayload(ctx, c.store.readRaw(ctx, c.name))
	return c.writeLocked(ctx, fn(items))
}

// UpsertOne replaces the record with item's key, or appends it.
func (c *Collection[T]) UpsertOne(ctx context.Context, item T) error {
	return c.Update(ctx, func(items []T) []T {
		for i := range items {
			if items[i].Key() == item.Key() {
				items[i] = item
				return items
			}
		}
		return append(items, item)
	})
}

// RemoveOne deletes the record with the given key, if present.
func (c *Collection[T]) RemoveOne(ctx context.Context, key string) error {
	return c.Update(ctx, func(items []T) []T {
		out := items[:0]
		for _, it := range items {
			if it.Key() != key {
				out = append(out, it)
			}
		}
		return out
	})
}

// ReadOne looks up a single record by key, nil when absent.
func (c *Collection[T]) ReadOne(ctx context.Context, key string) *T {
	for _, it := range c.ReadAll(ctx) {
		if it.Key() == key {
			return &it
		}
	}
	return nil
}

// Clear drops the snapshot entirely.
func (c *Collection[T]) Clear(ctx context.Context) error {
	return c.store.Clear(ctx, c.name)
}
