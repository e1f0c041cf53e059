package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sultumov/allergyTracker/internal/client/localstore"
	"github.com/sultumov/allergyTracker/internal/client/models"
	"github.com/sultumov/allergyTracker/internal/client/reconcile"
	"github.com/sultumov/allergyTracker/internal/client/remote"
	"github.com/sultumov/allergyTracker/internal/common"
	"github.com/sultumov/allergyTracker/internal/logging"
)

// Engine is the per-collection sync mediator. Reads come from the cache
// first; writes land in the cache immediately and are then pushed to the
// remote; every remote snapshot is reconciled into the cache before it is
// forwarded to subscribers.
type Engine[T models.Entity] struct {
	local   *localstore.Collection[T]
	remote  remote.Store
	gate    *Gate
	log     logging.Logger
	decode  func(json.RawMessage) (T, error)
	colPath string
	docPath func(id string) string
}

func NewEngine[T models.Entity](
	local *localstore.Collection[T],
	rs remote.Store,
	gate *Gate,
	log logging.Logger,
	collectionPath string,
	docPath func(id string) string,
	decode func(json.RawMessage) (T, error),
) *Engine[T] {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Engine[T]{
		local:   local,
		remote:  rs,
		gate:    gate,
		log:     log.With("collection", local.Name()),
		decode:  decode,
		colPath: collectionPath,
		docPath: docPath,
	}
}

func (e *Engine[T]) Name() string { return e.local.Name() }

// decodeSnapshot validates every document of a remote snapshot, skipping
// (and logging) malformed ones.
func (e *Engine[T]) decodeSnapshot(ctx context.Context, snap remote.Snapshot) []T {
	items := make([]T, 0, len(snap))
	for _, doc := range snap {
		item, err := e.decode(doc)
		if err != nil {
			e.log.Warn(ctx, "skipping malformed remote document", "error", err)
			continue
		}
		items = append(items, item)
	}
	return items
}

// applySnapshot merges a decoded remote snapshot into the cache under the
// collection lock and returns the merged result.
func (e *Engine[T]) applySnapshot(ctx context.Context, incoming []T) ([]T, error) {
	var merged []T
	err := e.local.Update(ctx, func(current []T) []T {
		merged = reconcile.Merge(current, incoming)
		return merged
	})
	if err != nil {
		return nil, err
	}
	return merged, nil
}

// ObserveAll returns a live feed of the full collection: the cached
// snapshot immediately, then each reconciled remote push. Subscription
// setup failure degrades to cache-only silently, except NotAuthenticated
// which terminates the feed.
func (e *Engine[T]) ObserveAll(ctx context.Context) *Feed[[]T] {
	feed := newFeed[[]T]()
	feed.ch <- e.local.ReadAll(ctx)

	go runFeed(ctx, e, feed, e.colPath, func(snap remote.Snapshot) ([]T, error) {
		return e.applySnapshot(ctx, e.decodeSnapshot(ctx, snap))
	})
	return feed
}

// GetByID returns a live feed of a single record: the cached value (nil
// when absent) immediately, then reconciled remote updates of that
// document. A missing id yields nil emissions, never an error.
func (e *Engine[T]) GetByID(ctx context.Context, id string) *Feed[*T] {
	feed := newFeed[*T]()
	feed.ch <- e.local.ReadOne(ctx, id)

	go runFeed(ctx, e, feed, e.docPath(id), func(snap remote.Snapshot) (*T, error) {
		return e.applyDocSnapshot(ctx, id, snap)
	})
	return feed
}

func (e *Engine[T]) applyDocSnapshot(ctx context.Context, id string, snap remote.Snapshot) (*T, error) {
	var incoming *T
	for _, doc := range snap {
		item, err := e.decode(doc)
		if err != nil {
			e.log.Warn(ctx, "skipping malformed remote document", "id", id, "error", err)
			continue
		}
		incoming = &item
		break
	}

	local := e.local.ReadOne(ctx, id)
	winner := reconcile.MergeOne(local, incoming)
	if winner != nil {
		if err := e.local.UpsertOne(ctx, *winner); err != nil {
			return nil, err
		}
	}
	return winner, nil
}

// runFeed attaches the remote subscription and pumps reconciled pushes into
// the feed. One goroutine per feed: emissions keep arrival order and no two
// merges for the same feed overlap.
func runFeed[T models.Entity, V any](ctx context.Context, e *Engine[T], feed *Feed[V], path string, apply func(remote.Snapshot) (V, error)) {
	defer feed.finish()

	var sub remote.Subscription
	err := e.gate.AttemptRead(ctx, func(ctx context.Context) error {
		var serr error
		sub, serr = e.remote.Subscribe(ctx, path)
		return serr
	})
	if err != nil {
		if errors.Is(err, common.ErrNotAuthenticated) {
			feed.fail(common.ErrNotAuthenticated)
			return
		}
		// cache-only degradation: the cached emission stands
		e.log.Info(ctx, "remote subscription unavailable, staying cache-only", "path", path, "error", err)
		return
	}

	if !feed.bind(func() { _ = sub.Close() }) {
		// closed before the subscription attached
		_ = sub.Close()
		return
	}

	for {
		select {
		case <-feed.done:
			return
		case snap, ok := <-sub.Updates():
			if !ok {
				// remote feed ended; keep serving the cache
				e.log.Info(ctx, "remote subscription ended", "path", path)
				return
			}
			merged, err := apply(snap)
			if err != nil {
				e.log.Error(ctx, "applying remote snapshot failed", "path", path, "error", err)
				continue
			}
			if !feed.emit(merged) {
				return
			}
		}
	}
}

// Cached returns the current local snapshot without touching the remote.
func (e *Engine[T]) Cached(ctx context.Context) []T {
	return e.local.ReadAll(ctx)
}

// Upsert writes item to the cache first (read-your-own-write for the UI),
// then pushes it to the remote. A remote failure leaves the optimistic
// local write in place and is returned to the caller; there is no retry
// queue.
func (e *Engine[T]) Upsert(ctx context.Context, item T) error {
	if err := e.local.UpsertOne(ctx, item); err != nil {
		return fmt.Errorf("caching %s: %w", item.Key(), err)
	}

	return e.gate.AttemptWrite(ctx, func(ctx context.Context) error {
		return e.remote.Set(ctx, e.docPath(item.Key()), item)
	})
}

// Delete removes the record locally, then remotely. Optimistic like
// Upsert; a remote miss counts as success.
func (e *Engine[T]) Delete(ctx context.Context, id string) error {
	if err := e.local.RemoveOne(ctx, id); err != nil {
		return fmt.Errorf("removing %s from cache: %w", id, err)
	}

	err := e.gate.AttemptWrite(ctx, func(ctx context.Context) error {
		return e.remote.Delete(ctx, e.docPath(id))
	})
	if errors.Is(err, common.ErrNotFound) {
		return nil
	}
	return err
}

// UpdateFields applies mutate to the cached record (when present) and
// pushes only the named fields remotely. Serves partial updates such as
// activate/deactivate.
func (e *Engine[T]) UpdateFields(ctx context.Context, id string, mutate func(T) T, fields map[string]any) error {
	if cached := e.local.ReadOne(ctx, id); cached != nil {
		if err := e.local.UpsertOne(ctx, mutate(*cached)); err != nil {
			return fmt.Errorf("caching %s: %w", id, err)
		}
	}

	return e.gate.AttemptWrite(ctx, func(ctx context.Context) error {
		return e.remote.Update(ctx, e.docPath(id), fields)
	})
}

// syncSince pulls documents modified after since and merges them into the
// cache. All-or-nothing for this collection: on any failure the cache is
// left untouched.
func (e *Engine[T]) syncSince(ctx context.Context, since int64) error {
	var snap remote.Snapshot
	err := e.gate.AttemptWrite(ctx, func(ctx context.Context) error {
		var qerr error
		snap, qerr = e.remote.QueryModifiedSince(ctx, e.colPath, since)
		return qerr
	})
	if err != nil {
		return fmt.Errorf("incremental fetch for %s: %w", e.Name(), err)
	}

	if _, err := e.applySnapshot(ctx, e.decodeSnapshot(ctx, snap)); err != nil {
		return fmt.Errorf("merging incremental fetch for %s: %w", e.Name(), err)
	}
	return nil
}
