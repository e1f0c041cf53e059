// Package reconcile implements the merge rule applied whenever the local
// cache and a remote snapshot disagree: last-write-wins by the per-record
// modification stamp, with tombstone-free semantics (remote snapshots are
// assumed authoritative-complete; local-only survivors persist only across
// transient partitions until the next full snapshot).
package reconcile

import (
	"sort"

	"github.com/sultumov/allergyTracker/internal/client/models"
)

// Merge combines the cached collection with an incoming snapshot.
//
// For every key present in incoming, the incoming record replaces the local
// one when its modification stamp is greater than or equal to the local
// stamp, or when the key is absent locally. Keys present only locally are
// retained. The result is in canonical order (modification stamp ascending,
// key ascending on equal stamps) so merges are reproducible; for canonically
// ordered X, Merge(X, X) == X.
func Merge[T models.Entity](local, incoming []T) []T {
	merged := make(map[string]T, len(local)+len(incoming))
	for _, item := range local {
		merged[item.Key()] = item
	}
	for _, item := range incoming {
		cur, ok := merged[item.Key()]
		if !ok || item.Modified() >= cur.Modified() {
			merged[item.Key()] = item
		}
	}

	out := make([]T, 0, len(merged))
	for _, item := range merged {
		out = append(out, item)
	}
	Sort(out)
	return out
}

// Sort orders items canonically: modification stamp ascending, key ascending
// on equal stamps.
func Sort[T models.Entity](items []T) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].Modified() != items[j].Modified() {
			return items[i].Modified() < items[j].Modified()
		}
		return items[i].Key() < items[j].Key()
	})
}

// MergeOne resolves a single-record conflict: incoming wins on a stamp at
// least as new as local's. Either side may be nil (absent).
func MergeOne[T models.Entity](local, incoming *T) *T {
	if incoming == nil {
		return local
	}
	if local == nil || (*incoming).Modified() >= (*local).Modified() {
		return incoming
	}
	return local
}
