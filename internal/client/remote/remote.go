// Package remote defines the contract of the path-addressed remote document
// tree the sync layer talks to, and an HTTP/websocket client implementing
// it. The core depends only on the Store and Subscription interfaces; the
// wire shape is an implementation detail of the adapter.
package remote

import (
	"context"
	"encoding/json"
	"fmt"
)

// Snapshot is a full-collection state: one raw document per record.
type Snapshot []json.RawMessage

// Subscription is a live feed of collection snapshots. The first emission
// arrives shortly after Subscribe (current state); later ones follow every
// remote mutation under the path. Close synchronously unregisters the
// listener: once it returns, no further value is delivered and Updates is
// closed.
type Subscription interface {
	Updates() <-chan Snapshot
	Close() error
}

// Store is the remote document tree. Operations fail with
// common.ErrUnavailable, common.ErrNotAuthenticated or common.ErrNotFound;
// the sync layer decides which of those to absorb and which to surface.
type Store interface {
	// Get reads a single document; common.ErrNotFound when absent.
	Get(ctx context.Context, path string) (json.RawMessage, error)

	// Set fully replaces (or creates) the document at path.
	Set(ctx context.Context, path string, value any) error

	// Update writes only the named fields of the document at path.
	Update(ctx context.Context, path string, fields map[string]any) error

	// Delete removes the document at path.
	Delete(ctx context.Context, path string) error

	// Subscribe opens a live feed of full snapshots under a collection path.
	Subscribe(ctx context.Context, path string) (Subscription, error)

	// QueryModifiedSince returns documents under path whose modification
	// stamp is strictly newer than since.
	QueryModifiedSince(ctx context.Context, path string, since int64) (Snapshot, error)
}

// Path helpers for the logical document tree. Products are global; the
// other collections are scoped per user.

func UserCollectionPath(userID, collection string) string {
	return fmt.Sprintf("users/%s/%s", userID, collection)
}

func UserDocPath(userID, collection, id string) string {
	return fmt.Sprintf("users/%s/%s/%s", userID, collection, id)
}

func ProductsPath() string {
	return "products"
}

func ProductDocPath(barcode string) string {
	return "products/" + barcode
}
