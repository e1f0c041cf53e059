// Package documents declares and implements server-side storage for the
// JSON document tree the clients sync against.
package documents

import (
	"context"

	"github.com/sultumov/allergyTracker/internal/server/models"
)

type Repository interface {
	// Get returns the document at path, common.ErrNotFound when absent.
	Get(ctx context.Context, path string) (*models.Document, error)

	// Upsert writes a document, replacing any previous body at its path.
	Upsert(ctx context.Context, doc *models.Document) error

	// Delete removes the document at path. Deleting an absent path is not
	// an error.
	Delete(ctx context.Context, path string) error

	// SelectCollection returns every document directly under collection,
	// ordered by modification stamp then path.
	SelectCollection(ctx context.Context, collection string) ([]*models.Document, error)

	// SelectModifiedSince returns documents under collection whose stamp is
	// strictly greater than since, in the same order.
	SelectModifiedSince(ctx context.Context, collection string, since int64) ([]*models.Document, error)
}
