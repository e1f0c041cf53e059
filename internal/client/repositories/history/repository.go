// Package history is the UI-facing repository for the scan history.
package history

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sultumov/allergyTracker/internal/client/models"
	"github.com/sultumov/allergyTracker/internal/client/sync"
)

type Repository struct {
	engine *sync.Engine[models.HistoryItem]
	now    func() int64
}

func New(engine *sync.Engine[models.HistoryItem]) *Repository {
	return &Repository{
		engine: engine,
		now:    func() int64 { return time.Now().UnixMilli() },
	}
}

func (r *Repository) GetAll(ctx context.Context) *sync.Feed[[]models.HistoryItem] {
	return r.engine.ObserveAll(ctx)
}

// RecordScan appends one scan event for a product, with the allergens the
// check flagged for this user.
func (r *Repository) RecordScan(ctx context.Context, p models.Product, foundAllergens []string, notes string) (models.HistoryItem, error) {
	item := models.HistoryItem{
		ID:             uuid.NewString(),
		ProductBarcode: p.Barcode,
		ProductName:    p.Name,
		ScanDate:       r.now(),
		FoundAllergens: foundAllergens,
		Notes:          notes,
	}
	return item, r.engine.Upsert(ctx, item)
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	return r.engine.Delete(ctx, id)
}

// Clear deletes every history entry, locally and remotely. Remote failures
// are collected; entries whose remote delete failed stay deleted locally
// (optimistic, like any other delete).
func (r *Repository) Clear(ctx context.Context) error {
	items := r.engine.Cached(ctx)

	var errs []error
	for _, item := range items {
		if err := r.engine.Delete(ctx, item.ID); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
