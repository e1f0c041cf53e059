// Package products is the UI-facing repository for scanned products,
// including the allergen check run after each barcode scan and the
// presigned-URL image flow.
package products

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sultumov/allergyTracker/internal/client/models"
	"github.com/sultumov/allergyTracker/internal/client/sync"
	"github.com/sultumov/allergyTracker/internal/common"
	"github.com/sultumov/allergyTracker/internal/netx"
)

// Presigner hands out one-shot object-storage URLs for product images.
// Implemented by the remote HTTP client.
type Presigner interface {
	PresignImagePut(ctx context.Context) (key, uploadURL string, err error)
	PresignImageGet(ctx context.Context, key string) (string, error)
}

type Repository struct {
	engine  *sync.Engine[models.Product]
	presign Presigner
	now     func() int64
}

func New(engine *sync.Engine[models.Product], presign Presigner) *Repository {
	return &Repository{
		engine:  engine,
		presign: presign,
		now:     func() int64 { return time.Now().UnixMilli() },
	}
}

func (r *Repository) GetAll(ctx context.Context) *sync.Feed[[]models.Product] {
	return r.engine.ObserveAll(ctx)
}

// GetByBarcode streams a single product; nil emissions when unknown.
func (r *Repository) GetByBarcode(ctx context.Context, barcode string) *sync.Feed[*models.Product] {
	return r.engine.GetByID(ctx, barcode)
}

// Save upserts a product record, stamping its modification time.
func (r *Repository) Save(ctx context.Context, p models.Product) error {
	if p.Barcode == "" {
		return fmt.Errorf("%w: product needs a barcode", common.ErrInvalidEntity)
	}
	p.LastModified = r.now()
	return r.engine.Upsert(ctx, p)
}

func (r *Repository) Delete(ctx context.Context, barcode string) error {
	return r.engine.Delete(ctx, barcode)
}

// CheckAllergens intersects a product's allergen labels with the user's
// active allergies, case-insensitively. The result is what a scan reports
// and what lands in the history entry.
func CheckAllergens(p models.Product, active []models.Allergy) []string {
	names := make(map[string]struct{}, len(active))
	for _, a := range active {
		names[strings.ToLower(a.Name)] = struct{}{}
	}

	var found []string
	for _, label := range p.Allergens {
		if _, ok := names[strings.ToLower(label)]; ok {
			found = append(found, label)
		}
	}
	return found
}

// AttachImage uploads image bytes through a presigned URL and records the
// storage key on the product.
func (r *Repository) AttachImage(ctx context.Context, p models.Product, image []byte) (models.Product, error) {
	key, uploadURL, err := r.presign.PresignImagePut(ctx)
	if err != nil {
		return p, fmt.Errorf("requesting upload url: %w", err)
	}
	if err := netx.UploadToPresignedURL(ctx, uploadURL, image); err != nil {
		return p, fmt.Errorf("uploading product image: %w", err)
	}

	p.ImageRef = key
	if err := r.Save(ctx, p); err != nil {
		return p, err
	}
	return p, nil
}

// ImageURL resolves a product's stored image key into a temporary download
// URL; empty when the product has no image.
func (r *Repository) ImageURL(ctx context.Context, p models.Product) (string, error) {
	if p.ImageRef == "" {
		return "", nil
	}
	return r.presign.PresignImageGet(ctx, p.ImageRef)
}
