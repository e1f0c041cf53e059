// Package allergies is the UI-facing repository for the allergy collection,
// backed by the sync engine.
package allergies

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sultumov/allergyTracker/internal/client/models"
	"github.com/sultumov/allergyTracker/internal/client/sync"
	"github.com/sultumov/allergyTracker/internal/common"
)

type Repository struct {
	engine *sync.Engine[models.Allergy]
	now    func() int64
}

func New(engine *sync.Engine[models.Allergy]) *Repository {
	return &Repository{
		engine: engine,
		now:    func() int64 { return time.Now().UnixMilli() },
	}
}

// GetAll streams the full allergy collection, active or not.
func (r *Repository) GetAll(ctx context.Context) *sync.Feed[[]models.Allergy] {
	return r.engine.ObserveAll(ctx)
}

// GetActive streams only allergies whose IsActive flag is set.
func (r *Repository) GetActive(ctx context.Context) *sync.Feed[[]models.Allergy] {
	return sync.MapFeed(r.engine.ObserveAll(ctx), func(items []models.Allergy) []models.Allergy {
		active := make([]models.Allergy, 0, len(items))
		for _, a := range items {
			if a.IsActive {
				active = append(active, a)
			}
		}
		return active
	})
}

// GetByID streams a single allergy; nil emissions when the id is unknown.
func (r *Repository) GetByID(ctx context.Context, id string) *sync.Feed[*models.Allergy] {
	return r.engine.GetByID(ctx, id)
}

func (r *Repository) validate(a models.Allergy) error {
	if a.Name == "" {
		return fmt.Errorf("%w: allergy needs a name", common.ErrInvalidEntity)
	}
	if !a.Category.Valid() {
		return fmt.Errorf("%w: unknown category %q", common.ErrInvalidEntity, a.Category)
	}
	if !a.Severity.Valid() {
		return fmt.Errorf("%w: unknown severity %q", common.ErrInvalidEntity, a.Severity)
	}
	return nil
}

// Add stores a new allergy. ID and timestamps are stamped here; new
// allergies start active.
func (r *Repository) Add(ctx context.Context, a models.Allergy) error {
	if err := r.validate(a); err != nil {
		return err
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	now := r.now()
	a.CreatedAt = now
	a.LastModified = now
	a.IsActive = true
	return r.engine.Upsert(ctx, a)
}

// Update fully replaces an allergy record, bumping its modification stamp.
func (r *Repository) Update(ctx context.Context, a models.Allergy) error {
	if a.ID == "" {
		return fmt.Errorf("%w: update needs an id", common.ErrInvalidEntity)
	}
	if err := r.validate(a); err != nil {
		return err
	}
	a.LastModified = r.now()
	return r.engine.Upsert(ctx, a)
}

// Delete removes an allergy outright. Reactions referencing it are left in
// place; see the tracker's data-model notes.
func (r *Repository) Delete(ctx context.Context, id string) error {
	return r.engine.Delete(ctx, id)
}

// Deactivate soft-removes an allergy: the record stays, flagged inactive.
// Only the flag and the stamp travel to the remote, not a full replace.
func (r *Repository) Deactivate(ctx context.Context, id string) error {
	return r.setActive(ctx, id, false)
}

// Activate re-enables a previously deactivated allergy.
func (r *Repository) Activate(ctx context.Context, id string) error {
	return r.setActive(ctx, id, true)
}

func (r *Repository) setActive(ctx context.Context, id string, active bool) error {
	now := r.now()
	return r.engine.UpdateFields(ctx, id,
		func(a models.Allergy) models.Allergy {
			a.IsActive = active
			a.LastModified = now
			return a
		},
		map[string]any{"isActive": active, "lastModified": now},
	)
}
