// Package reactions is the UI-facing repository for reaction records.
package reactions

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
	engine *sync.Engine[models.Reaction]
	now    func() int64
}

func New(engine *sync.Engine[models.Reaction]) *Repository {
	return &Repository{
		engine: engine,
		now:    func() int64 { return time.Now().UnixMilli() },
	}
}

func (r *Repository) GetAll(ctx context.Context) *sync.Feed[[]models.Reaction] {
	return r.engine.ObserveAll(ctx)
}

// GetByAllergy streams the reactions recorded against one allergy.
func (r *Repository) GetByAllergy(ctx context.Context, allergyID string) *sync.Feed[[]models.Reaction] {
	return sync.MapFeed(r.engine.ObserveAll(ctx), func(items []models.Reaction) []models.Reaction {
		out := make([]models.Reaction, 0, len(items))
		for _, re := range items {
			if re.AllergyID == allergyID {
				out = append(out, re)
			}
		}
		return out
	})
}

func (r *Repository) GetByID(ctx context.Context, id string) *sync.Feed[*models.Reaction] {
	return r.engine.GetByID(ctx, id)
}

// Add stores a new reaction episode. The caller is expected to pass an
// AllergyID that exists; nothing here verifies the reference, matching the
// tracker's (lack of) referential integrity.
func (r *Repository) Add(ctx context.Context, re models.Reaction) error {
	if re.AllergyID == "" {
		return fmt.Errorf("%w: reaction needs an allergyId", common.ErrInvalidEntity)
	}
	if !re.Severity.Valid() {
		return fmt.Errorf("%w: unknown severity %q", common.ErrInvalidEntity, re.Severity)
	}
	if re.ID == "" {
		re.ID = uuid.NewString()
	}
	if re.Date == 0 {
		re.Date = r.now()
	}
	re.LastModified = r.now()
	return r.engine.Upsert(ctx, re)
}

func (r *Repository) Update(ctx context.Context, re models.Reaction) error {
	if re.ID == "" {
		return fmt.Errorf("%w: update needs an id", common.ErrInvalidEntity)
	}
	if !re.Severity.Valid() {
		return fmt.Errorf("%w: unknown severity %q", common.ErrInvalidEntity, re.Severity)
	}
	re.LastModified = r.now()
	return r.engine.Upsert(ctx, re)
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	return r.engine.Delete(ctx, id)
}
