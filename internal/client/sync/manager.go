package sync

import (
	"context"
	"errors"
	"time"

	"github.com/sultumov/allergyTracker/internal/client/localstore"
	"github.com/sultumov/allergyTracker/internal/client/models"
	"github.com/sultumov/allergyTracker/internal/client/remote"
	"github.com/sultumov/allergyTracker/internal/common"
	"github.com/sultumov/allergyTracker/internal/logging"
)

// collectionSyncer is the untyped face of Engine[T] used for incremental
// sync across heterogeneous collections.
type collectionSyncer interface {
	Name() string
	syncSince(ctx context.Context, since int64) error
}

// Manager owns the four collection engines of one signed-in session plus
// the shared sync watermark. Construct it after sign-in, drop it at
// sign-out; there is no process-wide instance.
type Manager struct {
	store *localstore.Store
	log   logging.Logger
	now   func() int64

	Allergies *Engine[models.Allergy]
	Records   *Engine[models.Reaction]
	Products  *Engine[models.Product]
	History   *Engine[models.HistoryItem]

	syncers []collectionSyncer
}

// NewManager wires the engines for userID over the given stores and gate.
func NewManager(store *localstore.Store, rs remote.Store, gate *Gate, log logging.Logger, userID string) *Manager {
	if log == nil {
		log = logging.NewNopLogger()
	}

	m := &Manager{
		store: store,
		log:   log,
		now:   func() int64 { return time.Now().UnixMilli() },
	}

	m.Allergies = NewEngine(
		localstore.NewCollection(store, common.CollectionAllergies, models.DecodeAllergy),
		rs, gate, log,
		remote.UserCollectionPath(userID, common.CollectionAllergies),
		func(id string) string { return remote.UserDocPath(userID, common.CollectionAllergies, id) },
		models.DecodeAllergy,
	)
	m.Records = NewEngine(
		localstore.NewCollection(store, common.CollectionRecords, models.DecodeReaction),
		rs, gate, log,
		remote.UserCollectionPath(userID, common.CollectionRecords),
		func(id string) string { return remote.UserDocPath(userID, common.CollectionRecords, id) },
		models.DecodeReaction,
	)
	m.Products = NewEngine(
		localstore.NewCollection(store, common.CollectionProducts, models.DecodeProduct),
		rs, gate, log,
		remote.ProductsPath(),
		remote.ProductDocPath,
		models.DecodeProduct,
	)
	m.History = NewEngine(
		localstore.NewCollection(store, common.CollectionHistory, models.DecodeHistoryItem),
		rs, gate, log,
		remote.UserCollectionPath(userID, common.CollectionHistory),
		func(id string) string { return remote.UserDocPath(userID, common.CollectionHistory, id) },
		models.DecodeHistoryItem,
	)

	m.syncers = []collectionSyncer{m.Allergies, m.Records, m.Products, m.History}
	return m
}

// SyncIncremental fetches everything modified since the watermark and
// merges it collection by collection. Each collection is all-or-nothing on
// its own; the watermark advances only when every collection succeeded, so
// a partial failure leaves the next run to re-fetch the same window.
func (m *Manager) SyncIncremental(ctx context.Context) error {
	since := m.store.GetWatermark(ctx)
	started := m.now()

	var errs []error
	for _, s := range m.syncers {
		if err := s.syncSince(ctx, since); err != nil {
			m.log.Warn(ctx, "incremental sync failed for collection", "collection", s.Name(), "error", err)
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	if started > since {
		if err := m.store.SetWatermark(ctx, started); err != nil {
			return err
		}
		m.log.Info(ctx, "incremental sync complete", "lastSyncTime", started)
	}
	return nil
}
