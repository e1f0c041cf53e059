package allergies

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sultumov/allergyTracker/internal/client/localstore"
	"github.com/sultumov/allergyTracker/internal/client/models"
	"github.com/sultumov/allergyTracker/internal/client/remote/remotetest"
	"github.com/sultumov/allergyTracker/internal/client/sync"
	"github.com/sultumov/allergyTracker/internal/common"

	_ "modernc.org/sqlite"
)

var testDBSeq int

func setupRepo(t *testing.T) (*Repository, *remotetest.FakeStore, *localstore.Store) {
	t.Helper()
	testDBSeq++
	dsn := fmt.Sprintf("file:allergyrepo%d?mode=memory&cache=shared", testDBSeq)
	store, err := localstore.Open(context.Background(), dsn, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	fr := remotetest.NewFakeStore()
	gate := sync.NewGate(fr, 0, nil)
	manager := sync.NewManager(store, fr, gate, nil, "u1")

	repo := New(manager.Allergies)
	repo.now = func() int64 { return 1000 }
	return repo, fr, store
}

func recv[T any](t *testing.T, feed *sync.Feed[T]) T {
	t.Helper()
	select {
	case v, ok := <-feed.Updates():
		require.True(t, ok, "feed closed: %v", feed.Err())
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for emission")
		panic("unreachable")
	}
}

func TestAdd_StampsIDAndTimestamps(t *testing.T) {
	ctx := context.Background()
	repo, fr, _ := setupRepo(t)

	err := repo.Add(ctx, models.Allergy{
		Name:     "Peanut",
		Category: models.CategoryFood,
		Severity: models.SeverityHigh,
	})
	require.NoError(t, err)

	feed := repo.GetAll(ctx)
	defer feed.Close()
	got := recv(t, feed)
	require.Len(t, got, 1)

	a := got[0]
	assert.NotEmpty(t, a.ID)
	assert.EqualValues(t, 1000, a.CreatedAt)
	assert.EqualValues(t, 1000, a.LastModified)
	assert.True(t, a.IsActive)

	// and the same record went out over the wire
	assert.NotNil(t, fr.SetDoc("users/u1/allergies/"+a.ID))
}

func TestAdd_RejectsInvalidInput(t *testing.T) {
	ctx := context.Background()
	repo, _, _ := setupRepo(t)

	cases := []struct {
		name string
		in   models.Allergy
	}{
		{"missing name", models.Allergy{Category: models.CategoryFood, Severity: models.SeverityLow}},
		{"bad category", models.Allergy{Name: "x", Category: "weather", Severity: models.SeverityLow}},
		{"bad severity", models.Allergy{Name: "x", Category: models.CategoryFood, Severity: "fatal"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, repo.Add(ctx, tc.in), common.ErrInvalidEntity)
		})
	}
}

func TestUpdate_BumpsModificationStamp(t *testing.T) {
	ctx := context.Background()
	repo, _, _ := setupRepo(t)

	a := models.Allergy{
		ID:       "a1",
		Name:     "Milk",
		Category: models.CategoryFood,
		Severity: models.SeverityLow,
	}
	require.NoError(t, repo.Add(ctx, a))

	repo.now = func() int64 { return 2000 }
	a.Severity = models.SeverityHigh
	require.NoError(t, repo.Update(ctx, a))

	feed := repo.GetByID(ctx, "a1")
	defer feed.Close()
	got := recv(t, feed)
	require.NotNil(t, got)
	assert.Equal(t, models.SeverityHigh, got.Severity)
	assert.EqualValues(t, 2000, got.LastModified)
}

func TestUpdate_RequiresID(t *testing.T) {
	repo, _, _ := setupRepo(t)
	err := repo.Update(context.Background(), models.Allergy{
		Name:     "Milk",
		Category: models.CategoryFood,
		Severity: models.SeverityLow,
	})
	assert.ErrorIs(t, err, common.ErrInvalidEntity)
}

func TestGetActive_FiltersDeactivated(t *testing.T) {
	ctx := context.Background()
	repo, _, store := setupRepo(t)

	col := localstore.NewCollection(store, common.CollectionAllergies, models.DecodeAllergy)
	require.NoError(t, col.WriteAll(ctx, []models.Allergy{
		{ID: "a1", Name: "Peanut", Category: models.CategoryFood, Severity: models.SeverityHigh, IsActive: true, LastModified: 10},
		{ID: "a2", Name: "Dust", Category: models.CategoryEnvironmental, Severity: models.SeverityLow, IsActive: false, LastModified: 20},
	}))

	feed := repo.GetActive(ctx)
	defer feed.Close()

	got := recv(t, feed)
	require.Len(t, got, 1)
	assert.Equal(t, "a1", got[0].ID)
}

func TestDeactivate_PartialUpdateTravels(t *testing.T) {
	ctx := context.Background()
	repo, fr, store := setupRepo(t)

	col := localstore.NewCollection(store, common.CollectionAllergies, models.DecodeAllergy)
	require.NoError(t, col.WriteAll(ctx, []models.Allergy{
		{ID: "a1", Name: "Peanut", Category: models.CategoryFood, Severity: models.SeverityHigh, IsActive: true, LastModified: 10},
	}))

	repo.now = func() int64 { return 3000 }
	require.NoError(t, repo.Deactivate(ctx, "a1"))

	got := col.ReadOne(ctx, "a1")
	require.NotNil(t, got)
	assert.False(t, got.IsActive)
	assert.EqualValues(t, 3000, got.LastModified)

	// only the flag and the stamp go over the wire
	fields := fr.UpdatedFields("users/u1/allergies/a1")
	require.NotNil(t, fields)
	assert.Equal(t, map[string]any{"isActive": false, "lastModified": int64(3000)}, fields)

	require.NoError(t, repo.Activate(ctx, "a1"))
	got = col.ReadOne(ctx, "a1")
	require.NotNil(t, got)
	assert.True(t, got.IsActive)
}

func TestDelete_OptimisticOnRemoteFailure(t *testing.T) {
	ctx := context.Background()
	repo, fr, store := setupRepo(t)

	col := localstore.NewCollection(store, common.CollectionAllergies, models.DecodeAllergy)
	require.NoError(t, col.WriteAll(ctx, []models.Allergy{
		{ID: "a1", Name: "Peanut", Category: models.CategoryFood, Severity: models.SeverityHigh, IsActive: true, LastModified: 10},
	}))

	fr.DeleteErr = common.ErrUnavailable
	err := repo.Delete(ctx, "a1")
	require.ErrorIs(t, err, common.ErrUnavailable)
	assert.Nil(t, col.ReadOne(ctx, "a1"))
}
