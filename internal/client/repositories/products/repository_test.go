package products

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
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

type fakePresigner struct {
	putKey string
	putURL string
	putErr error
	getURL string
	getErr error

	gotKey string
}

func (p *fakePresigner) PresignImagePut(ctx context.Context) (string, string, error) {
	return p.putKey, p.putURL, p.putErr
}

func (p *fakePresigner) PresignImageGet(ctx context.Context, key string) (string, error) {
	p.gotKey = key
	return p.getURL, p.getErr
}

func setupRepo(t *testing.T, presign Presigner) (*Repository, *remotetest.FakeStore, *localstore.Store) {
	t.Helper()
	testDBSeq++
	dsn := fmt.Sprintf("file:productrepo%d?mode=memory&cache=shared", testDBSeq)
	store, err := localstore.Open(context.Background(), dsn, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	fr := remotetest.NewFakeStore()
	gate := sync.NewGate(fr, 0, nil)
	manager := sync.NewManager(store, fr, gate, nil, "u1")

	repo := New(manager.Products, presign)
	repo.now = func() int64 { return 1000 }
	return repo, fr, store
}

func TestSave_StampsAndPushes(t *testing.T) {
	ctx := context.Background()
	repo, fr, store := setupRepo(t, nil)

	err := repo.Save(ctx, models.Product{
		Barcode:   "4607001234567",
		Name:      "Chocolate bar",
		Allergens: []string{"peanut", "milk"},
	})
	require.NoError(t, err)

	col := localstore.NewCollection(store, common.CollectionProducts, models.DecodeProduct)
	got := col.ReadOne(ctx, "4607001234567")
	require.NotNil(t, got)
	assert.EqualValues(t, 1000, got.LastModified)

	assert.NotNil(t, fr.SetDoc("products/4607001234567"))
}

func TestSave_RequiresBarcode(t *testing.T) {
	repo, _, _ := setupRepo(t, nil)
	err := repo.Save(context.Background(), models.Product{Name: "no barcode"})
	assert.ErrorIs(t, err, common.ErrInvalidEntity)
}

func TestCheckAllergens(t *testing.T) {
	active := []models.Allergy{
		{ID: "a1", Name: "Peanut", IsActive: true},
		{ID: "a2", Name: "Milk", IsActive: true},
	}

	cases := []struct {
		name string
		p    models.Product
		want []string
	}{
		{
			"case-insensitive match",
			models.Product{Allergens: []string{"PEANUT", "soy"}},
			[]string{"PEANUT"},
		},
		{
			"multiple hits keep label order",
			models.Product{Allergens: []string{"milk", "wheat", "peanut"}},
			[]string{"milk", "peanut"},
		},
		{
			"no overlap",
			models.Product{Allergens: []string{"soy", "wheat"}},
			nil,
		},
		{
			"no labels",
			models.Product{},
			nil,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CheckAllergens(tc.p, active))
		})
	}
}

func TestAttachImage_UploadsAndRecordsKey(t *testing.T) {
	ctx := context.Background()

	var uploaded []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		uploaded = body
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	presign := &fakePresigner{putKey: "images/img-1.jpg", putURL: srv.URL}
	repo, _, store := setupRepo(t, presign)

	p, err := repo.AttachImage(ctx, models.Product{Barcode: "b1", Name: "Juice"}, []byte("jpeg bytes"))
	require.NoError(t, err)
	assert.Equal(t, "images/img-1.jpg", p.ImageRef)
	assert.Equal(t, []byte("jpeg bytes"), uploaded)

	col := localstore.NewCollection(store, common.CollectionProducts, models.DecodeProduct)
	got := col.ReadOne(ctx, "b1")
	require.NotNil(t, got)
	assert.Equal(t, "images/img-1.jpg", got.ImageRef)
}

func TestAttachImage_PresignFailure(t *testing.T) {
	presign := &fakePresigner{putErr: common.ErrUnavailable}
	repo, _, store := setupRepo(t, presign)

	_, err := repo.AttachImage(context.Background(), models.Product{Barcode: "b1"}, []byte("x"))
	require.ErrorIs(t, err, common.ErrUnavailable)

	// nothing saved when the upload never happened
	col := localstore.NewCollection(store, common.CollectionProducts, models.DecodeProduct)
	assert.Nil(t, col.ReadOne(context.Background(), "b1"))
}

func TestImageURL(t *testing.T) {
	ctx := context.Background()
	presign := &fakePresigner{getURL: "https://bucket.example/images/img-1.jpg?sig=abc"}
	repo, _, _ := setupRepo(t, presign)

	url, err := repo.ImageURL(ctx, models.Product{Barcode: "b1", ImageRef: "images/img-1.jpg"})
	require.NoError(t, err)
	assert.Equal(t, presign.getURL, url)
	assert.Equal(t, "images/img-1.jpg", presign.gotKey)

	// no image, no round trip
	url, err = repo.ImageURL(ctx, models.Product{Barcode: "b2"})
	require.NoError(t, err)
	assert.Empty(t, url)
}

func TestGetByBarcode_RemotePushWins(t *testing.T) {
	ctx := context.Background()
	repo, fr, _ := setupRepo(t, nil)

	require.NoError(t, repo.Save(ctx, models.Product{Barcode: "b1", Name: "Old name"}))

	feed := repo.GetByBarcode(ctx, "b1")
	defer feed.Close()

	first := <-feed.Updates()
	require.NotNil(t, first)
	assert.Equal(t, "Old name", first.Name)

	require.NotNil(t, fr.WaitForSub("products/b1"))
	fr.Push("products/b1", `{"barcode":"b1","name":"New name","lastModified":9000}`)

	select {
	case second := <-feed.Updates():
		require.NotNil(t, second)
		assert.Equal(t, "New name", second.Name)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for pushed update")
	}
}
