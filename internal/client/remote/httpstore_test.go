package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sultumov/allergyTracker/internal/common"
)

type fakeTokens struct {
	mu      sync.Mutex
	access  string
	refresh string
}

func (f *fakeTokens) Tokens(ctx context.Context) (string, string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.access, f.refresh
}

func (f *fakeTokens) SetTokens(ctx context.Context, access, refresh string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.access, f.refresh = access, refresh
	return nil
}

func TestHTTPStore_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error":"not authenticated"}`, common.ErrNotAuthenticated},
		{"forbidden", http.StatusForbidden, `{}`, common.ErrNotAuthenticated},
		{"not found", http.StatusNotFound, `{"error":"not found"}`, common.ErrNotFound},
		{"server error", http.StatusInternalServerError, `{}`, common.ErrUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			s := NewHTTPStore(srv.URL, &fakeTokens{}, nil)
			_, err := s.Get(context.Background(), "users/u1/allergies/a1")
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestHTTPStore_NetworkFailureIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing listening anymore

	s := NewHTTPStore(srv.URL, &fakeTokens{}, nil)
	err := s.Set(context.Background(), "products/1", map[string]any{"barcode": "1"})
	require.ErrorIs(t, err, common.ErrUnavailable)
}

func TestHTTPStore_RefreshesExpiredToken(t *testing.T) {
	var gotAuth []string
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/docs/", func(w http.ResponseWriter, r *http.Request) {
		gotAuth = append(gotAuth, r.Header.Get("Authorization"))
		if r.Header.Get("Authorization") != "Bearer fresh" {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": common.ErrTokenExpired.Error()})
			return
		}
		_, _ = w.Write([]byte(`{"id":"a1"}`))
	})
	mux.HandleFunc("/v1/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "old-refresh", req["refreshToken"])
		_ = json.NewEncoder(w).Encode(TokenPair{AccessToken: "fresh", RefreshToken: "fresh-refresh"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	tokens := &fakeTokens{access: "stale", refresh: "old-refresh"}
	s := NewHTTPStore(srv.URL, tokens, nil)

	body, err := s.Get(context.Background(), "users/u1/allergies/a1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"a1"}`, string(body))

	access, refresh := tokens.Tokens(context.Background())
	assert.Equal(t, "fresh", access)
	assert.Equal(t, "fresh-refresh", refresh)
	require.Len(t, gotAuth, 2)
	assert.Equal(t, "Bearer stale", gotAuth[0])
}

func TestHTTPStore_NoRefreshTokenMeansNotAuthenticated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": common.ErrTokenExpired.Error()})
	}))
	defer srv.Close()

	s := NewHTTPStore(srv.URL, &fakeTokens{access: "stale"}, nil)
	_, err := s.Get(context.Background(), "users/u1/allergies/a1")
	require.ErrorIs(t, err, common.ErrNotAuthenticated)
}

func TestHTTPStore_QueryModifiedSince(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/docs/users/u1/allergies", r.URL.Path)
		assert.Equal(t, "150", r.URL.Query().Get("modifiedSince"))
		_, _ = w.Write([]byte(`[{"id":"a1"},{"id":"a2"}]`))
	}))
	defer srv.Close()

	s := NewHTTPStore(srv.URL, &fakeTokens{access: "tok"}, nil)
	snap, err := s.QueryModifiedSince(context.Background(), "users/u1/allergies", 150)
	require.NoError(t, err)
	require.Len(t, snap, 2)
}

func TestHTTPStore_Subscribe(t *testing.T) {
	push := make(chan []string, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/watch", r.URL.Path)
		require.Equal(t, "users/u1/allergies", r.URL.Query().Get("path"))

		conn, err := websocket.Accept(w, r, nil)
		require.NoError(t, err)
		defer conn.CloseNow()

		ctx := r.Context()
		for docs := range push {
			snap := make([]json.RawMessage, 0, len(docs))
			for _, d := range docs {
				snap = append(snap, json.RawMessage(d))
			}
			if err := wsjson.Write(ctx, conn, snap); err != nil {
				return
			}
		}
		<-ctx.Done()
	}))
	defer srv.Close()
	defer close(push)

	s := NewHTTPStore(srv.URL, &fakeTokens{access: "tok"}, nil)
	sub, err := s.Subscribe(context.Background(), "users/u1/allergies")
	require.NoError(t, err)

	push <- []string{`{"id":"a1"}`}
	select {
	case snap := <-sub.Updates():
		require.Len(t, snap, 1)
		assert.JSONEq(t, `{"id":"a1"}`, string(snap[0]))
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot delivered")
	}

	require.NoError(t, sub.Close())

	// feed is closed, nothing more can arrive
	_, ok := <-sub.Updates()
	assert.False(t, ok)
}

func TestHTTPStore_PathHelpers(t *testing.T) {
	assert.Equal(t, "users/u1/allergies", UserCollectionPath("u1", "allergies"))
	assert.Equal(t, "users/u1/records/r1", UserDocPath("u1", "records", "r1"))
	assert.Equal(t, "products/460", ProductDocPath("460"))
	assert.Equal(t, "products", ProductsPath())
}
