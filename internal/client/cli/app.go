package cli

import (
	"bufio"
	"context"
	"log"
	"os"
	"time"

	"github.com/sultumov/allergyTracker/internal/client/config"
	"github.com/sultumov/allergyTracker/internal/client/localstore"
	"github.com/sultumov/allergyTracker/internal/client/remote"
	"github.com/sultumov/allergyTracker/internal/client/repositories/allergies"
	"github.com/sultumov/allergyTracker/internal/client/repositories/history"
	"github.com/sultumov/allergyTracker/internal/client/repositories/products"
	"github.com/sultumov/allergyTracker/internal/client/repositories/reactions"
	"github.com/sultumov/allergyTracker/internal/client/services"
	"github.com/sultumov/allergyTracker/internal/client/sync"
)

type Mode string

const (
	ModeOffline  Mode = "offline"
	ModeOnline   Mode = "online"
	ModeDisabled Mode = "disabled"
)

type App struct {
	config      *config.Config
	store       *localstore.Store
	remote      *remote.HTTPStore
	authService *services.AuthService

	manager   *sync.Manager
	allergies *allergies.Repository
	reactions *reactions.Repository
	products  *products.Repository
	history   *history.Repository

	userID string
	Mode   Mode
	reader *bufio.Reader
}

func NewApp(c *config.Config) (*App, error) {

	ctx := context.Background()

	store, err := localstore.Open(ctx, c.CacheDSN, nil)
	if err != nil {
		log.Printf("error initializing local cache: %s", err.Error())
		return nil, err
	}

	rs := remote.NewHTTPStore(c.ServerEndpointAddr, store, nil)
	as := services.NewAuthService(rs, store)

	return &App{
		config:      c,
		store:       store,
		remote:      rs,
		authService: as,
		reader:      bufio.NewReader(os.Stdin),
	}, nil
}

// beginSession wires the sync engines and repositories for the signed-in
// user. Called after login or session restore.
func (a *App) beginSession(userID string) {
	gate := sync.NewGate(a.remote, a.config.OnlineCheckInterval, nil)
	a.manager = sync.NewManager(a.store, a.remote, gate, nil, userID)

	a.allergies = allergies.New(a.manager.Allergies)
	a.reactions = reactions.New(a.manager.Records)
	a.products = products.New(a.manager.Products, a.remote)
	a.history = history.New(a.manager.History)

	a.userID = userID
}

// endSession drops the per-user wiring. Called on logout.
func (a *App) endSession() {
	a.manager = nil
	a.allergies = nil
	a.reactions = nil
	a.products = nil
	a.history = nil
	a.userID = ""
}

func (a *App) setMode(mode Mode) {
	if a.Mode != mode {
		a.Mode = mode
		log.Printf("Switched to %s mode\n", mode)
	}
}

func (a *App) Run(ctx context.Context) {
	defer a.store.Close()
	a.Root(ctx)
}

func (a *App) isLoggedIn() bool {
	return a.userID != ""
}

func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			err := a.authService.Ping(pingCtx)
			cancel()

			if err != nil {
				if a.Mode == ModeOnline {
					a.setMode(ModeOffline)
				}
			} else {
				if a.Mode != ModeOnline {
					a.setMode(ModeOnline)
				}
			}

		case <-ctx.Done():
			return
		}
	}
}

// takeFirst reads the cached snapshot off a feed and releases it. The
// interactive commands work request/response style; live feeds are for the
// watcher-driven views.
func takeFirst[T any](f *sync.Feed[T]) (T, bool) {
	defer f.Close()
	v, ok := <-f.Updates()
	return v, ok
}
