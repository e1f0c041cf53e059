// Package sync mediates every read and write between the UI-facing
// repositories, the local cache and the remote document tree: cache-first
// reads, write-through optimistic updates, live-subscription reconciliation
// and incremental catch-up sync.
package sync

import (
	"context"
	"errors"
	"fmt"
	stdsync "sync"
	"time"

	"github.com/sultumov/allergyTracker/internal/common"
	"github.com/sultumov/allergyTracker/internal/logging"
)

// ErrDegraded marks a remote attempt that was skipped or absorbed because
// there is no connectivity and the local cache already satisfies the read.
// It is never surfaced to subscribers; callers inside the engine treat it
// as "stay cache-only".
var ErrDegraded = errors.New("degraded: serving cache only")

// Prober checks remote reachability cheaply.
type Prober interface {
	Ping(ctx context.Context) error
}

// Gate decides whether an operation may attempt the network and classifies
// failures: reads degrade silently, writes fail loud. A reachability probe
// result is cached for probeInterval so feeds do not hammer a dead link.
type Gate struct {
	prober   Prober
	interval time.Duration
	log      logging.Logger

	mu        stdsync.Mutex
	lastProbe time.Time
	online    bool
}

func NewGate(prober Prober, probeInterval time.Duration, log logging.Logger) *Gate {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Gate{prober: prober, interval: probeInterval, log: log}
}

// Online reports cached reachability, re-probing at most once per interval.
func (g *Gate) Online(ctx context.Context) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if time.Since(g.lastProbe) < g.interval {
		return g.online
	}
	g.lastProbe = time.Now()
	g.online = g.prober.Ping(ctx) == nil
	return g.online
}

func (g *Gate) markOffline() {
	g.mu.Lock()
	g.online = false
	g.lastProbe = time.Now()
	g.mu.Unlock()
}

// AttemptRead wraps a remote read or subscription setup. Unavailability,
// whether a skipped probe or a mid-flight connection failure, comes back as
// ErrDegraded for the caller to absorb. ErrNotAuthenticated passes through
// untouched: without identity there is no per-user data to serve.
func (g *Gate) AttemptRead(ctx context.Context, op func(ctx context.Context) error) error {
	if !g.Online(ctx) {
		return fmt.Errorf("%w: offline", ErrDegraded)
	}

	err := op(ctx)
	if errors.Is(err, common.ErrUnavailable) {
		g.markOffline()
		return fmt.Errorf("%w: %v", ErrDegraded, err)
	}
	return err
}

// AttemptWrite wraps a remote write or one-shot query. Every failure is
// surfaced: a user-initiated write that silently failed would create false
// confidence. Offline short-circuits to ErrUnavailable without touching the
// network.
func (g *Gate) AttemptWrite(ctx context.Context, op func(ctx context.Context) error) error {
	if !g.Online(ctx) {
		return fmt.Errorf("%w: offline", common.ErrUnavailable)
	}

	err := op(ctx)
	if errors.Is(err, common.ErrUnavailable) {
		g.markOffline()
	}
	return err
}
