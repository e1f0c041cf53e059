// Package remotetest provides an in-memory fake of the remote document
// store for tests: scripted failures, recorded writes and manually driven
// subscription pushes.
package remotetest

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/sultumov/allergyTracker/internal/client/remote"
	"github.com/sultumov/allergyTracker/internal/common"
)

// FakeSub is a manually driven subscription.
type FakeSub struct {
	mu     sync.Mutex
	ch     chan remote.Snapshot
	closed bool
}

func (f *FakeSub) Updates() <-chan remote.Snapshot { return f.ch }

func (f *FakeSub) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.ch)
	}
	return nil
}

// Closed reports whether the listener has been released.
func (f *FakeSub) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// TryPush delivers a snapshot unless the subscription is closed.
func (f *FakeSub) TryPush(snap remote.Snapshot) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return false
	}
	f.ch <- snap
	return true
}

// FakeStore implements remote.Store and the connectivity Prober. Scripted
// error fields apply to every subsequent call of the matching operation.
type FakeStore struct {
	mu sync.Mutex

	SetErr    error
	UpdateErr error
	DeleteErr error
	SubErr    error
	PingErr   error

	QueryResults map[string]remote.Snapshot
	QueryErrs    map[string]error

	sets    map[string]json.RawMessage
	updates map[string]map[string]any
	deletes []string
	subs    map[string][]*FakeSub
}

func NewFakeStore() *FakeStore {
	return &FakeStore{
		QueryResults: map[string]remote.Snapshot{},
		QueryErrs:    map[string]error{},
		sets:         map[string]json.RawMessage{},
		updates:      map[string]map[string]any{},
		subs:         map[string][]*FakeSub{},
	}
}

func (f *FakeStore) Ping(ctx context.Context) error { return f.PingErr }

func (f *FakeStore) Get(ctx context.Context, path string) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if doc, ok := f.sets[path]; ok {
		return doc, nil
	}
	return nil, common.ErrNotFound
}

func (f *FakeStore) Set(ctx context.Context, path string, value any) error {
	if f.SetErr != nil {
		return f.SetErr
	}
	doc, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.mu.Lock()
	f.sets[path] = doc
	f.mu.Unlock()
	return nil
}

func (f *FakeStore) Update(ctx context.Context, path string, fields map[string]any) error {
	if f.UpdateErr != nil {
		return f.UpdateErr
	}
	f.mu.Lock()
	f.updates[path] = fields
	f.mu.Unlock()
	return nil
}

func (f *FakeStore) Delete(ctx context.Context, path string) error {
	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	f.mu.Lock()
	f.deletes = append(f.deletes, path)
	f.mu.Unlock()
	return nil
}

func (f *FakeStore) Subscribe(ctx context.Context, path string) (remote.Subscription, error) {
	if f.SubErr != nil {
		return nil, f.SubErr
	}
	sub := &FakeSub{ch: make(chan remote.Snapshot, 8)}
	f.mu.Lock()
	f.subs[path] = append(f.subs[path], sub)
	f.mu.Unlock()
	return sub, nil
}

func (f *FakeStore) QueryModifiedSince(ctx context.Context, path string, since int64) (remote.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.QueryErrs[path]; err != nil {
		return nil, err
	}
	return f.QueryResults[path], nil
}

// SetDoc returns the last document written to path via Set, nil if none.
func (f *FakeStore) SetDoc(path string) json.RawMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sets[path]
}

// UpdatedFields returns the last partial update applied to path.
func (f *FakeStore) UpdatedFields(path string) map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.updates[path]
}

// DeletedPaths returns every path deleted so far.
func (f *FakeStore) DeletedPaths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deletes...)
}

// Subs returns the subscriptions opened under path.
func (f *FakeStore) Subs(path string) []*FakeSub {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*FakeSub(nil), f.subs[path]...)
}

// Push fans a snapshot of raw documents out to every open subscription on
// path, reporting whether anyone was listening.
func (f *FakeStore) Push(path string, docs ...string) bool {
	snap := make(remote.Snapshot, 0, len(docs))
	for _, d := range docs {
		snap = append(snap, json.RawMessage(d))
	}

	delivered := false
	for _, s := range f.Subs(path) {
		if s.TryPush(snap) {
			delivered = true
		}
	}
	return delivered
}

// WaitForSub blocks until a subscription appears on path, nil on timeout.
func (f *FakeStore) WaitForSub(path string) *FakeSub {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if subs := f.Subs(path); len(subs) > 0 {
			return subs[len(subs)-1]
		}
		time.Sleep(5 * time.Millisecond)
	}
	return nil
}
