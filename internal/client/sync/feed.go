package sync

import (
	stdsync "sync"
)

// Feed is one live sequence of values produced by ObserveAll or GetByID.
// The first value (the cached snapshot) is already buffered when the feed
// is handed to the caller; later values arrive as remote pushes are
// reconciled, in arrival order.
//
// Close releases the underlying remote listener and waits for the producer
// to stop before returning, so no value is delivered after Close returns.
// When the feed terminates on its own, Updates is closed and Err reports
// the terminal error, if any.
type Feed[T any] struct {
	ch           chan T
	done         chan struct{}
	producerDone chan struct{}

	mu      stdsync.Mutex
	err     error
	release func() // closes the remote subscription, set once attached

	closeOnce stdsync.Once
	endOnce   stdsync.Once
}

func newFeed[T any]() *Feed[T] {
	return &Feed[T]{
		ch:           make(chan T, 1),
		done:         make(chan struct{}),
		producerDone: make(chan struct{}),
	}
}

// Updates is the ordered stream of values. It is closed when the feed
// terminates or is closed.
func (f *Feed[T]) Updates() <-chan T { return f.ch }

// Err returns the terminal error after Updates is closed: nil for a plain
// close, common.ErrNotAuthenticated for an identity failure.
func (f *Feed[T]) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// Close cancels the feed and synchronously unregisters the remote listener.
func (f *Feed[T]) Close() {
	f.closeOnce.Do(func() { close(f.done) })

	f.mu.Lock()
	release := f.release
	f.release = nil
	f.mu.Unlock()
	if release != nil {
		release()
	}

	<-f.producerDone
	f.endOnce.Do(func() { close(f.ch) })
}

// emit delivers v unless the feed has been closed. Producer-side only.
func (f *Feed[T]) emit(v T) bool {
	select {
	case <-f.done:
		return false
	default:
	}
	select {
	case f.ch <- v:
		return true
	case <-f.done:
		return false
	}
}

// bind registers the subscription-release hook. If the feed was closed
// before the subscription attached, bind reports false and the caller must
// release the subscription itself.
func (f *Feed[T]) bind(release func()) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	select {
	case <-f.done:
		return false
	default:
	}
	f.release = release
	return true
}

// end closes the stream without an error. Producer-side only.
func (f *Feed[T]) end() {
	f.endOnce.Do(func() { close(f.ch) })
}

// fail terminates the feed with err. Producer-side only.
func (f *Feed[T]) fail(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
	f.closeOnce.Do(func() { close(f.done) })
	f.endOnce.Do(func() { close(f.ch) })
}

// finish marks the producer goroutine as stopped. Producer-side only, via
// defer.
func (f *Feed[T]) finish() {
	close(f.producerDone)
}
