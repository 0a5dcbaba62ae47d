// Auditstream - Linux Audit Event Correlation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditstream

package source

import (
	"context"
	"errors"
	"sync"
)

// DefaultQueueSize is the default capacity of a source's internal queue.
const DefaultQueueSize = 1000

var (
	// ErrAlreadyStarted is returned by a second call to Start.
	ErrAlreadyStarted = errors.New("source already started")

	// ErrStopped is returned by Start after Stop.
	ErrStopped = errors.New("source stopped")

	// ErrUnsupportedPlatform is returned by NewNetlink outside Linux.
	ErrUnsupportedPlatform = errors.New("netlink audit source requires linux")
)

// Source produces raw audit lines.
//
// Start begins production and returns immediately. ReadMessage is a
// non-blocking poll: false means nothing is ready, not end of stream.
// Done is closed once the source will produce nothing more, after which
// Err reports why (nil for a clean end such as an exhausted replay).
type Source interface {
	Name() string
	Start(ctx context.Context) error
	ReadMessage() ([]byte, bool)

	// C exposes the queue for consumers that prefer select over polling.
	// It is closed when production ends.
	C() <-chan []byte

	Done() <-chan struct{}
	Err() error
	Stop()
}

// queue is the producer half shared by every source: a bounded channel
// fed by one goroutine whose lifetime is tied to a cancellable context.
type queue struct {
	name string
	ch   chan []byte
	done chan struct{}

	mu      sync.Mutex
	started bool
	stopped bool
	cancel  context.CancelFunc
	err     error
	wg      sync.WaitGroup
	once    sync.Once
}

func newQueue(name string, size int) *queue {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &queue{
		name: name,
		ch:   make(chan []byte, size),
		done: make(chan struct{}),
	}
}

// start runs produce on its own goroutine. The queue is closed when
// produce returns, and its error is kept for Err.
func (q *queue) start(ctx context.Context, produce func(ctx context.Context) error) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	switch {
	case q.stopped:
		return ErrStopped
	case q.started:
		return ErrAlreadyStarted
	}
	q.started = true

	ctx, q.cancel = context.WithCancel(ctx)
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		err := produce(ctx)
		if errors.Is(err, context.Canceled) {
			err = nil
		}
		q.finish(err)
	}()
	return nil
}

// emit blocks until msg is queued or ctx is cancelled.
func (q *queue) emit(ctx context.Context, msg []byte) bool {
	select {
	case q.ch <- msg:
		return true
	case <-ctx.Done():
		return false
	}
}

func (q *queue) finish(err error) {
	q.once.Do(func() {
		q.mu.Lock()
		q.err = err
		q.mu.Unlock()
		close(q.ch)
		close(q.done)
	})
}

// Name returns the source name used in logs and metrics.
func (q *queue) Name() string { return q.name }

// ReadMessage returns the next queued line without blocking.
func (q *queue) ReadMessage() ([]byte, bool) {
	select {
	case msg, ok := <-q.ch:
		if !ok {
			return nil, false
		}
		return msg, true
	default:
		return nil, false
	}
}

// C returns the receive side of the queue.
func (q *queue) C() <-chan []byte { return q.ch }

// Done is closed once production has ended.
func (q *queue) Done() <-chan struct{} { return q.done }

// Err returns the error that ended production, if any.
func (q *queue) Err() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.err
}

// Stop cancels production, including a pending delay, and waits for the
// producer goroutine to exit. Lines already queued stay readable.
func (q *queue) Stop() {
	q.mu.Lock()
	q.stopped = true
	cancel := q.cancel
	started := q.started
	q.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	q.wg.Wait()
	if !started {
		q.finish(nil)
	}
}
