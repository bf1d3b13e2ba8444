package queue

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/WSOL12/pump-migration-tg-alert-bot/internal/solana"
)

// Default queue parameters.
const (
	DefaultMinInterval = 100 * time.Millisecond
	DefaultMaxAge      = 30 * time.Second
	DefaultRetryDelay  = 2 * time.Second
)

// Handler fetches and processes one signature. Returning an error that
// wraps solana.ErrRateLimited re-enqueues the signature after RetryDelay;
// any other error drops it.
type Handler func(ctx context.Context, signature string) error

// Options configures a FetchQueue. Zero values take defaults.
type Options struct {
	// MinInterval is the minimum spacing between dispatches.
	MinInterval time.Duration
	// MaxAge drops items older than this at dequeue time.
	MaxAge time.Duration
	// RetryDelay is the wait before re-enqueueing a rate-limited item.
	RetryDelay time.Duration
	// Seen, when set, suppresses enqueueing of already-processed signatures.
	Seen func(signature string) bool
	// Logger receives drop and retry messages. Defaults to log.Default().
	Logger *log.Logger
}

type item struct {
	signature  string
	enqueuedAt time.Time
}

// FetchQueue is a FIFO work queue drained by a single goroutine under a
// minimum-interval rate limit. At most one fetch is in flight at a time.
// A signature stays in the pending set from enqueue until its handler
// finishes, so duplicate enqueues while in flight are suppressed.
type FetchQueue struct {
	handler Handler
	opts    Options
	logger  *log.Logger

	mu      sync.Mutex
	items   []item
	pending map[string]struct{}
	closed  bool

	wake chan struct{}
	done chan struct{}
	wg   sync.WaitGroup
}

// New creates a FetchQueue. Start must be called before items are drained.
func New(handler Handler, opts Options) *FetchQueue {
	if opts.MinInterval <= 0 {
		opts.MinInterval = DefaultMinInterval
	}
	if opts.MaxAge <= 0 {
		opts.MaxAge = DefaultMaxAge
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = DefaultRetryDelay
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &FetchQueue{
		handler: handler,
		opts:    opts,
		logger:  logger,
		pending: make(map[string]struct{}),
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
}

// Start launches the drain goroutine. The queue stops when ctx is
// cancelled or Close is called.
func (q *FetchQueue) Start(ctx context.Context) {
	q.wg.Add(1)
	go q.drain(ctx)
}

// Enqueue adds a signature to the back of the queue. Returns false when
// the signature is already pending, already processed or the queue is
// closed.
func (q *FetchQueue) Enqueue(signature string) bool {
	return q.enqueueAt(signature, time.Now())
}

func (q *FetchQueue) enqueueAt(signature string, enqueuedAt time.Time) bool {
	if signature == "" {
		return false
	}
	if q.opts.Seen != nil && q.opts.Seen(signature) {
		return false
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	if _, ok := q.pending[signature]; ok {
		return false
	}

	q.pending[signature] = struct{}{}
	q.items = append(q.items, item{signature: signature, enqueuedAt: enqueuedAt})

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return true
}

// Len returns the number of queued items.
func (q *FetchQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close stops the drain loop. Pending items are discarded.
func (q *FetchQueue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()

	close(q.done)
	q.wg.Wait()
}

// pop removes the head of the queue. The signature stays pending until
// finish is called for it.
func (q *FetchQueue) pop() (item, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return item{}, false
	}
	head := q.items[0]
	q.items = q.items[1:]
	return head, true
}

func (q *FetchQueue) finish(signature string) {
	q.mu.Lock()
	delete(q.pending, signature)
	q.mu.Unlock()
}

// drain dispatches queued items one at a time, spacing dispatches by at
// least MinInterval. An idle queue parks on the wake channel.
func (q *FetchQueue) drain(ctx context.Context) {
	defer q.wg.Done()

	var lastDispatch time.Time

	for {
		head, ok := q.pop()
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-q.done:
				return
			case <-q.wake:
				continue
			}
		}

		// Staleness drop: the transaction is assumed already confirmed or
		// irrelevant by the time it would be processed.
		if time.Since(head.enqueuedAt) > q.opts.MaxAge {
			q.finish(head.signature)
			continue
		}

		if wait := q.opts.MinInterval - time.Since(lastDispatch); wait > 0 {
			select {
			case <-ctx.Done():
				q.finish(head.signature)
				return
			case <-q.done:
				q.finish(head.signature)
				return
			case <-time.After(wait):
			}
		}

		lastDispatch = time.Now()
		err := q.handler(ctx, head.signature)

		switch {
		case err == nil:
			q.finish(head.signature)
		case errors.Is(err, solana.ErrRateLimited):
			q.scheduleRetry(head)
		default:
			// Non-recoverable: not found, permanently malformed, etc.
			q.logger.Printf("[queue] dropping %s: %v", head.signature, err)
			q.finish(head.signature)
		}
	}
}

// scheduleRetry re-enqueues a rate-limited item at the back of the queue
// after RetryDelay, keeping the original enqueue time so staleness still
// applies. The item stays pending meanwhile so duplicates are suppressed.
func (q *FetchQueue) scheduleRetry(head item) {
	q.logger.Printf("[queue] rate limited, retrying %s in %s", head.signature, q.opts.RetryDelay)

	time.AfterFunc(q.opts.RetryDelay, func() {
		if q.opts.Seen != nil && q.opts.Seen(head.signature) {
			q.finish(head.signature)
			return
		}

		q.mu.Lock()
		defer q.mu.Unlock()

		if q.closed {
			delete(q.pending, head.signature)
			return
		}
		q.items = append(q.items, item{signature: head.signature, enqueuedAt: head.enqueuedAt})
		select {
		case q.wake <- struct{}{}:
		default:
		}
	})
}
