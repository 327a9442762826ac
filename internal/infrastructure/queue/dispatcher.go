package queue

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/meetingintel/recordkeeper/internal/pkg/metrics"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
)

// Handler processes one dequeued item.
type Handler[T any] func(ctx context.Context, item T) error

// Dispatcher routes items to a fixed set of workers using consistent hashing
// on a caller-supplied key, so items sharing a key are handled in order.
// Enqueueing never blocks: a full shard drops the item.
type Dispatcher[T any] struct {
	name    string
	workers []chan T
	key     func(T) string
	handle  Handler[T]
	log     zerolog.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// Options configures a Dispatcher. Zero values fall back to defaults.
type Options struct {
	Workers int
	Buffer  int
}

// NewDispatcher creates a Dispatcher named name (used in logs and metrics).
func NewDispatcher[T any](name string, opts Options, key func(T) string, handle Handler[T], log zerolog.Logger) *Dispatcher[T] {
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.Buffer <= 0 {
		opts.Buffer = channelBuffer
	}
	d := &Dispatcher[T]{
		name:    name,
		workers: make([]chan T, opts.Workers),
		key:     key,
		handle:  handle,
		log:     log.With().Str("queue", name).Logger(),
	}
	for i := range d.workers {
		d.workers[i] = make(chan T, opts.Buffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled or
// after Close has drained their channel.
func (d *Dispatcher[T]) Start(ctx context.Context) {
	d.wg.Add(len(d.workers))
	for i, ch := range d.workers {
		go d.runWorker(ctx, i, ch)
	}
}

// TryEnqueue hands item to its shard without blocking. It reports false, and
// counts a drop, when the shard is full or the dispatcher is closed.
func (d *Dispatcher[T]) TryEnqueue(item T) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		metrics.QueueDroppedTotal.WithLabelValues(d.name).Inc()
		return false
	}
	idx := d.shardIndex(d.key(item))
	select {
	case d.workers[idx] <- item:
		metrics.QueueDepth.WithLabelValues(d.name, strconv.Itoa(idx)).Inc()
		return true
	default:
		metrics.QueueDroppedTotal.WithLabelValues(d.name).Inc()
		return false
	}
}

// Close stops accepting items and waits until the workers drain what is
// already queued, or until ctx is done.
func (d *Dispatcher[T]) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		for _, ch := range d.workers {
			close(ch)
		}
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// shardIndex maps a key deterministically to a worker index.
func (d *Dispatcher[T]) shardIndex(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher[T]) runWorker(ctx context.Context, id int, ch <-chan T) {
	defer d.wg.Done()
	depth := metrics.QueueDepth.WithLabelValues(d.name, strconv.Itoa(id))
	for {
		select {
		case <-ctx.Done():
			return
		case item, ok := <-ch:
			if !ok {
				return
			}
			depth.Dec()
			if err := d.handle(ctx, item); err != nil {
				d.log.Error().Err(err).
					Int("worker_id", id).
					Msg("queued item processing failed")
			}
		}
	}
}
