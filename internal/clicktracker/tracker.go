// Package clicktracker records redirects in the background so that the
// redirect response never waits for the click counter to be persisted.
//
// Clicks are best effort: a click is dropped when the queue is full and is
// not retried when the store fails. Both cases are logged and counted.
package clicktracker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vadimbarashkov/link-shortener/internal/entity"
	"golang.org/x/sync/errgroup"
)

const (
	defaultWorkers   = 4
	defaultQueueSize = 1024
	defaultTimeout   = 5 * time.Second
)

type clickRepository interface {
	IncrementClicks(ctx context.Context, id uuid.UUID, clickedAt time.Time) error
}

type Option func(*Tracker)

func WithWorkers(n int) Option {
	return func(t *Tracker) {
		if n > 0 {
			t.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(t *Tracker) {
		if n > 0 {
			t.queueSize = n
		}
	}
}

// WithTimeout bounds a single IncrementClicks call.
func WithTimeout(d time.Duration) Option {
	return func(t *Tracker) {
		if d > 0 {
			t.timeout = d
		}
	}
}

type Tracker struct {
	repo    clickRepository
	logger  *slog.Logger
	metrics *Metrics

	workers   int
	queueSize int
	timeout   time.Duration

	mu     sync.RWMutex
	closed bool
	queue  chan entity.Click
}

func New(repo clickRepository, logger *slog.Logger, metrics *Metrics, opts ...Option) *Tracker {
	t := &Tracker{
		repo:      repo,
		logger:    logger,
		metrics:   metrics,
		workers:   defaultWorkers,
		queueSize: defaultQueueSize,
		timeout:   defaultTimeout,
	}

	for _, opt := range opts {
		opt(t)
	}

	t.queue = make(chan entity.Click, t.queueSize)

	return t
}

// Track enqueues a click and returns immediately.
func (t *Tracker) Track(click entity.Click) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.closed {
		t.drop(click, "tracker stopped")
		return
	}

	select {
	case t.queue <- click:
	default:
		t.drop(click, "queue full")
	}
}

func (t *Tracker) drop(click entity.Click, reason string) {
	t.metrics.dropped.Inc()
	t.logger.Warn("click dropped",
		slog.String("reason", reason),
		slog.String("short_code", click.ShortCode),
		slog.String("link_id", click.LinkID.String()),
	)
}

// Run processes clicks until ctx is done, then stops accepting new clicks
// and drains the queue before returning.
func (t *Tracker) Run(ctx context.Context) error {
	var g errgroup.Group

	for i := 0; i < t.workers; i++ {
		g.Go(func() error {
			t.work(ctx)
			return nil
		})
	}

	<-ctx.Done()

	t.mu.Lock()
	t.closed = true
	close(t.queue)
	t.mu.Unlock()

	return g.Wait()
}

func (t *Tracker) work(ctx context.Context) {
	for {
		select {
		case click, ok := <-t.queue:
			if !ok {
				return
			}
			t.record(ctx, click)
		case <-ctx.Done():
			// Run closes the queue once ctx is done.
			for click := range t.queue {
				t.record(ctx, click)
			}
			return
		}
	}
}

// record outlives the cancellation of ctx so that in-flight and drained
// clicks are still written during shutdown.
func (t *Tracker) record(ctx context.Context, click entity.Click) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), t.timeout)
	defer cancel()

	if err := t.repo.IncrementClicks(ctx, click.LinkID, click.ClickedAt); err != nil {
		t.metrics.failed.Inc()
		t.logger.Error("failed to record click",
			slog.String("short_code", click.ShortCode),
			slog.String("link_id", click.LinkID.String()),
			slog.Any("err", err),
		)
		return
	}

	t.metrics.recorded.Inc()
}
