package clicktracker

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadimbarashkov/link-shortener/internal/entity"
)

type increment struct {
	id        uuid.UUID
	clickedAt time.Time
}

type fakeClickRepository struct {
	mu    sync.Mutex
	calls []increment
	err   error
	block chan struct{}
}

func (r *fakeClickRepository) IncrementClicks(ctx context.Context, id uuid.UUID, clickedAt time.Time) error {
	if r.block != nil {
		<-r.block
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls = append(r.calls, increment{id: id, clickedAt: clickedAt})
	return r.err
}

func (r *fakeClickRepository) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.calls)
}

func newTestTracker(t testing.TB, repo clickRepository, opts ...Option) (*Tracker, *bytes.Buffer) {
	t.Helper()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&syncWriter{w: &buf}, nil))

	return New(repo, logger, NewMetrics(prometheus.NewRegistry()), opts...), &buf
}

type syncWriter struct {
	mu sync.Mutex
	w  *bytes.Buffer
}

func (w *syncWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.w.Write(p)
}

func runTracker(t testing.TB, tracker *Tracker) (context.CancelFunc, <-chan error) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() {
		done <- tracker.Run(ctx)
	}()

	return cancel, done
}

func click(code string) entity.Click {
	return entity.Click{
		LinkID:    uuid.New(),
		ShortCode: code,
		ClickedAt: time.Now(),
	}
}

func TestNew(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		tracker, _ := newTestTracker(t, &fakeClickRepository{})

		assert.Equal(t, defaultWorkers, tracker.workers)
		assert.Equal(t, defaultQueueSize, cap(tracker.queue))
		assert.Equal(t, defaultTimeout, tracker.timeout)
	})

	t.Run("options", func(t *testing.T) {
		tracker, _ := newTestTracker(t, &fakeClickRepository{},
			WithWorkers(2),
			WithQueueSize(8),
			WithTimeout(time.Second),
		)

		assert.Equal(t, 2, tracker.workers)
		assert.Equal(t, 8, cap(tracker.queue))
		assert.Equal(t, time.Second, tracker.timeout)
	})

	t.Run("non-positive options ignored", func(t *testing.T) {
		tracker, _ := newTestTracker(t, &fakeClickRepository{},
			WithWorkers(0),
			WithQueueSize(-1),
			WithTimeout(0),
		)

		assert.Equal(t, defaultWorkers, tracker.workers)
		assert.Equal(t, defaultQueueSize, cap(tracker.queue))
		assert.Equal(t, defaultTimeout, tracker.timeout)
	})
}

func TestTracker_Track(t *testing.T) {
	t.Run("records click", func(t *testing.T) {
		repo := &fakeClickRepository{}
		tracker, _ := newTestTracker(t, repo)
		cancel, done := runTracker(t, tracker)
		defer cancel()

		c := click("abc123")
		tracker.Track(c)

		assert.Eventually(t, func() bool { return repo.count() == 1 }, time.Second, 10*time.Millisecond)

		repo.mu.Lock()
		assert.Equal(t, c.LinkID, repo.calls[0].id)
		assert.Equal(t, c.ClickedAt, repo.calls[0].clickedAt)
		repo.mu.Unlock()

		cancel()
		require.NoError(t, <-done)
		assert.Equal(t, float64(1), testutil.ToFloat64(tracker.metrics.recorded))
	})

	t.Run("store error is logged and not retried", func(t *testing.T) {
		repo := &fakeClickRepository{err: errors.New("connection refused")}
		tracker, logs := newTestTracker(t, repo)
		cancel, done := runTracker(t, tracker)

		tracker.Track(click("abc123"))

		assert.Eventually(t, func() bool {
			return testutil.ToFloat64(tracker.metrics.failed) == 1
		}, time.Second, 10*time.Millisecond)

		cancel()
		require.NoError(t, <-done)

		assert.Equal(t, 1, repo.count())
		assert.Zero(t, testutil.ToFloat64(tracker.metrics.recorded))
		assert.Contains(t, logs.String(), "failed to record click")
		assert.Contains(t, logs.String(), "short_code=abc123")
	})

	t.Run("full queue drops click without blocking", func(t *testing.T) {
		repo := &fakeClickRepository{}
		tracker, logs := newTestTracker(t, repo, WithQueueSize(1))

		tracker.Track(click("first1"))

		returned := make(chan struct{})
		go func() {
			tracker.Track(click("second"))
			close(returned)
		}()

		select {
		case <-returned:
		case <-time.After(time.Second):
			t.Fatal("Track blocked on a full queue")
		}

		assert.Equal(t, float64(1), testutil.ToFloat64(tracker.metrics.dropped))
		assert.Contains(t, logs.String(), "queue full")
	})

	t.Run("stopped tracker drops click", func(t *testing.T) {
		repo := &fakeClickRepository{}
		tracker, _ := newTestTracker(t, repo)
		cancel, done := runTracker(t, tracker)

		cancel()
		require.NoError(t, <-done)

		tracker.Track(click("abc123"))

		assert.Equal(t, float64(1), testutil.ToFloat64(tracker.metrics.dropped))
		assert.Zero(t, repo.count())
	})
}

func TestTracker_Run(t *testing.T) {
	t.Run("drains queue on shutdown", func(t *testing.T) {
		repo := &fakeClickRepository{block: make(chan struct{})}
		tracker, _ := newTestTracker(t, repo, WithWorkers(1), WithQueueSize(16))
		cancel, done := runTracker(t, tracker)

		for i := 0; i < 10; i++ {
			tracker.Track(click("abc123"))
		}

		cancel()
		close(repo.block)

		require.NoError(t, <-done)
		assert.Equal(t, 10, repo.count())
		assert.Equal(t, float64(10), testutil.ToFloat64(tracker.metrics.recorded))
	})
}
