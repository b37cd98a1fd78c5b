package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Pruner deletes dead sessions for one user.
type Pruner interface {
	Prune(ctx context.Context, userID string, now time.Time) (int64, error)
}

// Janitor prunes dead refresh sessions off the request path. Schedule never
// blocks; when the queue is full the request is dropped and the nightly
// sweep picks the rows up later.
type Janitor struct {
	store   Pruner
	queue   chan string
	timeout time.Duration
	now     func() time.Time
	log     zerolog.Logger

	startOnce sync.Once
	stopOnce  sync.Once
	mu        sync.RWMutex
	closed    bool
	done      chan struct{}
}

func NewJanitor(store Pruner, queueSize int, timeout time.Duration, log zerolog.Logger) *Janitor {
	if queueSize <= 0 {
		queueSize = 256
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Janitor{
		store:   store,
		queue:   make(chan string, queueSize),
		timeout: timeout,
		now:     time.Now,
		log:     log,
		done:    make(chan struct{}),
	}
}

func (j *Janitor) Start(ctx context.Context) {
	j.startOnce.Do(func() {
		go j.run(ctx)
	})
}

// Schedule queues a prune of userID's dead sessions.
func (j *Janitor) Schedule(userID string) {
	if userID == "" {
		return
	}
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return
	}
	select {
	case j.queue <- userID:
	default:
		j.log.Warn().Str("user_id", userID).Msg("session prune queue full, dropping")
	}
}

// Stop closes the queue and waits for queued prunes to finish or ctx to end.
func (j *Janitor) Stop(ctx context.Context) {
	j.stopOnce.Do(func() {
		j.mu.Lock()
		j.closed = true
		close(j.queue)
		j.mu.Unlock()
	})
	j.Start(context.Background())
	select {
	case <-j.done:
	case <-ctx.Done():
		j.log.Warn().Msg("session janitor stop timed out")
	}
}

func (j *Janitor) run(ctx context.Context) {
	defer close(j.done)
	for userID := range j.queue {
		j.prune(ctx, userID)
	}
}

func (j *Janitor) prune(parent context.Context, userID string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), j.timeout)
	defer cancel()

	n, err := j.store.Prune(ctx, userID, j.now())
	if err != nil {
		j.log.Warn().Err(err).Str("user_id", userID).Msg("session prune failed")
		return
	}
	if n > 0 {
		j.log.Debug().Str("user_id", userID).Int64("deleted", n).Msg("pruned sessions")
	}
}
