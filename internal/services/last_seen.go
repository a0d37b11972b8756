package services

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// LastSeenWriter persists a user's presence timestamp.
type LastSeenWriter interface {
	TouchLastSeen(ctx context.Context, id string, at time.Time, online bool) error
}

type lastSeenUpdate struct {
	userID string
	at     time.Time
	online bool
}

// LastSeenWorker is a background worker that writes presence timestamps off
// the realtime path. Record never blocks: when the queue is full the update
// is dropped and logged.
type LastSeenWorker struct {
	store   LastSeenWriter
	log     *zap.Logger
	queue   chan lastSeenUpdate
	timeout time.Duration
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewLastSeenWorker creates a worker with a bounded queue of queueSize updates.
func NewLastSeenWorker(store LastSeenWriter, logger *zap.Logger, queueSize int) *LastSeenWorker {
	if queueSize <= 0 {
		queueSize = 256
	}
	return &LastSeenWorker{
		store:   store,
		log:     logger,
		queue:   make(chan lastSeenUpdate, queueSize),
		timeout: 5 * time.Second,
		stopCh:  make(chan struct{}),
	}
}

// Start begins the background write loop.
func (w *LastSeenWorker) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("last-seen worker started", zap.Int("queue_size", cap(w.queue)))
}

// Stop flushes queued updates and waits for the worker to finish.
func (w *LastSeenWorker) Stop() {
	close(w.stopCh)
	w.wg.Wait()
	w.log.Info("last-seen worker stopped")
}

// Record queues a presence update. It reports false when the update was dropped.
func (w *LastSeenWorker) Record(userID string, at time.Time, online bool) bool {
	select {
	case w.queue <- lastSeenUpdate{userID: userID, at: at, online: online}:
		return true
	default:
		w.log.Warn("last-seen queue full, dropping update",
			zap.String("user_id", userID),
			zap.Bool("online", online))
		return false
	}
}

func (w *LastSeenWorker) run() {
	defer w.wg.Done()

	for {
		select {
		case <-w.stopCh:
			w.drain()
			return
		case u := <-w.queue:
			w.write(u)
		}
	}
}

func (w *LastSeenWorker) drain() {
	for {
		select {
		case u := <-w.queue:
			w.write(u)
		default:
			return
		}
	}
}

func (w *LastSeenWorker) write(u lastSeenUpdate) {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	if err := w.store.TouchLastSeen(ctx, u.userID, u.at, u.online); err != nil {
		w.log.Warn("failed to persist last seen",
			zap.Error(err),
			zap.String("user_id", u.userID),
			zap.Bool("online", u.online))
	}
}
