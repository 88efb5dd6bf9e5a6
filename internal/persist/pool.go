package persist

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/JAYDIPSINH27/BiasBreaker/internal/domain"
	"github.com/JAYDIPSINH27/BiasBreaker/internal/metrics"
)

const (
	defaultQueueCapacity = 200
	defaultWorkerCount   = 3
	writeTimeout         = 5 * time.Second
)

// Pool drains a bounded queue of accepted gaze samples and writes them
// against the active tracking session. Producers offer without blocking and
// a full queue sheds load; the live stream is never held up by storage.
type Pool struct {
	queue    chan domain.GazeSample
	store    domain.GazeWriter
	registry domain.SessionRegistry

	mu       sync.RWMutex
	closed   bool
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewPool starts workerCount background workers draining a queue of the given
// capacity. Zero values fall back to the defaults (200, 3).
func NewPool(store domain.GazeWriter, registry domain.SessionRegistry, queueCapacity, workerCount int) *Pool {
	if queueCapacity < 1 {
		queueCapacity = defaultQueueCapacity
	}
	if workerCount < 1 {
		workerCount = defaultWorkerCount
	}

	p := &Pool{
		queue:    make(chan domain.GazeSample, queueCapacity),
		store:    store,
		registry: registry,
	}

	p.wg.Add(workerCount)
	for i := 0; i < workerCount; i++ {
		go p.worker(i)
	}
	return p
}

// Offer enqueues a sample for persistence if the queue has capacity. It never
// blocks: a full queue (or a stopped pool) drops the sample and returns false.
func (p *Pool) Offer(sample domain.GazeSample) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return false
	}

	select {
	case p.queue <- sample:
		metrics.PersistQueueDepth.Set(float64(len(p.queue)))
		return true
	default:
		metrics.PersistDroppedTotal.Inc()
		return false
	}
}

// Stop closes the intake and waits for the workers to drain the queue, or
// until ctx expires, whichever comes first. Samples still queued when ctx
// expires are abandoned.
func (p *Pool) Stop(ctx context.Context) {
	p.stopOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.queue)
		p.mu.Unlock()
	})

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		slog.Info("Persistence pool stopped, queue drained")
	case <-ctx.Done():
		slog.Warn("Persistence pool stop timed out, abandoning queued samples", "remaining", len(p.queue))
	}
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()
	log := slog.With("worker", id)

	for sample := range p.queue {
		metrics.PersistQueueDepth.Set(float64(len(p.queue)))
		p.persist(log, sample)
	}
}

// persist resolves the active session and writes one gaze point. Every
// failure category is absorbed here: no active session and session-ended
// races are skips, storage errors are logged. Nothing kills the worker.
func (p *Pool) persist(log *slog.Logger, sample domain.GazeSample) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	session := p.registry.ActiveSession(ctx)
	if session == nil {
		metrics.PersistSkippedTotal.Inc()
		log.Debug("No active session, sample skipped")
		return
	}

	point := domain.GazePoint{
		SessionID:     session.SessionID,
		X:             sample.X,
		Y:             sample.Y,
		PupilDiameter: sample.PupilDiameter,
		Timestamp:     sample.ReceivedAt,
	}

	err := p.store.WriteGazePoint(ctx, point)
	switch {
	case err == nil:
		metrics.PersistWrittenTotal.Inc()
	case errors.Is(err, domain.ErrSessionEnded), errors.Is(err, domain.ErrSessionNotFound):
		// The session ended between resolution and write. Not an error; the
		// conditional insert guarantees no point lands in an ended session.
		metrics.PersistSkippedTotal.Inc()
		log.Debug("Session ended before write, sample skipped", "session_id", session.SessionID)
	default:
		metrics.PersistFailuresTotal.Inc()
		log.Error("Failed to write gaze point", "session_id", session.SessionID, "error", err)
	}
}
