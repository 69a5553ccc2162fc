package ingest

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/juandiegoalamohe-alt/localpix/internal/config"
	"github.com/juandiegoalamohe-alt/localpix/internal/observability"
	"github.com/juandiegoalamohe-alt/localpix/internal/vision"
)

// ErrQueueFull is returned by Submit when the bounded task queue is at
// capacity. Callers fail fast rather than block; the upstream queue
// redelivers rejected tasks.
var ErrQueueFull = errors.New("ingestion queue full")

// ErrPoolClosed is returned by Submit once Close has been called. Rejected
// tasks are redelivered like a full queue; the pool itself never restarts.
var ErrPoolClosed = errors.New("ingestion pool closed")

// Task is one photo awaiting face extraction.
type Task struct {
	PhotoID   uuid.UUID
	ObjectKey string
}

// DescriptorWriter persists all faces of one photo atomically.
type DescriptorWriter interface {
	AddDescriptors(ctx context.Context, photoID uuid.UUID, faces []vision.Face) error
}

// ObjectReader resolves a photo object key to image bytes.
type ObjectReader interface {
	Get(ctx context.Context, key string) ([]byte, error)
}

// Pool decouples upload latency from extraction latency: Submit enqueues
// and returns immediately, a fixed set of workers drains the queue. A task
// failure is logged and dropped — the photo ends up with zero descriptors,
// indistinguishable from "no face present". Tasks are never retried here.
type Pool struct {
	tasks     chan Task
	extractor vision.Extractor
	photos    ObjectReader
	store     DescriptorWriter
	timeout   time.Duration
	workers   int
	notify    func(photoID uuid.UUID, faceCount int)

	wg        sync.WaitGroup
	startOnce sync.Once

	mu     sync.RWMutex
	closed bool
}

// NewPool builds a pool; call Start to launch the workers. notify, when not
// nil, is invoked after every successfully committed task.
func NewPool(cfg config.IngestConfig, extractor vision.Extractor, photos ObjectReader, store DescriptorWriter, notify func(photoID uuid.UUID, faceCount int)) *Pool {
	workers := cfg.WorkerCount
	if workers <= 0 {
		workers = 4
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 64
	}
	timeout := cfg.ExtractTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Pool{
		tasks:     make(chan Task, queueSize),
		extractor: extractor,
		photos:    photos,
		store:     store,
		timeout:   timeout,
		workers:   workers,
		notify:    notify,
	}
}

// Start launches the worker goroutines. ctx bounds the work inside each
// task; stopping the pool goes through Close, which drains the queue.
func (p *Pool) Start(ctx context.Context) {
	p.startOnce.Do(func() {
		for i := 0; i < p.workers; i++ {
			p.wg.Add(1)
			go p.worker(ctx, i)
		}
		slog.Info("ingestion pool started", "workers", p.workers, "queue_size", cap(p.tasks))
	})
}

// Submit enqueues a photo for extraction and returns immediately.
// Returns ErrQueueFull when the queue is at capacity and ErrPoolClosed
// after Close; both are safe for the caller to treat as "try again later".
// The read lock is held across the send so Close cannot close the channel
// under an in-flight Submit.
func (p *Pool) Submit(task Task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrPoolClosed
	}

	select {
	case p.tasks <- task:
		observability.IngestQueueDepth.Set(float64(len(p.tasks)))
		return nil
	default:
		observability.IngestFailures.WithLabelValues("backpressure").Inc()
		return ErrQueueFull
	}
}

// Close stops accepting tasks, lets the workers drain everything already
// queued, and waits for them to finish. Safe to call more than once.
func (p *Pool) Close() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.tasks)
	}
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *Pool) worker(ctx context.Context, id int) {
	defer p.wg.Done()
	for task := range p.tasks {
		observability.IngestQueueDepth.Set(float64(len(p.tasks)))
		p.process(ctx, id, task)
	}
}

// process runs one task end to end. Errors are terminal for the task: the
// upload response has long been sent, so there is nobody to propagate to.
func (p *Pool) process(ctx context.Context, workerID int, task Task) {
	observability.PhotosIngested.Inc()

	data, err := p.photos.Get(ctx, task.ObjectKey)
	if err != nil {
		observability.IngestFailures.WithLabelValues("fetch").Inc()
		slog.Error("fetch photo failed", "worker", workerID, "photo", task.PhotoID, "error", err)
		return
	}

	faces, err := p.extractWithTimeout(ctx, data)
	if err != nil {
		observability.IngestFailures.WithLabelValues("extract").Inc()
		slog.Error("extract faces failed", "worker", workerID, "photo", task.PhotoID, "error", err)
		return
	}

	if len(faces) > 0 {
		if err := p.store.AddDescriptors(ctx, task.PhotoID, faces); err != nil {
			observability.IngestFailures.WithLabelValues("store").Inc()
			slog.Error("store descriptors failed", "worker", workerID, "photo", task.PhotoID, "error", err)
			return
		}
		observability.FacesIndexed.Add(float64(len(faces)))
	}

	slog.Info("photo ingested", "worker", workerID, "photo", task.PhotoID, "faces", len(faces))

	if p.notify != nil {
		p.notify(task.PhotoID, len(faces))
	}
}

// extractWithTimeout bounds a single extractor call. Model invocation can
// hang; a timeout counts as a task failure.
func (p *Pool) extractWithTimeout(ctx context.Context, data []byte) ([]vision.Face, error) {
	tctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	type result struct {
		faces []vision.Face
		err   error
	}
	ch := make(chan result, 1)
	go func() {
		faces, err := p.extractor.Extract(tctx, data)
		ch <- result{faces, err}
	}()

	select {
	case r := <-ch:
		return r.faces, r.err
	case <-tctx.Done():
		return nil, tctx.Err()
	}
}
