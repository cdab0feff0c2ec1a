// Package indexation decouples aggregation throughput from storage latency
// through a bounded queue drained by a pool of workers.
package indexation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/sells-group/catalog-cli/internal/model"
	"github.com/sells-group/catalog-cli/internal/monitoring"
	"github.com/sells-group/catalog-cli/internal/resilience"
	"github.com/sells-group/catalog-cli/internal/store"
)

// Config sizes the queue and the worker pool.
type Config struct {
	// QueueMaxSize bounds the number of products awaiting persistence.
	// Enqueue applies backpressure when the queue is full.
	QueueMaxSize int `yaml:"queue_max_size" mapstructure:"queue_max_size"`

	// Workers is the number of concurrent drain loops.
	Workers int `yaml:"workers" mapstructure:"workers"`

	// BulkPageSize caps the number of products handed to one bulk store.
	BulkPageSize int `yaml:"bulk_page_size" mapstructure:"bulk_page_size"`

	// Pause is how long an idle worker sleeps before re-checking the queue.
	Pause time.Duration `yaml:"pause" mapstructure:"pause"`

	// MaxBatchesPerSecond throttles bulk stores across the pool; zero
	// disables throttling.
	MaxBatchesPerSecond float64 `yaml:"max_batches_per_second" mapstructure:"max_batches_per_second"`
}

// DefaultConfig returns the pool sizing used when configuration is silent.
func DefaultConfig() Config {
	return Config{
		QueueMaxSize: 5000,
		Workers:      2,
		BulkPageSize: 200,
		Pause:        2 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.QueueMaxSize <= 0 {
		c.QueueMaxSize = def.QueueMaxSize
	}
	if c.Workers <= 0 {
		c.Workers = def.Workers
	}
	if c.BulkPageSize <= 0 {
		c.BulkPageSize = def.BulkPageSize
	}
	if c.Pause <= 0 {
		c.Pause = def.Pause
	}
	return c
}

// Pool owns the bounded indexation queue and its workers. Each dequeued
// product is handed to exactly one worker; products are never mutated
// after enqueue, so no locking beyond the queue is needed.
type Pool struct {
	cfg     Config
	store   store.Store
	metrics *monitoring.Collector
	retry   resilience.RetryConfig
	breaker *resilience.CircuitBreaker

	queue   chan *model.Product
	limiter *rate.Limiter

	eg     *errgroup.Group
	cancel context.CancelFunc
}

// NewPool builds the pool. metrics may be nil.
func NewPool(cfg Config, st store.Store, metrics *monitoring.Collector) *Pool {
	cfg = cfg.withDefaults()
	p := &Pool{
		cfg:     cfg,
		store:   st,
		metrics: metrics,
		retry:   resilience.DefaultRetryConfig(),
		breaker: newStoreBreaker(resilience.DefaultCircuitBreakerConfig()),
		queue:   make(chan *model.Product, cfg.QueueMaxSize),
	}
	if cfg.MaxBatchesPerSecond > 0 {
		p.limiter = rate.NewLimiter(rate.Limit(cfg.MaxBatchesPerSecond), 1)
	}
	if metrics != nil {
		metrics.AttachQueueDepth(p.Depth)
	}
	return p
}

// SetRetry overrides the bulk-store retry policy. Call before Start.
func (p *Pool) SetRetry(cfg resilience.RetryConfig) {
	p.retry = cfg
}

// SetBreaker overrides the storage circuit breaker policy. Call before
// Start.
func (p *Pool) SetBreaker(cfg resilience.CircuitBreakerConfig) {
	p.breaker = newStoreBreaker(cfg)
}

func newStoreBreaker(cfg resilience.CircuitBreakerConfig) *resilience.CircuitBreaker {
	cfg.OnStateChange = func(from, to resilience.CircuitState) {
		zap.L().Warn("indexation: store circuit state changed",
			zap.Stringer("from", from),
			zap.Stringer("to", to),
		)
	}
	return resilience.NewCircuitBreaker(cfg)
}

// Start launches the workers. They run until the context is canceled or
// Stop is called.
func (p *Pool) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	p.eg, ctx = errgroup.WithContext(ctx)

	for i := 0; i < p.cfg.Workers; i++ {
		name := fmt.Sprintf("indexation-worker-%d", i)
		p.eg.Go(func() error {
			p.run(ctx, name)
			return nil
		})
	}

	zap.L().Info("indexation: pool started",
		zap.Int("workers", p.cfg.Workers),
		zap.Int("queue_max_size", p.cfg.QueueMaxSize),
		zap.Int("bulk_page_size", p.cfg.BulkPageSize),
	)
}

// Enqueue accepts a finalized product for persistence. It blocks when the
// queue is full, applying backpressure to the producer, and returns an
// error only when the context is canceled first.
func (p *Pool) Enqueue(ctx context.Context, product *model.Product) error {
	select {
	case p.queue <- product:
		return nil
	case <-ctx.Done():
		return eris.Wrapf(ctx.Err(), "indexation: enqueue %s", product.ID)
	}
}

// Depth returns the number of products currently awaiting persistence.
func (p *Pool) Depth() int {
	return len(p.queue)
}

// Stop cancels the workers, waits for them, then flushes whatever is still
// queued so a clean shutdown loses nothing.
func (p *Pool) Stop(ctx context.Context) {
	if p.cancel == nil {
		return
	}
	p.cancel()
	_ = p.eg.Wait()

	for {
		batch := p.drainNonBlocking()
		if len(batch) == 0 {
			break
		}
		p.flush(ctx, "shutdown", batch)
	}
	zap.L().Info("indexation: pool stopped")
}

// run is one worker loop: sleep while idle, otherwise drain up to a page
// and bulk-store it. A cycle failure is logged and the loop continues; a
// worker only exits on cancellation.
func (p *Pool) run(ctx context.Context, name string) {
	log := zap.L().With(zap.String("worker", name))
	log.Debug("indexation: worker started")

	for {
		if ctx.Err() != nil {
			log.Debug("indexation: worker stopping")
			return
		}

		if len(p.queue) == 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(p.cfg.Pause):
			}
			continue
		}

		batch := p.drain(ctx)
		if len(batch) == 0 {
			continue
		}
		p.flush(ctx, name, batch)
	}
}

// drain blocks for the first product, then takes more without blocking up
// to the bulk page size.
func (p *Pool) drain(ctx context.Context) []*model.Product {
	var batch []*model.Product
	select {
	case product := <-p.queue:
		batch = append(batch, product)
	case <-ctx.Done():
		return nil
	}

	for len(batch) < p.cfg.BulkPageSize {
		select {
		case product := <-p.queue:
			batch = append(batch, product)
		default:
			return batch
		}
	}
	return batch
}

func (p *Pool) drainNonBlocking() []*model.Product {
	var batch []*model.Product
	for len(batch) < p.cfg.BulkPageSize {
		select {
		case product := <-p.queue:
			batch = append(batch, product)
		default:
			return batch
		}
	}
	return batch
}

// flush bulk-stores one batch, retrying transient failures through the
// store circuit breaker. While the circuit is open batches fail fast
// without touching the backend. A batch that still fails is parked in
// the dead-letter table, never requeued.
func (p *Pool) flush(ctx context.Context, worker string, batch []*model.Product) {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			zap.L().Debug("indexation: rate limiter interrupted", zap.Error(err))
		}
	}

	err := p.breaker.Execute(ctx, func(ctx context.Context) error {
		return resilience.Do(ctx, p.retry, func(ctx context.Context) error {
			return p.store.Index(ctx, batch)
		})
	})
	if err == nil {
		if p.metrics != nil {
			p.metrics.BatchStored(len(batch))
		}
		zap.L().Info("indexation: batch stored",
			zap.String("worker", worker),
			zap.Int("batch_size", len(batch)),
			zap.Int("remaining_depth", len(p.queue)),
		)
		return
	}

	if p.metrics != nil {
		p.metrics.StoreFailure()
	}
	zap.L().Error("indexation: bulk store failed",
		zap.String("worker", worker),
		zap.Int("batch_size", len(batch)),
		zap.Error(err),
	)

	entry := &resilience.DeadLetter{
		ID:        uuid.New().String(),
		Products:  batch,
		Error:     err.Error(),
		ErrorType: resilience.ClassifyError(err),
		Worker:    worker,
		FailedAt:  time.Now().UTC(),
	}
	if dlErr := p.store.SaveDeadLetter(ctx, entry); dlErr != nil {
		zap.L().Error("indexation: dead-letter save failed, batch lost",
			zap.String("worker", worker),
			zap.Strings("products", entry.ProductIDs()),
			zap.Error(dlErr),
		)
		return
	}
	if p.metrics != nil {
		p.metrics.DeadLettered(len(batch))
	}
}
