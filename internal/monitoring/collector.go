// Package monitoring exposes in-process counters for the aggregation and
// indexation pipeline.
package monitoring

import (
	"sync/atomic"
	"time"
)

// Snapshot is a point-in-time view of pipeline health.
type Snapshot struct {
	FragmentsProcessed int64 `json:"fragments_processed"`
	FragmentsRejected  int64 `json:"fragments_rejected"`
	BatchPasses        int64 `json:"batch_passes"`

	BatchesStored  int64 `json:"batches_stored"`
	ProductsStored int64 `json:"products_stored"`
	StoreFailures  int64 `json:"store_failures"`
	DeadLettered   int64 `json:"dead_lettered"`

	QueueDepth int `json:"queue_depth"`

	CollectedAt time.Time `json:"collected_at"`
}

// Collector accumulates pipeline counters. All methods are safe for
// concurrent use.
type Collector struct {
	fragmentsProcessed atomic.Int64
	fragmentsRejected  atomic.Int64
	batchPasses        atomic.Int64
	batchesStored      atomic.Int64
	productsStored     atomic.Int64
	storeFailures      atomic.Int64
	deadLettered       atomic.Int64

	// queueDepth reports the indexation queue's current depth; wired in by
	// the owner of the queue.
	queueDepth func() int
}

// NewCollector creates a collector. depthFn may be nil when no queue is
// attached.
func NewCollector(depthFn func() int) *Collector {
	return &Collector{queueDepth: depthFn}
}

// AttachQueueDepth wires the queue depth gauge after construction, for
// setups where the queue is built after the collector.
func (c *Collector) AttachQueueDepth(depthFn func() int) {
	c.queueDepth = depthFn
}

func (c *Collector) FragmentProcessed() { c.fragmentsProcessed.Add(1) }
func (c *Collector) FragmentRejected()  { c.fragmentsRejected.Add(1) }
func (c *Collector) BatchPass()         { c.batchPasses.Add(1) }

// BatchStored records one successful bulk store of n products.
func (c *Collector) BatchStored(n int) {
	c.batchesStored.Add(1)
	c.productsStored.Add(int64(n))
}

func (c *Collector) StoreFailure() { c.storeFailures.Add(1) }

// DeadLettered records n products parked in the dead-letter table.
func (c *Collector) DeadLettered(n int) { c.deadLettered.Add(int64(n)) }

// Collect returns the current snapshot.
func (c *Collector) Collect() Snapshot {
	snap := Snapshot{
		FragmentsProcessed: c.fragmentsProcessed.Load(),
		FragmentsRejected:  c.fragmentsRejected.Load(),
		BatchPasses:        c.batchPasses.Load(),
		BatchesStored:      c.batchesStored.Load(),
		ProductsStored:     c.productsStored.Load(),
		StoreFailures:      c.storeFailures.Load(),
		DeadLettered:       c.deadLettered.Load(),
		CollectedAt:        time.Now().UTC(),
	}
	if c.queueDepth != nil {
		snap.QueueDepth = c.queueDepth()
	}
	return snap
}
