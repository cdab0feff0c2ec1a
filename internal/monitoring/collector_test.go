package monitoring

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCollector_Counters(t *testing.T) {
	c := NewCollector(nil)

	c.FragmentProcessed()
	c.FragmentProcessed()
	c.FragmentRejected()
	c.BatchPass()
	c.BatchStored(200)
	c.BatchStored(50)
	c.StoreFailure()
	c.DeadLettered(50)

	snap := c.Collect()
	assert.Equal(t, int64(2), snap.FragmentsProcessed)
	assert.Equal(t, int64(1), snap.FragmentsRejected)
	assert.Equal(t, int64(1), snap.BatchPasses)
	assert.Equal(t, int64(2), snap.BatchesStored)
	assert.Equal(t, int64(250), snap.ProductsStored)
	assert.Equal(t, int64(1), snap.StoreFailures)
	assert.Equal(t, int64(50), snap.DeadLettered)
	assert.False(t, snap.CollectedAt.IsZero())
}

func TestCollector_QueueDepth(t *testing.T) {
	c := NewCollector(func() int { return 42 })
	assert.Equal(t, 42, c.Collect().QueueDepth)
}

func TestCollector_QueueDepth_NilGauge(t *testing.T) {
	c := NewCollector(nil)
	assert.Equal(t, 0, c.Collect().QueueDepth)
}

func TestCollector_AttachQueueDepth(t *testing.T) {
	c := NewCollector(nil)
	c.AttachQueueDepth(func() int { return 7 })
	assert.Equal(t, 7, c.Collect().QueueDepth)
}

func TestCollector_ConcurrentUse(t *testing.T) {
	c := NewCollector(nil)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.FragmentProcessed()
				c.BatchStored(1)
			}
		}()
	}
	wg.Wait()

	snap := c.Collect()
	assert.Equal(t, int64(1000), snap.FragmentsProcessed)
	assert.Equal(t, int64(1000), snap.ProductsStored)
}
