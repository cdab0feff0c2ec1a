package main

import (
	"context"
	"testing"

	"github.com/sells-group/catalog-cli/internal/aggregation"
	"github.com/sells-group/catalog-cli/internal/model"
	"github.com/sells-group/catalog-cli/internal/monitoring"
	"github.com/sells-group/catalog-cli/internal/resilience"
	"github.com/sells-group/catalog-cli/internal/store"
	"github.com/sells-group/catalog-cli/internal/vertical"
)

// memStore is an in-memory Store for command tests.
type memStore struct {
	products map[string]*model.Product
}

func newMemStore() *memStore {
	return &memStore{products: make(map[string]*model.Product)}
}

func (m *memStore) Index(_ context.Context, products []*model.Product) error {
	for _, p := range products {
		m.products[p.ID] = p
	}
	return nil
}

func (m *memStore) GetByID(_ context.Context, id string) (*model.Product, error) {
	p, ok := m.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return p, nil
}

func (m *memStore) ByVertical(_ context.Context, verticalID string) ([]*model.Product, error) {
	var out []*model.Product
	for _, p := range m.products {
		if p.Vertical == verticalID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memStore) Count(context.Context) (int64, error) {
	return int64(len(m.products)), nil
}

func (m *memStore) CountVertical(_ context.Context, verticalID string) (int64, error) {
	var n int64
	for _, p := range m.products {
		if p.Vertical == verticalID {
			n++
		}
	}
	return n, nil
}

func (m *memStore) SaveDeadLetter(context.Context, *resilience.DeadLetter) error { return nil }
func (m *memStore) DeadLetterDepth(context.Context) (int64, error)              { return 0, nil }
func (m *memStore) Migrate(context.Context) error                               { return nil }
func (m *memStore) Close() error                                                { return nil }

// recordingQueue captures enqueued products instead of indexing them.
type recordingQueue struct {
	enqueued []*model.Product
}

func (q *recordingQueue) Enqueue(_ context.Context, p *model.Product) error {
	q.enqueued = append(q.enqueued, p)
	return nil
}

func testVerticals() *vertical.Service {
	return vertical.NewService([]vertical.Config{
		{
			ID:                 "tv",
			MatchingCategories: []string{"Electronics > TV", "TV & Home Cinema"},
		},
		{
			ID:                 "monitor",
			MatchingCategories: []string{"Computers > Monitors"},
		},
	})
}

// newTestEnv wires a pipeline env around an in-memory store and a
// recording queue. The indexation pool stays nil; nothing under test
// reaches it.
func newTestEnv(t *testing.T) (*pipelineEnv, *memStore, *recordingQueue) {
	t.Helper()

	st := newMemStore()
	queue := &recordingQueue{}
	verticals := testVerticals()
	metrics := monitoring.NewCollector(nil)
	agg := aggregation.NewAggregator(
		aggregation.DefaultServices(verticals, []string{"brand-feed"})...,
	)
	facade := aggregation.NewFacade(st, verticals, agg, queue, metrics)

	return &pipelineEnv{
		Store:     st,
		Verticals: verticals,
		Metrics:   metrics,
		Facade:    facade,
	}, st, queue
}
