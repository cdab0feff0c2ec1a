package aggregation

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/catalog-cli/internal/model"
	"github.com/sells-group/catalog-cli/internal/monitoring"
	"github.com/sells-group/catalog-cli/internal/store"
	"github.com/sells-group/catalog-cli/internal/vertical"
)

// Enqueuer hands finalized products to the indexation pipeline.
type Enqueuer interface {
	Enqueue(ctx context.Context, p *model.Product) error
}

// Facade is the entry point collaborators use: the realtime ingestion path
// per incoming fragment, and batch passes per vertical triggered by an
// external scheduler.
type Facade struct {
	store     store.Store
	verticals *vertical.Service
	agg       *Aggregator
	queue     Enqueuer
	metrics   *monitoring.Collector
}

// DefaultServices returns the standard pipeline in its contractual order:
// classification first so later services can rely on the vertical, then
// attribute reconciliation and cleanup, prices, ratings, provenance.
func DefaultServices(verticals *vertical.Service, trusted []string) []Service {
	return []Service{
		NewClassificationService(verticals),
		NewAttributeService(trusted),
		NewPriceService(),
		NewRatingsService(),
		NewProvenanceService(),
	}
}

// NewFacade wires the facade. metrics may be nil.
func NewFacade(st store.Store, verticals *vertical.Service, agg *Aggregator, queue Enqueuer, metrics *monitoring.Collector) *Facade {
	return &Facade{
		store:     st,
		verticals: verticals,
		agg:       agg,
		queue:     queue,
		metrics:   metrics,
	}
}

// OnFragment is the realtime path: load or create the canonical product,
// run the realtime services over the fragment, and hand the product to the
// indexation queue.
func (f *Facade) OnFragment(ctx context.Context, frag *model.Fragment) error {
	if err := frag.Validate(); err != nil {
		if f.metrics != nil {
			f.metrics.FragmentRejected()
		}
		return err
	}

	product, err := f.store.GetByID(ctx, frag.GTIN)
	switch {
	case errors.Is(err, store.ErrNotFound):
		product = model.NewProduct(frag.GTIN)
	case err != nil:
		return eris.Wrapf(err, "facade: load product %s", frag.GTIN)
	}

	vc := f.verticals.ConfigByID(product.Vertical)
	f.agg.OnFragment(ctx, frag, product, vc)
	product.Touch()

	if err := f.queue.Enqueue(ctx, product); err != nil {
		return err
	}
	if f.metrics != nil {
		f.metrics.FragmentProcessed()
	}
	return nil
}

// BatchVertical runs one batch aggregation pass over every product of the
// vertical and re-enqueues them for persistence.
func (f *Facade) BatchVertical(ctx context.Context, verticalID string) error {
	vc := f.verticals.ConfigByID(verticalID)
	if vc == nil {
		return eris.Errorf("facade: unknown vertical %q", verticalID)
	}

	products, err := f.store.ByVertical(ctx, verticalID)
	if err != nil {
		return eris.Wrapf(err, "facade: load products of vertical %s", verticalID)
	}

	zap.L().Info("facade: batch pass starting",
		zap.String("vertical", verticalID),
		zap.Int("products", len(products)),
	)

	f.agg.Batch(ctx, products, vc)

	for _, p := range products {
		p.Touch()
		if err := f.queue.Enqueue(ctx, p); err != nil {
			return err
		}
	}

	if f.metrics != nil {
		f.metrics.BatchPass()
	}
	zap.L().Info("facade: batch pass done",
		zap.String("vertical", verticalID),
		zap.Int("products", len(products)),
	)
	return nil
}

// BatchAll runs a batch pass for every configured vertical. A failing
// vertical is logged and does not stop the others.
func (f *Facade) BatchAll(ctx context.Context) error {
	var failed int
	for _, vc := range f.verticals.Configs() {
		if err := f.BatchVertical(ctx, vc.ID); err != nil {
			failed++
			zap.L().Error("facade: batch pass failed",
				zap.String("vertical", vc.ID),
				zap.Error(err),
			)
		}
	}
	if failed > 0 {
		return eris.Errorf("facade: %d vertical pass(es) failed", failed)
	}
	return nil
}
