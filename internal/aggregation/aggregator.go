package aggregation

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/sells-group/catalog-cli/internal/model"
	"github.com/sells-group/catalog-cli/internal/vertical"
)

// Aggregator runs an ordered list of aggregation services. Registration
// order is an observable contract: services mutate the same product
// sequentially, so a later service may rely on fields computed by an
// earlier one (vertical classification before attribute cleanup, for
// instance).
type Aggregator struct {
	services []Service
}

// NewAggregator builds an aggregator over the given services, in
// registration order.
func NewAggregator(services ...Service) *Aggregator {
	return &Aggregator{services: services}
}

// Services returns the registered services in order.
func (a *Aggregator) Services() []Service {
	return a.services
}

// Batch runs one single-threaded pass over the products of a vertical:
// Init on every service, then OnProduct per product per service, then Done
// on every service, always in registration order. A service raising ErrSkip
// excludes that product from that service only; any other error is logged
// and the pass continues — partial completion beats total failure.
func (a *Aggregator) Batch(ctx context.Context, products []*model.Product, vc *vertical.Config) {
	for _, svc := range a.services {
		svc.Init(ctx, products)
	}

	for _, p := range products {
		for _, svc := range a.services {
			a.apply(svc.Name(), p.ID, svc.OnProduct(ctx, p, vc))
		}
	}

	for _, svc := range a.services {
		svc.Done(ctx, products, vc)
	}
}

// OnFragment runs the realtime services, in registration order, folding one
// incoming fragment into its canonical product. Batch-only services are
// passed over.
func (a *Aggregator) OnFragment(ctx context.Context, frag *model.Fragment, p *model.Product, vc *vertical.Config) {
	for _, svc := range a.services {
		rt, ok := svc.(RealtimeService)
		if !ok {
			continue
		}
		a.apply(svc.Name(), p.ID, rt.OnFragment(ctx, frag, p, vc))
	}
}

// apply enforces the per-service error boundary.
func (a *Aggregator) apply(service, productID string, err error) {
	if err == nil {
		return
	}
	if errors.Is(err, ErrSkip) {
		zap.L().Debug("aggregation: service skipped item",
			zap.String("service", service),
			zap.String("product", productID),
		)
		return
	}
	zap.L().Error("aggregation: service failed on item",
		zap.String("service", service),
		zap.String("product", productID),
		zap.Error(err),
	)
}
