// Package aggregation drives pluggable aggregation services over canonical
// products, in realtime (per fragment) and batch (per vertical pass) modes.
package aggregation

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/catalog-cli/internal/model"
	"github.com/sells-group/catalog-cli/internal/vertical"
)

// ErrSkip is returned by a service's per-item hook to signal that this
// product or fragment should not be processed further by that service.
// The aggregator swallows it and moves on; it is never an error condition.
var ErrSkip = eris.New("aggregation: item skipped")

// Service is one unit of pluggable aggregation logic applied during a
// batch pass. Lifecycle: Init once, OnProduct per product, Done once, all
// in registration order.
type Service interface {
	Name() string

	// Init is called once before a pass, with every product of the pass
	// visible.
	Init(ctx context.Context, products []*model.Product)

	// OnProduct is called once per product. Returning ErrSkip excludes the
	// product from this service only; any other error is logged by the
	// aggregator and the pass continues.
	OnProduct(ctx context.Context, p *model.Product, vc *vertical.Config) error

	// Done is called once after every product has been visited.
	Done(ctx context.Context, products []*model.Product, vc *vertical.Config)
}

// RealtimeService additionally participates in the realtime path, invoked
// synchronously as each fragment arrives.
type RealtimeService interface {
	Service

	// OnFragment folds one fragment's observations into the canonical
	// product. Same error semantics as OnProduct.
	OnFragment(ctx context.Context, frag *model.Fragment, p *model.Product, vc *vertical.Config) error
}

// NopService provides no-op lifecycle hooks so services only implement the
// hooks they care about.
type NopService struct{}

func (NopService) Init(context.Context, []*model.Product) {}

func (NopService) OnProduct(context.Context, *model.Product, *vertical.Config) error {
	return nil
}

func (NopService) Done(context.Context, []*model.Product, *vertical.Config) {}
