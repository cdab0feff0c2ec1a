package aggregation

import (
	"context"

	"github.com/sells-group/catalog-cli/internal/model"
	"github.com/sells-group/catalog-cli/internal/vertical"
)

// PriceService tracks the best known offer and the running price statistics
// of a product as fragments arrive.
type PriceService struct {
	NopService
}

// NewPriceService builds the service.
func NewPriceService() *PriceService {
	return &PriceService{}
}

func (s *PriceService) Name() string { return "price" }

func (s *PriceService) OnFragment(_ context.Context, frag *model.Fragment, p *model.Product, _ *vertical.Config) error {
	if !frag.HasPrice() {
		return ErrSkip
	}

	p.PriceStats.Increment(frag.Price)

	if p.BestPrice == nil || frag.Price < p.BestPrice.Value {
		p.BestPrice = &model.Price{
			Value:      frag.Price,
			Datasource: frag.Datasource,
			Timestamp:  frag.Timestamp,
		}
	}
	return nil
}
