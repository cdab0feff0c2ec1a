package aggregation

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/catalog-cli/internal/model"
	"github.com/sells-group/catalog-cli/internal/vertical"
)

// ClassificationService accumulates the categories each datasource reports
// and keeps the product's vertical in sync with the current configuration.
// Classification is purely category-driven: a product moves between
// unclassified and any vertical as configuration and categories evolve,
// with no hysteresis.
type ClassificationService struct {
	NopService
	verticals *vertical.Service
}

// NewClassificationService builds the service over the vertical registry.
func NewClassificationService(verticals *vertical.Service) *ClassificationService {
	return &ClassificationService{verticals: verticals}
}

func (s *ClassificationService) Name() string { return "classify" }

func (s *ClassificationService) OnFragment(ctx context.Context, frag *model.Fragment, p *model.Product, vc *vertical.Config) error {
	p.SetCategories(frag.Datasource, frag.Categories)
	return s.OnProduct(ctx, p, vc)
}

func (s *ClassificationService) OnProduct(_ context.Context, p *model.Product, _ *vertical.Config) error {
	matched := s.verticals.VerticalForCategories(p.Categories())

	switch {
	case matched != nil && p.Vertical == "":
		p.Vertical = matched.ID

	case matched != nil && p.Vertical != matched.ID:
		zap.L().Warn("classify: replacing vertical",
			zap.String("product", p.ID),
			zap.String("previous", p.Vertical),
			zap.String("vertical", matched.ID),
		)
		p.Vertical = matched.ID

	case matched == nil && p.Vertical != "":
		// The categorization is no longer supported by configuration.
		zap.L().Warn("classify: clearing vertical no longer matched by categories",
			zap.String("product", p.ID),
			zap.String("previous", p.Vertical),
			zap.Strings("categories", p.Categories()),
		)
		p.Vertical = ""
	}
	return nil
}
