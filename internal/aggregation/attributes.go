package aggregation

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/catalog-cli/internal/model"
	"github.com/sells-group/catalog-cli/internal/vertical"
)

// AttributeService folds fragment attributes into the product's reconciled
// attributes and re-elects values after every contribution. During a batch
// pass it also strips the attributes excluded by the product's vertical.
type AttributeService struct {
	NopService
	trusted []string
}

// NewAttributeService builds the service with the ordered trusted-source
// priority list. The list is threaded explicitly so resolution stays a pure
// function of its inputs.
func NewAttributeService(trusted []string) *AttributeService {
	return &AttributeService{trusted: trusted}
}

func (s *AttributeService) Name() string { return "attributes" }

// OnFragment records every attribute claim carried by the fragment and
// refreshes the elected values.
func (s *AttributeService) OnFragment(_ context.Context, frag *model.Fragment, p *model.Product, _ *vertical.Config) error {
	if len(frag.Attributes) == 0 {
		return ErrSkip
	}

	for _, fa := range frag.Attributes {
		attr := p.Attribute(fa.Name)
		sa := model.SourcedAttribute{
			Name:       fa.Name,
			Value:      fa.Value,
			Datasource: frag.Datasource,
		}
		if err := attr.AddSource(sa); err != nil {
			// Name mismatch is a caller bug, not a data-quality issue.
			return eris.Wrapf(err, "attributes: fragment %s from %s", frag.GTIN, frag.Datasource)
		}
		attr.Value = attr.Resolve(s.trusted)
	}
	return nil
}

// OnProduct re-elects every attribute value and applies the vertical's
// exclusion list.
func (s *AttributeService) OnProduct(_ context.Context, p *model.Product, vc *vertical.Config) error {
	for name, attr := range p.Attributes {
		if vc != nil && vc.ExcludesAttribute(name) {
			delete(p.Attributes, name)
			zap.L().Debug("attributes: stripped excluded attribute",
				zap.String("product", p.ID),
				zap.String("vertical", vc.ID),
				zap.String("attribute", name),
			)
			continue
		}
		attr.Value = attr.Resolve(s.trusted)
	}
	return nil
}
