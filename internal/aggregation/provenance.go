package aggregation

import (
	"context"

	"github.com/sells-group/catalog-cli/internal/model"
	"github.com/sells-group/catalog-cli/internal/vertical"
)

// ProvenanceService records which sources contributed to a product's
// construction. Participants are identified by their data URL.
type ProvenanceService struct {
	NopService
}

// NewProvenanceService builds the service.
func NewProvenanceService() *ProvenanceService {
	return &ProvenanceService{}
}

func (s *ProvenanceService) Name() string { return "provenance" }

func (s *ProvenanceService) OnFragment(_ context.Context, frag *model.Fragment, p *model.Product, _ *vertical.Config) error {
	if frag.URL == "" {
		return ErrSkip
	}

	p.AggregationResult.AddParticipant(model.ParticipantData{
		ProviderName: frag.Datasource,
		ProviderType: "datasource",
		DataURL:      frag.URL,
	})
	return nil
}
