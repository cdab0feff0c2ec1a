package aggregation

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/catalog-cli/internal/model"
	"github.com/sells-group/catalog-cli/internal/vertical"
)

// RatingScoreName is the score under which source ratings accumulate.
const RatingScoreName = "rating"

// RatingsService accumulates source ratings per product in realtime and,
// during a batch pass, positions each product's scores against the
// vertical-wide distribution. Products missing a score that peers carry get
// a virtual score at the vertical average.
type RatingsService struct {
	NopService

	// batch holds the per-score cardinality of the current pass. Init
	// resets it, so one service instance can be reused across passes.
	batch map[string]*model.Cardinality
}

// NewRatingsService builds the service.
func NewRatingsService() *RatingsService {
	return &RatingsService{batch: make(map[string]*model.Cardinality)}
}

func (s *RatingsService) Name() string { return "ratings" }

func (s *RatingsService) OnFragment(_ context.Context, frag *model.Fragment, p *model.Product, _ *vertical.Config) error {
	if !frag.HasRating() {
		return ErrSkip
	}

	score := p.Score(RatingScoreName)
	if score.Absolute == nil {
		score.Absolute = &model.Cardinality{}
	}
	score.Absolute.Increment(frag.Rating)
	score.Value = score.Absolute.Avg
	return nil
}

func (s *RatingsService) Init(_ context.Context, _ []*model.Product) {
	s.batch = make(map[string]*model.Cardinality)
}

func (s *RatingsService) OnProduct(_ context.Context, p *model.Product, _ *vertical.Config) error {
	for name, score := range p.Scores {
		if score.Virtual {
			continue
		}
		card, ok := s.batch[name]
		if !ok {
			card = &model.Cardinality{}
			s.batch[name] = card
		}
		card.Increment(score.Value)
	}
	return nil
}

func (s *RatingsService) Done(_ context.Context, products []*model.Product, vc *vertical.Config) {
	verticalID := ""
	if vc != nil {
		verticalID = vc.ID
	}

	for _, p := range products {
		for name, card := range s.batch {
			score, ok := p.Scores[name]
			if !ok {
				score = &model.Score{
					Name:    name,
					Value:   card.Avg,
					Virtual: true,
				}
				if p.Scores == nil {
					p.Scores = make(map[string]*model.Score)
				}
				p.Scores[name] = score
			}
			// Snapshot the population stats without aliasing the running
			// accumulator.
			score.Batch = card.Clone()
			score.Relative = relativize(score.Value, card)
		}
	}

	zap.L().Info("ratings: batch relativization done",
		zap.String("vertical", verticalID),
		zap.Int("products", len(products)),
		zap.Int("scores", len(s.batch)),
	)
}

// relativize min-max scales a value against the population into [0,100].
func relativize(value float64, card *model.Cardinality) float64 {
	if card.Count == 0 {
		return 0
	}
	span := card.Max - card.Min
	if span == 0 {
		return 100
	}
	scaled := (value - card.Min) / span * 100
	if scaled < 0 {
		return 0
	}
	if scaled > 100 {
		return 100
	}
	return scaled
}
