package model

import (
	"math"

	"go.uber.org/zap"
)

// Cardinality accumulates running statistics over a stream of numeric
// observations (prices, ratings). Min, Max and Avg are meaningless until
// Count is at least 1.
type Cardinality struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Avg   float64 `json:"avg"`
	Sum   float64 `json:"sum"`
	Count int     `json:"count"`
}

// Increment folds one observation into the accumulator. Non-finite values
// are rejected and logged; the accumulator is left untouched so callers
// never observe a partial update.
func (c *Cardinality) Increment(value float64) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		zap.L().Warn("cardinality: rejecting non-finite observation",
			zap.Float64("value", value),
		)
		return
	}

	if c.Count == 0 {
		c.Min = value
		c.Max = value
	} else {
		if value < c.Min {
			c.Min = value
		}
		if value > c.Max {
			c.Max = value
		}
	}

	c.Count++
	c.Sum += value
	c.Avg = c.Sum / float64(c.Count)
}

// Clone returns a field-by-field copy sharing no state with the receiver.
func (c *Cardinality) Clone() *Cardinality {
	return &Cardinality{
		Min:   c.Min,
		Max:   c.Max,
		Avg:   c.Avg,
		Sum:   c.Sum,
		Count: c.Count,
	}
}
