package resilience

import (
	"time"

	"github.com/sells-group/catalog-cli/internal/model"
)

// DeadLetter holds a product batch whose bulk store failed after retries.
// The batch is parked rather than silently dropped so an operator (or a
// later replay job) can decide its fate; the indexation queue itself never
// requeues failed batches.
type DeadLetter struct {
	ID        string           `json:"id"`
	Products  []*model.Product `json:"products"`
	Error     string           `json:"error"`
	ErrorType string           `json:"error_type"` // "transient" or "permanent"
	Worker    string           `json:"worker,omitempty"`
	FailedAt  time.Time        `json:"failed_at"`
}

// ProductIDs lists the identifiers of the parked products.
func (d *DeadLetter) ProductIDs() []string {
	ids := make([]string, 0, len(d.Products))
	for _, p := range d.Products {
		ids = append(ids, p.ID)
	}
	return ids
}
