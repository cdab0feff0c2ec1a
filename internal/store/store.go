// Package store persists canonical products in an external document store.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/catalog-cli/internal/model"
	"github.com/sells-group/catalog-cli/internal/resilience"
)

// ErrNotFound is returned when a product id is unknown.
var ErrNotFound = eris.New("store: product not found")

// Store defines the persistence contract of the aggregation engine.
// Index is a bulk upsert, idempotent on product id; the read operations
// serve the batch aggregation passes and the surrounding services.
type Store interface {
	// Index bulk-upserts a batch of finalized products.
	Index(ctx context.Context, products []*model.Product) error

	// GetByID loads one product, or ErrNotFound.
	GetByID(ctx context.Context, id string) (*model.Product, error)

	// ByVertical returns every product currently classified in the vertical.
	ByVertical(ctx context.Context, verticalID string) ([]*model.Product, error)

	// Count returns the total number of stored products.
	Count(ctx context.Context) (int64, error)

	// CountVertical returns the number of products in one vertical.
	CountVertical(ctx context.Context, verticalID string) (int64, error)

	// SaveDeadLetter parks a failed batch for later inspection.
	SaveDeadLetter(ctx context.Context, entry *resilience.DeadLetter) error

	// DeadLetterDepth returns the number of parked batches.
	DeadLetterDepth(ctx context.Context) (int64, error)

	// Lifecycle.
	Migrate(ctx context.Context) error
	Close() error
}
