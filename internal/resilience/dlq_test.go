package resilience

import (
	"testing"
	"time"

	"github.com/sells-group/catalog-cli/internal/model"
)

func TestDeadLetter_ProductIDs(t *testing.T) {
	entry := &DeadLetter{
		ID: "dl-1",
		Products: []*model.Product{
			model.NewProduct("gtin-a"),
			model.NewProduct("gtin-b"),
		},
		Error:     "bulk store failed",
		ErrorType: "transient",
		FailedAt:  time.Now().UTC(),
	}

	ids := entry.ProductIDs()
	if len(ids) != 2 {
		t.Fatalf("expected 2 ids, got %d", len(ids))
	}
	if ids[0] != "gtin-a" || ids[1] != "gtin-b" {
		t.Errorf("unexpected ids: %v", ids)
	}
}

func TestDeadLetter_ProductIDs_Empty(t *testing.T) {
	entry := &DeadLetter{ID: "dl-empty"}
	if ids := entry.ProductIDs(); len(ids) != 0 {
		t.Errorf("expected no ids, got %v", ids)
	}
}
