package aggregation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/sells-group/catalog-cli/internal/model"
	"github.com/sells-group/catalog-cli/internal/vertical"
)

func testVerticals() *vertical.Service {
	return vertical.NewService([]vertical.Config{
		{
			ID:                 "tv",
			MatchingCategories: []string{"Electronics > TV", "TV & Home Cinema"},
			ExcludingTokens:    []string{"accessory"},
		},
		{
			ID:                 "monitor",
			MatchingCategories: []string{"Computers > Monitors"},
		},
	})
}

func TestClassificationService_SetsVerticalOnMatch(t *testing.T) {
	svc := NewClassificationService(testVerticals())
	p := model.NewProduct("gtin-1")

	frag := &model.Fragment{
		GTIN: "gtin-1", Datasource: "shop-a",
		Categories: []string{"Electronics > TV"},
	}
	require.NoError(t, svc.OnFragment(context.Background(), frag, p, nil))
	assert.Equal(t, "tv", p.Vertical)
}

func TestClassificationService_ReplacesVertical(t *testing.T) {
	svc := NewClassificationService(testVerticals())
	p := model.NewProduct("gtin-1")
	p.Vertical = "monitor"
	p.SetCategories("shop-a", []string{"Electronics > TV"})

	require.NoError(t, svc.OnProduct(context.Background(), p, nil))
	assert.Equal(t, "tv", p.Vertical)
}

func TestClassificationService_ClearsVerticalWhenUnmatched(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	prev := zap.L()
	zap.ReplaceGlobals(zap.New(core))
	t.Cleanup(func() { zap.ReplaceGlobals(prev) })

	svc := NewClassificationService(testVerticals())
	p := model.NewProduct("gtin-1")
	p.Vertical = "tv"
	p.SetCategories("shop-a", []string{"Garden > Tools"})

	require.NoError(t, svc.OnProduct(context.Background(), p, nil))
	assert.Empty(t, p.Vertical)

	entries := logs.FilterMessage("classify: clearing vertical no longer matched by categories").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "tv", entries[0].ContextMap()["previous"])
}

func TestClassificationService_UnmatchedAndUnsetStaysUnset(t *testing.T) {
	svc := NewClassificationService(testVerticals())
	p := model.NewProduct("gtin-1")
	p.SetCategories("shop-a", []string{"Garden > Tools"})

	require.NoError(t, svc.OnProduct(context.Background(), p, nil))
	assert.Empty(t, p.Vertical)
}

func TestClassificationService_ExcludingTokenBlocksMatch(t *testing.T) {
	svc := NewClassificationService(testVerticals())
	p := model.NewProduct("gtin-1")
	p.SetCategories("shop-a", []string{"Electronics > TV", "TV wall mount accessory"})

	require.NoError(t, svc.OnProduct(context.Background(), p, nil))
	assert.Empty(t, p.Vertical)
}
