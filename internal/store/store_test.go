package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/catalog-cli/internal/model"
)

func newContractSQLite(t *testing.T) Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "contract.db")
	s, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() }) //nolint:errcheck
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

// storeTestSuite exercises the Store contract against a backend. Both
// backends serialize products as JSON documents, so the suite focuses
// on what must survive a store roundtrip.
func storeTestSuite(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("AttributesSurviveRoundtrip", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		p := model.NewProduct("7612345678900")
		attr := p.Attribute("COLOR")
		require.NoError(t, attr.AddSource(model.SourcedAttribute{
			Name: "COLOR", Value: "Black", Datasource: "shop-a",
		}))
		require.NoError(t, attr.AddSource(model.SourcedAttribute{
			Name: "COLOR", Value: "noir", Datasource: "shop-b",
		}))
		attr.Value = attr.Resolve(nil)

		require.NoError(t, s.Index(ctx, []*model.Product{p}))

		got, err := s.GetByID(ctx, "7612345678900")
		require.NoError(t, err)
		require.Contains(t, got.Attributes, "COLOR")
		assert.Len(t, got.Attributes["COLOR"].Sources, 2)
		assert.NotEmpty(t, got.Attributes["COLOR"].Value)
	})

	t.Run("ScoresAndStatsSurviveRoundtrip", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		p := model.NewProduct("gtin-scores")
		p.PriceStats.Increment(199.99)
		p.PriceStats.Increment(249.50)
		sc := p.Score("rating")
		sc.Absolute.Increment(4.5)
		sc.Value = sc.Absolute.Avg

		require.NoError(t, s.Index(ctx, []*model.Product{p}))

		got, err := s.GetByID(ctx, "gtin-scores")
		require.NoError(t, err)
		assert.Equal(t, 2, got.PriceStats.Count)
		assert.InDelta(t, 199.99, got.PriceStats.Min, 1e-9)
		require.Contains(t, got.Scores, "rating")
		assert.InDelta(t, 4.5, got.Scores["rating"].Value, 1e-9)
	})

	t.Run("CategoriesSurviveRoundtrip", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		p := model.NewProduct("gtin-cats")
		p.SetCategories("shop-a", []string{"Electronics > TV"})
		p.SetCategories("shop-b", []string{"TV & Home Cinema"})

		require.NoError(t, s.Index(ctx, []*model.Product{p}))

		got, err := s.GetByID(ctx, "gtin-cats")
		require.NoError(t, err)
		assert.ElementsMatch(t,
			[]string{"Electronics > TV", "TV & Home Cinema"},
			got.Categories())
	})
}

func TestStoreContract_SQLite(t *testing.T) {
	storeTestSuite(t, newContractSQLite)
}
