package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fragments.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestImportFragments(t *testing.T) {
	env, _, queue := newTestEnv(t)

	csv := `gtin,datasource,url,price,rating,categories,attributes
111,shop-a,https://a.example/p1,499.99,4.5,Electronics > TV,COLOR=Black|DIAGONAL=55
111,shop-b,https://b.example/p1,459.00,,Electronics > TV,COLOR=noir
222,shop-a,https://a.example/p2,,,Computers > Monitors,
`
	processed, rejected, err := importFragments(context.Background(), env, writeCSV(t, csv))
	require.NoError(t, err)
	assert.Equal(t, 3, processed)
	assert.Equal(t, 0, rejected)
	require.Len(t, queue.enqueued, 3)

	first := queue.enqueued[0]
	assert.Equal(t, "111", first.ID)
	assert.Equal(t, "tv", first.Vertical)
}

func TestImportFragments_RejectsInvalidRows(t *testing.T) {
	env, _, queue := newTestEnv(t)

	// Second row has no datasource and must be skipped, not abort the run.
	csv := `gtin,datasource,url
111,shop-a,https://a.example/p1
222,,https://a.example/p2
333,shop-b,https://b.example/p3
`
	processed, rejected, err := importFragments(context.Background(), env, writeCSV(t, csv))
	require.NoError(t, err)
	assert.Equal(t, 2, processed)
	assert.Equal(t, 1, rejected)
	assert.Len(t, queue.enqueued, 2)
}

func TestImportFragments_MissingColumns(t *testing.T) {
	env, _, _ := newTestEnv(t)

	_, _, err := importFragments(context.Background(), env, writeCSV(t, "url,price\nhttps://a.example,1\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gtin")
}

func TestImportFragments_MissingFile(t *testing.T) {
	env, _, _ := newTestEnv(t)

	_, _, err := importFragments(context.Background(), env, filepath.Join(t.TempDir(), "nope.csv"))
	assert.Error(t, err)
}

func TestFragmentFromRecord(t *testing.T) {
	col := map[string]int{
		"gtin": 0, "datasource": 1, "url": 2, "price": 3,
		"rating": 4, "categories": 5, "attributes": 6, "timestamp": 7,
	}
	record := []string{
		"4548736123456", "shop-a", "https://a.example/p",
		"499.99", "4.5",
		"Electronics > TV| TV & Home Cinema ",
		"COLOR=Black|DIAGONAL=55|garbage",
		"2026-08-01T12:00:00Z",
	}

	frag := fragmentFromRecord(col, record)
	assert.Equal(t, "4548736123456", frag.GTIN)
	assert.Equal(t, "shop-a", frag.Datasource)
	assert.InDelta(t, 499.99, frag.Price, 0.001)
	assert.InDelta(t, 4.5, frag.Rating, 0.001)
	assert.Equal(t, []string{"Electronics > TV", "TV & Home Cinema"}, frag.Categories)
	require.Len(t, frag.Attributes, 2)
	assert.Equal(t, "COLOR", frag.Attributes[0].Name)
	assert.Equal(t, "Black", frag.Attributes[0].Value)
	assert.Equal(t, "2026-08-01T12:00:00Z", frag.Timestamp.Format("2006-01-02T15:04:05Z07:00"))
}

func TestFragmentFromRecord_BadNumbersIgnored(t *testing.T) {
	col := map[string]int{"gtin": 0, "datasource": 1, "price": 2, "rating": 3}
	frag := fragmentFromRecord(col, []string{"111", "shop-a", "cheap", "many stars"})

	assert.Zero(t, frag.Price)
	assert.Zero(t, frag.Rating)
	assert.False(t, frag.Timestamp.IsZero())
}

func TestFragmentFromRecord_ShortRecord(t *testing.T) {
	col := map[string]int{"gtin": 0, "datasource": 1, "url": 5}
	frag := fragmentFromRecord(col, []string{"111", "shop-a"})

	assert.Equal(t, "111", frag.GTIN)
	assert.Empty(t, frag.URL)
}
