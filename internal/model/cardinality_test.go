package model

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCardinality_Increment(t *testing.T) {
	c := &Cardinality{}
	assert.Equal(t, 0, c.Count)
	assert.Equal(t, 0.0, c.Sum)

	c.Increment(10)
	assert.Equal(t, 1, c.Count)
	assert.Equal(t, 10.0, c.Min)
	assert.Equal(t, 10.0, c.Max)
	assert.Equal(t, 10.0, c.Avg)

	c.Increment(4)
	c.Increment(16)
	assert.Equal(t, 3, c.Count)
	assert.Equal(t, 4.0, c.Min)
	assert.Equal(t, 16.0, c.Max)
	assert.Equal(t, 30.0, c.Sum)
	assert.Equal(t, 10.0, c.Avg)
}

func TestCardinality_PermutationInvariant(t *testing.T) {
	values := []float64{3.5, -2, 0, 99.9, 42, 42, 7.25, -2}

	sequential := &Cardinality{}
	for _, v := range values {
		sequential.Increment(v)
	}

	shuffled := append([]float64(nil), values...)
	rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	permuted := &Cardinality{}
	for _, v := range shuffled {
		permuted.Increment(v)
	}

	assert.Equal(t, sequential.Count, permuted.Count)
	assert.Equal(t, sequential.Min, permuted.Min)
	assert.Equal(t, sequential.Max, permuted.Max)
	assert.InDelta(t, sequential.Sum, permuted.Sum, 1e-9)
	assert.InDelta(t, sequential.Avg, permuted.Avg, 1e-9)

	// Avg always matches direct computation.
	require.NotZero(t, sequential.Count)
	assert.InDelta(t, sequential.Sum/float64(sequential.Count), sequential.Avg, 1e-12)
}

func TestCardinality_RejectsNonFinite(t *testing.T) {
	c := &Cardinality{}
	c.Increment(5)

	before := *c
	c.Increment(math.NaN())
	c.Increment(math.Inf(1))
	c.Increment(math.Inf(-1))
	assert.Equal(t, before, *c, "non-finite observations must leave the accumulator untouched")
}

func TestCardinality_CloneDoesNotAlias(t *testing.T) {
	src := &Cardinality{}
	src.Increment(1)
	src.Increment(3)

	cp := src.Clone()
	assert.Equal(t, *src, *cp)

	cp.Increment(100)
	assert.Equal(t, 2, src.Count, "mutating the clone must not affect the source")
	assert.Equal(t, 3.0, src.Max)
	assert.Equal(t, 3, cp.Count)
}
