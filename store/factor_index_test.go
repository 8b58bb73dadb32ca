package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFactorIndexSearch(t *testing.T) {
	idx := NewFactorIndex()
	require.NoError(t, idx.Upsert("a", []float64{1, 0}))
	require.NoError(t, idx.Upsert("b", []float64{0, 1}))
	require.NoError(t, idx.Upsert("c", []float64{1, 1}))
	require.NoError(t, idx.Upsert("d", []float64{0, 1}))
	assert.Error(t, idx.Upsert("e", []float64{1, 2, 3}))
	assert.Error(t, idx.Upsert("f", nil))

	got, err := idx.Search([]float64{1, 2}, 3, nil)
	require.NoError(t, err)
	assert.Equal(t, []Scored{{"c", 3}, {"b", 2}, {"d", 2}}, got)

	got, err = idx.Search([]float64{1, 2}, 0, func(id string) bool { return id == "c" })
	require.NoError(t, err)
	assert.Equal(t, []Scored{{"b", 2}, {"d", 2}, {"a", 1}}, got)

	_, err = idx.Search([]float64{1}, 3, nil)
	assert.Error(t, err)

	idx.Delete("c")
	assert.Equal(t, 3, idx.Len())
}

func TestFactorIndexEmpty(t *testing.T) {
	got, err := NewFactorIndex().Search([]float64{1, 2}, 3, nil)
	assert.NoError(t, err)
	assert.Empty(t, got)
}
