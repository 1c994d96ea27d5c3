package vector

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkTextOverlap(t *testing.T) {
	chunks := ChunkText("abcdefghij", 4, 1)
	assert.Equal(t, []string{"abcd", "defg", "ghij"}, chunks)
}

func TestChunkTextCountsRunes(t *testing.T) {
	text := strings.Repeat("ñ", 10)
	chunks := ChunkText(text, 5, 0)
	require.Len(t, chunks, 2)
	assert.Equal(t, strings.Repeat("ñ", 5), chunks[0])
}

func TestChunkTextEmpty(t *testing.T) {
	assert.Empty(t, ChunkText("", 10, 2))
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float32{1, 2, 3}, []float32{2, 4, 6}), 1e-6)
	assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-6)
	assert.Equal(t, float32(0), CosineSimilarity([]float32{1}, []float32{1, 2}))
	assert.Equal(t, float32(0), CosineSimilarity([]float32{0, 0}, []float32{1, 1}))
}

func TestMean(t *testing.T) {
	got := Mean([][]float32{{1, 3}, {3, 5}, {9}})
	assert.Equal(t, []float32{2, 4}, got)
	assert.Nil(t, Mean(nil))
}

func TestTopK(t *testing.T) {
	items := []Scored[string]{
		{Item: "a", Score: 0.1},
		{Item: "b", Score: 0.9},
		{Item: "c", Score: 0.5},
	}
	top := TopK(items, 2)
	require.Len(t, top, 2)
	assert.Equal(t, "b", top[0].Item)
	assert.Equal(t, "c", top[1].Item)
	assert.Equal(t, "a", items[0].Item, "input must not be reordered")
	assert.Len(t, TopK(items, 10), 3)
	assert.Nil(t, TopK(items, 0))
}
