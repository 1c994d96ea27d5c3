package vector

import (
	"math"
	"sort"
)

// ChunkText splits text into overlapping chunks by rune count.
func ChunkText(text string, size, overlap int) []string {
	if size <= 0 {
		size = 512
	}
	if overlap < 0 || overlap >= size {
		overlap = size / 2
	}
	runes := []rune(text)
	var chunks []string
	for i := 0; i < len(runes); {
		end := i + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[i:end]))
		if end == len(runes) {
			break
		}
		i += size - overlap
	}
	return chunks
}

func CosineSimilarity(a, b []float32) float32 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

// Mean averages equally sized vectors; vectors of a different length than
// the first are skipped.
func Mean(vectors [][]float32) []float32 {
	if len(vectors) == 0 {
		return nil
	}
	dim := len(vectors[0])
	if dim == 0 {
		return nil
	}
	sum := make([]float64, dim)
	n := 0
	for _, v := range vectors {
		if len(v) != dim {
			continue
		}
		for i, x := range v {
			sum[i] += float64(x)
		}
		n++
	}
	out := make([]float32, dim)
	for i := range sum {
		out[i] = float32(sum[i] / float64(n))
	}
	return out
}

type Scored[T any] struct {
	Item  T
	Score float32
}

// TopK returns the k highest scoring items, best first. Ties keep input order.
func TopK[T any](items []Scored[T], k int) []Scored[T] {
	if k <= 0 || len(items) == 0 {
		return nil
	}
	sorted := make([]Scored[T], len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})
	if k > len(sorted) {
		k = len(sorted)
	}
	return sorted[:k]
}
