package clustering

import "math"

// CosineSimilarity calculates the cosine similarity between two vectors.
// Returns 0 for mismatched or zero-norm vectors.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// CosineDistance converts cosine similarity into a distance in [0, 2].
func CosineDistance(a, b []float64) float64 {
	return 1.0 - CosineSimilarity(a, b)
}

// meanVector averages a set of vectors. Returns nil for an empty set.
func meanVector(vectors [][]float64) []float64 {
	if len(vectors) == 0 {
		return nil
	}

	dim := len(vectors[0])
	mean := make([]float64, dim)
	for _, v := range vectors {
		for i := range v {
			mean[i] += v[i]
		}
	}
	for i := range mean {
		mean[i] /= float64(len(vectors))
	}

	return mean
}

// avgPairwiseSimilarity computes the mean cosine similarity over all pairs.
// A single vector has perfect coherence by convention.
func avgPairwiseSimilarity(vectors [][]float64) float64 {
	n := len(vectors)
	if n <= 1 {
		return 1.0
	}

	var total float64
	var pairs int
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			total += CosineSimilarity(vectors[i], vectors[j])
			pairs++
		}
	}

	return total / float64(pairs)
}
