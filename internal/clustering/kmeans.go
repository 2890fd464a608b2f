package clustering

import (
	"fmt"
	"math"
	"math/rand"
)

// runKMeans executes K-means with K-means++ initialization over cosine
// distance. Returns per-point cluster assignments and final centroids.
func runKMeans(embeddings [][]float64, k, maxIterations int, rng *rand.Rand) ([]int, [][]float64, error) {
	if len(embeddings) == 0 {
		return nil, nil, fmt.Errorf("no embeddings provided")
	}
	if k <= 0 || k > len(embeddings) {
		return nil, nil, fmt.Errorf("invalid k: %d (must be 1-%d)", k, len(embeddings))
	}

	dim := len(embeddings[0])
	centroids := initializeCentroidsKMeansPP(embeddings, k, dim, rng)

	var assignments []int
	converged := false

	for iteration := 0; iteration < maxIterations && !converged; iteration++ {
		newAssignments := make([]int, len(embeddings))
		for i, embedding := range embeddings {
			newAssignments[i] = nearestCentroid(embedding, centroids)
		}

		if iteration > 0 {
			converged = true
			for i := range assignments {
				if assignments[i] != newAssignments[i] {
					converged = false
					break
				}
			}
		}

		assignments = newAssignments

		if !converged {
			centroids = updateCentroids(embeddings, assignments, k, dim)
		}
	}

	return assignments, centroids, nil
}

// initializeCentroidsKMeansPP uses K-means++ initialization: the first
// centroid is random, each following one is chosen with probability
// proportional to squared distance from the nearest existing centroid.
func initializeCentroidsKMeansPP(embeddings [][]float64, k, dim int, rng *rand.Rand) [][]float64 {
	centroids := make([][]float64, k)

	firstIndex := rng.Intn(len(embeddings))
	centroids[0] = make([]float64, dim)
	copy(centroids[0], embeddings[firstIndex])

	for i := 1; i < k; i++ {
		distances := make([]float64, len(embeddings))
		totalDistance := 0.0

		for j, embedding := range embeddings {
			minDist := math.Inf(1)
			for c := 0; c < i; c++ {
				dist := CosineDistance(embedding, centroids[c])
				if dist < minDist {
					minDist = dist
				}
			}
			distances[j] = minDist * minDist
			totalDistance += distances[j]
		}

		if totalDistance == 0 {
			randomIndex := rng.Intn(len(embeddings))
			centroids[i] = make([]float64, dim)
			copy(centroids[i], embeddings[randomIndex])
			continue
		}

		target := rng.Float64() * totalDistance
		cumulative := 0.0
		selectedIndex := 0

		for j, dist := range distances {
			cumulative += dist
			if cumulative >= target {
				selectedIndex = j
				break
			}
		}

		centroids[i] = make([]float64, dim)
		copy(centroids[i], embeddings[selectedIndex])
	}

	return centroids
}

// nearestCentroid finds the index of the nearest centroid by cosine distance.
func nearestCentroid(embedding []float64, centroids [][]float64) int {
	minDistance := math.Inf(1)
	nearestIndex := 0

	for i, centroid := range centroids {
		distance := CosineDistance(embedding, centroid)
		if distance < minDistance {
			minDistance = distance
			nearestIndex = i
		}
	}

	return nearestIndex
}

// updateCentroids recalculates centroids as the mean of assigned points.
func updateCentroids(embeddings [][]float64, assignments []int, k, dim int) [][]float64 {
	centroids := make([][]float64, k)
	counts := make([]int, k)

	for i := range centroids {
		centroids[i] = make([]float64, dim)
	}

	for i, embedding := range embeddings {
		clusterID := assignments[i]
		counts[clusterID]++
		for j := range embedding {
			centroids[clusterID][j] += embedding[j]
		}
	}

	for i := range centroids {
		if counts[i] > 0 {
			for j := range centroids[i] {
				centroids[i][j] /= float64(counts[i])
			}
		}
	}

	return centroids
}
