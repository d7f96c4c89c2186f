package consistency

// SimilarityMatrix builds the symmetric pairwise cosine-similarity matrix
// for a set of embedding vectors. Self-similarity is always 1.0, including
// for failed (nil) embeddings, which score 0 against everything else.
func SimilarityMatrix(vectors [][]float32) [][]float64 {
	n := len(vectors)
	matrix := make([][]float64, n)
	for i := range matrix {
		matrix[i] = make([]float64, n)
		matrix[i][i] = 1.0
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			sim := CosineSimilarity(vectors[i], vectors[j])
			matrix[i][j] = sim
			matrix[j][i] = sim
		}
	}
	return matrix
}

// SupportScores returns, per appearance, the mean similarity to all other
// appearances.
func SupportScores(matrix [][]float64) []float64 {
	n := len(matrix)
	scores := make([]float64, n)
	if n < 2 {
		return scores
	}
	for i := range matrix {
		var sum float64
		for j := range matrix[i] {
			if i == j {
				continue
			}
			sum += matrix[i][j]
		}
		scores[i] = sum / float64(n-1)
	}
	return scores
}

// OverallConsistency is the mean of all pairwise similarities (upper
// triangle, excluding self). Returns 0 for fewer than two appearances.
func OverallConsistency(matrix [][]float64) float64 {
	n := len(matrix)
	if n < 2 {
		return 0
	}
	var sum float64
	var count int
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			sum += matrix[i][j]
			count++
		}
	}
	return sum / float64(count)
}
