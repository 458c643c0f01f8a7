package scoring

import "gonum.org/v1/gonum/floats"

// CosineEmbeddingsScore computes a 0-100 compatibility score from two
// equal-length learned-embedding vectors via cosine similarity,
// suitable as the embeddingsScore argument to ScoreSections when an
// embedding model is available. Cosine similarity is [-1,1]; it is
// rescaled to [0,100] so it composes with the other sub-scores.
func CosineEmbeddingsScore(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return neutralEmbeddingsScore
	}
	normA := floats.Norm(a, 2)
	normB := floats.Norm(b, 2)
	if normA == 0 || normB == 0 {
		return neutralEmbeddingsScore
	}
	dot := floats.Dot(a, b)
	cos := dot / (normA * normB)
	return (cos + 1) / 2 * 100
}
