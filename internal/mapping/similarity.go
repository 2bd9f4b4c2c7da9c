package mapping

import (
	"math"

	"github.com/shopspring/decimal"
)

// CosineSimilarity returns dot(a,b) / (|a| * |b|). A zero norm is treated as
// 1, so a zero vector scores 0 against anything. Vectors of different length
// score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	na, nb := math.Sqrt(normA), math.Sqrt(normB)
	if na == 0 {
		na = 1
	}
	if nb == 0 {
		nb = 1
	}
	return dot / (na * nb)
}

// RoundConfidence rounds score half away from zero to three decimals.
func RoundConfidence(score float64) float64 {
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return 0
	}
	return decimal.NewFromFloat(score).Round(3).InexactFloat64()
}

// clampUnit limits score to [0, 1].
func clampUnit(score float64) float64 {
	switch {
	case score < 0:
		return 0
	case score > 1:
		return 1
	}
	return score
}
