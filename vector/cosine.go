package vector

import "math"

// CosineSimilarity calculates (a·b) / (‖a‖·‖b‖).
// Returns 0 when the lengths differ or either vector has zero norm.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	return cosine(a, b, norm(a))
}

// cosine is CosineSimilarity with the norm of a precomputed, so a query
// vector is measured once per scan.
func cosine(a, b []float64, normA float64) float64 {
	var dot, sumB float64
	for i := range a {
		dot += a[i] * b[i]
		sumB += b[i] * b[i]
	}
	if normA == 0 || sumB == 0 {
		return 0
	}
	sim := dot / (normA * math.Sqrt(sumB))
	if math.IsNaN(sim) {
		return 0
	}
	return sim
}

func norm(v []float64) float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}
