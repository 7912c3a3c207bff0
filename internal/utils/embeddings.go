package utils

import "math"

const cosineEpsilon = 1e-8

// dotProduct multiplies two vectors element-wise over their shared prefix.
func dotProduct(vec1, vec2 []float32) float32 {
	n := len(vec1)
	if len(vec2) < n {
		n = len(vec2)
	}
	var product float32
	for i := 0; i < n; i++ {
		product += vec1[i] * vec2[i]
	}
	return product
}

// magnitude calculates the L2 norm (magnitude) of a vector.
func magnitude(vec []float32) float32 {
	var sumOfSquares float32
	for _, val := range vec {
		sumOfSquares += val * val
	}
	return float32(math.Sqrt(float64(sumOfSquares)))
}

// CosineSimilarity scores two vectors by the angle between them. The epsilon
// in the denominator keeps zero-vectors from dividing by zero; they score 0
// against everything instead of erroring.
func CosineSimilarity(vec1, vec2 []float32) float32 {
	if len(vec1) == 0 || len(vec2) == 0 {
		return 0
	}
	return dotProduct(vec1, vec2) / (magnitude(vec1)*magnitude(vec2) + cosineEpsilon)
}

// L2Normalize scales a vector to unit length. Zero-vectors are returned
// unchanged rather than producing NaNs.
func L2Normalize(vec []float32) []float32 {
	norm := magnitude(vec)
	if norm == 0 {
		return vec
	}
	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = v / norm
	}
	return out
}
