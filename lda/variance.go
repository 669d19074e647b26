package lda

import "math"

// ExplainedVariance holds the fraction of between-group variance captured by
// each discriminant axis, when it can be computed. The zero value is
// "unavailable".
type ExplainedVariance struct {
	ratios []float64
}

// NewExplainedVariance wraps known ratios.
func NewExplainedVariance(ratios []float64) ExplainedVariance {
	return ExplainedVariance{ratios: append([]float64(nil), ratios...)}
}

// Available reports whether any ratios were computed.
func (e ExplainedVariance) Available() bool {
	return len(e.ratios) > 0
}

// Ratio returns the ratio for the 0-based axis, if known.
func (e ExplainedVariance) Ratio(axis int) (float64, bool) {
	if axis < 0 || axis >= len(e.ratios) {
		return 0, false
	}

	return e.ratios[axis], true
}

// Ratios returns a copy of all known ratios.
func (e ExplainedVariance) Ratios() []float64 {
	return append([]float64(nil), e.ratios...)
}

// varianceFromSingularValues converts the between-class singular values to
// ratios of squared values, keeping at most maxComponents of them. A zero or
// non-finite total yields the unavailable value.
func varianceFromSingularValues(s []float64, maxComponents int) ExplainedVariance {
	if maxComponents < 1 || len(s) == 0 {
		return ExplainedVariance{}
	}

	total := 0.0
	for _, v := range s {
		total += v * v
	}
	if total == 0 || math.IsNaN(total) || math.IsInf(total, 0) {
		return ExplainedVariance{}
	}

	n := len(s)
	if n > maxComponents {
		n = maxComponents
	}

	ratios := make([]float64, n)
	for i := range ratios {
		ratios[i] = s[i] * s[i] / total
	}

	return ExplainedVariance{ratios: ratios}
}
