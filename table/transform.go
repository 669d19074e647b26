package table

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// RelativeAbundance normalizes each sample's counts to proportions that sum
// to 1. The result is transposed relative to the feature table: one row per
// sample, one column per feature.
func RelativeAbundance(ft *FeatureTable) (*mat.Dense, error) {
	nFeatures, nSamples := ft.Counts.Dims()
	out := mat.NewDense(nSamples, nFeatures, nil)

	col := make([]float64, nFeatures)
	for j := 0; j < nSamples; j++ {
		mat.Col(col, j, ft.Counts)

		if floats.Min(col) < 0 {
			return nil, fmt.Errorf("Sample %s has negative counts", ft.SampleIDs[j])
		}

		total := floats.Sum(col)
		if total == 0 {
			return nil, fmt.Errorf("Sample %s has no counts, so its relative abundance is undefined", ft.SampleIDs[j])
		}

		// Divide rather than scale by 1/total so that a lone feature maps to
		// exactly 1.
		for i := range col {
			col[i] /= total
		}
		out.SetRow(j, col)
	}

	return out, nil
}

// ArcsineSqrt applies asin(sqrt(x)) to every element, in place. This is the
// variance-stabilizing transform for proportions.
func ArcsineSqrt(m *mat.Dense) {
	m.Apply(func(_, _ int, v float64) float64 {
		return math.Asin(math.Sqrt(v))
	}, m)
}
