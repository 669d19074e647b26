// Package lda fits a linear discriminant analysis projection using the SVD
// solver: the within-class scatter is whitened by an SVD of the centered,
// standardized data, and the discriminant axes come from a second SVD of the
// whitened class means.
package lda

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/carbocation/pfx"
	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Tolerance is the singular value threshold below which a whitened
// dimension is considered to be absent (collinear).
const Tolerance = 1e-4

// ErrTooFewGroups is returned when there is nothing to discriminate between.
var ErrTooFewGroups = errors.New("linear discriminant analysis requires at least 2 groups")

// Model is a fitted projection.
type Model struct {
	// Classes are the sorted distinct labels
	Classes []string
	Priors  []float64

	// Means holds one row per class
	Means *mat.Dense

	// Xbar is the prior-weighted overall mean
	Xbar []float64

	// Scalings projects centered data onto the discriminant axes (features x
	// axes)
	Scalings *mat.Dense

	// MaxComponents is min(classes-1, features)
	MaxComponents int

	Variance ExplainedVariance
}

// Fit learns the discriminant axes for x (samples x features) with one label
// per row.
func Fit(x mat.Matrix, labels []string) (*Model, error) {
	nSamples, nFeatures := x.Dims()
	if len(labels) != nSamples {
		return nil, fmt.Errorf("%d labels were provided for %d samples", len(labels), nSamples)
	}

	classes, membership := classify(labels)
	nClasses := len(classes)
	if nClasses < 2 {
		return nil, ErrTooFewGroups
	}
	if nSamples <= nClasses {
		return nil, fmt.Errorf("linear discriminant analysis needs more samples (%d) than groups (%d)", nSamples, nClasses)
	}

	m := &Model{
		Classes:       classes,
		Priors:        make([]float64, nClasses),
		Means:         mat.NewDense(nClasses, nFeatures, nil),
		MaxComponents: minInt(nClasses-1, nFeatures),
	}

	// Class means and priors
	col := make([]float64, nSamples)
	classVals := make([][]float64, nClasses)
	for c := range classVals {
		classVals[c] = make([]float64, 0, nSamples)
	}
	counts := make([]int, nClasses)
	for _, c := range membership {
		counts[c]++
	}
	for c := range classes {
		m.Priors[c] = float64(counts[c]) / float64(nSamples)
	}
	for j := 0; j < nFeatures; j++ {
		mat.Col(col, j, x)
		for c := range classVals {
			classVals[c] = classVals[c][:0]
		}
		for i, v := range col {
			classVals[membership[i]] = append(classVals[membership[i]], v)
		}
		for c := range classes {
			m.Means.Set(c, j, stat.Mean(classVals[c], nil))
		}
	}

	// Within-class centered data, standardized per feature
	xc := mat.NewDense(nSamples, nFeatures, nil)
	for i := 0; i < nSamples; i++ {
		for j := 0; j < nFeatures; j++ {
			xc.Set(i, j, x.At(i, j)-m.Means.At(membership[i], j))
		}
	}

	std := make([]float64, nFeatures)
	for j := 0; j < nFeatures; j++ {
		s, err := stats.StandardDeviationPopulation(mat.Col(nil, j, xc))
		if err != nil {
			return nil, pfx.Err(err)
		}
		if s == 0 {
			s = 1
		}
		std[j] = s
	}

	fac := math.Sqrt(1 / float64(nSamples-nClasses))
	xc.Apply(func(_, j int, v float64) float64 {
		return fac * v / std[j]
	}, xc)

	var within mat.SVD
	if ok := within.Factorize(xc, mat.SVDThin); !ok {
		return nil, fmt.Errorf("SVD of the within-class data failed to converge")
	}
	s := within.Values(nil)
	var v mat.Dense
	within.VTo(&v)

	rank := 0
	for _, sv := range s {
		if sv > Tolerance {
			rank++
		}
	}
	if rank == 0 {
		return nil, fmt.Errorf("the samples show no within-group variance")
	}

	// scalings[j][k] = V[j][k] / std[j] / s[k]
	scalings := mat.NewDense(nFeatures, rank, nil)
	for j := 0; j < nFeatures; j++ {
		for k := 0; k < rank; k++ {
			scalings.Set(j, k, v.At(j, k)/std[j]/s[k])
		}
	}

	// Overall mean, weighted by priors
	m.Xbar = make([]float64, nFeatures)
	for c := range classes {
		floats.AddScaled(m.Xbar, m.Priors[c], m.Means.RawRowView(c))
	}

	// Between-class data in the whitened space
	betweenFac := 1.0 / float64(nClasses-1)
	centeredMeans := mat.NewDense(nClasses, nFeatures, nil)
	for c := range classes {
		w := math.Sqrt(float64(nSamples) * m.Priors[c] * betweenFac)
		for j := 0; j < nFeatures; j++ {
			centeredMeans.Set(c, j, w*(m.Means.At(c, j)-m.Xbar[j]))
		}
	}
	var between mat.Dense
	between.Mul(centeredMeans, scalings)

	var betweenSVD mat.SVD
	if ok := betweenSVD.Factorize(&between, mat.SVDThin); !ok {
		return nil, fmt.Errorf("SVD of the between-class data failed to converge")
	}
	sb := betweenSVD.Values(nil)
	var vb mat.Dense
	betweenSVD.VTo(&vb)

	m.Variance = varianceFromSingularValues(sb, m.MaxComponents)

	rankB := 0
	if len(sb) > 0 {
		for _, sv := range sb {
			if sv > Tolerance*sb[0] {
				rankB++
			}
		}
	}
	if rankB == 0 {
		return nil, fmt.Errorf("the group means are indistinguishable, so there are no discriminant axes")
	}

	m.Scalings = mat.NewDense(nFeatures, rankB, nil)
	m.Scalings.Mul(scalings, vb.Slice(0, rank, 0, rankB))

	return m, nil
}

// Axes is the number of discriminant axes Transform produces. It never
// exceeds the number of classes minus one.
func (m *Model) Axes() int {
	_, rankB := m.Scalings.Dims()
	return minInt(rankB, m.MaxComponents)
}

// Transform projects x (samples x features) onto the discriminant axes.
func (m *Model) Transform(x mat.Matrix) (*mat.Dense, error) {
	nSamples, nFeatures := x.Dims()
	if nFeatures != len(m.Xbar) {
		return nil, fmt.Errorf("model was fit with %d features but the data has %d", len(m.Xbar), nFeatures)
	}

	centered := mat.NewDense(nSamples, nFeatures, nil)
	centered.Apply(func(i, j int, _ float64) float64 {
		return x.At(i, j) - m.Xbar[j]
	}, centered)

	var projected mat.Dense
	projected.Mul(centered, m.Scalings)

	return mat.DenseCopyOf(projected.Slice(0, nSamples, 0, m.Axes())), nil
}

// classify returns the sorted distinct labels and each row's index into them.
func classify(labels []string) ([]string, []int) {
	seen := make(map[string]struct{})
	for _, l := range labels {
		seen[l] = struct{}{}
	}

	classes := make([]string, 0, len(seen))
	for l := range seen {
		classes = append(classes, l)
	}
	sort.Strings(classes)

	index := make(map[string]int, len(classes))
	for i, c := range classes {
		index[c] = i
	}

	membership := make([]int, len(labels))
	for i, l := range labels {
		membership[i] = index[l]
	}

	return classes, membership
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
