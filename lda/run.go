package lda

import (
	"errors"
	"fmt"
	"log"

	"github.com/carbocation/phylolda/table"
	"gonum.org/v1/gonum/mat"
)

// ErrInsufficientGroups is returned when a 3D view is requested but the data
// cannot yield three discriminant axes.
var ErrInsufficientGroups = errors.New("Linear Discriminant Analysis requires at least 4 groups of samples to create a 3D figure. Please update group information or use the default 2D view of the results")

// Result is a projected dataset.
type Result struct {
	// Coords has one row per sample and one column per discriminant axis
	Coords *mat.Dense

	// Labels is parallel to the rows of Coords
	Labels []string

	// Groups are the sorted distinct labels
	Groups []string

	Variance ExplainedVariance
}

// Axes is the number of discriminant axes in the result.
func (r Result) Axes() int {
	_, c := r.Coords.Dims()
	return c
}

// Run fits the projection to the input matrix and transforms it. The
// Condition column supplies the labels; everything else is the feature block.
func Run(in *table.InputMatrix) (Result, error) {
	model, err := Fit(in.Data, in.Conditions)
	if err != nil {
		return Result{}, err
	}

	coords, err := model.Transform(in.Data)
	if err != nil {
		return Result{}, err
	}

	if !model.Variance.Available() {
		log.Println("Explained variance cannot be computed for these discriminant axes; axes will be labeled without percentages")
	}

	return Result{
		Coords:   coords,
		Labels:   append([]string(nil), in.Conditions...),
		Groups:   model.Classes,
		Variance: model.Variance,
	}, nil
}

// RequireGroups checks, before any fitting, that there are enough groups to
// produce the requested number of dimensions.
func RequireGroups(nGroups, dimensions int) error {
	if dimensions == 3 && nGroups < 4 {
		return fmt.Errorf("%d groups were found: %w", nGroups, ErrInsufficientGroups)
	}

	return nil
}

// RequireAxes checks that the result has enough axes to draw the requested
// number of dimensions. Rank-deficient data can produce fewer axes than the
// group count alone would allow.
func (r Result) RequireAxes(dimensions int) error {
	if dimensions == 3 && r.Axes() < 3 {
		return fmt.Errorf("only %d discriminant axes were found: %w", r.Axes(), ErrInsufficientGroups)
	}

	return nil
}
