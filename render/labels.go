package render

import (
	"fmt"

	"github.com/carbocation/phylolda/lda"
)

// AxisLabel names the 0-based discriminant axis, with its share of explained
// variance when that is known.
func AxisLabel(axis int, variance lda.ExplainedVariance) string {
	if ratio, ok := variance.Ratio(axis); ok {
		return fmt.Sprintf("LD%d (Percent Explained Variance: %.3f%%)", axis+1, ratio*100)
	}

	return fmt.Sprintf("LD%d", axis+1)
}
