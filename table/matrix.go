package table

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"

	"github.com/carbocation/pfx"
	"github.com/carbocation/phylolda/mapping"
	"gonum.org/v1/gonum/mat"
)

// ConditionColumn names the group label column in the exported matrix.
const ConditionColumn = "Condition"

// InputMatrix is the discriminant analysis input: one row per sample, a group
// label per row, and a numeric block whose columns are either features or
// other samples.
type InputMatrix struct {
	SampleIDs  []string
	Conditions []string
	Columns    []string
	Data       *mat.Dense
}

// FromFeatureTable converts raw counts to arcsine-square-root transformed
// relative abundances and attaches each sample's group label.
func FromFeatureTable(ft *FeatureTable, m *mapping.Mapping, groupIdx int) (*InputMatrix, error) {
	relAbd, err := RelativeAbundance(ft)
	if err != nil {
		return nil, err
	}
	ArcsineSqrt(relAbd)

	conditions, err := lookupConditions(ft.SampleIDs, m, groupIdx)
	if err != nil {
		return nil, err
	}

	return &InputMatrix{
		SampleIDs:  append([]string(nil), ft.SampleIDs...),
		Conditions: conditions,
		Columns:    append([]string(nil), ft.Features...),
		Data:       relAbd,
	}, nil
}

// FromDistanceMatrix uses each sample's row of distances as-is.
func FromDistanceMatrix(dm *DistanceMatrix, m *mapping.Mapping, groupIdx int) (*InputMatrix, error) {
	conditions, err := lookupConditions(dm.RowIDs, m, groupIdx)
	if err != nil {
		return nil, err
	}

	return &InputMatrix{
		SampleIDs:  append([]string(nil), dm.RowIDs...),
		Conditions: conditions,
		Columns:    append([]string(nil), dm.ColumnIDs...),
		Data:       mat.DenseCopyOf(dm.Data),
	}, nil
}

func lookupConditions(sampleIDs []string, m *mapping.Mapping, groupIdx int) ([]string, error) {
	out := make([]string, 0, len(sampleIDs))
	for _, sid := range sampleIDs {
		v, err := m.Value(sid, groupIdx)
		if err != nil {
			return nil, pfx.Err(err)
		}
		out = append(out, v)
	}

	return out, nil
}

// Groups returns the distinct conditions in sorted order.
func (in *InputMatrix) Groups() []string {
	seen := make(map[string]struct{})
	for _, c := range in.Conditions {
		seen[c] = struct{}{}
	}

	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Strings(out)

	return out
}

// WriteTSV writes the matrix with the Condition column ahead of the values.
// The sample ID column has an empty header, as pandas writes its index.
func (in *InputMatrix) WriteTSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'

	header := append([]string{"", ConditionColumn}, in.Columns...)
	if err := cw.Write(header); err != nil {
		return pfx.Err(err)
	}

	_, nCols := in.Data.Dims()
	row := make([]string, nCols+2)
	for i, sid := range in.SampleIDs {
		row[0] = sid
		row[1] = in.Conditions[i]
		for j := 0; j < nCols; j++ {
			row[j+2] = strconv.FormatFloat(in.Data.At(i, j), 'g', -1, 64)
		}
		if err := cw.Write(row); err != nil {
			return pfx.Err(err)
		}
	}

	cw.Flush()
	return pfx.Err(cw.Error())
}

// SaveTSV writes the matrix to a new file at path.
func (in *InputMatrix) SaveTSV(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return pfx.Err(fmt.Errorf("%s: %w", path, err))
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	if err := in.WriteTSV(bw); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return pfx.Err(err)
	}

	return f.Close()
}
