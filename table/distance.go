package table

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/carbocation/pfx"
	"github.com/carbocation/phylolda"
	"gonum.org/v1/gonum/mat"
)

// DistanceMatrix is a square table of pairwise dissimilarities (e.g., UniFrac)
// indexed by sample ID. Row i holds the distances from RowIDs[i] to each of
// ColumnIDs.
type DistanceMatrix struct {
	RowIDs    []string
	ColumnIDs []string
	Data      *mat.Dense
}

// LoadDistanceMatrix reads a distance matrix from local disk or Google
// Storage.
func LoadDistanceMatrix(path string, client *storage.Client) (*DistanceMatrix, error) {
	data, err := phylolda.ReadAllMaybeDecompress(path, client)
	if err != nil {
		return nil, pfx.Err(fmt.Errorf("%s: %w", path, err))
	}

	dm, err := ParseDistanceMatrix(bytes.NewReader(data), phylolda.DelimiterFor(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return dm, nil
}

// ParseDistanceMatrix reads a delimited square matrix whose first row lists
// the sample IDs and whose first column repeats them. The top-left cell may be
// empty or omitted.
func ParseDistanceMatrix(r io.Reader, delim rune) (*DistanceMatrix, error) {
	cr := csv.NewReader(r)
	cr.Comma = delim
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, pfx.Err(err)
	}

	// Drop blank lines
	kept := records[:0]
	for _, rec := range records {
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}
		kept = append(kept, rec)
	}
	records = kept

	if len(records) < 2 {
		return nil, fmt.Errorf("Distance matrix needs a header and at least one row")
	}

	header := trimAll(records[0])
	nVals := len(records[1]) - 1

	var colIDs []string
	switch len(header) {
	case nVals + 1:
		colIDs = header[1:]
	case nVals:
		colIDs = header
	default:
		return nil, fmt.Errorf("Distance matrix header has %d entries but the first row has %d values", len(header), nVals)
	}

	rows := records[1:]
	if len(rows) != len(colIDs) {
		return nil, fmt.Errorf("Distance matrix is not square: %d rows and %d columns", len(rows), len(colIDs))
	}

	known := make(map[string]struct{}, len(colIDs))
	for _, id := range colIDs {
		known[id] = struct{}{}
	}

	out := &DistanceMatrix{
		ColumnIDs: colIDs,
		Data:      mat.NewDense(len(rows), len(colIDs), nil),
	}

	seen := make(map[string]struct{}, len(rows))
	for i, rec := range rows {
		id := strings.TrimSpace(rec[0])
		if len(rec)-1 != len(colIDs) {
			return nil, fmt.Errorf("Sample %s has %d distances, expected %d", id, len(rec)-1, len(colIDs))
		}
		if _, exists := known[id]; !exists {
			return nil, fmt.Errorf("Row sample %s is not among the column samples", id)
		}
		if _, exists := seen[id]; exists {
			return nil, fmt.Errorf("Sample %s appears in more than one row", id)
		}
		seen[id] = struct{}{}

		vals, err := parseFloats(rec[1:])
		if err != nil {
			return nil, fmt.Errorf("Sample %s: %w", id, err)
		}

		out.RowIDs = append(out.RowIDs, id)
		out.Data.SetRow(i, vals)
	}

	return out, nil
}
