// Package table assembles the numeric sample-by-column matrix that feeds the
// discriminant analysis, from either a feature abundance table or a
// precomputed distance matrix.
package table

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/carbocation/pfx"
	"github.com/carbocation/phylolda"
	"github.com/tidwall/gjson"
	"gonum.org/v1/gonum/mat"
)

// FeatureTable holds raw feature counts in their natural orientation: one row
// per feature (e.g., OTU), one column per sample.
type FeatureTable struct {
	Features  []string
	SampleIDs []string
	Counts    *mat.Dense
}

// LoadFeatureTable reads a feature table from local disk or Google Storage.
// BIOM 1.0 (JSON) and classic tab-delimited tables are both accepted, and
// either may be compressed.
func LoadFeatureTable(path string, client *storage.Client) (*FeatureTable, error) {
	data, err := phylolda.ReadAllMaybeDecompress(path, client)
	if err != nil {
		return nil, pfx.Err(fmt.Errorf("%s: %w", path, err))
	}

	ft, err := ParseFeatureTable(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return ft, nil
}

// ErrHDF5BIOM is returned for BIOM 2.x tables, which are stored as HDF5.
var ErrHDF5BIOM = errors.New("Feature table is an HDF5 (BIOM 2.x) file, which cannot be read directly. Please convert it with `biom convert -i table.biom -o table.json --to-json` or `--to-tsv`")

// hdf5Signature opens the HDF5 superblock, which sits at offset 0 or at a
// power-of-two multiple of 512 bytes.
var hdf5Signature = []byte("\x89HDF\r\n\x1a\n")

func isHDF5(data []byte) bool {
	for offset := 0; offset+len(hdf5Signature) <= len(data); {
		if bytes.HasPrefix(data[offset:], hdf5Signature) {
			return true
		}
		if offset == 0 {
			offset = 512
		} else {
			offset *= 2
		}
	}

	return false
}

// ParseFeatureTable dispatches on content: a JSON object is treated as BIOM
// 1.0, anything else as a delimited table. HDF5 BIOM tables are rejected with
// ErrHDF5BIOM.
func ParseFeatureTable(data []byte) (*FeatureTable, error) {
	if isHDF5(data) {
		return nil, ErrHDF5BIOM
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("Feature table is empty")
	}

	if trimmed[0] == '{' {
		return ParseBIOM(data)
	}

	return ParseDelimitedFeatureTable(bytes.NewReader(data), phylolda.DelimiterFor(data))
}

// ParseDelimitedFeatureTable reads a classic OTU table:
//
//	# Constructed from biom file
//	#OTU ID	S1	S2	taxonomy
//	OTU1	10	0	k__Bacteria
//
// Leading single-cell comment lines are skipped, the next line is the header,
// and a trailing taxonomy column is dropped.
func ParseDelimitedFeatureTable(r io.Reader, delim rune) (*FeatureTable, error) {
	cr := csv.NewReader(r)
	cr.Comma = delim
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	var header []string
	var features []string
	var values [][]float64
	dropLast := false

	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, pfx.Err(err)
		}

		if header == nil {
			if len(rec) == 1 && strings.HasPrefix(strings.TrimSpace(rec[0]), "#") {
				continue
			}
			if len(rec) < 2 {
				return nil, fmt.Errorf("Feature table header has %d columns; expected a feature ID column and at least one sample", len(rec))
			}
			if last := strings.ToLower(strings.TrimSpace(rec[len(rec)-1])); last == "taxonomy" {
				dropLast = true
				rec = rec[:len(rec)-1]
			}
			header = trimAll(rec)
			continue
		}

		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}

		if dropLast && len(rec) > 0 {
			rec = rec[:len(rec)-1]
		}

		if len(rec) != len(header) {
			return nil, fmt.Errorf("Feature %s has %d columns but the header has %d", rec[0], len(rec), len(header))
		}

		row, err := parseFloats(rec[1:])
		if err != nil {
			return nil, fmt.Errorf("Feature %s: %w", rec[0], err)
		}

		features = append(features, strings.TrimSpace(rec[0]))
		values = append(values, row)
	}

	if header == nil {
		return nil, fmt.Errorf("Feature table has no header")
	}

	if len(features) == 0 {
		return nil, fmt.Errorf("Feature table has no features")
	}

	counts := mat.NewDense(len(features), len(header)-1, nil)
	for i, row := range values {
		counts.SetRow(i, row)
	}

	return &FeatureTable{
		Features:  features,
		SampleIDs: header[1:],
		Counts:    counts,
	}, nil
}

// ParseBIOM reads a BIOM 1.0 JSON table with either a sparse or a dense
// matrix. Rows are features and columns are samples.
func ParseBIOM(data []byte) (*FeatureTable, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("BIOM table is not valid JSON")
	}

	doc := gjson.ParseBytes(data)

	shape := doc.Get("shape").Array()
	if len(shape) != 2 {
		return nil, fmt.Errorf("BIOM shape should have 2 entries, found %d", len(shape))
	}
	nRows, nCols := int(shape[0].Int()), int(shape[1].Int())
	if nRows < 1 || nCols < 1 {
		return nil, fmt.Errorf("BIOM table is empty (shape %dx%d)", nRows, nCols)
	}

	features := resultStrings(doc.Get("rows.#.id").Array())
	samples := resultStrings(doc.Get("columns.#.id").Array())
	if len(features) != nRows || len(samples) != nCols {
		return nil, fmt.Errorf("BIOM shape %dx%d disagrees with %d row IDs and %d column IDs", nRows, nCols, len(features), len(samples))
	}

	counts := mat.NewDense(nRows, nCols, nil)

	switch matrixType := doc.Get("matrix_type").String(); matrixType {
	case "sparse":
		for _, entry := range doc.Get("data").Array() {
			cell := entry.Array()
			if len(cell) != 3 {
				return nil, fmt.Errorf("Sparse BIOM entry %s should have 3 values", entry.Raw)
			}
			r, c := int(cell[0].Int()), int(cell[1].Int())
			if r < 0 || r >= nRows || c < 0 || c >= nCols {
				return nil, fmt.Errorf("Sparse BIOM entry %s is outside of shape %dx%d", entry.Raw, nRows, nCols)
			}
			counts.Set(r, c, cell[2].Float())
		}
	case "dense":
		rows := doc.Get("data").Array()
		if len(rows) != nRows {
			return nil, fmt.Errorf("Dense BIOM data has %d rows, expected %d", len(rows), nRows)
		}
		for r, row := range rows {
			vals := row.Array()
			if len(vals) != nCols {
				return nil, fmt.Errorf("Dense BIOM row %d has %d values, expected %d", r, len(vals), nCols)
			}
			for c, v := range vals {
				counts.Set(r, c, v.Float())
			}
		}
	default:
		return nil, fmt.Errorf("Unrecognized BIOM matrix_type %q", matrixType)
	}

	return &FeatureTable{
		Features:  features,
		SampleIDs: samples,
		Counts:    counts,
	}, nil
}

func resultStrings(results []gjson.Result) []string {
	out := make([]string, 0, len(results))
	for _, r := range results {
		out = append(out, r.String())
	}

	return out
}

func parseFloats(fields []string) ([]float64, error) {
	out := make([]float64, 0, len(fields))
	for _, field := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}

	return out, nil
}

func trimAll(rec []string) []string {
	out := make([]string, len(rec))
	for i, v := range rec {
		out[i] = strings.TrimSpace(v)
	}

	return out
}
