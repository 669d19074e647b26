// Package mapping parses QIIME-style metadata mapping files and resolves the
// color assigned to each sample group.
package mapping

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/carbocation/pfx"
	"github.com/carbocation/phylolda"
)

// Mapping holds the header and per-sample rows of a mapping file. Each row in
// Samples is the full record, so Samples[id][ColumnIndex(name)] addresses the
// same column as Header[ColumnIndex(name)].
type Mapping struct {
	Header  []string
	Samples map[string][]string

	// Order preserves the order in which samples appear in the file
	Order []string
}

// ParseMapFile reads a mapping file from local disk or Google Storage. The
// file may be compressed.
func ParseMapFile(path string, client *storage.Client) (*Mapping, error) {
	data, err := phylolda.ReadAllMaybeDecompress(path, client)
	if err != nil {
		return nil, pfx.Err(fmt.Errorf("%s: %w", path, err))
	}

	return ParseMap(bytes.NewReader(data))
}

// ParseMap reads a tab-delimited mapping file. The first line is the header
// (conventionally starting with #SampleID). Other lines beginning with # and
// blank lines are ignored.
func ParseMap(r io.Reader) (*Mapping, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	out := &Mapping{Samples: make(map[string][]string)}

	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, pfx.Err(err)
		}

		for i := range rec {
			rec[i] = strings.TrimSpace(rec[i])
		}

		if out.Header == nil {
			out.Header = rec
			continue
		}

		if len(rec) == 0 || (len(rec) == 1 && rec[0] == "") || strings.HasPrefix(rec[0], "#") {
			continue
		}

		if _, exists := out.Samples[rec[0]]; exists {
			return nil, pfx.Err(fmt.Errorf("Sample %s appears more than once in the mapping file", rec[0]))
		}

		out.Samples[rec[0]] = rec
		out.Order = append(out.Order, rec[0])
	}

	if out.Header == nil {
		return nil, pfx.Err(fmt.Errorf("Mapping file is empty"))
	}

	return out, nil
}

// ColumnIndex returns the 0-based position of the named column.
func (m *Mapping) ColumnIndex(name string) (int, error) {
	for i, col := range m.Header {
		if col == name {
			return i, nil
		}
	}

	return -1, fmt.Errorf("Column %q was not found in the mapping file header %v", name, m.Header)
}

// Value returns the value of column idx for the given sample.
func (m *Mapping) Value(sampleID string, idx int) (string, error) {
	row, exists := m.Samples[sampleID]
	if !exists {
		return "", fmt.Errorf("Sample %s has no entry in the mapping file", sampleID)
	}

	if idx < 0 || idx >= len(row) {
		return "", fmt.Errorf("Sample %s has %d columns in the mapping file; column %d was requested", sampleID, len(row), idx)
	}

	return row[idx], nil
}

// Groups returns the sorted set of distinct values in column idx across all
// samples.
func (m *Mapping) Groups(idx int) ([]string, error) {
	seen := make(map[string]struct{})
	for _, sid := range m.Order {
		v, err := m.Value(sid, idx)
		if err != nil {
			return nil, err
		}
		seen[v] = struct{}{}
	}

	out := make([]string, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Strings(out)

	return out, nil
}
