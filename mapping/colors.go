package mapping

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"image/color"
	"io"
	"sort"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/carbocation/pfx"
	"github.com/carbocation/phylolda"
	"github.com/gocarina/gocsv"
	"github.com/icza/gox/imagex/colorx"
)

// Set3 is the 12-color ColorBrewer qualitative palette. Groups receive these
// colors in sorted order, wrapping around when there are more than 12.
var Set3 = []string{
	"#8DD3C7", "#FFFFB3", "#BEBADA", "#FB8072",
	"#80B1D3", "#FDB462", "#B3DE69", "#FCCDE5",
	"#D9D9D9", "#BC80BD", "#CCEBC5", "#FFED6F",
}

// GroupColorMap is the single resolved group => color assignment used by the
// renderers.
type GroupColorMap struct {
	groups []string
	colors map[string]color.RGBA
}

// NewGroupColorMap builds a map from group label to hex color code.
func NewGroupColorMap(hexByGroup map[string]string) (GroupColorMap, error) {
	out := GroupColorMap{colors: make(map[string]color.RGBA, len(hexByGroup))}

	for group, hex := range hexByGroup {
		c, err := ParseColor(hex)
		if err != nil {
			return GroupColorMap{}, pfx.Err(fmt.Errorf("Group %s: %w", group, err))
		}
		out.colors[group] = c
		out.groups = append(out.groups, group)
	}
	sort.Strings(out.groups)

	return out, nil
}

// PaletteColors assigns colors from the palette, in sorted group order.
func PaletteColors(groups []string, palette []string) (GroupColorMap, error) {
	if len(palette) == 0 {
		return GroupColorMap{}, fmt.Errorf("Cannot assign colors from an empty palette")
	}

	sorted := append([]string(nil), groups...)
	sort.Strings(sorted)

	hexByGroup := make(map[string]string, len(sorted))
	i := 0
	for _, g := range sorted {
		if _, exists := hexByGroup[g]; exists {
			continue
		}
		hexByGroup[g] = palette[i%len(palette)]
		i++
	}

	return NewGroupColorMap(hexByGroup)
}

// ColumnColors reads each group's color from a mapping file column. Every
// sample needs a color, and all samples in a group must agree on it.
func ColumnColors(m *Mapping, groupIdx, colorIdx int) (GroupColorMap, error) {
	hexByGroup := make(map[string]string)
	for _, sid := range m.Order {
		group, err := m.Value(sid, groupIdx)
		if err != nil {
			return GroupColorMap{}, err
		}
		hex, err := m.Value(sid, colorIdx)
		if err != nil {
			return GroupColorMap{}, err
		}
		if hex == "" {
			return GroupColorMap{}, fmt.Errorf("Sample %s has no color entry", sid)
		}

		if prior, exists := hexByGroup[group]; exists && !strings.EqualFold(prior, hex) {
			return GroupColorMap{}, fmt.Errorf("Group %s is assigned two colors (%s and %s)", group, prior, hex)
		}
		hexByGroup[group] = hex
	}

	return NewGroupColorMap(hexByGroup)
}

type groupColor struct {
	Group string `csv:"group"`
	Color string `csv:"color"`
}

// ParseColorFile reads a tab-delimited file with "group" and "color" columns.
func ParseColorFile(path string, client *storage.Client) (GroupColorMap, error) {
	data, err := phylolda.ReadAllMaybeDecompress(path, client)
	if err != nil {
		return GroupColorMap{}, pfx.Err(fmt.Errorf("%s: %w", path, err))
	}

	return ParseColors(bytes.NewReader(data))
}

// ParseColors reads group/color records from r.
func ParseColors(r io.Reader) (GroupColorMap, error) {
	records := []*groupColor{}

	// Tell gocsv to use tab as the delimiter
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	if err := gocsv.UnmarshalCSV(cr, &records); err != nil {
		return GroupColorMap{}, pfx.Err(err)
	}

	hexByGroup := make(map[string]string, len(records))
	for _, rec := range records {
		if prior, exists := hexByGroup[rec.Group]; exists && !strings.EqualFold(prior, rec.Color) {
			return GroupColorMap{}, fmt.Errorf("Group %s is assigned two colors (%s and %s)", rec.Group, prior, rec.Color)
		}
		hexByGroup[rec.Group] = rec.Color
	}

	return NewGroupColorMap(hexByGroup)
}

// ParseColor accepts #RGB or #RRGGBB, with or without the leading #.
func ParseColor(hex string) (color.RGBA, error) {
	hex = strings.TrimSpace(hex)
	if !strings.HasPrefix(hex, "#") {
		hex = "#" + hex
	}

	return colorx.ParseHexColor(hex)
}

// Color returns the color for a group. Every label used downstream must be a
// key of the map.
func (g GroupColorMap) Color(group string) (color.RGBA, error) {
	c, exists := g.colors[group]
	if !exists {
		return color.RGBA{}, fmt.Errorf("Group %q has no assigned color", group)
	}

	return c, nil
}

// Groups returns the groups in sorted order.
func (g GroupColorMap) Groups() []string {
	return append([]string(nil), g.groups...)
}

// Len is the number of groups with a color.
func (g GroupColorMap) Len() int {
	return len(g.groups)
}

// Covers returns an error naming the first label with no color.
func (g GroupColorMap) Covers(labels []string) error {
	for _, l := range labels {
		if _, err := g.Color(l); err != nil {
			return err
		}
	}

	return nil
}
