// Package render draws discriminant analysis results as 2D or 3D scatter
// plots colored by group.
package render

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"io"
	"log"
	"math"
	"os"

	"github.com/carbocation/pfx"
	"github.com/carbocation/phylolda/lda"
	"github.com/carbocation/phylolda/mapping"
)

const (
	// SaveDPI is the resolution of saved figures
	SaveDPI = 300

	// DisplayDPI is the resolution of figures opened in a viewer
	DisplayDPI = 100

	// pointAlpha matches the slight transparency of the markers
	pointAlpha = 0.85

	// annotationOffset is how far below a marker its sample ID is drawn, in
	// points
	annotationOffset = 15
)

// ErrUnsupportedFormat is returned for format/dimension combinations that a
// renderer cannot produce.
var ErrUnsupportedFormat = errors.New("unsupported output format")

// Plot bundles everything that ends up in the figure.
type Plot struct {
	Result lda.Result

	// SampleIDs is parallel to the rows of Result.Coords. Only needed when
	// annotating.
	SampleIDs []string

	Colors mapping.GroupColorMap
}

// point is one sample in figure space.
type point struct {
	X, Y, Z float64
	Group   string
	Label   string
	Color   color.RGBA
}

// Render draws the figure and either saves it to cfg.OutPath or, if that is
// empty, opens it in the system image viewer. Nothing is written to OutPath
// unless rendering succeeds.
func Render(p Plot, cfg Config) error {
	format := FormatPNG
	dpi := float64(DisplayDPI)
	if cfg.OutPath != "" {
		var err error
		format, err = FormatFromPath(cfg.OutPath)
		if err != nil {
			return err
		}
		dpi = SaveDPI
	}

	var buf bytes.Buffer
	if err := Draw(&buf, format, p, cfg, dpi); err != nil {
		return err
	}

	if cfg.OutPath == "" {
		return Display(buf.Bytes(), format)
	}

	if err := os.WriteFile(cfg.OutPath, buf.Bytes(), 0644); err != nil {
		return pfx.Err(err)
	}

	return nil
}

// Draw renders the figure in the requested format to w.
func Draw(w io.Writer, format Format, p Plot, cfg Config, dpi float64) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := p.Colors.Covers(p.Result.Labels); err != nil {
		return err
	}

	if rows, _ := p.Result.Coords.Dims(); rows != len(p.Result.Labels) {
		return fmt.Errorf("%d coordinates but %d labels", rows, len(p.Result.Labels))
	}

	if cfg.Annotate && len(p.SampleIDs) != len(p.Result.Labels) {
		return fmt.Errorf("%d sample IDs were provided to annotate %d points", len(p.SampleIDs), len(p.Result.Labels))
	}

	if cfg.Dimensions == 3 {
		if err := p.Result.RequireAxes(3); err != nil {
			return err
		}

		if cfg.Annotate {
			log.Println("Point annotations are available only for 2D figures.")
		}

		return draw3D(w, format, p, cfg, dpi)
	}

	return draw2D(w, format, p, cfg, dpi)
}

// points places every sample in figure space. With a single discriminant
// axis, the group's ordinal (plus one) stands in for the second coordinate so
// groups are separated vertically.
func points(p Plot, cfg Config) ([]point, error) {
	nAxes := p.Result.Axes()

	ordinal := make(map[string]int, len(p.Result.Groups))
	for i, g := range p.Result.Groups {
		ordinal[g] = i
	}

	out := make([]point, 0, len(p.Result.Labels))
	for i, group := range p.Result.Labels {
		c, err := p.Colors.Color(group)
		if err != nil {
			return nil, err
		}

		pt := point{
			X:     p.Result.Coords.At(i, 0),
			Y:     float64(ordinal[group] + 1),
			Group: group,
			Color: c,
		}
		if nAxes >= 2 {
			pt.Y = p.Result.Coords.At(i, 1)
		}
		if nAxes >= 3 {
			pt.Z = p.Result.Coords.At(i, 2)
		}
		if cfg.Annotate && i < len(p.SampleIDs) {
			pt.Label = p.SampleIDs[i]
		}

		out = append(out, pt)
	}

	return out, nil
}

// singleAxisRange is the fixed y range for the single-axis view.
func singleAxisRange(nGroups int) (float64, float64) {
	return 0.5, math.Max(2.5, float64(nGroups)+0.5)
}

// paddedRange returns [min, max] of the values widened by 5% on each side.
func paddedRange(values []float64) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}

	if math.IsInf(lo, 0) || math.IsInf(hi, 0) {
		return -1, 1
	}

	span := hi - lo
	if span == 0 {
		span = math.Max(math.Abs(lo), 1)
	}

	return lo - 0.05*span, hi + 0.05*span
}

// corner identifies where the legend goes.
type corner byte

const (
	upperRight corner = iota
	upperLeft
	lowerLeft
	lowerRight
)

// bestCorner picks the plot corner holding the fewest points, preferring the
// upper right on ties.
func bestCorner(pts []point, xMin, xMax, yMin, yMax float64) corner {
	xMid, yMid := (xMin+xMax)/2, (yMin+yMax)/2

	counts := make([]int, 4)
	for _, p := range pts {
		right, upper := p.X >= xMid, p.Y >= yMid
		switch {
		case upper && right:
			counts[upperRight]++
		case upper:
			counts[upperLeft]++
		case right:
			counts[lowerRight]++
		default:
			counts[lowerLeft]++
		}
	}

	best := upperRight
	for _, c := range []corner{upperLeft, lowerLeft, lowerRight} {
		if counts[c] < counts[best] {
			best = c
		}
	}

	return best
}

// markerRadius converts a marker area in square points into a radius in
// pixels.
func markerRadius(area, dpi float64) float64 {
	return pointsToPixels(math.Sqrt(area/math.Pi), dpi)
}

func withAlpha(c color.RGBA, alpha float64) color.NRGBA {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: uint8(math.Round(255 * alpha))}
}
