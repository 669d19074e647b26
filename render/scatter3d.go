package render

import (
	"fmt"
	"image/color"
	"image/jpeg"
	"io"
	"math"
	"sort"

	"github.com/carbocation/pfx"
	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
)

// projection is an orthographic camera looking at the unit cube from the
// given azimuth and elevation (degrees).
type projection struct {
	eye, right, up [3]float64
}

func newProjection(azimuth, elevation float64) projection {
	az := azimuth * math.Pi / 180
	el := elevation * math.Pi / 180

	return projection{
		eye:   [3]float64{math.Cos(el) * math.Cos(az), math.Cos(el) * math.Sin(az), math.Sin(el)},
		right: [3]float64{-math.Sin(az), math.Cos(az), 0},
		up:    [3]float64{-math.Sin(el) * math.Cos(az), -math.Sin(el) * math.Sin(az), math.Cos(el)},
	}
}

// project returns screen offsets (x right, y up) and depth (larger is closer
// to the viewer).
func (p projection) project(v [3]float64) (x, y, depth float64) {
	return dot(v, p.right), dot(v, p.up), dot(v, p.eye)
}

func dot(a, b [3]float64) float64 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}

// axisScale maps one discriminant axis onto [-1, 1].
type axisScale struct {
	Min, Max float64
}

func newAxisScale(values []float64) axisScale {
	lo, hi := paddedRange(values)
	return axisScale{Min: lo, Max: hi}
}

func (a axisScale) normalize(v float64) float64 {
	return 2*(v-a.Min)/(a.Max-a.Min) - 1
}

func draw3D(w io.Writer, format Format, p Plot, cfg Config, dpi float64) error {
	if format == FormatSVG {
		return fmt.Errorf("3D figures can be saved as png or jpeg, not %s: %w", format, ErrUnsupportedFormat)
	}

	f, err := defaultFont()
	if err != nil {
		return pfx.Err(err)
	}

	pts, err := points(p, cfg)
	if err != nil {
		return err
	}

	width, height := int(cfg.FigWidth*dpi), int(cfg.FigHeight*dpi)
	dc := gg.NewContext(width, height)
	dc.SetColor(color.White)
	dc.Clear()
	dc.SetFontFace(truetype.NewFace(f, &truetype.Options{Size: cfg.FontSize, DPI: dpi}))

	var scales [3]axisScale
	for axis := range scales {
		vals := make([]float64, 0, len(pts))
		for _, pt := range pts {
			vals = append(vals, [3]float64{pt.X, pt.Y, pt.Z}[axis])
		}
		scales[axis] = newAxisScale(vals)
	}

	proj := newProjection(cfg.Azimuth, cfg.Elevation)

	top := float64(titleSpace(cfg, dpi))
	cx, cy := float64(width)/2, top+(float64(height)-top)/2
	scale := 0.3 * math.Min(float64(width), float64(height)-top)
	toScreen := func(v [3]float64) (float64, float64, float64) {
		x, y, depth := proj.project(v)
		return cx + scale*x, cy - scale*y, depth
	}

	// Cube wireframe
	dc.SetRGB(0.6, 0.6, 0.6)
	dc.SetLineWidth(pointsToPixels(0.8, dpi))
	for _, edge := range cubeEdges() {
		x1, y1, _ := toScreen(edge[0])
		x2, y2, _ := toScreen(edge[1])
		dc.DrawLine(x1, y1, x2, y2)
		dc.Stroke()
	}

	// Axis labels sit on the edges nearest the viewer
	sx, sy := signOf(proj.eye[0]), signOf(proj.eye[1])
	labelEdges := [3][2][3]float64{
		{{-1, sy, -1}, {1, sy, -1}},
		{{sx, -1, -1}, {sx, 1, -1}},
		{{sx, -sy, -1}, {sx, -sy, 1}},
	}
	dc.SetColor(color.Black)
	pad := pointsToPixels(cfg.LabelPadding, dpi)
	for axis, edge := range labelEdges {
		drawEdgeLabels(dc, toScreen, edge, scales[axis], AxisLabel(axis, p.Result.Variance), cx, cy, pad)
	}

	// Painter's algorithm: far points first
	screen := make([]screenPoint, 0, len(pts))
	for _, pt := range pts {
		x, y, depth := toScreen([3]float64{scales[0].normalize(pt.X), scales[1].normalize(pt.Y), scales[2].normalize(pt.Z)})
		screen = append(screen, screenPoint{x: x, y: y, depth: depth, c: pt.Color})
	}
	sort.SliceStable(screen, func(i, j int) bool { return screen[i].depth < screen[j].depth })

	radius := markerRadius(cfg.PointSize, dpi)
	dc.SetLineWidth(pointsToPixels(0.5, dpi))
	for _, s := range screen {
		dc.DrawCircle(s.x, s.y, radius)
		dc.SetColor(withAlpha(s.c, pointAlpha))
		dc.FillPreserve()
		dc.SetColor(color.Black)
		dc.Stroke()
	}

	where := legendCorner3D(screen, float64(width), float64(height), top)
	if err := drawLegend3D(dc, p, cfg, dpi, where); err != nil {
		return err
	}

	if cfg.Title != "" {
		dc.SetFontFace(truetype.NewFace(f, &truetype.Options{Size: cfg.FontSize * 1.25, DPI: dpi}))
		dc.SetColor(color.Black)
		dc.DrawStringAnchored(cfg.Title, float64(width)/2, top/2, 0.5, 0.5)
	}

	if format == FormatJPEG {
		return pfx.Err(jpeg.Encode(w, dc.Image(), &jpeg.Options{Quality: 95}))
	}

	return pfx.Err(dc.EncodePNG(w))
}

// drawEdgeLabels writes the axis name beyond the middle of the edge, and the
// axis extremes at its ends, pushed away from the cube's center.
func drawEdgeLabels(dc *gg.Context, toScreen func([3]float64) (float64, float64, float64), edge [2][3]float64, scale axisScale, name string, cx, cy, pad float64) {
	x1, y1, _ := toScreen(edge[0])
	x2, y2, _ := toScreen(edge[1])

	outward := func(x, y, by float64) (float64, float64) {
		dx, dy := x-cx, y-cy
		n := math.Hypot(dx, dy)
		if n == 0 {
			return x, y + by
		}
		return x + by*dx/n, y + by*dy/n
	}

	_, textH := dc.MeasureString(name)

	tx, ty := outward(x1, y1, textH)
	dc.DrawStringAnchored(fmt.Sprintf("%.2f", scale.Min), tx, ty, 0.5, 0.5)
	tx, ty = outward(x2, y2, textH)
	dc.DrawStringAnchored(fmt.Sprintf("%.2f", scale.Max), tx, ty, 0.5, 0.5)

	mx, my := outward((x1+x2)/2, (y1+y2)/2, pad+2*textH)
	dc.DrawStringAnchored(name, mx, my, 0.5, 0.5)
}

// screenPoint is a projected marker in pixel coordinates (y down).
type screenPoint struct {
	x, y, depth float64
	c           color.RGBA
}

// legendCorner3D picks the least crowded corner of the area below the title,
// judged by where the markers land on screen.
func legendCorner3D(screen []screenPoint, width, height, top float64) corner {
	pts := make([]point, 0, len(screen))
	for _, s := range screen {
		pts = append(pts, point{X: s.x, Y: height - s.y})
	}

	return bestCorner(pts, 0, width, 0, height-top)
}

func drawLegend3D(dc *gg.Context, p Plot, cfg Config, dpi float64, where corner) error {
	pad := pointsToPixels(cfg.FontSize/2, dpi)
	markerR := math.Min(markerRadius(cfg.PointSize, dpi), pad)

	textW, textH := 0.0, dc.FontHeight()
	for _, g := range p.Result.Groups {
		w, _ := dc.MeasureString(g)
		textW = math.Max(textW, w)
	}
	rowH := math.Max(textH, 2*markerR) + pad/2

	width := pad + 2*markerR + pad + textW + pad
	height := pad + rowH*float64(len(p.Result.Groups)) + pad/2
	left, top := legendOrigin3D(where, float64(dc.Width()), float64(dc.Height()), width, height, pad, float64(titleSpace(cfg, dpi)))

	dc.DrawRectangle(left, top, width, height)
	dc.SetColor(color.White)
	dc.FillPreserve()
	dc.SetColor(color.Black)
	dc.SetLineWidth(pointsToPixels(0.8, dpi))
	dc.Stroke()

	for i, g := range p.Result.Groups {
		c, err := p.Colors.Color(g)
		if err != nil {
			return err
		}
		rowY := top + pad + float64(i)*rowH + rowH/2

		dc.DrawCircle(left+pad+markerR, rowY, markerR)
		dc.SetColor(c)
		dc.FillPreserve()
		dc.SetColor(color.Black)
		dc.SetLineWidth(pointsToPixels(0.5, dpi))
		dc.Stroke()

		dc.DrawStringAnchored(g, left+pad+2*markerR+pad, rowY, 0, 0.35)
	}

	return nil
}

// legendOrigin3D returns the top-left of a width x height legend placed in
// the given corner, pad pixels from the edges and below the title.
func legendOrigin3D(where corner, canvasW, canvasH, width, height, pad, titleTop float64) (float64, float64) {
	left, top := canvasW-pad-width, titleTop+pad
	switch where {
	case upperLeft:
		left = pad
	case lowerLeft:
		left, top = pad, canvasH-pad-height
	case lowerRight:
		top = canvasH - pad - height
	}

	return left, top
}

// cubeEdges lists the 12 edges of [-1, 1]^3.
func cubeEdges() [][2][3]float64 {
	out := make([][2][3]float64, 0, 12)
	for _, a := range []float64{-1, 1} {
		for _, b := range []float64{-1, 1} {
			out = append(out,
				[2][3]float64{{-1, a, b}, {1, a, b}},
				[2][3]float64{{a, -1, b}, {a, 1, b}},
				[2][3]float64{{a, b, -1}, {a, b, 1}},
			)
		}
	}

	return out
}

func signOf(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}
