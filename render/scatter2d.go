package render

import (
	"bytes"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"math"

	"github.com/carbocation/pfx"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

var (
	ggplotFigureColor = drawing.ColorFromHex("CCCCCC")
	ggplotPanelColor  = drawing.ColorFromHex("E5E5E5")
)

func draw2D(w io.Writer, format Format, p Plot, cfg Config, dpi float64) error {
	f, err := defaultFont()
	if err != nil {
		return pfx.Err(err)
	}

	pts, err := points(p, cfg)
	if err != nil {
		return err
	}

	nAxes := p.Result.Axes()
	xs := make([]float64, 0, len(pts))
	ys := make([]float64, 0, len(pts))
	for _, pt := range pts {
		xs = append(xs, pt.X)
		ys = append(ys, pt.Y)
	}

	xMin, xMax := paddedRange(xs)
	yMin, yMax := paddedRange(ys)
	if nAxes == 1 {
		yMin, yMax = singleAxisRange(len(p.Result.Groups))
	}

	radius := markerRadius(cfg.PointSize, dpi)

	// One series per group, in sorted group order
	series := make([]chart.Series, 0, len(p.Result.Groups))
	entries := make([]legendEntry, 0, len(p.Result.Groups))
	for _, group := range p.Result.Groups {
		c, err := p.Colors.Color(group)
		if err != nil {
			return err
		}

		s := chart.ContinuousSeries{
			Name: group,
			Style: chart.Style{
				StrokeWidth: chart.Disabled,
				DotWidth:    radius,
				DotColor:    toDrawing(withAlpha(c, pointAlpha)),
			},
		}
		for _, pt := range pts {
			if pt.Group != group {
				continue
			}
			s.XValues = append(s.XValues, pt.X)
			s.YValues = append(s.YValues, pt.Y)
		}

		series = append(series, s)
		entries = append(entries, legendEntry{Label: group, Color: toDrawing(c)})
	}

	bounds := dataBounds{XMin: xMin, XMax: xMax, YMin: yMin, YMax: yMax}

	elements := []chart.Renderable{}
	if cfg.Annotate {
		elements = append(elements, annotationRenderable(pts, bounds, cfg.FontSize, dpi))
	}
	elements = append(elements, legendRenderable(entries, bestCorner(pts, xMin, xMax, yMin, yMax), cfg.FontSize, radius, dpi))

	// The axis names are drawn by axisNamesRenderable in strips reserved
	// below and to the right of the tick labels.
	layout := newAxisNameLayout(cfg, dpi)
	xName, yName := AxisLabel(0, p.Result.Variance), AxisLabel(1, p.Result.Variance)
	if nAxes == 1 {
		yName = "Group"
	}
	elements = append(elements, axisNamesRenderable(xName, yName, layout, cfg.FontSize))

	axisStyle := chart.Style{FontSize: cfg.FontSize}

	graph := chart.Chart{
		Title:      cfg.Title,
		TitleStyle: chart.Style{FontSize: cfg.FontSize * 1.25},
		Width:      int(cfg.FigWidth * dpi),
		Height:     int(cfg.FigHeight * dpi),
		DPI:        dpi,
		Font:       f,
		Background: chart.Style{
			FillColor: drawing.ColorWhite,
			Padding: chart.Box{
				Top:    layout.Outer + titleSpace(cfg, dpi),
				Left:   layout.Outer,
				Right:  layout.Outer + layout.Strip,
				Bottom: layout.Outer + layout.Strip,
			},
		},
		Canvas: chart.Style{FillColor: drawing.ColorWhite},
		XAxis: chart.XAxis{
			Style:          axisStyle,
			Range:          &chart.ContinuousRange{Min: xMin, Max: xMax},
			GridMajorStyle: chart.Hidden(),
			GridMinorStyle: chart.Hidden(),
		},
		YAxis: chart.YAxis{
			Style:          axisStyle,
			Range:          &chart.ContinuousRange{Min: yMin, Max: yMax},
			GridMajorStyle: chart.Hidden(),
			GridMinorStyle: chart.Hidden(),
		},
		Series:   series,
		Elements: elements,
	}

	if nAxes == 1 {
		// The vertical position encodes the group, not a discriminant axis
		graph.YAxis.Ticks = groupTicks(p.Result.Groups, yMin, yMax)
	}

	if cfg.GGPlotStyle {
		grid := chart.Style{StrokeColor: drawing.ColorWhite, StrokeWidth: pointsToPixels(1, dpi)}
		graph.Background.FillColor = ggplotFigureColor
		graph.Canvas.FillColor = ggplotPanelColor
		graph.XAxis.GridMajorStyle = grid
		graph.YAxis.GridMajorStyle = grid
	}

	switch format {
	case FormatSVG:
		return pfx.Err(graph.Render(chart.SVG, w))
	case FormatJPEG:
		var buf bytes.Buffer
		if err := graph.Render(chart.PNG, &buf); err != nil {
			return pfx.Err(err)
		}
		img, err := png.Decode(&buf)
		if err != nil {
			return pfx.Err(err)
		}
		return pfx.Err(jpeg.Encode(w, img, &jpeg.Options{Quality: 95}))
	default:
		return pfx.Err(graph.Render(chart.PNG, w))
	}
}

// titleSpace reserves room above the canvas for the title.
func titleSpace(cfg Config, dpi float64) int {
	if cfg.Title == "" {
		return 0
	}

	return int(pointsToPixels(cfg.FontSize*2.5, dpi))
}

// groupTicks labels each group's row in the single-axis view. The range
// endpoints get blank ticks so the axis spans the full range.
func groupTicks(groups []string, yMin, yMax float64) []chart.Tick {
	ticks := []chart.Tick{{Value: yMin}}
	for i, g := range groups {
		ticks = append(ticks, chart.Tick{Value: float64(i + 1), Label: g})
	}
	ticks = append(ticks, chart.Tick{Value: yMax})

	return ticks
}

// dataBounds maps data coordinates onto the chart canvas. The axis ranges are
// always set explicitly, so this mirrors go-chart's own translation.
type dataBounds struct {
	XMin, XMax, YMin, YMax float64
}

func (b dataBounds) toCanvas(canvas chart.Box, x, y float64) (int, int) {
	px := canvas.Left + int(math.Ceil((x-b.XMin)/(b.XMax-b.XMin)*float64(canvas.Width())))
	py := canvas.Bottom - int(math.Ceil((y-b.YMin)/(b.YMax-b.YMin)*float64(canvas.Height())))

	return px, py
}

// annotationRenderable writes each point's sample ID centered below it.
func annotationRenderable(pts []point, bounds dataBounds, fontSize, dpi float64) chart.Renderable {
	return func(r chart.Renderer, canvas chart.Box, defaults chart.Style) {
		r.SetFont(defaults.GetFont())
		r.SetFontSize(fontSize * 0.85)
		r.SetFontColor(drawing.ColorBlack)

		offset := int(pointsToPixels(annotationOffset, dpi))
		for _, pt := range pts {
			if pt.Label == "" {
				continue
			}
			px, py := bounds.toCanvas(canvas, pt.X, pt.Y)
			tb := r.MeasureText(pt.Label)
			r.Text(pt.Label, px-tb.Width()/2, py+offset+tb.Height()/2)
		}
	}
}

// axisNameLayout sizes the margins around the chart. Strip is the room for
// one axis name plus the label padding that separates it from the tick
// labels.
type axisNameLayout struct {
	Width, Height int
	Outer         int
	Pad           int
	NameHeight    int
	Strip         int
}

func newAxisNameLayout(cfg Config, dpi float64) axisNameLayout {
	l := axisNameLayout{
		Width:      int(cfg.FigWidth * dpi),
		Height:     int(cfg.FigHeight * dpi),
		Outer:      int(pointsToPixels(5, dpi)),
		Pad:        int(pointsToPixels(cfg.LabelPadding, dpi)),
		NameHeight: int(math.Ceil(pointsToPixels(cfg.FontSize*1.3, dpi))),
	}
	l.Strip = l.Pad + l.NameHeight

	return l
}

// axisNamesRenderable writes the x axis name centered under the plot and the
// y axis name, rotated, to the right of it. go-chart's tick labels extend to
// the edge of the padded chart box, so each name sits Pad pixels beyond them.
func axisNamesRenderable(xName, yName string, layout axisNameLayout, fontSize float64) chart.Renderable {
	return func(r chart.Renderer, canvas chart.Box, defaults chart.Style) {
		style := chart.Style{
			Font:      defaults.GetFont(),
			FontSize:  fontSize,
			FontColor: drawing.ColorBlack,
		}

		tb := chart.Draw.MeasureText(r, xName, style)
		tx := canvas.Left + canvas.Width()/2 - tb.Width()/2
		ty := layout.Height - layout.Outer - (layout.NameHeight-tb.Height())/2
		chart.Draw.Text(r, xName, tx, ty, style)

		style.TextRotationDegrees = 90
		tb = chart.Draw.MeasureText(r, yName, style)
		tx = layout.Width - layout.Outer - layout.NameHeight + (layout.NameHeight-tb.Width())/2
		ty = canvas.Top + canvas.Height()/2 - tb.Height()/2
		chart.Draw.Text(r, yName, tx, ty, style)
	}
}

type legendEntry struct {
	Label string
	Color drawing.Color
}

// legendRenderable draws a bordered legend with one marker per group inside
// the given corner of the canvas.
func legendRenderable(entries []legendEntry, where corner, fontSize, radius, dpi float64) chart.Renderable {
	return func(r chart.Renderer, canvas chart.Box, defaults chart.Style) {
		if len(entries) == 0 {
			return
		}

		r.SetFont(defaults.GetFont())
		r.SetFontSize(fontSize)
		r.SetFontColor(drawing.ColorBlack)

		pad := int(pointsToPixels(fontSize/2, dpi))
		markerR := math.Min(radius, pointsToPixels(fontSize/2, dpi))
		markerW := int(2 * markerR)

		textW, textH := 0, 0
		for _, e := range entries {
			tb := r.MeasureText(e.Label)
			if tb.Width() > textW {
				textW = tb.Width()
			}
			if tb.Height() > textH {
				textH = tb.Height()
			}
		}
		rowH := textH
		if markerW > rowH {
			rowH = markerW
		}
		rowH += pad / 2

		width := pad + markerW + pad + textW + pad
		height := pad + rowH*len(entries) + pad/2

		left, top := canvas.Right-pad-width, canvas.Top+pad
		switch where {
		case upperLeft:
			left = canvas.Left + pad
		case lowerLeft:
			left, top = canvas.Left+pad, canvas.Bottom-pad-height
		case lowerRight:
			top = canvas.Bottom - pad - height
		}

		r.SetFillColor(drawing.ColorWhite)
		r.SetStrokeColor(drawing.ColorBlack)
		r.SetStrokeWidth(pointsToPixels(0.8, dpi))
		r.MoveTo(left, top)
		r.LineTo(left+width, top)
		r.LineTo(left+width, top+height)
		r.LineTo(left, top+height)
		r.LineTo(left, top)
		r.Close()
		r.FillStroke()

		for i, e := range entries {
			cy := top + pad + i*rowH + rowH/2
			cx := left + pad + markerW/2

			r.SetFillColor(e.Color)
			r.SetStrokeColor(drawing.ColorBlack)
			r.SetStrokeWidth(pointsToPixels(0.5, dpi))
			r.Circle(markerR, cx, cy)
			r.FillStroke()

			r.SetFontColor(drawing.ColorBlack)
			r.Text(e.Label, left+pad+markerW+pad, cy+textH/2)
		}
	}
}

func toDrawing(c color.Color) drawing.Color {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return drawing.Color{R: n.R, G: n.G, B: n.B, A: n.A}
}
