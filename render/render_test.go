package render

import (
	"bytes"
	"errors"
	"image/jpeg"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/carbocation/phylolda/lda"
	"github.com/carbocation/phylolda/mapping"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

const testDPI = 72

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.FigWidth = 6
	cfg.FigHeight = 4
	cfg.FontSize = 10
	return cfg
}

// testPlot spreads nPerGroup points for each group over the given number of
// axes.
func testPlot(t *testing.T, groups []string, nPerGroup, nAxes int, variance lda.ExplainedVariance) Plot {
	t.Helper()

	var data []float64
	var labels, ids []string
	for g, group := range groups {
		for i := 0; i < nPerGroup; i++ {
			for k := 0; k < nAxes; k++ {
				data = append(data, float64(g*3+k)+0.1*float64(i))
			}
			labels = append(labels, group)
			ids = append(ids, group+"_"+string(rune('a'+i)))
		}
	}

	colors, err := mapping.PaletteColors(groups, mapping.Set3)
	require.NoError(t, err)

	return Plot{
		Result: lda.Result{
			Coords:   mat.NewDense(len(labels), nAxes, data),
			Labels:   labels,
			Groups:   groups,
			Variance: variance,
		},
		SampleIDs: ids,
		Colors:    colors,
	}
}

func TestAxisLabel(t *testing.T) {
	ev := lda.NewExplainedVariance([]float64{0.75, 0.25})

	for _, v := range []struct {
		Axis     int
		Variance lda.ExplainedVariance
		Expected string
	}{
		{0, ev, "LD1 (Percent Explained Variance: 75.000%)"},
		{1, ev, "LD2 (Percent Explained Variance: 25.000%)"},
		{2, ev, "LD3"},
		{0, lda.ExplainedVariance{}, "LD1"},
	} {
		if got := AxisLabel(v.Axis, v.Variance); got != v.Expected {
			t.Fatalf("Axis %d: expected %q, got %q", v.Axis, v.Expected, got)
		}
	}
}

func TestFormatFromPath(t *testing.T) {
	for _, v := range []struct {
		Path     string
		Expected Format
		Valid    bool
	}{
		{"out.png", FormatPNG, true},
		{"out.PNG", FormatPNG, true},
		{"out", FormatPNG, true},
		{"out.jpg", FormatJPEG, true},
		{"dir.v2/out.jpeg", FormatJPEG, true},
		{"out.svg", FormatSVG, true},
		{"out.pdf", FormatPNG, false},
	} {
		got, err := FormatFromPath(v.Path)
		if (err == nil) != v.Valid {
			t.Fatalf("%s: expected valid=%v, got %v", v.Path, v.Valid, err)
		}
		if v.Valid && got != v.Expected {
			t.Fatalf("%s: expected %v, got %v", v.Path, v.Expected, got)
		}
	}
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	for _, mutate := range []func(*Config){
		func(c *Config) { c.Dimensions = 4 },
		func(c *Config) { c.PointSize = 0 },
		func(c *Config) { c.FigWidth = -1 },
		func(c *Config) { c.FontSize = 0 },
		func(c *Config) { c.LabelPadding = -2 },
		func(c *Config) { c.OutPath = "plot.tiff" },
	} {
		cfg := DefaultConfig()
		mutate(&cfg)
		require.Error(t, cfg.Validate(), "%+v", cfg)
	}
}

func TestParseConfigFromPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plot.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"dimensions": 3, "title": "Gut", "ggplot2_style": true}`), 0644))

	cfg, err := ParseConfigFromPath(path)
	require.NoError(t, err)
	require.Equal(t, 3, cfg.Dimensions)
	require.Equal(t, "Gut", cfg.Title)
	require.True(t, cfg.GGPlotStyle)
	require.Equal(t, 100.0, cfg.PointSize, "unset fields keep defaults")
	require.Equal(t, 14.0, cfg.FigWidth)

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"dimensions": `), 0644))
	_, err = ParseConfigFromPath(bad)
	require.Error(t, err)
}

func TestDraw2D(t *testing.T) {
	p := testPlot(t, []string{"A", "B", "C"}, 4, 2, lda.NewExplainedVariance([]float64{0.9, 0.1}))

	for _, cfg := range []Config{
		testConfig(),
		func() Config { c := testConfig(); c.Annotate = true; c.Title = "LDA"; return c }(),
		func() Config { c := testConfig(); c.GGPlotStyle = true; return c }(),
	} {
		var buf bytes.Buffer
		require.NoError(t, Draw(&buf, FormatPNG, p, cfg, testDPI))

		img, err := png.Decode(&buf)
		require.NoError(t, err)
		require.Equal(t, 6*testDPI, img.Bounds().Dx())
		require.Equal(t, 4*testDPI, img.Bounds().Dy())
	}
}

func TestDraw2DSingleAxis(t *testing.T) {
	p := testPlot(t, []string{"A", "B"}, 3, 1, lda.ExplainedVariance{})

	cfg := testConfig()
	cfg.Annotate = true

	var buf bytes.Buffer
	require.NoError(t, Draw(&buf, FormatPNG, p, cfg, testDPI))
	_, err := png.Decode(&buf)
	require.NoError(t, err)

	pts, err := points(p, cfg)
	require.NoError(t, err)
	for _, pt := range pts {
		expected := 1.0
		if pt.Group == "B" {
			expected = 2.0
		}
		require.Equal(t, expected, pt.Y, "pseudo-y is the group ordinal plus one")
		require.NotEmpty(t, pt.Label)
	}

	lo, hi := singleAxisRange(2)
	require.Equal(t, 0.5, lo)
	require.Equal(t, 2.5, hi)
}

func TestDraw2DFormats(t *testing.T) {
	p := testPlot(t, []string{"A", "B", "C"}, 3, 2, lda.NewExplainedVariance([]float64{0.6, 0.4}))

	var svg bytes.Buffer
	require.NoError(t, Draw(&svg, FormatSVG, p, testConfig(), testDPI))
	require.True(t, strings.Contains(svg.String(), "<svg"))

	var jpg bytes.Buffer
	require.NoError(t, Draw(&jpg, FormatJPEG, p, testConfig(), testDPI))
	_, err := jpeg.Decode(&jpg)
	require.NoError(t, err)
}

func TestDraw3D(t *testing.T) {
	p := testPlot(t, []string{"A", "B", "C", "D"}, 3, 3, lda.NewExplainedVariance([]float64{0.5, 0.3, 0.2}))

	cfg := testConfig()
	cfg.Dimensions = 3
	cfg.Annotate = true
	cfg.Title = "3D"

	var buf bytes.Buffer
	require.NoError(t, Draw(&buf, FormatPNG, p, cfg, testDPI))
	img, err := png.Decode(&buf)
	require.NoError(t, err)
	require.Equal(t, 6*testDPI, img.Bounds().Dx())

	buf.Reset()
	err = Draw(&buf, FormatSVG, p, cfg, testDPI)
	require.True(t, errors.Is(err, ErrUnsupportedFormat))
}

func TestDraw3DNeedsThreeAxes(t *testing.T) {
	p := testPlot(t, []string{"A", "B", "C"}, 3, 2, lda.NewExplainedVariance([]float64{0.6, 0.4}))

	cfg := testConfig()
	cfg.Dimensions = 3

	var buf bytes.Buffer
	err := Draw(&buf, FormatPNG, p, cfg, testDPI)
	require.True(t, errors.Is(err, lda.ErrInsufficientGroups))
	require.Zero(t, buf.Len())
}

func TestDrawRequiresColors(t *testing.T) {
	p := testPlot(t, []string{"A", "B"}, 3, 1, lda.ExplainedVariance{})

	colors, err := mapping.PaletteColors([]string{"A"}, mapping.Set3)
	require.NoError(t, err)
	p.Colors = colors

	var buf bytes.Buffer
	require.Error(t, Draw(&buf, FormatPNG, p, testConfig(), testDPI))
}

func TestRenderSavesOnlyOnSuccess(t *testing.T) {
	dir := t.TempDir()

	cfg := testConfig()
	cfg.OutPath = filepath.Join(dir, "lda.png")
	p := testPlot(t, []string{"A", "B"}, 3, 1, lda.ExplainedVariance{})
	require.NoError(t, Render(p, cfg))
	_, err := os.Stat(cfg.OutPath)
	require.NoError(t, err)

	cfg.OutPath = filepath.Join(dir, "lda3d.png")
	cfg.Dimensions = 3
	require.Error(t, Render(p, cfg))
	_, err = os.Stat(cfg.OutPath)
	require.True(t, os.IsNotExist(err))
}

func TestBestCorner(t *testing.T) {
	pts := []point{{X: 0.9, Y: 0.9}, {X: 0.8, Y: 0.7}, {X: 0.1, Y: 0.1}, {X: 0.9, Y: 0.1}}
	require.Equal(t, upperLeft, bestCorner(pts, 0, 1, 0, 1))

	require.Equal(t, upperRight, bestCorner(nil, 0, 1, 0, 1))
}

func TestProjection(t *testing.T) {
	proj := newProjection(0, 0)

	x, y, depth := proj.project([3]float64{0, 1, 0})
	require.InDelta(t, 1, x, 1e-12)
	require.InDelta(t, 0, y, 1e-12)
	require.InDelta(t, 0, depth, 1e-12)

	_, y, _ = proj.project([3]float64{0, 0, 1})
	require.InDelta(t, 1, y, 1e-12)

	// Looking straight down, the viewer is on +z
	_, _, depth = newProjection(0, 90).project([3]float64{0, 0, 1})
	require.InDelta(t, 1, depth, 1e-12)
}

func TestPaddedRange(t *testing.T) {
	lo, hi := paddedRange([]float64{0, 10})
	require.InDelta(t, -0.5, lo, 1e-12)
	require.InDelta(t, 10.5, hi, 1e-12)

	lo, hi = paddedRange([]float64{3, 3})
	require.Less(t, lo, 3.0)
	require.Greater(t, hi, 3.0)

	lo, hi = paddedRange(nil)
	require.False(t, math.IsInf(lo, 0) || math.IsInf(hi, 0))
}

func TestAxisNameLayoutUsesLabelPadding(t *testing.T) {
	cfg := testConfig()
	cfg.LabelPadding = 0
	tight := newAxisNameLayout(cfg, testDPI)

	cfg.LabelPadding = 30
	loose := newAxisNameLayout(cfg, testDPI)

	require.Equal(t, 30, loose.Pad)
	require.Equal(t, tight.Strip+30, loose.Strip, "only the gap between tick labels and axis names grows")
	require.Equal(t, tight.Outer, loose.Outer)
	require.Equal(t, tight.NameHeight, loose.NameHeight)

	// The figure still renders with a large gap
	p := testPlot(t, []string{"A", "B", "C"}, 3, 2, lda.NewExplainedVariance([]float64{0.6, 0.4}))
	var buf bytes.Buffer
	require.NoError(t, Draw(&buf, FormatPNG, p, cfg, testDPI))
}

func TestLegendCorner3D(t *testing.T) {
	const width, height, top = 400.0, 300.0, 20.0

	// Screen y grows downward, so these markers crowd the upper right
	crowded := []screenPoint{{x: 350, y: 40}, {x: 380, y: 60}, {x: 300, y: 80}, {x: 50, y: 280}}
	require.Equal(t, upperLeft, legendCorner3D(crowded, width, height, top))

	crowded = []screenPoint{{x: 350, y: 40}, {x: 50, y: 40}, {x: 50, y: 280}}
	require.Equal(t, lowerRight, legendCorner3D(crowded, width, height, top))

	require.Equal(t, upperRight, legendCorner3D(nil, width, height, top))
}

func TestLegendOrigin3D(t *testing.T) {
	for _, v := range []struct {
		Where     corner
		Left, Top float64
	}{
		{upperRight, 400 - 10 - 50, 20 + 10},
		{upperLeft, 10, 20 + 10},
		{lowerLeft, 10, 300 - 10 - 40},
		{lowerRight, 400 - 10 - 50, 300 - 10 - 40},
	} {
		left, top := legendOrigin3D(v.Where, 400, 300, 50, 40, 10, 20)
		if left != v.Left || top != v.Top {
			t.Fatalf("Corner %d: expected (%v, %v), got (%v, %v)", v.Where, v.Left, v.Top, left, top)
		}
	}
}
