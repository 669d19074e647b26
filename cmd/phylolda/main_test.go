package main

import (
	"errors"
	"flag"
	"fmt"
	"image/png"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"testing"

	"github.com/carbocation/phylolda"
	"github.com/carbocation/phylolda/lda"
	"github.com/carbocation/phylolda/render"
	"github.com/stretchr/testify/require"
)

// writeFixtures creates a mapping file and a feature table with nPerGroup
// samples in each of the named groups. Each group is enriched for a
// different feature.
func writeFixtures(t *testing.T, groups []string, nPerGroup, nFeatures int) (mapPath, tablePath string) {
	t.Helper()
	dir := t.TempDir()

	var sampleIDs []string
	var m strings.Builder
	m.WriteString("#SampleID\tTreatment\tColor\tDescription\n")
	for g, group := range groups {
		for i := 0; i < nPerGroup; i++ {
			sid := fmt.Sprintf("%s.%d", group, i)
			sampleIDs = append(sampleIDs, sid)
			fmt.Fprintf(&m, "%s\t%s\t%s\tsample %d\n", sid, group, []string{"#FF0000", "#00FF00", "#0000FF", "#000000"}[g%4], i)
		}
	}

	var ft strings.Builder
	ft.WriteString("# Constructed from biom file\n")
	ft.WriteString("#OTU ID\t" + strings.Join(sampleIDs, "\t") + "\ttaxonomy\n")
	for f := 0; f < nFeatures; f++ {
		fmt.Fprintf(&ft, "OTU%d", f)
		for s := range sampleIDs {
			count := 10 + (f*7+s*13)%17
			if f == s/nPerGroup {
				count += 60
			}
			fmt.Fprintf(&ft, "\t%d", count)
		}
		ft.WriteString("\tk__Bacteria\n")
	}

	mapPath = filepath.Join(dir, "map.txt")
	tablePath = filepath.Join(dir, "otu_table.txt")
	require.NoError(t, os.WriteFile(mapPath, []byte(m.String()), 0644))
	require.NoError(t, os.WriteFile(tablePath, []byte(ft.String()), 0644))

	return mapPath, tablePath
}

func smallPlot(outPath string) render.Config {
	cfg := render.DefaultConfig()
	cfg.FigWidth, cfg.FigHeight = 3, 2
	cfg.FontSize = 8
	cfg.OutPath = outPath
	return cfg
}

func TestRunFeatureTable(t *testing.T) {
	mapPath, tablePath := writeFixtures(t, []string{"Control", "Fast"}, 3, 10)
	out := filepath.Join(t.TempDir(), "lda.png")

	err := run(options{
		MapPath:      mapPath,
		GroupBy:      "Treatment",
		FeatureTable: tablePath,
		Plot:         smallPlot(out),
	})
	require.NoError(t, err)

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()

	img, err := png.Decode(f)
	require.NoError(t, err)
	require.Equal(t, 3*render.SaveDPI, img.Bounds().Dx())
	require.Equal(t, 2*render.SaveDPI, img.Bounds().Dy())
}

func TestRunColorColumnAnnotated(t *testing.T) {
	mapPath, tablePath := writeFixtures(t, []string{"A", "B", "C"}, 3, 6)
	out := filepath.Join(t.TempDir(), "lda.svg")

	cfg := smallPlot(out)
	cfg.Annotate = true
	cfg.GGPlotStyle = true
	cfg.Title = "Treatment"

	require.NoError(t, run(options{
		MapPath:      mapPath,
		GroupBy:      "Treatment",
		ColorColumn:  "Color",
		FeatureTable: tablePath,
		Plot:         cfg,
	}))

	bts, err := os.ReadFile(out)
	require.NoError(t, err)
	require.Contains(t, string(bts), "<svg")
}

func TestRunDistanceMatrix(t *testing.T) {
	mapPath, _ := writeFixtures(t, []string{"A", "B"}, 3, 4)

	ids := []string{"A.0", "A.1", "A.2", "B.0", "B.1", "B.2"}
	pos := []float64{0, 0.1, 0.25, 1, 1.15, 1.3}

	var dm strings.Builder
	dm.WriteString("\t" + strings.Join(ids, "\t") + "\n")
	for i, id := range ids {
		dm.WriteString(id)
		for j := range ids {
			d := pos[i] - pos[j]
			if d < 0 {
				d = -d
			}
			fmt.Fprintf(&dm, "\t%g", d)
		}
		dm.WriteString("\n")
	}
	dmPath := filepath.Join(t.TempDir(), "dm.txt")
	require.NoError(t, os.WriteFile(dmPath, []byte(dm.String()), 0644))

	out := filepath.Join(t.TempDir(), "lda.jpg")
	require.NoError(t, run(options{
		MapPath:        mapPath,
		GroupBy:        "Treatment",
		DistanceMatrix: dmPath,
		Plot:           smallPlot(out),
	}))

	_, err := os.Stat(out)
	require.NoError(t, err)
}

func TestRun3DNeedsFourGroups(t *testing.T) {
	mapPath, tablePath := writeFixtures(t, []string{"A", "B", "C"}, 3, 8)
	out := filepath.Join(t.TempDir(), "lda.png")

	cfg := smallPlot(out)
	cfg.Dimensions = 3

	err := run(options{
		MapPath:      mapPath,
		GroupBy:      "Treatment",
		FeatureTable: tablePath,
		Plot:         cfg,
	})
	require.True(t, errors.Is(err, lda.ErrInsufficientGroups), "got %v", err)

	_, err = os.Stat(out)
	require.True(t, os.IsNotExist(err))
}

func TestRun3D(t *testing.T) {
	mapPath, tablePath := writeFixtures(t, []string{"A", "B", "C", "D"}, 4, 8)
	out := filepath.Join(t.TempDir(), "lda3d.png")

	cfg := smallPlot(out)
	cfg.Dimensions = 3

	require.NoError(t, run(options{
		MapPath:      mapPath,
		GroupBy:      "Treatment",
		FeatureTable: tablePath,
		Plot:         cfg,
	}))

	_, err := os.Stat(out)
	require.NoError(t, err)
}

func TestRunSavesInput(t *testing.T) {
	mapPath, tablePath := writeFixtures(t, []string{"Control", "Fast"}, 3, 10)
	dir := t.TempDir()
	saved := filepath.Join(dir, "lda_input.txt")

	require.NoError(t, run(options{
		MapPath:      mapPath,
		GroupBy:      "Treatment",
		FeatureTable: tablePath,
		SaveInput:    saved,
		Plot:         smallPlot(filepath.Join(dir, "lda.png")),
	}))

	bts, err := os.ReadFile(saved)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(string(bts), "\n"), "\n")
	require.Len(t, lines, 1+6)

	header := strings.Split(lines[0], "\t")
	require.Equal(t, "", header[0])
	require.Equal(t, "Condition", header[1])
	require.Len(t, header, 2+10)

	row := strings.Split(lines[1], "\t")
	require.Equal(t, "Control.0", row[0])
	require.Equal(t, "Control", row[1])
}

func TestRunInputChoice(t *testing.T) {
	mapPath, tablePath := writeFixtures(t, []string{"A", "B"}, 3, 4)
	cfg := smallPlot(filepath.Join(t.TempDir(), "lda.png"))

	// Both
	err := run(options{MapPath: mapPath, GroupBy: "Treatment", FeatureTable: tablePath, DistanceMatrix: tablePath, Plot: cfg})
	require.Error(t, err)

	// Neither
	err = run(options{MapPath: mapPath, GroupBy: "Treatment", Plot: cfg})
	require.Error(t, err)

	// Two color sources
	err = run(options{MapPath: mapPath, GroupBy: "Treatment", FeatureTable: tablePath, ColorColumn: "Color", ColorFile: "colors.txt", Plot: cfg})
	require.Error(t, err)

	_, err = os.Stat(cfg.OutPath)
	require.True(t, os.IsNotExist(err))
}

func TestRunUnknownGroupColumn(t *testing.T) {
	mapPath, tablePath := writeFixtures(t, []string{"A", "B"}, 3, 4)

	err := run(options{
		MapPath:      mapPath,
		GroupBy:      "Nope",
		FeatureTable: tablePath,
		Plot:         smallPlot(filepath.Join(t.TempDir(), "lda.png")),
	})
	require.Error(t, err)
}

func TestParseFlags(t *testing.T) {
	fs := flag.NewFlagSet("phylolda", flag.ContinueOnError)
	opts, err := parseFlags(fs, []string{
		"-m", "map.txt",
		"-g", "Treatment",
		"-ot", "table.biom",
		"-d", "3",
		"-z_angles", "10, 60",
		"-figsize", "7,5",
		"-annotate_points",
		"-o", "out.png",
	})
	require.NoError(t, err)

	require.Equal(t, "map.txt", opts.MapPath)
	require.Equal(t, "Treatment", opts.GroupBy)
	require.Equal(t, "table.biom", opts.FeatureTable)
	require.Equal(t, 3, opts.Plot.Dimensions)
	require.Equal(t, 10.0, opts.Plot.Azimuth)
	require.Equal(t, 60.0, opts.Plot.Elevation)
	require.Equal(t, 7.0, opts.Plot.FigWidth)
	require.Equal(t, 5.0, opts.Plot.FigHeight)
	require.True(t, opts.Plot.Annotate)
	require.Equal(t, "out.png", opts.Plot.OutPath)
	require.Equal(t, render.DefaultConfig().PointSize, opts.Plot.PointSize)
}

func TestParseFlagsPlotConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plot.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"dimensions": 3, "point_size": 40, "title": "From file", "fig_width": 9}`), 0644))

	fs := flag.NewFlagSet("phylolda", flag.ContinueOnError)
	opts, err := parseFlags(fs, []string{
		"-plot_config", path,
		"-plot_title", "From flag",
		"-s", "80",
	})
	require.NoError(t, err)

	require.Equal(t, 3, opts.Plot.Dimensions, "file value kept when the flag is not set")
	require.Equal(t, 9.0, opts.Plot.FigWidth)
	require.Equal(t, "From flag", opts.Plot.Title)
	require.Equal(t, 80.0, opts.Plot.PointSize)
}

func TestParsePair(t *testing.T) {
	for _, v := range []struct {
		Input string
		A, B  float64
		Valid bool
	}{
		{"45,30", 45, 30, true},
		{" -10 , 2.5", -10, 2.5, true},
		{"45", 0, 0, false},
		{"1,2,3", 0, 0, false},
		{"a,b", 0, 0, false},
	} {
		a, b, err := parsePair(v.Input)
		if (err == nil) != v.Valid {
			t.Fatalf("%q: expected valid=%v, got %v", v.Input, v.Valid, err)
		}
		if v.Valid && (a != v.A || b != v.B) {
			t.Fatalf("%q: expected %v,%v, got %v,%v", v.Input, v.A, v.B, a, b)
		}
	}
}

func TestParseFlagsExpandsHome(t *testing.T) {
	fs := flag.NewFlagSet("phylolda", flag.ContinueOnError)
	opts, err := parseFlags(fs, []string{
		"-m", "map.txt",
		"-g", "Treatment",
		"-ot", "table.biom",
		"-out_fp=~/lda.png",
		"-save_lda_input=~/lda_input.txt",
	})
	require.NoError(t, err)

	usr, err := user.Current()
	if err != nil {
		t.Skip("no home directory to expand into")
	}

	require.Equal(t, filepath.Join(usr.HomeDir, "lda.png"), opts.Plot.OutPath)
	require.Equal(t, filepath.Join(usr.HomeDir, "lda_input.txt"), opts.SaveInput)
	require.Equal(t, phylolda.ExpandHome("~/lda.png"), opts.Plot.OutPath)
}
