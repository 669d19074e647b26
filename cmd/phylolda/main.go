package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/carbocation/phylolda"
	_ "github.com/carbocation/phylolda/compileinfoprint"
	"github.com/carbocation/phylolda/render"
)

func main() {
	start := time.Now()
	log.Println("phylolda start")
	defer func() {
		log.Printf("phylolda end. Took %.2f seconds\n", time.Since(start).Seconds())
	}()

	opts, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		flag.Usage()
		log.Fatalln(err)
	}

	if err := run(opts); err != nil {
		log.Fatalln(err)
	}
}

// flagAliases maps each short flag to its long name.
var flagAliases = map[string]string{
	"m":  "map_fp",
	"g":  "group_by",
	"c":  "colors",
	"ot": "otu_table",
	"dm": "dist_matrix_file",
	"o":  "out_fp",
	"d":  "dimensions",
	"s":  "point_size",
}

// plotOverrides copies one setting from the command line onto a config that
// may have come from -plot_config.
var plotOverrides = map[string]func(dst *render.Config, src render.Config){
	"plot_title":      func(dst *render.Config, src render.Config) { dst.Title = src.Title },
	"out_fp":          func(dst *render.Config, src render.Config) { dst.OutPath = src.OutPath },
	"dimensions":      func(dst *render.Config, src render.Config) { dst.Dimensions = src.Dimensions },
	"point_size":      func(dst *render.Config, src render.Config) { dst.PointSize = src.PointSize },
	"font_size":       func(dst *render.Config, src render.Config) { dst.FontSize = src.FontSize },
	"label_padding":   func(dst *render.Config, src render.Config) { dst.LabelPadding = src.LabelPadding },
	"annotate_points": func(dst *render.Config, src render.Config) { dst.Annotate = src.Annotate },
	"ggplot2_style":   func(dst *render.Config, src render.Config) { dst.GGPlotStyle = src.GGPlotStyle },
	"z_angles": func(dst *render.Config, src render.Config) {
		dst.Azimuth, dst.Elevation = src.Azimuth, src.Elevation
	},
	"figsize": func(dst *render.Config, src render.Config) {
		dst.FigWidth, dst.FigHeight = src.FigWidth, src.FigHeight
	},
}

func parseFlags(fs *flag.FlagSet, args []string) (options, error) {
	var opts options
	var zAngles, figSize, plotConfig string

	cli := render.DefaultConfig()

	fs.StringVar(&opts.MapPath, "map_fp", "", "Metadata mapping file (tab-delimited, first column is the sample ID)")
	fs.StringVar(&opts.MapPath, "m", "", "Shorthand for -map_fp")
	fs.StringVar(&opts.GroupBy, "group_by", "", "Mapping file column whose values are the groups to discriminate")
	fs.StringVar(&opts.GroupBy, "g", "", "Shorthand for -group_by")
	fs.StringVar(&opts.ColorColumn, "colors", "", "(Optional) Mapping file column holding a hex color for each sample's group")
	fs.StringVar(&opts.ColorColumn, "c", "", "Shorthand for -colors")
	fs.StringVar(&opts.ColorFile, "color_file", "", "(Optional) Tab-delimited file with 'group' and 'color' columns")
	fs.StringVar(&opts.FeatureTable, "otu_table", "", "Feature (OTU) table: delimited text or BIOM 1.0 JSON. Exclusive with -dist_matrix_file")
	fs.StringVar(&opts.FeatureTable, "ot", "", "Shorthand for -otu_table")
	fs.StringVar(&opts.DistanceMatrix, "dist_matrix_file", "", "Square distance matrix. Exclusive with -otu_table")
	fs.StringVar(&opts.DistanceMatrix, "dm", "", "Shorthand for -dist_matrix_file")
	fs.StringVar(&opts.SaveInput, "save_lda_input", "", "(Optional) Write the matrix that is fed into the discriminant analysis to this path")
	fs.StringVar(&plotConfig, "plot_config", "", "(Optional) JSON file of plot settings. Flags that are set explicitly take precedence.")

	fs.StringVar(&cli.Title, "plot_title", cli.Title, "Figure title")
	fs.StringVar(&cli.OutPath, "out_fp", cli.OutPath, "Output image (.png, .jpg, .svg). If empty, the figure is opened in a viewer.")
	fs.StringVar(&cli.OutPath, "o", cli.OutPath, "Shorthand for -out_fp")
	fs.IntVar(&cli.Dimensions, "dimensions", cli.Dimensions, "2 or 3")
	fs.IntVar(&cli.Dimensions, "d", cli.Dimensions, "Shorthand for -dimensions")
	fs.Float64Var(&cli.PointSize, "point_size", cli.PointSize, "Marker area in square points")
	fs.Float64Var(&cli.PointSize, "s", cli.PointSize, "Shorthand for -point_size")
	fs.StringVar(&zAngles, "z_angles", fmt.Sprintf("%g,%g", cli.Azimuth, cli.Elevation), "Azimuth and elevation of the 3D view, in degrees")
	fs.StringVar(&figSize, "figsize", fmt.Sprintf("%g,%g", cli.FigWidth, cli.FigHeight), "Width and height of the figure, in inches")
	fs.Float64Var(&cli.FontSize, "font_size", cli.FontSize, "Font size in points")
	fs.Float64Var(&cli.LabelPadding, "label_padding", cli.LabelPadding, "Space between the axes and their labels, in points")
	fs.BoolVar(&cli.Annotate, "annotate_points", cli.Annotate, "Write each sample ID below its point (2D only)")
	fs.BoolVar(&cli.GGPlotStyle, "ggplot2_style", cli.GGPlotStyle, "Gray panel with white grid lines (2D only)")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}

	// Interpret ~ if present
	cli.OutPath = phylolda.ExpandHome(cli.OutPath)
	opts.SaveInput = phylolda.ExpandHome(opts.SaveInput)

	var err error
	if cli.Azimuth, cli.Elevation, err = parsePair(zAngles); err != nil {
		return opts, fmt.Errorf("-z_angles: %w", err)
	}
	if cli.FigWidth, cli.FigHeight, err = parsePair(figSize); err != nil {
		return opts, fmt.Errorf("-figsize: %w", err)
	}

	explicit := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		name := f.Name
		if long, ok := flagAliases[name]; ok {
			name = long
		}
		explicit[name] = true
	})

	opts.Plot, err = plotConfigFor(plotConfig, cli, explicit)

	return opts, err
}

// plotConfigFor starts from the JSON config (if any) and applies every flag
// that was set on the command line. Without a JSON config, the flag values
// are used directly.
func plotConfigFor(path string, cli render.Config, explicit map[string]bool) (render.Config, error) {
	if path == "" {
		return cli, nil
	}

	out, err := render.ParseConfigFromPath(path)
	if err != nil {
		return out, err
	}

	for name := range explicit {
		if override, ok := plotOverrides[name]; ok {
			override(&out, cli)
		}
	}

	return out, nil
}

// parsePair reads "a,b" into two numbers.
func parsePair(value string) (float64, float64, error) {
	parts := strings.Split(value, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("expected two comma-separated numbers, got %q", value)
	}

	a, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, err
	}

	b, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, err
	}

	return a, b, nil
}
