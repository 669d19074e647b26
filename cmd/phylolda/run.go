package main

import (
	"context"
	"fmt"
	"log"

	"cloud.google.com/go/storage"
	"github.com/carbocation/phylolda"
	"github.com/carbocation/phylolda/lda"
	"github.com/carbocation/phylolda/mapping"
	"github.com/carbocation/phylolda/render"
	"github.com/carbocation/phylolda/table"
)

type options struct {
	MapPath     string
	GroupBy     string
	ColorColumn string
	ColorFile   string

	// Exactly one of these is set
	FeatureTable   string
	DistanceMatrix string

	SaveInput string

	Plot render.Config
}

func (o options) validate() error {
	if o.MapPath == "" {
		return fmt.Errorf("-map_fp is required")
	}
	if o.GroupBy == "" {
		return fmt.Errorf("-group_by is required")
	}
	if (o.FeatureTable == "") == (o.DistanceMatrix == "") {
		return fmt.Errorf("Please provide exactly one of -otu_table or -dist_matrix_file")
	}
	if o.ColorColumn != "" && o.ColorFile != "" {
		return fmt.Errorf("-colors and -color_file cannot be used together")
	}

	return o.Plot.Validate()
}

func run(opts options) error {
	if err := opts.validate(); err != nil {
		return err
	}

	// Initialize the Google Storage client only if we're pointing to Google
	// Storage paths.
	var client *storage.Client
	if phylolda.NeedsStorageClient(opts.MapPath, opts.FeatureTable, opts.DistanceMatrix, opts.ColorFile) {
		var err error
		client, err = storage.NewClient(context.Background())
		if err != nil {
			return err
		}
		defer client.Close()
	}

	meta, err := mapping.ParseMapFile(opts.MapPath, client)
	if err != nil {
		return err
	}

	groupIdx, err := meta.ColumnIndex(opts.GroupBy)
	if err != nil {
		return err
	}

	in, err := loadInput(opts, meta, groupIdx, client)
	if err != nil {
		return err
	}
	nSamples, nCols := in.Data.Dims()
	log.Printf("Loaded %d samples with %d columns\n", nSamples, nCols)

	if opts.SaveInput != "" {
		if err := in.SaveTSV(opts.SaveInput); err != nil {
			return err
		}
		log.Println("Saved discriminant analysis input to", opts.SaveInput)
	}

	groups := in.Groups()
	if err := lda.RequireGroups(len(groups), opts.Plot.Dimensions); err != nil {
		return err
	}

	colors, err := groupColors(opts, meta, groupIdx, groups, client)
	if err != nil {
		return err
	}

	result, err := lda.Run(in)
	if err != nil {
		return err
	}
	log.Printf("Projected onto %d discriminant axes\n", result.Axes())

	plot := render.Plot{
		Result:    result,
		SampleIDs: in.SampleIDs,
		Colors:    colors,
	}

	if err := render.Render(plot, opts.Plot); err != nil {
		return err
	}

	if opts.Plot.OutPath != "" {
		log.Println("Saved figure to", opts.Plot.OutPath)
	}

	return nil
}

func loadInput(opts options, meta *mapping.Mapping, groupIdx int, client *storage.Client) (*table.InputMatrix, error) {
	if opts.DistanceMatrix != "" {
		dm, err := table.LoadDistanceMatrix(opts.DistanceMatrix, client)
		if err != nil {
			return nil, err
		}
		return table.FromDistanceMatrix(dm, meta, groupIdx)
	}

	ft, err := table.LoadFeatureTable(opts.FeatureTable, client)
	if err != nil {
		return nil, err
	}

	return table.FromFeatureTable(ft, meta, groupIdx)
}

// groupColors takes colors from the mapping file column, the color file, or
// the default palette, in that order of preference.
func groupColors(opts options, meta *mapping.Mapping, groupIdx int, groups []string, client *storage.Client) (mapping.GroupColorMap, error) {
	switch {
	case opts.ColorColumn != "":
		colorIdx, err := meta.ColumnIndex(opts.ColorColumn)
		if err != nil {
			return mapping.GroupColorMap{}, err
		}
		return mapping.ColumnColors(meta, groupIdx, colorIdx)
	case opts.ColorFile != "":
		return mapping.ParseColorFile(opts.ColorFile, client)
	default:
		return mapping.PaletteColors(groups, mapping.Set3)
	}
}
