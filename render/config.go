package render

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/carbocation/pfx"
	"github.com/carbocation/phylolda"
)

// Config controls the figure. Sizes follow the usual plotting conventions:
// figure dimensions in inches, fonts and padding in points, and PointSize as
// marker area in square points.
type Config struct {
	Dimensions   int     `json:"dimensions"`
	PointSize    float64 `json:"point_size"`
	Azimuth      float64 `json:"azimuth"`
	Elevation    float64 `json:"elevation"`
	FigWidth     float64 `json:"fig_width"`
	FigHeight    float64 `json:"fig_height"`
	FontSize     float64 `json:"font_size"`
	LabelPadding float64 `json:"label_padding"`
	Annotate     bool    `json:"annotate_points"`
	GGPlotStyle  bool    `json:"ggplot2_style"`
	Title        string  `json:"title"`

	// OutPath is where the figure is saved. If empty, the figure is displayed
	// instead.
	OutPath string `json:"out"`
}

// DefaultConfig returns the defaults used by the command line tool.
func DefaultConfig() Config {
	return Config{
		Dimensions:   2,
		PointSize:    100,
		Azimuth:      45,
		Elevation:    30,
		FigWidth:     14,
		FigHeight:    8,
		FontSize:     12,
		LabelPadding: 15,
	}
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.Dimensions != 2 && c.Dimensions != 3 {
		return fmt.Errorf("Dimensions must be 2 or 3, not %d", c.Dimensions)
	}
	if c.PointSize <= 0 {
		return fmt.Errorf("Point size must be positive, not %v", c.PointSize)
	}
	if c.FigWidth <= 0 || c.FigHeight <= 0 {
		return fmt.Errorf("Figure size must be positive, not %vx%v", c.FigWidth, c.FigHeight)
	}
	if c.FontSize <= 0 {
		return fmt.Errorf("Font size must be positive, not %v", c.FontSize)
	}
	if c.LabelPadding < 0 {
		return fmt.Errorf("Label padding cannot be negative")
	}
	if c.OutPath != "" {
		if _, err := FormatFromPath(c.OutPath); err != nil {
			return err
		}
	}

	return nil
}

// ParseConfigFromPath reads a JSON config. Fields that are absent keep their
// default values.
func ParseConfigFromPath(path string) (Config, error) {
	out := DefaultConfig()

	f, err := os.Open(phylolda.ExpandHome(path))
	if err != nil {
		return out, pfx.Err(err)
	}
	defer f.Close()

	err = json.NewDecoder(f).Decode(&out)
	if err != nil {
		if e, ok := err.(*json.SyntaxError); ok {
			log.Printf("syntax error at byte offset %d", e.Offset)
		}

		return out, pfx.Err(err)
	}

	// Interpret ~ if present
	out.OutPath = phylolda.ExpandHome(out.OutPath)

	return out, nil
}
