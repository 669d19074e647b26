package render

import (
	"fmt"
	"path/filepath"
	"strings"
)

type Format byte

const (
	FormatPNG Format = iota
	FormatJPEG
	FormatSVG
)

func (f Format) String() string {
	switch f {
	case FormatPNG:
		return "png"
	case FormatJPEG:
		return "jpeg"
	case FormatSVG:
		return "svg"
	}

	return "unknown"
}

// FormatFromPath infers the image format from the file extension. A missing
// extension means PNG.
func FormatFromPath(path string) (Format, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case "", ".png":
		return FormatPNG, nil
	case ".jpg", ".jpeg":
		return FormatJPEG, nil
	case ".svg":
		return FormatSVG, nil
	default:
		return FormatPNG, fmt.Errorf("Unsupported image format %q; use .png, .jpg, or .svg", ext)
	}
}
