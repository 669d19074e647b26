package render

import (
	"sync"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/goregular"
)

var (
	fontOnce   sync.Once
	parsedFont *truetype.Font
	fontErr    error
)

// defaultFont is the embedded Go Regular face, so that rendering never
// depends on fonts installed on the host.
func defaultFont() (*truetype.Font, error) {
	fontOnce.Do(func() {
		parsedFont, fontErr = truetype.Parse(goregular.TTF)
	})

	return parsedFont, fontErr
}

// pointsToPixels converts a length in points to pixels at the given DPI.
func pointsToPixels(pt, dpi float64) float64 {
	return pt * dpi / 72
}
