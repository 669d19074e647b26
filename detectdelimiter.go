package phylolda

import (
	"bytes"
	"io"

	"github.com/csimplestring/go-csv/detector"
)

// DetermineDelimiter returns the single most likely rune that would delimit the
// values in the reader, assuming a CSV-like file.
func DetermineDelimiter(r io.Reader) rune {
	d := detector.New()
	delimiters := d.DetectDelimiter(r, '"')

	if len(delimiters) > 0 {
		return rune(delimiters[0][0])
	}

	return ','
}

// sniffBytes bounds how much of a table DelimiterFor inspects for tabs.
const sniffBytes = 64 << 10

// DelimiterFor picks the delimiter for an in-memory table. QIIME-style files
// are tab-delimited, and free-text columns often contain commas, so any tab
// near the top of the file wins outright. Otherwise we fall back to detection.
func DelimiterFor(data []byte) rune {
	head := data
	if len(head) > sniffBytes {
		head = head[:sniffBytes]
	}

	if bytes.IndexByte(head, '\t') >= 0 {
		return '\t'
	}

	return DetermineDelimiter(bytes.NewReader(data))
}
