package phylolda

import (
	"bytes"
	"compress/bzip2"
	"compress/gzip"
	"compress/zlib"
	"io"
	"io/ioutil"

	"cloud.google.com/go/storage"
	"github.com/carbocation/pfx"
	"github.com/krolaw/zipstream"
	"github.com/xi2/xz"
)

type DataType byte

const (
	DataTypeInvalid DataType = iota
	DataTypeNoCompression
	DataTypeGzip
	DataTypeZip
	DataTypeXZ
	DataTypeZ
	DataTypeBZip2
)

var byteCodeSigs = map[DataType][]byte{
	DataTypeGzip:  {0x1f, 0x8b, 0x08},
	DataTypeZip:   {0x50, 0x4b, 0x03, 0x04},
	DataTypeXZ:    {0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00},
	DataTypeZ:     {0x1f, 0x9d},
	DataTypeBZip2: {0x42, 0x5a, 0x68},
}

// DetectDataType attempts to detect the data type of a byte slice by checking
// against a set of known signatures. Byte code signatures from
// https://stackoverflow.com/a/19127748/199475
func DetectDataType(head []byte) DataType {
Outer:
	for dt, sig := range byteCodeSigs {
		if len(head) < len(sig) {
			continue
		}
		for position := range sig {
			if head[position] != sig[position] {
				continue Outer
			}
		}
		return dt
	}

	return DataTypeNoCompression
}

// MaybeDecompress returns the decompressed contents of raw if it carries a
// known compression signature, and raw itself otherwise.
func MaybeDecompress(raw []byte) ([]byte, error) {
	var r io.Reader

	switch DetectDataType(raw) {
	case DataTypeGzip:
		gz, err := gzip.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, pfx.Err(err)
		}
		defer gz.Close()
		r = gz
	case DataTypeZip:
		// Only the first entry of an archive is read.
		zr := zipstream.NewReader(bytes.NewReader(raw))
		if _, err := zr.Next(); err != nil {
			return nil, pfx.Err(err)
		}
		r = zr
	case DataTypeBZip2:
		r = bzip2.NewReader(bytes.NewReader(raw))
	case DataTypeXZ:
		xzr, err := xz.NewReader(bytes.NewReader(raw), 0)
		if err != nil {
			return nil, pfx.Err(err)
		}
		r = xzr
	case DataTypeZ:
		zr, err := zlib.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, pfx.Err(err)
		}
		defer zr.Close()
		r = zr
	default:
		// No data type detected. For now, we assume this is uncompressed.
		return raw, nil
	}

	out, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, pfx.Err(err)
	}

	return out, nil
}

// ReadAllMaybeDecompress reads the whole file at path (local or gs://) and
// transparently decompresses it.
func ReadAllMaybeDecompress(path string, client *storage.Client) ([]byte, error) {
	f, err := MaybeOpenFromGoogleStorage(path, client)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	raw, err := ioutil.ReadAll(f)
	if err != nil {
		return nil, pfx.Err(err)
	}

	return MaybeDecompress(raw)
}
