// Package compress implements the byte-level compression formats used by data
// mounts and the formats tool, on top of github.com/klauspost/compress.
package compress

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
)

// Format names a compression format.
type Format string

const (
	FormatLZ4     Format = "lz4"
	FormatZlib    Format = "zlib"
	FormatGzip    Format = "gzip"
	FormatDeflate Format = "deflate"
	FormatZstd    Format = "zstd"
)

// DefaultLevel lets each codec pick its own default.
const DefaultLevel = -1

var (
	ErrUnknownFormat     = errors.New("unknown compression format")
	ErrUnsupportedFormat = errors.New("compression format not supported")
)

// ParseFormat converts a format name.
func ParseFormat(name string) (Format, error) {
	switch f := Format(name); f {
	case FormatLZ4, FormatZlib, FormatGzip, FormatDeflate, FormatZstd:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
}

// CompressedData is a compressed payload together with its format and the
// size of the original data.
type CompressedData struct {
	Format           Format
	Data             []byte
	DecompressedSize int
}

// Compress compresses data with the given format. Level is clamped to the
// range the codec accepts; DefaultLevel selects the codec default.
func Compress(format Format, data []byte, level int) (*CompressedData, error) {
	var buf bytes.Buffer

	w, err := newWriter(format, &buf, level)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return nil, fmt.Errorf("%s compress: %w", format, err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("%s compress: %w", format, err)
	}

	return &CompressedData{
		Format:           format,
		Data:             buf.Bytes(),
		DecompressedSize: len(data),
	}, nil
}

// Decompress restores the original bytes of c.
func Decompress(c *CompressedData) ([]byte, error) {
	if c == nil {
		return nil, errors.New("nil compressed data")
	}
	out, err := DecompressBytes(c.Format, c.Data)
	if err != nil {
		return nil, err
	}
	if c.DecompressedSize > 0 && len(out) != c.DecompressedSize {
		return nil, fmt.Errorf("%s decompress: expected %d bytes, got %d", c.Format, c.DecompressedSize, len(out))
	}
	return out, nil
}

// DecompressBytes decompresses a raw payload of the given format.
func DecompressBytes(format Format, data []byte) ([]byte, error) {
	if format == FormatZstd {
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		return dec.DecodeAll(data, nil)
	}

	r, err := newReader(format, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()

	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%s decompress: %w", format, err)
	}
	return out, nil
}

func newWriter(format Format, w io.Writer, level int) (io.WriteCloser, error) {
	switch format {
	case FormatZlib:
		return zlib.NewWriterLevel(w, clamp(level, zlib.HuffmanOnly, zlib.BestCompression))
	case FormatGzip:
		return gzip.NewWriterLevel(w, clamp(level, gzip.HuffmanOnly, gzip.BestCompression))
	case FormatDeflate:
		return flate.NewWriter(w, clamp(level, flate.HuffmanOnly, flate.BestCompression))
	case FormatZstd:
		opts := []zstd.EOption{}
		if level != DefaultLevel {
			opts = append(opts, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)))
		}
		return zstd.NewWriter(w, opts...)
	case FormatLZ4:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

func newReader(format Format, r io.Reader) (io.ReadCloser, error) {
	switch format {
	case FormatZlib:
		return zlib.NewReader(r)
	case FormatGzip:
		return gzip.NewReader(r)
	case FormatDeflate:
		return flate.NewReader(r), nil
	case FormatZstd:
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		return dec.IOReadCloser(), nil
	case FormatLZ4:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

func clamp(level, lo, hi int) int {
	switch {
	case level == DefaultLevel:
		return level
	case level < lo:
		return lo
	case level > hi:
		return hi
	}
	return level
}
