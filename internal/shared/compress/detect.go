package compress

import (
	"bytes"
	"io"
)

// Kind is a container or stream type recognised from leading bytes.
type Kind int

const (
	KindUnknown Kind = iota
	KindZip
	KindTar
	KindGzip
	KindZstd
	KindZlib
)

// HeaderSize is enough leading bytes for Detect to recognise every Kind.
const HeaderSize = 262

var kindNames = map[Kind]string{
	KindUnknown: "unknown",
	KindZip:     "zip",
	KindTar:     "tar",
	KindGzip:    "gzip",
	KindZstd:    "zstd",
	KindZlib:    "zlib",
}

func (k Kind) String() string {
	return kindNames[k]
}

var (
	zipMagic      = []byte("PK\x03\x04")
	zipEmptyMagic = []byte("PK\x05\x06")
	gzipMagic     = []byte{0x1f, 0x8b}
	zstdMagic     = []byte{0x28, 0xb5, 0x2f, 0xfd}
	tarMagic      = []byte("ustar")
)

// Detect classifies a payload by its header.
func Detect(header []byte) Kind {
	switch {
	case bytes.HasPrefix(header, zipMagic), bytes.HasPrefix(header, zipEmptyMagic):
		return KindZip
	case bytes.HasPrefix(header, gzipMagic):
		return KindGzip
	case bytes.HasPrefix(header, zstdMagic):
		return KindZstd
	case len(header) >= 262 && bytes.Equal(header[257:262], tarMagic):
		return KindTar
	case len(header) >= 2 && header[0]&0x0f == 8 && (uint16(header[0])<<8|uint16(header[1]))%31 == 0:
		return KindZlib
	}
	return KindUnknown
}

// NewReader wraps r with the decompressor for kind. Kinds that are not
// compressed streams are returned unchanged.
func NewReader(kind Kind, r io.Reader) (io.ReadCloser, error) {
	switch kind {
	case KindGzip:
		return newReader(FormatGzip, r)
	case KindZstd:
		return newReader(FormatZstd, r)
	case KindZlib:
		return newReader(FormatZlib, r)
	}
	return io.NopCloser(r), nil
}
