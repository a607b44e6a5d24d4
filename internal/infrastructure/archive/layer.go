package archive

import (
	"archive/tar"
	"archive/zip"
	"fmt"
	"io"

	"github.com/GriffinCanCode/AgentOS/vfs/internal/shared/compress"
	"github.com/spf13/afero"
	"github.com/spf13/afero/tarfs"
	"github.com/spf13/afero/zipfs"
)

type layer struct {
	key        string
	mountPoint string
	fs         afero.Fs
	closer     io.Closer
	real       bool
}

func (l *layer) close() error {
	if l.closer == nil {
		return nil
	}
	err := l.closer.Close()
	l.closer = nil
	return err
}

// openLayer builds the afero view of a real directory or archive file.
func (b *Backend) openLayer(key string, perm Permission) (*layer, error) {
	fi, err := b.real.Stat(key)
	if err != nil {
		return nil, err
	}

	if fi.IsDir() {
		var lfs afero.Fs = afero.NewBasePathFs(b.real, key)
		if perm != PermissionReadWrite {
			lfs = afero.NewReadOnlyFs(lfs)
		}
		return &layer{key: key, fs: lfs, real: true}, nil
	}

	if perm == PermissionReadWrite {
		return nil, fmt.Errorf("%s: archive files cannot be mounted read-write: %w", key, ErrNotDirectory)
	}

	f, err := b.real.Open(key)
	if err != nil {
		return nil, err
	}

	lfs, keepOpen, err := openArchive(f, fi.Size())
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", key, err)
	}

	l := &layer{key: key, fs: lfs}
	if keepOpen {
		l.closer = f
	} else if err := f.Close(); err != nil {
		return nil, err
	}
	return l, nil
}

// openArchive detects the container in r. Zip archives are read lazily and
// need r to stay open; tar payloads are loaded into memory.
func openArchive(r io.ReaderAt, size int64) (afero.Fs, bool, error) {
	header := make([]byte, compress.HeaderSize)
	n, err := r.ReadAt(header, 0)
	if err != nil && err != io.EOF {
		return nil, false, err
	}
	header = header[:n]

	switch kind := compress.Detect(header); kind {
	case compress.KindZip:
		zr, err := zip.NewReader(r, size)
		if err != nil {
			return nil, false, fmt.Errorf("%w: %v", ErrUnsupportedArchive, err)
		}
		return zipfs.New(zr), true, nil
	case compress.KindTar, compress.KindGzip, compress.KindZstd:
		rc, err := compress.NewReader(kind, io.NewSectionReader(r, 0, size))
		if err != nil {
			return nil, false, fmt.Errorf("%w: %v", ErrUnsupportedArchive, err)
		}
		defer rc.Close()

		tfs, err := newTarFs(rc)
		return tfs, false, err
	default:
		return nil, false, fmt.Errorf("%w: unrecognised header", ErrUnsupportedArchive)
	}
}

// newTarFs turns the panics tarfs raises on truncated input into errors.
func newTarFs(r io.Reader) (tfs afero.Fs, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			tfs, err = nil, fmt.Errorf("%w: %v", ErrUnsupportedArchive, rec)
		}
	}()

	t := tarfs.New(tar.NewReader(r))
	if t == nil {
		return nil, fmt.Errorf("%w: corrupt tar stream", ErrUnsupportedArchive)
	}
	return t, nil
}
