package archive

import (
	"io"
	"io/fs"
	"sync"

	"github.com/spf13/afero"
)

// Stream is an open file on a virtual path. Close is idempotent.
type Stream struct {
	file     afero.File
	path     string
	writable bool

	closeOnce sync.Once
	closeErr  error
}

func newStream(f afero.File, path string, writable bool) *Stream {
	return &Stream{file: f, path: path, writable: writable}
}

// Path returns the normalized virtual path.
func (s *Stream) Path() string { return s.path }

// Writable reports whether the stream was opened for writing.
func (s *Stream) Writable() bool { return s.writable }

func (s *Stream) Read(p []byte) (int, error) {
	return s.file.Read(p)
}

func (s *Stream) Write(p []byte) (int, error) {
	if !s.writable {
		return 0, &fs.PathError{Op: "write", Path: s.path, Err: fs.ErrPermission}
	}
	return s.file.Write(p)
}

func (s *Stream) Seek(offset int64, whence int) (int64, error) {
	return s.file.Seek(offset, whence)
}

// Tell returns the current offset.
func (s *Stream) Tell() (int64, error) {
	return s.file.Seek(0, io.SeekCurrent)
}

// Size returns the length of the underlying file.
func (s *Stream) Size() (int64, error) {
	fi, err := s.file.Stat()
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}

// Flush commits buffered writes to storage.
func (s *Stream) Flush() error {
	if !s.writable {
		return nil
	}
	return s.file.Sync()
}

func (s *Stream) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.file.Close()
	})
	return s.closeErr
}
