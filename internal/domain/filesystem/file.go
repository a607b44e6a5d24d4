package filesystem

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"runtime"
	"strings"
	"sync"

	"github.com/GriffinCanCode/AgentOS/vfs/internal/infrastructure/archive"
	"github.com/GriffinCanCode/AgentOS/vfs/internal/shared/id"
	"go.uber.org/zap"
)

// Mode is the state of a file handle.
type Mode int

const (
	ModeClosed Mode = iota
	ModeRead
	ModeWrite
	ModeAppend
)

var modeNames = [...]string{
	ModeClosed: "c",
	ModeRead:   "r",
	ModeWrite:  "w",
	ModeAppend: "a",
}

func (m Mode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return "?"
	}
	return modeNames[m]
}

// ParseMode converts "r", "w", "a" or "c".
func ParseMode(s string) (Mode, error) {
	for i, name := range modeNames {
		if name == s {
			return Mode(i), nil
		}
	}
	return ModeClosed, fmt.Errorf("invalid file mode '%s'", s)
}

// File is an open stream on a virtual path. A File must be closed; one that
// is garbage collected while open is closed by a finalizer.
type File struct {
	mu       sync.Mutex
	fsys     *Filesystem
	id       id.HandleID
	filename string
	mode     Mode
	stream   *archive.Stream
}

func newFile(fsys *Filesystem, filename string) *File {
	return &File{fsys: fsys, id: id.NewHandleID(), filename: filename}
}

// ID identifies the handle in logs.
func (f *File) ID() id.HandleID { return f.id }

// Filename returns the virtual path.
func (f *File) Filename() string { return f.filename }

// Mode returns the current mode.
func (f *File) Mode() Mode {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mode
}

// IsOpen reports whether the handle has a stream.
func (f *File) IsOpen() bool {
	return f.Mode() != ModeClosed
}

// Open opens the file in mode. Write and append modes set up the save
// directory first.
func (f *File) Open(mode Mode) error {
	if mode == ModeClosed {
		return nil
	}

	f.mu.Lock()
	if f.stream != nil {
		f.mu.Unlock()
		return fmt.Errorf("file '%s' is already open", f.filename)
	}
	f.mu.Unlock()

	if mode != ModeRead {
		if err := f.fsys.SetupWriteDirectory(); err != nil {
			return &fs.PathError{Op: "open", Path: f.filename, Err: fmt.Errorf("%w: %w", ErrCouldNotOpenFile, err)}
		}
	}

	stream, err := f.fsys.openStream(f.filename, mode)
	if err != nil {
		return &fs.PathError{Op: "open", Path: f.filename, Err: fmt.Errorf("%w: %w", ErrCouldNotOpenFile, err)}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.stream = stream
	f.mode = mode
	f.fsys.metrics.IncHandles()
	runtime.SetFinalizer(f, (*File).finalize)
	return nil
}

// Close releases the stream. Closing a closed file is a no-op.
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	runtime.SetFinalizer(f, nil)
	return f.closeLocked()
}

func (f *File) closeLocked() error {
	if f.stream == nil {
		return nil
	}
	err := f.stream.Close()
	f.stream = nil
	f.mode = ModeClosed
	f.fsys.metrics.DecHandles()
	return err
}

func (f *File) finalize() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stream != nil {
		f.fsys.log.Warn("File handle was not closed", zap.String("file", f.filename), zap.Stringer("handle", f.id))
		_ = f.closeLocked()
	}
}

// Read reads up to size bytes; a negative size reads everything that is
// left. Seekable streams are bounded by their remaining length, others by
// the filesystem's maximum read size. A read at end of stream returns empty
// data and closes the handle; a failed read closes it too.
func (f *File) Read(size int64) (*FileData, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.mode != ModeRead {
		return nil, &fs.PathError{Op: "read", Path: f.filename, Err: ErrFileNotOpenForReading}
	}

	limit := f.fsys.maxReadSize
	remaining, seekable := f.remainingLocked()
	if seekable {
		limit = remaining
	}
	if size >= 0 && size < limit {
		limit = size
	}

	var buf []byte
	if seekable {
		buf = make([]byte, limit)
		n, err := io.ReadFull(f.stream, buf)
		buf = buf[:n]
		if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) && n == 0 {
			_ = f.closeLocked()
			return nil, &fs.PathError{Op: "read", Path: f.filename, Err: err}
		}
	} else {
		var b bytes.Buffer
		_, err := b.ReadFrom(io.LimitReader(f.stream, limit))
		buf = b.Bytes()
		if err != nil && len(buf) == 0 {
			_ = f.closeLocked()
			return nil, &fs.PathError{Op: "read", Path: f.filename, Err: err}
		}
	}

	if len(buf) == 0 && size != 0 && remaining == 0 {
		_ = f.closeLocked()
	}

	f.fsys.metrics.AddBytesRead(len(buf))
	return newFileData(buf, f.filename), nil
}

// readRaw implements io.Reader semantics for the io/fs view.
func (f *File) readRaw(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.mode != ModeRead {
		return 0, &fs.PathError{Op: "read", Path: f.filename, Err: ErrFileNotOpenForReading}
	}
	n, err := f.stream.Read(p)
	f.fsys.metrics.AddBytesRead(n)
	return n, err
}

// remainingLocked returns the bytes left and whether the stream could tell.
func (f *File) remainingLocked() (int64, bool) {
	size, err := f.stream.Size()
	if err != nil {
		return -1, false
	}
	pos, err := f.stream.Tell()
	if err != nil {
		return -1, false
	}
	if pos > size {
		return 0, true
	}
	return size - pos, true
}

// Write writes all of data. A failed write closes the handle.
func (f *File) Write(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.mode != ModeWrite && f.mode != ModeAppend {
		return &fs.PathError{Op: "write", Path: f.filename, Err: ErrFileNotOpenForWriting}
	}

	n, err := f.stream.Write(data)
	f.fsys.metrics.AddBytesWritten(n)
	if err == nil && n != len(data) {
		err = io.ErrShortWrite
	}
	if err != nil {
		_ = f.closeLocked()
		return &fs.PathError{Op: "write", Path: f.filename, Err: fmt.Errorf("%w: %w", ErrDataNotWritten, err)}
	}
	return nil
}

// Flush commits buffered writes.
func (f *File) Flush() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.mode != ModeWrite && f.mode != ModeAppend {
		return &fs.PathError{Op: "flush", Path: f.filename, Err: ErrFileNotOpenForWriting}
	}
	return f.stream.Flush()
}

// Seek moves to an absolute position.
func (f *File) Seek(pos int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.stream == nil {
		return &fs.PathError{Op: "seek", Path: f.filename, Err: fs.ErrClosed}
	}
	if pos < 0 {
		return &fs.PathError{Op: "seek", Path: f.filename, Err: fs.ErrInvalid}
	}
	_, err := f.stream.Seek(pos, io.SeekStart)
	return err
}

// Tell returns the current position.
func (f *File) Tell() (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.stream == nil {
		return 0, &fs.PathError{Op: "tell", Path: f.filename, Err: fs.ErrClosed}
	}
	return f.stream.Tell()
}

// Size returns the file length.
func (f *File) Size() (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.stream == nil {
		info, ok := f.fsys.Info(f.filename)
		if !ok {
			return 0, &fs.PathError{Op: "size", Path: f.filename, Err: fs.ErrNotExist}
		}
		return info.Size, nil
	}
	return f.stream.Size()
}

// IsEOF reports whether a read handle has nothing left. Closed handles are
// at EOF.
func (f *File) IsEOF() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.stream == nil || f.mode != ModeRead {
		return f.stream == nil
	}
	remaining, ok := f.remainingLocked()
	return ok && remaining == 0
}

// Lines reads the rest of the file and splits it into lines without their
// terminators.
func (f *File) Lines() ([]string, error) {
	data, err := f.Read(-1)
	if err != nil {
		return nil, err
	}
	return splitLines(data.String()), nil
}

func splitLines(text string) []string {
	if text == "" {
		return []string{}
	}
	text = strings.TrimSuffix(text, "\n")
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}
