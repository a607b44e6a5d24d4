package filesystem

import (
	"path"
	"strings"

	"github.com/GriffinCanCode/AgentOS/vfs/internal/shared/ref"
	"github.com/gabriel-vasile/mimetype"
)

// FileData is an immutable buffer holding the contents of a file. It is
// reference counted so it can also back a data mount.
type FileData struct {
	ref.Counter

	data      []byte
	filename  string
	name      string
	extension string
}

// NewFileData copies data into a new buffer named after filename.
func NewFileData(data []byte, filename string) *FileData {
	return newFileData(append([]byte(nil), data...), filename)
}

// newFileData takes ownership of data.
func newFileData(data []byte, filename string) *FileData {
	if data == nil {
		data = []byte{}
	}

	fd := &FileData{
		data:     data,
		filename: filename,
		name:     path.Base(filename),
	}
	if filename == "" {
		fd.name = ""
	}
	if ext := path.Ext(fd.name); ext != "" && ext != fd.name {
		fd.extension = strings.TrimPrefix(ext, ".")
	}
	fd.Init(func() { fd.data = nil })
	return fd
}

// Bytes returns the contents. Callers must not modify them.
func (d *FileData) Bytes() []byte { return d.data }

// Size returns the length of the contents.
func (d *FileData) Size() int { return len(d.data) }

// Filename returns the virtual path the data was read from.
func (d *FileData) Filename() string { return d.filename }

// Name returns the last path element of the filename.
func (d *FileData) Name() string { return d.name }

// Extension returns the filename extension without the dot.
func (d *FileData) Extension() string { return d.extension }

// String returns the contents as text.
func (d *FileData) String() string { return string(d.data) }

// Clone returns a deep copy with its own reference count.
func (d *FileData) Clone() *FileData {
	return NewFileData(d.data, d.filename)
}

// MimeType sniffs the media type of the contents.
func (d *FileData) MimeType() string {
	return mimetype.Detect(d.data).String()
}
