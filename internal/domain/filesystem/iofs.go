package filesystem

import (
	"errors"
	"io"
	"io/fs"
	"time"

	"github.com/GriffinCanCode/AgentOS/vfs/internal/infrastructure/archive"
	"github.com/GriffinCanCode/AgentOS/vfs/internal/shared/paths"
	"github.com/bmatcuk/doublestar/v4"
)

// FS returns a read-only io/fs view of the merged namespace.
func (f *Filesystem) FS() fs.FS {
	return ioFS{fsys: f}
}

// Glob returns the virtual paths matching a doublestar pattern such as
// "levels/**/*.map".
func (f *Filesystem) Glob(pattern string) ([]string, error) {
	return doublestar.Glob(f.FS(), pattern)
}

type ioFS struct {
	fsys *Filesystem
}

var (
	_ fs.ReadDirFS = ioFS{}
	_ fs.StatFS    = ioFS{}
)

func (v ioFS) Open(name string) (fs.File, error) {
	info, err := v.stat("open", name)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return &ioDir{fsys: v, name: name, info: info}, nil
	}

	file, err := v.fsys.OpenFile(name, ModeRead)
	if err != nil {
		return nil, err
	}
	return &ioFile{file: file, info: info}, nil
}

func (v ioFS) Stat(name string) (fs.FileInfo, error) {
	info, err := v.stat("stat", name)
	if err != nil {
		return nil, err
	}
	return info, nil
}

func (v ioFS) ReadDir(name string) ([]fs.DirEntry, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrInvalid}
	}
	dir := virtualName(name)

	v.fsys.mu.RLock()
	names, err := v.fsys.backend.Enumerate(dir)
	v.fsys.mu.RUnlock()
	if err != nil {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: err}
	}

	entries := make([]fs.DirEntry, 0, len(names))
	for _, n := range names {
		info, err := v.fsys.statErr("readdir", paths.Join(dir, n))
		if err != nil {
			continue
		}
		entries = append(entries, fs.FileInfoToDirEntry(fileInfo{name: n, info: info}))
	}
	return entries, nil
}

func (v ioFS) stat(op, name string) (fileInfo, error) {
	if !fs.ValidPath(name) {
		return fileInfo{}, &fs.PathError{Op: op, Path: name, Err: fs.ErrInvalid}
	}
	virtual := virtualName(name)
	if virtual == paths.Root {
		return fileInfo{name: ".", info: Info{Type: archive.FileTypeDirectory, ReadOnly: true}}, nil
	}

	info, err := v.fsys.statErr(op, virtual)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fileInfo{}, &fs.PathError{Op: op, Path: name, Err: fs.ErrNotExist}
		}
		return fileInfo{}, err
	}
	return fileInfo{name: paths.Base(virtual), info: info}, nil
}

func virtualName(name string) string {
	if name == "." {
		return paths.Root
	}
	return name
}

type ioFile struct {
	file *File
	info fileInfo
}

func (f *ioFile) Stat() (fs.FileInfo, error) { return f.info, nil }

func (f *ioFile) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	return f.file.readRaw(p)
}

func (f *ioFile) Close() error { return f.file.Close() }

type ioDir struct {
	fsys    ioFS
	name    string
	info    fileInfo
	entries []fs.DirEntry
	read    bool
	offset  int
}

func (d *ioDir) Stat() (fs.FileInfo, error) { return d.info, nil }

func (d *ioDir) Read([]byte) (int, error) {
	return 0, &fs.PathError{Op: "read", Path: d.name, Err: archive.ErrIsDirectory}
}

func (d *ioDir) Close() error { return nil }

func (d *ioDir) ReadDir(n int) ([]fs.DirEntry, error) {
	if !d.read {
		entries, err := d.fsys.ReadDir(d.name)
		if err != nil {
			return nil, err
		}
		d.entries = entries
		d.read = true
	}

	rest := d.entries[d.offset:]
	if n <= 0 {
		d.offset = len(d.entries)
		return rest, nil
	}
	if len(rest) == 0 {
		return nil, io.EOF
	}
	if n > len(rest) {
		n = len(rest)
	}
	d.offset += n
	return rest[:n], nil
}

// fileInfo adapts Info to fs.FileInfo.
type fileInfo struct {
	name string
	info Info
}

func (i fileInfo) Name() string       { return i.name }
func (i fileInfo) Size() int64        { return i.info.Size }
func (i fileInfo) ModTime() time.Time { return i.info.ModTime }
func (i fileInfo) IsDir() bool        { return i.info.IsDir() }
func (i fileInfo) Sys() any           { return i.info }

func (i fileInfo) Mode() fs.FileMode {
	perm := fs.FileMode(0o644)
	if i.info.ReadOnly {
		perm = 0o444
	}
	switch i.info.Type {
	case archive.FileTypeDirectory:
		return fs.ModeDir | perm | 0o111
	case archive.FileTypeSymlink:
		return fs.ModeSymlink | perm
	case archive.FileTypeOther:
		return fs.ModeIrregular | perm
	}
	return perm
}
