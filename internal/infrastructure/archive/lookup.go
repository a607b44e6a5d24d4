package archive

import (
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/GriffinCanCode/AgentOS/vfs/internal/shared/paths"
	"github.com/spf13/afero"
)

// Stat describes a virtual path. Symlinks are reported as FileTypeSymlink
// when permitted and are absent otherwise.
func (b *Backend) Stat(path string) (Info, error) {
	p, err := paths.Normalize(path)
	if err != nil {
		return Info{}, err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.initialized {
		return Info{}, ErrNotInitialized
	}
	info, _, err := b.statLocked(p, false)
	return info, err
}

// Exists reports whether a virtual path resolves to anything.
func (b *Backend) Exists(path string) bool {
	_, err := b.Stat(path)
	return err == nil
}

// Enumerate lists the entries of a virtual directory across every layer that
// covers it, plus the next segment of any mount point below it. Names are
// deduplicated and sorted.
func (b *Backend) Enumerate(dir string) ([]string, error) {
	p, err := paths.Normalize(dir)
	if err != nil {
		return nil, err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.initialized {
		return nil, ErrNotInitialized
	}

	info, _, err := b.statLocked(p, true)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, &fs.PathError{Op: "readdir", Path: dir, Err: ErrNotDirectory}
	}

	seen := make(map[string]struct{})
	for _, l := range b.layers {
		if rel, ok := paths.Relative(l.mountPoint, p); ok {
			names, err := b.readDirInLayer(l, rel)
			if err != nil {
				continue
			}
			for _, name := range names {
				seen[name] = struct{}{}
			}
		} else if seg, ok := paths.NextSegment(p, l.mountPoint); ok {
			seen[seg] = struct{}{}
		}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// RealDir returns the key of the layer that provides path.
func (b *Backend) RealDir(path string) (string, error) {
	p, err := paths.Normalize(path)
	if err != nil {
		return "", err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.initialized {
		return "", ErrNotInitialized
	}
	_, l, err := b.statLocked(p, true)
	if err != nil {
		return "", err
	}
	if l == nil {
		return "", &fs.PathError{Op: "realdir", Path: path, Err: fs.ErrNotExist}
	}
	return l.key, nil
}

// OpenRead opens the highest priority file at path.
func (b *Backend) OpenRead(path string) (*Stream, error) {
	p, err := paths.Normalize(path)
	if err != nil {
		return nil, err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.initialized {
		return nil, ErrNotInitialized
	}

	info, l, err := b.statLocked(p, true)
	if err != nil {
		return nil, err
	}
	if info.IsDir() || l == nil {
		return nil, &fs.PathError{Op: "open", Path: path, Err: ErrIsDirectory}
	}

	rel, _ := paths.Relative(l.mountPoint, p)
	f, err := l.fs.Open("/" + rel)
	if err != nil {
		return nil, err
	}
	return newStream(f, p, false), nil
}

// OpenWrite creates or truncates path in the write directory.
func (b *Backend) OpenWrite(path string) (*Stream, error) {
	return b.openWritable(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC)
}

// OpenAppend opens path in the write directory for appending.
func (b *Backend) OpenAppend(path string) (*Stream, error) {
	return b.openWritable(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND)
}

func (b *Backend) openWritable(path string, flag int) (*Stream, error) {
	p, err := paths.Normalize(path)
	if err != nil {
		return nil, err
	}
	if p == paths.Root {
		return nil, &fs.PathError{Op: "open", Path: path, Err: ErrIsDirectory}
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	wfs, err := b.writeFsLocked()
	if err != nil {
		return nil, err
	}
	f, err := wfs.OpenFile("/"+p, flag, 0o644)
	if err != nil {
		return nil, b.fail(err)
	}
	return newStream(f, p, true), nil
}

// Mkdir creates a directory and its parents in the write directory.
func (b *Backend) Mkdir(path string) error {
	p, err := paths.Normalize(path)
	if err != nil {
		return err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	wfs, err := b.writeFsLocked()
	if err != nil {
		return err
	}
	if err := wfs.MkdirAll("/"+p, 0o755); err != nil {
		return b.fail(err)
	}
	return nil
}

// Remove deletes a file or empty directory from the write directory.
func (b *Backend) Remove(path string) error {
	p, err := paths.Normalize(path)
	if err != nil {
		return err
	}
	if p == paths.Root {
		return fmt.Errorf("%w: cannot remove the root", paths.ErrInvalidPath)
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	wfs, err := b.writeFsLocked()
	if err != nil {
		return err
	}
	if err := wfs.Remove("/" + p); err != nil {
		return b.fail(err)
	}
	return nil
}

func (b *Backend) writeFsLocked() (afero.Fs, error) {
	if !b.initialized {
		return nil, ErrNotInitialized
	}
	if b.writeFs == nil {
		return nil, b.fail(ErrNoWriteDir)
	}
	return b.writeFs, nil
}

// statLocked finds the layer providing p. A nil layer with a nil error means
// p is a directory materialised by a mount point.
func (b *Backend) statLocked(p string, follow bool) (Info, *layer, error) {
	if p == paths.Root {
		return Info{Type: FileTypeDirectory, ReadOnly: b.writeFs == nil}, nil, nil
	}

	for _, l := range b.layers {
		rel, ok := paths.Relative(l.mountPoint, p)
		if !ok {
			continue
		}
		if info, err := b.statInLayer(l, rel, follow); err == nil {
			return info, l, nil
		}
	}

	for _, l := range b.layers {
		if _, ok := paths.NextSegment(p, l.mountPoint); ok {
			return Info{Type: FileTypeDirectory, ReadOnly: true}, nil, nil
		}
	}

	return Info{}, nil, &fs.PathError{Op: "stat", Path: p, Err: fs.ErrNotExist}
}

func (b *Backend) statInLayer(l *layer, rel string, follow bool) (Info, error) {
	name := "/" + rel
	if !b.symlinks && b.crossesSymlink(l, rel) {
		return Info{}, fs.ErrNotExist
	}

	var (
		fi  os.FileInfo
		err error
	)
	if lst, ok := l.fs.(afero.Lstater); ok && !follow {
		fi, _, err = lst.LstatIfPossible(name)
	} else {
		fi, err = l.fs.Stat(name)
	}
	if err != nil {
		return Info{}, err
	}

	return Info{
		Type:     fileType(fi.Mode()),
		Size:     fi.Size(),
		ModTime:  fi.ModTime(),
		ReadOnly: !(l.real && l.key == b.writeDir),
	}, nil
}

func (b *Backend) readDirInLayer(l *layer, rel string) ([]string, error) {
	if !b.symlinks && b.crossesSymlink(l, rel) {
		return nil, fs.ErrNotExist
	}

	infos, err := afero.ReadDir(l.fs, "/"+rel)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(infos))
	for _, fi := range infos {
		if !b.symlinks && fi.Mode()&os.ModeSymlink != 0 {
			continue
		}
		// tarfs lists its pseudo root as "/".
		switch name := fi.Name(); name {
		case "", ".", "/":
			continue
		default:
			names = append(names, name)
		}
	}
	return names, nil
}

// crossesSymlink reports whether any segment of rel inside a real directory
// layer is a symlink.
func (b *Backend) crossesSymlink(l *layer, rel string) bool {
	if !l.real || rel == paths.Root {
		return false
	}
	lst, ok := l.fs.(afero.Lstater)
	if !ok {
		return false
	}

	prefix := ""
	for _, segment := range strings.Split(rel, "/") {
		prefix = paths.Join(prefix, segment)
		fi, called, err := lst.LstatIfPossible("/" + prefix)
		if err != nil || !called {
			return false
		}
		if fi.Mode()&os.ModeSymlink != 0 {
			return true
		}
	}
	return false
}

func fileType(mode fs.FileMode) FileType {
	switch {
	case mode&fs.ModeSymlink != 0:
		return FileTypeSymlink
	case mode.IsDir():
		return FileTypeDirectory
	case mode.IsRegular():
		return FileTypeFile
	default:
		return FileTypeOther
	}
}
