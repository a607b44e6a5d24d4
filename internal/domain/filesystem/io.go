package filesystem

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/GriffinCanCode/AgentOS/vfs/internal/infrastructure/archive"
	"github.com/GriffinCanCode/AgentOS/vfs/internal/infrastructure/monitoring"
)

// OpenFile returns a handle on name opened in mode. ModeClosed returns an
// unopened handle.
func (f *Filesystem) OpenFile(name string, mode Mode) (*File, error) {
	file := newFile(f, name)
	if err := file.Open(mode); err != nil {
		return nil, err
	}
	return file, nil
}

// openStream is called by File.Open after any write directory setup.
func (f *Filesystem) openStream(name string, mode Mode) (*archive.Stream, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	switch mode {
	case ModeRead:
		return f.backend.OpenRead(name)
	case ModeWrite:
		return f.backend.OpenWrite(name)
	case ModeAppend:
		return f.backend.OpenAppend(name)
	}
	return nil, fmt.Errorf("cannot open a stream in mode '%s'", mode)
}

// Read reads up to size bytes from the start of name. A negative size reads
// the whole file.
func (f *Filesystem) Read(name string, size int64) (*FileData, error) {
	defer monitoring.NewTimer(f.metrics, "read").Stop()

	file, err := f.OpenFile(name, ModeRead)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return file.Read(size)
}

// ReadAll reads the whole of name.
func (f *Filesystem) ReadAll(name string) (*FileData, error) {
	return f.Read(name, -1)
}

// Write replaces name in the save directory with data.
func (f *Filesystem) Write(name string, data []byte) error {
	defer monitoring.NewTimer(f.metrics, "write").Stop()
	return f.writeWith(name, data, ModeWrite)
}

// Append adds data to the end of name in the save directory.
func (f *Filesystem) Append(name string, data []byte) error {
	defer monitoring.NewTimer(f.metrics, "append").Stop()
	return f.writeWith(name, data, ModeAppend)
}

func (f *Filesystem) writeWith(name string, data []byte, mode Mode) error {
	file, err := f.OpenFile(name, mode)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDataNotWritten, err)
	}
	if err := file.Write(data); err != nil {
		return errors.Join(err, file.Close())
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("%w: %w", ErrDataNotWritten, err)
	}
	return nil
}

// Lines returns the lines of name without their terminators.
func (f *Filesystem) Lines(name string) ([]string, error) {
	data, err := f.ReadAll(name)
	if err != nil {
		return nil, err
	}
	return splitLines(data.String()), nil
}

// Info describes name without following a final symlink.
func (f *Filesystem) Info(name string) (Info, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	info, err := f.backend.Stat(name)
	if err != nil {
		return Info{}, false
	}
	return info, true
}

// Exists reports whether name resolves to anything.
func (f *Filesystem) Exists(name string) bool {
	_, ok := f.Info(name)
	return ok
}

// CreateDirectory creates name and its parents in the save directory.
func (f *Filesystem) CreateDirectory(name string) error {
	if err := f.SetupWriteDirectory(); err != nil {
		return err
	}

	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.backend.Mkdir(name)
}

// Remove deletes a file or empty directory from the save directory.
func (f *Filesystem) Remove(name string) error {
	if err := f.SetupWriteDirectory(); err != nil {
		return err
	}

	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.backend.Remove(name)
}

// DirectoryItems lists dir across all mounts. An empty directory yields an
// empty list; a missing one yields false.
func (f *Filesystem) DirectoryItems(dir string) ([]string, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	items, err := f.backend.Enumerate(dir)
	if err != nil {
		return nil, false
	}
	if items == nil {
		items = []string{}
	}
	return items, true
}

// statErr is Info with an error for the io/fs view.
func (f *Filesystem) statErr(op, name string) (Info, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	info, err := f.backend.Stat(name)
	if err != nil {
		var pe *fs.PathError
		if errors.As(err, &pe) {
			return Info{}, err
		}
		return Info{}, &fs.PathError{Op: op, Path: name, Err: err}
	}
	return info, nil
}
