package filesystem

import (
	"context"
	"os"
	"sync/atomic"

	"github.com/charlievieth/fastwalk"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Usage summarises the contents of the save directory on disk.
type Usage struct {
	Path        string `json:"path"`
	Files       int64  `json:"files"`
	Directories int64  `json:"directories"`
	Bytes       int64  `json:"bytes"`
}

// SaveUsage walks the save directory. A save directory that was never
// created reports zero usage.
func (f *Filesystem) SaveUsage(ctx context.Context) (Usage, error) {
	dir, err := f.SaveDirectory()
	if err != nil {
		return Usage{}, err
	}
	if dir == "" {
		return Usage{}, ErrIdentityRequired
	}

	usage := Usage{Path: dir}
	if !f.backend.IsRealDirectory(dir) {
		return usage, nil
	}
	if f.realFs != nil {
		if _, ok := f.realFs.(*afero.OsFs); !ok {
			return f.walkUsage(ctx, usage)
		}
	}

	var files, dirs, size atomic.Int64
	conf := fastwalk.Config{Follow: false}
	err = fastwalk.Walk(&conf, dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			f.log.Debug("Skipping unreadable entry", zap.String("path", path), zap.Error(err))
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if path == dir {
			return nil
		}
		if d.IsDir() {
			dirs.Add(1)
			return nil
		}
		files.Add(1)
		if d.Type().IsRegular() {
			if info, err := d.Info(); err == nil {
				size.Add(info.Size())
			}
		}
		return nil
	})
	if err != nil {
		return Usage{}, err
	}

	usage.Files = files.Load()
	usage.Directories = dirs.Load()
	usage.Bytes = size.Load()
	return usage, nil
}

// walkUsage counts the save directory through an injected afero Fs, which
// fastwalk cannot see.
func (f *Filesystem) walkUsage(ctx context.Context, usage Usage) (Usage, error) {
	err := afero.Walk(f.realFs, usage.Path, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			f.log.Debug("Skipping unreadable entry", zap.String("path", path), zap.Error(err))
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		switch {
		case path == usage.Path:
		case info.IsDir():
			usage.Directories++
		default:
			usage.Files++
			if info.Mode().IsRegular() {
				usage.Bytes += info.Size()
			}
		}
		return nil
	})
	if err != nil {
		return Usage{}, err
	}
	return usage, nil
}
