package filesystem

import (
	"github.com/GriffinCanCode/AgentOS/vfs/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/vfs/internal/logging"
	"github.com/GriffinCanCode/AgentOS/vfs/internal/shared/paths"
	"github.com/spf13/afero"
)

const (
	// DefaultMaxReadSize bounds reads from streams of unknown length.
	DefaultMaxReadSize int64 = 64 << 20

	// DefaultRequirePath is the module search path.
	DefaultRequirePath = "?.lua;?/init.lua"
)

// Option configures a Filesystem.
type Option func(*Filesystem)

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(f *Filesystem) {
		f.log = logging.OrNop(l)
	}
}

// WithMetrics enables metrics collection.
func WithMetrics(m *monitoring.Metrics) Option {
	return func(f *Filesystem) {
		f.metrics = m
	}
}

// WithPlatform replaces the OS lookups for user directories.
func WithPlatform(p paths.Platform) Option {
	return func(f *Filesystem) {
		f.platform = p
	}
}

// WithAppdataFolder sets the folder that holds save directories of
// applications that are not fused.
func WithAppdataFolder(folder string) Option {
	return func(f *Filesystem) {
		if folder != "" {
			f.appdataFolder = folder
		}
	}
}

// WithFs replaces the real filesystem underneath every directory mount.
func WithFs(fs afero.Fs) Option {
	return func(f *Filesystem) {
		f.realFs = fs
	}
}

// WithAllowedMountPaths adds real paths that Mount accepts verbatim.
func WithAllowedMountPaths(allowed ...string) Option {
	return func(f *Filesystem) {
		for _, p := range allowed {
			if p != "" {
				f.allowed[p] = true
			}
		}
	}
}

// WithMaxReadSize bounds reads from streams of unknown length.
func WithMaxReadSize(n int64) Option {
	return func(f *Filesystem) {
		if n > 0 {
			f.maxReadSize = n
		}
	}
}

// WithRequirePath sets the module search path.
func WithRequirePath(p string) Option {
	return func(f *Filesystem) {
		f.requirePath = splitRequirePath(p)
	}
}
