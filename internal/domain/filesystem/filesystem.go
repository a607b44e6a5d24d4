package filesystem

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/GriffinCanCode/AgentOS/vfs/internal/domain/mount"
	"github.com/GriffinCanCode/AgentOS/vfs/internal/infrastructure/archive"
	"github.com/GriffinCanCode/AgentOS/vfs/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/vfs/internal/logging"
	"github.com/GriffinCanCode/AgentOS/vfs/internal/shared/paths"
	"github.com/hashicorp/go-multierror"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Info describes a virtual path.
type Info = archive.Info

// Permission selects read-only or read-write mounts.
type Permission = archive.Permission

const (
	PermissionRead      = archive.PermissionRead
	PermissionReadWrite = archive.PermissionReadWrite
)

// Filesystem is the virtual filesystem. All methods are safe for concurrent
// use.
type Filesystem struct {
	mu sync.RWMutex

	log           *logging.Logger
	metrics       *monitoring.Metrics
	platform      paths.Platform
	appdataFolder string
	realFs        afero.Fs

	backend *archive.Backend
	table   *mount.Table

	allowed     map[string]bool
	maxReadSize int64
	requirePath []string

	source         string
	executablePath string

	workingDirOnce sync.Once
	workingDir     string
}

// New creates a filesystem. Init must be called before use.
func New(opts ...Option) *Filesystem {
	f := &Filesystem{
		log:           logging.NewNop(),
		appdataFolder: paths.DefaultAppdataFolder,
		allowed:       make(map[string]bool),
		maxReadSize:   DefaultMaxReadSize,
		requirePath:   splitRequirePath(DefaultRequirePath),
	}
	for _, opt := range opts {
		opt(f)
	}

	backendOpts := []archive.Option{archive.WithLogger(f.log.Named("archive"))}
	if f.realFs != nil {
		backendOpts = append(backendOpts, archive.WithFs(f.realFs))
	}
	f.backend = archive.New(backendOpts...)
	f.table = mount.NewTable(f.backend, paths.NewResolver(f.platform, f.appdataFolder), f.log.Named("mount"))
	return f
}

// Init starts the backend. arg0 is the first process argument; it locates
// the executable and the platform roots derived from it.
func (f *Filesystem) Init(arg0 string) error {
	exe, err := paths.ApplicationPath(arg0)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInitialization, err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.backend.Init(exe); err != nil {
		return fmt.Errorf("%w: %w", ErrInitialization, err)
	}
	f.backend.PermitSymbolicLinks(true)
	f.executablePath = exe
	f.table.SetExecutablePath(exe)

	f.log.Info("Filesystem initialized", zap.String("executable", exe))
	return nil
}

// Close unmounts everything and shuts the backend down.
func (f *Filesystem) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	var result *multierror.Error
	if err := f.table.Clear(); err != nil {
		result = multierror.Append(result, err)
	}
	if f.backend.Initialized() {
		if err := f.backend.Deinit(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	f.source = ""
	f.metrics.SetMountsActive(0)

	f.log.Info("Filesystem closed")
	return result.ErrorOrNil()
}

// SetFused marks the application as fused with its executable. Only the
// first call has an effect.
func (f *Filesystem) SetFused(fused bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.table.SetFused(fused)
}

// IsFused reports the fused flag.
func (f *Filesystem) IsFused() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.table.Fused()
}

// SetIdentity switches the identity, moving the save directory and other
// app-scoped mounts to the new location. Remount failures are returned
// aggregated; the new identity stays in effect.
func (f *Filesystem) SetIdentity(name string, appendToPath bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	err := f.table.SetIdentity(name, appendToPath)
	f.metrics.RecordIdentitySwap(err)
	f.syncMetricsLocked()
	return err
}

// Identity returns the current identity.
func (f *Filesystem) Identity() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.table.Identity()
}

// SetupWriteDirectory creates and mounts the save directory if that was
// deferred. It fails when no identity is set.
func (f *Filesystem) SetupWriteDirectory() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	err := f.table.SetupWriteDirectory()
	f.syncMetricsLocked()
	return err
}

// SetSource mounts the application source read-only at the root, behind
// everything else. It can be set once. The empty path and the filesystem
// root are rejected.
func (f *Filesystem) SetSource(source string) error {
	if source == "" {
		return fmt.Errorf("%w: empty source", ErrInvalidPath)
	}
	abs, err := filepath.Abs(source)
	if err != nil {
		return err
	}
	if abs == filepath.VolumeName(abs)+string(filepath.Separator) {
		return fmt.Errorf("%w: the root cannot be used as the source", ErrInvalidPath)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.source != "" {
		return fmt.Errorf("%w: %s", ErrSourceAlreadySet, f.source)
	}
	err = f.table.MountPath(abs, paths.Root, archive.PermissionRead, true)
	f.metrics.RecordMountOp("source", err)
	if err != nil {
		return err
	}
	f.source = abs
	f.syncMetricsLocked()
	return nil
}

// Source returns the mounted source path, or "".
func (f *Filesystem) Source() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.source
}

// SetSymlinksEnabled controls whether symlinks inside real directories are
// visible.
func (f *Filesystem) SetSymlinksEnabled(enabled bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.backend.PermitSymbolicLinks(enabled)
}

// SymlinksEnabled reports the symlink policy.
func (f *Filesystem) SymlinksEnabled() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.backend.SymbolicLinksPermitted()
}

// Mounts returns the mount table in lookup order.
func (f *Filesystem) Mounts() []mount.Entry {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.table.Entries()
}

// FullCommonPath returns the concrete location of cp, or "" for app-scoped
// paths while no identity is set.
func (f *Filesystem) FullCommonPath(cp paths.CommonPath) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.table.FullPath(cp)
}

// WorkingDirectory returns the process working directory at first call.
func (f *Filesystem) WorkingDirectory() string {
	f.workingDirOnce.Do(func() {
		wd, err := os.Getwd()
		if err != nil {
			f.log.Warn("Failed to read working directory", zap.Error(err))
			return
		}
		f.workingDir = wd
	})
	return f.workingDir
}

// UserDirectory returns the user's home directory.
func (f *Filesystem) UserDirectory() (string, error) {
	return f.backend.UserDir()
}

// AppdataDirectory returns the platform application data root.
func (f *Filesystem) AppdataDirectory() (string, error) {
	return f.FullCommonPath(paths.UserAppData)
}

// SaveDirectory returns the identity's save directory, or "" without an
// identity.
func (f *Filesystem) SaveDirectory() (string, error) {
	return f.FullCommonPath(paths.AppSaveDir)
}

// SourceBaseDirectory returns the directory containing the source.
func (f *Filesystem) SourceBaseDirectory() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return paths.SourceBaseDirectory(f.source)
}

// RealDirectory returns the real path or archive that provides name.
func (f *Filesystem) RealDirectory(name string) (string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.backend.RealDir(name)
}

// ExecutablePath returns the path resolved by Init.
func (f *Filesystem) ExecutablePath() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.executablePath
}

func (f *Filesystem) syncMetricsLocked() {
	f.metrics.SetMountsActive(len(f.table.Entries()))
}
