package archive

import (
	"bytes"
	"fmt"
	"io/fs"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/GriffinCanCode/AgentOS/vfs/internal/logging"
	"github.com/GriffinCanCode/AgentOS/vfs/internal/shared/paths"
	"github.com/hashicorp/go-multierror"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Backend owns the layer list and the write slot. The zero value is not
// usable; create one with New.
type Backend struct {
	mu          sync.RWMutex
	real        afero.Fs
	log         *logging.Logger
	initialized bool
	baseDir     string
	layers      []*layer
	writeDir    string
	writeFs     afero.Fs
	symlinks    bool
	lastErr     atomic.Pointer[string]
}

// Option configures a Backend.
type Option func(*Backend)

// WithFs replaces the real filesystem, which defaults to afero.NewOsFs.
func WithFs(real afero.Fs) Option {
	return func(b *Backend) {
		if real != nil {
			b.real = real
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(b *Backend) {
		b.log = logging.OrNop(l)
	}
}

// New creates an uninitialised backend.
func New(opts ...Option) *Backend {
	b := &Backend{
		real: afero.NewOsFs(),
		log:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Init prepares the backend. baseExecutablePath locates the base directory.
func (b *Backend) Init(baseExecutablePath string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.initialized {
		return b.fail(ErrAlreadyInitialized)
	}
	if baseExecutablePath != "" {
		b.baseDir = filepath.Dir(baseExecutablePath)
	}
	b.initialized = true
	b.log.Info("Archive backend initialized", zap.String("base_dir", b.baseDir))
	return nil
}

// Deinit unmounts everything and clears the write slot.
func (b *Backend) Deinit() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.initialized {
		return b.fail(ErrNotInitialized)
	}

	var result *multierror.Error
	for _, l := range b.layers {
		if err := l.close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("close %s: %w", l.key, err))
		}
	}
	b.layers = nil
	b.writeDir, b.writeFs = "", nil
	b.initialized = false
	b.log.Info("Archive backend shut down")
	return result.ErrorOrNil()
}

// Initialized reports whether Init has succeeded.
func (b *Backend) Initialized() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.initialized
}

// BaseDir returns the directory of the executable passed to Init.
func (b *Backend) BaseDir() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.baseDir
}

// Mount adds a real directory or archive file under mountPoint. A read-write
// mount first makes archivePath the write directory; if that fails nothing
// changes.
func (b *Backend) Mount(archivePath, mountPoint string, perm Permission, appendToPath bool) error {
	if err := paths.ValidateArchiveKey(archivePath); err != nil {
		return b.fail(err)
	}
	mp, err := paths.Normalize(mountPoint)
	if err != nil {
		return b.fail(err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.initialized {
		return b.fail(ErrNotInitialized)
	}
	if b.indexLocked(archivePath) >= 0 {
		return b.fail(fmt.Errorf("%w: %s", ErrDuplicateMount, archivePath))
	}

	prevDir, prevFs := b.writeDir, b.writeFs
	if perm == PermissionReadWrite {
		if err := b.setWriteDirLocked(archivePath); err != nil {
			return b.fail(err)
		}
	}

	l, err := b.openLayer(archivePath, perm)
	if err != nil {
		b.writeDir, b.writeFs = prevDir, prevFs
		return b.fail(err)
	}
	l.mountPoint = mp
	b.insertLocked(l, appendToPath)

	b.log.Info("Mounted archive",
		zap.String("archive", archivePath),
		zap.String("mount_point", "/"+mp),
		zap.Stringer("permission", perm),
		zap.Bool("append", appendToPath))
	return nil
}

// MountMemory mounts an in-memory zip or tar payload. The caller keeps buf
// alive and unmodified until Unmount.
func (b *Backend) MountMemory(buf []byte, key, mountPoint string, appendToPath bool) error {
	if err := paths.ValidateArchiveKey(key); err != nil {
		return b.fail(err)
	}
	mp, err := paths.Normalize(mountPoint)
	if err != nil {
		return b.fail(err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.initialized {
		return b.fail(ErrNotInitialized)
	}
	if b.indexLocked(key) >= 0 {
		return b.fail(fmt.Errorf("%w: %s", ErrDuplicateMount, key))
	}

	lfs, _, err := openArchive(bytes.NewReader(buf), int64(len(buf)))
	if err != nil {
		return b.fail(fmt.Errorf("%s: %w", key, err))
	}
	b.insertLocked(&layer{key: key, mountPoint: mp, fs: lfs}, appendToPath)

	b.log.Info("Mounted data",
		zap.String("key", key),
		zap.Int("size", len(buf)),
		zap.String("mount_point", "/"+mp),
		zap.Bool("append", appendToPath))
	return nil
}

// Unmount removes the layer for key. Unmounting the write directory clears
// the write slot.
func (b *Backend) Unmount(key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.initialized {
		return b.fail(ErrNotInitialized)
	}
	i := b.indexLocked(key)
	if i < 0 {
		return b.fail(fmt.Errorf("%w: %s", ErrNotMounted, key))
	}

	l := b.layers[i]
	b.layers = append(b.layers[:i], b.layers[i+1:]...)
	if l.real && key == b.writeDir {
		b.writeDir, b.writeFs = "", nil
		b.log.Info("Write directory cleared", zap.String("path", key))
	}
	if err := l.close(); err != nil {
		b.log.Warn("Failed to close archive", zap.String("key", key), zap.Error(err))
	}

	b.log.Info("Unmounted archive", zap.String("key", key))
	return nil
}

// Mounted reports whether key has a layer.
func (b *Backend) Mounted(key string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.indexLocked(key) >= 0
}

// MountPoint returns the virtual mount point of key.
func (b *Backend) MountPoint(key string) (string, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if i := b.indexLocked(key); i >= 0 {
		return "/" + b.layers[i].mountPoint, true
	}
	return "", false
}

// SearchPath lists mounted keys in lookup order.
func (b *Backend) SearchPath() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	keys := make([]string, len(b.layers))
	for i, l := range b.layers {
		keys[i] = l.key
	}
	return keys
}

// SetWriteDir points the write slot at a real directory. An empty path
// clears it.
func (b *Backend) SetWriteDir(path string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.initialized {
		return b.fail(ErrNotInitialized)
	}
	if err := b.setWriteDirLocked(path); err != nil {
		return b.fail(err)
	}
	b.log.Info("Write directory set", zap.String("path", path))
	return nil
}

// WriteDir returns the current write directory, or "" when unset.
func (b *Backend) WriteDir() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.writeDir
}

func (b *Backend) setWriteDirLocked(path string) error {
	if path == "" {
		b.writeDir, b.writeFs = "", nil
		return nil
	}

	isDir, err := afero.IsDir(b.real, path)
	if err != nil {
		return fmt.Errorf("set write directory: %w", err)
	}
	if !isDir {
		return &fs.PathError{Op: "setwritedir", Path: path, Err: ErrNotDirectory}
	}
	b.writeDir = path
	b.writeFs = afero.NewBasePathFs(b.real, path)
	return nil
}

// PermitSymbolicLinks controls whether symlinks inside real directories are
// visible.
func (b *Backend) PermitSymbolicLinks(permit bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.symlinks = permit
}

// SymbolicLinksPermitted reports the symlink policy.
func (b *Backend) SymbolicLinksPermitted() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.symlinks
}

// UserDir returns the user's home directory.
func (b *Backend) UserDir() (string, error) {
	return homedir.Dir()
}

// LastError returns the message of the most recent failure.
func (b *Backend) LastError() string {
	if msg := b.lastErr.Load(); msg != nil {
		return *msg
	}
	return ""
}

// IsRealDirectory reports whether path is a directory on the real
// filesystem. It is false before Init.
func (b *Backend) IsRealDirectory(path string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.initialized {
		return false
	}
	ok, err := afero.IsDir(b.real, path)
	return err == nil && ok
}

// MkdirAllReal creates a directory and its parents on the real filesystem.
func (b *Backend) MkdirAllReal(path string) error {
	b.mu.RLock()
	initialized := b.initialized
	b.mu.RUnlock()

	if !initialized {
		return b.fail(ErrNotInitialized)
	}
	if err := b.real.MkdirAll(path, 0o755); err != nil {
		return b.fail(err)
	}
	return nil
}

func (b *Backend) indexLocked(key string) int {
	for i, l := range b.layers {
		if l.key == key {
			return i
		}
	}
	return -1
}

func (b *Backend) insertLocked(l *layer, appendToPath bool) {
	if appendToPath {
		b.layers = append(b.layers, l)
		return
	}
	b.layers = append([]*layer{l}, b.layers...)
}

func (b *Backend) fail(err error) error {
	msg := err.Error()
	b.lastErr.Store(&msg)
	return err
}
