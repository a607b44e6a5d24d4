package filesystem

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/GriffinCanCode/AgentOS/vfs/internal/shared/id"
	"github.com/GriffinCanCode/AgentOS/vfs/internal/shared/paths"
	"github.com/GriffinCanCode/AgentOS/vfs/internal/shared/ref"
)

// Mount mounts a directory or archive that is already visible in the
// virtual filesystem, read-only, at mountPoint. Paths on the allow-list
// are taken as real paths. Nothing inside the source may be mounted.
func (f *Filesystem) Mount(archivePath, mountPoint string, appendToPath bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	full, err := f.resolveArchiveLocked(archivePath)
	if err == nil {
		err = f.table.MountPath(full, mountPoint, PermissionRead, appendToPath)
	}
	f.metrics.RecordMountOp("mount", err)
	f.syncMetricsLocked()
	return err
}

// MountData mounts an in-memory zip or tar archive. An empty archive name
// uses the filename of a FileData, or a generated key. The mount holds a
// reference to data until it is unmounted.
func (f *Filesystem) MountData(data ref.Data, archiveName, mountPoint string, appendToPath bool) error {
	if archiveName == "" {
		if fd, ok := data.(*FileData); ok {
			archiveName = fd.Filename()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	_, err := f.table.MountData(data, archiveName, mountPoint, appendToPath)
	f.metrics.RecordMountOp("mount_data", err)
	f.syncMetricsLocked()
	return err
}

// MountFullPath mounts a real directory or archive by its real path.
func (f *Filesystem) MountFullPath(fullPath, mountPoint string, perm Permission, appendToPath bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	err := f.table.MountPath(fullPath, mountPoint, perm, appendToPath)
	f.metrics.RecordMountOp("mount_full_path", err)
	f.syncMetricsLocked()
	return err
}

// MountCommonPath mounts a common path, creating app-scoped directories
// that do not exist yet.
func (f *Filesystem) MountCommonPath(cp paths.CommonPath, mountPoint string, perm Permission, appendToPath bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	err := f.table.MountCommon(cp, mountPoint, perm, appendToPath)
	f.metrics.RecordMountOp("mount_common_path", err)
	f.syncMetricsLocked()
	return err
}

// Unmount reverses Mount. Data mounts can be unmounted by their name too.
func (f *Filesystem) Unmount(archivePath string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	var err error
	if e, ok := f.table.Lookup(archivePath); ok && e.Data != nil {
		err = f.table.Unmount(archivePath)
	} else {
		var full string
		full, err = f.resolveArchiveLocked(archivePath)
		if err == nil {
			err = f.table.Unmount(full)
		}
	}
	f.metrics.RecordMountOp("unmount", err)
	f.syncMetricsLocked()
	return err
}

// UnmountData unmounts the mount holding data.
func (f *Filesystem) UnmountData(data ref.Data) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	err := f.table.UnmountData(data)
	f.metrics.RecordMountOp("unmount_data", err)
	f.syncMetricsLocked()
	return err
}

// UnmountFullPath reverses MountFullPath.
func (f *Filesystem) UnmountFullPath(fullPath string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	err := f.table.Unmount(fullPath)
	f.metrics.RecordMountOp("unmount_full_path", err)
	f.syncMetricsLocked()
	return err
}

// UnmountCommonPath reverses MountCommonPath.
func (f *Filesystem) UnmountCommonPath(cp paths.CommonPath) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	err := f.table.UnmountCommon(cp)
	f.metrics.RecordMountOp("unmount_common_path", err)
	f.syncMetricsLocked()
	return err
}

// AllowMountPath lets Mount accept fullPath as a real path.
func (f *Filesystem) AllowMountPath(fullPath string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.allowed[fullPath] = true
}

// resolveArchiveLocked maps the argument of Mount or Unmount to the real
// path that backs it.
func (f *Filesystem) resolveArchiveLocked(archivePath string) (string, error) {
	if f.allowed[archivePath] {
		return archivePath, nil
	}
	if f.table.Fused() && f.source != "" && archivePath == paths.SourceBaseDirectory(f.source) {
		return archivePath, nil
	}

	if archivePath == "" || archivePath == "/" {
		return "", fmt.Errorf("%w: '%s' cannot be mounted", ErrInvalidPath, archivePath)
	}
	virtual, err := paths.Normalize(archivePath)
	if err != nil {
		return "", err
	}
	if virtual == paths.Root {
		return "", fmt.Errorf("%w: '%s' cannot be mounted", ErrInvalidPath, archivePath)
	}

	realDir, err := f.backend.RealDir(virtual)
	if err != nil {
		return "", err
	}
	if id.IsDataKey(realDir) {
		return "", fmt.Errorf("%w: '%s' lives in an in-memory archive", ErrMountNotAllowed, archivePath)
	}
	if f.source != "" && (realDir == f.source || strings.HasPrefix(realDir, f.source+string(filepath.Separator))) {
		return "", fmt.Errorf("%w: '%s' lives inside the source", ErrMountNotAllowed, archivePath)
	}

	mountPoint, _ := f.backend.MountPoint(realDir)
	rel, ok := paths.Relative(strings.TrimPrefix(mountPoint, "/"), virtual)
	if !ok {
		rel = virtual
	}
	return filepath.Join(realDir, filepath.FromSlash(rel)), nil
}
