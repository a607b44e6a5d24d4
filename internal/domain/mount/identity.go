package mount

import (
	"fmt"

	"github.com/GriffinCanCode/AgentOS/vfs/internal/infrastructure/archive"
	"github.com/GriffinCanCode/AgentOS/vfs/internal/shared/paths"
	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"
)

// SetIdentity switches the identity and moves the app-scoped mounts with it.
// A save directory that cannot be mounted yet is deferred, which is not an
// error. Remount failures are aggregated; the new identity stays installed.
func (t *Table) SetIdentity(name string, appendToPath bool) error {
	if name == "" {
		return ErrIdentityRequired
	}
	if err := paths.ValidateArchiveKey(name); err != nil {
		return fmt.Errorf("identity %q: %w", name, err)
	}
	if !t.backend.Initialized() {
		return archive.ErrNotInitialized
	}

	var previous [paths.CommonPathCount]commonMount
	oldPaths := make(map[string]bool, len(paths.AppScoped))
	for _, cp := range paths.AppScoped {
		previous[cp] = t.common[cp]
		if full := t.fullPaths[cp]; full != "" {
			oldPaths[full] = true
		}
	}

	var result *multierror.Error
	for _, cp := range paths.AppScoped {
		if !previous[cp].mounted {
			continue
		}
		if err := t.UnmountCommon(cp); err != nil {
			result = multierror.Append(result, fmt.Errorf("unmount %s: %w", cp, err))
			t.dropCommon(cp)
		}
	}
	if oldPaths[t.backend.WriteDir()] {
		if err := t.backend.SetWriteDir(""); err != nil {
			result = multierror.Append(result, fmt.Errorf("clear write directory: %w", err))
		}
	}

	for _, cp := range paths.AppScoped {
		t.fullPaths[cp] = ""
	}

	old := t.identity
	t.identity = name
	t.appendIdentity = appendToPath

	if err := t.mountCommon(paths.AppSaveDir, paths.Root, archive.PermissionReadWrite, appendToPath, false); err != nil {
		t.saveDirNeedsMounting = true
		t.log.Debug("Save directory mount deferred", zap.String("identity", name), zap.Error(err))
	}

	for _, cp := range paths.AppScoped {
		if cp == paths.AppSaveDir || !previous[cp].mounted {
			continue
		}
		if err := t.mountCommon(cp, previous[cp].mountPoint, previous[cp].permission, appendToPath, true); err != nil {
			result = multierror.Append(result, fmt.Errorf("remount %s: %w", cp, err))
		}
	}

	if err := result.ErrorOrNil(); err != nil {
		t.log.Warn("Identity changed with errors", zap.String("from", old), zap.String("to", name), zap.Error(err))
		return err
	}
	t.log.Info("Identity changed",
		zap.String("from", old),
		zap.String("to", name),
		zap.Bool("save_deferred", t.saveDirNeedsMounting))
	return nil
}

// SetupWriteDirectory mounts a deferred save directory, creating it on disk
// if needed. A save directory that is still mounted but lost the write slot
// gets it back when the slot is empty. It is a no-op once the save directory
// is mounted for writing.
func (t *Table) SetupWriteDirectory() error {
	if !t.backend.Initialized() {
		return archive.ErrNotInitialized
	}
	if t.identity == "" {
		return ErrIdentityRequired
	}
	if !t.saveDirNeedsMounting {
		return nil
	}

	if t.common[paths.AppSaveDir].mounted {
		full, err := t.FullPath(paths.AppSaveDir)
		if err != nil {
			return fmt.Errorf("set up write directory: %w", err)
		}
		if t.backend.WriteDir() == "" {
			if err := t.promoteSaveDir(full); err != nil {
				return fmt.Errorf("set up write directory: %w", err)
			}
		}
		t.saveDirNeedsMounting = false
		return nil
	}

	if err := t.mountCommon(paths.AppSaveDir, paths.Root, archive.PermissionReadWrite, t.appendIdentity, true); err != nil {
		return fmt.Errorf("set up write directory: %w", err)
	}
	t.saveDirNeedsMounting = false
	return nil
}

// dropCommon forgets the entry of a common path whose backend mount is
// already gone.
func (t *Table) dropCommon(cp paths.CommonPath) {
	for i, e := range t.entries {
		if e.Common != nil && *e.Common == cp {
			t.forget(i)
			return
		}
	}
	t.common[cp].mounted = false
}
