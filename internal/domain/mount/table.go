package mount

import (
	"errors"
	"fmt"

	"github.com/GriffinCanCode/AgentOS/vfs/internal/infrastructure/archive"
	"github.com/GriffinCanCode/AgentOS/vfs/internal/logging"
	"github.com/GriffinCanCode/AgentOS/vfs/internal/shared/id"
	"github.com/GriffinCanCode/AgentOS/vfs/internal/shared/paths"
	"github.com/GriffinCanCode/AgentOS/vfs/internal/shared/ref"
	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"
)

var (
	ErrAlreadyMounted   = errors.New("already mounted")
	ErrNotMounted       = errors.New("not mounted")
	ErrIdentityRequired = errors.New("identity is not set")
	ErrInvalidCommon    = errors.New("invalid common path")
)

// Backend is the part of the archive backend the table drives.
type Backend interface {
	Initialized() bool
	Mount(archivePath, mountPoint string, perm archive.Permission, appendToPath bool) error
	MountMemory(buf []byte, key, mountPoint string, appendToPath bool) error
	Unmount(key string) error
	SetWriteDir(path string) error
	WriteDir() string
	IsRealDirectory(path string) bool
	MkdirAllReal(path string) error
}

// Entry is one active mount.
type Entry struct {
	Key        string
	MountPoint string
	Permission archive.Permission
	Append     bool
	Common     *paths.CommonPath
	Data       ref.Data
}

type commonMount struct {
	mounted    bool
	mountPoint string
	permission archive.Permission
}

// Table is the authoritative list of mounts, in lookup order.
type Table struct {
	backend  Backend
	resolver *paths.Resolver
	log      *logging.Logger

	entries []*Entry

	identity       string
	appendIdentity bool
	fused          bool
	fusedSet       bool
	executablePath string

	fullPaths [paths.CommonPathCount]string
	common    [paths.CommonPathCount]commonMount

	saveDirNeedsMounting bool
}

// NewTable creates an empty table.
func NewTable(backend Backend, resolver *paths.Resolver, log *logging.Logger) *Table {
	if resolver == nil {
		resolver = paths.NewResolver(nil, "")
	}
	return &Table{
		backend:  backend,
		resolver: resolver,
		log:      logging.OrNop(log),
	}
}

// SetExecutablePath records the application path used to derive platform
// roots.
func (t *Table) SetExecutablePath(p string) {
	t.executablePath = p
	t.ResetCommonPaths()
}

// SetFused sets the fused flag. Only the first call has an effect.
func (t *Table) SetFused(fused bool) {
	if t.fusedSet {
		return
	}
	t.fused = fused
	t.fusedSet = true
	for _, cp := range paths.AppScoped {
		t.fullPaths[cp] = ""
	}
}

// Fused reports the fused flag; false until SetFused is called.
func (t *Table) Fused() bool {
	return t.fusedSet && t.fused
}

// Identity returns the current identity.
func (t *Table) Identity() string {
	return t.identity
}

// SaveDirectoryNeedsMounting reports whether the save directory mount was
// deferred.
func (t *Table) SaveDirectoryNeedsMounting() bool {
	return t.saveDirNeedsMounting
}

// ResetCommonPaths drops every cached concrete path.
func (t *Table) ResetCommonPaths() {
	t.fullPaths = [paths.CommonPathCount]string{}
}

// FullPath returns the concrete path of cp. App-scoped paths are "" until an
// identity is set.
func (t *Table) FullPath(cp paths.CommonPath) (string, error) {
	if !cp.Valid() {
		return "", fmt.Errorf("%w: %d", ErrInvalidCommon, cp)
	}
	if cached := t.fullPaths[cp]; cached != "" {
		return cached, nil
	}

	full, err := t.resolver.Resolve(cp, t.identity, t.Fused(), t.executablePath)
	if err != nil {
		return "", err
	}
	t.fullPaths[cp] = full
	return full, nil
}

// MountCommon mounts a common path, creating app-scoped directories that do
// not exist yet.
func (t *Table) MountCommon(cp paths.CommonPath, mountPoint string, perm archive.Permission, appendToPath bool) error {
	return t.mountCommon(cp, mountPoint, perm, appendToPath, true)
}

func (t *Table) mountCommon(cp paths.CommonPath, mountPoint string, perm archive.Permission, appendToPath, create bool) error {
	full, err := t.FullPath(cp)
	if err != nil {
		return err
	}
	if full == "" {
		return fmt.Errorf("%s: %w", cp, ErrIdentityRequired)
	}

	if create && cp.IsAppScoped() && !t.backend.IsRealDirectory(full) {
		if err := t.backend.MkdirAllReal(full); err != nil {
			return fmt.Errorf("create %s: %w", cp, err)
		}
	}

	owner := cp
	e, err := t.mountPath(full, mountPoint, perm, appendToPath, &owner)
	if err != nil {
		return err
	}

	t.common[cp] = commonMount{mounted: true, mountPoint: e.MountPoint, permission: perm}
	if cp == paths.AppSaveDir && perm == archive.PermissionReadWrite {
		t.saveDirNeedsMounting = false
	}
	return nil
}

// MountPath mounts a real directory or archive file by its path.
func (t *Table) MountPath(key, mountPoint string, perm archive.Permission, appendToPath bool) error {
	_, err := t.mountPath(key, mountPoint, perm, appendToPath, nil)
	return err
}

func (t *Table) mountPath(key, mountPoint string, perm archive.Permission, appendToPath bool, owner *paths.CommonPath) (*Entry, error) {
	if err := paths.ValidateArchiveKey(key); err != nil {
		return nil, err
	}
	mp, err := paths.Normalize(mountPoint)
	if err != nil {
		return nil, err
	}
	if t.index(key) >= 0 {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyMounted, key)
	}

	if err := t.backend.Mount(key, mp, perm, appendToPath); err != nil {
		return nil, err
	}

	if perm == archive.PermissionReadWrite {
		t.demoteWriters()
	}
	e := &Entry{Key: key, MountPoint: mp, Permission: perm, Append: appendToPath, Common: owner}
	t.insert(e)

	t.log.Info("Mounted",
		zap.String("key", key),
		zap.String("mount_point", "/"+mp),
		zap.Stringer("permission", perm))
	return e, nil
}

// MountData mounts an in-memory archive. The table retains data until the
// matching unmount. An empty key gets a generated one.
func (t *Table) MountData(data ref.Data, key, mountPoint string, appendToPath bool) (string, error) {
	if data == nil {
		return "", errors.New("nil data")
	}
	if key == "" {
		key = id.NewDataKey().String()
	}
	if err := paths.ValidateArchiveKey(key); err != nil {
		return "", err
	}
	mp, err := paths.Normalize(mountPoint)
	if err != nil {
		return "", err
	}
	if t.index(key) >= 0 {
		return "", fmt.Errorf("%w: %s", ErrAlreadyMounted, key)
	}

	if err := t.backend.MountMemory(data.Bytes(), key, mp, appendToPath); err != nil {
		return "", err
	}
	data.Retain()
	t.insert(&Entry{Key: key, MountPoint: mp, Permission: archive.PermissionRead, Append: appendToPath, Data: data})

	t.log.Info("Mounted data", zap.String("key", key), zap.String("mount_point", "/"+mp))
	return key, nil
}

// Unmount removes the entry for key, releasing retained data. Removing the
// save directory or the current write mount defers the save directory so the
// next write restores the write slot.
func (t *Table) Unmount(key string) error {
	i := t.index(key)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotMounted, key)
	}
	e := t.entries[i]
	wasWriter := key == t.backend.WriteDir()
	if err := t.backend.Unmount(key); err != nil {
		return err
	}
	t.forget(i)

	isSaveDir := e.Common != nil && *e.Common == paths.AppSaveDir
	if t.identity != "" && (isSaveDir || wasWriter) {
		t.saveDirNeedsMounting = true
	}

	t.log.Info("Unmounted", zap.String("key", key))
	return nil
}

// UnmountCommon unmounts a common path.
func (t *Table) UnmountCommon(cp paths.CommonPath) error {
	full, err := t.FullPath(cp)
	if err != nil {
		return err
	}
	if full == "" || !t.common[cp].mounted {
		return fmt.Errorf("%w: %s", ErrNotMounted, cp)
	}
	return t.Unmount(full)
}

// UnmountData unmounts the entry holding data.
func (t *Table) UnmountData(data ref.Data) error {
	for _, e := range t.entries {
		if e.Data != nil && e.Data == data {
			return t.Unmount(e.Key)
		}
	}
	return ErrNotMounted
}

// Clear unmounts everything in lookup order. Retained data is
// released even when the backend refuses.
func (t *Table) Clear() error {
	var result *multierror.Error
	for len(t.entries) > 0 {
		e := t.entries[0]
		if err := t.backend.Unmount(e.Key); err != nil {
			result = multierror.Append(result, err)
		}
		t.forget(0)
	}
	t.saveDirNeedsMounting = false
	return result.ErrorOrNil()
}

// Lookup returns a copy of the entry for key.
func (t *Table) Lookup(key string) (Entry, bool) {
	if i := t.index(key); i >= 0 {
		return *t.entries[i], true
	}
	return Entry{}, false
}

// Entries returns copies of all entries in lookup order.
func (t *Table) Entries() []Entry {
	out := make([]Entry, len(t.entries))
	for i, e := range t.entries {
		out[i] = *e
	}
	return out
}

// CommonMounted reports whether cp is mounted and where.
func (t *Table) CommonMounted(cp paths.CommonPath) (string, bool) {
	if !cp.Valid() {
		return "", false
	}
	m := t.common[cp]
	return m.mountPoint, m.mounted
}

func (t *Table) index(key string) int {
	for i, e := range t.entries {
		if e.Key == key {
			return i
		}
	}
	return -1
}

func (t *Table) insert(e *Entry) {
	if e.Append {
		t.entries = append(t.entries, e)
		return
	}
	t.entries = append([]*Entry{e}, t.entries...)
}

// forget drops entry i from the table without touching the backend.
func (t *Table) forget(i int) {
	e := t.entries[i]
	t.entries = append(t.entries[:i], t.entries[i+1:]...)
	if e.Common != nil {
		t.common[*e.Common].mounted = false
	}
	if e.Data != nil {
		e.Data.Release()
	}
}

// promoteSaveDir gives the mounted save directory the write slot again.
func (t *Table) promoteSaveDir(full string) error {
	if err := t.backend.SetWriteDir(full); err != nil {
		return err
	}
	t.demoteWriters()
	if i := t.index(full); i >= 0 {
		t.entries[i].Permission = archive.PermissionReadWrite
	}
	t.common[paths.AppSaveDir].permission = archive.PermissionReadWrite
	t.log.Info("Save directory restored as write directory", zap.String("path", full))
	return nil
}

// demoteWriters marks existing read-write entries read-only once the write
// slot has moved to a new mount.
func (t *Table) demoteWriters() {
	for _, e := range t.entries {
		if e.Permission == archive.PermissionReadWrite {
			e.Permission = archive.PermissionRead
			if e.Common != nil {
				t.common[*e.Common].permission = archive.PermissionRead
			}
			t.log.Debug("Demoted previous write mount", zap.String("key", e.Key))
		}
	}
}
