package mount

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/GriffinCanCode/AgentOS/vfs/internal/infrastructure/archive"
	"github.com/GriffinCanCode/AgentOS/vfs/internal/shared/paths"
	"github.com/GriffinCanCode/AgentOS/vfs/internal/shared/ref"
	"github.com/GriffinCanCode/AgentOS/vfs/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	root    string
	backend *archive.Backend
	table   *Table
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	root := t.TempDir()
	backend := archive.New()
	require.NoError(t, backend.Init(filepath.Join(root, "bin", "app")))
	t.Cleanup(func() { _ = backend.Deinit() })

	resolver := paths.NewResolver(testutil.NewMockPlatform(t, root), "vfs")
	return &fixture{root: root, backend: backend, table: NewTable(backend, resolver, nil)}
}

func (f *fixture) savePath(identity string) string {
	return filepath.Join(f.root, "appdata", "vfs", identity)
}

func TestMountPathRejectsDuplicates(t *testing.T) {
	f := newFixture(t)
	dir := t.TempDir()

	require.NoError(t, f.table.MountPath(dir, "assets", archive.PermissionRead, false))
	before := f.table.Entries()

	err := f.table.MountPath(dir, "other", archive.PermissionRead, true)
	assert.ErrorIs(t, err, ErrAlreadyMounted)
	assert.Equal(t, before, f.table.Entries())

	e, ok := f.table.Lookup(dir)
	require.True(t, ok)
	assert.Equal(t, "assets", e.MountPoint)
}

func TestTraversalLeavesTableUnchanged(t *testing.T) {
	f := newFixture(t)
	dir := t.TempDir()

	for _, tc := range []struct{ key, mountPoint string }{
		{key: dir, mountPoint: "../escape"},
		{key: dir + "/../x", mountPoint: "/"},
		{key: "", mountPoint: "/"},
		{key: "/", mountPoint: "/"},
	} {
		err := f.table.MountPath(tc.key, tc.mountPoint, archive.PermissionRead, false)
		assert.ErrorIs(t, err, paths.ErrInvalidPath, tc)
	}
	assert.Empty(t, f.table.Entries())
	assert.Empty(t, f.backend.SearchPath())
}

func TestEntriesFollowLookupOrder(t *testing.T) {
	f := newFixture(t)
	a, b, c := t.TempDir(), t.TempDir(), t.TempDir()

	require.NoError(t, f.table.MountPath(a, "", archive.PermissionRead, true))
	require.NoError(t, f.table.MountPath(b, "", archive.PermissionRead, true))
	require.NoError(t, f.table.MountPath(c, "", archive.PermissionRead, false))

	var keys []string
	for _, e := range f.table.Entries() {
		keys = append(keys, e.Key)
	}
	assert.Equal(t, []string{c, a, b}, keys)
	assert.Equal(t, keys, f.backend.SearchPath())
}

func TestUnmountUnknownKey(t *testing.T) {
	f := newFixture(t)
	assert.ErrorIs(t, f.table.Unmount("/nowhere"), ErrNotMounted)
	assert.ErrorIs(t, f.table.UnmountCommon(paths.UserHome), ErrNotMounted)
}

func TestSingleWriter(t *testing.T) {
	f := newFixture(t)
	first, second := t.TempDir(), t.TempDir()

	require.NoError(t, f.table.MountPath(first, "one", archive.PermissionReadWrite, false))
	require.NoError(t, f.table.MountPath(second, "two", archive.PermissionReadWrite, false))

	writers := 0
	for _, e := range f.table.Entries() {
		if e.Permission == archive.PermissionReadWrite {
			writers++
			assert.Equal(t, second, e.Key)
		}
	}
	assert.Equal(t, 1, writers)
	assert.Equal(t, second, f.backend.WriteDir())
}

func TestMountCommonRequiresIdentity(t *testing.T) {
	f := newFixture(t)

	err := f.table.MountCommon(paths.AppSaveDir, "", archive.PermissionReadWrite, false)
	assert.ErrorIs(t, err, ErrIdentityRequired)
	assert.Empty(t, f.table.Entries())

	assert.ErrorIs(t, f.table.SetupWriteDirectory(), ErrIdentityRequired)
}

func TestMountCommonUserPath(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.table.MountCommon(paths.UserHome, "home", archive.PermissionRead, true))
	mp, ok := f.table.CommonMounted(paths.UserHome)
	require.True(t, ok)
	assert.Equal(t, "home", mp)

	require.NoError(t, f.table.UnmountCommon(paths.UserHome))
	_, ok = f.table.CommonMounted(paths.UserHome)
	assert.False(t, ok)
}

func TestSetIdentityDefersSaveDirectory(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.table.SetIdentity("save1", false))
	assert.Equal(t, "save1", f.table.Identity())
	assert.True(t, f.table.SaveDirectoryNeedsMounting())
	assert.False(t, f.backend.IsRealDirectory(f.savePath("save1")))

	require.NoError(t, f.table.SetupWriteDirectory())
	assert.False(t, f.table.SaveDirectoryNeedsMounting())
	assert.True(t, f.backend.IsRealDirectory(f.savePath("save1")))
	assert.Equal(t, f.savePath("save1"), f.backend.WriteDir())

	require.NoError(t, f.table.SetupWriteDirectory())
}

func TestSetIdentityMountsExistingSaveDirectory(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.backend.MkdirAllReal(f.savePath("ready")))

	require.NoError(t, f.table.SetIdentity("ready", false))
	assert.False(t, f.table.SaveDirectoryNeedsMounting())
	assert.Equal(t, f.savePath("ready"), f.backend.WriteDir())
}

func TestUnmountingWriterRestoresSaveDirectory(t *testing.T) {
	f := newFixture(t)
	save := f.savePath("slot")
	require.NoError(t, f.backend.MkdirAllReal(save))
	require.NoError(t, f.table.SetIdentity("slot", false))

	other := t.TempDir()
	require.NoError(t, f.table.MountPath(other, "o", archive.PermissionReadWrite, false))
	e, ok := f.table.Lookup(save)
	require.True(t, ok)
	assert.Equal(t, archive.PermissionRead, e.Permission)

	require.NoError(t, f.table.Unmount(other))
	assert.Empty(t, f.backend.WriteDir())
	assert.True(t, f.table.SaveDirectoryNeedsMounting())

	require.NoError(t, f.table.SetupWriteDirectory())
	assert.Equal(t, save, f.backend.WriteDir())
	assert.False(t, f.table.SaveDirectoryNeedsMounting())

	e, ok = f.table.Lookup(save)
	require.True(t, ok)
	assert.Equal(t, archive.PermissionReadWrite, e.Permission)
}

func TestUnmountingSaveDirectoryDefersIt(t *testing.T) {
	f := newFixture(t)
	save := f.savePath("slot")
	require.NoError(t, f.backend.MkdirAllReal(save))
	require.NoError(t, f.table.SetIdentity("slot", false))

	require.NoError(t, f.table.UnmountCommon(paths.AppSaveDir))
	assert.Empty(t, f.backend.WriteDir())
	assert.True(t, f.table.SaveDirectoryNeedsMounting())

	require.NoError(t, f.table.SetupWriteDirectory())
	assert.Equal(t, save, f.backend.WriteDir())
	_, mounted := f.table.CommonMounted(paths.AppSaveDir)
	assert.True(t, mounted)
}

func TestUnmountingReadMountKeepsWriteSlot(t *testing.T) {
	f := newFixture(t)
	save := f.savePath("slot")
	require.NoError(t, f.backend.MkdirAllReal(save))
	require.NoError(t, f.table.SetIdentity("slot", false))

	other := t.TempDir()
	require.NoError(t, f.table.MountPath(other, "o", archive.PermissionRead, false))
	require.NoError(t, f.table.Unmount(other))

	assert.False(t, f.table.SaveDirectoryNeedsMounting())
	assert.Equal(t, save, f.backend.WriteDir())
}

func TestIdentitySwapLeavesNoTraceOfOldIdentity(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.table.SetIdentity("save1", false))
	require.NoError(t, f.table.SetupWriteDirectory())
	require.NoError(t, f.table.MountCommon(paths.AppDocuments, "docs", archive.PermissionRead, true))
	oldDocs, err := f.table.FullPath(paths.AppDocuments)
	require.NoError(t, err)

	require.NoError(t, f.table.SetIdentity("save2", false))

	for _, e := range f.table.Entries() {
		assert.NotContains(t, e.Key, "save1")
	}
	assert.NotEqual(t, f.savePath("save1"), f.backend.WriteDir())
	assert.NotContains(t, f.backend.SearchPath(), oldDocs)

	save, err := f.table.FullPath(paths.AppSaveDir)
	require.NoError(t, err)
	assert.Equal(t, f.savePath("save2"), save)

	docs, ok := f.table.CommonMounted(paths.AppDocuments)
	require.True(t, ok)
	assert.Equal(t, "docs", docs)
	newDocs, err := f.table.FullPath(paths.AppDocuments)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(newDocs, "save2"))
	assert.Contains(t, f.backend.SearchPath(), newDocs)
}

func TestSetIdentityValidation(t *testing.T) {
	f := newFixture(t)

	assert.ErrorIs(t, f.table.SetIdentity("", false), ErrIdentityRequired)
	assert.ErrorIs(t, f.table.SetIdentity("../escape", false), paths.ErrInvalidPath)
	assert.Empty(t, f.table.Identity())

	uninitialised := NewTable(archive.New(), nil, nil)
	assert.ErrorIs(t, uninitialised.SetIdentity("x", false), archive.ErrNotInitialized)
}

func TestFusedChangesSaveLayout(t *testing.T) {
	f := newFixture(t)
	f.table.SetFused(true)
	f.table.SetFused(false)
	assert.True(t, f.table.Fused())

	require.NoError(t, f.table.SetIdentity("game", false))
	save, err := f.table.FullPath(paths.AppSaveDir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(f.root, "appdata", "game"), save)
}

func TestMountDataRetainsAndReleases(t *testing.T) {
	f := newFixture(t)
	buf := ref.NewBuffer(testutil.ZipArchive(t, testutil.Files{"level.txt": "1"}))

	key, err := f.table.MountData(buf, "pack.zip", "pack", false)
	require.NoError(t, err)
	assert.Equal(t, "pack.zip", key)
	assert.EqualValues(t, 2, buf.RefCount())
	assert.True(t, f.backend.Exists("pack/level.txt"))

	_, err = f.table.MountData(buf, "pack.zip", "pack", false)
	assert.ErrorIs(t, err, ErrAlreadyMounted)
	assert.EqualValues(t, 2, buf.RefCount())

	require.NoError(t, f.table.UnmountData(buf))
	assert.False(t, f.backend.Exists("pack/level.txt"))
	assert.EqualValues(t, 1, buf.RefCount())
	assert.NotEmpty(t, buf.Bytes())

	assert.ErrorIs(t, f.table.UnmountData(buf), ErrNotMounted)
}

func TestMountDataGeneratesKey(t *testing.T) {
	f := newFixture(t)
	buf := ref.NewBuffer(testutil.TarArchive(t, testutil.Files{"a.txt": "a"}))

	key, err := f.table.MountData(buf, "", "", true)
	require.NoError(t, err)
	assert.NotEmpty(t, key)
	assert.True(t, f.backend.Exists("a.txt"))
}

func TestClearReleasesEverything(t *testing.T) {
	f := newFixture(t)
	buf := ref.NewBuffer(testutil.ZipArchive(t, testutil.Files{"a.txt": "a"}))

	_, err := f.table.MountData(buf, "a.zip", "", false)
	require.NoError(t, err)
	require.NoError(t, f.table.MountPath(t.TempDir(), "dir", archive.PermissionRead, false))

	require.NoError(t, f.table.Clear())
	assert.Empty(t, f.table.Entries())
	assert.Empty(t, f.backend.SearchPath())
	assert.EqualValues(t, 1, buf.RefCount())
}

func TestResetCommonPaths(t *testing.T) {
	f := newFixture(t)

	home, err := f.table.FullPath(paths.UserHome)
	require.NoError(t, err)
	assert.Equal(t, f.root, home)

	f.table.ResetCommonPaths()
	home, err = f.table.FullPath(paths.UserHome)
	require.NoError(t, err)
	assert.Equal(t, f.root, home)

	_, err = f.table.FullPath(paths.CommonPath(42))
	assert.ErrorIs(t, err, ErrInvalidCommon)
}
