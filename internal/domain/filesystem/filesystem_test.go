package filesystem

import (
	"bytes"
	"context"
	"io/fs"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/GriffinCanCode/AgentOS/vfs/internal/infrastructure/archive"
	"github.com/GriffinCanCode/AgentOS/vfs/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/vfs/internal/shared/paths"
	"github.com/GriffinCanCode/AgentOS/vfs/internal/testutil"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	fsys   *Filesystem
	root   string
	source string
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	root := t.TempDir()
	source := filepath.Join(root, "game")
	testutil.WriteTree(t, source, testutil.Files{
		"main.lua":     "print('hello')",
		"lib/util.lua": "return {}",
		"a/b.lua":      "return 'file'",
		"a/b/init.lua": "return 'dir'",
		"assets/":      "",
	})

	opts = append([]Option{WithPlatform(testutil.NewMockPlatform(t, root))}, opts...)
	fsys := New(opts...)
	require.NoError(t, fsys.Init(filepath.Join(root, "bin", "app")))
	require.NoError(t, fsys.SetSource(source))
	t.Cleanup(func() { _ = fsys.Close() })

	return &fixture{fsys: fsys, root: root, source: source}
}

func (f *fixture) savePath(identity string) string {
	return filepath.Join(f.root, "appdata", "vfs", identity)
}

func TestInit(t *testing.T) {
	fsys := New()
	require.NoError(t, fsys.Init(paths.EmbeddedBootArg))
	defer fsys.Close()

	assert.NotEmpty(t, fsys.ExecutablePath())
	assert.True(t, fsys.SymlinksEnabled())

	err := fsys.Init("app")
	assert.ErrorIs(t, err, ErrInitialization)
}

func TestOperationsBeforeInit(t *testing.T) {
	fsys := New()

	assert.False(t, fsys.Exists("anything"))
	_, ok := fsys.DirectoryItems("")
	assert.False(t, ok)
	assert.ErrorIs(t, fsys.MountFullPath(t.TempDir(), "x", PermissionRead, false), ErrBackendNotReady)
	assert.ErrorIs(t, fsys.SetIdentity("early", false), ErrBackendNotReady)
}

func TestSourceIsMountedOnce(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, f.source, f.fsys.Source())
	assert.Equal(t, f.root, f.fsys.SourceBaseDirectory())
	assert.True(t, f.fsys.Exists("main.lua"))

	err := f.fsys.SetSource(t.TempDir())
	assert.ErrorIs(t, err, ErrSourceAlreadySet)
	assert.Len(t, f.fsys.Mounts(), 1)
}

func TestSourceRejectsEmptyAndRoot(t *testing.T) {
	fsys := New(WithPlatform(testutil.NewMockPlatform(t, t.TempDir())))
	require.NoError(t, fsys.Init(paths.EmbeddedBootArg))
	defer fsys.Close()

	assert.ErrorIs(t, fsys.SetSource(""), ErrInvalidPath)
	assert.ErrorIs(t, fsys.SetSource(string(filepath.Separator)), ErrInvalidPath)
	assert.Empty(t, fsys.Source())
	assert.Empty(t, fsys.Mounts())

	source := t.TempDir()
	require.NoError(t, fsys.SetSource(source))
	assert.Equal(t, source, fsys.Source())
}

func TestWriteRequiresIdentity(t *testing.T) {
	f := newFixture(t)

	err := f.fsys.Write("save.txt", []byte("x"))
	assert.ErrorIs(t, err, ErrDataNotWritten)
	assert.ErrorIs(t, err, ErrIdentityRequired)

	assert.ErrorIs(t, f.fsys.CreateDirectory("dir"), ErrIdentityRequired)
	assert.ErrorIs(t, f.fsys.SetupWriteDirectory(), ErrIdentityRequired)
}

func TestWriteReadRoundTrip(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.fsys.SetIdentity("roundtrip", false))

	large := make([]byte, 70000)
	rand.New(rand.NewSource(1)).Read(large)

	for _, data := range [][]byte{{}, {0x42}, large} {
		require.NoError(t, f.fsys.Write("blob.bin", data))

		got, err := f.fsys.ReadAll("blob.bin")
		require.NoError(t, err)
		assert.Equal(t, len(data), got.Size())
		assert.True(t, bytes.Equal(data, got.Bytes()))
	}

	prefix, err := f.fsys.Read("blob.bin", 10)
	require.NoError(t, err)
	assert.Equal(t, large[:10], prefix.Bytes())

	onDisk, err := os.ReadFile(filepath.Join(f.savePath("roundtrip"), "blob.bin"))
	require.NoError(t, err)
	assert.Equal(t, large, onDisk)
}

func TestAppendConcatenates(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.fsys.SetIdentity("append", false))

	require.NoError(t, f.fsys.Append("log.txt", []byte("one\n")))
	require.NoError(t, f.fsys.Append("log.txt", []byte("two\r\n")))
	require.NoError(t, f.fsys.Append("log.txt", []byte("three")))

	data, err := f.fsys.ReadAll("log.txt")
	require.NoError(t, err)
	assert.Equal(t, "one\ntwo\r\nthree", data.String())

	lines, err := f.fsys.Lines("log.txt")
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two", "three"}, lines)

	require.NoError(t, f.fsys.Write("log.txt", []byte("fresh")))
	require.NoError(t, f.fsys.Append("log.txt", []byte("+tail")))
	data, err = f.fsys.ReadAll("log.txt")
	require.NoError(t, err)
	assert.Equal(t, "fresh+tail", data.String())
}

func TestWritesSurviveUnmountOfWriteMount(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.fsys.SetIdentity("slot", false))
	require.NoError(t, f.fsys.Write("a.txt", []byte("a")))

	other := t.TempDir()
	require.NoError(t, f.fsys.MountFullPath(other, "o", PermissionReadWrite, false))
	require.NoError(t, f.fsys.UnmountFullPath(other))

	require.NoError(t, f.fsys.Write("b.txt", []byte("b")))
	assert.FileExists(t, filepath.Join(f.savePath("slot"), "b.txt"))
	assert.NoFileExists(t, filepath.Join(other, "b.txt"))

	require.NoError(t, f.fsys.Append("b.txt", []byte("c")))
	require.NoError(t, f.fsys.CreateDirectory("dir"))
	require.NoError(t, f.fsys.Remove("dir"))

	data, err := f.fsys.ReadAll("b.txt")
	require.NoError(t, err)
	assert.Equal(t, "bc", data.String())
}

func TestWritesSurviveUnmountOfSaveDirectory(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.fsys.SetIdentity("slot", false))
	require.NoError(t, f.fsys.Write("a.txt", []byte("a")))

	require.NoError(t, f.fsys.UnmountCommonPath(paths.AppSaveDir))
	assert.False(t, f.fsys.Exists("a.txt"))

	require.NoError(t, f.fsys.Write("b.txt", []byte("b")))
	assert.True(t, f.fsys.Exists("a.txt"))
	assert.FileExists(t, filepath.Join(f.savePath("slot"), "b.txt"))
}

func TestSaveDirectoryShadowsSource(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.fsys.SetIdentity("shadow", false))

	require.NoError(t, f.fsys.Write("main.lua", []byte("print('patched')")))
	data, err := f.fsys.ReadAll("main.lua")
	require.NoError(t, err)
	assert.Equal(t, "print('patched')", data.String())

	realDir, err := f.fsys.RealDirectory("main.lua")
	require.NoError(t, err)
	assert.Equal(t, f.savePath("shadow"), realDir)

	original, err := os.ReadFile(filepath.Join(f.source, "main.lua"))
	require.NoError(t, err)
	assert.Equal(t, "print('hello')", string(original))
}

func TestIdentitySwitchMovesSaveDirectory(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.fsys.SetIdentity("save1", false))
	require.NoError(t, f.fsys.Write("progress.txt", []byte("one")))

	require.NoError(t, f.fsys.SetIdentity("save2", false))
	assert.Equal(t, "save2", f.fsys.Identity())
	assert.False(t, f.fsys.Exists("progress.txt"))

	require.NoError(t, f.fsys.Write("progress.txt", []byte("two")))
	data, err := f.fsys.ReadAll("progress.txt")
	require.NoError(t, err)
	assert.Equal(t, "two", data.String())

	old, err := os.ReadFile(filepath.Join(f.savePath("save1"), "progress.txt"))
	require.NoError(t, err)
	assert.Equal(t, "one", string(old))

	save, err := f.fsys.SaveDirectory()
	require.NoError(t, err)
	assert.Equal(t, f.savePath("save2"), save)
}

func TestExistingSaveDirectoryMountsImmediately(t *testing.T) {
	f := newFixture(t)
	testutil.WriteTree(t, f.savePath("returning"), testutil.Files{"slot.txt": "saved"})

	require.NoError(t, f.fsys.SetIdentity("returning", false))
	data, err := f.fsys.ReadAll("slot.txt")
	require.NoError(t, err)
	assert.Equal(t, "saved", data.String())
}

func TestIdentityRejectsTraversal(t *testing.T) {
	f := newFixture(t)

	assert.ErrorIs(t, f.fsys.SetIdentity("../escape", false), ErrInvalidPath)
	assert.ErrorIs(t, f.fsys.SetIdentity("", false), ErrIdentityRequired)
	assert.Empty(t, f.fsys.Identity())
}

func TestTraversalIsRejected(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.fsys.SetIdentity("traversal", false))
	require.NoError(t, f.fsys.SetupWriteDirectory())
	before := f.fsys.Mounts()

	assert.ErrorIs(t, f.fsys.Write("../outside.txt", []byte("x")), ErrInvalidPath)
	assert.ErrorIs(t, f.fsys.Mount("../etc", "etc", false), ErrInvalidPath)
	assert.ErrorIs(t, f.fsys.Mount("", "x", false), ErrInvalidPath)
	assert.ErrorIs(t, f.fsys.Mount("/", "x", false), ErrInvalidPath)
	assert.ErrorIs(t, f.fsys.MountFullPath(t.TempDir(), "../up", PermissionRead, false), ErrInvalidPath)
	assert.ErrorIs(t, f.fsys.Remove(""), ErrInvalidPath)

	_, err := f.fsys.ReadAll("a/../../secret")
	assert.ErrorIs(t, err, ErrInvalidPath)

	assert.Equal(t, before, f.fsys.Mounts())
	_, err = os.Stat(filepath.Join(f.root, "appdata", "vfs", "outside.txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestMountFullPath(t *testing.T) {
	f := newFixture(t)
	dir := t.TempDir()
	testutil.WriteTree(t, dir, testutil.Files{"textures/stone.png": "png"})

	require.NoError(t, f.fsys.MountFullPath(dir, "ext", PermissionRead, false))
	assert.True(t, f.fsys.Exists("ext/textures/stone.png"))

	err := f.fsys.MountFullPath(dir, "other", PermissionRead, true)
	assert.ErrorIs(t, err, ErrAlreadyMounted)

	require.NoError(t, f.fsys.UnmountFullPath(dir))
	assert.False(t, f.fsys.Exists("ext/textures/stone.png"))
	assert.ErrorIs(t, f.fsys.UnmountFullPath(dir), ErrNotMounted)
}

func TestMountResolvesVirtualPaths(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.fsys.SetIdentity("mods", false))

	pack := testutil.ZipArchive(t, testutil.Files{"levels/one.map": "map"})
	require.NoError(t, f.fsys.CreateDirectory("mods"))
	require.NoError(t, f.fsys.Write("mods/extra.zip", pack))

	require.NoError(t, f.fsys.Mount("mods/extra.zip", "extra", false))
	data, err := f.fsys.ReadAll("extra/levels/one.map")
	require.NoError(t, err)
	assert.Equal(t, "map", data.String())

	e := f.fsys.Mounts()[0]
	assert.Equal(t, filepath.Join(f.savePath("mods"), "mods", "extra.zip"), e.Key)
	assert.Equal(t, archive.PermissionRead, e.Permission)

	assert.ErrorIs(t, f.fsys.Mount("mods/extra.zip", "again", false), ErrAlreadyMounted)

	require.NoError(t, f.fsys.Unmount("mods/extra.zip"))
	assert.False(t, f.fsys.Exists("extra/levels/one.map"))
}

func TestMountRejectsSourceContents(t *testing.T) {
	f := newFixture(t)

	assert.ErrorIs(t, f.fsys.Mount("lib", "libcopy", false), ErrMountNotAllowed)
	assert.ErrorIs(t, f.fsys.Mount("missing.zip", "m", false), fs.ErrNotExist)
}

func TestMountAcceptsSiblingOfSource(t *testing.T) {
	f := newFixture(t)
	sibling := f.source + "2"
	testutil.WriteTree(t, sibling, testutil.Files{"levels/one.txt": "one"})

	require.NoError(t, f.fsys.MountFullPath(sibling, "g2", PermissionRead, true))
	require.NoError(t, f.fsys.Mount("g2/levels", "lv", true))
	assert.True(t, f.fsys.Exists("lv/one.txt"))
}

func TestMountAllowList(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteTree(t, dir, testutil.Files{"dropped.txt": "dropped"})
	f := newFixture(t, WithAllowedMountPaths(dir))

	require.NoError(t, f.fsys.Mount(dir, "dropped", true))
	assert.True(t, f.fsys.Exists("dropped/dropped.txt"))
	require.NoError(t, f.fsys.Unmount(dir))

	other := t.TempDir()
	f.fsys.AllowMountPath(other)
	require.NoError(t, f.fsys.Mount(other, "other", true))
}

func TestFusedSourceBaseDirectory(t *testing.T) {
	root := t.TempDir()
	source := filepath.Join(root, "game")
	testutil.WriteTree(t, root, testutil.Files{"game/main.lua": "", "dlc/extra.txt": "dlc"})

	fsys := New(WithPlatform(testutil.NewMockPlatform(t, root)))
	require.NoError(t, fsys.Init(filepath.Join(root, "game", "app")))
	defer fsys.Close()
	fsys.SetFused(true)
	fsys.SetFused(false)
	assert.True(t, fsys.IsFused())
	require.NoError(t, fsys.SetSource(source))

	require.NoError(t, fsys.Mount(root, "base", false))
	assert.True(t, fsys.Exists("base/dlc/extra.txt"))

	require.NoError(t, fsys.SetIdentity("fusedgame", false))
	save, err := fsys.SaveDirectory()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "appdata", "fusedgame"), save)
}

func TestMountCommonPath(t *testing.T) {
	f := newFixture(t)

	err := f.fsys.MountCommonPath(paths.AppDocuments, "docs", PermissionRead, false)
	assert.ErrorIs(t, err, ErrIdentityRequired)

	require.NoError(t, f.fsys.SetIdentity("docs", false))
	require.NoError(t, f.fsys.MountCommonPath(paths.AppDocuments, "docs", PermissionRead, false))
	assert.DirExists(t, filepath.Join(f.root, "Documents", "vfs", "docs"))

	items, ok := f.fsys.DirectoryItems("docs")
	require.True(t, ok)
	assert.Empty(t, items)

	require.NoError(t, f.fsys.UnmountCommonPath(paths.AppDocuments))
	assert.False(t, f.fsys.Exists("docs"))

	home, err := f.fsys.FullCommonPath(paths.UserHome)
	require.NoError(t, err)
	assert.Equal(t, f.root, home)
}

func TestDataMountKeepsCallerReference(t *testing.T) {
	f := newFixture(t)

	payload := testutil.ZipArchive(t, testutil.Files{"sprites/hero.png": "hero"})
	data := NewFileData(payload, "pack.zip")
	require.EqualValues(t, 1, data.RefCount())

	require.NoError(t, f.fsys.MountData(data, "", "pack", false))
	assert.EqualValues(t, 2, data.RefCount())

	hero, err := f.fsys.ReadAll("pack/sprites/hero.png")
	require.NoError(t, err)
	assert.Equal(t, "hero", hero.String())

	assert.ErrorIs(t, f.fsys.MountData(data, "pack.zip", "again", false), ErrAlreadyMounted)

	require.NoError(t, f.fsys.Unmount("pack.zip"))
	assert.EqualValues(t, 1, data.RefCount())
	assert.Equal(t, payload, data.Bytes())
	assert.False(t, f.fsys.Exists("pack/sprites/hero.png"))

	require.NoError(t, f.fsys.MountData(data, "", "pack", true))
	require.NoError(t, f.fsys.UnmountData(data))
	assert.EqualValues(t, 1, data.RefCount())
	assert.ErrorIs(t, f.fsys.UnmountData(data), ErrNotMounted)
}

func TestDirectoryItems(t *testing.T) {
	f := newFixture(t)

	items, ok := f.fsys.DirectoryItems("assets")
	require.True(t, ok)
	assert.NotNil(t, items)
	assert.Empty(t, items)

	items, ok = f.fsys.DirectoryItems("missing")
	assert.False(t, ok)
	assert.Nil(t, items)

	_, ok = f.fsys.DirectoryItems("main.lua")
	assert.False(t, ok)

	items, ok = f.fsys.DirectoryItems("")
	require.True(t, ok)
	assert.Equal(t, []string{"a", "assets", "lib", "main.lua"}, items)
}

func TestDirectoryItemsMergeLayers(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.fsys.SetIdentity("merge", false))
	require.NoError(t, f.fsys.CreateDirectory("lib"))
	require.NoError(t, f.fsys.Write("lib/extra.lua", []byte("return 1")))

	items, ok := f.fsys.DirectoryItems("lib")
	require.True(t, ok)
	assert.Equal(t, []string{"extra.lua", "util.lua"}, items)
}

func TestInfo(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.fsys.SetIdentity("info", false))
	require.NoError(t, f.fsys.Write("notes.txt", []byte("12345")))

	info, ok := f.fsys.Info("notes.txt")
	require.True(t, ok)
	assert.Equal(t, archive.FileTypeFile, info.Type)
	assert.EqualValues(t, 5, info.Size)
	assert.False(t, info.ReadOnly)
	assert.False(t, info.ModTime.IsZero())

	info, ok = f.fsys.Info("lib")
	require.True(t, ok)
	assert.True(t, info.IsDir())
	assert.True(t, info.ReadOnly)

	_, ok = f.fsys.Info("nothing")
	assert.False(t, ok)
}

func TestCreateAndRemove(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.fsys.SetIdentity("dirs", false))

	require.NoError(t, f.fsys.CreateDirectory("saves/slot1"))
	assert.DirExists(t, filepath.Join(f.savePath("dirs"), "saves", "slot1"))

	require.NoError(t, f.fsys.Remove("saves/slot1"))
	assert.False(t, f.fsys.Exists("saves/slot1"))
	assert.Error(t, f.fsys.Remove("saves/slot1"))
}

func TestRequireSearchOrder(t *testing.T) {
	f := newFixture(t)

	name, err := f.fsys.ResolveModule("a.b")
	require.NoError(t, err)
	assert.Equal(t, "a/b.lua", name)

	require.NoError(t, f.fsys.SetIdentity("require", false))
	require.NoError(t, f.fsys.CreateDirectory("pkg"))
	require.NoError(t, f.fsys.Write("pkg/init.lua", []byte("return 'pkg'")))
	mod, err := f.fsys.LoadModule("pkg")
	require.NoError(t, err)
	assert.Equal(t, "return 'pkg'", mod.String())
	assert.Equal(t, "pkg/init.lua", mod.Filename())

	_, err = f.fsys.LoadModule("no.such")
	require.ErrorIs(t, err, ErrModuleNotFound)
	var notFound *ModuleNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, []string{"no/such.lua", "no/such/init.lua"}, notFound.Searched)
	assert.Equal(t, "module 'no.such' not found in any of: no/such.lua, no/such/init.lua", err.Error())
}

func TestRequirePath(t *testing.T) {
	f := newFixture(t, WithRequirePath("?.js;?/index.js"))
	assert.Equal(t, "?.js;?/index.js", f.fsys.RequirePath())

	f.fsys.SetRequirePath(" ?.lua ;;lib/?.lua")
	assert.Equal(t, "?.lua;lib/?.lua", f.fsys.RequirePath())

	name, err := f.fsys.ResolveModule("util")
	require.NoError(t, err)
	assert.Equal(t, "lib/util.lua", name)
}

func TestSymlinkPolicy(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.Symlink(filepath.Join(f.source, "lib"), filepath.Join(f.source, "linked")))

	assert.True(t, f.fsys.Exists("linked"))
	assert.True(t, f.fsys.Exists("linked/util.lua"))

	f.fsys.SetSymlinksEnabled(false)
	assert.False(t, f.fsys.SymlinksEnabled())
	assert.False(t, f.fsys.Exists("linked/util.lua"))

	items, ok := f.fsys.DirectoryItems("")
	require.True(t, ok)
	assert.NotContains(t, items, "linked")
}

func TestDirectoryGetters(t *testing.T) {
	f := newFixture(t)

	wd, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, wd, f.fsys.WorkingDirectory())

	appdata, err := f.fsys.AppdataDirectory()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(f.root, "appdata"), appdata)

	save, err := f.fsys.SaveDirectory()
	require.NoError(t, err)
	assert.Empty(t, save)

	assert.Equal(t, filepath.Join(f.root, "bin", "app"), f.fsys.ExecutablePath())
}

func TestSaveUsage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.fsys.SaveUsage(ctx)
	assert.ErrorIs(t, err, ErrIdentityRequired)

	require.NoError(t, f.fsys.SetIdentity("usage", false))
	usage, err := f.fsys.SaveUsage(ctx)
	require.NoError(t, err)
	assert.Equal(t, Usage{Path: f.savePath("usage")}, usage)

	require.NoError(t, f.fsys.Write("a.txt", []byte("12345")))
	require.NoError(t, f.fsys.CreateDirectory("dir"))
	require.NoError(t, f.fsys.Write("dir/b.txt", []byte("xy")))

	usage, err = f.fsys.SaveUsage(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, usage.Files)
	assert.EqualValues(t, 1, usage.Directories)
	assert.EqualValues(t, 7, usage.Bytes)
}

func TestSaveUsageOnInjectedFs(t *testing.T) {
	root := filepath.FromSlash("/mem")
	fsys := New(WithPlatform(testutil.NewMockPlatform(t, root)), WithFs(afero.NewMemMapFs()))
	require.NoError(t, fsys.Init(filepath.Join(root, "bin", "app")))
	defer fsys.Close()

	require.NoError(t, fsys.SetIdentity("mem", false))
	require.NoError(t, fsys.Write("a.txt", []byte("1234")))
	require.NoError(t, fsys.CreateDirectory("dir"))
	require.NoError(t, fsys.Write("dir/b.txt", []byte("56")))

	usage, err := fsys.SaveUsage(context.Background())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "appdata", "vfs", "mem"), usage.Path)
	assert.EqualValues(t, 2, usage.Files)
	assert.EqualValues(t, 1, usage.Directories)
	assert.EqualValues(t, 6, usage.Bytes)
}

func TestMetrics(t *testing.T) {
	metrics := monitoring.NewMetrics(prometheus.NewRegistry())
	f := newFixture(t, WithMetrics(metrics))

	require.NoError(t, f.fsys.SetIdentity("metrics", false))
	require.NoError(t, f.fsys.Write("m.txt", []byte("abc")))
	_, err := f.fsys.ReadAll("m.txt")
	require.NoError(t, err)
	assert.Error(t, f.fsys.Mount("missing", "m", false))

	snap := metrics.Snapshot()
	assert.EqualValues(t, 2, snap.MountsActive)
	assert.EqualValues(t, 3, snap.BytesWritten)
	assert.EqualValues(t, 3, snap.BytesRead)
	assert.EqualValues(t, 1, snap.IdentitySwaps)
	assert.EqualValues(t, 1, snap.MountErrors)
	assert.EqualValues(t, 0, snap.HandlesOpen)
}

func TestCloseUnmountsEverything(t *testing.T) {
	f := newFixture(t)
	data := NewFileData(testutil.ZipArchive(t, testutil.Files{"x.txt": "x"}), "x.zip")
	require.NoError(t, f.fsys.MountData(data, "", "x", false))

	require.NoError(t, f.fsys.Close())
	assert.Empty(t, f.fsys.Mounts())
	assert.EqualValues(t, 1, data.RefCount())
	assert.False(t, f.fsys.Exists("main.lua"))
	assert.Empty(t, f.fsys.Source())
}
