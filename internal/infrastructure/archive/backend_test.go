package archive

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/GriffinCanCode/AgentOS/vfs/internal/shared/paths"
	"github.com/GriffinCanCode/AgentOS/vfs/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBackend(t *testing.T) *Backend {
	t.Helper()

	b := New()
	require.NoError(t, b.Init(filepath.Join(t.TempDir(), "bin", "vfs")))
	t.Cleanup(func() {
		if b.Initialized() {
			_ = b.Deinit()
		}
	})
	return b
}

func readAll(t *testing.T, b *Backend, name string) string {
	t.Helper()

	s, err := b.OpenRead(name)
	require.NoError(t, err)
	defer s.Close()

	data, err := io.ReadAll(s)
	require.NoError(t, err)
	return string(data)
}

func TestOperationsRequireInit(t *testing.T) {
	b := New()

	assert.ErrorIs(t, b.Mount(t.TempDir(), "/", PermissionRead, false), ErrNotInitialized)
	_, err := b.Stat("a")
	assert.ErrorIs(t, err, ErrNotInitialized)
	_, err = b.Enumerate("")
	assert.ErrorIs(t, err, ErrNotInitialized)
	_, err = b.OpenRead("a")
	assert.ErrorIs(t, err, ErrNotInitialized)
	_, err = b.OpenWrite("a")
	assert.ErrorIs(t, err, ErrNotInitialized)
	assert.ErrorIs(t, b.SetWriteDir(t.TempDir()), ErrNotInitialized)
	dir := filepath.Join(t.TempDir(), "made")
	assert.ErrorIs(t, b.MkdirAllReal(dir), ErrNotInitialized)
	assert.NoDirExists(t, dir)
	assert.False(t, b.IsRealDirectory(t.TempDir()))
	assert.ErrorIs(t, b.Deinit(), ErrNotInitialized)
	assert.NotEmpty(t, b.LastError())
}

func TestInitTwiceFails(t *testing.T) {
	b := newBackend(t)
	assert.ErrorIs(t, b.Init(""), ErrAlreadyInitialized)
	assert.Equal(t, "bin", filepath.Base(b.BaseDir()))
}

func TestMountDirectoryPrecedence(t *testing.T) {
	b := newBackend(t)
	low, high := t.TempDir(), t.TempDir()
	testutil.WriteTree(t, low, testutil.Files{"conf.txt": "low", "only-low.txt": "x"})
	testutil.WriteTree(t, high, testutil.Files{"conf.txt": "high"})

	require.NoError(t, b.Mount(low, "/", PermissionRead, true))
	require.NoError(t, b.Mount(high, "/", PermissionRead, false))

	assert.Equal(t, "high", readAll(t, b, "conf.txt"))
	assert.Equal(t, "x", readAll(t, b, "/only-low.txt"))
	assert.Equal(t, []string{high, low}, b.SearchPath())

	realDir, err := b.RealDir("only-low.txt")
	require.NoError(t, err)
	assert.Equal(t, low, realDir)

	require.NoError(t, b.Unmount(high))
	assert.Equal(t, "low", readAll(t, b, "conf.txt"))
}

func TestAppendedMountIsSearchedLast(t *testing.T) {
	b := newBackend(t)
	first, second := t.TempDir(), t.TempDir()
	testutil.WriteTree(t, first, testutil.Files{"a.txt": "first"})
	testutil.WriteTree(t, second, testutil.Files{"a.txt": "second"})

	require.NoError(t, b.Mount(first, "", PermissionRead, true))
	require.NoError(t, b.Mount(second, "", PermissionRead, true))

	assert.Equal(t, "first", readAll(t, b, "a.txt"))
}

func TestDuplicateMountFails(t *testing.T) {
	b := newBackend(t)
	dir := t.TempDir()

	require.NoError(t, b.Mount(dir, "/", PermissionRead, false))
	assert.ErrorIs(t, b.Mount(dir, "/other", PermissionRead, false), ErrDuplicateMount)

	mp, ok := b.MountPoint(dir)
	require.True(t, ok)
	assert.Equal(t, "/", mp)
}

func TestMountRejectsInvalidInput(t *testing.T) {
	b := newBackend(t)

	assert.ErrorIs(t, b.Mount("", "/", PermissionRead, false), paths.ErrInvalidPath)
	assert.ErrorIs(t, b.Mount("/", "/", PermissionRead, false), paths.ErrInvalidPath)
	assert.ErrorIs(t, b.Mount(t.TempDir(), "../up", PermissionRead, false), paths.ErrInvalidPath)
	assert.Error(t, b.Mount(filepath.Join(t.TempDir(), "missing"), "/", PermissionRead, false))
	assert.Empty(t, b.SearchPath())
}

func TestMountPointsMaterialiseDirectories(t *testing.T) {
	b := newBackend(t)
	base, mod := t.TempDir(), t.TempDir()
	testutil.WriteTree(t, base, testutil.Files{"main.lua": "", "mods/readme.txt": ""})
	testutil.WriteTree(t, mod, testutil.Files{"level.map": "L"})

	require.NoError(t, b.Mount(base, "/", PermissionRead, false))
	require.NoError(t, b.Mount(mod, "mods/extra/content", PermissionRead, true))

	info, err := b.Stat("mods/extra")
	require.NoError(t, err)
	assert.Equal(t, FileTypeDirectory, info.Type)

	items, err := b.Enumerate("mods")
	require.NoError(t, err)
	assert.Equal(t, []string{"extra", "readme.txt"}, items)

	items, err = b.Enumerate("/")
	require.NoError(t, err)
	assert.Equal(t, []string{"main.lua", "mods"}, items)

	assert.Equal(t, "L", readAll(t, b, "mods/extra/content/level.map"))
	assert.False(t, b.Exists("mods/missing"))
}

func TestEnumerateDistinguishesEmptyFromMissing(t *testing.T) {
	b := newBackend(t)
	dir := t.TempDir()
	testutil.WriteTree(t, dir, testutil.Files{"empty/": "", "file.txt": "x"})
	require.NoError(t, b.Mount(dir, "/", PermissionRead, false))

	items, err := b.Enumerate("empty")
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)

	_, err = b.Enumerate("nope")
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = b.Enumerate("file.txt")
	assert.ErrorIs(t, err, ErrNotDirectory)
}

func TestWritesGoToWriteDirectory(t *testing.T) {
	b := newBackend(t)
	save := t.TempDir()

	_, err := b.OpenWrite("x.txt")
	assert.ErrorIs(t, err, ErrNoWriteDir)
	assert.ErrorIs(t, b.Mkdir("d"), ErrNoWriteDir)

	require.NoError(t, b.Mount(save, "/", PermissionReadWrite, false))
	assert.Equal(t, save, b.WriteDir())

	s, err := b.OpenWrite("x.txt")
	require.NoError(t, err)
	_, err = s.Write([]byte("one"))
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	s, err = b.OpenAppend("x.txt")
	require.NoError(t, err)
	_, err = s.Write([]byte("two"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	assert.Equal(t, "onetwo", readAll(t, b, "x.txt"))
	onDisk, err := os.ReadFile(filepath.Join(save, "x.txt"))
	require.NoError(t, err)
	assert.Equal(t, "onetwo", string(onDisk))

	info, err := b.Stat("x.txt")
	require.NoError(t, err)
	assert.False(t, info.ReadOnly)
	assert.EqualValues(t, 6, info.Size)

	require.NoError(t, b.Mkdir("a/b"))
	assert.True(t, b.IsRealDirectory(filepath.Join(save, "a", "b")))
	require.NoError(t, b.Remove("a/b"))
	assert.False(t, b.Exists("a/b"))
	assert.ErrorIs(t, b.Remove("/"), paths.ErrInvalidPath)
}

func TestUnmountWriteDirClearsSlot(t *testing.T) {
	b := newBackend(t)
	save := t.TempDir()

	require.NoError(t, b.Mount(save, "/", PermissionReadWrite, false))
	require.NoError(t, b.Unmount(save))
	assert.Empty(t, b.WriteDir())

	_, err := b.OpenWrite("x")
	assert.ErrorIs(t, err, ErrNoWriteDir)
	assert.ErrorIs(t, b.Unmount(save), ErrNotMounted)
}

func TestReadWriteMountFailureHasNoSideEffects(t *testing.T) {
	b := newBackend(t)
	save := t.TempDir()
	require.NoError(t, b.SetWriteDir(save))

	file := testutil.WriteFile(t, t.TempDir(), "plain.txt", []byte("not a dir"))
	assert.Error(t, b.Mount(file, "/", PermissionReadWrite, false))

	assert.Equal(t, save, b.WriteDir())
	assert.Empty(t, b.SearchPath())
}

func TestReadOnlyDirectoryLayer(t *testing.T) {
	b := newBackend(t)
	dir := t.TempDir()
	testutil.WriteTree(t, dir, testutil.Files{"a.txt": "a"})
	require.NoError(t, b.Mount(dir, "/", PermissionRead, false))

	info, err := b.Stat("a.txt")
	require.NoError(t, err)
	assert.True(t, info.ReadOnly)
	assert.Equal(t, FileTypeFile, info.Type)
}

func TestMountArchives(t *testing.T) {
	files := testutil.Files{"scripts/main.lua": "print('hi')", "data/one.txt": "1"}

	tests := []struct {
		name string
		data []byte
	}{
		{name: "zip", data: testutil.ZipArchive(t, files)},
		{name: "tar", data: testutil.TarArchive(t, files)},
		{name: "tar.gz", data: testutil.TarGzArchive(t, files)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newBackend(t)
			archivePath := testutil.WriteFile(t, t.TempDir(), "game."+tt.name, tt.data)

			require.NoError(t, b.Mount(archivePath, "game", PermissionRead, false))

			assert.Equal(t, "print('hi')", readAll(t, b, "game/scripts/main.lua"))
			items, err := b.Enumerate("game")
			require.NoError(t, err)
			assert.Equal(t, []string{"data", "scripts"}, items)

			info, err := b.Stat("game/data/one.txt")
			require.NoError(t, err)
			assert.EqualValues(t, 1, info.Size)
			assert.True(t, info.ReadOnly)

			require.NoError(t, b.Unmount(archivePath))
			assert.False(t, b.Exists("game/data/one.txt"))
		})
	}
}

func TestMountArchiveReadWriteRejected(t *testing.T) {
	b := newBackend(t)
	archivePath := testutil.WriteFile(t, t.TempDir(), "a.zip", testutil.ZipArchive(t, testutil.Files{"a": "a"}))

	assert.Error(t, b.Mount(archivePath, "/", PermissionReadWrite, false))
	assert.Empty(t, b.WriteDir())
}

func TestMountMemory(t *testing.T) {
	b := newBackend(t)
	data := testutil.ZipArchive(t, testutil.Files{"inside.txt": "payload"})

	require.NoError(t, b.MountMemory(data, "data:1", "mem", false))
	assert.Equal(t, "payload", readAll(t, b, "mem/inside.txt"))
	assert.ErrorIs(t, b.MountMemory(data, "data:1", "mem", false), ErrDuplicateMount)

	require.NoError(t, b.Unmount("data:1"))
	assert.False(t, b.Exists("mem/inside.txt"))

	assert.ErrorIs(t, b.MountMemory([]byte("plain"), "data:2", "x", false), ErrUnsupportedArchive)
}

func TestOpenReadDirectoryFails(t *testing.T) {
	b := newBackend(t)
	dir := t.TempDir()
	testutil.WriteTree(t, dir, testutil.Files{"sub/": ""})
	require.NoError(t, b.Mount(dir, "/", PermissionRead, false))

	_, err := b.OpenRead("sub")
	assert.ErrorIs(t, err, ErrIsDirectory)
	_, err = b.OpenRead("missing")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSymlinkPolicy(t *testing.T) {
	b := newBackend(t)
	dir, target := t.TempDir(), t.TempDir()
	testutil.WriteTree(t, target, testutil.Files{"secret.txt": "s"})
	testutil.WriteTree(t, dir, testutil.Files{"plain.txt": "p"})
	if err := os.Symlink(target, filepath.Join(dir, "link")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	require.NoError(t, b.Mount(dir, "/", PermissionRead, false))

	b.PermitSymbolicLinks(false)
	assert.False(t, b.SymbolicLinksPermitted())
	assert.False(t, b.Exists("link/secret.txt"))
	assert.False(t, b.Exists("link"))
	items, err := b.Enumerate("")
	require.NoError(t, err)
	assert.Equal(t, []string{"plain.txt"}, items)

	b.PermitSymbolicLinks(true)
	info, err := b.Stat("link")
	require.NoError(t, err)
	assert.Equal(t, FileTypeSymlink, info.Type)
	assert.Equal(t, "s", readAll(t, b, "link/secret.txt"))
}

func TestStreamSizeAndSeek(t *testing.T) {
	b := newBackend(t)
	dir := t.TempDir()
	testutil.WriteTree(t, dir, testutil.Files{"f.bin": "0123456789"})
	require.NoError(t, b.Mount(dir, "/", PermissionRead, false))

	s, err := b.OpenRead("f.bin")
	require.NoError(t, err)
	defer s.Close()

	size, err := s.Size()
	require.NoError(t, err)
	assert.EqualValues(t, 10, size)

	_, err = s.Seek(4, io.SeekStart)
	require.NoError(t, err)
	pos, err := s.Tell()
	require.NoError(t, err)
	assert.EqualValues(t, 4, pos)

	_, err = s.Write([]byte("x"))
	assert.ErrorIs(t, err, os.ErrPermission)
	assert.False(t, s.Writable())
	assert.Equal(t, "f.bin", s.Path())
}

func TestDeinitClearsState(t *testing.T) {
	b := newBackend(t)
	dir := t.TempDir()
	require.NoError(t, b.Mount(dir, "/", PermissionReadWrite, false))

	require.NoError(t, b.Deinit())
	assert.False(t, b.Initialized())
	require.NoError(t, b.Init(""))
	assert.Empty(t, b.SearchPath())
	assert.Empty(t, b.WriteDir())
}

func TestPermissionAndFileTypeNames(t *testing.T) {
	p, ok := ParsePermission("readwrite")
	require.True(t, ok)
	assert.Equal(t, PermissionReadWrite, p)
	_, ok = ParsePermission("exec")
	assert.False(t, ok)

	ft, ok := ParseFileType("symlink")
	require.True(t, ok)
	assert.Equal(t, FileTypeSymlink, ft)
	assert.Equal(t, "directory", FileTypeDirectory.String())
}
