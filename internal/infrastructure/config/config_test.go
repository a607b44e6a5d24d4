package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsMatchDefault(t *testing.T) {
	for _, key := range []string{
		"VFS_IDENTITY", "VFS_APPEND_IDENTITY", "VFS_SOURCE", "VFS_FUSED", "VFS_REQUIRE_PATH",
		"VFS_SYMLINKS", "VFS_ALLOWED_MOUNTS", "VFS_APPDATA_FOLDER", "VFS_MAX_READ_SIZE",
		"LOG_LEVEL", "LOG_DEV",
	} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default().Filesystem.RequirePath, cfg.Filesystem.RequirePath)
	assert.Equal(t, Default().Filesystem.MaxReadSize, cfg.Filesystem.MaxReadSize)
	assert.True(t, cfg.Filesystem.Symlinks)
	assert.Equal(t, "vfs", cfg.Filesystem.AppdataFolder)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("VFS_IDENTITY", "mygame")
	t.Setenv("VFS_FUSED", "true")
	t.Setenv("VFS_SYMLINKS", "false")
	t.Setenv("VFS_ALLOWED_MOUNTS", "/opt/mods,/srv/shared")
	t.Setenv("VFS_REQUIRE_PATH", "?.js;?/index.js")
	t.Setenv("LOG_DEV", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "mygame", cfg.Filesystem.Identity)
	assert.True(t, cfg.Filesystem.Fused)
	assert.False(t, cfg.Filesystem.Symlinks)
	assert.Equal(t, []string{"/opt/mods", "/srv/shared"}, cfg.Filesystem.AllowedMounts)
	assert.Equal(t, "?.js;?/index.js", cfg.Filesystem.RequirePath)
	assert.True(t, cfg.Logging.Development)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("VFS_FUSED", "maybe")
	_, err := Load()
	assert.Error(t, err)

	assert.Equal(t, Default(), LoadOrDefault())
}

func TestLoadRejectsNonPositiveReadSize(t *testing.T) {
	t.Setenv("VFS_MAX_READ_SIZE", "0")
	_, err := Load()
	assert.Error(t, err)
}
