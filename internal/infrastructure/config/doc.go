// Package config provides 12-factor configuration management for the
// virtual filesystem.
//
// Configuration is loaded from environment variables with sensible defaults.
// CLI flags can override environment variables.
//
// Configuration Sections:
//   - Filesystem: identity, source, require path, mount allow-list, limits
//   - Logging: Log level and output format
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fsys := filesystem.New(filesystem.WithAppdataFolder(cfg.Filesystem.AppdataFolder))
//
// Environment Variables:
//   - VFS_IDENTITY, VFS_APPEND_IDENTITY, VFS_SOURCE, VFS_FUSED
//   - VFS_REQUIRE_PATH, VFS_SYMLINKS, VFS_ALLOWED_MOUNTS
//   - VFS_APPDATA_FOLDER, VFS_MAX_READ_SIZE
//   - LOG_LEVEL, LOG_DEV
package config
