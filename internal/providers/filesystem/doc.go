// Package filesystem exposes the virtual filesystem as tool calls.
//
// This package is organized into specialized modules:
//   - basic: Whole-file operations (read, write, append, delete)
//   - directory: Directory operations (list, create, walk, tree)
//   - mounts: Mount table, identity and save directory management
//   - metadata: File metadata and type detection
//   - search: Glob, content search and module resolution
//   - formats: Structured formats (JSON, YAML, CSV, TOML) and compression
//   - archives: ZIP and TAR packing, listing and mounting
//
// All operations:
//   - Resolve paths in the merged virtual namespace
//   - Write only to the save directory of the current identity
//   - Return structured JSON results
//
// Context Resolution:
//   - With an Identity in the context: the filesystem switches to it first
//   - Without one: operations use the current identity
//
// Example Usage:
//
//	provider := filesystem.NewProvider(fsys, log)
//	result, err := provider.Execute(ctx, "filesystem.read", params, appCtx)
package filesystem
