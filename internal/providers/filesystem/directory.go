package filesystem

import (
	"context"
	"io/fs"
	"strings"

	"github.com/GriffinCanCode/AgentOS/vfs/internal/shared/paths"
	"github.com/GriffinCanCode/AgentOS/vfs/internal/types"
)

// DirectoryOps handles directory operations
type DirectoryOps struct {
	*FilesystemOps
}

// GetTools returns directory operation tool definitions
func (d *DirectoryOps) GetTools() []types.Tool {
	return []types.Tool{
		{
			ID:          "filesystem.dir.list",
			Name:        "List Directory",
			Description: "List contents of a directory across all mounts",
			Parameters: []types.Parameter{
				{Name: "path", Type: "string", Description: "Directory path", Required: true},
			},
			Returns: "array",
		},
		{
			ID:          "filesystem.dir.create",
			Name:        "Create Directory",
			Description: "Create a new directory in the save directory (recursive)",
			Parameters: []types.Parameter{
				{Name: "path", Type: "string", Description: "Directory path", Required: true},
			},
			Returns: "boolean",
		},
		{
			ID:          "filesystem.dir.exists",
			Name:        "Check Directory Exists",
			Description: "Check if directory exists",
			Parameters: []types.Parameter{
				{Name: "path", Type: "string", Description: "Directory path", Required: true},
			},
			Returns: "boolean",
		},
		{
			ID:          "filesystem.dir.walk",
			Name:        "Walk Directory",
			Description: "Walk directory recursively",
			Parameters: []types.Parameter{
				{Name: "path", Type: "string", Description: "Directory path", Required: true},
				{Name: "max_depth", Type: "number", Description: "Max depth (0=unlimited)", Required: false},
			},
			Returns: "array",
		},
		{
			ID:          "filesystem.dir.tree",
			Name:        "Directory Tree",
			Description: "Get directory tree structure",
			Parameters: []types.Parameter{
				{Name: "path", Type: "string", Description: "Directory path", Required: true},
				{Name: "max_depth", Type: "number", Description: "Max depth (0=unlimited)", Required: false},
			},
			Returns: "string",
		},
		{
			ID:          "filesystem.dir.flatten",
			Name:        "Flatten Files",
			Description: "Get all files as flat array",
			Parameters: []types.Parameter{
				{Name: "path", Type: "string", Description: "Directory path", Required: true},
			},
			Returns: "array",
		},
	}
}

// List lists directory contents
func (d *DirectoryOps) List(ctx context.Context, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	path, ok := pathParam(params)
	if !ok {
		return Failure("path parameter required")
	}

	names, ok := d.FS.DirectoryItems(path)
	if !ok {
		return Failuref("list failed: %s is not a directory", path)
	}

	dir, err := paths.Normalize(path)
	if err != nil {
		return Failuref("list failed: %v", err)
	}

	entries := make([]FileInfo, 0, len(names))
	for _, name := range names {
		child := paths.Join(dir, name)
		if info, ok := d.FS.Info(child); ok {
			entries = append(entries, fileInfo(child, info))
		}
	}

	return Success(map[string]interface{}{
		"path":    path,
		"files":   names,
		"entries": entries,
		"count":   len(names),
	})
}

// Create creates a directory
func (d *DirectoryOps) Create(ctx context.Context, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	path, ok := pathParam(params)
	if !ok {
		return Failure("path parameter required")
	}

	if err := d.FS.CreateDirectory(path); err != nil {
		return Failuref("create failed: %v", err)
	}

	return Success(map[string]interface{}{"created": true, "path": path})
}

// Exists checks if directory exists
func (d *DirectoryOps) Exists(ctx context.Context, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	path, ok := pathParam(params)
	if !ok {
		return Failure("path parameter required")
	}

	info, ok := d.FS.Info(path)
	isDir := ok && info.IsDir()
	return Success(map[string]interface{}{"exists": isDir, "path": path, "is_dir": isDir})
}

// Walk walks directory recursively
func (d *DirectoryOps) Walk(ctx context.Context, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	path, ok := pathParam(params)
	if !ok {
		return Failure("path parameter required")
	}
	maxDepth := intParam(params, "max_depth", 0)

	root, err := fsPath(path)
	if err != nil {
		return Failuref("walk failed: %v", err)
	}

	entries := []map[string]interface{}{}
	err = d.walk(ctx, root, maxDepth, func(rel string, entry fs.DirEntry) {
		info, err := entry.Info()
		if err != nil {
			return
		}
		entries = append(entries, map[string]interface{}{
			"path":     rel,
			"is_dir":   entry.IsDir(),
			"size":     info.Size(),
			"modified": info.ModTime().Unix(),
		})
	})
	if err != nil {
		return Failuref("walk failed: %v", err)
	}

	return Success(map[string]interface{}{"path": path, "entries": entries, "count": len(entries)})
}

// Tree generates directory tree structure
func (d *DirectoryOps) Tree(ctx context.Context, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	path, ok := pathParam(params)
	if !ok {
		return Failure("path parameter required")
	}
	maxDepth := intParam(params, "max_depth", 0)

	root, err := fsPath(path)
	if err != nil {
		return Failuref("tree failed: %v", err)
	}

	var tree strings.Builder
	if root == "." {
		tree.WriteString("/\n")
	} else {
		tree.WriteString(paths.Base(root) + "/\n")
	}

	err = d.walk(ctx, root, maxDepth, func(rel string, entry fs.DirEntry) {
		tree.WriteString(strings.Repeat("  ", depthOf(rel)))
		tree.WriteString(entry.Name())
		if entry.IsDir() {
			tree.WriteString("/")
		}
		tree.WriteString("\n")
	})
	if err != nil {
		return Failuref("tree failed: %v", err)
	}

	return Success(map[string]interface{}{"path": path, "tree": tree.String()})
}

// Flatten gets all files as flat array
func (d *DirectoryOps) Flatten(ctx context.Context, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	path, ok := pathParam(params)
	if !ok {
		return Failure("path parameter required")
	}

	root, err := fsPath(path)
	if err != nil {
		return Failuref("flatten failed: %v", err)
	}

	files := []string{}
	err = d.walk(ctx, root, 0, func(rel string, entry fs.DirEntry) {
		if !entry.IsDir() {
			files = append(files, rel)
		}
	})
	if err != nil {
		return Failuref("flatten failed: %v", err)
	}

	return Success(map[string]interface{}{"path": path, "files": files, "count": len(files)})
}
