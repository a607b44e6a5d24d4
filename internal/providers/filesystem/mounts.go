package filesystem

import (
	"context"

	"github.com/GriffinCanCode/AgentOS/vfs/internal/domain/filesystem"
	"github.com/GriffinCanCode/AgentOS/vfs/internal/infrastructure/archive"
	"github.com/GriffinCanCode/AgentOS/vfs/internal/shared/paths"
	"github.com/GriffinCanCode/AgentOS/vfs/internal/types"
)

// MountsOps handles the mount table, identity and save directory
type MountsOps struct {
	*FilesystemOps
}

// GetTools returns mount operation tool definitions
func (m *MountsOps) GetTools() []types.Tool {
	return []types.Tool{
		{
			ID:          "filesystem.mount",
			Name:        "Mount",
			Description: "Mount a directory or archive that is visible in the filesystem, read-only",
			Parameters: []types.Parameter{
				{Name: "archive", Type: "string", Description: "Virtual path of the archive or directory", Required: true},
				{Name: "mount_point", Type: "string", Description: "Where to mount it (default root)", Required: false},
				{Name: "append", Type: "boolean", Description: "Search after existing mounts (default false)", Required: false},
			},
			Returns: "boolean",
		},
		{
			ID:          "filesystem.unmount",
			Name:        "Unmount",
			Description: "Unmount an archive mounted with filesystem.mount",
			Parameters: []types.Parameter{
				{Name: "archive", Type: "string", Description: "Virtual path of the archive or directory", Required: true},
			},
			Returns: "boolean",
		},
		{
			ID:          "filesystem.mount_full_path",
			Name:        "Mount Full Path",
			Description: "Mount a real directory or archive by its real path",
			Parameters: []types.Parameter{
				{Name: "path", Type: "string", Description: "Real path", Required: true},
				{Name: "mount_point", Type: "string", Description: "Where to mount it (default root)", Required: false},
				{Name: "permission", Type: "string", Description: "read or readwrite (default read)", Required: false},
				{Name: "append", Type: "boolean", Description: "Search after existing mounts (default false)", Required: false},
			},
			Returns: "boolean",
		},
		{
			ID:          "filesystem.unmount_full_path",
			Name:        "Unmount Full Path",
			Description: "Unmount a real path",
			Parameters: []types.Parameter{
				{Name: "path", Type: "string", Description: "Real path", Required: true},
			},
			Returns: "boolean",
		},
		{
			ID:          "filesystem.mount_common_path",
			Name:        "Mount Common Path",
			Description: "Mount a platform directory such as appdocuments or userhome",
			Parameters: []types.Parameter{
				{Name: "common_path", Type: "string", Description: "userhome, userdocuments, userappdata, appsavedir or appdocuments", Required: true},
				{Name: "mount_point", Type: "string", Description: "Where to mount it", Required: true},
				{Name: "permission", Type: "string", Description: "read or readwrite (default read)", Required: false},
				{Name: "append", Type: "boolean", Description: "Search after existing mounts (default false)", Required: false},
			},
			Returns: "boolean",
		},
		{
			ID:          "filesystem.unmount_common_path",
			Name:        "Unmount Common Path",
			Description: "Unmount a platform directory",
			Parameters: []types.Parameter{
				{Name: "common_path", Type: "string", Description: "Common path name", Required: true},
			},
			Returns: "boolean",
		},
		{
			ID:          "filesystem.mounts",
			Name:        "List Mounts",
			Description: "List mounts in lookup order",
			Parameters:  []types.Parameter{},
			Returns:     "array",
		},
		{
			ID:          "filesystem.identity.set",
			Name:        "Set Identity",
			Description: "Switch the identity and its save directory",
			Parameters: []types.Parameter{
				{Name: "identity", Type: "string", Description: "Identity name", Required: true},
				{Name: "append", Type: "boolean", Description: "Search the save directory after other mounts", Required: false},
			},
			Returns: "object",
		},
		{
			ID:          "filesystem.identity.get",
			Name:        "Get Identity",
			Description: "Get the identity and save directory",
			Parameters:  []types.Parameter{},
			Returns:     "object",
		},
		{
			ID:          "filesystem.directories",
			Name:        "Directories",
			Description: "Get the real directories behind the filesystem",
			Parameters:  []types.Parameter{},
			Returns:     "object",
		},
		{
			ID:          "filesystem.real_directory",
			Name:        "Real Directory",
			Description: "Get the real directory or archive that provides a path",
			Parameters: []types.Parameter{
				{Name: "path", Type: "string", Description: "Virtual path", Required: true},
			},
			Returns: "string",
		},
		{
			ID:          "filesystem.usage",
			Name:        "Save Directory Usage",
			Description: "Count files and bytes in the save directory",
			Parameters:  []types.Parameter{},
			Returns:     "object",
		},
	}
}

// Mount mounts a virtual path
func (m *MountsOps) Mount(ctx context.Context, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	archivePath, ok := stringParam(params, "archive")
	if !ok {
		return Failure("archive parameter required")
	}
	mountPoint, _ := params["mount_point"].(string)

	if err := m.FS.Mount(archivePath, mountPoint, boolParam(params, "append", false)); err != nil {
		return Failuref("mount failed: %v", err)
	}

	return Success(map[string]interface{}{"mounted": true, "archive": archivePath, "mount_point": mountPoint})
}

// Unmount unmounts a virtual path
func (m *MountsOps) Unmount(ctx context.Context, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	archivePath, ok := stringParam(params, "archive")
	if !ok {
		return Failure("archive parameter required")
	}

	if err := m.FS.Unmount(archivePath); err != nil {
		return Failuref("unmount failed: %v", err)
	}

	return Success(map[string]interface{}{"unmounted": true, "archive": archivePath})
}

// MountFullPath mounts a real path
func (m *MountsOps) MountFullPath(ctx context.Context, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	path, ok := pathParam(params)
	if !ok {
		return Failure("path parameter required")
	}
	mountPoint, _ := params["mount_point"].(string)

	perm, ok := permissionParam(params)
	if !ok {
		return Failure("permission must be read or readwrite")
	}

	if err := m.FS.MountFullPath(path, mountPoint, perm, boolParam(params, "append", false)); err != nil {
		return Failuref("mount failed: %v", err)
	}

	return Success(map[string]interface{}{"mounted": true, "path": path, "permission": perm.String()})
}

// UnmountFullPath unmounts a real path
func (m *MountsOps) UnmountFullPath(ctx context.Context, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	path, ok := pathParam(params)
	if !ok {
		return Failure("path parameter required")
	}

	if err := m.FS.UnmountFullPath(path); err != nil {
		return Failuref("unmount failed: %v", err)
	}

	return Success(map[string]interface{}{"unmounted": true, "path": path})
}

// MountCommonPath mounts a common path
func (m *MountsOps) MountCommonPath(ctx context.Context, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	cp, ok := commonPathParam(params)
	if !ok {
		return Failure("valid common_path parameter required")
	}
	mountPoint, ok := stringParam(params, "mount_point")
	if !ok {
		return Failure("mount_point parameter required")
	}

	perm, ok := permissionParam(params)
	if !ok {
		return Failure("permission must be read or readwrite")
	}

	if err := m.FS.MountCommonPath(cp, mountPoint, perm, boolParam(params, "append", false)); err != nil {
		return Failuref("mount failed: %v", err)
	}

	return Success(map[string]interface{}{"mounted": true, "common_path": cp.String(), "mount_point": mountPoint})
}

// UnmountCommonPath unmounts a common path
func (m *MountsOps) UnmountCommonPath(ctx context.Context, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	cp, ok := commonPathParam(params)
	if !ok {
		return Failure("valid common_path parameter required")
	}

	if err := m.FS.UnmountCommonPath(cp); err != nil {
		return Failuref("unmount failed: %v", err)
	}

	return Success(map[string]interface{}{"unmounted": true, "common_path": cp.String()})
}

// Mounts lists the mount table
func (m *MountsOps) Mounts(ctx context.Context, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	entries := m.FS.Mounts()

	mounts := make([]map[string]interface{}, 0, len(entries))
	for _, e := range entries {
		entry := map[string]interface{}{
			"key":         e.Key,
			"mount_point": "/" + e.MountPoint,
			"permission":  e.Permission.String(),
			"append":      e.Append,
		}
		if e.Common != nil {
			entry["common_path"] = e.Common.String()
		}
		if e.Data != nil {
			entry["in_memory"] = true
		}
		mounts = append(mounts, entry)
	}

	return Success(map[string]interface{}{"mounts": mounts, "count": len(mounts)})
}

// SetIdentity switches the identity
func (m *MountsOps) SetIdentity(ctx context.Context, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	identity, ok := stringParam(params, "identity")
	if !ok {
		return Failure("identity parameter required")
	}

	if err := m.FS.SetIdentity(identity, boolParam(params, "append", false)); err != nil {
		return Failuref("set identity failed: %v", err)
	}

	return m.GetIdentity(ctx, params, appCtx)
}

// GetIdentity returns the identity and save directory
func (m *MountsOps) GetIdentity(ctx context.Context, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	save, err := m.FS.SaveDirectory()
	if err != nil {
		return Failuref("save directory lookup failed: %v", err)
	}

	return Success(map[string]interface{}{
		"identity":       m.FS.Identity(),
		"save_directory": save,
		"fused":          m.FS.IsFused(),
	})
}

// Directories returns the real directories behind the filesystem
func (m *MountsOps) Directories(ctx context.Context, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	result := map[string]interface{}{
		"working":     m.FS.WorkingDirectory(),
		"executable":  m.FS.ExecutablePath(),
		"source":      m.FS.Source(),
		"source_base": m.FS.SourceBaseDirectory(),
	}

	for cp := paths.CommonPath(0); cp < paths.CommonPathCount; cp++ {
		full, err := m.FS.FullCommonPath(cp)
		if err != nil {
			return Failuref("%s lookup failed: %v", cp, err)
		}
		result[cp.String()] = full
	}

	return Success(result)
}

// RealDirectory returns the real directory providing a path
func (m *MountsOps) RealDirectory(ctx context.Context, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	path, ok := pathParam(params)
	if !ok {
		return Failure("path parameter required")
	}

	realDir, err := m.FS.RealDirectory(path)
	if err != nil {
		return Failuref("lookup failed: %v", err)
	}

	return Success(map[string]interface{}{"path": path, "real_directory": realDir})
}

// Usage summarises the save directory
func (m *MountsOps) Usage(ctx context.Context, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	usage, err := m.FS.SaveUsage(ctx)
	if err != nil {
		return Failuref("usage failed: %v", err)
	}

	return Success(map[string]interface{}{
		"path":        usage.Path,
		"files":       usage.Files,
		"directories": usage.Directories,
		"bytes":       usage.Bytes,
		"size_human":  formatBytes(usage.Bytes),
	})
}

func permissionParam(params map[string]interface{}) (filesystem.Permission, bool) {
	s, _ := params["permission"].(string)
	return archive.ParsePermission(s)
}

func commonPathParam(params map[string]interface{}) (paths.CommonPath, bool) {
	s, ok := params["common_path"].(string)
	if !ok {
		return 0, false
	}
	return paths.ParseCommonPath(s)
}
