package filesystem

import (
	"context"
	"sort"

	"github.com/GriffinCanCode/AgentOS/vfs/internal/domain/filesystem"
	"github.com/GriffinCanCode/AgentOS/vfs/internal/logging"
	"github.com/GriffinCanCode/AgentOS/vfs/internal/types"
	"go.uber.org/zap"
)

// Handler executes one tool.
type Handler func(ctx context.Context, params map[string]interface{}, appCtx *types.Context) (*types.Result, error)

// Provider exposes the virtual filesystem as a tool service
type Provider struct {
	ops      *FilesystemOps
	tools    []types.Tool
	handlers map[string]Handler
}

// NewProvider creates a filesystem provider over fsys
func NewProvider(fsys *filesystem.Filesystem, log *logging.Logger) *Provider {
	ops := &FilesystemOps{FS: fsys, Log: logging.OrNop(log).Named("provider")}

	basic := &BasicOps{FilesystemOps: ops}
	directory := &DirectoryOps{FilesystemOps: ops}
	mounts := &MountsOps{FilesystemOps: ops}
	metadata := &MetadataOps{FilesystemOps: ops}
	search := &SearchOps{FilesystemOps: ops}
	formats := &FormatsOps{FilesystemOps: ops}
	archives := &ArchivesOps{FilesystemOps: ops}

	p := &Provider{ops: ops}
	p.tools = append(p.tools, basic.GetTools()...)
	p.tools = append(p.tools, directory.GetTools()...)
	p.tools = append(p.tools, mounts.GetTools()...)
	p.tools = append(p.tools, metadata.GetTools()...)
	p.tools = append(p.tools, search.GetTools()...)
	p.tools = append(p.tools, formats.GetTools()...)
	p.tools = append(p.tools, archives.GetTools()...)

	p.handlers = map[string]Handler{
		// Basic
		"filesystem.read":         basic.Read,
		"filesystem.write":        basic.Write,
		"filesystem.append":       basic.Append,
		"filesystem.create":       basic.Create,
		"filesystem.delete":       basic.Delete,
		"filesystem.exists":       basic.Exists,
		"filesystem.read_lines":   basic.ReadLines,
		"filesystem.write_lines":  basic.WriteLines,
		"filesystem.read_json":    basic.ReadJSON,
		"filesystem.write_json":   basic.WriteJSON,
		"filesystem.read_binary":  basic.ReadBinary,
		"filesystem.write_binary": basic.WriteBinary,

		// Directory
		"filesystem.dir.list":    directory.List,
		"filesystem.dir.create":  directory.Create,
		"filesystem.dir.exists":  directory.Exists,
		"filesystem.dir.walk":    directory.Walk,
		"filesystem.dir.tree":    directory.Tree,
		"filesystem.dir.flatten": directory.Flatten,

		// Mounts and identity
		"filesystem.mount":               mounts.Mount,
		"filesystem.unmount":             mounts.Unmount,
		"filesystem.mount_full_path":     mounts.MountFullPath,
		"filesystem.unmount_full_path":   mounts.UnmountFullPath,
		"filesystem.mount_common_path":   mounts.MountCommonPath,
		"filesystem.unmount_common_path": mounts.UnmountCommonPath,
		"filesystem.mounts":              mounts.Mounts,
		"filesystem.identity.set":        mounts.SetIdentity,
		"filesystem.identity.get":        mounts.GetIdentity,
		"filesystem.directories":         mounts.Directories,
		"filesystem.real_directory":      mounts.RealDirectory,
		"filesystem.usage":               mounts.Usage,

		// Metadata
		"filesystem.stat":          metadata.Stat,
		"filesystem.size":          metadata.Size,
		"filesystem.size_human":    metadata.SizeHuman,
		"filesystem.total_size":    metadata.TotalSize,
		"filesystem.modified_time": metadata.ModifiedTime,
		"filesystem.mime_type":     metadata.MIMEType,
		"filesystem.is_text":       metadata.IsText,
		"filesystem.is_binary":     metadata.IsBinary,

		// Search
		"filesystem.find":                search.Find,
		"filesystem.glob":                search.Glob,
		"filesystem.filter_by_extension": search.FilterByExtension,
		"filesystem.filter_by_size":      search.FilterBySize,
		"filesystem.search_content":      search.SearchContent,
		"filesystem.regex_search":        search.RegexSearch,
		"filesystem.filter_by_date":      search.FilterByDate,
		"filesystem.recent_files":        search.RecentFiles,
		"filesystem.require.resolve":     search.ResolveModule,

		// Formats
		"filesystem.yaml.read":   formats.YAMLRead,
		"filesystem.yaml.write":  formats.YAMLWrite,
		"filesystem.csv.read":    formats.CSVRead,
		"filesystem.csv.write":   formats.CSVWrite,
		"filesystem.json.merge":  formats.JSONMerge,
		"filesystem.toml.read":   formats.TOMLRead,
		"filesystem.toml.write":  formats.TOMLWrite,
		"filesystem.csv.to_json": formats.CSVToJSON,
		"filesystem.compress":    formats.Compress,
		"filesystem.decompress":  formats.Decompress,

		// Archives
		"filesystem.zip.create":      archives.ZIPCreate,
		"filesystem.zip.extract":     archives.ZIPExtract,
		"filesystem.zip.list":        archives.ZIPList,
		"filesystem.tar.create":      archives.TARCreate,
		"filesystem.tar.extract":     archives.TARExtract,
		"filesystem.tar.list":        archives.TARList,
		"filesystem.extract":         archives.ExtractAuto,
		"filesystem.archive.mount":   archives.MountArchive,
		"filesystem.archive.unmount": archives.UnmountArchive,
	}

	return p
}

// Definition returns service metadata
func (p *Provider) Definition() types.Service {
	return types.Service{
		ID:          "filesystem",
		Name:        "Virtual Filesystem Service",
		Description: "Layered, identity-sandboxed file access over mounted directories and archives",
		Category:    types.CategoryFilesystem,
		Capabilities: []string{
			"read",
			"write",
			"list",
			"stat",
			"mount",
			"identity",
			"search",
			"archive",
		},
		Tools: p.tools,
		DataModels: []types.DataModel{
			{
				Name: "FileInfo",
				Fields: map[string]string{
					"name":      "string",
					"path":      "string",
					"size":      "number",
					"is_dir":    "boolean",
					"type":      "string",
					"read_only": "boolean",
					"modified":  "string",
					"extension": "string",
				},
			},
			{
				Name: "Mount",
				Fields: map[string]string{
					"key":         "string",
					"mount_point": "string",
					"permission":  "string",
					"append":      "boolean",
					"data":        "boolean",
				},
			},
		},
	}
}

// ToolIDs returns every registered tool ID in sorted order
func (p *Provider) ToolIDs() []string {
	ids := make([]string, 0, len(p.handlers))
	for id := range p.handlers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Execute runs a tool. A context identity that differs from the current
// one is applied first.
func (p *Provider) Execute(ctx context.Context, toolID string, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	handler, ok := p.handlers[toolID]
	if !ok {
		return Failuref("unknown tool: %s", toolID)
	}

	if appCtx != nil && appCtx.Identity != nil && *appCtx.Identity != "" && *appCtx.Identity != p.ops.FS.Identity() {
		if err := p.ops.FS.SetIdentity(*appCtx.Identity, false); err != nil {
			return Failuref("set identity failed: %v", err)
		}
	}

	if params == nil {
		params = map[string]interface{}{}
	}

	result, err := handler(ctx, params, appCtx)
	if err != nil {
		p.ops.Log.Error("Tool failed", zap.String("tool", toolID), zap.Error(err))
		return nil, err
	}
	if !result.Success && result.Error != nil {
		p.ops.Log.Debug("Tool returned failure", zap.String("tool", toolID), zap.String("error", *result.Error))
	}
	return result, nil
}
