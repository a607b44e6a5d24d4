package filesystem

import (
	"context"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/GriffinCanCode/AgentOS/vfs/internal/types"
	"github.com/gabriel-vasile/mimetype"
)

// sniffSize is how much of a file MIME detection reads.
const sniffSize = 3072

// MetadataOps handles file metadata operations
type MetadataOps struct {
	*FilesystemOps
}

// GetTools returns metadata operation tool definitions
func (m *MetadataOps) GetTools() []types.Tool {
	return []types.Tool{
		{
			ID:          "filesystem.stat",
			Name:        "File Stats",
			Description: "Get file metadata without following symlinks",
			Parameters: []types.Parameter{
				{Name: "path", Type: "string", Description: "File path", Required: true},
			},
			Returns: "object",
		},
		{
			ID:          "filesystem.size",
			Name:        "File Size",
			Description: "Get file size in bytes",
			Parameters: []types.Parameter{
				{Name: "path", Type: "string", Description: "File path", Required: true},
			},
			Returns: "number",
		},
		{
			ID:          "filesystem.size_human",
			Name:        "Human-Readable Size",
			Description: "Get file size in human-readable format",
			Parameters: []types.Parameter{
				{Name: "path", Type: "string", Description: "File path", Required: true},
			},
			Returns: "string",
		},
		{
			ID:          "filesystem.total_size",
			Name:        "Directory Size",
			Description: "Calculate total size of directory",
			Parameters: []types.Parameter{
				{Name: "path", Type: "string", Description: "Directory path", Required: true},
				{Name: "human", Type: "boolean", Description: "Return human-readable format", Required: false},
			},
			Returns: "object",
		},
		{
			ID:          "filesystem.modified_time",
			Name:        "Modified Time",
			Description: "Get last modified time",
			Parameters: []types.Parameter{
				{Name: "path", Type: "string", Description: "File path", Required: true},
				{Name: "format", Type: "string", Description: "Format (unix/iso)", Required: false},
			},
			Returns: "object",
		},
		{
			ID:          "filesystem.mime_type",
			Name:        "MIME Type",
			Description: "Detect file MIME type from its contents",
			Parameters: []types.Parameter{
				{Name: "path", Type: "string", Description: "File path", Required: true},
			},
			Returns: "string",
		},
		{
			ID:          "filesystem.is_text",
			Name:        "Is Text File",
			Description: "Check if file is text",
			Parameters: []types.Parameter{
				{Name: "path", Type: "string", Description: "File path", Required: true},
			},
			Returns: "boolean",
		},
		{
			ID:          "filesystem.is_binary",
			Name:        "Is Binary File",
			Description: "Check if file is binary",
			Parameters: []types.Parameter{
				{Name: "path", Type: "string", Description: "File path", Required: true},
			},
			Returns: "boolean",
		},
	}
}

// Stat gets file stats
func (m *MetadataOps) Stat(ctx context.Context, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	path, ok := pathParam(params)
	if !ok {
		return Failure("path parameter required")
	}

	info, ok := m.FS.Info(path)
	if !ok {
		return Failuref("stat failed: %s does not exist", path)
	}

	return Success(map[string]interface{}{"path": path, "info": fileInfo(path, info)})
}

// Size gets file size
func (m *MetadataOps) Size(ctx context.Context, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	path, ok := pathParam(params)
	if !ok {
		return Failure("path parameter required")
	}

	info, ok := m.FS.Info(path)
	if !ok {
		return Failuref("stat failed: %s does not exist", path)
	}

	return Success(map[string]interface{}{"path": path, "size": info.Size})
}

// SizeHuman gets human-readable file size
func (m *MetadataOps) SizeHuman(ctx context.Context, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	path, ok := pathParam(params)
	if !ok {
		return Failure("path parameter required")
	}

	info, ok := m.FS.Info(path)
	if !ok {
		return Failuref("stat failed: %s does not exist", path)
	}

	return Success(map[string]interface{}{"path": path, "size": formatBytes(info.Size), "bytes": info.Size})
}

// TotalSize calculates directory size
func (m *MetadataOps) TotalSize(ctx context.Context, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	path, ok := pathParam(params)
	if !ok {
		return Failure("path parameter required")
	}

	root, err := fsPath(path)
	if err != nil {
		return Failuref("size calculation failed: %v", err)
	}

	var totalSize int64
	fileCount := 0
	dirCount := 0

	err = m.walk(ctx, root, 0, func(rel string, entry fs.DirEntry) {
		if entry.IsDir() {
			dirCount++
			return
		}
		if info, err := entry.Info(); err == nil {
			totalSize += info.Size()
			fileCount++
		}
	})
	if err != nil {
		return Failuref("size calculation failed: %v", err)
	}

	result := map[string]interface{}{
		"path":        path,
		"bytes":       totalSize,
		"files":       fileCount,
		"directories": dirCount,
	}
	if boolParam(params, "human", false) {
		result["size"] = formatBytes(totalSize)
	}

	return Success(result)
}

// ModifiedTime gets modification time
func (m *MetadataOps) ModifiedTime(ctx context.Context, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	path, ok := pathParam(params)
	if !ok {
		return Failure("path parameter required")
	}

	info, ok := m.FS.Info(path)
	if !ok {
		return Failuref("stat failed: %s does not exist", path)
	}

	result := map[string]interface{}{"path": path}
	switch format, _ := params["format"].(string); format {
	case "iso":
		result["modified"] = info.ModTime.Format(time.RFC3339)
	default:
		result["modified"] = info.ModTime.Unix()
	}

	return Success(result)
}

// MIMEType detects file MIME type
func (m *MetadataOps) MIMEType(ctx context.Context, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	path, ok := pathParam(params)
	if !ok {
		return Failure("path parameter required")
	}

	mtype, err := m.detect(path)
	if err != nil {
		return Failuref("mime detection failed: %v", err)
	}

	return Success(map[string]interface{}{
		"path":      path,
		"mime_type": mtype.String(),
		"extension": mtype.Extension(),
	})
}

// IsText checks if file is text
func (m *MetadataOps) IsText(ctx context.Context, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	path, ok := pathParam(params)
	if !ok {
		return Failure("path parameter required")
	}

	mtype, err := m.detect(path)
	if err != nil {
		return Failuref("detection failed: %v", err)
	}

	return Success(map[string]interface{}{"path": path, "is_text": isText(mtype), "mime_type": mtype.String()})
}

// IsBinary checks if file is binary
func (m *MetadataOps) IsBinary(ctx context.Context, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	path, ok := pathParam(params)
	if !ok {
		return Failure("path parameter required")
	}

	mtype, err := m.detect(path)
	if err != nil {
		return Failuref("detection failed: %v", err)
	}

	return Success(map[string]interface{}{"path": path, "is_binary": !isText(mtype), "mime_type": mtype.String()})
}

// detect sniffs the head of a file
func (m *MetadataOps) detect(path string) (*mimetype.MIME, error) {
	head, err := m.FS.Read(path, sniffSize)
	if err != nil {
		return nil, err
	}
	return mimetype.Detect(head.Bytes()), nil
}

func isText(mtype *mimetype.MIME) bool {
	for t := mtype; t != nil; t = t.Parent() {
		if strings.HasPrefix(t.String(), "text/") {
			return true
		}
	}
	return mtype.Is("application/json") ||
		mtype.Is("application/xml") ||
		mtype.Is("application/javascript")
}

// formatBytes formats bytes to human-readable size
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}

	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}

	units := []string{"KB", "MB", "GB", "TB", "PB"}
	return fmt.Sprintf("%.2f %s", float64(bytes)/float64(div), units[exp])
}
