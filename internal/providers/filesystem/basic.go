package filesystem

import (
	"context"
	"encoding/base64"
	"strings"

	"github.com/GriffinCanCode/AgentOS/vfs/internal/types"
	"github.com/bytedance/sonic"
)

// BasicOps handles whole-file operations
type BasicOps struct {
	*FilesystemOps
}

// GetTools returns basic file operation tool definitions
func (b *BasicOps) GetTools() []types.Tool {
	return []types.Tool{
		{
			ID:          "filesystem.read",
			Name:        "Read File",
			Description: "Read file contents",
			Parameters: []types.Parameter{
				{Name: "path", Type: "string", Description: "File path", Required: true},
				{Name: "size", Type: "number", Description: "Maximum bytes to read (default all)", Required: false},
			},
			Returns: "string",
		},
		{
			ID:          "filesystem.write",
			Name:        "Write File",
			Description: "Write data to file in the save directory (overwrites existing)",
			Parameters: []types.Parameter{
				{Name: "path", Type: "string", Description: "File path", Required: true},
				{Name: "data", Type: "string", Description: "Data to write", Required: true},
			},
			Returns: "boolean",
		},
		{
			ID:          "filesystem.append",
			Name:        "Append to File",
			Description: "Append data to end of file",
			Parameters: []types.Parameter{
				{Name: "path", Type: "string", Description: "File path", Required: true},
				{Name: "data", Type: "string", Description: "Data to append", Required: true},
			},
			Returns: "boolean",
		},
		{
			ID:          "filesystem.create",
			Name:        "Create File",
			Description: "Create a new empty file",
			Parameters: []types.Parameter{
				{Name: "path", Type: "string", Description: "File path", Required: true},
			},
			Returns: "boolean",
		},
		{
			ID:          "filesystem.delete",
			Name:        "Delete File",
			Description: "Delete a file or empty directory from the save directory",
			Parameters: []types.Parameter{
				{Name: "path", Type: "string", Description: "File or directory path", Required: true},
			},
			Returns: "boolean",
		},
		{
			ID:          "filesystem.exists",
			Name:        "Check Existence",
			Description: "Check if a file or directory exists",
			Parameters: []types.Parameter{
				{Name: "path", Type: "string", Description: "File or directory path", Required: true},
			},
			Returns: "boolean",
		},
		{
			ID:          "filesystem.read_lines",
			Name:        "Read Lines",
			Description: "Read file as array of lines",
			Parameters: []types.Parameter{
				{Name: "path", Type: "string", Description: "File path", Required: true},
			},
			Returns: "array",
		},
		{
			ID:          "filesystem.write_lines",
			Name:        "Write Lines",
			Description: "Write array of lines to file",
			Parameters: []types.Parameter{
				{Name: "path", Type: "string", Description: "File path", Required: true},
				{Name: "lines", Type: "array", Description: "Lines to write", Required: true},
			},
			Returns: "boolean",
		},
		{
			ID:          "filesystem.read_json",
			Name:        "Read JSON",
			Description: "Read and parse JSON file",
			Parameters: []types.Parameter{
				{Name: "path", Type: "string", Description: "File path", Required: true},
			},
			Returns: "object",
		},
		{
			ID:          "filesystem.write_json",
			Name:        "Write JSON",
			Description: "Write data as JSON file",
			Parameters: []types.Parameter{
				{Name: "path", Type: "string", Description: "File path", Required: true},
				{Name: "data", Type: "object", Description: "Data to write", Required: true},
			},
			Returns: "boolean",
		},
		{
			ID:          "filesystem.read_binary",
			Name:        "Read Binary File",
			Description: "Read file as base64 encoded data",
			Parameters: []types.Parameter{
				{Name: "path", Type: "string", Description: "File path", Required: true},
			},
			Returns: "string",
		},
		{
			ID:          "filesystem.write_binary",
			Name:        "Write Binary File",
			Description: "Write base64 encoded data to file",
			Parameters: []types.Parameter{
				{Name: "path", Type: "string", Description: "File path", Required: true},
				{Name: "data", Type: "string", Description: "Base64 data", Required: true},
			},
			Returns: "boolean",
		},
	}
}

// Read reads file contents
func (b *BasicOps) Read(ctx context.Context, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	path, ok := pathParam(params)
	if !ok {
		return Failure("path parameter required")
	}

	data, err := b.FS.Read(path, int64(intParam(params, "size", -1)))
	if err != nil {
		return Failuref("read failed: %v", err)
	}

	return Success(map[string]interface{}{
		"path":    path,
		"content": data.String(),
		"size":    data.Size(),
	})
}

// Write writes data to file (overwrites)
func (b *BasicOps) Write(ctx context.Context, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	path, ok := pathParam(params)
	if !ok {
		return Failure("path parameter required")
	}

	data, ok := params["data"].(string)
	if !ok {
		return Failure("data parameter required")
	}

	if err := b.FS.Write(path, []byte(data)); err != nil {
		return Failuref("write failed: %v", err)
	}

	return Success(map[string]interface{}{
		"written": true,
		"path":    path,
		"size":    len(data),
	})
}

// Append appends data to file
func (b *BasicOps) Append(ctx context.Context, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	path, ok := pathParam(params)
	if !ok {
		return Failure("path parameter required")
	}

	data, ok := params["data"].(string)
	if !ok {
		return Failure("data parameter required")
	}

	if err := b.FS.Append(path, []byte(data)); err != nil {
		return Failuref("append failed: %v", err)
	}

	return Success(map[string]interface{}{"appended": true, "path": path, "size": len(data)})
}

// Create creates an empty file, leaving existing files untouched
func (b *BasicOps) Create(ctx context.Context, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	path, ok := pathParam(params)
	if !ok {
		return Failure("path parameter required")
	}

	if err := b.FS.Append(path, nil); err != nil {
		return Failuref("create failed: %v", err)
	}

	return Success(map[string]interface{}{"created": true, "path": path})
}

// Delete deletes a file or empty directory
func (b *BasicOps) Delete(ctx context.Context, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	path, ok := pathParam(params)
	if !ok {
		return Failure("path parameter required")
	}

	if err := b.FS.Remove(path); err != nil {
		return Failuref("delete failed: %v", err)
	}

	return Success(map[string]interface{}{"deleted": true, "path": path})
}

// Exists checks if file exists
func (b *BasicOps) Exists(ctx context.Context, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	path, ok := pathParam(params)
	if !ok {
		return Failure("path parameter required")
	}

	return Success(map[string]interface{}{"exists": b.FS.Exists(path), "path": path})
}

// ReadLines reads file as lines
func (b *BasicOps) ReadLines(ctx context.Context, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	path, ok := pathParam(params)
	if !ok {
		return Failure("path parameter required")
	}

	lines, err := b.FS.Lines(path)
	if err != nil {
		return Failuref("read failed: %v", err)
	}

	return Success(map[string]interface{}{"path": path, "lines": lines, "count": len(lines)})
}

// WriteLines writes lines to file
func (b *BasicOps) WriteLines(ctx context.Context, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	path, ok := pathParam(params)
	if !ok {
		return Failure("path parameter required")
	}

	if _, ok := params["lines"]; !ok {
		return Failure("lines parameter required")
	}
	lines := stringsParam(params, "lines")

	content := strings.Join(lines, "\n")
	if len(lines) > 0 {
		content += "\n"
	}

	if err := b.FS.Write(path, []byte(content)); err != nil {
		return Failuref("write failed: %v", err)
	}

	return Success(map[string]interface{}{"written": true, "path": path, "lines": len(lines)})
}

// ReadJSON reads and parses JSON file
func (b *BasicOps) ReadJSON(ctx context.Context, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	path, ok := pathParam(params)
	if !ok {
		return Failure("path parameter required")
	}

	data, err := b.FS.ReadAll(path)
	if err != nil {
		return Failuref("read failed: %v", err)
	}

	var parsed interface{}
	if err := sonic.Unmarshal(data.Bytes(), &parsed); err != nil {
		return Failuref("JSON parse error: %v", err)
	}

	return Success(map[string]interface{}{"path": path, "data": parsed})
}

// WriteJSON writes data as JSON
func (b *BasicOps) WriteJSON(ctx context.Context, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	path, ok := pathParam(params)
	if !ok {
		return Failure("path parameter required")
	}

	data, ok := params["data"]
	if !ok {
		return Failure("data parameter required")
	}

	jsonData, err := sonic.ConfigStd.MarshalIndent(data, "", "  ")
	if err != nil {
		return Failuref("JSON encoding error: %v", err)
	}

	if err := b.FS.Write(path, jsonData); err != nil {
		return Failuref("write failed: %v", err)
	}

	return Success(map[string]interface{}{"written": true, "path": path, "size": len(jsonData)})
}

// ReadBinary reads file as base64
func (b *BasicOps) ReadBinary(ctx context.Context, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	path, ok := pathParam(params)
	if !ok {
		return Failure("path parameter required")
	}

	data, err := b.FS.ReadAll(path)
	if err != nil {
		return Failuref("read failed: %v", err)
	}

	return Success(map[string]interface{}{
		"path":     path,
		"data":     base64.StdEncoding.EncodeToString(data.Bytes()),
		"encoding": "base64",
		"size":     data.Size(),
	})
}

// WriteBinary writes base64 data to file
func (b *BasicOps) WriteBinary(ctx context.Context, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	path, ok := pathParam(params)
	if !ok {
		return Failure("path parameter required")
	}

	encoded, ok := params["data"].(string)
	if !ok {
		return Failure("data parameter required")
	}

	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return Failuref("invalid base64 data: %v", err)
	}

	if err := b.FS.Write(path, decoded); err != nil {
		return Failuref("write failed: %v", err)
	}

	return Success(map[string]interface{}{"written": true, "path": path, "size": len(decoded)})
}
