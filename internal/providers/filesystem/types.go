package filesystem

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"time"

	"github.com/GriffinCanCode/AgentOS/vfs/internal/domain/filesystem"
	"github.com/GriffinCanCode/AgentOS/vfs/internal/logging"
	"github.com/GriffinCanCode/AgentOS/vfs/internal/shared/paths"
	"github.com/GriffinCanCode/AgentOS/vfs/internal/types"
)

// FileInfo represents file metadata
type FileInfo struct {
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	IsDir     bool      `json:"is_dir"`
	Type      string    `json:"type"`
	ReadOnly  bool      `json:"read_only"`
	Modified  time.Time `json:"modified"`
	Extension string    `json:"extension,omitempty"`
}

// FilesystemOps provides common filesystem operation helpers
type FilesystemOps struct {
	FS  *filesystem.Filesystem
	Log *logging.Logger
}

// Success helper
func Success(data map[string]interface{}) (*types.Result, error) {
	return &types.Result{Success: true, Data: data}, nil
}

// Failure helper
func Failure(message string) (*types.Result, error) {
	msg := message
	return &types.Result{Success: false, Error: &msg}, nil
}

// Failuref formats a failure message
func Failuref(format string, args ...interface{}) (*types.Result, error) {
	return Failure(fmt.Sprintf(format, args...))
}

// pathParam extracts the required "path" parameter
func pathParam(params map[string]interface{}) (string, bool) {
	return stringParam(params, "path")
}

func stringParam(params map[string]interface{}, name string) (string, bool) {
	v, ok := params[name].(string)
	return v, ok && v != ""
}

func boolParam(params map[string]interface{}, name string, def bool) bool {
	if v, ok := params[name].(bool); ok {
		return v
	}
	return def
}

func intParam(params map[string]interface{}, name string, def int) int {
	switch v := params[name].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	}
	return def
}

func stringsParam(params map[string]interface{}, name string) []string {
	switch v := params[name].(type) {
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// fileInfo converts filesystem info for output
func fileInfo(p string, info filesystem.Info) FileInfo {
	name := path.Base(p)
	return FileInfo{
		Name:      name,
		Path:      p,
		Size:      info.Size,
		IsDir:     info.IsDir(),
		Type:      info.Type.String(),
		ReadOnly:  info.ReadOnly,
		Modified:  info.ModTime,
		Extension: strings.TrimPrefix(path.Ext(name), "."),
	}
}

// fsPath converts a virtual path to the form io/fs expects
func fsPath(p string) (string, error) {
	clean, err := paths.Normalize(p)
	if err != nil {
		return "", err
	}
	if clean == paths.Root {
		return ".", nil
	}
	return clean, nil
}

// relativeTo returns p relative to an io/fs root
func relativeTo(root, p string) string {
	if root == "." {
		return p
	}
	rel, ok := paths.Relative(root, p)
	if !ok {
		return p
	}
	return rel
}

// depthOf counts the segments of a relative path below its root
func depthOf(rel string) int {
	if rel == "" || rel == "." {
		return 0
	}
	return strings.Count(rel, "/") + 1
}

// walk visits everything below root in lexical order. maxDepth 0 is
// unlimited.
func (o *FilesystemOps) walk(ctx context.Context, root string, maxDepth int, visit func(rel string, entry fs.DirEntry)) error {
	return fs.WalkDir(o.FS.FS(), root, func(p string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if p == root {
			return nil
		}

		rel := relativeTo(root, p)
		if maxDepth > 0 && depthOf(rel) > maxDepth {
			if entry.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		visit(rel, entry)
		return nil
	})
}
