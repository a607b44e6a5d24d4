package filesystem

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io/fs"
	"path"
	"regexp"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/GriffinCanCode/AgentOS/vfs/internal/domain/filesystem"
	"github.com/GriffinCanCode/AgentOS/vfs/internal/types"
)

// maxMatchesPerFile bounds content search output per file.
const maxMatchesPerFile = 100

// SearchOps handles search and filtering operations
type SearchOps struct {
	*FilesystemOps
}

// GetTools returns search operation tool definitions
func (s *SearchOps) GetTools() []types.Tool {
	return []types.Tool{
		{
			ID:          "filesystem.find",
			Name:        "Find Files",
			Description: "Find files by name pattern",
			Parameters: []types.Parameter{
				{Name: "path", Type: "string", Description: "Root directory", Required: true},
				{Name: "pattern", Type: "string", Description: "File pattern (e.g., '*.lua')", Required: true},
			},
			Returns: "array",
		},
		{
			ID:          "filesystem.glob",
			Name:        "Advanced Glob",
			Description: "Glob with ** patterns across every mounted layer",
			Parameters: []types.Parameter{
				{Name: "path", Type: "string", Description: "Root directory", Required: true},
				{Name: "pattern", Type: "string", Description: "Glob pattern (e.g., '**/*.lua')", Required: true},
			},
			Returns: "array",
		},
		{
			ID:          "filesystem.filter_by_extension",
			Name:        "Filter by Extension",
			Description: "Filter files by extensions",
			Parameters: []types.Parameter{
				{Name: "path", Type: "string", Description: "Root directory", Required: true},
				{Name: "extensions", Type: "array", Description: "Extensions (e.g., ['.lua', '.png'])", Required: true},
			},
			Returns: "array",
		},
		{
			ID:          "filesystem.filter_by_size",
			Name:        "Filter by Size",
			Description: "Filter files by size range",
			Parameters: []types.Parameter{
				{Name: "path", Type: "string", Description: "Root directory", Required: true},
				{Name: "min_size", Type: "number", Description: "Min size in bytes (0=no limit)", Required: false},
				{Name: "max_size", Type: "number", Description: "Max size in bytes (0=no limit)", Required: false},
			},
			Returns: "array",
		},
		{
			ID:          "filesystem.search_content",
			Name:        "Search Content",
			Description: "Search text in files (parallel worker pool)",
			Parameters: []types.Parameter{
				{Name: "path", Type: "string", Description: "Root directory", Required: true},
				{Name: "query", Type: "string", Description: "Text to search", Required: true},
				{Name: "extensions", Type: "array", Description: "File extensions to search", Required: false},
			},
			Returns: "array",
		},
		{
			ID:          "filesystem.regex_search",
			Name:        "Regex Search",
			Description: "Search file names by regex pattern",
			Parameters: []types.Parameter{
				{Name: "path", Type: "string", Description: "Root directory", Required: true},
				{Name: "regex", Type: "string", Description: "Regex pattern", Required: true},
			},
			Returns: "array",
		},
		{
			ID:          "filesystem.filter_by_date",
			Name:        "Filter by Date",
			Description: "Filter files by modification date range",
			Parameters: []types.Parameter{
				{Name: "path", Type: "string", Description: "Root directory", Required: true},
				{Name: "after", Type: "string", Description: "After date (ISO 8601)", Required: false},
				{Name: "before", Type: "string", Description: "Before date (ISO 8601)", Required: false},
			},
			Returns: "array",
		},
		{
			ID:          "filesystem.recent_files",
			Name:        "Recent Files",
			Description: "Find recently modified files",
			Parameters: []types.Parameter{
				{Name: "path", Type: "string", Description: "Root directory", Required: true},
				{Name: "hours", Type: "number", Description: "Hours ago (default 24)", Required: false},
				{Name: "limit", Type: "number", Description: "Max results (default 50)", Required: false},
			},
			Returns: "array",
		},
		{
			ID:          "filesystem.require.resolve",
			Name:        "Resolve Module",
			Description: "Resolve a dotted module name against the require path",
			Parameters: []types.Parameter{
				{Name: "module", Type: "string", Description: "Module name (e.g., 'lib.util')", Required: true},
			},
			Returns: "object",
		},
	}
}

// Find finds files by pattern
func (s *SearchOps) Find(ctx context.Context, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	p, ok := pathParam(params)
	if !ok {
		return Failure("path parameter required")
	}
	pattern, ok := stringParam(params, "pattern")
	if !ok {
		return Failure("pattern parameter required")
	}
	if _, err := path.Match(pattern, ""); err != nil {
		return Failuref("invalid pattern: %v", err)
	}

	matches := []string{}
	err := s.eachFile(ctx, p, func(rel string, entry fs.DirEntry) {
		if matched, _ := path.Match(pattern, entry.Name()); matched {
			matches = append(matches, rel)
		}
	})
	if err != nil {
		return Failuref("find failed: %v", err)
	}

	return Success(map[string]interface{}{"path": p, "matches": matches, "count": len(matches)})
}

// Glob performs advanced glob matching
func (s *SearchOps) Glob(ctx context.Context, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	p, ok := pathParam(params)
	if !ok {
		return Failure("path parameter required")
	}
	pattern, ok := stringParam(params, "pattern")
	if !ok {
		return Failure("pattern parameter required")
	}

	root, err := fsPath(p)
	if err != nil {
		return Failuref("glob failed: %v", err)
	}
	if root != "." {
		pattern = root + "/" + strings.TrimPrefix(pattern, "/")
	}

	matches, err := s.FS.Glob(pattern)
	if err != nil {
		return Failuref("glob failed: %v", err)
	}

	relMatches := make([]string, 0, len(matches))
	for _, match := range matches {
		relMatches = append(relMatches, relativeTo(root, match))
	}

	return Success(map[string]interface{}{"path": p, "matches": relMatches, "count": len(relMatches)})
}

// FilterByExtension filters files by extensions
func (s *SearchOps) FilterByExtension(ctx context.Context, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	p, ok := pathParam(params)
	if !ok {
		return Failure("path parameter required")
	}

	extensions := extensionSet(stringsParam(params, "extensions"))
	if len(extensions) == 0 {
		return Failure("extensions array required")
	}

	matches := []string{}
	err := s.eachFile(ctx, p, func(rel string, entry fs.DirEntry) {
		if extensions[strings.ToLower(path.Ext(rel))] {
			matches = append(matches, rel)
		}
	})
	if err != nil {
		return Failuref("filter failed: %v", err)
	}

	return Success(map[string]interface{}{"path": p, "matches": matches, "count": len(matches)})
}

// FilterBySize filters files by size
func (s *SearchOps) FilterBySize(ctx context.Context, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	p, ok := pathParam(params)
	if !ok {
		return Failure("path parameter required")
	}

	minSize := int64(intParam(params, "min_size", 0))
	maxSize := int64(intParam(params, "max_size", 0))

	matches := []map[string]interface{}{}
	err := s.eachFile(ctx, p, func(rel string, entry fs.DirEntry) {
		info, err := entry.Info()
		if err != nil {
			return
		}
		size := info.Size()
		if (minSize > 0 && size < minSize) || (maxSize > 0 && size > maxSize) {
			return
		}
		matches = append(matches, map[string]interface{}{"path": rel, "size": size})
	})
	if err != nil {
		return Failuref("filter failed: %v", err)
	}

	return Success(map[string]interface{}{"path": p, "matches": matches, "count": len(matches)})
}

// SearchContent searches text in files
func (s *SearchOps) SearchContent(ctx context.Context, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	p, ok := pathParam(params)
	if !ok {
		return Failure("path parameter required")
	}
	query, ok := stringParam(params, "query")
	if !ok {
		return Failure("query parameter required")
	}

	root, err := fsPath(p)
	if err != nil {
		return Failuref("search failed: %v", err)
	}
	extensions := extensionSet(stringsParam(params, "extensions"))

	var candidates []string
	err = s.walk(ctx, root, 0, func(rel string, entry fs.DirEntry) {
		if entry.IsDir() {
			return
		}
		if len(extensions) > 0 && !extensions[strings.ToLower(path.Ext(rel))] {
			return
		}
		candidates = append(candidates, rel)
	})
	if err != nil {
		return Failuref("search failed: %v", err)
	}

	queryBytes := []byte(query)
	results := make([][]map[string]interface{}, len(candidates))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < runtime.NumCPU(); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = s.scan(ctx, joinFS(root, candidates[i]), queryBytes)
			}
		}()
	}

feed:
	for i := range candidates {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return Failuref("search failed: %v", err)
	}

	matches := []map[string]interface{}{}
	for i, lines := range results {
		if len(lines) == 0 {
			continue
		}
		matches = append(matches, map[string]interface{}{
			"path":    candidates[i],
			"matches": lines,
			"count":   len(lines),
		})
	}

	return Success(map[string]interface{}{"path": p, "query": query, "results": matches, "files": len(matches)})
}

// scan returns the lines of name containing query
func (s *SearchOps) scan(ctx context.Context, name string, query []byte) []map[string]interface{} {
	file, err := s.FS.FS().Open(name)
	if err != nil {
		return nil
	}
	defer file.Close()

	var matchLines []map[string]interface{}
	scanner := bufio.NewScanner(file)
	lineNum := 1
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		if bytes.Contains(scanner.Bytes(), query) {
			matchLines = append(matchLines, map[string]interface{}{
				"line":    lineNum,
				"content": scanner.Text(),
			})
			if len(matchLines) >= maxMatchesPerFile {
				break
			}
		}
		lineNum++
	}
	return matchLines
}

// RegexSearch searches files by regex
func (s *SearchOps) RegexSearch(ctx context.Context, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	p, ok := pathParam(params)
	if !ok {
		return Failure("path parameter required")
	}
	regexStr, ok := stringParam(params, "regex")
	if !ok {
		return Failure("regex parameter required")
	}

	regex, err := regexp.Compile(regexStr)
	if err != nil {
		return Failuref("invalid regex: %v", err)
	}

	matches := []string{}
	err = s.eachFile(ctx, p, func(rel string, entry fs.DirEntry) {
		if regex.MatchString(entry.Name()) {
			matches = append(matches, rel)
		}
	})
	if err != nil {
		return Failuref("search failed: %v", err)
	}

	return Success(map[string]interface{}{"path": p, "matches": matches, "count": len(matches)})
}

// FilterByDate filters files by date range
func (s *SearchOps) FilterByDate(ctx context.Context, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	p, ok := pathParam(params)
	if !ok {
		return Failure("path parameter required")
	}

	var after, before time.Time
	var err error

	if afterStr, ok := stringParam(params, "after"); ok {
		if after, err = time.Parse(time.RFC3339, afterStr); err != nil {
			return Failuref("invalid after date: %v", err)
		}
	}
	if beforeStr, ok := stringParam(params, "before"); ok {
		if before, err = time.Parse(time.RFC3339, beforeStr); err != nil {
			return Failuref("invalid before date: %v", err)
		}
	}

	matches := []map[string]interface{}{}
	err = s.eachFile(ctx, p, func(rel string, entry fs.DirEntry) {
		info, err := entry.Info()
		if err != nil {
			return
		}
		modTime := info.ModTime()
		if (!after.IsZero() && modTime.Before(after)) || (!before.IsZero() && modTime.After(before)) {
			return
		}
		matches = append(matches, map[string]interface{}{
			"path":     rel,
			"modified": modTime.Unix(),
		})
	})
	if err != nil {
		return Failuref("filter failed: %v", err)
	}

	return Success(map[string]interface{}{"path": p, "matches": matches, "count": len(matches)})
}

// RecentFiles finds recently modified files
func (s *SearchOps) RecentFiles(ctx context.Context, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	p, ok := pathParam(params)
	if !ok {
		return Failure("path parameter required")
	}

	hours := intParam(params, "hours", 24)
	if hours <= 0 {
		hours = 24
	}
	limit := intParam(params, "limit", 50)
	if limit <= 0 {
		limit = 50
	}

	cutoff := time.Now().Add(-time.Duration(hours) * time.Hour)

	type recent struct {
		path    string
		modTime time.Time
		size    int64
	}

	var files []recent
	err := s.eachFile(ctx, p, func(rel string, entry fs.DirEntry) {
		info, err := entry.Info()
		if err != nil {
			return
		}
		if info.ModTime().After(cutoff) {
			files = append(files, recent{rel, info.ModTime(), info.Size()})
		}
	})
	if err != nil {
		return Failuref("search failed: %v", err)
	}

	// Newest first
	sort.SliceStable(files, func(i, j int) bool {
		return files[i].modTime.After(files[j].modTime)
	})
	if len(files) > limit {
		files = files[:limit]
	}

	results := []map[string]interface{}{}
	for _, f := range files {
		results = append(results, map[string]interface{}{
			"path":     f.path,
			"modified": f.modTime.Unix(),
			"size":     f.size,
		})
	}

	return Success(map[string]interface{}{"path": p, "files": results, "count": len(results)})
}

// ResolveModule resolves a module name through the require path
func (s *SearchOps) ResolveModule(ctx context.Context, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	module, ok := stringParam(params, "module")
	if !ok {
		return Failure("module parameter required")
	}

	resolved, err := s.FS.ResolveModule(module)
	if err != nil {
		var notFound *filesystem.ModuleNotFoundError
		if errors.As(err, &notFound) {
			return &types.Result{
				Success: false,
				Data:    map[string]interface{}{"module": module, "searched": notFound.Searched},
				Error:   stringPtr(err.Error()),
			}, nil
		}
		return Failuref("resolve failed: %v", err)
	}

	return Success(map[string]interface{}{
		"module":       module,
		"path":         resolved,
		"require_path": s.FS.RequirePath(),
	})
}

// eachFile visits every file below a virtual directory
func (s *SearchOps) eachFile(ctx context.Context, p string, visit func(rel string, entry fs.DirEntry)) error {
	root, err := fsPath(p)
	if err != nil {
		return err
	}
	return s.walk(ctx, root, 0, func(rel string, entry fs.DirEntry) {
		if !entry.IsDir() {
			visit(rel, entry)
		}
	})
}

func extensionSet(exts []string) map[string]bool {
	set := make(map[string]bool, len(exts))
	for _, e := range exts {
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		set[strings.ToLower(e)] = true
	}
	return set
}

// joinFS joins an io/fs root and a relative path
func joinFS(root, rel string) string {
	if root == "." {
		return rel
	}
	return root + "/" + rel
}

func stringPtr(s string) *string {
	return &s
}
