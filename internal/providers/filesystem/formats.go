package filesystem

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"sort"

	"github.com/GriffinCanCode/AgentOS/vfs/internal/shared/compress"
	"github.com/GriffinCanCode/AgentOS/vfs/internal/types"
	"github.com/bytedance/sonic"
	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"
	"go.uber.org/zap"
)

// FormatsOps handles file format operations
type FormatsOps struct {
	*FilesystemOps
}

// GetTools returns format operation tool definitions
func (f *FormatsOps) GetTools() []types.Tool {
	return []types.Tool{
		{
			ID:          "filesystem.yaml.read",
			Name:        "Read YAML",
			Description: "Parse YAML file",
			Parameters: []types.Parameter{
				{Name: "path", Type: "string", Description: "File path", Required: true},
			},
			Returns: "object",
		},
		{
			ID:          "filesystem.yaml.write",
			Name:        "Write YAML",
			Description: "Write YAML file to the save directory",
			Parameters: []types.Parameter{
				{Name: "path", Type: "string", Description: "File path", Required: true},
				{Name: "data", Type: "object", Description: "Data to write", Required: true},
			},
			Returns: "boolean",
		},
		{
			ID:          "filesystem.csv.read",
			Name:        "Read CSV",
			Description: "Parse CSV file to array of objects",
			Parameters: []types.Parameter{
				{Name: "path", Type: "string", Description: "File path", Required: true},
				{Name: "has_header", Type: "boolean", Description: "First row is header (default true)", Required: false},
			},
			Returns: "array",
		},
		{
			ID:          "filesystem.csv.write",
			Name:        "Write CSV",
			Description: "Write array of objects to CSV",
			Parameters: []types.Parameter{
				{Name: "path", Type: "string", Description: "File path", Required: true},
				{Name: "data", Type: "array", Description: "Array of objects", Required: true},
				{Name: "headers", Type: "array", Description: "Column headers (optional)", Required: false},
			},
			Returns: "boolean",
		},
		{
			ID:          "filesystem.json.merge",
			Name:        "Merge JSON Files",
			Description: "Shallow-merge multiple JSON objects, later files win",
			Parameters: []types.Parameter{
				{Name: "files", Type: "array", Description: "Array of file paths", Required: true},
				{Name: "output", Type: "string", Description: "Output file path", Required: true},
			},
			Returns: "object",
		},
		{
			ID:          "filesystem.toml.read",
			Name:        "Read TOML",
			Description: "Parse TOML file",
			Parameters: []types.Parameter{
				{Name: "path", Type: "string", Description: "File path", Required: true},
			},
			Returns: "object",
		},
		{
			ID:          "filesystem.toml.write",
			Name:        "Write TOML",
			Description: "Write TOML file to the save directory",
			Parameters: []types.Parameter{
				{Name: "path", Type: "string", Description: "File path", Required: true},
				{Name: "data", Type: "object", Description: "Data to write", Required: true},
			},
			Returns: "boolean",
		},
		{
			ID:          "filesystem.csv.to_json",
			Name:        "CSV to JSON",
			Description: "Convert CSV to JSON",
			Parameters: []types.Parameter{
				{Name: "input", Type: "string", Description: "CSV file path", Required: true},
				{Name: "output", Type: "string", Description: "JSON file path", Required: true},
				{Name: "has_header", Type: "boolean", Description: "CSV has header (default true)", Required: false},
			},
			Returns: "boolean",
		},
		{
			ID:          "filesystem.compress",
			Name:        "Compress File",
			Description: "Compress a file with zlib, gzip, deflate or zstd",
			Parameters: []types.Parameter{
				{Name: "input", Type: "string", Description: "Source file path", Required: true},
				{Name: "output", Type: "string", Description: "Destination file path", Required: true},
				{Name: "format", Type: "string", Description: "Compression format (default gzip)", Required: false},
				{Name: "level", Type: "number", Description: "Compression level (default codec level)", Required: false},
			},
			Returns: "object",
		},
		{
			ID:          "filesystem.decompress",
			Name:        "Decompress File",
			Description: "Decompress a file, detecting the format when none is given",
			Parameters: []types.Parameter{
				{Name: "input", Type: "string", Description: "Compressed file path", Required: true},
				{Name: "output", Type: "string", Description: "Destination file path", Required: true},
				{Name: "format", Type: "string", Description: "Compression format (optional)", Required: false},
			},
			Returns: "object",
		},
	}
}

// YAMLRead parses YAML file
func (f *FormatsOps) YAMLRead(ctx context.Context, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	path, ok := pathParam(params)
	if !ok {
		return Failure("path parameter required")
	}

	data, err := f.FS.ReadAll(path)
	if err != nil {
		return Failuref("read failed: %v", err)
	}

	var parsed interface{}
	if err := yaml.Unmarshal(data.Bytes(), &parsed); err != nil {
		return Failuref("YAML parse error: %v", err)
	}

	return Success(map[string]interface{}{"path": path, "data": parsed})
}

// YAMLWrite writes YAML file
func (f *FormatsOps) YAMLWrite(ctx context.Context, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	path, ok := pathParam(params)
	if !ok {
		return Failure("path parameter required")
	}

	data, ok := params["data"]
	if !ok {
		return Failure("data parameter required")
	}

	yamlData, err := yaml.Marshal(data)
	if err != nil {
		return Failuref("YAML encoding error: %v", err)
	}

	if err := f.FS.Write(path, yamlData); err != nil {
		return Failuref("write failed: %v", err)
	}

	return Success(map[string]interface{}{"written": true, "path": path, "size": len(yamlData)})
}

// CSVRead parses CSV file
func (f *FormatsOps) CSVRead(ctx context.Context, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	path, ok := pathParam(params)
	if !ok {
		return Failure("path parameter required")
	}

	data, err := f.FS.ReadAll(path)
	if err != nil {
		return Failuref("read failed: %v", err)
	}

	headers, rows, err := parseCSV(data.Bytes(), boolParam(params, "has_header", true))
	if err != nil {
		return Failuref("CSV parse error: %v", err)
	}

	return Success(map[string]interface{}{"path": path, "rows": rows, "count": len(rows), "headers": headers})
}

// CSVWrite writes CSV file
func (f *FormatsOps) CSVWrite(ctx context.Context, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	path, ok := pathParam(params)
	if !ok {
		return Failure("path parameter required")
	}

	dataArr, ok := params["data"].([]interface{})
	if !ok || len(dataArr) == 0 {
		return Failure("data array required")
	}

	headers := stringsParam(params, "headers")
	if len(headers) == 0 {
		// Auto-detect from first row
		if firstRow, ok := dataArr[0].(map[string]interface{}); ok {
			for key := range firstRow {
				headers = append(headers, key)
			}
			sort.Strings(headers)
		}
	}

	if len(headers) == 0 {
		return Failure("no headers found")
	}

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(headers); err != nil {
		return Failuref("CSV write error: %v", err)
	}

	written := 0
	for _, rowData := range dataArr {
		rowMap, ok := rowData.(map[string]interface{})
		if !ok {
			continue
		}

		row := make([]string, len(headers))
		for i, header := range headers {
			if val, ok := rowMap[header]; ok {
				row[i] = fmt.Sprintf("%v", val)
			}
		}

		if err := writer.Write(row); err != nil {
			return Failuref("CSV write error: %v", err)
		}
		written++
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return Failuref("CSV flush error: %v", err)
	}

	if err := f.FS.Write(path, buf.Bytes()); err != nil {
		return Failuref("write failed: %v", err)
	}

	return Success(map[string]interface{}{"written": true, "path": path, "rows": written})
}

// JSONMerge merges multiple JSON files
func (f *FormatsOps) JSONMerge(ctx context.Context, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	files := stringsParam(params, "files")
	if len(files) == 0 {
		return Failure("files array required")
	}

	output, ok := stringParam(params, "output")
	if !ok {
		return Failure("output parameter required")
	}

	merged := make(map[string]interface{})
	sources := 0

	for _, filePath := range files {
		data, err := f.FS.ReadAll(filePath)
		if err != nil {
			f.Log.Debug("skipping unreadable merge input", zap.String("path", filePath), zap.Error(err))
			continue
		}

		var parsed map[string]interface{}
		if err := sonic.Unmarshal(data.Bytes(), &parsed); err != nil {
			continue
		}

		for key, value := range parsed {
			merged[key] = value
		}
		sources++
	}

	jsonData, err := sonic.ConfigStd.MarshalIndent(merged, "", "  ")
	if err != nil {
		return Failuref("JSON encoding error: %v", err)
	}

	if err := f.FS.Write(output, jsonData); err != nil {
		return Failuref("write failed: %v", err)
	}

	return Success(map[string]interface{}{
		"written": true,
		"path":    output,
		"keys":    len(merged),
		"sources": sources,
		"size":    len(jsonData),
	})
}

// TOMLRead parses TOML file
func (f *FormatsOps) TOMLRead(ctx context.Context, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	path, ok := pathParam(params)
	if !ok {
		return Failure("path parameter required")
	}

	data, err := f.FS.ReadAll(path)
	if err != nil {
		return Failuref("read failed: %v", err)
	}

	var parsed map[string]interface{}
	if err := toml.Unmarshal(data.Bytes(), &parsed); err != nil {
		return Failuref("TOML parse error: %v", err)
	}

	return Success(map[string]interface{}{"path": path, "data": parsed})
}

// TOMLWrite writes TOML file
func (f *FormatsOps) TOMLWrite(ctx context.Context, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	path, ok := pathParam(params)
	if !ok {
		return Failure("path parameter required")
	}

	data, ok := params["data"]
	if !ok {
		return Failure("data parameter required")
	}

	tomlData, err := toml.Marshal(data)
	if err != nil {
		return Failuref("TOML encoding error: %v", err)
	}

	if err := f.FS.Write(path, tomlData); err != nil {
		return Failuref("write failed: %v", err)
	}

	return Success(map[string]interface{}{"written": true, "path": path, "size": len(tomlData)})
}

// CSVToJSON converts CSV to JSON
func (f *FormatsOps) CSVToJSON(ctx context.Context, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	input, ok := stringParam(params, "input")
	if !ok {
		return Failure("input parameter required")
	}

	output, ok := stringParam(params, "output")
	if !ok {
		return Failure("output parameter required")
	}

	data, err := f.FS.ReadAll(input)
	if err != nil {
		return Failuref("read failed: %v", err)
	}

	_, rows, err := parseCSV(data.Bytes(), boolParam(params, "has_header", true))
	if err != nil {
		return Failuref("CSV parse error: %v", err)
	}
	if rows == nil {
		return Failure("empty CSV file")
	}

	jsonData, err := sonic.ConfigStd.MarshalIndent(rows, "", "  ")
	if err != nil {
		return Failuref("JSON encoding error: %v", err)
	}

	if err := f.FS.Write(output, jsonData); err != nil {
		return Failuref("write failed: %v", err)
	}

	return Success(map[string]interface{}{"converted": true, "input": input, "output": output, "rows": len(rows)})
}

// Compress compresses a file into the save directory
func (f *FormatsOps) Compress(ctx context.Context, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	input, ok := stringParam(params, "input")
	if !ok {
		return Failure("input parameter required")
	}

	output, ok := stringParam(params, "output")
	if !ok {
		return Failure("output parameter required")
	}

	name, ok := stringParam(params, "format")
	if !ok {
		name = string(compress.FormatGzip)
	}
	format, err := compress.ParseFormat(name)
	if err != nil {
		return Failuref("compress failed: %v", err)
	}

	data, err := f.FS.ReadAll(input)
	if err != nil {
		return Failuref("read failed: %v", err)
	}

	compressed, err := compress.Compress(format, data.Bytes(), intParam(params, "level", compress.DefaultLevel))
	if err != nil {
		return Failuref("compress failed: %v", err)
	}

	if err := f.FS.Write(output, compressed.Data); err != nil {
		return Failuref("write failed: %v", err)
	}

	return Success(map[string]interface{}{
		"path":              output,
		"format":            string(format),
		"original_size":     compressed.DecompressedSize,
		"compressed_size":   len(compressed.Data),
		"compression_ratio": ratio(len(compressed.Data), compressed.DecompressedSize),
	})
}

// Decompress restores a compressed file into the save directory
func (f *FormatsOps) Decompress(ctx context.Context, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	input, ok := stringParam(params, "input")
	if !ok {
		return Failure("input parameter required")
	}

	output, ok := stringParam(params, "output")
	if !ok {
		return Failure("output parameter required")
	}

	data, err := f.FS.ReadAll(input)
	if err != nil {
		return Failuref("read failed: %v", err)
	}

	var format compress.Format
	if name, ok := stringParam(params, "format"); ok {
		if format, err = compress.ParseFormat(name); err != nil {
			return Failuref("decompress failed: %v", err)
		}
	} else {
		switch kind := compress.Detect(data.Bytes()); kind {
		case compress.KindGzip:
			format = compress.FormatGzip
		case compress.KindZstd:
			format = compress.FormatZstd
		case compress.KindZlib:
			format = compress.FormatZlib
		default:
			return Failuref("decompress failed: cannot detect format of %s", input)
		}
	}

	raw, err := compress.DecompressBytes(format, data.Bytes())
	if err != nil {
		return Failuref("decompress failed: %v", err)
	}

	if err := f.FS.Write(output, raw); err != nil {
		return Failuref("write failed: %v", err)
	}

	return Success(map[string]interface{}{"path": output, "format": string(format), "size": len(raw)})
}

// parseCSV turns CSV records into row objects. Missing headers become
// col0, col1 and so on. Empty input yields nil rows.
func parseCSV(data []byte, hasHeader bool) ([]string, []map[string]interface{}, error) {
	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(records) == 0 {
		return []string{}, nil, nil
	}

	var headers []string
	startRow := 0

	if hasHeader {
		headers = records[0]
		startRow = 1
	} else {
		for i := 0; i < len(records[0]); i++ {
			headers = append(headers, fmt.Sprintf("col%d", i))
		}
	}

	rows := []map[string]interface{}{}
	for i := startRow; i < len(records); i++ {
		row := make(map[string]interface{})
		for j, value := range records[i] {
			if j < len(headers) {
				row[headers[j]] = value
			}
		}
		rows = append(rows, row)
	}

	return headers, rows, nil
}

func ratio(compressed, original int) float64 {
	if original == 0 {
		return 0
	}
	return float64(compressed) / float64(original)
}
