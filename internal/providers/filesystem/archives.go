package filesystem

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"

	"github.com/GriffinCanCode/AgentOS/vfs/internal/shared/compress"
	"github.com/GriffinCanCode/AgentOS/vfs/internal/shared/paths"
	"github.com/GriffinCanCode/AgentOS/vfs/internal/types"
)

var errNotArchive = errors.New("not a zip or tar archive")

// ArchivesOps handles archive operations (zip, tar, tar.gz, tar.zst)
type ArchivesOps struct {
	*FilesystemOps
}

// GetTools returns archive operation tool definitions
func (a *ArchivesOps) GetTools() []types.Tool {
	return []types.Tool{
		{
			ID:          "filesystem.zip.create",
			Name:        "Create ZIP",
			Description: "Pack a virtual directory into a ZIP in the save directory",
			Parameters: []types.Parameter{
				{Name: "source", Type: "string", Description: "Directory to pack", Required: true},
				{Name: "output", Type: "string", Description: "Output ZIP path", Required: true},
			},
			Returns: "object",
		},
		{
			ID:          "filesystem.zip.extract",
			Name:        "Extract ZIP",
			Description: "Extract a ZIP into the save directory",
			Parameters: []types.Parameter{
				{Name: "archive", Type: "string", Description: "ZIP file path", Required: true},
				{Name: "destination", Type: "string", Description: "Destination directory", Required: true},
			},
			Returns: "object",
		},
		{
			ID:          "filesystem.zip.list",
			Name:        "List ZIP",
			Description: "List ZIP contents",
			Parameters: []types.Parameter{
				{Name: "archive", Type: "string", Description: "ZIP file path", Required: true},
			},
			Returns: "array",
		},
		{
			ID:          "filesystem.tar.create",
			Name:        "Create TAR",
			Description: "Pack a virtual directory into a TAR, optionally compressed",
			Parameters: []types.Parameter{
				{Name: "source", Type: "string", Description: "Directory to pack", Required: true},
				{Name: "output", Type: "string", Description: "Output TAR path", Required: true},
				{Name: "compression", Type: "string", Description: "none, gzip or zstd (default none)", Required: false},
			},
			Returns: "object",
		},
		{
			ID:          "filesystem.tar.extract",
			Name:        "Extract TAR",
			Description: "Extract a TAR (gz/zst detected) into the save directory",
			Parameters: []types.Parameter{
				{Name: "archive", Type: "string", Description: "TAR file path", Required: true},
				{Name: "destination", Type: "string", Description: "Destination directory", Required: true},
			},
			Returns: "object",
		},
		{
			ID:          "filesystem.tar.list",
			Name:        "List TAR",
			Description: "List TAR contents (gz/zst detected)",
			Parameters: []types.Parameter{
				{Name: "archive", Type: "string", Description: "TAR file path", Required: true},
			},
			Returns: "array",
		},
		{
			ID:          "filesystem.extract",
			Name:        "Auto Extract",
			Description: "Extract any supported archive, detecting its format",
			Parameters: []types.Parameter{
				{Name: "archive", Type: "string", Description: "Archive path", Required: true},
				{Name: "destination", Type: "string", Description: "Destination directory", Required: true},
			},
			Returns: "object",
		},
		{
			ID:          "filesystem.archive.mount",
			Name:        "Mount Archive Data",
			Description: "Load an archive from the virtual filesystem and mount it from memory",
			Parameters: []types.Parameter{
				{Name: "archive", Type: "string", Description: "Archive path", Required: true},
				{Name: "mount_point", Type: "string", Description: "Virtual mount point", Required: true},
				{Name: "name", Type: "string", Description: "Mount key (default archive path)", Required: false},
				{Name: "append", Type: "boolean", Description: "Append to the search path (default true)", Required: false},
			},
			Returns: "object",
		},
		{
			ID:          "filesystem.archive.unmount",
			Name:        "Unmount Archive Data",
			Description: "Unmount an archive mounted from memory",
			Parameters: []types.Parameter{
				{Name: "name", Type: "string", Description: "Mount key", Required: true},
			},
			Returns: "boolean",
		},
	}
}

// ZIPCreate creates a ZIP archive
func (a *ArchivesOps) ZIPCreate(ctx context.Context, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	source, ok := stringParam(params, "source")
	if !ok {
		return Failure("source parameter required")
	}
	output, ok := stringParam(params, "output")
	if !ok {
		return Failure("output parameter required")
	}

	root, err := fsPath(source)
	if err != nil {
		return Failuref("zip creation failed: %v", err)
	}

	var buf bytes.Buffer
	zipWriter := zip.NewWriter(&buf)
	fileCount := 0
	totalSize := int64(0)

	err = a.pack(ctx, root, func(rel string, entry fs.DirEntry, r io.Reader) error {
		if entry.IsDir() {
			_, err := zipWriter.Create(rel + "/")
			return err
		}

		info, err := entry.Info()
		if err != nil {
			return err
		}
		header, err := zip.FileInfoHeader(info)
		if err != nil {
			return err
		}
		header.Name = rel
		header.Method = zip.Deflate

		writer, err := zipWriter.CreateHeader(header)
		if err != nil {
			return err
		}
		size, err := io.Copy(writer, r)
		totalSize += size
		fileCount++
		return err
	})
	if err == nil {
		err = zipWriter.Close()
	}
	if err != nil {
		return Failuref("zip creation failed: %v", err)
	}

	if err := a.FS.Write(output, buf.Bytes()); err != nil {
		return Failuref("write failed: %v", err)
	}

	return Success(map[string]interface{}{
		"created":    true,
		"output":     output,
		"files":      fileCount,
		"total_size": totalSize,
		"size":       buf.Len(),
	})
}

// ZIPExtract extracts a ZIP archive
func (a *ArchivesOps) ZIPExtract(ctx context.Context, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	archivePath, destination, res := archiveParams(params)
	if res != nil {
		return res, nil
	}

	data, err := a.FS.ReadAll(archivePath)
	if err != nil {
		return Failuref("open failed: %v", err)
	}

	fileCount, err := a.extractZip(ctx, data.Bytes(), destination)
	if err != nil {
		return Failuref("extraction failed: %v", err)
	}

	return Success(map[string]interface{}{
		"extracted":   true,
		"destination": destination,
		"files":       fileCount,
	})
}

// ZIPList lists ZIP contents
func (a *ArchivesOps) ZIPList(ctx context.Context, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	archivePath, ok := stringParam(params, "archive")
	if !ok {
		return Failure("archive parameter required")
	}

	data, err := a.FS.ReadAll(archivePath)
	if err != nil {
		return Failuref("open failed: %v", err)
	}

	reader, err := zip.NewReader(bytes.NewReader(data.Bytes()), int64(data.Size()))
	if err != nil {
		return Failuref("open failed: %v", err)
	}

	entries := []map[string]interface{}{}
	for _, file := range reader.File {
		info := file.FileInfo()
		entries = append(entries, map[string]interface{}{
			"name":              file.Name,
			"size":              info.Size(),
			"compressed_size":   file.CompressedSize64,
			"modified":          info.ModTime().Unix(),
			"is_dir":            info.IsDir(),
			"compression_ratio": float64(file.CompressedSize64) / float64(info.Size()+1) * 100,
		})
	}

	return Success(map[string]interface{}{"archive": archivePath, "entries": entries, "count": len(entries)})
}

// TARCreate creates a TAR archive
func (a *ArchivesOps) TARCreate(ctx context.Context, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	source, ok := stringParam(params, "source")
	if !ok {
		return Failure("source parameter required")
	}
	output, ok := stringParam(params, "output")
	if !ok {
		return Failure("output parameter required")
	}

	compression, _ := stringParam(params, "compression")
	var format compress.Format
	switch compression {
	case "", "none":
		compression = "none"
	case "gz", "gzip":
		format = compress.FormatGzip
	case "zst", "zstd":
		format = compress.FormatZstd
	default:
		return Failuref("unsupported compression: %s", compression)
	}

	root, err := fsPath(source)
	if err != nil {
		return Failuref("tar creation failed: %v", err)
	}

	var buf bytes.Buffer
	tarWriter := tar.NewWriter(&buf)
	fileCount := 0
	totalSize := int64(0)

	err = a.pack(ctx, root, func(rel string, entry fs.DirEntry, r io.Reader) error {
		info, err := entry.Info()
		if err != nil {
			return err
		}
		header, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		header.Name = rel
		if entry.IsDir() {
			header.Name += "/"
		}

		if err := tarWriter.WriteHeader(header); err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}
		size, err := io.Copy(tarWriter, r)
		totalSize += size
		fileCount++
		return err
	})
	if err == nil {
		err = tarWriter.Close()
	}
	if err != nil {
		return Failuref("tar creation failed: %v", err)
	}

	out := buf.Bytes()
	if format != "" {
		compressed, err := compress.Compress(format, out, compress.DefaultLevel)
		if err != nil {
			return Failuref("tar creation failed: %v", err)
		}
		out = compressed.Data
	}

	if err := a.FS.Write(output, out); err != nil {
		return Failuref("write failed: %v", err)
	}

	return Success(map[string]interface{}{
		"created":     true,
		"output":      output,
		"files":       fileCount,
		"total_size":  totalSize,
		"size":        len(out),
		"compression": compression,
	})
}

// TARExtract extracts a TAR archive
func (a *ArchivesOps) TARExtract(ctx context.Context, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	archivePath, destination, res := archiveParams(params)
	if res != nil {
		return res, nil
	}

	data, err := a.FS.ReadAll(archivePath)
	if err != nil {
		return Failuref("open failed: %v", err)
	}

	fileCount, err := a.extractTar(ctx, data.Bytes(), destination)
	if err != nil {
		return Failuref("extraction failed: %v", err)
	}

	return Success(map[string]interface{}{
		"extracted":   true,
		"destination": destination,
		"files":       fileCount,
	})
}

// TARList lists TAR contents
func (a *ArchivesOps) TARList(ctx context.Context, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	archivePath, ok := stringParam(params, "archive")
	if !ok {
		return Failure("archive parameter required")
	}

	data, err := a.FS.ReadAll(archivePath)
	if err != nil {
		return Failuref("open failed: %v", err)
	}

	entries := []map[string]interface{}{}
	err = eachTarEntry(ctx, data.Bytes(), func(header *tar.Header, r io.Reader) error {
		entries = append(entries, map[string]interface{}{
			"name":     header.Name,
			"size":     header.Size,
			"modified": header.ModTime.Unix(),
			"is_dir":   header.Typeflag == tar.TypeDir,
			"mode":     header.Mode,
		})
		return nil
	})
	if err != nil {
		return Failuref("read failed: %v", err)
	}

	return Success(map[string]interface{}{"archive": archivePath, "entries": entries, "count": len(entries)})
}

// ExtractAuto detects the archive type and extracts it
func (a *ArchivesOps) ExtractAuto(ctx context.Context, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	archivePath, destination, res := archiveParams(params)
	if res != nil {
		return res, nil
	}

	data, err := a.FS.ReadAll(archivePath)
	if err != nil {
		return Failuref("open failed: %v", err)
	}

	kind := compress.Detect(data.Bytes())
	var fileCount int
	switch kind {
	case compress.KindZip:
		fileCount, err = a.extractZip(ctx, data.Bytes(), destination)
	case compress.KindTar, compress.KindGzip, compress.KindZstd:
		fileCount, err = a.extractTar(ctx, data.Bytes(), destination)
	default:
		err = errNotArchive
	}
	if err != nil {
		return Failuref("extraction failed: %v", err)
	}

	return Success(map[string]interface{}{
		"extracted":   true,
		"destination": destination,
		"files":       fileCount,
		"format":      kind.String(),
	})
}

// MountArchive mounts an archive read through the virtual filesystem
func (a *ArchivesOps) MountArchive(ctx context.Context, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	archivePath, ok := stringParam(params, "archive")
	if !ok {
		return Failure("archive parameter required")
	}
	mountPoint, ok := params["mount_point"].(string)
	if !ok {
		return Failure("mount_point parameter required")
	}
	name, ok := stringParam(params, "name")
	if !ok {
		name = archivePath
	}

	data, err := a.FS.ReadAll(archivePath)
	if err != nil {
		return Failuref("read failed: %v", err)
	}
	// The mount keeps its own reference.
	defer data.Release()

	if err := a.FS.MountData(data, name, mountPoint, boolParam(params, "append", true)); err != nil {
		return Failuref("mount failed: %v", err)
	}

	return Success(map[string]interface{}{
		"mounted":     true,
		"name":        name,
		"mount_point": mountPoint,
		"size":        data.Size(),
	})
}

// UnmountArchive unmounts an archive mounted from memory
func (a *ArchivesOps) UnmountArchive(ctx context.Context, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	name, ok := stringParam(params, "name")
	if !ok {
		return Failure("name parameter required")
	}

	if err := a.FS.Unmount(name); err != nil {
		return Failuref("unmount failed: %v", err)
	}

	return Success(map[string]interface{}{"unmounted": true, "name": name})
}

// pack walks root and hands every entry to add, with a reader for files.
func (a *ArchivesOps) pack(ctx context.Context, root string, add func(rel string, entry fs.DirEntry, r io.Reader) error) error {
	fsys := a.FS.FS()
	var packErr error
	err := a.walk(ctx, root, 0, func(rel string, entry fs.DirEntry) {
		if packErr != nil {
			return
		}
		if entry.IsDir() {
			packErr = add(rel, entry, nil)
			return
		}

		file, err := fsys.Open(joinFS(root, rel))
		if err != nil {
			packErr = err
			return
		}
		defer file.Close()
		packErr = add(rel, entry, file)
	})
	if err != nil {
		return err
	}
	return packErr
}

func (a *ArchivesOps) extractZip(ctx context.Context, data []byte, destination string) (int, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, err
	}

	fileCount := 0
	for _, file := range reader.File {
		if err := ctx.Err(); err != nil {
			return fileCount, err
		}

		src, err := file.Open()
		if err != nil {
			return fileCount, err
		}
		written, err := a.extractEntry(destination, file.Name, file.FileInfo().IsDir(), src)
		src.Close()
		if err != nil {
			return fileCount, err
		}
		if written {
			fileCount++
		}
	}
	return fileCount, nil
}

func (a *ArchivesOps) extractTar(ctx context.Context, data []byte, destination string) (int, error) {
	fileCount := 0
	err := eachTarEntry(ctx, data, func(header *tar.Header, r io.Reader) error {
		switch header.Typeflag {
		case tar.TypeDir, tar.TypeReg:
		default:
			return nil
		}
		written, err := a.extractEntry(destination, header.Name, header.Typeflag == tar.TypeDir, r)
		if written {
			fileCount++
		}
		return err
	})
	return fileCount, err
}

// extractEntry writes one archive member below destination. Members that
// would escape destination are rejected.
func (a *ArchivesOps) extractEntry(destination, name string, isDir bool, r io.Reader) (bool, error) {
	rel, err := paths.Normalize(name)
	if err != nil {
		return false, err
	}
	if rel == paths.Root {
		return false, nil
	}
	dest, err := paths.Normalize(destination)
	if err != nil {
		return false, err
	}
	target := paths.Join(dest, rel)

	if isDir {
		return false, a.FS.CreateDirectory(target)
	}
	if dir := path.Dir(target); dir != "." {
		if err := a.FS.CreateDirectory(dir); err != nil {
			return false, err
		}
	}

	content, err := io.ReadAll(r)
	if err != nil {
		return false, err
	}
	if err := a.FS.Write(target, content); err != nil {
		return false, err
	}
	return true, nil
}

// eachTarEntry iterates a plain, gzip or zstd compressed tar stream.
func eachTarEntry(ctx context.Context, data []byte, visit func(header *tar.Header, r io.Reader) error) error {
	kind := compress.Detect(data)
	switch kind {
	case compress.KindTar, compress.KindGzip, compress.KindZstd:
	default:
		return fmt.Errorf("%w: detected %s", errNotArchive, kind)
	}

	rc, err := compress.NewReader(kind, bytes.NewReader(data))
	if err != nil {
		return err
	}
	defer rc.Close()

	tarReader := tar.NewReader(rc)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		header, err := tarReader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := visit(header, tarReader); err != nil {
			return err
		}
	}
}

func archiveParams(params map[string]interface{}) (string, string, *types.Result) {
	archivePath, ok := stringParam(params, "archive")
	if !ok {
		res, _ := Failure("archive parameter required")
		return "", "", res
	}
	destination, ok := params["destination"].(string)
	if !ok {
		res, _ := Failure("destination parameter required")
		return "", "", res
	}
	return archivePath, destination, nil
}
