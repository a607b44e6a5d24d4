package archive

import (
	"errors"
	"time"
)

var (
	ErrNotInitialized     = errors.New("archive backend is not initialized")
	ErrAlreadyInitialized = errors.New("archive backend is already initialized")
	ErrNoWriteDir         = errors.New("write directory is not set")
	ErrNotMounted         = errors.New("archive is not mounted")
	ErrDuplicateMount     = errors.New("archive is already mounted")
	ErrUnsupportedArchive = errors.New("unsupported archive format")
	ErrNotDirectory       = errors.New("not a directory")
	ErrIsDirectory        = errors.New("is a directory")
)

// Permission controls whether a mount may become the write target.
type Permission int

const (
	PermissionRead Permission = iota
	PermissionReadWrite
)

func (p Permission) String() string {
	if p == PermissionReadWrite {
		return "readwrite"
	}
	return "read"
}

// ParsePermission accepts "read" and "readwrite".
func ParsePermission(s string) (Permission, bool) {
	switch s {
	case "read", "":
		return PermissionRead, true
	case "readwrite":
		return PermissionReadWrite, true
	}
	return PermissionRead, false
}

// FileType classifies a virtual path.
type FileType int

const (
	FileTypeFile FileType = iota
	FileTypeDirectory
	FileTypeSymlink
	FileTypeOther
)

var fileTypeNames = [...]string{
	FileTypeFile:      "file",
	FileTypeDirectory: "directory",
	FileTypeSymlink:   "symlink",
	FileTypeOther:     "other",
}

func (t FileType) String() string {
	if t < 0 || int(t) >= len(fileTypeNames) {
		return "other"
	}
	return fileTypeNames[t]
}

// ParseFileType converts a name produced by FileType.String.
func ParseFileType(s string) (FileType, bool) {
	for i, name := range fileTypeNames {
		if name == s {
			return FileType(i), true
		}
	}
	return FileTypeOther, false
}

// Info describes a virtual path. ModTime is zero for virtual directories
// materialised from mount points.
type Info struct {
	Type     FileType
	Size     int64
	ModTime  time.Time
	ReadOnly bool
}

// IsDir reports whether the path is a directory.
func (i Info) IsDir() bool {
	return i.Type == FileTypeDirectory
}
