package paths

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrInvalidPath is returned for traversal attempts, empty archive keys and
// root removal.
var ErrInvalidPath = errors.New("invalid path")

// Root is the virtual root in normalized form.
const Root = ""

// EmbeddedBootArg is the argument a host passes as arg0 when it boots from an
// embedded entry script instead of a file on disk.
const EmbeddedBootArg = "embedded boot.lua"

// Normalize converts backslashes to slashes, collapses "." segments and
// redundant separators and strips leading and trailing slashes. Paths
// containing ".." are rejected.
func Normalize(p string) (string, error) {
	segments := strings.Split(strings.ReplaceAll(p, "\\", "/"), "/")
	clean := segments[:0]
	for _, segment := range segments {
		switch segment {
		case "", ".":
			continue
		case "..":
			return "", fmt.Errorf("%w: %q contains a parent directory segment", ErrInvalidPath, p)
		}
		clean = append(clean, segment)
	}
	return strings.Join(clean, "/"), nil
}

// MustNormalize is Normalize for trusted literals.
func MustNormalize(p string) string {
	clean, err := Normalize(p)
	if err != nil {
		panic(err)
	}
	return clean
}

// ValidateArchiveKey rejects keys that cannot identify an archive: empty keys,
// the literal root and anything with a parent directory segment. Real paths
// may use either separator, so both are checked.
func ValidateArchiveKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: empty archive key", ErrInvalidPath)
	}
	if key == "/" {
		return fmt.Errorf("%w: the root cannot be used as an archive", ErrInvalidPath)
	}
	for _, segment := range strings.FieldsFunc(key, isSeparator) {
		if segment == ".." {
			return fmt.Errorf("%w: %q contains a parent directory segment", ErrInvalidPath, key)
		}
	}
	return nil
}

func isSeparator(r rune) bool {
	return r == '/' || r == '\\'
}

// Join joins two normalized virtual paths.
func Join(parent, child string) string {
	switch {
	case parent == Root:
		return child
	case child == Root:
		return parent
	}
	return parent + "/" + child
}

// Relative returns p relative to prefix when p equals prefix or lies below it.
func Relative(prefix, p string) (string, bool) {
	if prefix == Root {
		return p, true
	}
	if p == prefix {
		return Root, true
	}
	if strings.HasPrefix(p, prefix+"/") {
		return p[len(prefix)+1:], true
	}
	return "", false
}

// NextSegment returns the first segment of descendant below ancestor, used to
// materialize directories on the way to a mount point.
func NextSegment(ancestor, descendant string) (string, bool) {
	rest, ok := Relative(ancestor, descendant)
	if !ok || rest == Root {
		return "", false
	}
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		return rest[:i], true
	}
	return rest, true
}

// Base returns the last segment of a normalized path.
func Base(p string) string {
	if i := strings.LastIndexByte(p, '/'); i >= 0 {
		return p[i+1:]
	}
	return p
}

// SourceBaseDirectory returns the directory containing the source archive, or
// an empty string when the source has no parent.
func SourceBaseDirectory(source string) string {
	if source == "" {
		return ""
	}
	dir := filepath.Dir(filepath.Clean(source))
	if dir == "." {
		return ""
	}
	return dir
}

// ApplicationPath resolves the path of the running application from the
// first process argument.
func ApplicationPath(arg0 string) (string, error) {
	if arg0 == "" || arg0 == EmbeddedBootArg {
		exe, err := os.Executable()
		if err != nil {
			return "", fmt.Errorf("failed to locate executable: %w", err)
		}
		return exe, nil
	}
	abs, err := filepath.Abs(arg0)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %q: %w", arg0, err)
	}
	return abs, nil
}
