// Package testutil provides fixtures and assertions shared by package tests.
package testutil

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/GriffinCanCode/AgentOS/vfs/internal/types"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// Files maps slash-separated paths to contents. Keys ending in "/" are
// directories.
type Files map[string]string

// sortedEntries returns every file plus each implied parent directory,
// parents first. afero's zip and tar views only list directories that have
// their own entry.
func (f Files) sortedEntries() []string {
	set := make(map[string]struct{})
	for name := range f {
		set[name] = struct{}{}
		dir := path.Dir(strings.TrimSuffix(name, "/"))
		for dir != "." && dir != "/" {
			set[dir+"/"] = struct{}{}
			dir = path.Dir(dir)
		}
	}

	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ZipArchive builds a zip payload.
func ZipArchive(t testing.TB, files Files) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range files.sortedEntries() {
		w, err := zw.Create(name)
		require.NoError(t, err)
		if !strings.HasSuffix(name, "/") {
			_, err = w.Write([]byte(files[name]))
			require.NoError(t, err)
		}
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// TarArchive builds an uncompressed tar payload.
func TarArchive(t testing.TB, files Files) []byte {
	t.Helper()

	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for _, name := range files.sortedEntries() {
		if strings.HasSuffix(name, "/") {
			require.NoError(t, tw.WriteHeader(&tar.Header{Name: name, Typeflag: tar.TypeDir, Mode: 0o755}))
			continue
		}
		content := files[name]
		require.NoError(t, tw.WriteHeader(&tar.Header{Name: name, Typeflag: tar.TypeReg, Mode: 0o644, Size: int64(len(content))}))
		_, err := tw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	return buf.Bytes()
}

// TarGzArchive builds a gzip-compressed tar payload.
func TarGzArchive(t testing.TB, files Files) []byte {
	t.Helper()

	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	_, err := gw.Write(TarArchive(t, files))
	require.NoError(t, err)
	require.NoError(t, gw.Close())
	return buf.Bytes()
}

// WriteTree materialises files under root on the real filesystem.
func WriteTree(t testing.TB, root string, files Files) {
	t.Helper()

	for name, content := range files {
		full := filepath.Join(root, filepath.FromSlash(name))
		if strings.HasSuffix(name, "/") {
			require.NoError(t, os.MkdirAll(full, 0o755))
			continue
		}
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
}

// WriteFile writes a single real file and returns its path.
func WriteFile(t testing.TB, dir, name string, data []byte) string {
	t.Helper()

	full := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, data, 0o644))
	return full
}

// MockPlatform is a testify mock of paths.Platform.
type MockPlatform struct {
	mock.Mock
}

func (m *MockPlatform) UserHome() (string, error) {
	args := m.Called()
	return args.String(0), args.Error(1)
}

func (m *MockPlatform) UserDocuments() (string, error) {
	args := m.Called()
	return args.String(0), args.Error(1)
}

func (m *MockPlatform) UserAppData(executablePath string) (string, error) {
	args := m.Called(executablePath)
	return args.String(0), args.Error(1)
}

// NewMockPlatform returns a platform rooted at root with the usual
// home/Documents/appdata layout.
func NewMockPlatform(t testing.TB, root string) *MockPlatform {
	t.Helper()

	m := new(MockPlatform)
	m.On("UserHome").Return(root, nil).Maybe()
	m.On("UserDocuments").Return(filepath.Join(root, "Documents"), nil).Maybe()
	m.On("UserAppData", mock.Anything).Return(filepath.Join(root, "appdata"), nil).Maybe()
	return m
}

// AssertSuccess fails the test unless result succeeded.
func AssertSuccess(t testing.TB, result *types.Result) {
	t.Helper()
	if result == nil {
		t.Fatal("Result is nil")
	}
	if !result.Success {
		t.Fatalf("Expected success, got error: %v", deref(result.Error))
	}
}

// AssertError fails the test unless result failed with a message.
func AssertError(t testing.TB, result *types.Result) {
	t.Helper()
	if result == nil {
		t.Fatal("Result is nil")
	}
	if result.Success {
		t.Fatal("Expected error, got success")
	}
	if result.Error == nil {
		t.Fatal("Expected error message, got nil")
	}
}

// AssertDataField asserts a successful result carries field == expected.
func AssertDataField(t testing.TB, result *types.Result, field string, expected interface{}) {
	t.Helper()
	AssertSuccess(t, result)

	if result.Data == nil {
		t.Fatal("Result data is nil")
	}
	actual, ok := result.Data[field]
	if !ok {
		t.Fatalf("Field %s not found in result data", field)
	}
	if actual != expected {
		t.Fatalf("Field %s: expected %v, got %v", field, expected, actual)
	}
}

func deref(s *string) string {
	if s == nil {
		return "<nil>"
	}
	return *s
}
