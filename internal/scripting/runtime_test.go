package scripting

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/GriffinCanCode/AgentOS/vfs/internal/domain/filesystem"
	"github.com/GriffinCanCode/AgentOS/vfs/internal/logging"
	"github.com/GriffinCanCode/AgentOS/vfs/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRuntime(t *testing.T, config Config) (*Runtime, *filesystem.Filesystem) {
	t.Helper()

	root := t.TempDir()
	source := filepath.Join(root, "game")
	testutil.WriteTree(t, source, testutil.Files{
		"main.js":           "var util = require('lib.util'); util.add(2, 3)",
		"lib/util.js":       "module.exports = { add: function (a, b) { return a + b } }",
		"pkg/index.js":      "exports.name = 'pkg'",
		"counter.js":        "exports.loads = (globalThis.loads = (globalThis.loads || 0) + 1)",
		"broken.js":         "throw new Error('boom')",
		"cycle/a.js":        "exports.early = true; var b = require('cycle.b'); exports.fromB = b.sawEarly",
		"cycle/b.js":        "exports.sawEarly = require('cycle.a').early === true",
		"data/greeting.txt": "hello\nworld\n",
	})

	fsys := filesystem.New(filesystem.WithPlatform(testutil.NewMockPlatform(t, root)))
	require.NoError(t, fsys.Init(filepath.Join(root, "bin", "app")))
	require.NoError(t, fsys.SetSource(source))
	t.Cleanup(func() { _ = fsys.Close() })

	rt, err := New(fsys, logging.NewNop(), config)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close() })

	return rt, fsys
}

func TestRuntimeExecution(t *testing.T) {
	rt, _ := newTestRuntime(t, DefaultConfig())

	tests := []struct {
		name   string
		script string
		want   interface{}
	}{
		{name: "simple return", script: "42", want: int64(42)},
		{name: "string operations", script: "'hello'.toUpperCase()", want: "HELLO"},
		{name: "undefined", script: "undefined", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := rt.Execute(context.Background(), tt.script)
			require.NoError(t, err)
			assert.Equal(t, tt.want, result.Value)
		})
	}
}

func TestRunScriptFile(t *testing.T) {
	rt, _ := newTestRuntime(t, DefaultConfig())

	result, err := rt.Run(context.Background(), "main.js")
	require.NoError(t, err)
	assert.Equal(t, int64(5), result.Value)

	_, err = rt.Run(context.Background(), "missing.js")
	assert.Error(t, err)
}

func TestRequireResolution(t *testing.T) {
	rt, fsys := newTestRuntime(t, DefaultConfig())
	assert.Equal(t, DefaultRequirePath, fsys.RequirePath())

	result, err := rt.Execute(context.Background(), "require('pkg').name")
	require.NoError(t, err)
	assert.Equal(t, "pkg", result.Value)

	exports, err := rt.Require("lib.util")
	require.NoError(t, err)
	assert.Contains(t, exports, "add")
}

func TestRequireCachesModules(t *testing.T) {
	rt, _ := newTestRuntime(t, DefaultConfig())

	result, err := rt.Execute(context.Background(), "require('counter').loads + require('counter').loads")
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.Value)

	require.NoError(t, rt.Reset())
	result, err = rt.Execute(context.Background(), "require('counter').loads")
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.Value)
}

func TestRequireCycleSeesPartialExports(t *testing.T) {
	rt, _ := newTestRuntime(t, DefaultConfig())

	result, err := rt.Execute(context.Background(), "require('cycle.a').fromB")
	require.NoError(t, err)
	assert.Equal(t, true, result.Value)
}

func TestRequireErrors(t *testing.T) {
	rt, _ := newTestRuntime(t, DefaultConfig())

	_, err := rt.Execute(context.Background(), "require('nope')")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "module 'nope' not found in any of: nope.js, nope/index.js")

	result, err := rt.Execute(context.Background(), "try { require('nope'); 'no' } catch (e) { 'caught' }")
	require.NoError(t, err)
	assert.Equal(t, "caught", result.Value)

	_, err = rt.Execute(context.Background(), "require('broken')")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")

	_, err = rt.Require("nope")
	assert.Error(t, err)
}

func TestFilesystemGlobal(t *testing.T) {
	rt, fsys := newTestRuntime(t, DefaultConfig())

	result, err := rt.Execute(context.Background(), "filesystem.read('data/greeting.txt', 5)")
	require.NoError(t, err)
	assert.Equal(t, "hello", result.Value)

	result, err = rt.Execute(context.Background(), "filesystem.lines('data/greeting.txt').length")
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.Value)

	_, err = rt.Execute(context.Background(), "filesystem.write('save.txt', 'x')")
	assert.Error(t, err, "writes need an identity")

	script := `
		filesystem.setIdentity('scripted');
		filesystem.write('save.txt', 'one');
		filesystem.append('save.txt', 'two');
		filesystem.read('save.txt')
	`
	result, err = rt.Execute(context.Background(), script)
	require.NoError(t, err)
	assert.Equal(t, "onetwo", result.Value)
	assert.Equal(t, "scripted", fsys.Identity())

	result, err = rt.Execute(context.Background(), "filesystem.getInfo('lib').type")
	require.NoError(t, err)
	assert.Equal(t, "directory", result.Value)

	result, err = rt.Execute(context.Background(), "filesystem.getInfo('nothing')")
	require.NoError(t, err)
	assert.Nil(t, result.Value)

	result, err = rt.Execute(context.Background(), "filesystem.getDirectoryItems('lib')")
	require.NoError(t, err)
	assert.Equal(t, []string{"util.js"}, result.Value)

	result, err = rt.Execute(context.Background(), "filesystem.exists('main.js') && !filesystem.exists('nope.js')")
	require.NoError(t, err)
	assert.Equal(t, true, result.Value)
}

func TestConsoleCapture(t *testing.T) {
	rt, _ := newTestRuntime(t, DefaultConfig())

	result, err := rt.Execute(context.Background(), "console.log('a', 1); console.warn('b'); 'ok'")
	require.NoError(t, err)
	require.Len(t, result.Console, 2)
	assert.Equal(t, "log", result.Console[0].Level)
	assert.Equal(t, "a 1", result.Console[0].Message)
	assert.Equal(t, "warn", result.Console[1].Level)
}

func TestTimeoutInterrupts(t *testing.T) {
	config := DefaultConfig()
	config.Timeout = 50 * time.Millisecond
	rt, _ := newTestRuntime(t, config)

	_, err := rt.Execute(context.Background(), "while (true) {}")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timeout")

	result, err := rt.Execute(context.Background(), "1 + 1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.Value)
}

func TestContextCancellation(t *testing.T) {
	rt, _ := newTestRuntime(t, DefaultConfig())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := rt.Execute(ctx, "while (true) {}")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cancelled")
}
