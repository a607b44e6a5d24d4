package scripting

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/GriffinCanCode/AgentOS/vfs/internal/domain/filesystem"
	"github.com/GriffinCanCode/AgentOS/vfs/internal/logging"
	"github.com/dop251/goja"
	"go.uber.org/zap"
)

// Runtime wraps a goja VM bound to a virtual filesystem
type Runtime struct {
	vm     *goja.Runtime
	fsys   *filesystem.Filesystem
	log    *logging.Logger
	config Config
	mu     sync.Mutex

	// Loaded modules by resolved path
	modules map[string]*goja.Object

	console   []LogEntry
	consoleMu sync.Mutex
}

// New creates a runtime over fsys. A configured require path replaces the
// filesystem's.
func New(fsys *filesystem.Filesystem, log *logging.Logger, config Config) (*Runtime, error) {
	if config.RequirePath != "" {
		fsys.SetRequirePath(config.RequirePath)
	}

	r := &Runtime{
		fsys:   fsys,
		log:    logging.OrNop(log).Named("scripting"),
		config: config,
	}
	if err := r.reset(); err != nil {
		return nil, err
	}
	return r, nil
}

// Execute runs a script with timeout and cancellation
func (r *Runtime) Execute(ctx context.Context, script string) (*Result, error) {
	return r.run(ctx, func() (goja.Value, error) {
		return r.vm.RunString(script)
	})
}

// Run executes a script file from the virtual filesystem
func (r *Runtime) Run(ctx context.Context, name string) (*Result, error) {
	data, err := r.fsys.ReadAll(name)
	if err != nil {
		return nil, err
	}
	return r.run(ctx, func() (goja.Value, error) {
		return r.vm.RunScript(name, data.String())
	})
}

func (r *Runtime) run(ctx context.Context, exec func() (goja.Value, error)) (*Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	start := time.Now()

	r.consoleMu.Lock()
	r.console = []LogEntry{}
	r.consoleMu.Unlock()

	var timeout <-chan time.Time
	if r.config.Timeout > 0 {
		timer := time.NewTimer(r.config.Timeout)
		defer timer.Stop()
		timeout = timer.C
	}

	done := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		select {
		case <-timeout:
			r.vm.Interrupt("execution timeout exceeded")
		case <-ctx.Done():
			r.vm.Interrupt("context cancelled")
		case <-done:
		}
	}()

	val, err := exec()

	close(done)
	<-stopped
	r.vm.ClearInterrupt()

	result := &Result{Duration: time.Since(start)}

	r.consoleMu.Lock()
	result.Console = append([]LogEntry{}, r.console...)
	r.consoleMu.Unlock()

	if err != nil {
		r.log.Debug("Script failed", zap.Error(err), zap.Duration("duration", result.Duration))
		return result, err
	}

	result.Value = exportValue(val)
	return result, nil
}

// Require loads a module the way a script's require call does
func (r *Runtime) Require(module string) (interface{}, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var exports goja.Value
	if ex := r.vm.Try(func() {
		exports = r.require(module)
	}); ex != nil {
		return nil, ex
	}
	return exportValue(exports), nil
}

// Reset discards loaded modules and globals
func (r *Runtime) Reset() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reset()
}

// Close releases resources
func (r *Runtime) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.vm = nil
	r.modules = nil
	r.console = nil
	return nil
}

func (r *Runtime) reset() error {
	r.vm = goja.New()
	r.modules = make(map[string]*goja.Object)
	r.console = []LogEntry{}

	if r.config.MaxCallStackSize > 0 {
		r.vm.SetMaxCallStackSize(r.config.MaxCallStackSize)
	}
	return r.setupGlobals()
}

// setupGlobals configures global objects
func (r *Runtime) setupGlobals() error {
	r.vm.Set("process", goja.Undefined())

	if err := r.vm.Set("require", func(call goja.FunctionCall) goja.Value {
		return r.require(call.Argument(0).String())
	}); err != nil {
		return err
	}

	if r.config.EnableConsole {
		console := r.vm.NewObject()
		for _, level := range []string{"log", "warn", "error", "info"} {
			if err := console.Set(level, r.makeConsoleFunc(level)); err != nil {
				return err
			}
		}
		if err := r.vm.Set("console", console); err != nil {
			return err
		}
	}

	return r.vm.Set("filesystem", r.filesystemObject())
}

// require resolves, evaluates and caches a module. Failures are thrown
// into the calling script.
func (r *Runtime) require(module string) goja.Value {
	if module == "" {
		panic(r.vm.NewTypeError("require expects a module name"))
	}

	resolved, err := r.fsys.ResolveModule(module)
	if err != nil {
		panic(r.vm.NewGoError(err))
	}
	if cached, ok := r.modules[resolved]; ok {
		return cached.Get("exports")
	}

	data, err := r.fsys.ReadAll(resolved)
	if err != nil {
		panic(r.vm.NewGoError(err))
	}

	wrapper, err := r.vm.RunScript(resolved, "(function (module, exports, require) {\n"+data.String()+"\n})")
	if err != nil {
		r.rethrow(err)
	}
	fn, ok := goja.AssertFunction(wrapper)
	if !ok {
		panic(r.vm.NewTypeError("module %s did not compile to a function", resolved))
	}

	moduleObj := r.vm.NewObject()
	exports := r.vm.NewObject()
	_ = moduleObj.Set("exports", exports)
	_ = moduleObj.Set("id", module)
	_ = moduleObj.Set("filename", resolved)

	// Cache before evaluation so cyclic requires see partial exports.
	r.modules[resolved] = moduleObj

	if _, err := fn(goja.Undefined(), moduleObj, exports, r.vm.Get("require")); err != nil {
		delete(r.modules, resolved)
		r.rethrow(err)
	}

	r.log.Debug("Loaded module", zap.String("module", module), zap.String("path", resolved))
	return moduleObj.Get("exports")
}

// makeConsoleFunc creates a console function
func (r *Runtime) makeConsoleFunc(level string) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, arg := range call.Arguments {
			parts[i] = arg.String()
		}

		r.consoleMu.Lock()
		r.console = append(r.console, LogEntry{
			Level:   level,
			Message: strings.Join(parts, " "),
			Time:    time.Now(),
		})
		r.consoleMu.Unlock()

		return goja.Undefined()
	}
}

// exportValue converts goja value to Go value
func exportValue(val goja.Value) interface{} {
	if val == nil || goja.IsUndefined(val) || goja.IsNull(val) {
		return nil
	}
	return val.Export()
}

// rethrow propagates an error from nested evaluation into the calling
// script, keeping exceptions and interrupts intact.
func (r *Runtime) rethrow(err error) {
	var ex *goja.Exception
	if errors.As(err, &ex) {
		panic(ex)
	}
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		panic(interrupted)
	}
	panic(r.vm.NewGoError(err))
}

// throw raises err as a script exception
func (r *Runtime) throw(op, name string, err error) {
	panic(r.vm.NewGoError(fmt.Errorf("%s %s: %w", op, name, err)))
}
