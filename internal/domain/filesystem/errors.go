package filesystem

import (
	"errors"
	"fmt"
	"strings"

	"github.com/GriffinCanCode/AgentOS/vfs/internal/domain/mount"
	"github.com/GriffinCanCode/AgentOS/vfs/internal/infrastructure/archive"
	"github.com/GriffinCanCode/AgentOS/vfs/internal/shared/paths"
)

var (
	ErrInitialization        = errors.New("could not initialize filesystem")
	ErrCouldNotOpenFile      = errors.New("could not open file")
	ErrFileNotOpenForReading = errors.New("file is not opened for reading")
	ErrFileNotOpenForWriting = errors.New("file is not opened for writing")
	ErrDataNotWritten        = errors.New("data could not be written")
	ErrModuleNotFound        = errors.New("module not found")
	ErrSourceAlreadySet      = errors.New("source is already set")
	ErrMountNotAllowed       = errors.New("mount not allowed")
)

// Errors from lower layers, re-exported so callers need only this package.
var (
	ErrInvalidPath        = paths.ErrInvalidPath
	ErrAlreadyMounted     = mount.ErrAlreadyMounted
	ErrNotMounted         = mount.ErrNotMounted
	ErrIdentityRequired   = mount.ErrIdentityRequired
	ErrBackendNotReady    = archive.ErrNotInitialized
	ErrNoWriteDirectory   = archive.ErrNoWriteDir
	ErrUnsupportedArchive = archive.ErrUnsupportedArchive
)

// ModuleNotFoundError lists every location the require loader tried.
type ModuleNotFoundError struct {
	Module   string
	Searched []string
}

func (e *ModuleNotFoundError) Error() string {
	return fmt.Sprintf("module '%s' not found in any of: %s", e.Module, strings.Join(e.Searched, ", "))
}

func (e *ModuleNotFoundError) Is(target error) bool {
	return target == ErrModuleNotFound
}
