package paths

import (
	"fmt"
	"path/filepath"
)

// DefaultAppdataFolder is the folder placed between the appdata root and the
// identity when the application is not fused.
const DefaultAppdataFolder = "vfs"

// Platform looks up the OS-specific roots that common paths build on.
type Platform interface {
	UserHome() (string, error)
	UserDocuments() (string, error)
	UserAppData(executablePath string) (string, error)
}

// StaticPlatform returns fixed roots. It is used by tests and by hosts that
// relocate every root under one directory.
type StaticPlatform struct {
	Home      string
	Documents string
	AppData   string
}

func (p StaticPlatform) UserHome() (string, error) { return p.Home, nil }
func (p StaticPlatform) UserDocuments() (string, error) { return p.Documents, nil }
func (p StaticPlatform) UserAppData(string) (string, error) { return p.AppData, nil }

// Resolver computes concrete locations for common paths.
type Resolver struct {
	platform      Platform
	appdataFolder string
}

// NewResolver creates a resolver. A nil platform selects the implementation
// for the running OS.
func NewResolver(platform Platform, appdataFolder string) *Resolver {
	if platform == nil {
		platform = DefaultPlatform()
	}
	return &Resolver{platform: platform, appdataFolder: appdataFolder}
}

// AppdataFolder returns the folder used for non-fused app-scoped paths.
func (r *Resolver) AppdataFolder() string {
	return r.appdataFolder
}

// Resolve returns the concrete path for cp. App-scoped paths resolve to an
// empty string, without error, while identity is empty.
func (r *Resolver) Resolve(cp CommonPath, identity string, fused bool, executablePath string) (string, error) {
	switch cp {
	case UserHome:
		return cleaned(r.platform.UserHome())
	case UserDocuments:
		return cleaned(r.platform.UserDocuments())
	case UserAppData:
		return cleaned(r.platform.UserAppData(executablePath))
	case AppSaveDir, AppDocuments:
		if identity == "" {
			return "", nil
		}
		base := UserAppData
		if cp == AppDocuments {
			base = UserDocuments
		}
		root, err := r.Resolve(base, identity, fused, executablePath)
		if err != nil || root == "" {
			return "", err
		}
		if fused {
			return filepath.Join(root, identity), nil
		}
		return filepath.Join(root, r.appdataFolder, identity), nil
	}
	return "", fmt.Errorf("unknown common path %d", int(cp))
}

func cleaned(p string, err error) (string, error) {
	if err != nil {
		return "", err
	}
	if p == "" {
		return "", nil
	}
	return filepath.Clean(p), nil
}
