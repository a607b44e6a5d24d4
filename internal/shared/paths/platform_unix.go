//go:build !windows && !darwin

package paths

import (
	"github.com/adrg/xdg"
	"github.com/mitchellh/go-homedir"
)

// DefaultPlatform returns the XDG based lookups used on Linux and the BSDs.
func DefaultPlatform() Platform {
	return xdgPlatform{}
}

type xdgPlatform struct{}

func (xdgPlatform) UserHome() (string, error) {
	return homedir.Dir()
}

// UserDocuments follows XDG_DOCUMENTS_DIR, falling back to the home
// directory like most desktop environments do.
func (p xdgPlatform) UserDocuments() (string, error) {
	if dir := xdg.UserDirs.Documents; dir != "" {
		return dir, nil
	}
	return p.UserHome()
}

func (xdgPlatform) UserAppData(string) (string, error) {
	return xdg.DataHome, nil
}
