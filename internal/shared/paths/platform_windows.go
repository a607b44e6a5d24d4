//go:build windows

package paths

import (
	"os"

	"github.com/adrg/xdg"
	"github.com/mitchellh/go-homedir"
)

// DefaultPlatform returns the Windows lookups.
func DefaultPlatform() Platform {
	return windowsPlatform{}
}

type windowsPlatform struct{}

func (windowsPlatform) UserHome() (string, error) {
	return homedir.Dir()
}

func (p windowsPlatform) UserDocuments() (string, error) {
	if dir := xdg.UserDirs.Documents; dir != "" {
		return dir, nil
	}
	return p.UserHome()
}

// UserAppData prefers the roaming profile so saves follow the user.
func (windowsPlatform) UserAppData(string) (string, error) {
	if dir := os.Getenv("APPDATA"); dir != "" {
		return dir, nil
	}
	return xdg.DataHome, nil
}
