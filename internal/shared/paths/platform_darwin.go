//go:build darwin

package paths

import (
	"path/filepath"

	"github.com/mitchellh/go-homedir"
)

// DefaultPlatform returns the macOS lookups.
func DefaultPlatform() Platform {
	return darwinPlatform{}
}

type darwinPlatform struct{}

func (darwinPlatform) UserHome() (string, error) {
	return homedir.Dir()
}

func (p darwinPlatform) UserDocuments() (string, error) {
	home, err := p.UserHome()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "Documents"), nil
}

func (p darwinPlatform) UserAppData(string) (string, error) {
	home, err := p.UserHome()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "Library", "Application Support"), nil
}
