package filesystem

import (
	"strings"
)

// RequirePath returns the module search path, patterns joined by ";".
func (f *Filesystem) RequirePath() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return strings.Join(f.requirePath, ";")
}

// SetRequirePath replaces the module search path. Each ";" separated
// pattern has its "?" replaced by the module path.
func (f *Filesystem) SetRequirePath(p string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requirePath = splitRequirePath(p)
}

// ResolveModule returns the first file matching module on the search path.
// Dots in the module name are directory separators.
func (f *Filesystem) ResolveModule(module string) (string, error) {
	f.mu.RLock()
	patterns := append([]string(nil), f.requirePath...)
	f.mu.RUnlock()

	modulePath := strings.ReplaceAll(module, ".", "/")
	searched := make([]string, 0, len(patterns))
	for _, pattern := range patterns {
		candidate := strings.ReplaceAll(pattern, "?", modulePath)
		if info, ok := f.Info(candidate); ok && !info.IsDir() {
			return candidate, nil
		}
		searched = append(searched, candidate)
	}
	return "", &ModuleNotFoundError{Module: module, Searched: searched}
}

// LoadModule resolves module and reads it.
func (f *Filesystem) LoadModule(module string) (*FileData, error) {
	name, err := f.ResolveModule(module)
	if err != nil {
		return nil, err
	}
	return f.ReadAll(name)
}

func splitRequirePath(p string) []string {
	var patterns []string
	for _, pattern := range strings.Split(p, ";") {
		if pattern = strings.TrimSpace(pattern); pattern != "" {
			patterns = append(patterns, pattern)
		}
	}
	return patterns
}
