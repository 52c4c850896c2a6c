//go:build !(darwin || freebsd || linux || windows)

package artifact

import (
	"fmt"
	"runtime"
)

// LibraryLoader is unavailable on this platform
type LibraryLoader struct{}

// NewLibraryLoader reports that library mode is unsupported here
func NewLibraryLoader(entryPoint string) (*LibraryLoader, error) {
	return nil, fmt.Errorf("library mode is not supported on %s, use process mode", runtime.GOOS)
}

// Name returns the invocation mode
func (l *LibraryLoader) Name() string {
	return "library"
}

// Load always fails
func (l *LibraryLoader) Load(path string) (Module, error) {
	return nil, fmt.Errorf("%w: library mode unsupported on %s", ErrLoad, runtime.GOOS)
}
