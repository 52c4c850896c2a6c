//go:build darwin || freebsd || linux

package artifact

import (
	"fmt"

	"github.com/ebitengine/purego"
)

// LibraryLoader dlopens the artifact copy and resolves an exported entry point
type LibraryLoader struct {
	entryPoint string
}

// NewLibraryLoader creates a loader that calls the exported symbol entryPoint
func NewLibraryLoader(entryPoint string) (*LibraryLoader, error) {
	if entryPoint == "" {
		return nil, fmt.Errorf("library mode requires an entry point symbol")
	}
	return &LibraryLoader{entryPoint: entryPoint}, nil
}

// Name returns the invocation mode
func (l *LibraryLoader) Name() string {
	return "library"
}

// Load maps the copy into the process. RTLD_LOCAL keeps each copy's symbols
// private so successive builds never resolve against an older copy.
func (l *LibraryLoader) Load(path string) (Module, error) {
	handle, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_LOCAL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}

	sym, err := purego.Dlsym(handle, l.entryPoint)
	if err != nil {
		_ = purego.Dlclose(handle)
		return nil, fmt.Errorf("%w: %q: %w", ErrEntryPoint, l.entryPoint, err)
	}

	return &libraryModule{handle: handle, sym: sym}, nil
}

type libraryModule struct {
	handle uintptr
	sym    uintptr
}

// Call invokes `int entry(void)` and returns its result
func (m *libraryModule) Call() (int, error) {
	r1, _, _ := purego.SyscallN(m.sym)
	return int(int32(r1)), nil
}

// Close unloads the library
func (m *libraryModule) Close() error {
	return purego.Dlclose(m.handle)
}
