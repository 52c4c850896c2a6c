//go:build windows

package artifact

import (
	"fmt"

	"golang.org/x/sys/windows"
)

// LibraryLoader loads the artifact copy as a DLL and resolves an exported entry point
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

// Load maps the DLL copy into the process
func (l *LibraryLoader) Load(path string) (Module, error) {
	dll, err := windows.LoadDLL(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}

	proc, err := dll.FindProc(l.entryPoint)
	if err != nil {
		_ = dll.Release()
		return nil, fmt.Errorf("%w: %q: %w", ErrEntryPoint, l.entryPoint, err)
	}

	return &libraryModule{dll: dll, proc: proc}, nil
}

type libraryModule struct {
	dll  *windows.DLL
	proc *windows.Proc
}

// Call invokes `int entry(void)` and returns its result
func (m *libraryModule) Call() (int, error) {
	r1, _, _ := m.proc.Call()
	return int(int32(r1)), nil
}

// Close releases the DLL so the copy can be deleted
func (m *libraryModule) Close() error {
	return m.dll.Release()
}
